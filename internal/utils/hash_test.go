// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package utils

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"sync"
	"testing"
)

func TestHasher_SumMatchesHMAC(t *testing.T) {
	key := "secret-key"
	h := NewHasher(key)

	data := []byte("test-data")

	sum1 := h.Sum(data)
	sum2 := h.Sum(data)

	if len(sum1) == 0 {
		t.Fatal("hash result is empty")
	}
	if !bytes.Equal(sum1, sum2) {
		t.Fatal("hash must be deterministic for the same input")
	}

	mac := hmac.New(sha256.New, []byte(key))
	mac.Write(data)
	expected := mac.Sum(nil)

	if !bytes.Equal(sum1, expected) {
		t.Fatalf("unexpected hash value\nwant: %x\ngot:  %x", expected, sum1)
	}
}

func TestHasher_DifferentKeys(t *testing.T) {
	data := []byte("payload")

	a := NewHasher("key-a").Sum(data)
	b := NewHasher("key-b").Sum(data)

	if bytes.Equal(a, b) {
		t.Fatal("different keys must produce different digests")
	}
}

func TestSign_MatchesHasher(t *testing.T) {
	data := []byte(`{"id":"t1"}`)

	got := Sign(data, "sync-local")
	want := base64.StdEncoding.EncodeToString(NewHasher("sync-local").Sum(data))

	if got != want {
		t.Fatalf("want %s, got %s", want, got)
	}
	if !Verify(data, "sync-local", got) {
		t.Fatal("signature must verify under its own key")
	}
}

func TestHasher_ConcurrentUse(t *testing.T) {
	h := NewHasher("concurrent")
	data := []byte("same input")
	want := h.Sum(data)

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				if got := h.Sum(data); !bytes.Equal(got, want) {
					t.Errorf("concurrent digest mismatch")
					return
				}
			}
		}()
	}
	wg.Wait()
}

func TestSignAndVerify(t *testing.T) {
	data := []byte("ZW5jcnlwdGVk")

	sig := Sign(data, "jwt-token")
	if sig == "" {
		t.Fatal("signature is empty")
	}
	if !Verify(data, "jwt-token", sig) {
		t.Fatal("signature must verify with the same key")
	}
	if Verify(data, "other", sig) {
		t.Fatal("signature must not verify with another key")
	}
	if Verify([]byte("tampered"), "jwt-token", sig) {
		t.Fatal("signature must not verify for other data")
	}
	if Verify(data, "jwt-token", "%%%not-base64") {
		t.Fatal("malformed signature must not verify")
	}
}
