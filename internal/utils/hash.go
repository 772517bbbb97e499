package utils

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"hash"
	"sync"
)

// Hasher computes keyed HMAC-SHA256 digests with pooled hash instances.
//
// One Hasher is created per key (for example the checksum key of the
// envelope codec) and shared by all goroutines; hash.Hash values are reused
// through a sync.Pool to keep the hot path free of allocations.
//
// Example usage:
//
//	h := utils.NewHasher("sync-local")
//	digest := h.Sum([]byte(`{"id":"t1"}`))
type Hasher struct {
	pool sync.Pool
}

// NewHasher returns a Hasher keyed with hashKey.
func NewHasher(hashKey string) *Hasher {
	key := []byte(hashKey)
	return &Hasher{
		pool: sync.Pool{
			New: func() any {
				return hmac.New(sha256.New, key)
			},
		},
	}
}

// Sum returns the raw HMAC-SHA256 digest of data.
func (h *Hasher) Sum(data []byte) []byte {
	hasher := h.pool.Get().(hash.Hash)
	hasher.Reset()

	hasher.Write(data)
	sum := hasher.Sum(nil)

	hasher.Reset()
	h.pool.Put(hasher)

	return sum
}

// Sign computes base64(HMAC-SHA256(key, data)) without the pool. It is used
// where the key changes per call, e.g. signatures keyed by a bearer token.
func Sign(data []byte, key string) string {
	return base64.StdEncoding.EncodeToString(hashBytes(data, key))
}

// Verify reports whether signature equals Sign(data, key), comparing in
// constant time.
func Verify(data []byte, key, signature string) bool {
	expected, err := base64.StdEncoding.DecodeString(signature)
	if err != nil {
		return false
	}
	return hmac.Equal(expected, hashBytes(data, key))
}

func hashBytes(data []byte, key string) []byte {
	hasher := hmac.New(sha256.New, []byte(key))
	hasher.Write(data)
	return hasher.Sum(nil)
}
