// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package utils

import (
	"context"
	"testing"
)

func TestContextKeyString(t *testing.T) {
	key := contextKey("testKey")
	if key.String() != "testKey" {
		t.Errorf("expected 'testKey', got '%s'", key.String())
	}
}

func TestOwnerCtxKey(t *testing.T) {
	if OwnerCtxKey.String() != "owner" {
		t.Errorf("expected 'owner', got '%s'", OwnerCtxKey.String())
	}
}

func TestGetOwnerFromContext_Success(t *testing.T) {
	ctx := context.WithValue(context.Background(), OwnerCtxKey, "user-42")

	owner, ok := GetOwnerFromContext(ctx)

	if !ok {
		t.Fatal("expected ok=true, got false")
	}
	if owner != "user-42" {
		t.Errorf("expected owner=user-42, got %s", owner)
	}
}

func TestGetOwnerFromContext_Missing(t *testing.T) {
	owner, ok := GetOwnerFromContext(context.Background())

	if ok {
		t.Fatal("expected ok=false, got true")
	}
	if owner != "" {
		t.Errorf("expected empty owner, got %s", owner)
	}
}

func TestGetOwnerFromContext_WrongType(t *testing.T) {
	ctx := context.WithValue(context.Background(), OwnerCtxKey, 42)

	if _, ok := GetOwnerFromContext(ctx); ok {
		t.Fatal("expected ok=false for non-string value")
	}
}

func TestGetOwnerFromContext_Empty(t *testing.T) {
	ctx := context.WithValue(context.Background(), OwnerCtxKey, "")

	if _, ok := GetOwnerFromContext(ctx); ok {
		t.Fatal("expected ok=false for empty owner")
	}
}

func TestWithPrincipal(t *testing.T) {
	ctx := WithPrincipal(context.Background(), "alice", "jwt")

	owner, ok := GetOwnerFromContext(ctx)
	if !ok || owner != "alice" {
		t.Fatalf("unexpected owner %q (ok=%v)", owner, ok)
	}

	token, ok := GetTokenFromContext(ctx)
	if !ok || token != "jwt" {
		t.Fatalf("unexpected token %q (ok=%v)", token, ok)
	}
}
