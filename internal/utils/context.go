// Package utils provides general-purpose helpers shared by the sync server
// and client: request context keys, keyed hashing, JSON response writing,
// the resty HTTP client, JWT issuing and validation, and id generation.
package utils

import (
	"context"
)

// contextKey is a private type for context keys.
// Using a dedicated type instead of a plain string prevents key collisions
// with other packages that may use string-based keys in the context.
type contextKey string

// String returns the string representation of the context key.
func (c contextKey) String() string {
	return string(c)
}

var (
	// OwnerCtxKey stores the authenticated principal (the JWT subject) that
	// owns every delta touched by the request.
	OwnerCtxKey = contextKey("owner")

	// TokenCtxKey stores the raw bearer token presented with the request.
	TokenCtxKey = contextKey("token")
)

// GetOwnerFromContext returns the principal stored by the auth middleware.
// ok is false when the value is missing, empty or of an unexpected type.
func GetOwnerFromContext(ctx context.Context) (string, bool) {
	owner, ok := ctx.Value(OwnerCtxKey).(string)
	return owner, ok && owner != ""
}

// GetTokenFromContext returns the raw bearer token stored by the auth
// middleware.
func GetTokenFromContext(ctx context.Context) (string, bool) {
	token, ok := ctx.Value(TokenCtxKey).(string)
	return token, ok && token != ""
}

// WithPrincipal returns a copy of ctx carrying owner and token.
func WithPrincipal(ctx context.Context, owner, token string) context.Context {
	ctx = context.WithValue(ctx, OwnerCtxKey, owner)
	return context.WithValue(ctx, TokenCtxKey, token)
}
