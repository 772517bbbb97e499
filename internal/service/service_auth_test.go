package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MKhiriev/go-delta-sync/internal/config"
	"github.com/MKhiriev/go-delta-sync/internal/logger"
	"github.com/MKhiriev/go-delta-sync/internal/utils"
)

func newTestAuthService(duration time.Duration) AuthService {
	return NewAuthService(config.App{
		JWTSecret:     "test-secret",
		TokenIssuer:   "go-delta-sync",
		TokenDuration: duration,
	}, logger.Nop())
}

func TestAuthService_CreateAndParse(t *testing.T) {
	svc := newTestAuthService(time.Hour)
	ctx := context.Background()

	token, err := svc.CreateToken(ctx, "alice")
	require.NoError(t, err)
	require.NotEmpty(t, token.SignedString)

	parsed, err := svc.ParseToken(ctx, token.SignedString)
	require.NoError(t, err)
	assert.Equal(t, "alice", parsed.Owner)
	assert.Equal(t, token.SignedString, parsed.String())
}

func TestAuthService_CreateToken_EmptyOwner(t *testing.T) {
	_, err := newTestAuthService(time.Hour).CreateToken(context.Background(), "")
	assert.ErrorIs(t, err, ErrInvalidDataProvided)
}

func TestAuthService_CreateToken_ZeroDuration(t *testing.T) {
	_, err := newTestAuthService(0).CreateToken(context.Background(), "alice")
	assert.ErrorIs(t, err, ErrTokenCreationFailed)
}

func TestAuthService_ParseToken_Rejects(t *testing.T) {
	svc := newTestAuthService(time.Hour)
	ctx := context.Background()

	expired, err := utils.GenerateJWTToken("go-delta-sync", "alice", -time.Minute, "test-secret")
	require.NoError(t, err)
	otherSecret, err := utils.GenerateJWTToken("go-delta-sync", "alice", time.Hour, "other-secret")
	require.NoError(t, err)
	otherIssuer, err := utils.GenerateJWTToken("someone-else", "alice", time.Hour, "test-secret")
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
	}{
		{name: "empty", token: ""},
		{name: "garbage", token: "not-a-jwt"},
		{name: "expired", token: expired.SignedString},
		{name: "wrong secret", token: otherSecret.SignedString},
		{name: "wrong issuer", token: otherIssuer.SignedString},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.ParseToken(ctx, tt.token)
			assert.ErrorIs(t, err, ErrTokenIsExpiredOrInvalid)
		})
	}
}
