package http

import (
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/MKhiriev/go-delta-sync/internal/logger"
	"github.com/MKhiriev/go-delta-sync/internal/utils"
)

// auth is the single enforcement point for bearer tokens.
//
// It validates the token via [service.AuthService.ParseToken] and, on
// success, stores the owner and the raw token in the request context (see
// [utils.WithPrincipal]) before delegating to the next handler. Every
// failure answers 401 with {"error":"Unauthorized"}; next is not called.
func (h *Handler) auth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		log := logger.FromRequest(r)

		tokenString, err := getTokenFromAuthHeader(r.Header.Get("Authorization"))
		if err != nil {
			log.Warn().Err(err).Str("func", "Handler.auth").Msg("rejected request")
			utils.WriteError(w, unauthorizedMessage, http.StatusUnauthorized)
			return
		}

		ctx := r.Context()
		token, err := h.services.AuthService.ParseToken(ctx, tokenString)
		if err != nil {
			log.Warn().Err(err).Str("func", "Handler.auth").Msg("error occurred during parsing token")
			utils.WriteError(w, unauthorizedMessage, http.StatusUnauthorized)
			return
		}

		ctx = utils.WithPrincipal(ctx, token.Owner, tokenString)

		// tag every later log line of this request with the owner
		l := log.GetChildLogger()
		l.UpdateContext(func(c zerolog.Context) zerolog.Context {
			return c.Str("owner", token.Owner)
		})
		ctx = l.WithContext(ctx)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// getTokenFromAuthHeader extracts the token of an
//
//	Authorization: Bearer <token>
//
// header. The scheme is matched case-insensitively.
func getTokenFromAuthHeader(authHeader string) (string, error) {
	if strings.TrimSpace(authHeader) == "" {
		return "", ErrEmptyAuthorizationHeader
	}

	scheme, tokenString, found := strings.Cut(strings.TrimSpace(authHeader), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", ErrInvalidAuthorizationHeader
	}

	tokenString = strings.TrimSpace(tokenString)
	if tokenString == "" {
		return "", ErrEmptyToken
	}
	if strings.ContainsAny(tokenString, " \t") {
		return "", ErrInvalidAuthorizationHeader
	}

	return tokenString, nil
}
