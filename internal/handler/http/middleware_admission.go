package http

import (
	"net/http"

	"github.com/go-chi/httprate"
	"github.com/rs/cors"

	"github.com/MKhiriev/go-delta-sync/internal/logger"
	"github.com/MKhiriev/go-delta-sync/internal/utils"
)

// withCORS allows browser clients of any origin to call the gateway.
func (h *Handler) withCORS() func(http.Handler) http.Handler {
	return cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
		ExposedHeaders: []string{traceIDHeader},
	}).Handler
}

// withRateLimit limits every client IP to cfg.RateLimit requests per
// cfg.RateWindow. Excess requests get 429 before auth runs.
func (h *Handler) withRateLimit() func(http.Handler) http.Handler {
	return httprate.Limit(
		h.cfg.RateLimit,
		h.cfg.RateWindow,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			logger.FromRequest(r).Warn().
				Str("func", "Handler.withRateLimit").
				Str("remote_addr", r.RemoteAddr).
				Msg("rate limit exceeded")
			utils.WriteError(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
		}),
	)
}
