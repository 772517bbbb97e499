package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

func (h *Handler) Init() *chi.Mux {
	router := chi.NewRouter()
	router.Use(middleware.Recoverer)
	router.Use(h.withTraceID, h.withLogging)
	router.Use(h.withCORS(), h.withRateLimit())

	// routes without authorization
	router.Group(func(r chi.Router) {
		r.Get("/health", h.health)
		r.Get("/version", h.getServerVersion)
		if h.metrics != nil {
			r.Method(http.MethodGet, "/metrics", h.metrics.Handler())
		}
	})

	router.Route("/sync", func(r chi.Router) {
		r.Use(h.auth)

		r.Group(func(r chi.Router) {
			r.Use(withGZip)
			if h.cfg.RequestTimeout > 0 {
				r.Use(middleware.Timeout(h.cfg.RequestTimeout))
			}
			r.Post("/upload", h.upload)
			r.Get("/download", h.download)
		})

		// long-lived, so no request timeout
		if h.hub != nil {
			r.Get("/watch", h.watch)
		}
	})

	router.NotFound(notFound)
	router.MethodNotAllowed(CheckHTTPMethod(router))

	return router
}
