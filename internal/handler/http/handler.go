package http

import (
	"github.com/MKhiriev/go-delta-sync/internal/config"
	"github.com/MKhiriev/go-delta-sync/internal/logger"
	"github.com/MKhiriev/go-delta-sync/internal/metrics"
	"github.com/MKhiriev/go-delta-sync/internal/notify"
	"github.com/MKhiriev/go-delta-sync/internal/service"
)

type Handler struct {
	services *service.Services

	// hub feeds /sync/watch; nil disables the route
	hub *notify.Hub
	// metrics backs /metrics and the request counters; may be nil
	metrics *metrics.Metrics

	cfg config.Server

	logger *logger.Logger
}

func NewHandler(services *service.Services, hub *notify.Hub, m *metrics.Metrics, cfg config.Server, logger *logger.Logger) *Handler {
	logger.Info().Msg("http handler created")
	return &Handler{
		services: services,
		hub:      hub,
		metrics:  m,
		cfg:      cfg,
		logger:   logger,
	}
}
