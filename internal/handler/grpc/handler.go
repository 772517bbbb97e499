package grpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/MKhiriev/go-delta-sync/internal/logger"
	"github.com/MKhiriev/go-delta-sync/internal/service"
	"github.com/MKhiriev/go-delta-sync/internal/store"
)

// ServiceName is the grpc.health.v1 service name reported for the sync
// gateway. The empty name reports the same status for whole-server checks.
const ServiceName = "deltasync.Sync"

// Handler is the root gRPC transport handler.
//
// It serves the standard health protocol. The status follows the storage
// mode: SERVING while deltas reach PostgreSQL or a pure memory store,
// NOT_SERVING while the server runs degraded.
type Handler struct {
	services *service.Services

	health *health.Server

	logger *logger.Logger
}

// NewHandler constructs a [Handler] whose initial status is taken from the
// health service.
func NewHandler(services *service.Services, logger *logger.Logger) *Handler {
	h := &Handler{
		services: services,
		health:   health.NewServer(),
		logger:   logger,
	}

	if services != nil && services.HealthService != nil {
		h.SetMode(services.HealthService.Health(context.Background()).Mode)
	} else {
		h.setStatus(healthpb.HealthCheckResponse_SERVING)
	}

	logger.Debug().Msg("gRPC handler created")
	return h
}

// Register attaches the health service to s.
func (h *Handler) Register(s *grpc.Server) {
	healthpb.RegisterHealthServer(s, h.health)
}

// SetMode translates a storage mode into a health status. It is meant to be
// registered with [store.FallbackStore.OnModeChange].
func (h *Handler) SetMode(mode string) {
	status := healthpb.HealthCheckResponse_SERVING
	if mode == store.ModeDegraded {
		status = healthpb.HealthCheckResponse_NOT_SERVING
	}

	h.logger.Info().
		Str("func", "Handler.SetMode").
		Str("mode", mode).
		Str("status", status.String()).
		Msg("gRPC health status changed")

	h.setStatus(status)
}

// Shutdown flips every service to NOT_SERVING and ignores later updates.
func (h *Handler) Shutdown() {
	h.health.Shutdown()
}

func (h *Handler) setStatus(status healthpb.HealthCheckResponse_ServingStatus) {
	h.health.SetServingStatus("", status)
	h.health.SetServingStatus(ServiceName, status)
}
