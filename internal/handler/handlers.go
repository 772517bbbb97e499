package handler

import (
	"github.com/MKhiriev/go-delta-sync/internal/config"
	"github.com/MKhiriev/go-delta-sync/internal/handler/grpc"
	"github.com/MKhiriev/go-delta-sync/internal/handler/http"
	"github.com/MKhiriev/go-delta-sync/internal/logger"
	"github.com/MKhiriev/go-delta-sync/internal/metrics"
	"github.com/MKhiriev/go-delta-sync/internal/notify"
	"github.com/MKhiriev/go-delta-sync/internal/service"
)

type Handlers struct {
	HTTP *http.Handler
	GRPC *grpc.Handler
}

func NewHandlers(services *service.Services, hub *notify.Hub, m *metrics.Metrics, cfg config.Server, logger *logger.Logger) (*Handlers, error) {
	logger.Info().Msg("creating new handlers...")

	handlers := &Handlers{}

	if cfg.Port != 0 {
		handlers.HTTP = http.NewHandler(services, hub, m, cfg, logger)
	}
	if cfg.GRPCAddress != "" {
		handlers.GRPC = grpc.NewHandler(services, logger)
	}

	if handlers.HTTP == nil && handlers.GRPC == nil {
		return nil, errNoHandlersAreCreated
	}

	return handlers, nil
}

// OnModeChange propagates a storage mode switch to the transports that
// report it.
func (h *Handlers) OnModeChange(mode string) {
	if h.GRPC != nil {
		h.GRPC.SetMode(mode)
	}
}
