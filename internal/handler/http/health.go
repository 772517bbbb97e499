package http

import (
	"net/http"

	"github.com/MKhiriev/go-delta-sync/internal/logger"
	"github.com/MKhiriev/go-delta-sync/internal/utils"
)

// health reports liveness and the active storage mode. It answers 200 even
// when degraded; the mode field tells the difference.
func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	resp := h.services.HealthService.Health(r.Context())
	if _, err := utils.WriteJSON(w, resp, http.StatusOK); err != nil {
		logger.FromRequest(r).Err(err).Str("func", "Handler.health").Send()
	}
}
