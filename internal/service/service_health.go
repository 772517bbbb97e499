package service

import (
	"context"

	"github.com/MKhiriev/go-delta-sync/internal/store"
	"github.com/MKhiriev/go-delta-sync/models"
)

const statusOK = "ok"

type healthService struct {
	store store.DeltaStore
}

// NewHealthService reports the mode of deltaStore.
func NewHealthService(deltaStore store.DeltaStore) HealthService {
	return &healthService{store: deltaStore}
}

// Health always answers "ok" while the process serves requests; a lost
// database shows up as mode "degraded".
func (h *healthService) Health(context.Context) models.HealthResponse {
	return models.HealthResponse{Status: statusOK, Mode: h.store.Mode()}
}
