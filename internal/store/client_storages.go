package store

import (
	"context"

	"github.com/MKhiriev/go-delta-sync/internal/logger"
)

// NewClientStorages opens the client replica. ":memory:" keeps it in
// process memory without SQLite.
func NewClientStorages(ctx context.Context, path string, log *logger.Logger) (ClientStore, error) {
	if path == ":memory:" {
		log.Info().Str("func", "NewClientStorages").Msg("using in-memory replica")
		return NewMemoryClientStore(), nil
	}

	return NewClientStore(ctx, path, log)
}
