package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/MKhiriev/go-delta-sync/internal/config"
	"github.com/MKhiriev/go-delta-sync/internal/cursor"
	"github.com/MKhiriev/go-delta-sync/internal/logger"
)

// Storages groups the server storage layer.
type Storages struct {
	// DeltaStore serves every sync request.
	DeltaStore DeltaStore

	// Fallback is the same store as DeltaStore when PostgreSQL is
	// configured, nil in pure memory mode. The probe worker drives its
	// recovery.
	Fallback *FallbackStore

	db *DB
}

// NewStorages builds the delta store described by cfg.
//
// Without a DSN the store is pure memory. With a DSN it is a
// [FallbackStore] over PostgreSQL; if the database cannot be reached at
// startup the server starts degraded instead of failing.
func NewStorages(ctx context.Context, cfg config.Storage, minter *cursor.Minter, log *logger.Logger) (*Storages, error) {
	memory := NewMemoryStore(minter)

	if cfg.DB.DSN == "" {
		log.Info().Str("func", "NewStorages").Msg("no database configured, keeping deltas in memory")
		return &Storages{DeltaStore: memory}, nil
	}

	db, err := NewConnectPostgres(ctx, cfg.DB, log)
	if err != nil && !errors.Is(err, ErrBackendUnavailable) {
		return nil, fmt.Errorf("postgres connection error: %w", err)
	}

	pg := NewPostgresStore(db, minter)
	fallback := NewFallbackStore(pg, memory, log)

	if err == nil {
		err = pg.Prepare(ctx)
	}
	switch {
	case err == nil:
	case errors.Is(err, ErrBackendUnavailable):
		fallback.Degrade(err)
	default:
		db.Close()
		return nil, fmt.Errorf("preparing delta store: %w", err)
	}

	return &Storages{DeltaStore: fallback, Fallback: fallback, db: db}, nil
}

// Close releases the database pool, if any.
func (s *Storages) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}
