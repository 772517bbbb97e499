package store

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/MKhiriev/go-delta-sync/internal/logger"
	"github.com/MKhiriev/go-delta-sync/migrations"
)

// ErrorClassificator decides whether a failed database operation may succeed
// when attempted again.
type ErrorClassificator interface {
	Classify(err error) ErrorClassification
}

// DB wraps a database handle with its error classifier and logger.
type DB struct {
	*sql.DB
	errorClassificator ErrorClassificator
	logger             *logger.Logger
}

// Migrate applies the server schema.
func (db *DB) Migrate() error {
	return migrations.Migrate(db.DB)
}

// MigrateClient applies the client replica schema.
func (db *DB) MigrateClient() error {
	return migrations.MigrateClient(db.DB)
}

// wrap annotates err with sentinel and, when the backend looks unreachable,
// with [ErrBackendUnavailable].
func (db *DB) wrap(sentinel, err error) error {
	if isUnavailable(err) {
		return fmt.Errorf("%w: %w: %w", ErrBackendUnavailable, sentinel, err)
	}
	return fmt.Errorf("%w: %w", sentinel, err)
}

// retryable reports whether a failed transaction may be run again, e.g.
// after a deadlock or serialization failure.
func (db *DB) retryable(err error) bool {
	if db.errorClassificator == nil || errors.Is(err, ErrBackendUnavailable) {
		return false
	}
	return db.errorClassificator.Classify(err) == Retryable
}
