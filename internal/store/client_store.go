// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/MKhiriev/go-delta-sync/internal/logger"
	"github.com/MKhiriev/go-delta-sync/internal/resolver"
	"github.com/MKhiriev/go-delta-sync/models"
)

// sqliteClientStore is the SQLite-backed [ClientStore].
type sqliteClientStore struct {
	*DB
	now func() time.Time
}

// NewClientStore opens (creating when needed) and migrates the replica at
// path.
func NewClientStore(ctx context.Context, path string, log *logger.Logger) (ClientStore, error) {
	log.Debug().Str("func", "NewClientStore").Str("path", path).Msg("opening local replica")

	db, err := NewConnectSQLite(ctx, path, log)
	if err != nil {
		return nil, fmt.Errorf("sqlite connection error: %w", err)
	}

	if err = db.MigrateClient(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migration failed: %w", err)
	}

	return &sqliteClientStore{DB: db, now: time.Now}, nil
}

func (s *sqliteClientStore) Stage(ctx context.Context, deltas ...models.Delta) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		for _, d := range deltas {
			id := d.EntityID()

			var queued string
			err := tx.QueryRowContext(ctx, selectOutboxVersion, d.Entity, id).Scan(&queued)
			switch {
			case errors.Is(err, sql.ErrNoRows):
			case err != nil:
				return fmt.Errorf("%w: %w", ErrExecutingQuery, err)
			case resolver.CompareVersions(queued, d.Version) > 0:
				continue
			}

			if _, err = tx.ExecContext(ctx, upsertOutbox, d.Entity, id, d.Version, d.Checksum, payloadText(d.Payload)); err != nil {
				return fmt.Errorf("%w: %w", ErrExecutingStatement, err)
			}
		}
		return nil
	})
}

func (s *sqliteClientStore) Pending(ctx context.Context) ([]models.Delta, error) {
	return s.queryDeltas(ctx, selectPending)
}

func (s *sqliteClientStore) Acknowledge(ctx context.Context, sent []models.Delta) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		for _, d := range sent {
			if _, err := tx.ExecContext(ctx, deleteAcknowledged, d.Entity, d.EntityID(), d.Version); err != nil {
				return fmt.Errorf("%w: %w", ErrExecutingStatement, err)
			}
		}
		return nil
	})
}

func (s *sqliteClientStore) Merge(ctx context.Context, deltas []models.Delta) (int, error) {
	applied := 0

	err := s.inTx(ctx, func(tx *sql.Tx) error {
		applied = 0
		for _, d := range deltas {
			var (
				current models.Delta
				payload string
			)
			err := tx.QueryRowContext(ctx, selectReplicaRecord, d.Entity, d.EntityID()).
				Scan(&current.Entity, &current.Version, &current.Checksum, &payload)

			var stored *models.Delta
			switch {
			case errors.Is(err, sql.ErrNoRows):
			case err != nil:
				return fmt.Errorf("%w: %w", ErrExecutingQuery, err)
			default:
				current.Payload = json.RawMessage(payload)
				stored = &current
			}

			if !resolver.Decide(stored, d).Accepted {
				continue
			}

			if _, err = tx.ExecContext(ctx, upsertReplica, d.Entity, d.EntityID(), d.Version, d.Checksum, payloadText(d.Payload)); err != nil {
				return fmt.Errorf("%w: %w", ErrExecutingStatement, err)
			}
			applied++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	return applied, nil
}

func (s *sqliteClientStore) Replica(ctx context.Context) ([]models.Delta, error) {
	return s.queryDeltas(ctx, selectReplica)
}

func (s *sqliteClientStore) RecordConflicts(ctx context.Context, conflicts []models.Conflict) error {
	if len(conflicts) == 0 {
		return nil
	}

	return s.inTx(ctx, func(tx *sql.Tx) error {
		for _, c := range conflicts {
			if _, err := tx.ExecContext(ctx, insertConflict, c.Entity, c.ID, c.Reason); err != nil {
				return fmt.Errorf("%w: %w", ErrExecutingStatement, err)
			}
		}
		return nil
	})
}

func (s *sqliteClientStore) Conflicts(ctx context.Context, limit int) ([]models.Conflict, error) {
	rows, err := s.QueryContext(ctx, selectConflicts, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrExecutingQuery, err)
	}
	defer rows.Close()

	conflicts := make([]models.Conflict, 0)
	for rows.Next() {
		var c models.Conflict
		if err = rows.Scan(&c.Entity, &c.ID, &c.Reason); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrScanningRows, err)
		}
		conflicts = append(conflicts, c)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrScanningRows, err)
	}
	return conflicts, nil
}

func (s *sqliteClientStore) LoadCursor(ctx context.Context, userID string) (string, error) {
	var c string
	err := s.QueryRowContext(ctx, selectStreamCursor, userID, StreamEntity).Scan(&c)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrExecutingQuery, err)
	}
	return c, nil
}

func (s *sqliteClientStore) SaveCursor(ctx context.Context, userID, cursor string) error {
	if _, err := s.ExecContext(ctx, upsertSyncState, stateID(userID, StreamEntity), userID, StreamEntity, nil, cursor); err != nil {
		return fmt.Errorf("%w: %w", ErrExecutingStatement, err)
	}
	return nil
}

func (s *sqliteClientStore) MarkUploaded(ctx context.Context, userID, cursor string, entities []string) error {
	if len(entities) == 0 {
		return nil
	}
	changedAt := s.now().UTC().Format(time.RFC3339Nano)

	return s.inTx(ctx, func(tx *sql.Tx) error {
		for _, entity := range entities {
			if _, err := tx.ExecContext(ctx, upsertSyncState, stateID(userID, entity), userID, entity, changedAt, cursor); err != nil {
				return fmt.Errorf("%w: %w", ErrExecutingStatement, err)
			}
		}
		return nil
	})
}

func (s *sqliteClientStore) States(ctx context.Context, userID string) ([]models.SyncState, error) {
	rows, err := s.QueryContext(ctx, selectSyncStates, userID)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrExecutingQuery, err)
	}
	defer rows.Close()

	states := make([]models.SyncState, 0)
	for rows.Next() {
		var st models.SyncState
		if err = rows.Scan(&st.UserID, &st.EntityName, &st.LastLocalChange, &st.LastRemoteCursor, &st.UpdatedAt); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrScanningRows, err)
		}
		states = append(states, st)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrScanningRows, err)
	}
	return states, nil
}

func (s *sqliteClientStore) queryDeltas(ctx context.Context, query string) ([]models.Delta, error) {
	rows, err := s.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrExecutingQuery, err)
	}
	defer rows.Close()

	deltas := make([]models.Delta, 0)
	for rows.Next() {
		var (
			d       models.Delta
			payload string
		)
		if err = rows.Scan(&d.Entity, &d.Version, &d.Checksum, &payload); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrScanningRows, err)
		}
		d.Payload = json.RawMessage(payload)
		deltas = append(deltas, d)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrScanningRows, err)
	}
	return deltas, nil
}

func (s *sqliteClientStore) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrBeginningTransaction, err)
	}
	defer tx.Rollback()

	if err = fn(tx); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("%w: %w", ErrCommitingTransaction, err)
	}
	return nil
}

// stateID mirrors the "<entity>-<user>" row ids of the sync_state table.
func stateID(userID, entity string) string {
	return entity + "-" + userID
}
