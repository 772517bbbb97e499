// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/MKhiriev/go-delta-sync/internal/cursor"
	"github.com/MKhiriev/go-delta-sync/internal/logger"
	"github.com/MKhiriev/go-delta-sync/internal/resolver"
	"github.com/MKhiriev/go-delta-sync/models"
)

// PostgresStore is the PostgreSQL-backed [DeltaStore].
//
// Every Upload and Download runs in one transaction that first takes
// pg_advisory_xact_lock(hashtext(owner)), so requests of one owner are
// serialized across connections while other owners proceed in parallel.
// Stored rows are additionally locked with SELECT ... FOR UPDATE before the
// resolver runs in Go.
type PostgresStore struct {
	*DB
	minter *cursor.Minter

	prepareMu sync.Mutex
	prepared  atomic.Bool
}

// NewPostgresStore constructs a [DeltaStore] over db. The schema is migrated
// and the minter seeded lazily by [PostgresStore.Prepare], so the store can
// be built while the database is still unreachable.
func NewPostgresStore(db *DB, minter *cursor.Minter) *PostgresStore {
	return &PostgresStore{DB: db, minter: minter}
}

// Prepare migrates the schema and seeds the minter with the highest cursor
// already persisted, so cursors stay monotonic across restarts. It runs
// once; later calls return immediately.
func (p *PostgresStore) Prepare(ctx context.Context) error {
	if p.prepared.Load() {
		return nil
	}

	p.prepareMu.Lock()
	defer p.prepareMu.Unlock()
	if p.prepared.Load() {
		return nil
	}

	if err := p.Migrate(); err != nil {
		return p.wrap(ErrExecutingStatement, err)
	}

	var last string
	if err := p.QueryRowContext(ctx, selectMaxCursor).Scan(&last); err != nil {
		return p.wrap(ErrExecutingQuery, err)
	}
	p.minter.Observe(last)

	p.prepared.Store(true)
	p.logger.Info().
		Str("func", "PostgresStore.Prepare").
		Str("last_cursor", last).
		Msg("delta store ready")
	return nil
}

// Upload implements [DeltaStore].
func (p *PostgresStore) Upload(ctx context.Context, owner, since string, deltas []models.Delta) (UploadResult, error) {
	if owner == "" {
		return UploadResult{}, ErrEmptyOwner
	}
	if err := p.Prepare(ctx); err != nil {
		return UploadResult{}, err
	}
	log := logger.FromContext(ctx)

	var result UploadResult

	err := p.inOwnerTx(ctx, owner, func(tx *sql.Tx) error {
		result = UploadResult{Conflicts: make([]models.Conflict, 0)}

		current, err := p.lockRecords(ctx, tx, owner, deltas)
		if err != nil {
			return err
		}

		result.Cursor = p.minter.Next(since)

		accepted := make([]models.StoredDelta, 0, len(deltas))
		position := make(map[models.DeltaKey]int, len(deltas))
		recorded := make([]models.RecordedConflict, 0)

		for _, d := range deltas {
			key := d.Key()

			var stored *models.Delta
			if rec, ok := current[key]; ok {
				stored = &rec.Delta
			}

			outcome := resolver.Decide(stored, d)
			if !outcome.Accepted {
				c := outcome.ToConflict(d)
				result.Conflicts = append(result.Conflicts, c)
				recorded = append(recorded, models.RecordedConflict{Conflict: c, Cursor: result.Cursor})
				continue
			}

			rec := models.StoredDelta{Delta: d, Cursor: result.Cursor}
			current[key] = rec
			result.Stored++

			// one row per key; a later accepted item of the batch replaces
			// the earlier one
			if i, ok := position[key]; ok {
				accepted[i] = rec
			} else {
				position[key] = len(accepted)
				accepted = append(accepted, rec)
			}
		}

		if len(accepted) > 0 {
			query, args, err := buildUpsertDeltasQuery(owner, accepted)
			if err != nil {
				return fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
			}
			if _, err = tx.ExecContext(ctx, query, args...); err != nil {
				return p.wrap(ErrExecutingStatement, err)
			}
		}

		if len(recorded) > 0 {
			query, args, err := buildInsertConflictsQuery(owner, recorded)
			if err != nil {
				return fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
			}
			if _, err = tx.ExecContext(ctx, query, args...); err != nil {
				return p.wrap(ErrExecutingStatement, err)
			}
		}

		return nil
	})
	if err != nil {
		log.Err(err).
			Str("func", "PostgresStore.Upload").
			Str("owner", owner).
			Int("deltas", len(deltas)).
			Msg("upload transaction failed")
		return UploadResult{}, err
	}

	return result, nil
}

// lockRecords selects and locks the stored rows for the keys of deltas.
func (p *PostgresStore) lockRecords(ctx context.Context, tx *sql.Tx, owner string, deltas []models.Delta) (map[models.DeltaKey]models.StoredDelta, error) {
	current := make(map[models.DeltaKey]models.StoredDelta, len(deltas))
	if len(deltas) == 0 {
		return current, nil
	}

	seen := make(map[models.DeltaKey]struct{}, len(deltas))
	keys := make([]models.DeltaKey, 0, len(deltas))
	for _, d := range deltas {
		k := d.Key()
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		keys = append(keys, k)
	}

	query, args, err := buildSelectForUpdateQuery(owner, keys)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
	}

	records, err := p.queryRecords(ctx, tx, query, args)
	if err != nil {
		return nil, err
	}
	for _, rec := range records {
		current[rec.Key()] = rec
	}

	return current, nil
}

// Download implements [DeltaStore].
func (p *PostgresStore) Download(ctx context.Context, owner, since string) (DownloadResult, error) {
	if owner == "" {
		return DownloadResult{}, ErrEmptyOwner
	}
	if err := p.Prepare(ctx); err != nil {
		return DownloadResult{}, err
	}
	log := logger.FromContext(ctx)

	var result DownloadResult

	err := p.inOwnerTx(ctx, owner, func(tx *sql.Tx) error {
		query, args, err := buildSelectDeltasSinceQuery(owner, since)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
		}
		if result.Deltas, err = p.queryRecords(ctx, tx, query, args); err != nil {
			return err
		}

		query, args, err = buildSelectConflictsSinceQuery(owner, since)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
		}
		if result.Conflicts, err = p.queryConflicts(ctx, tx, query, args); err != nil {
			return err
		}

		// minted while the owner lock is held: any later upload of this
		// owner gets a greater cursor
		result.Cursor = p.minter.Next(since)
		return nil
	})
	if err != nil {
		log.Err(err).
			Str("func", "PostgresStore.Download").
			Str("owner", owner).
			Str("since", since).
			Msg("download transaction failed")
		return DownloadResult{}, err
	}

	return result, nil
}

// Mode implements [DeltaStore].
func (p *PostgresStore) Mode() string {
	return ModePostgres
}

// Ping implements [DeltaStore]. A reachable but unprepared database is
// prepared on the way.
func (p *PostgresStore) Ping(ctx context.Context) error {
	if err := p.PingContext(ctx); err != nil {
		return fmt.Errorf("%w: %w", ErrBackendUnavailable, err)
	}
	return p.Prepare(ctx)
}

// maxTxAttempts bounds the re-runs of a transaction aborted by a deadlock or
// serialization failure.
const maxTxAttempts = 3

// inOwnerTx runs fn in a transaction holding the advisory lock of owner.
// Transactions aborted with a retryable error are run again; fn must
// therefore reset any state it fills.
func (p *PostgresStore) inOwnerTx(ctx context.Context, owner string, fn func(tx *sql.Tx) error) error {
	var err error
	for attempt := 1; attempt <= maxTxAttempts; attempt++ {
		if err = p.runOwnerTx(ctx, owner, fn); err == nil || !p.retryable(err) {
			return err
		}
		p.logger.Warn().
			Err(err).
			Str("func", "PostgresStore.inOwnerTx").
			Int("attempt", attempt).
			Msg("retrying aborted transaction")
	}
	return err
}

func (p *PostgresStore) runOwnerTx(ctx context.Context, owner string, fn func(tx *sql.Tx) error) error {
	tx, err := p.BeginTx(ctx, nil)
	if err != nil {
		return p.wrap(ErrBeginningTransaction, err)
	}
	defer tx.Rollback()

	if _, err = tx.ExecContext(ctx, lockOwner, owner); err != nil {
		return p.wrap(ErrExecutingStatement, err)
	}

	if err = fn(tx); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return p.wrap(ErrCommitingTransaction, err)
	}
	return nil
}

func (p *PostgresStore) queryRecords(ctx context.Context, tx *sql.Tx, query string, args []any) ([]models.StoredDelta, error) {
	rows, err := tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, p.wrap(ErrExecutingQuery, err)
	}
	defer rows.Close()

	records := make([]models.StoredDelta, 0, 16)
	for rows.Next() {
		var (
			rec      models.StoredDelta
			entityID string
			payload  []byte
		)
		if err = rows.Scan(&rec.Entity, &entityID, &rec.Version, &rec.Checksum, &payload, &rec.Cursor); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrScanningRows, err)
		}
		rec.Payload = json.RawMessage(payload)
		records = append(records, rec)
	}

	if err = rows.Err(); err != nil {
		return nil, p.wrap(ErrScanningRows, err)
	}
	return records, nil
}

func (p *PostgresStore) queryConflicts(ctx context.Context, tx *sql.Tx, query string, args []any) ([]models.RecordedConflict, error) {
	rows, err := tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, p.wrap(ErrExecutingQuery, err)
	}
	defer rows.Close()

	conflicts := make([]models.RecordedConflict, 0)
	for rows.Next() {
		var c models.RecordedConflict
		if err = rows.Scan(&c.Entity, &c.ID, &c.Reason, &c.Cursor); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrScanningRows, err)
		}
		conflicts = append(conflicts, c)
	}

	if err = rows.Err(); err != nil {
		return nil, p.wrap(ErrScanningRows, err)
	}
	return conflicts, nil
}
