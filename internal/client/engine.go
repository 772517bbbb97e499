// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package client

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/MKhiriev/go-delta-sync/internal/adapter"
	"github.com/MKhiriev/go-delta-sync/internal/crypto"
	"github.com/MKhiriev/go-delta-sync/internal/envelope"
	"github.com/MKhiriev/go-delta-sync/internal/logger"
	"github.com/MKhiriev/go-delta-sync/models"
)

const (
	defaultTimeout = 15 * time.Second

	summaryInProgress = "Sync in progress."
)

// Engine drives the client side of the sync protocol.
//
// State moves idle → syncing → ready|error → syncing … A failed round trip
// keeps the stored cursor and the outbox as they were, so the next trigger
// resends the same deltas.
//
// The download cursor only moves on TriggerDownload. An upload records the
// cursor the server minted for it against the uploaded entities, so deltas
// other devices stored in between are still downloaded.
type Engine struct {
	server adapter.ServerAdapter
	local  LocalStore
	codec  *envelope.Codec
	sealer crypto.Sealer

	userID  string
	timeout time.Duration

	busy atomic.Bool

	mu      sync.RWMutex
	state   string
	lastEnv *models.Envelope
	lastErr error
	cursor  string

	logger *logger.Logger
}

// EngineConfig holds the per-user settings of an [Engine].
type EngineConfig struct {
	// UserID keys the cursor rows of the local store.
	UserID string
	// Timeout bounds one round trip, retries included.
	Timeout time.Duration
}

// NewEngine returns an idle engine.
func NewEngine(
	server adapter.ServerAdapter,
	local LocalStore,
	codec *envelope.Codec,
	sealer crypto.Sealer,
	cfg EngineConfig,
	logger *logger.Logger,
) *Engine {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}

	return &Engine{
		server:  server,
		local:   local,
		codec:   codec,
		sealer:  sealer,
		userID:  cfg.UserID,
		timeout: cfg.Timeout,
		state:   models.StatusIdle,
		logger:  logger,
	}
}

// Stage stamps deltas with their checksums and queues them for the next
// sync.
func (e *Engine) Stage(ctx context.Context, deltas ...models.Delta) error {
	stamped := make([]models.Delta, 0, len(deltas))
	for _, d := range deltas {
		s, err := e.codec.Stamp(d)
		if err != nil {
			return err
		}
		stamped = append(stamped, s)
	}

	if err := e.local.Stage(ctx, stamped...); err != nil {
		return fmt.Errorf("%w: %w", ErrLocalStore, err)
	}
	return nil
}

// TriggerSync uploads the outbox in one sealed envelope.
//
// It returns ErrSyncInProgress without any I/O when another round trip is
// running. The envelope carries the download cursor. On success the
// server's nextCursor is recorded for the uploaded entities, the
// acknowledged deltas leave the outbox and the reported conflicts are
// recorded locally.
func (e *Engine) TriggerSync(ctx context.Context) (models.SyncResult, error) {
	if !e.busy.CompareAndSwap(false, true) {
		return models.SyncResult{}, ErrSyncInProgress
	}
	defer e.busy.Store(false)

	e.begin()
	log := e.logger.GetChildLogger()

	stored, err := e.local.LoadCursor(ctx, e.userID)
	if err != nil {
		return models.SyncResult{}, e.fail(ErrSyncFailed, fmt.Errorf("%w: %w", ErrLocalStore, err))
	}
	cursor := stored
	if cursor == "" {
		cursor = envelope.DefaultCursor
	}

	pending, err := e.local.Pending(ctx)
	if err != nil {
		return models.SyncResult{}, e.fail(ErrSyncFailed, fmt.Errorf("%w: %w", ErrLocalStore, err))
	}

	env, err := e.codec.BuildEnvelope(cursor, pending)
	if err != nil {
		return models.SyncResult{}, e.fail(ErrSyncFailed, err)
	}

	sealed, err := e.sealer.Seal(env, e.server.Token())
	if err != nil {
		return models.SyncResult{}, e.fail(ErrSyncFailed, err)
	}

	reqCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	resp, err := e.server.Upload(reqCtx, sealed)
	if err != nil {
		log.Warn().Err(err).
			Str("func", "Engine.TriggerSync").
			Int("pending", len(pending)).
			Msg("upload failed, outbox kept")
		return models.SyncResult{}, e.fail(ErrSyncFailed, err)
	}

	if err = e.local.MarkUploaded(ctx, e.userID, resp.NextCursor, entityNames(sealed.Deltas)); err != nil {
		return models.SyncResult{}, e.fail(ErrSyncFailed, fmt.Errorf("%w: %w", ErrLocalStore, err))
	}
	if err = e.local.Acknowledge(ctx, sealed.Deltas); err != nil {
		return models.SyncResult{}, e.fail(ErrSyncFailed, fmt.Errorf("%w: %w", ErrLocalStore, err))
	}
	if len(resp.Conflicts) > 0 {
		if err = e.local.RecordConflicts(ctx, resp.Conflicts); err != nil {
			return models.SyncResult{}, e.fail(ErrSyncFailed, fmt.Errorf("%w: %w", ErrLocalStore, err))
		}
	}

	e.succeed(&sealed, stored)

	log.Info().
		Str("func", "Engine.TriggerSync").
		Int("sent", len(sealed.Deltas)).
		Int("stored", resp.Stored).
		Int("conflicts", len(resp.Conflicts)).
		Str("cursor", resp.NextCursor).
		Msg("sync finished")

	return models.SyncResult{
		Envelope:  sealed,
		Stored:    resp.Stored,
		Conflicts: resp.Conflicts,
	}, nil
}

// TriggerDownload pulls the deltas stored since the local cursor and merges
// them into the replica.
//
// Deltas whose checksum does not verify are not merged; they are reported
// as conflicts next to the ones the server sent.
func (e *Engine) TriggerDownload(ctx context.Context) (models.DownloadResult, error) {
	if !e.busy.CompareAndSwap(false, true) {
		return models.DownloadResult{}, ErrSyncInProgress
	}
	defer e.busy.Store(false)

	e.begin()
	log := e.logger.GetChildLogger()

	cursor, err := e.local.LoadCursor(ctx, e.userID)
	if err != nil {
		return models.DownloadResult{}, e.fail(ErrDownloadFailed, fmt.Errorf("%w: %w", ErrLocalStore, err))
	}

	reqCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	resp, err := e.server.Download(reqCtx, cursor)
	if err != nil {
		log.Warn().Err(err).Str("func", "Engine.TriggerDownload").Msg("download failed")
		return models.DownloadResult{}, e.fail(ErrDownloadFailed, err)
	}

	valid := make([]models.Delta, 0, len(resp.Deltas))
	conflicts := make([]models.Conflict, 0, len(resp.Conflicts))
	for _, d := range resp.Deltas {
		if err = e.codec.ValidateDelta(d); err != nil {
			log.Warn().Err(err).
				Str("func", "Engine.TriggerDownload").
				Str("entity", d.Entity).
				Msg("discarding delta that failed validation")
			conflicts = append(conflicts, models.Conflict{
				Entity: d.Entity,
				ID:     d.EntityID(),
				Reason: downloadRejection(err),
			})
			continue
		}
		valid = append(valid, d)
	}
	conflicts = append(conflicts, resp.Conflicts...)

	applied, err := e.local.Merge(ctx, valid)
	if err != nil {
		return models.DownloadResult{}, e.fail(ErrDownloadFailed, fmt.Errorf("%w: %w", ErrLocalStore, err))
	}
	if len(conflicts) > 0 {
		if err = e.local.RecordConflicts(ctx, conflicts); err != nil {
			return models.DownloadResult{}, e.fail(ErrDownloadFailed, fmt.Errorf("%w: %w", ErrLocalStore, err))
		}
	}
	if err = e.local.SaveCursor(ctx, e.userID, resp.NextCursor); err != nil {
		return models.DownloadResult{}, e.fail(ErrDownloadFailed, fmt.Errorf("%w: %w", ErrLocalStore, err))
	}

	e.succeed(&models.Envelope{Cursor: resp.NextCursor, Deltas: valid}, resp.NextCursor)

	log.Info().
		Str("func", "Engine.TriggerDownload").
		Int("received", len(resp.Deltas)).
		Int("applied", applied).
		Int("conflicts", len(conflicts)).
		Str("cursor", resp.NextCursor).
		Msg("download finished")

	return models.DownloadResult{
		Cursor:    resp.NextCursor,
		Deltas:    valid,
		Conflicts: conflicts,
		Applied:   applied,
	}, nil
}

// Status reports the engine state. Before any round trip it is idle with a
// "not run" summary; after a failure the summary is the error message.
func (e *Engine) Status() models.SyncStatus {
	e.mu.RLock()
	defer e.mu.RUnlock()

	switch e.state {
	case models.StatusSyncing:
		return models.SyncStatus{Status: models.StatusSyncing, Summary: summaryInProgress, Cursor: e.cursor}
	case models.StatusError:
		msg := e.lastErr.Error()
		return models.SyncStatus{Status: models.StatusError, Summary: msg, Cursor: e.cursor, Error: msg}
	}

	st := envelope.Summarize(e.lastEnv)
	if e.cursor != "" {
		st.Cursor = e.cursor
	}
	return st
}

// LoadState restores the download cursor from the local store so that
// Status reports it before the first round trip of this process.
func (e *Engine) LoadState(ctx context.Context) error {
	cursor, err := e.local.LoadCursor(ctx, e.userID)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrLocalStore, err)
	}

	e.mu.Lock()
	e.cursor = cursor
	e.mu.Unlock()
	return nil
}

func (e *Engine) begin() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.state = models.StatusSyncing
	e.lastErr = nil
}

func (e *Engine) fail(sentinel, err error) error {
	wrapped := fmt.Errorf("%w: %w", sentinel, err)

	e.mu.Lock()
	defer e.mu.Unlock()
	e.state = models.StatusError
	e.lastErr = wrapped
	return wrapped
}

func (e *Engine) succeed(env *models.Envelope, cursor string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.state = models.StatusReady
	e.lastEnv = env
	e.cursor = cursor
}

func entityNames(deltas []models.Delta) []string {
	seen := make(map[string]struct{}, len(deltas))
	names := make([]string, 0, len(deltas))
	for _, d := range deltas {
		if _, ok := seen[d.Entity]; ok {
			continue
		}
		seen[d.Entity] = struct{}{}
		names = append(names, d.Entity)
	}
	return names
}

func downloadRejection(err error) string {
	if errors.Is(err, envelope.ErrIntegrity) {
		return models.ReasonChecksumMismatch
	}
	return models.ReasonInvalidDelta
}
