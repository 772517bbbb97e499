package store

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/MKhiriev/go-delta-sync/internal/logger"
	"github.com/MKhiriev/go-delta-sync/models"
)

// FallbackStore serves from a durable [DeltaStore] and switches to an
// in-memory store when the durable one reports [ErrBackendUnavailable].
// While degraded, Mode returns "degraded" and deltas are accepted into
// memory; [FallbackStore.Recover] replays them into the durable store once
// it answers again.
//
// Degraded uploads are resolved against memory only, so a delta older than
// an unreachable durable record can be accepted; the replay resolves it
// again and records the conflict on the durable side. Replayed deltas get
// cursors minted at replay time. A degraded Download answers with the since
// it was given as its cursor, so no client moves past durable records it
// could not be served.
type FallbackStore struct {
	// mu is held shared by requests and exclusively by Recover, so no
	// request observes a half-replayed memory store.
	mu       sync.RWMutex
	durable  DeltaStore
	memory   *MemoryStore
	degraded atomic.Bool
	logger   *logger.Logger

	listenerMu sync.Mutex
	listeners  []func(mode string)
}

// NewFallbackStore wraps durable with memory as the degraded backend.
func NewFallbackStore(durable DeltaStore, memory *MemoryStore, log *logger.Logger) *FallbackStore {
	return &FallbackStore{
		durable: durable,
		memory:  memory,
		logger:  log,
	}
}

// Upload implements [DeltaStore].
func (f *FallbackStore) Upload(ctx context.Context, owner, since string, deltas []models.Delta) (UploadResult, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if !f.degraded.Load() {
		res, err := f.durable.Upload(ctx, owner, since, deltas)
		if !errors.Is(err, ErrBackendUnavailable) {
			return res, err
		}
		f.Degrade(err)
	}

	return f.memory.Upload(ctx, owner, since, deltas)
}

// Download implements [DeltaStore].
func (f *FallbackStore) Download(ctx context.Context, owner, since string) (DownloadResult, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if !f.degraded.Load() {
		res, err := f.durable.Download(ctx, owner, since)
		if !errors.Is(err, ErrBackendUnavailable) {
			return res, err
		}
		f.Degrade(err)
	}

	res, err := f.memory.Download(ctx, owner, since)
	if err != nil {
		return res, err
	}
	// memory lacks the durable records the caller has not seen yet, so the
	// caller stays at since and gets them on its first download after
	// Recover
	res.Cursor = since
	return res, nil
}

// Mode implements [DeltaStore].
func (f *FallbackStore) Mode() string {
	if f.degraded.Load() {
		return ModeDegraded
	}
	return f.durable.Mode()
}

// Ping implements [DeltaStore]. A degraded store still serves requests, so
// Ping only fails when memory does.
func (f *FallbackStore) Ping(ctx context.Context) error {
	return f.memory.Ping(ctx)
}

// Degraded reports whether requests are currently served from memory.
func (f *FallbackStore) Degraded() bool {
	return f.degraded.Load()
}

// Degrade switches to memory. cause is logged once per transition.
func (f *FallbackStore) Degrade(cause error) {
	if !f.degraded.CompareAndSwap(false, true) {
		return
	}

	f.logger.Warn().
		Err(cause).
		Str("func", "FallbackStore.Degrade").
		Msg("durable store unavailable, serving from memory")
	f.notify(ModeDegraded)
}

// Recover pings the durable store and, when it answers, replays every delta
// accepted while degraded, then switches back. It is a no-op when not
// degraded. On failure the store stays degraded and keeps the deltas that
// were not replayed.
func (f *FallbackStore) Recover(ctx context.Context) error {
	if !f.degraded.Load() {
		return nil
	}

	if err := f.durable.Ping(ctx); err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	// another Recover may have finished while we waited
	if !f.degraded.Load() {
		return nil
	}

	drained := f.memory.Drain()

	var replayed, conflicts int
	for owner, records := range drained {
		deltas := make([]models.Delta, len(records))
		for i, rec := range records {
			deltas[i] = rec.Delta
		}

		res, err := f.durable.Upload(ctx, owner, "", deltas)
		if err != nil {
			f.restore(context.WithoutCancel(ctx), drained)
			return fmt.Errorf("replay deltas of %q: %w", owner, err)
		}

		replayed += res.Stored
		conflicts += len(res.Conflicts)
		delete(drained, owner)
	}

	f.degraded.Store(false)
	f.logger.Info().
		Str("func", "FallbackStore.Recover").
		Int("replayed", replayed).
		Int("conflicts", conflicts).
		Msg("durable store recovered")
	f.notify(f.durable.Mode())

	return nil
}

// restore puts back the records of owners that were not replayed yet. A
// failed replay transaction is rolled back, so its owner is among them.
func (f *FallbackStore) restore(ctx context.Context, drained map[string][]models.StoredDelta) {
	for owner, records := range drained {
		deltas := make([]models.Delta, len(records))
		for i, rec := range records {
			deltas[i] = rec.Delta
		}
		if _, err := f.memory.Upload(ctx, owner, "", deltas); err != nil {
			f.logger.Err(err).
				Str("func", "FallbackStore.restore").
				Str("owner", owner).
				Msg("failed to keep unreplayed deltas")
		}
	}
}

// OnModeChange registers fn to be called with the new mode after every
// switch between durable and degraded.
func (f *FallbackStore) OnModeChange(fn func(mode string)) {
	f.listenerMu.Lock()
	f.listeners = append(f.listeners, fn)
	f.listenerMu.Unlock()
}

func (f *FallbackStore) notify(mode string) {
	f.listenerMu.Lock()
	listeners := append([]func(string){}, f.listeners...)
	f.listenerMu.Unlock()

	for _, fn := range listeners {
		fn(mode)
	}
}
