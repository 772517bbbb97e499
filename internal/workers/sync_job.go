package workers

import (
	"context"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/MKhiriev/go-delta-sync/internal/logger"
)

// defaultSyncInterval is used when the job is built with a non-positive
// interval.
const defaultSyncInterval = 5 * time.Minute

// SyncJob uploads the outbox and downloads remote changes on a ticker. It
// also runs a round trip whenever Kick is called, e.g. on a change
// notification from the server.
type SyncJob struct {
	syncer   Syncer
	clock    clockwork.Clock
	interval time.Duration
	kick     chan struct{}
	logger   *logger.Logger
}

// NewSyncJob returns an idle job. The job does nothing until Run.
func NewSyncJob(syncer Syncer, clock clockwork.Clock, interval time.Duration, logger *logger.Logger) *SyncJob {
	if interval <= 0 {
		interval = defaultSyncInterval
	}

	return &SyncJob{
		syncer:   syncer,
		clock:    clock,
		interval: interval,
		kick:     make(chan struct{}, 1),
		logger:   logger,
	}
}

// Kick requests a round trip without waiting for the next tick. Kicks
// arriving while one is pending are merged.
func (j *SyncJob) Kick() {
	select {
	case j.kick <- struct{}{}:
	default:
	}
}

// Run implements [Worker].
func (j *SyncJob) Run(ctx context.Context) {
	ticker := j.clock.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
		case <-j.kick:
		}
		j.roundTrip(ctx)
	}
}

// roundTrip uploads first so the download already includes our own
// accepted deltas. A failed upload does not prevent the download.
func (j *SyncJob) roundTrip(ctx context.Context) {
	if _, err := j.syncer.TriggerSync(ctx); err != nil && ctx.Err() == nil {
		j.logger.Warn().Err(err).Str("func", "SyncJob.roundTrip").Msg("periodic sync failed")
	}

	if _, err := j.syncer.TriggerDownload(ctx); err != nil && ctx.Err() == nil {
		j.logger.Warn().Err(err).Str("func", "SyncJob.roundTrip").Msg("periodic download failed")
	}
}
