package workers

import (
	"context"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/MKhiriev/go-delta-sync/internal/logger"
)

// BackendProbe periodically tries to bring a degraded store back to its
// durable backend.
type BackendProbe struct {
	target   Recoverer
	clock    clockwork.Clock
	interval time.Duration
	logger   *logger.Logger
}

// NewBackendProbe returns a probe that checks target every interval.
func NewBackendProbe(target Recoverer, clock clockwork.Clock, interval time.Duration, logger *logger.Logger) *BackendProbe {
	return &BackendProbe{
		target:   target,
		clock:    clock,
		interval: interval,
		logger:   logger,
	}
}

// Run implements [Worker].
func (p *BackendProbe) Run(ctx context.Context) {
	ticker := p.clock.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			p.probe(ctx)
		}
	}
}

func (p *BackendProbe) probe(ctx context.Context) {
	if !p.target.Degraded() {
		return
	}

	if err := p.target.Recover(ctx); err != nil {
		p.logger.Debug().Err(err).Str("func", "BackendProbe.probe").Msg("durable store still unavailable")
	}
}
