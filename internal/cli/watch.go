package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/spf13/cobra"

	"github.com/MKhiriev/go-delta-sync/internal/adapter"
	"github.com/MKhiriev/go-delta-sync/internal/logger"
	"github.com/MKhiriev/go-delta-sync/internal/workers"
	"github.com/MKhiriev/go-delta-sync/models"
)

const (
	minReconnectWait = time.Second
	maxReconnectWait = time.Minute
)

func newWatchCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Sync periodically and on every change pushed by the gateway",
		Long: `Sync periodically and on every change pushed by the gateway.

Runs until interrupted. The first round trip starts immediately; later ones
follow the configured interval or a change notification, whichever comes
first.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runWithApp(cmd.Context(), opts, func(ctx context.Context, a *app) error {
				clock := clockwork.NewRealClock()
				job := workers.NewSyncJob(a.engine, clock, a.cfg.Interval, a.log)
				notifications := newChangeWatcher(a.server, job.Kick, clock, cmd.OutOrStdout(), a.log)

				job.Kick()
				workers.NewWorkers(job, notifications).Run(ctx)
				return nil
			})
		},
	}
}

// changeWatcher keeps a websocket subscription open and calls onChange for
// every pushed event. Dropped connections are redialed with exponential
// backoff; a rejected token stops the watcher.
type changeWatcher struct {
	server   adapter.ServerAdapter
	onChange func()
	clock    clockwork.Clock

	outMu sync.Mutex
	out   io.Writer

	logger *logger.Logger
}

func newChangeWatcher(server adapter.ServerAdapter, onChange func(), clock clockwork.Clock, out io.Writer, logger *logger.Logger) *changeWatcher {
	return &changeWatcher{
		server:   server,
		onChange: onChange,
		clock:    clock,
		out:      out,
		logger:   logger,
	}
}

// Run implements [workers.Worker].
func (w *changeWatcher) Run(ctx context.Context) {
	wait := minReconnectWait

	for ctx.Err() == nil {
		err := w.server.Watch(ctx, func(ev models.WatchEvent) {
			wait = minReconnectWait
			w.print("change at %s (%d stored)\n", ev.Cursor, ev.Stored)
			w.onChange()
		})
		if ctx.Err() != nil {
			return
		}
		if errors.Is(err, adapter.ErrUnauthorized) {
			w.logger.Error().Err(err).Str("func", "changeWatcher.Run").Msg("watch rejected, notifications disabled")
			w.print("change notifications disabled: %v\n", err)
			return
		}

		w.logger.Debug().Err(err).Str("func", "changeWatcher.Run").Dur("wait", wait).Msg("watch connection lost")
		select {
		case <-ctx.Done():
			return
		case <-w.clock.After(wait):
		}
		wait = min(2*wait, maxReconnectWait)
	}
}

func (w *changeWatcher) print(format string, args ...any) {
	w.outMu.Lock()
	defer w.outMu.Unlock()
	fmt.Fprintf(w.out, format, args...)
}
