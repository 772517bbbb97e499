// Package workers provides the background workers of the server and the
// client, and a Workers aggregate that runs them together.
package workers

import (
	"context"

	"github.com/MKhiriev/go-delta-sync/models"
)

// Worker is the interface that must be implemented by any background worker.
//
// Run blocks until ctx is done.
type Worker interface {
	Run(ctx context.Context)
}

// Recoverer is a store that can fall back to a degraded mode and try to
// leave it again.
type Recoverer interface {
	Degraded() bool
	Recover(ctx context.Context) error
}

// Syncer runs one sync round trip in each direction.
type Syncer interface {
	TriggerSync(ctx context.Context) (models.SyncResult, error)
	TriggerDownload(ctx context.Context) (models.DownloadResult, error)
}
