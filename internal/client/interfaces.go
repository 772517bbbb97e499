package client

import (
	"context"

	"github.com/MKhiriev/go-delta-sync/models"
)

// Outbox queues local mutations until the server acknowledges them.
type Outbox interface {
	Stage(ctx context.Context, deltas ...models.Delta) error
	Pending(ctx context.Context) ([]models.Delta, error)
	Acknowledge(ctx context.Context, sent []models.Delta) error
}

// Merger applies remote deltas and server-reported conflicts to the local
// replica.
type Merger interface {
	Merge(ctx context.Context, deltas []models.Delta) (int, error)
	RecordConflicts(ctx context.Context, conflicts []models.Conflict) error
}

// CursorStore persists the download cursor per user and the cursor of the
// last upload per entity.
type CursorStore interface {
	LoadCursor(ctx context.Context, userID string) (string, error)
	SaveCursor(ctx context.Context, userID, cursor string) error
	MarkUploaded(ctx context.Context, userID, cursor string, entities []string) error
}

// LocalStore is the client-side storage the engine runs on. The SQLite and
// memory client stores implement it.
type LocalStore interface {
	Outbox
	Merger
	CursorStore
}
