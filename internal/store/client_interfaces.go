package store

import (
	"context"

	"github.com/MKhiriev/go-delta-sync/models"
)

// StreamEntity is the sync_state entity_name holding the download cursor of
// the whole delta stream. Only a download moves it. Rows for concrete
// entities record the last upload that carried them.
const StreamEntity = "*"

// ClientStore is the local replica of the sync client: the outbox of
// pending deltas, the merged replica, the conflict log and the sync_state
// cursor table.
type ClientStore interface {
	// Stage queues deltas for upload. The outbox keeps one delta per
	// (entity, id); a staged delta replaces the queued one unless the queued
	// version is greater.
	Stage(ctx context.Context, deltas ...models.Delta) error
	// Pending returns the queued deltas in staging order.
	Pending(ctx context.Context) ([]models.Delta, error)
	// Acknowledge removes the sent deltas whose queued version is still the
	// sent one. Deltas re-staged since the send stay queued.
	Acknowledge(ctx context.Context, sent []models.Delta) error

	// Merge applies downloaded deltas to the replica and returns how many
	// replaced or created a record. Records at a greater or equal version
	// are kept.
	Merge(ctx context.Context, deltas []models.Delta) (int, error)
	// Replica returns every merged record.
	Replica(ctx context.Context) ([]models.Delta, error)

	// RecordConflicts appends server-reported conflicts to the local log.
	RecordConflicts(ctx context.Context, conflicts []models.Conflict) error
	// Conflicts returns up to limit most recent conflicts, newest first.
	Conflicts(ctx context.Context, limit int) ([]models.Conflict, error)

	// LoadCursor returns the download cursor of userID, or "" before the
	// first successful download.
	LoadCursor(ctx context.Context, userID string) (string, error)
	// SaveCursor stores the download cursor of userID.
	SaveCursor(ctx context.Context, userID, cursor string) error
	// MarkUploaded stamps the rows of the uploaded entities with the cursor
	// the server minted for the upload. The download cursor is untouched.
	MarkUploaded(ctx context.Context, userID, cursor string, entities []string) error
	// States returns the sync_state rows of userID.
	States(ctx context.Context, userID string) ([]models.SyncState, error)

	Close() error
}
