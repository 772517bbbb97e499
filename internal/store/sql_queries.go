package store

import (
	"encoding/json"

	sq "github.com/Masterminds/squirrel"

	"github.com/MKhiriev/go-delta-sync/internal/cursor"
	"github.com/MKhiriev/go-delta-sync/models"
)

const (
	lockOwner = `SELECT pg_advisory_xact_lock(hashtext($1));`

	selectMaxCursor = `SELECT COALESCE(MAX(c), '') FROM (
		SELECT MAX(cursor) AS c FROM sync_deltas
		UNION ALL
		SELECT MAX(cursor) AS c FROM sync_conflicts
	) AS cursors;`

	upsertDeltaSuffix = `ON CONFLICT (owner, entity, entity_id) DO UPDATE SET
		version = EXCLUDED.version,
		checksum = EXCLUDED.checksum,
		payload = EXCLUDED.payload,
		cursor = EXCLUDED.cursor,
		updated_at = NOW()`
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// buildSelectForUpdateQuery locks the stored rows of owner matching keys.
func buildSelectForUpdateQuery(owner string, keys []models.DeltaKey) (string, []any, error) {
	match := make(sq.Or, 0, len(keys))
	for _, k := range keys {
		match = append(match, sq.And{
			sq.Eq{"entity": k.Entity},
			sq.Eq{"entity_id": k.ID},
		})
	}

	return psql.
		Select("entity", "entity_id", "version", "checksum", "payload", "cursor").
		From("sync_deltas").
		Where(sq.Eq{"owner": owner}).
		Where(match).
		Suffix("FOR UPDATE").
		ToSql()
}

// buildUpsertDeltasQuery inserts or replaces one row per accepted record.
// records must not contain two entries with the same key.
func buildUpsertDeltasQuery(owner string, records []models.StoredDelta) (string, []any, error) {
	q := psql.
		Insert("sync_deltas").
		Columns("owner", "entity", "entity_id", "version", "checksum", "payload", "cursor")

	for _, r := range records {
		q = q.Values(owner, r.Entity, r.EntityID(), r.Version, r.Checksum, payloadText(r.Payload), r.Cursor)
	}

	return q.Suffix(upsertDeltaSuffix).ToSql()
}

// buildInsertConflictsQuery appends rejected deltas to the conflict log.
func buildInsertConflictsQuery(owner string, conflicts []models.RecordedConflict) (string, []any, error) {
	q := psql.
		Insert("sync_conflicts").
		Columns("owner", "entity", "entity_id", "reason", "cursor")

	for _, c := range conflicts {
		q = q.Values(owner, c.Entity, c.ID, c.Reason, c.Cursor)
	}

	return q.ToSql()
}

// buildSelectDeltasSinceQuery lists the records of owner at or after since.
// A foreign since selects everything.
func buildSelectDeltasSinceQuery(owner, since string) (string, []any, error) {
	q := psql.
		Select("entity", "entity_id", "version", "checksum", "payload", "cursor").
		From("sync_deltas").
		Where(sq.Eq{"owner": owner})

	if cursor.IsMinted(since) {
		q = q.Where(sq.GtOrEq{"cursor": since})
	}

	return q.OrderBy("cursor", "entity", "entity_id").ToSql()
}

// buildSelectConflictsSinceQuery lists the conflicts of owner at or after
// since, oldest first.
func buildSelectConflictsSinceQuery(owner, since string) (string, []any, error) {
	q := psql.
		Select("entity", "entity_id", "reason", "cursor").
		From("sync_conflicts").
		Where(sq.Eq{"owner": owner})

	if cursor.IsMinted(since) {
		q = q.Where(sq.GtOrEq{"cursor": since})
	}

	return q.OrderBy("id").ToSql()
}

// payloadText returns the payload as stored in the json column. A missing
// payload is stored as JSON null.
func payloadText(p json.RawMessage) string {
	if len(p) == 0 {
		return "null"
	}
	return string(p)
}
