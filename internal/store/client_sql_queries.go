package store

const (
	selectOutboxVersion = `SELECT version FROM outbox WHERE entity = ? AND entity_id = ?;`

	upsertOutbox = `INSERT INTO outbox (entity, entity_id, version, checksum, payload, staged_at)
		VALUES (?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT (entity, entity_id) DO UPDATE SET
			version = excluded.version,
			checksum = excluded.checksum,
			payload = excluded.payload,
			staged_at = excluded.staged_at;`

	selectPending = `SELECT entity, version, checksum, payload FROM outbox ORDER BY staged_at, rowid;`

	deleteAcknowledged = `DELETE FROM outbox WHERE entity = ? AND entity_id = ? AND version = ?;`

	selectReplicaRecord = `SELECT entity, version, checksum, payload FROM replica WHERE entity = ? AND entity_id = ?;`

	upsertReplica = `INSERT INTO replica (entity, entity_id, version, checksum, payload, applied_at)
		VALUES (?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT (entity, entity_id) DO UPDATE SET
			version = excluded.version,
			checksum = excluded.checksum,
			payload = excluded.payload,
			applied_at = excluded.applied_at;`

	selectReplica = `SELECT entity, version, checksum, payload FROM replica ORDER BY entity, entity_id;`

	insertConflict = `INSERT INTO conflicts (entity, entity_id, reason) VALUES (?, ?, ?);`

	selectConflicts = `SELECT entity, entity_id, reason FROM conflicts ORDER BY id DESC LIMIT ?;`

	selectStreamCursor = `SELECT COALESCE(last_remote_cursor, '') FROM sync_state WHERE user_id = ? AND entity_name = ?;`

	upsertSyncState = `INSERT INTO sync_state (id, user_id, entity_name, last_local_change, last_remote_cursor, updated_at)
		VALUES (?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT (user_id, entity_name) DO UPDATE SET
			last_local_change = COALESCE(excluded.last_local_change, sync_state.last_local_change),
			last_remote_cursor = excluded.last_remote_cursor,
			updated_at = CURRENT_TIMESTAMP;`

	selectSyncStates = `SELECT user_id, entity_name, COALESCE(last_local_change, ''), COALESCE(last_remote_cursor, ''), updated_at
		FROM sync_state WHERE user_id = ? ORDER BY entity_name;`
)
