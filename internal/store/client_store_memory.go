package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/MKhiriev/go-delta-sync/internal/resolver"
	"github.com/MKhiriev/go-delta-sync/models"
)

// MemoryClientStore is a process-local [ClientStore]. Nothing survives a
// restart; it backs tests and throwaway sessions.
type MemoryClientStore struct {
	mu        sync.Mutex
	seq       int
	outbox    map[models.DeltaKey]queued
	replica   map[models.DeltaKey]models.Delta
	conflicts []models.Conflict
	states    map[string]map[string]models.SyncState
}

type queued struct {
	delta models.Delta
	seq   int
}

// NewMemoryClientStore returns an empty store.
func NewMemoryClientStore() *MemoryClientStore {
	return &MemoryClientStore{
		outbox:  make(map[models.DeltaKey]queued),
		replica: make(map[models.DeltaKey]models.Delta),
		states:  make(map[string]map[string]models.SyncState),
	}
}

func (m *MemoryClientStore) Stage(_ context.Context, deltas ...models.Delta) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, d := range deltas {
		key := d.Key()
		if q, ok := m.outbox[key]; ok && resolver.CompareVersions(q.delta.Version, d.Version) > 0 {
			continue
		}
		m.seq++
		m.outbox[key] = queued{delta: d, seq: m.seq}
	}
	return nil
}

func (m *MemoryClientStore) Pending(context.Context) ([]models.Delta, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	items := make([]queued, 0, len(m.outbox))
	for _, q := range m.outbox {
		items = append(items, q)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].seq < items[j].seq })

	deltas := make([]models.Delta, len(items))
	for i, q := range items {
		deltas[i] = q.delta
	}
	return deltas, nil
}

func (m *MemoryClientStore) Acknowledge(_ context.Context, sent []models.Delta) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, d := range sent {
		key := d.Key()
		if q, ok := m.outbox[key]; ok && q.delta.Version == d.Version {
			delete(m.outbox, key)
		}
	}
	return nil
}

func (m *MemoryClientStore) Merge(_ context.Context, deltas []models.Delta) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	applied := 0
	for _, d := range deltas {
		key := d.Key()

		var stored *models.Delta
		if cur, ok := m.replica[key]; ok {
			stored = &cur
		}
		if !resolver.Decide(stored, d).Accepted {
			continue
		}

		m.replica[key] = d
		applied++
	}
	return applied, nil
}

func (m *MemoryClientStore) Replica(context.Context) ([]models.Delta, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	deltas := make([]models.Delta, 0, len(m.replica))
	for _, d := range m.replica {
		deltas = append(deltas, d)
	}
	sort.Slice(deltas, func(i, j int) bool {
		if deltas[i].Entity != deltas[j].Entity {
			return deltas[i].Entity < deltas[j].Entity
		}
		return deltas[i].EntityID() < deltas[j].EntityID()
	})
	return deltas, nil
}

func (m *MemoryClientStore) RecordConflicts(_ context.Context, conflicts []models.Conflict) error {
	m.mu.Lock()
	m.conflicts = append(m.conflicts, conflicts...)
	m.mu.Unlock()
	return nil
}

func (m *MemoryClientStore) Conflicts(_ context.Context, limit int) ([]models.Conflict, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]models.Conflict, 0, limit)
	for i := len(m.conflicts) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, m.conflicts[i])
	}
	return out, nil
}

func (m *MemoryClientStore) LoadCursor(_ context.Context, userID string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.states[userID][StreamEntity].LastRemoteCursor, nil
}

func (m *MemoryClientStore) SaveCursor(_ context.Context, userID, cursor string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	rows := m.userStates(userID)
	stream := rows[StreamEntity]
	stream.UserID, stream.EntityName, stream.LastRemoteCursor, stream.UpdatedAt = userID, StreamEntity, cursor, time.Now().UTC()
	rows[StreamEntity] = stream
	return nil
}

func (m *MemoryClientStore) MarkUploaded(_ context.Context, userID, cursor string, entities []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	rows := m.userStates(userID)
	now := time.Now().UTC()
	for _, entity := range entities {
		rows[entity] = models.SyncState{
			UserID:           userID,
			EntityName:       entity,
			LastLocalChange:  now.Format(time.RFC3339Nano),
			LastRemoteCursor: cursor,
			UpdatedAt:        now,
		}
	}
	return nil
}

func (m *MemoryClientStore) States(_ context.Context, userID string) ([]models.SyncState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	states := make([]models.SyncState, 0, len(m.states[userID]))
	for _, st := range m.states[userID] {
		states = append(states, st)
	}
	sort.Slice(states, func(i, j int) bool { return states[i].EntityName < states[j].EntityName })
	return states, nil
}

func (m *MemoryClientStore) userStates(userID string) map[string]models.SyncState {
	rows, ok := m.states[userID]
	if !ok {
		rows = make(map[string]models.SyncState)
		m.states[userID] = rows
	}
	return rows
}

func (m *MemoryClientStore) Close() error {
	return nil
}
