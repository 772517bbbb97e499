package store

import (
	"context"
	"sort"
	"sync"

	"github.com/MKhiriev/go-delta-sync/internal/cursor"
	"github.com/MKhiriev/go-delta-sync/internal/resolver"
	"github.com/MKhiriev/go-delta-sync/models"
)

// MemoryStore is the in-process [DeltaStore]. Every owner has its own shard
// guarded by its own mutex, so uploads of different owners never contend.
type MemoryStore struct {
	mu     sync.Mutex
	shards map[string]*ownerShard
	minter *cursor.Minter
}

type ownerShard struct {
	mu        sync.Mutex
	records   map[models.DeltaKey]models.StoredDelta
	conflicts []models.RecordedConflict
}

// NewMemoryStore returns an empty store minting cursors with minter.
func NewMemoryStore(minter *cursor.Minter) *MemoryStore {
	return &MemoryStore{
		shards: make(map[string]*ownerShard),
		minter: minter,
	}
}

func (m *MemoryStore) shard(owner string) *ownerShard {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.shards[owner]
	if !ok {
		s = &ownerShard{records: make(map[models.DeltaKey]models.StoredDelta)}
		m.shards[owner] = s
	}
	return s
}

// Upload implements [DeltaStore].
func (m *MemoryStore) Upload(ctx context.Context, owner, since string, deltas []models.Delta) (UploadResult, error) {
	if owner == "" {
		return UploadResult{}, ErrEmptyOwner
	}
	if err := ctx.Err(); err != nil {
		return UploadResult{}, err
	}

	s := m.shard(owner)
	s.mu.Lock()
	defer s.mu.Unlock()

	result := UploadResult{
		Cursor:    m.minter.Next(since),
		Conflicts: make([]models.Conflict, 0),
	}

	for _, d := range deltas {
		key := d.Key()

		var stored *models.Delta
		if rec, ok := s.records[key]; ok {
			stored = &rec.Delta
		}

		outcome := resolver.Decide(stored, d)
		if !outcome.Accepted {
			c := outcome.ToConflict(d)
			result.Conflicts = append(result.Conflicts, c)
			s.conflicts = append(s.conflicts, models.RecordedConflict{Conflict: c, Cursor: result.Cursor})
			continue
		}

		s.records[key] = models.StoredDelta{Delta: d, Cursor: result.Cursor}
		result.Stored++
	}

	return result, nil
}

// Download implements [DeltaStore].
func (m *MemoryStore) Download(ctx context.Context, owner, since string) (DownloadResult, error) {
	if owner == "" {
		return DownloadResult{}, ErrEmptyOwner
	}
	if err := ctx.Err(); err != nil {
		return DownloadResult{}, err
	}

	s := m.shard(owner)
	s.mu.Lock()
	defer s.mu.Unlock()

	result := DownloadResult{
		Deltas:    make([]models.StoredDelta, 0, len(s.records)),
		Conflicts: make([]models.RecordedConflict, 0),
	}

	for _, rec := range s.records {
		if cursor.AtOrAfter(rec.Cursor, since) {
			result.Deltas = append(result.Deltas, rec)
		}
	}
	sortStored(result.Deltas)

	for _, c := range s.conflicts {
		if cursor.AtOrAfter(c.Cursor, since) {
			result.Conflicts = append(result.Conflicts, c)
		}
	}

	result.Cursor = m.minter.Next(since)
	return result, nil
}

// Mode implements [DeltaStore].
func (m *MemoryStore) Mode() string {
	return ModeMemory
}

// Ping implements [DeltaStore]. Memory is always reachable.
func (m *MemoryStore) Ping(context.Context) error {
	return nil
}

// Drain removes and returns every record held for every owner, in cursor
// order per owner. Conflicts are dropped. The fallback store uses it to
// replay deltas accepted while degraded.
func (m *MemoryStore) Drain() map[string][]models.StoredDelta {
	m.mu.Lock()
	shards := m.shards
	m.shards = make(map[string]*ownerShard)
	m.mu.Unlock()

	drained := make(map[string][]models.StoredDelta, len(shards))
	for owner, s := range shards {
		s.mu.Lock()
		records := make([]models.StoredDelta, 0, len(s.records))
		for _, rec := range s.records {
			records = append(records, rec)
		}
		s.mu.Unlock()

		if len(records) == 0 {
			continue
		}
		sortStored(records)
		drained[owner] = records
	}

	return drained
}

// Len returns the number of records held for owner.
func (m *MemoryStore) Len(owner string) int {
	s := m.shard(owner)
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

func sortStored(records []models.StoredDelta) {
	sort.Slice(records, func(i, j int) bool {
		a, b := records[i], records[j]
		if a.Cursor != b.Cursor {
			return a.Cursor < b.Cursor
		}
		if a.Entity != b.Entity {
			return a.Entity < b.Entity
		}
		return a.EntityID() < b.EntityID()
	})
}
