package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MKhiriev/go-delta-sync/internal/logger"
	"github.com/MKhiriev/go-delta-sync/models"
)

func TestClientStore_SQLite(t *testing.T) {
	runClientStoreContract(t, func(t *testing.T) ClientStore {
		s, err := NewClientStore(context.Background(), ":memory:", logger.Nop())
		require.NoError(t, err)
		t.Cleanup(func() { s.Close() })
		return s
	})
}

func TestClientStore_Memory(t *testing.T) {
	runClientStoreContract(t, func(t *testing.T) ClientStore {
		return NewMemoryClientStore()
	})
}

func TestClientStore_SQLiteFileSurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "sync.db")

	s, err := NewClientStore(ctx, path, logger.Nop())
	require.NoError(t, err)
	require.NoError(t, s.Stage(ctx, testDelta("goal", "g1", "v1", "a")))
	require.NoError(t, s.SaveCursor(ctx, "alice", "2026-03-01T10:00:00.000000000Z"))
	require.NoError(t, s.Close())

	s, err = NewClientStore(ctx, path, logger.Nop())
	require.NoError(t, err)
	defer s.Close()

	pending, err := s.Pending(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "g1", pending[0].EntityID())

	c, err := s.LoadCursor(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "2026-03-01T10:00:00.000000000Z", c)
}

func TestNewClientStorages_MemoryPath(t *testing.T) {
	s, err := NewClientStorages(context.Background(), ":memory:", logger.Nop())
	require.NoError(t, err)
	assert.IsType(t, &MemoryClientStore{}, s)
}

func runClientStoreContract(t *testing.T, newStore func(t *testing.T) ClientStore) {
	t.Helper()
	ctx := context.Background()

	t.Run("stage keeps one delta per key", func(t *testing.T) {
		s := newStore(t)

		require.NoError(t, s.Stage(ctx,
			testDelta("goal", "g1", "v1", "a"),
			testDelta("budget", "b1", "v1", "a"),
			testDelta("goal", "g1", "v2", "b"),
		))

		pending, err := s.Pending(ctx)
		require.NoError(t, err)
		require.Len(t, pending, 2)

		byKey := make(map[models.DeltaKey]string)
		for _, d := range pending {
			byKey[d.Key()] = d.Version
		}
		assert.Equal(t, "v2", byKey[models.DeltaKey{Entity: "goal", ID: "g1"}])
		assert.Equal(t, "v1", byKey[models.DeltaKey{Entity: "budget", ID: "b1"}])
	})

	t.Run("stage ignores an older version", func(t *testing.T) {
		s := newStore(t)

		require.NoError(t, s.Stage(ctx, testDelta("goal", "g1", "v10", "a")))
		require.NoError(t, s.Stage(ctx, testDelta("goal", "g1", "v9", "b")))

		pending, err := s.Pending(ctx)
		require.NoError(t, err)
		require.Len(t, pending, 1)
		assert.Equal(t, "v10", pending[0].Version)
	})

	t.Run("pending preserves staging order", func(t *testing.T) {
		s := newStore(t)

		require.NoError(t, s.Stage(ctx,
			testDelta("goal", "g2", "v1", "a"),
			testDelta("goal", "g1", "v1", "a"),
			testDelta("budget", "b1", "v1", "a"),
		))

		pending, err := s.Pending(ctx)
		require.NoError(t, err)
		require.Len(t, pending, 3)
		assert.Equal(t, "g2", pending[0].EntityID())
		assert.Equal(t, "g1", pending[1].EntityID())
		assert.Equal(t, "b1", pending[2].EntityID())
	})

	t.Run("acknowledge keeps re-staged deltas", func(t *testing.T) {
		s := newStore(t)

		sent := []models.Delta{
			testDelta("goal", "g1", "v1", "a"),
			testDelta("goal", "g2", "v1", "a"),
		}
		require.NoError(t, s.Stage(ctx, sent...))
		require.NoError(t, s.Stage(ctx, testDelta("goal", "g2", "v2", "b")))

		require.NoError(t, s.Acknowledge(ctx, sent))

		pending, err := s.Pending(ctx)
		require.NoError(t, err)
		require.Len(t, pending, 1)
		assert.Equal(t, "g2", pending[0].EntityID())
		assert.Equal(t, "v2", pending[0].Version)
	})

	t.Run("merge applies newer versions only", func(t *testing.T) {
		s := newStore(t)

		applied, err := s.Merge(ctx, []models.Delta{
			testDelta("goal", "g1", "v2", "a"),
			testDelta("goal", "g2", "v1", "a"),
		})
		require.NoError(t, err)
		assert.Equal(t, 2, applied)

		applied, err = s.Merge(ctx, []models.Delta{
			testDelta("goal", "g1", "v1", "old"),
			testDelta("goal", "g1", "v2", "a"),
			testDelta("goal", "g2", "v3", "c"),
		})
		require.NoError(t, err)
		assert.Equal(t, 1, applied)

		replica, err := s.Replica(ctx)
		require.NoError(t, err)
		require.Len(t, replica, 2)
		assert.Equal(t, "g1", replica[0].EntityID())
		assert.Equal(t, "v2", replica[0].Version)
		assert.Equal(t, "v3", replica[1].Version)
		assert.JSONEq(t, string(testDelta("goal", "g2", "v3", "c").Payload), string(replica[1].Payload))
	})

	t.Run("conflicts newest first", func(t *testing.T) {
		s := newStore(t)

		require.NoError(t, s.RecordConflicts(ctx, nil))
		require.NoError(t, s.RecordConflicts(ctx, []models.Conflict{
			{Entity: "goal", ID: "g1", Reason: models.ReasonStaleVersion},
			{Entity: "goal", ID: "g2", Reason: models.ReasonAmbiguousWrite},
		}))
		require.NoError(t, s.RecordConflicts(ctx, []models.Conflict{
			{Entity: "budget", ID: "b1", Reason: models.ReasonChecksumMismatch},
		}))

		got, err := s.Conflicts(ctx, 2)
		require.NoError(t, err)
		assert.Equal(t, []models.Conflict{
			{Entity: "budget", ID: "b1", Reason: models.ReasonChecksumMismatch},
			{Entity: "goal", ID: "g2", Reason: models.ReasonAmbiguousWrite},
		}, got)
	})

	t.Run("cursor per user", func(t *testing.T) {
		s := newStore(t)

		c, err := s.LoadCursor(ctx, "alice")
		require.NoError(t, err)
		assert.Empty(t, c)

		require.NoError(t, s.SaveCursor(ctx, "alice", "2026-03-01T10:00:00.000000000Z"))
		require.NoError(t, s.SaveCursor(ctx, "alice", "2026-03-01T10:00:01.000000000Z"))
		require.NoError(t, s.SaveCursor(ctx, "bob", "2026-03-01T09:00:00.000000000Z"))
		require.NoError(t, s.MarkUploaded(ctx, "alice", "2026-03-01T10:00:00.500000000Z", []string{"goal"}))

		c, err = s.LoadCursor(ctx, "alice")
		require.NoError(t, err)
		assert.Equal(t, "2026-03-01T10:00:01.000000000Z", c)

		c, err = s.LoadCursor(ctx, "bob")
		require.NoError(t, err)
		assert.Equal(t, "2026-03-01T09:00:00.000000000Z", c)

		states, err := s.States(ctx, "alice")
		require.NoError(t, err)
		require.Len(t, states, 2)
		assert.Equal(t, StreamEntity, states[0].EntityName)
		assert.Equal(t, "goal", states[1].EntityName)
		assert.Equal(t, "2026-03-01T10:00:00.500000000Z", states[1].LastRemoteCursor)
		assert.NotEmpty(t, states[1].LastLocalChange)
	})

	t.Run("upload leaves the download cursor alone", func(t *testing.T) {
		s := newStore(t)

		require.NoError(t, s.SaveCursor(ctx, "alice", "2026-03-01T10:00:00.000000000Z"))
		require.NoError(t, s.MarkUploaded(ctx, "alice", "2026-03-01T11:00:00.000000000Z", []string{"transaction", "budget"}))
		require.NoError(t, s.MarkUploaded(ctx, "alice", "2026-03-01T12:00:00.000000000Z", nil))

		c, err := s.LoadCursor(ctx, "alice")
		require.NoError(t, err)
		assert.Equal(t, "2026-03-01T10:00:00.000000000Z", c)

		states, err := s.States(ctx, "alice")
		require.NoError(t, err)
		require.Len(t, states, 3)
		assert.Equal(t, StreamEntity, states[0].EntityName)
		assert.Equal(t, "budget", states[1].EntityName)
		assert.Equal(t, "2026-03-01T11:00:00.000000000Z", states[1].LastRemoteCursor)
		assert.Equal(t, "transaction", states[2].EntityName)
	})
}
