// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package client

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/MKhiriev/go-delta-sync/internal/adapter"
	"github.com/MKhiriev/go-delta-sync/internal/crypto"
	"github.com/MKhiriev/go-delta-sync/internal/envelope"
	"github.com/MKhiriev/go-delta-sync/internal/logger"
	"github.com/MKhiriev/go-delta-sync/internal/mock"
	"github.com/MKhiriev/go-delta-sync/internal/store"
	"github.com/MKhiriev/go-delta-sync/models"
)

const testUser = "local"

var testCodec = envelope.NewCodec("sync-local")

func newTestEngine(t *testing.T, timeout time.Duration) (*Engine, *mock.MockServerAdapter, *store.MemoryClientStore) {
	t.Helper()
	ctrl := gomock.NewController(t)

	server := mock.NewMockServerAdapter(ctrl)
	local := store.NewMemoryClientStore()
	e := NewEngine(server, local, testCodec, crypto.NewHMACSealer(), EngineConfig{UserID: testUser, Timeout: timeout}, logger.Nop())
	return e, server, local
}

func delta(entity, id, version string) models.Delta {
	return models.Delta{
		Entity:  entity,
		Version: version,
		Payload: json.RawMessage(`{"id":"` + id + `","v":"` + version + `"}`),
	}
}

func stamped(t *testing.T, d models.Delta) models.Delta {
	t.Helper()
	s, err := testCodec.Stamp(d)
	require.NoError(t, err)
	return s
}

// ── Status ───────────────────────────────────────────────────────────────────

func TestEngine_StatusBeforeFirstSync(t *testing.T) {
	e, _, _ := newTestEngine(t, time.Second)

	st := e.Status()

	assert.Equal(t, models.StatusIdle, st.Status)
	assert.Contains(t, st.Summary, "not run")
}

func TestEngine_LoadStateRestoresCursor(t *testing.T) {
	e, _, local := newTestEngine(t, time.Second)
	ctx := context.Background()
	require.NoError(t, local.SaveCursor(ctx, testUser, "c7"))

	require.NoError(t, e.LoadState(ctx))

	assert.Equal(t, "c7", e.Status().Cursor)
}

// ── TriggerSync ──────────────────────────────────────────────────────────────

func TestEngine_TriggerSyncUploadsOutbox(t *testing.T) {
	e, server, local := newTestEngine(t, time.Second)
	ctx := context.Background()

	require.NoError(t, e.Stage(ctx, delta("transaction", "t1", "v1"), delta("budget", "b1", "v1")))

	server.EXPECT().Token().Return("tok")
	server.EXPECT().Upload(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, env models.Envelope) (models.UploadResponse, error) {
			assert.Equal(t, envelope.DefaultCursor, env.Cursor)
			require.Len(t, env.Deltas, 2)
			assert.True(t, env.JWTUsed)
			assert.NoError(t, crypto.VerifySignature(env, "tok"))
			assert.NoError(t, testCodec.Validate(env))
			return models.UploadResponse{NextCursor: "c1", Stored: 2, EchoSignature: env.Signature, Conflicts: []models.Conflict{}}, nil
		})

	res, err := e.TriggerSync(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Stored)

	pending, err := local.Pending(ctx)
	require.NoError(t, err)
	assert.Empty(t, pending)

	cursor, err := local.LoadCursor(ctx, testUser)
	require.NoError(t, err)
	assert.Empty(t, cursor, "an upload must not move the download cursor")

	states, err := local.States(ctx, testUser)
	require.NoError(t, err)
	require.Len(t, states, 2)
	for _, st := range states {
		assert.Equal(t, "c1", st.LastRemoteCursor, st.EntityName)
	}

	st := e.Status()
	assert.Equal(t, models.StatusReady, st.Status)
	assert.Contains(t, st.Summary, "2 entities prepared (checksum sample: ")
	assert.Equal(t, envelope.DefaultCursor, st.Cursor)
}

func TestEngine_TriggerSyncSendsStoredCursor(t *testing.T) {
	e, server, local := newTestEngine(t, time.Second)
	ctx := context.Background()
	require.NoError(t, local.SaveCursor(ctx, testUser, "c4"))

	server.EXPECT().Token().Return("")
	server.EXPECT().Upload(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, env models.Envelope) (models.UploadResponse, error) {
			assert.Equal(t, "c4", env.Cursor)
			assert.False(t, env.JWTUsed)
			assert.NoError(t, crypto.VerifySignature(env, crypto.LocalDevCredential))
			return models.UploadResponse{NextCursor: "c5"}, nil
		})

	_, err := e.TriggerSync(ctx)
	require.NoError(t, err)

	cursor, err := local.LoadCursor(ctx, testUser)
	require.NoError(t, err)
	assert.Equal(t, "c4", cursor)
	assert.Equal(t, "c4", e.Status().Cursor)
}

func TestEngine_TriggerSyncFailureKeepsState(t *testing.T) {
	e, server, local := newTestEngine(t, time.Second)
	ctx := context.Background()
	require.NoError(t, local.SaveCursor(ctx, testUser, "c3"))
	require.NoError(t, e.Stage(ctx, delta("goal", "g1", "v1")))

	server.EXPECT().Token().Return("tok")
	server.EXPECT().Upload(gomock.Any(), gomock.Any()).
		Return(models.UploadResponse{}, adapter.ErrTransient)

	_, err := e.TriggerSync(ctx)
	require.ErrorIs(t, err, ErrSyncFailed)
	require.ErrorIs(t, err, adapter.ErrTransient)

	pending, err := local.Pending(ctx)
	require.NoError(t, err)
	assert.Len(t, pending, 1)

	cursor, err := local.LoadCursor(ctx, testUser)
	require.NoError(t, err)
	assert.Equal(t, "c3", cursor)

	st := e.Status()
	assert.Equal(t, models.StatusError, st.Status)
	assert.Contains(t, st.Error, adapter.ErrTransient.Error())
}

func TestEngine_TriggerSyncTimeout(t *testing.T) {
	e, server, local := newTestEngine(t, 20*time.Millisecond)
	ctx := context.Background()
	require.NoError(t, e.Stage(ctx, delta("goal", "g1", "v1")))

	server.EXPECT().Token().Return("tok")
	server.EXPECT().Upload(gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, _ models.Envelope) (models.UploadResponse, error) {
			<-ctx.Done()
			return models.UploadResponse{}, ctx.Err()
		})

	_, err := e.TriggerSync(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)

	pending, _ := local.Pending(ctx)
	assert.Len(t, pending, 1)
	assert.Equal(t, models.StatusError, e.Status().Status)
}

func TestEngine_TriggerSyncSingleFlight(t *testing.T) {
	e, server, _ := newTestEngine(t, time.Second)
	ctx := context.Background()

	entered := make(chan struct{})
	release := make(chan struct{})

	server.EXPECT().Token().Return("tok").Times(1)
	server.EXPECT().Upload(gomock.Any(), gomock.Any()).
		DoAndReturn(func(context.Context, models.Envelope) (models.UploadResponse, error) {
			close(entered)
			<-release
			return models.UploadResponse{NextCursor: "c1"}, nil
		}).Times(1)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, err := e.TriggerSync(ctx)
		assert.NoError(t, err)
	}()

	<-entered
	assert.Equal(t, models.StatusSyncing, e.Status().Status)

	_, err := e.TriggerSync(ctx)
	assert.ErrorIs(t, err, ErrSyncInProgress)
	_, err = e.TriggerDownload(ctx)
	assert.ErrorIs(t, err, ErrSyncInProgress)

	close(release)
	wg.Wait()
	assert.Equal(t, models.StatusReady, e.Status().Status)
}

func TestEngine_TriggerSyncRecordsConflicts(t *testing.T) {
	e, server, local := newTestEngine(t, time.Second)
	ctx := context.Background()
	require.NoError(t, e.Stage(ctx, delta("transaction", "t1", "v2")))

	conflict := models.Conflict{Entity: "transaction", ID: "t1", Reason: models.ReasonStaleVersion}
	server.EXPECT().Token().Return("tok")
	server.EXPECT().Upload(gomock.Any(), gomock.Any()).
		Return(models.UploadResponse{NextCursor: "c2", Conflicts: []models.Conflict{conflict}}, nil)

	res, err := e.TriggerSync(ctx)
	require.NoError(t, err)
	assert.Equal(t, []models.Conflict{conflict}, res.Conflicts)

	recorded, err := local.Conflicts(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, []models.Conflict{conflict}, recorded)
}

func TestEngine_TriggerSyncKeepsRestagedDeltas(t *testing.T) {
	e, server, local := newTestEngine(t, time.Second)
	ctx := context.Background()
	require.NoError(t, e.Stage(ctx, delta("reminder", "r1", "v1")))

	server.EXPECT().Token().Return("tok")
	server.EXPECT().Upload(gomock.Any(), gomock.Any()).
		DoAndReturn(func(context.Context, models.Envelope) (models.UploadResponse, error) {
			// the user edits the record while the upload is in flight
			require.NoError(t, e.Stage(ctx, delta("reminder", "r1", "v2")))
			return models.UploadResponse{NextCursor: "c1", Stored: 1}, nil
		})

	_, err := e.TriggerSync(ctx)
	require.NoError(t, err)

	pending, err := local.Pending(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "v2", pending[0].Version)
}

func TestEngine_StageRejectsInvalidPayload(t *testing.T) {
	e, _, _ := newTestEngine(t, time.Second)

	err := e.Stage(context.Background(), models.Delta{Entity: "goal", Version: "v1", Payload: json.RawMessage(`{broken`)})

	require.ErrorIs(t, err, envelope.ErrValidation)
}

// ── TriggerDownload ──────────────────────────────────────────────────────────

func TestEngine_TriggerDownloadMergesValidDeltas(t *testing.T) {
	e, server, local := newTestEngine(t, time.Second)
	ctx := context.Background()
	require.NoError(t, local.SaveCursor(ctx, testUser, "c1"))

	good := stamped(t, delta("transaction", "t1", "v1"))
	tampered := stamped(t, delta("budget", "b1", "v1"))
	tampered.Payload = json.RawMessage(`{"id":"b1","v":"forged"}`)
	serverConflict := models.Conflict{Entity: "goal", ID: "g1", Reason: models.ReasonStaleVersion}

	server.EXPECT().Download(gomock.Any(), "c1").Return(models.DownloadResponse{
		NextCursor: "c2",
		Deltas:     []models.Delta{good, tampered},
		Conflicts:  []models.Conflict{serverConflict},
	}, nil)

	res, err := e.TriggerDownload(ctx)
	require.NoError(t, err)

	assert.Equal(t, 1, res.Applied)
	assert.Equal(t, "c2", res.Cursor)
	assert.Equal(t, []models.Delta{good}, res.Deltas)
	assert.Equal(t, []models.Conflict{
		{Entity: "budget", ID: "b1", Reason: models.ReasonChecksumMismatch},
		serverConflict,
	}, res.Conflicts)

	replica, err := local.Replica(ctx)
	require.NoError(t, err)
	assert.Len(t, replica, 1)

	cursor, err := local.LoadCursor(ctx, testUser)
	require.NoError(t, err)
	assert.Equal(t, "c2", cursor)
	assert.Equal(t, models.StatusReady, e.Status().Status)
}

func TestEngine_TriggerDownloadFailureKeepsCursor(t *testing.T) {
	e, server, local := newTestEngine(t, time.Second)
	ctx := context.Background()
	require.NoError(t, local.SaveCursor(ctx, testUser, "c1"))

	server.EXPECT().Download(gomock.Any(), "c1").Return(models.DownloadResponse{}, adapter.ErrUnauthorized)

	_, err := e.TriggerDownload(ctx)
	require.ErrorIs(t, err, ErrDownloadFailed)
	require.ErrorIs(t, err, adapter.ErrUnauthorized)

	cursor, _ := local.LoadCursor(ctx, testUser)
	assert.Equal(t, "c1", cursor)
	assert.Equal(t, models.StatusError, e.Status().Status)
}

func TestEngine_RecoversFromErrorState(t *testing.T) {
	e, server, _ := newTestEngine(t, time.Second)
	ctx := context.Background()

	server.EXPECT().Download(gomock.Any(), "").Return(models.DownloadResponse{}, errors.New("boom"))
	server.EXPECT().Download(gomock.Any(), "").Return(models.DownloadResponse{NextCursor: "c1"}, nil)

	_, err := e.TriggerDownload(ctx)
	require.Error(t, err)
	assert.Equal(t, models.StatusError, e.Status().Status)

	_, err = e.TriggerDownload(ctx)
	require.NoError(t, err)
	st := e.Status()
	assert.Equal(t, models.StatusReady, st.Status)
	assert.Empty(t, st.Error)
}

func TestEntityNames(t *testing.T) {
	got := entityNames([]models.Delta{delta("a", "1", "v1"), delta("b", "2", "v1"), delta("a", "3", "v1")})
	assert.Equal(t, []string{"a", "b"}, got)
}
