package store

import (
	"context"
	"errors"
	"net"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MKhiriev/go-delta-sync/internal/cursor"
	"github.com/MKhiriev/go-delta-sync/internal/logger"
	"github.com/MKhiriev/go-delta-sync/models"
)

var (
	lockQuery      = regexp.QuoteMeta(lockOwner)
	selectForQuery = regexp.QuoteMeta("SELECT entity, entity_id, version, checksum, payload, cursor FROM sync_deltas WHERE owner = $1")
)

func newTestPostgresStore(t *testing.T) (*PostgresStore, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	s := NewPostgresStore(&DB{
		DB:                 db,
		logger:             logger.Nop(),
		errorClassificator: NewPostgresErrorClassifier(),
	}, newTestMinter())
	// the schema is not migrated against sqlmock
	s.prepared.Store(true)

	return s, mock
}

func pgError(code string) error {
	return &pgconn.PgError{Code: code}
}

func deltaColumns() []string {
	return []string{"entity", "entity_id", "version", "checksum", "payload", "cursor"}
}

func TestPostgresStore_UploadResolves(t *testing.T) {
	s, mock := newTestPostgresStore(t)
	ctx := context.Background()

	mock.ExpectBegin()
	mock.ExpectExec(lockQuery).WithArgs("alice").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(selectForQuery).
		WithArgs("alice", "goal", "g1").
		WillReturnRows(sqlmock.NewRows(deltaColumns()).
			AddRow("goal", "g1", "v1", "a", []byte(`{"id":"g1","v":"v1"}`), testCursor))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO sync_deltas")).
		WithArgs("alice", "goal", "g1", "v2", "b", `{"id":"g1","v":"v2"}`, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO sync_conflicts")).
		WithArgs("alice", "goal", "g1", models.ReasonStaleVersion, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	res, err := s.Upload(ctx, "alice", "", []models.Delta{
		testDelta("goal", "g1", "v2", "b"),
		testDelta("goal", "g1", "v1", "c"),
	})
	require.NoError(t, err)

	assert.Equal(t, 1, res.Stored)
	assert.Equal(t, []models.Conflict{{Entity: "goal", ID: "g1", Reason: models.ReasonStaleVersion}}, res.Conflicts)
	assert.True(t, cursor.IsMinted(res.Cursor))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_UploadNothingAccepted(t *testing.T) {
	s, mock := newTestPostgresStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(lockQuery).WithArgs("alice").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(selectForQuery).
		WillReturnRows(sqlmock.NewRows(deltaColumns()).
			AddRow("goal", "g1", "v5", "a", []byte(`{"id":"g1"}`), testCursor))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO sync_conflicts")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	res, err := s.Upload(context.Background(), "alice", "", []models.Delta{testDelta("goal", "g1", "v5", "other")})
	require.NoError(t, err)
	assert.Equal(t, 0, res.Stored)
	require.Len(t, res.Conflicts, 1)
	assert.Equal(t, models.ReasonAmbiguousWrite, res.Conflicts[0].Reason)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_UploadEmptyBatch(t *testing.T) {
	s, mock := newTestPostgresStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(lockQuery).WithArgs("alice").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	res, err := s.Upload(context.Background(), "alice", "", nil)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Stored)
	assert.True(t, cursor.IsMinted(res.Cursor))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_UploadConnectionLost(t *testing.T) {
	s, mock := newTestPostgresStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(lockQuery).WithArgs("alice").WillReturnError(pgError(pgerrcode.ConnectionFailure))
	mock.ExpectRollback()

	_, err := s.Upload(context.Background(), "alice", "", []models.Delta{testDelta("goal", "g1", "v1", "a")})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrBackendUnavailable)
	assert.ErrorIs(t, err, ErrExecutingStatement)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_UploadRetriesDeadlock(t *testing.T) {
	s, mock := newTestPostgresStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(lockQuery).WithArgs("alice").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(selectForQuery).WillReturnError(pgError(pgerrcode.DeadlockDetected))
	mock.ExpectRollback()

	mock.ExpectBegin()
	mock.ExpectExec(lockQuery).WithArgs("alice").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(selectForQuery).WillReturnRows(sqlmock.NewRows(deltaColumns()))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO sync_deltas")).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	res, err := s.Upload(context.Background(), "alice", "", []models.Delta{testDelta("goal", "g1", "v1", "a")})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Stored)
	assert.Empty(t, res.Conflicts, "state of the aborted attempt is discarded")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_UploadConstraintViolation(t *testing.T) {
	s, mock := newTestPostgresStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(lockQuery).WithArgs("alice").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(selectForQuery).WillReturnRows(sqlmock.NewRows(deltaColumns()))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO sync_deltas")).WillReturnError(pgError(pgerrcode.NotNullViolation))
	mock.ExpectRollback()

	_, err := s.Upload(context.Background(), "alice", "", []models.Delta{testDelta("goal", "g1", "v1", "a")})
	require.ErrorIs(t, err, ErrExecutingStatement)
	assert.NotErrorIs(t, err, ErrBackendUnavailable)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Download(t *testing.T) {
	s, mock := newTestPostgresStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(lockQuery).WithArgs("alice").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta("FROM sync_deltas WHERE owner = $1 AND cursor >= $2")).
		WithArgs("alice", testCursor).
		WillReturnRows(sqlmock.NewRows(deltaColumns()).
			AddRow("goal", "g1", "v2", "b", []byte(`{"id":"g1"}`), testCursor))
	mock.ExpectQuery(regexp.QuoteMeta("FROM sync_conflicts WHERE owner = $1 AND cursor >= $2")).
		WithArgs("alice", testCursor).
		WillReturnRows(sqlmock.NewRows([]string{"entity", "entity_id", "reason", "cursor"}).
			AddRow("goal", "g1", models.ReasonStaleVersion, testCursor))
	mock.ExpectCommit()

	res, err := s.Download(context.Background(), "alice", testCursor)
	require.NoError(t, err)

	require.Len(t, res.Deltas, 1)
	assert.Equal(t, "g1", res.Deltas[0].EntityID())
	assert.JSONEq(t, `{"id":"g1"}`, string(res.Deltas[0].Payload))
	require.Len(t, res.Conflicts, 1)
	assert.Equal(t, 1, cursor.TimeOrder{}.Compare(res.Cursor, testCursor))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_PingFailure(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer db.Close()

	s := NewPostgresStore(&DB{DB: db, logger: logger.Nop()}, newTestMinter())
	mock.ExpectPing().WillReturnError(errors.New("dial tcp: connection refused"))

	assert.ErrorIs(t, s.Ping(context.Background()), ErrBackendUnavailable)
	assert.Equal(t, ModePostgres, s.Mode())
}

func TestIsUnavailable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "nil", err: nil, want: false},
		{name: "connection exception", err: pgError(pgerrcode.ConnectionException), want: true},
		{name: "cannot connect now", err: pgError(pgerrcode.CannotConnectNow), want: true},
		{name: "admin shutdown", err: pgError(pgerrcode.AdminShutdown), want: true},
		{name: "deadlock", err: pgError(pgerrcode.DeadlockDetected), want: false},
		{name: "unique violation", err: pgError(pgerrcode.UniqueViolation), want: false},
		{name: "net error", err: &net.OpError{Op: "dial", Err: errors.New("refused")}, want: true},
		{name: "canceled", err: context.Canceled, want: false},
		{name: "already marked", err: ErrBackendUnavailable, want: true},
		{name: "plain", err: errors.New("boom"), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isUnavailable(tt.err))
		})
	}
}

func TestPostgresErrorClassifier(t *testing.T) {
	c := NewPostgresErrorClassifier()

	assert.Equal(t, Retryable, c.Classify(pgError(pgerrcode.SerializationFailure)))
	assert.Equal(t, Retryable, c.Classify(pgError(pgerrcode.DeadlockDetected)))
	assert.Equal(t, NonRetryable, c.Classify(pgError(pgerrcode.UniqueViolation)))
	assert.Equal(t, NonRetryable, c.Classify(errors.New("plain")))
	assert.Equal(t, NonRetryable, c.Classify(nil))
}
