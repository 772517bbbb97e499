package http

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"

	"github.com/MKhiriev/go-delta-sync/internal/config"
	"github.com/MKhiriev/go-delta-sync/internal/cursor"
	"github.com/MKhiriev/go-delta-sync/internal/envelope"
	"github.com/MKhiriev/go-delta-sync/internal/logger"
	"github.com/MKhiriev/go-delta-sync/internal/metrics"
	"github.com/MKhiriev/go-delta-sync/internal/notify"
	"github.com/MKhiriev/go-delta-sync/internal/service"
	"github.com/MKhiriev/go-delta-sync/internal/store"
	"github.com/MKhiriev/go-delta-sync/models"
)

const (
	testSecret = "handler-test-secret"
	testIssuer = "go-delta-sync"
)

var testAppConfig = config.App{
	JWTSecret:     testSecret,
	TokenIssuer:   testIssuer,
	TokenDuration: time.Hour,
	ChecksumKey:   "sync-local",
}

var testServerConfig = config.Server{
	Port:           4100,
	RequestTimeout: 5 * time.Second,
	RateLimit:      1000,
	RateWindow:     time.Minute,
}

// ── fakes ────────────────────────────────────────────────────────────────────

type fakeSyncService struct {
	uploadFn   func(ctx context.Context, owner string, req models.UploadRequest) (models.UploadResponse, error)
	downloadFn func(ctx context.Context, owner, since string) (models.DownloadResponse, error)
}

func (f *fakeSyncService) Upload(ctx context.Context, owner string, req models.UploadRequest) (models.UploadResponse, error) {
	return f.uploadFn(ctx, owner, req)
}

func (f *fakeSyncService) Download(ctx context.Context, owner, since string) (models.DownloadResponse, error) {
	return f.downloadFn(ctx, owner, since)
}

type fakeHealthService struct{ mode string }

func (f fakeHealthService) Health(context.Context) models.HealthResponse {
	return models.HealthResponse{Status: "ok", Mode: f.mode}
}

// ── helpers ──────────────────────────────────────────────────────────────────

func newTestHandler() *Handler {
	return &Handler{logger: logger.Nop(), cfg: testServerConfig}
}

// newFakeHandler wires a real auth service and the given sync service.
func newFakeHandler(sync service.SyncService) *Handler {
	h := newTestHandler()
	h.services = &service.Services{
		AuthService:    service.NewAuthService(testAppConfig, logger.Nop()),
		SyncService:    sync,
		HealthService:  fakeHealthService{mode: "memory"},
		AppInfoService: service.NewAppInfoService(models.NewAppBuildInfo("v1.2.3", "2026-10-01", "abc123"), logger.Nop()),
	}
	return h
}

// newStackHandler wires every layer below HTTP for real on the memory store.
func newStackHandler(t *testing.T) (*Handler, *notify.Hub) {
	t.Helper()

	clock := clockwork.NewFakeClockAt(time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC))
	mem := store.NewMemoryStore(cursor.NewMinter(clock))
	hub := notify.NewHub()
	t.Cleanup(hub.Close)
	m := metrics.New()

	services := &service.Services{
		AuthService: service.NewAuthService(testAppConfig, logger.Nop()),
		SyncService: service.NewSyncService(mem, envelope.NewCodec(testAppConfig.ChecksumKey), logger.Nop(),
			service.WithPublisher(hub),
			service.WithRecorder(m),
		),
		HealthService:  service.NewHealthService(mem),
		AppInfoService: service.NewAppInfoService(models.NewAppBuildInfo("", "", ""), logger.Nop()),
	}

	return NewHandler(services, hub, m, testServerConfig, logger.Nop()), hub
}

func mustToken(t *testing.T, h *Handler, owner string) string {
	t.Helper()
	token, err := h.services.AuthService.CreateToken(context.Background(), owner)
	require.NoError(t, err)
	return token.SignedString
}

func stampedDelta(t *testing.T, entity, id, version string, fields map[string]any) models.Delta {
	t.Helper()

	payload := map[string]any{"id": id}
	for k, v := range fields {
		payload[k] = v
	}
	raw, err := json.Marshal(payload)
	require.NoError(t, err)

	d, err := envelope.NewCodec(testAppConfig.ChecksumKey).Stamp(models.Delta{
		Entity: entity, Version: version, Payload: raw,
	})
	require.NoError(t, err)
	return d
}

func doRequest(t *testing.T, router http.Handler, method, target, token string, body io.Reader) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, target, body)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func jsonBody(t *testing.T, v any) io.Reader {
	t.Helper()
	raw, err := json.Marshal(v)
	require.NoError(t, err)
	return strings.NewReader(string(raw))
}

func decodeJSON[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), "body: %s", rec.Body.String())
	return v
}

// injectNopLogger attaches a disabled logger to r, as withTraceID does.
func injectNopLogger(r *http.Request) *http.Request {
	return r.WithContext(logger.Nop().WithContext(r.Context()))
}

func mustMarshal(t *testing.T, v any) []byte {
	t.Helper()
	raw, err := json.Marshal(v)
	require.NoError(t, err)
	return raw
}
