package adapter

import (
	"compress/gzip"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MKhiriev/go-delta-sync/internal/config"
	"github.com/MKhiriev/go-delta-sync/internal/logger"
	"github.com/MKhiriev/go-delta-sync/models"
)

func newTestAdapter(t *testing.T, serverURL string) ServerAdapter {
	t.Helper()
	a, err := NewHTTPServerAdapter(config.ClientConfig{
		ServerURL: serverURL,
		Token:     " tok-123 ",
		Retries:   2,
		RetryWait: time.Millisecond,
	}, logger.Nop())
	require.NoError(t, err)
	return a
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestNormalizeBaseURL(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"localhost:4100", "http://localhost:4100", false},
		{"http://localhost:4100/", "http://localhost:4100", false},
		{"  https://sync.example.com  ", "https://sync.example.com", false},
		{"", "", true},
		{"ftp://host", "", true},
		{"http://", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := normalizeBaseURL(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNewHTTPServerAdapter_InvalidAddress(t *testing.T) {
	_, err := NewHTTPServerAdapter(config.ClientConfig{}, logger.Nop())
	require.ErrorIs(t, err, ErrInvalidAddress)
}

func TestAdapter_Token(t *testing.T) {
	a := newTestAdapter(t, "http://localhost:4100")
	assert.Equal(t, "tok-123", a.Token())

	a.SetToken("other")
	assert.Equal(t, "other", a.Token())
}

func TestAdapter_Upload(t *testing.T) {
	env := models.Envelope{
		Cursor:    "c0",
		Deltas:    []models.Delta{{Entity: "transaction", Version: "v1", Checksum: "a", Payload: json.RawMessage(`{"id":"t1"}`)}},
		Signature: "sig",
		JWTUsed:   true,
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/sync/upload", r.URL.Path)
		assert.Equal(t, "Bearer tok-123", r.Header.Get("Authorization"))
		assert.Empty(t, r.Header.Get("Content-Encoding"))

		var got models.UploadRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		assert.Equal(t, "c0", got.Cursor)
		assert.Len(t, got.Deltas, 1)
		assert.True(t, got.JWTUsed)

		writeJSON(w, http.StatusOK, models.UploadResponse{NextCursor: "c1", Stored: 1, EchoSignature: "sig", Conflicts: []models.Conflict{}})
	}))
	defer srv.Close()

	resp, err := newTestAdapter(t, srv.URL).Upload(context.Background(), env)

	require.NoError(t, err)
	assert.Equal(t, "c1", resp.NextCursor)
	assert.Equal(t, 1, resp.Stored)
	assert.Equal(t, "sig", resp.EchoSignature)
}

func TestAdapter_UploadCompressesLargeBodies(t *testing.T) {
	deltas := make([]models.Delta, 50)
	for i := range deltas {
		deltas[i] = models.Delta{Entity: "goal", Version: "v1", Checksum: "abc", Payload: json.RawMessage(`{"id":"g","note":"` + strings.Repeat("x", 40) + `"}`)}
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "gzip", r.Header.Get("Content-Encoding"))
		zr, err := gzip.NewReader(r.Body)
		require.NoError(t, err)

		var got models.UploadRequest
		require.NoError(t, json.NewDecoder(zr).Decode(&got))
		assert.Len(t, got.Deltas, 50)

		writeJSON(w, http.StatusOK, models.UploadResponse{NextCursor: "c1", Stored: 50})
	}))
	defer srv.Close()

	resp, err := newTestAdapter(t, srv.URL).Upload(context.Background(), models.Envelope{Cursor: "c0", Deltas: deltas})

	require.NoError(t, err)
	assert.Equal(t, 50, resp.Stored)
}

func TestAdapter_Download(t *testing.T) {
	tests := []struct {
		name      string
		cursor    string
		wantQuery string
	}{
		{"with cursor", "c5", "cursor=c5"},
		{"from scratch", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/sync/download", r.URL.Path)
				assert.Equal(t, tt.wantQuery, r.URL.RawQuery)
				writeJSON(w, http.StatusOK, models.DownloadResponse{NextCursor: "c9", Deltas: []models.Delta{{Entity: "budget"}}})
			}))
			defer srv.Close()

			resp, err := newTestAdapter(t, srv.URL).Download(context.Background(), tt.cursor)

			require.NoError(t, err)
			assert.Equal(t, "c9", resp.NextCursor)
			assert.Len(t, resp.Deltas, 1)
		})
	}
}

func TestAdapter_Health(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Authorization"))
		writeJSON(w, http.StatusOK, models.HealthResponse{Status: "ok", Mode: "degraded"})
	}))
	defer srv.Close()

	resp, err := newTestAdapter(t, srv.URL).Health(context.Background())

	require.NoError(t, err)
	assert.Equal(t, models.HealthResponse{Status: "ok", Mode: "degraded"}, resp)
}

func TestAdapter_StatusMapping(t *testing.T) {
	tests := []struct {
		status  int
		wantErr error
	}{
		{http.StatusBadRequest, ErrBadRequest},
		{http.StatusUnauthorized, ErrUnauthorized},
		{http.StatusNotFound, ErrNotFound},
		{http.StatusTooManyRequests, ErrTooManyRequests},
		{http.StatusInternalServerError, ErrInternalServerError},
		{http.StatusServiceUnavailable, ErrUnavailable},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			var calls atomic.Int32
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				calls.Add(1)
				writeJSON(w, tt.status, models.ErrorResponse{Error: "nope"})
			}))
			defer srv.Close()

			_, err := newTestAdapter(t, srv.URL).Download(context.Background(), "")

			require.ErrorIs(t, err, tt.wantErr)
			assert.Contains(t, err.Error(), "nope")
			assert.False(t, errors.Is(err, ErrTransient))
			assert.EqualValues(t, 1, calls.Load(), "answered requests are not retried")
		})
	}
}

func TestAdapter_InvalidResponseBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("not json"))
	}))
	defer srv.Close()

	_, err := newTestAdapter(t, srv.URL).Upload(context.Background(), models.Envelope{Cursor: "c0"})

	require.ErrorIs(t, err, ErrInvalidResponse)
}

func TestAdapter_RetriesDroppedConnections(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) == 1 {
			conn, _, err := w.(http.Hijacker).Hijack()
			require.NoError(t, err)
			_ = conn.Close()
			return
		}
		writeJSON(w, http.StatusOK, models.DownloadResponse{NextCursor: "c2"})
	}))
	defer srv.Close()

	resp, err := newTestAdapter(t, srv.URL).Download(context.Background(), "c1")

	require.NoError(t, err)
	assert.Equal(t, "c2", resp.NextCursor)
	assert.EqualValues(t, 2, calls.Load())
}

func TestAdapter_UnreachableServerIsTransient(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := newTestAdapter(t, url).Download(context.Background(), "")

	require.ErrorIs(t, err, ErrTransient)
}

func TestAdapter_CanceledContextIsNotTransient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newTestAdapter(t, srv.URL).Download(ctx, "")

	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrTransient))
}

func TestIsTransient(t *testing.T) {
	assert.False(t, isTransient(nil))
	assert.False(t, isTransient(context.Canceled))
	assert.False(t, isTransient(errors.New("boom")))
	assert.True(t, isTransient(context.DeadlineExceeded))
	assert.True(t, isTransient(io.ErrUnexpectedEOF))
}

// ── watch ────────────────────────────────────────────────────────────────────

func TestAdapter_Watch(t *testing.T) {
	events := []models.WatchEvent{{Cursor: "c1", Stored: 1}, {Cursor: "c2", Stored: 3}}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/sync/watch", r.URL.Path)
		assert.Equal(t, "Bearer tok-123", r.Header.Get("Authorization"))

		conn, err := websocket.Accept(w, r, nil)
		require.NoError(t, err)
		defer conn.CloseNow()

		for _, ev := range events {
			require.NoError(t, wsjson.Write(r.Context(), conn, ev))
		}
		conn.Close(websocket.StatusNormalClosure, "")
	}))
	defer srv.Close()

	var got []models.WatchEvent
	err := newTestAdapter(t, srv.URL).Watch(context.Background(), func(ev models.WatchEvent) {
		got = append(got, ev)
	})

	require.NoError(t, err)
	assert.Equal(t, events, got)
}

func TestAdapter_WatchStopsOnCancel(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, nil)
		require.NoError(t, err)
		defer conn.CloseNow()
		_ = wsjson.Write(r.Context(), conn, models.WatchEvent{Cursor: "c1"})
		<-conn.CloseRead(r.Context()).Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- newTestAdapter(t, srv.URL).Watch(ctx, func(models.WatchEvent) { cancel() })
	}()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watch did not return")
	}
}

func TestAdapter_WatchUnauthorized(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusUnauthorized, models.ErrorResponse{Error: "Unauthorized"})
	}))
	defer srv.Close()

	err := newTestAdapter(t, srv.URL).Watch(context.Background(), func(models.WatchEvent) {})

	require.ErrorIs(t, err, ErrUnauthorized)
}

func TestWatchURL(t *testing.T) {
	assert.Equal(t, "ws://localhost:4100/sync/watch", watchURL("http://localhost:4100"))
	assert.Equal(t, "wss://sync.example.com/sync/watch", watchURL("https://sync.example.com"))
}
