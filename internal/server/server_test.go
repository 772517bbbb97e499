package server

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MKhiriev/go-delta-sync/internal/config"
	"github.com/MKhiriev/go-delta-sync/internal/handler"
	"github.com/MKhiriev/go-delta-sync/internal/logger"
)

func freePort(t *testing.T) int {
	t.Helper()
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer lis.Close()
	return lis.Addr().(*net.TCPAddr).Port
}

func TestNewServer_NoHandlers(t *testing.T) {
	_, err := NewServer(&handler.Handlers{}, config.Server{}, logger.Nop())
	require.ErrorIs(t, err, errNoServersAreCreated)
}

func TestNewServer_GRPCListenFailure(t *testing.T) {
	cfg := config.Server{GRPCAddress: "bad-address"}
	handlers, err := handler.NewHandlers(nil, nil, nil, cfg, logger.Nop())
	require.NoError(t, err)

	_, err = NewServer(handlers, cfg, logger.Nop())
	require.ErrorIs(t, err, errListeningGRPC)
}

func TestServer_RunServesUntilCanceled(t *testing.T) {
	cfg := config.Server{
		Host:       "127.0.0.1",
		Port:       freePort(t),
		RateLimit:  100,
		RateWindow: time.Minute,
	}
	handlers, err := handler.NewHandlers(nil, nil, nil, cfg, logger.Nop())
	require.NoError(t, err)

	srv, err := NewServer(handlers, cfg, logger.Nop())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		srv.Run(ctx)
		close(done)
	}()

	url := fmt.Sprintf("http://%s/nope", cfg.HTTPAddress())
	require.Eventually(t, func() bool {
		resp, err := http.Get(url)
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusNotFound
	}, 3*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}

	_, err = http.Get(url)
	assert.Error(t, err)
}
