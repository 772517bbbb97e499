package adapter

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/MKhiriev/go-delta-sync/models"
)

const (
	// watchReadLimit bounds a single notification frame.
	watchReadLimit = 64 << 10

	watchDialTimeout = 15 * time.Second
)

// Watch implements [ServerAdapter].
func (h *httpServerAdapter) Watch(ctx context.Context, fn func(models.WatchEvent)) error {
	header := http.Header{}
	if token := h.Token(); token != "" {
		header.Set("Authorization", "Bearer "+token)
	}

	dialCtx, cancel := context.WithTimeout(ctx, watchDialTimeout)
	conn, resp, err := websocket.Dial(dialCtx, watchURL(h.baseURL), &websocket.DialOptions{HTTPHeader: header})
	cancel()
	if err != nil {
		if resp != nil && resp.StatusCode != http.StatusSwitchingProtocols {
			var body []byte
			if resp.Body != nil {
				body, _ = io.ReadAll(resp.Body)
			}
			return mapStatus(resp.StatusCode, body)
		}
		if ctx.Err() != nil {
			return nil
		}
		return wrapRequestError("watch dial", err)
	}
	defer conn.CloseNow()
	conn.SetReadLimit(watchReadLimit)

	h.logger.Info().Str("func", "httpServerAdapter.Watch").Msg("watching for changes")

	for {
		var ev models.WatchEvent
		if err = wsjson.Read(ctx, conn, &ev); err != nil {
			if ctx.Err() != nil {
				conn.Close(websocket.StatusNormalClosure, "")
				return nil
			}
			if websocket.CloseStatus(err) == websocket.StatusNormalClosure {
				return nil
			}
			if websocket.CloseStatus(err) == websocket.StatusGoingAway {
				return fmt.Errorf("%w: server closed the stream", ErrUnavailable)
			}
			if websocket.CloseStatus(err) == -1 || errors.Is(err, io.EOF) {
				return wrapRequestError("watch read", err)
			}
			return fmt.Errorf("watch read: %w", err)
		}
		fn(ev)
	}
}

func watchURL(baseURL string) string {
	switch {
	case strings.HasPrefix(baseURL, "https://"):
		return "wss://" + strings.TrimPrefix(baseURL, "https://") + "/sync/watch"
	default:
		return "ws://" + strings.TrimPrefix(baseURL, "http://") + "/sync/watch"
	}
}
