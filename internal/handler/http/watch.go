package http

import (
	"context"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/MKhiriev/go-delta-sync/internal/logger"
	"github.com/MKhiriev/go-delta-sync/internal/utils"
)

// watchWriteTimeout bounds a single event write to a watcher.
const watchWriteTimeout = 10 * time.Second

// watch upgrades GET /sync/watch to a websocket and streams a WatchEvent
// every time an upload of the caller's owner stores deltas.
//
// The stream carries cursors only. Clients follow up with a download.
func (h *Handler) watch(w http.ResponseWriter, r *http.Request) {
	log := logger.FromRequest(r)

	owner, ok := utils.GetOwnerFromContext(r.Context())
	if !ok {
		utils.WriteError(w, unauthorizedMessage, http.StatusUnauthorized)
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		log.Warn().Err(err).Str("func", "Handler.watch").Msg("websocket upgrade failed")
		return
	}
	defer conn.CloseNow()

	sub := h.hub.Subscribe(owner)
	defer h.hub.Unsubscribe(sub)

	log.Info().Str("func", "Handler.watch").Msg("watcher connected")

	// watchers never send; CloseRead answers pings and cancels ctx on close
	ctx := conn.CloseRead(r.Context())

	for {
		select {
		case <-ctx.Done():
			log.Info().Str("func", "Handler.watch").Msg("watcher disconnected")
			return
		case ev, open := <-sub.Events:
			if !open {
				conn.Close(websocket.StatusGoingAway, "server shutting down")
				return
			}

			writeCtx, cancel := context.WithTimeout(ctx, watchWriteTimeout)
			err = wsjson.Write(writeCtx, conn, ev)
			cancel()
			if err != nil {
				log.Warn().Err(err).Str("func", "Handler.watch").Msg("error writing event")
				return
			}
		}
	}
}
