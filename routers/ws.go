package routers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/deckcast/deckcast/log"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

const statusWriteTimeout = 10 * time.Second

/**
 * @api {get} /api/v1/status/ws Streaming status push channel
 * @apiGroup stream
 * @apiName StatusWS
 * @apiDescription WebSocket. Sends the current snapshot on connect, then a
 * streaming_status_changed message on every session transition.
 */
func (h *APIHandler) StatusWS(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error("status ws upgrade err: ", err)
		return
	}

	snapshots, cancel := h.broadcaster.Subscribe()
	defer cancel()

	// swallow client frames, notice the close
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
	defer conn.Close()

	write := func(v interface{}) error {
		conn.SetWriteDeadline(time.Now().Add(statusWriteTimeout))
		return conn.WriteJSON(gin.H{"event": "streaming_status_changed", "data": v})
	}
	if err := write(h.broadcaster.Snapshot()); err != nil {
		return
	}
	for {
		select {
		case snap, ok := <-snapshots:
			if !ok {
				return
			}
			if err := write(snap); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}
