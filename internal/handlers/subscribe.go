package handlers

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/vanishlabs/vanish/internal/realtime"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Credential auth already ran in the member middleware; the room page
	// and the websocket share an origin in deployment, and the events carry
	// no secrets.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Subscribe upgrades the connection and streams the room's message and
// destroy events to the client. The stream ends when the client disconnects
// or the room is destroyed; reconnecting clients must re-fetch history, the
// events are notification only.
func (h *Handler) Subscribe(w http.ResponseWriter, r *http.Request) {
	roomID := r.URL.Query().Get("roomid")

	sub, err := h.broadcast.Subscribe(r.Context(), roomID)
	if err != nil {
		h.logger.Error().Err(err).Str("room", roomID).Msg("subscribe failed")
		h.Error(w, http.StatusInternalServerError, "failed to subscribe")
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		sub.Close()
		return
	}

	go h.stream(conn, sub, roomID)
}

// stream owns the connection: one reader goroutine watching for client
// disconnect, this goroutine writing events and pings.
func (h *Handler) stream(conn *websocket.Conn, sub realtime.Subscription, roomID string) {
	defer func() {
		sub.Close()
		conn.Close()
	}()

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		conn.SetReadLimit(512)
		conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(pongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case evt, ok := <-sub.Events():
			if !ok {
				return
			}
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(evt); err != nil {
				return
			}
			if evt.Type == realtime.EventDestroy {
				// The room is gone; say goodbye and tear down.
				conn.SetWriteDeadline(time.Now().Add(writeWait))
				conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, "room destroyed"))
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-closed:
			return
		}
	}
}
