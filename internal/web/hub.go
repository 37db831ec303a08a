package web

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

// writeWait bounds a single websocket write.
const writeWait = 10 * time.Second

// Hub pushes a snapshot message to every connected websocket client, once
// on connect and again after every Notify.
//
// All writes happen on the goroutine running Run, which also owns the client
// set. Notifications that arrive while a broadcast is pending are coalesced.
type Hub struct {
	upgrader websocket.Upgrader
	snapshot func() (interface{}, error)
	logger   *slog.Logger

	register   chan *websocket.Conn
	unregister chan *websocket.Conn
	notify     chan struct{}
	stopped    chan struct{}
}

// NewHub returns a hub that sends whatever snapshot returns. Run must be
// started before clients connect.
func NewHub(snapshot func() (interface{}, error), logger *slog.Logger) *Hub {
	return &Hub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		snapshot:   snapshot,
		logger:     logger,
		register:   make(chan *websocket.Conn),
		unregister: make(chan *websocket.Conn),
		notify:     make(chan struct{}, 1),
		stopped:    make(chan struct{}),
	}
}

// Notify schedules a broadcast. It never blocks.
func (h *Hub) Notify() {
	select {
	case h.notify <- struct{}{}:
	default:
	}
}

// Run serves clients until ctx is cancelled, then closes every connection.
func (h *Hub) Run(ctx context.Context) {
	clients := make(map[*websocket.Conn]struct{})
	defer func() {
		close(h.stopped)
		for conn := range clients {
			conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
				time.Now().Add(time.Second))
			conn.Close()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case conn := <-h.register:
			clients[conn] = struct{}{}
			h.logger.Debug("websocket client connected", "remote", conn.RemoteAddr().String(), "clients", len(clients))
			if msg, ok := h.message(); ok {
				if err := h.write(conn, msg); err != nil {
					delete(clients, conn)
					conn.Close()
				}
			}

		case conn := <-h.unregister:
			if _, ok := clients[conn]; ok {
				delete(clients, conn)
				conn.Close()
				h.logger.Debug("websocket client disconnected", "clients", len(clients))
			}

		case <-h.notify:
			msg, ok := h.message()
			if !ok {
				continue
			}
			for conn := range clients {
				if err := h.write(conn, msg); err != nil {
					h.logger.Debug("dropping websocket client", "error", err)
					delete(clients, conn)
					conn.Close()
				}
			}
		}
	}
}

func (h *Hub) message() (interface{}, bool) {
	msg, err := h.snapshot()
	if err != nil {
		h.logger.Error("failed to build snapshot", "error", err)
		return nil, false
	}
	return msg, true
}

func (h *Hub) write(conn *websocket.Conn, msg interface{}) error {
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(msg)
}

// ServeHTTP upgrades the request to a websocket and registers the client.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already replied to the client.
		h.logger.Debug("websocket upgrade failed", "error", err)
		return
	}

	select {
	case h.register <- conn:
	case <-h.stopped:
		conn.Close()
		return
	}
	go h.readLoop(conn)
}

// readLoop discards client messages and unregisters the client when the
// connection fails or closes.
func (h *Hub) readLoop(conn *websocket.Conn) {
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Debug("websocket read failed", "error", err)
			}
			select {
			case h.unregister <- conn:
			case <-h.stopped:
			}
			return
		}
	}
}
