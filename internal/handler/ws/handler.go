package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/huddlechat/huddle/backend/internal/service/roomsync"
)

const (
	writeWait    = 10 * time.Second
	updateBuffer = 16
)

// Handler serves a bidirectional room connection: view updates flow
// out, send/leave commands flow in.
type Handler struct {
	manager  *roomsync.Manager
	upgrader websocket.Upgrader
}

// New creates the websocket handler.
func New(manager *roomsync.Manager) *Handler {
	return &Handler{
		manager: manager,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// RegisterRoutes wires the websocket endpoint.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/sessions/{sessionID}/ws", h.handleConnection)
}

type command struct {
	Type      string `json:"type"`
	Content   string `json:"content,omitempty"`
	ReplyToID string `json:"replyToId,omitempty"`
}

type outgoing struct {
	Type   string           `json:"type"`
	Update *roomsync.Update `json:"update,omitempty"`
	View   *roomsync.View   `json:"view,omitempty"`
	Error  string           `json:"error,omitempty"`
}

// wsConn serializes writes; the update loop and the read loop's error
// replies share the connection.
type wsConn struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (c *wsConn) write(msg outgoing) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteJSON(msg)
}

func (h *Handler) handleConnection(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	session, ok := h.manager.Get(sessionID)
	if !ok {
		http.Error(w, "session not found", http.StatusNotFound)
		return
	}

	raw, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}
	conn := &wsConn{conn: raw}
	defer raw.Close()

	updates := make(chan roomsync.Update, updateBuffer)
	cancel := session.Subscribe(func(u roomsync.Update) {
		select {
		case updates <- u:
		default:
		}
	})
	defer cancel()

	done := make(chan struct{})
	go h.readLoop(conn, session, done)

	view := session.View()
	if err := conn.write(outgoing{Type: "snapshot", View: &view}); err != nil {
		return
	}

	for {
		select {
		case <-done:
			return
		case u := <-updates:
			if err := conn.write(outgoing{Type: "update", Update: &u}); err != nil {
				return
			}
			if u.Kind == roomsync.UpdateRoomClosed {
				return
			}
		}
	}
}

func (h *Handler) readLoop(conn *wsConn, session *roomsync.Session, done chan<- struct{}) {
	defer close(done)
	for {
		_, raw, err := conn.conn.ReadMessage()
		if err != nil {
			return
		}

		var cmd command
		if err := json.Unmarshal(raw, &cmd); err != nil {
			conn.write(outgoing{Type: "error", Error: "invalid command"})
			continue
		}

		switch cmd.Type {
		case "send":
			if err := session.Send(context.Background(), cmd.Content, cmd.ReplyToID); err != nil {
				conn.write(outgoing{Type: "error", Error: err.Error()})
			}
		case "leave":
			if err := session.Leave(context.Background()); err != nil {
				conn.write(outgoing{Type: "error", Error: err.Error()})
			}
			return
		default:
			conn.write(outgoing{Type: "error", Error: "unknown command type"})
		}
	}
}
