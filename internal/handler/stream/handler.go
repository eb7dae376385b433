package stream

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/huddlechat/huddle/backend/internal/service/roomsync"
	"github.com/huddlechat/huddle/backend/pkg/utils"
)

const updateBuffer = 16

// Handler pushes session view updates over Server-Sent Events.
type Handler struct {
	manager *roomsync.Manager
}

// New creates the stream handler.
func New(manager *roomsync.Manager) *Handler {
	return &Handler{manager: manager}
}

// RegisterRoutes wires the SSE endpoint.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/sessions/{sessionID}/events", h.handleEvents)
}

func (h *Handler) handleEvents(w http.ResponseWriter, r *http.Request) {
	session, ok := h.manager.Get(chi.URLParam(r, "sessionID"))
	if !ok {
		utils.RespondError(w, http.StatusNotFound, "session not found")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		utils.RespondError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}
	utils.SetupSSEHeaders(w)

	updates := make(chan roomsync.Update, updateBuffer)
	cancel := session.Subscribe(func(u roomsync.Update) {
		select {
		case updates <- u:
		default:
			// A stalled SSE client misses intermediate snapshots; the
			// next delivered update carries the full state anyway.
		}
	})
	defer cancel()

	utils.SendSSEEvent(w, flusher, "snapshot", session.View())

	ctx := r.Context()
	heartbeat := time.NewTicker(25 * time.Second)
	defer heartbeat.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case u := <-updates:
			utils.SendSSEEvent(w, flusher, string(u.Kind), u)
			if u.Kind == roomsync.UpdateRoomClosed {
				return
			}
		case <-heartbeat.C:
			utils.SendSSEEvent(w, flusher, "heartbeat", map[string]string{
				"time": time.Now().UTC().Format(time.RFC3339),
			})
		}
	}
}
