package room

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/huddlechat/huddle/backend/internal/service/roomsync"
	"github.com/huddlechat/huddle/backend/pkg/utils"
)

// Handler exposes room lifecycle and messaging over REST.
type Handler struct {
	manager *roomsync.Manager
}

// New creates the room handler.
func New(manager *roomsync.Manager) *Handler {
	return &Handler{manager: manager}
}

// RegisterRoutes wires the room endpoints.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/rooms", h.handleCreate)
	r.Post("/rooms/join", h.handleJoin)
	r.Get("/sessions/{sessionID}", h.handleView)
	r.Post("/sessions/{sessionID}/messages", h.handleSend)
	r.Delete("/sessions/{sessionID}", h.handleLeave)
}

type sessionResponse struct {
	SessionID string `json:"sessionId"`
	RoomID    string `json:"roomId"`
	RoomCode  string `json:"roomCode"`
	Username  string `json:"username"`
	IsAdmin   bool   `json:"isAdmin"`
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Username string `json:"username"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	id, session, err := h.manager.CreateRoom(r.Context(), payload.Username)
	if err != nil {
		respondSessionError(w, err)
		return
	}

	view := session.View()
	utils.RespondJSON(w, http.StatusCreated, sessionResponse{
		SessionID: id,
		RoomID:    view.RoomID,
		RoomCode:  view.RoomCode,
		Username:  view.Username,
		IsAdmin:   view.IsAdmin,
	})
}

func (h *Handler) handleJoin(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Code     string `json:"code"`
		Username string `json:"username"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	id, session, err := h.manager.JoinRoom(r.Context(), payload.Code, payload.Username)
	if err != nil {
		respondSessionError(w, err)
		return
	}

	view := session.View()
	utils.RespondJSON(w, http.StatusOK, sessionResponse{
		SessionID: id,
		RoomID:    view.RoomID,
		RoomCode:  view.RoomCode,
		Username:  view.Username,
		IsAdmin:   view.IsAdmin,
	})
}

func (h *Handler) handleView(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}
	utils.RespondJSON(w, http.StatusOK, session.View())
}

func (h *Handler) handleSend(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}

	var payload struct {
		Content   string `json:"content"`
		ReplyToID string `json:"replyToId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := session.Send(r.Context(), payload.Content, payload.ReplyToID); err != nil {
		respondSessionError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusAccepted, map[string]string{"status": "sent"})
}

func (h *Handler) handleLeave(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}

	err := session.Leave(r.Context())
	h.manager.Remove(chi.URLParam(r, "sessionID"))
	if err != nil && !errors.Is(err, roomsync.ErrNoActiveRoom) {
		respondSessionError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) session(w http.ResponseWriter, r *http.Request) (*roomsync.Session, bool) {
	id := chi.URLParam(r, "sessionID")
	session, ok := h.manager.Get(id)
	if !ok {
		utils.RespondError(w, http.StatusNotFound, "session not found")
		return nil, false
	}
	return session, true
}

func respondSessionError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, roomsync.ErrUsernameRequired),
		errors.Is(err, roomsync.ErrCodeRequired),
		errors.Is(err, roomsync.ErrContentRequired):
		utils.RespondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, roomsync.ErrRoomNotFound):
		utils.RespondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, roomsync.ErrUsernameTaken):
		utils.RespondError(w, http.StatusConflict, err.Error())
	case errors.Is(err, roomsync.ErrNoActiveRoom):
		utils.RespondError(w, http.StatusGone, err.Error())
	default:
		utils.RespondError(w, http.StatusBadGateway, err.Error())
	}
}
