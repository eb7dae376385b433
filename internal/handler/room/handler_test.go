package room

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/huddlechat/huddle/backend/internal/feed"
	"github.com/huddlechat/huddle/backend/internal/service/roomsync"
	"github.com/huddlechat/huddle/backend/internal/store"
)

func setupRouter() *chi.Mux {
	broker := feed.NewBroker()
	manager := roomsync.NewManager(store.NewMemoryStore(broker), broker, nil)
	handler := New(manager)

	r := chi.NewRouter()
	handler.RegisterRoutes(r)
	return r
}

func doJSON(t *testing.T, r *chi.Mux, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	return resp
}

func createRoom(t *testing.T, r *chi.Mux, username string) sessionResponse {
	t.Helper()
	resp := doJSON(t, r, http.MethodPost, "/rooms", map[string]string{"username": username})
	if resp.Code != http.StatusCreated {
		t.Fatalf("create room: expected 201, got %d (%s)", resp.Code, resp.Body.String())
	}
	var out sessionResponse
	if err := json.Unmarshal(resp.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return out
}

func TestCreateRoomReturnsSession(t *testing.T) {
	r := setupRouter()
	out := createRoom(t, r, "alice")

	if out.SessionID == "" || out.RoomCode == "" {
		t.Fatalf("incomplete response: %+v", out)
	}
	if !out.IsAdmin {
		t.Fatal("creator must be admin")
	}
}

func TestCreateRoomMissingUsername(t *testing.T) {
	r := setupRouter()
	resp := doJSON(t, r, http.MethodPost, "/rooms", map[string]string{})
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
}

func TestJoinRoom(t *testing.T) {
	r := setupRouter()
	created := createRoom(t, r, "alice")

	resp := doJSON(t, r, http.MethodPost, "/rooms/join", map[string]string{
		"code": created.RoomCode, "username": "bob",
	})
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", resp.Code, resp.Body.String())
	}

	var out sessionResponse
	if err := json.Unmarshal(resp.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if out.IsAdmin {
		t.Fatal("joiner must not be admin")
	}
	if out.RoomID != created.RoomID {
		t.Fatalf("room mismatch: got %s want %s", out.RoomID, created.RoomID)
	}
}

func TestJoinUnknownRoom(t *testing.T) {
	r := setupRouter()
	resp := doJSON(t, r, http.MethodPost, "/rooms/join", map[string]string{
		"code": "NOSUCH", "username": "bob",
	})
	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.Code)
	}
}

func TestJoinDuplicateUsername(t *testing.T) {
	r := setupRouter()
	created := createRoom(t, r, "alice")

	resp := doJSON(t, r, http.MethodPost, "/rooms/join", map[string]string{
		"code": created.RoomCode, "username": "alice",
	})
	if resp.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", resp.Code)
	}
}

func TestSendMessageAppearsInView(t *testing.T) {
	r := setupRouter()
	created := createRoom(t, r, "alice")

	resp := doJSON(t, r, http.MethodPost, "/sessions/"+created.SessionID+"/messages", map[string]string{
		"content": "hello",
	})
	if resp.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d (%s)", resp.Code, resp.Body.String())
	}

	view := doJSON(t, r, http.MethodGet, "/sessions/"+created.SessionID, nil)
	if view.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", view.Code)
	}
	var out roomsync.View
	if err := json.Unmarshal(view.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode view: %v", err)
	}
	if len(out.Messages) != 1 || out.Messages[0].Content != "hello" {
		t.Fatalf("expected the sent message in view, got %+v", out.Messages)
	}
}

func TestSendEmptyMessage(t *testing.T) {
	r := setupRouter()
	created := createRoom(t, r, "alice")

	resp := doJSON(t, r, http.MethodPost, "/sessions/"+created.SessionID+"/messages", map[string]string{
		"content": "   ",
	})
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
}

func TestLeaveRemovesSession(t *testing.T) {
	r := setupRouter()
	created := createRoom(t, r, "alice")

	resp := doJSON(t, r, http.MethodDelete, "/sessions/"+created.SessionID, nil)
	if resp.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", resp.Code)
	}

	view := doJSON(t, r, http.MethodGet, "/sessions/"+created.SessionID, nil)
	if view.Code != http.StatusNotFound {
		t.Fatalf("expected 404 after leave, got %d", view.Code)
	}
}

func TestUnknownSession(t *testing.T) {
	r := setupRouter()
	resp := doJSON(t, r, http.MethodGet, "/sessions/does-not-exist", nil)
	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.Code)
	}
}
