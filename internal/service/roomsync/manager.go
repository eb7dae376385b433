package roomsync

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/huddlechat/huddle/backend/internal/feed"
	"github.com/huddlechat/huddle/backend/internal/store"
)

// Manager owns the live sessions so HTTP handlers can address them by
// id across requests.
type Manager struct {
	store store.Store
	feed  feed.Feed
	orch  *Orchestrator

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewManager builds a manager. responder may be nil to run without AI.
func NewManager(st store.Store, fd feed.Feed, responder Responder) *Manager {
	m := &Manager{
		store:    st,
		feed:     fd,
		sessions: make(map[string]*Session),
	}
	if responder != nil {
		m.orch = NewOrchestrator(st, responder)
	}
	return m
}

// CreateRoom starts a session that creates and enters a new room.
func (m *Manager) CreateRoom(ctx context.Context, username string) (string, *Session, error) {
	s := NewSession(m.store, m.feed, m.orch)
	if err := s.Create(ctx, username); err != nil {
		return "", nil, err
	}
	return m.track(s), s, nil
}

// JoinRoom starts a session that joins an existing room by code.
func (m *Manager) JoinRoom(ctx context.Context, code, username string) (string, *Session, error) {
	s := NewSession(m.store, m.feed, m.orch)
	if err := s.Join(ctx, code, username); err != nil {
		return "", nil, err
	}
	return m.track(s), s, nil
}

// Get retrieves a session by id.
func (m *Manager) Get(id string) (*Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	return s, ok
}

// Remove forgets a session. The caller is responsible for leaving the
// room first.
func (m *Manager) Remove(id string) {
	m.mu.Lock()
	delete(m.sessions, id)
	m.mu.Unlock()
}

func (m *Manager) track(s *Session) string {
	id := uuid.NewString()
	m.mu.Lock()
	m.sessions[id] = s
	m.mu.Unlock()
	return id
}
