package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/huddlechat/huddle/backend/internal/feed"
	"github.com/huddlechat/huddle/backend/internal/model/room"
)

const codeAttempts = 5

// MemoryStore keeps all room state in process, suitable for development
// and tests. Committed changes are published to the supplied feed.
type MemoryStore struct {
	mu       sync.RWMutex
	rooms    map[string]room.Room
	byCode   map[string]string
	members  map[string][]room.Member
	messages map[string][]room.Message
	pub      feed.Publisher
}

// NewMemoryStore returns an empty in-memory store publishing to pub.
func NewMemoryStore(pub feed.Publisher) *MemoryStore {
	return &MemoryStore{
		rooms:    make(map[string]room.Room),
		byCode:   make(map[string]string),
		members:  make(map[string][]room.Member),
		messages: make(map[string][]room.Message),
		pub:      pub,
	}
}

// CreateRoom allocates a fresh code and records the creator as admin.
func (s *MemoryStore) CreateRoom(_ context.Context, adminUsername string) (room.Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for range codeAttempts {
		code, err := newRoomCode()
		if err != nil {
			return room.Room{}, err
		}
		if _, taken := s.byCode[code]; taken {
			continue
		}
		r := room.Room{
			ID:            uuid.NewString(),
			Code:          code,
			AdminUsername: adminUsername,
			CreatedAt:     time.Now().UTC(),
		}
		s.rooms[r.ID] = r
		s.byCode[code] = r.ID
		s.members[r.ID] = nil
		s.messages[r.ID] = nil
		return r, nil
	}
	return room.Room{}, ErrCodeExhausted
}

// RoomByCode looks a room up by its join code, case-insensitively.
func (s *MemoryStore) RoomByCode(_ context.Context, code string) (room.Room, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byCode[strings.ToUpper(code)]
	if !ok {
		return room.Room{}, ErrRoomNotFound
	}
	return s.rooms[id], nil
}

// DeleteRoom removes the room with all members and messages, then
// announces the deletion on the feed.
func (s *MemoryStore) DeleteRoom(_ context.Context, roomID string) error {
	s.mu.Lock()
	r, ok := s.rooms[roomID]
	if ok {
		delete(s.rooms, roomID)
		delete(s.byCode, r.Code)
		delete(s.members, roomID)
		delete(s.messages, roomID)
	}
	s.mu.Unlock()

	if !ok {
		return ErrRoomNotFound
	}
	s.pub.Publish(feed.Event{
		Entity:  feed.EntityRoom,
		Op:      feed.OpDelete,
		RoomID:  roomID,
		Payload: map[string]any{"id": roomID},
	})
	return nil
}

// AddMember inserts a membership row for the room.
func (s *MemoryStore) AddMember(_ context.Context, roomID, username string) (room.Member, error) {
	s.mu.Lock()
	if _, ok := s.rooms[roomID]; !ok {
		s.mu.Unlock()
		return room.Member{}, ErrRoomNotFound
	}
	m := room.Member{
		ID:       uuid.NewString(),
		RoomID:   roomID,
		Username: username,
		JoinedAt: time.Now().UTC(),
	}
	s.members[roomID] = append(s.members[roomID], m)
	s.mu.Unlock()

	s.pub.Publish(feed.Event{
		Entity:  feed.EntityMember,
		Op:      feed.OpInsert,
		RoomID:  roomID,
		Payload: room.MemberRow(m),
	})
	return m, nil
}

// RemoveMember deletes a membership row by id.
func (s *MemoryStore) RemoveMember(_ context.Context, roomID, memberID string) error {
	s.mu.Lock()
	members := s.members[roomID]
	idx := -1
	for i, m := range members {
		if m.ID == memberID {
			idx = i
			break
		}
	}
	if idx >= 0 {
		s.members[roomID] = append(members[:idx], members[idx+1:]...)
	}
	s.mu.Unlock()

	if idx < 0 {
		return ErrMemberNotFound
	}
	s.pub.Publish(feed.Event{
		Entity:  feed.EntityMember,
		Op:      feed.OpDelete,
		RoomID:  roomID,
		Payload: map[string]any{"id": memberID, "room_id": roomID},
	})
	return nil
}

// MemberExists reports whether a username is already present in a room.
func (s *MemoryStore) MemberExists(_ context.Context, roomID, username string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, m := range s.members[roomID] {
		if m.Username == username {
			return true, nil
		}
	}
	return false, nil
}

// ListMembers returns the room's members in join order.
func (s *MemoryStore) ListMembers(_ context.Context, roomID string) ([]room.Member, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.rooms[roomID]; !ok {
		return nil, ErrRoomNotFound
	}
	return append([]room.Member(nil), s.members[roomID]...), nil
}

// InsertMessage assigns id and timestamp, commits the message and
// publishes it on the feed. The returned copy is the canonical record.
func (s *MemoryStore) InsertMessage(_ context.Context, m room.Message) (room.Message, error) {
	s.mu.Lock()
	if _, ok := s.rooms[m.RoomID]; !ok {
		s.mu.Unlock()
		return room.Message{}, ErrRoomNotFound
	}
	m.ID = uuid.NewString()
	m.CreatedAt = time.Now().UTC()
	m.ReplyTo = nil
	s.messages[m.RoomID] = append(s.messages[m.RoomID], m)
	s.mu.Unlock()

	s.pub.Publish(feed.Event{
		Entity:  feed.EntityMessage,
		Op:      feed.OpInsert,
		RoomID:  m.RoomID,
		Payload: room.MessageRow(m),
	})
	return m, nil
}

// ListMessages returns the room's messages ordered by creation time.
func (s *MemoryStore) ListMessages(_ context.Context, roomID string) ([]room.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.rooms[roomID]; !ok {
		return nil, ErrRoomNotFound
	}
	out := append([]room.Message(nil), s.messages[roomID]...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

// Close is a no-op for the in-memory store.
func (s *MemoryStore) Close() error { return nil }
