package roomsync

import (
	"sort"
	"sync"

	"github.com/huddlechat/huddle/backend/internal/metrics"
	"github.com/huddlechat/huddle/backend/internal/model/room"
)

// MessageStore is the session's reconciliation point for messages. Two
// independent paths write into it — the optimistic echo after a local
// send and the change feed — and the id-keyed idempotent Append is what
// keeps the merged view free of duplicates, whichever path wins.
type MessageStore struct {
	mu    sync.RWMutex
	byID  map[string]int
	order []room.Message
}

// NewMessageStore returns an empty store.
func NewMessageStore() *MessageStore {
	return &MessageStore{byID: make(map[string]int)}
}

// Load replaces the store contents with an initial batch, ordered by
// creation time. Replies are resolved within the batch only; a reply
// target outside the batch stays unresolved and is never retried.
func (s *MessageStore) Load(batch []room.Message) {
	sorted := append([]room.Message(nil), batch...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].CreatedAt.Before(sorted[j].CreatedAt)
	})

	s.mu.Lock()
	defer s.mu.Unlock()
	s.byID = make(map[string]int, len(sorted))
	s.order = sorted
	for i := range s.order {
		s.order[i].ReplyTo = nil
		s.byID[s.order[i].ID] = i
	}
	for i := range s.order {
		s.order[i].ReplyTo = s.lookupLocked(s.order[i].ReplyToID)
	}
}

// Append inserts a message unless its id is already present. The reply
// reference is resolved best-effort against the current snapshot. The
// return value reports whether the message was actually added.
func (s *MessageStore) Append(m room.Message) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.byID[m.ID]; exists {
		metrics.MessagesDeduplicated.Inc()
		return false
	}
	m.ReplyTo = s.lookupLocked(m.ReplyToID)
	s.byID[m.ID] = len(s.order)
	s.order = append(s.order, m)
	return true
}

// Get returns the message with the given id, if held.
func (s *MessageStore) Get(id string) (room.Message, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	idx, ok := s.byID[id]
	if !ok {
		return room.Message{}, false
	}
	return s.order[idx], true
}

// Messages returns the visible sequence: load order by creation time,
// later arrivals appended in arrival order.
func (s *MessageStore) Messages() []room.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]room.Message(nil), s.order...)
}

// Len reports the number of held messages.
func (s *MessageStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.order)
}

// Clear drops all messages. Used only on room teardown.
func (s *MessageStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byID = make(map[string]int)
	s.order = nil
}

func (s *MessageStore) lookupLocked(id string) *room.Message {
	if id == "" {
		return nil
	}
	idx, ok := s.byID[id]
	if !ok {
		return nil
	}
	// The target's own ReplyTo was resolved when it arrived, so the copy
	// carries the whole chain.
	target := s.order[idx]
	return &target
}
