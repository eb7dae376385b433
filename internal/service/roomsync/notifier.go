package roomsync

import (
	"sync"

	"github.com/huddlechat/huddle/backend/internal/model/room"
)

// UpdateKind classifies a view update pushed to subscribers.
type UpdateKind string

const (
	UpdateMessages   UpdateKind = "messages"
	UpdateMembers    UpdateKind = "members"
	UpdateRoomClosed UpdateKind = "room_closed"
)

// Update is one notification to the presentation boundary. Messages and
// Members are full snapshots of the view after the change.
type Update struct {
	Kind     UpdateKind     `json:"kind"`
	Messages []room.Message `json:"messages,omitempty"`
	Members  []room.Member  `json:"members,omitempty"`
	Notice   string         `json:"notice,omitempty"`
}

// notifier fans view updates out to registered listeners. It keeps the
// engine independent of any rendering or transport layer.
type notifier struct {
	mu   sync.Mutex
	next int
	subs map[int]func(Update)
}

func newNotifier() *notifier {
	return &notifier{subs: make(map[int]func(Update))}
}

func (n *notifier) subscribe(fn func(Update)) func() {
	n.mu.Lock()
	id := n.next
	n.next++
	n.subs[id] = fn
	n.mu.Unlock()
	return func() {
		n.mu.Lock()
		delete(n.subs, id)
		n.mu.Unlock()
	}
}

func (n *notifier) publish(u Update) {
	n.mu.Lock()
	fns := make([]func(Update), 0, len(n.subs))
	for _, fn := range n.subs {
		fns = append(fns, fn)
	}
	n.mu.Unlock()
	for _, fn := range fns {
		fn(u)
	}
}
