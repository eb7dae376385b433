package feed

import (
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/huddlechat/huddle/backend/internal/metrics"
)

const subscriptionBuffer = 64

// Broker is the in-process change feed: storage layers publish committed
// row changes, sessions subscribe per room. Delivery is best-effort; a
// subscriber that cannot keep up loses events rather than blocking the
// publisher.
type Broker struct {
	mu   sync.RWMutex
	subs map[string][]*Subscription
}

// NewBroker returns an empty broker.
func NewBroker() *Broker {
	return &Broker{subs: make(map[string][]*Subscription)}
}

// Subscription is one room-scoped event stream. Close is idempotent and
// guarantees no event is observable on C after it returns.
type Subscription struct {
	broker *Broker
	roomID string
	ch     chan Event
	once   sync.Once
}

// C returns the event channel. It is closed when the subscription ends.
func (s *Subscription) C() <-chan Event { return s.ch }

// Close detaches the subscription from the broker and closes C.
func (s *Subscription) Close() {
	s.once.Do(func() {
		s.broker.remove(s)
		close(s.ch)
	})
}

// Subscribe registers a listener for all events of the given room.
func (b *Broker) Subscribe(roomID string) (*Subscription, error) {
	sub := &Subscription{
		broker: b,
		roomID: roomID,
		ch:     make(chan Event, subscriptionBuffer),
	}
	b.mu.Lock()
	b.subs[roomID] = append(b.subs[roomID], sub)
	b.mu.Unlock()
	return sub, nil
}

// Publish fans an event out to every subscription of its room.
func (b *Broker) Publish(ev Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, sub := range b.subs[ev.RoomID] {
		select {
		case sub.ch <- ev:
		default:
			metrics.FeedEventsDropped.Inc()
			log.Warn().
				Str("room_id", ev.RoomID).
				Str("entity", string(ev.Entity)).
				Msg("feed subscriber backlogged, event dropped")
		}
	}
}

func (b *Broker) remove(sub *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()
	subs := b.subs[sub.roomID]
	for i, candidate := range subs {
		if candidate == sub {
			b.subs[sub.roomID] = append(subs[:i], subs[i+1:]...)
			break
		}
	}
	if len(b.subs[sub.roomID]) == 0 {
		delete(b.subs, sub.roomID)
	}
}
