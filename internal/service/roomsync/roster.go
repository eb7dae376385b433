package roomsync

import (
	"sync"

	"github.com/huddlechat/huddle/backend/internal/model/room"
)

// Roster tracks the members currently present in the active room.
// Adds are idempotent by member id, mirroring MessageStore's merge rule.
type Roster struct {
	mu    sync.RWMutex
	byID  map[string]struct{}
	order []room.Member
}

// NewRoster returns an empty roster.
func NewRoster() *Roster {
	return &Roster{byID: make(map[string]struct{})}
}

// Load replaces the roster contents with an initial batch.
func (r *Roster) Load(batch []room.Member) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID = make(map[string]struct{}, len(batch))
	r.order = append([]room.Member(nil), batch...)
	for _, m := range r.order {
		r.byID[m.ID] = struct{}{}
	}
}

// Add inserts a member unless the id is already present.
func (r *Roster) Add(m room.Member) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.byID[m.ID]; exists {
		return false
	}
	r.byID[m.ID] = struct{}{}
	r.order = append(r.order, m)
	return true
}

// Remove deletes a member by id.
func (r *Roster) Remove(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.byID[id]; !exists {
		return false
	}
	delete(r.byID, id)
	for i, m := range r.order {
		if m.ID == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return true
}

// Members returns the present members in join order.
func (r *Roster) Members() []room.Member {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]room.Member(nil), r.order...)
}

// Clear drops all members. Used only on room teardown.
func (r *Roster) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID = make(map[string]struct{})
	r.order = nil
}
