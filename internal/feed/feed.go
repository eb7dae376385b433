package feed

// Entity names the table a change event originated from.
type Entity string

const (
	EntityMessage Entity = "message"
	EntityMember  Entity = "member"
	EntityRoom    Entity = "room"
)

// Op is the row-level operation an event describes.
type Op string

const (
	OpInsert Op = "insert"
	OpDelete Op = "delete"
)

// Event is one row-level change notification. Payload carries the raw
// row; consumers convert it into typed entities at their boundary.
type Event struct {
	Entity  Entity
	Op      Op
	RoomID  string
	Payload map[string]any
}

// Feed delivers change events scoped to a single room.
type Feed interface {
	Subscribe(roomID string) (*Subscription, error)
}

// Publisher is the write side of the feed, used by storage layers to
// announce committed changes.
type Publisher interface {
	Publish(ev Event)
}
