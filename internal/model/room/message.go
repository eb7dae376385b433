package room

import "time"

// Message is one immutable chat entry. ReplyTo is resolved in memory
// against the messages currently held by a session's view; it is never
// persisted and may stay nil when the referenced message is not held.
type Message struct {
	ID        string    `json:"id"`
	RoomID    string    `json:"roomId"`
	Author    string    `json:"author"`
	Content   string    `json:"content"`
	ReplyToID string    `json:"replyToId,omitempty"`
	IsAI      bool      `json:"isAi"`
	CreatedAt time.Time `json:"createdAt"`
	ReplyTo   *Message  `json:"replyTo,omitempty"`
}
