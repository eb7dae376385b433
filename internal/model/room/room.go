package room

import "time"

// Room is a short-lived chat room addressed by a join code.
type Room struct {
	ID            string    `json:"id"`
	Code          string    `json:"code"`
	AdminUsername string    `json:"adminUsername"`
	CreatedAt     time.Time `json:"createdAt"`
}

// Member records one participant's presence in a room.
type Member struct {
	ID       string    `json:"id"`
	RoomID   string    `json:"roomId"`
	Username string    `json:"username"`
	JoinedAt time.Time `json:"joinedAt"`
}
