package roomsync

import "errors"

var (
	ErrUsernameRequired = errors.New("username is required")
	ErrCodeRequired     = errors.New("room code is required")
	ErrContentRequired  = errors.New("message content is required")
	ErrRoomNotFound     = errors.New("room not found")
	ErrUsernameTaken    = errors.New("username already taken in this room")
	ErrNoActiveRoom     = errors.New("no active room")
)
