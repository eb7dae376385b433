package store

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"

	"github.com/huddlechat/huddle/backend/internal/model/room"
)

var (
	ErrRoomNotFound   = errors.New("room not found")
	ErrMemberNotFound = errors.New("member not found")
	ErrCodeExhausted  = errors.New("could not allocate a unique room code")
)

// Store is the persistence collaborator for rooms, members and messages.
// Implementations assign server-side identity (ids, timestamps) and
// publish every committed change onto the change feed.
type Store interface {
	CreateRoom(ctx context.Context, adminUsername string) (room.Room, error)
	RoomByCode(ctx context.Context, code string) (room.Room, error)
	DeleteRoom(ctx context.Context, roomID string) error

	AddMember(ctx context.Context, roomID, username string) (room.Member, error)
	RemoveMember(ctx context.Context, roomID, memberID string) error
	MemberExists(ctx context.Context, roomID, username string) (bool, error)
	ListMembers(ctx context.Context, roomID string) ([]room.Member, error)

	InsertMessage(ctx context.Context, m room.Message) (room.Message, error)
	ListMessages(ctx context.Context, roomID string) ([]room.Message, error)

	Close() error
}

// Codes skip easily-confused characters so they survive being read aloud.
const codeAlphabet = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"
const codeLength = 6

func newRoomCode() (string, error) {
	buf := make([]byte, codeLength)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate room code: %w", err)
	}
	for i, b := range buf {
		buf[i] = codeAlphabet[int(b)%len(codeAlphabet)]
	}
	return string(buf), nil
}
