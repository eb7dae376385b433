package room

import (
	"fmt"
	"time"
)

// The change feed and the storage layer hand over loosely-typed rows.
// Conversion into the typed entities above happens here, at the
// collaborator boundary; nothing deeper in the core touches raw rows.

// MessageFromRow validates and converts a feed payload into a Message.
func MessageFromRow(row map[string]any) (Message, error) {
	id, err := stringField(row, "id", true)
	if err != nil {
		return Message{}, err
	}
	roomID, err := stringField(row, "room_id", true)
	if err != nil {
		return Message{}, err
	}
	author, err := stringField(row, "username", true)
	if err != nil {
		return Message{}, err
	}
	content, err := stringField(row, "content", false)
	if err != nil {
		return Message{}, err
	}
	replyTo, err := stringField(row, "reply_to_id", false)
	if err != nil {
		return Message{}, err
	}
	createdAt, err := timeField(row, "created_at")
	if err != nil {
		return Message{}, err
	}

	return Message{
		ID:        id,
		RoomID:    roomID,
		Author:    author,
		Content:   content,
		ReplyToID: replyTo,
		IsAI:      boolField(row, "is_ai"),
		CreatedAt: createdAt,
	}, nil
}

// MemberFromRow validates and converts a feed payload into a Member.
func MemberFromRow(row map[string]any) (Member, error) {
	id, err := stringField(row, "id", true)
	if err != nil {
		return Member{}, err
	}
	roomID, err := stringField(row, "room_id", true)
	if err != nil {
		return Member{}, err
	}
	username, err := stringField(row, "username", true)
	if err != nil {
		return Member{}, err
	}
	joinedAt, err := timeField(row, "joined_at")
	if err != nil {
		return Member{}, err
	}

	return Member{ID: id, RoomID: roomID, Username: username, JoinedAt: joinedAt}, nil
}

// IDFromRow extracts the primary key from a payload, used for delete
// events where only the removed row's identity matters.
func IDFromRow(row map[string]any) (string, error) {
	return stringField(row, "id", true)
}

// MessageRow flattens a Message into the wire representation published
// on the change feed.
func MessageRow(m Message) map[string]any {
	row := map[string]any{
		"id":         m.ID,
		"room_id":    m.RoomID,
		"username":   m.Author,
		"content":    m.Content,
		"is_ai":      m.IsAI,
		"created_at": m.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
	if m.ReplyToID != "" {
		row["reply_to_id"] = m.ReplyToID
	}
	return row
}

// MemberRow flattens a Member into the wire representation published on
// the change feed.
func MemberRow(m Member) map[string]any {
	return map[string]any{
		"id":        m.ID,
		"room_id":   m.RoomID,
		"username":  m.Username,
		"joined_at": m.JoinedAt.UTC().Format(time.RFC3339Nano),
	}
}

func stringField(row map[string]any, key string, required bool) (string, error) {
	raw, ok := row[key]
	if !ok || raw == nil {
		if required {
			return "", fmt.Errorf("row missing %q", key)
		}
		return "", nil
	}
	val, ok := raw.(string)
	if !ok {
		return "", fmt.Errorf("row field %q is not a string", key)
	}
	if required && val == "" {
		return "", fmt.Errorf("row field %q is empty", key)
	}
	return val, nil
}

func boolField(row map[string]any, key string) bool {
	val, _ := row[key].(bool)
	return val
}

func timeField(row map[string]any, key string) (time.Time, error) {
	raw, ok := row[key]
	if !ok || raw == nil {
		return time.Time{}, fmt.Errorf("row missing %q", key)
	}
	switch val := raw.(type) {
	case time.Time:
		return val, nil
	case string:
		parsed, err := time.Parse(time.RFC3339Nano, val)
		if err != nil {
			return time.Time{}, fmt.Errorf("row field %q: %w", key, err)
		}
		return parsed, nil
	default:
		return time.Time{}, fmt.Errorf("row field %q is not a timestamp", key)
	}
}
