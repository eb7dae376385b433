package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/huddlechat/huddle/backend/internal/feed"
	"github.com/huddlechat/huddle/backend/internal/model/room"
)

// SQLiteStore persists rooms, members and messages in a local SQLite
// database. Like MemoryStore it publishes committed changes to the feed;
// the file is the durable record, the feed is the live one.
type SQLiteStore struct {
	db  *sql.DB
	pub feed.Publisher
}

// NewSQLiteStore opens (creating if needed) the database at dbPath.
func NewSQLiteStore(ctx context.Context, dbPath string, pub feed.Publisher) (*SQLiteStore, error) {
	if dbPath == "" {
		dbPath = "./data/huddle.db"
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}

	s := &SQLiteStore{db: db, pub: pub}
	if err := s.initSchema(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) initSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS rooms (
		id TEXT PRIMARY KEY,
		code TEXT UNIQUE NOT NULL,
		admin_username TEXT NOT NULL,
		created_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS room_members (
		id TEXT PRIMARY KEY,
		room_id TEXT NOT NULL REFERENCES rooms(id) ON DELETE CASCADE,
		username TEXT NOT NULL,
		joined_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS messages (
		id TEXT PRIMARY KEY,
		room_id TEXT NOT NULL REFERENCES rooms(id) ON DELETE CASCADE,
		username TEXT NOT NULL,
		content TEXT NOT NULL,
		reply_to_id TEXT,
		is_ai INTEGER NOT NULL DEFAULT 0,
		created_at DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_members_room ON room_members(room_id);
	CREATE INDEX IF NOT EXISTS idx_messages_room_created ON messages(room_id, created_at);
	`
	_, err := s.db.ExecContext(ctx, schema)
	return err
}

// CreateRoom allocates a fresh code and records the creator as admin.
func (s *SQLiteStore) CreateRoom(ctx context.Context, adminUsername string) (room.Room, error) {
	for range codeAttempts {
		code, err := newRoomCode()
		if err != nil {
			return room.Room{}, err
		}
		r := room.Room{
			ID:            uuid.NewString(),
			Code:          code,
			AdminUsername: adminUsername,
			CreatedAt:     time.Now().UTC(),
		}
		_, err = s.db.ExecContext(ctx, `
			INSERT INTO rooms (id, code, admin_username, created_at)
			VALUES (?, ?, ?, ?)
		`, r.ID, r.Code, r.AdminUsername, r.CreatedAt)
		if err != nil {
			if strings.Contains(err.Error(), "UNIQUE constraint failed: rooms.code") {
				continue
			}
			return room.Room{}, fmt.Errorf("create room: %w", err)
		}
		return r, nil
	}
	return room.Room{}, ErrCodeExhausted
}

// RoomByCode looks a room up by its join code, case-insensitively.
func (s *SQLiteStore) RoomByCode(ctx context.Context, code string) (room.Room, error) {
	var r room.Room
	err := s.db.QueryRowContext(ctx, `
		SELECT id, code, admin_username, created_at FROM rooms WHERE code = ?
	`, strings.ToUpper(code)).Scan(&r.ID, &r.Code, &r.AdminUsername, &r.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return room.Room{}, ErrRoomNotFound
	}
	if err != nil {
		return room.Room{}, fmt.Errorf("room by code: %w", err)
	}
	return r, nil
}

// DeleteRoom removes the room; members and messages go with it via the
// foreign-key cascade.
func (s *SQLiteStore) DeleteRoom(ctx context.Context, roomID string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM rooms WHERE id = ?`, roomID)
	if err != nil {
		return fmt.Errorf("delete room: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrRoomNotFound
	}
	s.pub.Publish(feed.Event{
		Entity:  feed.EntityRoom,
		Op:      feed.OpDelete,
		RoomID:  roomID,
		Payload: map[string]any{"id": roomID},
	})
	return nil
}

// AddMember inserts a membership row for the room.
func (s *SQLiteStore) AddMember(ctx context.Context, roomID, username string) (room.Member, error) {
	m := room.Member{
		ID:       uuid.NewString(),
		RoomID:   roomID,
		Username: username,
		JoinedAt: time.Now().UTC(),
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO room_members (id, room_id, username, joined_at)
		VALUES (?, ?, ?, ?)
	`, m.ID, m.RoomID, m.Username, m.JoinedAt)
	if err != nil {
		if strings.Contains(err.Error(), "FOREIGN KEY constraint failed") {
			return room.Member{}, ErrRoomNotFound
		}
		return room.Member{}, fmt.Errorf("add member: %w", err)
	}
	s.pub.Publish(feed.Event{
		Entity:  feed.EntityMember,
		Op:      feed.OpInsert,
		RoomID:  roomID,
		Payload: room.MemberRow(m),
	})
	return m, nil
}

// RemoveMember deletes a membership row by id.
func (s *SQLiteStore) RemoveMember(ctx context.Context, roomID, memberID string) error {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM room_members WHERE id = ? AND room_id = ?
	`, memberID, roomID)
	if err != nil {
		return fmt.Errorf("remove member: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrMemberNotFound
	}
	s.pub.Publish(feed.Event{
		Entity:  feed.EntityMember,
		Op:      feed.OpDelete,
		RoomID:  roomID,
		Payload: map[string]any{"id": memberID, "room_id": roomID},
	})
	return nil
}

// MemberExists reports whether a username is already present in a room.
func (s *SQLiteStore) MemberExists(ctx context.Context, roomID, username string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(1) FROM room_members WHERE room_id = ? AND username = ?
	`, roomID, username).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("member exists: %w", err)
	}
	return n > 0, nil
}

// ListMembers returns the room's members in join order.
func (s *SQLiteStore) ListMembers(ctx context.Context, roomID string) ([]room.Member, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, room_id, username, joined_at FROM room_members
		WHERE room_id = ? ORDER BY joined_at
	`, roomID)
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	defer rows.Close()

	var out []room.Member
	for rows.Next() {
		var m room.Member
		if err := rows.Scan(&m.ID, &m.RoomID, &m.Username, &m.JoinedAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// InsertMessage assigns id and timestamp, commits the message and
// publishes it on the feed.
func (s *SQLiteStore) InsertMessage(ctx context.Context, m room.Message) (room.Message, error) {
	m.ID = uuid.NewString()
	m.CreatedAt = time.Now().UTC()
	m.ReplyTo = nil

	var replyTo sql.NullString
	if m.ReplyToID != "" {
		replyTo = sql.NullString{String: m.ReplyToID, Valid: true}
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO messages (id, room_id, username, content, reply_to_id, is_ai, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, m.ID, m.RoomID, m.Author, m.Content, replyTo, m.IsAI, m.CreatedAt)
	if err != nil {
		if strings.Contains(err.Error(), "FOREIGN KEY constraint failed") {
			return room.Message{}, ErrRoomNotFound
		}
		return room.Message{}, fmt.Errorf("insert message: %w", err)
	}
	s.pub.Publish(feed.Event{
		Entity:  feed.EntityMessage,
		Op:      feed.OpInsert,
		RoomID:  m.RoomID,
		Payload: room.MessageRow(m),
	})
	return m, nil
}

// ListMessages returns the room's messages ordered by creation time.
func (s *SQLiteStore) ListMessages(ctx context.Context, roomID string) ([]room.Message, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, room_id, username, content, reply_to_id, is_ai, created_at
		FROM messages WHERE room_id = ? ORDER BY created_at
	`, roomID)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	defer rows.Close()

	var out []room.Message
	for rows.Next() {
		var m room.Message
		var replyTo sql.NullString
		if err := rows.Scan(&m.ID, &m.RoomID, &m.Author, &m.Content, &replyTo, &m.IsAI, &m.CreatedAt); err != nil {
			return nil, err
		}
		m.ReplyToID = replyTo.String
		out = append(out, m)
	}
	return out, rows.Err()
}

// Close releases the underlying database handle.
func (s *SQLiteStore) Close() error { return s.db.Close() }
