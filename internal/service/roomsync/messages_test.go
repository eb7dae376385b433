package roomsync_test

import (
	"testing"
	"time"

	"github.com/huddlechat/huddle/backend/internal/model/room"
	"github.com/huddlechat/huddle/backend/internal/service/roomsync"
)

func msg(id string, createdAt int64) room.Message {
	return room.Message{
		ID:        id,
		RoomID:    "r1",
		Author:    "alice",
		Content:   "msg " + id,
		CreatedAt: time.Unix(createdAt, 0).UTC(),
	}
}

func TestLoadSortsByCreatedAt(t *testing.T) {
	s := roomsync.NewMessageStore()
	s.Load([]room.Message{msg("m1", 1), msg("m3", 3), msg("m2", 2)})

	got := s.Messages()
	if len(got) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(got))
	}
	for i, want := range []string{"m1", "m2", "m3"} {
		if got[i].ID != want {
			t.Fatalf("position %d: got %s want %s", i, got[i].ID, want)
		}
	}
}

func TestLoadResolvesRepliesWithinBatch(t *testing.T) {
	s := roomsync.NewMessageStore()
	parent := msg("m1", 1)
	child := msg("m2", 2)
	child.ReplyToID = "m1"
	orphan := msg("m3", 3)
	orphan.ReplyToID = "missing"

	s.Load([]room.Message{child, parent, orphan})

	got := s.Messages()
	if got[1].ReplyTo == nil || got[1].ReplyTo.ID != "m1" {
		t.Fatalf("expected m2 reply resolved to m1, got %+v", got[1].ReplyTo)
	}
	if got[2].ReplyTo != nil {
		t.Fatalf("expected orphan reply unresolved, got %+v", got[2].ReplyTo)
	}
}

func TestAppendIsIdempotentByID(t *testing.T) {
	s := roomsync.NewMessageStore()
	m := msg("m1", 1)

	if !s.Append(m) {
		t.Fatal("first append should insert")
	}
	for range 5 {
		if s.Append(m) {
			t.Fatal("repeated append must be a no-op")
		}
	}
	if s.Len() != 1 {
		t.Fatalf("expected exactly one entry, got %d", s.Len())
	}
}

func TestAppendResolvesAgainstCurrentSnapshot(t *testing.T) {
	s := roomsync.NewMessageStore()
	s.Load([]room.Message{msg("m1", 1)})

	reply := msg("m2", 2)
	reply.ReplyToID = "m1"
	s.Append(reply)

	got, ok := s.Get("m2")
	if !ok || got.ReplyTo == nil || got.ReplyTo.ID != "m1" {
		t.Fatalf("expected resolved reply, got %+v", got)
	}

	// A reply target arriving later is never backfilled.
	early := msg("m4", 4)
	early.ReplyToID = "m3"
	s.Append(early)
	s.Append(msg("m3", 3))

	got, _ = s.Get("m4")
	if got.ReplyTo != nil {
		t.Fatalf("expected no backfill, got %+v", got.ReplyTo)
	}
}

func TestAppendKeepsNestedReplyChain(t *testing.T) {
	s := roomsync.NewMessageStore()
	s.Append(msg("m1", 1))

	second := msg("m2", 2)
	second.ReplyToID = "m1"
	s.Append(second)

	third := msg("m3", 3)
	third.ReplyToID = "m2"
	s.Append(third)

	got, _ := s.Get("m3")
	if got.ReplyTo == nil || got.ReplyTo.ID != "m2" {
		t.Fatalf("expected m3 reply resolved to m2, got %+v", got.ReplyTo)
	}
	if got.ReplyTo.ReplyTo == nil || got.ReplyTo.ReplyTo.ID != "m1" {
		t.Fatalf("expected nested reply to reach m1, got %+v", got.ReplyTo.ReplyTo)
	}
}

func TestAppendsKeepArrivalOrder(t *testing.T) {
	s := roomsync.NewMessageStore()
	s.Load([]room.Message{msg("m1", 10)})

	// Arrival order wins over created_at for post-load appends.
	s.Append(msg("m2", 5))
	s.Append(msg("m3", 1))

	got := s.Messages()
	for i, want := range []string{"m1", "m2", "m3"} {
		if got[i].ID != want {
			t.Fatalf("position %d: got %s want %s", i, got[i].ID, want)
		}
	}
}

func TestClearEmptiesStore(t *testing.T) {
	s := roomsync.NewMessageStore()
	s.Load([]room.Message{msg("m1", 1), msg("m2", 2)})
	s.Clear()

	if s.Len() != 0 {
		t.Fatalf("expected empty store, got %d", s.Len())
	}
	if _, ok := s.Get("m1"); ok {
		t.Fatal("expected m1 gone after clear")
	}
	if !s.Append(msg("m1", 1)) {
		t.Fatal("append after clear should insert")
	}
}
