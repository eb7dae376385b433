package store_test

import (
	"context"
	"errors"
	"testing"

	"github.com/huddlechat/huddle/backend/internal/feed"
	"github.com/huddlechat/huddle/backend/internal/model/room"
	"github.com/huddlechat/huddle/backend/internal/store"
)

func newStore() *store.MemoryStore {
	return store.NewMemoryStore(feed.NewBroker())
}

func TestCreateRoomAssignsCodeAndAdmin(t *testing.T) {
	s := newStore()
	ctx := context.Background()

	r, err := s.CreateRoom(ctx, "alice")
	if err != nil {
		t.Fatalf("CreateRoom err: %v", err)
	}
	if len(r.Code) != 6 {
		t.Fatalf("expected 6-char code, got %q", r.Code)
	}
	if r.AdminUsername != "alice" {
		t.Fatalf("unexpected admin: %q", r.AdminUsername)
	}

	got, err := s.RoomByCode(ctx, r.Code)
	if err != nil {
		t.Fatalf("RoomByCode err: %v", err)
	}
	if got.ID != r.ID {
		t.Fatalf("room id mismatch: got %s want %s", got.ID, r.ID)
	}
}

func TestRoomByCodeIsCaseInsensitive(t *testing.T) {
	s := newStore()
	ctx := context.Background()

	r, _ := s.CreateRoom(ctx, "alice")
	// Codes are upper-case; lookups should tolerate lower-case input.
	if _, err := s.RoomByCode(ctx, "x"+r.Code); !errors.Is(err, store.ErrRoomNotFound) {
		t.Fatalf("expected ErrRoomNotFound, got %v", err)
	}
	lower := make([]byte, len(r.Code))
	for i := range r.Code {
		lower[i] = r.Code[i] | 0x20
	}
	if _, err := s.RoomByCode(ctx, string(lower)); err != nil {
		t.Fatalf("lower-case lookup err: %v", err)
	}
}

func TestInsertMessageAssignsIdentity(t *testing.T) {
	s := newStore()
	ctx := context.Background()
	r, _ := s.CreateRoom(ctx, "alice")

	m, err := s.InsertMessage(ctx, room.Message{RoomID: r.ID, Author: "alice", Content: "hi"})
	if err != nil {
		t.Fatalf("InsertMessage err: %v", err)
	}
	if m.ID == "" || m.CreatedAt.IsZero() {
		t.Fatalf("expected server-assigned identity, got %+v", m)
	}
}

func TestDeleteRoomCascades(t *testing.T) {
	s := newStore()
	ctx := context.Background()
	r, _ := s.CreateRoom(ctx, "alice")
	if _, err := s.AddMember(ctx, r.ID, "alice"); err != nil {
		t.Fatalf("AddMember err: %v", err)
	}
	if _, err := s.InsertMessage(ctx, room.Message{RoomID: r.ID, Author: "alice", Content: "hi"}); err != nil {
		t.Fatalf("InsertMessage err: %v", err)
	}

	if err := s.DeleteRoom(ctx, r.ID); err != nil {
		t.Fatalf("DeleteRoom err: %v", err)
	}
	if _, err := s.RoomByCode(ctx, r.Code); !errors.Is(err, store.ErrRoomNotFound) {
		t.Fatalf("expected room gone, got %v", err)
	}
	if _, err := s.ListMessages(ctx, r.ID); !errors.Is(err, store.ErrRoomNotFound) {
		t.Fatalf("expected messages gone, got %v", err)
	}
	if _, err := s.ListMembers(ctx, r.ID); !errors.Is(err, store.ErrRoomNotFound) {
		t.Fatalf("expected members gone, got %v", err)
	}
}

func TestDeleteRoomTwice(t *testing.T) {
	s := newStore()
	ctx := context.Background()
	r, _ := s.CreateRoom(ctx, "alice")

	if err := s.DeleteRoom(ctx, r.ID); err != nil {
		t.Fatalf("first delete err: %v", err)
	}
	if err := s.DeleteRoom(ctx, r.ID); !errors.Is(err, store.ErrRoomNotFound) {
		t.Fatalf("expected ErrRoomNotFound on second delete, got %v", err)
	}
}

func TestMemberExists(t *testing.T) {
	s := newStore()
	ctx := context.Background()
	r, _ := s.CreateRoom(ctx, "alice")
	if _, err := s.AddMember(ctx, r.ID, "alice"); err != nil {
		t.Fatalf("AddMember err: %v", err)
	}

	taken, err := s.MemberExists(ctx, r.ID, "alice")
	if err != nil || !taken {
		t.Fatalf("expected alice present, got %v %v", taken, err)
	}
	taken, err = s.MemberExists(ctx, r.ID, "bob")
	if err != nil || taken {
		t.Fatalf("expected bob absent, got %v %v", taken, err)
	}
}

func TestRemoveMember(t *testing.T) {
	s := newStore()
	ctx := context.Background()
	r, _ := s.CreateRoom(ctx, "alice")
	m, _ := s.AddMember(ctx, r.ID, "bob")

	if err := s.RemoveMember(ctx, r.ID, m.ID); err != nil {
		t.Fatalf("RemoveMember err: %v", err)
	}
	if err := s.RemoveMember(ctx, r.ID, m.ID); !errors.Is(err, store.ErrMemberNotFound) {
		t.Fatalf("expected ErrMemberNotFound, got %v", err)
	}
}

func TestInsertEventsReachFeed(t *testing.T) {
	broker := feed.NewBroker()
	s := store.NewMemoryStore(broker)
	ctx := context.Background()
	r, _ := s.CreateRoom(ctx, "alice")

	sub, _ := broker.Subscribe(r.ID)
	defer sub.Close()

	if _, err := s.InsertMessage(ctx, room.Message{RoomID: r.ID, Author: "alice", Content: "hi"}); err != nil {
		t.Fatalf("InsertMessage err: %v", err)
	}

	ev := <-sub.C()
	if ev.Entity != feed.EntityMessage || ev.Op != feed.OpInsert {
		t.Fatalf("unexpected event: %+v", ev)
	}
	m, err := room.MessageFromRow(ev.Payload)
	if err != nil {
		t.Fatalf("payload decode err: %v", err)
	}
	if m.Content != "hi" {
		t.Fatalf("unexpected payload: %+v", m)
	}
}
