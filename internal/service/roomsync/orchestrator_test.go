package roomsync

import (
	"context"
	"errors"
	"testing"
)

func TestOrchestratorPersistsReply(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	r, _ := f.store.CreateRoom(ctx, "alice")

	orch := NewOrchestrator(f.store, f.responder)
	reply, err := orch.Respond(ctx, r.ID, r.Code, "what is 2+2", "origin-1")
	if err != nil {
		t.Fatalf("Respond err: %v", err)
	}
	if reply.Content != "4" || !reply.IsAI || reply.Author != AssistantUsername {
		t.Fatalf("unexpected reply: %+v", reply)
	}
	if reply.ReplyToID != "origin-1" {
		t.Fatalf("reply must thread onto the origin, got %q", reply.ReplyToID)
	}
	if reply.ID == "" || reply.CreatedAt.IsZero() {
		t.Fatal("reply must carry server-assigned identity")
	}
}

func TestOrchestratorFallbackOnError(t *testing.T) {
	f := newFixture()
	f.responder.err = errors.New("boom")
	ctx := context.Background()
	r, _ := f.store.CreateRoom(ctx, "alice")

	orch := NewOrchestrator(f.store, f.responder)
	reply, err := orch.Respond(ctx, r.ID, r.Code, "anything", "origin-1")
	if err != nil {
		t.Fatalf("Respond must recover from inference failure: %v", err)
	}
	if reply.Content != fallbackText {
		t.Fatalf("expected fallback text, got %q", reply.Content)
	}
	if reply.ReplyToID != "origin-1" {
		t.Fatalf("fallback must keep the reply thread, got %q", reply.ReplyToID)
	}
}

func TestOrchestratorFallbackOnBlankReply(t *testing.T) {
	f := newFixture()
	f.responder.reply = "   "
	ctx := context.Background()
	r, _ := f.store.CreateRoom(ctx, "alice")

	orch := NewOrchestrator(f.store, f.responder)
	reply, err := orch.Respond(ctx, r.ID, r.Code, "anything", "origin-1")
	if err != nil {
		t.Fatalf("Respond err: %v", err)
	}
	if reply.Content != emptyReplyText {
		t.Fatalf("expected empty-reply text, got %q", reply.Content)
	}
}

func TestOrchestratorErrorWhenRoomGone(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	orch := NewOrchestrator(f.store, f.responder)
	if _, err := orch.Respond(ctx, "no-such-room", "XXXXXX", "anything", "origin-1"); err == nil {
		t.Fatal("expected persistence error for a deleted room")
	}
}
