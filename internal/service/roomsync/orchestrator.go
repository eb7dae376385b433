package roomsync

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/huddlechat/huddle/backend/internal/metrics"
	"github.com/huddlechat/huddle/backend/internal/model/room"
	"github.com/huddlechat/huddle/backend/internal/store"
)

// AssistantUsername is the fixed author identity of AI-generated replies.
const AssistantUsername = "🤖 AI"

const (
	emptyReplyText = "Couldn't process that 🤔"
	fallbackText   = "Sorry, I had trouble responding. Try again! 🔄"
)

// Responder is the inference collaborator: one prompt in, one reply out.
type Responder interface {
	Invoke(ctx context.Context, prompt, roomContext string) (string, error)
}

// Orchestrator turns a mention prompt into a persisted AI reply. A
// failed or unusable inference result is replaced with the fixed
// fallback apology rather than surfaced — the human's send already
// succeeded, and every mention gets exactly one visible reply.
type Orchestrator struct {
	store     store.Store
	responder Responder
}

// NewOrchestrator wires the orchestrator to its collaborators.
func NewOrchestrator(st store.Store, responder Responder) *Orchestrator {
	return &Orchestrator{store: st, responder: responder}
}

// Respond invokes the model once and persists the reply (or the
// fallback) threaded onto the originating message. The returned message
// is the canonical persisted record; an error means persistence failed
// and nothing was committed.
func (o *Orchestrator) Respond(ctx context.Context, roomID, roomContext, prompt, originID string) (room.Message, error) {
	metrics.AIInvocations.Inc()

	content := fallbackText
	reply, err := o.responder.Invoke(ctx, prompt, roomContext)
	switch {
	case err != nil:
		metrics.AIFailures.Inc()
		log.Warn().Err(err).Str("room_id", roomID).Msg("inference failed, using fallback reply")
	case strings.TrimSpace(reply) == "":
		metrics.AIFailures.Inc()
		content = emptyReplyText
	default:
		content = reply
	}

	persisted, err := o.store.InsertMessage(ctx, room.Message{
		RoomID:    roomID,
		Author:    AssistantUsername,
		Content:   content,
		ReplyToID: originID,
		IsAI:      true,
	})
	if err != nil {
		return room.Message{}, fmt.Errorf("persist ai reply: %w", err)
	}
	return persisted, nil
}
