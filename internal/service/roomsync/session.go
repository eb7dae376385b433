package roomsync

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/huddlechat/huddle/backend/internal/feed"
	"github.com/huddlechat/huddle/backend/internal/metrics"
	"github.com/huddlechat/huddle/backend/internal/model/room"
	"github.com/huddlechat/huddle/backend/internal/store"
)

const roomClosedNotice = "Room has been closed by the admin"

// Session is one client's live view of a room: identity, message store
// and roster, plus the lifecycle of the change feed subscription that
// keeps them current. A session holds at most one room at a time, and
// the previous subscription is torn down before a new one is opened.
type Session struct {
	store store.Store
	feed  feed.Feed
	orch  *Orchestrator

	notifier *notifier
	messages *MessageStore
	roster   *Roster

	mu       sync.Mutex
	roomID   string
	roomCode string
	username string
	memberID string
	isAdmin  bool
	sub      *feed.Subscription

	aiWG sync.WaitGroup
}

// NewSession wires a session to its collaborators. orch may be nil when
// no inference backend is configured; mentions are then plain messages.
func NewSession(st store.Store, fd feed.Feed, orch *Orchestrator) *Session {
	return &Session{
		store:    st,
		feed:     fd,
		orch:     orch,
		notifier: newNotifier(),
		messages: NewMessageStore(),
		roster:   NewRoster(),
	}
}

// View is a consistent snapshot of the session for the presentation
// boundary.
type View struct {
	RoomID   string         `json:"roomId"`
	RoomCode string         `json:"roomCode"`
	Username string         `json:"username"`
	IsAdmin  bool           `json:"isAdmin"`
	Messages []room.Message `json:"messages"`
	Members  []room.Member  `json:"members"`
}

// Create allocates a new room with the caller as admin and first member.
func (s *Session) Create(ctx context.Context, username string) error {
	username = strings.TrimSpace(username)
	if username == "" {
		return ErrUsernameRequired
	}

	r, err := s.store.CreateRoom(ctx, username)
	if err != nil {
		return fmt.Errorf("create room: %w", err)
	}
	self, err := s.store.AddMember(ctx, r.ID, username)
	if err != nil {
		// Nobody ever entered this room; don't leave it behind.
		if derr := s.store.DeleteRoom(ctx, r.ID); derr != nil {
			log.Warn().Err(derr).Str("room_id", r.ID).Msg("orphaned room cleanup failed")
		}
		return fmt.Errorf("add creator: %w", err)
	}
	return s.enter(ctx, r, self, true)
}

// Join enters an existing room by code. The username must not already
// be present among the room's members; the check is advisory, not
// transactional with the insert.
func (s *Session) Join(ctx context.Context, code, username string) error {
	code = strings.ToUpper(strings.TrimSpace(code))
	username = strings.TrimSpace(username)
	if code == "" {
		return ErrCodeRequired
	}
	if username == "" {
		return ErrUsernameRequired
	}

	r, err := s.store.RoomByCode(ctx, code)
	if errors.Is(err, store.ErrRoomNotFound) {
		return ErrRoomNotFound
	}
	if err != nil {
		return fmt.Errorf("look up room: %w", err)
	}

	taken, err := s.store.MemberExists(ctx, r.ID, username)
	if err != nil {
		return fmt.Errorf("check username: %w", err)
	}
	if taken {
		return ErrUsernameTaken
	}

	self, err := s.store.AddMember(ctx, r.ID, username)
	if err != nil {
		return fmt.Errorf("add member: %w", err)
	}
	return s.enter(ctx, r, self, username == r.AdminUsername)
}

// Send persists a message and echoes the canonical record into the
// local view without waiting for the feed. When the content is an AI
// mention, the reply is produced asynchronously after the human message
// is committed; its eventual outcome never affects this call.
func (s *Session) Send(ctx context.Context, content, replyToID string) error {
	if strings.TrimSpace(content) == "" {
		return ErrContentRequired
	}

	s.mu.Lock()
	roomID, roomCode, username := s.roomID, s.roomCode, s.username
	s.mu.Unlock()
	if roomID == "" {
		return ErrNoActiveRoom
	}

	persisted, err := s.store.InsertMessage(ctx, room.Message{
		RoomID:    roomID,
		Author:    username,
		Content:   content,
		ReplyToID: replyToID,
	})
	if err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	s.absorb(roomID, persisted, "optimistic")

	if prompt, ok := ExtractPrompt(content); ok && s.orch != nil {
		s.aiWG.Add(1)
		go func() {
			defer s.aiWG.Done()
			// Teardown does not cancel the call; a reply for a dead
			// room is discarded by the roomID guard in absorb.
			reply, err := s.orch.Respond(context.WithoutCancel(ctx), roomID, roomCode, prompt, persisted.ID)
			if err != nil {
				log.Warn().Err(err).Str("room_id", roomID).Msg("ai reply dropped")
				return
			}
			s.absorb(roomID, reply, "ai")
		}()
	}
	return nil
}

// Leave exits the current room. The admin leaving deletes the room for
// everyone; any other member only removes their own membership. Local
// state is cleared immediately either way.
func (s *Session) Leave(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.roomID == "" {
		return ErrNoActiveRoom
	}

	var err error
	if s.isAdmin {
		err = s.store.DeleteRoom(ctx, s.roomID)
	} else {
		err = s.store.RemoveMember(ctx, s.roomID, s.memberID)
	}
	s.teardownLocked()
	if err != nil {
		return fmt.Errorf("leave room: %w", err)
	}
	return nil
}

// Subscribe registers a listener for view updates and returns its
// cancel function.
func (s *Session) Subscribe(fn func(Update)) func() {
	return s.notifier.subscribe(fn)
}

// Active reports whether the session currently holds a room.
func (s *Session) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.roomID != ""
}

// View returns a snapshot of the current session state.
func (s *Session) View() View {
	s.mu.Lock()
	v := View{
		RoomID:   s.roomID,
		RoomCode: s.roomCode,
		Username: s.username,
		IsAdmin:  s.isAdmin,
	}
	s.mu.Unlock()
	v.Messages = s.messages.Messages()
	v.Members = s.roster.Members()
	return v
}

// Messages returns the visible message sequence.
func (s *Session) Messages() []room.Message { return s.messages.Messages() }

// Members returns the present members.
func (s *Session) Members() []room.Member { return s.roster.Members() }

// enter installs the room, opens the feed subscription and loads the
// initial batches. The subscription is established before the load so
// no insert can fall between the two, but the pump only starts after
// both Load calls: Load replaces the local state, so an event folded in
// earlier would be wiped. Events raised during the load wait in the
// subscription buffer and the idempotent folds absorb any overlap with
// the snapshots.
func (s *Session) enter(ctx context.Context, r room.Room, self room.Member, isAdmin bool) error {
	s.mu.Lock()
	if s.roomID != "" {
		s.teardownLocked()
	}
	sub, err := s.feed.Subscribe(r.ID)
	if err != nil {
		s.mu.Unlock()
		return fmt.Errorf("subscribe to feed: %w", err)
	}
	s.sub = sub
	s.roomID = r.ID
	s.roomCode = r.Code
	s.username = self.Username
	s.memberID = self.ID
	s.isAdmin = isAdmin
	metrics.SessionsActive.Inc()
	s.mu.Unlock()

	msgs, err := s.store.ListMessages(ctx, r.ID)
	if err != nil {
		log.Warn().Err(err).Str("room_id", r.ID).Msg("initial message load failed")
	} else {
		s.messages.Load(msgs)
	}
	members, err := s.store.ListMembers(ctx, r.ID)
	if err != nil {
		log.Warn().Err(err).Str("room_id", r.ID).Msg("initial member load failed")
	} else {
		s.roster.Load(members)
	}
	go s.pump(sub)

	log.Info().Str("room_id", r.ID).Str("code", r.Code).Str("username", self.Username).
		Bool("admin", isAdmin).Msg("entered room")
	return nil
}

func (s *Session) pump(sub *feed.Subscription) {
	for ev := range sub.C() {
		s.apply(ev)
	}
}

// apply folds one feed event into the view. Every event is checked
// against the session's current roomID first; events racing a teardown
// are dropped here.
func (s *Session) apply(ev feed.Event) {
	var updates []Update

	s.mu.Lock()
	if s.roomID == "" || s.roomID != ev.RoomID {
		s.mu.Unlock()
		return
	}

	switch {
	case ev.Entity == feed.EntityMessage && ev.Op == feed.OpInsert:
		m, err := room.MessageFromRow(ev.Payload)
		if err != nil {
			log.Debug().Err(err).Msg("discarding malformed message event")
			break
		}
		if s.messages.Append(m) {
			metrics.MessagesAppended.WithLabelValues("feed").Inc()
			updates = append(updates, Update{Kind: UpdateMessages, Messages: s.messages.Messages()})
		}
	case ev.Entity == feed.EntityMember && ev.Op == feed.OpInsert:
		m, err := room.MemberFromRow(ev.Payload)
		if err != nil {
			log.Debug().Err(err).Msg("discarding malformed member event")
			break
		}
		if s.roster.Add(m) {
			updates = append(updates, Update{Kind: UpdateMembers, Members: s.roster.Members()})
		}
	case ev.Entity == feed.EntityMember && ev.Op == feed.OpDelete:
		id, err := room.IDFromRow(ev.Payload)
		if err == nil && s.roster.Remove(id) {
			updates = append(updates, Update{Kind: UpdateMembers, Members: s.roster.Members()})
		}
	case ev.Entity == feed.EntityRoom && ev.Op == feed.OpDelete:
		id, err := room.IDFromRow(ev.Payload)
		if err == nil && id == s.roomID {
			s.teardownLocked()
			updates = append(updates, Update{Kind: UpdateRoomClosed, Notice: roomClosedNotice})
		}
	}
	s.mu.Unlock()

	for _, u := range updates {
		s.notifier.publish(u)
	}
}

// absorb appends a locally-produced canonical message into the view,
// unless the room changed while the write was in flight.
func (s *Session) absorb(roomID string, m room.Message, path string) {
	s.mu.Lock()
	if s.roomID != roomID {
		s.mu.Unlock()
		return
	}
	added := s.messages.Append(m)
	var snapshot []room.Message
	if added {
		metrics.MessagesAppended.WithLabelValues(path).Inc()
		snapshot = s.messages.Messages()
	}
	s.mu.Unlock()

	if added {
		s.notifier.publish(Update{Kind: UpdateMessages, Messages: snapshot})
	}
}

// teardownLocked closes the subscription and clears all room state.
// Callers hold s.mu. Safe to call when no room is active.
func (s *Session) teardownLocked() {
	if s.roomID == "" {
		return
	}
	if s.sub != nil {
		s.sub.Close()
		s.sub = nil
	}
	log.Info().Str("room_id", s.roomID).Str("username", s.username).Msg("left room")
	s.roomID = ""
	s.roomCode = ""
	s.username = ""
	s.memberID = ""
	s.isAdmin = false
	s.messages.Clear()
	s.roster.Clear()
	metrics.SessionsActive.Dec()
}
