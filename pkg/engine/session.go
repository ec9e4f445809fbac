package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/germanamz/agentry/pkg/chats/chat"
	"github.com/germanamz/agentry/pkg/chats/message"
	"github.com/germanamz/agentry/pkg/chats/role"
	"github.com/germanamz/agentry/pkg/reactor"
)

type sessionIDKey struct{}

func withSessionID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, sessionIDKey{}, id)
}

func sessionIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(sessionIDKey{}).(string)
	return id, ok
}

// Session represents one conversation with an agent or a team. Only one Send
// call may be active at a time.
type Session struct {
	id     string
	member reactor.Member
	events *EventBus

	mu     sync.Mutex
	active bool
}

func newSession(id string, m reactor.Member, events *EventBus) *Session {
	return &Session{
		id:     id,
		member: m,
		events: events,
	}
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// Name returns the name of the agent or team behind the session.
func (s *Session) Name() string { return s.member.Name() }

// Chat returns the underlying conversation. For teams this is the shared
// chat.
func (s *Session) Chat() *chat.Chat { return s.member.Chat() }

// Send appends text as a user message and runs the agent or team. Only one
// Send may be active per session.
func (s *Session) Send(ctx context.Context, text string) (message.Message, error) {
	if err := s.acquire(); err != nil {
		return message.Message{}, err
	}
	defer s.release()

	ctx = withSessionID(ctx, s.id)
	s.publish(EventAgentStart, nil)

	if in, ok := s.member.(interface{ Init() }); ok {
		in.Init()
	}
	s.member.Chat().Append(message.NewText("user", role.User, text))

	reply, err := s.member.Run(ctx)
	if err != nil {
		s.publish(EventError, err)
		s.publish(EventAgentEnd, nil)
		return message.Message{}, err
	}

	s.publish(EventReply, reply)
	s.publish(EventAgentEnd, nil)

	return reply, nil
}

func (s *Session) publish(kind EventKind, data any) {
	s.events.Publish(Event{
		Kind:      kind,
		SessionID: s.id,
		Agent:     s.member.Name(),
		Timestamp: time.Now(),
		Data:      data,
	})
}

func (s *Session) acquire() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.active {
		return fmt.Errorf("engine: session %s: another Send is already active", s.id)
	}
	s.active = true
	return nil
}

func (s *Session) release() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.active = false
}
