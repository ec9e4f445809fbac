package reactor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/germanamz/agentry/pkg/chats/chat"
	"github.com/germanamz/agentry/pkg/chats/message"
	"github.com/germanamz/agentry/pkg/chats/role"
	"github.com/germanamz/agentry/pkg/modeladapter"
)

// Finish is the route a supervisor answers with when the request is done.
const Finish = "FINISH"

// DefaultSupervisorRounds bounds routing when SupervisorOptions.MaxRounds is
// zero.
const DefaultSupervisorRounds = 10

// SupervisorOptions configures a Supervisor.
type SupervisorOptions struct {
	MaxRounds int // Member runs allowed per team run (0 = DefaultSupervisorRounds).
	Logger    *slog.Logger
}

// Supervisor is a Coordinator that asks the model which worker acts next.
// The model sees the whole shared conversation and answers with
// {"next": "<worker>"} or {"next": "FINISH"}.
type Supervisor struct {
	completer modeladapter.Completer
	maxRounds int
	rounds    int
	logger    *slog.Logger
}

// NewSupervisor creates a Supervisor routing with completer.
func NewSupervisor(completer modeladapter.Completer, opts SupervisorOptions) *Supervisor {
	if opts.MaxRounds <= 0 {
		opts.MaxRounds = DefaultSupervisorRounds
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	return &Supervisor{
		completer: completer,
		maxRounds: opts.MaxRounds,
		logger:    opts.Logger,
	}
}

var errInvalidRoute = errors.New("invalid route")

type route struct {
	Next string `json:"next"`
}

// Next routes to a single member or finishes. The round counter resets when
// the supervisor finishes so the team can be run again.
func (s *Supervisor) Next(ctx context.Context, shared *chat.Chat, members []TeamMember) (Selection, error) {
	conv := chat.New(message.NewText("", role.System, SupervisorPrompt(memberNames(members))))
	conv.Append(shared.Messages()...)

	next, err := s.route(ctx, conv, members)
	if errors.Is(err, errInvalidRoute) {
		conv.Append(message.NewText("", role.User, fmt.Sprintf(
			"Invalid response: %v. Respond with ONLY a JSON object like {\"next\": %q} naming one of the workers or %s.",
			err, members[0].Agent.Name(), Finish)))

		next, err = s.route(ctx, conv, members)
	}
	if err != nil {
		s.rounds = 0
		return Selection{}, fmt.Errorf("reactor: supervisor: %w", err)
	}

	s.logger.DebugContext(ctx, "supervisor routed", "next", next, "round", s.rounds)

	if next < 0 {
		s.rounds = 0
		return Selection{Done: true}, nil
	}

	if s.rounds >= s.maxRounds {
		s.rounds = 0
		return Selection{}, ErrMaxRounds
	}
	s.rounds++

	return Selection{Members: []int{next}}, nil
}

// route asks the model once and resolves its answer to a member index, or
// -1 for FINISH. The reply is kept in conv so a retry sees it.
func (s *Supervisor) route(ctx context.Context, conv *chat.Chat, members []TeamMember) (int, error) {
	reply, err := s.completer.Complete(ctx, conv, nil)
	if err != nil {
		return 0, err
	}

	conv.Append(message.NewText("supervisor", role.Assistant, reply.TextContent()))

	var r route
	if err := modeladapter.ParseJSON(reply.TextContent(), &r); err != nil {
		return 0, fmt.Errorf("%w: %v", errInvalidRoute, err)
	}

	next := strings.TrimSpace(r.Next)
	if strings.EqualFold(next, Finish) {
		return -1, nil
	}

	for i, m := range members {
		if m.Agent.Name() == next {
			return i, nil
		}
	}

	return 0, fmt.Errorf("%w: unknown worker %q", errInvalidRoute, next)
}

// SupervisorPrompt is the system prompt listing the workers a supervisor
// routes between.
func SupervisorPrompt(members []string) string {
	quoted := make([]string, len(members))
	for i, m := range members {
		quoted[i] = "'" + m + "'"
	}

	return "You are a supervisor tasked with managing a conversation between the" +
		" following workers: [" + strings.Join(quoted, ", ") + "]. Given the following user request," +
		" respond with the worker to act next. Each worker will perform a" +
		" task and respond with their results and status. When finished," +
		" respond with FINISH.\n\n" +
		"Respond with ONLY a JSON object and no other text: {\"next\": \"<worker name or FINISH>\"}"
}

func memberNames(members []TeamMember) []string {
	names := make([]string, len(members))
	for i, m := range members {
		names[i] = m.Agent.Name()
	}
	return names
}
