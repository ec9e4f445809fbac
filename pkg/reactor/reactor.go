// Package reactor runs a team of members over a shared conversation. Each
// member keeps its own private chat; the reactor copies new shared messages
// into it using a per-member cursor. A Coordinator decides who acts next,
// and selecting several members runs them concurrently.
package reactor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/germanamz/agentry/pkg/agent"
	"github.com/germanamz/agentry/pkg/chats/chat"
	"github.com/germanamz/agentry/pkg/chats/message"
	"github.com/germanamz/agentry/pkg/chats/role"
)

var (
	_ Member = (*agent.Agent)(nil)
	_ Member = (*Reactor)(nil)
)

// ErrNoMembers is returned when a Reactor is created with an empty members list.
var ErrNoMembers = errors.New("reactor: at least one member is required")

// Member is anything that can take a turn in a team: it owns a private chat
// and produces one reply per run. Agents and reactors both qualify, so teams
// nest.
type Member interface {
	Name() string
	Chat() *chat.Chat
	Run(ctx context.Context) (message.Message, error)
}

// initializer is implemented by members that seed their chat, such as the
// agent's system prompt, and must do so before the first synced message.
type initializer interface {
	Init()
}

// TeamRole identifies a member's function within a team.
type TeamRole string

// TeamMember pairs a Member with its team role.
type TeamMember struct {
	Agent Member
	Role  TeamRole
}

// Selection represents the coordinator's decision.
type Selection struct {
	Members []int // Indices of members to run. Empty when Done is true.
	Done    bool
}

// Coordinator decides which team member(s) should act next.
type Coordinator interface {
	Next(ctx context.Context, shared *chat.Chat, members []TeamMember) (Selection, error)
}

// Options configures a Reactor.
type Options struct {
	Coordinator Coordinator
	Logger      *slog.Logger
}

// Reactor orchestrates members over a shared conversation. It is itself a
// Member.
type Reactor struct {
	name        string
	members     []TeamMember
	shared      *chat.Chat
	cursors     []int
	coordinator Coordinator
	logger      *slog.Logger
}

// New creates a Reactor. A nil shared chat starts empty. It returns
// ErrNoMembers if members is empty.
func New(name string, shared *chat.Chat, members []TeamMember, opts Options) (*Reactor, error) {
	if len(members) == 0 {
		return nil, ErrNoMembers
	}
	if shared == nil {
		shared = chat.New()
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	return &Reactor{
		name:        name,
		members:     members,
		shared:      shared,
		cursors:     make([]int, len(members)),
		coordinator: opts.Coordinator,
		logger:      opts.Logger,
	}, nil
}

// Name returns the reactor's name.
func (r *Reactor) Name() string { return r.name }

// Chat returns the shared chat.
func (r *Reactor) Chat() *chat.Chat { return r.shared }

// Members returns the member names in team order.
func (r *Reactor) Members() []string {
	return memberNames(r.members)
}

// Invoke appends prompt to the shared chat as a user message, runs the team
// and returns the text of the final shared message.
func (r *Reactor) Invoke(ctx context.Context, prompt string) (string, error) {
	r.shared.Append(message.NewText("user", role.User, prompt))

	reply, err := r.Run(ctx)
	if err != nil {
		return "", err
	}

	return reply.TextContent(), nil
}

// Run executes the orchestration loop. On each iteration the coordinator picks
// one or more members, new shared messages are synced to each member's private
// chat, the members run, and their replies are appended to the shared chat as
// user messages named after the member. The loop ends when the coordinator
// signals done, returning the last shared message.
func (r *Reactor) Run(ctx context.Context) (message.Message, error) {
	for {
		if err := ctx.Err(); err != nil {
			return message.Message{}, err
		}

		sel, err := r.coordinator.Next(ctx, r.shared, r.members)
		if err != nil {
			return message.Message{}, fmt.Errorf("reactor %s: coordinator: %w", r.name, err)
		}

		if sel.Done {
			r.logger.DebugContext(ctx, "team finished", "team", r.name, "messages", r.shared.Len())

			if last, ok := r.shared.Last(); ok {
				return last, nil
			}

			return message.Message{}, nil
		}

		for _, idx := range sel.Members {
			if idx < 0 || idx >= len(r.members) {
				return message.Message{}, fmt.Errorf("reactor %s: coordinator returned invalid member index %d", r.name, idx)
			}
		}

		if len(sel.Members) == 1 {
			idx := sel.Members[0]
			m := r.members[idx].Agent
			r.logger.DebugContext(ctx, "member selected", "team", r.name, "member", m.Name())
			r.syncToMember(idx)

			reply, err := m.Run(ctx)
			if err != nil {
				return message.Message{}, fmt.Errorf("reactor %s: member %q: %w", r.name, m.Name(), err)
			}

			r.shared.Append(asReport(m.Name(), reply))
			continue
		}

		if err := r.runConcurrent(ctx, sel.Members); err != nil {
			return message.Message{}, err
		}
	}
}

// runConcurrent syncs and runs several members at once. Replies are appended
// in selection order.
func (r *Reactor) runConcurrent(ctx context.Context, indices []int) error {
	for _, idx := range indices {
		r.syncToMember(idx)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	type result struct {
		reply message.Message
		err   error
	}

	results := make([]result, len(indices))

	var wg sync.WaitGroup
	for i, idx := range indices {
		wg.Go(func() {
			reply, err := r.members[idx].Agent.Run(ctx)
			results[i] = result{reply: reply, err: err}

			if err != nil {
				cancel()
			}
		})
	}
	wg.Wait()

	var firstErr error
	for i, idx := range indices {
		name := r.members[idx].Agent.Name()

		if results[i].err != nil {
			if firstErr == nil {
				firstErr = fmt.Errorf("reactor %s: member %q: %w", r.name, name, results[i].err)
			}
			continue
		}

		r.shared.Append(asReport(name, results[i].reply))
	}

	return firstErr
}

// syncToMember copies new shared messages into the member's private chat.
// The member's own messages are skipped and everything else arrives with the
// User role, keeping Sender, Parts and Metadata.
func (r *Reactor) syncToMember(idx int) {
	m := r.members[idx].Agent
	if in, ok := m.(initializer); ok {
		in.Init()
	}

	newMsgs := r.shared.Since(r.cursors[idx])

	for _, msg := range newMsgs {
		if msg.Sender == m.Name() {
			continue
		}

		m.Chat().Append(message.Message{
			Sender:   msg.Sender,
			Role:     role.User,
			Parts:    msg.Parts,
			Metadata: msg.Metadata,
		})
	}

	r.cursors[idx] += len(newMsgs)
}

// asReport turns a member's reply into the user message other members see.
// Only the text survives; tool calls stay in the member's private chat.
func asReport(name string, reply message.Message) message.Message {
	msg := message.NewText(name, role.User, reply.TextContent())
	msg.Metadata = reply.Metadata
	return msg
}
