package reactor

import (
	"context"
	"errors"

	"github.com/germanamz/agentry/pkg/chats/chat"
)

// ErrMaxRounds is returned when a coordinator exceeds its round limit.
var ErrMaxRounds = errors.New("reactor: max rounds reached")

// Scripted coordinators route without a model. They suit fixed pipelines,
// such as a writer followed by a reviewer, and tests.

// SequenceCoordinator runs each member once in order, then finishes.
type SequenceCoordinator struct {
	next int
}

// NewSequence creates a SequenceCoordinator.
func NewSequence() *SequenceCoordinator {
	return &SequenceCoordinator{}
}

// Next implements Coordinator.
func (s *SequenceCoordinator) Next(_ context.Context, _ *chat.Chat, members []TeamMember) (Selection, error) {
	if s.next >= len(members) {
		s.next = 0
		return Selection{Done: true}, nil
	}

	s.next++
	return pick(s.next - 1), nil
}

// LoopCoordinator cycles through the members. maxRounds counts full passes
// over the team; zero means no limit.
type LoopCoordinator struct {
	turns turnCounter
}

// NewLoop creates a LoopCoordinator.
func NewLoop(maxRounds int) *LoopCoordinator {
	return &LoopCoordinator{turns: turnCounter{maxRounds: maxRounds}}
}

// Next implements Coordinator.
func (l *LoopCoordinator) Next(_ context.Context, _ *chat.Chat, members []TeamMember) (Selection, error) {
	return l.turns.advance(len(members))
}

// RoundRobinUntilCoordinator cycles through the members until done reports
// true for the shared chat.
type RoundRobinUntilCoordinator struct {
	done  func(*chat.Chat) bool
	turns turnCounter
}

// NewRoundRobinUntil creates a RoundRobinUntilCoordinator. maxRounds bounds
// the passes over the team as in NewLoop.
func NewRoundRobinUntil(maxRounds int, done func(*chat.Chat) bool) *RoundRobinUntilCoordinator {
	return &RoundRobinUntilCoordinator{done: done, turns: turnCounter{maxRounds: maxRounds}}
}

// Next implements Coordinator.
func (r *RoundRobinUntilCoordinator) Next(_ context.Context, shared *chat.Chat, members []TeamMember) (Selection, error) {
	if r.done(shared) {
		r.turns.step = 0
		return Selection{Done: true}, nil
	}

	return r.turns.advance(len(members))
}

// turnCounter hands out member indices round robin.
type turnCounter struct {
	maxRounds int
	step      int
}

func (t *turnCounter) advance(n int) (Selection, error) {
	if n == 0 {
		return Selection{Done: true}, nil
	}
	if t.maxRounds > 0 && t.step >= t.maxRounds*n {
		t.step = 0
		return Selection{}, ErrMaxRounds
	}

	idx := t.step % n
	t.step++
	return pick(idx), nil
}

func pick(idx int) Selection {
	return Selection{Members: []int{idx}}
}
