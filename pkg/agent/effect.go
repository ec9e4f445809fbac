package agent

import (
	"context"

	"github.com/germanamz/agentry/pkg/chats/chat"
	"github.com/germanamz/agentry/pkg/modeladapter"
)

// IterationPhase is the point in an iteration at which effects run.
type IterationPhase int

const (
	PhaseBeforeComplete IterationPhase = iota // before the model call
	PhaseAfterComplete                        // after the reply, before its tool calls run
)

func (p IterationPhase) String() string {
	if p == PhaseAfterComplete {
		return "after_complete"
	}
	return "before_complete"
}

// IterationContext is what an effect may see and touch of the running
// agent. Effects steer the loop by appending to Chat.
type IterationContext struct {
	Phase     IterationPhase
	Iteration int // zero based
	Chat      *chat.Chat
	Completer modeladapter.Completer
	AgentName string
}

// Effect hooks into every iteration of the tool loop. Effects run in the
// order given in Options.Effects; an error stops the run.
type Effect interface {
	Eval(ctx context.Context, ic IterationContext) error
}

// EffectFunc turns a function into an Effect.
type EffectFunc func(ctx context.Context, ic IterationContext) error

// Eval calls f.
func (f EffectFunc) Eval(ctx context.Context, ic IterationContext) error { return f(ctx, ic) }
