package effects

import (
	"context"
	"fmt"

	"github.com/germanamz/agentry/pkg/agent"
	"github.com/germanamz/agentry/pkg/chats/message"
	"github.com/germanamz/agentry/pkg/chats/role"
)

const defaultFailureThreshold = 2

// Reflection injects a reflection prompt once the model has produced
// Threshold consecutive rounds of failing tool calls. Zero means 2.
type Reflection struct {
	Threshold int
}

// NewReflection creates a Reflection effect.
func NewReflection(threshold int) *Reflection {
	if threshold <= 0 {
		threshold = defaultFailureThreshold
	}
	return &Reflection{Threshold: threshold}
}

// Eval implements agent.Effect. It runs before each model call except the
// first.
func (e *Reflection) Eval(_ context.Context, ic agent.IterationContext) error {
	if ic.Phase != agent.PhaseBeforeComplete || ic.Iteration == 0 {
		return nil
	}

	n := failingRounds(ic.Chat.Messages())
	if n < e.Threshold {
		return nil
	}

	ic.Chat.Append(message.NewText("", role.User, fmt.Sprintf(
		"Your last %d tool calls failed. Before calling another tool, reread the error messages "+
			"and the tool descriptions, check argument names and types, and decide whether a "+
			"different tool or different arguments would work.", n)))

	return nil
}

// failingRounds counts tool messages at the tail of msgs whose results are
// all errors. Assistant messages in between are skipped; anything else stops
// the count.
func failingRounds(msgs []message.Message) int {
	n := 0

	for i := len(msgs) - 1; i >= 0; i-- {
		switch msgs[i].Role {
		case role.Assistant:
			continue
		case role.Tool:
		default:
			return n
		}

		results := msgs[i].ToolResults()
		if len(results) == 0 {
			return n
		}
		for _, r := range results {
			if !r.IsError {
				return n
			}
		}
		n++
	}

	return n
}
