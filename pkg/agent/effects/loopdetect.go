package effects

import (
	"context"
	"fmt"

	"github.com/germanamz/agentry/pkg/agent"
	"github.com/germanamz/agentry/pkg/chats/message"
	"github.com/germanamz/agentry/pkg/chats/role"
)

const (
	defaultLoopThreshold = 3
	defaultLoopWindow    = 10
)

// LoopDetect warns the model when it keeps issuing the same tool call with
// the same arguments. Only the last Window calls are inspected.
type LoopDetect struct {
	Threshold int
	Window    int
}

// NewLoopDetect creates a LoopDetect effect; zero values take the defaults
// of 3 repeats in a window of 10 calls.
func NewLoopDetect(threshold, window int) *LoopDetect {
	if threshold <= 0 {
		threshold = defaultLoopThreshold
	}
	if window <= 0 {
		window = defaultLoopWindow
	}
	return &LoopDetect{Threshold: threshold, Window: window}
}

type callKey struct{ name, args string }

// Eval implements agent.Effect.
func (e *LoopDetect) Eval(_ context.Context, ic agent.IterationContext) error {
	if ic.Phase != agent.PhaseBeforeComplete || ic.Iteration == 0 {
		return nil
	}

	name, n := e.repeats(ic.Chat.Messages())
	if n < e.Threshold {
		return nil
	}

	ic.Chat.Append(message.NewText("", role.User, fmt.Sprintf(
		"You have called %s with identical arguments %d times in a row without progress. "+
			"Use the results you already have or try another approach.", name, n)))

	return nil
}

// repeats returns the most recent tool call name and how many times in a row
// it was issued with the same arguments.
func (e *LoopDetect) repeats(msgs []message.Message) (string, int) {
	var keys []callKey

	for i := len(msgs) - 1; i >= 0 && len(keys) < e.Window; i-- {
		if msgs[i].Role != role.Assistant {
			continue
		}
		calls := msgs[i].ToolCalls()
		for j := len(calls) - 1; j >= 0 && len(keys) < e.Window; j-- {
			keys = append(keys, callKey{calls[j].Name, calls[j].Arguments})
		}
	}

	if len(keys) == 0 {
		return "", 0
	}

	n := 1
	for n < len(keys) && keys[n] == keys[0] {
		n++
	}

	return keys[0].name, n
}
