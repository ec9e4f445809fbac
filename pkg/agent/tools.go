package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"

	"github.com/germanamz/agentry/pkg/chats/message"
	"github.com/germanamz/agentry/pkg/chats/role"
	"github.com/germanamz/agentry/pkg/tools/toolbox"
)

const delegatePrefix = "delegate_to_"

var delegateSchema = json.RawMessage(`{"type":"object","properties":{"task":{"type":"string","description":"The task for the agent, phrased as a complete request"},"context":{"type":"string","description":"Optional background the agent needs: previous findings, constraints, file names"}},"required":["task"]}`)

// DelegateToolName returns the tool name under which an agent is exposed.
func DelegateToolName(agentName string) string {
	return delegatePrefix + agentName
}

type delegateInput struct {
	Task    string `json:"task"`
	Context string `json:"context"`
}

// DelegationToolBox exposes the agents in r, except those named in skip, as
// delegate_to_<name> tools. A call spawns a fresh agent, hands it the task
// and returns its answer. Agents registered after the call are not included.
func DelegationToolBox(r *Registry, skip ...string) *toolbox.ToolBox {
	tb := toolbox.New()

	for _, e := range r.List() {
		if slices.Contains(skip, e.Name) {
			continue
		}
		tb.Register(delegateTool(e, func(ctx context.Context, in delegateInput) (string, error) {
			child, ok := r.Spawn(e.Name)
			if !ok {
				return "", fmt.Errorf("agent %q not found", e.Name)
			}

			return runChild(ctx, child, in)
		}))
	}

	return tb
}

func delegateTool(e Entry, run func(context.Context, delegateInput) (string, error)) toolbox.Tool {
	name := DelegateToolName(e.Name)

	return toolbox.Tool{
		Name:        name,
		Description: fmt.Sprintf("Delegate a task to the %s agent. %s", e.Name, e.Description),
		InputSchema: delegateSchema,
		Handler: func(ctx context.Context, input json.RawMessage) (string, error) {
			var in delegateInput
			if err := toolbox.Decode(name, input, &in); err != nil {
				return "", err
			}

			if in.Task == "" {
				return "", fmt.Errorf("%s: task is required", name)
			}

			return run(ctx, in)
		},
	}
}

func runChild(ctx context.Context, child *Agent, in delegateInput) (string, error) {
	child.Init()

	if in.Context != "" {
		child.chat.Append(message.NewText("user", role.User,
			"<delegation_context>\n"+in.Context+"\n</delegation_context>"))
	}

	reply, err := child.Invoke(ctx, in.Task)
	if errors.Is(err, ErrMaxIterations) {
		return "", fmt.Errorf("agent %q exhausted its iteration limit without completing the task", child.name)
	}
	if err != nil {
		return "", err
	}

	return reply, nil
}
