// Package agent provides the tool-calling agent loop: the model is called with
// the conversation and the declared tools, requested tools are executed, their
// results are fed back, and the cycle repeats until the model answers without
// tool calls.
package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/germanamz/agentry/pkg/chats/chat"
	"github.com/germanamz/agentry/pkg/chats/content"
	"github.com/germanamz/agentry/pkg/chats/message"
	"github.com/germanamz/agentry/pkg/chats/role"
	"github.com/germanamz/agentry/pkg/modeladapter"
	"github.com/germanamz/agentry/pkg/tools/toolbox"
)

// DefaultMaxIterations bounds the loop when Options.MaxIterations is zero.
const DefaultMaxIterations = 25

// ErrMaxIterations is returned when the loop exceeds MaxIterations without
// the model producing a final answer.
var ErrMaxIterations = errors.New("agent: max iterations reached")

// Options configures an Agent.
type Options struct {
	MaxIterations int          // Loop limit (0 = DefaultMaxIterations).
	Middleware    []Middleware // Applied around Run().
	Effects       []Effect     // Per-iteration hooks.
	Metrics       *Metrics     // Optional tool call counters.
	Logger        *slog.Logger // Defaults to slog.Default().
}

// Agent pairs a completer with a fixed set of tools.
type Agent struct {
	name         string
	description  string
	instructions string
	completer    modeladapter.Completer
	chat         *chat.Chat
	toolboxes    []*toolbox.ToolBox
	options      Options
}

// New creates an Agent with the given configuration.
func New(name, description, instructions string, completer modeladapter.Completer, opts Options) *Agent {
	if opts.MaxIterations <= 0 {
		opts.MaxIterations = DefaultMaxIterations
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	return &Agent{
		name:         name,
		description:  description,
		instructions: instructions,
		completer:    completer,
		chat:         chat.New(),
		options:      opts,
	}
}

// Init appends the system prompt unless the chat already has one.
func (a *Agent) Init() {
	if a.chat.SystemPrompt() == "" {
		a.chat.Append(message.NewText(a.name, role.System, a.buildSystemPrompt()))
	}
}

// Name returns the agent's name.
func (a *Agent) Name() string { return a.name }

// Description returns the agent's description.
func (a *Agent) Description() string { return a.description }

// Chat returns the agent's chat.
func (a *Agent) Chat() *chat.Chat { return a.chat }

// Completer returns the agent's completer.
func (a *Agent) Completer() modeladapter.Completer { return a.completer }

// AddToolBoxes adds toolboxes to the agent.
func (a *Agent) AddToolBoxes(tbs ...*toolbox.ToolBox) {
	a.toolboxes = append(a.toolboxes, tbs...)
}

// Tools returns the declarations sent to the model, in toolbox order.
func (a *Agent) Tools() []toolbox.Tool {
	return declared(a.toolboxes)
}

func declared(tbs []*toolbox.ToolBox) []toolbox.Tool {
	var tools []toolbox.Tool
	for _, tb := range tbs {
		tools = append(tools, tb.Tools()...)
	}
	return tools
}

// Reset drops the conversation. The system prompt is rebuilt on the next run.
func (a *Agent) Reset() {
	a.chat = chat.New()
}

// Invoke appends prompt as a user message, runs the loop and returns the
// reply text.
func (a *Agent) Invoke(ctx context.Context, prompt string) (string, error) {
	a.Init()
	a.chat.Append(message.NewText("user", role.User, prompt))

	reply, err := a.Run(ctx)
	if err != nil {
		return "", err
	}

	return reply.TextContent(), nil
}

// Run executes the loop with middleware applied.
func (a *Agent) Run(ctx context.Context) (message.Message, error) {
	return Chain(RunnerFunc(a.run), a.options.Middleware...).Run(ctx)
}

func (a *Agent) run(ctx context.Context) (message.Message, error) {
	a.Init()

	toolboxes := a.toolboxes
	tools := declared(toolboxes)

	for i := range a.options.MaxIterations {
		reply, err := a.iterate(ctx, i, tools)
		if err != nil {
			return message.Message{}, err
		}

		calls := reply.ToolCalls()
		if len(calls) == 0 {
			return reply, nil
		}
		a.execTools(ctx, toolboxes, calls)
	}

	return message.Message{}, ErrMaxIterations
}

// iterate is one model round trip bracketed by the effects.
func (a *Agent) iterate(ctx context.Context, i int, tools []toolbox.Tool) (message.Message, error) {
	ic := IterationContext{
		Phase:     PhaseBeforeComplete,
		Iteration: i,
		Chat:      a.chat,
		Completer: a.completer,
		AgentName: a.name,
	}
	if err := a.evalEffects(ctx, ic); err != nil {
		return message.Message{}, err
	}

	reply, err := a.completer.Complete(ctx, a.chat, tools)
	if err != nil {
		return message.Message{}, fmt.Errorf("agent %s: %w", a.name, err)
	}
	reply.Sender = a.name
	a.chat.Append(reply)

	ic.Phase = PhaseAfterComplete
	return reply, a.evalEffects(ctx, ic)
}

// execTools runs calls in order, appending one tool message per result.
func (a *Agent) execTools(ctx context.Context, toolboxes []*toolbox.ToolBox, calls []content.ToolCall) {
	for _, tc := range calls {
		result := callTool(ctx, toolboxes, tc)
		a.options.Metrics.observeTool(a.name, tc.Name, result.IsError)
		if result.IsError {
			a.options.Logger.DebugContext(ctx, "tool failed", "agent", a.name, "tool", tc.Name, "error", result.Content)
		}
		a.chat.Append(message.New(a.name, role.Tool, result))
	}
}

func (a *Agent) evalEffects(ctx context.Context, ic IterationContext) error {
	for _, e := range a.options.Effects {
		if err := e.Eval(ctx, ic); err != nil {
			return fmt.Errorf("agent %s: effect %s: %w", a.name, ic.Phase, err)
		}
	}
	return nil
}

// buildSystemPrompt uses the instructions verbatim when present and falls
// back to a short identity line.
func (a *Agent) buildSystemPrompt() string {
	var b strings.Builder

	if a.instructions != "" {
		b.WriteString(a.instructions)
	} else {
		fmt.Fprintf(&b, "You are %s.", a.name)
		if a.description != "" {
			fmt.Fprintf(&b, " %s", a.description)
		}
	}

	return b.String()
}

// callTool dispatches tc to the first toolbox declaring it.
func callTool(ctx context.Context, toolboxes []*toolbox.ToolBox, tc content.ToolCall) content.ToolResult {
	for _, tb := range toolboxes {
		if _, ok := tb.Get(tc.Name); ok {
			return tb.Call(ctx, tc)
		}
	}

	return content.ToolResult{
		ToolCallID: tc.ID,
		Content:    toolbox.UnknownToolMessage,
		IsError:    true,
	}
}
