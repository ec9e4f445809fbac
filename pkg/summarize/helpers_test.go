package summarize

import (
	"context"
	"sync"

	"github.com/germanamz/agentry/pkg/chats/chat"
	"github.com/germanamz/agentry/pkg/chats/message"
	"github.com/germanamz/agentry/pkg/chats/role"
	"github.com/germanamz/agentry/pkg/modeladapter"
	"github.com/germanamz/agentry/pkg/tools/toolbox"
)

// scripted answers each call by its system prompt and records the calls.
type scripted struct {
	mu    sync.Mutex
	fn    func(system, prompt string, n int) (string, error)
	calls []call
}

type call struct {
	system string
	prompt string
}

func newScripted(fn func(system, prompt string, n int) (string, error)) *scripted {
	return &scripted{fn: fn}
}

func (s *scripted) Complete(_ context.Context, c *chat.Chat, _ []toolbox.Tool) (message.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	last, _ := c.Last()
	cl := call{system: c.SystemPrompt(), prompt: last.TextContent()}

	n := 0
	for _, prev := range s.calls {
		if prev.system == cl.system {
			n++
		}
	}
	s.calls = append(s.calls, cl)

	out, err := s.fn(cl.system, cl.prompt, n)
	if err != nil {
		return message.Message{}, err
	}

	return message.NewText("model", role.Assistant, out), nil
}

func (s *scripted) count(system string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for _, c := range s.calls {
		if c.system == system {
			n++
		}
	}
	return n
}

func (s *scripted) prompts(system string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []string
	for _, c := range s.calls {
		if c.system == system {
			out = append(out, c.prompt)
		}
	}
	return out
}

var _ modeladapter.Completer = (*scripted)(nil)
