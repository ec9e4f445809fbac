package effects

import (
	"context"

	"github.com/germanamz/agentry/pkg/agent"
	"github.com/germanamz/agentry/pkg/chats/content"
	"github.com/germanamz/agentry/pkg/chats/role"
)

const (
	defaultMaxResultChars = 4000
	defaultKeepRecent     = 2
	trimmedKey            = "trimmed"
	trimMarker            = "\n...[truncated]..."
)

// TrimResults shortens old tool results, such as scraped pages or file
// contents, once the model has seen them. The newest KeepRecent tool messages
// and error results are never touched.
type TrimResults struct {
	MaxChars   int
	KeepRecent int
}

// NewTrimResults creates a TrimResults effect. maxChars <= 0 means 4000 and
// keepRecent < 0 means 2.
func NewTrimResults(maxChars, keepRecent int) *TrimResults {
	if maxChars <= 0 {
		maxChars = defaultMaxResultChars
	}
	if keepRecent < 0 {
		keepRecent = defaultKeepRecent
	}
	return &TrimResults{MaxChars: maxChars, KeepRecent: keepRecent}
}

// Eval implements agent.Effect. It runs after each model reply.
func (e *TrimResults) Eval(_ context.Context, ic agent.IterationContext) error {
	if ic.Phase != agent.PhaseAfterComplete {
		return nil
	}

	msgs := ic.Chat.Messages()

	var toolIdx []int
	for i, m := range msgs {
		if m.Role == role.Tool {
			toolIdx = append(toolIdx, i)
		}
	}

	cut := max(len(toolIdx)-e.KeepRecent, 0)
	changed := false

	for _, i := range toolIdx[:cut] {
		if _, done := msgs[i].GetMeta(trimmedKey); done {
			continue
		}

		parts := make([]content.Part, len(msgs[i].Parts))
		copy(parts, msgs[i].Parts)

		trimmed := false
		for j, p := range parts {
			tr, ok := p.(content.ToolResult)
			if !ok || tr.IsError || len(tr.Content) <= e.MaxChars {
				continue
			}
			tr.Content = tr.Content[:e.MaxChars] + trimMarker
			parts[j] = tr
			trimmed = true
		}

		if trimmed {
			msgs[i].Parts = parts
			msgs[i].SetMeta(trimmedKey, true)
			changed = true
		}
	}

	if changed {
		ic.Chat.Replace(msgs...)
	}

	return nil
}
