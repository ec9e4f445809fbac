// Package message defines the Message exchanged between agents, tools and
// models.
package message

import (
	"strings"

	"github.com/germanamz/agentry/pkg/chats/content"
	"github.com/germanamz/agentry/pkg/chats/role"
)

// Message is a single conversation entry. It is a value type.
type Message struct {
	Sender   string
	Role     role.Role
	Parts    []content.Part
	Metadata map[string]any
}

// New creates a message from the given parts.
func New(sender string, r role.Role, parts ...content.Part) Message {
	return Message{
		Sender: sender,
		Role:   r,
		Parts:  parts,
	}
}

// NewText creates a message holding one Text part.
func NewText(sender string, r role.Role, text string) Message {
	return New(sender, r, content.Text{Text: text})
}

// TextContent concatenates all Text parts.
func (m Message) TextContent() string {
	var b strings.Builder
	for _, p := range m.Parts {
		if t, ok := p.(content.Text); ok {
			b.WriteString(t.Text)
		}
	}
	return b.String()
}

// ToolCalls returns the ToolCall parts in the order the model produced them.
func (m Message) ToolCalls() []content.ToolCall {
	var calls []content.ToolCall
	for _, p := range m.Parts {
		if tc, ok := p.(content.ToolCall); ok {
			calls = append(calls, tc)
		}
	}
	return calls
}

// ToolResults returns the ToolResult parts of the message.
func (m Message) ToolResults() []content.ToolResult {
	var results []content.ToolResult
	for _, p := range m.Parts {
		if tr, ok := p.(content.ToolResult); ok {
			results = append(results, tr)
		}
	}
	return results
}

// SetMeta sets a metadata key, allocating the map on first use.
func (m *Message) SetMeta(key string, value any) {
	if m.Metadata == nil {
		m.Metadata = make(map[string]any)
	}
	m.Metadata[key] = value
}

// GetMeta returns a metadata value by key.
func (m Message) GetMeta(key string) (any, bool) {
	if m.Metadata == nil {
		return nil, false
	}
	v, ok := m.Metadata[key]
	return v, ok
}
