package message

import (
	"testing"

	"github.com/germanamz/agentry/pkg/chats/content"
	"github.com/germanamz/agentry/pkg/chats/role"
	"github.com/stretchr/testify/assert"
)

func TestNewText(t *testing.T) {
	m := NewText("math", role.Assistant, "68.0")

	assert.Equal(t, "math", m.Sender)
	assert.Equal(t, role.Assistant, m.Role)
	assert.Equal(t, "68.0", m.TextContent())
}

func TestTextContent_SkipsNonText(t *testing.T) {
	m := New("bot", role.Assistant,
		content.Text{Text: "Let me "},
		content.ToolCall{ID: "c1", Name: "add_numbers"},
		content.Text{Text: "add."},
	)

	assert.Equal(t, "Let me add.", m.TextContent())
}

func TestToolCalls_PreservesOrder(t *testing.T) {
	m := New("bot", role.Assistant,
		content.ToolCall{ID: "c1", Name: "add_numbers"},
		content.Text{Text: "and"},
		content.ToolCall{ID: "c2", Name: "multiply_numbers"},
	)

	calls := m.ToolCalls()
	assert.Len(t, calls, 2)
	assert.Equal(t, "add_numbers", calls[0].Name)
	assert.Equal(t, "multiply_numbers", calls[1].Name)
}

func TestToolCalls_None(t *testing.T) {
	assert.Nil(t, NewText("bot", role.Assistant, "done").ToolCalls())
}

func TestToolResults(t *testing.T) {
	m := New("bot", role.Tool, content.ToolResult{ToolCallID: "c1", Content: "boom", IsError: true})

	results := m.ToolResults()
	assert.Len(t, results, 1)
	assert.True(t, results[0].IsError)
}

func TestMeta(t *testing.T) {
	var m Message

	_, ok := m.GetMeta("name")
	assert.False(t, ok)

	m.SetMeta("name", "search")
	v, ok := m.GetMeta("name")
	assert.True(t, ok)
	assert.Equal(t, "search", v)
}
