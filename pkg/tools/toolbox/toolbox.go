// Package toolbox is the closed registry every agent dispatches tool calls
// through. Tools are looked up by name and share one call signature: JSON in,
// text or an error out.
package toolbox

import (
	"context"
	"encoding/json"
	"slices"
	"strings"

	"github.com/germanamz/agentry/pkg/chats/content"
)

// UnknownToolMessage is the result content returned to the model when it asks
// for a tool that is not registered.
const UnknownToolMessage = "bad tool name, retry"

// ToolBox holds a set of tools keyed by name. It is not safe for concurrent
// registration; calls may run concurrently once registration is done.
type ToolBox struct {
	tools map[string]Tool
}

// New creates an empty ToolBox.
func New() *ToolBox {
	return &ToolBox{
		tools: make(map[string]Tool),
	}
}

// Register adds tools, replacing any tool with the same name.
func (tb *ToolBox) Register(tools ...Tool) {
	for _, t := range tools {
		tb.tools[t.Name] = t
	}
}

// Get returns a tool by name.
func (tb *ToolBox) Get(name string) (Tool, bool) {
	t, ok := tb.tools[name]
	return t, ok
}

// Merge copies every tool of other into tb.
func (tb *ToolBox) Merge(other *ToolBox) {
	for _, t := range other.tools {
		tb.tools[t.Name] = t
	}
}

// Filter returns a new ToolBox holding only the named tools. Unknown names
// are ignored.
func (tb *ToolBox) Filter(names ...string) *ToolBox {
	out := New()
	for _, n := range names {
		if t, ok := tb.tools[n]; ok {
			out.tools[n] = t
		}
	}
	return out
}

// Names returns the registered tool names in sorted order.
func (tb *ToolBox) Names() []string {
	names := make([]string, 0, len(tb.tools))
	for n := range tb.tools {
		names = append(names, n)
	}
	slices.Sort(names)
	return names
}

// Tools returns the registered tools sorted by name, so that tool
// declarations sent to a model are stable between calls.
func (tb *ToolBox) Tools() []Tool {
	result := make([]Tool, 0, len(tb.tools))
	for _, t := range tb.tools {
		result = append(result, t)
	}
	slices.SortFunc(result, func(a, b Tool) int { return strings.Compare(a.Name, b.Name) })
	return result
}

// Call runs a tool call. Unknown tools and handler errors never escape: they
// are reported as a ToolResult with IsError set.
func (tb *ToolBox) Call(ctx context.Context, tc content.ToolCall) content.ToolResult {
	t, ok := tb.tools[tc.Name]
	if !ok {
		return content.ToolResult{
			ToolCallID: tc.ID,
			Content:    UnknownToolMessage,
			IsError:    true,
		}
	}

	result, err := t.Handler(ctx, json.RawMessage(tc.Arguments))
	if err != nil {
		return content.ToolResult{
			ToolCallID: tc.ID,
			Content:    err.Error(),
			IsError:    true,
		}
	}

	return content.ToolResult{
		ToolCallID: tc.ID,
		Content:    result,
	}
}
