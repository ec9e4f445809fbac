// Package content defines the parts a message is made of. The set of parts is
// closed: text, a tool call requested by the model, and the result of running
// that tool.
package content

// Part is a piece of content within a message.
type Part interface {
	PartKind() string
}

// Text is a plain text part.
type Text struct {
	Text string
}

func (Text) PartKind() string { return "text" }

// ToolCall is the model's request to run a named tool. Arguments is the raw
// JSON object produced by the model.
type ToolCall struct {
	ID        string
	Name      string
	Arguments string
}

func (ToolCall) PartKind() string { return "tool_call" }

// ToolResult is the text output of a tool call. IsError marks results that
// describe a failure; they are still fed back to the model.
type ToolResult struct {
	ToolCallID string
	Content    string
	IsError    bool
}

func (ToolResult) PartKind() string { return "tool_result" }
