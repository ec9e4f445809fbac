// Package openai implements modeladapter.Completer for any endpoint that
// speaks the OpenAI Chat Completions protocol (OpenAI, Groq, local servers).
package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/germanamz/agentry/pkg/chats/chat"
	"github.com/germanamz/agentry/pkg/chats/content"
	"github.com/germanamz/agentry/pkg/chats/message"
	"github.com/germanamz/agentry/pkg/chats/role"
	"github.com/germanamz/agentry/pkg/modeladapter"
	"github.com/germanamz/agentry/pkg/modeladapter/usage"
	"github.com/germanamz/agentry/pkg/tools/toolbox"
)

const (
	// DefaultBaseURL points at Groq's OpenAI-compatible API.
	DefaultBaseURL = "https://api.groq.com/openai/v1"
	// DefaultModel is used when no model name is configured.
	DefaultModel = "moonshotai/kimi-k2-instruct-0905"

	completionsPath = "/chat/completions"
)

// ErrEmptyChoices is returned when the API answers without any choice.
var ErrEmptyChoices = errors.New("openai: empty choices in response")

var _ modeladapter.Completer = (*Adapter)(nil)

// Adapter is a Chat Completions client.
type Adapter struct {
	modeladapter.ModelAdapter
}

// New creates an Adapter. baseURL must include the API version segment
// (for example "https://api.openai.com/v1"); empty values fall back to the
// defaults above.
func New(baseURL, apiKey, model string) *Adapter {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if model == "" {
		model = DefaultModel
	}

	a := &Adapter{}
	a.BaseURL = strings.TrimRight(baseURL, "/")
	a.Auth = modeladapter.Auth{Key: apiKey}
	a.Name = model
	a.Temperature = 0.7
	a.MaxTokens = 4096

	return a
}

// Complete sends the conversation and tool declarations and returns the
// assistant reply.
func (a *Adapter) Complete(ctx context.Context, c *chat.Chat, tools []toolbox.Tool) (message.Message, error) {
	var resp completion
	if err := a.PostJSON(ctx, completionsPath, a.request(c, tools), &resp); err != nil {
		return message.Message{}, fmt.Errorf("openai: %w", err)
	}

	a.Usage.Add(usage.TokenCount{InputTokens: resp.Usage.Prompt, OutputTokens: resp.Usage.Completion})

	if len(resp.Choices) == 0 {
		return message.Message{}, ErrEmptyChoices
	}
	return resp.Choices[0].Message.toMessage(), nil
}

// Wire format of /chat/completions. wireMessage is shared by both
// directions; the API ignores fields it does not expect.

type completionRequest struct {
	Model       string        `json:"model"`
	Messages    []wireMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Temperature *float64      `json:"temperature,omitempty"`
	Tools       []wireTool    `json:"tools,omitempty"`
}

type wireMessage struct {
	Role       string     `json:"role"`
	Content    *string    `json:"content"`
	Name       string     `json:"name,omitempty"`
	ToolCalls  []wireCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
}

type wireCall struct {
	ID       string   `json:"id"`
	Type     string   `json:"type"`
	Function wireFunc `json:"function"`
}

// wireFunc carries the raw JSON arguments exactly as the model wrote them.
type wireFunc struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

type wireTool struct {
	Type     string       `json:"type"`
	Function wireToolSpec `json:"function"`
}

type wireToolSpec struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Parameters  json.RawMessage `json:"parameters"`
}

type completion struct {
	Choices []wireChoice `json:"choices"`
	Usage   wireUsage    `json:"usage"`
}

type wireChoice struct {
	Message      wireMessage `json:"message"`
	FinishReason string      `json:"finish_reason"`
}

type wireUsage struct {
	Prompt     int `json:"prompt_tokens"`
	Completion int `json:"completion_tokens"`
}

var objectSchema = json.RawMessage(`{"type":"object"}`)

func (a *Adapter) request(c *chat.Chat, tools []toolbox.Tool) completionRequest {
	req := completionRequest{Model: a.Name, MaxTokens: a.MaxTokens}
	if a.Temperature != 0 {
		temp := a.Temperature
		req.Temperature = &temp
	}

	for _, t := range tools {
		params := t.InputSchema
		if params == nil {
			params = objectSchema
		}
		req.Tools = append(req.Tools, wireTool{
			Type:     "function",
			Function: wireToolSpec{Name: t.Name, Description: t.Description, Parameters: params},
		})
	}

	c.Each(func(_ int, m message.Message) bool {
		req.Messages = append(req.Messages, toWire(m)...)
		return true
	})
	return req
}

// toWire maps one chat message to API messages. A tool message fans out
// into one entry per result.
func toWire(m message.Message) []wireMessage {
	text := m.TextContent()

	switch m.Role {
	case role.System:
		return []wireMessage{{Role: "system", Content: &text}}
	case role.User:
		return []wireMessage{{Role: "user", Content: &text, Name: apiName(m.Sender)}}
	case role.Assistant:
		out := wireMessage{Role: "assistant"}
		if text != "" {
			out.Content = &text
		}
		for _, tc := range m.ToolCalls() {
			out.ToolCalls = append(out.ToolCalls, wireCall{
				ID:       tc.ID,
				Type:     "function",
				Function: wireFunc{Name: tc.Name, Arguments: tc.Arguments},
			})
		}
		return []wireMessage{out}
	case role.Tool:
		results := m.ToolResults()
		out := make([]wireMessage, len(results))
		for i, tr := range results {
			out[i] = wireMessage{Role: "tool", Content: &tr.Content, ToolCallID: tr.ToolCallID}
		}
		return out
	}
	return nil
}

// apiName keeps only sender names the API accepts for the "name" field.
func apiName(sender string) string {
	if sender == "" || sender == "user" {
		return ""
	}
	for _, r := range sender {
		if !(r == '_' || r == '-' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9') {
			return ""
		}
	}
	return sender
}

func (w wireMessage) toMessage() message.Message {
	var parts []content.Part
	if w.Content != nil && *w.Content != "" {
		parts = append(parts, content.Text{Text: *w.Content})
	}
	for _, tc := range w.ToolCalls {
		parts = append(parts, content.ToolCall{ID: tc.ID, Name: tc.Function.Name, Arguments: tc.Function.Arguments})
	}
	return message.New("", role.Assistant, parts...)
}
