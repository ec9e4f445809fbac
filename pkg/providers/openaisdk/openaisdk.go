// Package openaisdk implements modeladapter.Completer on top of the official
// openai-go client. It targets the same Chat Completions protocol as package
// openai but delegates transport, retries and error decoding to the SDK.
package openaisdk

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/germanamz/agentry/pkg/chats/chat"
	"github.com/germanamz/agentry/pkg/chats/content"
	"github.com/germanamz/agentry/pkg/chats/message"
	"github.com/germanamz/agentry/pkg/chats/role"
	"github.com/germanamz/agentry/pkg/modeladapter"
	"github.com/germanamz/agentry/pkg/modeladapter/usage"
	"github.com/germanamz/agentry/pkg/tools/toolbox"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// ErrEmptyChoices is returned when the API answers without any choice.
var ErrEmptyChoices = errors.New("openaisdk: empty choices in response")

var _ modeladapter.Completer = (*Model)(nil)

// Options configure a Model.
type Options struct {
	Model               string
	Temperature         float64
	MaxCompletionTokens int64
}

// Model wraps an openai.Client.
type Model struct {
	client *openai.Client
	opts   Options
	usage  usage.Tracker
}

// New creates a Model talking to baseURL with apiKey. Extra request options
// are appended after the base URL and key.
func New(baseURL, apiKey string, optFns []func(*Options), reqOpts ...option.RequestOption) *Model {
	all := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		all = append(all, option.WithBaseURL(baseURL))
	}
	all = append(all, reqOpts...)

	client := openai.NewClient(all...)

	return NewFromClient(&client, optFns...)
}

// NewFromClient creates a Model from an existing client.
func NewFromClient(client *openai.Client, optFns ...func(*Options)) *Model {
	opts := Options{
		Model:               "moonshotai/kimi-k2-instruct-0905",
		Temperature:         0.7,
		MaxCompletionTokens: 4096,
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	return &Model{client: client, opts: opts}
}

// UsageTracker returns the model's token usage tracker.
func (m *Model) UsageTracker() *usage.Tracker { return &m.usage }

// Complete sends the conversation and tool declarations and returns the
// assistant reply.
func (m *Model) Complete(ctx context.Context, c *chat.Chat, tools []toolbox.Tool) (message.Message, error) {
	params, err := m.buildParams(c, tools)
	if err != nil {
		return message.Message{}, err
	}

	resp, err := m.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return message.Message{}, fmt.Errorf("openaisdk: %w", err)
	}

	m.usage.Add(usage.TokenCount{
		InputTokens:  int(resp.Usage.PromptTokens),
		OutputTokens: int(resp.Usage.CompletionTokens),
	})

	if len(resp.Choices) == 0 {
		return message.Message{}, ErrEmptyChoices
	}

	msg := resp.Choices[0].Message
	parts := make([]content.Part, 0, len(msg.ToolCalls)+1)
	if msg.Content != "" {
		parts = append(parts, content.Text{Text: msg.Content})
	}
	for _, tc := range msg.ToolCalls {
		parts = append(parts, content.ToolCall{
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: tc.Function.Arguments,
		})
	}

	return message.New("", role.Assistant, parts...), nil
}

func (m *Model) buildParams(c *chat.Chat, tools []toolbox.Tool) (openai.ChatCompletionNewParams, error) {
	params := openai.ChatCompletionNewParams{
		Messages:            buildMessages(c),
		Model:               m.opts.Model,
		Temperature:         openai.Float(m.opts.Temperature),
		MaxCompletionTokens: openai.Int(m.opts.MaxCompletionTokens),
	}

	if len(tools) == 0 {
		return params, nil
	}

	defs := make([]openai.ChatCompletionToolParam, len(tools))
	for i, t := range tools {
		schema := map[string]any{"type": "object"}
		if len(t.InputSchema) > 0 {
			if err := json.Unmarshal(t.InputSchema, &schema); err != nil {
				return params, fmt.Errorf("openaisdk: schema of %s: %w", t.Name, err)
			}
		}

		defs[i] = openai.ChatCompletionToolParam{
			Type: "function",
			Function: openai.FunctionDefinitionParam{
				Name:        t.Name,
				Description: openai.String(t.Description),
				Parameters:  schema,
			},
		}
	}
	params.Tools = defs

	return params, nil
}

func buildMessages(c *chat.Chat) []openai.ChatCompletionMessageParamUnion {
	var out []openai.ChatCompletionMessageParamUnion

	c.Each(func(_ int, m message.Message) bool {
		switch m.Role {
		case role.System:
			out = append(out, openai.SystemMessage(m.TextContent()))
		case role.User:
			out = append(out, openai.UserMessage(labelled(m)))
		case role.Assistant:
			calls := m.ToolCalls()
			if len(calls) == 0 {
				out = append(out, openai.AssistantMessage(m.TextContent()))
				return true
			}

			params := make([]openai.ChatCompletionMessageToolCallParam, len(calls))
			for i, tc := range calls {
				params[i] = openai.ChatCompletionMessageToolCallParam{
					ID:   tc.ID,
					Type: "function",
					Function: openai.ChatCompletionMessageToolCallFunctionParam{
						Name:      tc.Name,
						Arguments: tc.Arguments,
					},
				}
			}
			out = append(out, openai.ChatCompletionMessageParamUnion{
				OfAssistant: &openai.ChatCompletionAssistantMessageParam{ToolCalls: params},
			})
		case role.Tool:
			for _, tr := range m.ToolResults() {
				out = append(out, openai.ToolMessage(tr.Content, tr.ToolCallID))
			}
		}
		return true
	})

	return out
}

// labelled prefixes user messages sent by another agent with the agent's name
// so the model can tell team members apart.
func labelled(m message.Message) string {
	if m.Sender == "" || m.Sender == "user" {
		return m.TextContent()
	}
	return "[" + m.Sender + "] " + m.TextContent()
}
