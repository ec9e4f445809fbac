package modeladapter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/germanamz/agentry/pkg/chats/chat"
	"github.com/germanamz/agentry/pkg/chats/message"
	"github.com/germanamz/agentry/pkg/chats/role"
)

// ErrNoJSON is returned by AskJSON when the reply holds no JSON object.
var ErrNoJSON = errors.New("modeladapter: no JSON object in reply")

var flatObject = regexp.MustCompile(`\{[^{}]*\}`)

// Ask sends a single-turn prompt, optionally preceded by a system prompt,
// and returns the reply text. No tools are declared.
func Ask(ctx context.Context, c Completer, system, prompt string) (string, error) {
	conv := chat.New()
	if system != "" {
		conv.Append(message.NewText("", role.System, system))
	}
	conv.Append(message.NewText("", role.User, prompt))

	reply, err := c.Complete(ctx, conv, nil)
	if err != nil {
		return "", err
	}

	return reply.TextContent(), nil
}

// AskJSON is Ask followed by ParseJSON into v.
func AskJSON(ctx context.Context, c Completer, system, prompt string, v any) error {
	text, err := Ask(ctx, c, system, prompt)
	if err != nil {
		return err
	}

	return ParseJSON(text, v)
}

// ParseJSON decodes a JSON object out of a model reply. Replies wrapped in a
// ```json or plain ``` fence are unwrapped first; when the text still does not
// decode, the first flat {...} object in it is tried.
func ParseJSON(text string, v any) error {
	body := StripCodeFences(text)

	err := json.Unmarshal([]byte(body), v)
	if err == nil {
		return nil
	}

	obj := flatObject.FindString(text)
	if obj == "" {
		return fmt.Errorf("%w: %v", ErrNoJSON, err)
	}

	if err := json.Unmarshal([]byte(obj), v); err != nil {
		return fmt.Errorf("%w: %v", ErrNoJSON, err)
	}

	return nil
}

// StripCodeFences returns the content of the first ```json fence, or else of
// the first plain ``` fence. Text without fences is returned trimmed.
func StripCodeFences(s string) string {
	if _, after, ok := strings.Cut(s, "```json"); ok {
		inner, _, _ := strings.Cut(after, "```")
		return strings.TrimSpace(inner)
	}

	if _, after, ok := strings.Cut(s, "```"); ok {
		inner, _, _ := strings.Cut(after, "```")
		return strings.TrimSpace(inner)
	}

	return strings.TrimSpace(s)
}
