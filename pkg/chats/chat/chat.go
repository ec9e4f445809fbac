// Package chat provides the mutable conversation container agents run over.
package chat

import (
	"github.com/germanamz/agentry/pkg/chats/message"
	"github.com/germanamz/agentry/pkg/chats/role"
)

// Chat is an append-only list of messages. The zero value is ready to use.
// Chat is not safe for concurrent use.
type Chat struct {
	messages []message.Message
}

// New creates a Chat holding msgs.
func New(msgs ...message.Message) *Chat {
	return &Chat{messages: msgs}
}

// Append adds messages to the end of the conversation.
func (c *Chat) Append(msgs ...message.Message) {
	c.messages = append(c.messages, msgs...)
}

// Replace swaps the whole message list. Effects use it to rewrite history in
// place.
func (c *Chat) Replace(msgs ...message.Message) {
	c.messages = append([]message.Message(nil), msgs...)
}

// Len returns the number of messages.
func (c *Chat) Len() int {
	return len(c.messages)
}

// At returns the message at index. It panics when index is out of range.
func (c *Chat) At(index int) message.Message {
	return c.messages[index]
}

// Last returns the most recent message, or false when the chat is empty.
func (c *Chat) Last() (message.Message, bool) {
	if len(c.messages) == 0 {
		return message.Message{}, false
	}
	return c.messages[len(c.messages)-1], true
}

// First returns the oldest message whose role is r.
func (c *Chat) First(r role.Role) (message.Message, bool) {
	for _, m := range c.messages {
		if m.Role == r {
			return m, true
		}
	}
	return message.Message{}, false
}

// Messages returns a copy of every message.
func (c *Chat) Messages() []message.Message {
	cp := make([]message.Message, len(c.messages))
	copy(cp, c.messages)
	return cp
}

// Since returns a copy of the messages starting at offset. An offset past the
// end yields nil.
func (c *Chat) Since(offset int) []message.Message {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(c.messages) {
		return nil
	}
	cp := make([]message.Message, len(c.messages)-offset)
	copy(cp, c.messages[offset:])
	return cp
}

// Each calls fn for every message until fn returns false.
func (c *Chat) Each(fn func(int, message.Message) bool) {
	for i, m := range c.messages {
		if !fn(i, m) {
			return
		}
	}
}

// BySender returns the messages sent by sender.
func (c *Chat) BySender(sender string) []message.Message {
	var out []message.Message
	for _, m := range c.messages {
		if m.Sender == sender {
			out = append(out, m)
		}
	}
	return out
}

// SystemPrompt returns the text of the first system message, or "".
func (c *Chat) SystemPrompt() string {
	if m, ok := c.First(role.System); ok {
		return m.TextContent()
	}
	return ""
}
