// Package chats holds the provider-agnostic conversation model shared by every
// agent in agentry.
//
// Sub-packages:
//   - [github.com/germanamz/agentry/pkg/chats/role]: who sent a message
//   - [github.com/germanamz/agentry/pkg/chats/content]: text, tool call and tool result parts
//   - [github.com/germanamz/agentry/pkg/chats/message]: a role, a sender and a list of parts
//   - [github.com/germanamz/agentry/pkg/chats/chat]: the append-only conversation
package chats
