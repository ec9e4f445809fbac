// Package modeladapter is the boundary between agents and language models.
//
// It contains:
//   - [Completer], the one interface every provider implements
//   - [ModelAdapter], an embeddable base with HTTP helpers, auth and usage tracking
//   - [Ask] and [AskJSON], helpers for single-turn prompts and structured replies
//   - [github.com/germanamz/agentry/pkg/modeladapter/usage]: a concurrent token usage tracker
//
// Concrete providers live under pkg/providers.
package modeladapter
