// Package providers holds the concrete model providers.
//
//   - [github.com/germanamz/agentry/pkg/providers/openai]: hand-rolled Chat Completions client for any OpenAI-compatible endpoint
//   - [github.com/germanamz/agentry/pkg/providers/openaisdk]: the same boundary over the official openai-go SDK
package providers
