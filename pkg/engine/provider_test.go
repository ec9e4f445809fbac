package engine

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/germanamz/agentry/pkg/chats/chat"
	"github.com/germanamz/agentry/pkg/chats/message"
	"github.com/germanamz/agentry/pkg/chats/role"
	"github.com/germanamz/agentry/pkg/modeladapter"
	"github.com/germanamz/agentry/pkg/providers/openai"
	"github.com/germanamz/agentry/pkg/providers/openaisdk"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// completionServer answers every chat completion with reply and records the
// decoded request body.
func completionServer(t *testing.T, reply string, got *map[string]any) *httptest.Server {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer key", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(got))

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":      "cmpl-1",
			"object":  "chat.completion",
			"created": 1,
			"model":   "m",
			"choices": []map[string]any{{
				"index":         0,
				"message":       map[string]any{"role": "assistant", "content": reply},
				"finish_reason": "stop",
			}},
			"usage": map[string]any{"prompt_tokens": 1, "completion_tokens": 1, "total_tokens": 2},
		})
	}))
	t.Cleanup(srv.Close)

	return srv
}

func TestBuildCompleter(t *testing.T) {
	for _, kind := range []string{KindOpenAI, KindOpenAISDK} {
		t.Run(kind, func(t *testing.T) {
			var req map[string]any
			srv := completionServer(t, "pong", &req)

			c, err := buildCompleter(ProviderConfig{
				Name:        "p",
				Kind:        kind,
				BaseURL:     srv.URL + "/v1",
				APIKey:      "key",
				Model:       "llama-test",
				Temperature: 0.25,
				MaxTokens:   128,
			})
			require.NoError(t, err)

			msg, err := c.Complete(context.Background(), chat.New(message.NewText("user", role.User, "ping")), nil)
			require.NoError(t, err)
			assert.Equal(t, "pong", msg.TextContent())

			assert.Equal(t, "llama-test", req["model"])
			assert.InDelta(t, 0.25, req["temperature"], 1e-9)
		})
	}
}

func TestBuildCompleter_Defaults(t *testing.T) {
	c, err := buildCompleter(ProviderConfig{Name: "p", Kind: KindOpenAI})
	require.NoError(t, err)

	a, ok := c.(*openai.Adapter)
	require.True(t, ok)
	assert.Equal(t, openai.DefaultBaseURL, a.BaseURL)
	assert.Equal(t, openai.DefaultModel, a.Name)
	assert.InDelta(t, 0.7, a.Temperature, 1e-9)
	assert.Equal(t, 4096, a.MaxTokens)

	c, err = buildCompleter(ProviderConfig{Name: "p", Kind: KindOpenAISDK})
	require.NoError(t, err)
	assert.IsType(t, &openaisdk.Model{}, c)
}

func TestBuildCompleter_UnknownKind(t *testing.T) {
	_, err := buildCompleter(ProviderConfig{Name: "p", Kind: "nope"})
	assert.ErrorContains(t, err, `unknown provider kind "nope"`)
}

func TestRegisterProvider(t *testing.T) {
	want := &scriptedCompleter{}
	RegisterProvider("scripted-test", func(ProviderConfig) (modeladapter.Completer, error) {
		return want, nil
	})

	c, err := buildCompleter(ProviderConfig{Name: "p", Kind: "scripted-test"})
	require.NoError(t, err)
	assert.Same(t, want, c)
}
