package modeladapter_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/germanamz/agentry/pkg/chats/chat"
	"github.com/germanamz/agentry/pkg/chats/message"
	"github.com/germanamz/agentry/pkg/chats/role"
	"github.com/germanamz/agentry/pkg/modeladapter"
	"github.com/germanamz/agentry/pkg/tools/toolbox"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var _ modeladapter.Completer = (*modeladapter.ModelAdapter)(nil)

func TestModelAdapter_StubComplete(t *testing.T) {
	var a modeladapter.ModelAdapter

	_, err := a.Complete(context.Background(), chat.New(), nil)
	assert.EqualError(t, err, "adapter: Complete not implemented")
}

func TestNewRequest_BearerAuth(t *testing.T) {
	a := &modeladapter.ModelAdapter{
		BaseURL: "https://api.example.com/v1",
		Auth:    modeladapter.Auth{Key: "sk-test"},
		Headers: map[string]string{"X-Team": "research"},
	}

	req, err := a.NewRequest(context.Background(), http.MethodPost, "/chat/completions", nil)
	require.NoError(t, err)

	assert.Equal(t, "https://api.example.com/v1/chat/completions", req.URL.String())
	assert.Equal(t, "Bearer sk-test", req.Header.Get("Authorization"))
	assert.Equal(t, "research", req.Header.Get("X-Team"))
}

func TestNewRequest_CustomHeader(t *testing.T) {
	a := &modeladapter.ModelAdapter{
		BaseURL: "https://api.example.com",
		Auth:    modeladapter.Auth{Key: "k", Header: "x-api-key"},
	}

	req, err := a.NewRequest(context.Background(), http.MethodGet, "/", nil)
	require.NoError(t, err)

	assert.Equal(t, "k", req.Header.Get("x-api-key"))
	assert.Empty(t, req.Header.Get("Authorization"))
}

func TestPostJSON_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	a := &modeladapter.ModelAdapter{BaseURL: srv.URL}

	var out struct {
		OK bool `json:"ok"`
	}
	require.NoError(t, a.PostJSON(context.Background(), "/x", map[string]string{"a": "b"}, &out))
	assert.True(t, out.OK)
}

func TestPostJSON_RateLimited(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Retry-After", "7")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte("slow down"))
	}))
	defer srv.Close()

	a := &modeladapter.ModelAdapter{BaseURL: srv.URL}
	err := a.PostJSON(context.Background(), "/x", struct{}{}, nil)

	var rle *modeladapter.RateLimitError
	require.ErrorAs(t, err, &rle)
	assert.Equal(t, 7*time.Second, rle.RetryAfter)
	assert.Equal(t, "slow down", rle.Body)
}

func TestPostJSON_StatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "bad model", http.StatusBadRequest)
	}))
	defer srv.Close()

	a := &modeladapter.ModelAdapter{BaseURL: srv.URL}
	err := a.PostJSON(context.Background(), "/x", struct{}{}, nil)

	var se *modeladapter.StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusBadRequest, se.StatusCode)
}

func TestParseRetryAfter(t *testing.T) {
	assert.Equal(t, time.Duration(0), modeladapter.ParseRetryAfter(""))
	assert.Equal(t, 3*time.Second, modeladapter.ParseRetryAfter("3"))
	assert.Equal(t, time.Duration(0), modeladapter.ParseRetryAfter("soon"))
	assert.Equal(t, time.Duration(0), modeladapter.ParseRetryAfter("Mon, 02 Jan 2006 15:04:05 GMT"))
}

func TestAsk(t *testing.T) {
	var seen *chat.Chat
	c := modeladapter.CompleterFunc(func(_ context.Context, conv *chat.Chat, tools []toolbox.Tool) (message.Message, error) {
		seen = conv
		assert.Nil(t, tools)
		return message.NewText("", role.Assistant, "APPROVED"), nil
	})

	out, err := modeladapter.Ask(context.Background(), c, "You are an editor.", "Review this.")
	require.NoError(t, err)

	assert.Equal(t, "APPROVED", out)
	require.Equal(t, 2, seen.Len())
	assert.Equal(t, "You are an editor.", seen.SystemPrompt())
	assert.Equal(t, role.User, seen.At(1).Role)
}

func TestAsk_NoSystem(t *testing.T) {
	c := modeladapter.CompleterFunc(func(_ context.Context, conv *chat.Chat, _ []toolbox.Tool) (message.Message, error) {
		assert.Equal(t, 1, conv.Len())
		return message.Message{}, errors.New("offline")
	})

	_, err := modeladapter.Ask(context.Background(), c, "", "hi")
	assert.EqualError(t, err, "offline")
}

func TestAskJSON(t *testing.T) {
	reply := "Routing now.\n```json\n{\"next\": \"writer\"}\n```"
	c := modeladapter.CompleterFunc(func(context.Context, *chat.Chat, []toolbox.Tool) (message.Message, error) {
		return message.NewText("", role.Assistant, reply), nil
	})

	var d struct {
		Next string `json:"next"`
	}
	require.NoError(t, modeladapter.AskJSON(context.Background(), c, "", "who next?", &d))
	assert.Equal(t, "writer", d.Next)

	reply = "no idea"
	assert.ErrorIs(t, modeladapter.AskJSON(context.Background(), c, "", "who next?", &d), modeladapter.ErrNoJSON)

	offline := modeladapter.CompleterFunc(func(context.Context, *chat.Chat, []toolbox.Tool) (message.Message, error) {
		return message.Message{}, errors.New("offline")
	})
	err := modeladapter.AskJSON(context.Background(), offline, "", "who next?", &d)
	require.EqualError(t, err, "offline")
	assert.NotErrorIs(t, err, modeladapter.ErrNoJSON)
}

func TestParseJSON(t *testing.T) {
	type decision struct {
		Next string `json:"next"`
	}

	tests := []struct {
		name string
		text string
		want string
	}{
		{"plain", `{"next":"search"}`, "search"},
		{"json fence", "Sure:\n```json\n{\"next\": \"web_scraper\"}\n```", "web_scraper"},
		{"bare fence", "```\n{\"next\": \"FINISH\"}\n```", "FINISH"},
		{"embedded", `I pick {"next": "note_taker"} because notes.`, "note_taker"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var d decision
			require.NoError(t, modeladapter.ParseJSON(tt.text, &d))
			assert.Equal(t, tt.want, d.Next)
		})
	}
}

func TestParseJSON_NoObject(t *testing.T) {
	var v map[string]any

	err := modeladapter.ParseJSON("no json here", &v)
	assert.ErrorIs(t, err, modeladapter.ErrNoJSON)
}

func TestStripCodeFences(t *testing.T) {
	assert.Equal(t, `{"a":1}`, modeladapter.StripCodeFences("```json\n{\"a\":1}\n```"))
	assert.Equal(t, "plain", modeladapter.StripCodeFences("  plain  "))
}
