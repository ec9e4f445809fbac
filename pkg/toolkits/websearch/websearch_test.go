package websearch

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/germanamz/agentry/pkg/chats/content"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSearch(t *testing.T, handler http.HandlerFunc) *Search {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	s, err := New(Config{APIKey: "key", EngineID: "cx", Endpoint: srv.URL, Client: srv.Client()})
	require.NoError(t, err)

	return s
}

func TestNew_MissingCredentials(t *testing.T) {
	_, err := New(Config{APIKey: "key"})

	require.ErrorIs(t, err, ErrMissingCredentials)
}

func TestWebSearch(t *testing.T) {
	s := newTestSearch(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/customsearch/v1", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "key", q.Get("key"))
		assert.Equal(t, "cx", q.Get("cx"))
		assert.Equal(t, "golang agents", q.Get("q"))
		assert.Equal(t, "2", q.Get("num"))

		fmt.Fprint(w, `{"items":[
			{"title":"Go","link":"https://go.dev","snippet":"The Go\nprogramming language"},
			{"title":"Agents","link":"https://example.com/agents","snippet":"Tool calling"}
		]}`)
	})

	tr := s.Tools().Call(context.Background(), content.ToolCall{
		ID: "tc", Name: ToolName, Arguments: `{"query":"golang agents","num_results":2}`,
	})

	require.False(t, tr.IsError, tr.Content)
	assert.Equal(t, "1. Go\nhttps://go.dev\nThe Go programming language\n\n2. Agents\nhttps://example.com/agents\nTool calling", tr.Content)
}

func TestQuery_DefaultAndClamp(t *testing.T) {
	var nums []string
	s := newTestSearch(t, func(w http.ResponseWriter, r *http.Request) {
		nums = append(nums, r.URL.Query().Get("num"))
		fmt.Fprint(w, `{}`)
	})

	_, err := s.Query(context.Background(), "a", 0)
	require.NoError(t, err)
	_, err = s.Query(context.Background(), "a", 50)
	require.NoError(t, err)

	assert.Equal(t, []string{"5", "10"}, nums)
}

func TestWebSearch_NoResults(t *testing.T) {
	s := newTestSearch(t, func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"searchInformation":{"totalResults":"0"}}`)
	})

	tr := s.Tools().Call(context.Background(), content.ToolCall{Name: ToolName, Arguments: `{"query":"zzz"}`})

	require.False(t, tr.IsError)
	assert.Equal(t, NoResults, tr.Content)
}

func TestWebSearch_APIError(t *testing.T) {
	s := newTestSearch(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		fmt.Fprint(w, `{"error":{"code":403,"message":"quota exceeded"}}`)
	})

	tr := s.Tools().Call(context.Background(), content.ToolCall{Name: ToolName, Arguments: `{"query":"x"}`})

	assert.True(t, tr.IsError)
	assert.Contains(t, tr.Content, "status 403: quota exceeded")
}

func TestWebSearch_EmptyQuery(t *testing.T) {
	s := newTestSearch(t, func(http.ResponseWriter, *http.Request) {
		t.Fatal("unexpected request")
	})

	tr := s.Tools().Call(context.Background(), content.ToolCall{Name: ToolName, Arguments: `{"query":"  "}`})

	assert.True(t, tr.IsError)
}
