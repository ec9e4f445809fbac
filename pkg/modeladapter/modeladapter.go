package modeladapter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/germanamz/agentry/pkg/chats/chat"
	"github.com/germanamz/agentry/pkg/chats/message"
	"github.com/germanamz/agentry/pkg/modeladapter/usage"
	"github.com/germanamz/agentry/pkg/tools/toolbox"
)

// RateLimitError is returned when the API responds with HTTP 429.
type RateLimitError struct {
	RetryAfter time.Duration
	Body       string
}

func (e *RateLimitError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("rate limited (retry after %s): %s", e.RetryAfter, e.Body)
	}
	return fmt.Sprintf("rate limited: %s", e.Body)
}

// StatusError is returned for any other non-2xx response.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d: %s", e.StatusCode, e.Body)
}

// ParseRetryAfter parses a Retry-After header given either in seconds or as
// an HTTP date. Unparseable values and past dates yield zero.
func ParseRetryAfter(val string) time.Duration {
	if val == "" {
		return 0
	}
	if secs, err := strconv.Atoi(val); err == nil {
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(val); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return 0
}

// Completer sends a conversation and the declared tools to a model and
// returns the assistant's reply.
type Completer interface {
	Complete(ctx context.Context, c *chat.Chat, tools []toolbox.Tool) (message.Message, error)
}

// CompleterFunc adapts a function to Completer.
type CompleterFunc func(ctx context.Context, c *chat.Chat, tools []toolbox.Tool) (message.Message, error)

// Complete calls f.
func (f CompleterFunc) Complete(ctx context.Context, c *chat.Chat, tools []toolbox.Tool) (message.Message, error) {
	return f(ctx, c, tools)
}

// UsageReporter is implemented by completers that track token usage.
type UsageReporter interface {
	UsageTracker() *usage.Tracker
}

// Auth holds provider authentication settings. With Header unset the key
// goes to Authorization with the Bearer scheme; a custom Header carries the
// bare key unless Scheme is set.
type Auth struct {
	Key    string
	Header string
	Scheme string
}

func (au Auth) apply(h http.Header) {
	if au.Key == "" {
		return
	}

	name, scheme := au.Header, au.Scheme
	if name == "" {
		name = "Authorization"
	}
	if name == "Authorization" && scheme == "" {
		scheme = "Bearer"
	}

	if scheme != "" {
		h.Set(name, scheme+" "+au.Key)
		return
	}
	h.Set(name, au.Key)
}

// defaultClient serves adapters without their own Client. Completions can
// run for minutes on large contexts.
var defaultClient = &http.Client{Timeout: 10 * time.Minute}

// ModelAdapter holds state shared by HTTP-based providers. Embed it and
// define Complete on the concrete type.
type ModelAdapter struct {
	Name        string
	Temperature float64
	MaxTokens   int
	Auth        Auth
	BaseURL     string // no trailing slash
	Client      *http.Client
	Headers     map[string]string // sent with every request
	Usage       usage.Tracker
}

// UsageTracker returns the adapter's token usage tracker.
func (a *ModelAdapter) UsageTracker() *usage.Tracker { return &a.Usage }

// Complete is a stub shadowed by concrete providers.
func (a *ModelAdapter) Complete(context.Context, *chat.Chat, []toolbox.Tool) (message.Message, error) {
	return message.Message{}, errors.New("adapter: Complete not implemented")
}

// NewRequest builds a request against BaseURL+path with auth and the extra
// headers applied.
func (a *ModelAdapter) NewRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, a.BaseURL+path, body)
	if err != nil {
		return nil, err
	}

	a.Auth.apply(req.Header)
	for k, v := range a.Headers {
		req.Header.Set(k, v)
	}
	return req, nil
}

// Do sends req with Client, or the shared default client.
func (a *ModelAdapter) Do(req *http.Request) (*http.Response, error) {
	c := a.Client
	if c == nil {
		c = defaultClient
	}
	return c.Do(req) //nolint:gosec // URL is built from configured BaseURL
}

// PostJSON posts payload as JSON to path and decodes a 2xx response into
// dest. A nil dest discards the body. HTTP 429 yields a *RateLimitError and
// other non-2xx statuses a *StatusError.
func (a *ModelAdapter) PostJSON(ctx context.Context, path string, payload, dest any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	req, err := a.NewRequest(ctx, http.MethodPost, path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if err := statusErr(resp); err != nil {
		return err
	}
	if dest == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func statusErr(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	raw, _ := io.ReadAll(resp.Body)
	if resp.StatusCode == http.StatusTooManyRequests {
		return &RateLimitError{RetryAfter: ParseRetryAfter(resp.Header.Get("Retry-After")), Body: string(raw)}
	}
	return &StatusError{StatusCode: resp.StatusCode, Body: string(raw)}
}
