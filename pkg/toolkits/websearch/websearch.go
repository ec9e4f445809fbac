// Package websearch provides the web_search tool backed by the Google Custom
// Search JSON API.
package websearch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/germanamz/agentry/pkg/tools/toolbox"
	"google.golang.org/api/customsearch/v1"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

// ToolName is the name of the search tool.
const ToolName = "web_search"

// DefaultEndpoint is the base URL of the Custom Search JSON API.
const DefaultEndpoint = "https://customsearch.googleapis.com/"

// NoResults is returned when the search yields nothing.
const NoResults = "No good Google Search Result was found"

const (
	defaultResults = 5
	maxResults     = 10
)

// ErrMissingCredentials is returned when the API key or engine id is empty.
var ErrMissingCredentials = errors.New("websearch: api key and search engine id are required")

// Config holds the search credentials and transport.
type Config struct {
	APIKey   string
	EngineID string
	// Endpoint overrides DefaultEndpoint. Requests go to
	// Endpoint + "customsearch/v1".
	Endpoint string
	Client   *http.Client
}

// Result is a single search hit.
type Result struct {
	Title   string `json:"title"`
	Link    string `json:"link"`
	Snippet string `json:"snippet"`
}

// Search queries the Custom Search API.
type Search struct {
	cfg     Config
	service *customsearch.Service
}

// New validates cfg and returns a Search.
func New(cfg Config) (*Search, error) {
	if cfg.APIKey == "" || cfg.EngineID == "" {
		return nil, ErrMissingCredentials
	}
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultEndpoint
	}
	if !strings.HasSuffix(cfg.Endpoint, "/") {
		cfg.Endpoint += "/"
	}
	if cfg.Client == nil {
		cfg.Client = &http.Client{Timeout: 30 * time.Second}
	}

	// With an explicit client the library skips its API key transport, so
	// Query sends the key as a query parameter.
	service, err := customsearch.NewService(context.Background(),
		option.WithEndpoint(cfg.Endpoint),
		option.WithHTTPClient(cfg.Client),
	)
	if err != nil {
		return nil, fmt.Errorf("websearch: create service: %w", err)
	}

	return &Search{cfg: cfg, service: service}, nil
}

// Tools returns a ToolBox containing the search tool.
func (s *Search) Tools() *toolbox.ToolBox {
	tb := toolbox.New()
	tb.Register(toolbox.Tool{
		Name:        ToolName,
		Description: "Search the web with Google. Returns the title, link and snippet of each result.",
		InputSchema: json.RawMessage(`{"type":"object","properties":{"query":{"type":"string","description":"The search query"},"num_results":{"type":"integer","description":"Number of results (1-10, default 5)"}},"required":["query"]}`),
		Handler:     s.handleSearch,
	})

	return tb
}

func (s *Search) handleSearch(ctx context.Context, input json.RawMessage) (string, error) {
	var in struct {
		Query      string `json:"query"`
		NumResults int    `json:"num_results"`
	}
	if err := toolbox.Decode(ToolName, input, &in); err != nil {
		return "", err
	}
	if strings.TrimSpace(in.Query) == "" {
		return "", fmt.Errorf("%s: query is required", ToolName)
	}

	results, err := s.Query(ctx, in.Query, in.NumResults)
	if err != nil {
		return "", fmt.Errorf("%s: %w", ToolName, err)
	}

	return Format(results), nil
}

// Query runs a search returning at most n results. n is clamped to 1..10
// and defaults to 5.
func (s *Search) Query(ctx context.Context, query string, n int) ([]Result, error) {
	if n <= 0 {
		n = defaultResults
	}
	n = min(n, maxResults)

	resp, err := s.service.Cse.List().
		Cx(s.cfg.EngineID).
		Q(query).
		Num(int64(n)).
		Context(ctx).
		Do(googleapi.QueryParameter("key", s.cfg.APIKey))
	if err != nil {
		var gerr *googleapi.Error
		if errors.As(err, &gerr) {
			return nil, fmt.Errorf("status %d: %s", gerr.Code, gerr.Message)
		}
		return nil, fmt.Errorf("request: %w", err)
	}

	items := resp.Items
	if len(items) > n {
		items = items[:n]
	}

	results := make([]Result, len(items))
	for i, it := range items {
		results[i] = Result{Title: it.Title, Link: it.Link, Snippet: it.Snippet}
	}

	return results, nil
}

// Format renders results as numbered title, link and snippet blocks.
func Format(results []Result) string {
	if len(results) == 0 {
		return NoResults
	}

	blocks := make([]string, len(results))
	for i, r := range results {
		snippet := strings.Join(strings.Fields(r.Snippet), " ")
		blocks[i] = fmt.Sprintf("%d. %s\n%s\n%s", i+1, r.Title, r.Link, snippet)
	}

	return strings.Join(blocks, "\n\n")
}
