// Package scrape provides the scrape_webpages tool. Pages are fetched over
// plain HTTP and reduced to their title and visible text.
package scrape

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/germanamz/agentry/pkg/tools/toolbox"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// ToolName is the name of the scraping tool.
const ToolName = "scrape_webpages"

// maxBodySize caps each fetched page (2MB).
const maxBodySize = 2 << 20

const defaultUserAgent = "agentry-scraper/1.0"

var errUnsupportedScheme = errors.New("unsupported URL scheme")

// Options configures a Scraper.
type Options struct {
	// Client overrides the HTTP client. When nil a client with a 30s timeout
	// is built, refusing private addresses unless AllowPrivate is set.
	Client *http.Client
	// AllowPrivate permits loopback and private network targets.
	AllowPrivate bool
	// Headers are added to every request.
	Headers map[string]string
}

// Scraper fetches web pages.
type Scraper struct {
	client  *http.Client
	headers map[string]string
}

// New creates a Scraper.
func New(opts Options) *Scraper {
	client := opts.Client
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
		if !opts.AllowPrivate {
			client.Transport = publicOnlyTransport()
		}
	}

	return &Scraper{client: client, headers: opts.Headers}
}

// Tools returns a ToolBox containing the scrape tool.
func (s *Scraper) Tools() *toolbox.ToolBox {
	tb := toolbox.New()
	tb.Register(toolbox.Tool{
		Name:        ToolName,
		Description: "Scrape the provided web pages for detailed information. Returns each page's title and visible text.",
		InputSchema: json.RawMessage(`{"type":"object","properties":{"urls":{"type":"array","items":{"type":"string"},"description":"HTTP or HTTPS URLs to scrape"}},"required":["urls"]}`),
		Handler:     s.handleScrape,
	})

	return tb
}

// Page is the extracted content of one URL.
type Page struct {
	URL   string
	Title string
	Text  string
	Err   error
}

// Document renders the page as a <Document> block.
func (p Page) Document() string {
	if p.Err != nil {
		return fmt.Sprintf("<Document name=%q>\nError fetching %s: %v\n</Document>", p.Title, p.URL, p.Err)
	}

	return fmt.Sprintf("<Document name=%q>\n%s\n</Document>", p.Title, p.Text)
}

func (s *Scraper) handleScrape(ctx context.Context, input json.RawMessage) (string, error) {
	var in struct {
		URLs []string `json:"urls"`
	}
	if err := toolbox.Decode(ToolName, input, &in); err != nil {
		return "", err
	}
	if len(in.URLs) == 0 {
		return "", fmt.Errorf("%s: urls is required", ToolName)
	}

	pages := s.ScrapeAll(ctx, in.URLs)

	docs := make([]string, len(pages))
	for i, p := range pages {
		docs[i] = p.Document()
	}

	return strings.Join(docs, "\n\n"), nil
}

// ScrapeAll fetches urls one at a time, in order.
func (s *Scraper) ScrapeAll(ctx context.Context, urls []string) []Page {
	pages := make([]Page, len(urls))
	for i, u := range urls {
		pages[i] = s.Scrape(ctx, u)
	}
	return pages
}

// Scrape fetches a single URL. Failures are recorded on the returned Page.
func (s *Scraper) Scrape(ctx context.Context, rawURL string) Page {
	page := Page{URL: rawURL}

	if !strings.HasPrefix(rawURL, "http://") && !strings.HasPrefix(rawURL, "https://") {
		page.Err = errUnsupportedScheme
		return page
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		page.Err = err
		return page
	}

	req.Header.Set("User-Agent", defaultUserAgent)
	for k, v := range s.headers {
		req.Header.Set(k, v)
	}

	resp, err := s.client.Do(req) //nolint:gosec // URLs are chosen by the agent
	if err != nil {
		page.Err = err
		return page
	}
	defer resp.Body.Close() //nolint:errcheck // best-effort close on read

	if resp.StatusCode >= http.StatusBadRequest {
		page.Err = fmt.Errorf("status %d", resp.StatusCode)
		return page
	}

	page.Title, page.Text, err = Extract(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		page.Err = err
	}

	return page
}

// skipped elements never contribute visible text.
var skipped = map[atom.Atom]bool{
	atom.Script:   true,
	atom.Style:    true,
	atom.Noscript: true,
	atom.Template: true,
	atom.Svg:      true,
	atom.Title:    true,
}

// blocks start a new line in the extracted text.
var blocks = map[atom.Atom]bool{
	atom.P: true, atom.Div: true, atom.Br: true, atom.Li: true,
	atom.H1: true, atom.H2: true, atom.H3: true, atom.H4: true, atom.H5: true, atom.H6: true,
	atom.Tr: true, atom.Section: true, atom.Article: true, atom.Header: true, atom.Footer: true,
	atom.Pre: true, atom.Blockquote: true, atom.Table: true, atom.Ul: true, atom.Ol: true,
}

// Extract parses HTML and returns the document title and its visible text.
// Whitespace runs collapse to a single space and block elements produce line
// breaks; blank lines are dropped.
func Extract(r io.Reader) (string, string, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return "", "", fmt.Errorf("scrape: parse html: %w", err)
	}

	var title string
	var lines []string
	var cur strings.Builder

	flush := func() {
		if line := strings.TrimSpace(cur.String()); line != "" {
			lines = append(lines, line)
		}
		cur.Reset()
	}

	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			if n.DataAtom == atom.Title && title == "" && n.FirstChild != nil {
				title = strings.Join(strings.Fields(n.FirstChild.Data), " ")
			}
			if skipped[n.DataAtom] {
				return
			}
			if blocks[n.DataAtom] {
				flush()
			}
		}

		if n.Type == html.TextNode {
			if fields := strings.Fields(n.Data); len(fields) > 0 {
				if cur.Len() > 0 {
					cur.WriteByte(' ')
				}
				cur.WriteString(strings.Join(fields, " "))
			}
		}

		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}

		if n.Type == html.ElementNode && blocks[n.DataAtom] {
			flush()
		}
	}
	walk(doc)
	flush()

	return title, strings.Join(lines, "\n"), nil
}
