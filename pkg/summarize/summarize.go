// Package summarize implements a plan, execute and reflect summarization
// pipeline. A router sizes up the document and picks a strategy, the text is
// chunked for that strategy, the chunks are summarized into a draft, and an
// editor pass reviews and revises the draft a bounded number of times.
//
//	ROUTE -> DIRECT -> END
//	ROUTE -> CHUNK -> {MAP_REDUCE|REFINE|HIERARCHICAL} -> REFLECT -> (REVISE -> REFLECT)* -> END
package summarize

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/germanamz/agentry/pkg/cache"
	"github.com/germanamz/agentry/pkg/modeladapter"
	"github.com/germanamz/agentry/pkg/tools/toolbox"
)

// Messages returned instead of a summary.
const (
	EmptyTextMessage = "Error: Empty text provided for summarization."
	NoSummaryMessage = "Error: No summary generated."
	noChunksDraft    = "No summary generated."
	approved         = "APPROVED"
	cachePrefix      = "summary:"
)

// State is threaded through the pipeline. Each node reads what it needs and
// fills what it computes.
type State struct {
	OriginalText   string
	Metadata       Metadata
	ContentType    ContentType
	Strategy       Strategy
	Focus          string
	Chunks         []string
	ChunkSummaries []string
	RunningSummary string
	Draft          string
	Critique       string
	RevisionCount  int
	FinalOutput    string
	// Cached reports that FinalOutput came from the cache.
	Cached bool
	// Failed reports that FinalOutput is an error notice, not a summary.
	Failed bool
}

// Approved reports whether the last critique approved the draft.
func (s *State) Approved() bool {
	return strings.ToUpper(strings.TrimSpace(s.Critique)) == approved
}

// Options configures an Agent.
type Options struct {
	// Cache short-circuits documents summarized before. Nil disables caching.
	Cache   cache.Cache
	Chunker *Chunker
	Logger  *slog.Logger
}

// Agent summarizes documents.
type Agent struct {
	completer modeladapter.Completer
	router    *Router
	chunker   *Chunker
	cache     cache.Cache
	logger    *slog.Logger
}

// New creates an Agent that sends every model call to c.
func New(c modeladapter.Completer, opts Options) *Agent {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	chunker := opts.Chunker
	if chunker == nil {
		chunker = NewChunker()
	}

	return &Agent{
		completer: c,
		router:    &Router{Completer: c, Logger: logger},
		chunker:   chunker,
		cache:     opts.Cache,
		logger:    logger,
	}
}

// Summarize returns the final summary of text. Model failures are absorbed
// by the pipeline; the error is only non-nil when ctx ends.
func (a *Agent) Summarize(ctx context.Context, text string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return EmptyTextMessage, nil
	}

	st, err := a.Run(ctx, text)
	if err != nil {
		return "", err
	}

	if st.FinalOutput == "" {
		return NoSummaryMessage, nil
	}

	return st.FinalOutput, nil
}

// Run executes the pipeline and returns the final State.
func (a *Agent) Run(ctx context.Context, text string) (*State, error) {
	st := &State{OriginalText: text}

	if strings.TrimSpace(text) == "" {
		st.FinalOutput = EmptyTextMessage
		return st, nil
	}

	key := cache.Key(cachePrefix, text)
	if a.cache != nil {
		if hit, ok, err := a.cache.Get(ctx, key); err != nil {
			a.logger.WarnContext(ctx, "summarize: cache get failed", "error", err)
		} else if ok {
			a.logger.InfoContext(ctx, "summarize: cache hit", "key", key)
			st.Metadata = Analyze(text)
			st.FinalOutput, st.Cached = hit, true
			return st, nil
		}
	}

	if err := a.pipeline(ctx, st); err != nil {
		return st, err
	}

	if a.cache != nil && st.FinalOutput != "" && !st.Failed {
		if err := a.cache.Set(ctx, key, st.FinalOutput); err != nil {
			a.logger.WarnContext(ctx, "summarize: cache set failed", "error", err)
		}
	}

	return st, nil
}

func (a *Agent) pipeline(ctx context.Context, st *State) error {
	a.router.Route(ctx, st)
	if err := ctx.Err(); err != nil {
		return err
	}

	if st.Metadata.EstimatedTokens < TokenThresholdLong {
		a.direct(ctx, st)
		return ctx.Err()
	}

	st.Chunks = a.chunker.Chunk(st.OriginalText, st.Strategy)
	a.logger.InfoContext(ctx, "summarize: chunked", "node", "chunk", "strategy", st.Strategy, "chunks", len(st.Chunks))

	switch st.Strategy {
	case Refine:
		a.refine(ctx, st)
	case Hierarchical:
		a.hierarchical(ctx, st)
	default:
		a.mapReduce(ctx, st)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	for {
		a.reflect(ctx, st)
		if err := ctx.Err(); err != nil {
			return err
		}

		if st.Approved() || st.RevisionCount >= MaxRevisionCount {
			return nil
		}

		a.revise(ctx, st)
	}
}

func (a *Agent) ask(ctx context.Context, system, prompt string) (string, error) {
	return modeladapter.Ask(ctx, a.completer, system, prompt)
}

// Tools exposes the agent as a summarize_document tool so tool-calling
// agents can hand long texts to the pipeline.
func (a *Agent) Tools() *toolbox.ToolBox {
	tb := toolbox.New()
	tb.Register(toolbox.Tool{
		Name:        "summarize_document",
		Description: "Summarize a document of any length. The strategy (direct, map-reduce, refine or hierarchical) is chosen automatically and the draft is reviewed before it is returned.",
		InputSchema: json.RawMessage(`{"type":"object","properties":{"text":{"type":"string","description":"The document text to summarize"}},"required":["text"]}`),
		Handler: func(ctx context.Context, input json.RawMessage) (string, error) {
			var in struct {
				Text string `json:"text"`
			}
			if err := toolbox.Decode("summarize_document", input, &in); err != nil {
				return "", err
			}

			out, err := a.Summarize(ctx, in.Text)
			if err != nil {
				return "", fmt.Errorf("summarize_document: %w", err)
			}

			return out, nil
		},
	})

	return tb
}
