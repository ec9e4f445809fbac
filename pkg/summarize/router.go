package summarize

import (
	"context"
	"errors"
	"log/slog"

	"github.com/germanamz/agentry/pkg/modeladapter"
)

// ContentType classifies a document.
type ContentType string

// Content types.
const (
	Narrative      ContentType = "narrative"
	Informational  ContentType = "informational"
	MassiveDataset ContentType = "massive_dataset"
)

// Focus strings used when the router does not ask the model.
const (
	FocusShort    = "Capture all key points concisely."
	FocusMassive  = "Extract and organize key information from this large document."
	FocusDefault  = "Summarize the key points."
	FocusFallback = "Extract main ideas and key points."
)

// Router classifies documents and picks a Strategy.
type Router struct {
	Completer modeladapter.Completer
	Logger    *slog.Logger
}

type routerReply struct {
	ContentType string `json:"content_type"`
	Strategy    string `json:"selected_strategy"`
	Focus       string `json:"summary_focus"`
}

// Route fills Metadata, ContentType, Strategy and Focus on st and resets
// RevisionCount. Short and massive documents are routed without a model
// call; model failures fall back to map-reduce.
func (r *Router) Route(ctx context.Context, st *State) {
	log := r.logger()

	st.Metadata = Analyze(st.OriginalText)
	st.RevisionCount = 0
	tokens := st.Metadata.EstimatedTokens

	switch {
	case tokens < TokenThresholdLong:
		st.ContentType, st.Strategy, st.Focus = Informational, MapReduce, FocusShort
		log.InfoContext(ctx, "summarize: routed", "node", "router", "path", "direct", "tokens", tokens)
		return
	case tokens >= TokenThresholdMassive:
		st.ContentType, st.Strategy, st.Focus = MassiveDataset, Hierarchical, FocusMassive
		log.InfoContext(ctx, "summarize: routed", "node", "router", "strategy", st.Strategy, "tokens", tokens)
		return
	}

	var reply routerReply
	err := modeladapter.AskJSON(ctx, r.Completer, routerSystem, routerPrompt(st.OriginalText, st.Metadata), &reply)
	switch {
	case errors.Is(err, modeladapter.ErrNoJSON):
		log.DebugContext(ctx, "summarize: router reply not JSON", "node", "router", "error", err)
		reply = routerReply{}
	case err != nil:
		log.WarnContext(ctx, "summarize: router failed, using map-reduce", "node", "router", "error", err)
		st.ContentType, st.Strategy, st.Focus = Informational, MapReduce, FocusFallback
		return
	}

	st.ContentType = Informational
	if reply.ContentType != "" {
		st.ContentType = ContentType(reply.ContentType)
	}

	st.Strategy = MapReduce
	if reply.Strategy != "" {
		st.Strategy = ParseStrategy(reply.Strategy)
	}

	st.Focus = FocusDefault
	if reply.Focus != "" {
		st.Focus = reply.Focus
	}

	log.InfoContext(ctx, "summarize: routed",
		"node", "router",
		"strategy", st.Strategy,
		"content_type", st.ContentType,
		"tokens", tokens,
	)
}

func (r *Router) logger() *slog.Logger {
	if r.Logger != nil {
		return r.Logger
	}
	return slog.Default()
}
