package summarize

import (
	"context"
	"fmt"
	"strings"
)

func (a *Agent) direct(ctx context.Context, st *State) {
	out, err := a.ask(ctx, directSystem, directPrompt(st.Focus, st.OriginalText))
	if err != nil {
		out = fmt.Sprintf("Error during summarization: %v", err)
		st.Failed = true
	}

	st.FinalOutput = out
	a.logger.InfoContext(ctx, "summarize: direct done", "node", "direct", "error", err)
}

func (a *Agent) mapReduce(ctx context.Context, st *State) {
	summaries := make([]string, 0, len(st.Chunks))

	for i, chunk := range st.Chunks {
		a.logger.DebugContext(ctx, "summarize: map", "node", "map_reduce", "chunk", i+1, "of", len(st.Chunks))

		out, err := a.ask(ctx, mapSystem, mapPrompt(st.Focus, chunk))
		if err != nil {
			out = fmt.Sprintf("[Chunk %d failed: %v]", i+1, err)
		}
		summaries = append(summaries, out)
	}

	st.ChunkSummaries = summaries

	draft, err := a.ask(ctx, reduceSystem, reducePrompt(st.Focus, summaries))
	if err != nil {
		a.logger.WarnContext(ctx, "summarize: reduce failed, joining sections", "node", "map_reduce", "error", err)
		draft = strings.Join(summaries, "\n\n")
	}

	st.Draft = draft
	a.logger.InfoContext(ctx, "summarize: map-reduce done", "node", "map_reduce", "chunks", len(st.Chunks))
}

func (a *Agent) refine(ctx context.Context, st *State) {
	running := ""

	for i, chunk := range st.Chunks {
		a.logger.DebugContext(ctx, "summarize: refine", "node", "refine", "chunk", i+1, "of", len(st.Chunks))

		prompt := refineUpdatePrompt(st.Focus, running, chunk)
		if i == 0 {
			prompt = refineInitialPrompt(st.Focus, chunk)
		}

		out, err := a.ask(ctx, refineSystem, prompt)
		switch {
		case err == nil:
			running = out
		case i == 0:
			running = fmt.Sprintf("[Initial chunk failed: %v]", err)
		}
	}

	st.RunningSummary = running
	st.Draft = running
	a.logger.InfoContext(ctx, "summarize: refine done", "node", "refine", "chunks", len(st.Chunks))
}

func (a *Agent) hierarchical(ctx context.Context, st *State) {
	level := make([]string, 0, len(st.Chunks))

	for i, chunk := range st.Chunks {
		out, err := a.ask(ctx, leafSystem, leafPrompt(st.Focus, chunk))
		if err != nil {
			out = fmt.Sprintf("[Leaf %d summary]", i+1)
		}
		level = append(level, out)
	}

	all := append([]string(nil), level...)
	layers := 1

	for len(level) > 1 {
		a.logger.DebugContext(ctx, "summarize: merge layer", "node", "hierarchical", "layer", layers, "summaries", len(level))

		var next []string
		for _, group := range batches(level, DefaultGroupSize) {
			out, err := a.ask(ctx, mergeSystem, mergePrompt(st.Focus, group))
			if err != nil {
				out = strings.Join(group, " ")
			}
			next = append(next, out)
		}

		level = next
		all = append(all, level...)
		layers++
	}

	st.ChunkSummaries = all
	st.Draft = noChunksDraft
	if len(level) > 0 {
		st.Draft = level[0]
	}

	a.logger.InfoContext(ctx, "summarize: hierarchical done", "node", "hierarchical", "chunks", len(st.Chunks), "layers", layers)
}

func (a *Agent) reflect(ctx context.Context, st *State) {
	out, err := a.ask(ctx, reflectSystem, reflectPrompt(st.Focus, st.Draft, st.OriginalText))
	if err != nil {
		a.logger.WarnContext(ctx, "summarize: reflect failed, approving draft", "node", "reflect", "error", err)
		out = approved
	}

	st.Critique = strings.TrimSpace(out)
	if st.Approved() {
		st.FinalOutput = st.Draft
	}

	a.logger.InfoContext(ctx, "summarize: reflected", "node", "reflect", "approved", st.Approved(), "revision", st.RevisionCount)
}

func (a *Agent) revise(ctx context.Context, st *State) {
	out, err := a.ask(ctx, reviseSystem, revisePrompt(st.Focus, st.Draft, st.Critique))
	if err == nil {
		st.Draft = out
	}

	st.RevisionCount++
	st.FinalOutput = st.Draft

	a.logger.InfoContext(ctx, "summarize: revised", "node", "revise", "revision", st.RevisionCount, "error", err)
}
