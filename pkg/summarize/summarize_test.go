package summarize

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/germanamz/agentry/pkg/cache"
	"github.com/germanamz/agentry/pkg/chats/content"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSummarize_EmptyText(t *testing.T) {
	s := newScripted(func(string, string, int) (string, error) {
		t.Fatal("model must not be called")
		return "", nil
	})

	out, err := New(s, Options{}).Summarize(context.Background(), "  \n ")

	require.NoError(t, err)
	assert.Equal(t, EmptyTextMessage, out)
}

func TestSummarize_Direct(t *testing.T) {
	s := newScripted(func(system, prompt string, _ int) (string, error) {
		assert.Equal(t, directSystem, system)
		assert.Contains(t, prompt, FocusShort)
		assert.Contains(t, prompt, "The cat sat on the mat.")
		return "A cat sat.", nil
	})

	st, err := New(s, Options{}).Run(context.Background(), "The cat sat on the mat.")

	require.NoError(t, err)
	assert.Equal(t, "A cat sat.", st.FinalOutput)
	assert.Empty(t, st.Chunks)
	assert.Empty(t, st.Critique)
	assert.Len(t, s.calls, 1)
}

func TestSummarize_DirectError(t *testing.T) {
	s := newScripted(func(string, string, int) (string, error) {
		return "", errors.New("boom")
	})
	mem := cache.NewMemory(0)

	out, err := New(s, Options{Cache: mem}).Summarize(context.Background(), "tiny")

	require.NoError(t, err)
	assert.Equal(t, "Error during summarization: boom", out)
	assert.Zero(t, mem.Len())
}

func TestSummarize_CachesSummaryStartingWithError(t *testing.T) {
	s := newScripted(func(string, string, int) (string, error) {
		return "Errors in the ledger were traced to a rounding bug.", nil
	})
	mem := cache.NewMemory(0)
	a := New(s, Options{Cache: mem})

	st, err := a.Run(context.Background(), "The audit found rounding errors.")
	require.NoError(t, err)
	assert.False(t, st.Failed)
	assert.Equal(t, 1, mem.Len())

	st, err = a.Run(context.Background(), "The audit found rounding errors.")
	require.NoError(t, err)
	assert.True(t, st.Cached)
	assert.Len(t, s.calls, 1)
}

func TestSummarize_MapReduceApproved(t *testing.T) {
	s := newScripted(func(system, prompt string, n int) (string, error) {
		switch system {
		case routerSystem:
			return `{"content_type":"informational","selected_strategy":"MAP_REDUCE","summary_focus":"facts"}`, nil
		case mapSystem:
			if n == 1 {
				return "", errors.New("flaky")
			}
			return fmt.Sprintf("part %d", n+1), nil
		case reduceSystem:
			assert.Contains(t, prompt, "Section 1:\npart 1\n\nSection 2:\n[Chunk 2 failed: flaky]")
			return "draft", nil
		case reflectSystem:
			return "  approved \n", nil
		}
		return "", fmt.Errorf("unexpected system %q", system)
	})

	st, err := New(s, Options{}).Run(context.Background(), paragraphs(10, 1000))

	require.NoError(t, err)
	assert.Equal(t, MapReduce, st.Strategy)
	assert.Len(t, st.Chunks, 10)
	assert.Len(t, st.ChunkSummaries, 10)
	assert.Equal(t, "[Chunk 2 failed: flaky]", st.ChunkSummaries[1])
	assert.Equal(t, "draft", st.FinalOutput)
	assert.Zero(t, st.RevisionCount)
	assert.Equal(t, 0, s.count(reviseSystem))
}

func TestSummarize_ReduceFailureJoinsSections(t *testing.T) {
	s := newScripted(func(system, _ string, n int) (string, error) {
		switch system {
		case routerSystem:
			return `{"selected_strategy":"MAP_REDUCE"}`, nil
		case mapSystem:
			return fmt.Sprintf("s%d", n+1), nil
		case reduceSystem:
			return "", errors.New("down")
		default:
			return "APPROVED", nil
		}
	})

	st, err := New(s, Options{}).Run(context.Background(), paragraphs(10, 1000))

	require.NoError(t, err)
	assert.Equal(t, "s1\n\ns2\n\ns3\n\ns4\n\ns5\n\ns6\n\ns7\n\ns8\n\ns9\n\ns10", st.FinalOutput)
}

func TestSummarize_RefineWithRevision(t *testing.T) {
	s := newScripted(func(system, _ string, n int) (string, error) {
		switch system {
		case routerSystem:
			return `{"content_type":"narrative","selected_strategy":"REFINE","summary_focus":"plot"}`, nil
		case refineSystem:
			if n == 1 {
				return "", errors.New("hiccup")
			}
			return fmt.Sprintf("s%d", n+1), nil
		case reflectSystem:
			if n == 0 {
				return "Needs more detail on the ending.", nil
			}
			return "APPROVED", nil
		case reviseSystem:
			return "revised", nil
		}
		return "", fmt.Errorf("unexpected system %q", system)
	})

	st, err := New(s, Options{}).Run(context.Background(), paragraphs(10, 1000))

	require.NoError(t, err)
	assert.Equal(t, Refine, st.Strategy)
	assert.Equal(t, Narrative, st.ContentType)
	require.Len(t, st.Chunks, 4)

	prompts := s.prompts(refineSystem)
	require.Len(t, prompts, 4)
	assert.Contains(t, prompts[0], "FIRST SECTION")
	assert.Contains(t, prompts[2], "CURRENT RUNNING SUMMARY:\n---\ns1\n---")
	assert.Equal(t, "s4", st.RunningSummary)

	revise := s.prompts(reviseSystem)
	require.Len(t, revise, 1)
	assert.Contains(t, revise[0], "Needs more detail on the ending.")

	assert.Equal(t, 1, st.RevisionCount)
	assert.Equal(t, "revised", st.FinalOutput)
	assert.True(t, st.Approved())
}

func TestSummarize_RefineInitialFailure(t *testing.T) {
	s := newScripted(func(system, _ string, n int) (string, error) {
		switch system {
		case routerSystem:
			return `{"selected_strategy":"REFINE"}`, nil
		case refineSystem:
			return "", errors.New("nope")
		default:
			return "APPROVED", nil
		}
	})

	st, err := New(s, Options{}).Run(context.Background(), paragraphs(10, 1000))

	require.NoError(t, err)
	assert.Equal(t, "[Initial chunk failed: nope]", st.FinalOutput)
}

func TestSummarize_HierarchicalRevisionLimit(t *testing.T) {
	s := newScripted(func(system, _ string, _ int) (string, error) {
		switch system {
		case leafSystem:
			return "leaf", nil
		case mergeSystem:
			return "merged", nil
		case reflectSystem:
			return "still weak", nil
		case reviseSystem:
			return "", errors.New("revise down")
		}
		return "", fmt.Errorf("unexpected system %q", system)
	})

	text := paragraphs(TokenThresholdMassive*4/792+1, 790)
	st, err := New(s, Options{}).Run(context.Background(), text)

	require.NoError(t, err)
	assert.Equal(t, Hierarchical, st.Strategy)
	assert.Equal(t, 0, s.count(routerSystem))
	assert.Equal(t, len(st.Chunks), s.count(leafSystem))
	assert.Greater(t, len(st.ChunkSummaries), len(st.Chunks))

	assert.Equal(t, MaxRevisionCount, st.RevisionCount)
	assert.Equal(t, MaxRevisionCount+1, s.count(reflectSystem))
	assert.Equal(t, "still weak", st.Critique)
	assert.Equal(t, "merged", st.FinalOutput)
}

func TestHierarchical_MergeFailureAndNoChunks(t *testing.T) {
	s := newScripted(func(system, _ string, n int) (string, error) {
		if system == leafSystem {
			if n == 0 {
				return "", errors.New("x")
			}
			return fmt.Sprintf("l%d", n+1), nil
		}
		return "", errors.New("merge down")
	})
	a := New(s, Options{})

	st := &State{Chunks: []string{"c1", "c2", "c3"}}
	a.hierarchical(context.Background(), st)
	assert.Equal(t, "[Leaf 1 summary] l2 l3", st.Draft)

	st = &State{}
	a.hierarchical(context.Background(), st)
	assert.Equal(t, "No summary generated.", st.Draft)
}

func TestSummarize_ReflectFailureApproves(t *testing.T) {
	s := newScripted(func(system, _ string, _ int) (string, error) {
		switch system {
		case routerSystem:
			return `{"selected_strategy":"MAP_REDUCE"}`, nil
		case reduceSystem:
			return "draft", nil
		case reflectSystem:
			return "", errors.New("editor unavailable")
		default:
			return "x", nil
		}
	})

	st, err := New(s, Options{}).Run(context.Background(), paragraphs(10, 1000))

	require.NoError(t, err)
	assert.Equal(t, "APPROVED", st.Critique)
	assert.Equal(t, "draft", st.FinalOutput)
}

func TestSummarize_Cache(t *testing.T) {
	s := newScripted(func(string, string, int) (string, error) {
		return "cached summary", nil
	})
	a := New(s, Options{Cache: cache.NewMemory(0)})

	out, err := a.Summarize(context.Background(), "some text")
	require.NoError(t, err)
	assert.Equal(t, "cached summary", out)

	st, err := a.Run(context.Background(), "some text")
	require.NoError(t, err)
	assert.True(t, st.Cached)
	assert.Equal(t, "cached summary", st.FinalOutput)
	assert.Len(t, s.calls, 1)
}

func TestSummarize_ContextCanceled(t *testing.T) {
	s := newScripted(func(string, string, int) (string, error) { return "x", nil })

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New(s, Options{}).Summarize(ctx, "tiny")

	require.ErrorIs(t, err, context.Canceled)
}

func TestTools_SummarizeDocument(t *testing.T) {
	s := newScripted(func(string, string, int) (string, error) { return "short", nil })
	tb := New(s, Options{}).Tools()

	tr := tb.Call(context.Background(), content.ToolCall{ID: "1", Name: "summarize_document", Arguments: `{"text":"hello there"}`})

	require.False(t, tr.IsError, tr.Content)
	assert.Equal(t, "short", tr.Content)
	assert.True(t, strings.Contains(s.calls[0].prompt, "hello there"))
}
