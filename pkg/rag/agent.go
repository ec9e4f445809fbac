package rag

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/germanamz/agentry/pkg/chats/chat"
	"github.com/germanamz/agentry/pkg/chats/message"
	"github.com/germanamz/agentry/pkg/chats/role"
	"github.com/germanamz/agentry/pkg/modeladapter"
	"github.com/germanamz/agentry/pkg/tools/toolbox"
)

// Defaults for Options.
const (
	DefaultK           = 4
	DefaultMaxRewrites = 2
	DefaultToolName    = "retrieve_documents"
	DefaultToolDesc    = "Search the loaded documents and return the passages most relevant to the query."
)

// NoDocuments is the tool output when nothing matches.
const NoDocuments = "No relevant documents found."

const gradePrompt = `You are grading whether a retrieved document is relevant to a user question.
Retrieved document:

%s

User question: %s

If the document contains keywords or meaning related to the question, it is relevant.
Answer with ONLY a JSON object: {"binary_score": "yes"} if relevant, {"binary_score": "no"} otherwise.`

const rewritePrompt = `Look at the input and reason about the intent behind it.
Initial question:
 -------
%s
 -------
Write an improved question. Reply with the question only.`

const answerPrompt = `You answer questions using retrieved context. Use the context below to answer the question. If the answer is not in it, say that you don't know. Use three sentences at most and keep the answer concise.
Question: %s
Context: %s`

// Options configures an Agent.
type Options struct {
	K               int // Documents per retrieval (0 = DefaultK).
	MaxRewrites     int // Question rewrites before answering anyway (0 = DefaultMaxRewrites, <0 = none).
	ToolName        string
	ToolDescription string
	Logger          *slog.Logger
}

// Agent answers a question by letting the model decide whether to retrieve,
// grading what came back, rewriting the question when it was irrelevant and
// finally answering from the context.
type Agent struct {
	completer modeladapter.Completer
	retriever Retriever
	opts      Options
	tools     *toolbox.ToolBox
}

// New creates an Agent.
func New(completer modeladapter.Completer, retriever Retriever, opts Options) *Agent {
	if opts.K <= 0 {
		opts.K = DefaultK
	}
	switch {
	case opts.MaxRewrites == 0:
		opts.MaxRewrites = DefaultMaxRewrites
	case opts.MaxRewrites < 0:
		opts.MaxRewrites = 0
	}
	if opts.ToolName == "" {
		opts.ToolName = DefaultToolName
	}
	if opts.ToolDescription == "" {
		opts.ToolDescription = DefaultToolDesc
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	a := &Agent{completer: completer, retriever: retriever, opts: opts}
	a.tools = toolbox.New()
	a.tools.Register(a.retrieveTool())

	return a
}

// Tools returns the retrieval tool.
func (a *Agent) Tools() *toolbox.ToolBox { return a.tools }

func (a *Agent) retrieveTool() toolbox.Tool {
	return toolbox.Tool{
		Name:        a.opts.ToolName,
		Description: a.opts.ToolDescription,
		InputSchema: json.RawMessage(`{"type":"object","properties":{"query":{"type":"string","description":"The search query"}},"required":["query"]}`),
		Handler: func(ctx context.Context, input json.RawMessage) (string, error) {
			var in struct {
				Query string `json:"query"`
			}
			if err := toolbox.Decode(a.opts.ToolName, input, &in); err != nil {
				return "", err
			}
			if strings.TrimSpace(in.Query) == "" {
				return "", fmt.Errorf("%s: query is required", a.opts.ToolName)
			}

			docs, err := a.retriever.Retrieve(ctx, in.Query, a.opts.K)
			if err != nil {
				return "", err
			}
			if len(docs) == 0 {
				return NoDocuments, nil
			}

			return Format(docs), nil
		},
	}
}

// Invoke answers question.
func (a *Agent) Invoke(ctx context.Context, question string) (string, error) {
	log := a.opts.Logger
	conv := chat.New(message.NewText("user", role.User, question))
	tools := a.tools.Tools()

	for rewrites := 0; ; {
		reply, err := a.completer.Complete(ctx, conv, tools)
		if err != nil {
			return "", fmt.Errorf("rag: generate query: %w", err)
		}
		reply.Sender = "rag"
		conv.Append(reply)

		calls := reply.ToolCalls()
		if len(calls) == 0 {
			log.DebugContext(ctx, "rag answered without retrieval")
			return reply.TextContent(), nil
		}

		var retrieved string
		for _, tc := range calls {
			res := a.tools.Call(ctx, tc)
			conv.Append(message.New("retrieve", role.Tool, res))
			retrieved = res.Content
		}

		relevant, err := a.grade(ctx, question, retrieved)
		if err != nil {
			return "", err
		}
		log.DebugContext(ctx, "rag graded documents", "relevant", relevant, "rewrites", rewrites)

		if relevant || rewrites >= a.opts.MaxRewrites {
			return a.answer(ctx, question, retrieved)
		}

		rewrites++
		better, err := modeladapter.Ask(ctx, a.completer, "", fmt.Sprintf(rewritePrompt, question))
		if err != nil {
			return "", fmt.Errorf("rag: rewrite question: %w", err)
		}
		log.DebugContext(ctx, "rag rewrote question", "question", better)

		conv.Append(message.NewText("user", role.User, strings.TrimSpace(better)))
	}
}

type gradeResult struct {
	BinaryScore string `json:"binary_score"`
}

// grade reports whether retrieved is relevant to question. A reply that is
// not a usable grade counts as irrelevant.
func (a *Agent) grade(ctx context.Context, question, retrieved string) (bool, error) {
	text, err := modeladapter.Ask(ctx, a.completer, "", fmt.Sprintf(gradePrompt, retrieved, question))
	if err != nil {
		return false, fmt.Errorf("rag: grade documents: %w", err)
	}

	var g gradeResult
	if err := modeladapter.ParseJSON(text, &g); err != nil {
		a.opts.Logger.WarnContext(ctx, "rag grade unreadable", "reply", text, "error", err)
		return false, nil
	}

	return strings.EqualFold(strings.TrimSpace(g.BinaryScore), "yes"), nil
}

func (a *Agent) answer(ctx context.Context, question, retrieved string) (string, error) {
	text, err := modeladapter.Ask(ctx, a.completer, "", fmt.Sprintf(answerPrompt, question, retrieved))
	if err != nil {
		return "", fmt.Errorf("rag: generate answer: %w", err)
	}
	return text, nil
}
