package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/germanamz/agentry/pkg/agents"
	"github.com/germanamz/agentry/pkg/docload"
	"github.com/germanamz/agentry/pkg/engine"
	"github.com/germanamz/agentry/pkg/tools/mcpserver"
	"github.com/germanamz/agentry/pkg/tools/toolbox"
)

// defaultMCPToolkits need no credentials, network access or interpreter.
const defaultMCPToolkits = "math,regex,planning,summarytools"

func runAgent(ctx context.Context, args []string) error {
	var g globalFlags
	fs := newFlagSet("run", `run [flags] "<prompt>"`, &g)
	name := fs.String("agent", "", "agent to run (default: entry_agent, else the first configured agent)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	prompt, err := inputText(fs.Args(), os.Stdin)
	if err != nil {
		return err
	}

	eng, err := openEngine(ctx, g)
	if err != nil {
		return err
	}
	defer func() { _ = eng.Close() }()

	sess, err := eng.NewSession(*name)
	if err != nil {
		return err
	}

	return converse(ctx, eng, sess, prompt, g)
}

func runTeam(ctx context.Context, args []string) error {
	var g globalFlags
	fs := newFlagSet("team", `team [flags] "<prompt>"`, &g)
	kind := fs.String("team", engine.TeamSuper, "team to run: research, paper or super")
	if err := fs.Parse(args); err != nil {
		return err
	}

	prompt, err := inputText(fs.Args(), os.Stdin)
	if err != nil {
		return err
	}

	eng, err := openEngine(ctx, g)
	if err != nil {
		return err
	}
	defer func() { _ = eng.Close() }()

	sess, err := eng.NewTeamSession(*kind)
	if err != nil {
		return err
	}

	return converse(ctx, eng, sess, prompt, g)
}

// converse sends prompt through sess and prints the reply.
func converse(ctx context.Context, eng *engine.Engine, sess *engine.Session, prompt string, g globalFlags) error {
	if g.verbose {
		stop := watchEvents(eng, os.Stderr)
		defer stop()
	}

	reply, err := sess.Send(ctx, prompt)
	if err != nil {
		return err
	}

	printAnswer(os.Stdout, reply.Sender, reply.TextContent(), g.raw)
	return nil
}

func runRAG(ctx context.Context, args []string) error {
	var g globalFlags
	fs := newFlagSet("rag", `rag [flags] "<question>"`, &g)
	sources := fs.String("source", "", "comma separated files or directories to index, added to rag.sources")
	if err := fs.Parse(args); err != nil {
		return err
	}

	question, err := inputText(fs.Args(), os.Stdin)
	if err != nil {
		return err
	}

	eng, err := openEngine(ctx, g)
	if err != nil {
		return err
	}
	defer func() { _ = eng.Close() }()

	r, err := eng.RAG(ctx, splitList(*sources)...)
	if err != nil {
		return err
	}

	answer, err := r.Invoke(ctx, question)
	if err != nil {
		return err
	}

	printAnswer(os.Stdout, "rag", answer, g.raw)
	return nil
}

func runSummarize(ctx context.Context, args []string) error {
	var g globalFlags
	fs := newFlagSet("summarize", "summarize [flags] -file <path|->", &g)
	file := fs.String("file", "-", `text or PDF file to summarize ("-" reads stdin)`)
	if err := fs.Parse(args); err != nil {
		return err
	}

	doc, err := docload.Load(*file)
	if err != nil {
		return err
	}

	eng, err := openEngine(ctx, g)
	if err != nil {
		return err
	}
	defer func() { _ = eng.Close() }()

	s, err := eng.Summarizer()
	if err != nil {
		return err
	}

	st, err := s.Run(ctx, doc.Text)
	if err != nil {
		return err
	}

	if g.verbose {
		fmt.Fprintln(os.Stderr, dimStyle.Render(fmt.Sprintf(
			"%s: %s, strategy %s, %d chunks, %d revisions, cached %t",
			doc.Name, st.ContentType, st.Strategy, len(st.Chunks), st.RevisionCount, st.Cached,
		)))
	}

	printAnswer(os.Stdout, "summary", st.FinalOutput, g.raw)
	return nil
}

func runMCP(ctx context.Context, args []string) error {
	fs := newFlagSet("mcp", "mcp [flags]", nil)
	toolkits := fs.String("toolkits", defaultMCPToolkits, "comma separated toolkits to serve: "+strings.Join(toolkitNames(), ", "))
	workdir := fs.String("workdir", ".", "directory the document and regex tools are rooted at")
	env := fs.String("env", ".env", "path to .env file (ignored if missing)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if err := loadDotEnv(*env); err != nil {
		return err
	}

	// Logs must stay off stdout, which carries the protocol.
	logger := newLogger(os.Stderr, false)

	cfg := engine.FromEnv()
	deps := &agents.Deps{WorkDir: *workdir, Logger: logger}
	deps.Search.APIKey, deps.Search.EngineID = cfg.Search.APIKey, cfg.Search.CSEID
	defer func() { _ = deps.Close() }()

	tbs, err := buildToolBoxes(deps, splitList(*toolkits))
	if err != nil {
		return err
	}

	srv := mcpserver.New("agentry", version, logger)
	srv.RegisterToolBoxes(tbs...)
	logger.Info("serving mcp", "tools", srv.ToolNames())

	return srv.Serve(ctx, os.Stdin, os.Stdout)
}

func buildToolBoxes(deps *agents.Deps, names []string) ([]*toolbox.ToolBox, error) {
	tbs := make([]*toolbox.ToolBox, 0, len(names))
	for _, n := range names {
		tb, err := deps.ToolBox(agents.Toolkit(n))
		if err != nil {
			return nil, err
		}
		tbs = append(tbs, tb)
	}
	return tbs, nil
}

func toolkitNames() []string {
	return []string{
		string(agents.Math), string(agents.MathBasic), string(agents.Regex), string(agents.REPL),
		string(agents.DocRead), string(agents.DocOutline), string(agents.DocWrite),
		string(agents.Scrape), string(agents.WebSearch), string(agents.Planning), string(agents.SummaryTools),
	}
}

func listAgents(_ context.Context, args []string) error {
	fs := newFlagSet("agents", "agents", nil)
	if err := fs.Parse(args); err != nil {
		return err
	}

	for _, s := range agents.Catalog() {
		fmt.Fprintf(os.Stdout, "%s  %s\n", headerStyle.Render(fmt.Sprintf("%-18s", s.Name)), s.Description)
	}
	return nil
}

func printAnswer(w io.Writer, who, text string, raw bool) {
	if who == "" {
		who = "answer"
	}
	fmt.Fprintln(w, headerStyle.Render("▌ "+who))
	fmt.Fprintln(w, render(text, raw))
}
