package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

const version = "0.1.0"

const usage = `Usage: agentry <command> [flags] [input]

Commands:
  run        Run a catalog agent on a prompt
  team       Run a supervised team (research, paper, super) on a prompt
  rag        Answer a question from local documents
  summarize  Summarize a text or PDF file ("-" reads stdin)
  mcp        Serve toolkits over MCP on stdio
  agents     List the catalog agents

Run "agentry <command> -h" for the flags of a command.
`

// command is a subcommand entry point. args excludes the command name.
type command func(ctx context.Context, args []string) error

var commands = map[string]command{
	"run":       runAgent,
	"team":      runTeam,
	"rag":       runRAG,
	"summarize": runSummarize,
	"mcp":       runMCP,
	"agents":    listAgents,
}

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	name := os.Args[1]
	if name == "-h" || name == "--help" || name == "help" {
		fmt.Fprint(os.Stdout, usage)
		return
	}

	cmd, ok := commands[name]
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s", name, usage)
		os.Exit(2)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := cmd(ctx, os.Args[2:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		fmt.Fprintln(os.Stderr, errorStyle.Render("error: "+err.Error()))
		os.Exit(1)
	}
}
