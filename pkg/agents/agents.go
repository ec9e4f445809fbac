// Package agents is the catalog of specialized agents. Each entry pairs a
// system prompt with the toolkits the agent may call; New turns an entry
// into a ready *agent.Agent.
package agents

import (
	"errors"
	"fmt"

	"github.com/germanamz/agentry/pkg/agent"
	"github.com/germanamz/agentry/pkg/modeladapter"
)

// ErrUnknownAgent is returned by New for a name missing from the catalog.
var ErrUnknownAgent = errors.New("agents: unknown agent")

// Spec describes a catalog agent.
type Spec struct {
	Name         string
	Description  string
	Instructions string
	Toolkits     []Toolkit
	// Delegates marks an agent that drives other registered agents
	// through delegate_to_<name> tools instead of owning toolkits.
	Delegates bool
}

// Catalog names.
const (
	MathAgent       = "math"
	RegexSearch     = "regex_search"
	CodeExecutor    = "code_executor"
	DataAnalysis    = "data_analysis"
	ChartGenerator  = "chart_generator"
	NoteTaker       = "note_taker"
	DocWriter       = "doc_writer"
	WebScraper      = "web_scraper"
	WebSearchAgent  = "web_search"
	TaskPlanner     = "task_planner"
	SummarizerTools = "summarizer_tools"
)

// Supervisor routes a request to the catalog agents. It is kept out of the
// catalog because it needs a registry of peers to be useful.
const Supervisor = "supervisor"

var supervisorSpec = Spec{
	Name:        Supervisor,
	Description: "Splits a request across the specialized agents and combines their answers.",
	Instructions: "You are a supervisor managing a team of specialized agents. " +
		"Hand each part of the request to the agent best suited for it with the delegate_to_<agent> tools, " +
		"give every agent a complete task and the context it needs, and check their answers. " +
		"When the work is done, reply with the final answer yourself.",
	Delegates: true,
}

const noFollowUps = " Don't ask follow-up questions."

var catalog = []Spec{
	{
		Name:        MathAgent,
		Description: "Solves arithmetic, algebra, trigonometry and statistics problems with calculator tools.",
		Instructions: "You are a mathematical assistant covering arithmetic, algebra, trigonometry and statistics. " +
			"Do every calculation with the available tools rather than in your head. " +
			"Split complex problems into steps, explain the reasoning briefly, and end with a clear final answer.",
		Toolkits: []Toolkit{Math},
	},
	{
		Name:        RegexSearch,
		Description: "Designs regular expressions and searches files and text with them.",
		Instructions: `You are a regular expression and search specialist. Work in four phases:
1. PLAN: work out what has to be found and design a pattern for it.
2. REASON: check the pattern and explain what it matches.
3. ACT: run the search over files or text.
4. OBSERVE: report the results and confirm they are what was asked for.

Tools:
- validate_and_explain_pattern describes what a pattern does.
- compile_regex_pattern checks that a pattern is valid.
- search_files_by_pattern finds files whose path matches a pattern.
- search_text_in_file finds matching lines inside a file.
- extract_pattern_matches pulls matches out of a piece of text.
- replace_pattern_in_file substitutes matches in a file; preview with dry_run first.

Always state the pattern you used and why.`,
		Toolkits: []Toolkit{Regex},
	},
	{
		Name:        CodeExecutor,
		Description: "Writes, runs and debugs Python code in a persistent interpreter.",
		Instructions: "You are a Python execution assistant. Run code with the Python REPL tool and test it before answering. " +
			"Explain what the code does and what it printed. When something fails, debug it and suggest a fix.",
		Toolkits: []Toolkit{REPL},
	},
	{
		Name:        DataAnalysis,
		Description: "Analyzes data with Python and basic math tools.",
		Instructions: "You are a data analysis expert. Process data with Python and use the math tools for calculations. " +
			"Work through the analysis step by step, back conclusions with statistics or plots, and state the insights plainly.",
		Toolkits: []Toolkit{REPL, MathBasic},
	},
	{
		Name:         ChartGenerator,
		Description:  "Reads documents and draws charts with Python.",
		Instructions: "You are a chart generator. Read documents with the tools and produce charts with the Python REPL." + noFollowUps,
		Toolkits:     []Toolkit{DocRead, REPL},
	},
	{
		Name:         NoteTaker,
		Description:  "Reads documents and writes outlines for the document writer.",
		Instructions: "You read documents and write outlines that the document writer will expand." + noFollowUps,
		Toolkits:     []Toolkit{DocOutline, DocRead},
	},
	{
		Name:         DocWriter,
		Description:  "Writes and edits documents from the note taker's outlines.",
		Instructions: "You read, write and edit documents, following the outlines prepared by the note taker." + noFollowUps,
		Toolkits:     []Toolkit{DocWrite, DocRead},
	},
	{
		Name:         WebScraper,
		Description:  "Fetches web pages and returns their text.",
		Instructions: "You are a web scraper. Fetch the pages you need with the scraping tool." + noFollowUps,
		Toolkits:     []Toolkit{Scrape},
	},
	{
		Name:         WebSearchAgent,
		Description:  "Looks up information with a web search engine.",
		Instructions: "You are a search assistant. Look information up with the web search tool." + noFollowUps,
		Toolkits:     []Toolkit{WebSearch},
	},
	{
		Name:        TaskPlanner,
		Description: "Breaks goals into ordered subtasks and tracks progress against them.",
		Instructions: `You are a task planning expert. Work in four phases:
1. PLAN: split the goal into subtasks with explicit dependencies.
2. REASON: weigh priorities, relationships and the critical path.
3. ACT: build and refine the execution plan.
4. OBSERVE: track completion and adjust the plan.

Tools:
- plan_tasks creates the initial structure.
- analyze_reasoning evaluates options and dependencies.
- observe_progress records completion.
- compare_results checks outcomes against objectives.

Give every plan concrete, actionable steps.`,
		Toolkits: []Toolkit{Planning},
	},
	{
		Name:        SummarizerTools,
		Description: "Inspects documents, splits them into chunks and estimates token counts.",
		Instructions: "You help prepare documents for summarization. Measure a text with analyze_document or estimate_tokens, " +
			"split it with chunk_text, and recommend the summarization strategy that fits its size.",
		Toolkits: []Toolkit{SummaryTools},
	},
}

// Catalog returns a copy of every catalog entry in declaration order.
func Catalog() []Spec {
	out := make([]Spec, len(catalog))
	copy(out, catalog)
	return out
}

// Names returns the catalog names in declaration order.
func Names() []string {
	names := make([]string, len(catalog))
	for i, s := range catalog {
		names[i] = s.Name
	}
	return names
}

// Lookup returns the named catalog entry, or the supervisor.
func Lookup(name string) (Spec, bool) {
	for _, s := range catalog {
		if s.Name == name {
			return s, true
		}
	}
	if name == Supervisor {
		return supervisorSpec, true
	}
	return Spec{}, false
}

// New builds the named catalog agent.
func New(name string, completer modeladapter.Completer, deps *Deps, opts agent.Options) (*agent.Agent, error) {
	spec, ok := Lookup(name)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownAgent, name)
	}

	return Build(spec, completer, deps, opts)
}

// Build creates an agent from spec. A spec without toolkits yields a plain
// chat agent.
func Build(spec Spec, completer modeladapter.Completer, deps *Deps, opts agent.Options) (*agent.Agent, error) {
	if deps == nil {
		deps = &Deps{}
	}

	a := agent.New(spec.Name, spec.Description, spec.Instructions, completer, opts)

	for _, tk := range spec.Toolkits {
		tb, err := deps.ToolBox(tk)
		if err != nil {
			return nil, fmt.Errorf("agents: %s: %w", spec.Name, err)
		}
		a.AddToolBoxes(tb)
	}

	return a, nil
}

// Register adds a factory for every catalog agent to r, plus the supervisor
// that delegates to them. Agents whose toolkits cannot be built, such as web
// search without credentials, are skipped and returned as errors.
func Register(r *agent.Registry, completer modeladapter.Completer, deps *Deps, opts agent.Options) error {
	var errs []error

	for _, spec := range catalog {
		if _, err := Build(spec, completer, deps, opts); err != nil {
			errs = append(errs, err)
			continue
		}

		r.Register(spec.Name, spec.Description, func() *agent.Agent {
			a, _ := Build(spec, completer, deps, opts)
			return a
		})
	}

	r.Register(Supervisor, supervisorSpec.Description, func() *agent.Agent {
		return NewSupervisor(r, completer, opts)
	})

	return errors.Join(errs...)
}

// NewSupervisor builds the supervisor with one delegation tool per agent
// registered in r at the time of the call.
func NewSupervisor(r *agent.Registry, completer modeladapter.Completer, opts agent.Options) *agent.Agent {
	a := agent.New(Supervisor, supervisorSpec.Description, supervisorSpec.Instructions, completer, opts)
	a.AddToolBoxes(agent.DelegationToolBox(r, Supervisor))
	return a
}
