package reactor

import (
	"fmt"
	"log/slog"

	"github.com/germanamz/agentry/pkg/agent"
	"github.com/germanamz/agentry/pkg/agents"
	"github.com/germanamz/agentry/pkg/modeladapter"
)

// Team names.
const (
	ResearchTeam = "research_team"
	WritingTeam  = "writing_team"
	SuperTeam    = "super_team"
)

// Member names of the super team. The nested teams are renamed to these so
// the top-level supervisor routes between "research" and "writing".
const (
	ResearchMember = "research"
	WritingMember  = "writing"
)

// TeamOptions configures the prebuilt teams.
type TeamOptions struct {
	Agent      agent.Options     // Applied to every member agent.
	Supervisor SupervisorOptions // Applied to every supervisor.
	Logger     *slog.Logger
}

// NewResearchTeam builds a supervised team with a "search" member that
// queries the web and a "web_scraper" member that reads pages.
func NewResearchTeam(completer modeladapter.Completer, deps *agents.Deps, opts TeamOptions) (*Reactor, error) {
	specs, err := lookup(agents.WebSearchAgent, agents.WebScraper)
	if err != nil {
		return nil, err
	}
	specs[0].Name = "search"

	return newTeam(ResearchTeam, completer, deps, opts, specs)
}

// NewPaperWritingTeam builds a supervised team of doc_writer, note_taker and
// chart_generator sharing one document directory.
func NewPaperWritingTeam(completer modeladapter.Completer, deps *agents.Deps, opts TeamOptions) (*Reactor, error) {
	specs, err := lookup(agents.DocWriter, agents.NoteTaker, agents.ChartGenerator)
	if err != nil {
		return nil, err
	}

	return newTeam(WritingTeam, completer, deps, opts, specs)
}

// NewSuperTeam puts the research and writing teams under one supervisor.
func NewSuperTeam(completer modeladapter.Completer, deps *agents.Deps, opts TeamOptions) (*Reactor, error) {
	research, err := NewResearchTeam(completer, deps, opts)
	if err != nil {
		return nil, err
	}

	writing, err := NewPaperWritingTeam(completer, deps, opts)
	if err != nil {
		return nil, err
	}

	research.name = ResearchMember
	writing.name = WritingMember

	return New(SuperTeam, nil, []TeamMember{
		{Agent: research, Role: ResearchMember},
		{Agent: writing, Role: WritingMember},
	}, Options{
		Coordinator: NewSupervisor(completer, supervisorOptions(opts)),
		Logger:      opts.Logger,
	})
}

func lookup(names ...string) ([]agents.Spec, error) {
	specs := make([]agents.Spec, len(names))
	for i, n := range names {
		spec, ok := agents.Lookup(n)
		if !ok {
			return nil, fmt.Errorf("%w: %q", agents.ErrUnknownAgent, n)
		}
		specs[i] = spec
	}
	return specs, nil
}

// newTeam builds one agent per spec and puts them under a Supervisor.
func newTeam(name string, completer modeladapter.Completer, deps *agents.Deps, opts TeamOptions, specs []agents.Spec) (*Reactor, error) {
	team := make([]TeamMember, 0, len(specs))

	for _, spec := range specs {
		a, err := agents.Build(spec, completer, deps, opts.Agent)
		if err != nil {
			return nil, fmt.Errorf("reactor: %s: %w", name, err)
		}

		team = append(team, TeamMember{Agent: a, Role: TeamRole(spec.Name)})
	}

	return New(name, nil, team, Options{
		Coordinator: NewSupervisor(completer, supervisorOptions(opts)),
		Logger:      opts.Logger,
	})
}

func supervisorOptions(opts TeamOptions) SupervisorOptions {
	so := opts.Supervisor
	if so.Logger == nil {
		so.Logger = opts.Logger
	}
	return so
}
