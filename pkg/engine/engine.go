package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/germanamz/agentry/pkg/agent"
	"github.com/germanamz/agentry/pkg/agents"
	"github.com/germanamz/agentry/pkg/cache"
	"github.com/germanamz/agentry/pkg/docload"
	"github.com/germanamz/agentry/pkg/modeladapter"
	"github.com/germanamz/agentry/pkg/providers/openai"
	"github.com/germanamz/agentry/pkg/rag"
	"github.com/germanamz/agentry/pkg/reactor"
	"github.com/germanamz/agentry/pkg/summarize"
	"github.com/germanamz/agentry/pkg/toolkits/repl"
	"github.com/germanamz/agentry/pkg/toolkits/websearch"
	"github.com/germanamz/agentry/pkg/tools/mcpclient"
	"github.com/germanamz/agentry/pkg/tools/toolbox"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Team kinds accepted by Team.
const (
	TeamResearch = "research"
	TeamPaper    = "paper"
	TeamSuper    = "super"
)

// Rate limit retry policy applied to every agent.
const (
	rateLimitAttempts = 2
	rateLimitFallback = 5 * time.Second
	rateLimitMaxWait  = time.Minute
)

// ErrUnknownTeam is returned by Team for an unsupported kind.
var ErrUnknownTeam = errors.New("engine: unknown team")

// Options carries runtime resources that do not belong in a config file.
type Options struct {
	Logger *slog.Logger
	// Registerer receives the agent metrics. Nil uses a private registry
	// exposed through MetricsHandler.
	Registerer prometheus.Registerer
	// Session backs the REPL tools. Nil starts python3 on first use.
	Session    repl.Session
	HTTPClient *http.Client
}

// Engine is the composition root that assembles agents, teams, the RAG agent
// and the summarizer from configuration.
type Engine struct {
	cfg        Config
	logger     *slog.Logger
	events     *EventBus
	registry   *agent.Registry
	deps       *agents.Deps
	metrics    *agent.Metrics
	gatherer   prometheus.Gatherer
	completers map[string]modeladapter.Completer
	toolboxes  map[string]*toolbox.ToolBox
	mcpClients []*mcpclient.MCPClient
	cache      cache.Cache
	closers    []func() error

	mu       sync.Mutex
	sessions map[string]*Session
	nextID   int
}

// New creates an Engine from the given configuration. It validates the
// config, creates provider adapters, connects MCP clients, opens the summary
// cache and registers agent factories.
func New(ctx context.Context, cfg Config, opts Options) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	e := &Engine{
		cfg:        cfg,
		logger:     logger,
		events:     NewEventBus(),
		registry:   agent.NewRegistry(),
		completers: make(map[string]modeladapter.Completer, len(cfg.Providers)),
		toolboxes:  make(map[string]*toolbox.ToolBox),
		sessions:   make(map[string]*Session),
		deps: &agents.Deps{
			WorkDir: cfg.WorkDir,
			Session: opts.Session,
			Search: websearch.Config{
				APIKey:   cfg.Search.APIKey,
				EngineID: cfg.Search.CSEID,
				Endpoint: cfg.Search.Endpoint,
			},
			HTTPClient: opts.HTTPClient,
			Logger:     logger,
		},
	}

	reg := opts.Registerer
	if reg == nil {
		pr := prometheus.NewRegistry()
		reg, e.gatherer = pr, pr
	} else if g, ok := reg.(prometheus.Gatherer); ok {
		e.gatherer = g
	}
	e.metrics = agent.NewMetrics(reg)

	for _, pc := range cfg.Providers {
		c, err := buildCompleter(pc)
		if err != nil {
			return nil, fmt.Errorf("engine: provider %q: %w", pc.Name, err)
		}
		e.completers[pc.Name] = c
	}

	for _, mc := range cfg.MCPServers {
		client, err := mcpclient.New(ctx, mc.Command, mc.Args...)
		if err != nil {
			_ = e.Close()
			return nil, fmt.Errorf("engine: mcp %q: %w", mc.Name, err)
		}
		e.mcpClients = append(e.mcpClients, client)

		tb, err := client.ToolBox(ctx, mc.Tools...)
		if err != nil {
			_ = e.Close()
			return nil, fmt.Errorf("engine: mcp %q: %w", mc.Name, err)
		}
		e.toolboxes[mc.Name] = tb
	}

	if err := e.openCache(ctx); err != nil {
		_ = e.Close()
		return nil, err
	}

	for _, ac := range cfg.Agents {
		if err := e.registerAgent(ac); err != nil {
			_ = e.Close()
			return nil, err
		}
	}

	return e, nil
}

// Events returns the engine's event bus.
func (e *Engine) Events() *EventBus { return e.events }

// Registry returns the registry holding every configured agent.
func (e *Engine) Registry() *agent.Registry { return e.registry }

// Deps returns the toolkit resources shared by the engine's agents.
func (e *Engine) Deps() *agents.Deps { return e.deps }

// Metrics returns the agent collectors.
func (e *Engine) Metrics() *agent.Metrics { return e.metrics }

// MetricsHandler serves the engine's metrics in the prometheus text format.
func (e *Engine) MetricsHandler() http.Handler {
	if e.gatherer == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(e.gatherer, promhttp.HandlerOpts{})
}

// Completer returns the named provider's completer. An empty name selects
// the first provider.
func (e *Engine) Completer(name string) (modeladapter.Completer, error) {
	if name == "" {
		name = e.cfg.Providers[0].Name
	}

	c, ok := e.completers[name]
	if !ok {
		return nil, fmt.Errorf("engine: provider %q not found", name)
	}
	return c, nil
}

// Agent builds a fresh instance of the named agent.
func (e *Engine) Agent(name string) (*agent.Agent, error) {
	if name == "" {
		name = e.cfg.EntryAgent
	}
	if name == "" && len(e.cfg.Agents) > 0 {
		name = e.cfg.Agents[0].Name
	}

	a, ok := e.registry.Spawn(name)
	if !ok {
		return nil, fmt.Errorf("engine: agent %q not found", name)
	}
	return a, nil
}

// NewSession starts a conversation with the named agent. If agentName is
// empty the config's EntryAgent is used, then the first configured agent.
func (e *Engine) NewSession(agentName string) (*Session, error) {
	a, err := e.Agent(agentName)
	if err != nil {
		return nil, err
	}
	return e.addSession(a), nil
}

// NewTeamSession starts a conversation with a prebuilt team.
func (e *Engine) NewTeamSession(kind string) (*Session, error) {
	team, err := e.Team(kind)
	if err != nil {
		return nil, err
	}
	return e.addSession(team), nil
}

func (e *Engine) addSession(m reactor.Member) *Session {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.nextID++
	s := newSession(fmt.Sprintf("session-%d", e.nextID), m, e.events)
	e.sessions[s.ID()] = s

	return s
}

// Session returns an existing session by ID.
func (e *Engine) Session(id string) (*Session, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	s, ok := e.sessions[id]
	return s, ok
}

// Team builds a supervised team: research, paper or super. Members use the
// first provider.
func (e *Engine) Team(kind string) (*reactor.Reactor, error) {
	c, err := e.Completer("")
	if err != nil {
		return nil, err
	}

	opts := reactor.TeamOptions{
		Agent: agent.Options{
			Middleware: []agent.Middleware{
				agent.Recovery(),
				agent.RetryRateLimited(rateLimitAttempts, rateLimitFallback, rateLimitMaxWait),
			},
			Effects: []agent.Effect{e.toolCallEvents()},
			Metrics: e.metrics,
			Logger:  e.logger,
		},
		Logger: e.logger,
	}

	switch kind {
	case TeamResearch:
		return reactor.NewResearchTeam(c, e.deps, opts)
	case TeamPaper:
		return reactor.NewPaperWritingTeam(c, e.deps, opts)
	case TeamSuper:
		return reactor.NewSuperTeam(c, e.deps, opts)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownTeam, kind)
	}
}

// RAG builds a retrieval agent over the configured sources plus extra.
// Documents are chunked on every call; the pgvector store only embeds chunks
// it has not stored before.
func (e *Engine) RAG(ctx context.Context, extra ...string) (*rag.Agent, error) {
	rc := e.cfg.RAG

	c, err := e.Completer(rc.Provider)
	if err != nil {
		return nil, err
	}

	sources := append(append([]string(nil), rc.Sources...), extra...)
	loaded, err := docload.LoadAll(sources...)
	if err != nil {
		return nil, fmt.Errorf("engine: rag: %w", err)
	}

	size, overlap := rc.ChunkSize, rc.ChunkOverlap
	if size <= 0 {
		size = rag.DefaultChunkSize
	}
	if overlap <= 0 {
		overlap = rag.DefaultChunkOverlap
	}

	var chunks []rag.Document
	for _, d := range loaded {
		chunks = append(chunks, rag.Split(d, size, overlap)...)
	}
	e.logger.InfoContext(ctx, "rag sources indexed", "files", len(loaded), "chunks", len(chunks))

	var retriever rag.Retriever
	switch rc.Store {
	case StorePGVector:
		store, err := e.openPGVector(ctx)
		if err != nil {
			return nil, err
		}
		if err := store.Add(ctx, chunks...); err != nil {
			return nil, fmt.Errorf("engine: rag: %w", err)
		}
		retriever = store
	default:
		retriever = rag.NewMemoryStore(chunks...)
	}

	return rag.New(c, retriever, rag.Options{
		K:           rc.K,
		MaxRewrites: rc.MaxRewrites,
		Logger:      e.logger,
	}), nil
}

func (e *Engine) openPGVector(ctx context.Context) (*rag.PGVectorStore, error) {
	rc := e.cfg.RAG

	pc := e.cfg.Providers[0]
	for _, p := range e.cfg.Providers {
		if p.Name == rc.Provider {
			pc = p
		}
	}

	baseURL := pc.BaseURL
	if baseURL == "" {
		baseURL = openai.DefaultBaseURL
	}
	embedder := rag.NewOpenAIEmbedder(baseURL, pc.APIKey, rc.EmbeddingModel)

	store, err := rag.NewPGVectorStore(ctx, rc.DSN, embedder, rag.PGVectorOptions{
		Table:      rc.Table,
		Dimensions: rc.Dimensions,
	})
	if err != nil {
		return nil, fmt.Errorf("engine: %w", err)
	}
	e.addCloser(func() error { store.Close(); return nil })

	if err := store.EnsureSchema(ctx); err != nil {
		return nil, fmt.Errorf("engine: %w", err)
	}

	return store, nil
}

// Summarizer builds the summarization agent backed by the configured cache.
func (e *Engine) Summarizer() (*summarize.Agent, error) {
	c, err := e.Completer("")
	if err != nil {
		return nil, err
	}

	return summarize.New(c, summarize.Options{Cache: e.cache, Logger: e.logger}), nil
}

// Cache returns the summary cache, or nil when none is configured.
func (e *Engine) Cache() cache.Cache { return e.cache }

func (e *Engine) openCache(ctx context.Context) error {
	cc := e.cfg.Cache

	var ttl time.Duration
	if cc.TTL != "" {
		ttl, _ = time.ParseDuration(cc.TTL) // checked by Validate
	}

	switch cc.Kind {
	case CacheMemory:
		e.cache = cache.NewMemory(ttl)
	case CacheRedis:
		r, err := cache.NewRedis(ctx, cache.RedisOptions{
			Addr:     cc.Addr,
			Password: cc.Password,
			DB:       cc.DB,
			TTL:      ttl,
		})
		if err != nil {
			return fmt.Errorf("engine: %w", err)
		}
		e.cache = r
		e.addCloser(r.Close)
	}

	return nil
}

func (e *Engine) addCloser(fn func() error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.closers = append(e.closers, fn)
}

// Close shuts down MCP clients, stores, the cache and the REPL session the
// engine started.
func (e *Engine) Close() error {
	var errs []error
	for _, c := range e.mcpClients {
		errs = append(errs, c.Close())
	}

	e.mu.Lock()
	closers := e.closers
	e.closers = nil
	e.mu.Unlock()

	for _, fn := range closers {
		errs = append(errs, fn())
	}
	errs = append(errs, e.deps.Close())

	return errors.Join(errs...)
}

// registerAgent creates a factory for the given agent config and registers it.
func (e *Engine) registerAgent(ac AgentConfig) error {
	completer, err := e.Completer(ac.Provider)
	if err != nil {
		return fmt.Errorf("engine: agent %q: %w", ac.Name, err)
	}

	spec, _ := agents.Lookup(ac.kind()) // checked by Validate
	spec.Name = ac.Name

	effs, err := buildEffects(ac.Effects)
	if err != nil {
		return fmt.Errorf("engine: agent %q: %w", ac.Name, err)
	}
	effs = append(effs, e.toolCallEvents())

	mws := []agent.Middleware{
		agent.Recovery(),
		agent.Logger(e.logger, ac.Name),
		agent.Instrument(e.metrics, ac.Name),
		agent.RetryRateLimited(rateLimitAttempts, rateLimitFallback, rateLimitMaxWait),
	}
	if ac.Timeout != "" {
		d, _ := time.ParseDuration(ac.Timeout) // checked by Validate
		mws = append(mws, agent.Timeout(d))
	}

	opts := agent.Options{
		MaxIterations: ac.MaxIterations,
		Middleware:    mws,
		Effects:       effs,
		Metrics:       e.metrics,
		Logger:        e.logger,
	}

	var extra []*toolbox.ToolBox
	for _, name := range ac.Toolboxes {
		extra = append(extra, e.toolboxes[name])
	}

	// Build once so toolkit errors such as missing search credentials
	// surface here rather than on first use.
	if _, err := agents.Build(spec, completer, e.deps, opts); err != nil {
		return fmt.Errorf("engine: agent %q: %w", ac.Name, err)
	}

	// A delegating agent sees its peers only when spawned, so agents
	// configured after it are still reachable.
	e.registry.Register(spec.Name, spec.Description, func() *agent.Agent {
		a, _ := agents.Build(spec, completer, e.deps, opts)
		a.AddToolBoxes(extra...)
		if spec.Delegates {
			a.AddToolBoxes(agent.DelegationToolBox(e.registry, spec.Name))
		}
		return a
	})

	return nil
}

// toolCallEvents publishes every tool call the model requests.
func (e *Engine) toolCallEvents() agent.Effect {
	return agent.EffectFunc(func(ctx context.Context, ic agent.IterationContext) error {
		if ic.Phase != agent.PhaseAfterComplete {
			return nil
		}

		last, ok := ic.Chat.Last()
		if !ok {
			return nil
		}

		sid, _ := sessionIDFromContext(ctx)
		for _, tc := range last.ToolCalls() {
			e.events.Publish(Event{
				Kind:      EventToolCall,
				SessionID: sid,
				Agent:     ic.AgentName,
				Timestamp: time.Now(),
				Data:      tc,
			})
		}

		return nil
	})
}
