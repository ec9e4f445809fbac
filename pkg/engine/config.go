package engine

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"time"

	"github.com/germanamz/agentry/pkg/agents"
	"github.com/germanamz/agentry/pkg/providers/openai"
	"gopkg.in/yaml.v3"
)

// Provider kinds understood by the built-in factories.
const (
	KindOpenAI    = "openai"
	KindOpenAISDK = "openai-sdk"
)

// Store and cache kinds.
const (
	StoreMemory   = "memory"
	StorePGVector = "pgvector"
	CacheMemory   = "memory"
	CacheRedis    = "redis"
)

// DefaultProvider names the provider FromEnv creates.
const DefaultProvider = "default"

// Config is the top-level engine configuration.
type Config struct {
	WorkDir    string           `yaml:"workdir"`
	Providers  []ProviderConfig `yaml:"providers"`
	Agents     []AgentConfig    `yaml:"agents"`
	EntryAgent string           `yaml:"entry_agent"`
	Search     SearchConfig     `yaml:"search"`
	RAG        RAGConfig        `yaml:"rag"`
	Cache      CacheConfig      `yaml:"cache"`
	Metrics    MetricsConfig    `yaml:"metrics"`
	MCPServers []MCPConfig      `yaml:"mcp_servers"`
}

// ProviderConfig describes an LLM provider instance.
type ProviderConfig struct {
	Name        string  `yaml:"name"`
	Kind        string  `yaml:"kind"`
	BaseURL     string  `yaml:"base_url"`
	APIKey      string  `yaml:"api_key"` //nolint:gosec // configuration field, not a hardcoded secret
	Model       string  `yaml:"model"`
	Temperature float64 `yaml:"temperature"`
	MaxTokens   int     `yaml:"max_tokens"`
}

// AgentConfig selects a catalog agent and tunes it. Kind defaults to Name,
// so a config can list the same catalog agent twice under different names.
type AgentConfig struct {
	Name          string         `yaml:"name"`
	Kind          string         `yaml:"kind"`
	Provider      string         `yaml:"provider"`
	MaxIterations int            `yaml:"max_iterations"`
	Timeout       string         `yaml:"timeout"`
	Toolboxes     []string       `yaml:"toolboxes"` // MCP server names.
	Effects       []EffectConfig `yaml:"effects"`
}

// EffectConfig names a per-iteration effect and its parameters.
type EffectConfig struct {
	Kind   string         `yaml:"kind"`
	Params map[string]any `yaml:"params"`
}

// SearchConfig holds the Google Custom Search credentials.
type SearchConfig struct {
	APIKey   string `yaml:"api_key"` //nolint:gosec // configuration field
	CSEID    string `yaml:"cse_id"`
	Endpoint string `yaml:"endpoint"`
}

// RAGConfig configures the retrieval agent and its store.
type RAGConfig struct {
	Store          string   `yaml:"store"`
	DSN            string   `yaml:"dsn"`
	Table          string   `yaml:"table"`
	Dimensions     int      `yaml:"dimensions"`
	EmbeddingModel string   `yaml:"embedding_model"`
	Provider       string   `yaml:"provider"` // Provider whose endpoint serves embeddings.
	Sources        []string `yaml:"sources"`
	K              int      `yaml:"k"`
	MaxRewrites    int      `yaml:"max_rewrites"`
	ChunkSize      int      `yaml:"chunk_size"`
	ChunkOverlap   int      `yaml:"chunk_overlap"`
}

// CacheConfig configures the summary cache. An empty Kind disables it.
type CacheConfig struct {
	Kind     string `yaml:"kind"`
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"` //nolint:gosec // configuration field
	DB       int    `yaml:"db"`
	TTL      string `yaml:"ttl"`
}

// MetricsConfig holds the prometheus listen address. Empty disables the
// endpoint.
type MetricsConfig struct {
	Addr string `yaml:"addr"`
}

// MCPConfig describes an MCP server to connect to.
type MCPConfig struct {
	Name    string   `yaml:"name"`
	Command string   `yaml:"command"`
	Args    []string `yaml:"args"`
	Tools   []string `yaml:"tools"` // Imported tool names; empty imports all.
}

// LoadConfig reads a YAML file and returns a Config.
// Environment variables referenced as ${VAR} or $VAR in the YAML are expanded
// before parsing, so keys can live in the environment or a .env file.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path is caller-provided configuration
	if err != nil {
		return Config{}, fmt.Errorf("engine: load config: %w", err)
	}

	return ParseConfig(data)
}

// ParseConfig expands environment references in data and decodes it.
func ParseConfig(data []byte) (Config, error) {
	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return Config{}, fmt.Errorf("engine: parse config: %w", err)
	}

	return cfg, nil
}

// FromEnv builds a config with a single OpenAI-compatible provider read from
// OPENAI_API_KEY, OPENAI_MODEL and OPENAI_BASE_URL, and search credentials
// from GOOGLE_API_KEY and GOOGLE_CSE_ID. Every catalog agent is listed except
// the ones needing web search when those credentials are missing.
func FromEnv() Config {
	cfg := Config{
		Providers: []ProviderConfig{{
			Name:        DefaultProvider,
			Kind:        KindOpenAI,
			BaseURL:     envOr("OPENAI_BASE_URL", openai.DefaultBaseURL),
			APIKey:      os.Getenv("OPENAI_API_KEY"),
			Model:       envOr("OPENAI_MODEL", openai.DefaultModel),
			Temperature: 0.7,
			MaxTokens:   4096,
		}},
		Search: SearchConfig{
			APIKey: os.Getenv("GOOGLE_API_KEY"),
			CSEID:  os.Getenv("GOOGLE_CSE_ID"),
		},
	}

	hasSearch := cfg.Search.APIKey != "" && cfg.Search.CSEID != ""
	for _, spec := range agents.Catalog() {
		if !hasSearch && slices.Contains(spec.Toolkits, agents.WebSearch) {
			continue
		}
		cfg.Agents = append(cfg.Agents, AgentConfig{Name: spec.Name})
	}
	cfg.Agents = append(cfg.Agents, AgentConfig{Name: agents.Supervisor})

	return cfg
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// Validate checks that the configuration is internally consistent.
func (c Config) Validate() error {
	if len(c.Providers) == 0 {
		return errors.New("engine: config: at least one provider is required")
	}

	providerNames := make(map[string]struct{}, len(c.Providers))
	for _, p := range c.Providers {
		if p.Name == "" {
			return errors.New("engine: config: provider name is required")
		}
		if p.Kind == "" {
			return fmt.Errorf("engine: config: provider %q: kind is required", p.Name)
		}
		if _, ok := getFactory(p.Kind); !ok {
			return fmt.Errorf("engine: config: provider %q: unknown kind %q", p.Name, p.Kind)
		}
		if _, dup := providerNames[p.Name]; dup {
			return fmt.Errorf("engine: config: duplicate provider name %q", p.Name)
		}
		providerNames[p.Name] = struct{}{}
	}

	mcpNames := make(map[string]struct{}, len(c.MCPServers))
	for _, m := range c.MCPServers {
		if m.Name == "" {
			return errors.New("engine: config: mcp server name is required")
		}
		if m.Command == "" {
			return fmt.Errorf("engine: config: mcp server %q: command is required", m.Name)
		}
		if _, dup := mcpNames[m.Name]; dup {
			return fmt.Errorf("engine: config: duplicate mcp server name %q", m.Name)
		}
		mcpNames[m.Name] = struct{}{}
	}

	agentNames := make(map[string]struct{}, len(c.Agents))
	for _, a := range c.Agents {
		if a.Name == "" {
			return errors.New("engine: config: agent name is required")
		}
		if _, dup := agentNames[a.Name]; dup {
			return fmt.Errorf("engine: config: duplicate agent name %q", a.Name)
		}
		agentNames[a.Name] = struct{}{}

		if _, ok := agents.Lookup(a.kind()); !ok {
			return fmt.Errorf("engine: config: agent %q: unknown kind %q", a.Name, a.kind())
		}
		if _, ok := providerNames[a.Provider]; a.Provider != "" && !ok {
			return fmt.Errorf("engine: config: agent %q: unknown provider %q", a.Name, a.Provider)
		}
		if a.Timeout != "" {
			if _, err := time.ParseDuration(a.Timeout); err != nil {
				return fmt.Errorf("engine: config: agent %q: invalid timeout %q", a.Name, a.Timeout)
			}
		}
		for _, tb := range a.Toolboxes {
			if _, ok := mcpNames[tb]; !ok {
				return fmt.Errorf("engine: config: agent %q: unknown toolbox %q", a.Name, tb)
			}
		}
		for _, ec := range a.Effects {
			if _, ok := effectFactories[ec.Kind]; !ok {
				return fmt.Errorf("engine: config: agent %q: unknown effect %q", a.Name, ec.Kind)
			}
		}
	}

	if c.EntryAgent != "" {
		if _, ok := agentNames[c.EntryAgent]; !ok {
			return fmt.Errorf("engine: config: entry_agent %q not found in agents", c.EntryAgent)
		}
	}

	switch c.RAG.Store {
	case "", StoreMemory:
	case StorePGVector:
		if c.RAG.DSN == "" {
			return errors.New("engine: config: rag: dsn is required for pgvector")
		}
		if c.RAG.Dimensions <= 0 {
			return errors.New("engine: config: rag: dimensions are required for pgvector")
		}
	default:
		return fmt.Errorf("engine: config: rag: unknown store %q", c.RAG.Store)
	}
	if _, ok := providerNames[c.RAG.Provider]; c.RAG.Provider != "" && !ok {
		return fmt.Errorf("engine: config: rag: unknown provider %q", c.RAG.Provider)
	}

	switch c.Cache.Kind {
	case "", CacheMemory:
	case CacheRedis:
		if c.Cache.Addr == "" {
			return errors.New("engine: config: cache: addr is required for redis")
		}
	default:
		return fmt.Errorf("engine: config: cache: unknown kind %q", c.Cache.Kind)
	}
	if c.Cache.TTL != "" {
		if _, err := time.ParseDuration(c.Cache.TTL); err != nil {
			return fmt.Errorf("engine: config: cache: invalid ttl %q", c.Cache.TTL)
		}
	}

	return nil
}

func (a AgentConfig) kind() string {
	if a.Kind != "" {
		return a.Kind
	}
	return a.Name
}
