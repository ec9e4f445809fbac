package engine

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/germanamz/agentry/pkg/agents"
	"github.com/germanamz/agentry/pkg/providers/openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleYAML = `
workdir: ./work

providers:
  - name: groq
    kind: openai
    api_key: gsk-test
    model: moonshotai/kimi-k2-instruct-0905
    temperature: 0.2
    max_tokens: 2048
  - name: sdk
    kind: openai-sdk
    base_url: https://api.openai.com/v1

mcp_servers:
  - name: files
    command: mcp-files
    args: ["--root", "/tmp"]

agents:
  - name: calculator
    kind: math
    provider: groq
    max_iterations: 10
    timeout: 30s
    toolboxes: [files]
    effects:
      - kind: loop_detect
        params:
          threshold: 4
  - name: code_executor

entry_agent: calculator

search:
  api_key: key
  cse_id: cse

rag:
  store: memory
  sources: [notes.md, paper.pdf]
  k: 3

cache:
  kind: redis
  addr: localhost:6379
  db: 2
  ttl: 1h

metrics:
  addr: ":9090"
`

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleYAML), 0o600))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "./work", cfg.WorkDir)

	require.Len(t, cfg.Providers, 2)
	assert.Equal(t, ProviderConfig{
		Name:        "groq",
		Kind:        KindOpenAI,
		APIKey:      "gsk-test",
		Model:       "moonshotai/kimi-k2-instruct-0905",
		Temperature: 0.2,
		MaxTokens:   2048,
	}, cfg.Providers[0])
	assert.Equal(t, KindOpenAISDK, cfg.Providers[1].Kind)

	require.Len(t, cfg.MCPServers, 1)
	assert.Equal(t, []string{"--root", "/tmp"}, cfg.MCPServers[0].Args)

	require.Len(t, cfg.Agents, 2)
	calc := cfg.Agents[0]
	assert.Equal(t, "math", calc.kind())
	assert.Equal(t, 10, calc.MaxIterations)
	assert.Equal(t, "30s", calc.Timeout)
	assert.Equal(t, []string{"files"}, calc.Toolboxes)
	require.Len(t, calc.Effects, 1)
	assert.Equal(t, 4, calc.Effects[0].Params["threshold"])
	assert.Equal(t, "code_executor", cfg.Agents[1].kind())

	assert.Equal(t, "calculator", cfg.EntryAgent)
	assert.Equal(t, SearchConfig{APIKey: "key", CSEID: "cse"}, cfg.Search)
	assert.Equal(t, []string{"notes.md", "paper.pdf"}, cfg.RAG.Sources)
	assert.Equal(t, 3, cfg.RAG.K)
	assert.Equal(t, CacheConfig{Kind: CacheRedis, Addr: "localhost:6379", DB: 2, TTL: "1h"}, cfg.Cache)
	assert.Equal(t, ":9090", cfg.Metrics.Addr)
}

func TestLoadConfig_FileNotFound(t *testing.T) {
	_, err := LoadConfig("/no/such/file.yaml")
	assert.ErrorContains(t, err, "engine: load config")
}

func TestParseConfig_Invalid(t *testing.T) {
	_, err := ParseConfig([]byte("providers: ["))
	assert.ErrorContains(t, err, "engine: parse config")
}

func TestLoadConfig_ExpandsEnvVars(t *testing.T) {
	t.Setenv("AGENTRY_TEST_API_KEY", "sk-from-env")

	cfg, err := ParseConfig([]byte(`
providers:
  - name: p1
    kind: openai
    api_key: ${AGENTRY_TEST_API_KEY}
    model: m1
  - name: p2
    kind: openai
    api_key: ${AGENTRY_TEST_UNSET_VAR_12345}
`))
	require.NoError(t, err)

	assert.Equal(t, "sk-from-env", cfg.Providers[0].APIKey)
	assert.Empty(t, cfg.Providers[1].APIKey)
}

func TestFromEnv(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-env")
	t.Setenv("OPENAI_MODEL", "")
	t.Setenv("OPENAI_BASE_URL", "")
	t.Setenv("GOOGLE_API_KEY", "")
	t.Setenv("GOOGLE_CSE_ID", "")

	cfg := FromEnv()
	require.NoError(t, cfg.Validate())

	require.Len(t, cfg.Providers, 1)
	p := cfg.Providers[0]
	assert.Equal(t, DefaultProvider, p.Name)
	assert.Equal(t, "sk-env", p.APIKey)
	assert.Equal(t, openai.DefaultModel, p.Model)
	assert.Equal(t, openai.DefaultBaseURL, p.BaseURL)
	assert.InDelta(t, 0.7, p.Temperature, 1e-9)
	assert.Equal(t, 4096, p.MaxTokens)

	var names []string
	for _, a := range cfg.Agents {
		names = append(names, a.Name)
	}
	assert.Contains(t, names, agents.MathAgent)
	assert.Contains(t, names, agents.Supervisor)
	assert.NotContains(t, names, agents.WebSearchAgent)
}

func TestFromEnv_WithSearchCredentials(t *testing.T) {
	t.Setenv("OPENAI_MODEL", "llama")
	t.Setenv("GOOGLE_API_KEY", "k")
	t.Setenv("GOOGLE_CSE_ID", "c")

	cfg := FromEnv()

	assert.Equal(t, "llama", cfg.Providers[0].Model)
	assert.Len(t, cfg.Agents, len(agents.Names())+1)
}

func validConfig() Config {
	return Config{
		Providers: []ProviderConfig{{Name: "p1", Kind: KindOpenAI}},
		Agents:    []AgentConfig{{Name: agents.MathAgent, Provider: "p1"}},
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
		errMsg string
	}{
		{"valid", func(*Config) {}, ""},
		{"no agents is fine", func(c *Config) { c.Agents = nil }, ""},
		{"no providers", func(c *Config) { c.Providers = nil }, "at least one provider"},
		{"provider name required", func(c *Config) { c.Providers[0].Name = "" }, "provider name is required"},
		{"provider kind required", func(c *Config) { c.Providers[0].Kind = "" }, "kind is required"},
		{"unknown provider kind", func(c *Config) { c.Providers[0].Kind = "anthropic" }, `unknown kind "anthropic"`},
		{"duplicate provider", func(c *Config) {
			c.Providers = append(c.Providers, ProviderConfig{Name: "p1", Kind: KindOpenAISDK})
		}, "duplicate provider name"},
		{"agent name required", func(c *Config) { c.Agents[0].Name = "" }, "agent name is required"},
		{"duplicate agent", func(c *Config) { c.Agents = append(c.Agents, c.Agents[0]) }, "duplicate agent name"},
		{"unknown agent kind", func(c *Config) { c.Agents[0].Kind = "poet" }, `unknown kind "poet"`},
		{"unknown agent provider", func(c *Config) { c.Agents[0].Provider = "nope" }, "unknown provider"},
		{"bad timeout", func(c *Config) { c.Agents[0].Timeout = "soon" }, "invalid timeout"},
		{"unknown toolbox", func(c *Config) { c.Agents[0].Toolboxes = []string{"nope"} }, "unknown toolbox"},
		{"unknown effect", func(c *Config) {
			c.Agents[0].Effects = []EffectConfig{{Kind: "compact"}}
		}, "unknown effect"},
		{"unknown entry agent", func(c *Config) { c.EntryAgent = "nope" }, "entry_agent"},
		{"mcp name required", func(c *Config) { c.MCPServers = []MCPConfig{{Command: "cmd"}} }, "mcp server name is required"},
		{"mcp command required", func(c *Config) { c.MCPServers = []MCPConfig{{Name: "m1"}} }, "command is required"},
		{"duplicate mcp", func(c *Config) {
			c.MCPServers = []MCPConfig{{Name: "m1", Command: "a"}, {Name: "m1", Command: "b"}}
		}, "duplicate mcp server name"},
		{"unknown rag store", func(c *Config) { c.RAG.Store = "sqlite" }, "unknown store"},
		{"pgvector needs dsn", func(c *Config) { c.RAG.Store = StorePGVector }, "dsn is required"},
		{"pgvector needs dimensions", func(c *Config) {
			c.RAG = RAGConfig{Store: StorePGVector, DSN: "postgres://x"}
		}, "dimensions are required"},
		{"unknown rag provider", func(c *Config) { c.RAG.Provider = "nope" }, "rag: unknown provider"},
		{"unknown cache", func(c *Config) { c.Cache.Kind = "memcached" }, "cache: unknown kind"},
		{"redis needs addr", func(c *Config) { c.Cache.Kind = CacheRedis }, "addr is required"},
		{"bad cache ttl", func(c *Config) { c.Cache = CacheConfig{Kind: CacheMemory, TTL: "forever"} }, "invalid ttl"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.modify(&cfg)

			err := cfg.Validate()
			if tt.errMsg == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.errMsg)
		})
	}
}
