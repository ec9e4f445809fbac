package engine

import (
	"fmt"
	"sync"

	"github.com/germanamz/agentry/pkg/modeladapter"
	"github.com/germanamz/agentry/pkg/providers/openai"
	"github.com/germanamz/agentry/pkg/providers/openaisdk"
)

// ProviderFactory creates a Completer from a ProviderConfig.
type ProviderFactory func(cfg ProviderConfig) (modeladapter.Completer, error)

var (
	factoryMu   sync.RWMutex
	factories   = map[string]ProviderFactory{}
	defaultsReg sync.Once
)

func ensureDefaults() {
	defaultsReg.Do(func() {
		factories[KindOpenAI] = newOpenAI
		factories[KindOpenAISDK] = newOpenAISDK
	})
}

// RegisterProvider registers a custom provider factory under the given kind.
// It can be called before New to extend the engine with additional providers.
func RegisterProvider(kind string, factory ProviderFactory) {
	ensureDefaults()

	factoryMu.Lock()
	defer factoryMu.Unlock()

	factories[kind] = factory
}

// getFactory returns the factory for the given kind.
func getFactory(kind string) (ProviderFactory, bool) {
	ensureDefaults()

	factoryMu.RLock()
	defer factoryMu.RUnlock()

	f, ok := factories[kind]
	return f, ok
}

func newOpenAI(cfg ProviderConfig) (modeladapter.Completer, error) {
	a := openai.New(cfg.BaseURL, cfg.APIKey, cfg.Model)
	if cfg.Temperature > 0 {
		a.Temperature = cfg.Temperature
	}
	if cfg.MaxTokens > 0 {
		a.MaxTokens = cfg.MaxTokens
	}

	return a, nil
}

func newOpenAISDK(cfg ProviderConfig) (modeladapter.Completer, error) {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = openai.DefaultBaseURL
	}

	return openaisdk.New(baseURL, cfg.APIKey, []func(*openaisdk.Options){
		func(o *openaisdk.Options) {
			if cfg.Model != "" {
				o.Model = cfg.Model
			}
			if cfg.Temperature > 0 {
				o.Temperature = cfg.Temperature
			}
			if cfg.MaxTokens > 0 {
				o.MaxCompletionTokens = int64(cfg.MaxTokens)
			}
		},
	}), nil
}

// buildCompleter creates a Completer from a ProviderConfig using the
// registered factory for its Kind.
func buildCompleter(cfg ProviderConfig) (modeladapter.Completer, error) {
	factory, ok := getFactory(cfg.Kind)
	if !ok {
		return nil, fmt.Errorf("engine: unknown provider kind %q", cfg.Kind)
	}

	return factory(cfg)
}
