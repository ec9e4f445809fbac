package engine

import (
	"fmt"

	"github.com/germanamz/agentry/pkg/agent"
	"github.com/germanamz/agentry/pkg/agent/effects"
)

// EffectFactory constructs an Effect from its YAML params.
type EffectFactory func(params map[string]any) (agent.Effect, error)

// effectFactories maps effect kind strings to their constructors.
var effectFactories = map[string]EffectFactory{
	"loop_detect":       buildLoopDetect,
	"reflection":        buildReflection,
	"trim_tool_results": buildTrimToolResults,
}

// buildEffects constructs all effects for an agent from its config.
func buildEffects(ecs []EffectConfig) ([]agent.Effect, error) {
	if len(ecs) == 0 {
		return nil, nil
	}

	effs := make([]agent.Effect, 0, len(ecs))
	for i, ec := range ecs {
		factory, ok := effectFactories[ec.Kind]
		if !ok {
			return nil, fmt.Errorf("engine: effect[%d]: unknown kind %q", i, ec.Kind)
		}

		eff, err := factory(ec.Params)
		if err != nil {
			return nil, fmt.Errorf("engine: effect[%d] (%s): %w", i, ec.Kind, err)
		}

		effs = append(effs, eff)
	}

	return effs, nil
}

func buildLoopDetect(params map[string]any) (agent.Effect, error) {
	threshold, err := intParam(params, "threshold", 0)
	if err != nil {
		return nil, err
	}
	window, err := intParam(params, "window", 0)
	if err != nil {
		return nil, err
	}

	return effects.NewLoopDetect(threshold, window), nil
}

func buildReflection(params map[string]any) (agent.Effect, error) {
	threshold, err := intParam(params, "threshold", 0)
	if err != nil {
		return nil, err
	}

	return effects.NewReflection(threshold), nil
}

func buildTrimToolResults(params map[string]any) (agent.Effect, error) {
	maxChars, err := intParam(params, "max_result_length", 0)
	if err != nil {
		return nil, err
	}
	keep, err := intParam(params, "preserve_recent", -1)
	if err != nil {
		return nil, err
	}

	return effects.NewTrimResults(maxChars, keep), nil
}

// intParam reads an integer that YAML may have decoded as int or float64.
func intParam(params map[string]any, key string, fallback int) (int, error) {
	v, ok := params[key]
	if !ok {
		return fallback, nil
	}

	switch t := v.(type) {
	case int:
		return t, nil
	case float64:
		return int(t), nil
	default:
		return 0, fmt.Errorf("%s must be a number, got %T", key, v)
	}
}
