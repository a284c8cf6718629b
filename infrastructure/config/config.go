// Package config loads process-wide, read-only configuration state: the
// benchmark matrix YAML and the LLM price table. Both are read once at
// startup and handed to components by reference; there is no watch or
// reload path.
package config

import (
	"encoding/json"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/felixgeelhaar/questbench/domain/benchmark"
	"github.com/felixgeelhaar/questbench/domain/llm"
)

// LoadMatrix reads a benchmark matrix configuration from a YAML file.
func LoadMatrix(path string) (benchmark.MatrixConfig, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return benchmark.MatrixConfig{}, fmt.Errorf("read matrix config %s: %w", path, err)
	}
	var cfg benchmark.MatrixConfig
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return benchmark.MatrixConfig{}, fmt.Errorf("parse matrix config %s: %w", path, err)
	}
	if len(cfg.Quests) == 0 {
		return benchmark.MatrixConfig{}, fmt.Errorf("matrix config %s: %w", path, benchmark.ErrNoQuests)
	}
	if len(cfg.Agents) == 0 {
		return benchmark.MatrixConfig{}, fmt.Errorf("matrix config %s: %w", path, benchmark.ErrNoAgents)
	}
	return cfg, nil
}

// LoadPrices builds the process-wide price table: built-in defaults,
// overridden by LLM_QUEST_PRICES_JSON if set. The env var is accepted
// either as inline JSON (`{"openai:gpt-4o": {"prompt_per_token": ...}}`)
// or as a path to a JSON file with the same shape, so deployments can
// choose whichever is more convenient without the loader needing to
// guess beyond "does this parse as JSON".
func LoadPrices() (llm.PriceTable, error) {
	table := llm.DefaultPrices()

	raw := os.Getenv("LLM_QUEST_PRICES_JSON")
	if raw == "" {
		return table, nil
	}

	var overrides map[string]priceOverride
	if err := json.Unmarshal([]byte(raw), &overrides); err != nil {
		data, rerr := os.ReadFile(raw)
		if rerr != nil {
			return nil, fmt.Errorf("LLM_QUEST_PRICES_JSON is neither valid JSON nor a readable file: %w", err)
		}
		if err := json.Unmarshal(data, &overrides); err != nil {
			return nil, fmt.Errorf("parse price overrides from %s: %w", raw, err)
		}
	}

	for model, o := range overrides {
		table[model] = llm.Price{PromptPerToken: o.PromptPerToken, CompletionPerToken: o.CompletionPerToken}
	}
	return table, nil
}

type priceOverride struct {
	PromptPerToken     float64 `json:"prompt_per_token"`
	CompletionPerToken float64 `json:"completion_per_token"`
}
