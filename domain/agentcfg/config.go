// Package agentcfg defines the Decision Agent's configuration and the
// in-memory state it owns for a single run.
package agentcfg

// MemoryType selects how the Agent renders prior steps into the prompt.
type MemoryType string

const (
	MemoryNone           MemoryType = "none"
	MemoryMessageHistory MemoryType = "message_history"
	MemorySummary        MemoryType = "summary"
)

// MemoryConfig configures the Agent's memory strategy.
type MemoryConfig struct {
	Type         MemoryType `yaml:"type" json:"type"`
	MaxHistory   int        `yaml:"max_history" json:"max_history"`
	SummaryEvery int        `yaml:"summary_every,omitempty" json:"summary_every,omitempty"` // K, default 5
}

// Config is one agent's full configuration, closed over a provider:model
// identifier and prompt templates supplied by the caller.
type Config struct {
	AgentID        string       `yaml:"agent_id" json:"agent_id"`
	Model          string       `yaml:"model" json:"model"` // "provider:model"
	SystemTemplate string       `yaml:"system_template" json:"system_template"`
	ActionTemplate string       `yaml:"action_template" json:"action_template"`
	Temperature    *float64     `yaml:"temperature,omitempty" json:"temperature,omitempty"`
	Memory         MemoryConfig `yaml:"memory,omitempty" json:"memory,omitempty"`
	Tools          []string     `yaml:"tools,omitempty" json:"tools,omitempty"` // closed set: {calculator}
	SkipSingle     bool         `yaml:"skip_single" json:"skip_single"`
	MaxRetries     int          `yaml:"max_retries,omitempty" json:"max_retries,omitempty"` // default 2
	LoopVisit      int          `yaml:"loop_visit,omitempty" json:"loop_visit,omitempty"`   // L_visit, default 3
	LoopStreak     int          `yaml:"loop_streak,omitempty" json:"loop_streak,omitempty"` // L_streak, default 2
	Seed           int64        `yaml:"seed,omitempty" json:"seed,omitempty"`               // random_local determinism
}

// Normalized returns a copy with documented defaults applied.
func (c Config) Normalized() Config {
	if c.Memory.Type == "" {
		c.Memory.Type = MemoryNone
	}
	if c.Memory.SummaryEvery <= 0 {
		c.Memory.SummaryEvery = 5
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = 2
	}
	if c.LoopVisit <= 0 {
		c.LoopVisit = 3
	}
	if c.LoopStreak <= 0 {
		c.LoopStreak = 2
	}
	return c
}

// HasTool reports whether a tool name is enabled for this agent.
func (c Config) HasTool(name string) bool {
	for _, t := range c.Tools {
		if t == name {
			return true
		}
	}
	return false
}
