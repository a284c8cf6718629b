// Package benchmark defines the matrix-execution record and its
// configuration.
package benchmark

import (
	"encoding/json"
	"fmt"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/felixgeelhaar/questbench/domain/agentcfg"
)

// Duration wraps time.Duration so benchmark matrix config files can spell
// timeouts as "30s" rather than a raw nanosecond integer.
type Duration time.Duration

func (d Duration) Duration() time.Duration { return time.Duration(d) }

func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

func (d *Duration) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// Status is a benchmark's lifecycle state.
type Status string

const (
	StatusPending  Status = "pending"
	StatusRunning  Status = "running"
	StatusComplete Status = "complete"
	StatusError    Status = "error"
)

// MatrixConfig is the scheduler's input: quests × agent configs expanded
// to a cartesian product of runs.
type MatrixConfig struct {
	BenchmarkID   string            `yaml:"benchmark_id,omitempty" json:"benchmark_id,omitempty"`
	Quests        []string          `yaml:"quests" json:"quests"` // paths or directories
	Agents        []agentcfg.Config `yaml:"agents" json:"agents"`
	TimeoutPerRun Duration          `yaml:"timeout_per_run" json:"timeout_per_run"`
	MaxSteps      int               `yaml:"max_steps" json:"max_steps"`
	MaxWorkers    int               `yaml:"max_workers" json:"max_workers"`
}

// Counters tracks scheduler progress, read under a mutex by observers.
// ActivePairs lists the quest/agent pairs currently running, as
// "agent_id|quest_path" keys.
type Counters struct {
	Total       int      `json:"total"`
	Running     int      `json:"running"`
	Completed   int      `json:"completed"`
	Failed      int      `json:"failed"`
	Timeout     int      `json:"timeout"`
	ActivePairs []string `json:"active_pairs,omitempty"`
}

// Record is one benchmark's persisted state.
type Record struct {
	BenchmarkID string
	ConfigJSON  json.RawMessage
	Status      Status
	Counters    Counters
	SummaryJSON json.RawMessage
}

// PerKeyCount is one row of the per-agent/per-quest aggregation in the
// benchmark summary artifact.
type PerKeyCount struct {
	Key     string `json:"key"`
	OK      int    `json:"ok"`
	Fail    int    `json:"fail"`
	Timeout int    `json:"timeout"`
	Error   int    `json:"error"`
}

// Summary is the materialized benchmark_summary.json shape.
type Summary struct {
	BenchmarkID string        `json:"benchmark_id"`
	TotalRuns   int           `json:"total_runs"`
	PerAgent    []PerKeyCount `json:"per_agent"`
	PerQuest    []PerKeyCount `json:"per_quest"`
	RunIDs      []string      `json:"run_ids"`
}
