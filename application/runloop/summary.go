package runloop

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/felixgeelhaar/questbench/domain/run"
)

// stepArtifact is one entry of the run-summary artifact's step trace:
// observation, choices, action, and the raw decision the agent
// recorded, plus that step's own usage for idempotent re-reading.
type stepArtifact struct {
	StepNumber  int             `json:"step_number"`
	LocationID  string          `json:"location_id"`
	Observation string          `json:"observation"`
	Choices     []string        `json:"choices"`
	Action      *int            `json:"action"`
	Reward      float64         `json:"reward"`
	Decision    json.RawMessage `json:"llm_decision,omitempty"`
	Usage       run.Usage       `json:"usage"`
}

// runSummaryArtifact is the materialized run_summary.json shape.
type runSummaryArtifact struct {
	RunID       string         `json:"run_id"`
	QuestName   string         `json:"quest_name"`
	AgentID     string         `json:"agent_id"`
	BenchmarkID string         `json:"benchmark_id,omitempty"`
	StartTime   time.Time      `json:"start_time"`
	EndTime     *time.Time     `json:"end_time"`
	Outcome     run.Outcome    `json:"outcome"`
	Reward      float64        `json:"reward"`
	EndReason   run.EndReason  `json:"end_reason"`
	Usage       run.Usage      `json:"usage"`
	Steps       []stepArtifact `json:"steps"`
}

// writeRunSummary materializes results/<agent_id>/<quest_slug>/run_<id>/run_summary.json.
func writeRunSummary(resultsDir string, rec *run.Record, steps []run.Step) error {
	artifact := runSummaryArtifact{
		RunID:       rec.RunID,
		QuestName:   rec.QuestName,
		AgentID:     rec.AgentID,
		BenchmarkID: rec.BenchmarkID,
		StartTime:   rec.StartTime,
		EndTime:     rec.EndTime,
		EndReason:   rec.EndReason,
		Steps:       make([]stepArtifact, len(steps)),
	}
	if rec.Outcome != nil {
		artifact.Outcome = *rec.Outcome
	}
	if rec.Reward != nil {
		artifact.Reward = *rec.Reward
	}

	for i, st := range steps {
		artifact.Steps[i] = stepArtifact{
			StepNumber:  st.StepNumber,
			LocationID:  st.LocationID,
			Observation: st.Observation,
			Choices:     st.Choices,
			Action:      st.Action,
			Reward:      st.Reward,
			Decision:    st.Decision,
			Usage:       st.Usage,
		}
		artifact.Usage.Add(st.Usage)
	}

	raw, err := json.MarshalIndent(artifact, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal run summary: %w", err)
	}

	dir := filepath.Join(resultsDir, rec.AgentID, Slug(rec.QuestName), "run_"+rec.RunID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create run summary dir: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "run_summary.json"), raw, 0o644); err != nil {
		return fmt.Errorf("write run summary: %w", err)
	}
	return nil
}
