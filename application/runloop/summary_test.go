package runloop

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/felixgeelhaar/questbench/domain/run"
)

func TestSlug(t *testing.T) {
	t.Parallel()
	cases := []struct {
		in   string
		want string
	}{
		{"quests/Forest Path.qm", "forest-path"},
		{"Boat.qm", "boat"},
		{"/abs/path/Prison_2.qm", "prison-2"},
		{"...qm", "quest"},
	}
	for _, c := range cases {
		if got := Slug(c.in); got != c.want {
			t.Errorf("Slug(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestWriteRunSummary_AggregatesUsage(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	outcome := run.Success
	reward := 1.0
	end := time.Now().UTC()
	rec := &run.Record{
		RunID:     "run-9",
		QuestName: "quests/demo.qm",
		AgentID:   "agent-x",
		StartTime: end.Add(-time.Minute),
		EndTime:   &end,
		Outcome:   &outcome,
		Reward:    &reward,
		EndReason: run.EndQuestSuccess,
	}
	action := 1
	steps := []run.Step{
		{RunID: "run-9", StepNumber: 1, LocationID: "loc0", Observation: "A", Choices: []string{"x", "y"}},
		{RunID: "run-9", StepNumber: 2, LocationID: "loc1", Observation: "B", Choices: nil, Action: &action, Reward: 1.0,
			Usage: run.Usage{PromptTokens: 100, CompletionTokens: 20, TotalTokens: 120, CostUSD: 0.01}},
	}

	if err := writeRunSummary(dir, rec, steps); err != nil {
		t.Fatalf("writeRunSummary() error = %v", err)
	}

	path := filepath.Join(dir, "agent-x", "demo", "run_run-9", "run_summary.json")
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read artifact: %v", err)
	}

	var artifact runSummaryArtifact
	if err := json.Unmarshal(raw, &artifact); err != nil {
		t.Fatalf("unmarshal artifact: %v", err)
	}
	if artifact.Outcome != run.Success || artifact.Reward != 1.0 {
		t.Errorf("artifact outcome/reward = %v/%v", artifact.Outcome, artifact.Reward)
	}
	if len(artifact.Steps) != 2 {
		t.Fatalf("len(Steps) = %d, want 2", len(artifact.Steps))
	}

	var perStep run.Usage
	for _, st := range artifact.Steps {
		perStep.Add(st.Usage)
	}
	if artifact.Usage != perStep {
		t.Errorf("aggregate usage %+v != sum of per-step usage %+v", artifact.Usage, perStep)
	}

	// Re-reading the finalized artifact reproduces the same aggregates.
	var again runSummaryArtifact
	if err := json.Unmarshal(raw, &again); err != nil {
		t.Fatalf("second unmarshal: %v", err)
	}
	if again.Usage != artifact.Usage {
		t.Errorf("re-read usage %+v != %+v", again.Usage, artifact.Usage)
	}
}
