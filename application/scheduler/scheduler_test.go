package scheduler

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/felixgeelhaar/questbench/domain/agentcfg"
	"github.com/felixgeelhaar/questbench/domain/benchmark"
	"github.com/felixgeelhaar/questbench/domain/env"
	"github.com/felixgeelhaar/questbench/domain/llm"
	"github.com/felixgeelhaar/questbench/domain/quest"
	"github.com/felixgeelhaar/questbench/domain/run"
	"github.com/felixgeelhaar/questbench/infrastructure/storage/sqlite"
)

// dynamicBridge decides its single-choice quest's outcome from the
// quest path it is given at Start, mimicking a real interpreter
// subprocess whose behavior is a property of the .qm file it loads, not
// of which agent is driving it.
type dynamicBridge struct {
	win   bool
	state quest.State
}

func (b *dynamicBridge) Start(ctx context.Context, questPath, language string) (quest.State, error) {
	b.win = strings.Contains(questPath, "success")
	b.state = quest.State{
		LocationID: "loc0",
		Text:       "A",
		Choices:    []quest.Choice{{JumpID: 10, Text: "go"}},
		GameState:  quest.GameRunning,
	}
	return b.state, nil
}

func (b *dynamicBridge) Step(ctx context.Context, jumpID int) (quest.State, error) {
	if b.win {
		b.state = quest.State{LocationID: "loc1", GameState: quest.GameWin}
	} else {
		b.state = quest.State{LocationID: "loc1", GameState: quest.GameFail}
	}
	return b.state, nil
}

func (b *dynamicBridge) GetState(ctx context.Context) (quest.State, error) { return b.state, nil }
func (b *dynamicBridge) Close(ctx context.Context) error                  { return nil }

type fixedCompleter struct{ result int }

func (f fixedCompleter) Complete(ctx context.Context, modelID string, req llm.Request) (llm.Response, error) {
	raw, _ := json.Marshal(map[string]any{"result": f.result, "reasoning": "fixed"})
	return llm.Response{Content: string(raw), FinishReason: "stop"}, nil
}

func TestRun_AggregatesPerAgentAndPerQuest(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	successPath := filepath.Join(dir, "success.qm")
	failurePath := filepath.Join(dir, "failure.qm")
	if err := os.WriteFile(successPath, []byte{}, 0o644); err != nil {
		t.Fatalf("write success.qm: %v", err)
	}
	if err := os.WriteFile(failurePath, []byte{}, 0o644); err != nil {
		t.Fatalf("write failure.qm: %v", err)
	}

	db, err := sqlite.Open(context.Background(), ":memory:")
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { db.Close() })

	deps := Deps{
		NewBridge:      func() env.Bridge { return &dynamicBridge{} },
		RunStore:       sqlite.NewRunStore(db),
		EventStore:     sqlite.NewEventStore(db),
		BenchmarkStore: sqlite.NewBenchmarkStore(db),
		Completer:      fixedCompleter{result: 1},
		ResultsDir:     t.TempDir(),
	}

	cfg := benchmark.MatrixConfig{
		Quests: []string{successPath, failurePath},
		Agents: []agentcfg.Config{
			{AgentID: "agentA", Model: "fake:model"},
			{AgentID: "agentB", Model: "fake:model"},
		},
		TimeoutPerRun: benchmark.Duration(5 * time.Second),
		MaxSteps:      10,
		MaxWorkers:    2,
	}

	summary, err := Run(context.Background(), cfg, deps)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if summary.TotalRuns != 4 {
		t.Fatalf("TotalRuns = %d, want 4", summary.TotalRuns)
	}
	if len(summary.RunIDs) != 4 {
		t.Fatalf("len(RunIDs) = %d, want 4", len(summary.RunIDs))
	}

	var successOK, failOK int
	for _, row := range summary.PerQuest {
		switch row.Key {
		case successPath:
			successOK = row.OK
		case failurePath:
			failOK = row.Fail
		}
	}
	if successOK != 2 {
		t.Errorf("success quest OK count = %d, want 2", successOK)
	}
	if failOK != 2 {
		t.Errorf("failure quest Fail count = %d, want 2", failOK)
	}

	for _, row := range summary.PerAgent {
		if row.OK != 1 || row.Fail != 1 {
			t.Errorf("agent %s counts = %+v, want ok:1 fail:1", row.Key, row)
		}
	}

	rec, err := deps.BenchmarkStore.Get(context.Background(), summary.BenchmarkID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if rec.Status != benchmark.StatusComplete {
		t.Errorf("Status = %v, want complete", rec.Status)
	}

	runs, err := deps.RunStore.List(context.Background(), run.ListFilter{BenchmarkID: summary.BenchmarkID})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(runs) != 4 {
		t.Fatalf("len(runs) = %d, want 4", len(runs))
	}
}

func TestExpandQuests_DirectoryAndFile(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	sub := filepath.Join(dir, "sub")
	if err := os.Mkdir(sub, 0o755); err != nil {
		t.Fatalf("Mkdir() error = %v", err)
	}
	for _, name := range []string{"b.qm", "a.qm", "notes.txt"} {
		if err := os.WriteFile(filepath.Join(sub, name), []byte{}, 0o644); err != nil {
			t.Fatalf("WriteFile(%s) error = %v", name, err)
		}
	}
	standalone := filepath.Join(dir, "standalone.qm")
	if err := os.WriteFile(standalone, []byte{}, 0o644); err != nil {
		t.Fatalf("WriteFile(standalone) error = %v", err)
	}

	got, err := ExpandQuests([]string{sub, standalone})
	if err != nil {
		t.Fatalf("ExpandQuests() error = %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("len(got) = %d, want 3: %v", len(got), got)
	}
	if !sort.StringsAreSorted(got) {
		t.Errorf("ExpandQuests() = %v, want lexicographically sorted", got)
	}
	wantSet := map[string]bool{
		filepath.Join(sub, "a.qm"): true,
		filepath.Join(sub, "b.qm"): true,
		standalone:                 true,
	}
	for _, g := range got {
		if !wantSet[g] {
			t.Errorf("unexpected entry %s in %v", g, got)
		}
	}

	aIdx, bIdx := -1, -1
	for i, g := range got {
		switch g {
		case filepath.Join(sub, "a.qm"):
			aIdx = i
		case filepath.Join(sub, "b.qm"):
			bIdx = i
		}
	}
	if aIdx == -1 || bIdx == -1 || aIdx > bIdx {
		t.Errorf("expected a.qm before b.qm within sub/, got %v", got)
	}
}
