// Package scheduler implements the Benchmark Scheduler:
// it expands a quest x agent matrix, dispatches each pair to a bounded
// worker pool of independent Run Loops, and aggregates outcomes into a
// benchmark summary. Workers share nothing beyond the persistence layer
// and a mutex-protected progress struct.
package scheduler

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/felixgeelhaar/questbench/application/agent"
	"github.com/felixgeelhaar/questbench/application/runloop"
	"github.com/felixgeelhaar/questbench/domain/benchmark"
	"github.com/felixgeelhaar/questbench/domain/env"
	"github.com/felixgeelhaar/questbench/domain/event"
	"github.com/felixgeelhaar/questbench/domain/run"
	"github.com/felixgeelhaar/questbench/infrastructure/logging"
)

const defaultMaxWorkers = 4

// Deps are the scheduler's shared collaborators, handed to every Run
// Loop it dispatches. They must be safe for concurrent use: one bridge
// subprocess is still spawned per run (NewBridge is called once per
// pair), but RunStore/EventStore/BenchmarkStore/Completer are shared.
type Deps struct {
	NewBridge      func() env.Bridge
	RunStore       run.Store
	EventStore     event.Store
	BenchmarkStore benchmark.Store
	Completer      agent.Completer
	ResultsDir     string
}

type pairResult struct {
	agentID   string
	questName string
	outcome   run.Outcome
	runID     string
}

// Run expands cfg's quest x agent matrix, executes each pair as an
// independent Run Loop under a bounded worker pool, and writes the
// aggregated benchmark summary artifact. A single pair's failure never
// aborts the others.
func Run(ctx context.Context, cfg benchmark.MatrixConfig, deps Deps) (*benchmark.Summary, error) {
	benchmarkID := cfg.BenchmarkID
	if benchmarkID == "" {
		benchmarkID = uuid.NewString()
	}
	resultsDir := deps.ResultsDir
	if resultsDir == "" {
		resultsDir = "results"
	}
	maxWorkers := cfg.MaxWorkers
	if maxWorkers <= 0 {
		maxWorkers = defaultMaxWorkers
	}

	questFiles, err := ExpandQuests(cfg.Quests)
	if err != nil {
		return nil, fmt.Errorf("expand quests: %w", err)
	}

	type pair struct {
		quest    string
		agentIdx int
	}
	var pairs []pair
	for _, q := range questFiles {
		for i := range cfg.Agents {
			pairs = append(pairs, pair{quest: q, agentIdx: i})
		}
	}

	configJSON, err := json.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("marshal benchmark config: %w", err)
	}
	rec := &benchmark.Record{
		BenchmarkID: benchmarkID,
		ConfigJSON:  configJSON,
		Status:      benchmark.StatusRunning,
		Counters:    benchmark.Counters{Total: len(pairs)},
	}
	if err := deps.BenchmarkStore.Create(ctx, rec); err != nil {
		return nil, fmt.Errorf("create benchmark: %w", err)
	}

	logging.Info().Add(logging.BenchmarkID(benchmarkID)).Add(logging.Int("total_runs", len(pairs))).Msg("benchmark started")

	var (
		mu       sync.Mutex
		counters = benchmark.Counters{Total: len(pairs)}
		active   = make(map[string]bool)
		results  []pairResult
	)
	updateCounters := func() {
		mu.Lock()
		snapshot := counters
		snapshot.ActivePairs = make([]string, 0, len(active))
		for key := range active {
			snapshot.ActivePairs = append(snapshot.ActivePairs, key)
		}
		sort.Strings(snapshot.ActivePairs)
		mu.Unlock()
		if uerr := deps.BenchmarkStore.UpdateCounters(ctx, benchmarkID, benchmark.StatusRunning, snapshot); uerr != nil {
			logging.Warn().Add(logging.BenchmarkID(benchmarkID)).Add(logging.ErrorField(uerr)).Msg("benchmark counters update failed")
		}
	}

	sem := make(chan struct{}, maxWorkers)
	var wg sync.WaitGroup
	for _, p := range pairs {
		p := p
		agentCfg := cfg.Agents[p.agentIdx]
		pairKey := agentCfg.AgentID + "|" + p.quest

		sem <- struct{}{}
		mu.Lock()
		counters.Running++
		active[pairKey] = true
		mu.Unlock()
		updateCounters()

		wg.Add(1)
		go func() {
			defer wg.Done()
			defer func() { <-sem }()

			runRec, rerr := runloop.Run(ctx, runloop.Options{
				QuestPath:   p.quest,
				AgentConfig: agentCfg,
				MaxSteps:    cfg.MaxSteps,
				RunTimeout:  cfg.TimeoutPerRun.Duration(),
				BenchmarkID: benchmarkID,
				ResultsDir:  resultsDir,
			}, runloop.Deps{
				NewBridge:  deps.NewBridge,
				RunStore:   deps.RunStore,
				EventStore: deps.EventStore,
				Completer:  deps.Completer,
			})

			mu.Lock()
			counters.Running--
			delete(active, pairKey)
			switch {
			case rerr != nil || runRec == nil || runRec.Outcome == nil:
				counters.Failed++
				logging.Error().Add(logging.BenchmarkID(benchmarkID)).Add(logging.ErrorField(rerr)).Msg("run dispatch failed")
			default:
				switch *runRec.Outcome {
				case run.Success:
					counters.Completed++
				case run.Timeout:
					counters.Timeout++
				default:
					counters.Failed++
				}
				results = append(results, pairResult{agentID: agentCfg.AgentID, questName: p.quest, outcome: *runRec.Outcome, runID: runRec.RunID})
			}
			mu.Unlock()
			updateCounters()
		}()
	}
	wg.Wait()

	summary := aggregate(benchmarkID, results)
	if err := deps.BenchmarkStore.Complete(ctx, benchmarkID, benchmark.StatusComplete, summary); err != nil {
		return nil, fmt.Errorf("complete benchmark: %w", err)
	}
	if err := writeBenchmarkSummary(resultsDir, summary); err != nil {
		logging.Warn().Add(logging.BenchmarkID(benchmarkID)).Add(logging.ErrorField(err)).Msg("benchmark summary write failed")
	}

	logging.Info().Add(logging.BenchmarkID(benchmarkID)).Add(logging.Int("total_runs", summary.TotalRuns)).Msg("benchmark finished")
	return &summary, nil
}

// aggregate rolls per-pair outcomes into per-agent and per-quest
// counts.
func aggregate(benchmarkID string, results []pairResult) benchmark.Summary {
	perAgent := make(map[string]*benchmark.PerKeyCount)
	perQuest := make(map[string]*benchmark.PerKeyCount)
	runIDs := make([]string, 0, len(results))

	bump := func(m map[string]*benchmark.PerKeyCount, key string, outcome run.Outcome) {
		row, ok := m[key]
		if !ok {
			row = &benchmark.PerKeyCount{Key: key}
			m[key] = row
		}
		switch outcome {
		case run.Success:
			row.OK++
		case run.Failure:
			row.Fail++
		case run.Timeout:
			row.Timeout++
		default:
			row.Error++
		}
	}

	for _, r := range results {
		bump(perAgent, r.agentID, r.outcome)
		bump(perQuest, r.questName, r.outcome)
		runIDs = append(runIDs, r.runID)
	}

	return benchmark.Summary{
		BenchmarkID: benchmarkID,
		TotalRuns:   len(results),
		PerAgent:    flatten(perAgent),
		PerQuest:    flatten(perQuest),
		RunIDs:      runIDs,
	}
}

func flatten(m map[string]*benchmark.PerKeyCount) []benchmark.PerKeyCount {
	out := make([]benchmark.PerKeyCount, 0, len(m))
	for _, v := range m {
		out = append(out, *v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}
