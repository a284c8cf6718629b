// Package runloop implements the Run Loop: it drives one
// Environment↔Agent playthrough to completion, enforcing the step cap
// and wall-clock timeout, recording steps and events, and committing the
// outcome through the first-write-wins guard. The loop owns its
// session end to end and guarantees cleanup on every exit path.
package runloop

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/felixgeelhaar/questbench/application/agent"
	"github.com/felixgeelhaar/questbench/domain/agentcfg"
	"github.com/felixgeelhaar/questbench/domain/env"
	"github.com/felixgeelhaar/questbench/domain/event"
	"github.com/felixgeelhaar/questbench/domain/llm"
	"github.com/felixgeelhaar/questbench/domain/quest"
	"github.com/felixgeelhaar/questbench/domain/run"
	"github.com/felixgeelhaar/questbench/infrastructure/llmclient/providers"
	"github.com/felixgeelhaar/questbench/infrastructure/logging"
	"github.com/felixgeelhaar/questbench/infrastructure/statemachine"
)

const (
	defaultMaxSteps    = 100
	defaultRunTimeout  = 5 * time.Minute
	defaultStepTimeout = 60 * time.Second
	defaultLanguage    = "en"
	bridgeCloseGrace   = 5 * time.Second
)

// Options configures one run. Quest and agent identity are the only
// required fields; the rest fall back to documented defaults.
type Options struct {
	RunID       string // generated if empty
	QuestPath   string
	Language    string
	AgentConfig agentcfg.Config
	MaxSteps    int
	RunTimeout  time.Duration
	StepTimeout time.Duration
	BenchmarkID string
	ResultsDir  string
}

func (o Options) normalized() Options {
	if o.MaxSteps <= 0 {
		o.MaxSteps = defaultMaxSteps
	}
	if o.RunTimeout <= 0 {
		o.RunTimeout = defaultRunTimeout
	}
	if o.StepTimeout <= 0 {
		o.StepTimeout = defaultStepTimeout
	}
	if o.Language == "" {
		o.Language = defaultLanguage
	}
	if o.ResultsDir == "" {
		o.ResultsDir = "results"
	}
	return o
}

// Deps are the run's external collaborators. Each run owns its own
// Bridge subprocess and Agent memory/loop state; RunStore,
// EventStore, and Completer are shared, safe for concurrent use across
// runs.
type Deps struct {
	// NewBridge constructs a fresh bridge session for this run alone.
	NewBridge func() env.Bridge

	RunStore   run.Store
	EventStore event.Store

	// Completer serves every network-backed provider. random_local runs
	// bypass it entirely in favor of a per-run seeded instance, since it
	// performs no network I/O and must stay reproducible in isolation.
	Completer agent.Completer
}

// Run executes one quest playthrough to completion and returns the
// final, persisted run record (which may reflect a different writer's
// outcome than the one this call attempted, under first-write-wins).
func Run(ctx context.Context, opts Options, deps Deps) (*run.Record, error) {
	opts = opts.normalized()

	runID := opts.RunID
	if runID == "" {
		runID = uuid.NewString()
	}

	agentCfgJSON, err := json.Marshal(opts.AgentConfig)
	if err != nil {
		return nil, fmt.Errorf("marshal agent config: %w", err)
	}

	rec := &run.Record{
		RunID:           runID,
		QuestName:       opts.QuestPath,
		AgentID:         opts.AgentConfig.AgentID,
		AgentConfigJSON: agentCfgJSON,
		StartTime:       time.Now().UTC(),
		BenchmarkID:     opts.BenchmarkID,
	}
	if err := deps.RunStore.Create(ctx, rec); err != nil {
		return nil, fmt.Errorf("create run: %w", err)
	}

	logFields := []logging.Field{logging.RunID(runID), logging.QuestSlug(Slug(opts.QuestPath)), logging.AgentID(opts.AgentConfig.AgentID)}
	logWith(logging.Info(), logFields...).Msg("run started")

	bridge := deps.NewBridge()
	environment := env.New(bridge)
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), bridgeCloseGrace)
		defer cancel()
		if cerr := environment.Close(closeCtx); cerr != nil {
			logWith(logging.Warn(), logFields...).Add(logging.ErrorField(cerr)).Msg("bridge close failed")
		}
	}()

	machine, err := statemachine.NewRunMachine()
	if err != nil {
		return nil, fmt.Errorf("build run machine: %w", err)
	}
	interp := statemachine.NewInterpreter(machine, statemachine.NewContext(runID))
	interp.Start()

	ag := agent.New(opts.AgentConfig, selectCompleter(opts.AgentConfig, deps.Completer))

	var eventSeq uint64
	emit := func(typ event.Type, payload any) {
		eventSeq++
		e, eerr := event.New(runID, typ, eventSeq, payload)
		if eerr != nil {
			logWith(logging.Warn(), logFields...).Add(logging.ErrorField(eerr)).Msg("event marshal failed")
			return
		}
		if aerr := deps.EventStore.Append(ctx, e); aerr != nil {
			logWith(logging.Warn(), logFields...).Add(logging.ErrorField(aerr)).Msg("event append failed")
		}
	}

	finalize := func(outcome run.Outcome, reward float64, endReason run.EndReason) (*run.Record, error) {
		endTime := time.Now().UTC()
		committed, cerr := deps.RunStore.CommitOutcome(ctx, runID, outcome, endTime, reward, endReason)
		if cerr != nil {
			return nil, fmt.Errorf("commit outcome: %w", cerr)
		}
		if !committed {
			logWith(logging.Debug(), logFields...).Msg("outcome commit lost the first-write-wins race")
		}
		emit(event.TypeOutcome, event.OutcomePayload{Outcome: string(outcome), Reward: reward})

		final, gerr := deps.RunStore.Get(ctx, runID)
		if gerr != nil {
			return nil, fmt.Errorf("reload run: %w", gerr)
		}
		if steps, serr := deps.RunStore.Steps(ctx, runID); serr != nil {
			logWith(logging.Warn(), logFields...).Add(logging.ErrorField(serr)).Msg("load steps for run summary failed")
		} else if werr := writeRunSummary(opts.ResultsDir, final, steps); werr != nil {
			logWith(logging.Warn(), logFields...).Add(logging.ErrorField(werr)).Msg("run summary write failed")
		}

		outcomeStr := ""
		if final.Outcome != nil {
			outcomeStr = string(*final.Outcome)
		}
		logWith(logging.Info(), logFields...).Add(logging.Outcome(outcomeStr)).Msg("run finished")
		return final, nil
	}

	obs, err := environment.Reset(ctx, opts.QuestPath, opts.Language)
	if err != nil {
		interp.Send(statemachine.EventFail)
		return finalize(run.Error, 0, run.EndBridgeError)
	}
	if err := deps.RunStore.AppendStep(ctx, run.Step{
		RunID: runID, StepNumber: 1, LocationID: obs.LocationID, Observation: obs.Text, Choices: obs.ChoicesRendered,
	}); err != nil {
		return nil, fmt.Errorf("append initial step: %w", err)
	}
	emit(event.TypeStep, event.StepPayload{StepNumber: 1, LocationID: obs.LocationID})
	interp.Send(statemachine.EventStep)

	tEnd := time.Now().Add(opts.RunTimeout)
	stepNumber := 1
	current := obs

	for {
		if len(current.ChoicesRendered) == 0 {
			outcome, reward, endReason := outcomeFromGameState(environment.LastState().GameState)
			interp.Send(statemachine.EventTerminal)
			return finalize(outcome, reward, endReason)
		}
		if stepNumber >= opts.MaxSteps {
			interp.Send(statemachine.EventFail)
			return finalize(run.Failure, 0, run.EndQuestFailure)
		}
		if ctx.Err() != nil {
			interp.Send(statemachine.EventFail)
			return finalize(run.Error, 0, run.EndCancelled)
		}

		now := time.Now()
		if !now.Before(tEnd) {
			emit(event.TypeTimeout, event.TimeoutPayload{StepNumber: stepNumber, Elapsed: now.Sub(rec.StartTime)})
			interp.Send(statemachine.EventTimeout)
			return finalize(run.Timeout, 0, run.EndTimeout)
		}

		var (
			action      int
			decision    agent.Decision
			usage       llm.Usage
			cost        float64
			decisionRaw json.RawMessage
		)
		if opts.AgentConfig.SkipSingle && len(current.ChoicesRendered) == 1 {
			action = 1
		} else {
			budget := opts.StepTimeout
			if remaining := tEnd.Sub(now); remaining < budget {
				budget = remaining
			}
			stepCtx, cancel := context.WithTimeout(ctx, budget)
			decision, usage, cost = ag.Decide(stepCtx, current)
			cancel()
			action = decision.Result
			if raw, merr := json.Marshal(decision); merr == nil {
				decisionRaw = raw
			}
		}

		nextObs, reward, _, _, serr := environment.Step(ctx, action)
		if serr != nil {
			var invalid *env.InvalidAction
			if errors.As(serr, &invalid) {
				logWith(logging.Error(), logFields...).Add(logging.ErrorField(serr)).Msg("agent chose an invalid action")
			}
			interp.Send(statemachine.EventFail)
			return finalize(run.Error, 0, run.EndBridgeError)
		}

		stepNumber++
		actionCopy := action
		stepUsage := run.Usage{PromptTokens: usage.PromptTokens, CompletionTokens: usage.CompletionTokens, TotalTokens: usage.TotalTokens, CostUSD: cost}
		if err := deps.RunStore.AppendStep(ctx, run.Step{
			RunID: runID, StepNumber: stepNumber, LocationID: nextObs.LocationID, Observation: nextObs.Text,
			Choices: nextObs.ChoicesRendered, Action: &actionCopy, Reward: reward, Decision: decisionRaw, Usage: stepUsage,
		}); err != nil {
			return nil, fmt.Errorf("append step %d: %w", stepNumber, err)
		}
		emit(event.TypeStep, event.StepPayload{StepNumber: stepNumber, LocationID: nextObs.LocationID, Action: &actionCopy})
		interp.Send(statemachine.EventStep)

		current = nextObs
	}
}

// outcomeFromGameState maps a terminal game state to a run outcome,
// reward, and end reason.
func outcomeFromGameState(state quest.GameState) (run.Outcome, float64, run.EndReason) {
	if state == quest.GameWin {
		return run.Success, 1.0, run.EndQuestSuccess
	}
	return run.Failure, 0.0, run.EndQuestFailure
}

// selectCompleter bypasses the shared network Completer for random_local
// models: it performs no network I/O and needs a per-run seeded instance
// to stay reproducible in isolation from concurrent runs.
func selectCompleter(cfg agentcfg.Config, shared agent.Completer) agent.Completer {
	model := llm.DefaultAliases().Resolve(cfg.Model)
	if provider, _, ok := strings.Cut(model, ":"); ok && provider == "random_local" {
		return directCompleter{provider: providers.NewRandomLocalProvider(cfg.Seed)}
	}
	return shared
}

// directCompleter adapts a bare llm.Provider to agent.Completer, for
// providers that need no resilience stack (random_local).
type directCompleter struct {
	provider llm.Provider
}

func (d directCompleter) Complete(ctx context.Context, _ string, req llm.Request) (llm.Response, error) {
	return d.provider.Complete(ctx, req)
}

func logWith(ev *logging.LogEvent, fields ...logging.Field) *logging.LogEvent {
	for _, f := range fields {
		ev = ev.Add(f)
	}
	return ev
}
