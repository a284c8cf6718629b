// Package agent implements the Decision Agent: it turns an
// Observation into a 1-based choice index, rendering prompts from
// opaque templates, calling the LLM Client Layer, tolerantly parsing the
// structured reply, and applying loop-escape and memory policy.
package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/felixgeelhaar/questbench/domain/agentcfg"
	"github.com/felixgeelhaar/questbench/domain/env"
	"github.com/felixgeelhaar/questbench/domain/llm"
	"github.com/felixgeelhaar/questbench/infrastructure/logging"
)

// Completer is the subset of infrastructure/llmclient.Client the agent
// depends on, so tests can substitute a scripted stub.
type Completer interface {
	Complete(ctx context.Context, modelID string, req llm.Request) (llm.Response, error)
}

// Decision is the parsed, validated outcome of one Decide call. It is
// recorded verbatim into the step's llm_decision field.
type Decision struct {
	Result    int    `json:"result"`
	Reasoning string `json:"reasoning,omitempty"`
	Analysis  string `json:"analysis,omitempty"`
	Error     string `json:"error,omitempty"`
	Override  string `json:"override,omitempty"`

	// RetryErrors records the error kind of each failed attempt that
	// preceded this decision, so a reply recovered on retry still
	// carries its history in the step record.
	RetryErrors []string `json:"retry_errors,omitempty"`
}

// Agent drives one run's decisions. It owns the run's memory and loop
// state; neither is persisted.
type Agent struct {
	cfg    agentcfg.Config
	client Completer

	memory *agentcfg.MemoryState
	loop   *agentcfg.LoopState

	stepsSinceSummary int
	calculatorNote    string
}

// New creates an Agent for one run, applying cfg's documented defaults.
func New(cfg agentcfg.Config, client Completer) *Agent {
	cfg = cfg.Normalized()
	return &Agent{
		cfg:    cfg,
		client: client,
		memory: agentcfg.NewMemoryState(cfg.Memory.MaxHistory),
		loop:   agentcfg.NewLoopState(),
	}
}

// Decide converts an Observation into a Decision, plus the LLM usage and
// cost incurred producing it (rolled up by the Run Loop into the step's
// Usage field). Decide never returns an error: every LLM or parse
// failure is recorded on the Decision and falls back to the smallest
// valid index so a run never crashes on a bad reply.
func (a *Agent) Decide(ctx context.Context, obs env.Observation) (Decision, llm.Usage, float64) {
	numChoices := len(obs.ChoicesRendered)
	if numChoices == 0 {
		return Decision{Result: 0}, llm.Usage{}, 0
	}

	jumpIDs := make([]int, 0, len(obs.ChoiceMap))
	for _, jumpID := range obs.ChoiceMap {
		jumpIDs = append(jumpIDs, jumpID)
	}
	fp := agentcfg.ComputeFingerprint(obs.LocationID, obs.ParamsState, jumpIDs)
	a.loop.Visit(fp)
	escape := a.loop.ShouldEscape(fp, a.cfg.LoopVisit, a.cfg.LoopStreak)

	allowCalc := a.cfg.HasTool("calculator")
	vars := a.renderVars(obs, escape, allowCalc)

	decision, usage, cost := a.callWithRetry(ctx, vars, numChoices)

	// Streaks track what the model actually answered, not what was
	// played: recording the overridden action would reset the streak
	// and make the escape oscillate instead of holding.
	rawResult := decision.Result
	if escape {
		if last, ok := a.loop.LastAction(fp); ok && decision.Result == last {
			if alt, found := smallestAlternative(numChoices, last); found {
				decision.Result = alt
				decision.Override = "loop_escape"
				logging.Debug().Add(logging.Str("fingerprint", string(fp))).Msg("loop escape override applied")
			}
		}
	}
	a.loop.RecordAction(fp, rawResult)

	a.runCalculator(allowCalc, decision.Reasoning)
	a.memory.Record(agentcfg.MemoryEntry{
		Observation: obs.Text,
		Choices:     obs.ChoicesRendered,
		Action:      decision.Result,
		Reasoning:   decision.Reasoning,
	})
	a.maybeSummarize(ctx)

	return decision, usage, cost
}

// callWithRetry implements retry with preserved reasoning: on parse
// failure, retry with a schema reminder while keeping the best partial
// reasoning recovered so far; after max_retries, fall back to index 1.
func (a *Agent) callWithRetry(ctx context.Context, vars promptVars, numChoices int) (Decision, llm.Usage, float64) {
	var bestReasoning, bestAnalysis, lastErrKind string
	var retryErrs []string
	var total llm.Usage
	var totalCost float64

	attempts := a.cfg.MaxRetries + 1
	temperature := 0.7
	if a.cfg.Temperature != nil {
		temperature = *a.cfg.Temperature
	}

	for attempt := 0; attempt < attempts; attempt++ {
		system, action, err := a.render(vars)
		if err != nil {
			return Decision{Result: 1, Error: "parse_error: " + err.Error()}, total, totalCost
		}
		if attempt > 0 {
			action += "\n\nReminder: reply with strict JSON of the shape " +
				`{"reasoning": "<why>", "result": <integer 1-` + fmt.Sprint(numChoices) + `>}.`
		}

		resp, cerr := a.client.Complete(ctx, a.cfg.Model, llm.Request{
			Model:       a.cfg.Model,
			Messages:    []llm.Message{{Role: "system", Content: system}, {Role: "user", Content: action}},
			Temperature: temperature,
			MaxTokens:   1024,
			NumChoices:  numChoices,
		})
		if cerr != nil {
			lastErrKind = "llm_call_error: " + classifyCallErr(cerr)
			retryErrs = append(retryErrs, lastErrKind)
			logging.Warn().Add(logging.ErrorField(cerr)).Add(logging.Attempt(attempt + 1)).Msg("agent llm call failed")
			var perm *llm.PermanentError
			if errors.As(cerr, &perm) {
				break
			}
			continue
		}
		total.PromptTokens += resp.Usage.PromptTokens
		total.CompletionTokens += resp.Usage.CompletionTokens
		total.TotalTokens += resp.Usage.TotalTokens
		totalCost += resp.CostUSD

		parsed, perr := Parse(resp.Content)
		if parsed.Reasoning != "" {
			bestReasoning = parsed.Reasoning
		}
		if parsed.Analysis != "" {
			bestAnalysis = parsed.Analysis
		}
		if perr != nil {
			lastErrKind = "parse_error"
			retryErrs = append(retryErrs, lastErrKind)
			continue
		}
		if parsed.Result < 1 || parsed.Result > numChoices {
			lastErrKind = "parse_error"
			retryErrs = append(retryErrs, lastErrKind)
			continue
		}
		return Decision{Result: parsed.Result, Reasoning: parsed.Reasoning, Analysis: parsed.Analysis, RetryErrors: retryErrs}, total, totalCost
	}

	if lastErrKind == "" {
		lastErrKind = "parse_error"
	}
	return Decision{Result: 1, Reasoning: bestReasoning, Analysis: bestAnalysis, Error: lastErrKind, RetryErrors: retryErrs}, total, totalCost
}

func classifyCallErr(err error) string {
	var transient *llm.TransientError
	if errors.As(err, &transient) {
		return transient.Kind
	}
	var permanent *llm.PermanentError
	if errors.As(err, &permanent) {
		return permanent.Kind
	}
	return "unknown"
}

// smallestAlternative returns the smallest 1-based index in
// [1, numChoices] other than exclude.
func smallestAlternative(numChoices, exclude int) (int, bool) {
	for i := 1; i <= numChoices; i++ {
		if i != exclude {
			return i, true
		}
	}
	return 0, false
}

func (a *Agent) renderMemoryBlock() string {
	switch a.cfg.Memory.Type {
	case agentcfg.MemoryMessageHistory:
		var b strings.Builder
		for _, e := range a.memory.Recent() {
			fmt.Fprintf(&b, "- observation: %s\n  action: %d\n  reasoning: %s\n", e.Observation, e.Action, e.Reasoning)
		}
		if a.calculatorNote != "" {
			b.WriteString(a.calculatorNote)
			b.WriteByte('\n')
		}
		return b.String()
	case agentcfg.MemorySummary:
		var b strings.Builder
		b.WriteString(a.memory.Summary)
		if a.calculatorNote != "" {
			b.WriteByte('\n')
			b.WriteString(a.calculatorNote)
		}
		return b.String()
	default:
		return ""
	}
}

// maybeSummarize runs the secondary summarization call every K steps,
// replacing raw history beyond max_history with a rolling text summary.
func (a *Agent) maybeSummarize(ctx context.Context) {
	if a.cfg.Memory.Type != agentcfg.MemorySummary {
		return
	}
	a.stepsSinceSummary++
	if a.stepsSinceSummary < a.cfg.Memory.SummaryEvery {
		return
	}
	a.stepsSinceSummary = 0

	var b strings.Builder
	if a.memory.Summary != "" {
		b.WriteString(a.memory.Summary)
		b.WriteByte('\n')
	}
	for _, e := range a.memory.Recent() {
		fmt.Fprintf(&b, "- %s (action %d): %s\n", e.Observation, e.Action, e.Reasoning)
	}

	resp, err := a.client.Complete(ctx, a.cfg.Model, llm.Request{
		Model: a.cfg.Model,
		Messages: []llm.Message{
			{Role: "system", Content: "Summarize the following quest playthrough history into a short paragraph for future reference."},
			{Role: "user", Content: b.String()},
		},
		Temperature: 0,
		MaxTokens:   512,
	})
	if err != nil || resp.Content == "" {
		logging.Debug().Add(logging.ErrorField(err)).Msg("memory summarization skipped")
		return
	}
	a.memory.Summary = resp.Content
}
