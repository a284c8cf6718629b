package agent

import (
	"context"
	"testing"

	"github.com/felixgeelhaar/questbench/domain/agentcfg"
	"github.com/felixgeelhaar/questbench/domain/env"
	"github.com/felixgeelhaar/questbench/domain/llm"
)

type scriptedCompleter struct {
	replies []string
	calls   int
}

func (s *scriptedCompleter) Complete(ctx context.Context, modelID string, req llm.Request) (llm.Response, error) {
	i := s.calls
	s.calls++
	if i >= len(s.replies) {
		i = len(s.replies) - 1
	}
	return llm.Response{Content: s.replies[i], Usage: llm.Usage{PromptTokens: 10, CompletionTokens: 5, TotalTokens: 15}}, nil
}

func newTestObservation(locationID string, choices []string) env.Observation {
	choiceMap := make(map[int]int, len(choices))
	for i := range choices {
		choiceMap[i+1] = i + 1
	}
	return env.Observation{
		LocationID:      locationID,
		Text:            "You are at " + locationID,
		ChoicesRendered: choices,
		ChoiceMap:       choiceMap,
	}
}

func baseConfig() agentcfg.Config {
	return agentcfg.Config{
		AgentID:        "test-agent",
		Model:          "openai:gpt-4o",
		SystemTemplate: "You are playing a quest. {{.LoopHint}}",
		ActionTemplate: "{{.Observation}}\n{{range $i, $c := .Choices}}{{$i}}: {{$c}}\n{{end}}",
	}.Normalized()
}

func TestDecideParsesStrictJSON(t *testing.T) {
	completer := &scriptedCompleter{replies: []string{`{"reasoning":"go left","result":2}`}}
	a := New(baseConfig(), completer)

	obs := newTestObservation("loc1", []string{"go left", "go right"})
	decision, usage, _ := a.Decide(context.Background(), obs)

	if decision.Result != 2 {
		t.Fatalf("expected result 2, got %d", decision.Result)
	}
	if decision.Reasoning != "go left" {
		t.Fatalf("expected reasoning preserved, got %q", decision.Reasoning)
	}
	if usage.TotalTokens != 15 {
		t.Fatalf("expected usage to roll up from response, got %+v", usage)
	}
}

// TestDecideFallsBackAfterRetries: a degenerate/unparseable
// reply exhausts the retry budget and the agent falls back to index 1,
// preserving whatever partial reasoning was recovered along the way.
func TestDecideFallsBackAfterRetries(t *testing.T) {
	cfg := baseConfig()
	cfg.MaxRetries = 1
	completer := &scriptedCompleter{replies: []string{
		`not json at all`,
		`{"analysis":"still garbled`,
	}}
	a := New(cfg, completer)

	obs := newTestObservation("loc1", []string{"go left", "go right"})
	decision, _, _ := a.Decide(context.Background(), obs)

	if decision.Result != 1 {
		t.Fatalf("expected fallback to index 1, got %d", decision.Result)
	}
	if decision.Error == "" {
		t.Fatalf("expected decision.Error to record the failure kind")
	}
	if completer.calls != 2 {
		t.Fatalf("expected exactly max_retries+1=2 attempts, got %d", completer.calls)
	}
}

// TestDecideRecoversOnRetry: the first reply is degenerate (empty
// content), the second parses; the agent must use the second result
// rather than falling back.
func TestDecideRecoversOnRetry(t *testing.T) {
	cfg := baseConfig()
	cfg.MaxRetries = 2
	completer := &scriptedCompleter{replies: []string{
		"",
		`{"reasoning":"second try","result":2}`,
	}}
	a := New(cfg, completer)

	obs := newTestObservation("loc1", []string{"go left", "go right"})
	decision, usage, _ := a.Decide(context.Background(), obs)

	if decision.Result != 2 {
		t.Fatalf("expected result 2 from the retry, got %d", decision.Result)
	}
	if decision.Error != "" {
		t.Fatalf("expected no error marker after successful retry, got %q", decision.Error)
	}
	if len(decision.RetryErrors) != 1 || decision.RetryErrors[0] != "parse_error" {
		t.Fatalf("expected the failed first attempt recorded, got %v", decision.RetryErrors)
	}
	if completer.calls != 2 {
		t.Fatalf("expected 2 attempts, got %d", completer.calls)
	}
	if usage.TotalTokens != 30 {
		t.Fatalf("expected usage summed across both attempts, got %+v", usage)
	}
}

// TestDecideLoopEscapeOverride: once the escape hint has fired
// and the model repeats its previous action anyway, the agent overrides
// to the smallest different valid index — and keeps overriding for as
// long as the model keeps repeating, rather than oscillating back.
func TestDecideLoopEscapeOverride(t *testing.T) {
	cfg := baseConfig()
	cfg.LoopVisit = 2
	cfg.LoopStreak = 2
	completer := &scriptedCompleter{replies: []string{
		`{"reasoning":"try door","result":1}`,
	}}
	a := New(cfg, completer)

	obs := newTestObservation("loc1", []string{"door", "window", "stairs"})

	d1, _, _ := a.Decide(context.Background(), obs)
	if d1.Result != 1 {
		t.Fatalf("expected first decision to be 1, got %d", d1.Result)
	}
	d2, _, _ := a.Decide(context.Background(), obs)
	if d2.Result != 1 {
		t.Fatalf("expected second decision to be 1 (streak threshold not yet met), got %d", d2.Result)
	}
	d3, _, _ := a.Decide(context.Background(), obs)
	if d3.Override != "loop_escape" {
		t.Fatalf("expected third decision to be loop-escape overridden, got %+v", d3)
	}
	if d3.Result != 2 {
		t.Fatalf("expected override to the smallest alternative 2, got %d", d3.Result)
	}

	// The model still answers 1 every round; the override must hold.
	for i, d := range []struct{ name string }{{"d4"}, {"d5"}} {
		got, _, _ := a.Decide(context.Background(), obs)
		if got.Override != "loop_escape" || got.Result != 2 {
			t.Fatalf("%s (round %d): override did not hold, got %+v", d.name, i+4, got)
		}
	}
}

func TestSmallestAlternative(t *testing.T) {
	alt, ok := smallestAlternative(3, 1)
	if !ok || alt != 2 {
		t.Fatalf("expected alternative 2, got %d ok=%v", alt, ok)
	}
	alt, ok = smallestAlternative(1, 1)
	if ok {
		t.Fatalf("expected no alternative when only one choice exists, got %d", alt)
	}
}
