package providers

import (
	"context"
	"encoding/json"
	"math/rand"
	"sync"

	"github.com/felixgeelhaar/questbench/domain/llm"
)

// RandomLocalProvider is the canonical baseline: it
// performs no network I/O and returns a uniformly random 1-based choice
// index. Seeded construction makes its action sequence reproducible for
// a fixed seed and fixed quest.
type RandomLocalProvider struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewRandomLocalProvider creates a seeded baseline. Each run should
// construct its own instance so concurrent runs sharing a seed value
// still produce independent, reproducible sequences rather than racing
// over one shared generator.
func NewRandomLocalProvider(seed int64) *RandomLocalProvider {
	return &RandomLocalProvider{rng: rand.New(rand.NewSource(seed))}
}

func (p *RandomLocalProvider) Name() string { return "random_local" }

type randomLocalReply struct {
	Result    int    `json:"result"`
	Reasoning string `json:"reasoning"`
}

// Complete ignores the rendered prompt entirely and draws a uniform
// index in [1, req.NumChoices], encoded as the same JSON reply shape the
// Decision Agent's parser expects from a real model.
func (p *RandomLocalProvider) Complete(_ context.Context, req llm.Request) (llm.Response, error) {
	n := req.NumChoices
	if n < 1 {
		n = 1
	}

	p.mu.Lock()
	idx := p.rng.Intn(n) + 1
	p.mu.Unlock()

	raw, err := json.Marshal(randomLocalReply{Result: idx, Reasoning: "random_local baseline"})
	if err != nil {
		return llm.Response{}, &llm.PermanentError{Kind: "bad_request", Err: err}
	}
	return llm.Response{Content: string(raw), FinishReason: "stop"}, nil
}
