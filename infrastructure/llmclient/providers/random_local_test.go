package providers

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/felixgeelhaar/questbench/domain/llm"
)

func TestRandomLocal_SameSeedSameSequence(t *testing.T) {
	t.Parallel()
	draw := func(seed int64, n int) []int {
		p := NewRandomLocalProvider(seed)
		out := make([]int, n)
		for i := range out {
			resp, err := p.Complete(context.Background(), llm.Request{NumChoices: 4})
			if err != nil {
				t.Fatalf("Complete() error = %v", err)
			}
			var reply struct {
				Result int `json:"result"`
			}
			if err := json.Unmarshal([]byte(resp.Content), &reply); err != nil {
				t.Fatalf("unmarshal reply: %v", err)
			}
			out[i] = reply.Result
		}
		return out
	}

	a := draw(7, 20)
	b := draw(7, 20)
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("sequences diverge at %d: %v vs %v", i, a, b)
		}
	}
}

func TestRandomLocal_ResultsInRange(t *testing.T) {
	t.Parallel()
	p := NewRandomLocalProvider(1)
	for i := 0; i < 100; i++ {
		resp, err := p.Complete(context.Background(), llm.Request{NumChoices: 3})
		if err != nil {
			t.Fatalf("Complete() error = %v", err)
		}
		var reply struct {
			Result int `json:"result"`
		}
		if err := json.Unmarshal([]byte(resp.Content), &reply); err != nil {
			t.Fatalf("unmarshal reply: %v", err)
		}
		if reply.Result < 1 || reply.Result > 3 {
			t.Fatalf("result %d out of range [1,3]", reply.Result)
		}
	}
}

func TestRandomLocal_ZeroChoicesClampsToOne(t *testing.T) {
	t.Parallel()
	p := NewRandomLocalProvider(1)
	resp, err := p.Complete(context.Background(), llm.Request{})
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	var reply struct {
		Result int `json:"result"`
	}
	if err := json.Unmarshal([]byte(resp.Content), &reply); err != nil {
		t.Fatalf("unmarshal reply: %v", err)
	}
	if reply.Result != 1 {
		t.Fatalf("result = %d, want 1 when no choice count is supplied", reply.Result)
	}
}
