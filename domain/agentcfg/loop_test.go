package agentcfg

import "testing"

func TestComputeFingerprint_OrderInsensitiveToJumpIDs(t *testing.T) {
	t.Parallel()
	a := ComputeFingerprint("loc1", []string{"HP: 10"}, []int{3, 1, 2})
	b := ComputeFingerprint("loc1", []string{"HP: 10"}, []int{1, 2, 3})
	if a != b {
		t.Errorf("fingerprints differ for the same jump set in different order: %s vs %s", a, b)
	}
}

func TestComputeFingerprint_SensitiveToParamsState(t *testing.T) {
	t.Parallel()
	a := ComputeFingerprint("loc1", []string{"HP: 10"}, []int{1})
	b := ComputeFingerprint("loc1", []string{"HP: 9"}, []int{1})
	if a == b {
		t.Error("fingerprints should differ when params_state differs")
	}
}

func TestLoopState_StreakResetsOnDifferentAction(t *testing.T) {
	t.Parallel()
	l := NewLoopState()
	fp := ComputeFingerprint("loc1", nil, []int{1, 2})

	if got := l.RecordAction(fp, 1); got != 1 {
		t.Errorf("first action streak = %d, want 1", got)
	}
	if got := l.RecordAction(fp, 1); got != 2 {
		t.Errorf("repeated action streak = %d, want 2", got)
	}
	if got := l.RecordAction(fp, 2); got != 1 {
		t.Errorf("different action streak = %d, want 1 (reset)", got)
	}
}

func TestLoopState_ShouldEscape(t *testing.T) {
	t.Parallel()
	l := NewLoopState()
	fp := ComputeFingerprint("loc1", nil, []int{1, 2})

	if l.ShouldEscape(fp, 3, 2) {
		t.Error("ShouldEscape should be false before any visit")
	}

	l.Visit(fp)
	l.RecordAction(fp, 1)
	l.Visit(fp)
	l.RecordAction(fp, 1)
	if l.ShouldEscape(fp, 3, 2) {
		t.Error("ShouldEscape should be false at 2 visits with threshold 3")
	}

	l.Visit(fp)
	if !l.ShouldEscape(fp, 3, 2) {
		t.Error("ShouldEscape should fire at 3 visits with a streak of 2")
	}
}

func TestMemoryState_EvictsBeyondMaxHistory(t *testing.T) {
	t.Parallel()
	m := NewMemoryState(2)
	for i := 0; i < 4; i++ {
		m.Record(MemoryEntry{Observation: string(rune('a' + i)), Action: i + 1})
	}
	recent := m.Recent()
	if len(recent) != 2 {
		t.Fatalf("len(Recent()) = %d, want 2", len(recent))
	}
	if recent[0].Observation != "c" || recent[1].Observation != "d" {
		t.Errorf("Recent() = %+v, want the two newest entries", recent)
	}
}

func TestConfigNormalized_AppliesDefaults(t *testing.T) {
	t.Parallel()
	cfg := Config{AgentID: "a", Model: "x:y"}.Normalized()
	if cfg.Memory.Type != MemoryNone {
		t.Errorf("Memory.Type = %v, want none", cfg.Memory.Type)
	}
	if cfg.MaxRetries != 2 || cfg.LoopVisit != 3 || cfg.LoopStreak != 2 {
		t.Errorf("defaults = retries:%d visit:%d streak:%d, want 2/3/2", cfg.MaxRetries, cfg.LoopVisit, cfg.LoopStreak)
	}
	if cfg.Memory.SummaryEvery != 5 {
		t.Errorf("SummaryEvery = %d, want 5", cfg.Memory.SummaryEvery)
	}
}
