package env

import (
	"context"
	"errors"
	"testing"

	"github.com/felixgeelhaar/questbench/domain/quest"
)

// fakeBridge records step calls and replays a scripted state sequence.
type fakeBridge struct {
	states    []quest.State
	idx       int
	stepCalls int
}

func (b *fakeBridge) Start(ctx context.Context, questPath, language string) (quest.State, error) {
	b.idx = 0
	return b.states[0], nil
}

func (b *fakeBridge) Step(ctx context.Context, jumpID int) (quest.State, error) {
	b.stepCalls++
	if b.idx < len(b.states)-1 {
		b.idx++
	}
	return b.states[b.idx], nil
}

func (b *fakeBridge) GetState(ctx context.Context) (quest.State, error) {
	return b.states[b.idx], nil
}

func (b *fakeBridge) Close(ctx context.Context) error { return nil }

func twoChoiceState() quest.State {
	return quest.State{
		LocationID: "loc0",
		Text:       "A",
		Choices:    []quest.Choice{{JumpID: 10, Text: "left"}, {JumpID: 11, Text: "right"}},
		GameState:  quest.GameRunning,
	}
}

func TestReset_BuildsChoiceMap(t *testing.T) {
	t.Parallel()
	e := New(&fakeBridge{states: []quest.State{twoChoiceState()}})

	obs, err := e.Reset(context.Background(), "quest.qm", "en")
	if err != nil {
		t.Fatalf("Reset() error = %v", err)
	}
	if len(obs.ChoicesRendered) != 2 || obs.ChoicesRendered[0] != "left" {
		t.Fatalf("ChoicesRendered = %v", obs.ChoicesRendered)
	}
	if obs.ChoiceMap[1] != 10 || obs.ChoiceMap[2] != 11 {
		t.Fatalf("ChoiceMap = %v, want 1->10 2->11", obs.ChoiceMap)
	}
}

func TestStep_InvalidActionDoesNotConsumeBridgeStep(t *testing.T) {
	t.Parallel()
	bridge := &fakeBridge{states: []quest.State{twoChoiceState()}}
	e := New(bridge)
	if _, err := e.Reset(context.Background(), "quest.qm", "en"); err != nil {
		t.Fatalf("Reset() error = %v", err)
	}

	for _, action := range []int{0, 3, -1} {
		_, _, _, _, err := e.Step(context.Background(), action)
		var invalid *InvalidAction
		if !errors.As(err, &invalid) {
			t.Fatalf("Step(%d) error = %v, want *InvalidAction", action, err)
		}
	}
	if bridge.stepCalls != 0 {
		t.Fatalf("bridge.stepCalls = %d, want 0 (invalid actions must not reach the bridge)", bridge.stepCalls)
	}
}

func TestStep_WinRewardsOne(t *testing.T) {
	t.Parallel()
	bridge := &fakeBridge{states: []quest.State{
		twoChoiceState(),
		{LocationID: "loc1", GameState: quest.GameWin},
	}}
	e := New(bridge)
	if _, err := e.Reset(context.Background(), "quest.qm", "en"); err != nil {
		t.Fatalf("Reset() error = %v", err)
	}

	obs, reward, done, info, err := e.Step(context.Background(), 1)
	if err != nil {
		t.Fatalf("Step() error = %v", err)
	}
	if reward != 1.0 {
		t.Errorf("reward = %v, want 1.0 on win", reward)
	}
	if !done {
		t.Error("done = false, want true on terminal state")
	}
	if info != string(quest.GameWin) {
		t.Errorf("info = %q, want %q", info, quest.GameWin)
	}
	if len(obs.ChoicesRendered) != 0 {
		t.Errorf("terminal observation should carry no choices, got %v", obs.ChoicesRendered)
	}
}

func TestStep_IntermediateRewardsZero(t *testing.T) {
	t.Parallel()
	bridge := &fakeBridge{states: []quest.State{
		twoChoiceState(),
		{
			LocationID: "loc1",
			Text:       "B",
			Choices:    []quest.Choice{{JumpID: 20, Text: "on"}},
			GameState:  quest.GameRunning,
		},
	}}
	e := New(bridge)
	if _, err := e.Reset(context.Background(), "quest.qm", "en"); err != nil {
		t.Fatalf("Reset() error = %v", err)
	}

	_, reward, done, _, err := e.Step(context.Background(), 2)
	if err != nil {
		t.Fatalf("Step() error = %v", err)
	}
	if reward != 0.0 || done {
		t.Errorf("intermediate step: reward=%v done=%v, want 0.0/false", reward, done)
	}
}

func TestStep_FailIsTerminalWithZeroReward(t *testing.T) {
	t.Parallel()
	bridge := &fakeBridge{states: []quest.State{
		twoChoiceState(),
		{LocationID: "loc1", GameState: quest.GameDead},
	}}
	e := New(bridge)
	if _, err := e.Reset(context.Background(), "quest.qm", "en"); err != nil {
		t.Fatalf("Reset() error = %v", err)
	}

	_, reward, done, _, err := e.Step(context.Background(), 1)
	if err != nil {
		t.Fatalf("Step() error = %v", err)
	}
	if reward != 0.0 || !done {
		t.Errorf("dead step: reward=%v done=%v, want 0.0/true", reward, done)
	}
}
