package bridge

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/felixgeelhaar/questbench/domain/quest"
)

// fakeInterpreter returns a shell command that, given a starting state
// line and zero or more noise lines interleaved, behaves like a quest
// interpreter: each stdin line (a jump_id or "get_state") causes it to
// echo the next scripted JSON line.
func fakeInterpreter(t *testing.T, script string) []string {
	t.Helper()
	return []string{"sh", "-c", script}
}

func TestBridge_StartAndStep(t *testing.T) {
	t.Parallel()

	script := `
echo '{"state":{"text":"A","choices":[{"jumpId":10,"text":"x"},{"jumpId":11,"text":"y"}],"paramsState":[],"gameState":"running"},"saving":{"locationId":"loc1"}}'
read _
echo '{"state":{"text":"B","choices":[],"paramsState":[],"gameState":"win"},"saving":{"locationId":"loc2"}}'
`
	b := New(fakeInterpreter(t, script), WithReadBudget(3*time.Second))
	ctx := context.Background()

	st, err := b.Start(ctx, "quest.qm", "en")
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if st.GameState != quest.GameRunning || len(st.Choices) != 2 {
		t.Fatalf("unexpected initial state: %+v", st)
	}

	st2, err := b.Step(ctx, 10)
	if err != nil {
		t.Fatalf("Step: %v", err)
	}
	if st2.GameState != quest.GameWin {
		t.Fatalf("expected win, got %v", st2.GameState)
	}

	if err := b.Close(ctx); err != nil {
		t.Fatalf("Close: %v", err)
	}
}

func TestBridge_NoiseTolerance(t *testing.T) {
	t.Parallel()

	script := `
echo '[autojump] diagnostic ignore me'
echo '{"state":{"text":"A","choices":[{"jumpId":1,"text":"x"}],"paramsState":[],"gameState":"running"},"saving":{"locationId":"loc1"}}'
read _
echo '[autojump] more noise'
echo '{"state":{"text":"B","choices":[],"paramsState":[],"gameState":"win"},"saving":{"locationId":"loc2"}}'
`
	b := New(fakeInterpreter(t, script), WithReadBudget(3*time.Second))
	ctx := context.Background()

	st, err := b.Start(ctx, "quest.qm", "en")
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if st.LocationID != "loc1" {
		t.Fatalf("unexpected state after noise lines: %+v", st)
	}

	st2, err := b.Step(ctx, 1)
	if err != nil {
		t.Fatalf("Step: %v", err)
	}
	if st2.LocationID != "loc2" || st2.GameState != quest.GameWin {
		t.Fatalf("unexpected state after interleaved noise on step: %+v", st2)
	}
}

func TestBridge_GetStateIdempotent(t *testing.T) {
	t.Parallel()

	state := `{"state":{"text":"A","choices":[{"jumpId":1,"text":"x"}],"paramsState":["HP: 10"],"gameState":"running"},"saving":{"locationId":"loc1"}}`
	script := "echo '" + state + "'\nread _\necho '" + state + "'\nread _\necho '" + state + "'\n"
	b := New(fakeInterpreter(t, script), WithReadBudget(3*time.Second))
	ctx := context.Background()

	if _, err := b.Start(ctx, "quest.qm", "en"); err != nil {
		t.Fatalf("Start: %v", err)
	}
	st1, err := b.GetState(ctx)
	if err != nil {
		t.Fatalf("GetState #1: %v", err)
	}
	st2, err := b.GetState(ctx)
	if err != nil {
		t.Fatalf("GetState #2: %v", err)
	}
	if !reflect.DeepEqual(st1, st2) {
		t.Fatalf("GetState not idempotent: %+v vs %+v", st1, st2)
	}
}

func TestBridge_TimeoutWhenNoMatchingLine(t *testing.T) {
	t.Parallel()

	script := `sleep 5`
	b := New(fakeInterpreter(t, script), WithReadBudget(200*time.Millisecond))
	ctx := context.Background()

	_, err := b.Start(ctx, "quest.qm", "en")
	if err == nil {
		t.Fatalf("expected startup error")
	}
	var startupErr *StartupError
	if !errors.As(err, &startupErr) {
		t.Fatalf("expected *StartupError, got %T: %v", err, err)
	}
	var timeoutErr *TimeoutError
	if !errors.As(startupErr.Err, &timeoutErr) {
		t.Fatalf("expected underlying *TimeoutError, got %T: %v", startupErr.Err, startupErr.Err)
	}
}

func TestBridge_StartupErrorOnBadCommand(t *testing.T) {
	t.Parallel()

	b := New([]string{"/no/such/interpreter-binary"})
	_, err := b.Start(context.Background(), "quest.qm", "en")
	if err == nil {
		t.Fatalf("expected an error for a missing interpreter binary")
	}
	if !strings.Contains(err.Error(), "bridge startup error") {
		t.Fatalf("expected a startup error, got: %v", err)
	}
}

