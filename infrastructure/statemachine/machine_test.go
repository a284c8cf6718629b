package statemachine

import (
	"testing"
)

func TestNewContext(t *testing.T) {
	t.Parallel()

	ctx := NewContext("test-run")
	if ctx == nil {
		t.Fatal("NewContext() returned nil")
	}
	if ctx.RunID != "test-run" {
		t.Errorf("RunID = %q, want %q", ctx.RunID, "test-run")
	}
	if ctx.Cancelled {
		t.Error("Cancelled should default to false")
	}
}

func TestNewRunMachine(t *testing.T) {
	t.Parallel()

	machine, err := NewRunMachine()
	if err != nil {
		t.Fatalf("NewRunMachine() error = %v", err)
	}
	if machine == nil {
		t.Fatal("NewRunMachine() returned nil machine")
	}
}

func TestInterpreter_HappyPath(t *testing.T) {
	t.Parallel()

	machine, err := NewRunMachine()
	if err != nil {
		t.Fatalf("NewRunMachine() error = %v", err)
	}

	ctx := NewContext("run-1")
	interp := NewInterpreter(machine, ctx)
	interp.Start()

	if interp.State() != StateInit {
		t.Fatalf("initial state = %s, want %s", interp.State(), StateInit)
	}

	interp.Send(EventStep)
	if interp.State() != StateStepping {
		t.Fatalf("state after STEP = %s, want %s", interp.State(), StateStepping)
	}

	interp.Send(EventStep)
	if interp.State() != StateStepping {
		t.Fatalf("state after second STEP = %s, want %s", interp.State(), StateStepping)
	}

	interp.Send(EventTerminal)
	if interp.State() != StateTerminal {
		t.Fatalf("state after TERMINAL = %s, want %s", interp.State(), StateTerminal)
	}
	if !interp.Done() {
		t.Error("Done() should be true in a final state")
	}
}

func TestInterpreter_Timeout(t *testing.T) {
	t.Parallel()

	machine, err := NewRunMachine()
	if err != nil {
		t.Fatalf("NewRunMachine() error = %v", err)
	}

	ctx := NewContext("run-2")
	interp := NewInterpreter(machine, ctx)
	interp.Start()

	interp.Send(EventStep)
	interp.Send(EventTimeout)
	if interp.State() != StateTimedOut {
		t.Fatalf("state after TIMEOUT = %s, want %s", interp.State(), StateTimedOut)
	}
	if !interp.Done() {
		t.Error("Done() should be true in a final state")
	}
}

func TestInterpreter_Fail(t *testing.T) {
	t.Parallel()

	machine, err := NewRunMachine()
	if err != nil {
		t.Fatalf("NewRunMachine() error = %v", err)
	}

	ctx := NewContext("run-3")
	interp := NewInterpreter(machine, ctx)
	interp.Start()

	interp.Send(EventFail)
	if interp.State() != StateFailed {
		t.Fatalf("state after FAIL from init = %s, want %s", interp.State(), StateFailed)
	}
}

func TestInterpreter_CancelledGuardBlocksStep(t *testing.T) {
	t.Parallel()

	machine, err := NewRunMachine()
	if err != nil {
		t.Fatalf("NewRunMachine() error = %v", err)
	}

	ctx := NewContext("run-4")
	ctx.Cancelled = true
	interp := NewInterpreter(machine, ctx)
	interp.Start()

	interp.Send(EventStep)
	if interp.State() != StateInit {
		t.Fatalf("cancelled context should block STEP, state = %s", interp.State())
	}
}

func TestInterpreter_Matches(t *testing.T) {
	t.Parallel()

	machine, err := NewRunMachine()
	if err != nil {
		t.Fatalf("NewRunMachine() error = %v", err)
	}

	ctx := NewContext("run-5")
	interp := NewInterpreter(machine, ctx)
	interp.Start()

	if !interp.Matches(StateInit) {
		t.Error("Matches(StateInit) should be true right after Start")
	}
	if interp.Matches(StateStepping) {
		t.Error("Matches(StateStepping) should be false right after Start")
	}
}
