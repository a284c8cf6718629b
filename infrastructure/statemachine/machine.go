// Package statemachine provides the statekit integration for the Run
// Loop's macro-state chart: Init → Stepping →
// (Terminal | TimedOut | Failed). application/runloop drives the actual
// step-by-step iteration; this package only tracks and logs the coarse
// lifecycle transitions.
package statemachine

import (
	"github.com/felixgeelhaar/statekit"
)

// Context carries the run identity through the state machine. It is
// deliberately thin: the heavy state (environment, agent memory, step
// records) lives in application/runloop, not here.
type Context struct {
	RunID     string
	StepCount int
	Cancelled bool
}

// NewContext creates a machine context for one run.
func NewContext(runID string) *Context {
	return &Context{RunID: runID}
}

// State IDs for the Run Loop chart.
const (
	StateInit     statekit.StateID = "init"
	StateStepping statekit.StateID = "stepping"
	StateTerminal statekit.StateID = "terminal"
	StateTimedOut statekit.StateID = "timed_out"
	StateFailed   statekit.StateID = "failed"
)

// Event types sent into the machine.
const (
	EventStep     statekit.EventType = "STEP"
	EventTerminal statekit.EventType = "TERMINAL"
	EventTimeout  statekit.EventType = "TIMEOUT"
	EventFail     statekit.EventType = "FAIL"
)

// NewRunMachine builds the canonical Run Loop statechart.
func NewRunMachine() (*statekit.MachineConfig[*Context], error) {
	return statekit.NewMachine[*Context]("run").
		WithInitial(StateInit).
		WithContext(&Context{}).
		WithAction("logEntry", logStateEntry).
		WithGuard("canContinue", guardCanContinue).
		State(StateInit).
		OnEntry("logEntry").
		On(EventStep).Target(StateStepping).Guard("canContinue").
		On(EventFail).Target(StateFailed).
		Done().
		State(StateStepping).
		OnEntry("logEntry").
		On(EventStep).Target(StateStepping).Guard("canContinue").
		On(EventTerminal).Target(StateTerminal).
		On(EventTimeout).Target(StateTimedOut).
		On(EventFail).Target(StateFailed).
		Done().
		State(StateTerminal).
		Final().
		OnEntry("logEntry").
		Done().
		State(StateTimedOut).
		Final().
		OnEntry("logEntry").
		Done().
		State(StateFailed).
		Final().
		OnEntry("logEntry").
		Done().
		Build()
}
