package statemachine

import (
	"github.com/felixgeelhaar/statekit"
)

// Interpreter wraps the statekit interpreter driving one run's macro
// lifecycle chart. application/runloop sends it STEP/TERMINAL/TIMEOUT/FAIL
// events as the run progresses; it owns no quest or agent state itself.
type Interpreter struct {
	interp *statekit.Interpreter[*Context]
	ctx    *Context
}

// NewInterpreter creates an interpreter bound to ctx for one run.
func NewInterpreter(machine *statekit.MachineConfig[*Context], ctx *Context) *Interpreter {
	interp := statekit.NewInterpreter(machine)
	interp.UpdateContext(func(c **Context) {
		*c = ctx
	})
	return &Interpreter{interp: interp, ctx: ctx}
}

// Start enters the initial state.
func (i *Interpreter) Start() {
	i.interp.Start()
}

// Stop halts the interpreter.
func (i *Interpreter) Stop() {
	i.interp.Stop()
}

// State returns the current macro-state ID.
func (i *Interpreter) State() statekit.StateID {
	return i.interp.State().Value
}

// Send delivers one event to the chart, e.g. on a completed step,
// terminal quest state, timeout, or unrecoverable error.
func (i *Interpreter) Send(eventType statekit.EventType) {
	i.interp.Send(statekit.Event{Type: eventType})
}

// Done reports whether the chart has reached a final state.
func (i *Interpreter) Done() bool {
	return i.interp.Done()
}

// Matches reports whether the current state equals stateID.
func (i *Interpreter) Matches(stateID statekit.StateID) bool {
	return i.interp.Matches(stateID)
}

// Context returns the bound run context.
func (i *Interpreter) Context() *Context {
	return i.ctx
}
