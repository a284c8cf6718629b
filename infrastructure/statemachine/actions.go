package statemachine

import (
	"github.com/felixgeelhaar/statekit"

	"github.com/felixgeelhaar/questbench/infrastructure/logging"
)

// logStateEntry logs every macro-state transition the Run Loop's chart
// makes. In statekit, actions receive a pointer to the context; ours is
// *Context, so actions receive **Context.
func logStateEntry(ctx **Context, event statekit.Event) {
	if ctx == nil || *ctx == nil {
		return
	}
	c := *ctx
	logging.Debug().
		Add(logging.RunID(c.RunID)).
		Add(logging.Str("event", string(event.Type))).
		Add(logging.StepNumber(c.StepCount)).
		Msg("run state transition")
}
