package statemachine

import (
	"github.com/felixgeelhaar/statekit"
)

// guardCanContinue reports whether the Run Loop chart may step again:
// it refuses once the run has been marked cancelled by the
// orchestrator.
func guardCanContinue(ctx *Context, _ statekit.Event) bool {
	if ctx == nil {
		return false
	}
	return !ctx.Cancelled
}
