package bridge

import "errors"

// Sentinel errors the typed failures below wrap, so callers can branch
// with errors.Is without parsing message text.
var (
	errStartup  = errors.New("bridge startup failed")
	errTimeout  = errors.New("bridge read timed out")
	errProtocol = errors.New("bridge protocol violation")
	errCrashed  = errors.New("bridge subprocess crashed")
)

// StartupError means the subprocess could not be reached or its initial
// reply did not parse. Must be surfaced, never masked.
type StartupError struct {
	Stderr string
	Err    error
}

func (e *StartupError) Error() string {
	msg := "bridge startup error: " + e.Err.Error()
	if e.Stderr != "" {
		msg += " (stderr: " + e.Stderr + ")"
	}
	return msg
}
func (e *StartupError) Unwrap() error { return errStartup }

// TimeoutError means no schema-matching line arrived within the read
// budget.
type TimeoutError struct {
	Diagnostics []string // non-JSON lines buffered while waiting
}

func (e *TimeoutError) Error() string { return "bridge read timeout" }
func (e *TimeoutError) Unwrap() error { return errTimeout }

// ProtocolError means a line parsed as JSON but failed schema validation.
type ProtocolError struct {
	Line string
	Err  error
}

func (e *ProtocolError) Error() string { return "bridge protocol error: " + e.Err.Error() }
func (e *ProtocolError) Unwrap() error { return errProtocol }

// CrashedError means the subprocess exited while the bridge was waiting
// for a response.
type CrashedError struct {
	Err error
}

func (e *CrashedError) Error() string { return "bridge subprocess crashed: " + e.Err.Error() }
func (e *CrashedError) Unwrap() error { return errCrashed }
