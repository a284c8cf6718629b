package logging

import (
	"time"

	"github.com/felixgeelhaar/bolt/v3"
)

// Field applies one piece of structured data to a log event.
type Field func(*bolt.Event) *bolt.Event

// RunID adds the run identifier.
func RunID(id string) Field {
	return func(e *bolt.Event) *bolt.Event { return e.Str("run_id", id) }
}

// BenchmarkID adds the benchmark identifier.
func BenchmarkID(id string) Field {
	return func(e *bolt.Event) *bolt.Event { return e.Str("benchmark_id", id) }
}

// QuestSlug adds the quest's slug (derived from its file path).
func QuestSlug(slug string) Field {
	return func(e *bolt.Event) *bolt.Event { return e.Str("quest", slug) }
}

// AgentID adds the agent configuration identifier.
func AgentID(id string) Field {
	return func(e *bolt.Event) *bolt.Event { return e.Str("agent_id", id) }
}

// StepNumber adds the 1-based step number.
func StepNumber(n int) Field {
	return func(e *bolt.Event) *bolt.Event { return e.Int("step", n) }
}

// Outcome adds a run outcome string (SUCCESS/FAILURE/TIMEOUT/ERROR).
func Outcome(o string) Field {
	return func(e *bolt.Event) *bolt.Event { return e.Str("outcome", o) }
}

// Provider adds the LLM provider name.
func Provider(name string) Field {
	return func(e *bolt.Event) *bolt.Event { return e.Str("provider", name) }
}

// Model adds the model identifier.
func Model(model string) Field {
	return func(e *bolt.Event) *bolt.Event { return e.Str("model", model) }
}

// Cost adds the accumulated cost in USD.
func Cost(usd float64) Field {
	return func(e *bolt.Event) *bolt.Event { return e.Float64("cost_usd", usd) }
}

// Attempt adds a retry attempt number.
func Attempt(n int) Field {
	return func(e *bolt.Event) *bolt.Event { return e.Int("attempt", n) }
}

// Duration adds a duration field in milliseconds.
func Duration(d time.Duration) Field {
	return func(e *bolt.Event) *bolt.Event { return e.Int64("duration_ms", d.Milliseconds()) }
}

// ErrorField adds an error, a no-op when err is nil so call sites can
// always chain it.
func ErrorField(err error) Field {
	return func(e *bolt.Event) *bolt.Event {
		if err == nil {
			return e
		}
		return e.Err(err)
	}
}

// Reason adds a free-text reason field.
func Reason(reason string) Field {
	return func(e *bolt.Event) *bolt.Event { return e.Str("reason", reason) }
}

// Component adds a component name for categorization.
func Component(name string) Field {
	return func(e *bolt.Event) *bolt.Event { return e.Str("component", name) }
}

// Str adds a string field with a caller-supplied key.
func Str(key, value string) Field {
	return func(e *bolt.Event) *bolt.Event { return e.Str(key, value) }
}

// Int adds an int field with a caller-supplied key.
func Int(key string, value int) Field {
	return func(e *bolt.Event) *bolt.Event { return e.Int(key, value) }
}
