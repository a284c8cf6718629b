// Package event defines the run observer timeline: an append-only,
// monotonically sequenced stream of {step, timeout, outcome, error}
// events, distinct from the semantic Step trace.
package event

import (
	"encoding/json"
	"time"
)

// Type classifies a RunEvent.
type Type string

const (
	TypeStep    Type = "step"
	TypeTimeout Type = "timeout"
	TypeOutcome Type = "outcome"
	TypeError   Type = "error"
)

// Event is one entry in a run's observer timeline.
type Event struct {
	RunID     string          `json:"run_id"`
	Type      Type            `json:"type"`
	Sequence  uint64          `json:"sequence"`
	Timestamp time.Time       `json:"timestamp"`
	Payload   json.RawMessage `json:"payload"`
}

// StepPayload accompanies TypeStep.
type StepPayload struct {
	StepNumber int    `json:"step_number"`
	LocationID string `json:"location_id"`
	Action     *int   `json:"action,omitempty"`
}

// TimeoutPayload accompanies TypeTimeout.
type TimeoutPayload struct {
	StepNumber int           `json:"step_number"`
	Elapsed    time.Duration `json:"elapsed"`
}

// OutcomePayload accompanies TypeOutcome.
type OutcomePayload struct {
	Outcome string  `json:"outcome"`
	Reward  float64 `json:"reward"`
}

// ErrorPayload accompanies TypeError.
type ErrorPayload struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// New builds an Event with a marshalled payload.
func New(runID string, typ Type, seq uint64, payload any) (Event, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Event{}, err
	}
	return Event{
		RunID:     runID,
		Type:      typ,
		Sequence:  seq,
		Timestamp: time.Now(),
		Payload:   raw,
	}, nil
}
