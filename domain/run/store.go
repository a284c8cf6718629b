package run

import (
	"context"
	"time"
)

// Store persists runs and their steps. Implementations must make
// CommitOutcome atomic and first-write-wins: once a run's
// outcome is non-null, subsequent CommitOutcome calls for the same run_id
// are no-ops.
type Store interface {
	// Create persists a new run in the running state (outcome nil).
	Create(ctx context.Context, rec *Record) error

	// Get retrieves a run by ID.
	Get(ctx context.Context, runID string) (*Record, error)

	// AppendStep persists one step. Callers are responsible for strictly
	// increasing step numbers; the store does not renumber.
	AppendStep(ctx context.Context, step Step) error

	// Steps returns all steps for a run in step_number order.
	Steps(ctx context.Context, runID string) ([]Step, error)

	// CommitOutcome attempts to set the run's outcome, end time, and
	// reward. Returns (committed=true) iff this call was the first writer;
	// a false return with nil error means another writer already won.
	CommitOutcome(ctx context.Context, runID string, outcome Outcome, endTime time.Time, reward float64, endReason EndReason) (committed bool, err error)

	// List returns runs matching the filter.
	List(ctx context.Context, filter ListFilter) ([]*Record, error)
}

// ListFilter narrows List results.
type ListFilter struct {
	BenchmarkID string
	AgentID     string
	QuestName   string
	Outcomes    []Outcome
	Limit       int
	Offset      int
}
