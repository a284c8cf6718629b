package benchmark

import "context"

// Store persists benchmark records.
type Store interface {
	// Create persists a new benchmark with the status rec carries.
	Create(ctx context.Context, rec *Record) error

	// Get retrieves a benchmark by ID.
	Get(ctx context.Context, benchmarkID string) (*Record, error)

	// UpdateCounters overwrites the live progress counters exposed to
	// observers by polling.
	UpdateCounters(ctx context.Context, benchmarkID string, status Status, counters Counters) error

	// Complete marks a benchmark finished and attaches its summary
	// artifact contents.
	Complete(ctx context.Context, benchmarkID string, status Status, summary Summary) error
}
