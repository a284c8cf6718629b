package event

import "context"

// Store persists and replays run events.
type Store interface {
	// Append persists one or more events in order, with the sequence
	// numbers the caller assigned to them.
	Append(ctx context.Context, events ...Event) error

	// LoadEvents retrieves all events for a run in sequence order.
	LoadEvents(ctx context.Context, runID string) ([]Event, error)

	// LoadEventsFrom retrieves events from a sequence number onward, for
	// the poll-based observer channel.
	LoadEventsFrom(ctx context.Context, runID string, fromSeq uint64) ([]Event, error)
}
