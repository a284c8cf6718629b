package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/felixgeelhaar/questbench/domain/event"
)

// EventStore is a SQLite-backed event.Store.
type EventStore struct {
	db *sql.DB
}

// NewEventStore wraps db. The caller owns the connection's lifecycle.
func NewEventStore(db *sql.DB) *EventStore {
	return &EventStore{db: db}
}

// Append persists events in order, within one transaction.
func (s *EventStore) Append(ctx context.Context, events ...event.Event) error {
	if len(events) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO run_events (run_id, sequence, type, timestamp, payload_json)
		VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, e := range events {
		if _, err := stmt.ExecContext(ctx, e.RunID, e.Sequence, string(e.Type), e.Timestamp.UTC().Format(time.RFC3339Nano), string(e.Payload)); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// LoadEvents retrieves all events for a run in sequence order.
func (s *EventStore) LoadEvents(ctx context.Context, runID string) ([]event.Event, error) {
	return s.LoadEventsFrom(ctx, runID, 0)
}

// LoadEventsFrom retrieves events with sequence >= fromSeq, for the
// poll-based observer channel.
func (s *EventStore) LoadEventsFrom(ctx context.Context, runID string, fromSeq uint64) ([]event.Event, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, sequence, type, timestamp, payload_json
		FROM run_events WHERE run_id = ? AND sequence >= ? ORDER BY sequence ASC`, runID, fromSeq)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []event.Event
	for rows.Next() {
		var (
			e         event.Event
			typ       string
			timestamp string
			payload   string
		)
		if err := rows.Scan(&e.RunID, &e.Sequence, &typ, &timestamp, &payload); err != nil {
			return nil, err
		}
		e.Type = event.Type(typ)
		t, err := time.Parse(time.RFC3339Nano, timestamp)
		if err != nil {
			return nil, err
		}
		e.Timestamp = t
		e.Payload = json.RawMessage(payload)
		out = append(out, e)
	}
	return out, rows.Err()
}

var _ event.Store = (*EventStore)(nil)
