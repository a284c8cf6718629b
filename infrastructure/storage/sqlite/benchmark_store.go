package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/felixgeelhaar/questbench/domain/benchmark"
)

// BenchmarkStore is a SQLite-backed benchmark.Store.
type BenchmarkStore struct {
	db *sql.DB
}

// NewBenchmarkStore wraps db. The caller owns the connection's lifecycle.
func NewBenchmarkStore(db *sql.DB) *BenchmarkStore {
	return &BenchmarkStore{db: db}
}

// Create persists a new benchmark with the status rec carries.
func (s *BenchmarkStore) Create(ctx context.Context, rec *benchmark.Record) error {
	counters, err := json.Marshal(rec.Counters)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO benchmarks (benchmark_id, config_json, status, counters_json)
		VALUES (?, ?, ?, ?)`,
		rec.BenchmarkID, string(rec.ConfigJSON), string(rec.Status), string(counters))
	return err
}

// Get retrieves a benchmark by ID.
func (s *BenchmarkStore) Get(ctx context.Context, benchmarkID string) (*benchmark.Record, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT benchmark_id, config_json, status, counters_json, summary_json
		FROM benchmarks WHERE benchmark_id = ?`, benchmarkID)

	var (
		rec        benchmark.Record
		configJSON string
		status     string
		counters   string
		summary    sql.NullString
	)
	if err := row.Scan(&rec.BenchmarkID, &configJSON, &status, &counters, &summary); err != nil {
		if err == sql.ErrNoRows {
			return nil, benchmark.ErrBenchmarkNotFound
		}
		return nil, err
	}
	rec.ConfigJSON = json.RawMessage(configJSON)
	rec.Status = benchmark.Status(status)
	if err := json.Unmarshal([]byte(counters), &rec.Counters); err != nil {
		return nil, err
	}
	if summary.Valid {
		rec.SummaryJSON = json.RawMessage(summary.String)
	}
	return &rec, nil
}

// UpdateCounters overwrites the live progress counters.
func (s *BenchmarkStore) UpdateCounters(ctx context.Context, benchmarkID string, status benchmark.Status, counters benchmark.Counters) error {
	raw, err := json.Marshal(counters)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		UPDATE benchmarks SET status = ?, counters_json = ? WHERE benchmark_id = ?`,
		string(status), string(raw), benchmarkID)
	return err
}

// Complete marks a benchmark finished and attaches its summary.
func (s *BenchmarkStore) Complete(ctx context.Context, benchmarkID string, status benchmark.Status, summary benchmark.Summary) error {
	raw, err := json.Marshal(summary)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		UPDATE benchmarks SET status = ?, summary_json = ? WHERE benchmark_id = ?`,
		string(status), string(raw), benchmarkID)
	return err
}

var _ benchmark.Store = (*BenchmarkStore)(nil)
