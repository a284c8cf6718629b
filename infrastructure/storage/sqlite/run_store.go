package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/felixgeelhaar/questbench/domain/run"
)

// RunStore is a SQLite-backed run.Store.
type RunStore struct {
	db *sql.DB
}

// NewRunStore wraps db. The caller owns the connection's lifecycle.
func NewRunStore(db *sql.DB) *RunStore {
	return &RunStore{db: db}
}

// Create persists a new run in the running state (outcome NULL).
func (s *RunStore) Create(ctx context.Context, rec *run.Record) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs (run_id, quest_name, agent_id, agent_config_json, start_time, benchmark_id)
		VALUES (?, ?, ?, ?, ?, ?)`,
		rec.RunID, rec.QuestName, rec.AgentID, string(rec.AgentConfigJSON), rec.StartTime.UTC().Format(time.RFC3339Nano), rec.BenchmarkID)
	if err != nil {
		if isUniqueViolation(err) {
			return run.ErrRunExists
		}
		return err
	}
	return nil
}

// Get retrieves a run by ID.
func (s *RunStore) Get(ctx context.Context, runID string) (*run.Record, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT run_id, quest_name, agent_id, agent_config_json, start_time, end_time, outcome, reward, end_reason, benchmark_id
		FROM runs WHERE run_id = ?`, runID)
	rec, err := scanRunRow(row)
	if err == sql.ErrNoRows {
		return nil, run.ErrRunNotFound
	}
	return rec, err
}

// AppendStep persists one step row.
func (s *RunStore) AppendStep(ctx context.Context, step run.Step) error {
	choicesJSON, err := json.Marshal(step.Choices)
	if err != nil {
		return fmt.Errorf("marshal choices: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO steps (run_id, step_number, location_id, observation, choices_json, action, reward,
			decision_json, metadata_json, prompt_tokens, completion_tokens, total_tokens, cost_usd)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		step.RunID, step.StepNumber, step.LocationID, step.Observation, string(choicesJSON), nullableInt(step.Action), step.Reward,
		nullableRaw(step.Decision), nullableRaw(step.Metadata),
		step.Usage.PromptTokens, step.Usage.CompletionTokens, step.Usage.TotalTokens, step.Usage.CostUSD)
	return err
}

// Steps returns all steps for a run in step_number order.
func (s *RunStore) Steps(ctx context.Context, runID string) ([]run.Step, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, step_number, location_id, observation, choices_json, action, reward,
			decision_json, metadata_json, prompt_tokens, completion_tokens, total_tokens, cost_usd
		FROM steps WHERE run_id = ? ORDER BY step_number ASC`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []run.Step
	for rows.Next() {
		var (
			st          run.Step
			choicesJSON string
			action      sql.NullInt64
			decision    sql.NullString
			metadata    sql.NullString
		)
		if err := rows.Scan(&st.RunID, &st.StepNumber, &st.LocationID, &st.Observation, &choicesJSON, &action, &st.Reward,
			&decision, &metadata, &st.Usage.PromptTokens, &st.Usage.CompletionTokens, &st.Usage.TotalTokens, &st.Usage.CostUSD); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(choicesJSON), &st.Choices); err != nil {
			return nil, fmt.Errorf("unmarshal choices: %w", err)
		}
		if action.Valid {
			a := int(action.Int64)
			st.Action = &a
		}
		if decision.Valid {
			st.Decision = json.RawMessage(decision.String)
		}
		if metadata.Valid {
			st.Metadata = json.RawMessage(metadata.String)
		}
		out = append(out, st)
	}
	return out, rows.Err()
}

// CommitOutcome implements the first-write-wins guarded update: the
// WHERE outcome IS NULL clause makes the commit atomic at the
// persistence layer, not merely via in-process coordination.
func (s *RunStore) CommitOutcome(ctx context.Context, runID string, outcome run.Outcome, endTime time.Time, reward float64, endReason run.EndReason) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE runs SET outcome = ?, end_time = ?, reward = ?, end_reason = ?
		WHERE run_id = ? AND outcome IS NULL`,
		string(outcome), endTime.UTC().Format(time.RFC3339Nano), reward, string(endReason), runID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// List returns runs matching filter.
func (s *RunStore) List(ctx context.Context, filter run.ListFilter) ([]*run.Record, error) {
	var (
		where []string
		args  []any
	)
	if filter.BenchmarkID != "" {
		where = append(where, "benchmark_id = ?")
		args = append(args, filter.BenchmarkID)
	}
	if filter.AgentID != "" {
		where = append(where, "agent_id = ?")
		args = append(args, filter.AgentID)
	}
	if filter.QuestName != "" {
		where = append(where, "quest_name = ?")
		args = append(args, filter.QuestName)
	}
	if len(filter.Outcomes) > 0 {
		placeholders := make([]string, len(filter.Outcomes))
		for i, o := range filter.Outcomes {
			placeholders[i] = "?"
			args = append(args, string(o))
		}
		where = append(where, "outcome IN ("+strings.Join(placeholders, ",")+")")
	}

	query := `SELECT run_id, quest_name, agent_id, agent_config_json, start_time, end_time, outcome, reward, end_reason, benchmark_id FROM runs`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY start_time ASC"
	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
		if filter.Offset > 0 {
			query += fmt.Sprintf(" OFFSET %d", filter.Offset)
		}
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*run.Record
	for rows.Next() {
		rec, err := scanRunRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanRunRow(rows rowScanner) (*run.Record, error) {
	var (
		rec                         run.Record
		agentConfigJSON             string
		startTime                   string
		endTime, outcome, endReason sql.NullString
		rewardF                     sql.NullFloat64
	)
	if err := rows.Scan(&rec.RunID, &rec.QuestName, &rec.AgentID, &agentConfigJSON, &startTime, &endTime, &outcome, &rewardF, &endReason, &rec.BenchmarkID); err != nil {
		return nil, err
	}
	rec.AgentConfigJSON = json.RawMessage(agentConfigJSON)
	st, err := time.Parse(time.RFC3339Nano, startTime)
	if err != nil {
		return nil, fmt.Errorf("parse start_time: %w", err)
	}
	rec.StartTime = st
	if endTime.Valid {
		t, err := time.Parse(time.RFC3339Nano, endTime.String)
		if err != nil {
			return nil, fmt.Errorf("parse end_time: %w", err)
		}
		rec.EndTime = &t
	}
	if outcome.Valid {
		o := run.Outcome(outcome.String)
		rec.Outcome = &o
	}
	if rewardF.Valid {
		r := rewardF.Float64
		rec.Reward = &r
	}
	if endReason.Valid {
		rec.EndReason = run.EndReason(endReason.String)
	}
	return &rec, nil
}

func nullableInt(p *int) any {
	if p == nil {
		return nil
	}
	return *p
}

func nullableRaw(raw json.RawMessage) any {
	if len(raw) == 0 {
		return nil
	}
	return string(raw)
}

func isUniqueViolation(err error) bool {
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

var _ run.Store = (*RunStore)(nil)
