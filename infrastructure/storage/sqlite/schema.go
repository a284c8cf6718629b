// Package sqlite implements persistence: SQLite-backed
// runs/steps/run_events/benchmarks tables, with a guarded UPDATE giving
// first-write-wins outcome commit semantics.
package sqlite

import (
	"context"
	"database/sql"

	_ "github.com/mattn/go-sqlite3"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	run_id             TEXT PRIMARY KEY,
	quest_name         TEXT NOT NULL,
	agent_id           TEXT NOT NULL,
	agent_config_json  TEXT NOT NULL,
	start_time         TEXT NOT NULL,
	end_time           TEXT,
	outcome            TEXT,
	reward             REAL,
	end_reason         TEXT,
	benchmark_id       TEXT
);

CREATE INDEX IF NOT EXISTS idx_runs_benchmark ON runs(benchmark_id);
CREATE INDEX IF NOT EXISTS idx_runs_agent ON runs(agent_id);
CREATE INDEX IF NOT EXISTS idx_runs_quest ON runs(quest_name);

CREATE TABLE IF NOT EXISTS steps (
	run_id             TEXT NOT NULL,
	step_number        INTEGER NOT NULL,
	location_id        TEXT NOT NULL,
	observation        TEXT NOT NULL,
	choices_json        TEXT NOT NULL,
	action             INTEGER,
	reward             REAL NOT NULL,
	decision_json      TEXT,
	metadata_json      TEXT,
	prompt_tokens      INTEGER NOT NULL DEFAULT 0,
	completion_tokens  INTEGER NOT NULL DEFAULT 0,
	total_tokens       INTEGER NOT NULL DEFAULT 0,
	cost_usd           REAL NOT NULL DEFAULT 0,
	PRIMARY KEY (run_id, step_number)
);

CREATE TABLE IF NOT EXISTS run_events (
	run_id       TEXT NOT NULL,
	sequence     INTEGER NOT NULL,
	type         TEXT NOT NULL,
	timestamp    TEXT NOT NULL,
	payload_json TEXT NOT NULL,
	PRIMARY KEY (run_id, sequence)
);

CREATE TABLE IF NOT EXISTS benchmarks (
	benchmark_id  TEXT PRIMARY KEY,
	config_json   TEXT NOT NULL,
	status        TEXT NOT NULL,
	counters_json TEXT NOT NULL,
	summary_json  TEXT
);
`

// Open creates (or attaches to) a SQLite database at path and applies
// the schema.
func Open(ctx context.Context, path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1) // serialize writers; SQLite's own locking plus this avoids SQLITE_BUSY storms
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}
