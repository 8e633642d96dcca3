package tracking

import (
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"neurosym/internal/logging"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	run_id     TEXT PRIMARY KEY,
	name       TEXT NOT NULL,
	started_at INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS params (
	run_id TEXT NOT NULL,
	key    TEXT NOT NULL,
	value  TEXT NOT NULL,
	PRIMARY KEY (run_id, key)
);
CREATE TABLE IF NOT EXISTS metrics (
	run_id      TEXT NOT NULL,
	key         TEXT NOT NULL,
	value       REAL NOT NULL,
	recorded_at INTEGER NOT NULL,
	PRIMARY KEY (run_id, key)
);
CREATE TABLE IF NOT EXISTS artifacts (
	run_id TEXT NOT NULL,
	name   TEXT NOT NULL,
	uri    TEXT NOT NULL,
	PRIMARY KEY (run_id, name)
);
`

// SQLiteSink persists runs to a local SQLite database.
type SQLiteSink struct {
	db *sql.DB
	mu sync.Mutex
}

// NewSQLiteSink opens (creating if needed) the tracking database at path.
func NewSQLiteSink(path string) (*SQLiteSink, error) {
	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("tracking: open %s: %w", path, err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("tracking: init schema: %w", err)
	}
	logging.Tracking("sqlite sink opened at %s", path)
	return &SQLiteSink{db: db}, nil
}

// StartRun implements Sink.
func (s *SQLiteSink) StartRun(runID, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.Exec(
		`INSERT INTO runs (run_id, name, started_at) VALUES (?, ?, ?)`,
		runID, name, time.Now().UnixMilli())
	if err != nil {
		return fmt.Errorf("tracking: start run %s: %w", runID, err)
	}
	return nil
}

// LogParams implements Sink.
func (s *SQLiteSink) LogParams(runID string, params map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("tracking: begin: %w", err)
	}
	defer tx.Rollback()

	for k, v := range params {
		if _, err := tx.Exec(
			`INSERT OR REPLACE INTO params (run_id, key, value) VALUES (?, ?, ?)`,
			runID, k, v); err != nil {
			return fmt.Errorf("tracking: log param %s: %w", k, err)
		}
	}
	return tx.Commit()
}

// LogMetrics implements Sink.
func (s *SQLiteSink) LogMetrics(runID string, metrics map[string]float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("tracking: begin: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UnixMilli()
	for k, v := range metrics {
		if _, err := tx.Exec(
			`INSERT OR REPLACE INTO metrics (run_id, key, value, recorded_at) VALUES (?, ?, ?, ?)`,
			runID, k, v, now); err != nil {
			return fmt.Errorf("tracking: log metric %s: %w", k, err)
		}
	}
	return tx.Commit()
}

// LogArtifact implements Sink.
func (s *SQLiteSink) LogArtifact(runID, name, uri string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.Exec(
		`INSERT OR REPLACE INTO artifacts (run_id, name, uri) VALUES (?, ?, ?)`,
		runID, name, uri)
	if err != nil {
		return fmt.Errorf("tracking: log artifact %s: %w", name, err)
	}
	return nil
}

// Params returns the recorded parameters of a run.
func (s *SQLiteSink) Params(runID string) (map[string]string, error) {
	rows, err := s.db.Query(`SELECT key, value FROM params WHERE run_id = ?`, runID)
	if err != nil {
		return nil, fmt.Errorf("tracking: query params: %w", err)
	}
	defer rows.Close()

	out := make(map[string]string)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, fmt.Errorf("tracking: scan param: %w", err)
		}
		out[k] = v
	}
	return out, rows.Err()
}

// Metrics returns the recorded metrics of a run.
func (s *SQLiteSink) Metrics(runID string) (map[string]float64, error) {
	rows, err := s.db.Query(`SELECT key, value FROM metrics WHERE run_id = ?`, runID)
	if err != nil {
		return nil, fmt.Errorf("tracking: query metrics: %w", err)
	}
	defer rows.Close()

	out := make(map[string]float64)
	for rows.Next() {
		var k string
		var v float64
		if err := rows.Scan(&k, &v); err != nil {
			return nil, fmt.Errorf("tracking: scan metric: %w", err)
		}
		out[k] = v
	}
	return out, rows.Err()
}

// Runs returns all recorded run IDs, oldest first.
func (s *SQLiteSink) Runs() ([]string, error) {
	rows, err := s.db.Query(`SELECT run_id FROM runs ORDER BY started_at`)
	if err != nil {
		return nil, fmt.Errorf("tracking: query runs: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("tracking: scan run: %w", err)
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

// Close implements Sink.
func (s *SQLiteSink) Close() error {
	return s.db.Close()
}
