// Package history persists run results to a local SQLite database so
// pass rates and healed locators can be tracked across runs.
package history

import (
	"database/sql"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"mend/internal/harness"
)

//go:embed schema.sql
var schemaSQL string

// timeLayout is the stored timestamp format, UTC.
const timeLayout = "2006-01-02 15:04:05"

// Run is one recorded run.
type Run struct {
	ID         int64         `json:"id"`
	RunID      string        `json:"run_id"`
	StartedAt  time.Time     `json:"started_at"`
	Duration   time.Duration `json:"duration"`
	Total      int           `json:"total"`
	Passed     int           `json:"passed"`
	Failed     int           `json:"failed"`
	Skipped    int           `json:"skipped"`
	Errors     int           `json:"errors"`
	Suite      string        `json:"suite,omitempty"`
	ReportPath string        `json:"report_path,omitempty"`
}

// Healing is one healed locator recorded with its run.
type Healing struct {
	RunID    string `json:"run_id"`
	Scenario string `json:"scenario"`
	StepID   string `json:"step_id"`
	Selector string `json:"selector"`
	Strategy string `json:"strategy"`
}

// SelectorCount aggregates how often a selector needed healing, across runs.
type SelectorCount struct {
	Selector string `json:"selector"`
	Strategy string `json:"strategy"`
	Count    int    `json:"count"`
}

// Store manages the run history database.
type Store struct {
	db *sql.DB
}

// New opens (creating if needed) the history database at the given path and
// applies the schema.
func New(dbPath string) (*Store, error) {
	if dir := filepath.Dir(dbPath); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite supports one writer at a time, multiple readers with WAL mode
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(0)

	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}
	// Wait instead of immediately returning SQLITE_BUSY
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	// Schema is idempotent via CREATE TABLE IF NOT EXISTS
	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// WriteRun records a completed run and its healed locators in one
// transaction.
func (s *Store) WriteRun(result *harness.SuiteResult, reportPath string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
		INSERT INTO runs (run_id, started_at, duration_ms, total, passed, failed, skipped, errors, suite, report_path)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		result.RunID,
		result.StartTime.UTC().Format(timeLayout),
		result.Duration.Milliseconds(),
		result.TotalScenarios,
		result.PassedScenarios,
		result.FailedScenarios,
		result.SkippedScenarios,
		result.ErrorScenarios,
		result.Configuration.Suite,
		reportPath,
	)
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}

	for _, scenarioResult := range result.ScenarioResults {
		for _, healing := range scenarioResult.Healings {
			_, err = tx.Exec(`
				INSERT INTO healings (run_id, scenario, step_id, selector, strategy)
				VALUES (?, ?, ?, ?, ?)
			`,
				result.RunID,
				scenarioResult.Scenario.Name,
				healing.StepID,
				healing.Selector,
				healing.Strategy,
			)
			if err != nil {
				return fmt.Errorf("failed to insert healing record: %w", err)
			}
		}
	}

	return tx.Commit()
}

// ListRuns returns the most recent runs, newest first.
func (s *Store) ListRuns(limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.Query(`
		SELECT id, run_id, started_at, duration_ms, total, passed, failed, skipped, errors, suite, report_path
		FROM runs
		ORDER BY started_at DESC, id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var run Run
		var startedAt string
		var durationMS int64
		if err := rows.Scan(&run.ID, &run.RunID, &startedAt, &durationMS,
			&run.Total, &run.Passed, &run.Failed, &run.Skipped, &run.Errors,
			&run.Suite, &run.ReportPath); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		run.StartedAt, err = time.Parse(timeLayout, startedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to parse run timestamp %q: %w", startedAt, err)
		}
		run.Duration = time.Duration(durationMS) * time.Millisecond
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// GetRun returns one run by its run ID.
func (s *Store) GetRun(runID string) (*Run, error) {
	var run Run
	var startedAt string
	var durationMS int64
	err := s.db.QueryRow(`
		SELECT id, run_id, started_at, duration_ms, total, passed, failed, skipped, errors, suite, report_path
		FROM runs
		WHERE run_id = ?
	`, runID).Scan(&run.ID, &run.RunID, &startedAt, &durationMS,
		&run.Total, &run.Passed, &run.Failed, &run.Skipped, &run.Errors,
		&run.Suite, &run.ReportPath)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("run %q not found", runID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query run: %w", err)
	}
	run.StartedAt, err = time.Parse(timeLayout, startedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to parse run timestamp %q: %w", startedAt, err)
	}
	run.Duration = time.Duration(durationMS) * time.Millisecond
	return &run, nil
}

// HealingsForRun returns the healed locators recorded for one run.
func (s *Store) HealingsForRun(runID string) ([]Healing, error) {
	rows, err := s.db.Query(`
		SELECT run_id, scenario, step_id, selector, strategy
		FROM healings
		WHERE run_id = ?
		ORDER BY id
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query healings: %w", err)
	}
	defer rows.Close()

	var healings []Healing
	for rows.Next() {
		var h Healing
		if err := rows.Scan(&h.RunID, &h.Scenario, &h.StepID, &h.Selector, &h.Strategy); err != nil {
			return nil, fmt.Errorf("failed to scan healing: %w", err)
		}
		healings = append(healings, h)
	}
	return healings, rows.Err()
}

// StaleSelectors returns the selectors that healed most often across all
// recorded runs. A selector that keeps healing is overdue for an update in
// the scenario files.
func (s *Store) StaleSelectors(limit int) ([]SelectorCount, error) {
	if limit <= 0 {
		limit = 10
	}

	rows, err := s.db.Query(`
		SELECT selector, strategy, COUNT(*) AS n
		FROM healings
		GROUP BY selector, strategy
		ORDER BY n DESC, selector
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query stale selectors: %w", err)
	}
	defer rows.Close()

	var counts []SelectorCount
	for rows.Next() {
		var c SelectorCount
		if err := rows.Scan(&c.Selector, &c.Strategy, &c.Count); err != nil {
			return nil, fmt.Errorf("failed to scan selector count: %w", err)
		}
		counts = append(counts, c)
	}
	return counts, rows.Err()
}
