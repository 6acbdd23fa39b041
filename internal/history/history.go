// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package history records completed pipeline runs in a local SQLite
// database so past research is queryable from the CLI. Recording is best
// effort: the pipeline's outputs live on disk regardless of whether the
// history write succeeds.
package history

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/deep-research/internal/report"
	"github.com/pdiddy/deep-research/pkg/types"
)

const dbFile = "runs.db"

// Entry is one recorded pipeline run.
type Entry struct {
	ID            int64
	Topic         string
	Status        types.RunStatus
	FailedAtStage types.StageName
	StartedAt     time.Time
	FinishedAt    time.Time
	ReportPath    string
	StepsPath     string
}

// Store manages the run history SQLite database.
type Store struct {
	db *sql.DB
}

// NewStore opens or creates the history database at dir/runs.db, creating
// the schema if it does not exist.
func NewStore(cfg types.HistoryConfig) (*Store, error) {
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating history directory: %w", err)
	}

	dbPath := filepath.Join(cfg.Dir, dbFile)
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening history database: %w", err)
	}

	s := &Store{db: db}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating history schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			topic TEXT NOT NULL,
			status TEXT NOT NULL,
			failed_at_stage TEXT,
			started_at TEXT NOT NULL,
			finished_at TEXT NOT NULL,
			report_path TEXT,
			steps_path TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS stage_durations (
			run_id INTEGER NOT NULL REFERENCES runs(id),
			stage TEXT NOT NULL,
			duration_seconds REAL NOT NULL,
			succeeded INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_stage_durations_run_id ON stage_durations(run_id)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// Record stores one finished run and its per-stage timings.
func (s *Store) Record(run *types.PipelineRun, paths report.Paths) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.Exec(
		`INSERT INTO runs (topic, status, failed_at_stage, started_at, finished_at, report_path, steps_path)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		run.Topic,
		string(run.Status),
		string(run.FailedAtStage),
		run.StartedAt.Format(time.RFC3339),
		run.FinishedAt.Format(time.RFC3339),
		paths.Report,
		paths.Steps,
	)
	if err != nil {
		return fmt.Errorf("inserting run: %w", err)
	}

	runID, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("reading run id: %w", err)
	}

	for _, artifact := range run.Artifacts {
		succeeded := 0
		if artifact.Succeeded() {
			succeeded = 1
		}
		if _, err := tx.Exec(
			`INSERT INTO stage_durations (run_id, stage, duration_seconds, succeeded) VALUES (?, ?, ?, ?)`,
			runID, string(artifact.Stage), artifact.Duration().Seconds(), succeeded,
		); err != nil {
			return fmt.Errorf("inserting stage duration: %w", err)
		}
	}

	return tx.Commit()
}

// List returns the most recent runs, newest first. A limit of zero or less
// means all runs.
func (s *Store) List(limit int) ([]Entry, error) {
	query := `SELECT id, topic, status, failed_at_stage, started_at, finished_at, report_path, steps_path
		FROM runs ORDER BY id DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var status, failedAt, started, finished string
		if err := rows.Scan(&e.ID, &e.Topic, &status, &failedAt, &started, &finished, &e.ReportPath, &e.StepsPath); err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		e.Status = types.RunStatus(status)
		e.FailedAtStage = types.StageName(failedAt)
		if e.StartedAt, err = time.Parse(time.RFC3339, started); err != nil {
			return nil, fmt.Errorf("parsing started_at: %w", err)
		}
		if e.FinishedAt, err = time.Parse(time.RFC3339, finished); err != nil {
			return nil, fmt.Errorf("parsing finished_at: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// StageDurations returns the per-stage timings recorded for a run.
func (s *Store) StageDurations(runID int64) (map[types.StageName]time.Duration, error) {
	rows, err := s.db.Query(`SELECT stage, duration_seconds FROM stage_durations WHERE run_id = ?`, runID)
	if err != nil {
		return nil, fmt.Errorf("querying stage durations: %w", err)
	}
	defer rows.Close()

	durations := make(map[types.StageName]time.Duration)
	for rows.Next() {
		var stage string
		var seconds float64
		if err := rows.Scan(&stage, &seconds); err != nil {
			return nil, fmt.Errorf("scanning stage duration: %w", err)
		}
		durations[types.StageName(stage)] = time.Duration(seconds * float64(time.Second))
	}
	return durations, rows.Err()
}
