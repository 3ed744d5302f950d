// Package runstore persists transformation run records in SQLite so the
// API can answer run history queries across restarts.
package runstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	_ "modernc.org/sqlite" // driver: sqlite
)

// ErrNotFound is returned when no run exists for the requested ID.
var ErrNotFound = errors.New("run not found")

// Run statuses.
const (
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// Run is one persisted transformation run.
type Run struct {
	ID                    string     `json:"id"`
	SourceFile            string     `json:"source_file"`
	DateTag               string     `json:"date_tag"`
	Format                string     `json:"format"`
	Status                string     `json:"status"`
	Rows                  int        `json:"rows"`
	Factors               int        `json:"factors"`
	PopulationSize        int        `json:"population_size"`
	InputUndefined        int        `json:"input_undefined"`
	StandardizedUndefined int        `json:"standardized_undefined"`
	TransformedUndefined  int        `json:"transformed_undefined"`
	DegenerateFactors     []string   `json:"degenerate_factors,omitempty"`
	OutputFiles           []string   `json:"output_files,omitempty"`
	Error                 string     `json:"error,omitempty"`
	Duration              int64      `json:"duration_ms"`
	StartedAt             time.Time  `json:"started_at"`
	FinishedAt            *time.Time `json:"finished_at,omitempty"`
}

// Store wraps the SQLite database holding run records.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

// Open opens the run database at path and ensures the schema exists.
func Open(ctx context.Context, path string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}

	dsn := fmt.Sprintf("file:%s?cache=shared&mode=rwc&_pragma=busy_timeout(5000)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open run database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping run database: %w", err)
	}

	if err := ensureSchema(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("ensure run schema: %w", err)
	}

	logger.InfoContext(ctx, "run database ready", slog.String("path", path))
	return &Store{db: db, logger: logger}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func ensureSchema(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, schema)
	return err
}

const schema = `
CREATE TABLE IF NOT EXISTS runs (
  id TEXT PRIMARY KEY,
  source_file TEXT NOT NULL,
  date_tag TEXT NOT NULL DEFAULT '',
  format TEXT NOT NULL,
  status TEXT NOT NULL,
  rows INTEGER NOT NULL DEFAULT 0,
  factors INTEGER NOT NULL DEFAULT 0,
  population_size INTEGER NOT NULL DEFAULT 0,
  input_undefined INTEGER NOT NULL DEFAULT 0,
  standardized_undefined INTEGER NOT NULL DEFAULT 0,
  transformed_undefined INTEGER NOT NULL DEFAULT 0,
  degenerate_factors TEXT NOT NULL DEFAULT '[]',
  output_files TEXT NOT NULL DEFAULT '[]',
  error TEXT NOT NULL DEFAULT '',
  duration_ms INTEGER NOT NULL DEFAULT 0,
  started_at INTEGER NOT NULL,
  finished_at INTEGER
);

CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at);
`

// Create inserts a new run record in the running state.
func (s *Store) Create(ctx context.Context, run Run) error {
	if run.Status == "" {
		run.Status = StatusRunning
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, source_file, date_tag, format, status, started_at) VALUES (?, ?, ?, ?, ?, ?)`,
		run.ID, run.SourceFile, run.DateTag, run.Format, run.Status, run.StartedAt.Unix())
	if err != nil {
		return fmt.Errorf("insert run %s: %w", run.ID, err)
	}
	return nil
}

// Complete marks a run as completed and records its report counters and
// output files.
func (s *Store) Complete(ctx context.Context, id string, run Run) error {
	degenerate, err := json.Marshal(sliceOrEmpty(run.DegenerateFactors))
	if err != nil {
		return fmt.Errorf("encode degenerate factors: %w", err)
	}
	outputs, err := json.Marshal(sliceOrEmpty(run.OutputFiles))
	if err != nil {
		return fmt.Errorf("encode output files: %w", err)
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET status=?, rows=?, factors=?, population_size=?,
		   input_undefined=?, standardized_undefined=?, transformed_undefined=?,
		   degenerate_factors=?, output_files=?, duration_ms=?, finished_at=?
		 WHERE id=?`,
		StatusCompleted, run.Rows, run.Factors, run.PopulationSize,
		run.InputUndefined, run.StandardizedUndefined, run.TransformedUndefined,
		string(degenerate), string(outputs), run.Duration, time.Now().Unix(), id)
	if err != nil {
		return fmt.Errorf("complete run %s: %w", id, err)
	}
	return requireRowAffected(res, id)
}

// Fail marks a run as failed with the given error.
func (s *Store) Fail(ctx context.Context, id string, runErr error, durationMS int64) error {
	message := ""
	if runErr != nil {
		message = runErr.Error()
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET status=?, error=?, duration_ms=?, finished_at=? WHERE id=?`,
		StatusFailed, message, durationMS, time.Now().Unix(), id)
	if err != nil {
		return fmt.Errorf("fail run %s: %w", id, err)
	}
	return requireRowAffected(res, id)
}

// Get returns one run by ID.
func (s *Store) Get(ctx context.Context, id string) (Run, error) {
	row := s.db.QueryRowContext(ctx, selectColumns+` WHERE id=?`, id)
	run, err := scanRun(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Run{}, ErrNotFound
		}
		return Run{}, fmt.Errorf("get run %s: %w", id, err)
	}
	return run, nil
}

// List returns up to limit runs, newest first.
func (s *Store) List(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.QueryContext(ctx,
		selectColumns+` ORDER BY started_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	return runs, nil
}

// Count returns the total number of stored runs.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM runs`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count runs: %w", err)
	}
	return n, nil
}

const selectColumns = `SELECT id, source_file, date_tag, format, status, rows, factors,
  population_size, input_undefined, standardized_undefined, transformed_undefined,
  degenerate_factors, output_files, error, duration_ms, started_at, finished_at
FROM runs`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRun(row rowScanner) (Run, error) {
	var (
		run        Run
		degenerate string
		outputs    string
		startedAt  int64
		finishedAt sql.NullInt64
	)

	err := row.Scan(&run.ID, &run.SourceFile, &run.DateTag, &run.Format, &run.Status,
		&run.Rows, &run.Factors, &run.PopulationSize,
		&run.InputUndefined, &run.StandardizedUndefined, &run.TransformedUndefined,
		&degenerate, &outputs, &run.Error, &run.Duration, &startedAt, &finishedAt)
	if err != nil {
		return Run{}, err
	}

	if err := json.Unmarshal([]byte(degenerate), &run.DegenerateFactors); err != nil {
		run.DegenerateFactors = nil
	}
	if err := json.Unmarshal([]byte(outputs), &run.OutputFiles); err != nil {
		run.OutputFiles = nil
	}
	if len(run.DegenerateFactors) == 0 {
		run.DegenerateFactors = nil
	}
	if len(run.OutputFiles) == 0 {
		run.OutputFiles = nil
	}

	run.StartedAt = time.Unix(startedAt, 0).UTC()
	if finishedAt.Valid {
		t := time.Unix(finishedAt.Int64, 0).UTC()
		run.FinishedAt = &t
	}
	return run, nil
}

func requireRowAffected(res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected for run %s: %w", id, err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func sliceOrEmpty(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
