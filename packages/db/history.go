package db

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"time"

	"github.com/abdul-hamid-achik/hitbench/packages/results"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id          TEXT NOT NULL,
	started_at  TIMESTAMP NOT NULL,
	suite_file  TEXT NOT NULL,
	mode        TEXT NOT NULL,
	iteration   INTEGER NOT NULL,
	total_ms    REAL,
	mean_ms     REAL,
	geomean_ms  REAL,
	score       REAL,
	PRIMARY KEY (id, iteration)
);
CREATE TABLE IF NOT EXISTS suite_results (
	run_id    TEXT NOT NULL,
	iteration INTEGER NOT NULL,
	position  INTEGER NOT NULL,
	suite     TEXT NOT NULL,
	total_ms  REAL NOT NULL,
	PRIMARY KEY (run_id, iteration, suite)
);
CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at);
`

// Run is one stored iteration. Iterations of one invocation share an ID.
type Run struct {
	ID        string
	StartedAt time.Time
	SuiteFile string
	Mode      string
	Iteration int
	TotalMs   float64
	MeanMs    float64
	GeomeanMs float64
	Score     float64
	Suites    []SuiteRow
}

// SuiteRow is a suite total of a stored run
type SuiteRow struct {
	Suite   string
	TotalMs float64
}

// NewRun builds a Run from a finalized summary
func NewRun(id, suiteFile, mode string, iteration int, s *results.Summary) *Run {
	r := &Run{
		ID:        id,
		StartedAt: time.Now().UTC(),
		SuiteFile: suiteFile,
		Mode:      mode,
		Iteration: iteration,
		TotalMs:   s.TotalMs,
		MeanMs:    s.MeanMs,
		GeomeanMs: s.GeomeanMs,
		Score:     s.Score,
	}
	for _, sr := range s.SuiteResults() {
		r.Suites = append(r.Suites, SuiteRow{Suite: sr.Suite, TotalMs: sr.TotalMs})
	}
	return r
}

func (c *Client) migrate(ctx context.Context) error {
	if _, err := c.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to create history tables: %w", err)
	}
	return nil
}

// nullable stores NaN as NULL
func nullable(v float64) sql.NullFloat64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: v, Valid: true}
}

func fromNullable(v sql.NullFloat64) float64 {
	if !v.Valid {
		return math.NaN()
	}
	return v.Float64
}

// SaveRun stores a run and its suite totals in one transaction
func (c *Client) SaveRun(ctx context.Context, r *Run) error {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO runs (id, started_at, suite_file, mode, iteration, total_ms, mean_ms, geomean_ms, score)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.StartedAt, r.SuiteFile, r.Mode, r.Iteration,
		nullable(r.TotalMs), nullable(r.MeanMs), nullable(r.GeomeanMs), nullable(r.Score))
	if err != nil {
		return fmt.Errorf("failed to insert run %s/%d: %w", r.ID, r.Iteration, err)
	}

	for i, s := range r.Suites {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO suite_results (run_id, iteration, position, suite, total_ms) VALUES (?, ?, ?, ?, ?)`,
			r.ID, r.Iteration, i, s.Suite, s.TotalMs)
		if err != nil {
			return fmt.Errorf("failed to insert suite %q of run %s: %w", s.Suite, r.ID, err)
		}
	}

	return tx.Commit()
}

// ListRuns returns the most recent stored iterations, newest first. limit <= 0 returns all.
func (c *Client) ListRuns(ctx context.Context, limit int) ([]*Run, error) {
	query := `SELECT id, started_at, suite_file, mode, iteration, total_ms, mean_ms, geomean_ms, score
		FROM runs ORDER BY started_at DESC, iteration DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := c.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		var (
			r                              Run
			total, mean, geomean, scoreCol sql.NullFloat64
		)
		if err := rows.Scan(&r.ID, &r.StartedAt, &r.SuiteFile, &r.Mode, &r.Iteration, &total, &mean, &geomean, &scoreCol); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		r.TotalMs = fromNullable(total)
		r.MeanMs = fromNullable(mean)
		r.GeomeanMs = fromNullable(geomean)
		r.Score = fromNullable(scoreCol)
		runs = append(runs, &r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	for _, r := range runs {
		suites, err := c.suiteRows(ctx, r.ID, r.Iteration)
		if err != nil {
			return nil, err
		}
		r.Suites = suites
	}
	return runs, nil
}

func (c *Client) suiteRows(ctx context.Context, runID string, iteration int) ([]SuiteRow, error) {
	rows, err := c.db.QueryContext(ctx,
		`SELECT suite, total_ms FROM suite_results WHERE run_id = ? AND iteration = ? ORDER BY position`,
		runID, iteration)
	if err != nil {
		return nil, fmt.Errorf("failed to load suites of run %s: %w", runID, err)
	}
	defer rows.Close()

	var out []SuiteRow
	for rows.Next() {
		var s SuiteRow
		if err := rows.Scan(&s.Suite, &s.TotalMs); err != nil {
			return nil, fmt.Errorf("failed to scan suite: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
