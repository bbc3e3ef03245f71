// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package ledger keeps a history of analysis runs in a SQLite database
// under the batch output directory, one row per run and one row per
// project outcome.
package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/submission-analyzer/pkg/types"
)

// Outcome statuses stored per project.
const (
	StatusSucceeded = "succeeded"
	StatusSkipped   = "skipped"
	StatusFailed    = "failed"
)

const defaultLimit = 20

// Store is an open run ledger.
type Store struct {
	db *sql.DB
}

// Run is one row of the runs table.
type Run struct {
	ID           string    `json:"run_id" yaml:"run_id"`
	Batch        string    `json:"batch" yaml:"batch"`
	Model        string    `json:"model" yaml:"model"`
	StartedAt    time.Time `json:"started_at" yaml:"started_at"`
	FinishedAt   time.Time `json:"finished_at" yaml:"finished_at"`
	Total        int       `json:"total" yaml:"total"`
	Succeeded    int       `json:"succeeded" yaml:"succeeded"`
	Skipped      int       `json:"skipped" yaml:"skipped"`
	Failed       int       `json:"failed" yaml:"failed"`
	Consolidated bool      `json:"consolidated" yaml:"consolidated"`
}

// Outcome is one project's result within a run.
type Outcome struct {
	ProjectID string `json:"project_id" yaml:"project_id"`
	Status    string `json:"status" yaml:"status"`
	Reason    string `json:"reason,omitempty" yaml:"reason,omitempty"`
}

// Open opens or creates the ledger database at path and its schema.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating ledger directory: %w", err)
	}
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening ledger: %w", err)
	}
	s := &Store{db: db}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
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
			id TEXT PRIMARY KEY,
			batch TEXT NOT NULL,
			model TEXT,
			started_at INTEGER NOT NULL,
			finished_at INTEGER,
			total INTEGER NOT NULL,
			succeeded INTEGER NOT NULL,
			skipped INTEGER NOT NULL,
			failed INTEGER NOT NULL,
			consolidated INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS outcomes (
			run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
			project_id TEXT NOT NULL,
			status TEXT NOT NULL,
			reason TEXT,
			PRIMARY KEY (run_id, project_id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_batch ON runs(batch, started_at)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// Record stores a finished run and its per-project outcomes. Recording the
// same run id again replaces the earlier rows.
func (s *Store) Record(ctx context.Context, sum types.RunSummary) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM outcomes WHERE run_id = ?`, sum.RunID); err != nil {
		return fmt.Errorf("clearing outcomes: %w", err)
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO runs (id, batch, model, started_at, finished_at, total, succeeded, skipped, failed, consolidated)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			batch=excluded.batch, model=excluded.model, started_at=excluded.started_at,
			finished_at=excluded.finished_at, total=excluded.total, succeeded=excluded.succeeded,
			skipped=excluded.skipped, failed=excluded.failed, consolidated=excluded.consolidated`,
		sum.RunID, sum.Batch, sum.Model,
		unixNano(sum.StartedAt), nullUnixNano(sum.FinishedAt),
		sum.Total, len(sum.Succeeded), len(sum.Skipped), len(sum.Failed), sum.Consolidated,
	)
	if err != nil {
		return fmt.Errorf("inserting run: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT OR REPLACE INTO outcomes (run_id, project_id, status, reason) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	insert := func(id, status, reason string) error {
		if _, err := stmt.ExecContext(ctx, sum.RunID, id, status, reason); err != nil {
			return fmt.Errorf("inserting outcome %s: %w", id, err)
		}
		return nil
	}
	for _, id := range sum.Succeeded {
		if err := insert(id, StatusSucceeded, ""); err != nil {
			return err
		}
	}
	for _, id := range sum.Skipped {
		if err := insert(id, StatusSkipped, ""); err != nil {
			return err
		}
	}
	for _, f := range sum.Failed {
		if err := insert(f.ProjectID, StatusFailed, f.Reason); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// Runs returns the most recent runs of batch, newest first. A limit of
// zero or less means the default of 20.
func (s *Store) Runs(ctx context.Context, batch string, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = defaultLimit
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, batch, model, started_at, finished_at, total, succeeded, skipped, failed, consolidated
		 FROM runs WHERE batch = ? ORDER BY started_at DESC, rowid DESC LIMIT ?`, batch, limit)
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		var started int64
		var finished sql.NullInt64
		if err := rows.Scan(&r.ID, &r.Batch, &r.Model, &started, &finished,
			&r.Total, &r.Succeeded, &r.Skipped, &r.Failed, &r.Consolidated); err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		r.StartedAt = time.Unix(0, started).UTC()
		if finished.Valid {
			r.FinishedAt = time.Unix(0, finished.Int64).UTC()
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// Outcomes returns the per-project outcomes of one run ordered by project.
func (s *Store) Outcomes(ctx context.Context, runID string) ([]Outcome, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT project_id, status, COALESCE(reason, '') FROM outcomes WHERE run_id = ? ORDER BY project_id`, runID)
	if err != nil {
		return nil, fmt.Errorf("querying outcomes: %w", err)
	}
	defer rows.Close()

	var out []Outcome
	for rows.Next() {
		var o Outcome
		if err := rows.Scan(&o.ProjectID, &o.Status, &o.Reason); err != nil {
			return nil, fmt.Errorf("scanning outcome: %w", err)
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

// ExportYAML writes the recent runs of batch as YAML.
func (s *Store) ExportYAML(ctx context.Context, w io.Writer, batch string, limit int) error {
	runs, err := s.Runs(ctx, batch, limit)
	if err != nil {
		return err
	}
	data, err := yaml.Marshal(runs)
	if err != nil {
		return fmt.Errorf("marshaling YAML: %w", err)
	}
	_, err = w.Write(data)
	return err
}

// Times are stored as Unix nanoseconds so that ORDER BY compares them
// numerically.
func unixNano(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixNano()
}

func nullUnixNano(t time.Time) sql.NullInt64 {
	if t.IsZero() {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: t.UnixNano(), Valid: true}
}
