package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/competitor-intel/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close() //nolint:errcheck
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS runs (
	id            TEXT PRIMARY KEY,
	project       TEXT NOT NULL,
	status        TEXT NOT NULL DEFAULT 'pending',
	artifact_path TEXT NOT NULL DEFAULT '',
	workbook_path TEXT NOT NULL DEFAULT '',
	error         TEXT NOT NULL DEFAULT '',
	created_at    DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at    DATETIME NOT NULL DEFAULT (datetime('now')),
	started_at    DATETIME,
	finished_at   DATETIME
);

CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status);
CREATE INDEX IF NOT EXISTS idx_runs_created_at ON runs(created_at);
`

const runColumns = `id, project, status, artifact_path, workbook_path, error, created_at, updated_at, started_at, finished_at`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) CreateRun(ctx context.Context, project model.Project) (*model.Run, error) {
	projectJSON, err := json.Marshal(project)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: marshal project")
	}

	run := &model.Run{
		ID:        uuid.New().String(),
		Project:   project,
		Status:    model.RunStatusPending,
		CreatedAt: time.Now().UTC(),
	}
	run.UpdatedAt = run.CreatedAt

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO runs (id, project, status, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		run.ID, string(projectJSON), string(run.Status), run.CreatedAt, run.UpdatedAt,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert run")
	}
	return run, nil
}

func (s *SQLiteStore) UpdateRunStatus(ctx context.Context, runID string, to model.RunStatus, patch model.RunUpdate) error {
	from := sourceStatuses(to)
	if len(from) == 0 {
		return eris.Wrapf(ErrInvalidTransition, "sqlite: run %s to %s", runID, to)
	}

	now := time.Now().UTC()
	started, finished := transitionTimes(to, now)

	args := []any{string(to), now, patch.ArtifactPath, patch.WorkbookPath, patch.Error, started, finished, runID}
	for _, f := range from {
		args = append(args, f)
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET
			status = ?,
			updated_at = ?,
			artifact_path = COALESCE(NULLIF(?, ''), artifact_path),
			workbook_path = COALESCE(NULLIF(?, ''), workbook_path),
			error = COALESCE(NULLIF(?, ''), error),
			started_at = COALESCE(?, started_at),
			finished_at = COALESCE(?, finished_at)
		 WHERE id = ? AND status NOT IN ('succeeded', 'failed')
		   AND status IN (`+placeholders(len(from))+`)`,
		args...,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update run status %s", runID)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "sqlite: rows affected")
	}
	if n > 0 {
		return nil
	}

	var current string
	err = s.db.QueryRowContext(ctx, `SELECT status FROM runs WHERE id = ?`, runID).Scan(&current)
	if errors.Is(err, sql.ErrNoRows) {
		return eris.Wrapf(ErrNotFound, "sqlite: run %s", runID)
	}
	if err != nil {
		return eris.Wrapf(err, "sqlite: get run status %s", runID)
	}
	return eris.Wrapf(ErrInvalidTransition, "sqlite: run %s from %s to %s", runID, current, to)
}

func (s *SQLiteStore) GetRun(ctx context.Context, runID string) (*model.Run, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, runID)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "sqlite: run %s", runID)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get run %s", runID)
	}
	return run, nil
}

func (s *SQLiteStore) ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error) {
	query := `SELECT ` + runColumns + ` FROM runs WHERE 1=1`
	var args []any

	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(filter.Status))
	}
	query += ` ORDER BY created_at DESC LIMIT ?`
	args = append(args, listLimit(filter.Limit))
	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list runs")
	}
	defer rows.Close() //nolint:errcheck

	var runs []model.Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan run")
		}
		runs = append(runs, *r)
	}
	return runs, eris.Wrap(rows.Err(), "sqlite: list runs")
}

func (s *SQLiteStore) CountByStatus(ctx context.Context, since time.Time) (map[model.RunStatus]int, error) {
	query := `SELECT status, COUNT(*) FROM runs`
	var args []any
	if !since.IsZero() {
		query += ` WHERE created_at >= ?`
		args = append(args, since.UTC())
	}
	query += ` GROUP BY status`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: count runs")
	}
	defer rows.Close() //nolint:errcheck

	counts := make(map[model.RunStatus]int)
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan count")
		}
		counts[model.RunStatus(status)] = n
	}
	return counts, eris.Wrap(rows.Err(), "sqlite: count runs")
}

type scannable interface {
	Scan(dest ...any) error
}

// scanRun reads one row selected with runColumns. sql.ErrNoRows is returned
// unwrapped so callers can map it.
func scanRun(row scannable) (*model.Run, error) {
	var r model.Run
	var projectJSON, status string
	var started, finished sql.NullTime

	err := row.Scan(&r.ID, &projectJSON, &status, &r.ArtifactPath, &r.WorkbookPath, &r.Error,
		&r.CreatedAt, &r.UpdatedAt, &started, &finished)
	if err != nil {
		return nil, err
	}
	r.Status = model.RunStatus(status)
	if started.Valid {
		r.StartedAt = &started.Time
	}
	if finished.Valid {
		r.FinishedAt = &finished.Time
	}
	if err := json.Unmarshal([]byte(projectJSON), &r.Project); err != nil {
		return nil, eris.Wrap(err, "unmarshal project")
	}
	return &r, nil
}

// transitionTimes returns the started_at and finished_at values to write;
// nil leaves the column unchanged.
func transitionTimes(to model.RunStatus, now time.Time) (started, finished any) {
	if to == model.RunStatusRunning {
		started = now
	}
	if to.IsTerminal() {
		finished = now
	}
	return started, finished
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}
