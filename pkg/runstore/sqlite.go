package runstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3" // registers the "sqlite3" database/sql driver
)

// SQLiteStore is the default Store backend: a single-file database,
// opened with WAL journaling so concurrent readers don't block the
// execution manager's writer. Grounded on the teacher's checkpoint.Manager
// file-per-repo layout, generalized from one JSON file to one SQL schema.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (creating if necessary) a sqlite-backed Store at path.
func OpenSQLite(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path+"?_journal=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("runstore: open sqlite: %w", err)
	}

	db.SetMaxOpenConns(1) // sqlite3 serializes writers anyway; avoid lock contention.

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()

		return nil, fmt.Errorf("runstore: apply schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

const schemaSQL = `
CREATE TABLE IF NOT EXISTS sessions (
	id TEXT PRIMARY KEY,
	command TEXT NOT NULL,
	created_by TEXT NOT NULL,
	created_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS runs (
	id TEXT PRIMARY KEY,
	session_id TEXT NOT NULL,
	source TEXT NOT NULL,
	target TEXT NOT NULL,
	inputs TEXT NOT NULL,
	status TEXT NOT NULL,
	started_at DATETIME,
	completed_at DATETIME,
	outputs TEXT NOT NULL DEFAULT '',
	error TEXT NOT NULL DEFAULT '',
	output_dir TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_runs_session ON runs(session_id);
CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status);

CREATE TABLE IF NOT EXISTS task_records (
	run_id TEXT NOT NULL,
	call_path TEXT NOT NULL,
	attempt INTEGER NOT NULL,
	backend TEXT NOT NULL,
	image TEXT NOT NULL DEFAULT '',
	status TEXT NOT NULL,
	started_at DATETIME,
	completed_at DATETIME,
	exit_code INTEGER,
	stdout_path TEXT NOT NULL DEFAULT '',
	stderr_path TEXT NOT NULL DEFAULT '',
	log_source TEXT NOT NULL DEFAULT '',
	PRIMARY KEY (run_id, call_path, attempt)
);

CREATE TABLE IF NOT EXISTS logs (
	run_id TEXT NOT NULL,
	source TEXT NOT NULL,
	line TEXT NOT NULL,
	at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_logs_run ON logs(run_id);
`

func (s *SQLiteStore) Close() error { return s.db.Close() }

func (s *SQLiteStore) CreateSession(ctx context.Context, sess Session) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sessions (id, command, created_by, created_at) VALUES (?, ?, ?, ?)`,
		sess.ID, sess.Command, sess.CreatedBy, sess.CreatedAt)

	return err
}

func (s *SQLiteStore) CreateRun(ctx context.Context, r Run) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, session_id, source, target, inputs, status, started_at, output_dir)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.SessionID, r.Source, r.Target, r.Inputs, r.Status, r.StartedAt, r.OutputDir)

	return err
}

func (s *SQLiteStore) UpdateRunStatus(ctx context.Context, runID string, status RunStatus, at time.Time) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if status == RunCompleted || status == RunFailed || status == RunCanceled {
			_, err := tx.ExecContext(ctx, `UPDATE runs SET status = ?, completed_at = ? WHERE id = ?`, status, at, runID)

			return err
		}

		if status == RunRunning {
			_, err := tx.ExecContext(ctx, `UPDATE runs SET status = ?, started_at = ? WHERE id = ?`, status, at, runID)

			return err
		}

		_, err := tx.ExecContext(ctx, `UPDATE runs SET status = ? WHERE id = ?`, status, runID)

		return err
	})
}

func (s *SQLiteStore) AppendLog(ctx context.Context, line LogLine) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO logs (run_id, source, line, at) VALUES (?, ?, ?, ?)`,
		line.RunID, line.Source, line.Line, line.At)

	return err
}

func (s *SQLiteStore) RecordTask(ctx context.Context, t TaskRecord) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO task_records (run_id, call_path, attempt, backend, image, status, started_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		t.RunID, t.CallPath, t.Attempt, t.Backend, t.Image, t.Status, t.StartedAt)

	return err
}

func (s *SQLiteStore) UpdateTask(
	ctx context.Context, runID, callPath string, attempt int, status TaskStatus, exitCode *int, completedAt time.Time,
) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE task_records SET status = ?, exit_code = ?, completed_at = ?
		 WHERE run_id = ? AND call_path = ? AND attempt = ?`,
		status, exitCode, completedAt, runID, callPath, attempt)

	return err
}

func (s *SQLiteStore) SetOutputs(ctx context.Context, runID, outputsJSON string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE runs SET outputs = ? WHERE id = ?`, outputsJSON, runID)

	return err
}

func (s *SQLiteStore) SetError(ctx context.Context, runID, message string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE runs SET error = ? WHERE id = ?`, message, runID)

	return err
}

func (s *SQLiteStore) ListRuns(ctx context.Context, filter ListFilter, limit, offset int) ([]Run, error) {
	query := `SELECT id, session_id, source, target, inputs, status, started_at, completed_at, outputs, error, output_dir FROM runs WHERE 1=1`

	var args []any

	if filter.SessionID != "" {
		query += " AND session_id = ?"
		args = append(args, filter.SessionID)
	}

	if filter.Status != "" {
		query += " AND status = ?"
		args = append(args, filter.Status)
	}

	if filter.Target != "" {
		query += " AND target = ?"
		args = append(args, filter.Target)
	}

	if limit <= 0 {
		limit = -1 // SQLite reads a negative LIMIT as no limit.
	}

	query += " ORDER BY started_at DESC LIMIT ? OFFSET ?"
	args = append(args, limit, offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Run

	for rows.Next() {
		var (
			r                      Run
			startedAt, completedAt sql.NullTime
		)

		if err := rows.Scan(&r.ID, &r.SessionID, &r.Source, &r.Target, &r.Inputs, &r.Status,
			&startedAt, &completedAt, &r.Outputs, &r.Error, &r.OutputDir); err != nil {
			return nil, err
		}

		r.StartedAt = startedAt.Time
		r.CompletedAt = completedAt.Time
		out = append(out, r)
	}

	return out, rows.Err()
}

func (s *SQLiteStore) GetRun(ctx context.Context, runID string) (Run, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, session_id, source, target, inputs, status, started_at, completed_at, outputs, error, output_dir
		 FROM runs WHERE id = ?`, runID)

	var (
		r                      Run
		startedAt, completedAt sql.NullTime
	)

	err := row.Scan(&r.ID, &r.SessionID, &r.Source, &r.Target, &r.Inputs, &r.Status,
		&startedAt, &completedAt, &r.Outputs, &r.Error, &r.OutputDir)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, ErrNotFound
	}

	if err != nil {
		return Run{}, err
	}

	r.StartedAt = startedAt.Time
	r.CompletedAt = completedAt.Time

	return r, nil
}

func (s *SQLiteStore) GetSession(ctx context.Context, sessionID string) (Session, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id, command, created_by, created_at FROM sessions WHERE id = ?`, sessionID)

	var sess Session

	err := row.Scan(&sess.ID, &sess.Command, &sess.CreatedBy, &sess.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Session{}, ErrNotFound
	}

	return sess, err
}

func (s *SQLiteStore) RecoverCrashedRuns(ctx context.Context, isAlive func(runID string) bool) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id FROM runs WHERE status = ?`, RunRunning)
	if err != nil {
		return nil, err
	}

	var running []string

	for rows.Next() {
		var id string

		if err := rows.Scan(&id); err != nil {
			rows.Close()

			return nil, err
		}

		running = append(running, id)
	}

	rows.Close()

	var failed []string

	for _, id := range running {
		if isAlive(id) {
			continue
		}

		if err := s.withTx(ctx, func(tx *sql.Tx) error {
			now := time.Now()

			if _, err := tx.ExecContext(ctx, `UPDATE runs SET status = ?, completed_at = ? WHERE id = ?`,
				RunFailed, now, id); err != nil {
				return err
			}

			_, err := tx.ExecContext(ctx, `UPDATE runs SET error = ? WHERE id = ?`, "interrupted", id)

			return err
		}); err != nil {
			return failed, err
		}

		failed = append(failed, id)
	}

	return failed, nil
}

func (s *SQLiteStore) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	if err := fn(tx); err != nil {
		tx.Rollback()

		return err
	}

	return tx.Commit()
}
