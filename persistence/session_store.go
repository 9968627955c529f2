// Package persistence stores finished sessions for later diagnosis.
package persistence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/assix/software-engineer-ai-agent/agent"
)

// SessionSummary is the list view of a stored session.
type SessionSummary struct {
	ID         string
	Task       string
	Outcome    string
	Attempts   int
	Iterations int
	Heals      int
	FinalError string
	StartedAt  time.Time
	FinishedAt time.Time
}

// AttemptRecord is one stored attempt row.
type AttemptRecord struct {
	Seq            int
	Script         string
	Classification string
	Package        string
	Stdout         string
	Stderr         string
	Healed         bool
	HealDetail     string
}

// SessionStore persists sessions and their attempts in a SQLite database.
type SessionStore struct {
	db *sql.DB
}

// OpenSessionStore opens/creates the database at dbPath.
func OpenSessionStore(dbPath string) (*SessionStore, error) {
	if dbPath == "" {
		return nil, errors.New("session store path required")
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		return nil, err
	}
	store := &SessionStore{db: db}
	if err := store.initSchema(); err != nil {
		return nil, err
	}
	return store, nil
}

func (s *SessionStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS sessions (
		id TEXT PRIMARY KEY,
		task TEXT NOT NULL,
		outcome TEXT NOT NULL,
		attempts INTEGER,
		iterations INTEGER,
		heals INTEGER,
		final_error TEXT,
		started_at TIMESTAMP,
		finished_at TIMESTAMP
	);
	CREATE TABLE IF NOT EXISTS attempts (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id TEXT NOT NULL,
		seq INTEGER NOT NULL,
		script TEXT,
		classification TEXT,
		package TEXT,
		stdout TEXT,
		stderr TEXT,
		healed BOOLEAN,
		heal_detail TEXT,
		FOREIGN KEY(session_id) REFERENCES sessions(id) ON DELETE CASCADE
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Close releases the underlying database handle.
func (s *SessionStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Save upserts the session and replaces its attempt rows.
func (s *SessionStore) Save(ctx context.Context, session *agent.Session) error {
	if session == nil {
		return errors.New("session required")
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
	INSERT INTO sessions (id, task, outcome, attempts, iterations, heals, final_error, started_at, finished_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		outcome=excluded.outcome,
		attempts=excluded.attempts,
		iterations=excluded.iterations,
		heals=excluded.heals,
		final_error=excluded.final_error,
		finished_at=excluded.finished_at`,
		session.ID,
		session.Task,
		string(session.Outcome),
		len(session.Attempts),
		session.Iterations,
		session.HealCount(),
		session.FinalError,
		session.StartedAt,
		session.FinishedAt,
	)
	if err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM attempts WHERE session_id = ?`, session.ID); err != nil {
		return err
	}
	for _, att := range session.Attempts {
		rec := flattenAttempt(att)
		_, err := tx.ExecContext(ctx, `
		INSERT INTO attempts (session_id, seq, script, classification, package, stdout, stderr, healed, heal_detail)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			session.ID, rec.Seq, rec.Script, rec.Classification, rec.Package,
			rec.Stdout, rec.Stderr, rec.Healed, rec.HealDetail,
		)
		if err != nil {
			return fmt.Errorf("save attempt %d: %w", att.Seq, err)
		}
	}
	return tx.Commit()
}

// Recent returns the newest sessions, most recent first.
func (s *SessionStore) Recent(ctx context.Context, limit int) ([]SessionSummary, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `
	SELECT id, task, outcome, attempts, iterations, heals, final_error, started_at, finished_at
	FROM sessions ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []SessionSummary
	for rows.Next() {
		var sum SessionSummary
		if err := rows.Scan(&sum.ID, &sum.Task, &sum.Outcome, &sum.Attempts, &sum.Iterations,
			&sum.Heals, &sum.FinalError, &sum.StartedAt, &sum.FinishedAt); err != nil {
			return nil, err
		}
		out = append(out, sum)
	}
	return out, rows.Err()
}

// AttemptsFor returns the stored attempt rows of one session in order.
func (s *SessionStore) AttemptsFor(ctx context.Context, sessionID string) ([]AttemptRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
	SELECT seq, script, classification, package, stdout, stderr, healed, heal_detail
	FROM attempts WHERE session_id = ? ORDER BY seq`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []AttemptRecord
	for rows.Next() {
		var rec AttemptRecord
		if err := rows.Scan(&rec.Seq, &rec.Script, &rec.Classification, &rec.Package,
			&rec.Stdout, &rec.Stderr, &rec.Healed, &rec.HealDetail); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// flattenAttempt reduces an attempt to its last execution plus heal status,
// which is what post-mortem diagnosis needs.
func flattenAttempt(att *agent.Attempt) AttemptRecord {
	rec := AttemptRecord{
		Seq:    att.Seq,
		Script: att.Script,
	}
	if exec := att.LastExecution(); exec != nil {
		rec.Classification = string(exec.Failure)
		rec.Package = exec.Package
		rec.Stdout = exec.Stdout
		rec.Stderr = exec.Stderr
	} else {
		rec.Classification = "sanitize_" + att.SanitizeVerdict.String()
	}
	for _, h := range att.Heals {
		rec.Healed = rec.Healed || h.Applied
		rec.HealDetail = h.Detail
	}
	return rec
}
