package session

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"playbookd/internal/model"
)

// Verify at compile time that SQLStore implements all interfaces.
var (
	_ Reader  = (*SQLStore)(nil)
	_ Writer  = (*SQLStore)(nil)
	_ Claimer = (*SQLStore)(nil)
	_ Sweeper = (*SQLStore)(nil)
)

// SQLStore persists sessions and their progress history in SQLite.
type SQLStore struct {
	db *sql.DB
}

// NewStore creates a SQLStore and initialises the schema.
func NewStore(db *sql.DB) (*SQLStore, error) {
	s := &SQLStore{db: db}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *SQLStore) migrate() error {
	// Ensure the schema_version table exists.
	if _, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS schema_version (version INTEGER NOT NULL)`); err != nil {
		return fmt.Errorf("create schema_version table: %w", err)
	}

	var version int
	err := s.db.QueryRow(`SELECT version FROM schema_version LIMIT 1`).Scan(&version)
	if errors.Is(err, sql.ErrNoRows) {
		// Fresh database: initialize to version 0.
		if _, err := s.db.Exec(`INSERT INTO schema_version (version) VALUES (0)`); err != nil {
			return fmt.Errorf("init schema version: %w", err)
		}
		version = 0
	} else if err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}

	// migrations is an ordered list of migration functions.
	// Index 0 = migration from v0 to v1, etc.
	migrations := []func() error{
		s.migrateV1, // v0 → v1: initial schema
	}

	for i := version; i < len(migrations); i++ {
		if err := migrations[i](); err != nil {
			return fmt.Errorf("migration v%d→v%d: %w", i, i+1, err)
		}
		if _, err := s.db.Exec(`UPDATE schema_version SET version = ?`, i+1); err != nil {
			return fmt.Errorf("update schema version to %d: %w", i+1, err)
		}
	}

	return nil
}

// migrateV1 creates the initial schema (v0 → v1).
func (s *SQLStore) migrateV1() error {
	schema := `
	CREATE TABLE IF NOT EXISTS sessions (
		id                   TEXT PRIMARY KEY,
		status               TEXT NOT NULL,
		progress             INTEGER NOT NULL,
		current_step         TEXT NOT NULL,
		industry_focus       TEXT NOT NULL,
		regulatory_framework TEXT NOT NULL,
		training_level       TEXT NOT NULL,
		artifact_dir         TEXT NOT NULL,
		backup_dir           TEXT NOT NULL,
		log_file             TEXT NOT NULL DEFAULT '',
		output_file          TEXT,
		quality_score        REAL,
		data_completeness    REAL,
		error_info           TEXT,
		created_at           TEXT NOT NULL,
		completed_at         TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_sessions_status ON sessions(status, created_at);

	CREATE TABLE IF NOT EXISTS progress_history (
		session_id  TEXT NOT NULL REFERENCES sessions(id),
		progress    INTEGER NOT NULL,
		step        TEXT NOT NULL,
		recorded_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_progress_session ON progress_history(session_id, recorded_at ASC);
	`
	_, err := s.db.Exec(schema)
	return err
}

const sessionColumns = `id, status, progress, current_step, industry_focus, regulatory_framework, training_level, artifact_dir, backup_dir, log_file, output_file, quality_score, data_completeness, error_info, created_at, completed_at`

// Create inserts a new session.
func (s *SQLStore) Create(ctx context.Context, sess model.Session) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sessions (`+sessionColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sess.ID, sess.Status, sess.Progress, sess.CurrentStep,
		sess.Request.IndustryFocus, sess.Request.RegulatoryFramework, sess.Request.TrainingLevel,
		sess.ArtifactDir, sess.BackupDir, sess.LogFile,
		sess.OutputFile, sess.QualityScore, sess.DataCompleteness, sess.Error,
		sess.CreatedAt, sess.CompletedAt,
	)
	return err
}

// Get returns a session by id, or nil if it does not exist.
func (s *SQLStore) Get(ctx context.Context, id string) (*model.Session, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+sessionColumns+` FROM sessions WHERE id = ?`, id)
	sess, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return sess, err
}

// List returns all sessions, newest first.
func (s *SQLStore) List(ctx context.Context) ([]model.Session, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+sessionColumns+` FROM sessions ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectSessions(rows)
}

// UpdateProgress records a checkpoint: the session row is updated and the
// checkpoint appended to the history table.
func (s *SQLStore) UpdateProgress(ctx context.Context, id string, progress int, step string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`UPDATE sessions SET progress = ?, current_step = ?, status = ? WHERE id = ?`,
		progress, step, model.StatusRunning, id,
	); err != nil {
		return fmt.Errorf("update session: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO progress_history (session_id, progress, step, recorded_at) VALUES (?, ?, ?, ?)`,
		id, progress, step, time.Now().UTC().Format(time.RFC3339),
	); err != nil {
		return fmt.Errorf("append progress: %w", err)
	}

	return tx.Commit()
}

// MarkCompleted moves a session to the completed state with its result
// pointers.
func (s *SQLStore) MarkCompleted(ctx context.Context, id, outputFile string, quality, completeness float64) error {
	now := time.Now().UTC().Format(time.RFC3339)
	_, err := s.db.ExecContext(ctx, `
		UPDATE sessions
		SET status = ?, progress = 100, current_step = ?, output_file = ?,
		    quality_score = ?, data_completeness = ?, completed_at = ?
		WHERE id = ?`,
		model.StatusCompleted, "Training playbook completed successfully!",
		outputFile, quality, completeness, now, id,
	)
	return err
}

// MarkFailed moves a session to the failed state. Progress resets to zero so
// a failed session is never mistaken for a partially successful one.
func (s *SQLStore) MarkFailed(ctx context.Context, id, errorInfo string) error {
	now := time.Now().UTC().Format(time.RFC3339)
	_, err := s.db.ExecContext(ctx, `
		UPDATE sessions
		SET status = ?, progress = 0, current_step = ?, error_info = ?, completed_at = ?
		WHERE id = ?`,
		model.StatusFailed, "Training generation failed", errorInfo, now, id,
	)
	return err
}

// ClaimNextCreated atomically picks the oldest created session and sets it
// to running. Returns nil if no session is waiting.
func (s *SQLStore) ClaimNextCreated(ctx context.Context) (*model.Session, error) {
	row := s.db.QueryRowContext(ctx, `
		UPDATE sessions SET status = ?, current_step = ?
		WHERE id = (SELECT id FROM sessions WHERE status = ? ORDER BY created_at ASC LIMIT 1)
		RETURNING `+sessionColumns,
		model.StatusRunning, "Starting pipeline...", model.StatusCreated,
	)
	sess, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return sess, err
}

// ResetStaleRunning resets any running sessions back to created (for server
// restart) so the worker claims them again.
func (s *SQLStore) ResetStaleRunning(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE sessions SET status = ?, progress = 0, current_step = ? WHERE status = ?`,
		model.StatusCreated, "Re-queued after restart", model.StatusRunning,
	)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// ListExpired returns sessions created before the cutoff timestamp.
func (s *SQLStore) ListExpired(ctx context.Context, cutoff string) ([]model.Session, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+sessionColumns+` FROM sessions WHERE created_at < ? ORDER BY created_at ASC`, cutoff)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectSessions(rows)
}

// Delete removes a session and its progress history.
func (s *SQLStore) Delete(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM progress_history WHERE session_id = ?`, id); err != nil {
		return fmt.Errorf("delete progress history: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}

	return tx.Commit()
}

// ProgressHistory returns a session's recorded checkpoints in order.
func (s *SQLStore) ProgressHistory(ctx context.Context, id string) ([]model.ProgressEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT session_id, progress, step, recorded_at FROM progress_history WHERE session_id = ? ORDER BY recorded_at ASC`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []model.ProgressEntry
	for rows.Next() {
		var e model.ProgressEntry
		if err := rows.Scan(&e.SessionID, &e.Progress, &e.Step, &e.Timestamp); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// ---------------------------------------------------------------------------
// helpers
// ---------------------------------------------------------------------------

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanSession(row scanner) (*model.Session, error) {
	var sess model.Session
	err := row.Scan(
		&sess.ID, &sess.Status, &sess.Progress, &sess.CurrentStep,
		&sess.Request.IndustryFocus, &sess.Request.RegulatoryFramework, &sess.Request.TrainingLevel,
		&sess.ArtifactDir, &sess.BackupDir, &sess.LogFile,
		&sess.OutputFile, &sess.QualityScore, &sess.DataCompleteness, &sess.Error,
		&sess.CreatedAt, &sess.CompletedAt,
	)
	if err != nil {
		return nil, err
	}
	return &sess, nil
}

func collectSessions(rows *sql.Rows) ([]model.Session, error) {
	var sessions []model.Session
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, *sess)
	}
	return sessions, rows.Err()
}
