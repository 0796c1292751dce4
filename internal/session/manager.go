// Package session owns the session lifecycle: creation, progress
// bookkeeping, terminal transitions, retention sweeps and post-download
// purging. All state lives in the Store; the Manager is the only writer
// once a session exists.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"playbookd/internal/model"
)

// Manager drives session state transitions and on-disk cleanup.
type Manager struct {
	store      Store
	logger     *slog.Logger
	outputsDir string
	retention  time.Duration
	purgeDelay time.Duration
}

// NewManager wires a Manager. outputsDir is the root under which each
// session gets its own directory; retention bounds session age before a
// sweep removes it; purgeDelay is how long a downloaded session lingers
// before its purge fires.
func NewManager(store Store, logger *slog.Logger, outputsDir string, retention, purgeDelay time.Duration) *Manager {
	return &Manager{
		store:      store,
		logger:     logger,
		outputsDir: outputsDir,
		retention:  retention,
		purgeDelay: purgeDelay,
	}
}

// Create registers a new session in the created state and prepares its
// directory layout.
func (m *Manager) Create(ctx context.Context, req model.TrainingRequest) (model.Session, error) {
	id := uuid.NewString()
	sessionDir := filepath.Join(m.outputsDir, id)

	sess := model.NewSession(id, req,
		filepath.Join(sessionDir, "artifacts"),
		filepath.Join(sessionDir, "backups"),
	)
	sess.LogFile = filepath.Join(sessionDir, "session.log")

	for _, dir := range []string{sess.ArtifactDir, sess.BackupDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return model.Session{}, fmt.Errorf("create session dir: %w", err)
		}
	}

	if err := m.store.Create(ctx, sess); err != nil {
		os.RemoveAll(sessionDir)
		return model.Session{}, fmt.Errorf("persist session: %w", err)
	}

	m.logger.Info("session created", "session_id", id, "industry", req.IndustryFocus)
	return sess, nil
}

// Get returns a session by id, or nil when unknown.
func (m *Manager) Get(ctx context.Context, id string) (*model.Session, error) {
	return m.store.Get(ctx, id)
}

// List returns all sessions, newest first.
func (m *Manager) List(ctx context.Context) ([]model.Session, error) {
	return m.store.List(ctx)
}

// ProgressHistory returns a session's recorded checkpoints.
func (m *Manager) ProgressHistory(ctx context.Context, id string) ([]model.ProgressEntry, error) {
	return m.store.ProgressHistory(ctx, id)
}

// Advance records a pipeline progress checkpoint. Unknown and terminal
// sessions are a no-op; progress never moves backwards.
func (m *Manager) Advance(ctx context.Context, id string, progress int, step string) {
	sess, err := m.store.Get(ctx, id)
	if err != nil {
		m.logger.Error("progress lookup failed", "session_id", id, "error", err)
		return
	}
	if sess == nil || sess.Terminal() {
		return
	}
	if progress < sess.Progress {
		progress = sess.Progress
	}

	if err := m.store.UpdateProgress(ctx, id, progress, step); err != nil {
		m.logger.Error("progress update failed", "session_id", id, "error", err)
		return
	}
	m.logger.Info("session progress", "session_id", id, "progress", progress, "step", step)
}

// Complete moves a session to the completed state.
func (m *Manager) Complete(ctx context.Context, id, outputFile string, quality, completeness float64) error {
	if err := m.store.MarkCompleted(ctx, id, outputFile, quality, completeness); err != nil {
		return fmt.Errorf("mark completed: %w", err)
	}
	m.logger.Info("session completed", "session_id", id, "quality_score", quality)
	return nil
}

// Fail moves a session to the failed state with its error message.
func (m *Manager) Fail(ctx context.Context, id string, cause error) error {
	if err := m.store.MarkFailed(ctx, id, cause.Error()); err != nil {
		return fmt.Errorf("mark failed: %w", err)
	}
	m.logger.Warn("session failed", "session_id", id, "error", cause)
	return nil
}

// ClaimNext hands the oldest waiting session to the worker, or nil.
func (m *Manager) ClaimNext(ctx context.Context) (*model.Session, error) {
	return m.store.ClaimNextCreated(ctx)
}

// ResetStale re-queues sessions that were mid-run when the server last
// stopped. Called once at startup.
func (m *Manager) ResetStale(ctx context.Context) error {
	n, err := m.store.ResetStaleRunning(ctx)
	if err != nil {
		return fmt.Errorf("reset stale sessions: %w", err)
	}
	if n > 0 {
		m.logger.Info("re-queued interrupted sessions", "count", n)
	}
	return nil
}

// Sweep deletes every session older than the retention window along with
// its on-disk files. Individual file failures are logged and skipped so one
// bad file never blocks the rest of the sweep. Returns how many sessions
// were removed.
func (m *Manager) Sweep(ctx context.Context) int {
	cutoff := time.Now().UTC().Add(-m.retention).Format(time.RFC3339)
	expired, err := m.store.ListExpired(ctx, cutoff)
	if err != nil {
		m.logger.Error("sweep query failed", "error", err)
		return 0
	}

	removed := 0
	for _, sess := range expired {
		m.removeFiles(sess)
		if err := m.store.Delete(ctx, sess.ID); err != nil {
			m.logger.Error("sweep delete failed", "session_id", sess.ID, "error", err)
			continue
		}
		removed++
	}
	if removed > 0 {
		m.logger.Info("swept expired sessions", "count", removed)
	}
	return removed
}

// PurgeAfterDownload schedules removal of a downloaded session. The delay
// gives the response body time to finish streaming.
func (m *Manager) PurgeAfterDownload(id string) {
	time.AfterFunc(m.purgeDelay, func() {
		ctx := context.Background()
		sess, err := m.store.Get(ctx, id)
		if err != nil || sess == nil {
			return
		}
		m.removeFiles(*sess)
		if err := m.store.Delete(ctx, id); err != nil {
			m.logger.Error("post-download purge failed", "session_id", id, "error", err)
			return
		}
		m.logger.Info("purged downloaded session", "session_id", id)
	})
}

// removeFiles deletes a session's output file and directory tree. Failures
// are logged, never returned.
func (m *Manager) removeFiles(sess model.Session) {
	if sess.OutputFile != nil {
		if err := os.Remove(*sess.OutputFile); err != nil && !os.IsNotExist(err) {
			m.logger.Warn("could not remove output file", "session_id", sess.ID, "error", err)
		}
	}
	sessionDir := filepath.Dir(sess.ArtifactDir)
	if sessionDir == "." || sessionDir == string(filepath.Separator) {
		return
	}
	if err := os.RemoveAll(sessionDir); err != nil {
		m.logger.Warn("could not remove session directory", "session_id", sess.ID, "error", err)
	}
}
