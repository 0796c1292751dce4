package session

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"playbookd/internal/model"
)

func newTestManager(t *testing.T, retention time.Duration) (*Manager, *SQLStore, string) {
	t.Helper()
	store := newTestStore(t)
	outputs := t.TempDir()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewManager(store, logger, outputs, retention, 10*time.Millisecond), store, outputs
}

func testRequest() model.TrainingRequest {
	return model.TrainingRequest{
		IndustryFocus:       "retail",
		RegulatoryFramework: "EU",
		TrainingLevel:       "intermediate",
	}
}

func TestManagerCreateLaysOutDirectories(t *testing.T) {
	m, _, outputs := newTestManager(t, 4*time.Hour)

	sess, err := m.Create(context.Background(), testRequest())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if sess.ID == "" {
		t.Fatal("empty session id")
	}
	for _, dir := range []string{sess.ArtifactDir, sess.BackupDir} {
		if fi, err := os.Stat(dir); err != nil || !fi.IsDir() {
			t.Errorf("missing directory %s: %v", dir, err)
		}
	}
	if filepath.Dir(filepath.Dir(sess.ArtifactDir)) != outputs {
		t.Errorf("artifact dir %s not under outputs root %s", sess.ArtifactDir, outputs)
	}
}

func TestManagerAdvanceMonotonic(t *testing.T) {
	m, _, _ := newTestManager(t, 4*time.Hour)
	ctx := context.Background()
	sess, err := m.Create(ctx, testRequest())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	m.Advance(ctx, sess.ID, 40, "Generating problematic messages...")
	m.Advance(ctx, sess.ID, 20, "a stale callback arrives late")

	got, _ := m.Get(ctx, sess.ID)
	if got.Progress != 40 {
		t.Errorf("Progress = %d, want 40 (must not move backwards)", got.Progress)
	}
	if got.Status != model.StatusRunning {
		t.Errorf("Status = %q, want running", got.Status)
	}
}

func TestManagerAdvanceUnknownSessionNoop(t *testing.T) {
	m, _, _ := newTestManager(t, 4*time.Hour)
	// Must not panic or create anything.
	m.Advance(context.Background(), "ghost", 50, "phantom step")

	sessions, err := m.List(context.Background())
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(sessions) != 0 {
		t.Errorf("sessions = %d, want 0", len(sessions))
	}
}

func TestManagerAdvanceTerminalNoop(t *testing.T) {
	m, _, _ := newTestManager(t, 4*time.Hour)
	ctx := context.Background()
	sess, _ := m.Create(ctx, testRequest())
	if err := m.Fail(ctx, sess.ID, errors.New("stage timeout")); err != nil {
		t.Fatalf("Fail: %v", err)
	}

	m.Advance(ctx, sess.ID, 90, "late callback")

	got, _ := m.Get(ctx, sess.ID)
	if got.Status != model.StatusFailed {
		t.Errorf("Status = %q, want failed", got.Status)
	}
	if got.Progress != 0 {
		t.Errorf("Progress = %d, want 0 after failure", got.Progress)
	}
}

func TestManagerSweepRemovesSessionAndFiles(t *testing.T) {
	m, store, _ := newTestManager(t, time.Hour)
	ctx := context.Background()
	sess, _ := m.Create(ctx, testRequest())

	output := filepath.Join(sess.ArtifactDir, model.PlaybookFile)
	if err := os.WriteFile(output, []byte("# playbook"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if err := m.Complete(ctx, sess.ID, output, 80, 100); err != nil {
		t.Fatalf("Complete: %v", err)
	}

	// Age the session past the retention window.
	old := time.Now().UTC().Add(-2 * time.Hour).Format(time.RFC3339)
	if _, err := store.db.Exec(`UPDATE sessions SET created_at = ? WHERE id = ?`, old, sess.ID); err != nil {
		t.Fatalf("age session: %v", err)
	}

	if n := m.Sweep(ctx); n != 1 {
		t.Fatalf("Sweep = %d, want 1", n)
	}

	if got, _ := m.Get(ctx, sess.ID); got != nil {
		t.Error("session row survived sweep")
	}
	sessionDir := filepath.Dir(sess.ArtifactDir)
	if _, err := os.Stat(sessionDir); !os.IsNotExist(err) {
		t.Errorf("session directory survived sweep: %v", err)
	}
}

func TestManagerSweepKeepsFreshSessions(t *testing.T) {
	m, _, _ := newTestManager(t, time.Hour)
	ctx := context.Background()
	sess, _ := m.Create(ctx, testRequest())

	if n := m.Sweep(ctx); n != 0 {
		t.Errorf("Sweep = %d, want 0", n)
	}
	if got, _ := m.Get(ctx, sess.ID); got == nil {
		t.Error("fresh session swept")
	}
}

func TestManagerPurgeAfterDownload(t *testing.T) {
	m, _, _ := newTestManager(t, 4*time.Hour)
	ctx := context.Background()
	sess, _ := m.Create(ctx, testRequest())

	m.PurgeAfterDownload(sess.ID)

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if got, _ := m.Get(ctx, sess.ID); got == nil {
			sessionDir := filepath.Dir(sess.ArtifactDir)
			if _, err := os.Stat(sessionDir); !os.IsNotExist(err) {
				t.Fatalf("session directory survived purge: %v", err)
			}
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatal("session not purged before deadline")
}
