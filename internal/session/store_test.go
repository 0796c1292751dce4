package session

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"playbookd/internal/model"
)

func newTestStore(t *testing.T) *SQLStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	db, err := OpenSQLite(dbPath)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	s, err := NewStore(db)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	return s
}

func makeSession(id string) model.Session {
	return model.NewSession(id, model.TrainingRequest{
		IndustryFocus:       "retail",
		RegulatoryFramework: "EU",
		TrainingLevel:       "intermediate",
	}, "/tmp/"+id+"/artifacts", "/tmp/"+id+"/backups")
}

func TestCreateAndGet(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.Create(ctx, makeSession("sess-1")); err != nil {
		t.Fatalf("Create: %v", err)
	}

	got, err := s.Get(ctx, "sess-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got == nil {
		t.Fatal("Get returned nil for existing session")
	}
	if got.Status != model.StatusCreated {
		t.Errorf("Status = %q, want %q", got.Status, model.StatusCreated)
	}
	if got.Request.IndustryFocus != "retail" {
		t.Errorf("IndustryFocus = %q, want retail", got.Request.IndustryFocus)
	}
	if got.OutputFile != nil || got.Error != nil {
		t.Error("fresh session has non-nil result pointers")
	}
}

func TestGetUnknownReturnsNil(t *testing.T) {
	s := newTestStore(t)
	got, err := s.Get(context.Background(), "nope")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got != nil {
		t.Errorf("got = %v, want nil", got)
	}
}

func TestUpdateProgressRecordsHistory(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	if err := s.Create(ctx, makeSession("sess-1")); err != nil {
		t.Fatalf("Create: %v", err)
	}

	for _, step := range []struct {
		progress int
		label    string
	}{
		{5, "Initializing pipeline..."},
		{20, "Creating business scenario..."},
	} {
		if err := s.UpdateProgress(ctx, "sess-1", step.progress, step.label); err != nil {
			t.Fatalf("UpdateProgress: %v", err)
		}
	}

	got, err := s.Get(ctx, "sess-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Status != model.StatusRunning {
		t.Errorf("Status = %q, want running", got.Status)
	}
	if got.Progress != 20 {
		t.Errorf("Progress = %d, want 20", got.Progress)
	}

	history, err := s.ProgressHistory(ctx, "sess-1")
	if err != nil {
		t.Fatalf("ProgressHistory: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("history = %d entries, want 2", len(history))
	}
	if history[1].Step != "Creating business scenario..." {
		t.Errorf("last step = %q", history[1].Step)
	}
}

func TestMarkCompleted(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	if err := s.Create(ctx, makeSession("sess-1")); err != nil {
		t.Fatalf("Create: %v", err)
	}

	if err := s.MarkCompleted(ctx, "sess-1", "/tmp/sess-1/artifacts/playbook.md", 87.5, 100); err != nil {
		t.Fatalf("MarkCompleted: %v", err)
	}

	got, _ := s.Get(ctx, "sess-1")
	if got.Status != model.StatusCompleted || got.Progress != 100 {
		t.Errorf("Status=%q Progress=%d", got.Status, got.Progress)
	}
	if got.OutputFile == nil || *got.OutputFile != "/tmp/sess-1/artifacts/playbook.md" {
		t.Errorf("OutputFile = %v", got.OutputFile)
	}
	if got.QualityScore == nil || *got.QualityScore != 87.5 {
		t.Errorf("QualityScore = %v", got.QualityScore)
	}
	if got.CompletedAt == nil {
		t.Error("CompletedAt = nil")
	}
}

func TestMarkFailedResetsProgress(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	if err := s.Create(ctx, makeSession("sess-1")); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := s.UpdateProgress(ctx, "sess-1", 60, "Generating corrections..."); err != nil {
		t.Fatalf("UpdateProgress: %v", err)
	}

	if err := s.MarkFailed(ctx, "sess-1", "pipeline exploded"); err != nil {
		t.Fatalf("MarkFailed: %v", err)
	}

	got, _ := s.Get(ctx, "sess-1")
	if got.Status != model.StatusFailed {
		t.Errorf("Status = %q, want failed", got.Status)
	}
	if got.Progress != 0 {
		t.Errorf("Progress = %d, want 0", got.Progress)
	}
	if got.Error == nil || *got.Error != "pipeline exploded" {
		t.Errorf("Error = %v", got.Error)
	}
}

func TestClaimNextCreated(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	first := makeSession("sess-1")
	first.CreatedAt = time.Now().UTC().Add(-time.Minute).Format(time.RFC3339)
	if err := s.Create(ctx, first); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := s.Create(ctx, makeSession("sess-2")); err != nil {
		t.Fatalf("Create: %v", err)
	}

	claimed, err := s.ClaimNextCreated(ctx)
	if err != nil {
		t.Fatalf("ClaimNextCreated: %v", err)
	}
	if claimed == nil || claimed.ID != "sess-1" {
		t.Fatalf("claimed = %v, want sess-1", claimed)
	}
	if claimed.Status != model.StatusRunning {
		t.Errorf("Status = %q, want running", claimed.Status)
	}

	// Second claim gets the remaining session; third comes up empty.
	if claimed, _ = s.ClaimNextCreated(ctx); claimed == nil || claimed.ID != "sess-2" {
		t.Fatalf("second claim = %v, want sess-2", claimed)
	}
	if claimed, _ = s.ClaimNextCreated(ctx); claimed != nil {
		t.Errorf("third claim = %v, want nil", claimed)
	}
}

func TestResetStaleRunning(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	if err := s.Create(ctx, makeSession("sess-1")); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := s.ClaimNextCreated(ctx); err != nil {
		t.Fatalf("claim: %v", err)
	}

	n, err := s.ResetStaleRunning(ctx)
	if err != nil {
		t.Fatalf("ResetStaleRunning: %v", err)
	}
	if n != 1 {
		t.Errorf("reset = %d, want 1", n)
	}
	got, _ := s.Get(ctx, "sess-1")
	if got.Status != model.StatusCreated {
		t.Errorf("Status = %q, want created", got.Status)
	}
}

func TestListExpired(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	old := makeSession("sess-old")
	old.CreatedAt = time.Now().UTC().Add(-5 * time.Hour).Format(time.RFC3339)
	if err := s.Create(ctx, old); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := s.Create(ctx, makeSession("sess-new")); err != nil {
		t.Fatalf("Create: %v", err)
	}

	cutoff := time.Now().UTC().Add(-4 * time.Hour).Format(time.RFC3339)
	expired, err := s.ListExpired(ctx, cutoff)
	if err != nil {
		t.Fatalf("ListExpired: %v", err)
	}
	if len(expired) != 1 || expired[0].ID != "sess-old" {
		t.Errorf("expired = %v, want only sess-old", expired)
	}
}

func TestDeleteRemovesHistory(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	if err := s.Create(ctx, makeSession("sess-1")); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := s.UpdateProgress(ctx, "sess-1", 10, "working"); err != nil {
		t.Fatalf("UpdateProgress: %v", err)
	}

	if err := s.Delete(ctx, "sess-1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	got, _ := s.Get(ctx, "sess-1")
	if got != nil {
		t.Errorf("session still present after delete: %v", got)
	}
	history, err := s.ProgressHistory(ctx, "sess-1")
	if err != nil {
		t.Fatalf("ProgressHistory: %v", err)
	}
	if len(history) != 0 {
		t.Errorf("history = %d entries after delete, want 0", len(history))
	}
}
