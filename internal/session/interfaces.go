package session

import (
	"context"

	"playbookd/internal/model"
)

// Reader provides read access to sessions.
type Reader interface {
	Get(ctx context.Context, id string) (*model.Session, error)
	List(ctx context.Context) ([]model.Session, error)
	ProgressHistory(ctx context.Context, id string) ([]model.ProgressEntry, error)
}

// Writer provides write access to sessions.
type Writer interface {
	Create(ctx context.Context, s model.Session) error
	UpdateProgress(ctx context.Context, id string, progress int, step string) error
	MarkCompleted(ctx context.Context, id, outputFile string, quality, completeness float64) error
	MarkFailed(ctx context.Context, id, errorInfo string) error
	Delete(ctx context.Context, id string) error
}

// Claimer provides atomic claim operations for background processing.
type Claimer interface {
	ClaimNextCreated(ctx context.Context) (*model.Session, error)
	ResetStaleRunning(ctx context.Context) (int64, error)
}

// Sweeper lists sessions past the retention window.
type Sweeper interface {
	ListExpired(ctx context.Context, cutoff string) ([]model.Session, error)
}

// Store combines all session persistence operations.
type Store interface {
	Reader
	Writer
	Claimer
	Sweeper
}
