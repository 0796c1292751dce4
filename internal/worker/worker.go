// Package worker drives background session processing: a claim loop that
// pulls created sessions and runs the pipeline, and a sweeper that removes
// expired sessions on an interval.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"playbookd/internal/model"
	"playbookd/internal/session"
)

// Runner executes the generation pipeline for a claimed session.
type Runner interface {
	Run(ctx context.Context, sess model.Session) error
}

// Worker polls for created sessions and runs the pipeline on each.
type Worker struct {
	sessions *session.Manager
	runner   Runner
	logger   *slog.Logger
	interval time.Duration
}

// New creates a worker polling at the given interval.
func New(sessions *session.Manager, runner Runner, logger *slog.Logger, interval time.Duration) *Worker {
	return &Worker{sessions: sessions, runner: runner, logger: logger, interval: interval}
}

// Start begins the polling loop. It blocks until ctx is cancelled.
func (w *Worker) Start(ctx context.Context) {
	w.logger.Info("worker started", "interval", w.interval.String())
	for {
		select {
		case <-ctx.Done():
			w.logger.Info("worker stopped")
			return
		default:
		}

		sess, err := w.sessions.ClaimNext(ctx)
		if err != nil {
			w.logger.Error("worker claim error", "error", err)
			w.sleep(ctx)
			continue
		}
		if sess == nil {
			w.sleep(ctx)
			continue
		}

		w.logger.Info("processing session", "session_id", sess.ID, "industry", sess.Request.IndustryFocus)
		if err := w.process(ctx, *sess); err != nil {
			w.logger.Error("pipeline failed", "session_id", sess.ID, "error", err)
			if fErr := w.sessions.Fail(ctx, sess.ID, err); fErr != nil {
				w.logger.Error("failed to mark session failed", "session_id", sess.ID, "error", fErr)
			}
			continue
		}
		w.logger.Info("session completed", "session_id", sess.ID)
	}
}

// process runs one session with panic containment, so a bad payload cannot
// take down the claim loop.
func (w *Worker) process(ctx context.Context, sess model.Session) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("pipeline panic: %v", r)
		}
	}()
	return w.runner.Run(ctx, sess)
}

func (w *Worker) sleep(ctx context.Context) {
	select {
	case <-ctx.Done():
	case <-time.After(w.interval):
	}
}

// Sweeper periodically removes sessions past the retention window.
type Sweeper struct {
	sessions *session.Manager
	logger   *slog.Logger
	interval time.Duration
}

// NewSweeper creates a sweeper running at the given interval.
func NewSweeper(sessions *session.Manager, logger *slog.Logger, interval time.Duration) *Sweeper {
	return &Sweeper{sessions: sessions, logger: logger, interval: interval}
}

// Start begins the sweep loop. It blocks until ctx is cancelled.
func (s *Sweeper) Start(ctx context.Context) {
	s.logger.Info("sweeper started", "interval", s.interval.String())
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("sweeper stopped")
			return
		case <-ticker.C:
			if n := s.sessions.Sweep(ctx); n > 0 {
				s.logger.Info("swept expired sessions", "count", n)
			}
		}
	}
}
