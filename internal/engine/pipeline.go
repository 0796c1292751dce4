// Package engine runs the playbook-generation pipeline: it drives the
// generation collaborator, collects the four stage payloads through the
// artifact-first fallback chain, validates and scores them, and assembles
// the final document.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"playbookd/internal/artifact"
	"playbookd/internal/extract"
	"playbookd/internal/integrate"
	"playbookd/internal/model"
	"playbookd/internal/playbook"
	"playbookd/internal/session"
	"playbookd/internal/validate"
)

// minRecovered is how many stage payloads must survive collection before a
// session can complete.
const minRecovered = 3

// Pipeline orchestrates one session end to end.
type Pipeline struct {
	engine   Engine
	sessions *session.Manager
	logger   *slog.Logger
	timeout  time.Duration
}

// NewPipeline wires a pipeline. A zero timeout leaves the engine run
// unbounded.
func NewPipeline(eng Engine, sessions *session.Manager, logger *slog.Logger, timeout time.Duration) *Pipeline {
	return &Pipeline{engine: eng, sessions: sessions, logger: logger, timeout: timeout}
}

// Run executes the pipeline for a claimed session. Progress checkpoints are
// reported through the session manager; any returned error is the caller's
// cue to fail the session.
func (p *Pipeline) Run(ctx context.Context, sess model.Session) error {
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	p.sessions.Advance(ctx, sess.ID, 5, "Preparing training inputs...")
	in := Inputs{
		SessionID:     sess.ID,
		Industry:      sess.Request.IndustryFocus,
		Region:        sess.Request.RegulatoryFramework,
		Regulatory:    RegulatoryFor(sess.Request.RegulatoryFramework),
		TrainingLevel: sess.Request.TrainingLevel,
		Year:          time.Now().UTC().Format("2006"),
		ArtifactDir:   sess.ArtifactDir,
		BackupDir:     sess.BackupDir,
		LogFile:       sess.LogFile,
	}

	p.sessions.Advance(ctx, sess.ID, 10, "Initializing generation engine...")
	p.sessions.Advance(ctx, sess.ID, 20, "Generation stages running...")

	res, err := p.engine.RunPipeline(ctx, in)
	if err != nil {
		return fmt.Errorf("generation: %w", err)
	}

	p.sessions.Advance(ctx, sess.ID, 60, "Collecting stage artifacts...")
	payloads, err := p.collect(sess, res)
	if err != nil {
		return err
	}

	p.sessions.Advance(ctx, sess.ID, 75, "Validating generated artifacts...")
	valRes := validate.All(sess.ArtifactDir)
	if !valRes.AllValid {
		p.logger.Warn("structural validation issues",
			"session_id", sess.ID, "summary", validate.Summary(valRes))
	}
	quality := validate.ScoreDataset(
		payloads[model.KindScenario], payloads[model.KindProblems],
		payloads[model.KindCorrections], payloads[model.KindImplementation])

	p.sessions.Advance(ctx, sess.ID, 85, "Integrating stage outputs...")
	integrated := integrate.Integrate(
		payloads[model.KindScenario], payloads[model.KindProblems], payloads[model.KindCorrections])
	if len(integrated.Quality.Issues) > 0 {
		p.logger.Info("integration issues",
			"session_id", sess.ID, "issues", strings.Join(integrated.Quality.Issues, "; "))
	}

	p.sessions.Advance(ctx, sess.ID, 95, "Building playbook document...")
	doc := playbook.Build(
		payloads[model.KindScenario], payloads[model.KindProblems],
		payloads[model.KindCorrections], payloads[model.KindImplementation],
		sess.Request, sess.ID, time.Now().UTC())

	outputPath := filepath.Join(sess.ArtifactDir, model.PlaybookFile)
	if err := os.WriteFile(outputPath, []byte(doc), 0o644); err != nil {
		return fmt.Errorf("write playbook: %w", err)
	}

	return p.sessions.Complete(ctx, sess.ID, outputPath, quality.QualityScore, quality.Completeness)
}

// collect gathers the four stage payloads. Artifact files win; a transcript
// scrape fills gaps when the engine ran in degraded mode; backup files are
// the last resort when fewer than minRecovered buckets survive. Recovered
// payloads are written back as artifacts so later readers see one
// consistent directory.
func (p *Pipeline) collect(sess model.Session, res *RunResult) (map[string]model.Payload, error) {
	if n := artifact.CleanupTemp(sess.ArtifactDir); n > 0 {
		p.logger.Warn("removed stale temp files", "session_id", sess.ID, "count", n)
	}

	payloads := map[string]model.Payload{}
	for _, kind := range model.Kinds {
		data, err := artifact.Read(sess.ArtifactDir, model.ArtifactFile(kind))
		if err != nil {
			p.logger.Warn("artifact unreadable", "session_id", sess.ID, "kind", kind, "error", err)
			continue
		}
		if data != nil {
			payloads[kind] = data
		}
	}

	if len(payloads) < len(model.Kinds) && sess.LogFile != "" {
		if _, err := os.Stat(sess.LogFile); err == nil {
			scan := extract.ParseTranscript(sess.LogFile)
			p.logger.Info("transcript scrape",
				"session_id", sess.ID, "recovered", scan.Recovered(), "success", scan.Success)

			if scan.Recovered() < minRecovered {
				scan.Fill(extract.FromBackups(sess.BackupDir))
			}
			for _, kind := range model.Kinds {
				if payloads[kind] == nil && scan.Payload(kind) != nil {
					payloads[kind] = scan.Payload(kind)
				}
			}
		}
	}

	// In-memory engine outputs are the final gap filler.
	for kind, out := range res.Outputs {
		if payloads[kind] == nil && out.Structured() {
			payloads[kind] = out.Payload
		}
	}

	var missing []string
	for _, kind := range model.Kinds {
		if payloads[kind] == nil {
			missing = append(missing, model.ArtifactFile(kind))
			continue
		}
		if !artifact.Exists(sess.ArtifactDir, model.ArtifactFile(kind)) {
			if err := artifact.Write(sess.ArtifactDir, model.ArtifactFile(kind), payloads[kind]); err != nil {
				return nil, fmt.Errorf("persist recovered %s: %w", kind, err)
			}
		}
	}

	if len(payloads) < minRecovered {
		return nil, fmt.Errorf("missing required artifacts: %s", strings.Join(missing, ", "))
	}
	return payloads, nil
}
