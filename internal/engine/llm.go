package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"playbookd/internal/artifact"
	"playbookd/internal/extract"
	"playbookd/internal/model"
)

// LLMEngine drives the four generation stages against a ModelClient,
// feeding each stage the structured output of the ones before it. Every
// parsed stage is persisted immediately as an artifact plus a backup, so a
// later stage failure never loses earlier work.
type LLMEngine struct {
	client ModelClient
	logger *slog.Logger
}

var _ Engine = (*LLMEngine)(nil)

// NewLLMEngine creates an engine backed by the given model client.
func NewLLMEngine(client ModelClient, logger *slog.Logger) *LLMEngine {
	return &LLMEngine{client: client, logger: logger}
}

// StageError wraps an error with the generation stage that failed.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string { return e.Stage + ": " + e.Err.Error() }
func (e *StageError) Unwrap() error { return e.Err }

// RunPipeline executes the staged prompts in order. The first stage failure
// aborts the run; artifacts written so far stay on disk for the fallback
// collection paths.
func (e *LLMEngine) RunPipeline(ctx context.Context, in Inputs) (*RunResult, error) {
	outputs := map[string]TaskOutput{}

	scenario, err := e.runStage(ctx, in, model.KindScenario, buildScenarioPrompt(in), outputs)
	if err != nil {
		return &RunResult{Outputs: outputs, WroteArtifacts: true}, err
	}

	problems, err := e.runStage(ctx, in, model.KindProblems, buildProblemsPrompt(in, scenario), outputs)
	if err != nil {
		return &RunResult{Outputs: outputs, WroteArtifacts: true}, err
	}

	if _, err := e.runStage(ctx, in, model.KindCorrections, buildCorrectionsPrompt(in, problems), outputs); err != nil {
		return &RunResult{Outputs: outputs, WroteArtifacts: true}, err
	}

	if _, err := e.runStage(ctx, in, model.KindImplementation, buildImplementationPrompt(in, scenario), outputs); err != nil {
		return &RunResult{Outputs: outputs, WroteArtifacts: true}, err
	}

	return &RunResult{Outputs: outputs, WroteArtifacts: true}, nil
}

func (e *LLMEngine) runStage(ctx context.Context, in Inputs, kind, prompt string, outputs map[string]TaskOutput) (model.Payload, error) {
	e.logger.Info("running generation stage", "session_id", in.SessionID, "stage", kind)

	raw, err := e.client.Complete(ctx, prompt)
	if err != nil {
		return nil, &StageError{Stage: kind, Err: err}
	}

	payload, err := decodeStagePayload(raw)
	if err != nil {
		outputs[kind] = TaskOutput{Raw: raw}
		return nil, &StageError{Stage: kind, Err: err}
	}
	outputs[kind] = TaskOutput{Payload: payload}

	if err := artifact.Write(in.ArtifactDir, model.ArtifactFile(kind), payload); err != nil {
		return nil, &StageError{Stage: kind, Err: err}
	}
	if err := artifact.Write(in.BackupDir, extract.BackupFile(kind), payload); err != nil {
		e.logger.Warn("stage backup write failed", "stage", kind, "error", err)
	}

	return payload, nil
}

// decodeStagePayload parses a model response as a JSON object, tolerating a
// surrounding markdown code fence.
func decodeStagePayload(raw string) (model.Payload, error) {
	text := strings.TrimSpace(raw)
	if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```json")
		text = strings.TrimPrefix(text, "```")
		if end := strings.LastIndex(text, "```"); end != -1 {
			text = text[:end]
		}
		text = strings.TrimSpace(text)
	}

	var payload model.Payload
	if err := json.Unmarshal([]byte(text), &payload); err != nil {
		return nil, fmt.Errorf("stage output is not a JSON object: %w", err)
	}
	return payload, nil
}
