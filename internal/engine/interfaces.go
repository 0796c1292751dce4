package engine

import (
	"context"

	"playbookd/internal/model"
)

// ModelClient abstracts LLM calls. Implementations can wrap any
// OpenAI-compatible service or a local Ollama instance.
type ModelClient interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// RegulatoryDetails describes the compliance landscape for one region.
type RegulatoryDetails struct {
	Regulations      string `json:"regulations"`
	Description      string `json:"description"`
	EnforcementFocus string `json:"enforcement_focus"`
}

// Inputs carries everything an engine needs for one generation run.
type Inputs struct {
	SessionID     string
	Industry      string
	Region        string
	Regulatory    RegulatoryDetails
	TrainingLevel string
	Year          string
	ArtifactDir   string
	BackupDir     string
	LogFile       string
}

// TaskOutput is one stage's result: a structured payload when the stage's
// output parsed, otherwise the raw text for downstream recovery.
type TaskOutput struct {
	Payload model.Payload
	Raw     string
}

// Structured reports whether the stage produced a parseable payload.
func (o TaskOutput) Structured() bool { return o.Payload != nil }

// RunResult is what an engine hands back after a run. Engines are also
// expected to write artifact files directly (and stage backups) when they
// can; WroteArtifacts and WroteTranscript say which on-disk sources exist.
type RunResult struct {
	Outputs         map[string]TaskOutput
	WroteArtifacts  bool
	WroteTranscript bool
}

// Engine is the opaque generation collaborator the pipeline drives. It
// produces the four stage payloads for a session, by whatever means.
type Engine interface {
	RunPipeline(ctx context.Context, in Inputs) (*RunResult, error)
}
