package model

import "time"

// Session status constants
const (
	StatusCreated   = "created"
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// TrainingRequest is the caller's description of the playbook to generate.
type TrainingRequest struct {
	IndustryFocus       string `json:"industry_focus" validate:"required"`
	RegulatoryFramework string `json:"regulatory_framework" validate:"required"`
	TrainingLevel       string `json:"training_level" validate:"required"`
}

// Session represents one tracked run of the playbook-generation pipeline,
// from request to terminal state.
type Session struct {
	ID               string          `json:"id"`
	Status           string          `json:"status"`
	Progress         int             `json:"progress"`
	CurrentStep      string          `json:"current_step"`
	Request          TrainingRequest `json:"request"`
	ArtifactDir      string          `json:"artifact_directory"`
	BackupDir        string          `json:"backup_directory"`
	LogFile          string          `json:"log_file,omitempty"`
	OutputFile       *string         `json:"output_file,omitempty"`
	QualityScore     *float64        `json:"quality_score,omitempty"`
	DataCompleteness *float64        `json:"data_completeness,omitempty"`
	Error            *string         `json:"error,omitempty"`
	CreatedAt        string          `json:"created_at"`
	CompletedAt      *string         `json:"completed_at,omitempty"`
}

// Terminal reports whether the session has reached a final state.
func (s *Session) Terminal() bool {
	return s.Status == StatusCompleted || s.Status == StatusFailed
}

// ProgressEntry is one checkpoint in a session's progress history.
type ProgressEntry struct {
	SessionID string `json:"session_id"`
	Progress  int    `json:"progress"`
	Step      string `json:"step"`
	Timestamp string `json:"timestamp"`
}

// NewSession creates a Session in the created state.
func NewSession(id string, req TrainingRequest, artifactDir, backupDir string) Session {
	return Session{
		ID:          id,
		Status:      StatusCreated,
		Progress:    0,
		CurrentStep: "Initializing session...",
		Request:     req,
		ArtifactDir: artifactDir,
		BackupDir:   backupDir,
		CreatedAt:   time.Now().UTC().Format(time.RFC3339),
	}
}
