package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"

	"playbookd/internal/artifact"
	"playbookd/internal/model"
)

// ---------------------------------------------------------------------------
// POST /api/training/start
// ---------------------------------------------------------------------------

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	var req model.TrainingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := s.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, validationMessage(err))
		return
	}

	// Old sessions are swept opportunistically so a long-idle server does
	// not accumulate expired state between sweeper ticks.
	if n := s.sessions.Sweep(r.Context()); n > 0 {
		s.logger.Info("swept expired sessions on start", "count", n)
	}

	sess, err := s.sessions.Create(r.Context(), req)
	if err != nil {
		s.logger.Error("create session", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create training session")
		return
	}

	writeJSON(w, http.StatusCreated, map[string]string{
		"session_id": sess.ID,
		"status":     "started",
		"message":    "Training playbook generation started",
	})
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return "invalid request"
	}
	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, fe.Field())
	}
	return "missing required fields: " + strings.Join(fields, ", ")
}

// ---------------------------------------------------------------------------
// GET /api/training/status/{id}
// ---------------------------------------------------------------------------

type statusResponse struct {
	SessionID        string   `json:"session_id"`
	Status           string   `json:"status"`
	Progress         int      `json:"progress"`
	CurrentStep      string   `json:"current_step"`
	CreatedAt        string   `json:"created_at"`
	CompletedAt      *string  `json:"completed_at,omitempty"`
	Error            *string  `json:"error,omitempty"`
	QualityScore     *float64 `json:"quality_score,omitempty"`
	DataCompleteness *float64 `json:"data_completeness,omitempty"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookup(w, r)
	if !ok {
		return
	}

	writeJSON(w, http.StatusOK, statusResponse{
		SessionID:        sess.ID,
		Status:           sess.Status,
		Progress:         sess.Progress,
		CurrentStep:      sess.CurrentStep,
		CreatedAt:        sess.CreatedAt,
		CompletedAt:      sess.CompletedAt,
		Error:            sess.Error,
		QualityScore:     sess.QualityScore,
		DataCompleteness: sess.DataCompleteness,
	})
}

// ---------------------------------------------------------------------------
// GET /api/training/download/{id}
// ---------------------------------------------------------------------------

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookup(w, r)
	if !ok {
		return
	}

	if !sess.Terminal() {
		writeError(w, http.StatusBadRequest,
			fmt.Sprintf("training is still %s, check status before downloading", sess.Status))
		return
	}
	// Failed sessions can still carry an output file from before the
	// failure; serve it when present.
	if sess.OutputFile == nil {
		writeError(w, http.StatusNotFound, "no playbook available for this session")
		return
	}

	doc, err := os.ReadFile(*sess.OutputFile)
	if err != nil {
		s.logger.Error("read playbook", "session_id", sess.ID, "error", err)
		writeError(w, http.StatusNotFound, "playbook file is no longer available")
		return
	}

	filename := fmt.Sprintf("sustainability_playbook_%s_%s.md",
		sanitizeFilename(sess.Request.IndustryFocus), sess.ID[:8])
	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	w.Write(doc)

	s.sessions.PurgeAfterDownload(sess.ID)
}

func sanitizeFilename(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ', r == '-', r == '_':
			b.WriteByte('_')
		}
	}
	if b.Len() == 0 {
		return "training"
	}
	return b.String()
}

// ---------------------------------------------------------------------------
// GET /api/training/artifacts/{id}
// ---------------------------------------------------------------------------

func (s *Server) handleArtifacts(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookup(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, artifact.List(sess.ArtifactDir))
}

// ---------------------------------------------------------------------------
// GET /api/training/history/{id}
// ---------------------------------------------------------------------------

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookup(w, r)
	if !ok {
		return
	}
	history, err := s.sessions.ProgressHistory(r.Context(), sess.ID)
	if err != nil {
		s.logger.Error("progress history", "session_id", sess.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load progress history")
		return
	}
	if history == nil {
		history = []model.ProgressEntry{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"session_id": sess.ID,
		"history":    history,
	})
}

// ---------------------------------------------------------------------------
// GET /api/sessions
// ---------------------------------------------------------------------------

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := s.sessions.List(r.Context())
	if err != nil {
		s.logger.Error("list sessions", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list sessions")
		return
	}
	if sessions == nil {
		sessions = []model.Session{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"total":    len(sessions),
		"sessions": sessions,
	})
}

// ---------------------------------------------------------------------------
// GET /healthz
// ---------------------------------------------------------------------------

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// lookup resolves the {id} path value to a session, writing the error
// response itself when the session cannot be served.
func (s *Server) lookup(w http.ResponseWriter, r *http.Request) (*model.Session, bool) {
	id := r.PathValue("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "session id is required")
		return nil, false
	}
	sess, err := s.sessions.Get(r.Context(), id)
	if err != nil {
		s.logger.Error("get session", "session_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load session")
		return nil, false
	}
	if sess == nil {
		writeError(w, http.StatusNotFound, "training session not found")
		return nil, false
	}
	return sess, true
}
