// Package api exposes one long-lived workspace session over a JSON HTTP API,
// for hosts that drive the editor from a browser or another process.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/vendeza/Glavred/internal/models"
	"github.com/vendeza/Glavred/internal/workspace"
)

// Server provides the REST API handlers over a single workspace.
type Server struct {
	ws *workspace.Workspace
}

// NewServer creates a new API server around the given workspace.
func NewServer(ws *workspace.Workspace) *Server {
	return &Server{ws: ws}
}

// Router returns an http.Handler for the API routes.
func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/v1/workspace", s.getWorkspace)

	mux.HandleFunc("GET /api/v1/draft", s.getDraft)
	mux.HandleFunc("PATCH /api/v1/draft", s.patchDraft)

	mux.HandleFunc("POST /api/v1/analyze", s.analyze)
	mux.HandleFunc("POST /api/v1/apply", s.applyChanges)

	mux.HandleFunc("GET /api/v1/evaluation", s.getEvaluation)
	mux.HandleFunc("DELETE /api/v1/evaluation", s.resetEvaluation)
	mux.HandleFunc("POST /api/v1/evaluation/issues/remove", s.removeIssues)

	mux.HandleFunc("GET /api/v1/versions", s.listVersions)
	mux.HandleFunc("POST /api/v1/versions", s.saveVersion)
	mux.HandleFunc("DELETE /api/v1/versions/{id}", s.deleteVersion)

	mux.HandleFunc("POST /api/v1/reset", s.reset)

	return mux
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeOperationError maps workspace errors to HTTP statuses: busy operations
// conflict, validation fails the request, everything else is an upstream
// evaluator failure.
func writeOperationError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, workspace.ErrAnalyzeInProgress), errors.Is(err, workspace.ErrApplyInProgress):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, workspace.ErrEmptyPost), errors.Is(err, workspace.ErrNoChanges):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		writeError(w, http.StatusBadGateway, err.Error())
	}
}

// workspaceView is the full session snapshot returned by GET /workspace.
type workspaceView struct {
	Draft             models.PostDraft           `json:"draft"`
	Evaluation        *models.Evaluation         `json:"evaluation,omitempty"`
	SelectedIssueIDs  []string                   `json:"selected_issue_ids,omitempty"`
	PendingChanges    []models.ChangeInstruction `json:"pending_changes,omitempty"`
	ChangeLog         []models.ChangeLogEntry    `json:"change_log,omitempty"`
	Warnings          []string                   `json:"warnings,omitempty"`
	Versions          []models.PostVersion       `json:"versions"`
	IsAnalyzing       bool                       `json:"is_analyzing"`
	IsApplyingChanges bool                       `json:"is_applying_changes"`
	LastError         string                     `json:"last_error,omitempty"`
}

func (s *Server) getWorkspace(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, workspaceView{
		Draft:             s.ws.Draft(),
		Evaluation:        s.ws.Evaluation(),
		SelectedIssueIDs:  s.ws.SelectedIssueIDs(),
		PendingChanges:    s.ws.PendingChanges(),
		ChangeLog:         s.ws.ChangeLog(),
		Warnings:          s.ws.Warnings(),
		Versions:          s.ws.Versions(),
		IsAnalyzing:       s.ws.IsAnalyzing(),
		IsApplyingChanges: s.ws.IsApplyingChanges(),
		LastError:         s.ws.LastError(),
	})
}

func (s *Server) getDraft(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.ws.Draft())
}

func (s *Server) patchDraft(w http.ResponseWriter, r *http.Request) {
	var patch models.DraftPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	s.ws.UpdateDraft(&patch)
	writeJSON(w, http.StatusOK, s.ws.Draft())
}

func (s *Server) analyze(w http.ResponseWriter, r *http.Request) {
	var overrides models.DraftPatch
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&overrides); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON")
			return
		}
	}

	resp, err := s.ws.Analyze(r.Context(), &overrides)
	if err != nil {
		writeOperationError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// applyRequest carries rewrite overrides. When issue_ids is set, change
// instructions are projected from the held evaluation and the resolved
// issues are removed after a successful rewrite, mirroring the interactive
// fix flow.
type applyRequest struct {
	Post     *string                    `json:"post,omitempty"`
	Changes  []models.ChangeInstruction `json:"changes,omitempty"`
	Language *string                    `json:"language,omitempty"`
	IssueIDs []string                   `json:"issue_ids,omitempty"`
}

func (s *Server) applyChanges(w http.ResponseWriter, r *http.Request) {
	var req applyRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON")
			return
		}
	}

	overrides := &workspace.ApplyOverrides{
		Post:     req.Post,
		Changes:  req.Changes,
		Language: req.Language,
	}

	if len(req.IssueIDs) > 0 {
		evaluation := s.ws.Evaluation()
		if evaluation == nil {
			writeError(w, http.StatusBadRequest, "no evaluation held; analyze first")
			return
		}
		want := make(map[string]struct{}, len(req.IssueIDs))
		for _, id := range req.IssueIDs {
			want[id] = struct{}{}
		}
		var changes []models.ChangeInstruction
		for _, issue := range evaluation.Issues {
			if _, ok := want[issue.ID]; ok {
				changes = append(changes, models.ChangeForIssue(issue))
			}
		}
		if len(changes) == 0 {
			writeError(w, http.StatusBadRequest, "none of the issue ids match the held evaluation")
			return
		}
		overrides.Changes = changes
	}

	resp, err := s.ws.ApplyChanges(r.Context(), overrides)
	if err != nil {
		writeOperationError(w, err)
		return
	}

	if len(req.IssueIDs) > 0 {
		s.ws.RemoveIssues(req.IssueIDs)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) getEvaluation(w http.ResponseWriter, r *http.Request) {
	evaluation := s.ws.Evaluation()
	if evaluation == nil {
		writeError(w, http.StatusNotFound, "no evaluation held")
		return
	}
	writeJSON(w, http.StatusOK, evaluation)
}

func (s *Server) resetEvaluation(w http.ResponseWriter, r *http.Request) {
	s.ws.ResetEvaluation()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) removeIssues(w http.ResponseWriter, r *http.Request) {
	var req struct {
		IDs []string `json:"ids"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	s.ws.RemoveIssues(req.IDs)
	writeJSON(w, http.StatusOK, s.ws.Evaluation())
}

func (s *Server) listVersions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.ws.Versions())
}

func (s *Server) saveVersion(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Content string `json:"content"`
		Label   string `json:"label"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	content := req.Content
	if content == "" {
		content = s.ws.Draft().Text
	}
	if strings.TrimSpace(content) == "" {
		writeError(w, http.StatusBadRequest, "nothing to save")
		return
	}
	label := req.Label
	if label == "" {
		label = models.VersionLabelUser
	}
	writeJSON(w, http.StatusCreated, s.ws.AddPostVersion(content, label))
}

func (s *Server) deleteVersion(w http.ResponseWriter, r *http.Request) {
	s.ws.RemovePostVersion(r.PathValue("id"))
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) reset(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Scope string `json:"scope"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	switch req.Scope {
	case "form":
		s.ws.ResetForm()
	case "changes":
		s.ws.ResetChanges()
	case "evaluation":
		s.ws.ResetEvaluation()
	default:
		writeError(w, http.StatusBadRequest, "scope must be one of form, changes, evaluation")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
