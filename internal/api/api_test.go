package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vendeza/Glavred/internal/analyzer"
	"github.com/vendeza/Glavred/internal/models"
	"github.com/vendeza/Glavred/internal/workspace"
)

type fakeAnalyzer struct {
	analyzeFn func(*analyzer.AnalyzeRequest) (*analyzer.AnalyzeResponse, error)
	applyFn   func(*analyzer.ApplyChangesRequest) (*analyzer.ApplyChangesResponse, error)
}

func (f *fakeAnalyzer) Analyze(_ context.Context, req *analyzer.AnalyzeRequest) (*analyzer.AnalyzeResponse, error) {
	if f.analyzeFn != nil {
		return f.analyzeFn(req)
	}
	return &analyzer.AnalyzeResponse{
		Result: analyzer.ResultOK,
		Evaluation: models.Evaluation{
			Post:    req.Post,
			Summary: "decent hook, weak ending",
			Scores:  models.Scores{Total: 61, Hook: 70},
			Issues: []models.Issue{
				{ID: "iss-1", Type: "cta", Title: "No call to action", SuggestedFix: "Ask a question at the end", Priority: models.IssuePriorityHigh},
				{ID: "iss-2", Type: "clarity", Title: "Dense second sentence", Advice: "Split it in two", Priority: models.IssuePriorityMedium},
			},
			Version: "1",
		},
	}, nil
}

func (f *fakeAnalyzer) ApplyChanges(_ context.Context, req *analyzer.ApplyChangesRequest) (*analyzer.ApplyChangesResponse, error) {
	if f.applyFn != nil {
		return f.applyFn(req)
	}
	entries := make([]models.ChangeLogEntry, 0, len(req.Changes))
	for _, c := range req.Changes {
		entries = append(entries, models.ChangeLogEntry{ID: c.ID, Status: models.ChangeStatusApplied, Summary: "done"})
	}
	return &analyzer.ApplyChangesResponse{
		Result:      analyzer.ResultOK,
		UpdatedPost: req.Post + " [rewritten]",
		ChangeLog:   entries,
		Warnings:    []string{},
	}, nil
}

func setupTestServer(t *testing.T) (http.Handler, *workspace.Workspace, *fakeAnalyzer) {
	t.Helper()
	fake := &fakeAnalyzer{}
	ws := workspace.New(fake)
	return NewServer(ws).Router(), ws, fake
}

func doJSON(t *testing.T, router http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var rdr *bytes.Buffer
	if body != "" {
		rdr = bytes.NewBufferString(body)
	} else {
		rdr = &bytes.Buffer{}
	}
	req := httptest.NewRequest(method, path, rdr)
	if body != "" {
		req.ContentLength = int64(len(body))
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestGetWorkspace_Empty(t *testing.T) {
	router, _, _ := setupTestServer(t)

	w := doJSON(t, router, "GET", "/api/v1/workspace", "")
	assert.Equal(t, http.StatusOK, w.Code)

	var view workspaceView
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &view))
	assert.Nil(t, view.Evaluation)
	assert.False(t, view.IsAnalyzing)
	assert.Empty(t, view.LastError)
}

func TestDraftPatch_API(t *testing.T) {
	router, ws, _ := setupTestServer(t)

	w := doJSON(t, router, "PATCH", "/api/v1/draft", `{"text":"hello world","tone":"casual","max_length":280}`)
	assert.Equal(t, http.StatusOK, w.Code)

	draft := ws.Draft()
	assert.Equal(t, "hello world", draft.Text)
	assert.Equal(t, "casual", draft.Tone)
	assert.Equal(t, 280, draft.MaxLength)

	// Nil fields stay untouched on a second patch.
	w = doJSON(t, router, "PATCH", "/api/v1/draft", `{"goal":"replies"}`)
	assert.Equal(t, http.StatusOK, w.Code)
	draft = ws.Draft()
	assert.Equal(t, "hello world", draft.Text)
	assert.Equal(t, "replies", draft.Goal)
}

func TestAnalyze_API(t *testing.T) {
	router, ws, _ := setupTestServer(t)
	ws.SetPost("my launch post")

	w := doJSON(t, router, "POST", "/api/v1/analyze", "")
	assert.Equal(t, http.StatusOK, w.Code)

	var resp analyzer.AnalyzeResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, analyzer.ResultOK, resp.Result)
	assert.Len(t, resp.Evaluation.Issues, 2)

	require.NotNil(t, ws.Evaluation())
	assert.InDelta(t, 61, ws.Evaluation().Scores.Total, 0.01)
}

func TestAnalyze_API_EmptyPost(t *testing.T) {
	router, _, _ := setupTestServer(t)

	w := doJSON(t, router, "POST", "/api/v1/analyze", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "post text is required")
}

func TestAnalyze_API_UpstreamFailure(t *testing.T) {
	router, ws, fake := setupTestServer(t)
	ws.SetPost("my post")
	fake.analyzeFn = func(*analyzer.AnalyzeRequest) (*analyzer.AnalyzeResponse, error) {
		return nil, &analyzer.CallError{Function: "buildSocialPostEvaluationPrompt", Status: "INTERNAL", Message: "model overloaded"}
	}

	w := doJSON(t, router, "POST", "/api/v1/analyze", "")
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Contains(t, w.Body.String(), "model overloaded")
	assert.Contains(t, ws.LastError(), "model overloaded")
}

func TestApply_API_ByIssueIDs(t *testing.T) {
	router, ws, fake := setupTestServer(t)
	ws.SetPost("my post")

	w := doJSON(t, router, "POST", "/api/v1/analyze", "")
	require.Equal(t, http.StatusOK, w.Code)

	var sent *analyzer.ApplyChangesRequest
	fake.applyFn = func(req *analyzer.ApplyChangesRequest) (*analyzer.ApplyChangesResponse, error) {
		sent = req
		return &analyzer.ApplyChangesResponse{
			Result:      analyzer.ResultOK,
			UpdatedPost: "my post. What do you think?",
			ChangeLog:   []models.ChangeLogEntry{{ID: "iss-1", Status: models.ChangeStatusApplied}},
		}, nil
	}

	w = doJSON(t, router, "POST", "/api/v1/apply", `{"issue_ids":["iss-1"]}`)
	assert.Equal(t, http.StatusOK, w.Code)

	require.NotNil(t, sent)
	require.Len(t, sent.Changes, 1)
	assert.Equal(t, "iss-1", sent.Changes[0].ID)
	assert.Equal(t, "Ask a question at the end", sent.Changes[0].Description)

	// Draft updated, resolved issue removed, other issue kept.
	assert.Equal(t, "my post. What do you think?", ws.Draft().Text)
	require.NotNil(t, ws.Evaluation())
	require.Len(t, ws.Evaluation().Issues, 1)
	assert.Equal(t, "iss-2", ws.Evaluation().Issues[0].ID)

	// Rewrite snapshot lands at the head of the history.
	versions := ws.Versions()
	require.NotEmpty(t, versions)
	assert.Equal(t, models.VersionLabelAI, versions[0].Label)
	assert.Equal(t, "my post. What do you think?", versions[0].Content)
}

func TestApply_API_IssueIDsWithoutEvaluation(t *testing.T) {
	router, ws, _ := setupTestServer(t)
	ws.SetPost("my post")

	w := doJSON(t, router, "POST", "/api/v1/apply", `{"issue_ids":["iss-1"]}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "analyze first")
}

func TestApply_API_NoChanges(t *testing.T) {
	router, ws, _ := setupTestServer(t)
	ws.SetPost("my post")

	w := doJSON(t, router, "POST", "/api/v1/apply", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "no change instructions")
}

func TestEvaluation_API(t *testing.T) {
	router, ws, _ := setupTestServer(t)

	w := doJSON(t, router, "GET", "/api/v1/evaluation", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	ws.SetPost("my post")
	require.Equal(t, http.StatusOK, doJSON(t, router, "POST", "/api/v1/analyze", "").Code)

	w = doJSON(t, router, "GET", "/api/v1/evaluation", "")
	assert.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, router, "POST", "/api/v1/evaluation/issues/remove", `{"ids":["iss-1"]}`)
	assert.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, ws.Evaluation())
	assert.Len(t, ws.Evaluation().Issues, 1)

	w = doJSON(t, router, "DELETE", "/api/v1/evaluation", "")
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Nil(t, ws.Evaluation())
}

func TestVersions_API(t *testing.T) {
	router, ws, _ := setupTestServer(t)
	ws.SetPost("draft one")

	// Defaults: current draft text, user label.
	w := doJSON(t, router, "POST", "/api/v1/versions", `{}`)
	assert.Equal(t, http.StatusCreated, w.Code)

	var saved models.PostVersion
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &saved))
	assert.Equal(t, "draft one", saved.Content)
	assert.Equal(t, models.VersionLabelUser, saved.Label)
	assert.NotEmpty(t, saved.ID)

	w = doJSON(t, router, "GET", "/api/v1/versions", "")
	assert.Equal(t, http.StatusOK, w.Code)
	var versions []models.PostVersion
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &versions))
	require.Len(t, versions, 1)

	w = doJSON(t, router, "DELETE", "/api/v1/versions/"+saved.ID, "")
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Empty(t, ws.Versions())
}

func TestSaveVersion_API_BlankContent(t *testing.T) {
	router, _, _ := setupTestServer(t)

	w := doJSON(t, router, "POST", "/api/v1/versions", `{"content":"   "}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "nothing to save")
}

func TestReset_API(t *testing.T) {
	router, ws, _ := setupTestServer(t)
	ws.SetPost("my post")
	require.Equal(t, http.StatusOK, doJSON(t, router, "POST", "/api/v1/analyze", "").Code)
	ws.AddPostVersion("kept", models.VersionLabelUser)

	w := doJSON(t, router, "POST", "/api/v1/reset", `{"scope":"bogus"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, router, "POST", "/api/v1/reset", `{"scope":"form"}`)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Empty(t, ws.Draft().Text)
	assert.Nil(t, ws.Evaluation())

	// Version history survives a form reset.
	require.Len(t, ws.Versions(), 1)
	assert.Equal(t, "kept", ws.Versions()[0].Content)
}
