package mcp

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	mcpgo "github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vendeza/Glavred/internal/analyzer"
	"github.com/vendeza/Glavred/internal/models"
	"github.com/vendeza/Glavred/internal/workspace"
)

// ---------------------------------------------------------------------------
// Mock implementations
// ---------------------------------------------------------------------------

// mockClient implements analyzer.Client for testing.
type mockClient struct {
	analyzeReqs []*analyzer.AnalyzeRequest
	applyReqs   []*analyzer.ApplyChangesRequest

	// Optional error injection.
	analyzeErr error
	applyErr   error

	evaluation models.Evaluation
}

func (m *mockClient) Analyze(_ context.Context, req *analyzer.AnalyzeRequest) (*analyzer.AnalyzeResponse, error) {
	m.analyzeReqs = append(m.analyzeReqs, req)
	if m.analyzeErr != nil {
		return nil, m.analyzeErr
	}
	ev := m.evaluation
	if ev.Post == "" {
		ev.Post = req.Post
	}
	return &analyzer.AnalyzeResponse{Result: analyzer.ResultOK, Evaluation: ev}, nil
}

func (m *mockClient) ApplyChanges(_ context.Context, req *analyzer.ApplyChangesRequest) (*analyzer.ApplyChangesResponse, error) {
	m.applyReqs = append(m.applyReqs, req)
	if m.applyErr != nil {
		return nil, m.applyErr
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

func newTestServer(t *testing.T) (*Server, *workspace.Workspace, *mockClient) {
	t.Helper()
	mc := &mockClient{
		evaluation: models.Evaluation{
			Summary: "solid hook, no CTA",
			Scores:  models.Scores{Total: 58, Hook: 72, CTAStrength: 20},
			Issues: []models.Issue{
				{ID: "iss-1", Type: "cta", Title: "No call to action", SuggestedFix: "End with a question", Priority: models.IssuePriorityHigh},
				{ID: "iss-2", Type: "clarity", Title: "Dense middle", Advice: "Shorter sentences", Priority: models.IssuePriorityLow},
			},
			Version: "1",
		},
	}
	ws := workspace.New(mc)
	return NewServer(ws), ws, mc
}

// callToolReq builds a mcpgo.CallToolRequest with the given name and arguments.
func callToolReq(name string, args map[string]any) mcpgo.CallToolRequest {
	return mcpgo.CallToolRequest{
		Params: mcpgo.CallToolParams{
			Name:      name,
			Arguments: args,
		},
	}
}

// resultText extracts the concatenated text from a CallToolResult.
func resultText(t *testing.T, result *mcpgo.CallToolResult) string {
	t.Helper()
	var b strings.Builder
	for _, c := range result.Content {
		tc, ok := c.(mcpgo.TextContent)
		if ok {
			b.WriteString(tc.Text)
		}
	}
	return b.String()
}

// resultJSON parses the text result as JSON into the provided target.
func resultJSON(t *testing.T, result *mcpgo.CallToolResult, target any) {
	t.Helper()
	text := resultText(t, result)
	err := json.Unmarshal([]byte(text), target)
	require.NoError(t, err, "failed to parse result JSON: %s", text)
}

// ---------------------------------------------------------------------------
// Tests: MCPServer registration
// ---------------------------------------------------------------------------

func TestNewServer(t *testing.T) {
	srv, _, _ := newTestServer(t)
	mcpSrv := srv.MCPServer()
	require.NotNil(t, mcpSrv, "MCPServer() should return non-nil")
}

// ---------------------------------------------------------------------------
// Tests: glavred_get_workspace
// ---------------------------------------------------------------------------

func TestHandleGetWorkspace_Empty(t *testing.T) {
	srv, _, _ := newTestServer(t)
	ctx := context.Background()

	result, err := srv.handleGetWorkspace(ctx, callToolReq("glavred_get_workspace", nil))
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.False(t, result.IsError)

	var out map[string]any
	resultJSON(t, result, &out)
	assert.Nil(t, out["evaluation"])
	assert.Equal(t, false, out["is_analyzing"])
}

// ---------------------------------------------------------------------------
// Tests: glavred_update_draft
// ---------------------------------------------------------------------------

func TestHandleUpdateDraft(t *testing.T) {
	srv, ws, _ := newTestServer(t)
	ctx := context.Background()

	result, err := srv.handleUpdateDraft(ctx, callToolReq("glavred_update_draft", map[string]any{
		"text":       "shipping my side project today",
		"tone":       "casual",
		"max_length": 280,
	}))
	require.NoError(t, err)
	assert.False(t, result.IsError)

	draft := ws.Draft()
	assert.Equal(t, "shipping my side project today", draft.Text)
	assert.Equal(t, "casual", draft.Tone)
	assert.Equal(t, 280, draft.MaxLength)

	// A second call with other fields leaves the first ones untouched.
	_, err = srv.handleUpdateDraft(ctx, callToolReq("glavred_update_draft", map[string]any{
		"goal": "replies",
	}))
	require.NoError(t, err)
	draft = ws.Draft()
	assert.Equal(t, "shipping my side project today", draft.Text)
	assert.Equal(t, "replies", draft.Goal)
}

// ---------------------------------------------------------------------------
// Tests: glavred_analyze
// ---------------------------------------------------------------------------

func TestHandleAnalyze(t *testing.T) {
	srv, ws, mc := newTestServer(t)
	ctx := context.Background()
	ws.SetPost("my launch post")

	result, err := srv.handleAnalyze(ctx, callToolReq("glavred_analyze", nil))
	require.NoError(t, err)
	assert.False(t, result.IsError)

	var ev models.Evaluation
	resultJSON(t, result, &ev)
	assert.InDelta(t, 58, ev.Scores.Total, 0.01)
	assert.Len(t, ev.Issues, 2)

	require.Len(t, mc.analyzeReqs, 1)
	assert.Equal(t, "my launch post", mc.analyzeReqs[0].Post)
	require.NotNil(t, ws.Evaluation())
}

func TestHandleAnalyze_Overrides(t *testing.T) {
	srv, ws, mc := newTestServer(t)
	ctx := context.Background()
	ws.SetPost("my launch post")
	ws.UpdateDraft(&models.DraftPatch{Tone: ptr("formal")})

	result, err := srv.handleAnalyze(ctx, callToolReq("glavred_analyze", map[string]any{
		"tone": "playful",
		"goal": "reach",
	}))
	require.NoError(t, err)
	assert.False(t, result.IsError)

	require.Len(t, mc.analyzeReqs, 1)
	assert.Equal(t, "playful", mc.analyzeReqs[0].Tone)
	assert.Equal(t, "reach", mc.analyzeReqs[0].Goal)

	// Overrides are per-call: the stored draft keeps its own tone.
	assert.Equal(t, "formal", ws.Draft().Tone)
}

func TestHandleAnalyze_EmptyPost(t *testing.T) {
	srv, _, mc := newTestServer(t)
	ctx := context.Background()

	result, err := srv.handleAnalyze(ctx, callToolReq("glavred_analyze", nil))
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Contains(t, resultText(t, result), "post text is required")
	assert.Empty(t, mc.analyzeReqs)
}

// ---------------------------------------------------------------------------
// Tests: glavred_apply_fixes
// ---------------------------------------------------------------------------

func TestHandleApplyFixes_ByID(t *testing.T) {
	srv, ws, mc := newTestServer(t)
	ctx := context.Background()
	ws.SetPost("my launch post")

	_, err := srv.handleAnalyze(ctx, callToolReq("glavred_analyze", nil))
	require.NoError(t, err)

	result, err := srv.handleApplyFixes(ctx, callToolReq("glavred_apply_fixes", map[string]any{
		"issue_ids": "iss-1",
	}))
	require.NoError(t, err)
	assert.False(t, result.IsError, resultText(t, result))

	require.Len(t, mc.applyReqs, 1)
	require.Len(t, mc.applyReqs[0].Changes, 1)
	assert.Equal(t, "iss-1", mc.applyReqs[0].Changes[0].ID)
	assert.Equal(t, "End with a question", mc.applyReqs[0].Changes[0].Description)

	// Draft rewritten, fixed issue removed, the other one kept.
	assert.Equal(t, "my launch post [rewritten]", ws.Draft().Text)
	require.NotNil(t, ws.Evaluation())
	require.Len(t, ws.Evaluation().Issues, 1)
	assert.Equal(t, "iss-2", ws.Evaluation().Issues[0].ID)
}

func TestHandleApplyFixes_All(t *testing.T) {
	srv, ws, mc := newTestServer(t)
	ctx := context.Background()
	ws.SetPost("my launch post")

	_, err := srv.handleAnalyze(ctx, callToolReq("glavred_analyze", nil))
	require.NoError(t, err)

	result, err := srv.handleApplyFixes(ctx, callToolReq("glavred_apply_fixes", map[string]any{
		"issue_ids": "all",
	}))
	require.NoError(t, err)
	assert.False(t, result.IsError, resultText(t, result))

	require.Len(t, mc.applyReqs, 1)
	assert.Len(t, mc.applyReqs[0].Changes, 2)
	require.NotNil(t, ws.Evaluation())
	assert.Empty(t, ws.Evaluation().Issues)
}

func TestHandleApplyFixes_NoEvaluation(t *testing.T) {
	srv, ws, _ := newTestServer(t)
	ctx := context.Background()
	ws.SetPost("my launch post")

	result, err := srv.handleApplyFixes(ctx, callToolReq("glavred_apply_fixes", map[string]any{
		"issue_ids": "iss-1",
	}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Contains(t, resultText(t, result), "glavred_analyze first")
}

func TestHandleApplyFixes_UnknownID(t *testing.T) {
	srv, ws, _ := newTestServer(t)
	ctx := context.Background()
	ws.SetPost("my launch post")

	_, err := srv.handleAnalyze(ctx, callToolReq("glavred_analyze", nil))
	require.NoError(t, err)

	result, err := srv.handleApplyFixes(ctx, callToolReq("glavred_apply_fixes", map[string]any{
		"issue_ids": "nope",
	}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Contains(t, resultText(t, result), "no issues in the evaluation match")
}

// ---------------------------------------------------------------------------
// Tests: versions
// ---------------------------------------------------------------------------

func TestHandleSaveAndListVersions(t *testing.T) {
	srv, ws, _ := newTestServer(t)
	ctx := context.Background()
	ws.SetPost("draft one")

	result, err := srv.handleSaveVersion(ctx, callToolReq("glavred_save_version", nil))
	require.NoError(t, err)
	assert.False(t, result.IsError)

	var saved models.PostVersion
	resultJSON(t, result, &saved)
	assert.Equal(t, "draft one", saved.Content)
	assert.Equal(t, models.VersionLabelUser, saved.Label)
	assert.NotEmpty(t, saved.ID)

	result, err = srv.handleListVersions(ctx, callToolReq("glavred_list_versions", nil))
	require.NoError(t, err)

	var versions []map[string]any
	resultJSON(t, result, &versions)
	require.Len(t, versions, 1)
	assert.Equal(t, saved.ID, versions[0]["id"])
}

func TestHandleSaveVersion_Empty(t *testing.T) {
	srv, _, _ := newTestServer(t)
	ctx := context.Background()

	result, err := srv.handleSaveVersion(ctx, callToolReq("glavred_save_version", nil))
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Contains(t, resultText(t, result), "nothing to save")
}

func TestHandleRemoveVersion(t *testing.T) {
	srv, ws, _ := newTestServer(t)
	ctx := context.Background()
	v := ws.AddPostVersion("keep me", models.VersionLabelUser)

	result, err := srv.handleRemoveVersion(ctx, callToolReq("glavred_remove_version", map[string]any{
		"version_id": v.ID,
	}))
	require.NoError(t, err)
	assert.False(t, result.IsError)
	assert.Empty(t, ws.Versions())

	result, err = srv.handleRemoveVersion(ctx, callToolReq("glavred_remove_version", map[string]any{
		"version_id": "missing",
	}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Contains(t, resultText(t, result), "version not found")
}

func ptr[T any](v T) *T { return &v }
