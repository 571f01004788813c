package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/vendeza/Glavred/internal/models"
	"github.com/vendeza/Glavred/internal/workspace"
)

// Server wraps a workspace session and exposes it as MCP tools, so an agent
// can draft, score, and rewrite posts over stdio.
type Server struct {
	ws *workspace.Workspace
}

// NewServer creates the MCP server wrapper around the given workspace.
func NewServer(ws *workspace.Workspace) *Server {
	return &Server{ws: ws}
}

// MCPServer returns a configured mcp-go server with all tools registered.
func (s *Server) MCPServer() *server.MCPServer {
	srv := server.NewMCPServer("glavred", "1.0.0", server.WithToolCapabilities(true))

	// Register all tools
	srv.AddTool(s.getWorkspaceTool())
	srv.AddTool(s.updateDraftTool())
	srv.AddTool(s.analyzeTool())
	srv.AddTool(s.applyFixesTool())
	srv.AddTool(s.listVersionsTool())
	srv.AddTool(s.saveVersionTool())
	srv.AddTool(s.removeVersionTool())

	return srv
}

// ServeStdio starts the stdio transport, blocking until ctx is cancelled.
func (s *Server) ServeStdio(ctx context.Context) error {
	srv := s.MCPServer()
	stdioServer := server.NewStdioServer(srv)
	return stdioServer.Listen(ctx, os.Stdin, os.Stdout)
}

// ---------------------------------------------------------------------------
// Tool definitions and handlers
// ---------------------------------------------------------------------------

// glavred_get_workspace
func (s *Server) getWorkspaceTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("glavred_get_workspace",
		mcp.WithDescription("Get the current workspace state: draft text, tuning parameters, latest evaluation (scores and issues), pending changes, change log, and version history. Returns JSON."),
	)
	return tool, s.handleGetWorkspace
}

func (s *Server) handleGetWorkspace(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	result := map[string]any{
		"draft":               s.ws.Draft(),
		"evaluation":          s.ws.Evaluation(),
		"selected_issue_ids":  s.ws.SelectedIssueIDs(),
		"pending_changes":     s.ws.PendingChanges(),
		"change_log":          s.ws.ChangeLog(),
		"warnings":            s.ws.Warnings(),
		"versions":            s.ws.Versions(),
		"is_analyzing":        s.ws.IsAnalyzing(),
		"is_applying_changes": s.ws.IsApplyingChanges(),
		"last_error":          s.ws.LastError(),
	}

	data, err := json.Marshal(result)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal workspace: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

// glavred_update_draft
func (s *Server) updateDraftTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("glavred_update_draft",
		mcp.WithDescription("Update the post draft and tuning parameters. Only the fields you pass change; everything else keeps its current value. Returns the updated draft as JSON."),
		mcp.WithString("text", mcp.Description("Post text")),
		mcp.WithString("platform", mcp.Description("Target platform, e.g. twitter, linkedin, threads")),
		mcp.WithString("goal", mcp.Description("What the post should achieve, e.g. replies, likes, reach")),
		mcp.WithString("target_audience", mcp.Description("Who the post is for")),
		mcp.WithString("tone", mcp.Description("Desired tone, e.g. casual, authoritative, playful")),
		mcp.WithString("language", mcp.Description("Post language, e.g. en, ru")),
		mcp.WithNumber("max_length", mcp.Description("Maximum post length in characters (0 = unset)")),
		mcp.WithString("post_type", mcp.Description("Type of post, e.g. thread_opener, hot_take, story")),
		mcp.WithString("brand_persona", mcp.Description("Persona handle to write as, e.g. @naval")),
	)
	return tool, s.handleUpdateDraft
}

func (s *Server) handleUpdateDraft(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	patch := draftPatchFromRequest(request)
	s.ws.UpdateDraft(patch)

	data, err := json.Marshal(s.ws.Draft())
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal draft: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

// glavred_analyze
func (s *Server) analyzeTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("glavred_analyze",
		mcp.WithDescription("Score the current post draft. Any tuning parameters you pass override the stored draft for this call only. Returns the evaluation as JSON: eleven 0-100 scores, a summary, and a list of issues with suggested fixes."),
		mcp.WithString("text", mcp.Description("Post text to analyze (default: current draft text)")),
		mcp.WithString("platform", mcp.Description("Platform override for this call")),
		mcp.WithString("goal", mcp.Description("Goal override for this call")),
		mcp.WithString("target_audience", mcp.Description("Audience override for this call")),
		mcp.WithString("tone", mcp.Description("Tone override for this call")),
		mcp.WithString("language", mcp.Description("Language override for this call")),
		mcp.WithNumber("max_length", mcp.Description("Max length override for this call")),
		mcp.WithString("post_type", mcp.Description("Post type override for this call")),
		mcp.WithString("brand_persona", mcp.Description("Persona override for this call")),
	)
	return tool, s.handleAnalyze
}

func (s *Server) handleAnalyze(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	overrides := draftPatchFromRequest(request)

	resp, err := s.ws.Analyze(ctx, overrides)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("analysis failed: %v", err)), nil
	}

	data, err := json.Marshal(resp.Evaluation)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal evaluation: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

// glavred_apply_fixes
func (s *Server) applyFixesTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("glavred_apply_fixes",
		mcp.WithDescription("Rewrite the post to fix issues from the latest evaluation. Pass issue_ids as a comma-separated list, or \"all\" to fix every reported issue. On success the draft is replaced with the rewritten post, the fixed issues are removed from the evaluation, and an AI version snapshot is recorded. Returns the rewritten post and per-change outcomes as JSON."),
		mcp.WithString("issue_ids", mcp.Required(), mcp.Description("Comma-separated issue IDs from the evaluation, or \"all\"")),
	)
	return tool, s.handleApplyFixes
}

func (s *Server) handleApplyFixes(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	rawIDs, err := request.RequireString("issue_ids")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: issue_ids"), nil
	}

	evaluation := s.ws.Evaluation()
	if evaluation == nil {
		return mcp.NewToolResultError("no evaluation held; run glavred_analyze first"), nil
	}

	var ids []string
	if strings.TrimSpace(rawIDs) == "all" {
		for _, issue := range evaluation.Issues {
			ids = append(ids, issue.ID)
		}
	} else {
		for _, id := range strings.Split(rawIDs, ",") {
			if id = strings.TrimSpace(id); id != "" {
				ids = append(ids, id)
			}
		}
	}

	want := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		want[id] = struct{}{}
	}
	var changes []models.ChangeInstruction
	for _, issue := range evaluation.Issues {
		if _, ok := want[issue.ID]; ok {
			changes = append(changes, models.ChangeForIssue(issue))
		}
	}
	if len(changes) == 0 {
		return mcp.NewToolResultError(fmt.Sprintf("no issues in the evaluation match: %s", rawIDs)), nil
	}

	resp, err := s.ws.ApplyChanges(ctx, &workspace.ApplyOverrides{Changes: changes})
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("rewrite failed: %v", err)), nil
	}
	s.ws.RemoveIssues(ids)

	result := map[string]any{
		"updated_post": resp.UpdatedPost,
		"change_log":   resp.ChangeLog,
		"warnings":     resp.Warnings,
	}

	data, err := json.Marshal(result)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

// glavred_list_versions
func (s *Server) listVersionsTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("glavred_list_versions",
		mcp.WithDescription("List saved post versions, newest first. Each version has an id, a label (Your or AI), the post content, and a timestamp."),
	)
	return tool, s.handleListVersions
}

func (s *Server) handleListVersions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	type versionOut struct {
		ID        string `json:"id"`
		Label     string `json:"label"`
		Content   string `json:"content"`
		Timestamp string `json:"timestamp"`
	}

	versions := s.ws.Versions()
	out := make([]versionOut, len(versions))
	for i, v := range versions {
		out[i] = versionOut{
			ID:        v.ID,
			Label:     v.Label,
			Content:   v.Content,
			Timestamp: v.Timestamp.Format(time.RFC3339),
		}
	}

	data, err := json.Marshal(out)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal versions: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

// glavred_save_version
func (s *Server) saveVersionTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("glavred_save_version",
		mcp.WithDescription("Save a snapshot of the post to the version history. Defaults to the current draft text with the user label. Returns the saved version as JSON."),
		mcp.WithString("content", mcp.Description("Post content to save (default: current draft text)")),
		mcp.WithString("label", mcp.Description("Version label (default: Your)")),
	)
	return tool, s.handleSaveVersion
}

func (s *Server) handleSaveVersion(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	content := request.GetString("content", "")
	if content == "" {
		content = s.ws.Draft().Text
	}
	if strings.TrimSpace(content) == "" {
		return mcp.NewToolResultError("nothing to save: content is empty and the draft has no text"), nil
	}
	label := request.GetString("label", models.VersionLabelUser)

	v := s.ws.AddPostVersion(content, label)

	data, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal version: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

// glavred_remove_version
func (s *Server) removeVersionTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("glavred_remove_version",
		mcp.WithDescription("Remove a saved version from the history by its id."),
		mcp.WithString("version_id", mcp.Required(), mcp.Description("Version ID to remove")),
	)
	return tool, s.handleRemoveVersion
}

func (s *Server) handleRemoveVersion(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	versionID, err := request.RequireString("version_id")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: version_id"), nil
	}

	for _, v := range s.ws.Versions() {
		if v.ID == versionID {
			s.ws.RemovePostVersion(versionID)
			return mcp.NewToolResultText(fmt.Sprintf(`{"removed":%q}`, versionID)), nil
		}
	}
	return mcp.NewToolResultError(fmt.Sprintf("version not found: %s", versionID)), nil
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

// draftPatchFromRequest builds a partial draft update from whichever tuning
// arguments the caller passed. Missing arguments stay nil so they do not
// clobber the stored draft.
func draftPatchFromRequest(request mcp.CallToolRequest) *models.DraftPatch {
	patch := &models.DraftPatch{}

	if v := request.GetString("text", ""); v != "" {
		patch.Text = &v
	}
	if v := request.GetString("platform", ""); v != "" {
		patch.Platform = &v
	}
	if v := request.GetString("goal", ""); v != "" {
		patch.Goal = &v
	}
	if v := request.GetString("target_audience", ""); v != "" {
		patch.TargetAudience = &v
	}
	if v := request.GetString("tone", ""); v != "" {
		patch.Tone = &v
	}
	if v := request.GetString("language", ""); v != "" {
		patch.Language = &v
	}
	if v := request.GetInt("max_length", 0); v != 0 {
		patch.MaxLength = &v
	}
	if v := request.GetString("post_type", ""); v != "" {
		patch.PostType = &v
	}
	if v := request.GetString("brand_persona", ""); v != "" {
		patch.BrandPersona = &v
	}

	return patch
}
