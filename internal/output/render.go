package output

import (
	"fmt"
	"strings"

	"github.com/vendeza/Glavred/internal/models"
)

// RenderScores prints the evaluation metrics as a two-column table, total first.
func (u *UI) RenderScores(scores models.Scores) {
	rows := []struct {
		name  string
		value float64
	}{
		{"Total", scores.Total},
		{"Hook", scores.Hook},
		{"Clarity", scores.Clarity},
		{"Emotional charge", scores.EmotionalCharge},
		{"Opinion edge", scores.OpinionEdge},
		{"Shareability", scores.Shareability},
		{"Value", scores.Value},
		{"Identity match", scores.IdentityMatch},
		{"CTA strength", scores.CTAStrength},
		{"Readability", scores.Readability},
		{"Uniqueness", scores.Uniqueness},
	}

	table := u.Table([]string{"Metric", "Score"})
	for _, row := range rows {
		_ = table.Append([]string{row.name, ScoreColor(row.value)})
	}
	_ = table.Render()
}

// RenderIssues prints detected issues with impact and priority.
func (u *UI) RenderIssues(issues []models.Issue) {
	if len(issues) == 0 {
		u.Info("No issues detected.")
		return
	}

	table := u.Table([]string{"ID", "Title", "Impact", "Priority", "Fix"})
	for _, issue := range issues {
		fix := issue.SuggestedFix
		if fix == "" {
			fix = issue.Advice
		}
		_ = table.Append([]string{
			issue.ID,
			issue.Title,
			fmt.Sprintf("%.0f", issue.ScoreImpact),
			PriorityColor(string(issue.Priority)),
			truncate(fix, 60),
		})
	}
	_ = table.Render()
}

// RenderChangeLog prints the outcome of a rewrite, one row per instruction,
// followed by any warnings.
func (u *UI) RenderChangeLog(entries []models.ChangeLogEntry, warnings []string) {
	if len(entries) > 0 {
		table := u.Table([]string{"ID", "Status", "Summary"})
		for _, entry := range entries {
			summary := entry.Summary
			if len(entry.Conflicts) > 0 {
				summary += " (conflicts: " + strings.Join(entry.Conflicts, ", ") + ")"
			}
			_ = table.Append([]string{
				entry.ID,
				ChangeStatusColor(string(entry.Status)),
				truncate(summary, 70),
			})
		}
		_ = table.Render()
	}
	for _, warning := range warnings {
		u.Warning("%s", warning)
	}
}

// RenderVersions prints the version history, newest first.
func (u *UI) RenderVersions(versions []models.PostVersion) {
	if len(versions) == 0 {
		u.Info("No saved versions.")
		return
	}

	table := u.Table([]string{"ID", "Label", "Saved", "Content"})
	for _, version := range versions {
		_ = table.Append([]string{
			version.ID,
			version.Label,
			version.Timestamp.Format("2006-01-02 15:04:05"),
			truncate(version.Content, 60),
		})
	}
	_ = table.Render()
}

// RenderDraftSummary prints the non-empty tuning parameters of a draft.
func (u *UI) RenderDraftSummary(draft models.PostDraft) {
	table := u.Table([]string{"Parameter", "Value"})
	appendRow := func(name, value string) {
		if value != "" {
			_ = table.Append([]string{name, value})
		}
	}
	appendRow("Platform", draft.Platform)
	appendRow("Goal", draft.Goal)
	appendRow("Audience", draft.TargetAudience)
	appendRow("Tone", draft.Tone)
	appendRow("Language", draft.Language)
	appendRow("Post type", draft.PostType)
	appendRow("Brand persona", draft.BrandPersona)
	if draft.MaxLength > 0 {
		appendRow("Max length", fmt.Sprintf("%d", draft.MaxLength))
	}
	if len(draft.ReferenceTwitterHandles) > 0 {
		appendRow("Reference accounts", strings.Join(draft.ReferenceTwitterHandles, ", "))
	}
	if len(draft.ReferenceTexts) > 0 {
		appendRow("Reference texts", fmt.Sprintf("%d", len(draft.ReferenceTexts)))
	}
	_ = table.Render()
}

func truncate(s string, max int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max-1]) + "…"
}
