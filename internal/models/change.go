package models

// ChangeStatus reports how the evaluator resolved one change instruction.
type ChangeStatus string

const (
	ChangeStatusApplied ChangeStatus = "applied"
	ChangeStatusPartial ChangeStatus = "partial"
	ChangeStatusSkipped ChangeStatus = "skipped"
)

// ChangeInstruction asks the rewrite function to fix one specific problem.
type ChangeInstruction struct {
	ID            string        `json:"id,omitempty"`
	Description   string        `json:"description"`
	Context       string        `json:"context,omitempty"`
	ReferenceText string        `json:"reference_text,omitempty"`
	Priority      IssuePriority `json:"priority,omitempty"`
}

// ChangeForIssue projects an issue into the change instruction the rewrite
// function expects. The description falls back from the suggested fix to the
// advice to the issue description itself.
func ChangeForIssue(issue Issue) ChangeInstruction {
	description := issue.SuggestedFix
	if description == "" {
		description = issue.Advice
	}
	if description == "" {
		description = issue.Description
	}
	return ChangeInstruction{
		ID:          issue.ID,
		Description: description,
		Context:     issue.Description,
		Priority:    issue.Priority,
	}
}

// ChangeLogEntry reports the outcome of one change instruction after a
// rewrite.
type ChangeLogEntry struct {
	ID        string       `json:"id"`
	Status    ChangeStatus `json:"status"`
	Summary   string       `json:"summary"`
	Notes     string       `json:"notes,omitempty"`
	Conflicts []string     `json:"conflicts,omitempty"`
}
