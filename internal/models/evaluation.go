package models

// IssuePriority represents the urgency of a detected issue.
type IssuePriority string

const (
	IssuePriorityLow    IssuePriority = "low"
	IssuePriorityMedium IssuePriority = "medium"
	IssuePriorityHigh   IssuePriority = "high"
)

// Scores is the fixed record of evaluator metrics, each on a 0-100 scale.
// An evaluation always carries the complete record; partial score sets are
// not modeled.
type Scores struct {
	Total           float64 `json:"total"`
	Hook            float64 `json:"hook"`
	Clarity         float64 `json:"clarity"`
	EmotionalCharge float64 `json:"emotional_charge"`
	OpinionEdge     float64 `json:"opinion_edge"`
	Shareability    float64 `json:"shareability"`
	Value           float64 `json:"value"`
	IdentityMatch   float64 `json:"identity_match"`
	CTAStrength     float64 `json:"cta_strength"`
	Readability     float64 `json:"readability"`
	Uniqueness      float64 `json:"uniqueness"`
}

// Issue is one problem the evaluator flagged in a post. IDs are unique
// within a single evaluation only; they are not stable across evaluations.
type Issue struct {
	ID           string        `json:"id"`
	Type         string        `json:"type"`
	Title        string        `json:"title"`
	Description  string        `json:"description"`
	ScoreImpact  float64       `json:"score_impact"`
	Advice       string        `json:"advice,omitempty"`
	SuggestedFix string        `json:"suggested_fix,omitempty"`
	Priority     IssuePriority `json:"priority"`
}

// Evaluation is the evaluator's full report for one post text. It is
// replaced wholesale on every successful analysis.
type Evaluation struct {
	Post      string  `json:"post"`
	Summary   string  `json:"summary,omitempty"`
	Scores    Scores  `json:"scores"`
	Issues    []Issue `json:"issues"`
	AutoFixes string  `json:"auto_fixes,omitempty"`
	Version   string  `json:"version,omitempty"`
}
