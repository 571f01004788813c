package models

import "time"

// Version labels identifying where a snapshot came from.
const (
	VersionLabelUser = "Your"
	VersionLabelAI   = "AI"
)

// PostVersion is an immutable snapshot of post text kept for reference and
// rollback-by-copy.
type PostVersion struct {
	ID        string    `json:"id"`
	Label     string    `json:"label"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}
