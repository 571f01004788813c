package workspace

import "errors"

// Validation errors raised before any evaluator call is made. Callers match
// them with errors.Is; evaluator failures pass through wrapped and are never
// one of these.
var (
	// ErrAnalyzeInProgress rejects a second analyze while one is in flight.
	// The first call is neither queued behind nor cancelled by the second.
	ErrAnalyzeInProgress = errors.New("analysis already in progress")

	// ErrApplyInProgress rejects a second applyChanges while one is in flight.
	ErrApplyInProgress = errors.New("change application already in progress")

	// ErrEmptyPost rejects operations on a whitespace-only post.
	ErrEmptyPost = errors.New("post text is required")

	// ErrNoChanges rejects an applyChanges call with no change instructions.
	ErrNoChanges = errors.New("no change instructions provided")
)
