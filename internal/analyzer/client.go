// Package analyzer defines the client boundary to the remote post evaluator:
// two callable functions, analyze and applyChanges, invoked with a single
// request object and returning a single response object or an error.
package analyzer

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/vendeza/Glavred/internal/models"
)

// ResultOK is the success marker the evaluator sets on every response.
const ResultOK = "OK"

// AnalyzeRequest is the payload for the analyze function. Optional fields are
// omitted from the wire when unset; empty reference lists are never sent.
type AnalyzeRequest struct {
	Post                    string   `json:"post"`
	Platform                string   `json:"platform,omitempty"`
	Goal                    string   `json:"goal,omitempty"`
	TargetAudience          string   `json:"target_audience,omitempty"`
	Tone                    string   `json:"tone,omitempty"`
	Language                string   `json:"language,omitempty"`
	MaxLength               int      `json:"max_length,omitempty"`
	PostType                string   `json:"post_type,omitempty"`
	BrandPersona            string   `json:"brand_persona,omitempty"`
	ReferenceTwitterHandles []string `json:"reference_twitter_handles,omitempty"`
	ReferenceTexts          []string `json:"reference_texts,omitempty"`
}

// AnalyzeResponse is the evaluator's answer to an analyze call. The raw model
// response is opaque to the client and passed through for diagnostics only.
type AnalyzeResponse struct {
	Result           string            `json:"result"`
	Evaluation       models.Evaluation `json:"evaluation"`
	RawModelResponse json.RawMessage   `json:"openaiResponse,omitempty"`
}

// ApplyChangesRequest is the payload for the applyChanges function.
type ApplyChangesRequest struct {
	Post     string                     `json:"post"`
	Changes  []models.ChangeInstruction `json:"changes"`
	Language string                     `json:"language,omitempty"`
}

// ApplyChangesResponse is the evaluator's answer to an applyChanges call.
type ApplyChangesResponse struct {
	Result           string                  `json:"result"`
	UpdatedPost      string                  `json:"updatedPost"`
	ChangeLog        []models.ChangeLogEntry `json:"changeLog"`
	Warnings         []string                `json:"warnings"`
	RawModelResponse json.RawMessage         `json:"openaiResponse,omitempty"`
}

// Client is the evaluator boundary. Implementations differ only in
// transport; callers never branch on which one they hold.
type Client interface {
	Analyze(ctx context.Context, req *AnalyzeRequest) (*AnalyzeResponse, error)
	ApplyChanges(ctx context.Context, req *ApplyChangesRequest) (*ApplyChangesResponse, error)
}

// CallError is an error the evaluator itself reported, as opposed to a
// transport failure.
type CallError struct {
	Function string
	Status   string
	Message  string
}

func (e *CallError) Error() string {
	if e.Status != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Function, e.Message, e.Status)
	}
	return fmt.Sprintf("%s: %s", e.Function, e.Message)
}

// validateApply rejects apply payloads that can never succeed before any
// network traffic happens.
func validateApply(req *ApplyChangesRequest) error {
	if req == nil || strings.TrimSpace(req.Post) == "" {
		return fmt.Errorf("post text is required to apply changes")
	}
	if len(req.Changes) == 0 {
		return fmt.Errorf("at least one change instruction is required")
	}
	return nil
}
