package analyzer

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/vendeza/Glavred/internal/models"
)

// AnthropicClient evaluates posts directly against the Anthropic API instead
// of the hosted callable backend. It implements the same Client interface, so
// the rest of the application never knows which transport it is holding.
type AnthropicClient struct {
	api   *anthropic.Client
	model anthropic.Model
}

// NewAnthropicClient creates a direct evaluator with the given API key and model.
func NewAnthropicClient(apiKey, model string) *AnthropicClient {
	opts := []option.RequestOption{}
	if apiKey != "" {
		opts = append(opts, option.WithAPIKey(apiKey))
	}
	client := anthropic.NewClient(opts...)
	return &AnthropicClient{
		api:   &client,
		model: anthropic.Model(model),
	}
}

// buildAnalyzePrompt constructs the system and user prompts for post scoring.
func buildAnalyzePrompt(req *AnalyzeRequest) (system string, user string) {
	system = `You evaluate short-form social media posts. Return ONLY a JSON object with these fields:
- "post": the exact post text you evaluated
- "summary": 1-2 sentence overall assessment
- "scores": object with integer 0-100 values for "total", "hook", "clarity", "emotional_charge", "opinion_edge", "shareability", "value", "identity_match", "cta_strength", "readability", "uniqueness"
- "issues": array of detected problems, each with "id" (short unique slug), "type", "title", "description", "score_impact" (0-10 estimated score gain from fixing it), "advice", "suggested_fix", "priority" (one of "low", "medium", "high")
- "version": "1"

Rules:
- Score against the stated platform, goal, audience, and tone when given
- List issues in descending order of score_impact
- "suggested_fix" must be a concrete rewrite instruction, not generic advice
- Return valid JSON only, no markdown fencing or explanation`

	var sb strings.Builder
	writeField := func(name, value string) {
		if value != "" {
			sb.WriteString(name)
			sb.WriteString(": ")
			sb.WriteString(value)
			sb.WriteString("\n")
		}
	}
	writeField("Platform", req.Platform)
	writeField("Goal", req.Goal)
	writeField("Target audience", req.TargetAudience)
	writeField("Tone", req.Tone)
	writeField("Language", req.Language)
	writeField("Post type", req.PostType)
	writeField("Brand persona", req.BrandPersona)
	if req.MaxLength > 0 {
		writeField("Max length", strconv.Itoa(req.MaxLength))
	}
	if len(req.ReferenceTwitterHandles) > 0 {
		writeField("Reference accounts", strings.Join(req.ReferenceTwitterHandles, ", "))
	}
	for _, ref := range req.ReferenceTexts {
		sb.WriteString("Reference text:\n")
		sb.WriteString(ref)
		sb.WriteString("\n")
	}
	sb.WriteString("\nEvaluate this post:\n\n")
	sb.WriteString(req.Post)
	user = sb.String()
	return
}

// buildApplyPrompt constructs the system and user prompts for the rewrite call.
func buildApplyPrompt(req *ApplyChangesRequest) (system string, user string) {
	system = `You rewrite short-form social media posts by applying a list of change instructions. Return ONLY a JSON object with these fields:
- "updatedPost": the rewritten post text
- "changeLog": array with one entry per instruction, each with "id", "status" (one of "applied", "partial", "skipped"), "summary", optional "notes", optional "conflicts" (array of instruction ids it clashed with)
- "warnings": array of strings for anything the caller should know (can be empty)

Rules:
- Apply every instruction you can; mark an instruction "skipped" only when it conflicts with another or no longer matches the text
- Preserve the author's voice and the meaning of untouched passages
- Keep the post in its original language unless an instruction says otherwise
- Return valid JSON only, no markdown fencing or explanation`

	var sb strings.Builder
	if req.Language != "" {
		sb.WriteString("Language: ")
		sb.WriteString(req.Language)
		sb.WriteString("\n\n")
	}
	sb.WriteString("Post:\n")
	sb.WriteString(req.Post)
	sb.WriteString("\n\nChange instructions:\n")
	for i, change := range req.Changes {
		sb.WriteString(strconv.Itoa(i + 1))
		sb.WriteString(". ")
		if change.ID != "" {
			sb.WriteString("[")
			sb.WriteString(change.ID)
			sb.WriteString("] ")
		}
		sb.WriteString(change.Description)
		if change.Priority != "" {
			sb.WriteString(" (priority: ")
			sb.WriteString(string(change.Priority))
			sb.WriteString(")")
		}
		sb.WriteString("\n")
		if change.Context != "" {
			sb.WriteString("   Context: ")
			sb.WriteString(change.Context)
			sb.WriteString("\n")
		}
		if change.ReferenceText != "" {
			sb.WriteString("   Reference: ")
			sb.WriteString(change.ReferenceText)
			sb.WriteString("\n")
		}
	}
	user = sb.String()
	return
}

// Analyze scores the post with a single model call.
func (c *AnthropicClient) Analyze(ctx context.Context, req *AnalyzeRequest) (*AnalyzeResponse, error) {
	systemPrompt, userPrompt := buildAnalyzePrompt(req)

	text, err := c.complete(ctx, systemPrompt, userPrompt)
	if err != nil {
		return nil, err
	}

	var evaluation models.Evaluation
	if err := json.Unmarshal([]byte(text), &evaluation); err != nil {
		return nil, fmt.Errorf("parse model response as JSON: %w\nraw response: %s", err, text)
	}
	if evaluation.Post == "" {
		evaluation.Post = req.Post
	}

	raw, _ := json.Marshal(text)
	return &AnalyzeResponse{
		Result:           ResultOK,
		Evaluation:       evaluation,
		RawModelResponse: raw,
	}, nil
}

// ApplyChanges rewrites the post with a single model call.
func (c *AnthropicClient) ApplyChanges(ctx context.Context, req *ApplyChangesRequest) (*ApplyChangesResponse, error) {
	if err := validateApply(req); err != nil {
		return nil, err
	}

	systemPrompt, userPrompt := buildApplyPrompt(req)

	text, err := c.complete(ctx, systemPrompt, userPrompt)
	if err != nil {
		return nil, err
	}

	var parsed struct {
		UpdatedPost string                  `json:"updatedPost"`
		ChangeLog   []models.ChangeLogEntry `json:"changeLog"`
		Warnings    []string                `json:"warnings"`
	}
	if err := json.Unmarshal([]byte(text), &parsed); err != nil {
		return nil, fmt.Errorf("parse model response as JSON: %w\nraw response: %s", err, text)
	}
	if parsed.UpdatedPost == "" {
		return nil, fmt.Errorf("model response is missing the updated post")
	}
	if parsed.Warnings == nil {
		parsed.Warnings = []string{}
	}

	raw, _ := json.Marshal(text)
	return &ApplyChangesResponse{
		Result:           ResultOK,
		UpdatedPost:      parsed.UpdatedPost,
		ChangeLog:        parsed.ChangeLog,
		Warnings:         parsed.Warnings,
		RawModelResponse: raw,
	}, nil
}

// complete sends one prompt pair to the model and returns the trimmed text
// block with any markdown fencing stripped.
func (c *AnthropicClient) complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	msg, err := c.api.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     c.model,
		MaxTokens: 4096,
		System: []anthropic.TextBlockParam{
			{Text: systemPrompt},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(userPrompt)),
		},
	})
	if err != nil {
		return "", fmt.Errorf("anthropic API call: %w", err)
	}

	var text string
	for _, block := range msg.Content {
		if block.Type == "text" {
			text = block.Text
			break
		}
	}
	if text == "" {
		return "", fmt.Errorf("no text content in API response")
	}

	return stripFencing(text), nil
}

// stripFencing removes a surrounding markdown code fence if present.
func stripFencing(text string) string {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "```") {
		lines := strings.SplitN(text, "\n", 2)
		if len(lines) > 1 {
			text = lines[1]
		}
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
		text = strings.TrimSpace(text)
	}
	return text
}
