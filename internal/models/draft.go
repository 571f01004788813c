package models

// PostDraft holds the post text being edited plus the tuning parameters
// forwarded to the evaluator. All tuning fields are optional free-form
// inputs; validity is the evaluator's concern, not the client's.
type PostDraft struct {
	Text                    string   `json:"text"`
	Platform                string   `json:"platform,omitempty"`
	Goal                    string   `json:"goal,omitempty"`
	TargetAudience          string   `json:"target_audience,omitempty"`
	Tone                    string   `json:"tone,omitempty"`
	Language                string   `json:"language,omitempty"`
	MaxLength               int      `json:"max_length,omitempty"` // 0 = unset
	PostType                string   `json:"post_type,omitempty"`
	BrandPersona            string   `json:"brand_persona,omitempty"` // handle-like token, e.g. "@naval"
	ReferenceTwitterHandles []string `json:"reference_twitter_handles,omitempty"`
	ReferenceTexts          []string `json:"reference_texts,omitempty"`
}

// DraftPatch is a partial update over a PostDraft. Nil fields leave the
// corresponding draft field untouched; set fields replace it. The same type
// carries per-call overrides for analysis, where a set field wins over the
// stored draft value.
type DraftPatch struct {
	Text                    *string   `json:"text,omitempty"`
	Platform                *string   `json:"platform,omitempty"`
	Goal                    *string   `json:"goal,omitempty"`
	TargetAudience          *string   `json:"target_audience,omitempty"`
	Tone                    *string   `json:"tone,omitempty"`
	Language                *string   `json:"language,omitempty"`
	MaxLength               *int      `json:"max_length,omitempty"`
	PostType                *string   `json:"post_type,omitempty"`
	BrandPersona            *string   `json:"brand_persona,omitempty"`
	ReferenceTwitterHandles *[]string `json:"reference_twitter_handles,omitempty"`
	ReferenceTexts          *[]string `json:"reference_texts,omitempty"`
}

// Apply merges the patch into the draft, field by field.
func (p *DraftPatch) Apply(d *PostDraft) {
	if p == nil {
		return
	}
	if p.Text != nil {
		d.Text = *p.Text
	}
	if p.Platform != nil {
		d.Platform = *p.Platform
	}
	if p.Goal != nil {
		d.Goal = *p.Goal
	}
	if p.TargetAudience != nil {
		d.TargetAudience = *p.TargetAudience
	}
	if p.Tone != nil {
		d.Tone = *p.Tone
	}
	if p.Language != nil {
		d.Language = *p.Language
	}
	if p.MaxLength != nil {
		d.MaxLength = *p.MaxLength
	}
	if p.PostType != nil {
		d.PostType = *p.PostType
	}
	if p.BrandPersona != nil {
		d.BrandPersona = *p.BrandPersona
	}
	if p.ReferenceTwitterHandles != nil {
		d.ReferenceTwitterHandles = append([]string(nil), (*p.ReferenceTwitterHandles)...)
	}
	if p.ReferenceTexts != nil {
		d.ReferenceTexts = append([]string(nil), (*p.ReferenceTexts)...)
	}
}
