// Package workspace owns the in-memory editing session: the current draft,
// the latest evaluation, issue selection, pending change instructions, and
// the version history. It sequences the two evaluator calls and guarantees
// that their result state is applied as a single visible unit.
package workspace

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/vendeza/Glavred/internal/analyzer"
	"github.com/vendeza/Glavred/internal/models"
)

// Workspace is the post-editing session store. All state lives behind one
// mutex; readers get snapshots and never observe a half-applied update.
// The workspace owns its state exclusively for the process lifetime — nothing
// is persisted.
type Workspace struct {
	client analyzer.Client

	mu             sync.Mutex
	draft          models.PostDraft
	evaluation     *models.Evaluation
	selected       map[string]struct{}
	pendingChanges []models.ChangeInstruction
	changeLog      []models.ChangeLogEntry
	warnings       []string
	versions       []models.PostVersion

	isAnalyzing       bool
	isApplyingChanges bool
	lastError         string

	entropy *ulid.MonotonicEntropy

	subMu       sync.Mutex
	subscribers map[int]func()
	nextSubID   int
}

// New creates an empty workspace backed by the given evaluator client.
func New(client analyzer.Client) *Workspace {
	return &Workspace{
		client:      client,
		selected:    make(map[string]struct{}),
		entropy:     ulid.Monotonic(rand.New(rand.NewSource(time.Now().UnixNano())), 0),
		subscribers: make(map[int]func()),
	}
}

// Subscribe registers fn to run after every state mutation and returns an
// unsubscribe func. Notifications run outside the workspace lock, so fn may
// read the workspace freely.
func (w *Workspace) Subscribe(fn func()) func() {
	w.subMu.Lock()
	id := w.nextSubID
	w.nextSubID++
	w.subscribers[id] = fn
	w.subMu.Unlock()
	return func() {
		w.subMu.Lock()
		delete(w.subscribers, id)
		w.subMu.Unlock()
	}
}

func (w *Workspace) notify() {
	w.subMu.Lock()
	fns := make([]func(), 0, len(w.subscribers))
	for _, fn := range w.subscribers {
		fns = append(fns, fn)
	}
	w.subMu.Unlock()
	for _, fn := range fns {
		fn()
	}
}

// ---------------------------------------------------------------------------
// Draft
// ---------------------------------------------------------------------------

// Draft returns a snapshot of the current draft.
func (w *Workspace) Draft() models.PostDraft {
	w.mu.Lock()
	defer w.mu.Unlock()
	return copyDraft(w.draft)
}

// SetPost replaces the post text only.
func (w *Workspace) SetPost(text string) {
	w.mu.Lock()
	w.draft.Text = text
	w.mu.Unlock()
	w.notify()
}

// UpdateDraft merges the patch into the draft. Nil patch fields leave the
// corresponding draft field untouched; no draft field is ever reset to its
// zero value by omission.
func (w *Workspace) UpdateDraft(patch *models.DraftPatch) {
	w.mu.Lock()
	patch.Apply(&w.draft)
	w.mu.Unlock()
	w.notify()
}

// CanAnalyze reports whether the draft has analyzable text.
func (w *Workspace) CanAnalyze() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return strings.TrimSpace(w.draft.Text) != ""
}

// ---------------------------------------------------------------------------
// Analyze
// ---------------------------------------------------------------------------

// Analyze sends the effective draft to the evaluator and replaces the held
// evaluation wholesale on success, clearing the issue selection with it.
// Overrides win field by field over the stored draft; unset fields fall back
// to stored values. A second call while one is in flight is rejected with
// ErrAnalyzeInProgress without touching the evaluator. On failure the prior
// evaluation is left untouched and the error is both recorded in LastError
// and returned.
func (w *Workspace) Analyze(ctx context.Context, overrides *models.DraftPatch) (*analyzer.AnalyzeResponse, error) {
	w.mu.Lock()
	if w.isAnalyzing {
		w.mu.Unlock()
		return nil, ErrAnalyzeInProgress
	}

	req := buildAnalyzeRequest(w.draft, overrides)
	if strings.TrimSpace(req.Post) == "" {
		err := fmt.Errorf("%w for analysis", ErrEmptyPost)
		w.lastError = err.Error()
		w.mu.Unlock()
		w.notify()
		return nil, err
	}

	w.isAnalyzing = true
	w.lastError = ""
	w.mu.Unlock()
	w.notify()

	resp, err := w.client.Analyze(ctx, req)

	w.mu.Lock()
	w.isAnalyzing = false
	if err != nil {
		w.lastError = err.Error()
		w.mu.Unlock()
		w.notify()
		return nil, err
	}
	evaluation := resp.Evaluation
	w.evaluation = &evaluation
	w.selected = make(map[string]struct{})
	w.mu.Unlock()
	w.notify()

	return resp, nil
}

// buildAnalyzeRequest merges overrides over the draft and shapes the wire
// payload. Empty reference lists are dropped rather than sent as [].
func buildAnalyzeRequest(draft models.PostDraft, overrides *models.DraftPatch) *analyzer.AnalyzeRequest {
	effective := copyDraft(draft)
	overrides.Apply(&effective)

	req := &analyzer.AnalyzeRequest{
		Post:           effective.Text,
		Platform:       effective.Platform,
		Goal:           effective.Goal,
		TargetAudience: effective.TargetAudience,
		Tone:           effective.Tone,
		Language:       effective.Language,
		MaxLength:      effective.MaxLength,
		PostType:       effective.PostType,
		BrandPersona:   effective.BrandPersona,
	}
	if len(effective.ReferenceTwitterHandles) > 0 {
		req.ReferenceTwitterHandles = effective.ReferenceTwitterHandles
	}
	if len(effective.ReferenceTexts) > 0 {
		req.ReferenceTexts = effective.ReferenceTexts
	}
	return req
}

// ---------------------------------------------------------------------------
// Apply changes
// ---------------------------------------------------------------------------

// ApplyOverrides carries per-call overrides for ApplyChanges. Nil fields fall
// back to stored state; Changes falls back to the pending change list.
type ApplyOverrides struct {
	Post     *string
	Changes  []models.ChangeInstruction
	Language *string
}

// ApplyChanges sends the effective post and change list to the rewrite
// function. On success the draft text, change log, warnings, cleared pending
// changes, and the new "AI" version snapshot become visible as one unit. On
// failure the draft and version history are untouched.
func (w *Workspace) ApplyChanges(ctx context.Context, overrides *ApplyOverrides) (*analyzer.ApplyChangesResponse, error) {
	w.mu.Lock()
	if w.isApplyingChanges {
		w.mu.Unlock()
		return nil, ErrApplyInProgress
	}

	req := &analyzer.ApplyChangesRequest{
		Post:     w.draft.Text,
		Changes:  append([]models.ChangeInstruction(nil), w.pendingChanges...),
		Language: w.draft.Language,
	}
	if overrides != nil {
		if overrides.Post != nil {
			req.Post = *overrides.Post
		}
		if overrides.Changes != nil {
			req.Changes = append([]models.ChangeInstruction(nil), overrides.Changes...)
		}
		if overrides.Language != nil {
			req.Language = *overrides.Language
		}
	}

	if strings.TrimSpace(req.Post) == "" {
		err := fmt.Errorf("%w to apply changes", ErrEmptyPost)
		w.lastError = err.Error()
		w.mu.Unlock()
		w.notify()
		return nil, err
	}
	if len(req.Changes) == 0 {
		w.lastError = ErrNoChanges.Error()
		w.mu.Unlock()
		w.notify()
		return nil, ErrNoChanges
	}

	w.isApplyingChanges = true
	w.lastError = ""
	w.mu.Unlock()
	w.notify()

	resp, err := w.client.ApplyChanges(ctx, req)

	w.mu.Lock()
	w.isApplyingChanges = false
	if err != nil {
		w.lastError = err.Error()
		w.mu.Unlock()
		w.notify()
		return nil, err
	}
	w.draft.Text = resp.UpdatedPost
	w.changeLog = append([]models.ChangeLogEntry(nil), resp.ChangeLog...)
	w.warnings = append([]string(nil), resp.Warnings...)
	w.pendingChanges = nil
	w.prependVersionLocked(resp.UpdatedPost, models.VersionLabelAI)
	w.mu.Unlock()
	w.notify()

	return resp, nil
}

// ---------------------------------------------------------------------------
// Evaluation and issue selection
// ---------------------------------------------------------------------------

// Evaluation returns a snapshot of the held evaluation, or nil when absent.
func (w *Workspace) Evaluation() *models.Evaluation {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.evaluation == nil {
		return nil
	}
	snapshot := *w.evaluation
	snapshot.Issues = append([]models.Issue(nil), w.evaluation.Issues...)
	return &snapshot
}

// RemoveIssues drops the issues with the given ids from the held evaluation,
// preserving the relative order of the remainder. Scores and summary are
// untouched. The evaluation identity changes, so the issue selection is
// cleared. No-op without an evaluation.
func (w *Workspace) RemoveIssues(issueIDs []string) {
	w.mu.Lock()
	if w.evaluation == nil {
		w.mu.Unlock()
		return
	}
	drop := make(map[string]struct{}, len(issueIDs))
	for _, id := range issueIDs {
		drop[id] = struct{}{}
	}
	remaining := make([]models.Issue, 0, len(w.evaluation.Issues))
	for _, issue := range w.evaluation.Issues {
		if _, ok := drop[issue.ID]; !ok {
			remaining = append(remaining, issue)
		}
	}
	updated := *w.evaluation
	updated.Issues = remaining
	w.evaluation = &updated
	w.selected = make(map[string]struct{})
	w.mu.Unlock()
	w.notify()
}

// SelectIssue adds an issue id to the selection. Unknown ids are ignored so
// stale ids can never be selected.
func (w *Workspace) SelectIssue(issueID string) {
	w.mu.Lock()
	if w.hasIssueLocked(issueID) {
		w.selected[issueID] = struct{}{}
	}
	w.mu.Unlock()
	w.notify()
}

// DeselectIssue removes an issue id from the selection.
func (w *Workspace) DeselectIssue(issueID string) {
	w.mu.Lock()
	delete(w.selected, issueID)
	w.mu.Unlock()
	w.notify()
}

// ToggleIssue flips the selection state of an issue id.
func (w *Workspace) ToggleIssue(issueID string) {
	w.mu.Lock()
	if _, ok := w.selected[issueID]; ok {
		delete(w.selected, issueID)
	} else if w.hasIssueLocked(issueID) {
		w.selected[issueID] = struct{}{}
	}
	w.mu.Unlock()
	w.notify()
}

// SelectAllIssues selects every issue in the held evaluation.
func (w *Workspace) SelectAllIssues() {
	w.mu.Lock()
	w.selected = make(map[string]struct{})
	if w.evaluation != nil {
		for _, issue := range w.evaluation.Issues {
			w.selected[issue.ID] = struct{}{}
		}
	}
	w.mu.Unlock()
	w.notify()
}

// ClearSelection empties the issue selection.
func (w *Workspace) ClearSelection() {
	w.mu.Lock()
	w.selected = make(map[string]struct{})
	w.mu.Unlock()
	w.notify()
}

// SelectedIssueIDs returns the selected ids in evaluation order.
func (w *Workspace) SelectedIssueIDs() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.evaluation == nil {
		return nil
	}
	ids := make([]string, 0, len(w.selected))
	for _, issue := range w.evaluation.Issues {
		if _, ok := w.selected[issue.ID]; ok {
			ids = append(ids, issue.ID)
		}
	}
	return ids
}

// ChangesForSelection projects the selected issues into change instructions,
// in evaluation order.
func (w *Workspace) ChangesForSelection() []models.ChangeInstruction {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.evaluation == nil {
		return nil
	}
	changes := make([]models.ChangeInstruction, 0, len(w.selected))
	for _, issue := range w.evaluation.Issues {
		if _, ok := w.selected[issue.ID]; ok {
			changes = append(changes, models.ChangeForIssue(issue))
		}
	}
	return changes
}

func (w *Workspace) hasIssueLocked(issueID string) bool {
	if w.evaluation == nil {
		return false
	}
	for _, issue := range w.evaluation.Issues {
		if issue.ID == issueID {
			return true
		}
	}
	return false
}

// ---------------------------------------------------------------------------
// Pending change instructions
// ---------------------------------------------------------------------------

// PendingChanges returns a snapshot of the queued change instructions.
func (w *Workspace) PendingChanges() []models.ChangeInstruction {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]models.ChangeInstruction(nil), w.pendingChanges...)
}

// SetPendingChanges replaces the queued change instructions.
func (w *Workspace) SetPendingChanges(changes []models.ChangeInstruction) {
	w.mu.Lock()
	w.pendingChanges = append([]models.ChangeInstruction(nil), changes...)
	w.mu.Unlock()
	w.notify()
}

// AddChangeInstruction appends one change instruction to the queue.
func (w *Workspace) AddChangeInstruction(instruction models.ChangeInstruction) {
	w.mu.Lock()
	w.pendingChanges = append(w.pendingChanges, instruction)
	w.mu.Unlock()
	w.notify()
}

// RemoveChangeInstruction drops the queued instruction with the given id.
func (w *Workspace) RemoveChangeInstruction(changeID string) {
	w.mu.Lock()
	kept := w.pendingChanges[:0]
	for _, change := range w.pendingChanges {
		if change.ID != changeID {
			kept = append(kept, change)
		}
	}
	w.pendingChanges = kept
	w.mu.Unlock()
	w.notify()
}

// ChangePatch is a partial update over a queued change instruction.
type ChangePatch struct {
	Description   *string
	Context       *string
	ReferenceText *string
	Priority      *models.IssuePriority
}

// UpdateChangeInstruction patches the queued instruction with the given id.
func (w *Workspace) UpdateChangeInstruction(changeID string, patch ChangePatch) {
	w.mu.Lock()
	for i := range w.pendingChanges {
		if w.pendingChanges[i].ID != changeID {
			continue
		}
		if patch.Description != nil {
			w.pendingChanges[i].Description = *patch.Description
		}
		if patch.Context != nil {
			w.pendingChanges[i].Context = *patch.Context
		}
		if patch.ReferenceText != nil {
			w.pendingChanges[i].ReferenceText = *patch.ReferenceText
		}
		if patch.Priority != nil {
			w.pendingChanges[i].Priority = *patch.Priority
		}
	}
	w.mu.Unlock()
	w.notify()
}

// ChangeLog returns the change log from the last successful rewrite.
func (w *Workspace) ChangeLog() []models.ChangeLogEntry {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]models.ChangeLogEntry(nil), w.changeLog...)
}

// Warnings returns the warnings from the last successful rewrite.
func (w *Workspace) Warnings() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]string(nil), w.warnings...)
}

// ---------------------------------------------------------------------------
// Version history
// ---------------------------------------------------------------------------

// Versions returns the version history, newest first.
func (w *Workspace) Versions() []models.PostVersion {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]models.PostVersion(nil), w.versions...)
}

// AddPostVersion snapshots content at the front of the history and returns
// the new version. Skipping empty content is the caller's contract; the
// history itself accepts anything. IDs are monotonic ULIDs, so two snapshots
// within the same millisecond still get distinct ids.
func (w *Workspace) AddPostVersion(content, label string) models.PostVersion {
	w.mu.Lock()
	version := w.prependVersionLocked(content, label)
	w.mu.Unlock()
	w.notify()
	return version
}

func (w *Workspace) prependVersionLocked(content, label string) models.PostVersion {
	now := time.Now()
	version := models.PostVersion{
		ID:        ulid.MustNew(ulid.Timestamp(now), w.entropy).String(),
		Label:     label,
		Content:   content,
		Timestamp: now,
	}
	w.versions = append([]models.PostVersion{version}, w.versions...)
	return version
}

// RemovePostVersion drops the version with the given id; no-op if absent.
func (w *Workspace) RemovePostVersion(versionID string) {
	w.mu.Lock()
	kept := w.versions[:0]
	for _, version := range w.versions {
		if version.ID != versionID {
			kept = append(kept, version)
		}
	}
	w.versions = kept
	w.mu.Unlock()
	w.notify()
}

// ClearPostVersions empties the version history. This is the only operation
// that does; ResetForm deliberately leaves history alone.
func (w *Workspace) ClearPostVersions() {
	w.mu.Lock()
	w.versions = nil
	w.mu.Unlock()
	w.notify()
}

// ---------------------------------------------------------------------------
// Flags, errors, resets
// ---------------------------------------------------------------------------

// IsAnalyzing reports whether an analyze call is in flight.
func (w *Workspace) IsAnalyzing() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.isAnalyzing
}

// IsApplyingChanges reports whether an applyChanges call is in flight.
func (w *Workspace) IsApplyingChanges() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.isApplyingChanges
}

// LastError returns the message of the last failed operation, cleared at the
// start of each new attempt.
func (w *Workspace) LastError() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.lastError
}

// ResetEvaluation clears the held evaluation, the issue selection, and the
// last error.
func (w *Workspace) ResetEvaluation() {
	w.mu.Lock()
	w.evaluation = nil
	w.selected = make(map[string]struct{})
	w.lastError = ""
	w.mu.Unlock()
	w.notify()
}

// ResetChanges clears the pending change queue, the change log, and warnings.
func (w *Workspace) ResetChanges() {
	w.mu.Lock()
	w.resetChangesLocked()
	w.mu.Unlock()
	w.notify()
}

func (w *Workspace) resetChangesLocked() {
	w.pendingChanges = nil
	w.changeLog = nil
	w.warnings = nil
}

// ResetForm clears the entire draft, the evaluation, and all change state.
// The version history survives; only ClearPostVersions removes it.
func (w *Workspace) ResetForm() {
	w.mu.Lock()
	w.draft = models.PostDraft{}
	w.evaluation = nil
	w.selected = make(map[string]struct{})
	w.lastError = ""
	w.resetChangesLocked()
	w.mu.Unlock()
	w.notify()
}

func copyDraft(d models.PostDraft) models.PostDraft {
	c := d
	c.ReferenceTwitterHandles = append([]string(nil), d.ReferenceTwitterHandles...)
	c.ReferenceTexts = append([]string(nil), d.ReferenceTexts...)
	return c
}
