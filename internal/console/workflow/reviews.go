package workflow

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"sitedesk.org/internal/console/client"
	"sitedesk.org/internal/registry"
)

// DefaultApproveNote is recorded when an approval is submitted without an
// explicit note.
const DefaultApproveNote = "All documents verified. Site approved."

// ErrReasonRequired is returned when a rejection is attempted without a
// free-text reason.
var ErrReasonRequired = errors.New("rejection requires a reason")

// Reviews drives the actionable list, the detail view, and the edit draft.
// Decisions never mutate the list locally; the list is re-fetched after
// every action so the display matches server truth.
type Reviews struct {
	api            API
	onUnauthorized func()

	mu    sync.Mutex
	list  []registry.Review
	open  *registry.Review
	draft *Draft
}

// NewReviews constructs the review workflow.
func NewReviews(api API, onUnauthorized func()) *Reviews {
	return &Reviews{api: api, onUnauthorized: onUnauthorized}
}

// Refresh re-fetches the pending list, replacing it wholesale. Only
// actionable records are kept.
func (r *Reviews) Refresh(ctx context.Context) error {
	list, err := r.api.PendingReviews(ctx)
	if err != nil {
		return r.fail(err)
	}
	actionable := list[:0]
	for _, rev := range list {
		if rev.Actionable() {
			actionable = append(actionable, rev)
		}
	}
	r.mu.Lock()
	r.list = actionable
	r.mu.Unlock()
	return nil
}

// List returns the current actionable reviews.
func (r *Reviews) List() []registry.Review {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]registry.Review, len(r.list))
	copy(out, r.list)
	return out
}

// Open shows the summary record immediately, then fetches the detail shape
// and replaces the displayed record when it arrives. The detail always wins
// over the summary, including on status disagreement. A not-found on the
// detail fetch keeps the summary on display; other fetch errors are logged,
// never surfaced, because the summary is already usable.
func (r *Reviews) Open(ctx context.Context, id string) error {
	r.mu.Lock()
	var summary *registry.Review
	for i := range r.list {
		if r.list[i].ID == id {
			rev := r.list[i]
			summary = &rev
			break
		}
	}
	if summary == nil {
		r.mu.Unlock()
		return registry.ErrReviewNotFound
	}
	r.open = summary
	r.draft = nil
	r.mu.Unlock()

	detail, err := r.api.ReviewDetails(ctx, id)
	if err != nil {
		if errors.Is(err, client.ErrNotFound) {
			return nil
		}
		if errors.Is(err, client.ErrUnauthorized) && r.onUnauthorized != nil {
			r.onUnauthorized()
			return nil
		}
		logSwallowed("review_detail", err)
		return nil
	}

	r.mu.Lock()
	if r.open != nil && r.open.ID == id {
		r.open = &detail
	}
	r.mu.Unlock()
	return nil
}

// Current returns the review on display, or nil.
func (r *Reviews) Current() *registry.Review {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.open == nil {
		return nil
	}
	rev := *r.open
	return &rev
}

// CloseDetail dismisses the detail view and any draft.
func (r *Reviews) CloseDetail() {
	r.mu.Lock()
	r.open = nil
	r.draft = nil
	r.mu.Unlock()
}

// Approve applies the approve action and re-fetches the list. An empty note
// falls back to the default approval note.
func (r *Reviews) Approve(ctx context.Context, id, note string) error {
	if note == "" {
		note = DefaultApproveNote
	}
	if err := r.api.ApproveReview(ctx, id, note); err != nil {
		return r.fail(err)
	}
	return r.afterDecision(ctx, id)
}

// Reject applies the reject action with the given reason and re-fetches the
// list.
func (r *Reviews) Reject(ctx context.Context, id, reason string) error {
	if reason == "" {
		return ErrReasonRequired
	}
	if err := r.api.RejectReview(ctx, id, reason); err != nil {
		return r.fail(err)
	}
	return r.afterDecision(ctx, id)
}

// afterDecision refreshes the list and closes the detail view when the
// decided review was the one on display.
func (r *Reviews) afterDecision(ctx context.Context, id string) error {
	err := r.Refresh(ctx)
	r.mu.Lock()
	if r.open != nil && r.open.ID == id {
		r.open = nil
		r.draft = nil
	}
	r.mu.Unlock()
	return err
}

// BeginEdit starts an edit draft over the displayed review's site.
func (r *Reviews) BeginEdit() (*Draft, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.open == nil {
		return nil, errors.New("no review on display")
	}
	r.draft = NewDraft(r.open.Site)
	return r.draft, nil
}

// Draft returns the active edit draft, or nil when not editing.
func (r *Reviews) Draft() *Draft {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.draft
}

// SaveEdit submits the draft's patch, re-fetches the detail and the list,
// and exits edit mode. A draft with no changes exits edit mode without any
// network call.
func (r *Reviews) SaveEdit(ctx context.Context) error {
	r.mu.Lock()
	draft := r.draft
	open := r.open
	r.mu.Unlock()
	if draft == nil {
		return errors.New("no draft in progress")
	}

	patch := draft.Patch()
	if patch.IsEmpty() {
		r.mu.Lock()
		r.draft = nil
		r.mu.Unlock()
		return nil
	}

	if _, err := r.api.UpdateSiteDetails(ctx, draft.SiteID(), patch); err != nil {
		return r.fail(fmt.Errorf("save site details: %w", err))
	}

	if open != nil {
		detail, err := r.api.ReviewDetails(ctx, open.ID)
		if err != nil {
			logSwallowed("review_detail", err)
		} else {
			r.mu.Lock()
			if r.open != nil && r.open.ID == open.ID {
				r.open = &detail
			}
			r.mu.Unlock()
		}
	}

	err := r.Refresh(ctx)
	r.mu.Lock()
	r.draft = nil
	r.mu.Unlock()
	return err
}

// CancelEdit discards the draft without any network call.
func (r *Reviews) CancelEdit() {
	r.mu.Lock()
	r.draft = nil
	r.mu.Unlock()
}

// fail routes unauthorized errors through the centralized teardown hook.
func (r *Reviews) fail(err error) error {
	if errors.Is(err, client.ErrUnauthorized) && r.onUnauthorized != nil {
		r.onUnauthorized()
	}
	return err
}
