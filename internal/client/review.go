package client

import (
	"context"
	"errors"
	"sync"
)

// Review actions.
const (
	ActionConfirm = "confirm"
	ActionReject  = "reject"
)

// ErrReviewInFlight is returned when a review for the same match is already
// pending. Reviews for other matches proceed independently.
var ErrReviewInFlight = errors.New("review already in flight for this match")

// ReviewController submits confirm/reject decisions for one batch's
// matches. Nothing is mutated optimistically: on success it invalidates the
// match pages and the batch aggregate so the next reads show the server's
// post-review classification; on failure the displayed state is untouched
// and the caller may retry.
type ReviewController struct {
	client  *Client
	batches *BatchCache
	pages   *PageView
	batchID string

	mu       sync.Mutex
	inFlight map[int64]bool
}

func NewReviewController(client *Client, batches *BatchCache, pages *PageView, batchID string) *ReviewController {
	return &ReviewController{
		client:   client,
		batches:  batches,
		pages:    pages,
		batchID:  batchID,
		inFlight: make(map[int64]bool),
	}
}

// InFlight reports whether a review for the match is currently pending,
// so callers can disable resubmission.
func (r *ReviewController) InFlight(matchID int64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.inFlight[matchID]
}

// Review submits a decision for a match. A second submission for the same
// match while one is pending returns ErrReviewInFlight.
func (r *ReviewController) Review(ctx context.Context, matchID int64, action string) error {
	if action != ActionConfirm && action != ActionReject {
		return errors.New("action must be confirm or reject")
	}

	r.mu.Lock()
	if r.inFlight[matchID] {
		r.mu.Unlock()
		return ErrReviewInFlight
	}
	r.inFlight[matchID] = true
	r.mu.Unlock()

	defer func() {
		r.mu.Lock()
		delete(r.inFlight, matchID)
		r.mu.Unlock()
	}()

	if err := r.client.ReviewMatch(ctx, matchID, action); err != nil {
		return err
	}

	// Review changes what counts as flagged, and the counters are computed
	// server-side: drop both caches and let the next reads re-fetch.
	r.pages.Invalidate()
	r.batches.Invalidate(r.batchID)
	return nil
}
