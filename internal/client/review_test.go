package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"works-matching-backend/internal/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// reviewBackend is a stateful fake: one flagged match that disappears from
// the flagged view once reviewed, plus request counters.
type reviewBackend struct {
	mu           sync.Mutex
	reviewed     bool
	failReviews  bool
	reviewCalls  int
	batchFetches int
	release      chan struct{} // when set, review requests block until closed
}

func (b *reviewBackend) server() *httptest.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/matches/7/review", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		b.reviewCalls++
		release := b.release
		fail := b.failReviews
		b.mu.Unlock()

		if release != nil {
			<-release
		}
		if fail {
			w.WriteHeader(http.StatusInternalServerError)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": "failed to review match"})
			return
		}

		b.mu.Lock()
		b.reviewed = true
		b.mu.Unlock()
		_ = json.NewEncoder(w).Encode(map[string]string{"message": "Match confirmed successfully"})
	})
	mux.HandleFunc("/api/matches/batch/", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		reviewed := b.reviewed
		b.mu.Unlock()

		list := MatchList{Page: 1, PageSize: PageSize}
		onlyUnreviewed := r.URL.Query().Get("reviewed") == "false"
		if !(onlyUnreviewed && reviewed) {
			list.Matches = []Match{{ID: 7, ConfidenceScore: 0.65, MatchType: "medium_confidence", IsConfirmed: reviewed}}
			list.Total = 1
		}
		_ = json.NewEncoder(w).Encode(list)
	})
	mux.HandleFunc("/api/batches/", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		b.batchFetches++
		b.mu.Unlock()
		_ = json.NewEncoder(w).Encode(Batch{ID: "b1", Status: "completed"})
	})
	return httptest.NewServer(mux)
}

func newReviewFixture(t *testing.T, backend *reviewBackend) (*ReviewController, *PageView, *BatchCache, func()) {
	t.Helper()
	srv := backend.server()
	c := New(srv.URL, logger.NewNop())
	batches := NewBatchCache(c, time.Minute)
	pages := NewPageView(c, "b1")
	controller := NewReviewController(c, batches, pages, "b1")
	return controller, pages, batches, srv.Close
}

func TestConfirmRemovesMatchFromFlaggedView(t *testing.T) {
	backend := &reviewBackend{}
	controller, pages, _, done := newReviewFixture(t, backend)
	defer done()

	ctx := context.Background()
	pages.SetView(ViewFlagged)

	page, err := pages.Load(ctx)
	require.NoError(t, err)
	require.Len(t, page.Matches, 1)
	assert.False(t, page.Matches[0].Reviewed())

	require.NoError(t, controller.Review(ctx, 7, ActionConfirm))

	// The flagged view requires unreviewed, so the confirmed match is gone
	// on the forced re-fetch.
	page, err = pages.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, page.Matches)
	assert.Equal(t, 0, page.Total)
}

func TestReviewInvalidatesBatchAggregate(t *testing.T) {
	backend := &reviewBackend{}
	controller, _, batches, done := newReviewFixture(t, backend)
	defer done()

	ctx := context.Background()
	_, err := batches.Get(ctx, "b1")
	require.NoError(t, err)
	assert.Equal(t, 1, backend.batchFetches)

	require.NoError(t, controller.Review(ctx, 7, ActionConfirm))

	_, err = batches.Get(ctx, "b1")
	require.NoError(t, err)
	assert.Equal(t, 2, backend.batchFetches, "review must invalidate the batch cache")
}

func TestReviewFailureLeavesStateUntouched(t *testing.T) {
	backend := &reviewBackend{failReviews: true}
	controller, pages, _, done := newReviewFixture(t, backend)
	defer done()

	ctx := context.Background()
	pages.SetView(ViewFlagged)
	_, err := pages.Load(ctx)
	require.NoError(t, err)

	err = controller.Review(ctx, 7, ActionConfirm)
	require.Error(t, err)

	// No invalidation happened: the cached flagged page is still served.
	page, err := pages.Load(ctx)
	require.NoError(t, err)
	assert.Len(t, page.Matches, 1)

	// The same action may be retried after the failure clears.
	backend.mu.Lock()
	backend.failReviews = false
	backend.mu.Unlock()
	require.NoError(t, controller.Review(ctx, 7, ActionConfirm))
}

func TestDuplicateSubmissionSuppressed(t *testing.T) {
	backend := &reviewBackend{release: make(chan struct{})}
	controller, _, _, done := newReviewFixture(t, backend)
	defer done()

	ctx := context.Background()

	firstDone := make(chan error, 1)
	go func() {
		firstDone <- controller.Review(ctx, 7, ActionConfirm)
	}()

	// Wait for the first submission to be in flight.
	require.Eventually(t, func() bool {
		return controller.InFlight(7)
	}, time.Second, 5*time.Millisecond)

	err := controller.Review(ctx, 7, ActionConfirm)
	assert.ErrorIs(t, err, ErrReviewInFlight)

	close(backend.release)
	require.NoError(t, <-firstDone)
	assert.False(t, controller.InFlight(7))
	assert.Equal(t, 1, backend.reviewCalls)
}

func TestInvalidActionRejectedLocally(t *testing.T) {
	backend := &reviewBackend{}
	controller, _, _, done := newReviewFixture(t, backend)
	defer done()

	err := controller.Review(context.Background(), 7, "approve")
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "confirm or reject"))
	assert.Equal(t, 0, backend.reviewCalls)
}
