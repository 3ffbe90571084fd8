package client

import (
	"context"
	"sync"
)

// View selects one of the three disjoint record populations of a batch.
type View string

const (
	ViewMatched   View = "matched"
	ViewFlagged   View = "flagged"
	ViewUnmatched View = "unmatched"
)

// Classification thresholds for the match views. Matched means
// classification, not review status, so it carries no reviewed filter;
// flagged is the pending-review population below the confident threshold.
const (
	matchedMinConfidence = 0.85
	flaggedMinConfidence = 0.50
)

// PageSize is fixed for all three views.
const PageSize = 20

// PageKey identifies one cached page. Using a struct key keeps the three
// views' pages from ever colliding.
type PageKey struct {
	BatchID string
	View    View
	Page    int
}

// Page is one fetched page of whichever population the view selects.
// Matches is populated for the match views, Records for unmatched.
type Page struct {
	Key     PageKey
	Matches []Match
	Records []UsageRecord
	Total   int
}

// TotalPages derives the page count from the fixed page size. A zero-total
// page still counts as one page so navigation stays well-defined.
func (p *Page) TotalPages() int {
	if p.Total <= 0 {
		return 1
	}
	return (p.Total + PageSize - 1) / PageSize
}

// PageView is the tabbed, paginated engine over a batch's three record
// populations. Each (batch, view, page) key caches independently; switching
// views resets to page 1 and never reuses another view's pages.
type PageView struct {
	client  *Client
	batchID string

	mu    sync.Mutex
	view  View
	page  int
	gen   uint64
	cache map[PageKey]*Page
}

func NewPageView(client *Client, batchID string) *PageView {
	return &PageView{
		client:  client,
		batchID: batchID,
		view:    ViewMatched,
		page:    1,
		cache:   make(map[PageKey]*Page),
	}
}

// View returns the active view.
func (v *PageView) View() View {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.view
}

// Page returns the active 1-based page index.
func (v *PageView) Page() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.page
}

// SetView switches tabs and resets paging to page 1. Switching to the
// already-active view keeps the current page.
func (v *PageView) SetView(view View) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if view == v.view {
		return
	}
	v.view = view
	v.page = 1
	v.gen++
}

// SetPage clamps the requested page to [1, totalPages] using the last known
// total for the active view.
func (v *PageView) SetPage(page int) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if page < 1 {
		page = 1
	}
	if max := v.totalPagesLocked(); max > 0 && page > max {
		page = max
	}
	if page == v.page {
		return
	}
	v.page = page
	v.gen++
}

// Next advances one page if not already at the last known page.
func (v *PageView) Next() {
	v.SetPage(v.Page() + 1)
}

// Prev steps back one page if not already at the first.
func (v *PageView) Prev() {
	v.SetPage(v.Page() - 1)
}

// CanNext reports whether Next would move, based on the last fetched total
// for the active view.
func (v *PageView) CanNext() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	max := v.totalPagesLocked()
	return max > 0 && v.page < max
}

// CanPrev reports whether Prev would move.
func (v *PageView) CanPrev() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.page > 1
}

// totalPagesLocked derives the page count from any page cached for the
// active view (totals agree across pages of one population); 0 when nothing
// has been fetched yet.
func (v *PageView) totalPagesLocked() int {
	for key, page := range v.cache {
		if key.BatchID == v.batchID && key.View == v.view {
			return page.TotalPages()
		}
	}
	return 0
}

func (v *PageView) activeKey() (PageKey, uint64) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return PageKey{BatchID: v.batchID, View: v.view, Page: v.page}, v.gen
}

// Load returns the active page, fetching on a cache miss. A response that
// arrives after the active key or generation has moved on is discarded
// rather than cached, so a stale in-flight fetch can never overwrite newer
// state; the caller gets the data it asked for but the engine forgets it.
func (v *PageView) Load(ctx context.Context) (*Page, error) {
	key, gen := v.activeKey()

	v.mu.Lock()
	if page, ok := v.cache[key]; ok {
		v.mu.Unlock()
		return page, nil
	}
	v.mu.Unlock()

	page, err := v.fetch(ctx, key)
	if err != nil {
		return nil, err
	}

	v.mu.Lock()
	current := PageKey{BatchID: v.batchID, View: v.view, Page: v.page}
	if gen == v.gen && key == current {
		v.cache[key] = page
	}
	v.mu.Unlock()

	return page, nil
}

// fetch derives the request shape for the key's view. The mappings are the
// classification contract: matched and flagged are filtered match queries,
// unmatched is a disjoint record population.
func (v *PageView) fetch(ctx context.Context, key PageKey) (*Page, error) {
	switch key.View {
	case ViewUnmatched:
		list, err := v.client.ListUnmatched(ctx, key.BatchID, key.Page, PageSize)
		if err != nil {
			return nil, err
		}
		// An empty unmatched page is a valid "fully matched" state.
		return &Page{Key: key, Records: list.Records, Total: list.Total}, nil

	case ViewFlagged:
		minConfidence := flaggedMinConfidence
		maxConfidence := matchedMinConfidence
		reviewed := false
		// Flagged is the pending-review population strictly below the
		// confident threshold; without the upper bound it would overlap
		// the matched view.
		list, err := v.client.ListMatches(ctx, key.BatchID, MatchQuery{
			Page:          key.Page,
			PageSize:      PageSize,
			MinConfidence: &minConfidence,
			MaxConfidence: &maxConfidence,
			Reviewed:      &reviewed,
		})
		if err != nil {
			return nil, err
		}
		return &Page{Key: key, Matches: list.Matches, Total: list.Total}, nil

	default: // ViewMatched
		minConfidence := matchedMinConfidence
		list, err := v.client.ListMatches(ctx, key.BatchID, MatchQuery{
			Page:          key.Page,
			PageSize:      PageSize,
			MinConfidence: &minConfidence,
		})
		if err != nil {
			return nil, err
		}
		return &Page{Key: key, Matches: list.Matches, Total: list.Total}, nil
	}
}

// Invalidate drops every cached page for the batch, all views. The next
// Load re-fetches, so an invalidation racing an in-flight fetch still
// resolves to post-invalidation state.
func (v *PageView) Invalidate() {
	v.mu.Lock()
	defer v.mu.Unlock()
	for key := range v.cache {
		if key.BatchID == v.batchID {
			delete(v.cache, key)
		}
	}
	v.gen++
}
