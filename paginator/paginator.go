package paginator

import (
	"context"
	"fmt"
	"sync"

	"spacetraveling/blog"
)

// Fetcher retrieves the page addressed by a next-page cursor.
type Fetcher interface {
	FetchPage(ctx context.Context, cursor string) (*blog.Page, error)
}

// State is the accumulated listing. Results keep fetch order and are only
// ever appended to; an empty NextPage marks the listing as exhausted.
type State struct {
	Results  []blog.PostSummary `json:"results"`
	NextPage string             `json:"next_page"`
}

// HasMore reports whether another page can be loaded. The listing offers a
// "load more" control exactly when this is true.
func (s State) HasMore() bool {
	return s.NextPage != ""
}

// Initialize builds the state for a first page.
func Initialize(first blog.Page) State {
	results := make([]blog.PostSummary, len(first.Results))
	copy(results, first.Results)
	return State{Results: results, NextPage: first.NextPage}
}

// LoadMore fetches the page addressed by s.NextPage and returns a new state
// with its results appended. It performs exactly one fetch and no retries.
// On error the returned state is s, unchanged. Calling LoadMore on an
// exhausted state is a no-op.
func LoadMore(ctx context.Context, f Fetcher, s State) (State, error) {
	if !s.HasMore() {
		return s, nil
	}

	page, err := f.FetchPage(ctx, s.NextPage)
	if err != nil {
		return s, fmt.Errorf("load more: %w", err)
	}
	if page == nil {
		return s, fmt.Errorf("load more: empty response for %q", s.NextPage)
	}

	results := make([]blog.PostSummary, 0, len(s.Results)+len(page.Results))
	results = append(results, s.Results...)
	results = append(results, page.Results...)

	return State{Results: results, NextPage: page.NextPage}, nil
}

// Collect loads pages after first until the listing is exhausted or limit
// pages (first included) have been merged. A limit <= 0 means no limit.
// The state reached before a failing fetch is returned with the error.
func Collect(ctx context.Context, f Fetcher, first blog.Page, limit int) (State, error) {
	state := Initialize(first)
	for pages := 1; state.HasMore() && (limit <= 0 || pages < limit); pages++ {
		next, err := LoadMore(ctx, f, state)
		if err != nil {
			return state, err
		}
		state = next
	}
	return state, nil
}

// Paginator owns a State and serializes LoadMore calls, so overlapping
// callers never race on the cursor.
type Paginator struct {
	fetcher Fetcher
	mu      sync.Mutex
	state   State
}

// New creates a Paginator seeded with the first page.
func New(f Fetcher, first blog.Page) *Paginator {
	return &Paginator{
		fetcher: f,
		state:   Initialize(first),
	}
}

// State returns a copy of the current state.
func (p *Paginator) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()

	results := make([]blog.PostSummary, len(p.state.Results))
	copy(results, p.state.Results)
	return State{Results: results, NextPage: p.state.NextPage}
}

// HasMore reports whether another page can be loaded.
func (p *Paginator) HasMore() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state.HasMore()
}

// LoadMore merges the next page into the held state. The lock is held for
// the duration of the fetch.
func (p *Paginator) LoadMore(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	next, err := LoadMore(ctx, p.fetcher, p.state)
	if err != nil {
		return err
	}
	p.state = next
	return nil
}
