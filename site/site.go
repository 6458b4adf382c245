package site

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/dustin/go-humanize"

	"spacetraveling/blog"
	"spacetraveling/paginator"
	"spacetraveling/readtime"
	"spacetraveling/storage"
)

// firstPageKey is the snapshot key of the home page's first result page.
// Cursors are absolute URLs, so it cannot collide with them.
const firstPageKey = "first"

// Source is the content API.
type Source interface {
	GetByType(ctx context.Context, docType string, pageSize int) (*blog.Page, error)
	GetPage(ctx context.Context, docType, nextPage string) (*blog.Page, error)
	GetByUID(ctx context.Context, docType, uid string) (*blog.PostDetail, error)
}

// Cache holds snapshots of fetched pages and posts.
type Cache interface {
	SavePage(ctx context.Context, cursor string, page *blog.Page) error
	GetPage(ctx context.Context, cursor string, maxAge time.Duration) (*blog.Page, error)
	IsNextPage(ctx context.Context, cursor string) (bool, error)
	SavePost(ctx context.Context, post *blog.PostDetail) error
	GetPost(ctx context.Context, uid string, maxAge time.Duration) (*blog.PostDetail, error)
	Purge(ctx context.Context) error
	Stats(ctx context.Context) (storage.Stats, error)
}

// PostView is a post ready to render.
type PostView struct {
	Detail      *blog.PostDetail
	Words       int
	ReadingTime string
	PublishedOn string
}

// Site serves the blog's pages from the content source.
type Site struct {
	source    Source
	cache     Cache
	docType   string
	pageSize  int
	maxPages  int
	ttl       time.Duration
	estimator *readtime.Estimator
}

// Option configures a Site.
type Option func(*Site)

// WithCache enables snapshots of fetched content.
func WithCache(c Cache) Option {
	return func(s *Site) {
		s.cache = c
	}
}

// WithCacheTTL sets how long a snapshot is served before refetching.
func WithCacheTTL(ttl time.Duration) Option {
	return func(s *Site) {
		s.ttl = ttl
	}
}

// WithDocumentType sets the custom type of blog posts.
func WithDocumentType(docType string) Option {
	return func(s *Site) {
		s.docType = docType
	}
}

// WithPageSize sets the number of posts per listing page.
func WithPageSize(n int) Option {
	return func(s *Site) {
		s.pageSize = n
	}
}

// WithMaxListingPages caps how many pages a single listing request merges.
func WithMaxListingPages(n int) Option {
	return func(s *Site) {
		s.maxPages = n
	}
}

// WithEstimator sets the reading time estimator.
func WithEstimator(e *readtime.Estimator) Option {
	return func(s *Site) {
		s.estimator = e
	}
}

// New creates a Site reading from source.
func New(source Source, opts ...Option) *Site {
	s := &Site{
		source:    source,
		docType:   "posts",
		pageSize:  2,
		maxPages:  20,
		ttl:       time.Hour,
		estimator: readtime.New(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// FirstPage returns the first page of the post listing.
func (s *Site) FirstPage(ctx context.Context) (*blog.Page, error) {
	return s.page(ctx, firstPageKey, true, func() (*blog.Page, error) {
		return s.source.GetByType(ctx, s.docType, s.pageSize)
	})
}

// FetchPage returns the page behind cursor. The empty cursor is the first page.
// Only cursors linked from a stored page are kept in the snapshot, so
// arbitrary cursors cannot grow it.
func (s *Site) FetchPage(ctx context.Context, cursor string) (*blog.Page, error) {
	if cursor == "" {
		return s.FirstPage(ctx)
	}
	return s.page(ctx, cursor, s.linked(ctx, cursor), func() (*blog.Page, error) {
		return s.source.GetPage(ctx, s.docType, cursor)
	})
}

// Listing is a merged run of listing pages.
type Listing struct {
	paginator.State
	// Pages is the number of pages merged after capping.
	Pages int
	// Capped is set when more pages exist but the page cap forbids loading them.
	Capped bool
}

// CanLoadMore reports whether a request for one more page would show more posts.
func (l Listing) CanLoadMore() bool {
	return l.HasMore() && !l.Capped
}

// Listing returns the merged state after loading pages listing pages, at most
// the configured maximum.
func (s *Site) Listing(ctx context.Context, pages int) (Listing, error) {
	if pages < 1 {
		pages = 1
	}
	if pages > s.maxPages {
		pages = s.maxPages
	}

	first, err := s.FirstPage(ctx)
	if err != nil {
		return Listing{}, err
	}
	state, err := paginator.Collect(ctx, s, *first, pages)
	if err != nil {
		return Listing{}, err
	}
	return Listing{
		State:  state,
		Pages:  pages,
		Capped: pages >= s.maxPages && state.HasMore(),
	}, nil
}

// Post returns the post with the given uid and its reading time.
func (s *Site) Post(ctx context.Context, uid string) (*PostView, error) {
	detail, err := s.post(ctx, uid)
	if err != nil {
		return nil, err
	}
	return &PostView{
		Detail:      detail,
		Words:       s.estimator.Words(detail.Content),
		ReadingTime: s.estimator.Estimate(detail.Content),
		PublishedOn: blog.FormatDate(detail.FirstPublicationDate),
	}, nil
}

// Paths returns the uid of every post.
func (s *Site) Paths(ctx context.Context) ([]string, error) {
	state, err := s.allPosts(ctx)
	if err != nil {
		return nil, err
	}
	uids := make([]string, 0, len(state.Results))
	for _, p := range state.Results {
		if p.UID != "" {
			uids = append(uids, p.UID)
		}
	}
	return uids, nil
}

// Revalidate drops every snapshot and fetches the home page and every post again.
// Posts that fail to load are logged and skipped.
func (s *Site) Revalidate(ctx context.Context) error {
	start := time.Now()
	slog.Info("starting revalidation", "document_type", s.docType)

	if s.cache != nil {
		if err := s.cache.Purge(ctx); err != nil {
			slog.Warn("failed to purge snapshot", "error", err)
		}
	}

	if _, err := s.FirstPage(ctx); err != nil {
		return err
	}

	uids, err := s.Paths(ctx)
	if err != nil {
		return err
	}

	var words, failed int
	for _, uid := range uids {
		view, err := s.Post(ctx, uid)
		if err != nil {
			slog.Warn("failed to revalidate post", "uid", uid, "error", err)
			failed++
			continue
		}
		words += view.Words
	}

	attrs := []any{
		"posts", len(uids),
		"failed", failed,
		"words", humanize.Comma(int64(words)),
		"duration", time.Since(start).Round(time.Millisecond).String(),
	}
	if s.cache != nil {
		if stats, err := s.cache.Stats(ctx); err == nil {
			attrs = append(attrs, "cached_pages", stats.Pages, "cached_posts", stats.Posts)
		}
	}
	slog.Info("revalidation complete", attrs...)
	return nil
}

func (s *Site) page(ctx context.Context, key string, store bool, fetch func() (*blog.Page, error)) (*blog.Page, error) {
	if s.cache != nil && store {
		page, err := s.cache.GetPage(ctx, key, s.ttl)
		if err == nil {
			return page, nil
		}
		if !errors.Is(err, storage.ErrNotFound) {
			slog.Warn("snapshot read failed", "cursor", key, "error", err)
		}
	}

	page, err := fetch()
	if err != nil {
		return nil, err
	}

	if s.cache != nil && store {
		if err := s.cache.SavePage(ctx, key, page); err != nil {
			slog.Warn("snapshot write failed", "cursor", key, "error", err)
		}
	}
	return page, nil
}

func (s *Site) linked(ctx context.Context, cursor string) bool {
	if s.cache == nil {
		return false
	}
	ok, err := s.cache.IsNextPage(ctx, cursor)
	if err != nil {
		slog.Warn("snapshot read failed", "cursor", cursor, "error", err)
		return false
	}
	return ok
}

func (s *Site) post(ctx context.Context, uid string) (*blog.PostDetail, error) {
	if s.cache != nil {
		detail, err := s.cache.GetPost(ctx, uid, s.ttl)
		if err == nil {
			return detail, nil
		}
		if !errors.Is(err, storage.ErrNotFound) {
			slog.Warn("snapshot read failed", "uid", uid, "error", err)
		}
	}

	detail, err := s.source.GetByUID(ctx, s.docType, uid)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.SavePost(ctx, detail); err != nil {
			slog.Warn("snapshot write failed", "uid", uid, "error", err)
		}
	}
	return detail, nil
}

// allPosts walks the whole collection with the API's default page size,
// bypassing the snapshot.
func (s *Site) allPosts(ctx context.Context) (paginator.State, error) {
	f := pathFetcher{source: s.source, docType: s.docType}
	first, err := f.FetchPage(ctx, "")
	if err != nil {
		return paginator.State{}, err
	}
	return paginator.Collect(ctx, f, *first, 0)
}

type pathFetcher struct {
	source  Source
	docType string
}

func (f pathFetcher) FetchPage(ctx context.Context, cursor string) (*blog.Page, error) {
	if cursor == "" {
		return f.source.GetByType(ctx, f.docType, 0)
	}
	return f.source.GetPage(ctx, f.docType, cursor)
}
