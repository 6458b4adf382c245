package prismic

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"
)

// maxPageSize is the largest page the search API serves.
const maxPageSize = 100

// Ref is a content release pointer returned by the API root.
type Ref struct {
	ID          string `json:"id"`
	Ref         string `json:"ref"`
	Label       string `json:"label"`
	IsMasterRef bool   `json:"isMasterRef"`
}

type apiInfo struct {
	Refs []Ref `json:"refs"`
}

// Client provides access to a Prismic repository's REST API.
type Client struct {
	httpClient  *http.Client
	endpoint    string
	accessToken string

	mu        sync.Mutex
	masterRef string
}

// Option configures a Client.
type Option func(*Client)

// WithAccessToken sets the access token sent with every request.
func WithAccessToken(token string) Option {
	return func(c *Client) {
		c.accessToken = token
	}
}

// WithTimeout sets the HTTP client timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = d
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// NewClient creates a client for the repository API endpoint, for example
// https://my-repo.cdn.prismic.io/api/v2.
func NewClient(endpoint string, opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		endpoint:   strings.TrimRight(endpoint, "/"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// MasterRef returns the ref of the currently published content and
// remembers it for GetPage.
func (c *Client) MasterRef(ctx context.Context) (string, error) {
	var info apiInfo
	if err := c.get(ctx, "ref", c.withToken(c.endpoint), &info); err != nil {
		return "", err
	}
	for _, r := range info.Refs {
		if r.IsMasterRef {
			c.mu.Lock()
			c.masterRef = r.Ref
			c.mu.Unlock()
			return r.Ref, nil
		}
	}
	return "", &FetchError{Op: "ref", URL: c.endpoint, Err: errors.New("no master ref")}
}

// GetByType returns the first page of documents of the given type. A
// pageSize <= 0 leaves the API default.
func (c *Client) GetByType(ctx context.Context, docType string, pageSize int) (*SearchResponse, error) {
	return c.search(ctx, "get by type", typePredicate(docType), pageSize)
}

// GetByUID returns the document of the given type with the given UID.
func (c *Client) GetByUID(ctx context.Context, docType, uid string) (*Document, error) {
	predicate := fmt.Sprintf(`[[at(my.%s.uid,%q)]]`, docType, uid)
	resp, err := c.search(ctx, "get by uid", predicate, 1)
	if err != nil {
		return nil, err
	}
	if len(resp.Results) == 0 {
		return nil, &FetchError{Op: "get by uid", URL: c.endpoint, Err: fmt.Errorf("%s %q: %w", docType, uid, ErrNotFound)}
	}
	return &resp.Results[0], nil
}

// GetPage fetches a page addressed by a next_page URL from an earlier
// GetByType call for docType. Only the page and pageSize parameters are
// taken from the URL: the request is rebuilt against the repository's
// search endpoint, the type predicate, and the last known master ref, so a
// cursor cannot reach other document types or unreleased content. It makes
// exactly one request once a master ref is known.
func (c *Client) GetPage(ctx context.Context, docType, nextPage string) (*SearchResponse, error) {
	q, err := c.pageQuery(docType, nextPage)
	if err != nil {
		return nil, &FetchError{Op: "get page", URL: nextPage, Err: err}
	}

	ref, err := c.currentRef(ctx)
	if err != nil {
		return nil, err
	}
	q.Set("ref", ref)
	if c.accessToken != "" {
		q.Set("access_token", c.accessToken)
	}

	var resp SearchResponse
	if err := c.get(ctx, "get page", c.endpoint+"/documents/search?"+q.Encode(), &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// pageQuery validates a next_page URL and returns the query to reissue.
func (c *Client) pageQuery(docType, nextPage string) (url.Values, error) {
	u, err := url.Parse(nextPage)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid page URL %q", nextPage)
	}
	base, err := url.Parse(c.endpoint)
	if err != nil {
		return nil, fmt.Errorf("invalid endpoint: %w", err)
	}
	if !strings.EqualFold(base.Host, u.Host) || base.Scheme != u.Scheme {
		return nil, fmt.Errorf("page URL host %q does not match repository", u.Host)
	}
	if u.Path != strings.TrimRight(base.Path, "/")+"/documents/search" {
		return nil, fmt.Errorf("page URL path %q is not the search endpoint", u.Path)
	}

	in := u.Query()
	if preds := in["q"]; len(preds) != 1 || preds[0] != typePredicate(docType) {
		return nil, fmt.Errorf("page URL does not query %s documents", docType)
	}
	page, err := strconv.Atoi(in.Get("page"))
	if err != nil || page < 1 {
		return nil, fmt.Errorf("page URL has invalid page %q", in.Get("page"))
	}

	out := url.Values{}
	out.Set("q", typePredicate(docType))
	out.Set("page", strconv.Itoa(page))
	if raw := in.Get("pageSize"); raw != "" {
		size, err := strconv.Atoi(raw)
		if err != nil || size < 1 || size > maxPageSize {
			return nil, fmt.Errorf("page URL has invalid pageSize %q", raw)
		}
		out.Set("pageSize", strconv.Itoa(size))
	}
	return out, nil
}

// currentRef returns the master ref seen by the last lookup, fetching it
// when none has been made yet.
func (c *Client) currentRef(ctx context.Context) (string, error) {
	c.mu.Lock()
	ref := c.masterRef
	c.mu.Unlock()
	if ref != "" {
		return ref, nil
	}
	return c.MasterRef(ctx)
}

func typePredicate(docType string) string {
	return fmt.Sprintf(`[[at(document.type,%q)]]`, docType)
}

func (c *Client) search(ctx context.Context, op, predicate string, pageSize int) (*SearchResponse, error) {
	ref, err := c.MasterRef(ctx)
	if err != nil {
		return nil, err
	}

	q := url.Values{}
	q.Set("ref", ref)
	q.Set("q", predicate)
	if pageSize > 0 {
		q.Set("pageSize", strconv.Itoa(pageSize))
	}
	if c.accessToken != "" {
		q.Set("access_token", c.accessToken)
	}

	var resp SearchResponse
	if err := c.get(ctx, op, c.endpoint+"/documents/search?"+q.Encode(), &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) get(ctx context.Context, op, rawURL string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return &FetchError{Op: op, URL: rawURL, Err: fmt.Errorf("create request: %w", err)}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &FetchError{Op: op, URL: rawURL, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		msg := strings.TrimSpace(string(body))
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return &FetchError{Op: op, URL: rawURL, StatusCode: resp.StatusCode, Err: errors.New(msg)}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &FetchError{Op: op, URL: rawURL, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}

func (c *Client) withToken(rawURL string) string {
	if c.accessToken == "" {
		return rawURL
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	q := u.Query()
	if q.Get("access_token") != "" {
		return rawURL
	}
	q.Set("access_token", c.accessToken)
	u.RawQuery = q.Encode()
	return u.String()
}
