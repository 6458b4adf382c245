package web

import (
	"context"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"

	"github.com/dustin/go-humanize"

	"spacetraveling/blog"
	"spacetraveling/site"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

// Blog provides the content the pages render.
type Blog interface {
	Listing(ctx context.Context, pages int) (site.Listing, error)
	FetchPage(ctx context.Context, cursor string) (*blog.Page, error)
	Post(ctx context.Context, uid string) (*site.PostView, error)
}

// Server renders the blog over HTTP.
type Server struct {
	blog      Blog
	title     string
	baseURL   string
	templates map[string]*template.Template
}

// Option configures a Server.
type Option func(*Server)

// WithSiteTitle sets the title used in pages and the feed.
func WithSiteTitle(title string) Option {
	return func(s *Server) {
		s.title = title
	}
}

// WithBaseURL sets the absolute URL the site is served from, used for feed links.
func WithBaseURL(baseURL string) Option {
	return func(s *Server) {
		s.baseURL = baseURL
	}
}

// NewServer creates a Server and parses its templates.
func NewServer(b Blog, opts ...Option) (*Server, error) {
	s := &Server{
		blog:  b,
		title: "spacetraveling",
	}
	for _, opt := range opts {
		opt(s)
	}

	templates, err := parseTemplates("home.html", "post.html", "error.html")
	if err != nil {
		return nil, err
	}
	s.templates = templates
	return s, nil
}

// Routes returns the site's handler, wrapped in request logging.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()

	static, _ := fs.Sub(staticFS, "static")
	mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServerFS(static)))

	mux.HandleFunc("GET /{$}", s.Home)
	mux.HandleFunc("GET /post/{slug}", s.PostDetail)
	mux.HandleFunc("GET /api/posts", s.PostsAPI)
	mux.HandleFunc("GET /feed.xml", s.Feed)
	mux.HandleFunc("GET /healthz", s.Health)

	return requestID(accessLog(mux))
}

func parseTemplates(pages ...string) (map[string]*template.Template, error) {
	funcs := template.FuncMap{
		"formatDate": blog.FormatDate,
		"comma": func(n int) string {
			return humanize.Comma(int64(n))
		},
	}

	templates := make(map[string]*template.Template, len(pages))
	for _, page := range pages {
		t, err := template.New("").Funcs(funcs).ParseFS(templateFS, "templates/layout.html", "templates/"+page)
		if err != nil {
			return nil, fmt.Errorf("parse template %s: %w", page, err)
		}
		templates[page] = t
	}
	return templates, nil
}
