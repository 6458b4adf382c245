package web

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"spacetraveling/blog"
	"spacetraveling/prismic"
	"spacetraveling/site"
)

type homeData struct {
	Title     string
	Posts     []blog.PostSummary
	HasMore   bool
	NextPages int
}

type postData struct {
	Title string
	Post  *site.PostView
}

type errorData struct {
	Title   string
	Status  int
	Message string
}

type apiPage struct {
	Results  []blog.PostSummary `json:"results"`
	NextPage *string            `json:"next_page"`
}

// Home renders the post listing. ?pages=N shows the first N pages merged.
func (s *Server) Home(w http.ResponseWriter, r *http.Request) {
	pages := 1
	if n, err := strconv.Atoi(r.URL.Query().Get("pages")); err == nil && n > 0 {
		pages = n
	}

	listing, err := s.blog.Listing(r.Context(), pages)
	if err != nil {
		s.renderError(w, r, err)
		return
	}

	s.render(w, r, http.StatusOK, "home.html", homeData{
		Title:     s.title,
		Posts:     listing.Results,
		HasMore:   listing.CanLoadMore(),
		NextPages: listing.Pages + 1,
	})
}

// PostDetail renders a single post with its reading time.
func (s *Server) PostDetail(w http.ResponseWriter, r *http.Request) {
	slug := r.PathValue("slug")
	if slug == "" {
		http.NotFound(w, r)
		return
	}

	view, err := s.blog.Post(r.Context(), slug)
	if err != nil {
		s.renderError(w, r, err)
		return
	}

	s.render(w, r, http.StatusOK, "post.html", postData{
		Title: view.Detail.Title + " | " + s.title,
		Post:  view,
	})
}

// PostsAPI returns one page of post summaries as JSON. Without a cursor it
// returns the first page; next_page is null once the listing is exhausted.
func (s *Server) PostsAPI(w http.ResponseWriter, r *http.Request) {
	page, err := s.blog.FetchPage(r.Context(), r.URL.Query().Get("cursor"))
	if err != nil {
		status := statusFor(err)
		slog.Warn("api page fetch failed", "request_id", RequestID(r.Context()), "error", err)
		writeJSON(w, status, map[string]string{"error": http.StatusText(status)})
		return
	}

	resp := apiPage{Results: page.Results}
	if resp.Results == nil {
		resp.Results = []blog.PostSummary{}
	}
	if page.NextPage != "" {
		resp.NextPage = &page.NextPage
	}
	writeJSON(w, http.StatusOK, resp)
}

// Health reports that the server is up.
func (s *Server) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) render(w http.ResponseWriter, r *http.Request, status int, page string, data any) {
	t, ok := s.templates[page]
	if !ok {
		http.Error(w, "template not found", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := t.ExecuteTemplate(w, "base", data); err != nil {
		slog.Error("template execution failed", "page", page, "request_id", RequestID(r.Context()), "error", err)
	}
}

func (s *Server) renderError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status == http.StatusNotFound {
		slog.Info("content not found", "path", r.URL.Path, "request_id", RequestID(r.Context()))
	} else {
		slog.Warn("content fetch failed", "path", r.URL.Path, "request_id", RequestID(r.Context()), "error", err)
	}

	message := "Não foi possível carregar o conteúdo."
	if status == http.StatusNotFound {
		message = "Post não encontrado."
	}
	s.render(w, r, status, "error.html", errorData{
		Title:   s.title,
		Status:  status,
		Message: message,
	})
}

func statusFor(err error) int {
	if errors.Is(err, prismic.ErrNotFound) {
		return http.StatusNotFound
	}
	return http.StatusBadGateway
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("failed to encode response", "error", err)
	}
}
