package web

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/feeds"
)

// Feed serves an RSS feed of the first listing page.
func (s *Server) Feed(w http.ResponseWriter, r *http.Request) {
	listing, err := s.blog.Listing(r.Context(), 1)
	if err != nil {
		slog.Warn("feed listing failed", "request_id", RequestID(r.Context()), "error", err)
		http.Error(w, "Failed to generate RSS", http.StatusBadGateway)
		return
	}

	feed := &feeds.Feed{
		Title:   s.title,
		Link:    &feeds.Link{Href: s.baseURL + "/"},
		Created: time.Now(),
	}

	for _, post := range listing.Results {
		item := &feeds.Item{
			Id:          post.UID,
			Title:       post.Title,
			Link:        &feeds.Link{Href: s.baseURL + "/post/" + post.UID},
			Description: post.Subtitle,
			Created:     post.FirstPublicationDate,
		}
		if post.Author != "" {
			item.Author = &feeds.Author{Name: post.Author}
		}
		if created := post.FirstPublicationDate; created.After(feed.Updated) {
			feed.Updated = created
		}
		feed.Items = append(feed.Items, item)
	}

	w.Header().Set("Content-Type", "application/rss+xml; charset=utf-8")
	if err := feed.WriteRss(w); err != nil {
		slog.Error("rss write failed", "error", err)
	}
}
