package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"spacetraveling/blog"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := NewDB(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("NewDB failed: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestNewDB(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	if _, err := db.conn.ExecContext(ctx, "SELECT 1 FROM pages LIMIT 1"); err != nil {
		t.Errorf("pages table not created: %v", err)
	}
	if _, err := db.conn.ExecContext(ctx, "SELECT 1 FROM posts LIMIT 1"); err != nil {
		t.Errorf("posts table not created: %v", err)
	}
}

func TestMemoryDB(t *testing.T) {
	db, err := NewDB(MemoryDSN)
	if err != nil {
		t.Fatalf("NewDB(memory) failed: %v", err)
	}
	defer db.Close()

	ctx := context.Background()
	if err := db.SavePage(ctx, "", &blog.Page{NextPage: "p2"}); err != nil {
		t.Fatalf("SavePage failed: %v", err)
	}
	if _, err := db.GetPage(ctx, "", 0); err != nil {
		t.Errorf("GetPage failed: %v", err)
	}
}

func TestPageRoundTrip(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	published := time.Date(2021, time.March, 25, 19, 25, 28, 0, time.UTC)
	page := &blog.Page{
		Results: []blog.PostSummary{
			{UID: "a", Title: "Como utilizar Hooks", Author: "Joseph Oliveira", FirstPublicationDate: published},
			{UID: "b", Title: "Criando um app CRA do zero", Author: "Danilo Vieira"},
		},
		NextPage: "https://repo.cdn.prismic.io/api/v2/documents/search?page=2",
	}

	if err := db.SavePage(ctx, "", page); err != nil {
		t.Fatalf("SavePage failed: %v", err)
	}

	got, err := db.GetPage(ctx, "", time.Hour)
	if err != nil {
		t.Fatalf("GetPage failed: %v", err)
	}
	if len(got.Results) != 2 || got.Results[0].UID != "a" || got.Results[1].UID != "b" {
		t.Errorf("Results = %+v", got.Results)
	}
	if got.NextPage != page.NextPage {
		t.Errorf("NextPage = %q, want %q", got.NextPage, page.NextPage)
	}
	if !got.Results[0].FirstPublicationDate.Equal(published) {
		t.Errorf("FirstPublicationDate = %v, want %v", got.Results[0].FirstPublicationDate, published)
	}

	if _, err := db.GetPage(ctx, "other", 0); err != ErrNotFound {
		t.Errorf("GetPage(missing) error = %v, want ErrNotFound", err)
	}
}

func TestPageOverwrite(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	if err := db.SavePage(ctx, "p2", &blog.Page{NextPage: "p3"}); err != nil {
		t.Fatal(err)
	}
	if err := db.SavePage(ctx, "p2", &blog.Page{}); err != nil {
		t.Fatal(err)
	}

	got, err := db.GetPage(ctx, "p2", 0)
	if err != nil {
		t.Fatal(err)
	}
	if got.NextPage != "" {
		t.Errorf("NextPage = %q, want overwritten empty cursor", got.NextPage)
	}
}

func TestIsNextPage(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	if err := db.SavePage(ctx, "first", &blog.Page{NextPage: "p2"}); err != nil {
		t.Fatal(err)
	}
	if err := db.SavePage(ctx, "p2", &blog.Page{}); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		cursor string
		want   bool
	}{
		{"p2", true},
		{"p3", false},
		{"first", false},
		{"", false},
	}
	for _, tt := range tests {
		got, err := db.IsNextPage(ctx, tt.cursor)
		if err != nil {
			t.Fatalf("IsNextPage(%q) failed: %v", tt.cursor, err)
		}
		if got != tt.want {
			t.Errorf("IsNextPage(%q) = %v, want %v", tt.cursor, got, tt.want)
		}
	}
}

func TestPostRoundTrip(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	post := &blog.PostDetail{
		UID:       "como-utilizar-hooks",
		Title:     "Como utilizar Hooks",
		BannerURL: "https://images.prismic.io/banner.png",
		Author:    "Joseph Oliveira",
		Content: []blog.ContentBlock{
			{Heading: "Proin et varius", Body: []blog.Paragraph{{Text: "Lorem ipsum"}, {Text: "dolor sit amet"}}},
			{Body: []blog.Paragraph{{Text: "Nullam dolor sapien"}}},
		},
	}

	if err := db.SavePost(ctx, post); err != nil {
		t.Fatalf("SavePost failed: %v", err)
	}

	got, err := db.GetPost(ctx, post.UID, time.Hour)
	if err != nil {
		t.Fatalf("GetPost failed: %v", err)
	}
	if got.Title != post.Title || got.BannerURL != post.BannerURL {
		t.Errorf("got %+v", got)
	}
	if len(got.Content) != 2 || len(got.Content[0].Body) != 2 || got.Content[1].Heading != "" {
		t.Errorf("Content = %+v", got.Content)
	}

	if _, err := db.GetPost(ctx, "missing", 0); err != ErrNotFound {
		t.Errorf("GetPost(missing) error = %v, want ErrNotFound", err)
	}
}

func TestExpiry(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	now := time.Now()
	db.now = func() time.Time { return now.Add(-2 * time.Hour) }
	if err := db.SavePost(ctx, &blog.PostDetail{UID: "old"}); err != nil {
		t.Fatal(err)
	}
	db.now = func() time.Time { return now }

	if _, err := db.GetPost(ctx, "old", time.Hour); err != ErrNotFound {
		t.Errorf("stale GetPost error = %v, want ErrNotFound", err)
	}
	if _, err := db.GetPost(ctx, "old", 3*time.Hour); err != nil {
		t.Errorf("GetPost within age failed: %v", err)
	}
	if _, err := db.GetPost(ctx, "old", 0); err != nil {
		t.Errorf("GetPost without age limit failed: %v", err)
	}
}

func TestPurgeAndStats(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	db.SavePage(ctx, "", &blog.Page{})
	db.SavePage(ctx, "p2", &blog.Page{})
	db.SavePost(ctx, &blog.PostDetail{UID: "a"})

	stats, err := db.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if stats.Pages != 2 || stats.Posts != 1 {
		t.Errorf("Stats = %+v, want 2 pages and 1 post", stats)
	}

	if err := db.Purge(ctx); err != nil {
		t.Fatalf("Purge failed: %v", err)
	}
	stats, err = db.Stats(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if stats.Pages != 0 || stats.Posts != 0 {
		t.Errorf("Stats after purge = %+v, want empty", stats)
	}
}
