package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"spacetraveling/blog"
	"spacetraveling/config"
	"spacetraveling/prismic"
	"spacetraveling/readtime"
	"spacetraveling/scheduler"
	"spacetraveling/site"
	"spacetraveling/storage"
	"spacetraveling/web"
)

func main() {
	// Set up structured logging
	level := new(slog.LevelVar)
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	slog.Info("starting spacetraveling")

	// Load configuration
	configPath := config.GetConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		slog.Error("failed to load config", "path", configPath, "error", err)
		os.Exit(1)
	}
	level.Set(cfg.SlogLevel())
	slog.Info("config loaded", "path", configPath, "endpoint", cfg.PrismicEndpoint)

	// Initialize snapshot database
	db, err := storage.NewDB(cfg.DBPath)
	if err != nil {
		slog.Error("failed to initialize database", "path", cfg.DBPath, "error", err)
		os.Exit(1)
	}
	defer db.Close()
	slog.Info("database initialized", "path", cfg.DBPath)

	// Initialize components
	client := prismic.NewClient(
		cfg.PrismicEndpoint,
		prismic.WithAccessToken(cfg.PrismicAccessToken),
		prismic.WithTimeout(cfg.FetchTimeout()),
	)

	estimatorOpts := []readtime.Option{readtime.WithWordsPerMinute(cfg.WordsPerMinute)}
	if cfg.CollapseWhitespace {
		estimatorOpts = append(estimatorOpts, readtime.WithCollapsedWhitespace())
	}

	blogSite := site.New(
		&prismicSource{client},
		site.WithCache(db),
		site.WithCacheTTL(cfg.CacheTTL()),
		site.WithDocumentType(cfg.DocumentType),
		site.WithPageSize(cfg.PageSize),
		site.WithMaxListingPages(cfg.MaxListingPages),
		site.WithEstimator(readtime.New(estimatorOpts...)),
	)

	srv, err := web.NewServer(
		blogSite,
		web.WithSiteTitle(cfg.SiteTitle),
		web.WithBaseURL(cfg.SiteBaseURL),
	)
	if err != nil {
		slog.Error("failed to initialize web server", "error", err)
		os.Exit(1)
	}

	// Set up context for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Schedule revalidation
	sched, err := scheduler.NewScheduler(cfg.Timezone)
	if err != nil {
		slog.Error("failed to initialize scheduler", "timezone", cfg.Timezone, "error", err)
		os.Exit(1)
	}
	if cfg.RevalidationEnabled() {
		if err := sched.Schedule(cfg.RevalidateSchedule, func() {
			revalidate(ctx, blogSite, cfg.FetchTimeout())
		}); err != nil {
			slog.Error("failed to schedule revalidation", "error", err)
			os.Exit(1)
		}
		sched.Start()
		defer sched.Stop()
		slog.Info("revalidation scheduled", "schedule", cfg.RevalidateSchedule, "timezone", cfg.Timezone, "next", sched.Next())
	}

	// Warm the snapshot without delaying startup
	go revalidate(ctx, blogSite, cfg.FetchTimeout())

	httpServer := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           srv.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("http server listening", "addr", cfg.ListenAddr)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		slog.Info("received shutdown signal")
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			slog.Error("http server failed", "error", err)
			os.Exit(1)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Warn("http server shutdown failed", "error", err)
	}
	slog.Info("server stopped")
}

// revalidate bounds a whole revalidation run; each post adds one fetch.
func revalidate(ctx context.Context, s *site.Site, fetchTimeout time.Duration) {
	ctx, cancel := context.WithTimeout(ctx, 30*fetchTimeout)
	defer cancel()
	if err := s.Revalidate(ctx); err != nil {
		slog.Error("revalidation failed", "error", err)
	}
}

// prismicSource converts API documents into blog types for the site package.
type prismicSource struct {
	client *prismic.Client
}

func (p *prismicSource) GetByType(ctx context.Context, docType string, pageSize int) (*blog.Page, error) {
	resp, err := p.client.GetByType(ctx, docType, pageSize)
	if err != nil {
		return nil, err
	}
	return resp.ToPage()
}

func (p *prismicSource) GetPage(ctx context.Context, docType, nextPage string) (*blog.Page, error) {
	resp, err := p.client.GetPage(ctx, docType, nextPage)
	if err != nil {
		return nil, err
	}
	return resp.ToPage()
}

func (p *prismicSource) GetByUID(ctx context.Context, docType, uid string) (*blog.PostDetail, error) {
	doc, err := p.client.GetByUID(ctx, docType, uid)
	if err != nil {
		return nil, err
	}
	return doc.ToDetail()
}
