package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/url"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"spacetraveling/readtime"
	"spacetraveling/scheduler"
	"spacetraveling/storage"
)

// ScheduleOff disables background revalidation.
const ScheduleOff = "off"

// Config holds all application configuration.
type Config struct {
	PrismicEndpoint    string `yaml:"prismic_endpoint"`
	PrismicAccessToken string `yaml:"prismic_access_token"`
	DocumentType       string `yaml:"document_type"`
	PageSize           int    `yaml:"page_size"`
	MaxListingPages    int    `yaml:"max_listing_pages"`
	ListenAddr         string `yaml:"listen_addr"`
	SiteBaseURL        string `yaml:"site_base_url"`
	SiteTitle          string `yaml:"site_title"`
	FetchTimeoutSecs   int    `yaml:"fetch_timeout_secs"`
	CacheTTLSecs       int    `yaml:"cache_ttl_secs"`
	RevalidateSchedule string `yaml:"revalidate_schedule"`
	Timezone           string `yaml:"timezone"`
	DBPath             string `yaml:"db_path"`
	LogLevel           string `yaml:"log_level"`
	WordsPerMinute     int    `yaml:"words_per_minute"`
	CollapseWhitespace bool   `yaml:"collapse_whitespace"`
}

// Load reads configuration from a YAML file, applies defaults and
// environment overrides, and validates the result. A missing file is
// treated as an empty one so the site can be configured from the
// environment alone.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("read config file: %w", err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config yaml: %w", err)
		}
	}

	applyDefaults(cfg)
	applyEnvironmentOverrides(cfg)

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

// GetConfigPath returns the config file path from environment or default.
func GetConfigPath() string {
	if path := os.Getenv("SPACETRAVELING_CONFIG"); path != "" {
		return path
	}
	return "./config.yaml"
}

// FetchTimeout is the per-request timeout for the content API.
func (c *Config) FetchTimeout() time.Duration {
	return time.Duration(c.FetchTimeoutSecs) * time.Second
}

// CacheTTL is how long a snapshot entry is served before it is refetched.
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLSecs) * time.Second
}

// RevalidationEnabled reports whether a background revalidation job should run.
func (c *Config) RevalidationEnabled() bool {
	return c.RevalidateSchedule != ScheduleOff
}

// SlogLevel maps LogLevel onto a slog level.
func (c *Config) SlogLevel() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func applyDefaults(cfg *Config) {
	if cfg.DocumentType == "" {
		cfg.DocumentType = "posts"
	}
	if cfg.PageSize == 0 {
		cfg.PageSize = 2
	}
	if cfg.MaxListingPages == 0 {
		cfg.MaxListingPages = 20
	}
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = ":3000"
	}
	if cfg.SiteTitle == "" {
		cfg.SiteTitle = "spacetraveling"
	}
	if cfg.FetchTimeoutSecs == 0 {
		cfg.FetchTimeoutSecs = 10
	}
	if cfg.CacheTTLSecs == 0 {
		cfg.CacheTTLSecs = 3600
	}
	if cfg.RevalidateSchedule == "" {
		cfg.RevalidateSchedule = "@every 1h"
	}
	if cfg.Timezone == "" {
		cfg.Timezone = "UTC"
	}
	if cfg.DBPath == "" {
		cfg.DBPath = storage.MemoryDSN
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.WordsPerMinute == 0 {
		cfg.WordsPerMinute = readtime.DefaultWordsPerMinute
	}
}

func applyEnvironmentOverrides(cfg *Config) {
	if endpoint := os.Getenv("PRISMIC_API_ENDPOINT"); endpoint != "" {
		cfg.PrismicEndpoint = endpoint
	}
	if token := os.Getenv("PRISMIC_ACCESS_TOKEN"); token != "" {
		cfg.PrismicAccessToken = token
	}
	if dbPath := os.Getenv("SPACETRAVELING_DB"); dbPath != "" {
		cfg.DBPath = dbPath
	}
	if addr := os.Getenv("SPACETRAVELING_ADDR"); addr != "" {
		cfg.ListenAddr = addr
	}
	cfg.SiteBaseURL = strings.TrimRight(cfg.SiteBaseURL, "/")
}

func validate(cfg *Config) error {
	if cfg.PrismicEndpoint == "" {
		return fmt.Errorf("prismic_endpoint is required (or set PRISMIC_API_ENDPOINT)")
	}
	u, err := url.Parse(cfg.PrismicEndpoint)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("prismic_endpoint must be an absolute URL, got %q", cfg.PrismicEndpoint)
	}
	if cfg.PageSize < 1 || cfg.PageSize > 100 {
		return fmt.Errorf("page_size must be between 1 and 100, got %d", cfg.PageSize)
	}
	if cfg.MaxListingPages < 1 {
		return fmt.Errorf("max_listing_pages must be positive, got %d", cfg.MaxListingPages)
	}
	if cfg.FetchTimeoutSecs < 0 || cfg.CacheTTLSecs < 0 {
		return fmt.Errorf("fetch_timeout_secs and cache_ttl_secs must not be negative")
	}
	if cfg.WordsPerMinute < 1 {
		return fmt.Errorf("words_per_minute must be positive, got %d", cfg.WordsPerMinute)
	}
	if cfg.RevalidationEnabled() {
		if _, err := scheduler.ParseSpec(cfg.RevalidateSchedule); err != nil {
			return fmt.Errorf("revalidate_schedule: %w", err)
		}
	}
	if _, err := time.LoadLocation(cfg.Timezone); err != nil {
		return fmt.Errorf("invalid timezone %q: %w", cfg.Timezone, err)
	}
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log_level must be one of debug, info, warn, error, got %q", cfg.LogLevel)
	}
	return nil
}
