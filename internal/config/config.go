package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration.
type Config struct {
	Database  DatabaseConfig  `yaml:"database"`
	Server    ServerConfig    `yaml:"server"`
	Schedule  ScheduleConfig  `yaml:"schedule"`
	Sources   SourcesConfig   `yaml:"sources"`
	Trust     TrustConfig     `yaml:"trust"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Universe  []string        `yaml:"universe"`
}

// DatabaseConfig configures SQLite storage.
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// ServerConfig configures the HTTP server and its auth tokens.
type ServerConfig struct {
	Port          int    `yaml:"port"`
	InternalToken string `yaml:"internal_token"`
	AdminSyncKey  string `yaml:"admin_sync_key"`
}

// ScheduleConfig configures the background job intervals.
type ScheduleConfig struct {
	IngestInterval    string `yaml:"ingest_interval"`
	RecomputeInterval string `yaml:"recompute_interval"`
}

// ParseIngestInterval returns the news/social ingest interval as time.Duration.
func (s ScheduleConfig) ParseIngestInterval() time.Duration {
	d, err := time.ParseDuration(s.IngestInterval)
	if err != nil {
		return 30 * time.Minute
	}
	return d
}

// ParseRecomputeInterval returns the trust recompute interval as time.Duration.
func (s ScheduleConfig) ParseRecomputeInterval() time.Duration {
	d, err := time.ParseDuration(s.RecomputeInterval)
	if err != nil {
		return time.Hour
	}
	return d
}

// SourcesConfig holds configuration for all upstream data sources.
type SourcesConfig struct {
	News   NewsConfig   `yaml:"news"`
	Reddit RedditConfig `yaml:"reddit"`
	RSS    RSSConfig    `yaml:"rss"`
}

// NewsConfig for the NewsAPI fetcher.
type NewsConfig struct {
	APIKey      string `yaml:"api_key"`
	QuerySuffix string `yaml:"query_suffix"`
}

// RedditConfig for the Reddit fetcher.
type RedditConfig struct {
	Subreddit string `yaml:"subreddit"`
}

// RSSConfig for the RSS news fetcher.
type RSSConfig struct {
	Enabled bool       `yaml:"enabled"`
	Feeds   []FeedItem `yaml:"feeds"`
}

// FeedItem is a single RSS feed entry.
type FeedItem struct {
	Name string `yaml:"name"`
	URL  string `yaml:"url"`
}

// TrustConfig tunes the scoring engine.
type TrustConfig struct {
	FetchTimeout  string             `yaml:"fetch_timeout"`
	SourceWeights map[string]float64 `yaml:"source_weights"`
}

// ParseFetchTimeout returns the per-source fetch timeout as time.Duration.
func (t TrustConfig) ParseFetchTimeout() time.Duration {
	d, err := time.ParseDuration(t.FetchTimeout)
	if err != nil {
		return 8 * time.Second
	}
	return d
}

// TelemetryConfig configures the product analytics and error sinks.
type TelemetryConfig struct {
	PostHogAPIKey string `yaml:"posthog_api_key"`
	PostHogHost   string `yaml:"posthog_host"`
	SentryDSN     string `yaml:"sentry_dsn"`
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Database: DatabaseConfig{Path: "./tickertrust.db"},
		Server: ServerConfig{
			Port:          8080,
			InternalToken: "local-dev-token",
			AdminSyncKey:  "local-admin-sync-key",
		},
		Schedule: ScheduleConfig{
			IngestInterval:    "30m",
			RecomputeInterval: "1h",
		},
		Sources: SourcesConfig{
			News:   NewsConfig{QuerySuffix: "stock India"},
			Reddit: RedditConfig{Subreddit: "IndianStreetBets"},
			RSS: RSSConfig{
				Enabled: true,
				Feeds: []FeedItem{
					{Name: "Moneycontrol Markets", URL: "https://www.moneycontrol.com/rss/marketreports.xml"},
					{Name: "Livemint Markets", URL: "https://www.livemint.com/rss/markets"},
					{Name: "ET Markets", URL: "https://economictimes.indiatimes.com/markets/rssfeeds/1977021501.cms"},
				},
			},
		},
		Trust: TrustConfig{FetchTimeout: "8s"},
		Telemetry: TelemetryConfig{
			PostHogHost: "https://app.posthog.com",
		},
		Universe: []string{
			"NIFTYBEES.NS", "RELIANCE.NS", "TCS.NS", "INFY.NS", "HDFCBANK.NS",
			"ICICIBANK.NS", "ITC.NS", "HINDUNILVR.NS", "LT.NS",
		},
	}
}

// Load reads configuration from a YAML file and applies env var overrides.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	applyEnvOverrides(cfg)
	return cfg, nil
}

// applyEnvOverrides overrides config values with environment variables.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("TICKERTRUST_DB_PATH"); v != "" {
		cfg.Database.Path = v
	}
	if v := os.Getenv("NEWS_API_KEY"); v != "" {
		cfg.Sources.News.APIKey = v
	}
	if v := os.Getenv("INTERNAL_API_TOKEN"); v != "" {
		cfg.Server.InternalToken = v
	}
	if v := os.Getenv("ADMIN_SYNC_KEY"); v != "" {
		cfg.Server.AdminSyncKey = v
	}
	if v := os.Getenv("POSTHOG_API_KEY"); v != "" {
		cfg.Telemetry.PostHogAPIKey = v
	}
	if v := os.Getenv("SENTRY_DSN"); v != "" {
		cfg.Telemetry.SentryDSN = v
	}
}
