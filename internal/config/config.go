// Pulsegraph - Social Engagement Sync and Analytics Engine
// Copyright 2026 Pulsegraph contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/pulsegraph/pulsegraph

// Package config holds all application configuration, loaded with Koanf v2
// from layered sources: built-in defaults, an optional YAML config file,
// then environment variables (highest priority).
//
// Config is immutable after Load() and safe for concurrent reads.
package config

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

// Config holds all application configuration.
type Config struct {
	Sources  SourcesConfig  `koanf:"sources"`
	Sync     SyncConfig     `koanf:"sync"`
	Cache    CacheConfig    `koanf:"cache"`
	Report   ReportConfig   `koanf:"report"`
	Database DatabaseConfig `koanf:"database"`
	NATS     NATSConfig     `koanf:"nats"`
	Server   ServerConfig   `koanf:"server"`
	Logging  LoggingConfig  `koanf:"logging"`
}

// SourcesConfig groups the per-platform source settings.
type SourcesConfig struct {
	YouTube   SourceConfig `koanf:"youtube"`
	Instagram SourceConfig `koanf:"instagram"`
	TikTok    SourceConfig `koanf:"tiktok"`
	Twitter   SourceConfig `koanf:"twitter"`
}

// SourceConfig holds one external metrics source's connection settings.
// RequestsPerSecond feeds the per-source pacer: the minimum spacing
// between calls to this source is 1/RequestsPerSecond.
type SourceConfig struct {
	Enabled           bool          `koanf:"enabled"`
	BaseURL           string        `koanf:"base_url"`
	APIKey            string        `koanf:"api_key"`
	RequestsPerSecond float64       `koanf:"requests_per_second"`
	Timeout           time.Duration `koanf:"timeout"`
}

// ByName returns the configuration for a named source, and whether the
// name is known.
func (s *SourcesConfig) ByName(name string) (SourceConfig, bool) {
	switch name {
	case "youtube":
		return s.YouTube, true
	case "instagram":
		return s.Instagram, true
	case "tiktok":
		return s.TikTok, true
	case "twitter":
		return s.Twitter, true
	default:
		return SourceConfig{}, false
	}
}

// SyncConfig holds the defaults applied to sync runs that do not supply
// their own options, and the periodic sync loop settings.
type SyncConfig struct {
	Interval           time.Duration `koanf:"interval"`
	Concurrency        int           `koanf:"concurrency" validate:"gte=1"`
	RetryAttempts      int           `koanf:"retry_attempts" validate:"gte=0"`
	RetryBaseDelay     time.Duration `koanf:"retry_base_delay"`
	JitterMax          time.Duration `koanf:"jitter_max"`
	RemoteBatchSize    int           `koanf:"remote_batch_size" validate:"gte=1"`
	BulkWriteChunkSize int           `koanf:"bulk_write_chunk_size" validate:"gte=1"`
}

// CacheConfig holds the composite report cache settings.
type CacheConfig struct {
	ReportTTL     time.Duration `koanf:"report_ttl"`
	SweepInterval time.Duration `koanf:"sweep_interval"`
}

// ReportConfig holds orchestrator settings and the endpoints of the
// external analytical providers.
type ReportConfig struct {
	SectionTimeout  time.Duration `koanf:"section_timeout"`
	ProviderTimeout time.Duration `koanf:"provider_timeout"`
	AnalyticsURL    string        `koanf:"analytics_url"`
	PredictionURL   string        `koanf:"prediction_url"`
	TrendsURL       string        `koanf:"trends_url"`
	ListeningURL    string        `koanf:"listening_url"`
	CompetitorURL   string        `koanf:"competitor_url"`
	ConfigStorePath string        `koanf:"config_store_path"`
}

// DatabaseConfig holds the Postgres connection settings.
type DatabaseConfig struct {
	DSN      string `koanf:"dsn"`
	MaxConns int32  `koanf:"max_conns"`
	MinConns int32  `koanf:"min_conns"`
}

// NATSConfig holds the optional event publisher settings. When disabled,
// sync-completed and alert events are simply not published.
type NATSConfig struct {
	Enabled       bool   `koanf:"enabled"`
	URL           string `koanf:"url"`
	SubjectPrefix string `koanf:"subject_prefix"`
}

// ServerConfig holds the HTTP server settings.
type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port" validate:"gte=1,lte=65535"`
	Timeout         time.Duration `koanf:"timeout"`
	CORSOrigins     []string      `koanf:"cors_origins"`
	RateLimitReqs   int           `koanf:"rate_limit_reqs"`
	RateLimitWindow time.Duration `koanf:"rate_limit_window"`
}

// LoggingConfig holds log output settings.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// EnabledSources returns the names of all enabled sources in stable order.
func (c *Config) EnabledSources() []string {
	var out []string
	for _, name := range []string{"youtube", "instagram", "tiktok", "twitter"} {
		if sc, ok := c.Sources.ByName(name); ok && sc.Enabled {
			out = append(out, name)
		}
	}
	return out
}

// Validate checks struct-level constraints and cross-field invariants.
// It is called by Load(); a Config that fails validation is never
// returned to the application.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("struct validation: %w", err)
	}

	for _, name := range []string{"youtube", "instagram", "tiktok", "twitter"} {
		sc, _ := c.Sources.ByName(name)
		if !sc.Enabled {
			continue
		}
		if sc.BaseURL == "" {
			return fmt.Errorf("source %s enabled but base_url is empty", name)
		}
		if sc.APIKey == "" {
			return fmt.Errorf("source %s enabled but api_key is empty", name)
		}
		if sc.RequestsPerSecond <= 0 {
			return fmt.Errorf("source %s: requests_per_second must be positive, got %v", name, sc.RequestsPerSecond)
		}
	}

	if c.Database.DSN == "" {
		return fmt.Errorf("database dsn is required")
	}
	if c.Cache.ReportTTL <= 0 {
		return fmt.Errorf("cache report_ttl must be positive, got %v", c.Cache.ReportTTL)
	}
	if c.Cache.SweepInterval <= 0 {
		return fmt.Errorf("cache sweep_interval must be positive, got %v", c.Cache.SweepInterval)
	}
	if c.NATS.Enabled && c.NATS.URL == "" {
		return fmt.Errorf("nats enabled but url is empty")
	}

	return nil
}
