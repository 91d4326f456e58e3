// Pulsegraph - Social Engagement Sync and Analytics Engine
// Copyright 2026 Pulsegraph contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/pulsegraph/pulsegraph

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists the paths searched for a config file, in order.
// The first file found wins.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/pulsegraph/config.yaml",
	"/etc/pulsegraph/config.yml",
}

// ConfigPathEnvVar overrides the config file search path.
const ConfigPathEnvVar = "CONFIG_PATH"

// defaultConfig returns a Config with all default values. Defaults are
// applied first, then overridden by the config file and env vars.
func defaultConfig() *Config {
	return &Config{
		Sources: SourcesConfig{
			YouTube: SourceConfig{
				Enabled:           false,
				BaseURL:           "https://www.googleapis.com/youtube/v3",
				RequestsPerSecond: 5,
				Timeout:           15 * time.Second,
			},
			Instagram: SourceConfig{
				Enabled:           false,
				BaseURL:           "https://graph.instagram.com",
				RequestsPerSecond: 2,
				Timeout:           15 * time.Second,
			},
			TikTok: SourceConfig{
				Enabled:           false,
				BaseURL:           "https://open.tiktokapis.com/v2",
				RequestsPerSecond: 2,
				Timeout:           15 * time.Second,
			},
			Twitter: SourceConfig{
				Enabled:           false,
				BaseURL:           "https://api.twitter.com/2",
				RequestsPerSecond: 1,
				Timeout:           15 * time.Second,
			},
		},
		Sync: SyncConfig{
			Interval:           15 * time.Minute,
			Concurrency:        5,
			RetryAttempts:      2,
			RetryBaseDelay:     time.Second,
			JitterMax:          500 * time.Millisecond,
			RemoteBatchSize:    50,
			BulkWriteChunkSize: 100,
		},
		Cache: CacheConfig{
			ReportTTL:     5 * time.Minute,
			SweepInterval: time.Hour,
		},
		Report: ReportConfig{
			SectionTimeout:  20 * time.Second,
			ProviderTimeout: 15 * time.Second,
			ConfigStorePath: "/data/analytics-config",
		},
		Database: DatabaseConfig{
			DSN:      "",
			MaxConns: 10,
			MinConns: 2,
		},
		NATS: NATSConfig{
			Enabled:       false,
			URL:           "nats://127.0.0.1:4222",
			SubjectPrefix: "pulsegraph",
		},
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8432,
			Timeout:         30 * time.Second,
			CORSOrigins:     []string{"*"},
			RateLimitReqs:   100,
			RateLimitWindow: time.Minute,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
	}
}

// Load loads configuration using Koanf v2 with layered sources:
//  1. Defaults: built-in sensible defaults
//  2. Config file: optional YAML file (if one exists)
//  3. Environment variables: override any setting
//
// Precedence is ENV > file > defaults. The returned Config has passed
// Validate().
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if configPath := findConfigFile(); configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	// SYNC_CONCURRENCY -> sync.concurrency, YOUTUBE_API_KEY ->
	// sources.youtube.api_key, and so on.
	envProvider := env.Provider("", ".", envTransformFunc)
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// findConfigFile returns the first config file that exists, or "".
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// sliceConfigPaths lists config paths parsed as comma-separated slices
// when supplied via environment variables.
var sliceConfigPaths = []string{
	"server.cors_origins",
}

// processSliceFields converts comma-separated env strings to slices for
// the known slice fields. YAML-sourced values are already slices and are
// left alone.
func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		val := k.Get(path)
		if val == nil {
			continue
		}
		if _, ok := val.([]interface{}); ok {
			continue
		}
		if _, ok := val.([]string); ok {
			continue
		}
		strVal, ok := val.(string)
		if !ok || strVal == "" {
			continue
		}
		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if len(trimmed) > 0 {
			if err := k.Set(path, trimmed); err != nil {
				return fmt.Errorf("failed to set %s: %w", path, err)
			}
		}
	}
	return nil
}

// envSectionPrefixes maps environment variable prefixes to config
// sections. Anything not matching a known prefix is ignored so unrelated
// environment variables never leak into the configuration.
var envSectionPrefixes = map[string]string{
	"youtube_":   "sources.youtube.",
	"instagram_": "sources.instagram.",
	"tiktok_":    "sources.tiktok.",
	"twitter_":   "sources.twitter.",
	"sync_":      "sync.",
	"cache_":     "cache.",
	"report_":    "report.",
	"database_":  "database.",
	"nats_":      "nats.",
	"server_":    "server.",
	"log_":       "logging.",
}

// envTransformFunc maps environment variable names to koanf config paths.
//
// Examples:
//   - YOUTUBE_API_KEY        -> sources.youtube.api_key
//   - SYNC_CONCURRENCY       -> sync.concurrency
//   - CACHE_REPORT_TTL       -> cache.report_ttl
//   - DATABASE_DSN           -> database.dsn
//   - LOG_LEVEL              -> logging.level
func envTransformFunc(key string) string {
	key = strings.ToLower(key)
	for prefix, section := range envSectionPrefixes {
		if strings.HasPrefix(key, prefix) {
			return section + strings.TrimPrefix(key, prefix)
		}
	}
	return ""
}
