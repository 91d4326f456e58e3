// Pulsegraph - Social Engagement Sync and Analytics Engine
// Copyright 2026 Pulsegraph contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/pulsegraph/pulsegraph

package report

import (
	"errors"
	"fmt"
	"sync"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"github.com/pulsegraph/pulsegraph/internal/logging"
	"github.com/pulsegraph/pulsegraph/internal/models"
)

const configKeyPrefix = "analytics-config:"

// ConfigRegistry holds every user's analytics configuration. Reads are
// served from memory; writes go through to an embedded Badger store so
// configurations survive restarts. A user without a stored entry gets
// DefaultAnalyticsConfig.
type ConfigRegistry struct {
	mu      sync.RWMutex
	configs map[string]models.AnalyticsConfig
	db      *badger.DB
}

// NewConfigRegistry opens (or creates) the Badger store at path and
// loads all persisted configurations. An empty path keeps the registry
// purely in-memory.
func NewConfigRegistry(path string) (*ConfigRegistry, error) {
	r := &ConfigRegistry{configs: make(map[string]models.AnalyticsConfig)}

	if path == "" {
		return r, nil
	}

	opts := badger.DefaultOptions(path).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open config store at %s: %w", path, err)
	}
	r.db = db

	if err := r.loadAll(); err != nil {
		_ = db.Close()
		return nil, err
	}

	logging.Info().Str("path", path).Int("configs", len(r.configs)).Msg("Loaded analytics configurations")
	return r, nil
}

func (r *ConfigRegistry) loadAll() error {
	return r.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(configKeyPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			userID := string(item.Key()[len(configKeyPrefix):])
			err := item.Value(func(val []byte) error {
				var cfg models.AnalyticsConfig
				if err := json.Unmarshal(val, &cfg); err != nil {
					return fmt.Errorf("failed to decode config for user %s: %w", userID, err)
				}
				r.configs[userID] = cfg
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
}

// Close releases the underlying store.
func (r *ConfigRegistry) Close() error {
	if r.db == nil {
		return nil
	}
	return r.db.Close()
}

// Get returns the user's configuration, falling back to the defaults
// for users never configured. The default is not persisted until the
// user first updates it.
func (r *ConfigRegistry) Get(userID string) models.AnalyticsConfig {
	r.mu.RLock()
	cfg, ok := r.configs[userID]
	r.mu.RUnlock()

	if !ok {
		return models.DefaultAnalyticsConfig()
	}
	return cfg
}

// Update merges a partial configuration into the user's stored one and
// persists the result. The merged configuration is effective for all
// subsequent calls immediately, even if persistence fails.
func (r *ConfigRegistry) Update(userID string, patch models.AnalyticsConfigPatch) (models.AnalyticsConfig, error) {
	r.mu.Lock()
	current, ok := r.configs[userID]
	if !ok {
		current = models.DefaultAnalyticsConfig()
	}
	merged := current.Merge(patch)
	r.configs[userID] = merged
	r.mu.Unlock()

	if err := r.persist(userID, merged); err != nil {
		logging.Error().Err(err).Str("user_id", userID).Msg("Failed to persist analytics configuration")
		return merged, err
	}
	return merged, nil
}

func (r *ConfigRegistry) persist(userID string, cfg models.AnalyticsConfig) error {
	if r.db == nil {
		return nil
	}

	payload, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	err = r.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(configKeyPrefix+userID), payload)
	})
	if err != nil && !errors.Is(err, badger.ErrDBClosed) {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}
