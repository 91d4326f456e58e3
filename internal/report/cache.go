// Pulsegraph - Social Engagement Sync and Analytics Engine
// Copyright 2026 Pulsegraph contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/pulsegraph/pulsegraph

package report

import (
	"context"
	"sync"
	"time"

	"github.com/pulsegraph/pulsegraph/internal/logging"
	"github.com/pulsegraph/pulsegraph/internal/metrics"
	"github.com/pulsegraph/pulsegraph/internal/models"
)

// Cache is the TTL cache for composite reports. An entry past its
// expiry is observationally absent; the periodic sweep only bounds
// memory, it is not needed for correctness.
type Cache struct {
	ttl           time.Duration
	sweepInterval time.Duration

	mu      sync.RWMutex
	entries map[string]cacheEntry
}

type cacheEntry struct {
	report    models.CompositeReport
	expiresAt time.Time
}

// NewCache creates a cache with the given entry TTL and sweep interval.
func NewCache(ttl, sweepInterval time.Duration) *Cache {
	return &Cache{
		ttl:           ttl,
		sweepInterval: sweepInterval,
		entries:       make(map[string]cacheEntry),
	}
}

// Get returns the cached report for userID if it has not expired.
func (c *Cache) Get(userID string) (models.CompositeReport, bool) {
	c.mu.RLock()
	entry, ok := c.entries[userID]
	c.mu.RUnlock()

	if !ok || time.Now().After(entry.expiresAt) {
		metrics.ReportCacheMisses.Inc()
		return models.CompositeReport{}, false
	}
	metrics.ReportCacheHits.Inc()
	return entry.report, true
}

// Put stores a report for userID, overwriting any previous entry.
func (c *Cache) Put(userID string, report models.CompositeReport) {
	c.mu.Lock()
	c.entries[userID] = cacheEntry{report: report, expiresAt: time.Now().Add(c.ttl)}
	size := len(c.entries)
	c.mu.Unlock()

	metrics.ReportCacheSize.Set(float64(size))
}

// Invalidate drops a user's entry regardless of expiry. Called after a
// sync completes so the next report reflects fresh metrics.
func (c *Cache) Invalidate(userID string) {
	c.mu.Lock()
	delete(c.entries, userID)
	size := len(c.entries)
	c.mu.Unlock()

	metrics.ReportCacheSize.Set(float64(size))
}

// Sweep removes all entries whose expiry has passed and returns how
// many were removed.
func (c *Cache) Sweep() int {
	now := time.Now()

	c.mu.Lock()
	removed := 0
	for userID, entry := range c.entries {
		if now.After(entry.expiresAt) {
			delete(c.entries, userID)
			removed++
		}
	}
	size := len(c.entries)
	c.mu.Unlock()

	if removed > 0 {
		metrics.ReportCacheEvictions.Add(float64(removed))
	}
	metrics.ReportCacheSize.Set(float64(size))
	return removed
}

// Len returns the number of entries, expired or not.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Run sweeps expired entries on the configured interval until the
// context is cancelled. Intended to run as a supervised service.
func (c *Cache) Run(ctx context.Context) {
	ticker := time.NewTicker(c.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if removed := c.Sweep(); removed > 0 {
				logging.Debug().Int("removed", removed).Msg("Swept expired report cache entries")
			}
		}
	}
}
