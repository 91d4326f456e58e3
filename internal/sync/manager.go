// Pulsegraph - Social Engagement Sync and Analytics Engine
// Copyright 2026 Pulsegraph contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/pulsegraph/pulsegraph

package sync

import (
	"context"
	"sync"
	"time"

	"github.com/pulsegraph/pulsegraph/internal/logging"
	"github.com/pulsegraph/pulsegraph/internal/models"
)

// UserLister enumerates the user ids with stored content, feeding the
// periodic sync loop.
type UserLister interface {
	ListUserIDs(ctx context.Context) ([]string, error)
}

// ConfigSource supplies per-user analytics configuration; the sweep
// reads UpdateFrequency from it. Satisfied by report.ConfigRegistry.
type ConfigSource interface {
	Get(userID string) models.AnalyticsConfig
}

// Manager drives periodic background syncs for every known user and
// serves on-demand syncs triggered through the API. The manager owns no
// pipeline logic, it schedules the coordinator.
type Manager struct {
	coordinator *Coordinator
	users       UserLister
	configs     ConfigSource
	interval    time.Duration

	mu              sync.RWMutex
	lastSync        map[string]time.Time
	onSyncCompleted func(userID string, result models.SyncResult)

	cancel context.CancelFunc
	done   chan struct{}
}

// NewManager creates a manager sweeping every interval. configs gates
// each user on their configured update frequency; a nil configs syncs
// every user on every sweep.
func NewManager(coordinator *Coordinator, users UserLister, configs ConfigSource, interval time.Duration) *Manager {
	return &Manager{
		coordinator: coordinator,
		users:       users,
		configs:     configs,
		interval:    interval,
		lastSync:    make(map[string]time.Time),
	}
}

// SetOnSyncCompleted registers a callback invoked after every finished
// sync run (periodic or triggered). Must be called before Start.
func (m *Manager) SetOnSyncCompleted(fn func(userID string, result models.SyncResult)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onSyncCompleted = fn
}

// Start launches the periodic sync loop. The first sweep runs one full
// interval after start, giving the process time to settle.
func (m *Manager) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel
	m.done = make(chan struct{})

	go m.run(ctx)
	logging.Info().Dur("interval", m.interval).Msg("Sync manager started")
}

// Stop cancels the loop and waits for an in-flight sweep to finish.
func (m *Manager) Stop() {
	if m.cancel == nil {
		return
	}
	m.cancel()
	<-m.done
	logging.Info().Msg("Sync manager stopped")
}

func (m *Manager) run(ctx context.Context) {
	defer close(m.done)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.sweep(ctx)
		}
	}
}

// sweep syncs every due user sequentially. Concurrency lives inside
// each run; sweeping serially keeps aggregate provider pressure at one
// user's worth of traffic. A user is due when their configured update
// frequency has elapsed since their last completed sync.
func (m *Manager) sweep(ctx context.Context) {
	userIDs, err := m.users.ListUserIDs(ctx)
	if err != nil {
		logging.Error().Err(err).Msg("Failed to list users for sync sweep")
		return
	}

	log := logging.Ctx(logging.ContextWithNewCorrelationID(ctx))
	log.Info().Int("users", len(userIDs)).Msg("Starting sync sweep")

	now := time.Now().UTC()
	for _, userID := range userIDs {
		if ctx.Err() != nil {
			return
		}
		if !m.due(userID, now) {
			continue
		}
		if _, err := m.TriggerSync(ctx, userID, models.SyncOptions{}); err != nil {
			log.Error().Err(err).Str("user_id", userID).Msg("Sync run failed")
		}
	}
}

// due reports whether userID's update frequency has elapsed. Users with
// no recorded sync are always due; TriggerSync is never gated.
func (m *Manager) due(userID string, now time.Time) bool {
	last, ok := m.LastSyncTime(userID)
	if !ok || m.configs == nil {
		return true
	}
	freq := m.configs.Get(userID).UpdateFrequency
	if freq <= 0 {
		return true
	}
	return !now.Before(last.Add(freq))
}

// TriggerSync runs a sync for one user immediately and records its
// completion time. Used by both the periodic sweep and the API.
func (m *Manager) TriggerSync(ctx context.Context, userID string, opts models.SyncOptions) (models.SyncResult, error) {
	result, err := m.coordinator.SyncUser(ctx, userID, opts)
	if err != nil {
		return result, err
	}

	m.mu.Lock()
	m.lastSync[userID] = time.Now().UTC()
	callback := m.onSyncCompleted
	m.mu.Unlock()

	if callback != nil {
		callback(userID, result)
	}
	return result, nil
}

// LastSyncTime returns when userID last completed a sync, and whether
// it ever has within this process lifetime.
func (m *Manager) LastSyncTime(userID string) (time.Time, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.lastSync[userID]
	return t, ok
}
