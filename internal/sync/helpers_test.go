// Pulsegraph - Social Engagement Sync and Analytics Engine
// Copyright 2026 Pulsegraph contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/pulsegraph/pulsegraph

package sync

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/pulsegraph/pulsegraph/internal/config"
	"github.com/pulsegraph/pulsegraph/internal/models"
)

// testConfig returns a config with fast sync defaults and effectively
// unthrottled pacers so tests are not slowed by pacing.
func testConfig() *config.Config {
	fast := config.SourceConfig{
		Enabled:           true,
		BaseURL:           "http://localhost",
		APIKey:            "test",
		RequestsPerSecond: 10000,
		Timeout:           time.Second,
	}
	return &config.Config{
		Sources: config.SourcesConfig{
			YouTube:   fast,
			Instagram: fast,
			TikTok:    fast,
			Twitter:   fast,
		},
		Sync: config.SyncConfig{
			Interval:           time.Minute,
			Concurrency:        4,
			RetryAttempts:      1,
			RetryBaseDelay:     time.Millisecond,
			JitterMax:          time.Millisecond,
			RemoteBatchSize:    50,
			BulkWriteChunkSize: 100,
		},
	}
}

// fakeClient is a scriptable SourceClient. Responses and errors are
// keyed by external id; failuresBefore lets a test fail the first N
// calls for an id and then succeed.
type fakeClient struct {
	name string

	mu             sync.Mutex
	responses      map[string]models.RawMetrics
	errs           map[string]error
	failuresBefore map[string]int
	calls          map[string]int
}

func newFakeClient(name string) *fakeClient {
	return &fakeClient{
		name:           name,
		responses:      make(map[string]models.RawMetrics),
		errs:           make(map[string]error),
		failuresBefore: make(map[string]int),
		calls:          make(map[string]int),
	}
}

func (c *fakeClient) Name() string { return c.name }

func (c *fakeClient) GetMetrics(_ context.Context, externalID string) (models.RawMetrics, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.calls[externalID]++
	if n := c.failuresBefore[externalID]; n > 0 {
		c.failuresBefore[externalID] = n - 1
		return models.RawMetrics{}, fmt.Errorf("transient failure for %s", externalID)
	}
	if err, ok := c.errs[externalID]; ok {
		return models.RawMetrics{}, err
	}
	raw, ok := c.responses[externalID]
	if !ok {
		return models.RawMetrics{}, ErrPostNotFound
	}
	return raw, nil
}

func (c *fakeClient) callCount(externalID string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls[externalID]
}

// fakeBatchClient layers scripted batch lookups over fakeClient. Batch
// calls return whatever ids have responses; batchErr fails every batch
// call, pushing all ids to the per-item path.
type fakeBatchClient struct {
	*fakeClient

	maxIDs   int
	batchErr error

	batchMu    sync.Mutex
	batchCalls [][]string
}

func newFakeBatchClient(name string, maxIDs int) *fakeBatchClient {
	return &fakeBatchClient{fakeClient: newFakeClient(name), maxIDs: maxIDs}
}

func (c *fakeBatchClient) MaxBatchIDs() int { return c.maxIDs }

func (c *fakeBatchClient) GetMetricsBatch(_ context.Context, externalIDs []string) (map[string]models.RawMetrics, error) {
	c.batchMu.Lock()
	c.batchCalls = append(c.batchCalls, append([]string(nil), externalIDs...))
	c.batchMu.Unlock()

	if c.batchErr != nil {
		return nil, c.batchErr
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	result := make(map[string]models.RawMetrics)
	for _, id := range externalIDs {
		if raw, ok := c.responses[id]; ok {
			result[id] = raw
		}
	}
	return result, nil
}

func (c *fakeBatchClient) batchCallIDs() [][]string {
	c.batchMu.Lock()
	defer c.batchMu.Unlock()
	return append([][]string(nil), c.batchCalls...)
}

// fakeStore is an in-memory ContentStore and UserLister. bulkErrOn
// fails the Nth BulkUpdate call (1-based); 0 disables injected errors.
type fakeStore struct {
	mu        sync.Mutex
	contents  map[string][]models.Content
	updates   []models.MetricsUpdate
	bulkCalls int
	bulkErrOn int
	findErr   error
}

func newFakeStore() *fakeStore {
	return &fakeStore{contents: make(map[string][]models.Content)}
}

func (s *fakeStore) FindByUser(_ context.Context, userID string) ([]models.Content, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.findErr != nil {
		return nil, s.findErr
	}
	return s.contents[userID], nil
}

func (s *fakeStore) BulkUpdate(_ context.Context, ops []models.MetricsUpdate) (models.BulkWriteResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.bulkCalls++
	if s.bulkErrOn > 0 && s.bulkCalls == s.bulkErrOn {
		return models.BulkWriteResult{}, fmt.Errorf("storage unavailable")
	}
	s.updates = append(s.updates, ops...)
	return models.BulkWriteResult{Upserted: int64(len(ops))}, nil
}

func (s *fakeStore) ListUserIDs(_ context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var ids []string
	for id := range s.contents {
		ids = append(ids, id)
	}
	return ids, nil
}

func (s *fakeStore) appliedUpdates() []models.MetricsUpdate {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.MetricsUpdate(nil), s.updates...)
}

// testContent builds a content item with one external id per source pair
// given as (source, externalID) arguments.
func testContent(id, userID string, pairs ...string) models.Content {
	external := make(map[string]string)
	for i := 0; i+1 < len(pairs); i += 2 {
		external[pairs[i]] = pairs[i+1]
	}
	return models.Content{
		ID:       id,
		UserID:   userID,
		Title:    "content " + id,
		External: external,
	}
}
