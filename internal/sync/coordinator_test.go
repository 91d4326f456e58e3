// Pulsegraph - Social Engagement Sync and Analytics Engine
// Copyright 2026 Pulsegraph contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/pulsegraph/pulsegraph

package sync

import (
	"context"
	"sort"
	"strings"
	"testing"

	"github.com/pulsegraph/pulsegraph/internal/models"
)

func TestSyncUserNoContent(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	c := NewCoordinator(store, map[string]SourceClient{
		models.SourceInstagram: newFakeClient(models.SourceInstagram),
	}, testConfig())

	result, err := c.SyncUser(context.Background(), "user-1", models.SyncOptions{})
	if err != nil {
		t.Fatalf("SyncUser returned error: %v", err)
	}
	if result.Attempted != 0 || result.Succeeded != 0 || result.Failed != 0 {
		t.Errorf("expected all-zero counters, got %+v", result)
	}
	if len(result.Failures) != 0 {
		t.Errorf("expected no failures, got %v", result.Failures)
	}
	if len(store.appliedUpdates()) != 0 {
		t.Error("expected no writes for a user without content")
	}
}

func TestSyncUserResolvesAndWrites(t *testing.T) {
	t.Parallel()

	client := newFakeClient(models.SourceInstagram)
	client.responses["ig-1"] = models.RawMetrics{Likes: 10, Comments: 5, Shares: 5, Reach: 200}
	client.responses["ig-2"] = models.RawMetrics{Likes: 3}

	store := newFakeStore()
	store.contents["user-1"] = []models.Content{
		testContent("c1", "user-1", models.SourceInstagram, "ig-1"),
		testContent("c2", "user-1", models.SourceInstagram, "ig-2"),
	}

	c := NewCoordinator(store, map[string]SourceClient{models.SourceInstagram: client}, testConfig())
	result, err := c.SyncUser(context.Background(), "user-1", models.SyncOptions{})
	if err != nil {
		t.Fatalf("SyncUser returned error: %v", err)
	}

	if result.Attempted != 2 {
		t.Errorf("expected 2 attempted jobs, got %d", result.Attempted)
	}
	if result.Succeeded != 2 {
		t.Errorf("expected 2 succeeded, got %d", result.Succeeded)
	}
	if result.Failed != 0 {
		t.Errorf("expected 0 failed, got %d (%v)", result.Failed, result.Failures)
	}

	updates := store.appliedUpdates()
	if len(updates) != 2 {
		t.Fatalf("expected 2 updates, got %d", len(updates))
	}
	byContent := make(map[string]models.MetricsUpdate)
	for _, u := range updates {
		byContent[u.ContentID] = u
	}
	first := byContent["c1"]
	if first.Metrics.Engagement != 20 {
		t.Errorf("expected derived engagement 20, got %d", first.Metrics.Engagement)
	}
	if first.Metrics.EngagementRate != 10 {
		t.Errorf("expected engagement rate 10, got %v", first.Metrics.EngagementRate)
	}
	if first.Metrics.FetchedAt.IsZero() {
		t.Error("expected FetchedAt to be set")
	}
}

func TestSyncUserInProgress(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	store.contents["user-1"] = []models.Content{
		testContent("c1", "user-1", models.SourceInstagram, "ig-1"),
	}
	c := NewCoordinator(store, map[string]SourceClient{
		models.SourceInstagram: newFakeClient(models.SourceInstagram),
	}, testConfig())

	if !c.guard.tryAcquire("user-1") {
		t.Fatal("failed to acquire guard for test setup")
	}
	defer c.guard.release("user-1")

	result, err := c.SyncUser(context.Background(), "user-1", models.SyncOptions{})
	if err != nil {
		t.Fatalf("SyncUser returned error: %v", err)
	}
	if result.Attempted != 0 || result.Succeeded != 0 || result.Failed != 0 {
		t.Errorf("expected zero counters on in-progress short circuit, got %+v", result)
	}
	if len(result.Failures) != 1 || result.Failures[0].Reason != models.ReasonSyncInProgress {
		t.Fatalf("expected single sync_in_progress failure, got %v", result.Failures)
	}
	if len(store.appliedUpdates()) != 0 {
		t.Error("in-progress short circuit must not write")
	}
}

func TestSyncUserGuardReleasedAfterRun(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	store.findErr = context.DeadlineExceeded
	c := NewCoordinator(store, map[string]SourceClient{
		models.SourceInstagram: newFakeClient(models.SourceInstagram),
	}, testConfig())

	if _, err := c.SyncUser(context.Background(), "user-1", models.SyncOptions{}); err == nil {
		t.Fatal("expected error from failing store")
	}
	// Guard must be free again even after an errored run.
	if !c.guard.tryAcquire("user-1") {
		t.Error("guard still held after an errored sync")
	}
}

func TestSyncUserRetriesTransientFailure(t *testing.T) {
	t.Parallel()

	client := newFakeClient(models.SourceTwitter)
	client.responses["tw-1"] = models.RawMetrics{Likes: 7}
	client.failuresBefore["tw-1"] = 2

	store := newFakeStore()
	store.contents["user-1"] = []models.Content{
		testContent("c1", "user-1", models.SourceTwitter, "tw-1"),
	}

	c := NewCoordinator(store, map[string]SourceClient{models.SourceTwitter: client}, testConfig())
	result, err := c.SyncUser(context.Background(), "user-1", models.SyncOptions{MaxRetries: 2})
	if err != nil {
		t.Fatalf("SyncUser returned error: %v", err)
	}

	if result.Succeeded != 1 || result.Failed != 0 {
		t.Errorf("expected success after retries, got %+v", result)
	}
	if got := client.callCount("tw-1"); got != 3 {
		t.Errorf("expected 3 attempts, got %d", got)
	}
}

func TestSyncUserRecordsFetchFailureWithoutAborting(t *testing.T) {
	t.Parallel()

	client := newFakeClient(models.SourceTwitter)
	client.responses["tw-ok"] = models.RawMetrics{Likes: 1}
	client.errs["tw-bad"] = context.DeadlineExceeded

	store := newFakeStore()
	store.contents["user-1"] = []models.Content{
		testContent("c1", "user-1", models.SourceTwitter, "tw-ok"),
		testContent("c2", "user-1", models.SourceTwitter, "tw-bad"),
	}

	c := NewCoordinator(store, map[string]SourceClient{models.SourceTwitter: client}, testConfig())
	result, err := c.SyncUser(context.Background(), "user-1", models.SyncOptions{MaxRetries: 1})
	if err != nil {
		t.Fatalf("SyncUser returned error: %v", err)
	}

	if result.Attempted != 2 || result.Succeeded != 1 || result.Failed != 1 {
		t.Fatalf("expected 2/1/1 counters, got %+v", result)
	}
	if result.Failures[0].ContentID != "c2" {
		t.Errorf("expected failure for c2, got %+v", result.Failures[0])
	}
	if result.Failures[0].Reason == "" {
		t.Error("expected failure reason to carry the underlying error")
	}
}

func TestSyncUserMissingPostBecomesMetricsNotAvailable(t *testing.T) {
	t.Parallel()

	client := newFakeClient(models.SourceTikTok)
	// no response scripted for tt-gone: GetMetrics returns ErrPostNotFound

	store := newFakeStore()
	store.contents["user-1"] = []models.Content{
		testContent("c1", "user-1", models.SourceTikTok, "tt-gone"),
	}

	c := NewCoordinator(store, map[string]SourceClient{models.SourceTikTok: client}, testConfig())
	result, err := c.SyncUser(context.Background(), "user-1", models.SyncOptions{})
	if err != nil {
		t.Fatalf("SyncUser returned error: %v", err)
	}
	if len(result.Failures) != 1 || result.Failures[0].Reason != models.ReasonMetricsNotAvailable {
		t.Fatalf("expected metrics_not_available failure, got %v", result.Failures)
	}
}

func TestSyncUserChunkFailureIsIsolated(t *testing.T) {
	t.Parallel()

	client := newFakeClient(models.SourceInstagram)
	for _, id := range []string{"ig-1", "ig-2", "ig-3", "ig-4"} {
		client.responses[id] = models.RawMetrics{Likes: 1}
	}

	store := newFakeStore()
	store.bulkErrOn = 1 // first chunk fails, second applies
	store.contents["user-1"] = []models.Content{
		testContent("c1", "user-1", models.SourceInstagram, "ig-1"),
		testContent("c2", "user-1", models.SourceInstagram, "ig-2"),
		testContent("c3", "user-1", models.SourceInstagram, "ig-3"),
		testContent("c4", "user-1", models.SourceInstagram, "ig-4"),
	}

	c := NewCoordinator(store, map[string]SourceClient{models.SourceInstagram: client}, testConfig())
	result, err := c.SyncUser(context.Background(), "user-1", models.SyncOptions{
		Concurrency:        1,
		BulkWriteChunkSize: 2,
	})
	if err != nil {
		t.Fatalf("SyncUser returned error: %v", err)
	}

	if result.Succeeded != 2 {
		t.Errorf("expected 2 succeeded from the surviving chunk, got %d", result.Succeeded)
	}
	if len(result.Failures) != 1 {
		t.Fatalf("expected one chunk failure record, got %v", result.Failures)
	}
	f := result.Failures[0]
	if f.ContentID != "c1" || f.JobIndex != 0 {
		t.Errorf("chunk failure should reference the chunk's first job, got %+v", f)
	}
	if !strings.HasPrefix(f.Reason, "bulk write failed") {
		t.Errorf("unexpected chunk failure reason %q", f.Reason)
	}
	if got := len(store.appliedUpdates()); got != 2 {
		t.Errorf("expected 2 persisted updates, got %d", got)
	}
}

func TestSyncUserBatchPathWithPerItemFallback(t *testing.T) {
	t.Parallel()

	client := newFakeBatchClient(models.SourceYouTube, 50)
	client.responses["yt-1"] = models.RawMetrics{Views: 100}
	client.responses["yt-2"] = models.RawMetrics{Views: 200}
	// yt-3 has no response: absent from the batch result, then not found
	// on the per-item path either.

	store := newFakeStore()
	store.contents["user-1"] = []models.Content{
		testContent("c1", "user-1", models.SourceYouTube, "yt-1"),
		testContent("c2", "user-1", models.SourceYouTube, "yt-2"),
		testContent("c3", "user-1", models.SourceYouTube, "yt-3"),
	}

	c := NewCoordinator(store, map[string]SourceClient{models.SourceYouTube: client}, testConfig())
	result, err := c.SyncUser(context.Background(), "user-1", models.SyncOptions{RemoteBatchSize: 2})
	if err != nil {
		t.Fatalf("SyncUser returned error: %v", err)
	}

	batches := client.batchCallIDs()
	if len(batches) != 2 {
		t.Fatalf("expected 2 batch calls for batch size 2, got %d", len(batches))
	}
	if len(batches[0]) != 2 || len(batches[1]) != 1 {
		t.Errorf("unexpected batch shapes: %v", batches)
	}

	if result.Succeeded != 2 {
		t.Errorf("expected 2 succeeded, got %d", result.Succeeded)
	}
	if len(result.Failures) != 1 || result.Failures[0].ContentID != "c3" {
		t.Fatalf("expected one failure for c3, got %v", result.Failures)
	}
	// The unresolved id must have been retried through the per-item path.
	if got := client.callCount("yt-3"); got == 0 {
		t.Error("expected per-item fallback for the id the batch did not resolve")
	}
}

func TestSyncUserBatchErrorFallsBackPerItem(t *testing.T) {
	t.Parallel()

	client := newFakeBatchClient(models.SourceYouTube, 50)
	client.batchErr = context.DeadlineExceeded
	client.responses["yt-1"] = models.RawMetrics{Views: 42}

	store := newFakeStore()
	store.contents["user-1"] = []models.Content{
		testContent("c1", "user-1", models.SourceYouTube, "yt-1"),
	}

	c := NewCoordinator(store, map[string]SourceClient{models.SourceYouTube: client}, testConfig())
	result, err := c.SyncUser(context.Background(), "user-1", models.SyncOptions{MaxRetries: 0})
	if err != nil {
		t.Fatalf("SyncUser returned error: %v", err)
	}
	if result.Succeeded != 1 || result.Failed != 0 {
		t.Errorf("expected per-item fallback to resolve the job, got %+v", result)
	}
}

func TestSyncUserSkipsSourcesWithoutClient(t *testing.T) {
	t.Parallel()

	client := newFakeClient(models.SourceInstagram)
	client.responses["ig-1"] = models.RawMetrics{Likes: 1}

	store := newFakeStore()
	store.contents["user-1"] = []models.Content{
		testContent("c1", "user-1",
			models.SourceInstagram, "ig-1",
			models.SourceTwitter, "tw-1"),
	}

	c := NewCoordinator(store, map[string]SourceClient{models.SourceInstagram: client}, testConfig())
	result, err := c.SyncUser(context.Background(), "user-1", models.SyncOptions{})
	if err != nil {
		t.Fatalf("SyncUser returned error: %v", err)
	}
	if result.Attempted != 1 {
		t.Errorf("expected only the instagram job, got %d attempted", result.Attempted)
	}
}

func TestSyncUserFailuresSortedByJobIndex(t *testing.T) {
	t.Parallel()

	client := newFakeClient(models.SourceTwitter)
	client.errs["tw-0"] = context.DeadlineExceeded
	client.errs["tw-2"] = context.DeadlineExceeded
	client.errs["tw-4"] = context.DeadlineExceeded
	client.responses["tw-1"] = models.RawMetrics{Likes: 1}
	client.responses["tw-3"] = models.RawMetrics{Likes: 1}

	store := newFakeStore()
	for i, ext := range []string{"tw-0", "tw-1", "tw-2", "tw-3", "tw-4"} {
		store.contents["user-1"] = append(store.contents["user-1"],
			testContent("c"+string(rune('0'+i)), "user-1", models.SourceTwitter, ext))
	}

	c := NewCoordinator(store, map[string]SourceClient{models.SourceTwitter: client}, testConfig())
	result, err := c.SyncUser(context.Background(), "user-1", models.SyncOptions{Concurrency: 5})
	if err != nil {
		t.Fatalf("SyncUser returned error: %v", err)
	}

	if !sort.SliceIsSorted(result.Failures, func(i, j int) bool {
		return result.Failures[i].JobIndex < result.Failures[j].JobIndex
	}) {
		t.Errorf("failures not sorted by job index: %v", result.Failures)
	}
	if len(result.Failures) != 3 {
		t.Errorf("expected 3 failures, got %d", len(result.Failures))
	}
}
