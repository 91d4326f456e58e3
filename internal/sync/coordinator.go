// Pulsegraph - Social Engagement Sync and Analytics Engine
// Copyright 2026 Pulsegraph contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/pulsegraph/pulsegraph

package sync

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/pulsegraph/pulsegraph/internal/config"
	"github.com/pulsegraph/pulsegraph/internal/logging"
	"github.com/pulsegraph/pulsegraph/internal/metrics"
	"github.com/pulsegraph/pulsegraph/internal/models"
)

// ContentStore is the storage surface the coordinator needs. Defined on
// the consumer side so tests can substitute a fake without touching the
// real database layer.
type ContentStore interface {
	// FindByUser returns every content item owned by userID.
	FindByUser(ctx context.Context, userID string) ([]models.Content, error)

	// BulkUpdate applies a chunk of keyed metric upserts atomically per
	// operation (not per chunk) and reports what changed.
	BulkUpdate(ctx context.Context, ops []models.MetricsUpdate) (models.BulkWriteResult, error)
}

// FetchJob is one (content, source) pair queued for a metrics fetch.
// Index is the job's position in decomposition order and keys the
// result slot and failure records for the run.
type FetchJob struct {
	Index      int
	ContentID  string
	Source     string
	ExternalID string
}

// Coordinator runs the per-user sync pipeline: decompose content into
// fetch jobs, fetch with pacing and retries under bounded concurrency,
// normalize, and write back in chunks. One coordinator serves the whole
// process; per-user mutual exclusion is enforced internally.
type Coordinator struct {
	store   ContentStore
	clients map[string]SourceClient
	pacers  *PacerRegistry
	cfg     *config.Config
	guard   *userGuard
}

// NewCoordinator creates a coordinator over the given store and source
// clients. The clients map is keyed by source name; sources without a
// client are skipped during decomposition.
func NewCoordinator(store ContentStore, clients map[string]SourceClient, cfg *config.Config) *Coordinator {
	return &Coordinator{
		store:   store,
		clients: clients,
		pacers:  NewPacerRegistry(),
		cfg:     cfg,
		guard:   newUserGuard(),
	}
}

// syncRun holds the mutable state of one SyncUser invocation. Resolved
// payloads land in a per-job slot, so concurrent workers never write
// the same index; failures share a mutex.
type syncRun struct {
	jobs     []FetchJob
	resolved []*models.MetricsPayload

	mu       sync.Mutex
	failures []models.FailureRecord
	failed   map[int]bool
}

func newSyncRun(jobs []FetchJob) *syncRun {
	return &syncRun{
		jobs:     jobs,
		resolved: make([]*models.MetricsPayload, len(jobs)),
		failed:   make(map[int]bool),
	}
}

func (r *syncRun) resolve(idx int, payload models.MetricsPayload) {
	r.resolved[idx] = &payload
}

func (r *syncRun) fail(idx int, reason string) {
	job := r.jobs[idx]
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failed[idx] = true
	r.failures = append(r.failures, models.FailureRecord{
		JobIndex:  job.Index,
		ContentID: job.ContentID,
		Source:    job.Source,
		Reason:    reason,
	})
}

// failChunk records a bulk write failure against the first job of the
// chunk. The chunk's jobs stay resolved; only the write is lost.
func (r *syncRun) failChunk(firstIdx int, reason string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	job := r.jobs[firstIdx]
	r.failures = append(r.failures, models.FailureRecord{
		JobIndex:  job.Index,
		ContentID: job.ContentID,
		Source:    job.Source,
		Reason:    reason,
	})
}

// SyncUser refreshes engagement metrics for every content item of one
// user across the requested sources.
//
// If a sync for userID is already in flight the call returns
// immediately with a single sync_in_progress failure record and no
// error. Individual fetch or write failures never fail the run; they
// are reported per job in the result's Failures, sorted by job index.
func (c *Coordinator) SyncUser(ctx context.Context, userID string, opts models.SyncOptions) (models.SyncResult, error) {
	start := time.Now()

	if !c.guard.tryAcquire(userID) {
		metrics.SyncRuns.WithLabelValues("skipped").Inc()
		ctxLogger := logging.Ctx(ctx)
		ctxLogger.Info().Str("user_id", userID).Msg("Sync already in progress, skipping")
		return models.SyncResult{
			UserID:   userID,
			Failures: []models.FailureRecord{{Reason: models.ReasonSyncInProgress}},
		}, nil
	}
	defer c.guard.release(userID)

	if logging.CorrelationIDFromContext(ctx) == "" {
		ctx = logging.ContextWithNewCorrelationID(ctx)
	}
	log := logging.Ctx(ctx)

	opts = c.applyDefaults(opts)

	contents, err := c.store.FindByUser(ctx, userID)
	if err != nil {
		return models.SyncResult{UserID: userID}, fmt.Errorf("failed to load content for user %s: %w", userID, err)
	}

	jobs := c.decompose(contents, opts.Sources)
	if len(jobs) == 0 {
		metrics.SyncRuns.WithLabelValues("empty").Inc()
		log.Debug().Str("user_id", userID).Msg("No fetch jobs for user")
		return models.SyncResult{
			UserID:   userID,
			Failures: []models.FailureRecord{},
			Duration: time.Since(start),
		}, nil
	}

	log.Info().
		Str("user_id", userID).
		Int("jobs", len(jobs)).
		Strs("sources", opts.Sources).
		Msg("Starting sync")

	run := newSyncRun(jobs)
	policy := RetryPolicy{
		MaxRetries: opts.MaxRetries,
		BaseDelay:  opts.RetryBaseDelay,
		JitterMax:  opts.JitterMax,
	}

	// Batch-capable sources resolve what they can in bulk first; ids the
	// batch path could not resolve fall through to the per-item path.
	remaining := c.runBatches(ctx, run, policy, opts.RemoteBatchSize)

	RunBounded(ctx, opts.Concurrency, remaining, func(ctx context.Context, idx int) {
		c.fetchOne(ctx, run, idx, policy)
	})

	succeeded := c.writeBack(ctx, run, opts.BulkWriteChunkSize)

	// Anything neither resolved nor failed by now has no metrics.
	for idx := range run.jobs {
		if run.resolved[idx] == nil && !run.failed[idx] {
			run.fail(idx, models.ReasonMetricsNotAvailable)
		}
	}

	run.mu.Lock()
	failures := run.failures
	run.mu.Unlock()
	sort.SliceStable(failures, func(i, j int) bool {
		return failures[i].JobIndex < failures[j].JobIndex
	})

	result := models.SyncResult{
		UserID:    userID,
		Attempted: len(jobs),
		Succeeded: succeeded,
		Failed:    len(failures),
		Failures:  failures,
		Duration:  time.Since(start),
	}

	metrics.SyncRuns.WithLabelValues("completed").Inc()
	metrics.SyncDuration.Observe(result.Duration.Seconds())
	log.Info().
		Str("user_id", userID).
		Int("attempted", result.Attempted).
		Int("succeeded", result.Succeeded).
		Int("failed", result.Failed).
		Dur("duration", result.Duration).
		Msg("Sync completed")

	return result, nil
}

// applyDefaults fills zero-valued options from configuration.
func (c *Coordinator) applyDefaults(opts models.SyncOptions) models.SyncOptions {
	sc := c.cfg.Sync
	if opts.Concurrency <= 0 {
		opts.Concurrency = sc.Concurrency
	}
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = sc.RetryAttempts
	}
	if opts.RetryBaseDelay <= 0 {
		opts.RetryBaseDelay = sc.RetryBaseDelay
	}
	if opts.JitterMax <= 0 {
		opts.JitterMax = sc.JitterMax
	}
	if opts.RemoteBatchSize <= 0 {
		opts.RemoteBatchSize = sc.RemoteBatchSize
	}
	if opts.BulkWriteChunkSize <= 0 {
		opts.BulkWriteChunkSize = sc.BulkWriteChunkSize
	}
	if len(opts.Sources) == 0 {
		for _, source := range models.AllSources {
			if _, ok := c.clients[source]; ok {
				opts.Sources = append(opts.Sources, source)
			}
		}
	}
	return opts
}

// decompose expands content items into fetch jobs, one per (content,
// source) pair that has both a configured client and a stored external
// id. Order is deterministic: content order, then source order.
func (c *Coordinator) decompose(contents []models.Content, sources []string) []FetchJob {
	var jobs []FetchJob
	for _, content := range contents {
		for _, source := range sources {
			if _, ok := c.clients[source]; !ok {
				continue
			}
			extID := content.ExternalID(source)
			if extID == "" {
				continue
			}
			jobs = append(jobs, FetchJob{
				Index:      len(jobs),
				ContentID:  content.ID,
				Source:     source,
				ExternalID: extID,
			})
		}
	}
	return jobs
}

// runBatches resolves jobs through batch-capable clients and returns
// the indexes that still need the per-item path: jobs of non-batch
// sources, ids the batch response omitted, and whole chunks whose
// batch call failed after retries.
func (c *Coordinator) runBatches(ctx context.Context, run *syncRun, policy RetryPolicy, batchSize int) []int {
	bySource := make(map[string][]int)
	for idx, job := range run.jobs {
		bySource[job.Source] = append(bySource[job.Source], idx)
	}

	var remaining []int
	for _, source := range models.AllSources {
		idxs := bySource[source]
		if len(idxs) == 0 {
			continue
		}

		batchClient, ok := c.clients[source].(BatchClient)
		if !ok {
			remaining = append(remaining, idxs...)
			continue
		}

		size := batchSize
		if limit := batchClient.MaxBatchIDs(); size > limit {
			size = limit
		}
		pacer := c.pacerFor(source)

		for chunkStart := 0; chunkStart < len(idxs); chunkStart += size {
			chunk := idxs[chunkStart:min(chunkStart+size, len(idxs))]
			ids := make([]string, len(chunk))
			for i, idx := range chunk {
				ids[i] = run.jobs[idx].ExternalID
			}

			resolved, err := retryWithMetrics(ctx, source, policy, func() (map[string]models.RawMetrics, error) {
				if err := pacer.Wait(ctx); err != nil {
					return nil, err
				}
				return batchClient.GetMetricsBatch(ctx, ids)
			})
			if err != nil {
				ctxLogger := logging.Ctx(ctx)
				ctxLogger.Warn().
					Err(err).
					Str("source", source).
					Int("ids", len(ids)).
					Msg("Batch fetch failed, falling back to per-item fetches")
				remaining = append(remaining, chunk...)
				continue
			}

			now := time.Now().UTC()
			for _, idx := range chunk {
				raw, ok := resolved[run.jobs[idx].ExternalID]
				if !ok {
					remaining = append(remaining, idx)
					continue
				}
				run.resolve(idx, models.Normalize(raw, now))
				metrics.SyncJobs.WithLabelValues(source, "resolved").Inc()
			}
		}
	}
	return remaining
}

// fetchOne runs the per-item path for one job: paced fetch with retries,
// then normalization into the job's result slot.
func (c *Coordinator) fetchOne(ctx context.Context, run *syncRun, idx int, policy RetryPolicy) {
	job := run.jobs[idx]
	client := c.clients[job.Source]
	pacer := c.pacerFor(job.Source)

	raw, err := retryWithMetrics(ctx, job.Source, policy, func() (models.RawMetrics, error) {
		if err := pacer.Wait(ctx); err != nil {
			return models.RawMetrics{}, err
		}
		return client.GetMetrics(ctx, job.ExternalID)
	})
	if err != nil {
		metrics.SyncJobs.WithLabelValues(job.Source, "failed").Inc()
		reason := err.Error()
		if errors.Is(err, ErrPostNotFound) {
			reason = models.ReasonMetricsNotAvailable
		}
		run.fail(idx, reason)
		return
	}

	run.resolve(idx, models.Normalize(raw, time.Now().UTC()))
	metrics.SyncJobs.WithLabelValues(job.Source, "resolved").Inc()
}

// writeBack persists resolved payloads in bulk chunks and returns the
// number of successfully written updates. A failed chunk produces one
// failure record keyed by the chunk's first job; other chunks are
// unaffected.
func (c *Coordinator) writeBack(ctx context.Context, run *syncRun, chunkSize int) int {
	type pendingOp struct {
		jobIdx int
		op     models.MetricsUpdate
	}

	var pending []pendingOp
	for idx, payload := range run.resolved {
		if payload == nil {
			continue
		}
		job := run.jobs[idx]
		pending = append(pending, pendingOp{
			jobIdx: idx,
			op: models.MetricsUpdate{
				ContentID: job.ContentID,
				Source:    job.Source,
				Metrics:   *payload,
			},
		})
	}

	succeeded := 0
	for chunkStart := 0; chunkStart < len(pending); chunkStart += chunkSize {
		chunk := pending[chunkStart:min(chunkStart+chunkSize, len(pending))]
		ops := make([]models.MetricsUpdate, len(chunk))
		for i, p := range chunk {
			ops[i] = p.op
		}

		result, err := c.store.BulkUpdate(ctx, ops)
		if err != nil {
			metrics.SyncWriteChunks.WithLabelValues("failed").Inc()
			ctxLogger := logging.Ctx(ctx)
			ctxLogger.Error().
				Err(err).
				Int("ops", len(ops)).
				Msg("Bulk write chunk failed")
			run.failChunk(chunk[0].jobIdx, fmt.Sprintf("bulk write failed: %v", err))
			continue
		}

		metrics.SyncWriteChunks.WithLabelValues("applied").Inc()
		succeeded += int(result.Modified + result.Upserted)
	}
	return succeeded
}

// retryWithMetrics wraps Retry, counting repeat attempts per source.
func retryWithMetrics[T any](ctx context.Context, source string, policy RetryPolicy, fn func() (T, error)) (T, error) {
	attempts := 0
	result, err := Retry(ctx, policy, func() (T, error) {
		attempts++
		return fn()
	})
	if attempts > 1 {
		metrics.SyncRetries.WithLabelValues(source).Add(float64(attempts - 1))
	}
	return result, err
}

func (c *Coordinator) pacerFor(source string) *Pacer {
	rps := 1.0
	if sc, ok := c.cfg.Sources.ByName(source); ok {
		rps = sc.RequestsPerSecond
	}
	return c.pacers.For(source, rps)
}
