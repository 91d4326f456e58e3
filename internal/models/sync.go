// Pulsegraph - Social Engagement Sync and Analytics Engine
// Copyright 2026 Pulsegraph contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/pulsegraph/pulsegraph

package models

import "time"

// Well-known failure reasons recorded in SyncResult.Failures.
// Anything else is the Error() string of the underlying fetch or
// persistence error.
const (
	ReasonSyncInProgress      = "sync_in_progress"
	ReasonMetricsNotAvailable = "metrics_not_available"
	ReasonSourceUnavailable   = "source_unavailable"
)

// SyncOptions controls one SyncUser invocation. Zero values are replaced
// with the configured defaults before the sync starts.
type SyncOptions struct {
	// Concurrency bounds how many fetch jobs are in flight at once.
	Concurrency int `json:"concurrency,omitempty"`

	// MaxRetries is the number of additional attempts after the first
	// failure of a fetch job.
	MaxRetries int `json:"max_retries,omitempty"`

	// RetryBaseDelay is the base for the exponential backoff between
	// attempts: base * 2^attempt + uniform(0, JitterMax).
	RetryBaseDelay time.Duration `json:"retry_base_delay,omitempty"`

	// JitterMax is the upper bound of the random jitter added to each
	// backoff wait.
	JitterMax time.Duration `json:"jitter_max,omitempty"`

	// RemoteBatchSize caps how many external IDs are packed into one
	// batched lookup for sources that support multi-id calls.
	RemoteBatchSize int `json:"remote_batch_size,omitempty"`

	// BulkWriteChunkSize caps how many storage updates are applied in
	// one bulk write.
	BulkWriteChunkSize int `json:"bulk_write_chunk_size,omitempty"`

	// Sources restricts the sync to the named sources. Empty means all
	// enabled sources.
	Sources []string `json:"sources,omitempty"`
}

// FailureRecord describes one fetch job or write chunk that failed during
// a sync run. JobIndex preserves the decomposition order so callers can
// correlate failures with their content list.
type FailureRecord struct {
	JobIndex  int    `json:"job_index"`
	ContentID string `json:"content_id,omitempty"`
	Source    string `json:"source,omitempty"`
	Reason    string `json:"reason"`
}

// SyncResult summarizes one SyncUser invocation. Attempted counts decomposed
// fetch jobs, Succeeded counts storage rows actually modified or inserted,
// Failed counts failure records. It is returned to the caller and never
// persisted.
type SyncResult struct {
	UserID    string          `json:"user_id"`
	Attempted int             `json:"attempted"`
	Succeeded int             `json:"succeeded"`
	Failed    int             `json:"failed"`
	Failures  []FailureRecord `json:"failures"`
	Duration  time.Duration   `json:"duration"`
}
