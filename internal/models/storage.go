// Pulsegraph - Social Engagement Sync and Analytics Engine
// Copyright 2026 Pulsegraph contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/pulsegraph/pulsegraph

package models

// MetricsUpdate is one keyed upsert of a content item's metrics for one
// source. Updates are idempotent: applying the same update twice leaves
// storage in the same state, which makes out-of-order completion safe.
type MetricsUpdate struct {
	ContentID string         `json:"content_id"`
	Source    string         `json:"source"`
	Metrics   MetricsPayload `json:"metrics"`
}

// BulkWriteResult reports what one bulk write chunk actually changed.
type BulkWriteResult struct {
	Modified int64 `json:"modified"`
	Upserted int64 `json:"upserted"`
}
