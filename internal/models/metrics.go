// Pulsegraph - Social Engagement Sync and Analytics Engine
// Copyright 2026 Pulsegraph contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/pulsegraph/pulsegraph

package models

import "time"

// RawMetrics is the unvalidated metric record returned by a source client.
//
// Counts may be negative or zero when a provider returns garbage; callers
// must pass raw records through Normalize before persisting them.
// Engagement is a pointer because most providers do not report a combined
// engagement figure - when nil it is derived from likes+comments+shares.
type RawMetrics struct {
	Likes       int64  `json:"likes"`
	Comments    int64  `json:"comments"`
	Shares      int64  `json:"shares"`
	Views       int64  `json:"views"`
	Reach       int64  `json:"reach"`
	Impressions int64  `json:"impressions"`
	Engagement  *int64 `json:"engagement,omitempty"`
}

// MetricsPayload is the normalized, non-negative metric record written
// back to storage. EngagementRate is always derived, never trusted from
// the provider.
type MetricsPayload struct {
	Likes          int64     `json:"likes"`
	Comments       int64     `json:"comments"`
	Shares         int64     `json:"shares"`
	Views          int64     `json:"views"`
	Reach          int64     `json:"reach"`
	Impressions    int64     `json:"impressions"`
	Engagement     int64     `json:"engagement"`
	EngagementRate float64   `json:"engagement_rate"`
	FetchedAt      time.Time `json:"fetched_at"`
}

// Normalize converts a raw provider record into a MetricsPayload.
//
// Invariants enforced:
//   - every count is clamped to >= 0
//   - engagement defaults to likes+comments+shares when the provider
//     did not supply one
//   - engagementRate = engagement/reach*100 when reach > 0, else 0
//     (never divides by zero)
func Normalize(raw RawMetrics, fetchedAt time.Time) MetricsPayload {
	p := MetricsPayload{
		Likes:       clampCount(raw.Likes),
		Comments:    clampCount(raw.Comments),
		Shares:      clampCount(raw.Shares),
		Views:       clampCount(raw.Views),
		Reach:       clampCount(raw.Reach),
		Impressions: clampCount(raw.Impressions),
		FetchedAt:   fetchedAt,
	}

	if raw.Engagement != nil {
		p.Engagement = clampCount(*raw.Engagement)
	} else {
		p.Engagement = p.Likes + p.Comments + p.Shares
	}

	if p.Reach > 0 {
		p.EngagementRate = float64(p.Engagement) / float64(p.Reach) * 100
	}

	return p
}

func clampCount(v int64) int64 {
	if v < 0 {
		return 0
	}
	return v
}
