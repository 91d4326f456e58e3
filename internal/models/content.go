// Pulsegraph - Social Engagement Sync and Analytics Engine
// Copyright 2026 Pulsegraph contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/pulsegraph/pulsegraph

// Package models defines the shared data structures for Pulsegraph:
// stored content, normalized engagement metrics, sync results, composite
// reports and the per-user analytics configuration.
package models

import "time"

// Supported source identifiers. These match the keys used in
// Content.External and in the per-source configuration.
const (
	SourceYouTube   = "youtube"
	SourceInstagram = "instagram"
	SourceTikTok    = "tiktok"
	SourceTwitter   = "twitter"
)

// AllSources lists every source Pulsegraph can sync from, in stable order.
var AllSources = []string{SourceYouTube, SourceInstagram, SourceTikTok, SourceTwitter}

// Content is one published content item owned by a user.
//
// External maps a source name to the post identifier on that platform
// (YouTube video ID, Instagram media ID, ...). A content item only
// generates sync work for sources present in this map.
type Content struct {
	ID          string                    `json:"id"`
	UserID      string                    `json:"user_id"`
	Title       string                    `json:"title"`
	PublishedAt time.Time                 `json:"published_at"`
	External    map[string]string         `json:"external,omitempty"`
	Metrics     map[string]MetricsPayload `json:"metrics,omitempty"` // current stored metrics keyed by source
}

// ExternalID returns the stored external post identifier for a source,
// or "" if the content was never published there.
func (c *Content) ExternalID(source string) string {
	if c.External == nil {
		return ""
	}
	return c.External[source]
}
