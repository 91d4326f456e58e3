// Pulsegraph - Social Engagement Sync and Analytics Engine
// Copyright 2026 Pulsegraph contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/pulsegraph/pulsegraph

package models

import "time"

// CompositeReport is the multi-source analytical report assembled by the
// orchestrator. It is fully rebuilt on every cache miss and never mutated
// in place; a section whose builder failed carries its documented empty
// default and lowers DataQuality.Completeness.
type CompositeReport struct {
	UserID          string            `json:"user_id"`
	GeneratedAt     time.Time         `json:"generated_at"`
	Overview        OverviewSection   `json:"overview"`
	RealTime        RealTimeSection   `json:"real_time"`
	Predictions     PredictionSection `json:"predictions"`
	Competitors     CompetitorSection `json:"competitors"`
	Listening       ListeningSection  `json:"listening"`
	Recommendations []string          `json:"recommendations"`
	DataQuality     DataQuality       `json:"data_quality"`
}

// OverviewSection aggregates the user's stored metrics across all content.
type OverviewSection struct {
	TotalContent      int                       `json:"total_content"`
	Totals            MetricsPayload            `json:"totals"`
	AvgEngagementRate float64                   `json:"avg_engagement_rate"`
	BySource          map[string]MetricsPayload `json:"by_source"`
}

// RealTimeSection carries live metrics for recent content plus any alerts
// raised against the configured thresholds.
type RealTimeSection struct {
	Metrics   []LiveContentMetrics `json:"metrics"`
	Alerts    []Alert              `json:"alerts"`
	FetchedAt time.Time            `json:"fetched_at"`
}

// LiveContentMetrics is one content item's freshly fetched metrics, as
// opposed to the stored snapshot in Content.Metrics.
type LiveContentMetrics struct {
	ContentID string         `json:"content_id"`
	Title     string         `json:"title"`
	Source    string         `json:"source"`
	Metrics   MetricsPayload `json:"metrics"`
}

// LiveSnapshot is the analytics provider's real-time view of a user:
// fresh per-content metrics plus the aggregate signals the alert
// thresholds are evaluated against.
type LiveSnapshot struct {
	Metrics []LiveContentMetrics `json:"metrics"`
	Signals AlertSignals         `json:"signals"`
}

// PredictionSection holds per-source performance forecasts.
type PredictionSection struct {
	Predictions []PlatformPrediction `json:"predictions"`
	Horizon     string               `json:"horizon"`
}

// PlatformPrediction is one source's forecast for a content draft.
// Confidence is 0..1; consumers sort by it and expect only successful
// entries, so failed sources are omitted rather than defaulted.
type PlatformPrediction struct {
	Source             string  `json:"source"`
	PredictedViews     int64   `json:"predicted_views"`
	PredictedLikes     int64   `json:"predicted_likes"`
	PredictedShares    int64   `json:"predicted_shares"`
	EngagementEstimate float64 `json:"engagement_estimate"`
	Confidence         float64 `json:"confidence"`
	BestPostTime       string  `json:"best_post_time,omitempty"`
}

// CompetitorSection compares the user against tracked competitor accounts.
type CompetitorSection struct {
	Analyses       []CompetitorAnalysis `json:"analyses"`
	Benchmarks     map[string]float64   `json:"benchmarks"`
	MarketPosition string               `json:"market_position"`
}

// CompetitorAnalysis is one competitor account's observed performance.
type CompetitorAnalysis struct {
	Handle            string  `json:"handle"`
	Source            string  `json:"source"`
	Followers         int64   `json:"followers"`
	AvgEngagementRate float64 `json:"avg_engagement_rate"`
	PostsPerWeek      float64 `json:"posts_per_week"`
}

// ListeningSection summarizes social-listening activity for the user's
// tracked keywords.
type ListeningSection struct {
	Mentions  []Mention          `json:"mentions"`
	Keywords  map[string]int64   `json:"keywords"` // keyword -> mention volume
	Sentiment SentimentBreakdown `json:"sentiment"`
}

// Mention is one observed reference to a tracked keyword.
type Mention struct {
	Source    string    `json:"source"`
	Author    string    `json:"author"`
	Text      string    `json:"text"`
	Sentiment string    `json:"sentiment"` // positive, neutral, negative
	URL       string    `json:"url,omitempty"`
	At        time.Time `json:"at"`
}

// SentimentBreakdown is the positive/neutral/negative split of mentions.
type SentimentBreakdown struct {
	Positive int64 `json:"positive"`
	Neutral  int64 `json:"neutral"`
	Negative int64 `json:"negative"`
}

// DataQuality reports how much of the composite report was actually built
// from live data. Completeness is (succeeded sections / total sections) * 100.
type DataQuality struct {
	Completeness float64   `json:"completeness"`
	Freshness    time.Time `json:"freshness"`
	Reliability  string    `json:"reliability"` // high, degraded, low
	Sources      []string  `json:"sources"`
}

// DashboardPayload is the always-fresh real-time view. It is never cached.
type DashboardPayload struct {
	UserID      string               `json:"user_id"`
	Overview    OverviewSection      `json:"overview"`
	Live        []LiveContentMetrics `json:"live"`
	Trending    []Trend              `json:"trending"`
	GeneratedAt time.Time            `json:"generated_at"`
}

// Trend is one entry from the external trending feed. OpportunityScore is
// the derived 0-100 ranking of how attractive the trend is for content
// creation, combining volume, growth and competition.
type Trend struct {
	Topic            string  `json:"topic"`
	Volume           int64   `json:"volume"`
	GrowthRate       float64 `json:"growth_rate"` // percent over the feed's window
	Competition      float64 `json:"competition"` // 0 (open) .. 1 (saturated)
	OpportunityScore float64 `json:"opportunity_score"`
}

// ContentDraft is the unpublished content a caller wants performance
// predictions for.
type ContentDraft struct {
	Title    string   `json:"title" validate:"required"`
	Body     string   `json:"body,omitempty"`
	MediaURL string   `json:"media_url,omitempty"`
	Tags     []string `json:"tags,omitempty"`
}

// DefaultOverviewSection is the documented empty default substituted when
// the overview builder fails.
func DefaultOverviewSection() OverviewSection {
	return OverviewSection{BySource: map[string]MetricsPayload{}}
}

// DefaultRealTimeSection is the documented empty default substituted when
// the real-time builder fails.
func DefaultRealTimeSection() RealTimeSection {
	return RealTimeSection{Metrics: []LiveContentMetrics{}, Alerts: []Alert{}}
}

// DefaultPredictionSection is the documented empty default substituted when
// the prediction builder fails.
func DefaultPredictionSection() PredictionSection {
	return PredictionSection{Predictions: []PlatformPrediction{}}
}

// DefaultCompetitorSection is the documented empty default substituted when
// the competitor builder fails: empty analyses, empty benchmarks and an
// "unknown" market position.
func DefaultCompetitorSection() CompetitorSection {
	return CompetitorSection{
		Analyses:       []CompetitorAnalysis{},
		Benchmarks:     map[string]float64{},
		MarketPosition: "unknown",
	}
}

// DefaultListeningSection is the documented empty default substituted when
// the social-listening builder fails.
func DefaultListeningSection() ListeningSection {
	return ListeningSection{Mentions: []Mention{}, Keywords: map[string]int64{}}
}
