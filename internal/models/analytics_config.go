// Pulsegraph - Social Engagement Sync and Analytics Engine
// Copyright 2026 Pulsegraph contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/pulsegraph/pulsegraph

package models

import "time"

// AnalyticsConfig is one user's analytics configuration. It is created
// lazily with DefaultAnalyticsConfig on first access and mutated only by
// explicit configuration calls; it never expires.
type AnalyticsConfig struct {
	Sources         []string        `json:"sources"`
	Keywords        []string        `json:"keywords"`
	Competitors     []string        `json:"competitors"`
	UpdateFrequency time.Duration   `json:"update_frequency"`
	Thresholds      AlertThresholds `json:"thresholds"`
	Reporting       ReportingPrefs  `json:"reporting"`
}

// AnalyticsConfigPatch is a partial configuration merged into the stored
// AnalyticsConfig. Nil fields leave the stored value untouched.
type AnalyticsConfigPatch struct {
	Sources         *[]string        `json:"sources,omitempty"`
	Keywords        *[]string        `json:"keywords,omitempty"`
	Competitors     *[]string        `json:"competitors,omitempty"`
	UpdateFrequency *time.Duration   `json:"update_frequency,omitempty"`
	Thresholds      *AlertThresholds `json:"thresholds,omitempty"`
	Reporting       *ReportingPrefs  `json:"reporting,omitempty"`
}

// AlertThresholds configures when GenerateAlerts raises an alert. A zero
// threshold disables that alert type.
type AlertThresholds struct {
	ViralScore        float64 `json:"viral_score"`
	EngagementSpike   float64 `json:"engagement_spike"`   // percent above baseline
	FollowerGrowth    float64 `json:"follower_growth"`    // percent over the window
	NegativeSentiment float64 `json:"negative_sentiment"` // negative mention ratio 0..1
}

// ReportingPrefs controls how composite reports are framed for the user.
type ReportingPrefs struct {
	Frequency string `json:"frequency"` // daily, weekly, monthly
	Timezone  string `json:"timezone"`
}

// AlertSignals is the live metric snapshot GenerateAlerts evaluates
// against AlertThresholds.
type AlertSignals struct {
	ViralScore        float64 `json:"viral_score"`
	EngagementSpike   float64 `json:"engagement_spike"`
	FollowerGrowth    float64 `json:"follower_growth"`
	NegativeSentiment float64 `json:"negative_sentiment"`
}

// Alert urgency levels.
const (
	UrgencyLow      = "low"
	UrgencyMedium   = "medium"
	UrgencyHigh     = "high"
	UrgencyCritical = "critical"
)

// Alert types raised by the orchestrator.
const (
	AlertViralContent      = "viral_content"
	AlertEngagementSpike   = "engagement_spike"
	AlertFollowerGrowth    = "follower_growth"
	AlertNegativeSentiment = "negative_sentiment"
)

// Alert is one threshold crossing raised while building a report or
// dashboard.
type Alert struct {
	Type    string `json:"type"`
	Message string `json:"message"`
	Urgency string `json:"urgency"`
}

// DefaultAnalyticsConfig returns the configuration assigned to a user who
// has never called the configuration endpoint.
func DefaultAnalyticsConfig() AnalyticsConfig {
	return AnalyticsConfig{
		Sources:         append([]string(nil), AllSources...),
		Keywords:        []string{},
		Competitors:     []string{},
		UpdateFrequency: time.Hour,
		Thresholds: AlertThresholds{
			ViralScore:        80,
			EngagementSpike:   50,
			FollowerGrowth:    10,
			NegativeSentiment: 0.4,
		},
		Reporting: ReportingPrefs{Frequency: "weekly", Timezone: "UTC"},
	}
}

// Merge applies a partial update, returning the merged configuration.
// Fields absent from the patch keep their stored values.
func (c AnalyticsConfig) Merge(patch AnalyticsConfigPatch) AnalyticsConfig {
	if patch.Sources != nil {
		c.Sources = append([]string(nil), (*patch.Sources)...)
	}
	if patch.Keywords != nil {
		c.Keywords = append([]string(nil), (*patch.Keywords)...)
	}
	if patch.Competitors != nil {
		c.Competitors = append([]string(nil), (*patch.Competitors)...)
	}
	if patch.UpdateFrequency != nil {
		c.UpdateFrequency = *patch.UpdateFrequency
	}
	if patch.Thresholds != nil {
		c.Thresholds = *patch.Thresholds
	}
	if patch.Reporting != nil {
		c.Reporting = *patch.Reporting
	}
	return c
}
