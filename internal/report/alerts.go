// Pulsegraph - Social Engagement Sync and Analytics Engine
// Copyright 2026 Pulsegraph contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/pulsegraph/pulsegraph

package report

import (
	"fmt"

	"github.com/pulsegraph/pulsegraph/internal/metrics"
	"github.com/pulsegraph/pulsegraph/internal/models"
)

// GenerateAlerts maps a live signal snapshot and a threshold
// configuration to zero or more alerts. Pure: no I/O, no state. A zero
// threshold disables its alert type.
func GenerateAlerts(signals models.AlertSignals, thresholds models.AlertThresholds) []models.Alert {
	var alerts []models.Alert

	if thresholds.ViralScore > 0 && signals.ViralScore >= thresholds.ViralScore {
		urgency := models.UrgencyHigh
		if signals.ViralScore >= 95 {
			urgency = models.UrgencyCritical
		}
		alerts = append(alerts, models.Alert{
			Type:    models.AlertViralContent,
			Message: fmt.Sprintf("content is going viral: viral score %.1f (threshold %.1f)", signals.ViralScore, thresholds.ViralScore),
			Urgency: urgency,
		})
	}

	if thresholds.EngagementSpike > 0 && signals.EngagementSpike >= thresholds.EngagementSpike {
		urgency := models.UrgencyMedium
		if signals.EngagementSpike >= 2*thresholds.EngagementSpike {
			urgency = models.UrgencyHigh
		}
		alerts = append(alerts, models.Alert{
			Type:    models.AlertEngagementSpike,
			Message: fmt.Sprintf("engagement is %.1f%% above baseline (threshold %.1f%%)", signals.EngagementSpike, thresholds.EngagementSpike),
			Urgency: urgency,
		})
	}

	if thresholds.FollowerGrowth > 0 && signals.FollowerGrowth >= thresholds.FollowerGrowth {
		alerts = append(alerts, models.Alert{
			Type:    models.AlertFollowerGrowth,
			Message: fmt.Sprintf("follower count grew %.1f%% (threshold %.1f%%)", signals.FollowerGrowth, thresholds.FollowerGrowth),
			Urgency: models.UrgencyLow,
		})
	}

	if thresholds.NegativeSentiment > 0 && signals.NegativeSentiment >= thresholds.NegativeSentiment {
		urgency := models.UrgencyHigh
		if signals.NegativeSentiment >= 0.7 {
			urgency = models.UrgencyCritical
		}
		alerts = append(alerts, models.Alert{
			Type:    models.AlertNegativeSentiment,
			Message: fmt.Sprintf("%.0f%% of recent mentions are negative (threshold %.0f%%)", signals.NegativeSentiment*100, thresholds.NegativeSentiment*100),
			Urgency: urgency,
		})
	}

	for _, alert := range alerts {
		metrics.AlertsRaised.WithLabelValues(alert.Type).Inc()
	}
	return alerts
}
