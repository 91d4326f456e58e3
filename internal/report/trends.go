// Pulsegraph - Social Engagement Sync and Analytics Engine
// Copyright 2026 Pulsegraph contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/pulsegraph/pulsegraph

package report

import (
	"math"
	"sort"

	"github.com/pulsegraph/pulsegraph/internal/models"
)

// OpportunityScore ranks a trend's attractiveness for content creation
// on a 0-100 scale. Volume and growth push the score up, competition
// pulls it down; competition is saturating so a fully contested topic
// scores near zero regardless of volume.
func OpportunityScore(volume int64, growthRate, competition float64) float64 {
	if volume <= 0 {
		return 0
	}

	// log10 scale: 1k mentions ~ 30, 1M ~ 60, capped at 70.
	volumeScore := math.Min(math.Log10(float64(volume))*10, 70)

	growthScore := math.Min(math.Max(growthRate, 0), 30)

	competition = math.Min(math.Max(competition, 0), 1)
	score := (volumeScore + growthScore) * (1 - competition)

	return math.Min(math.Max(score, 0), 100)
}

// rankTrends fills in opportunity scores and orders trends by
// descending score.
func rankTrends(trends []models.Trend) []models.Trend {
	for i := range trends {
		trends[i].OpportunityScore = OpportunityScore(trends[i].Volume, trends[i].GrowthRate, trends[i].Competition)
	}
	sort.SliceStable(trends, func(i, j int) bool {
		return trends[i].OpportunityScore > trends[j].OpportunityScore
	})
	return trends
}
