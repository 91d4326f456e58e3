// Pulsegraph - Social Engagement Sync and Analytics Engine
// Copyright 2026 Pulsegraph contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/pulsegraph/pulsegraph

// Package report assembles cached composite analytics reports by
// fanning out to independent analytical providers, tolerating
// individual provider failure through documented default substitution.
package report

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/pulsegraph/pulsegraph/internal/config"
	"github.com/pulsegraph/pulsegraph/internal/logging"
	"github.com/pulsegraph/pulsegraph/internal/metrics"
	"github.com/pulsegraph/pulsegraph/internal/models"
)

// reportSectionCount is the number of independent section builders a
// composite report fans out to; completeness is scored against it.
const reportSectionCount = 5

// ContentReader is the slice of storage the orchestrator needs.
type ContentReader interface {
	FindByUser(ctx context.Context, userID string) ([]models.Content, error)
}

// AnalyticsProvider serves real-time per-content metrics and the
// aggregate alert signals.
type AnalyticsProvider interface {
	LiveSnapshot(ctx context.Context, userID string, sources []string) (models.LiveSnapshot, error)
}

// PredictionProvider forecasts content performance.
type PredictionProvider interface {
	// ForecastUser predicts upcoming performance across the user's
	// enabled sources for the report's prediction section.
	ForecastUser(ctx context.Context, userID string, sources []string) (models.PredictionSection, error)

	// PredictDraft forecasts one unpublished draft on one source.
	PredictDraft(ctx context.Context, userID, source string, draft models.ContentDraft) (models.PlatformPrediction, error)
}

// TrendsProvider serves the external trending feed.
type TrendsProvider interface {
	Trending(ctx context.Context, sources []string) ([]models.Trend, error)
}

// ListeningProvider serves social-listening results for tracked keywords.
type ListeningProvider interface {
	Search(ctx context.Context, userID string, keywords []string) (models.ListeningSection, error)
}

// CompetitorProvider analyzes tracked competitor accounts.
type CompetitorProvider interface {
	Analyze(ctx context.Context, userID string, competitors []string) (models.CompetitorSection, error)
}

// Providers bundles the five external analytical collaborators.
type Providers struct {
	Analytics  AnalyticsProvider
	Prediction PredictionProvider
	Trends     TrendsProvider
	Listening  ListeningProvider
	Competitor CompetitorProvider
}

// Orchestrator fans out to the analytical providers and assembles
// cached composite reports, always-fresh dashboards and per-draft
// predictions.
type Orchestrator struct {
	store     ContentReader
	providers Providers
	cache     *Cache
	registry  *ConfigRegistry
	cfg       config.ReportConfig

	mu             sync.RWMutex
	onAlertsRaised func(userID string, alerts []models.Alert)
}

// NewOrchestrator wires the orchestrator. cache and registry are owned
// by the caller; the orchestrator never closes them.
func NewOrchestrator(store ContentReader, providers Providers, cache *Cache, registry *ConfigRegistry, cfg config.ReportConfig) *Orchestrator {
	return &Orchestrator{
		store:     store,
		providers: providers,
		cache:     cache,
		registry:  registry,
		cfg:       cfg,
	}
}

// SetOnAlertsRaised registers a callback invoked whenever a report or
// dashboard build raises at least one alert.
func (o *Orchestrator) SetOnAlertsRaised(fn func(userID string, alerts []models.Alert)) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.onAlertsRaised = fn
}

func (o *Orchestrator) notifyAlerts(userID string, alerts []models.Alert) {
	if len(alerts) == 0 {
		return
	}
	o.mu.RLock()
	fn := o.onAlertsRaised
	o.mu.RUnlock()
	if fn != nil {
		fn(userID, alerts)
	}
}

// GenerateComprehensiveReport returns the user's composite report,
// serving the cached copy when it is still valid. On a miss the five
// section builders run concurrently; a failing section is replaced by
// its documented empty default and lowers the completeness score. The
// second return value reports whether the cache served the call.
func (o *Orchestrator) GenerateComprehensiveReport(ctx context.Context, userID string, overrides *models.AnalyticsConfigPatch) (models.CompositeReport, bool, error) {
	if cached, ok := o.cache.Get(userID); ok {
		return cached, true, nil
	}

	start := time.Now()
	cfg := o.registry.Get(userID)
	if overrides != nil {
		cfg = cfg.Merge(*overrides)
	}

	var (
		overview    section[models.OverviewSection]
		realTime    section[models.RealTimeSection]
		predictions section[models.PredictionSection]
		competitors section[models.CompetitorSection]
		listening   section[models.ListeningSection]
	)

	g := new(errgroup.Group)
	g.Go(func() error {
		overview = settle(ctx, "overview", o.cfg.SectionTimeout, func(ctx context.Context) (models.OverviewSection, error) {
			return o.buildOverview(ctx, userID)
		}, models.DefaultOverviewSection)
		return nil
	})
	g.Go(func() error {
		realTime = settle(ctx, "real_time", o.cfg.SectionTimeout, func(ctx context.Context) (models.RealTimeSection, error) {
			return o.buildRealTime(ctx, userID, cfg)
		}, models.DefaultRealTimeSection)
		return nil
	})
	g.Go(func() error {
		predictions = settle(ctx, "predictions", o.cfg.SectionTimeout, func(ctx context.Context) (models.PredictionSection, error) {
			return o.providers.Prediction.ForecastUser(ctx, userID, cfg.Sources)
		}, models.DefaultPredictionSection)
		return nil
	})
	g.Go(func() error {
		competitors = settle(ctx, "competitors", o.cfg.SectionTimeout, func(ctx context.Context) (models.CompetitorSection, error) {
			return o.providers.Competitor.Analyze(ctx, userID, cfg.Competitors)
		}, models.DefaultCompetitorSection)
		return nil
	})
	g.Go(func() error {
		listening = settle(ctx, "listening", o.cfg.SectionTimeout, func(ctx context.Context) (models.ListeningSection, error) {
			return o.providers.Listening.Search(ctx, userID, cfg.Keywords)
		}, models.DefaultListeningSection)
		return nil
	})
	// Builders record their own outcomes; Wait only synchronizes.
	_ = g.Wait()

	succeeded := 0
	for _, ok := range []bool{overview.ok, realTime.ok, predictions.ok, competitors.ok, listening.ok} {
		if ok {
			succeeded++
		}
	}

	now := time.Now().UTC()
	completeness := float64(succeeded) / reportSectionCount * 100
	result := models.CompositeReport{
		UserID:      userID,
		GeneratedAt: now,
		Overview:    overview.value,
		RealTime:    realTime.value,
		Predictions: predictions.value,
		Competitors: competitors.value,
		Listening:   listening.value,
		DataQuality: models.DataQuality{
			Completeness: completeness,
			Freshness:    now,
			Reliability:  reliabilityFor(completeness),
			Sources:      append([]string(nil), cfg.Sources...),
		},
	}
	result.Recommendations = buildRecommendations(result)

	o.cache.Put(userID, result)
	o.notifyAlerts(userID, result.RealTime.Alerts)

	metrics.ReportDuration.Observe(time.Since(start).Seconds())
	ctxLogger := logging.Ctx(ctx)
	ctxLogger.Info().
		Str("user_id", userID).
		Float64("completeness", completeness).
		Dur("duration", time.Since(start)).
		Msg("Composite report generated")

	return result, false, nil
}

// GetRealTimeDashboard builds the always-fresh dashboard. It is never
// cached; each branch fails independently to its empty value.
func (o *Orchestrator) GetRealTimeDashboard(ctx context.Context, userID string) (models.DashboardPayload, error) {
	cfg := o.registry.Get(userID)

	var (
		overview section[models.OverviewSection]
		live     section[models.LiveSnapshot]
		trending section[[]models.Trend]
	)

	g := new(errgroup.Group)
	g.Go(func() error {
		overview = settle(ctx, "dashboard_overview", o.cfg.SectionTimeout, func(ctx context.Context) (models.OverviewSection, error) {
			return o.buildOverview(ctx, userID)
		}, models.DefaultOverviewSection)
		return nil
	})
	g.Go(func() error {
		live = settle(ctx, "dashboard_live", o.cfg.SectionTimeout, func(ctx context.Context) (models.LiveSnapshot, error) {
			return o.providers.Analytics.LiveSnapshot(ctx, userID, cfg.Sources)
		}, func() models.LiveSnapshot {
			return models.LiveSnapshot{Metrics: []models.LiveContentMetrics{}}
		})
		return nil
	})
	g.Go(func() error {
		trending = settle(ctx, "dashboard_trending", o.cfg.SectionTimeout, func(ctx context.Context) ([]models.Trend, error) {
			return o.providers.Trends.Trending(ctx, cfg.Sources)
		}, func() []models.Trend { return []models.Trend{} })
		return nil
	})
	_ = g.Wait()

	if alerts := GenerateAlerts(live.value.Signals, cfg.Thresholds); len(alerts) > 0 {
		o.notifyAlerts(userID, alerts)
	}

	return models.DashboardPayload{
		UserID:      userID,
		Overview:    overview.value,
		Live:        live.value.Metrics,
		Trending:    rankTrends(trending.value),
		GeneratedAt: time.Now().UTC(),
	}, nil
}

// PredictMultiPlatformPerformance forecasts one content draft on every
// enabled source concurrently. Failed sources are logged and omitted
// entirely; consumers sort by confidence and expect only successful
// entries. Results come back in descending confidence order.
func (o *Orchestrator) PredictMultiPlatformPerformance(ctx context.Context, userID string, draft models.ContentDraft) ([]models.PlatformPrediction, error) {
	cfg := o.registry.Get(userID)
	if len(cfg.Sources) == 0 {
		return []models.PlatformPrediction{}, nil
	}

	var (
		mu          sync.Mutex
		predictions []models.PlatformPrediction
	)

	g := new(errgroup.Group)
	for _, source := range cfg.Sources {
		g.Go(func() error {
			predictCtx := ctx
			if o.cfg.ProviderTimeout > 0 {
				var cancel context.CancelFunc
				predictCtx, cancel = context.WithTimeout(ctx, o.cfg.ProviderTimeout)
				defer cancel()
			}

			prediction, err := o.providers.Prediction.PredictDraft(predictCtx, userID, source, draft)
			if err != nil {
				ctxLogger := logging.Ctx(ctx)
				ctxLogger.Warn().Err(err).Str("source", source).Msg("Prediction failed, omitting source")
				return nil
			}
			mu.Lock()
			predictions = append(predictions, prediction)
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	sort.SliceStable(predictions, func(i, j int) bool {
		return predictions[i].Confidence > predictions[j].Confidence
	})
	return predictions, nil
}

// ConfigureUserAnalytics merges a partial configuration into the user's
// stored one. The merge is effective immediately; the cached report is
// invalidated so the next one reflects the new configuration.
func (o *Orchestrator) ConfigureUserAnalytics(ctx context.Context, userID string, patch models.AnalyticsConfigPatch) (models.AnalyticsConfig, error) {
	merged, err := o.registry.Update(userID, patch)
	if err != nil {
		return merged, fmt.Errorf("failed to store analytics configuration: %w", err)
	}
	o.cache.Invalidate(userID)
	ctxLogger := logging.Ctx(ctx)
	ctxLogger.Info().Str("user_id", userID).Msg("Analytics configuration updated")
	return merged, nil
}

// InvalidateReport drops a user's cached report, typically after a sync
// writes fresh metrics.
func (o *Orchestrator) InvalidateReport(userID string) {
	o.cache.Invalidate(userID)
}

// buildOverview aggregates the user's stored metrics locally; it is the
// one section built from our own storage rather than a provider.
func (o *Orchestrator) buildOverview(ctx context.Context, userID string) (models.OverviewSection, error) {
	contents, err := o.store.FindByUser(ctx, userID)
	if err != nil {
		return models.OverviewSection{}, err
	}

	section := models.OverviewSection{
		TotalContent: len(contents),
		BySource:     make(map[string]models.MetricsPayload),
	}

	var rateSum float64
	var rateCount int
	for _, content := range contents {
		for source, payload := range content.Metrics {
			section.Totals.Likes += payload.Likes
			section.Totals.Comments += payload.Comments
			section.Totals.Shares += payload.Shares
			section.Totals.Views += payload.Views
			section.Totals.Reach += payload.Reach
			section.Totals.Impressions += payload.Impressions
			section.Totals.Engagement += payload.Engagement

			agg := section.BySource[source]
			agg.Likes += payload.Likes
			agg.Comments += payload.Comments
			agg.Shares += payload.Shares
			agg.Views += payload.Views
			agg.Reach += payload.Reach
			agg.Impressions += payload.Impressions
			agg.Engagement += payload.Engagement
			section.BySource[source] = agg

			rateSum += payload.EngagementRate
			rateCount++
		}
	}
	if rateCount > 0 {
		section.AvgEngagementRate = rateSum / float64(rateCount)
	}
	return section, nil
}

func (o *Orchestrator) buildRealTime(ctx context.Context, userID string, cfg models.AnalyticsConfig) (models.RealTimeSection, error) {
	snapshot, err := o.providers.Analytics.LiveSnapshot(ctx, userID, cfg.Sources)
	if err != nil {
		return models.RealTimeSection{}, err
	}
	return models.RealTimeSection{
		Metrics:   snapshot.Metrics,
		Alerts:    GenerateAlerts(snapshot.Signals, cfg.Thresholds),
		FetchedAt: time.Now().UTC(),
	}, nil
}

func reliabilityFor(completeness float64) string {
	switch {
	case completeness >= 100:
		return "high"
	case completeness >= 60:
		return "degraded"
	default:
		return "low"
	}
}

// buildRecommendations derives plain-language suggestions from the
// assembled report.
func buildRecommendations(r models.CompositeReport) []string {
	var recs []string

	if r.Overview.TotalContent == 0 {
		recs = append(recs, "No tracked content yet: add external post ids to start collecting metrics.")
	} else if r.Overview.AvgEngagementRate > 0 && r.Overview.AvgEngagementRate < 1 {
		recs = append(recs, "Average engagement rate is below 1%: consider posting when your audience is most active.")
	}

	for _, alert := range r.RealTime.Alerts {
		if alert.Type == models.AlertViralContent {
			recs = append(recs, "Content is trending: post follow-up content while attention is high.")
			break
		}
	}

	if r.Listening.Sentiment.Negative > r.Listening.Sentiment.Positive && r.Listening.Sentiment.Negative > 0 {
		recs = append(recs, "Negative mentions outweigh positive ones: review recent feedback before the next campaign.")
	}

	if r.DataQuality.Completeness < 100 {
		recs = append(recs, "Some analytics sources were unavailable: numbers may be incomplete, retry later for full data.")
	}

	if len(recs) == 0 {
		recs = []string{"Engagement is stable: keep the current posting cadence."}
	}
	return recs
}
