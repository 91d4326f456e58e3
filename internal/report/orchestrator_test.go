// Pulsegraph - Social Engagement Sync and Analytics Engine
// Copyright 2026 Pulsegraph contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/pulsegraph/pulsegraph

package report

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pulsegraph/pulsegraph/internal/config"
	"github.com/pulsegraph/pulsegraph/internal/models"
)

type fakeReader struct {
	calls    atomic.Int32
	contents []models.Content
	err      error
}

func (f *fakeReader) FindByUser(_ context.Context, _ string) ([]models.Content, error) {
	f.calls.Add(1)
	return f.contents, f.err
}

type fakeAnalytics struct {
	calls    atomic.Int32
	snapshot models.LiveSnapshot
	err      error
}

func (f *fakeAnalytics) LiveSnapshot(context.Context, string, []string) (models.LiveSnapshot, error) {
	f.calls.Add(1)
	return f.snapshot, f.err
}

type fakePrediction struct {
	forecast    models.PredictionSection
	forecastErr error

	perSource map[string]models.PlatformPrediction
	draftErrs map[string]error
}

func (f *fakePrediction) ForecastUser(context.Context, string, []string) (models.PredictionSection, error) {
	return f.forecast, f.forecastErr
}

func (f *fakePrediction) PredictDraft(_ context.Context, _, source string, _ models.ContentDraft) (models.PlatformPrediction, error) {
	if err := f.draftErrs[source]; err != nil {
		return models.PlatformPrediction{}, err
	}
	return f.perSource[source], nil
}

type fakeTrends struct {
	trends []models.Trend
	err    error
}

func (f *fakeTrends) Trending(context.Context, []string) ([]models.Trend, error) {
	return f.trends, f.err
}

type fakeListening struct {
	section models.ListeningSection
	err     error
}

func (f *fakeListening) Search(context.Context, string, []string) (models.ListeningSection, error) {
	return f.section, f.err
}

type fakeCompetitor struct {
	section models.CompetitorSection
	err     error
}

func (f *fakeCompetitor) Analyze(context.Context, string, []string) (models.CompetitorSection, error) {
	return f.section, f.err
}

type orchestratorFixture struct {
	orch       *Orchestrator
	reader     *fakeReader
	analytics  *fakeAnalytics
	prediction *fakePrediction
	trends     *fakeTrends
	listening  *fakeListening
	competitor *fakeCompetitor
	cache      *Cache
}

func newFixture(t *testing.T) *orchestratorFixture {
	t.Helper()

	registry, err := NewConfigRegistry("")
	if err != nil {
		t.Fatalf("NewConfigRegistry: %v", err)
	}
	t.Cleanup(func() { _ = registry.Close() })

	f := &orchestratorFixture{
		reader: &fakeReader{contents: []models.Content{{
			ID:     "c1",
			UserID: "u1",
			Metrics: map[string]models.MetricsPayload{
				models.SourceInstagram: {Likes: 10, Engagement: 10, Reach: 100, EngagementRate: 10},
			},
		}}},
		analytics:  &fakeAnalytics{},
		prediction: &fakePrediction{perSource: map[string]models.PlatformPrediction{}, draftErrs: map[string]error{}},
		trends:     &fakeTrends{},
		listening:  &fakeListening{},
		competitor: &fakeCompetitor{section: models.CompetitorSection{MarketPosition: "leader"}},
		cache:      NewCache(time.Minute, time.Hour),
	}
	f.orch = NewOrchestrator(f.reader, Providers{
		Analytics:  f.analytics,
		Prediction: f.prediction,
		Trends:     f.trends,
		Listening:  f.listening,
		Competitor: f.competitor,
	}, f.cache, registry, config.ReportConfig{SectionTimeout: time.Second, ProviderTimeout: time.Second})
	return f
}

func TestGenerateReportAllSectionsSucceed(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	report, cached, err := f.orch.GenerateComprehensiveReport(context.Background(), "u1", nil)
	if err != nil {
		t.Fatalf("GenerateComprehensiveReport: %v", err)
	}
	if cached {
		t.Error("first call must not be served from cache")
	}
	if report.DataQuality.Completeness != 100 {
		t.Errorf("expected completeness 100, got %v", report.DataQuality.Completeness)
	}
	if report.DataQuality.Reliability != "high" {
		t.Errorf("expected high reliability, got %q", report.DataQuality.Reliability)
	}
	if report.Overview.TotalContent != 1 {
		t.Errorf("expected overview built from storage, got %+v", report.Overview)
	}
	if report.Competitors.MarketPosition != "leader" {
		t.Errorf("expected provider competitor section, got %+v", report.Competitors)
	}
}

func TestGenerateReportServedFromCache(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	first, _, err := f.orch.GenerateComprehensiveReport(context.Background(), "u1", nil)
	if err != nil {
		t.Fatalf("first call: %v", err)
	}
	readsAfterFirst := f.reader.calls.Load()
	analyticsAfterFirst := f.analytics.calls.Load()

	second, cached, err := f.orch.GenerateComprehensiveReport(context.Background(), "u1", nil)
	if err != nil {
		t.Fatalf("second call: %v", err)
	}
	if !cached {
		t.Error("second call within TTL must be cached")
	}
	if !second.GeneratedAt.Equal(first.GeneratedAt) {
		t.Error("cached call must return the stored report unchanged")
	}
	if f.reader.calls.Load() != readsAfterFirst || f.analytics.calls.Load() != analyticsAfterFirst {
		t.Error("cached call must not re-invoke any section builder")
	}
}

func TestGenerateReportRegeneratesAfterExpiry(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.cache.ttl = 20 * time.Millisecond

	if _, _, err := f.orch.GenerateComprehensiveReport(context.Background(), "u1", nil); err != nil {
		t.Fatalf("first call: %v", err)
	}
	time.Sleep(30 * time.Millisecond)

	_, cached, err := f.orch.GenerateComprehensiveReport(context.Background(), "u1", nil)
	if err != nil {
		t.Fatalf("post-expiry call: %v", err)
	}
	if cached {
		t.Error("expected regeneration after TTL expiry")
	}
}

func TestGenerateReportSubstitutesDefaultOnSectionFailure(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.competitor.err = errors.New("competitor service down")

	report, _, err := f.orch.GenerateComprehensiveReport(context.Background(), "u1", nil)
	if err != nil {
		t.Fatalf("GenerateComprehensiveReport: %v", err)
	}

	if report.DataQuality.Completeness != 80 {
		t.Errorf("expected completeness 80 with one failed section, got %v", report.DataQuality.Completeness)
	}
	if report.Competitors.MarketPosition != "unknown" {
		t.Errorf("expected default competitor section, got %+v", report.Competitors)
	}
	if report.Competitors.Analyses == nil || len(report.Competitors.Analyses) != 0 {
		t.Errorf("expected empty analyses list, got %v", report.Competitors.Analyses)
	}
	if report.Competitors.Benchmarks == nil || len(report.Competitors.Benchmarks) != 0 {
		t.Errorf("expected empty benchmarks map, got %v", report.Competitors.Benchmarks)
	}
}

func TestGenerateReportRaisesAlertsThroughCallback(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.analytics.snapshot = models.LiveSnapshot{Signals: models.AlertSignals{ViralScore: 90}}

	var raised atomic.Int32
	f.orch.SetOnAlertsRaised(func(userID string, alerts []models.Alert) {
		if userID == "u1" && len(alerts) > 0 {
			raised.Add(int32(len(alerts)))
		}
	})

	report, _, err := f.orch.GenerateComprehensiveReport(context.Background(), "u1", nil)
	if err != nil {
		t.Fatalf("GenerateComprehensiveReport: %v", err)
	}
	if len(report.RealTime.Alerts) != 1 || report.RealTime.Alerts[0].Type != models.AlertViralContent {
		t.Fatalf("expected one viral alert, got %v", report.RealTime.Alerts)
	}
	if raised.Load() != 1 {
		t.Errorf("expected the alert callback to fire once, fired %d times", raised.Load())
	}
}

func TestDashboardIsNeverCached(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.trends.trends = []models.Trend{
		{Topic: "crowded", Volume: 1_000_000, GrowthRate: 5, Competition: 0.95},
		{Topic: "open", Volume: 50_000, GrowthRate: 25, Competition: 0.1},
	}

	if _, err := f.orch.GetRealTimeDashboard(context.Background(), "u1"); err != nil {
		t.Fatalf("first dashboard: %v", err)
	}
	first := f.analytics.calls.Load()

	dash, err := f.orch.GetRealTimeDashboard(context.Background(), "u1")
	if err != nil {
		t.Fatalf("second dashboard: %v", err)
	}
	if f.analytics.calls.Load() != first+1 {
		t.Error("dashboard must hit the live provider on every call")
	}
	if len(dash.Trending) != 2 || dash.Trending[0].Topic != "open" {
		t.Errorf("expected trends ranked by opportunity, got %v", dash.Trending)
	}
}

func TestDashboardToleratesProviderFailure(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.analytics.err = errors.New("analytics down")
	f.trends.err = errors.New("trends down")

	dash, err := f.orch.GetRealTimeDashboard(context.Background(), "u1")
	if err != nil {
		t.Fatalf("dashboard must not fail on provider errors: %v", err)
	}
	if dash.Live == nil || len(dash.Live) != 0 {
		t.Errorf("expected empty live metrics, got %v", dash.Live)
	}
	if dash.Overview.TotalContent != 1 {
		t.Errorf("overview should still come from storage, got %+v", dash.Overview)
	}
}

func TestPredictOmitsFailedSourcesAndSortsByConfidence(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.prediction.perSource[models.SourceYouTube] = models.PlatformPrediction{Source: models.SourceYouTube, Confidence: 0.4}
	f.prediction.perSource[models.SourceInstagram] = models.PlatformPrediction{Source: models.SourceInstagram, Confidence: 0.9}
	f.prediction.perSource[models.SourceTwitter] = models.PlatformPrediction{Source: models.SourceTwitter, Confidence: 0.6}
	f.prediction.draftErrs[models.SourceTikTok] = errors.New("model unavailable")

	predictions, err := f.orch.PredictMultiPlatformPerformance(context.Background(), "u1", models.ContentDraft{Title: "launch"})
	if err != nil {
		t.Fatalf("PredictMultiPlatformPerformance: %v", err)
	}

	if len(predictions) != 3 {
		t.Fatalf("expected failed source omitted, got %d predictions", len(predictions))
	}
	for i := 1; i < len(predictions); i++ {
		if predictions[i].Confidence > predictions[i-1].Confidence {
			t.Errorf("predictions not sorted by descending confidence: %v", predictions)
		}
	}
	for _, p := range predictions {
		if p.Source == models.SourceTikTok {
			t.Error("failed source must be omitted, not defaulted")
		}
	}
}

func TestConfigureUserAnalyticsInvalidatesCache(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	if _, _, err := f.orch.GenerateComprehensiveReport(context.Background(), "u1", nil); err != nil {
		t.Fatalf("report: %v", err)
	}

	keywords := []string{"launch"}
	merged, err := f.orch.ConfigureUserAnalytics(context.Background(), "u1", models.AnalyticsConfigPatch{Keywords: &keywords})
	if err != nil {
		t.Fatalf("ConfigureUserAnalytics: %v", err)
	}
	if len(merged.Keywords) != 1 {
		t.Errorf("expected merged keywords, got %v", merged.Keywords)
	}

	_, cached, err := f.orch.GenerateComprehensiveReport(context.Background(), "u1", nil)
	if err != nil {
		t.Fatalf("report after configure: %v", err)
	}
	if cached {
		t.Error("configuration change must invalidate the cached report")
	}
}

func TestGenerateReportAppliesOverridesWithoutPersisting(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.analytics.snapshot = models.LiveSnapshot{Signals: models.AlertSignals{ViralScore: 50}}

	// Lower the viral threshold for this call only.
	overrides := &models.AnalyticsConfigPatch{Thresholds: &models.AlertThresholds{ViralScore: 40}}
	report, _, err := f.orch.GenerateComprehensiveReport(context.Background(), "u1", overrides)
	if err != nil {
		t.Fatalf("report with overrides: %v", err)
	}
	if len(report.RealTime.Alerts) != 1 {
		t.Fatalf("expected override threshold to raise an alert, got %v", report.RealTime.Alerts)
	}

	// The stored configuration is untouched.
	if got := f.orch.registry.Get("u1").Thresholds.ViralScore; got != 80 {
		t.Errorf("overrides must not persist, stored threshold = %v", got)
	}
}
