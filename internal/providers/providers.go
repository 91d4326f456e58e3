// Pulsegraph - Social Engagement Sync and Analytics Engine
// Copyright 2026 Pulsegraph contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/pulsegraph/pulsegraph

// Package providers implements HTTP clients for the external analytical
// services the report orchestrator fans out to. Each client exposes a
// single typed query; failure semantics (default substitution, omission)
// live in the orchestrator, not here.
package providers

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/pulsegraph/pulsegraph/internal/config"
	"github.com/pulsegraph/pulsegraph/internal/models"
)

// maxResponseBody caps provider response reads.
const maxResponseBody = 4 << 20 // 4MB

// httpProvider is the shared transport for all provider clients.
type httpProvider struct {
	baseURL string
	client  *http.Client
}

func newHTTPProvider(baseURL string, timeout time.Duration) httpProvider {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return httpProvider{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

func (p httpProvider) get(ctx context.Context, path string, query url.Values, out interface{}) error {
	u := p.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, http.NoBody)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	return p.do(req, out)
}

func (p httpProvider) post(ctx context.Context, path string, body, out interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request body: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return p.do(req, out)
}

func (p httpProvider) do(req *http.Request, out interface{}) error {
	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("HTTP request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, bytes.TrimSpace(snippet))
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBody)).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// AnalyticsClient queries the real-time analytics service.
type AnalyticsClient struct{ httpProvider }

// NewAnalyticsClient creates the client from the report configuration.
func NewAnalyticsClient(cfg config.ReportConfig) *AnalyticsClient {
	return &AnalyticsClient{newHTTPProvider(cfg.AnalyticsURL, cfg.ProviderTimeout)}
}

// LiveSnapshot fetches fresh per-content metrics and aggregate alert
// signals for a user.
func (c *AnalyticsClient) LiveSnapshot(ctx context.Context, userID string, sources []string) (models.LiveSnapshot, error) {
	query := url.Values{}
	query.Set("user_id", userID)
	if len(sources) > 0 {
		query.Set("sources", strings.Join(sources, ","))
	}

	var snapshot models.LiveSnapshot
	if err := c.get(ctx, "/v1/live", query, &snapshot); err != nil {
		return models.LiveSnapshot{}, fmt.Errorf("analytics live snapshot: %w", err)
	}
	return snapshot, nil
}

// PredictionClient queries the performance forecasting service.
type PredictionClient struct{ httpProvider }

// NewPredictionClient creates the client from the report configuration.
func NewPredictionClient(cfg config.ReportConfig) *PredictionClient {
	return &PredictionClient{newHTTPProvider(cfg.PredictionURL, cfg.ProviderTimeout)}
}

// ForecastUser predicts upcoming performance across the given sources.
func (c *PredictionClient) ForecastUser(ctx context.Context, userID string, sources []string) (models.PredictionSection, error) {
	query := url.Values{}
	query.Set("user_id", userID)
	if len(sources) > 0 {
		query.Set("sources", strings.Join(sources, ","))
	}

	var section models.PredictionSection
	if err := c.get(ctx, "/v1/forecast", query, &section); err != nil {
		return models.PredictionSection{}, fmt.Errorf("prediction forecast: %w", err)
	}
	return section, nil
}

// PredictDraft forecasts one unpublished draft on one source.
func (c *PredictionClient) PredictDraft(ctx context.Context, userID, source string, draft models.ContentDraft) (models.PlatformPrediction, error) {
	body := struct {
		UserID string              `json:"user_id"`
		Source string              `json:"source"`
		Draft  models.ContentDraft `json:"draft"`
	}{UserID: userID, Source: source, Draft: draft}

	var prediction models.PlatformPrediction
	if err := c.post(ctx, "/v1/predict", body, &prediction); err != nil {
		return models.PlatformPrediction{}, fmt.Errorf("draft prediction for %s: %w", source, err)
	}
	prediction.Source = source
	return prediction, nil
}

// TrendsClient queries the trending-topics feed.
type TrendsClient struct{ httpProvider }

// NewTrendsClient creates the client from the report configuration.
func NewTrendsClient(cfg config.ReportConfig) *TrendsClient {
	return &TrendsClient{newHTTPProvider(cfg.TrendsURL, cfg.ProviderTimeout)}
}

// Trending fetches the current trending topics for the given sources.
// Opportunity scoring happens in the report layer, not here.
func (c *TrendsClient) Trending(ctx context.Context, sources []string) ([]models.Trend, error) {
	query := url.Values{}
	if len(sources) > 0 {
		query.Set("sources", strings.Join(sources, ","))
	}

	var payload struct {
		Trends []models.Trend `json:"trends"`
	}
	if err := c.get(ctx, "/v1/trending", query, &payload); err != nil {
		return nil, fmt.Errorf("trending feed: %w", err)
	}
	return payload.Trends, nil
}

// ListeningClient queries the social-listening service.
type ListeningClient struct{ httpProvider }

// NewListeningClient creates the client from the report configuration.
func NewListeningClient(cfg config.ReportConfig) *ListeningClient {
	return &ListeningClient{newHTTPProvider(cfg.ListeningURL, cfg.ProviderTimeout)}
}

// Search fetches mentions and sentiment for the user's tracked keywords.
func (c *ListeningClient) Search(ctx context.Context, userID string, keywords []string) (models.ListeningSection, error) {
	body := struct {
		UserID   string   `json:"user_id"`
		Keywords []string `json:"keywords"`
	}{UserID: userID, Keywords: keywords}

	var section models.ListeningSection
	if err := c.post(ctx, "/v1/search", body, &section); err != nil {
		return models.ListeningSection{}, fmt.Errorf("social listening search: %w", err)
	}
	return section, nil
}

// CompetitorClient queries the competitor-analysis service.
type CompetitorClient struct{ httpProvider }

// NewCompetitorClient creates the client from the report configuration.
func NewCompetitorClient(cfg config.ReportConfig) *CompetitorClient {
	return &CompetitorClient{newHTTPProvider(cfg.CompetitorURL, cfg.ProviderTimeout)}
}

// Analyze compares the user against their tracked competitor accounts.
func (c *CompetitorClient) Analyze(ctx context.Context, userID string, competitors []string) (models.CompetitorSection, error) {
	body := struct {
		UserID      string   `json:"user_id"`
		Competitors []string `json:"competitors"`
	}{UserID: userID, Competitors: competitors}

	var section models.CompetitorSection
	if err := c.post(ctx, "/v1/analyze", body, &section); err != nil {
		return models.CompetitorSection{}, fmt.Errorf("competitor analysis: %w", err)
	}
	return section, nil
}
