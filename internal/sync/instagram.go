// Pulsegraph - Social Engagement Sync and Analytics Engine
// Copyright 2026 Pulsegraph contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/pulsegraph/pulsegraph

package sync

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/pulsegraph/pulsegraph/internal/config"
	"github.com/pulsegraph/pulsegraph/internal/models"
)

// InstagramClient fetches media insights from the Instagram Graph API.
type InstagramClient struct {
	baseURL     string
	accessToken string
	client      *http.Client
}

// NewInstagramClient creates an Instagram client from the source config.
func NewInstagramClient(cfg config.SourceConfig) *InstagramClient {
	return &InstagramClient{
		baseURL:     strings.TrimSuffix(cfg.BaseURL, "/"),
		accessToken: cfg.APIKey,
		client:      &http.Client{Timeout: cfg.Timeout},
	}
}

// Name implements SourceClient.
func (c *InstagramClient) Name() string {
	return models.SourceInstagram
}

// instagramInsights mirrors the Graph API insights response: one entry
// per requested metric, each with a single value for lifetime period.
type instagramInsights struct {
	Data []struct {
		Name   string `json:"name"`
		Values []struct {
			Value int64 `json:"value"`
		} `json:"values"`
	} `json:"data"`
}

// GetMetrics implements SourceClient.
func (c *InstagramClient) GetMetrics(ctx context.Context, externalID string) (models.RawMetrics, error) {
	params := url.Values{}
	params.Set("metric", "likes,comments,shares,reach,impressions")
	params.Set("access_token", c.accessToken)

	var insights instagramInsights
	reqURL := fmt.Sprintf("%s/%s/insights?%s", c.baseURL, url.PathEscape(externalID), params.Encode())
	if err := getJSON(ctx, c.client, reqURL, nil, &insights); err != nil {
		return models.RawMetrics{}, fmt.Errorf("instagram insights: %w", err)
	}

	var raw models.RawMetrics
	for _, metric := range insights.Data {
		if len(metric.Values) == 0 {
			continue
		}
		value := metric.Values[0].Value
		switch metric.Name {
		case "likes":
			raw.Likes = value
		case "comments":
			raw.Comments = value
		case "shares":
			raw.Shares = value
		case "reach":
			raw.Reach = value
		case "impressions":
			raw.Impressions = value
		}
	}
	return raw, nil
}
