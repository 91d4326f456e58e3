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

// TwitterClient fetches tweet metrics from the X API v2.
type TwitterClient struct {
	baseURL     string
	bearerToken string
	client      *http.Client
}

// NewTwitterClient creates a Twitter client from the source config.
func NewTwitterClient(cfg config.SourceConfig) *TwitterClient {
	return &TwitterClient{
		baseURL:     strings.TrimSuffix(cfg.BaseURL, "/"),
		bearerToken: cfg.APIKey,
		client:      &http.Client{Timeout: cfg.Timeout},
	}
}

// Name implements SourceClient.
func (c *TwitterClient) Name() string {
	return models.SourceTwitter
}

type twitterTweetResponse struct {
	Data struct {
		ID            string `json:"id"`
		PublicMetrics struct {
			RetweetCount    int64 `json:"retweet_count"`
			ReplyCount      int64 `json:"reply_count"`
			LikeCount       int64 `json:"like_count"`
			ImpressionCount int64 `json:"impression_count"`
		} `json:"public_metrics"`
	} `json:"data"`
	Errors []struct {
		Title  string `json:"title"`
		Detail string `json:"detail"`
	} `json:"errors"`
}

// GetMetrics implements SourceClient. Retweets map to shares and
// impressions double as both views and impressions; the X API does not
// expose a distinct reach figure.
func (c *TwitterClient) GetMetrics(ctx context.Context, externalID string) (models.RawMetrics, error) {
	params := url.Values{}
	params.Set("tweet.fields", "public_metrics")

	headers := map[string]string{"Authorization": "Bearer " + c.bearerToken}

	var resp twitterTweetResponse
	reqURL := fmt.Sprintf("%s/tweets/%s?%s", c.baseURL, url.PathEscape(externalID), params.Encode())
	if err := getJSON(ctx, c.client, reqURL, headers, &resp); err != nil {
		return models.RawMetrics{}, fmt.Errorf("twitter tweet lookup: %w", err)
	}
	if len(resp.Errors) > 0 {
		return models.RawMetrics{}, fmt.Errorf("twitter tweet lookup: %s: %s", resp.Errors[0].Title, resp.Errors[0].Detail)
	}
	if resp.Data.ID == "" {
		return models.RawMetrics{}, ErrPostNotFound
	}

	pm := resp.Data.PublicMetrics
	return models.RawMetrics{
		Likes:       pm.LikeCount,
		Comments:    pm.ReplyCount,
		Shares:      pm.RetweetCount,
		Views:       pm.ImpressionCount,
		Impressions: pm.ImpressionCount,
	}, nil
}
