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
	"strconv"
	"strings"

	"github.com/pulsegraph/pulsegraph/internal/config"
	"github.com/pulsegraph/pulsegraph/internal/models"
)

// youtubeMaxBatchIDs is the Data API's hard cap on ids per videos.list
// call. RemoteBatchSize is clamped to this regardless of configuration.
const youtubeMaxBatchIDs = 50

// YouTubeClient fetches video statistics from the YouTube Data API v3.
//
// YouTube is the one source with cheap multi-id lookups: videos.list
// accepts a comma-separated id list, so the client implements
// BatchClient and the coordinator prefers the batch path for it.
type YouTubeClient struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewYouTubeClient creates a YouTube client from the source config.
func NewYouTubeClient(cfg config.SourceConfig) *YouTubeClient {
	return &YouTubeClient{
		baseURL: strings.TrimSuffix(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		client:  &http.Client{Timeout: cfg.Timeout},
	}
}

// Name implements SourceClient.
func (c *YouTubeClient) Name() string {
	return models.SourceYouTube
}

// MaxBatchIDs implements BatchClient.
func (c *YouTubeClient) MaxBatchIDs() int {
	return youtubeMaxBatchIDs
}

// youtubeVideoList mirrors the subset of the videos.list response the
// sync pipeline consumes. The Data API encodes counts as strings.
type youtubeVideoList struct {
	Items []struct {
		ID         string `json:"id"`
		Statistics struct {
			ViewCount    string `json:"viewCount"`
			LikeCount    string `json:"likeCount"`
			CommentCount string `json:"commentCount"`
		} `json:"statistics"`
	} `json:"items"`
}

// GetMetrics implements SourceClient as a batch of one.
func (c *YouTubeClient) GetMetrics(ctx context.Context, externalID string) (models.RawMetrics, error) {
	batch, err := c.GetMetricsBatch(ctx, []string{externalID})
	if err != nil {
		return models.RawMetrics{}, err
	}
	raw, ok := batch[externalID]
	if !ok {
		return models.RawMetrics{}, ErrPostNotFound
	}
	return raw, nil
}

// GetMetricsBatch implements BatchClient. Ids the API did not return
// (deleted or private videos) are simply absent from the result map.
func (c *YouTubeClient) GetMetricsBatch(ctx context.Context, externalIDs []string) (map[string]models.RawMetrics, error) {
	if len(externalIDs) > youtubeMaxBatchIDs {
		return nil, fmt.Errorf("batch of %d exceeds the %d id limit", len(externalIDs), youtubeMaxBatchIDs)
	}

	params := url.Values{}
	params.Set("part", "statistics")
	params.Set("id", strings.Join(externalIDs, ","))
	params.Set("key", c.apiKey)

	var list youtubeVideoList
	if err := getJSON(ctx, c.client, c.baseURL+"/videos?"+params.Encode(), nil, &list); err != nil {
		return nil, fmt.Errorf("youtube videos.list: %w", err)
	}

	result := make(map[string]models.RawMetrics, len(list.Items))
	for _, item := range list.Items {
		result[item.ID] = models.RawMetrics{
			Likes:    parseCount(item.Statistics.LikeCount),
			Comments: parseCount(item.Statistics.CommentCount),
			Views:    parseCount(item.Statistics.ViewCount),
		}
	}
	return result, nil
}

// parseCount parses the Data API's string-encoded counters. Missing or
// malformed values become 0 rather than failing the whole batch.
func parseCount(s string) int64 {
	if s == "" {
		return 0
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0
	}
	return n
}
