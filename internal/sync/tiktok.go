// Pulsegraph - Social Engagement Sync and Analytics Engine
// Copyright 2026 Pulsegraph contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/pulsegraph/pulsegraph

package sync

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/pulsegraph/pulsegraph/internal/config"
	"github.com/pulsegraph/pulsegraph/internal/models"
)

// TikTokClient fetches video metrics from the TikTok open API. The
// video query endpoint is POST-based with the requested fields in the
// query string and the video ids in the JSON body.
type TikTokClient struct {
	baseURL     string
	accessToken string
	client      *http.Client
}

// NewTikTokClient creates a TikTok client from the source config.
func NewTikTokClient(cfg config.SourceConfig) *TikTokClient {
	return &TikTokClient{
		baseURL:     strings.TrimSuffix(cfg.BaseURL, "/"),
		accessToken: cfg.APIKey,
		client:      &http.Client{Timeout: cfg.Timeout},
	}
}

// Name implements SourceClient.
func (c *TikTokClient) Name() string {
	return models.SourceTikTok
}

type tiktokQueryRequest struct {
	Filters struct {
		VideoIDs []string `json:"video_ids"`
	} `json:"filters"`
}

type tiktokQueryResponse struct {
	Data struct {
		Videos []struct {
			ID           string `json:"id"`
			LikeCount    int64  `json:"like_count"`
			CommentCount int64  `json:"comment_count"`
			ShareCount   int64  `json:"share_count"`
			ViewCount    int64  `json:"view_count"`
		} `json:"videos"`
	} `json:"data"`
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// GetMetrics implements SourceClient.
func (c *TikTokClient) GetMetrics(ctx context.Context, externalID string) (models.RawMetrics, error) {
	var body tiktokQueryRequest
	body.Filters.VideoIDs = []string{externalID}

	headers := map[string]string{"Authorization": "Bearer " + c.accessToken}

	var resp tiktokQueryResponse
	reqURL := c.baseURL + "/video/query/?fields=id,like_count,comment_count,share_count,view_count"
	if err := postJSON(ctx, c.client, reqURL, headers, body, &resp); err != nil {
		return models.RawMetrics{}, fmt.Errorf("tiktok video query: %w", err)
	}
	if resp.Error.Code != "" && resp.Error.Code != "ok" {
		return models.RawMetrics{}, fmt.Errorf("tiktok video query: %s: %s", resp.Error.Code, resp.Error.Message)
	}

	for _, video := range resp.Data.Videos {
		if video.ID == externalID {
			return models.RawMetrics{
				Likes:    video.LikeCount,
				Comments: video.CommentCount,
				Shares:   video.ShareCount,
				Views:    video.ViewCount,
			}, nil
		}
	}
	return models.RawMetrics{}, ErrPostNotFound
}
