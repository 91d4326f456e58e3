// Pulsegraph - Social Engagement Sync and Analytics Engine
// Copyright 2026 Pulsegraph contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/pulsegraph/pulsegraph

package sync

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/pulsegraph/pulsegraph/internal/config"
)

func sourceConfigFor(t *testing.T, srv *httptest.Server) config.SourceConfig {
	t.Helper()
	return config.SourceConfig{
		Enabled:           true,
		BaseURL:           srv.URL,
		APIKey:            "test-key",
		RequestsPerSecond: 100,
		Timeout:           2 * time.Second,
	}
}

func TestYouTubeClient_GetMetricsBatch(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/videos" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if got := r.URL.Query().Get("key"); got != "test-key" {
			t.Errorf("api key = %q, want %q", got, "test-key")
		}
		if got := r.URL.Query().Get("id"); got != "vid-1,vid-2,vid-3" {
			t.Errorf("id param = %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		// vid-3 is absent: deleted videos are dropped from the response.
		_, _ = w.Write([]byte(`{"items":[
			{"id":"vid-1","statistics":{"viewCount":"1200","likeCount":"90","commentCount":"12"}},
			{"id":"vid-2","statistics":{"viewCount":"300","likeCount":"","commentCount":"oops"}}
		]}`))
	}))
	defer srv.Close()

	client := NewYouTubeClient(sourceConfigFor(t, srv))
	batch, err := client.GetMetricsBatch(context.Background(), []string{"vid-1", "vid-2", "vid-3"})
	if err != nil {
		t.Fatalf("GetMetricsBatch: %v", err)
	}

	if len(batch) != 2 {
		t.Fatalf("resolved %d ids, want 2", len(batch))
	}
	if raw := batch["vid-1"]; raw.Views != 1200 || raw.Likes != 90 || raw.Comments != 12 {
		t.Errorf("vid-1 = %+v", raw)
	}
	// Empty and malformed counters parse as zero.
	if raw := batch["vid-2"]; raw.Views != 300 || raw.Likes != 0 || raw.Comments != 0 {
		t.Errorf("vid-2 = %+v", raw)
	}
	if _, ok := batch["vid-3"]; ok {
		t.Error("vid-3 should be absent from the batch result")
	}
}

func TestYouTubeClient_BatchSizeLimit(t *testing.T) {
	t.Parallel()

	client := NewYouTubeClient(config.SourceConfig{BaseURL: "http://localhost", Timeout: time.Second})
	ids := make([]string, youtubeMaxBatchIDs+1)
	for i := range ids {
		ids[i] = "vid"
	}
	if _, err := client.GetMetricsBatch(context.Background(), ids); err == nil {
		t.Fatal("expected error for oversized batch")
	}
}

func TestYouTubeClient_GetMetrics_NotFound(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"items":[]}`))
	}))
	defer srv.Close()

	client := NewYouTubeClient(sourceConfigFor(t, srv))
	if _, err := client.GetMetrics(context.Background(), "gone"); !errors.Is(err, ErrPostNotFound) {
		t.Fatalf("err = %v, want ErrPostNotFound", err)
	}
}

func TestInstagramClient_GetMetrics(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.URL.Path, "/media-1/insights") {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if got := r.URL.Query().Get("access_token"); got != "test-key" {
			t.Errorf("access_token = %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":[
			{"name":"likes","values":[{"value":40}]},
			{"name":"comments","values":[{"value":5}]},
			{"name":"shares","values":[{"value":3}]},
			{"name":"reach","values":[{"value":900}]},
			{"name":"impressions","values":[{"value":1500}]},
			{"name":"saved","values":[{"value":7}]}
		]}`))
	}))
	defer srv.Close()

	client := NewInstagramClient(sourceConfigFor(t, srv))
	raw, err := client.GetMetrics(context.Background(), "media-1")
	if err != nil {
		t.Fatalf("GetMetrics: %v", err)
	}
	if raw.Likes != 40 || raw.Comments != 5 || raw.Shares != 3 || raw.Reach != 900 || raw.Impressions != 1500 {
		t.Errorf("raw = %+v", raw)
	}
}

func TestClient_NotFoundMapsToErrPostNotFound(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "no such media", http.StatusNotFound)
	}))
	defer srv.Close()

	client := NewInstagramClient(sourceConfigFor(t, srv))
	if _, err := client.GetMetrics(context.Background(), "missing"); !errors.Is(err, ErrPostNotFound) {
		t.Fatalf("err = %v, want ErrPostNotFound", err)
	}
}

func TestClient_ServerErrorIncludesStatus(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "maintenance window", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	client := NewTwitterClient(sourceConfigFor(t, srv))
	_, err := client.GetMetrics(context.Background(), "tweet-1")
	if err == nil {
		t.Fatal("expected error for 503 response")
	}
	if !strings.Contains(err.Error(), "503") {
		t.Errorf("error %q does not carry the status code", err)
	}
}

func TestClient_RateLimitedCarriesRetryAfter(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Retry-After", "7")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	client := NewTwitterClient(sourceConfigFor(t, srv))
	_, err := client.GetMetrics(context.Background(), "tweet-1")

	var rateLimited *RateLimitedError
	if !errors.As(err, &rateLimited) {
		t.Fatalf("err = %v, want RateLimitedError", err)
	}
	if rateLimited.RetryAfter != 7*time.Second {
		t.Errorf("RetryAfter = %v, want 7s", rateLimited.RetryAfter)
	}
	if !strings.Contains(err.Error(), "429") {
		t.Errorf("error %q does not carry the status code", err)
	}
}

func TestParseRetryAfter(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		value string
		want  time.Duration
	}{
		{"empty", "", 0},
		{"seconds", "30", 30 * time.Second},
		{"zero seconds", "0", 0},
		{"negative", "-5", 0},
		{"garbage", "soon", 0},
		{"past http date", "Mon, 02 Jan 2006 15:04:05 GMT", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := parseRetryAfter(tt.value); got != tt.want {
				t.Errorf("parseRetryAfter(%q) = %v, want %v", tt.value, got, tt.want)
			}
		})
	}
}

func TestParseRetryAfter_FutureHTTPDate(t *testing.T) {
	t.Parallel()

	v := time.Now().Add(90 * time.Second).UTC().Format(http.TimeFormat)
	got := parseRetryAfter(v)
	if got <= 80*time.Second || got > 90*time.Second {
		t.Errorf("parseRetryAfter(%q) = %v, want just under 90s", v, got)
	}
}

func TestClient_ContextCancellation(t *testing.T) {
	t.Parallel()

	block := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		<-block
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()
	defer close(block)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	client := NewTikTokClient(sourceConfigFor(t, srv))
	if _, err := client.GetMetrics(ctx, "video-1"); err == nil {
		t.Fatal("expected error after context deadline")
	}
}
