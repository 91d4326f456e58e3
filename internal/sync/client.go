// Pulsegraph - Social Engagement Sync and Analytics Engine
// Copyright 2026 Pulsegraph contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/pulsegraph/pulsegraph

package sync

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/goccy/go-json"

	"github.com/pulsegraph/pulsegraph/internal/models"
)

// ErrPostNotFound is returned by source clients when the external post
// identifier does not resolve on the platform (deleted or private post).
var ErrPostNotFound = errors.New("external post not found")

// RateLimitedError is returned on HTTP 429 responses. RetryAfter carries
// the wait the platform requested via the Retry-After header, zero when
// the header was absent or unparseable. Retry waits at least this long
// before the next attempt.
type RateLimitedError struct {
	RetryAfter time.Duration
}

func (e *RateLimitedError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("unexpected status 429: retry after %s", e.RetryAfter)
	}
	return "unexpected status 429"
}

// SourceClient fetches engagement metrics for one external platform.
// Implementations are safe for concurrent use; every request creates its
// own HTTP request and carries the caller's context.
type SourceClient interface {
	// Name returns the source identifier (models.SourceYouTube, ...).
	Name() string

	// GetMetrics fetches raw metrics for one external post ID.
	GetMetrics(ctx context.Context, externalID string) (models.RawMetrics, error)
}

// BatchClient is implemented by sources whose API supports cheap
// multi-id lookups. The returned map only contains ids the platform
// resolved; absent ids are retried through the per-item path.
type BatchClient interface {
	SourceClient

	GetMetricsBatch(ctx context.Context, externalIDs []string) (map[string]models.RawMetrics, error)

	// MaxBatchIDs returns the largest id count one batch call accepts.
	MaxBatchIDs() int
}

// maxResponseBody caps how much of a provider response is read, keeping
// a misbehaving provider from exhausting memory.
const maxResponseBody = 4 << 20 // 4MB

// getJSON performs a GET against url, decoding the JSON response into
// out. Non-2xx statuses are returned as errors carrying the status code
// so the retry layer treats them like any other fetch failure.
func getJSON(ctx context.Context, client *http.Client, url string, headers map[string]string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	return doJSON(client, req, headers, out)
}

// postJSON performs a POST with a JSON body, decoding the JSON response
// into out.
func postJSON(ctx context.Context, client *http.Client, url string, headers map[string]string, body, out interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return doJSON(client, req, headers, out)
}

func doJSON(client *http.Client, req *http.Request, headers map[string]string, out interface{}) error {
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("HTTP request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusNotFound {
		return ErrPostNotFound
	}
	if resp.StatusCode == http.StatusTooManyRequests {
		return &RateLimitedError{RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After"))}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// Drain a little of the body for the error message, providers
		// usually put the reason in the first bytes.
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, bytes.TrimSpace(snippet))
	}

	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBody)).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// parseRetryAfter parses a Retry-After header value, either delay
// seconds or an HTTP date.
func parseRetryAfter(v string) time.Duration {
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil {
		if secs < 0 {
			return 0
		}
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(v); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return 0
}
