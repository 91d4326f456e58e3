// Pulsegraph - Social Engagement Sync and Analytics Engine
// Copyright 2026 Pulsegraph contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/pulsegraph/pulsegraph

package sync

import (
	"context"
	"errors"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/pulsegraph/pulsegraph/internal/logging"
	"github.com/pulsegraph/pulsegraph/internal/metrics"
	"github.com/pulsegraph/pulsegraph/internal/models"
)

// BreakerClient wraps a SourceClient with a circuit breaker so a source
// that is down or slow fails fast instead of burning retries and
// concurrency slots on every job.
//
// Breaker configuration:
//   - opens after a 60% failure rate with at least 10 requests
//   - 1 minute measurement window in the closed state
//   - 2 minute timeout before attempting recovery
//   - at most 3 concurrent probe requests in the half-open state
//
// The breaker uses real time for its interval and timeout bookkeeping;
// unit tests should exercise the wrapped client directly.
type BreakerClient struct {
	inner SourceClient
	cb    *gobreaker.CircuitBreaker[models.RawMetrics]
}

// batchBreakerClient additionally forwards batched lookups through the
// same breaker, so a wrapped batch-capable client still advertises the
// BatchClient interface.
type batchBreakerClient struct {
	*BreakerClient
	innerBatch BatchClient
	batchCB    *gobreaker.CircuitBreaker[map[string]models.RawMetrics]
}

// WrapWithBreaker wraps client with a circuit breaker. If the client
// supports batched lookups the returned client does too.
func WrapWithBreaker(client SourceClient) SourceClient {
	source := client.Name()

	metrics.CircuitBreakerState.WithLabelValues(source).Set(0) // 0 = closed

	bc := &BreakerClient{
		inner: client,
		cb:    gobreaker.NewCircuitBreaker[models.RawMetrics](breakerSettings(source)),
	}

	if batch, ok := client.(BatchClient); ok {
		return &batchBreakerClient{
			BreakerClient: bc,
			innerBatch:    batch,
			batchCB:       gobreaker.NewCircuitBreaker[map[string]models.RawMetrics](breakerSettings(source + "-batch")),
		}
	}
	return bc
}

// breakerSettings builds the shared gobreaker settings for one source.
func breakerSettings(source string) gobreaker.Settings {
	return gobreaker.Settings{
		Name:        source,
		MaxRequests: 3,
		Interval:    time.Minute,
		Timeout:     2 * time.Minute,

		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < 10 {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			shouldTrip := failureRatio >= 0.6
			if shouldTrip {
				logging.Warn().
					Str("source", source).
					Uint32("failures", counts.TotalFailures).
					Float64("failure_rate", failureRatio*100).
					Msg("Opening circuit")
			}
			return shouldTrip
		},

		OnStateChange: func(name string, from, to gobreaker.State) {
			fromStr := breakerStateString(from)
			toStr := breakerStateString(to)
			logging.Info().Str("source", name).Str("from", fromStr).Str("to", toStr).Msg("Circuit breaker state transition")
			metrics.CircuitBreakerState.WithLabelValues(name).Set(breakerStateValue(to))
			metrics.CircuitBreakerTransitions.WithLabelValues(name, fromStr, toStr).Inc()
		},
	}
}

// Name implements SourceClient.
func (b *BreakerClient) Name() string {
	return b.inner.Name()
}

// GetMetrics implements SourceClient, routing the call through the
// breaker. A rejected call (open circuit) surfaces as an ordinary error
// and is recorded as a fetch failure for that job only.
func (b *BreakerClient) GetMetrics(ctx context.Context, externalID string) (models.RawMetrics, error) {
	source := b.inner.Name()

	raw, err := b.cb.Execute(func() (models.RawMetrics, error) {
		return b.inner.GetMetrics(ctx, externalID)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			metrics.CircuitBreakerRequests.WithLabelValues(source, "rejected").Inc()
		} else {
			metrics.CircuitBreakerRequests.WithLabelValues(source, "failure").Inc()
		}
		return models.RawMetrics{}, err
	}

	metrics.CircuitBreakerRequests.WithLabelValues(source, "success").Inc()
	return raw, nil
}

// MaxBatchIDs implements BatchClient.
func (b *batchBreakerClient) MaxBatchIDs() int {
	return b.innerBatch.MaxBatchIDs()
}

// GetMetricsBatch implements BatchClient through the batch breaker.
func (b *batchBreakerClient) GetMetricsBatch(ctx context.Context, externalIDs []string) (map[string]models.RawMetrics, error) {
	source := b.inner.Name()

	result, err := b.batchCB.Execute(func() (map[string]models.RawMetrics, error) {
		return b.innerBatch.GetMetricsBatch(ctx, externalIDs)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			metrics.CircuitBreakerRequests.WithLabelValues(source, "rejected").Inc()
		} else {
			metrics.CircuitBreakerRequests.WithLabelValues(source, "failure").Inc()
		}
		return nil, err
	}

	metrics.CircuitBreakerRequests.WithLabelValues(source, "success").Inc()
	return result, nil
}

func breakerStateString(s gobreaker.State) string {
	switch s {
	case gobreaker.StateClosed:
		return "closed"
	case gobreaker.StateHalfOpen:
		return "half-open"
	case gobreaker.StateOpen:
		return "open"
	default:
		return "unknown"
	}
}

func breakerStateValue(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}
