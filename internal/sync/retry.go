// Pulsegraph - Social Engagement Sync and Analytics Engine
// Copyright 2026 Pulsegraph contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/pulsegraph/pulsegraph

package sync

import (
	"context"
	"errors"
	"math/rand/v2"
	"time"
)

// RetryPolicy controls the backoff behavior of Retry.
type RetryPolicy struct {
	// MaxRetries is the number of additional attempts after the first
	// failure. MaxRetries=2 means at most 3 invocations.
	MaxRetries int

	// BaseDelay is the base of the exponential backoff.
	BaseDelay time.Duration

	// JitterMax bounds the uniform random jitter added to each wait.
	JitterMax time.Duration
}

// Retry invokes fn, retrying on failure with exponential backoff plus
// jitter: wait = BaseDelay * 2^attempt + uniform(0, JitterMax). All
// errors are considered retryable. On exhaustion the last error is
// returned unchanged so callers can inspect the underlying failure.
//
// When the failure is a RateLimitedError carrying a Retry-After longer
// than the computed backoff, the wait is raised to the platform's ask.
//
// Waits are cancellable; if the context is done during a wait, the
// context error is returned immediately.
func Retry[T any](ctx context.Context, policy RetryPolicy, fn func() (T, error)) (T, error) {
	var (
		result  T
		lastErr error
	)

	for attempt := 0; attempt <= policy.MaxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		result, lastErr = fn()
		if lastErr == nil {
			return result, nil
		}

		if attempt == policy.MaxRetries {
			break
		}

		delay := policy.BaseDelay*time.Duration(1<<uint(attempt)) + jitter(policy.JitterMax)
		var rateLimited *RateLimitedError
		if errors.As(lastErr, &rateLimited) && rateLimited.RetryAfter > delay {
			delay = rateLimited.RetryAfter
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return result, ctx.Err()
		}
	}

	return result, lastErr
}

// jitter returns a uniform random duration in [0, max].
func jitter(max time.Duration) time.Duration {
	if max <= 0 {
		return 0
	}
	return time.Duration(rand.Int64N(int64(max) + 1))
}
