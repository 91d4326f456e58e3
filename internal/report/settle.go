// Pulsegraph - Social Engagement Sync and Analytics Engine
// Copyright 2026 Pulsegraph contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/pulsegraph/pulsegraph

package report

import (
	"context"
	"time"

	"github.com/pulsegraph/pulsegraph/internal/logging"
	"github.com/pulsegraph/pulsegraph/internal/metrics"
)

// section is the tagged outcome of one fan-out branch. Exactly one of
// value or err is meaningful; ok records which.
type section[T any] struct {
	value T
	ok    bool
}

// settle runs build under its own timeout and substitutes the fallback
// value on any error. It never propagates the failure; the caller reads
// ok to account for completeness. This is the single place the
// default-substitution policy lives.
func settle[T any](ctx context.Context, name string, timeout time.Duration, build func(context.Context) (T, error), fallback func() T) section[T] {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	value, err := build(ctx)
	if err != nil {
		ctxLogger := logging.Ctx(ctx)
		ctxLogger.Warn().Err(err).Str("section", name).Msg("Report section failed, substituting default")
		metrics.ReportSections.WithLabelValues(name, "failure").Inc()
		return section[T]{value: fallback()}
	}

	metrics.ReportSections.WithLabelValues(name, "success").Inc()
	return section[T]{value: value, ok: true}
}
