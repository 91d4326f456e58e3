// Pulsegraph - Social Engagement Sync and Analytics Engine
// Copyright 2026 Pulsegraph contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/pulsegraph/pulsegraph

package sync

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/pulsegraph/pulsegraph/internal/metrics"
)

// Pacer serializes calls to one external source with a minimum interval
// of 1/requestsPerSecond between releases.
//
// This is a single-slot pacer, not a bursting token bucket: the limiter
// is created with burst 1, so no more than one call is ever released per
// interval window regardless of how many callers are queued. Waiters are
// released in FIFO order by x/time/rate.
type Pacer struct {
	source  string
	limiter *rate.Limiter
}

// NewPacer creates a pacer allowing requestsPerSecond calls to source.
func NewPacer(source string, requestsPerSecond float64) *Pacer {
	if requestsPerSecond <= 0 {
		requestsPerSecond = 1
	}
	return &Pacer{
		source:  source,
		limiter: rate.NewLimiter(rate.Limit(requestsPerSecond), 1),
	}
}

// Wait blocks until the pacer releases the caller or the context is
// done. Wait time is recorded so saturated sources are visible in
// monitoring.
func (p *Pacer) Wait(ctx context.Context) error {
	start := time.Now()
	err := p.limiter.Wait(ctx)
	metrics.RateLimiterWait.WithLabelValues(p.source).Observe(time.Since(start).Seconds())
	return err
}

// PacerRegistry hands out one Pacer per source so that backpressure on
// one source never throttles another. Pacers are created lazily and
// cached for the registry's lifetime.
type PacerRegistry struct {
	mu     sync.Mutex
	pacers map[string]*Pacer
}

// NewPacerRegistry creates an empty registry.
func NewPacerRegistry() *PacerRegistry {
	return &PacerRegistry{pacers: make(map[string]*Pacer)}
}

// For returns the pacer for source, creating it with requestsPerSecond
// on first use. The rate of an existing pacer is not changed.
func (r *PacerRegistry) For(source string, requestsPerSecond float64) *Pacer {
	r.mu.Lock()
	defer r.mu.Unlock()

	if p, ok := r.pacers[source]; ok {
		return p
	}
	p := NewPacer(source, requestsPerSecond)
	r.pacers[source] = p
	return p
}
