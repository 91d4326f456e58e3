// Pulsegraph - Social Engagement Sync and Analytics Engine
// Copyright 2026 Pulsegraph contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/pulsegraph/pulsegraph

// Package metrics registers the Prometheus collectors instrumenting the
// sync pipeline, the report cache and the orchestrator. Collectors are
// registered with promauto on the default registry and served via
// promhttp on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Sync pipeline metrics

	SyncRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pulsegraph_sync_runs_total",
			Help: "Total number of sync runs by outcome (completed, skipped, empty)",
		},
		[]string{"outcome"},
	)

	SyncDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "pulsegraph_sync_duration_seconds",
			Help:    "Duration of complete per-user sync runs in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		},
	)

	SyncJobs = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pulsegraph_sync_jobs_total",
			Help: "Total number of fetch jobs by source and result (resolved, failed)",
		},
		[]string{"source", "result"},
	)

	SyncRetries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pulsegraph_sync_retries_total",
			Help: "Total number of fetch retry attempts by source",
		},
		[]string{"source"},
	)

	SyncWriteChunks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pulsegraph_sync_write_chunks_total",
			Help: "Total number of bulk write chunks by result (applied, failed)",
		},
		[]string{"result"},
	)

	RateLimiterWait = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pulsegraph_rate_limiter_wait_seconds",
			Help:    "Time fetch jobs spent waiting on the per-source pacer",
			Buckets: []float64{0.001, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"source"},
	)

	// Circuit breaker metrics

	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "pulsegraph_circuit_breaker_state",
			Help: "Circuit breaker state by source (0=closed, 1=half-open, 2=open)",
		},
		[]string{"source"},
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pulsegraph_circuit_breaker_transitions_total",
			Help: "Circuit breaker state transitions by source",
		},
		[]string{"source", "from", "to"},
	)

	CircuitBreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pulsegraph_circuit_breaker_requests_total",
			Help: "Requests through circuit breakers by source and result (success, failure, rejected)",
		},
		[]string{"source", "result"},
	)

	// Report cache metrics

	ReportCacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pulsegraph_report_cache_hits_total",
			Help: "Total number of report cache hits",
		},
	)

	ReportCacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pulsegraph_report_cache_misses_total",
			Help: "Total number of report cache misses",
		},
	)

	ReportCacheEvictions = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pulsegraph_report_cache_evictions_total",
			Help: "Total number of expired report cache entries removed by the sweeper",
		},
	)

	ReportCacheSize = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "pulsegraph_report_cache_entries",
			Help: "Current number of cached composite reports",
		},
	)

	// Orchestrator metrics

	ReportSections = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pulsegraph_report_sections_total",
			Help: "Report section builds by section and result (success, failure)",
		},
		[]string{"section", "result"},
	)

	ReportDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "pulsegraph_report_generation_duration_seconds",
			Help:    "Duration of composite report generation in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	AlertsRaised = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pulsegraph_alerts_raised_total",
			Help: "Alerts raised by type",
		},
		[]string{"type"},
	)

	// HTTP metrics

	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pulsegraph_http_requests_total",
			Help: "HTTP requests by method, route and status code",
		},
		[]string{"method", "route", "status"},
	)

	HTTPDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pulsegraph_http_request_duration_seconds",
			Help:    "HTTP request latency by route",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route"},
	)
)
