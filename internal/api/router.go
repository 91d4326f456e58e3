// Pulsegraph - Social Engagement Sync and Analytics Engine
// Copyright 2026 Pulsegraph contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/pulsegraph/pulsegraph

// Package api exposes the HTTP surface: sync triggers, composite
// reports, dashboards, predictions, analytics configuration, content
// management, health and metrics.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/pulsegraph/pulsegraph/internal/config"
	"github.com/pulsegraph/pulsegraph/internal/models"
	"github.com/pulsegraph/pulsegraph/internal/websocket"
)

// SyncService triggers and inspects per-user syncs.
type SyncService interface {
	TriggerSync(ctx context.Context, userID string, opts models.SyncOptions) (models.SyncResult, error)
	LastSyncTime(userID string) (time.Time, bool)
}

// ReportService serves composite reports, dashboards, predictions and
// analytics configuration.
type ReportService interface {
	GenerateComprehensiveReport(ctx context.Context, userID string, overrides *models.AnalyticsConfigPatch) (models.CompositeReport, bool, error)
	GetRealTimeDashboard(ctx context.Context, userID string) (models.DashboardPayload, error)
	PredictMultiPlatformPerformance(ctx context.Context, userID string, draft models.ContentDraft) ([]models.PlatformPrediction, error)
	ConfigureUserAnalytics(ctx context.Context, userID string, patch models.AnalyticsConfigPatch) (models.AnalyticsConfig, error)
}

// ContentWriter persists content items registered through the API.
type ContentWriter interface {
	UpsertContent(ctx context.Context, content models.Content) error
}

// HealthChecker reports storage connectivity for the health endpoint.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// Router wires the HTTP handlers to their services.
type Router struct {
	cfg      config.ServerConfig
	sync     SyncService
	reports  ReportService
	contents ContentWriter
	health   HealthChecker
	hub      *websocket.Hub
}

// NewRouter creates a router over the given services. hub may be nil
// when websocket support is disabled.
func NewRouter(cfg config.ServerConfig, sync SyncService, reports ReportService, contents ContentWriter, health HealthChecker, hub *websocket.Hub) *Router {
	return &Router{
		cfg:      cfg,
		sync:     sync,
		reports:  reports,
		contents: contents,
		health:   health,
		hub:      hub,
	}
}

// Handler assembles the chi route tree.
func (rt *Router) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(requestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(requestLogger)

	if len(rt.cfg.CORSOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   rt.cfg.CORSOrigins,
			AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
			AllowedHeaders:   []string{"Accept", "Content-Type", requestIDHeader},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}

	r.Get("/api/v1/health", rt.handleHealth)
	r.Handle("/metrics", promhttp.Handler())

	if rt.hub != nil {
		r.Get("/ws", func(w http.ResponseWriter, r *http.Request) {
			websocket.ServeWS(rt.hub, w, r)
		})
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(httpMetrics)
		if rt.cfg.RateLimitReqs > 0 {
			r.Use(httprate.LimitByIP(rt.cfg.RateLimitReqs, rt.cfg.RateLimitWindow))
		}

		r.Route("/users/{userID}", func(r chi.Router) {
			r.Post("/sync", rt.handleSync)
			r.Get("/sync/status", rt.handleSyncStatus)
			r.Get("/report", rt.handleReport)
			r.Get("/dashboard", rt.handleDashboard)
			r.Post("/predictions", rt.handlePredictions)
			r.Put("/analytics-config", rt.handleConfigure)
		})

		r.Post("/contents", rt.handleUpsertContent)
	})

	return r
}
