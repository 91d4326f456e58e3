// Pulsegraph - Social Engagement Sync and Analytics Engine
// Copyright 2026 Pulsegraph contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/pulsegraph/pulsegraph

// Package main is the entry point for the Pulsegraph server.
//
// Pulsegraph keeps a creator's engagement metrics in sync across
// social platforms (YouTube, Instagram, TikTok, Twitter) and serves
// composite analytical reports, real-time dashboards and per-draft
// performance predictions over a REST API.
//
// # Startup order
//
//  1. Configuration: layered load via Koanf v2 (defaults, config.yaml,
//     PULSEGRAPH_* environment variables)
//  2. Storage: Postgres connection pool and schema
//  3. Source clients: one per enabled platform, each behind a circuit
//     breaker and a per-source rate pacer
//  4. Report pipeline: provider clients, report cache, per-user
//     analytics configuration registry
//  5. Eventing: NATS publisher (optional) and websocket hub
//  6. Supervision: all long-running services run under a suture tree
//
// # Signal handling
//
// SIGINT and SIGTERM cancel the root context; the supervisor tree
// drains in-flight work and the HTTP server shuts down gracefully
// before the process exits.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pulsegraph/pulsegraph/internal/api"
	"github.com/pulsegraph/pulsegraph/internal/config"
	"github.com/pulsegraph/pulsegraph/internal/events"
	"github.com/pulsegraph/pulsegraph/internal/logging"
	"github.com/pulsegraph/pulsegraph/internal/models"
	"github.com/pulsegraph/pulsegraph/internal/providers"
	"github.com/pulsegraph/pulsegraph/internal/report"
	"github.com/pulsegraph/pulsegraph/internal/store"
	"github.com/pulsegraph/pulsegraph/internal/supervisor"
	"github.com/pulsegraph/pulsegraph/internal/sync"
	ws "github.com/pulsegraph/pulsegraph/internal/websocket"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		Caller:    cfg.Logging.Caller,
		Timestamp: true,
	})

	logging.Info().
		Strs("sources", cfg.EnabledSources()).
		Dur("sync_interval", cfg.Sync.Interval).
		Msg("Starting Pulsegraph")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := store.New(ctx, cfg.Database)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize storage")
	}
	defer db.Close()
	logging.Info().Msg("Storage initialized")

	cache := report.NewCache(cfg.Cache.ReportTTL, cfg.Cache.SweepInterval)
	registry, err := report.NewConfigRegistry(cfg.Report.ConfigStorePath)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to open analytics config store")
	}
	defer func() {
		if err := registry.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing analytics config store")
		}
	}()

	clients := buildSourceClients(cfg)
	coordinator := sync.NewCoordinator(db, clients, cfg)
	manager := sync.NewManager(coordinator, db, registry, cfg.Sync.Interval)

	provs := report.Providers{
		Analytics:  providers.NewAnalyticsClient(cfg.Report),
		Prediction: providers.NewPredictionClient(cfg.Report),
		Trends:     providers.NewTrendsClient(cfg.Report),
		Listening:  providers.NewListeningClient(cfg.Report),
		Competitor: providers.NewCompetitorClient(cfg.Report),
	}
	orchestrator := report.NewOrchestrator(db, provs, cache, registry, cfg.Report)

	publisher, err := events.NewPublisher(cfg.NATS)
	if err != nil {
		logging.Warn().Err(err).Msg("Eventing unavailable, continuing without NATS")
		publisher = events.NoopPublisher{}
	}
	defer publisher.Close()

	hub := ws.NewHub()

	manager.SetOnSyncCompleted(func(userID string, result models.SyncResult) {
		orchestrator.InvalidateReport(userID)
		publisher.PublishSyncCompleted(userID, result)
		hub.BroadcastSyncCompleted(userID, result)
	})
	orchestrator.SetOnAlertsRaised(func(userID string, alerts []models.Alert) {
		publisher.PublishAlerts(userID, alerts)
		hub.BroadcastAlerts(userID, alerts)
	})

	router := api.NewRouter(cfg.Server, manager, orchestrator, db, db, hub)
	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router.Handler(),
		ReadTimeout:  cfg.Server.Timeout,
		WriteTimeout: cfg.Server.Timeout,
		IdleTimeout:  60 * time.Second,
	}

	treeCfg := supervisor.DefaultConfig()
	tree := supervisor.NewTree(logging.NewSlogLogger(), treeCfg)
	tree.AddWorker(supervisor.NewManagerService(manager))
	tree.AddWorker(supervisor.NewRunnerService("report-cache-sweeper", cache))
	tree.AddMessaging(supervisor.NewHubService(hub))
	tree.AddAPI(supervisor.NewHTTPService(server, treeCfg.ShutdownTimeout))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	errCh := tree.ServeBackground(ctx)

	select {
	case <-ctx.Done():
		logging.Info().Msg("Shutting down, waiting for services to stop")
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor tree error")
		}
		cancel()
	}

	for err := range errCh {
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor shutdown error")
		}
	}

	if unstopped, err := tree.UnstoppedServiceReport(); err == nil && len(unstopped) > 0 {
		for _, svc := range unstopped {
			logging.Warn().Str("service", svc.Name).Msg("Service failed to stop within timeout")
		}
	}

	logging.Info().Msg("Pulsegraph stopped")
}

// buildSourceClients constructs one client per enabled source, each
// wrapped in a circuit breaker.
func buildSourceClients(cfg *config.Config) map[string]sync.SourceClient {
	clients := make(map[string]sync.SourceClient)
	for _, name := range cfg.EnabledSources() {
		sc, _ := cfg.Sources.ByName(name)

		var client sync.SourceClient
		switch name {
		case models.SourceYouTube:
			client = sync.NewYouTubeClient(sc)
		case models.SourceInstagram:
			client = sync.NewInstagramClient(sc)
		case models.SourceTikTok:
			client = sync.NewTikTokClient(sc)
		case models.SourceTwitter:
			client = sync.NewTwitterClient(sc)
		default:
			continue
		}

		clients[name] = sync.WrapWithBreaker(client)
		logging.Info().Str("source", name).Msg("Source client enabled")
	}
	return clients
}
