// Pulsegraph - Social Engagement Sync and Analytics Engine
// Copyright 2026 Pulsegraph contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/pulsegraph/pulsegraph

package supervisor

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/pulsegraph/pulsegraph/internal/logging"
)

// Runner is anything with a blocking Run loop driven by a context.
// The report cache sweeper and the websocket hub both satisfy it.
type Runner interface {
	Run(ctx context.Context)
}

// RunnerService adapts a Runner into a suture service.
type RunnerService struct {
	name   string
	runner Runner
}

func NewRunnerService(name string, r Runner) *RunnerService {
	return &RunnerService{name: name, runner: r}
}

func (s *RunnerService) Serve(ctx context.Context) error {
	s.runner.Run(ctx)
	return ctx.Err()
}

func (s *RunnerService) String() string { return s.name }

// Hub is the websocket hub's run loop.
type Hub interface {
	Run(ctx context.Context) error
}

// HubService adapts the websocket hub into a suture service.
type HubService struct {
	hub Hub
}

func NewHubService(hub Hub) *HubService {
	return &HubService{hub: hub}
}

func (s *HubService) Serve(ctx context.Context) error {
	return s.hub.Run(ctx)
}

func (s *HubService) String() string { return "websocket-hub" }

// SyncManager is the subset of the sync manager the supervisor needs.
type SyncManager interface {
	Start()
	Stop()
}

// ManagerService runs the periodic sync manager for the lifetime of
// the supervision tree.
type ManagerService struct {
	mgr SyncManager
}

func NewManagerService(mgr SyncManager) *ManagerService {
	return &ManagerService{mgr: mgr}
}

func (s *ManagerService) Serve(ctx context.Context) error {
	s.mgr.Start()
	<-ctx.Done()
	s.mgr.Stop()
	return ctx.Err()
}

func (s *ManagerService) String() string { return "sync-manager" }

// HTTPService runs an http.Server and shuts it down gracefully when
// the supervisor stops it.
type HTTPService struct {
	server          *http.Server
	shutdownTimeout time.Duration
}

func NewHTTPService(server *http.Server, shutdownTimeout time.Duration) *HTTPService {
	if shutdownTimeout == 0 {
		shutdownTimeout = 10 * time.Second
	}
	return &HTTPService{server: server, shutdownTimeout: shutdownTimeout}
}

func (s *HTTPService) Serve(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		logging.Info().Str("addr", s.server.Addr).Msg("http server listening")
		errCh <- s.server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
		defer cancel()
		if err := s.server.Shutdown(shutdownCtx); err != nil {
			logging.Warn().Err(err).Msg("http server shutdown")
		}
		<-errCh
		return ctx.Err()
	}
}

func (s *HTTPService) String() string { return "http-server" }
