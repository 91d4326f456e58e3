// Pulsegraph - Social Engagement Sync and Analytics Engine
// Copyright 2026 Pulsegraph contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/pulsegraph/pulsegraph

// Package events publishes sync-completion and alert notifications to
// NATS for downstream consumers. Publishing is best-effort: a failed
// publish is logged and never propagated into the producing call.
package events

import (
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/nats-io/nats.go"

	"github.com/pulsegraph/pulsegraph/internal/config"
	"github.com/pulsegraph/pulsegraph/internal/logging"
	"github.com/pulsegraph/pulsegraph/internal/models"
)

// Publisher emits domain events. Implementations must be safe for
// concurrent use.
type Publisher interface {
	PublishSyncCompleted(userID string, result models.SyncResult)
	PublishAlerts(userID string, alerts []models.Alert)
	Close()
}

// NewPublisher returns a NATS-backed publisher, or a no-op one when
// eventing is disabled.
func NewPublisher(cfg config.NATSConfig) (Publisher, error) {
	if !cfg.Enabled {
		return NoopPublisher{}, nil
	}

	conn, err := nats.Connect(cfg.URL,
		nats.Name("pulsegraph"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			logging.Warn().Err(err).Msg("NATS disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logging.Info().Str("url", nc.ConnectedUrl()).Msg("NATS reconnected")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS at %s: %w", cfg.URL, err)
	}

	prefix := cfg.SubjectPrefix
	if prefix == "" {
		prefix = "pulsegraph"
	}

	logging.Info().Str("url", cfg.URL).Str("prefix", prefix).Msg("Connected to NATS")
	return &natsPublisher{conn: conn, prefix: prefix}, nil
}

type natsPublisher struct {
	conn   *nats.Conn
	prefix string
}

// SyncCompletedEvent is the wire shape published on sync completion.
type SyncCompletedEvent struct {
	UserID    string            `json:"user_id"`
	Result    models.SyncResult `json:"result"`
	Timestamp time.Time         `json:"timestamp"`
}

// AlertsEvent is the wire shape published when alerts are raised.
type AlertsEvent struct {
	UserID    string         `json:"user_id"`
	Alerts    []models.Alert `json:"alerts"`
	Timestamp time.Time      `json:"timestamp"`
}

func (p *natsPublisher) PublishSyncCompleted(userID string, result models.SyncResult) {
	p.publish(fmt.Sprintf("%s.sync.completed.%s", p.prefix, userID), SyncCompletedEvent{
		UserID:    userID,
		Result:    result,
		Timestamp: time.Now().UTC(),
	})
}

func (p *natsPublisher) PublishAlerts(userID string, alerts []models.Alert) {
	if len(alerts) == 0 {
		return
	}
	p.publish(fmt.Sprintf("%s.alerts.raised.%s", p.prefix, userID), AlertsEvent{
		UserID:    userID,
		Alerts:    alerts,
		Timestamp: time.Now().UTC(),
	})
}

func (p *natsPublisher) publish(subject string, event interface{}) {
	payload, err := json.Marshal(event)
	if err != nil {
		logging.Error().Err(err).Str("subject", subject).Msg("Failed to encode event")
		return
	}
	if err := p.conn.Publish(subject, payload); err != nil {
		logging.Error().Err(err).Str("subject", subject).Msg("Failed to publish event")
	}
}

func (p *natsPublisher) Close() {
	if err := p.conn.Drain(); err != nil {
		logging.Warn().Err(err).Msg("Failed to drain NATS connection")
	}
}

// NoopPublisher discards all events. Used when NATS is disabled and in
// tests.
type NoopPublisher struct{}

func (NoopPublisher) PublishSyncCompleted(string, models.SyncResult) {}
func (NoopPublisher) PublishAlerts(string, []models.Alert)           {}
func (NoopPublisher) Close()                                         {}
