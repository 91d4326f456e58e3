// Pulsegraph - Social Engagement Sync and Analytics Engine
// Copyright 2026 Pulsegraph contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/pulsegraph/pulsegraph

// Package websocket pushes sync-completion and alert notifications to
// connected dashboard clients.
package websocket

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/pulsegraph/pulsegraph/internal/logging"
	"github.com/pulsegraph/pulsegraph/internal/models"
)

// Message types pushed to clients.
const (
	MessageTypePing          = "ping"
	MessageTypePong          = "pong"
	MessageTypeSyncCompleted = "sync_completed"
	MessageTypeAlerts        = "alerts"
)

// Message is the envelope for all hub-to-client traffic.
type Message struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// Hub maintains the set of connected clients and fans broadcast
// messages out to them.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan Message
	Register   chan *Client
	Unregister chan *Client
	mu         sync.RWMutex
}

// NewHub creates an empty hub. Run must be called before clients connect.
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan Message, 256),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
	}
}

// Run processes client lifecycle and broadcast events until the context
// is cancelled, then closes every connected client. Designed to run
// under supervision.
//
// Lifecycle events are drained before broadcasts so client state is
// consistent when a message fans out.
func (h *Hub) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return ctx.Err()
		default:
		}

		select {
		case client := <-h.Register:
			h.add(client)
			continue
		case client := <-h.Unregister:
			h.remove(client)
			continue
		default:
		}

		select {
		case <-ctx.Done():
			h.closeAll()
			return ctx.Err()
		case client := <-h.Register:
			h.add(client)
		case client := <-h.Unregister:
			h.remove(client)
		case message := <-h.broadcast:
			h.fanOut(message)
		}
	}
}

func (h *Hub) add(client *Client) {
	h.mu.Lock()
	h.clients[client] = true
	total := len(h.clients)
	h.mu.Unlock()
	logging.Debug().Int("total_clients", total).Msg("Websocket client connected")
}

func (h *Hub) remove(client *Client) {
	h.mu.Lock()
	if _, ok := h.clients[client]; ok {
		delete(h.clients, client)
		close(client.send)
	}
	total := len(h.clients)
	h.mu.Unlock()
	logging.Debug().Int("total_clients", total).Msg("Websocket client disconnected")
}

// fanOut delivers a message to every client in stable id order. A
// client whose send buffer is full is dropped; its pumps notice the
// closed channel and clean up the connection.
func (h *Hub) fanOut(message Message) {
	h.mu.Lock()
	defer h.mu.Unlock()

	clients := make([]*Client, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}
	sort.Slice(clients, func(i, j int) bool { return clients[i].id < clients[j].id })

	for _, client := range clients {
		select {
		case client.send <- message:
		default:
			close(client.send)
			delete(h.clients, client)
		}
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	count := len(h.clients)
	for client := range h.clients {
		close(client.send)
		delete(h.clients, client)
	}
	h.mu.Unlock()
	logging.Info().Int("clients_closed", count).Msg("Websocket hub stopped")
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// SyncCompletedData is the payload of a sync_completed message.
type SyncCompletedData struct {
	UserID     string    `json:"user_id"`
	Attempted  int       `json:"attempted"`
	Succeeded  int       `json:"succeeded"`
	Failed     int       `json:"failed"`
	DurationMs int64     `json:"duration_ms"`
	Timestamp  time.Time `json:"timestamp"`
}

// BroadcastSyncCompleted notifies clients that a user's sync finished.
// Non-blocking: the message is dropped if the broadcast buffer is full.
func (h *Hub) BroadcastSyncCompleted(userID string, result models.SyncResult) {
	h.send(Message{Type: MessageTypeSyncCompleted, Data: SyncCompletedData{
		UserID:     userID,
		Attempted:  result.Attempted,
		Succeeded:  result.Succeeded,
		Failed:     result.Failed,
		DurationMs: result.Duration.Milliseconds(),
		Timestamp:  time.Now().UTC(),
	}})
}

// AlertsData is the payload of an alerts message.
type AlertsData struct {
	UserID string         `json:"user_id"`
	Alerts []models.Alert `json:"alerts"`
}

// BroadcastAlerts pushes freshly raised alerts to clients.
func (h *Hub) BroadcastAlerts(userID string, alerts []models.Alert) {
	if len(alerts) == 0 {
		return
	}
	h.send(Message{Type: MessageTypeAlerts, Data: AlertsData{UserID: userID, Alerts: alerts}})
}

func (h *Hub) send(message Message) {
	select {
	case h.broadcast <- message:
	default:
		logging.Warn().Str("message_type", message.Type).Msg("Broadcast channel full, dropping message")
	}
}
