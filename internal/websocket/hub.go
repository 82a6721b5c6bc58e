// Agora - Threaded Discussion Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/agora

// Package websocket is an optional push bridge over the long-poll core:
// clients that keep a persistent connection receive every published
// event as it happens, without re-polling. The bridge consumes the
// dispatcher exactly like an HTTP long-poll client would - through a
// cursor - so it adds no new coupling to the core.
package websocket

import (
	"context"
	"sort"
	"sync"

	"github.com/tomtom215/agora/internal/logging"
	"github.com/tomtom215/agora/internal/metrics"
	"github.com/tomtom215/agora/internal/models"
)

// Message is one frame sent to connected clients.
type Message struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// Control message types exchanged with clients. Event frames use the
// event kind as their type.
const (
	MessageTypePing = "ping"
	MessageTypePong = "pong"
)

// Hub maintains the set of active clients and fans events out to them.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan Message
	register   chan *Client
	unregister chan *Client
	mu         sync.RWMutex
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{
		broadcast:  make(chan Message, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		clients:    make(map[*Client]bool),
	}
}

// Serve runs the hub until ctx is canceled. Designed for suture
// supervision: on cancellation all clients are closed and ctx.Err()
// is returned so the supervisor records a clean shutdown.
//
// Lifecycle events (register/unregister) are drained before broadcasts
// so client state is consistent when a message fans out.
func (h *Hub) Serve(ctx context.Context) error {
	for {
		select {
		case client := <-h.register:
			h.addClient(client)
			continue
		case client := <-h.unregister:
			h.removeClient(client)
			continue
		default:
		}

		select {
		case <-ctx.Done():
			h.closeAll()
			return ctx.Err()
		case client := <-h.register:
			h.addClient(client)
		case client := <-h.unregister:
			h.removeClient(client)
		case message := <-h.broadcast:
			h.fanOut(message)
		}
	}
}

// BroadcastEvents queues one frame per event for delivery to every
// connected client. Frames are dropped, not queued unboundedly, when the
// broadcast channel is full: WebSocket delivery is best-effort and slow
// consumers must not stall the pump.
func (h *Hub) BroadcastEvents(events []models.Event) {
	for _, ev := range events {
		msg := Message{Type: string(ev.Kind), Data: ev}
		select {
		case h.broadcast <- msg:
		default:
			logging.Warn().Int64("event_id", ev.ID).Msg("broadcast channel full, dropping event frame")
			return
		}
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) addClient(client *Client) {
	h.mu.Lock()
	h.clients[client] = true
	total := len(h.clients)
	h.mu.Unlock()
	metrics.WebSocketClients.Set(float64(total))
	logging.Info().Int("total_clients", total).Msg("websocket client connected")
}

func (h *Hub) removeClient(client *Client) {
	h.mu.Lock()
	if _, ok := h.clients[client]; ok {
		delete(h.clients, client)
		close(client.send)
	}
	total := len(h.clients)
	h.mu.Unlock()
	metrics.WebSocketClients.Set(float64(total))
	logging.Info().Int("total_clients", total).Msg("websocket client disconnected")
}

// fanOut sends a message to all clients in id order. Stable ordering
// keeps delivery reproducible; clients whose send buffer is full are
// dropped rather than allowed to stall the hub.
func (h *Hub) fanOut(message Message) {
	h.mu.Lock()
	defer h.mu.Unlock()

	clients := make([]*Client, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}
	sort.Slice(clients, func(i, j int) bool { return clients[i].id < clients[j].id })

	var toRemove []*Client
	for _, client := range clients {
		select {
		case client.send <- message:
			metrics.WebSocketMessagesSent.Inc()
		default:
			toRemove = append(toRemove, client)
		}
	}
	for _, client := range toRemove {
		close(client.send)
		delete(h.clients, client)
	}
	if len(toRemove) > 0 {
		metrics.WebSocketClients.Set(float64(len(h.clients)))
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for client := range h.clients {
		close(client.send)
		delete(h.clients, client)
	}
	metrics.WebSocketClients.Set(0)
	logging.Info().Str("component", "websocket-hub").Msg("websocket hub stopped")
}
