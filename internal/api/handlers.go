// Agora - Threaded Discussion Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/agora

package api

import (
	"net/http"
	"time"

	"github.com/tomtom215/agora/internal/board"
	"github.com/tomtom215/agora/internal/config"
	"github.com/tomtom215/agora/internal/dispatcher"
	"github.com/tomtom215/agora/internal/store"
	"github.com/tomtom215/agora/internal/threads"
	ws "github.com/tomtom215/agora/internal/websocket"
)

// Handler contains dependencies for the API handlers.
//
// Handler methods are split across files:
//   - handlers.go: Handler struct, constructor, health endpoints
//   - handlers_events.go: long-poll event stream
//   - handlers_threads.go: thread read path
//   - handlers_posts.go: post creation and moderation
type Handler struct {
	cfg       *config.Config
	disp      *dispatcher.Dispatcher
	assembler *threads.Assembler
	board     *board.Service
	store     *store.Store
	wsHub     *ws.Hub // nil when the push bridge is disabled
	startTime time.Time
}

// NewHandler creates the API handler with all core dependencies wired.
func NewHandler(cfg *config.Config, disp *dispatcher.Dispatcher, assembler *threads.Assembler, boardSvc *board.Service, st *store.Store, wsHub *ws.Hub) *Handler {
	return &Handler{
		cfg:       cfg,
		disp:      disp,
		assembler: assembler,
		board:     boardSvc,
		store:     st,
		wsHub:     wsHub,
		startTime: time.Now(),
	}
}

// healthStatus is the payload for the health endpoint.
type healthStatus struct {
	Status        string  `json:"status"`
	UptimeSeconds float64 `json:"uptime_seconds"`
	LatestEventID int64   `json:"latest_event_id"`
	ActiveWaiters int     `json:"active_waiters"`
	WSClients     int     `json:"ws_clients,omitempty"`
}

// Health reports overall server health plus live-update core vitals.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	status := healthStatus{
		Status:        "ok",
		UptimeSeconds: time.Since(h.startTime).Seconds(),
		LatestEventID: h.disp.LatestID(),
		ActiveWaiters: h.disp.WaiterCount(),
	}
	if h.wsHub != nil {
		status.WSClients = h.wsHub.ClientCount()
	}
	rw.Success(status)
}

// HealthLive is the liveness probe: the process is up.
func (h *Handler) HealthLive(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// HealthReady is the readiness probe: the post store answers queries.
func (h *Handler) HealthReady(w http.ResponseWriter, r *http.Request) {
	if err := h.store.Ping(r.Context()); err != nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("store unavailable"))
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

// WebSocket upgrades the connection and attaches it to the push bridge.
func (h *Handler) WebSocket(w http.ResponseWriter, r *http.Request) {
	if h.wsHub == nil {
		NewResponseWriter(w, r).NotFound("websocket bridge is disabled")
		return
	}
	ws.ServeWS(h.wsHub, w, r)
}
