// Agora - Threaded Discussion Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/agora

// Package metrics exposes Prometheus instrumentation for Agora:
// API endpoint latency and throughput, long-poll dispatcher behavior,
// post store query performance, and WebSocket fan-out.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// API Endpoint Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agora_api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "agora_api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "endpoint"},
	)

	// Dispatcher Metrics
	DispatcherWaiters = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "agora_dispatcher_waiters",
			Help: "Current number of registered long-poll waiters",
		},
	)

	EventsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agora_events_published_total",
			Help: "Total number of events appended to the event log",
		},
		[]string{"kind"},
	)

	LongPollResolutions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agora_longpoll_resolutions_total",
			Help: "Long-poll wait outcomes (immediate, events, timeout, canceled)",
		},
		[]string{"outcome"},
	)

	LongPollWaitDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "agora_longpoll_wait_duration_seconds",
			Help:    "Time long-poll requests spent suspended before resolution",
			Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 15, 30, 60},
		},
	)

	// Post Store Metrics
	StoreQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "agora_store_query_duration_seconds",
			Help:    "Duration of post store queries in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	StoreQueryErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agora_store_query_errors_total",
			Help: "Total number of post store query errors",
		},
		[]string{"operation"},
	)

	// WebSocket Metrics
	WebSocketClients = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "agora_websocket_clients",
			Help: "Current number of connected WebSocket clients",
		},
	)

	WebSocketMessagesSent = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "agora_websocket_messages_sent_total",
			Help: "Total number of messages broadcast to WebSocket clients",
		},
	)
)

// RecordAPIRequest records a completed API request.
func RecordAPIRequest(method, endpoint string, statusCode int, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, strconv.Itoa(statusCode)).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// RecordStoreQuery records a post store query and its outcome.
func RecordStoreQuery(operation string, duration time.Duration, err error) {
	StoreQueryDuration.WithLabelValues(operation).Observe(duration.Seconds())
	if err != nil {
		StoreQueryErrors.WithLabelValues(operation).Inc()
	}
}
