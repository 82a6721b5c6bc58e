// Agora - Threaded Discussion Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/agora

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tomtom215/agora/internal/middleware"
)

// Router wires handlers and middleware into the HTTP route tree.
type Router struct {
	handler *Handler
	chimw   *ChiMiddleware
}

// NewRouter creates the router.
func NewRouter(handler *Handler, chimw *ChiMiddleware) *Router {
	return &Router{handler: handler, chimw: chimw}
}

// Setup builds the chi route tree.
func (router *Router) Setup() http.Handler {
	r := chi.NewRouter()

	// Global middleware, applied to all routes in order.
	r.Use(RequestIDWithLogging())
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(router.chimw.CORS())

	// Health endpoints: permissive rate limit for frequent monitoring.
	r.Route("/api/v1/health", func(r chi.Router) {
		r.Use(router.chimw.RateLimitHealth())
		r.Get("/", router.handler.Health)
		r.Get("/live", router.handler.HealthLive)
		r.Get("/ready", router.handler.HealthReady)
	})

	// Read path. The long-poll endpoint shares the standard limit: each
	// held request counts once per poll cycle, not per second held.
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(router.chimw.RateLimit())
		r.Use(middleware.PrometheusMetrics)

		r.Get("/events", router.handler.Events)
		r.Get("/threads", router.handler.Threads)
		r.Get("/threads/recent", router.handler.RecentThreads)

		// Write path: stricter limit.
		r.Group(func(r chi.Router) {
			r.Use(router.chimw.RateLimitWrite())
			r.Post("/posts", router.handler.CreatePost)
			r.Post("/posts/{id}/flags", router.handler.FlagPost)
			r.Delete("/posts/{id}/flags/{flag}", router.handler.UnflagPost)
		})
	})

	// The WebSocket upgrade needs the raw ResponseWriter (Hijacker), so
	// it stays outside the metrics wrapper.
	r.Get("/api/v1/ws", router.handler.WebSocket)

	// Prometheus scrape endpoint.
	r.Handle("/metrics", promhttp.Handler())

	return r
}
