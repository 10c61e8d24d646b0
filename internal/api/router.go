// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tomtom215/cartographus/internal/middleware"
)

// Router owns the Handler and the Chi middleware built from configuration.
type Router struct {
	handler       *Handler
	chiMiddleware *ChiMiddleware
}

// NewRouter constructs a Router. handler must already be fully wired via
// NewHandler.
func NewRouter(handler *Handler) *Router {
	cm := NewChiMiddleware(ChiMiddlewareConfig{
		CORSAllowedOrigins: handler.cfg.Security.CORSOrigins,
		RateLimitRequests:  handler.cfg.Security.RateLimitReqs,
		RateLimitWindow:    handler.cfg.Security.RateLimitWindow,
		RateLimitDisabled:  handler.cfg.Security.RateLimitDisabled,
	})
	return &Router{handler: handler, chiMiddleware: cm}
}

// chiMiddlewareAdapter bridges an http.HandlerFunc-shaped middleware (the
// convention used across internal/middleware) into Chi's
// func(http.Handler) http.Handler chain.
func chiMiddlewareAdapter(mw func(http.HandlerFunc) http.HandlerFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return mw(next.ServeHTTP)
	}
}

// SetupChi builds the complete route tree.
func (router *Router) SetupChi() http.Handler {
	h := router.handler
	r := chi.NewRouter()

	r.Use(RequestIDWithLogging())
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(router.chiMiddleware.CORS())
	r.Use(securityHeaders)
	r.Use(chiMiddlewareAdapter(middleware.Compression))
	r.Use(chiMiddlewareAdapter(middleware.PrometheusMetrics))
	r.Use(h.perf.Middleware)

	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	r.Route("/api/v1/health", func(r chi.Router) {
		r.Get("/live", h.HealthLive)
		r.Get("/ready", h.HealthReady)
		r.Get("/", h.Health)
	})

	r.Route("/api/v1/logs", func(r chi.Router) {
		r.Use(router.chiMiddleware.RateLimitCustom(RateLimitSearch))
		r.Get("/search", h.Search)
		r.Get("/histogram", h.Histogram)
		r.Get("/time-aggregation", h.TimeAggregation)
		r.Get("/export", h.Export)

		r.With(router.chiMiddleware.RateLimitCustom(RateLimitWrite)).
			Post("/http-push/{sourceId}", h.HTTPPush)
	})

	r.Route("/api/v1/alarms", func(r chi.Router) {
		r.Use(router.chiMiddleware.RateLimitCustom(RateLimitWrite))
		r.Get("/", h.ListAlarms)
		r.Post("/", h.CreateAlarm)
		r.Get("/{id}", h.GetAlarm)
		r.Put("/{id}", h.UpdateAlarm)
		r.Delete("/{id}", h.DeleteAlarm)
		r.Get("/{id}/events", h.ListAlarmEvents)
		r.Post("/{id}/events/{eventId}/ack", h.AckAlarmEvent)
		r.Post("/{id}/events/{eventId}/resolve", h.ResolveAlarmEvent)
		r.Get("/suppressions", h.RecentSuppressions)
	})

	r.Route("/api/v1/retention-policies", func(r chi.Router) {
		r.Use(router.chiMiddleware.RateLimitCustom(RateLimitWrite))
		r.Get("/", h.ListRetentionPolicies)
		r.Post("/", h.CreateRetentionPolicy)
		r.Get("/{name}", h.GetRetentionPolicy)
		r.Put("/{name}", h.UpdateRetentionPolicy)
		r.Delete("/{name}", h.DeleteRetentionPolicy)
	})

	r.Route("/api/v1/realtime", func(r chi.Router) {
		r.Use(router.chiMiddleware.RateLimitCustom(RateLimitRealtime))
		r.Get("/logs", h.WebSocket)
		r.Get("/logs/stream", h.StreamSSE)
	})

	return r
}
