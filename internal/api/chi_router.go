// ID Commons - Authentication Cache and Session Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/idcommons

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tomtom215/idcommons/internal/middleware"
)

// Router sets up HTTP routes using the chi router.
type Router struct {
	handler       *Handler
	chiMiddleware *ChiMiddleware
}

// NewRouter creates a router. A nil mw uses DefaultChiMiddlewareConfig.
func NewRouter(handler *Handler, mw *ChiMiddleware) *Router {
	if mw == nil {
		mw = NewChiMiddleware(nil)
	}
	return &Router{handler: handler, chiMiddleware: mw}
}

// SetupChi configures all HTTP routes.
func (router *Router) SetupChi() http.Handler {
	r := chi.NewRouter()
	h := router.handler

	// Applied to every route in order.
	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.PrometheusMetrics)
	r.Use(router.chiMiddleware.CORS()) // must be global to answer OPTIONS preflight

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		respondError(w, r, http.StatusNotFound, CodeNotFound, "Not found", nil)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		respondError(w, r, http.StatusMethodNotAllowed, CodeMethodNotAllowed, "Method not allowed", nil)
	})

	r.Group(func(r chi.Router) {
		r.Use(router.chiMiddleware.RateLimitHealth())
		r.Use(APISecurityHeaders())
		r.Get("/healthz", h.Health)
		r.Method(http.MethodGet, "/metrics", promhttp.Handler())
	})

	if h.websocket != nil {
		r.With(router.chiMiddleware.RateLimitWebSocket()).Method(http.MethodGet, "/ws", h.websocket)
	}

	r.Route("/api", func(r chi.Router) {
		r.Use(APISecurityHeaders())

		r.Route("/auth", func(r chi.Router) {
			r.With(router.chiMiddleware.RateLimitLogin()).Post("/login", h.Login)

			r.Group(func(r chi.Router) {
				r.Use(router.chiMiddleware.RateLimit())
				r.Use(h.RequireAuthentication)
				r.Post("/logout", h.Logout)
				r.Get("/me", h.Me)
			})
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(router.chiMiddleware.RateLimit())
			r.Use(h.RequireAuthentication)
			r.Use(h.RequireRole(h.auth.AdminRole()))

			r.Get("/sessions", h.Sessions)
			r.Get("/connections", h.Connections)
			r.Post("/sessions/invalidate-all", h.InvalidateAll)
			r.Delete("/sessions/{userID}", h.InvalidateSession)
			r.Get("/properties", h.Properties)
			r.Put("/properties/{name}", h.SetProperty)
			r.Post("/notify", h.Notify)
		})
	})

	return r
}
