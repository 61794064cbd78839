// ID Commons - Authentication Cache and Session Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/idcommons

package api

import (
	"net/http"
	"time"

	"github.com/tomtom215/idcommons/internal/auth"
	"github.com/tomtom215/idcommons/internal/config"
	ws "github.com/tomtom215/idcommons/internal/websocket"
)

// Handler contains dependencies for API handlers.
//
// Handler methods are split across files:
//   - handlers_auth.go: login, logout and the current principal
//   - handlers_admin.go: session administration, runtime properties, notify
//   - handlers_health.go: liveness
type Handler struct {
	auth       *auth.Service
	registry   *ws.Registry
	dispatcher *ws.Dispatcher
	websocket  http.Handler
	properties *config.Properties
	startTime  time.Time
}

// HandlerDeps are the collaborators of a Handler. WebSocket may be nil, in
// which case /ws is not routed.
type HandlerDeps struct {
	Auth       *auth.Service
	Registry   *ws.Registry
	Dispatcher *ws.Dispatcher
	WebSocket  http.Handler
	Properties *config.Properties
}

// NewHandler creates a new API handler.
//
// Example:
//
//	handler := api.NewHandler(api.HandlerDeps{Auth: svc, Registry: reg, Dispatcher: d, WebSocket: wsHandler, Properties: props})
//	router := api.NewRouter(handler, api.NewChiMiddleware(nil))
//	http.ListenAndServe(":8080", router.SetupChi())
func NewHandler(deps HandlerDeps) *Handler {
	props := deps.Properties
	if props == nil {
		props = config.NewProperties(nil)
	}
	return &Handler{
		auth:       deps.Auth,
		registry:   deps.Registry,
		dispatcher: deps.Dispatcher,
		websocket:  deps.WebSocket,
		properties: props,
		startTime:  time.Now(),
	}
}

// sessionCount returns the number of open WebSocket sessions of username.
func (h *Handler) sessionCount(username string) int {
	if h.registry == nil {
		return 0
	}
	return len(h.registry.SessionsOf(username))
}
