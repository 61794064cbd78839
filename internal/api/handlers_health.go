// ID Commons - Authentication Cache and Session Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/idcommons

package api

import (
	"net/http"
	"time"

	"github.com/tomtom215/idcommons/internal/models"
)

// Health reports liveness together with authentication and session counters.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	status := &models.HealthStatus{
		Status: "ok",
		Uptime: time.Since(h.startTime).Round(time.Second).String(),
	}
	if h.auth != nil {
		status.AuthenticatedUsers = h.auth.Cache().Size()
	}
	if h.registry != nil {
		status.AnonymousSessions, status.UserSessions = h.registry.Counts()
	}
	if h.dispatcher != nil {
		status.QueueDepth = h.dispatcher.QueueLen()
	}
	respondData(w, r, http.StatusOK, status)
}
