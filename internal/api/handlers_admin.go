// ID Commons - Authentication Cache and Session Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/idcommons

package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/idcommons/internal/auth"
	"github.com/tomtom215/idcommons/internal/config"
	"github.com/tomtom215/idcommons/internal/logging"
	"github.com/tomtom215/idcommons/internal/models"
	ws "github.com/tomtom215/idcommons/internal/websocket"
)

// mutableProperties are the runtime properties an administrator may set.
var mutableProperties = map[string]bool{
	config.PropertySessionInactivityTimeout: true,
}

// Sessions lists every authenticated user, sorted by ID.
func (h *Handler) Sessions(w http.ResponseWriter, r *http.Request) {
	users := h.auth.AuthenticatedUsers()
	out := make([]*models.SessionUser, 0, len(users))
	for _, u := range users {
		out = append(out, h.sessionUser(u))
	}
	respondData(w, r, http.StatusOK, out)
}

// Connections summarizes registered WebSocket sessions per user.
func (h *Handler) Connections(w http.ResponseWriter, r *http.Request) {
	summary := &models.ConnectionSummary{Users: []models.ConnectedUser{}}
	if h.registry != nil {
		summary.Anonymous, summary.Authenticated = h.registry.Counts()
		for _, name := range h.registry.Usernames() {
			if n := h.sessionCount(name); n > 0 {
				summary.Users = append(summary.Users, models.ConnectedUser{Username: name, Sessions: n})
			}
		}
	}
	respondData(w, r, http.StatusOK, summary)
}

// InvalidateSession logs out the user named by the userID path parameter.
func (h *Handler) InvalidateSession(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "userID"), 10, 64)
	if err != nil || id <= 0 {
		respondError(w, r, http.StatusBadRequest, CodeValidation, "userID must be a positive integer", nil)
		return
	}

	removed, err := h.auth.Invalidate(r.Context(), &models.User{ID: id}, auth.Properties{
		auth.PropRemoteAddr: r.RemoteAddr,
	})
	if err != nil {
		status, code := authErrorStatus(err)
		respondError(w, r, status, code, authErrorMessage(err), nil)
		return
	}
	if !removed {
		respondError(w, r, http.StatusNotFound, CodeNotFound, "user is not authenticated", nil)
		return
	}
	respondData(w, r, http.StatusOK, map[string]int64{"logged_out": id})
}

// InvalidateAll logs every user out.
func (h *Handler) InvalidateAll(w http.ResponseWriter, r *http.Request) {
	n := h.auth.InvalidateAll()
	logging.Ctx(r.Context()).Info().Int("count", n).Msg("All authentications invalidated")
	respondData(w, r, http.StatusOK, map[string]int{"logged_out": n})
}

// Properties returns the current runtime properties.
func (h *Handler) Properties(w http.ResponseWriter, r *http.Request) {
	respondData(w, r, http.StatusOK, h.properties.Snapshot())
}

// SetProperty updates one runtime property. Subscribers, including the
// authentication service, observe the change before the response is sent.
func (h *Handler) SetProperty(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if !mutableProperties[name] {
		respondError(w, r, http.StatusNotFound, CodeUnknownProperty, "unknown property", nil)
		return
	}

	var req models.PropertyUpdate
	if !decodeJSON(w, r, &req) {
		return
	}

	h.properties.Set(name, *req.Value)
	logging.Ctx(r.Context()).Info().Str("property", name).Int("value", *req.Value).Msg("Property updated")
	respondData(w, r, http.StatusOK, map[string]int{name: *req.Value})
}

// Notify queues a message for WebSocket delivery.
func (h *Handler) Notify(w http.ResponseWriter, r *http.Request) {
	if h.dispatcher == nil {
		respondError(w, r, http.StatusServiceUnavailable, CodeService, "notifications are disabled", nil)
		return
	}

	var req NotifyRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	msg, err := ws.NewMessage(req.Topic, req.Data)
	if err != nil {
		respondError(w, r, http.StatusBadRequest, CodeValidation, "data is not valid JSON", nil)
		return
	}
	if req.Hash != nil {
		msg = msg.WithHash(*req.Hash)
	}

	var queued bool
	switch {
	case req.Username != "":
		queued = h.dispatcher.SendToUser(req.Username, req.RemoteAddr, msg)
	case req.Role != "":
		queued = h.dispatcher.SendToUsers(req.Role, msg)
	case req.Broadcast:
		queued = h.dispatcher.Broadcast(msg)
	default:
		queued = h.dispatcher.Publish(msg)
	}

	resp := &NotifyResponse{Queued: queued, QueueDepth: h.dispatcher.QueueLen()}
	if !queued {
		respondJSON(w, http.StatusServiceUnavailable, &models.APIResponse{
			Status:   "error",
			Data:     resp,
			Metadata: metadataFor(r),
			Error:    &models.APIError{Code: CodeQueueFull, Message: "notification queue is full"},
		})
		return
	}
	respondData(w, r, http.StatusAccepted, resp)
}
