// ID Commons - Authentication Cache and Session Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/idcommons

package models

import (
	"time"
)

// APIResponse is the envelope of every JSON HTTP response.
//
// Status is "success" with Data set, or "error" with Error set.
//
//	{
//	  "status": "error",
//	  "error": {"code": "AUTHENTICATION_ERROR", "message": "invalid username or password"},
//	  "metadata": {"timestamp": "2026-01-01T12:00:00Z", "request_id": "host/abc-000001"}
//	}
type APIResponse struct {
	Status   string    `json:"status"`
	Data     any       `json:"data"`
	Metadata Metadata  `json:"metadata"`
	Error    *APIError `json:"error,omitempty"`
}

// Metadata accompanies every response.
type Metadata struct {
	Timestamp time.Time `json:"timestamp"`
	RequestID string    `json:"request_id,omitempty"`
}

// APIError carries a machine-readable code and a human-readable message.
//
// Codes:
//   - VALIDATION_ERROR: malformed request body
//   - AUTHENTICATION_ERROR: bad credentials or missing/invalid token
//   - ACCOUNT_EXPIRED, ACCOUNT_LOCKED: the account cannot log in
//   - AUTHORIZATION_ERROR: the principal lacks a role
//   - SERVICE_ERROR: persistence failure, details withheld
type APIError struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

// LoginRequest is the body of POST /api/auth/login.
type LoginRequest struct {
	Username string `json:"username" validate:"required,max=128,login"`
	Password string `json:"password" validate:"required,max=1024"`
	Locale   string `json:"locale,omitempty" validate:"omitempty,max=35"`
}

// LoginResponse is returned after a successful login.
type LoginResponse struct {
	Token       string    `json:"token"`
	UserID      int64     `json:"user_id"`
	Username    string    `json:"username"`
	DisplayName string    `json:"display_name,omitempty"`
	Roles       []string  `json:"roles"`
	CreatedAt   time.Time `json:"created_at"`
}

// SessionUser is one entry of the authenticated-users listing.
type SessionUser struct {
	UserID      int64    `json:"user_id"`
	Username    string   `json:"username"`
	DisplayName string   `json:"display_name,omitempty"`
	Roles       []string `json:"roles"`
	Sessions    int      `json:"sessions"`
}

// ConnectionSummary is the WebSocket connection overview.
type ConnectionSummary struct {
	Anonymous     int             `json:"anonymous"`
	Authenticated int             `json:"authenticated"`
	Users         []ConnectedUser `json:"users"`
}

// ConnectedUser is a user with at least one registered WebSocket session.
type ConnectedUser struct {
	Username string `json:"username"`
	Sessions int    `json:"sessions"`
}

// PropertyUpdate is the body of PUT /api/admin/properties/{name}.
type PropertyUpdate struct {
	Value *int `json:"value" validate:"required,gte=0"`
}

// HealthStatus reports process liveness and session counters.
type HealthStatus struct {
	Status             string `json:"status"`
	AuthenticatedUsers int    `json:"authenticated_users"`
	AnonymousSessions  int    `json:"anonymous_sessions"`
	UserSessions       int    `json:"user_sessions"`
	QueueDepth         int    `json:"queue_depth"`
	Uptime             string `json:"uptime"`
}
