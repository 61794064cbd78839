// ID Commons - Authentication Cache and Session Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/idcommons

package api

import (
	"github.com/goccy/go-json"
)

// NotifyRequest is the body of POST /api/admin/notify.
//
// Target selection, first match wins:
//   - Username: the sessions of one user, optionally narrowed to RemoteAddr
//   - Role: every session whose user holds the role
//   - Topic subscribers otherwise, or everyone when Broadcast is set
type NotifyRequest struct {
	Topic      string          `json:"topic" validate:"required,max=256"`
	Data       json.RawMessage `json:"data" validate:"required"`
	Hash       *int64          `json:"hash,omitempty"`
	Username   string          `json:"username,omitempty" validate:"omitempty,max=128,login"`
	RemoteAddr string          `json:"remote_addr,omitempty" validate:"omitempty,max=255"`
	Role       string          `json:"role,omitempty" validate:"omitempty,max=64"`
	Broadcast  bool            `json:"broadcast,omitempty"`
}

// NotifyResponse reports whether the message was queued.
type NotifyResponse struct {
	Queued     bool `json:"queued"`
	QueueDepth int  `json:"queue_depth"`
}
