// ID Commons - Authentication Cache and Session Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/idcommons

package auth

import (
	"context"
	"maps"
	"slices"
	"time"

	"github.com/tomtom215/idcommons/internal/models"
)

// Well-known property keys.
const (
	PropRemoteAddr   = "remote_addr"
	PropAuthMethod   = "auth_method"
	PropLocale       = "locale"
	PropUserAgent    = "user_agent"
	PropLogoutCause  = "logout_cause"
	PropInvalidateBy = "invalidated_by"
)

// Logout causes reported under PropLogoutCause.
const (
	LogoutExplicit      = "explicit"
	LogoutExpired       = "expired"
	LogoutInvalidateAll = "invalidate_all"
)

// Properties carries contextual data about a login or logout.
type Properties map[string]string

// Clone returns a copy that is never nil.
func (p Properties) Clone() Properties {
	if p == nil {
		return Properties{}
	}
	return maps.Clone(p)
}

// Authentication is the cached proof that a user holds valid credentials.
// It is immutable once stored; callers must not modify it.
type Authentication struct {
	Token       string     `json:"token"`
	UserID      int64      `json:"user_id"`
	Username    string     `json:"username"`
	DisplayName string     `json:"display_name,omitempty"`
	Roles       []string   `json:"roles"`
	CreatedAt   time.Time  `json:"created_at"`
	Properties  Properties `json:"-"`
}

func newAuthentication(token string, u *models.User, props Properties, now time.Time) *Authentication {
	return &Authentication{
		Token:       token,
		UserID:      u.ID,
		Username:    u.Name,
		DisplayName: u.DisplayName,
		Roles:       slices.Clone(u.Roles),
		CreatedAt:   now,
		Properties:  props.Clone(),
	}
}

// User returns the user snapshot captured at login.
func (a *Authentication) User() *models.User {
	return &models.User{
		ID:          a.UserID,
		Name:        a.Username,
		DisplayName: a.DisplayName,
		Roles:       slices.Clone(a.Roles),
	}
}

// State is a user's position in the login lifecycle.
type State int

const (
	StateAnonymous State = iota
	StateAuthenticating
	StateAuthenticated
	StateExpired
	StateLocked
	StateLoggedOut
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateAnonymous:
		return "anonymous"
	case StateAuthenticating:
		return "authenticating"
	case StateAuthenticated:
		return "authenticated"
	case StateExpired:
		return "expired"
	case StateLocked:
		return "locked"
	case StateLoggedOut:
		return "logged_out"
	default:
		return "unknown"
	}
}

type contextKey struct{}

// NewContext returns a context carrying a as the current principal.
func NewContext(ctx context.Context, a *Authentication) context.Context {
	return context.WithValue(ctx, contextKey{}, a)
}

// FromContext returns the current principal. ok is false for
// system-internal calls that carry none.
func FromContext(ctx context.Context) (*Authentication, bool) {
	a, ok := ctx.Value(contextKey{}).(*Authentication)
	return a, ok && a != nil
}
