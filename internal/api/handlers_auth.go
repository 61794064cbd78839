// ID Commons - Authentication Cache and Session Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/idcommons

package api

import (
	"net/http"

	"github.com/tomtom215/idcommons/internal/auth"
	"github.com/tomtom215/idcommons/internal/logging"
	"github.com/tomtom215/idcommons/internal/models"
)

// Login verifies credentials and returns the bearer token of the user's
// cached authentication. Repeated logins of an authenticated user return
// the same token.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	props := auth.Properties{
		auth.PropRemoteAddr: r.RemoteAddr,
		auth.PropAuthMethod: "password",
	}
	if ua := r.UserAgent(); ua != "" {
		props[auth.PropUserAgent] = ua
	}
	if req.Locale != "" {
		props[auth.PropLocale] = req.Locale
	}

	_, a, err := h.auth.Login(r.Context(), req.Username, req.Password, props)
	if err != nil {
		status, code := authErrorStatus(err)
		var logErr error
		if status >= http.StatusInternalServerError {
			logErr = err
		}
		respondError(w, r, status, code, authErrorMessage(err), logErr)
		return
	}

	logging.Ctx(r.Context()).Debug().Int64("user_id", a.UserID).Msg("Login accepted")
	respondData(w, r, http.StatusOK, loginResponse(a))
}

func loginResponse(a *auth.Authentication) *models.LoginResponse {
	return &models.LoginResponse{
		Token:       a.Token,
		UserID:      a.UserID,
		Username:    a.Username,
		DisplayName: a.DisplayName,
		Roles:       a.Roles,
		CreatedAt:   a.CreatedAt,
	}
}

// Logout invalidates the caller's authentication. Every WebSocket session
// bound to the user is closed by the logout notification.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	a, ok := auth.FromContext(r.Context())
	if !ok {
		respondError(w, r, http.StatusUnauthorized, CodeAuthentication, ErrMissingToken.Error(), nil)
		return
	}

	loggedOut := h.auth.InvalidateAuthentication(a, auth.Properties{
		auth.PropLogoutCause: auth.LogoutExplicit,
		auth.PropRemoteAddr:  r.RemoteAddr,
	})
	respondData(w, r, http.StatusOK, map[string]bool{"logged_out": loggedOut})
}

// Me returns the caller as currently persisted.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	user, ok, err := h.auth.GetUser(r.Context())
	if err != nil {
		respondError(w, r, http.StatusServiceUnavailable, CodeService, "authentication backend unavailable", err)
		return
	}
	if !ok {
		respondError(w, r, http.StatusUnauthorized, CodeAuthentication, ErrInvalidToken.Error(), nil)
		return
	}
	respondData(w, r, http.StatusOK, h.sessionUser(user))
}

func (h *Handler) sessionUser(u *models.User) *models.SessionUser {
	roles := u.Roles
	if roles == nil {
		roles = []string{}
	}
	return &models.SessionUser{
		UserID:      u.ID,
		Username:    u.Name,
		DisplayName: u.DisplayName,
		Roles:       roles,
		Sessions:    h.sessionCount(u.Name),
	}
}
