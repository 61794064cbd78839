// ID Commons - Authentication Cache and Session Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/idcommons

package api

import (
	"net/http"

	"github.com/tomtom215/idcommons/internal/auth"
	"github.com/tomtom215/idcommons/internal/logging"
)

// RequireAuthentication resolves the bearer token to a cached
// Authentication and stores it in the request context. Resolving refreshes
// the authentication's inactivity timer.
func (h *Handler) RequireAuthentication(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			w.Header().Set("WWW-Authenticate", `Bearer realm="idcommons"`)
			respondError(w, r, http.StatusUnauthorized, CodeAuthentication, ErrMissingToken.Error(), nil)
			return
		}

		a, ok := h.auth.GetAuthentication(token)
		if !ok {
			w.Header().Set("WWW-Authenticate", `Bearer realm="idcommons", error="invalid_token"`)
			respondError(w, r, http.StatusUnauthorized, CodeAuthentication, ErrInvalidToken.Error(), nil)
			return
		}

		ctx := auth.NewContext(r.Context(), a)
		logger := logging.LoggerFromContext(ctx).With().Int64("user_id", a.UserID).Logger()
		ctx = logging.ContextWithLogger(ctx, logger)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireRole rejects principals lacking role. The admin role passes.
func (h *Handler) RequireRole(role string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := auth.FromContext(r.Context()); !ok {
				respondError(w, r, http.StatusUnauthorized, CodeAuthentication, ErrMissingToken.Error(), nil)
				return
			}
			if err := h.auth.CheckRole(r.Context(), role); err != nil {
				respondError(w, r, http.StatusForbidden, CodeAuthorization, err.Error(), nil)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
