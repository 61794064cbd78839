// ID Commons - Authentication Cache and Session Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/idcommons

package api

import (
	"errors"
	"net/http"

	"github.com/tomtom215/idcommons/internal/auth"
)

// Error codes returned in models.APIError.
const (
	CodeValidation       = "VALIDATION_ERROR"
	CodeInvalidRequest   = "INVALID_REQUEST"
	CodeAuthentication   = "AUTHENTICATION_ERROR"
	CodeAccountExpired   = "ACCOUNT_EXPIRED"
	CodeAccountLocked    = "ACCOUNT_LOCKED"
	CodeAuthorization    = "AUTHORIZATION_ERROR"
	CodeNotFound         = "NOT_FOUND"
	CodeQueueFull        = "QUEUE_FULL"
	CodeService          = "SERVICE_ERROR"
	CodeRateLimited      = "RATE_LIMITED"
	CodeUnknownProperty  = "UNKNOWN_PROPERTY"
	CodeMethodNotAllowed = "METHOD_NOT_ALLOWED"
)

var (
	// ErrMissingToken is returned when a protected route receives no bearer token.
	ErrMissingToken = errors.New("missing bearer token")

	// ErrInvalidToken is returned for tokens that are malformed, expired or
	// no longer backed by a cached authentication.
	ErrInvalidToken = errors.New("invalid or expired token")
)

// authErrorStatus maps an authentication service error to an HTTP status
// and error code.
func authErrorStatus(err error) (status int, code string) {
	var persistence *auth.PersistenceError
	switch {
	case errors.As(err, &persistence):
		return http.StatusServiceUnavailable, CodeService
	case errors.Is(err, auth.ErrAccountExpired):
		return http.StatusForbidden, CodeAccountExpired
	case errors.Is(err, auth.ErrAccountLocked):
		return http.StatusForbidden, CodeAccountLocked
	case errors.Is(err, auth.ErrBadCredentials):
		return http.StatusUnauthorized, CodeAuthentication
	case errors.Is(err, auth.ErrAccessDenied):
		var access *auth.AccessError
		if errors.As(err, &access) && access.Role != "" {
			return http.StatusForbidden, CodeAuthorization
		}
		return http.StatusUnauthorized, CodeAuthentication
	default:
		return http.StatusInternalServerError, CodeService
	}
}

// authErrorMessage returns the client-facing message. Persistence details
// stay in the server log.
func authErrorMessage(err error) string {
	var persistence *auth.PersistenceError
	if errors.As(err, &persistence) {
		return "authentication backend unavailable"
	}
	return err.Error()
}
