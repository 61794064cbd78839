// ID Commons - Authentication Cache and Session Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/idcommons

// Package validation provides struct validation using go-playground/validator v10.
//
// The package wraps a thread-safe singleton validator with the custom rules
// the service needs and translates field errors into readable messages that
// fit the API error format.
//
// # Custom Tags
//
//   - login: rejects characters commonly used in injection probes
//     (quotes, semicolons, comment and wildcard markers, angle brackets,
//     backslashes and control characters)
//
// # Usage
//
//	type LoginRequest struct {
//	    Login    string `json:"login" validate:"required,max=255,login"`
//	    Password string `json:"password" validate:"required,max=1024"`
//	}
//
//	if err := validation.ValidateStruct(&req); err != nil {
//	    apiErr := err.ToAPIError()
//	    respondError(w, http.StatusBadRequest, apiErr.Code, apiErr.Message)
//	    return
//	}
//
// The same login rule is available without a struct through IsSafeLogin.
package validation
