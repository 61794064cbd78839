// ID Commons - Authentication Cache and Session Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/idcommons

package models

import "slices"

const (
	// RoleAdmin passes every role check.
	RoleAdmin = "admin"

	// RoleUser is the default role for regular accounts.
	RoleUser = "user"

	// RoleAnonymous is reserved for unauthenticated transport sessions.
	// It is never granted to a persisted user.
	RoleAnonymous = "anonymous"
)

// HasRole reports whether roles contains role.
func HasRole(roles []string, role string) bool {
	return slices.Contains(roles, role)
}
