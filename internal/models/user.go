// ID Commons - Authentication Cache and Session Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/idcommons

package models

import (
	"slices"
	"time"
)

// User is a registered account.
type User struct {
	// ID is the positive numeric identifier, unique per user.
	ID int64 `json:"id"`

	// Name is the unique login name.
	Name string `json:"name"`

	// DisplayName is the human readable name shown in UIs.
	DisplayName string `json:"display_name,omitempty"`

	// PasswordDigest is either a bcrypt hash ("$2a$...") or a hex SHA-256 digest.
	PasswordDigest string `json:"password_digest"`

	// Roles is the granted role set.
	Roles []string `json:"roles,omitempty"`

	// Locked accounts cannot authenticate.
	Locked bool `json:"locked,omitempty"`

	// ExpiresAt, when set, is the instant after which the account is expired.
	ExpiresAt *time.Time `json:"expires_at,omitempty"`

	// ConnectionCount counts successful fresh authentications.
	ConnectionCount int64 `json:"connection_count"`

	// LastConnection is the time of the latest fresh authentication.
	LastConnection time.Time `json:"last_connection,omitempty"`

	// LastIP is the remote address of the latest fresh authentication.
	LastIP string `json:"last_ip,omitempty"`
}

// IsExpired reports whether the account has passed its expiration instant.
func (u *User) IsExpired(now time.Time) bool {
	return u.ExpiresAt != nil && now.After(*u.ExpiresAt)
}

// Label returns DisplayName, falling back to Name.
func (u *User) Label() string {
	if u.DisplayName != "" {
		return u.DisplayName
	}
	return u.Name
}

// Clone returns a deep copy of u.
func (u *User) Clone() *User {
	if u == nil {
		return nil
	}
	c := *u
	c.Roles = slices.Clone(u.Roles)
	if u.ExpiresAt != nil {
		t := *u.ExpiresAt
		c.ExpiresAt = &t
	}
	return &c
}
