// ID Commons - Authentication Cache and Session Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/idcommons

package auth

import (
	"errors"
	"fmt"
)

var (
	// ErrAccessDenied is matched by every *AccessError.
	ErrAccessDenied = errors.New("access denied")

	// ErrBadCredentials is returned for unknown users and wrong passwords alike.
	ErrBadCredentials = errors.New("invalid username or password")

	// ErrAccountExpired is returned when the account has passed its expiry date.
	ErrAccountExpired = errors.New("account expired")

	// ErrAccountLocked is returned when the account is locked.
	ErrAccountLocked = errors.New("account locked")
)

// AccessError is an illegal access: missing or malformed credentials, or a
// failed role check. Role names the missing role when there is one.
type AccessError struct {
	Role   string
	Reason string
}

func (e *AccessError) Error() string {
	switch {
	case e.Role != "":
		return fmt.Sprintf("access denied: missing role %q", e.Role)
	case e.Reason != "":
		return "access denied: " + e.Reason
	default:
		return ErrAccessDenied.Error()
	}
}

// Is makes errors.Is(err, ErrAccessDenied) true for every AccessError.
func (e *AccessError) Is(target error) bool {
	return target == ErrAccessDenied
}

// PersistenceError wraps a user store failure.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence failure: %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}
