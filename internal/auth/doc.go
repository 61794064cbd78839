// ID Commons - Authentication Cache and Session Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/idcommons

/*
Package auth owns the login and logout lifecycle.

Service validates credentials against a store.UserStore, keeps one
Authentication per user in an access-expiring cache, and notifies registered
Listeners when users log in or out.

# Lifecycle

Per user the service moves through

	Anonymous -> Authenticating -> Authenticated -> (Expired | Locked | LoggedOut)

A logout is always driven by the cache: explicit invalidation and inactivity
expiry both remove the cache entry, and the cache removal listener fires
OnLogout exactly once per removed entry. Replacing an entry never logs the
user out.

# Security Context

The current principal travels in a context.Context. Login returns a context
carrying the Authentication; NewContext and FromContext manage it directly.
A context without an Authentication represents a system-internal caller and
passes every role check.

# Errors

Failures are reported with sentinel errors and typed errors that support
errors.Is and errors.As:

  - ErrBadCredentials: unknown user or wrong password, worded identically
  - ErrAccountExpired, ErrAccountLocked
  - *AccessError (errors.Is ErrAccessDenied): empty or malformed credentials,
    failed role checks
  - *PersistenceError: the user store failed

Listener failures are logged and never returned.

# Tokens

Each Authentication carries an HS256 JWT whose subject is the user id. A
token is accepted only while the cache still holds an Authentication with the
identical token, so invalidation revokes it immediately.
*/
package auth
