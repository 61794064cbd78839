// ID Commons - Authentication Cache and Session Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/idcommons

/*
Package models defines the persisted user entity and the role vocabulary
shared by the authentication service, the user stores and the session
registry.

Key Structures:

  - User: a registered account with its password digest, role set,
    account flags and connection bookkeeping
  - Role constants: administrator and the reserved anonymous role

Users are plain values; stores hand out copies so a caller mutating a
*User never changes what another goroutine observes.
*/
package models
