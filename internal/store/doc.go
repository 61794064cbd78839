// ID Commons - Authentication Cache and Session Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/idcommons

// Package store provides user lookup and persistence for the authentication
// service.
//
// Three implementations of UserStore are available:
//
//   - MemoryUserStore: map-backed, for tests and single-node demos
//   - BadgerUserStore: durable BadgerDB store with a name index
//   - BreakerUserStore: wraps any UserStore with a circuit breaker
//
// Lookups that find nothing return ErrUserNotFound. Callers treat every other
// error as a persistence failure.
package store
