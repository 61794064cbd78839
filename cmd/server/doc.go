// ID Commons - Authentication Cache and Session Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/idcommons

// Package main is the entry point for the ID Commons server.
//
// The server authenticates users against a user store, keeps each live
// authentication in an inactivity-expiring cache and pushes notifications
// to WebSocket sessions bound to those users.
//
// # Application Architecture
//
// The server initializes components in the following order:
//
//  1. Configuration: defaults, config file, environment (Koanf v2)
//  2. User store: in-memory or BadgerDB, behind a circuit breaker
//  3. Authentication service: token issuer, cache, runtime properties
//  4. Session registry and notification dispatcher
//  5. Event publisher and audit log (optional)
//  6. HTTP server: REST API, WebSocket endpoint, health and metrics
//
// Every long-running component runs under a suture supervisor tree.
//
// # Configuration
//
// For a first start against an empty store:
//   - JWT_SECRET: 32+ character secret for token signing
//   - ADMIN_USERNAME, ADMIN_PASSWORD: seeded administrator
//
// # Build Tags
//
//	go build -tags "nats" ./cmd/server   # publish auth events to NATS
//
// # Signal Handling
//
// SIGINT and SIGTERM cancel the root context. The HTTP server drains within
// SERVER_SHUTDOWN_TIMEOUT, WebSocket sessions are closed and the store is
// closed last.
package main
