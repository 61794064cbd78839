// ID Commons - Authentication Cache and Session Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/idcommons

/*
Package middleware provides HTTP middleware shared by every route.

  - RequestID: assigns or propagates X-Request-ID and seeds the logging
    correlation ID plus a request-scoped logger
  - PrometheusMetrics: request count and latency per chi route pattern

Both have the func(http.Handler) http.Handler shape expected by chi's Use.
Response writers are unwrappable so WebSocket upgrades still reach the
underlying http.Hijacker.
*/
package middleware
