// ID Commons - Authentication Cache and Session Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/idcommons

/*
Package metrics provides Prometheus metrics for the authentication and
session core.

# Metrics Endpoint

Metrics are exposed at /metrics in Prometheus text format:

	curl http://localhost:8080/metrics

# Available Metrics

Authentication:
  - idcommons_auth_logins_total: Login attempts (counter)
    Labels: result (success, reused, bad_credentials, expired, locked, denied, error)
  - idcommons_auth_logouts_total: Logouts (counter)
    Labels: cause (explicit, expired)
  - idcommons_auth_authenticated_users: Users with a live authentication (gauge)

Authentication cache:
  - idcommons_auth_cache_removals_total: Cache removals (counter)
    Labels: cause
  - idcommons_auth_cache_expire_after_seconds: Inactivity window (gauge)

WebSocket:
  - idcommons_ws_sessions: Registered sessions (gauge)
    Labels: kind (anonymous, authenticated)
  - idcommons_ws_messages_total: Outbound messages (counter)
    Labels: outcome (sent, failed, skipped)
  - idcommons_ws_queue_depth: Pending outbound messages (gauge)
  - idcommons_ws_queue_dropped_total: Messages dropped on a full queue (counter)
  - idcommons_ws_queue_coalesced_total: Messages superseded by a newer one with the same hash (counter)
  - idcommons_ws_dispatch_duration_seconds: Time to deliver one message (histogram)

HTTP:
  - idcommons_http_requests_total, idcommons_http_request_duration_seconds

Circuit breaker:
  - idcommons_circuit_breaker_state (0 closed, 1 half-open, 2 open)
  - idcommons_circuit_breaker_requests_total, idcommons_circuit_breaker_transitions_total

All metrics are registered on the default registry through promauto.
*/
package metrics
