// ID Commons - Authentication Cache and Session Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/idcommons

/*
Package api exposes the authentication service and the notification
dispatcher over HTTP using the chi router.

Routes:

	POST   /api/auth/login                      credentials in, bearer token out
	POST   /api/auth/logout                     invalidates the caller's authentication
	GET    /api/auth/me                         the caller and its open session count
	GET    /api/admin/sessions                  authenticated users (admin)
	GET    /api/admin/connections               WebSocket sessions per user (admin)
	DELETE /api/admin/sessions/{userID}         logs one user out (admin)
	POST   /api/admin/sessions/invalidate-all   logs every user out (admin)
	GET    /api/admin/properties                runtime properties (admin)
	PUT    /api/admin/properties/{name}         updates a runtime property (admin)
	POST   /api/admin/notify                    queues a message for WebSocket sessions (admin)
	GET    /ws                                  WebSocket upgrade
	GET    /healthz                             liveness and session counters
	GET    /metrics                             Prometheus exposition

Every JSON body is wrapped in models.APIResponse. Bearer tokens are only
accepted while their authentication is cached, so a token outlives
neither logout nor inactivity expiry.

Middleware order: request ID, real IP, panic recovery, request metrics
and CORS apply globally. Authentication routes carry a strict per-IP
rate limit; the rest of the API carries the configured default.
*/
package api
