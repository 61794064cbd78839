// ID Commons - Authentication Cache and Session Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/idcommons

// Package services adapts long-running components to suture.Service.
//
//   - HTTPServerService: net/http server with graceful shutdown
//   - DispatcherService: WebSocket dispatch loop, not restarted after Stop
//
// The authentication cache janitor implements suture.Service directly and
// needs no wrapper.
package services
