// ID Commons - Authentication Cache and Session Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/idcommons

/*
Package supervisor provides process supervision using suture v4.

The tree organizes long-running services into layers for failure isolation:

	RootSupervisor ("idcommons")
	├── SessionSupervisor ("session-layer")
	│   └── cache.Janitor (authentication cache sweeper)
	├── NotifySupervisor ("notify-layer")
	│   └── DispatcherService (WebSocket outbound queue)
	└── APISupervisor ("api-layer")
	    └── HTTPServerService

Crashed services restart with suture's backoff. Supervisor events are logged
through sutureslog on top of the zerolog slog adapter.

Usage:

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.TreeConfig{})
	if err != nil {
	    return err
	}
	tree.AddSessionService(cache.NewJanitor(svc.Cache(), 30*time.Second))
	tree.AddNotifyService(services.NewDispatcherService(dispatcher))
	tree.AddAPIService(services.NewHTTPServerService(server, 10*time.Second))
	return tree.Serve(ctx)
*/
package supervisor
