// ID Commons - Authentication Cache and Session Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/idcommons

/*
Package events publishes login and logout notifications to a Watermill
message bus.

The Publisher implements auth.Listener. Register it with the authentication
service and every fresh login and every logout becomes a JSON Event on the
configured topic. Two backends exist:

  - gochannel: in-process pub/sub, the default
  - nats: core NATS through watermill-nats (build with -tags nats), optionally
    against an embedded nats-server started in-process (EMBEDDED_NATS=true)

Publishing is guarded by a circuit breaker so a dead broker does not slow
down logins. Failed publishes are logged and counted, never returned to the
authentication path.

AuditLog is the consuming side: a supervised service that subscribes to
the topic and writes each event to the structured log.
*/
package events
