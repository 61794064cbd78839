// ID Commons - Authentication Cache and Session Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/idcommons

/*
Package websocket tracks live WebSocket sessions per user and pushes
server-initiated notifications to them.

Key Components:

  - Message: JSON envelope exchanged with clients (topic, thread, hash, data, type)
  - Transport: a live session handle; Session is the gorilla/websocket implementation
  - Registry: maps usernames to session ids, with a reserved "anonymous" bucket
  - Dispatcher: bounded, de-duplicating outbound queue drained by one loop
  - Handler: HTTP upgrade endpoint and per-connection read loop

Session Lifecycle:

	connect ──► anonymous ──AUTHENTICATION(valid)──► <username>
	                ▲                                     │
	                └──────AUTHENTICATION(invalid)────────┘
	                                                      │
	disconnect / logout ◄─────────────────────────────────┘

A session id belongs to at most one bucket. Disconnect removes a session only
when the registry still holds the same handle, so a late close of a replaced
connection cannot evict its successor. Closed handles are pruned when a
bucket is read.

The Registry implements auth.Listener: a logout closes and forgets every
session of that user.

Outbound Delivery:

Producers enqueue with Send, Broadcast, SendToUser or SendToUsers. Enqueue
waits at most the configured offer timeout; a message that still does not
fit is dropped and logged. A message carrying a hash replaces any queued
message with the same hash. A single loop polls the queue with a timeout and
fans each message out to its targets through a bounded worker pool. A failed
send to one session is logged and does not affect the others.

Wire Format:

	{"topic":"jobs","thread":"t-1","hash":42,"type":"DATA","data":{...}}

An AUTHENTICATION message carries the token as a JSON string in data,
optionally prefixed with "Bearer ".

Thread Safety:

All exported types are safe for concurrent use.
*/
package websocket
