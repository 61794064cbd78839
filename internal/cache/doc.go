// ID Commons - Authentication Cache and Session Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/idcommons

/*
Package cache provides AccessCache, a concurrent key/value cache whose entries
expire after a configurable period without access, and a Janitor service that
sweeps expired entries in the background.

AccessCache backs the authentication cache: key = user id, value = the
authentication record of that user.

Expiration:

Expiry is evaluated lazily. An entry that has not been read or written for
longer than the expiration window is removed the next time it is touched by
Get, by a bulk read (Snapshot) or by CleanUp. The Janitor calls CleanUp on an
interval but is a best-effort sweep; correctness never depends on it running
at exact times.

Removal callbacks:

Every entry that leaves the cache is reported exactly once to the configured
RemovalListener with a cause (explicit, replaced or expired). Callbacks run
synchronously on the goroutine that removed the entry, after all cache locks
are released, so a listener may call back into the cache. A panicking
listener is recovered and logged; the cache is never left inconsistent.

Locking:

	┌───────────────────── AccessCache.mu (RWMutex) ─────────────────────┐
	│  read lock:  Get, Put, Invalidate, InvalidateAll, Snapshot, CleanUp │
	│  write lock: Reconfigure (store swap)                              │
	│   ┌─────────────── store.mu (Mutex) ───────────────┐               │
	│   │  map + access-ordered doubly linked list       │               │
	│   └────────────────────────────────────────────────┘               │
	└────────────────────────────────────────────────────────────────────┘

Reconfigure builds a new store with the new expiration window and drains the
old store into it while holding the write lock, so no reader ever observes a
half-migrated cache and no entry is lost or reported as removed.

Size is an atomic counter and never blocks concurrent mutation.
*/
package cache
