// ID Commons - Authentication Cache and Session Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/idcommons

/*
Package config provides configuration loading and the runtime property store.

# Static Configuration

Load reads configuration with Koanf v2 in three layers, later layers winning:

 1. Built-in defaults (defaultConfig)
 2. Optional YAML file (CONFIG_PATH, or config.yaml in the working directory)
 3. Environment variables (see envTransformFunc for the full mapping)

The result is validated with go-playground/validator tags plus a few cross
field checks.

Commonly used variables:
  - HTTP_HOST, HTTP_PORT, ENVIRONMENT
  - JWT_SECRET (required, at least 32 characters), TOKEN_TTL
  - SESSION_INACTIVITY_TIMEOUT (minutes), SESSION_GRACE_OFFSET
  - ADMIN_USERNAME, ADMIN_PASSWORD (seed account for an empty store)
  - STORE_BACKEND (memory, badger), STORE_PATH
  - NOTIFY_QUEUE_CAPACITY, NOTIFY_OFFER_TIMEOUT, NOTIFY_POLL_TIMEOUT, NOTIFY_WORKERS
  - EVENTS_ENABLED, EVENTS_BACKEND (gochannel, nats), NATS_URL
  - LOG_LEVEL, LOG_FORMAT, LOG_CALLER

# Runtime Properties

Properties holds named integer application properties that may change while
the process runs. Subscribers are notified synchronously on every change.
The authentication service subscribes to PropertySessionInactivityTimeout to
reconfigure its cache.
*/
package config
