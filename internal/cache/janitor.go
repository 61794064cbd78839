// ID Commons - Authentication Cache and Session Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/idcommons

package cache

import (
	"context"
	"time"

	"github.com/tomtom215/idcommons/internal/logging"
)

// Cleaner is implemented by caches with lazy expiration.
type Cleaner interface {
	CleanUp() int
}

// Janitor periodically sweeps expired entries from a Cleaner.
// It implements suture.Service.
type Janitor struct {
	target   Cleaner
	interval time.Duration
	name     string
}

// NewJanitor creates a janitor sweeping target every interval (default 30s).
func NewJanitor(target Cleaner, interval time.Duration) *Janitor {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &Janitor{target: target, interval: interval, name: "cache-janitor"}
}

// Serve runs the sweep loop until ctx is canceled.
func (j *Janitor) Serve(ctx context.Context) error {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if n := j.target.CleanUp(); n > 0 {
				logging.Debug().
					Str("component", j.name).
					Int("expired", n).
					Msg("expired cache entries removed")
			}
		}
	}
}

// String implements fmt.Stringer for suture logging.
func (j *Janitor) String() string {
	return j.name
}
