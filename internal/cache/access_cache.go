// ID Commons - Authentication Cache and Session Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/idcommons

package cache

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/tomtom215/idcommons/internal/logging"
	"github.com/tomtom215/idcommons/internal/metrics"
)

// RemovalCause describes why an entry left the cache.
type RemovalCause int

const (
	// CauseExplicit is an Invalidate or InvalidateAll call.
	CauseExplicit RemovalCause = iota

	// CauseReplaced is a Put over an existing key. The old value is reported.
	CauseReplaced

	// CauseExpired is an entry that outlived the expiration window.
	CauseExpired
)

// String returns the cause name used in logs and metrics labels.
func (c RemovalCause) String() string {
	switch c {
	case CauseExplicit:
		return "explicit"
	case CauseReplaced:
		return "replaced"
	case CauseExpired:
		return "expired"
	default:
		return "unknown"
	}
}

// Removal is delivered to the RemovalListener for every entry leaving the cache.
type Removal[K comparable, V any] struct {
	Key   K
	Value V
	Cause RemovalCause
}

// RemovalListener receives removal notifications.
type RemovalListener[K comparable, V any] func(Removal[K, V])

// Config configures an AccessCache.
type Config[K comparable, V any] struct {
	// Name identifies the cache in logs.
	Name string

	// ExpireAfter is the inactivity window. Zero or negative disables expiry.
	ExpireAfter time.Duration

	// OnRemoval is called once for every removed entry. Optional.
	OnRemoval RemovalListener[K, V]

	// Clock overrides time.Now, for tests.
	Clock func() time.Time
}

// Stats is a point-in-time view of cache counters.
type Stats struct {
	Hits        uint64
	Misses      uint64
	Evictions   uint64
	Size        int
	ExpireAfter time.Duration
}

// AccessCache is a concurrent cache with access-based expiration and removal
// notification. The zero value is not usable; call New.
type AccessCache[K comparable, V any] struct {
	// mu guards the st pointer. Only Reconfigure takes it for writing.
	mu sync.RWMutex
	st *store[K, V]

	size      atomic.Int64
	hits      atomic.Uint64
	misses    atomic.Uint64
	evictions atomic.Uint64

	name      string
	onRemoval RemovalListener[K, V]
	now       func() time.Time
	log       zerolog.Logger
}

// New creates an AccessCache.
func New[K comparable, V any](cfg Config[K, V]) *AccessCache[K, V] {
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	if cfg.Name == "" {
		cfg.Name = "access-cache"
	}
	return &AccessCache[K, V]{
		st:        newStore[K, V](cfg.ExpireAfter, 0),
		name:      cfg.Name,
		onRemoval: cfg.OnRemoval,
		now:       cfg.Clock,
		log:       logging.WithComponent(cfg.Name),
	}
}

// Get returns the value for key and refreshes its last access time.
// An expired entry is removed, reported to the listener and treated as absent.
func (c *AccessCache[K, V]) Get(key K) (V, bool) {
	var zero V
	now := c.now()

	c.mu.RLock()
	st := c.st
	st.mu.Lock()
	e, ok := st.items[key]
	var expired *entry[K, V]
	if ok {
		if st.isExpired(e, now) {
			st.remove(e)
			c.size.Add(-1)
			expired, ok = e, false
		} else {
			st.touch(e, now)
		}
	}
	var value V
	if ok {
		value = e.value
	}
	st.mu.Unlock()
	c.mu.RUnlock()

	if expired != nil {
		c.notify(expired, CauseExpired)
	}
	if !ok {
		c.misses.Add(1)
		return zero, false
	}
	c.hits.Add(1)
	return value, true
}

// Contains reports whether key is present and live without refreshing it.
func (c *AccessCache[K, V]) Contains(key K) bool {
	now := c.now()

	c.mu.RLock()
	defer c.mu.RUnlock()
	c.st.mu.Lock()
	defer c.st.mu.Unlock()

	e, ok := c.st.items[key]
	return ok && !c.st.isExpired(e, now)
}

// Put inserts or replaces the value for key. A replaced value is reported
// with CauseReplaced.
func (c *AccessCache[K, V]) Put(key K, value V) {
	now := c.now()

	c.mu.RLock()
	st := c.st
	st.mu.Lock()
	old := st.insert(key, value, now)
	if old == nil {
		c.size.Add(1)
	}
	st.mu.Unlock()
	c.mu.RUnlock()

	if old != nil {
		c.notify(old, CauseReplaced)
	}
}

// Invalidate removes key. The removal callback has run when Invalidate returns.
// It reports whether an entry was present.
func (c *AccessCache[K, V]) Invalidate(key K) bool {
	c.mu.RLock()
	st := c.st
	st.mu.Lock()
	e, ok := st.items[key]
	if ok {
		st.remove(e)
		c.size.Add(-1)
	}
	st.mu.Unlock()
	c.mu.RUnlock()

	if ok {
		c.notify(e, CauseExplicit)
	}
	return ok
}

// InvalidateAll removes every entry and returns how many were removed.
func (c *AccessCache[K, V]) InvalidateAll() int {
	c.mu.RLock()
	st := c.st
	st.mu.Lock()
	removed := st.removeAll()
	c.size.Add(-int64(len(removed)))
	st.mu.Unlock()
	c.mu.RUnlock()

	for _, e := range removed {
		c.notify(e, CauseExplicit)
	}
	return len(removed)
}

// Snapshot returns a point-in-time copy of all live entries. Expired entries
// found on the way are removed and reported before Snapshot returns, so a
// key missing from the snapshot has always been notified.
func (c *AccessCache[K, V]) Snapshot() map[K]V {
	now := c.now()

	c.mu.RLock()
	st := c.st
	st.mu.Lock()
	expired := st.evictExpired(now)
	c.size.Add(-int64(len(expired)))
	out := make(map[K]V, len(st.items))
	for k, e := range st.items {
		out[k] = e.value
	}
	st.mu.Unlock()
	c.mu.RUnlock()

	for _, e := range expired {
		c.notify(e, CauseExpired)
	}
	return out
}

// CleanUp removes expired entries and returns how many were removed.
func (c *AccessCache[K, V]) CleanUp() int {
	now := c.now()

	c.mu.RLock()
	st := c.st
	st.mu.Lock()
	expired := st.evictExpired(now)
	c.size.Add(-int64(len(expired)))
	st.mu.Unlock()
	c.mu.RUnlock()

	for _, e := range expired {
		c.notify(e, CauseExpired)
	}
	return len(expired)
}

// Size returns the estimated number of entries. It may include entries that
// have expired but not yet been cleaned up.
func (c *AccessCache[K, V]) Size() int {
	return int(c.size.Load())
}

// ExpireAfter returns the current expiration window.
func (c *AccessCache[K, V]) ExpireAfter() time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.st.expireAfter
}

// Reconfigure replaces the expiration window. Existing entries are carried
// over with their access times; none is dropped or reported as removed.
// Zero or negative disables expiration.
func (c *AccessCache[K, V]) Reconfigure(expireAfter time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	old := c.st
	next := newStore[K, V](expireAfter, len(old.items))

	old.mu.Lock()
	next.mu.Lock()
	old.drainInto(next)
	next.mu.Unlock()
	old.mu.Unlock()

	c.st = next

	c.log.Info().
		Dur("old_expire_after", old.expireAfter).
		Dur("new_expire_after", expireAfter).
		Int("entries", len(next.items)).
		Msg("cache reconfigured")
}

// Stats returns the cache counters.
func (c *AccessCache[K, V]) Stats() Stats {
	return Stats{
		Hits:        c.hits.Load(),
		Misses:      c.misses.Load(),
		Evictions:   c.evictions.Load(),
		Size:        c.Size(),
		ExpireAfter: c.ExpireAfter(),
	}
}

// RegisterMetrics exports the hit, miss and eviction counters on reg under
// the cache name.
func (c *AccessCache[K, V]) RegisterMetrics(reg prometheus.Registerer) error {
	return metrics.RegisterCacheStats(reg, c.name, func() metrics.CacheStats {
		return metrics.CacheStats{
			Hits:      c.hits.Load(),
			Misses:    c.misses.Load(),
			Evictions: c.evictions.Load(),
		}
	})
}

// notify runs the removal listener, isolating the cache from listener panics.
func (c *AccessCache[K, V]) notify(e *entry[K, V], cause RemovalCause) {
	if cause == CauseExpired {
		c.evictions.Add(1)
	}
	if c.onRemoval == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			c.log.Error().
				Interface("panic", r).
				Interface("key", e.key).
				Str("cause", cause.String()).
				Msg("removal listener panicked")
		}
	}()
	c.onRemoval(Removal[K, V]{Key: e.key, Value: e.value, Cause: cause})
}
