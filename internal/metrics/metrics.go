// ID Commons - Authentication Cache and Session Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/idcommons

package metrics

import (
	"fmt"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "idcommons"

var (
	// Authentication Metrics
	AuthLogins = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "auth_logins_total",
			Help:      "Total number of login attempts by result",
		},
		[]string{"result"},
	)

	AuthLogouts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "auth_logouts_total",
			Help:      "Total number of logouts by cause",
		},
		[]string{"cause"},
	)

	AuthAuthenticatedUsers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "auth_authenticated_users",
			Help:      "Number of users holding a live authentication",
		},
	)

	// Authentication Cache Metrics
	AuthCacheRemovals = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "auth_cache_removals_total",
			Help:      "Total number of authentication cache removals by cause",
		},
		[]string{"cause"},
	)

	AuthCacheExpireAfter = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "auth_cache_expire_after_seconds",
			Help:      "Current inactivity window of the authentication cache",
		},
	)

	// WebSocket Metrics
	WSSessions = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "ws_sessions",
			Help:      "Number of registered WebSocket sessions",
		},
		[]string{"kind"},
	)

	WSMessages = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ws_messages_total",
			Help:      "Total number of outbound WebSocket messages by outcome",
		},
		[]string{"outcome"},
	)

	WSQueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "ws_queue_depth",
			Help:      "Number of messages waiting in the outbound queue",
		},
	)

	WSQueueDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ws_queue_dropped_total",
			Help:      "Total number of messages dropped because the queue was full",
		},
	)

	WSQueueCoalesced = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ws_queue_coalesced_total",
			Help:      "Total number of queued messages superseded by a newer message with the same hash",
		},
	)

	WSDispatchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "ws_dispatch_duration_seconds",
			Help:      "Time taken to deliver one queued message to its recipients",
			Buckets:   []float64{.0005, .001, .005, .01, .05, .1, .5, 1, 5},
		},
	)

	// API Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency in seconds",
			Buckets:   []float64{.001, .005, .01, .05, .1, .5, 1, 5, 10},
		},
		[]string{"method", "endpoint"},
	)

	// Circuit Breaker Metrics
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "circuit_breaker_state",
			Help:      "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "circuit_breaker_requests_total",
			Help:      "Total requests through the circuit breaker by result",
		},
		[]string{"name", "result"}, // "success", "failure", "rejected"
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "circuit_breaker_transitions_total",
			Help:      "Total circuit breaker state transitions",
		},
		[]string{"name", "from", "to"},
	)
)

// RecordLogin records a login attempt outcome.
func RecordLogin(result string) {
	AuthLogins.WithLabelValues(result).Inc()
}

// RecordLogout records a logout and its cause.
func RecordLogout(cause string) {
	AuthLogouts.WithLabelValues(cause).Inc()
}

// SetAuthenticatedUsers sets the live authentication gauge.
func SetAuthenticatedUsers(n int) {
	AuthAuthenticatedUsers.Set(float64(n))
}

// RecordCacheRemoval records an authentication cache removal.
func RecordCacheRemoval(cause string) {
	AuthCacheRemovals.WithLabelValues(cause).Inc()
}

// SetCacheExpireAfter publishes the cache inactivity window.
func SetCacheExpireAfter(d time.Duration) {
	AuthCacheExpireAfter.Set(d.Seconds())
}

// SetWSSessions sets the session gauges.
func SetWSSessions(anonymous, authenticated int) {
	WSSessions.WithLabelValues("anonymous").Set(float64(anonymous))
	WSSessions.WithLabelValues("authenticated").Set(float64(authenticated))
}

// RecordWSMessage records the outcome of one delivery attempt.
func RecordWSMessage(outcome string) {
	WSMessages.WithLabelValues(outcome).Inc()
}

// RecordWSDispatch records the time spent delivering one message.
func RecordWSDispatch(duration time.Duration) {
	WSDispatchDuration.Observe(duration.Seconds())
}

// RecordAPIRequest records an API request metric
func RecordAPIRequest(method, endpoint string, statusCode int, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, strconv.Itoa(statusCode)).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// CacheStats is a point-in-time read of cache counters.
type CacheStats struct {
	Hits      uint64
	Misses    uint64
	Evictions uint64
}

// RegisterCacheStats exports the counters returned by read on reg, labeled
// with the cache name. read is called on every scrape.
func RegisterCacheStats(reg prometheus.Registerer, cache string, read func() CacheStats) error {
	labels := prometheus.Labels{"cache": cache}
	counter := func(name, help string, value func(CacheStats) uint64) prometheus.Collector {
		return prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        name,
			Help:        help,
			ConstLabels: labels,
		}, func() float64 { return float64(value(read())) })
	}

	collectors := []prometheus.Collector{
		counter("cache_hits_total", "Total number of cache lookups that found a live entry",
			func(s CacheStats) uint64 { return s.Hits }),
		counter("cache_misses_total", "Total number of cache lookups that found no live entry",
			func(s CacheStats) uint64 { return s.Misses }),
		counter("cache_evictions_total", "Total number of cache entries removed by expiry",
			func(s CacheStats) uint64 { return s.Evictions }),
	}
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			return fmt.Errorf("register %s cache metrics: %w", cache, err)
		}
	}
	return nil
}
