// ID Commons - Authentication Cache and Session Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/idcommons

package store

import (
	"context"
	"errors"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/idcommons/internal/logging"
	"github.com/tomtom215/idcommons/internal/metrics"
	"github.com/tomtom215/idcommons/internal/models"
)

// BreakerSettings tunes a BreakerUserStore.
type BreakerSettings struct {
	Name        string
	MaxRequests uint32
	Interval    time.Duration
	Timeout     time.Duration
	// MinRequests and FailureRatio decide when the circuit opens.
	MinRequests  uint32
	FailureRatio float64
}

// DefaultBreakerSettings returns the settings used for the user store.
func DefaultBreakerSettings() BreakerSettings {
	return BreakerSettings{
		Name:         "user-store",
		MaxRequests:  3,
		Interval:     time.Minute,
		Timeout:      30 * time.Second,
		MinRequests:  10,
		FailureRatio: 0.6,
	}
}

// BreakerUserStore wraps a UserStore with a circuit breaker.
// ErrUserNotFound and context cancellation do not count as failures.
type BreakerUserStore struct {
	next UserStore
	cb   *gobreaker.CircuitBreaker[*models.User]
	name string
}

// NewBreakerUserStore wraps next.
func NewBreakerUserStore(next UserStore, s BreakerSettings) *BreakerUserStore {
	name := s.Name

	// Initialize circuit breaker state metrics
	metrics.CircuitBreakerState.WithLabelValues(name).Set(0)

	cb := gobreaker.NewCircuitBreaker[*models.User](gobreaker.Settings{
		Name:        name,
		MaxRequests: s.MaxRequests,
		Interval:    s.Interval,
		Timeout:     s.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < s.MinRequests {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			shouldTrip := failureRatio >= s.FailureRatio
			if shouldTrip {
				logging.Warn().
					Str("breaker", name).
					Uint32("failures", counts.TotalFailures).
					Float64("failure_rate", failureRatio*100).
					Msg("[CIRCUIT BREAKER] Opening circuit")
			}
			return shouldTrip
		},
		IsSuccessful: func(err error) bool {
			return err == nil ||
				errors.Is(err, ErrUserNotFound) ||
				errors.Is(err, ErrInvalidUser) ||
				errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Info().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("[CIRCUIT BREAKER] State transition")
			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateToFloat(to))
			metrics.CircuitBreakerTransitions.WithLabelValues(name, from.String(), to.String()).Inc()
		},
	})

	return &BreakerUserStore{next: next, cb: cb, name: name}
}

func (b *BreakerUserStore) execute(fn func() (*models.User, error)) (*models.User, error) {
	u, err := b.cb.Execute(fn)
	switch {
	case err == nil:
		metrics.CircuitBreakerRequests.WithLabelValues(b.name, "success").Inc()
	case errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests):
		metrics.CircuitBreakerRequests.WithLabelValues(b.name, "rejected").Inc()
		logging.Warn().Err(err).Str("breaker", b.name).Msg("[CIRCUIT BREAKER] Request rejected")
	default:
		metrics.CircuitBreakerRequests.WithLabelValues(b.name, "failure").Inc()
	}
	return u, err
}

// FindByName implements UserStore.
func (b *BreakerUserStore) FindByName(ctx context.Context, name string) (*models.User, error) {
	return b.execute(func() (*models.User, error) {
		return b.next.FindByName(ctx, name)
	})
}

// FindByID implements UserStore.
func (b *BreakerUserStore) FindByID(ctx context.Context, id int64) (*models.User, error) {
	return b.execute(func() (*models.User, error) {
		return b.next.FindByID(ctx, id)
	})
}

// Update implements UserStore.
func (b *BreakerUserStore) Update(ctx context.Context, user *models.User) error {
	_, err := b.execute(func() (*models.User, error) {
		return nil, b.next.Update(ctx, user)
	})
	return err
}

// State returns the breaker state.
func (b *BreakerUserStore) State() gobreaker.State {
	return b.cb.State()
}

// stateToFloat converts circuit breaker state to numeric value for metrics
func stateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}
