// ID Commons - Authentication Cache and Session Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/idcommons

package config

import (
	"maps"
	"sync"

	"github.com/tomtom215/idcommons/internal/logging"
)

// PropertySessionInactivityTimeout is the session inactivity timeout in minutes.
const PropertySessionInactivityTimeout = "session.inactivity_timeout"

// PropertyChange describes one property update.
type PropertyChange struct {
	Name     string
	Old      int
	New      int
	HadValue bool
}

// PropertyListener is notified of property changes.
type PropertyListener func(PropertyChange)

type subscription struct {
	id int
	fn PropertyListener
}

// Properties is a concurrent store of named integer properties.
type Properties struct {
	// setMu serializes Set so subscribers see changes in store order.
	setMu sync.Mutex

	mu     sync.RWMutex
	values map[string]int
	subs   map[string][]subscription
	nextID int
}

// NewProperties creates a property store with initial values.
func NewProperties(initial map[string]int) *Properties {
	values := make(map[string]int, len(initial))
	maps.Copy(values, initial)
	return &Properties{
		values: values,
		subs:   make(map[string][]subscription),
	}
}

// Get returns the value of name.
func (p *Properties) Get(name string) (int, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	v, ok := p.values[name]
	return v, ok
}

// GetOr returns the value of name, or def when unset.
func (p *Properties) GetOr(name string, def int) int {
	if v, ok := p.Get(name); ok {
		return v
	}
	return def
}

// Set stores value and notifies subscribers if it changed.
// Subscribers run synchronously on the calling goroutine and must not call
// Set themselves. Concurrent Sets are delivered in the order they are stored.
func (p *Properties) Set(name string, value int) {
	p.setMu.Lock()
	defer p.setMu.Unlock()

	p.mu.Lock()
	old, had := p.values[name]
	if had && old == value {
		p.mu.Unlock()
		return
	}
	p.values[name] = value
	subs := append([]subscription(nil), p.subs[name]...)
	p.mu.Unlock()

	change := PropertyChange{Name: name, Old: old, New: value, HadValue: had}
	for _, s := range subs {
		notifyProperty(s.fn, change)
	}
}

// Subscribe registers fn for changes of name and returns a function that
// removes the subscription.
func (p *Properties) Subscribe(name string, fn PropertyListener) func() {
	p.mu.Lock()
	p.nextID++
	id := p.nextID
	p.subs[name] = append(p.subs[name], subscription{id: id, fn: fn})
	p.mu.Unlock()

	return func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		list := p.subs[name]
		for i, s := range list {
			if s.id == id {
				p.subs[name] = append(list[:i:i], list[i+1:]...)
				return
			}
		}
	}
}

// Snapshot returns a copy of all properties.
func (p *Properties) Snapshot() map[string]int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return maps.Clone(p.values)
}

func notifyProperty(fn PropertyListener, change PropertyChange) {
	defer func() {
		if r := recover(); r != nil {
			logging.Error().
				Interface("panic", r).
				Str("property", change.Name).
				Msg("property listener panicked")
		}
	}()
	fn(change)
}
