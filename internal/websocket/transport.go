// ID Commons - Authentication Cache and Session Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/idcommons

package websocket

import (
	"errors"
	"slices"
	"sort"
	"sync"

	"github.com/tomtom215/idcommons/internal/models"
)

// ErrSessionClosed is returned when sending on a closed session.
var ErrSessionClosed = errors.New("websocket session closed")

// Transport is a handle to one live client connection.
type Transport interface {
	// ID is unique among open sessions. A closed session's id may be reused.
	ID() string
	RemoteAddr() string
	IsOpen() bool
	// Send writes one encoded frame.
	Send(frame []byte) error
	Close() error
	Attributes() *Attributes
}

// Attributes is the mutable per-session state: the bound principal and the
// subscribed topics.
type Attributes struct {
	mu       sync.RWMutex
	username string
	roles    []string
	topics   map[string]struct{}
}

// Bind records the authenticated principal.
func (a *Attributes) Bind(username string, roles []string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.username = username
	a.roles = slices.Clone(roles)
}

// Clear resets the session to anonymous.
func (a *Attributes) Clear() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.username = ""
	a.roles = nil
}

// Username returns the bound username, or "" when anonymous.
func (a *Attributes) Username() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.username
}

// Roles returns the bound roles.
func (a *Attributes) Roles() []string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return slices.Clone(a.roles)
}

// HasRole reports whether the session matches role. Anonymous sessions match
// only models.RoleAnonymous.
func (a *Attributes) HasRole(role string) bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.username == "" {
		return role == models.RoleAnonymous
	}
	return models.HasRole(a.roles, role)
}

// Subscribe adds topic. It reports whether the topic was new.
func (a *Attributes) Subscribe(topic string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.topics == nil {
		a.topics = make(map[string]struct{})
	}
	if _, ok := a.topics[topic]; ok {
		return false
	}
	a.topics[topic] = struct{}{}
	return true
}

// Unsubscribe removes topic. It reports whether it was present.
func (a *Attributes) Unsubscribe(topic string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, ok := a.topics[topic]; !ok {
		return false
	}
	delete(a.topics, topic)
	return true
}

// Subscribed reports whether topic is subscribed.
func (a *Attributes) Subscribed(topic string) bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	_, ok := a.topics[topic]
	return ok
}

// Topics returns the subscribed topics in sorted order.
func (a *Attributes) Topics() []string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make([]string, 0, len(a.topics))
	for t := range a.topics {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// Selector picks delivery targets.
type Selector func(t Transport) bool

// All selects every session.
func All() Selector {
	return func(Transport) bool { return true }
}

// ByRole selects sessions whose principal holds role.
func ByRole(role string) Selector {
	return func(t Transport) bool { return t.Attributes().HasRole(role) }
}

// ByTopic selects sessions subscribed to topic.
func ByTopic(topic string) Selector {
	return func(t Transport) bool { return t.Attributes().Subscribed(topic) }
}

// ByRemoteHost selects sessions whose remote host equals host. An empty host
// selects everything.
func ByRemoteHost(host string) Selector {
	return func(t Transport) bool {
		return host == "" || remoteHost(t.RemoteAddr()) == remoteHost(host)
	}
}
