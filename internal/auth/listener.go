// ID Commons - Authentication Cache and Session Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/idcommons

package auth

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/tomtom215/idcommons/internal/logging"
	"github.com/tomtom215/idcommons/internal/models"
)

// Listener observes logins and logouts. Implementations must be comparable
// (typically pointers) so they can be removed again.
type Listener interface {
	OnLogin(user *models.User, props Properties)
	OnLogout(user *models.User, props Properties)
}

// ListenerFuncs adapts functions to Listener. Nil fields are skipped.
type ListenerFuncs struct {
	Login  func(user *models.User, props Properties)
	Logout func(user *models.User, props Properties)
}

// OnLogin implements Listener.
func (f *ListenerFuncs) OnLogin(user *models.User, props Properties) {
	if f.Login != nil {
		f.Login(user, props)
	}
}

// OnLogout implements Listener.
func (f *ListenerFuncs) OnLogout(user *models.User, props Properties) {
	if f.Logout != nil {
		f.Logout(user, props)
	}
}

// listenerSet is a copy-on-write listener list. Notification iterates an
// immutable snapshot, so listeners may add or remove listeners while being
// notified.
type listenerSet struct {
	mu   sync.Mutex
	list atomic.Pointer[[]Listener]
}

func (s *listenerSet) snapshot() []Listener {
	if p := s.list.Load(); p != nil {
		return *p
	}
	return nil
}

// add registers l. Adding a listener twice has no effect.
func (s *listenerSet) add(l Listener) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur := s.snapshot()
	for _, existing := range cur {
		if existing == l {
			return
		}
	}
	next := make([]Listener, len(cur), len(cur)+1)
	copy(next, cur)
	next = append(next, l)
	s.list.Store(&next)
}

// remove unregisters l and reports whether it was registered.
func (s *listenerSet) remove(l Listener) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur := s.snapshot()
	for i, existing := range cur {
		if existing == l {
			next := make([]Listener, 0, len(cur)-1)
			next = append(next, cur[:i]...)
			next = append(next, cur[i+1:]...)
			s.list.Store(&next)
			return true
		}
	}
	return false
}

func (s *listenerSet) fireLogin(user *models.User, props Properties) {
	for _, l := range s.snapshot() {
		safeNotify(l, "login", user, func() { l.OnLogin(user.Clone(), props.Clone()) })
	}
}

func (s *listenerSet) fireLogout(user *models.User, props Properties) {
	for _, l := range s.snapshot() {
		safeNotify(l, "logout", user, func() { l.OnLogout(user.Clone(), props.Clone()) })
	}
}

// safeNotify isolates one listener: a panic is logged and swallowed.
func safeNotify(l Listener, event string, user *models.User, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			logging.Error().
				Str("listener", fmt.Sprintf("%T", l)).
				Str("event", event).
				Int64("user_id", user.ID).
				Interface("panic", r).
				Msg("authentication listener failed")
		}
	}()
	fn()
}
