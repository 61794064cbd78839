// ID Commons - Authentication Cache and Session Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/idcommons

package websocket

import (
	"sort"
	"sync"

	"github.com/rs/zerolog"

	"github.com/tomtom215/idcommons/internal/auth"
	"github.com/tomtom215/idcommons/internal/logging"
	"github.com/tomtom215/idcommons/internal/metrics"
	"github.com/tomtom215/idcommons/internal/models"
)

// AnonymousBucket holds sessions that have not authenticated.
const AnonymousBucket = models.RoleAnonymous

// TokenResolver resolves a bearer token to a live authentication.
// Satisfied by *auth.Service.
type TokenResolver interface {
	GetAuthentication(token string) (*auth.Authentication, bool)
}

// Registry maps usernames to their live sessions.
type Registry struct {
	resolver TokenResolver

	// mu guards sessions, owner and buckets together.
	mu       sync.Mutex
	sessions map[string]Transport
	owner    map[string]string
	buckets  map[string]map[string]struct{}

	security *logging.SecurityLogger
	log      zerolog.Logger
}

// NewRegistry creates an empty registry resolving tokens with resolver.
func NewRegistry(resolver TokenResolver) *Registry {
	return &Registry{
		resolver: resolver,
		sessions: make(map[string]Transport),
		owner:    make(map[string]string),
		buckets:  make(map[string]map[string]struct{}),
		security: logging.NewSecurityLogger(),
		log:      logging.WithComponent("ws-registry"),
	}
}

// Connect registers t in the anonymous bucket. A previous handle with the
// same id is replaced.
func (r *Registry) Connect(t Transport) {
	t.Attributes().Clear()

	r.mu.Lock()
	r.detachLocked(t.ID())
	r.attachLocked(t, AnonymousBucket)
	r.mu.Unlock()

	r.log.Debug().Str("session_id", logging.SanitizeSessionID(t.ID())).Str("remote_addr", t.RemoteAddr()).Msg("session connected")
	r.publishCounts()
}

// Authenticate re-resolves t against token. On success t moves to the
// username's bucket and its attributes carry the principal. Otherwise t
// returns to the anonymous bucket with its attributes cleared. A handle that
// has been replaced under the same id is ignored.
func (r *Registry) Authenticate(t Transport, token string) (*auth.Authentication, bool) {
	// Resolve before locking: the lookup may expire a cache entry, which
	// calls back into OnLogout.
	var (
		a  *auth.Authentication
		ok bool
	)
	if token != "" && r.resolver != nil {
		a, ok = r.resolver.GetAuthentication(token)
	}

	bucket := AnonymousBucket
	if ok {
		bucket = a.Username
		t.Attributes().Bind(a.Username, a.Roles)
	} else {
		t.Attributes().Clear()
	}

	r.mu.Lock()
	if cur, held := r.sessions[t.ID()]; held && cur != t {
		// t was replaced by a newer handle with the same id.
		r.mu.Unlock()
		t.Attributes().Clear()
		return nil, false
	}
	from := r.owner[t.ID()]
	r.detachLocked(t.ID())
	if t.IsOpen() {
		r.attachLocked(t, bucket)
	}
	r.mu.Unlock()

	if from == "" {
		from = AnonymousBucket
	}
	r.security.LogSessionBound(t.ID(), from, bucket)
	r.publishCounts()
	return a, ok
}

// Disconnect removes t, but only while the registry still holds this exact
// handle. It reports whether anything was removed.
func (r *Registry) Disconnect(t Transport) bool {
	r.mu.Lock()
	current, ok := r.sessions[t.ID()]
	if !ok || current != t {
		r.mu.Unlock()
		return false
	}
	r.detachLocked(t.ID())
	r.mu.Unlock()

	r.log.Debug().Str("session_id", logging.SanitizeSessionID(t.ID())).Msg("session disconnected")
	r.publishCounts()
	return true
}

// SessionsOf returns the open sessions of username, ordered by id.
// Closed handles found on the way are pruned.
func (r *Registry) SessionsOf(username string) []Transport {
	r.mu.Lock()
	ids := r.buckets[username]
	out := make([]Transport, 0, len(ids))
	var pruned int
	for id := range ids {
		t := r.sessions[id]
		if t == nil || !t.IsOpen() {
			r.detachLocked(id)
			pruned++
			continue
		}
		out = append(out, t)
	}
	r.mu.Unlock()

	if pruned > 0 {
		r.publishCounts()
	}
	sortByID(out)
	return out
}

// Targets returns the open sessions matching sel, ordered by id.
func (r *Registry) Targets(sel Selector) []Transport {
	r.mu.Lock()
	out := make([]Transport, 0, len(r.sessions))
	var pruned int
	for id, t := range r.sessions {
		if !t.IsOpen() {
			r.detachLocked(id)
			pruned++
			continue
		}
		out = append(out, t)
	}
	r.mu.Unlock()

	if pruned > 0 {
		r.publishCounts()
	}
	if sel != nil {
		kept := out[:0]
		for _, t := range out {
			if sel(t) {
				kept = append(kept, t)
			}
		}
		out = kept
	}
	sortByID(out)
	return out
}

// Counts returns the number of anonymous and authenticated sessions.
func (r *Registry) Counts() (anonymous, authenticated int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.countsLocked()
}

// Usernames returns the users with at least one registered session.
func (r *Registry) Usernames() []string {
	r.mu.Lock()
	out := make([]string, 0, len(r.buckets))
	for name := range r.buckets {
		if name != AnonymousBucket {
			out = append(out, name)
		}
	}
	r.mu.Unlock()
	sort.Strings(out)
	return out
}

// CloseAll closes and forgets every session.
func (r *Registry) CloseAll() int {
	r.mu.Lock()
	all := make([]Transport, 0, len(r.sessions))
	for id, t := range r.sessions {
		all = append(all, t)
		r.detachLocked(id)
	}
	r.mu.Unlock()

	closeAll(all)
	r.publishCounts()
	return len(all)
}

// OnLogin implements auth.Listener. Sessions bind on their own
// AUTHENTICATION message, so nothing happens here.
func (r *Registry) OnLogin(*models.User, auth.Properties) {}

// OnLogout implements auth.Listener. Every session of the user is closed and
// removed.
func (r *Registry) OnLogout(user *models.User, props auth.Properties) {
	r.mu.Lock()
	ids := r.buckets[user.Name]
	victims := make([]Transport, 0, len(ids))
	for id := range ids {
		if t := r.sessions[id]; t != nil {
			victims = append(victims, t)
		}
		r.detachLocked(id)
	}
	r.mu.Unlock()

	if len(victims) == 0 {
		return
	}
	for _, t := range victims {
		t.Attributes().Clear()
	}
	closeAll(victims)

	r.log.Info().
		Int64("user_id", user.ID).
		Str("cause", props[auth.PropLogoutCause]).
		Int("sessions_closed", len(victims)).
		Msg("closed sessions after logout")
	r.publishCounts()
}

func (r *Registry) attachLocked(t Transport, bucket string) {
	id := t.ID()
	r.sessions[id] = t
	r.owner[id] = bucket
	ids, ok := r.buckets[bucket]
	if !ok {
		ids = make(map[string]struct{})
		r.buckets[bucket] = ids
	}
	ids[id] = struct{}{}
}

func (r *Registry) detachLocked(id string) {
	bucket, ok := r.owner[id]
	if ok {
		if ids := r.buckets[bucket]; ids != nil {
			delete(ids, id)
			if len(ids) == 0 {
				delete(r.buckets, bucket)
			}
		}
		delete(r.owner, id)
	}
	delete(r.sessions, id)
}

func (r *Registry) countsLocked() (anonymous, authenticated int) {
	anonymous = len(r.buckets[AnonymousBucket])
	return anonymous, len(r.sessions) - anonymous
}

func (r *Registry) publishCounts() {
	metrics.SetWSSessions(r.Counts())
}

func closeAll(ts []Transport) {
	for _, t := range ts {
		if err := t.Close(); err != nil {
			logging.Debug().Err(err).Str("session_id", logging.SanitizeSessionID(t.ID())).Msg("failed to close session")
		}
	}
}

func sortByID(ts []Transport) {
	sort.Slice(ts, func(i, j int) bool { return ts[i].ID() < ts[j].ID() })
}
