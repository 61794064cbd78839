// ID Commons - Authentication Cache and Session Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/idcommons

package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/idcommons/internal/authz"
	"github.com/tomtom215/idcommons/internal/cache"
	"github.com/tomtom215/idcommons/internal/config"
	"github.com/tomtom215/idcommons/internal/logging"
	"github.com/tomtom215/idcommons/internal/metrics"
	"github.com/tomtom215/idcommons/internal/models"
	"github.com/tomtom215/idcommons/internal/store"
	"github.com/tomtom215/idcommons/internal/validation"
)

// lockStripes serializes fresh logins per user.
const lockStripes = 64

// Options configures a Service.
type Options struct {
	// AdminRole passes every role check. Default models.RoleAdmin.
	AdminRole string

	// InactivityTimeout is the initial session timeout in minutes.
	// Zero or negative disables expiry.
	InactivityTimeout int

	// GraceOffset is added to the inactivity timeout.
	GraceOffset time.Duration

	// Clock overrides time.Now, for tests.
	Clock func() time.Time

	// Enforcer decides role checks. Default: an enforcer for AdminRole.
	Enforcer *authz.Enforcer
}

// OptionsFromConfig builds Options from the security configuration.
func OptionsFromConfig(cfg *config.SecurityConfig) Options {
	return Options{
		AdminRole:         cfg.AdminRole,
		InactivityTimeout: cfg.InactivityTimeout,
		GraceOffset:       cfg.GraceOffset,
	}
}

// Service authenticates users and tracks their live authentications.
type Service struct {
	users  store.UserStore
	tokens *TokenIssuer
	cache  *cache.AccessCache[int64, *Authentication]

	listeners listenerSet

	adminRole string
	authz     *authz.Enforcer
	now       func() time.Time

	graceOffset time.Duration

	locks [lockStripes]sync.Mutex

	// logoutProps carries logout properties from Invalidate to the cache
	// removal listener, keyed by user id.
	logoutProps sync.Map

	// states records the last lifecycle transition per user id.
	states sync.Map

	security *logging.SecurityLogger
	log      zerolog.Logger
}

// NewService creates an authentication service.
func NewService(users store.UserStore, tokens *TokenIssuer, opts Options) *Service {
	if opts.AdminRole == "" {
		opts.AdminRole = models.RoleAdmin
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.Enforcer == nil {
		opts.Enforcer = authz.MustNewEnforcer(opts.AdminRole)
	}

	s := &Service{
		users:       users,
		tokens:      tokens,
		adminRole:   opts.Enforcer.AdminRole(),
		authz:       opts.Enforcer,
		now:         opts.Clock,
		graceOffset: opts.GraceOffset,
		security:    logging.NewSecurityLogger(),
		log:         logging.WithComponent("auth"),
	}

	expireAfter := s.expireAfterFor(opts.InactivityTimeout)
	s.cache = cache.New(cache.Config[int64, *Authentication]{
		Name:        "auth-cache",
		ExpireAfter: expireAfter,
		OnRemoval:   s.onRemoval,
		Clock:       opts.Clock,
	})
	metrics.SetCacheExpireAfter(expireAfter)
	return s
}

// Cache exposes the authentication cache for supervision (janitor, stats).
func (s *Service) Cache() *cache.AccessCache[int64, *Authentication] {
	return s.cache
}

// AdminRole returns the role that passes every role check.
func (s *Service) AdminRole() string {
	return s.adminRole
}

// AddListener registers l for login and logout notifications.
func (s *Service) AddListener(l Listener) {
	s.listeners.add(l)
}

// RemoveListener unregisters l.
func (s *Service) RemoveListener(l Listener) bool {
	return s.listeners.remove(l)
}

func (s *Service) userLock(id int64) *sync.Mutex {
	return &s.locks[uint64(id)%lockStripes]
}

func (s *Service) setState(id int64, st State) {
	s.states.Store(id, st)
}

// Authenticate validates credentials and returns the user's Authentication,
// reusing the live one when the user is already authenticated.
func (s *Service) Authenticate(ctx context.Context, login, password string, props Properties) (*Authentication, error) {
	ip := props[PropRemoteAddr]

	if login == "" || password == "" {
		metrics.RecordLogin("denied")
		s.security.LogLoginFailure(login, ip, "empty credentials")
		return nil, &AccessError{Reason: "empty credentials"}
	}
	if !validation.IsSafeLogin(login) {
		metrics.RecordLogin("denied")
		s.security.LogLoginFailure(login, ip, "malformed login")
		return nil, &AccessError{Reason: "malformed login"}
	}

	user, err := s.resolveUser(ctx, login)
	if err != nil {
		metrics.RecordLogin("error")
		s.log.Error().Err(err).Msg("user lookup failed")
		return nil, err
	}
	if user == nil || !VerifyPassword(user.PasswordDigest, password) {
		metrics.RecordLogin("bad_credentials")
		s.security.LogLoginFailure(login, ip, "bad credentials")
		return nil, ErrBadCredentials
	}

	now := s.now()
	if err := s.checkAccount(user, now); err != nil {
		s.recordAccountFailure(login, ip, err)
		return nil, err
	}

	a, fresh, err := s.establish(ctx, user.ID, props, now)
	switch {
	case errors.Is(err, ErrAccountExpired), errors.Is(err, ErrAccountLocked), errors.Is(err, ErrBadCredentials):
		s.recordAccountFailure(login, ip, err)
		return nil, err
	case err != nil:
		metrics.RecordLogin("error")
		return nil, err
	}

	if !fresh {
		metrics.RecordLogin("reused")
		s.security.LogLoginSuccess(user.ID, user.Name, ip, true)
		return a, nil
	}

	metrics.RecordLogin("success")
	metrics.SetAuthenticatedUsers(s.cache.Size())
	s.security.LogLoginSuccess(user.ID, user.Name, ip, false)
	s.listeners.fireLogin(a.User(), props)
	return a, nil
}

// checkAccount rejects expired or locked accounts and records the state.
func (s *Service) checkAccount(user *models.User, now time.Time) error {
	if user.IsExpired(now) {
		s.setState(user.ID, StateExpired)
		return ErrAccountExpired
	}
	if user.Locked {
		s.setState(user.ID, StateLocked)
		return ErrAccountLocked
	}
	return nil
}

func (s *Service) recordAccountFailure(login, ip string, err error) {
	switch {
	case errors.Is(err, ErrAccountExpired):
		metrics.RecordLogin("expired")
		s.security.LogLoginFailure(login, ip, "account expired")
	case errors.Is(err, ErrAccountLocked):
		metrics.RecordLogin("locked")
		s.security.LogLoginFailure(login, ip, "account locked")
	default:
		metrics.RecordLogin("bad_credentials")
		s.security.LogLoginFailure(login, ip, "bad credentials")
	}
}

// establish reuses the cached Authentication or creates one. fresh reports
// whether a new Authentication was stored. The user record is re-read under
// the per-user lock so concurrent updates are not overwritten.
func (s *Service) establish(ctx context.Context, userID int64, props Properties, now time.Time) (a *Authentication, fresh bool, err error) {
	mu := s.userLock(userID)
	mu.Lock()
	defer mu.Unlock()

	if cached, ok := s.cache.Get(userID); ok {
		return cached, false, nil
	}

	user, err := s.users.FindByID(ctx, userID)
	if errors.Is(err, store.ErrUserNotFound) {
		return nil, false, ErrBadCredentials
	}
	if err != nil {
		return nil, false, &PersistenceError{Op: "find user by id", Err: err}
	}
	if err := s.checkAccount(user, now); err != nil {
		return nil, false, err
	}

	s.setState(userID, StateAuthenticating)

	user.ConnectionCount++
	user.LastConnection = now
	if ip := props[PropRemoteAddr]; ip != "" {
		user.LastIP = ip
	}
	if err := s.users.Update(ctx, user); err != nil {
		s.setState(userID, StateAnonymous)
		return nil, false, &PersistenceError{Op: "update user", Err: err}
	}

	token, err := s.tokens.Issue(user.ID, user.Name)
	if err != nil {
		s.setState(userID, StateAnonymous)
		return nil, false, err
	}

	a = newAuthentication(token, user, props, now)
	s.cache.Put(userID, a)
	s.setState(userID, StateAuthenticated)
	return a, true, nil
}

// resolveUser finds a user by name, falling back to the numeric id.
// A missing user is reported as (nil, nil).
func (s *Service) resolveUser(ctx context.Context, login string) (*models.User, error) {
	user, err := s.users.FindByName(ctx, login)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, store.ErrUserNotFound) {
		return nil, &PersistenceError{Op: "find user by name", Err: err}
	}

	id, perr := strconv.ParseInt(login, 10, 64)
	if perr != nil || id <= 0 {
		return nil, nil
	}
	user, err = s.users.FindByID(ctx, id)
	if errors.Is(err, store.ErrUserNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, &PersistenceError{Op: "find user by id", Err: err}
	}
	return user, nil
}

// Login authenticates and returns a context carrying the Authentication.
func (s *Service) Login(ctx context.Context, login, password string, props Properties) (context.Context, *Authentication, error) {
	a, err := s.Authenticate(ctx, login, password, props)
	if err != nil {
		return ctx, nil, err
	}
	return NewContext(ctx, a), a, nil
}

// HasRole reports whether the current principal holds role.
// No principal means a system-internal call, which is always permitted.
func (s *Service) HasRole(ctx context.Context, role string) bool {
	a, ok := FromContext(ctx)
	if !ok {
		return true
	}
	if len(a.Roles) == 0 {
		return false
	}
	return s.authz.Allowed(a.Roles, role)
}

// CheckRole returns an *AccessError naming role when HasRole is false.
func (s *Service) CheckRole(ctx context.Context, role string) error {
	if s.HasRole(ctx, role) {
		return nil
	}
	var userID int64
	if a, ok := FromContext(ctx); ok {
		userID = a.UserID
	}
	s.security.LogAccessDenied(userID, role)
	return &AccessError{Role: role}
}

// Invalidate logs user out. A principal in ctx may only invalidate itself
// unless it holds the admin role. It reports whether an Authentication existed.
func (s *Service) Invalidate(ctx context.Context, user *models.User, props Properties) (bool, error) {
	if user == nil || user.ID <= 0 {
		return false, nil
	}
	if caller, ok := FromContext(ctx); ok && caller.UserID != user.ID && !s.authz.Allowed(caller.Roles, s.adminRole) {
		s.security.LogAccessDenied(caller.UserID, s.adminRole)
		return false, &AccessError{Role: s.adminRole}
	}

	props = props.Clone()
	if caller, ok := FromContext(ctx); ok && caller.UserID != user.ID {
		props[PropInvalidateBy] = caller.Username
	}
	return s.invalidateID(user.ID, props), nil
}

// InvalidateAuthentication logs out the owner of a, provided a is still the
// live Authentication for that user.
func (s *Service) InvalidateAuthentication(a *Authentication, props Properties) bool {
	if a == nil {
		return false
	}
	live, ok := s.cache.Get(a.UserID)
	if !ok || !sameToken(live.Token, a.Token) {
		return false
	}
	return s.invalidateID(a.UserID, props.Clone())
}

func (s *Service) invalidateID(id int64, props Properties) bool {
	if _, set := props[PropLogoutCause]; !set {
		props[PropLogoutCause] = LogoutExplicit
	}
	s.logoutProps.Store(id, props)
	removed := s.cache.Invalidate(id)
	if !removed {
		s.logoutProps.Delete(id)
	}
	return removed
}

// InvalidateAll logs out every authenticated user and clears the cache.
// It returns the number of users logged out.
func (s *Service) InvalidateAll() int {
	n := 0
	for _, u := range s.AuthenticatedUsers() {
		if s.invalidateID(u.ID, Properties{PropLogoutCause: LogoutInvalidateAll}) {
			n++
		}
	}
	// Entries not reachable through the enumeration above.
	n += s.cache.InvalidateAll()
	return n
}

// onRemoval is the cache removal listener. It fires OnLogout for every
// removal except replacement.
func (s *Service) onRemoval(r cache.Removal[int64, *Authentication]) {
	metrics.RecordCacheRemoval(r.Cause.String())
	if r.Cause == cache.CauseReplaced {
		return
	}

	props := Properties{}
	if stashed, ok := s.logoutProps.LoadAndDelete(r.Key); ok {
		props = stashed.(Properties)
	}
	switch r.Cause {
	case cache.CauseExpired:
		props[PropLogoutCause] = LogoutExpired
		s.setState(r.Key, StateExpired)
	default:
		if _, set := props[PropLogoutCause]; !set {
			props[PropLogoutCause] = LogoutExplicit
		}
		s.setState(r.Key, StateLoggedOut)
	}

	user := r.Value.User()
	metrics.RecordLogout(props[PropLogoutCause])
	metrics.SetAuthenticatedUsers(s.cache.Size())
	s.security.LogLogout(user.ID, user.Name, props[PropLogoutCause])
	s.listeners.fireLogout(user, props)
}

// GetUser resolves the current principal back to the persisted user.
// ok is false when ctx carries no principal or its Authentication is no
// longer live.
func (s *Service) GetUser(ctx context.Context) (*models.User, bool, error) {
	a, ok := FromContext(ctx)
	if !ok {
		return nil, false, nil
	}
	return s.GetUserByAuthentication(ctx, a)
}

// GetUserByAuthentication resolves a to the persisted user, provided a is
// still live in the cache.
func (s *Service) GetUserByAuthentication(ctx context.Context, a *Authentication) (*models.User, bool, error) {
	if a == nil {
		return nil, false, nil
	}

	var userID int64
	for id, live := range s.cache.Snapshot() {
		if sameToken(live.Token, a.Token) {
			userID = id
			break
		}
	}
	if userID == 0 {
		return nil, false, nil
	}

	user, err := s.users.FindByID(ctx, userID)
	if errors.Is(err, store.ErrUserNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, &PersistenceError{Op: "find user by id", Err: err}
	}
	return user, true, nil
}

// GetAuthentication returns the live Authentication holding token.
// The lookup counts as activity and refreshes the entry.
func (s *Service) GetAuthentication(token string) (*Authentication, bool) {
	if token == "" || s.tokens == nil {
		return nil, false
	}
	claims, err := s.tokens.Parse(token)
	if err != nil {
		return nil, false
	}
	id, err := claims.UserID()
	if err != nil {
		return nil, false
	}
	live, ok := s.cache.Get(id)
	if !ok || !sameToken(live.Token, token) {
		return nil, false
	}
	return live, true
}

// AuthenticatedUsers returns snapshots of all users with a live
// Authentication, ordered by id.
func (s *Service) AuthenticatedUsers() []*models.User {
	snap := s.cache.Snapshot()
	users := make([]*models.User, 0, len(snap))
	for _, a := range snap {
		users = append(users, a.User())
	}
	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })
	return users
}

// IsAuthenticated reports whether userID has a live Authentication.
func (s *Service) IsAuthenticated(userID int64) bool {
	return s.cache.Contains(userID)
}

// State returns the lifecycle state of userID.
func (s *Service) State(userID int64) State {
	if s.cache.Contains(userID) {
		return StateAuthenticated
	}
	v, ok := s.states.Load(userID)
	if !ok {
		return StateAnonymous
	}
	st := v.(State)
	if st == StateAuthenticated {
		// Expired but not yet swept.
		return StateExpired
	}
	return st
}

// SetInactivityTimeout reconfigures the cache for a timeout in minutes.
// Existing authentications are kept.
func (s *Service) SetInactivityTimeout(minutes int) {
	expireAfter := s.expireAfterFor(minutes)
	s.cache.Reconfigure(expireAfter)
	metrics.SetCacheExpireAfter(expireAfter)
	s.log.Info().
		Int("inactivity_timeout_minutes", minutes).
		Dur("expire_after", expireAfter).
		Msg("authentication cache expiry updated")
}

func (s *Service) expireAfterFor(minutes int) time.Duration {
	if minutes <= 0 {
		return 0
	}
	return time.Duration(minutes)*time.Minute + s.graceOffset
}

// OnPropertyChanged reacts to session.inactivity_timeout changes.
func (s *Service) OnPropertyChanged(change config.PropertyChange) {
	if change.Name != config.PropertySessionInactivityTimeout {
		return
	}
	s.SetInactivityTimeout(change.New)
}

// BindProperties applies the current inactivity timeout from props, when set,
// and follows later changes. The returned function stops following.
func (s *Service) BindProperties(props *config.Properties) func() {
	if minutes, ok := props.Get(config.PropertySessionInactivityTimeout); ok {
		s.SetInactivityTimeout(minutes)
	}
	return props.Subscribe(config.PropertySessionInactivityTimeout, s.OnPropertyChanged)
}

func sameToken(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
