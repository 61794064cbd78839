// ID Commons - Authentication Cache and Session Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/idcommons

package auth

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/tomtom215/idcommons/internal/authz"
	"github.com/tomtom215/idcommons/internal/config"
	"github.com/tomtom215/idcommons/internal/logging"
	"github.com/tomtom215/idcommons/internal/models"
	"github.com/tomtom215/idcommons/internal/store"
)

func init() {
	logging.SetLogger(logging.NewTestLogger(io.Discard))
}

const testSecret = "test-secret-with-at-least-32-characters!!"

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	f.now = f.now.Add(d)
	f.mu.Unlock()
}

// recordingListener captures login and logout notifications.
type recordingListener struct {
	mu      sync.Mutex
	logins  []*models.User
	logouts []*models.User
	props   []Properties
}

func (r *recordingListener) OnLogin(u *models.User, _ Properties) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.logins = append(r.logins, u)
}

func (r *recordingListener) OnLogout(u *models.User, p Properties) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.logouts = append(r.logouts, u)
	r.props = append(r.props, p)
}

func (r *recordingListener) counts() (int, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.logins), len(r.logouts)
}

func (r *recordingListener) lastLogoutProps() Properties {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.props) == 0 {
		return nil
	}
	return r.props[len(r.props)-1]
}

type fixture struct {
	svc      *Service
	users    *store.MemoryUserStore
	clock    *fakeClock
	listener *recordingListener
}

func testUsers() []*models.User {
	expired := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	return []*models.User{
		{ID: 1, Name: "alice", DisplayName: "Alice", PasswordDigest: LegacyDigest("s3cret"), Roles: []string{models.RoleUser}},
		{ID: 2, Name: "root", PasswordDigest: LegacyDigest("toor"), Roles: []string{models.RoleAdmin}},
		{ID: 3, Name: "bob", PasswordDigest: LegacyDigest("hunter2"), Roles: []string{models.RoleUser}},
		{ID: 4, Name: "locked", PasswordDigest: LegacyDigest("pw"), Locked: true},
		{ID: 5, Name: "old", PasswordDigest: LegacyDigest("pw"), ExpiresAt: &expired},
		{ID: 6, Name: "nobody", PasswordDigest: LegacyDigest("pw")},
	}
}

func newFixture(t *testing.T, timeoutMinutes int) *fixture {
	t.Helper()
	tokens, err := NewTokenIssuer(&config.SecurityConfig{JWTSecret: testSecret, TokenTTL: time.Hour})
	if err != nil {
		t.Fatalf("NewTokenIssuer: %v", err)
	}
	clock := newFakeClock()
	users := store.NewMemoryUserStore(testUsers()...)
	svc := NewService(users, tokens, Options{
		InactivityTimeout: timeoutMinutes,
		GraceOffset:       time.Minute,
		Clock:             clock.Now,
	})
	rec := &recordingListener{}
	svc.AddListener(rec)
	return &fixture{svc: svc, users: users, clock: clock, listener: rec}
}

func TestAuthenticate_Success(t *testing.T) {
	f := newFixture(t, 30)
	ctx := context.Background()

	a, err := f.svc.Authenticate(ctx, "alice", "s3cret", Properties{PropRemoteAddr: "10.0.0.1"})
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if a.UserID != 1 || a.Username != "alice" || a.Token == "" {
		t.Errorf("unexpected authentication %+v", a)
	}
	if !f.svc.IsAuthenticated(1) {
		t.Error("user should be authenticated")
	}
	if st := f.svc.State(1); st != StateAuthenticated {
		t.Errorf("State = %v, want authenticated", st)
	}

	stored, _ := f.users.FindByID(ctx, 1)
	if stored.ConnectionCount != 1 {
		t.Errorf("ConnectionCount = %d, want 1", stored.ConnectionCount)
	}
	if stored.LastIP != "10.0.0.1" {
		t.Errorf("LastIP = %q", stored.LastIP)
	}
	if !stored.LastConnection.Equal(f.clock.Now()) {
		t.Errorf("LastConnection = %v", stored.LastConnection)
	}

	if logins, _ := f.listener.counts(); logins != 1 {
		t.Errorf("logins = %d, want 1", logins)
	}
}

func TestAuthenticate_ReusesLiveAuthentication(t *testing.T) {
	f := newFixture(t, 30)
	ctx := context.Background()

	first, err := f.svc.Authenticate(ctx, "alice", "s3cret", nil)
	if err != nil {
		t.Fatalf("first: %v", err)
	}
	second, err := f.svc.Authenticate(ctx, "alice", "s3cret", nil)
	if err != nil {
		t.Fatalf("second: %v", err)
	}
	if first != second {
		t.Error("second login should return the cached authentication")
	}

	stored, _ := f.users.FindByID(ctx, 1)
	if stored.ConnectionCount != 1 {
		t.Errorf("ConnectionCount = %d, want 1 after reuse", stored.ConnectionCount)
	}
	if logins, _ := f.listener.counts(); logins != 1 {
		t.Errorf("logins = %d, want 1", logins)
	}
}

func TestAuthenticate_ConcurrentFreshLoginsFireOnce(t *testing.T) {
	f := newFixture(t, 30)
	ctx := context.Background()

	var wg sync.WaitGroup
	tokens := make([]string, 16)
	for i := range tokens {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			a, err := f.svc.Authenticate(ctx, "bob", "hunter2", nil)
			if err != nil {
				t.Errorf("Authenticate: %v", err)
				return
			}
			tokens[i] = a.Token
		}(i)
	}
	wg.Wait()

	for _, tok := range tokens[1:] {
		if tok != tokens[0] {
			t.Fatal("concurrent logins returned different authentications")
		}
	}
	if logins, _ := f.listener.counts(); logins != 1 {
		t.Errorf("logins = %d, want 1", logins)
	}
}

func TestAuthenticate_Failures(t *testing.T) {
	tests := []struct {
		name     string
		login    string
		password string
		want     error
	}{
		{"empty login", "", "x", ErrAccessDenied},
		{"empty password", "alice", "", ErrAccessDenied},
		{"unsafe login", "alice' OR 1=1", "x", ErrAccessDenied},
		{"unknown user", "mallory", "x", ErrBadCredentials},
		{"wrong password", "alice", "wrong", ErrBadCredentials},
		{"expired account", "old", "pw", ErrAccountExpired},
		{"locked account", "locked", "pw", ErrAccountLocked},
		{"unknown numeric id", "999", "x", ErrBadCredentials},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, 30)
			_, err := f.svc.Authenticate(context.Background(), tt.login, tt.password, nil)
			if !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
			if logins, _ := f.listener.counts(); logins != 0 {
				t.Errorf("logins = %d, want 0", logins)
			}
			if n := f.svc.Cache().Size(); n != 0 {
				t.Errorf("cache size = %d, want 0", n)
			}
			if users := f.svc.AuthenticatedUsers(); len(users) != 0 {
				t.Errorf("AuthenticatedUsers = %d, want 0", len(users))
			}
			if f.svc.IsAuthenticated(4) || f.svc.IsAuthenticated(5) {
				t.Error("rejected account must not be authenticated")
			}
		})
	}
}

func TestAuthenticate_StateAfterFailure(t *testing.T) {
	f := newFixture(t, 30)
	ctx := context.Background()

	_, _ = f.svc.Authenticate(ctx, "locked", "pw", nil)
	if st := f.svc.State(4); st != StateLocked {
		t.Errorf("State(locked) = %v", st)
	}
	_, _ = f.svc.Authenticate(ctx, "old", "pw", nil)
	if st := f.svc.State(5); st != StateExpired {
		t.Errorf("State(old) = %v", st)
	}
	if st := f.svc.State(42); st != StateAnonymous {
		t.Errorf("State(unknown) = %v", st)
	}
}

func TestAuthenticate_NumericFallback(t *testing.T) {
	f := newFixture(t, 30)
	a, err := f.svc.Authenticate(context.Background(), "3", "hunter2", nil)
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if a.Username != "bob" {
		t.Errorf("Username = %q, want bob", a.Username)
	}
}

func TestAuthenticate_PreDigestedCredential(t *testing.T) {
	f := newFixture(t, 30)
	digest := strings.ToUpper(LegacyDigest("s3cret"))
	if _, err := f.svc.Authenticate(context.Background(), "alice", digest, nil); err != nil {
		t.Fatalf("Authenticate with digest: %v", err)
	}
}

type brokenStore struct{ store.UserStore }

func (brokenStore) FindByName(context.Context, string) (*models.User, error) {
	return nil, errors.New("disk on fire")
}

func TestAuthenticate_PersistenceError(t *testing.T) {
	tokens, _ := NewTokenIssuer(&config.SecurityConfig{JWTSecret: testSecret})
	svc := NewService(brokenStore{}, tokens, Options{InactivityTimeout: 30})

	_, err := svc.Authenticate(context.Background(), "alice", "s3cret", nil)
	var pe *PersistenceError
	if !errors.As(err, &pe) {
		t.Fatalf("err = %v, want *PersistenceError", err)
	}
	if errors.Is(err, ErrBadCredentials) {
		t.Error("persistence failure must not look like bad credentials")
	}
}

// hookStore runs onFind once, after the first FindByName for name.
type hookStore struct {
	*store.MemoryUserStore
	name   string
	fired  atomic.Bool
	onFind func()
}

func (h *hookStore) FindByName(ctx context.Context, name string) (*models.User, error) {
	u, err := h.MemoryUserStore.FindByName(ctx, name)
	if name == h.name && h.fired.CompareAndSwap(false, true) {
		h.onFind()
	}
	return u, err
}

func newHookedService(t *testing.T, users *hookStore) *Service {
	t.Helper()
	tokens, err := NewTokenIssuer(&config.SecurityConfig{JWTSecret: testSecret, TokenTTL: time.Hour})
	if err != nil {
		t.Fatalf("NewTokenIssuer: %v", err)
	}
	return NewService(users, tokens, Options{InactivityTimeout: 30, GraceOffset: time.Minute})
}

func TestAuthenticate_InterleavedLoginKeepsConnectionCount(t *testing.T) {
	ctx := context.Background()
	users := &hookStore{MemoryUserStore: store.NewMemoryUserStore(testUsers()...), name: "alice"}
	svc := newHookedService(t, users)

	// A full login and logout of alice lands between the outer lookup and
	// the outer establish.
	users.onFind = func() {
		a, err := svc.Authenticate(ctx, "alice", "s3cret", nil)
		if err != nil {
			t.Errorf("inner Authenticate: %v", err)
			return
		}
		if !svc.InvalidateAuthentication(a, nil) {
			t.Error("inner InvalidateAuthentication = false")
		}
	}

	if _, err := svc.Authenticate(ctx, "alice", "s3cret", nil); err != nil {
		t.Fatalf("Authenticate: %v", err)
	}

	stored, err := users.FindByID(ctx, 1)
	if err != nil {
		t.Fatalf("FindByID: %v", err)
	}
	if stored.ConnectionCount != 2 {
		t.Errorf("ConnectionCount = %d, want 2", stored.ConnectionCount)
	}
}

func TestAuthenticate_ConcurrentLockIsHonored(t *testing.T) {
	ctx := context.Background()
	users := &hookStore{MemoryUserStore: store.NewMemoryUserStore(testUsers()...), name: "bob"}
	svc := newHookedService(t, users)

	users.onFind = func() {
		u, err := users.FindByID(ctx, 3)
		if err != nil {
			t.Errorf("FindByID: %v", err)
			return
		}
		u.Locked = true
		if err := users.Update(ctx, u); err != nil {
			t.Errorf("Update: %v", err)
		}
	}

	_, err := svc.Authenticate(ctx, "bob", "hunter2", nil)
	if !errors.Is(err, ErrAccountLocked) {
		t.Fatalf("err = %v, want ErrAccountLocked", err)
	}
	if svc.IsAuthenticated(3) {
		t.Error("locked user must not be authenticated")
	}
	if st := svc.State(3); st != StateLocked {
		t.Errorf("State = %v, want Locked", st)
	}

	stored, _ := users.FindByID(ctx, 3)
	if !stored.Locked {
		t.Error("lock was overwritten by login")
	}
	if stored.ConnectionCount != 0 {
		t.Errorf("ConnectionCount = %d, want 0", stored.ConnectionCount)
	}
}

func TestInactivityExpiry(t *testing.T) {
	f := newFixture(t, 1)
	ctx := context.Background()

	if _, err := f.svc.Authenticate(ctx, "alice", "s3cret", nil); err != nil {
		t.Fatal(err)
	}

	// One minute timeout plus one minute grace.
	f.clock.Advance(90 * time.Second)
	if !f.svc.IsAuthenticated(1) {
		t.Fatal("should still be authenticated inside the grace window")
	}

	f.clock.Advance(121 * time.Second)
	if f.svc.IsAuthenticated(1) {
		t.Fatal("should not be authenticated after the window")
	}
	if st := f.svc.State(1); st != StateExpired {
		t.Errorf("State = %v, want expired", st)
	}

	if n := f.svc.Cache().CleanUp(); n != 1 {
		t.Errorf("CleanUp = %d, want 1", n)
	}
	if _, logouts := f.listener.counts(); logouts != 1 {
		t.Fatalf("logouts = %d, want 1", logouts)
	}
	if cause := f.listener.lastLogoutProps()[PropLogoutCause]; cause != LogoutExpired {
		t.Errorf("logout cause = %q", cause)
	}
}

func TestActivityRefreshesExpiry(t *testing.T) {
	f := newFixture(t, 1)
	ctx := context.Background()

	a, err := f.svc.Authenticate(ctx, "alice", "s3cret", nil)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 5; i++ {
		f.clock.Advance(90 * time.Second)
		if _, ok := f.svc.GetAuthentication(a.Token); !ok {
			t.Fatalf("lookup %d: authentication expired despite activity", i)
		}
	}
}

func TestInvalidate_FiresLogoutOnce(t *testing.T) {
	f := newFixture(t, 30)
	ctx := context.Background()

	if _, err := f.svc.Authenticate(ctx, "alice", "s3cret", nil); err != nil {
		t.Fatal(err)
	}
	user := &models.User{ID: 1, Name: "alice"}

	removed, err := f.svc.Invalidate(ctx, user, Properties{"reason": "test"})
	if err != nil || !removed {
		t.Fatalf("Invalidate = %v, %v", removed, err)
	}
	removed, err = f.svc.Invalidate(ctx, user, nil)
	if err != nil || removed {
		t.Fatalf("second Invalidate = %v, %v", removed, err)
	}

	if _, logouts := f.listener.counts(); logouts != 1 {
		t.Errorf("logouts = %d, want 1", logouts)
	}
	props := f.listener.lastLogoutProps()
	if props["reason"] != "test" || props[PropLogoutCause] != LogoutExplicit {
		t.Errorf("logout props = %v", props)
	}
	if st := f.svc.State(1); st != StateLoggedOut {
		t.Errorf("State = %v, want logged_out", st)
	}
}

func TestInvalidate_RequiresSelfOrAdmin(t *testing.T) {
	f := newFixture(t, 30)
	ctx := context.Background()

	alice, _ := f.svc.Authenticate(ctx, "alice", "s3cret", nil)
	bob, _ := f.svc.Authenticate(ctx, "bob", "hunter2", nil)
	root, _ := f.svc.Authenticate(ctx, "root", "toor", nil)

	_, err := f.svc.Invalidate(NewContext(ctx, alice), &models.User{ID: bob.UserID}, nil)
	if !errors.Is(err, ErrAccessDenied) {
		t.Fatalf("err = %v, want access denied", err)
	}
	if !f.svc.IsAuthenticated(bob.UserID) {
		t.Fatal("bob must remain authenticated")
	}

	removed, err := f.svc.Invalidate(NewContext(ctx, root), &models.User{ID: bob.UserID}, nil)
	if err != nil || !removed {
		t.Fatalf("admin Invalidate = %v, %v", removed, err)
	}
	if by := f.listener.lastLogoutProps()[PropInvalidateBy]; by != "root" {
		t.Errorf("invalidated_by = %q", by)
	}
}

func TestInvalidateAuthentication_StaleToken(t *testing.T) {
	f := newFixture(t, 30)
	ctx := context.Background()

	first, _ := f.svc.Authenticate(ctx, "alice", "s3cret", nil)
	_, _ = f.svc.Invalidate(ctx, &models.User{ID: 1}, nil)
	second, _ := f.svc.Authenticate(ctx, "alice", "s3cret", nil)

	if f.svc.InvalidateAuthentication(first, nil) {
		t.Fatal("stale authentication must not log out the new one")
	}
	if !f.svc.InvalidateAuthentication(second, nil) {
		t.Fatal("live authentication should be invalidated")
	}
}

func TestInvalidateAll(t *testing.T) {
	f := newFixture(t, 30)
	ctx := context.Background()

	for _, c := range [][2]string{{"alice", "s3cret"}, {"bob", "hunter2"}, {"root", "toor"}} {
		if _, err := f.svc.Authenticate(ctx, c[0], c[1], nil); err != nil {
			t.Fatal(err)
		}
	}
	if n := f.svc.InvalidateAll(); n != 3 {
		t.Errorf("InvalidateAll = %d, want 3", n)
	}
	if _, logouts := f.listener.counts(); logouts != 3 {
		t.Errorf("logouts = %d, want 3", logouts)
	}
	if cause := f.listener.lastLogoutProps()[PropLogoutCause]; cause != LogoutInvalidateAll {
		t.Errorf("cause = %q", cause)
	}
	if users := f.svc.AuthenticatedUsers(); len(users) != 0 {
		t.Errorf("AuthenticatedUsers = %d", len(users))
	}
}

func TestHasRole(t *testing.T) {
	f := newFixture(t, 30)
	ctx := context.Background()

	alice, _ := f.svc.Authenticate(ctx, "alice", "s3cret", nil)
	root, _ := f.svc.Authenticate(ctx, "root", "toor", nil)
	nobody, _ := f.svc.Authenticate(ctx, "nobody", "pw", nil)

	tests := []struct {
		name string
		ctx  context.Context
		role string
		want bool
	}{
		{"system call", ctx, models.RoleAdmin, true},
		{"granted role", NewContext(ctx, alice), models.RoleUser, true},
		{"missing role", NewContext(ctx, alice), models.RoleAdmin, false},
		{"admin passes all", NewContext(ctx, root), "auditor", true},
		{"no roles", NewContext(ctx, nobody), models.RoleUser, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := f.svc.HasRole(tt.ctx, tt.role); got != tt.want {
				t.Errorf("HasRole = %v, want %v", got, tt.want)
			}
			err := f.svc.CheckRole(tt.ctx, tt.role)
			if (err == nil) != tt.want {
				t.Errorf("CheckRole err = %v", err)
			}
			var ae *AccessError
			if err != nil && (!errors.As(err, &ae) || ae.Role != tt.role) {
				t.Errorf("CheckRole err = %v, want AccessError for %q", err, tt.role)
			}
		})
	}
}

func TestHasRole_ConfiguredEnforcer(t *testing.T) {
	tokens, err := NewTokenIssuer(&config.SecurityConfig{JWTSecret: testSecret, TokenTTL: time.Hour})
	if err != nil {
		t.Fatalf("NewTokenIssuer: %v", err)
	}
	users := store.NewMemoryUserStore(
		&models.User{ID: 1, Name: "alice", PasswordDigest: LegacyDigest("s3cret"), Roles: []string{models.RoleUser}},
		&models.User{ID: 2, Name: "root", PasswordDigest: LegacyDigest("toor"), Roles: []string{"superuser"}},
		&models.User{ID: 3, Name: "bob", PasswordDigest: LegacyDigest("pw"), Roles: []string{models.RoleAdmin}},
	)
	svc := NewService(users, tokens, Options{
		InactivityTimeout: 30,
		Enforcer:          authz.MustNewEnforcer("superuser"),
	})
	if svc.AdminRole() != "superuser" {
		t.Fatalf("AdminRole = %q", svc.AdminRole())
	}

	ctx := context.Background()
	root, _ := svc.Authenticate(ctx, "root", "toor", nil)
	bob, _ := svc.Authenticate(ctx, "bob", "pw", nil)
	alice, _ := svc.Authenticate(ctx, "alice", "s3cret", nil)

	if !svc.HasRole(NewContext(ctx, root), "auditor") {
		t.Error("configured admin role should pass every check")
	}
	if svc.HasRole(NewContext(ctx, bob), "auditor") {
		t.Error("admin is an ordinary role under a custom admin role")
	}

	// Only the configured admin may invalidate another user.
	if _, err := svc.Invalidate(NewContext(ctx, bob), alice.User(), nil); !errors.Is(err, ErrAccessDenied) {
		t.Errorf("Invalidate by non-admin err = %v", err)
	}
	ok, err := svc.Invalidate(NewContext(ctx, root), alice.User(), nil)
	if err != nil || !ok {
		t.Errorf("Invalidate by admin = %v, %v", ok, err)
	}
}

func TestGetUser(t *testing.T) {
	f := newFixture(t, 30)
	ctx := context.Background()

	ctx2, a, err := f.svc.Login(ctx, "alice", "s3cret", nil)
	if err != nil {
		t.Fatal(err)
	}
	u, ok, err := f.svc.GetUser(ctx2)
	if err != nil || !ok {
		t.Fatalf("GetUser = %v, %v", ok, err)
	}
	if u.ID != 1 || u.ConnectionCount != 1 {
		t.Errorf("GetUser returned %+v", u)
	}

	if _, ok, _ := f.svc.GetUser(ctx); ok {
		t.Error("no principal should resolve to no user")
	}

	f.svc.InvalidateAuthentication(a, nil)
	if _, ok, _ := f.svc.GetUser(ctx2); ok {
		t.Error("logged out principal should resolve to no user")
	}
}

func TestGetAuthentication(t *testing.T) {
	f := newFixture(t, 30)
	a, _ := f.svc.Authenticate(context.Background(), "alice", "s3cret", nil)

	got, ok := f.svc.GetAuthentication(a.Token)
	if !ok || got.UserID != 1 {
		t.Fatalf("GetAuthentication = %v, %v", got, ok)
	}
	for _, tok := range []string{"", "garbage", a.Token + "x"} {
		if _, ok := f.svc.GetAuthentication(tok); ok {
			t.Errorf("token %q should not resolve", tok)
		}
	}

	other, _ := NewTokenIssuer(&config.SecurityConfig{JWTSecret: testSecret})
	forged, _ := other.Issue(1, "alice")
	if _, ok := f.svc.GetAuthentication(forged); ok {
		t.Error("validly signed but unissued token must not resolve")
	}
}

func TestAuthenticatedUsers_Sorted(t *testing.T) {
	f := newFixture(t, 30)
	ctx := context.Background()
	_, _ = f.svc.Authenticate(ctx, "bob", "hunter2", nil)
	_, _ = f.svc.Authenticate(ctx, "alice", "s3cret", nil)

	users := f.svc.AuthenticatedUsers()
	if len(users) != 2 || users[0].ID != 1 || users[1].ID != 3 {
		t.Fatalf("AuthenticatedUsers = %+v", users)
	}
}

func TestBindProperties_ReconfiguresExpiry(t *testing.T) {
	f := newFixture(t, 30)
	props := config.NewProperties(map[string]int{config.PropertySessionInactivityTimeout: 5})
	stop := f.svc.BindProperties(props)
	defer stop()

	want := 6 * time.Minute
	if got := f.svc.Cache().ExpireAfter(); got != want {
		t.Fatalf("ExpireAfter = %v, want %v", got, want)
	}

	if _, err := f.svc.Authenticate(context.Background(), "alice", "s3cret", nil); err != nil {
		t.Fatal(err)
	}

	props.Set(config.PropertySessionInactivityTimeout, 0)
	if got := f.svc.Cache().ExpireAfter(); got != 0 {
		t.Fatalf("ExpireAfter = %v, want 0", got)
	}
	if !f.svc.IsAuthenticated(1) {
		t.Fatal("reconfiguration must keep existing authentications")
	}

	f.clock.Advance(24 * time.Hour)
	if !f.svc.IsAuthenticated(1) {
		t.Fatal("no expiry configured, authentication should survive")
	}
	if _, logouts := f.listener.counts(); logouts != 0 {
		t.Errorf("logouts = %d, want 0", logouts)
	}
}

func TestOnPropertyChanged_IgnoresOtherProperties(t *testing.T) {
	f := newFixture(t, 30)
	before := f.svc.Cache().ExpireAfter()
	f.svc.OnPropertyChanged(config.PropertyChange{Name: "other", New: 1})
	if f.svc.Cache().ExpireAfter() != before {
		t.Error("unrelated property changed the expiry")
	}
}

func TestListener_PanicIsContained(t *testing.T) {
	f := newFixture(t, 30)
	var called atomic.Int32
	f.svc.AddListener(&ListenerFuncs{Login: func(*models.User, Properties) { panic("boom") }})
	after := &ListenerFuncs{Login: func(*models.User, Properties) { called.Add(1) }}
	f.svc.AddListener(after)

	if _, err := f.svc.Authenticate(context.Background(), "alice", "s3cret", nil); err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if called.Load() != 1 {
		t.Error("listener after the panicking one was not notified")
	}
	if !f.svc.RemoveListener(after) {
		t.Error("RemoveListener should report removal")
	}
	if f.svc.RemoveListener(after) {
		t.Error("second RemoveListener should report false")
	}
}

func TestListener_ReceivesCopies(t *testing.T) {
	f := newFixture(t, 30)
	f.svc.AddListener(&ListenerFuncs{Login: func(u *models.User, p Properties) {
		u.Roles[0] = "tampered"
		p[PropRemoteAddr] = "tampered"
	}})
	a, _ := f.svc.Authenticate(context.Background(), "alice", "s3cret", Properties{PropRemoteAddr: "1.2.3.4"})
	if a.Roles[0] != models.RoleUser {
		t.Error("listener mutated the cached roles")
	}
	if a.Properties[PropRemoteAddr] != "1.2.3.4" {
		t.Error("listener mutated the cached properties")
	}
}

func TestContext(t *testing.T) {
	if _, ok := FromContext(context.Background()); ok {
		t.Error("empty context should carry no authentication")
	}
	a := &Authentication{UserID: 7}
	got, ok := FromContext(NewContext(context.Background(), a))
	if !ok || got != a {
		t.Error("authentication not carried by context")
	}
	if _, ok := FromContext(NewContext(context.Background(), nil)); ok {
		t.Error("nil authentication should not be reported")
	}
}

func TestStateString(t *testing.T) {
	tests := map[State]string{
		StateAnonymous:      "anonymous",
		StateAuthenticating: "authenticating",
		StateAuthenticated:  "authenticated",
		StateExpired:        "expired",
		StateLocked:         "locked",
		StateLoggedOut:      "logged_out",
		State(99):           "unknown",
	}
	for st, want := range tests {
		if st.String() != want {
			t.Errorf("%d.String() = %q, want %q", st, st.String(), want)
		}
	}
}
