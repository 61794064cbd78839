// ID Commons - Authentication Cache and Session Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/idcommons

package main

import (
	"context"
	"io"
	"testing"

	"github.com/tomtom215/idcommons/internal/auth"
	"github.com/tomtom215/idcommons/internal/config"
	"github.com/tomtom215/idcommons/internal/logging"
	"github.com/tomtom215/idcommons/internal/models"
	"github.com/tomtom215/idcommons/internal/store"
)

func init() {
	logging.SetLogger(logging.NewTestLogger(io.Discard))
}

func TestSeedAdmin(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemoryUserStore(&models.User{ID: 1, Name: "alice", PasswordDigest: auth.LegacyDigest("x")})
	sec := &config.SecurityConfig{AdminUsername: "root", AdminPassword: "correct horse", AdminRole: models.RoleAdmin}

	if err := seedAdmin(ctx, mem, mem, sec); err != nil {
		t.Fatalf("seedAdmin: %v", err)
	}
	root, err := mem.FindByName(ctx, "root")
	if err != nil {
		t.Fatalf("FindByName: %v", err)
	}
	if root.ID != 2 {
		t.Errorf("ID = %d, want 2 (first free id)", root.ID)
	}
	if !models.HasRole(root.Roles, models.RoleAdmin) {
		t.Errorf("roles = %v", root.Roles)
	}
	if !auth.VerifyPassword(root.PasswordDigest, "correct horse") {
		t.Error("seeded password does not verify")
	}

	// Idempotent.
	if err := seedAdmin(ctx, mem, mem, sec); err != nil {
		t.Fatalf("second seedAdmin: %v", err)
	}
	if mem.Len() != 2 {
		t.Errorf("Len() = %d, want 2", mem.Len())
	}
}

func TestSeedAdmin_Skips(t *testing.T) {
	tests := []struct {
		name    string
		sec     *config.SecurityConfig
		wantErr bool
	}{
		{"no admin configured", &config.SecurityConfig{}, false},
		{"missing password", &config.SecurityConfig{AdminUsername: "root", AdminRole: models.RoleAdmin}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mem := store.NewMemoryUserStore()
			err := seedAdmin(context.Background(), mem, mem, tt.sec)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if mem.Len() != 0 {
				t.Errorf("Len() = %d, want 0", mem.Len())
			}
		})
	}
}

func TestOpenUserStore(t *testing.T) {
	users, seeder, closeFn, err := openUserStore(&config.StoreConfig{Backend: "memory"})
	if err != nil {
		t.Fatal(err)
	}
	defer closeFn()
	if users == nil || seeder == nil {
		t.Fatal("nil store")
	}

	if _, _, _, err := openUserStore(&config.StoreConfig{Backend: "postgres"}); err == nil {
		t.Error("unknown backend should fail")
	}

	dir := t.TempDir()
	_, _, closeBadger, err := openUserStore(&config.StoreConfig{Backend: "badger", Path: dir})
	if err != nil {
		t.Fatalf("badger: %v", err)
	}
	closeBadger()
	closeBadger()
}
