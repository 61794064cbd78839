// ID Commons - Authentication Cache and Session Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/idcommons

package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/tomtom215/idcommons/internal/auth"
	"github.com/tomtom215/idcommons/internal/config"
	"github.com/tomtom215/idcommons/internal/logging"
	"github.com/tomtom215/idcommons/internal/models"
	"github.com/tomtom215/idcommons/internal/store"
)

// maxSeedProbe bounds the search for a free user id.
const maxSeedProbe = 10000

// openUserStore opens the configured backend and wraps it in the circuit
// breaker. The returned close function is safe to call more than once.
func openUserStore(cfg *config.StoreConfig) (store.UserStore, store.Seeder, func(), error) {
	switch cfg.Backend {
	case "", "memory":
		mem := store.NewMemoryUserStore()
		logging.Warn().Msg("Using in-memory user store; users are lost on restart")
		return store.NewBreakerUserStore(mem, store.DefaultBreakerSettings()), mem, func() {}, nil

	case "badger":
		db, err := store.OpenBadgerUserStore(store.BadgerConfig{
			Path:       cfg.Path,
			SyncWrites: cfg.SyncWrites,
		})
		if err != nil {
			return nil, nil, nil, fmt.Errorf("open badger store at %s: %w", cfg.Path, err)
		}
		closed := false
		closeFn := func() {
			if closed {
				return
			}
			closed = true
			if err := db.Close(); err != nil {
				logging.Error().Err(err).Msg("Error closing user store")
			}
		}
		logging.Info().Str("path", cfg.Path).Msg("BadgerDB user store opened")
		return store.NewBreakerUserStore(db, store.DefaultBreakerSettings()), db, closeFn, nil

	default:
		return nil, nil, nil, fmt.Errorf("unknown store backend %q", cfg.Backend)
	}
}

// seedAdmin creates the configured administrator unless a user of that
// name already exists.
func seedAdmin(ctx context.Context, users store.UserStore, seeder store.Seeder, sec *config.SecurityConfig) error {
	if sec.AdminUsername == "" {
		return nil
	}

	_, err := users.FindByName(ctx, sec.AdminUsername)
	if err == nil {
		return nil
	}
	if !errors.Is(err, store.ErrUserNotFound) {
		return err
	}
	if sec.AdminPassword == "" {
		return errors.New("ADMIN_PASSWORD is required to seed the administrator")
	}

	id, err := freeUserID(ctx, users)
	if err != nil {
		return err
	}
	digest, err := auth.HashPassword(sec.AdminPassword)
	if err != nil {
		return fmt.Errorf("hash admin password: %w", err)
	}

	admin := &models.User{
		ID:             id,
		Name:           sec.AdminUsername,
		DisplayName:    "Administrator",
		PasswordDigest: digest,
		Roles:          []string{sec.AdminRole},
	}
	if err := seeder.Save(ctx, admin); err != nil {
		return fmt.Errorf("save administrator: %w", err)
	}
	logging.Info().Int64("user_id", id).Str("username", sec.AdminUsername).Msg("Administrator seeded")
	return nil
}

func freeUserID(ctx context.Context, users store.UserStore) (int64, error) {
	for id := int64(1); id <= maxSeedProbe; id++ {
		_, err := users.FindByID(ctx, id)
		if errors.Is(err, store.ErrUserNotFound) {
			return id, nil
		}
		if err != nil {
			return 0, err
		}
	}
	return 0, fmt.Errorf("no free user id below %d", maxSeedProbe)
}
