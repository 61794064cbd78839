// ID Commons - Authentication Cache and Session Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/idcommons

package store

import (
	"context"
	"errors"

	"github.com/tomtom215/idcommons/internal/models"
)

var (
	// ErrUserNotFound is returned when no user matches the lookup.
	ErrUserNotFound = errors.New("user not found")

	// ErrInvalidUser is returned when a user cannot be saved as given.
	ErrInvalidUser = errors.New("invalid user")

	// ErrStoreClosed is returned after Close.
	ErrStoreClosed = errors.New("store closed")
)

// UserStore resolves and updates persisted users.
// Returned users are copies; mutating them does not affect the store.
type UserStore interface {
	FindByName(ctx context.Context, name string) (*models.User, error)
	FindByID(ctx context.Context, id int64) (*models.User, error)
	Update(ctx context.Context, user *models.User) error
}

// Seeder is implemented by stores that accept new users.
type Seeder interface {
	Save(ctx context.Context, user *models.User) error
}

func validateUser(user *models.User) error {
	if user == nil || user.ID <= 0 || user.Name == "" {
		return ErrInvalidUser
	}
	return nil
}
