// ID Commons - Authentication Cache and Session Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/idcommons

package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/tomtom215/idcommons/internal/models"
)

// MemoryUserStore is an in-memory UserStore.
type MemoryUserStore struct {
	mu     sync.RWMutex
	byID   map[int64]*models.User
	byName map[string]int64
}

// NewMemoryUserStore creates a store pre-populated with users.
func NewMemoryUserStore(users ...*models.User) *MemoryUserStore {
	s := &MemoryUserStore{
		byID:   make(map[int64]*models.User, len(users)),
		byName: make(map[string]int64, len(users)),
	}
	for _, u := range users {
		if validateUser(u) == nil {
			s.put(u.Clone())
		}
	}
	return s
}

func (s *MemoryUserStore) put(u *models.User) {
	if old, ok := s.byID[u.ID]; ok && old.Name != u.Name {
		delete(s.byName, old.Name)
	}
	s.byID[u.ID] = u
	s.byName[u.Name] = u.ID
}

// FindByName returns the user with the given login name.
func (s *MemoryUserStore) FindByName(_ context.Context, name string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byName[name]
	if !ok {
		return nil, ErrUserNotFound
	}
	return s.byID[id].Clone(), nil
}

// FindByID returns the user with the given id.
func (s *MemoryUserStore) FindByID(_ context.Context, id int64) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.byID[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	return u.Clone(), nil
}

// Update replaces an existing user.
func (s *MemoryUserStore) Update(_ context.Context, user *models.User) error {
	if err := validateUser(user); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byID[user.ID]; !ok {
		return fmt.Errorf("update user %d: %w", user.ID, ErrUserNotFound)
	}
	if id, taken := s.byName[user.Name]; taken && id != user.ID {
		return fmt.Errorf("update user %d: name %q in use: %w", user.ID, user.Name, ErrInvalidUser)
	}
	s.put(user.Clone())
	return nil
}

// Save inserts or replaces a user.
func (s *MemoryUserStore) Save(_ context.Context, user *models.User) error {
	if err := validateUser(user); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if id, taken := s.byName[user.Name]; taken && id != user.ID {
		return fmt.Errorf("save user %d: name %q in use: %w", user.ID, user.Name, ErrInvalidUser)
	}
	s.put(user.Clone())
	return nil
}

// Len returns the number of stored users.
func (s *MemoryUserStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byID)
}
