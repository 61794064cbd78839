// ID Commons - Authentication Cache and Session Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/idcommons

package store

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"

	"github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"
	"github.com/goccy/go-json"

	"github.com/tomtom215/idcommons/internal/logging"
	"github.com/tomtom215/idcommons/internal/models"
)

// Key prefixes
const (
	prefixUser = "user:id:"
	prefixName = "user:name:"
)

// BadgerConfig configures a BadgerUserStore.
type BadgerConfig struct {
	// Path is the BadgerDB directory. Ignored when InMemory is set.
	Path string

	// InMemory keeps all data in memory, for tests.
	InMemory bool

	// SyncWrites forces fsync after every write.
	SyncWrites bool

	// Compression enables Snappy compression of values.
	Compression bool
}

// BadgerUserStore is a UserStore persisted in BadgerDB.
//
// Users are stored as JSON under "user:id:<id>" with a secondary index
// "user:name:<name>" -> id maintained in the same transaction.
type BadgerUserStore struct {
	db *badger.DB

	mu     sync.RWMutex
	closed bool
}

// OpenBadgerUserStore opens (or creates) a BadgerDB user store.
func OpenBadgerUserStore(cfg BadgerConfig) (*BadgerUserStore, error) {
	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if cfg.Path == "" {
			return nil, errors.New("badger user store: path is required")
		}
		opts = badger.DefaultOptions(cfg.Path)
	}
	opts.SyncWrites = cfg.SyncWrites
	if cfg.Compression {
		opts.Compression = options.Snappy
	}

	// Reduce logging verbosity
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open BadgerDB: %w", err)
	}

	logging.Info().
		Str("path", cfg.Path).
		Bool("in_memory", cfg.InMemory).
		Bool("sync_writes", cfg.SyncWrites).
		Msg("User store opened")
	return &BadgerUserStore{db: db}, nil
}

func userKey(id int64) []byte {
	return []byte(prefixUser + strconv.FormatInt(id, 10))
}

func nameKey(name string) []byte {
	return []byte(prefixName + name)
}

func (s *BadgerUserStore) checkOpen() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrStoreClosed
	}
	return nil
}

// getUser reads a user inside txn.
func getUser(txn *badger.Txn, id int64) (*models.User, error) {
	item, err := txn.Get(userKey(id))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user %d: %w", id, err)
	}

	var u models.User
	err = item.Value(func(val []byte) error {
		return json.Unmarshal(val, &u)
	})
	if err != nil {
		return nil, fmt.Errorf("unmarshal user %d: %w", id, err)
	}
	return &u, nil
}

// FindByName returns the user with the given login name.
func (s *BadgerUserStore) FindByName(ctx context.Context, name string) (*models.User, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var user *models.User
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(nameKey(name))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrUserNotFound
		}
		if err != nil {
			return fmt.Errorf("get name index: %w", err)
		}

		var id int64
		err = item.Value(func(val []byte) error {
			var perr error
			id, perr = strconv.ParseInt(string(val), 10, 64)
			return perr
		})
		if err != nil {
			return fmt.Errorf("decode name index: %w", err)
		}

		user, err = getUser(txn, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

// FindByID returns the user with the given id.
func (s *BadgerUserStore) FindByID(ctx context.Context, id int64) (*models.User, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var user *models.User
	err := s.db.View(func(txn *badger.Txn) error {
		var err error
		user, err = getUser(txn, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

// Update replaces an existing user.
func (s *BadgerUserStore) Update(ctx context.Context, user *models.User) error {
	return s.write(ctx, user, true)
}

// Save inserts or replaces a user.
func (s *BadgerUserStore) Save(ctx context.Context, user *models.User) error {
	return s.write(ctx, user, false)
}

func (s *BadgerUserStore) write(ctx context.Context, user *models.User, mustExist bool) error {
	if err := validateUser(user); err != nil {
		return err
	}
	if err := s.checkOpen(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("marshal user %d: %w", user.ID, err)
	}

	return s.db.Update(func(txn *badger.Txn) error {
		old, err := getUser(txn, user.ID)
		switch {
		case errors.Is(err, ErrUserNotFound):
			if mustExist {
				return fmt.Errorf("update user %d: %w", user.ID, ErrUserNotFound)
			}
		case err != nil:
			return err
		}

		// Name must not belong to someone else.
		item, err := txn.Get(nameKey(user.Name))
		switch {
		case err == nil:
			var owner string
			if verr := item.Value(func(val []byte) error {
				owner = string(val)
				return nil
			}); verr != nil {
				return fmt.Errorf("read name index: %w", verr)
			}
			if owner != strconv.FormatInt(user.ID, 10) {
				return fmt.Errorf("save user %d: name %q in use: %w", user.ID, user.Name, ErrInvalidUser)
			}
		case !errors.Is(err, badger.ErrKeyNotFound):
			return fmt.Errorf("get name index: %w", err)
		}

		if old != nil && old.Name != user.Name {
			if err := txn.Delete(nameKey(old.Name)); err != nil {
				return fmt.Errorf("delete old name index: %w", err)
			}
		}
		if err := txn.Set(userKey(user.ID), data); err != nil {
			return fmt.Errorf("set user %d: %w", user.ID, err)
		}
		if err := txn.Set(nameKey(user.Name), []byte(strconv.FormatInt(user.ID, 10))); err != nil {
			return fmt.Errorf("set name index: %w", err)
		}
		return nil
	})
}

// Count returns the number of stored users.
func (s *BadgerUserStore) Count() (int, error) {
	if err := s.checkOpen(); err != nil {
		return 0, err
	}

	n := 0
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte(prefixUser)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			n++
		}
		return nil
	})
	return n, err
}

// Close closes the underlying database. Further calls return ErrStoreClosed.
func (s *BadgerUserStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	logging.Info().Msg("Closing user store")
	return s.db.Close()
}
