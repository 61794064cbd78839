// ID Commons - Authentication Cache and Session Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/idcommons

package cache

import (
	"sync"
	"time"
)

// entry is a node of the access-ordered list.
type entry[K comparable, V any] struct {
	key        K
	value      V
	accessedAt time.Time
	prev       *entry[K, V]
	next       *entry[K, V]
}

// store is the internally synchronized backing structure of an AccessCache.
// head.next is the most recently accessed entry, tail.prev the least.
type store[K comparable, V any] struct {
	mu          sync.Mutex
	expireAfter time.Duration
	items       map[K]*entry[K, V]
	head        *entry[K, V]
	tail        *entry[K, V]
}

func newStore[K comparable, V any](expireAfter time.Duration, capacityHint int) *store[K, V] {
	s := &store[K, V]{
		expireAfter: expireAfter,
		items:       make(map[K]*entry[K, V], capacityHint),
		head:        &entry[K, V]{},
		tail:        &entry[K, V]{},
	}
	s.head.next = s.tail
	s.tail.prev = s.head
	return s
}

// The methods below must be called with s.mu held.

func (s *store[K, V]) isExpired(e *entry[K, V], now time.Time) bool {
	return s.expireAfter > 0 && now.Sub(e.accessedAt) > s.expireAfter
}

func (s *store[K, V]) addToFront(e *entry[K, V]) {
	e.prev = s.head
	e.next = s.head.next
	s.head.next.prev = e
	s.head.next = e
}

func (s *store[K, V]) unlink(e *entry[K, V]) {
	e.prev.next = e.next
	e.next.prev = e.prev
	e.prev, e.next = nil, nil
}

func (s *store[K, V]) touch(e *entry[K, V], now time.Time) {
	e.accessedAt = now
	s.unlink(e)
	s.addToFront(e)
}

func (s *store[K, V]) remove(e *entry[K, V]) {
	s.unlink(e)
	delete(s.items, e.key)
}

// insert adds or replaces key. The replaced entry, if any, is returned.
func (s *store[K, V]) insert(key K, value V, now time.Time) *entry[K, V] {
	var old *entry[K, V]
	if e, ok := s.items[key]; ok {
		old = &entry[K, V]{key: e.key, value: e.value, accessedAt: e.accessedAt}
		e.value = value
		s.touch(e, now)
		return old
	}
	e := &entry[K, V]{key: key, value: value, accessedAt: now}
	s.addToFront(e)
	s.items[key] = e
	return nil
}

// evictExpired unlinks every expired entry, walking from the least recently
// accessed end and stopping at the first live entry.
func (s *store[K, V]) evictExpired(now time.Time) []*entry[K, V] {
	if s.expireAfter <= 0 {
		return nil
	}
	var removed []*entry[K, V]
	for e := s.tail.prev; e != s.head; {
		prev := e.prev
		if !s.isExpired(e, now) {
			break
		}
		s.remove(e)
		removed = append(removed, e)
		e = prev
	}
	return removed
}

// drainInto moves every entry into dst, preserving access order and times.
// s is empty afterwards. dst.mu must be held as well.
func (s *store[K, V]) drainInto(dst *store[K, V]) {
	for e := s.tail.prev; e != s.head; {
		prev := e.prev
		s.remove(e)
		dst.addToFront(e)
		dst.items[e.key] = e
		e = prev
	}
}

func (s *store[K, V]) removeAll() []*entry[K, V] {
	removed := make([]*entry[K, V], 0, len(s.items))
	for e := s.head.next; e != s.tail; {
		next := e.next
		s.remove(e)
		removed = append(removed, e)
		e = next
	}
	return removed
}
