// ID Commons - Authentication Cache and Session Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/idcommons

package websocket

import (
	"sync"
	"time"
)

// outbound is one queued notification.
type outbound struct {
	msg    *Message
	frame  []byte
	target Selector
	// resolve, when set, replaces the registry scan for targeted sends.
	resolve func() []Transport
}

// dedupQueue is a bounded FIFO. Offering an item with a hash first removes
// queued items carrying the same hash.
type dedupQueue struct {
	mu       sync.Mutex
	items    []*outbound
	capacity int

	// notEmpty and notFull are level hints with capacity one.
	notEmpty chan struct{}
	notFull  chan struct{}
}

func newDedupQueue(capacity int) *dedupQueue {
	if capacity <= 0 {
		capacity = 500
	}
	return &dedupQueue{
		items:    make([]*outbound, 0, capacity),
		capacity: capacity,
		notEmpty: make(chan struct{}, 1),
		notFull:  make(chan struct{}, 1),
	}
}

func signal(ch chan struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}

// offer enqueues item, waiting up to timeout for room. It returns whether
// the item was queued and how many queued duplicates it replaced.
func (q *dedupQueue) offer(item *outbound, timeout time.Duration) (queued bool, coalesced int) {
	var timer *time.Timer
	for {
		q.mu.Lock()
		if coalesced == 0 && item.msg.Hash != nil {
			coalesced = q.removeHashLocked(*item.msg.Hash)
		}
		if len(q.items) < q.capacity {
			q.items = append(q.items, item)
			q.mu.Unlock()
			signal(q.notEmpty)
			if timer != nil {
				timer.Stop()
			}
			return true, coalesced
		}
		q.mu.Unlock()

		if timeout <= 0 {
			return false, coalesced
		}
		if timer == nil {
			timer = time.NewTimer(timeout)
		}
		select {
		case <-q.notFull:
		case <-timer.C:
			return false, coalesced
		}
	}
}

func (q *dedupQueue) removeHashLocked(hash int64) int {
	kept := q.items[:0]
	removed := 0
	for _, it := range q.items {
		if it.msg.Hash != nil && *it.msg.Hash == hash {
			removed++
			continue
		}
		kept = append(kept, it)
	}
	for i := len(kept); i < len(q.items); i++ {
		q.items[i] = nil
	}
	q.items = kept
	return removed
}

// poll dequeues the oldest item, waiting up to timeout or until stop closes.
func (q *dedupQueue) poll(timeout time.Duration, stop <-chan struct{}) (*outbound, bool) {
	var timer *time.Timer
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()
	for {
		q.mu.Lock()
		if len(q.items) > 0 {
			item := q.items[0]
			q.items[0] = nil
			q.items = q.items[1:]
			more := len(q.items) > 0
			q.mu.Unlock()
			signal(q.notFull)
			if more {
				signal(q.notEmpty)
			}
			return item, true
		}
		q.mu.Unlock()

		if timer == nil {
			timer = time.NewTimer(timeout)
		}
		select {
		case <-q.notEmpty:
		case <-timer.C:
			return nil, false
		case <-stop:
			return nil, false
		}
	}
}

func (q *dedupQueue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
