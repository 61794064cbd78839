// ID Commons - Authentication Cache and Session Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/idcommons

package websocket

import (
	"context"
	"errors"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/tomtom215/idcommons/internal/logging"
	"github.com/tomtom215/idcommons/internal/metrics"
)

// ErrDispatcherStopped is returned by Serve after Stop.
var ErrDispatcherStopped = errors.New("dispatcher stopped")

// DispatcherConfig tunes the outbound queue.
type DispatcherConfig struct {
	// QueueCapacity bounds queued messages. Default: 500
	QueueCapacity int

	// OfferTimeout is the longest a producer waits for room. Default: 250ms
	OfferTimeout time.Duration

	// PollTimeout bounds each dequeue wait so Stop is observed. Default: 500ms
	PollTimeout time.Duration

	// Workers bounds concurrent sends per message. Default: 2 * NumCPU
	Workers int
}

func (c DispatcherConfig) withDefaults() DispatcherConfig {
	if c.QueueCapacity <= 0 {
		c.QueueCapacity = 500
	}
	if c.OfferTimeout <= 0 {
		c.OfferTimeout = 250 * time.Millisecond
	}
	if c.PollTimeout <= 0 {
		c.PollTimeout = 500 * time.Millisecond
	}
	if c.Workers <= 0 {
		c.Workers = 2 * runtime.NumCPU()
	}
	return c
}

// Dispatcher delivers queued messages to registry sessions from a single loop.
type Dispatcher struct {
	registry *Registry
	queue    *dedupQueue
	cfg      DispatcherConfig

	running  atomic.Bool
	stopOnce sync.Once
	stop     chan struct{}

	// dropLimiter throttles saturation warnings.
	dropLimiter *rate.Limiter
	dropped     atomic.Uint64

	log zerolog.Logger
}

// NewDispatcher creates a dispatcher delivering to registry's sessions.
func NewDispatcher(registry *Registry, cfg DispatcherConfig) *Dispatcher {
	cfg = cfg.withDefaults()
	return &Dispatcher{
		registry:    registry,
		queue:       newDedupQueue(cfg.QueueCapacity),
		cfg:         cfg,
		stop:        make(chan struct{}),
		dropLimiter: rate.NewLimiter(rate.Every(10*time.Second), 1),
		log:         logging.WithComponent("ws-dispatcher"),
	}
}

// Broadcast queues msg for every session.
func (d *Dispatcher) Broadcast(msg *Message) bool {
	return d.Send(msg, All())
}

// Publish queues msg for sessions subscribed to its topic.
func (d *Dispatcher) Publish(msg *Message) bool {
	return d.Send(msg, ByTopic(msg.Topic))
}

// SendToUser queues msg for username's sessions, optionally only those whose
// remote host matches remoteAddr.
func (d *Dispatcher) SendToUser(username, remoteAddr string, msg *Message) bool {
	hostFilter := ByRemoteHost(remoteAddr)
	return d.enqueue(&outbound{
		msg: msg,
		resolve: func() []Transport {
			sessions := d.registry.SessionsOf(username)
			kept := sessions[:0]
			for _, t := range sessions {
				if hostFilter(t) {
					kept = append(kept, t)
				}
			}
			return kept
		},
	})
}

// SendToUsers queues msg for sessions holding role. Anonymous sessions match
// only the anonymous role.
func (d *Dispatcher) SendToUsers(role string, msg *Message) bool {
	return d.Send(msg, ByRole(role))
}

// Send queues msg for the sessions selected by sel at delivery time.
// It reports false when the message was dropped.
func (d *Dispatcher) Send(msg *Message, sel Selector) bool {
	return d.enqueue(&outbound{msg: msg, target: sel})
}

func (d *Dispatcher) enqueue(item *outbound) bool {
	frame, err := item.msg.Encode()
	if err != nil {
		metrics.RecordWSMessage("encode_error")
		d.log.Error().Err(err).Str("topic", item.msg.Topic).Msg("failed to encode message")
		return false
	}
	item.frame = frame

	queued, coalesced := d.queue.offer(item, d.cfg.OfferTimeout)
	if coalesced > 0 {
		metrics.WSQueueCoalesced.Add(float64(coalesced))
	}
	depth := d.queue.len()
	metrics.WSQueueDepth.Set(float64(depth))
	if queued {
		return true
	}

	total := d.dropped.Add(1)
	metrics.WSQueueDropped.Inc()
	if d.dropLimiter.Allow() {
		anon, authed := d.registry.Counts()
		d.log.Warn().
			Str("topic", item.msg.Topic).
			Int("queue_depth", depth).
			Int("queue_capacity", d.cfg.QueueCapacity).
			Int("sessions_anonymous", anon).
			Int("sessions_authenticated", authed).
			Uint64("dropped_total", total).
			Msg("outbound queue saturated, dropping message")
	}
	return false
}

// QueueLen returns the number of queued messages.
func (d *Dispatcher) QueueLen() int {
	return d.queue.len()
}

// Dropped returns the number of messages dropped on saturation.
func (d *Dispatcher) Dropped() uint64 {
	return d.dropped.Load()
}

// Serve runs the dispatch loop until ctx is canceled or Stop is called.
// It returns ctx.Err() or ErrDispatcherStopped.
func (d *Dispatcher) Serve(ctx context.Context) error {
	if !d.running.CompareAndSwap(false, true) {
		return errors.New("dispatcher already running")
	}
	defer d.running.Store(false)

	d.log.Info().Int("workers", d.cfg.Workers).Int("queue_capacity", d.cfg.QueueCapacity).Msg("dispatcher started")
	for {
		select {
		case <-ctx.Done():
			d.log.Info().Int("pending", d.queue.len()).Msg("dispatcher stopped")
			return ctx.Err()
		case <-d.stop:
			d.log.Info().Int("pending", d.queue.len()).Msg("dispatcher stopped")
			return ErrDispatcherStopped
		default:
		}

		item, ok := d.queue.poll(d.cfg.PollTimeout, d.stop)
		if !ok {
			continue
		}
		metrics.WSQueueDepth.Set(float64(d.queue.len()))
		d.deliver(item)
	}
}

// Stop ends the dispatch loop after the current delivery.
func (d *Dispatcher) Stop() {
	d.stopOnce.Do(func() { close(d.stop) })
}

// String implements fmt.Stringer for supervisor logs.
func (d *Dispatcher) String() string {
	return "ws-dispatcher"
}

// deliver fans item out to its targets. Send failures are logged per session.
func (d *Dispatcher) deliver(item *outbound) {
	start := time.Now()

	var targets []Transport
	if item.resolve != nil {
		targets = item.resolve()
	} else {
		targets = d.registry.Targets(item.target)
	}
	if len(targets) == 0 {
		metrics.RecordWSMessage("no_target")
		return
	}

	var g errgroup.Group
	g.SetLimit(d.cfg.Workers)
	for _, t := range targets {
		g.Go(func() error {
			if err := t.Send(item.frame); err != nil {
				metrics.RecordWSMessage("failed")
				d.log.Warn().
					Err(err).
					Str("session_id", logging.SanitizeSessionID(t.ID())).
					Str("topic", item.msg.Topic).
					Msg("failed to deliver message")
				return nil
			}
			metrics.RecordWSMessage("delivered")
			return nil
		})
	}
	_ = g.Wait() // workers never return errors
	metrics.RecordWSDispatch(time.Since(start))
}
