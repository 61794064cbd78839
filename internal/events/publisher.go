// ID Commons - Authentication Cache and Session Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/idcommons

package events

import (
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/idcommons/internal/auth"
	"github.com/tomtom215/idcommons/internal/config"
	"github.com/tomtom215/idcommons/internal/logging"
	"github.com/tomtom215/idcommons/internal/metrics"
	"github.com/tomtom215/idcommons/internal/models"
)

// ErrPublisherClosed is returned after Close.
var ErrPublisherClosed = errors.New("event publisher is closed")

// Publisher turns authentication notifications into bus messages.
type Publisher struct {
	publisher message.Publisher
	topic     string
	breaker   *gobreaker.CircuitBreaker[struct{}]
	now       func() time.Time

	mu     sync.RWMutex
	closed bool

	// onClose releases backend resources after the publisher closes.
	onClose []func() error

	log zerolog.Logger
}

// NewPublisher wraps an existing Watermill publisher.
func NewPublisher(pub message.Publisher, topic string) *Publisher {
	if topic == "" {
		topic = "auth.events"
	}
	return &Publisher{
		publisher: pub,
		topic:     topic,
		breaker:   newBreaker("event-publisher"),
		now:       time.Now,
		log:       logging.WithComponent("events"),
	}
}

// New builds a Publisher for the configured backend and a subscriber on
// the same bus. For the NATS backend with EmbeddedNATS set, an in-process
// server is started and shut down by Publisher.Close.
func New(cfg config.EventsConfig) (*Publisher, message.Subscriber, error) {
	switch cfg.Backend {
	case "", "gochannel":
		bus := NewGoChannel()
		return NewPublisher(bus, cfg.Topic), bus, nil
	case "nats":
		return newNATS(cfg)
	default:
		return nil, nil, fmt.Errorf("unknown events backend %q", cfg.Backend)
	}
}

func newNATS(cfg config.EventsConfig) (*Publisher, message.Subscriber, error) {
	var cleanup []func() error
	fail := func(err error) (*Publisher, message.Subscriber, error) {
		for i := len(cleanup) - 1; i >= 0; i-- {
			_ = cleanup[i]()
		}
		return nil, nil, err
	}

	url := cfg.NATSURL
	if cfg.EmbeddedNATS {
		srv, err := StartEmbeddedServer(cfg.EmbeddedHost, cfg.EmbeddedPort)
		if err != nil {
			return fail(err)
		}
		cleanup = append(cleanup, srv.Shutdown)
		url = srv.ClientURL()
		logging.Info().Str("url", url).Msg("embedded NATS server started")
	}

	sub, err := NewNATSSubscriber(url)
	if err != nil {
		return fail(err)
	}
	cleanup = append(cleanup, sub.Close)

	pub, err := NewNATSPublisher(url)
	if err != nil {
		return fail(err)
	}

	p := NewPublisher(pub, cfg.Topic)
	// Subscriber closes before the server it is connected to.
	for i := len(cleanup) - 1; i >= 0; i-- {
		p.onClose = append(p.onClose, cleanup[i])
	}
	return p, sub, nil
}

// NewGoChannel creates the in-process bus.
func NewGoChannel() *gochannel.GoChannel {
	return gochannel.NewGoChannel(gochannel.Config{
		OutputChannelBuffer: 256,
	}, watermillLogger())
}

func watermillLogger() watermill.LoggerAdapter {
	return watermill.NewSlogLogger(logging.NewSlogLogger())
}

func newBreaker(name string) *gobreaker.CircuitBreaker[struct{}] {
	return gobreaker.NewCircuitBreaker[struct{}](gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			metrics.CircuitBreakerTransitions.WithLabelValues(name, from.String(), to.String()).Inc()
			logging.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("circuit breaker state changed")
		},
	})
}

// Topic returns the destination topic.
func (p *Publisher) Topic() string {
	return p.topic
}

// Publish sends e to the topic.
func (p *Publisher) Publish(e *Event) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrPublisherClosed
	}

	payload, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	msg := message.NewMessage(e.ID, payload)
	msg.Metadata.Set("event_type", e.Type)
	msg.Metadata.Set("user_id", strconv.FormatInt(e.UserID, 10))

	_, err = p.breaker.Execute(func() (struct{}, error) {
		return struct{}{}, p.publisher.Publish(p.topic, msg)
	})
	result := "success"
	if err != nil {
		result = "failure"
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			result = "rejected"
		}
	}
	metrics.CircuitBreakerRequests.WithLabelValues("event-publisher", result).Inc()
	if err != nil {
		return fmt.Errorf("publish %s event: %w", e.Type, err)
	}
	return nil
}

// OnLogin implements auth.Listener.
func (p *Publisher) OnLogin(user *models.User, props auth.Properties) {
	p.emit(TypeLogin, user, props)
}

// OnLogout implements auth.Listener.
func (p *Publisher) OnLogout(user *models.User, props auth.Properties) {
	p.emit(TypeLogout, user, props)
}

func (p *Publisher) emit(typ string, user *models.User, props auth.Properties) {
	e := newEvent(typ, user.ID, user.Name, props, p.now())
	if err := p.Publish(e); err != nil {
		p.log.Warn().Err(err).Int64("user_id", user.ID).Str("event_type", typ).Msg("failed to publish authentication event")
	}
}

// Close closes the underlying publisher and any backend resources.
// It is idempotent.
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	errs := []error{p.publisher.Close()}
	for _, fn := range p.onClose {
		errs = append(errs, fn())
	}
	return errors.Join(errs...)
}
