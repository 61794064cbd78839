// ID Commons - Authentication Cache and Session Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/idcommons

package events

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/rs/zerolog"

	"github.com/tomtom215/idcommons/internal/logging"
)

// AuditLog consumes authentication events from a subscriber and writes
// them to the structured log. It is a suture service.
type AuditLog struct {
	subscriber message.Subscriber
	topic      string

	received  atomic.Uint64
	malformed atomic.Uint64

	log zerolog.Logger
}

// NewAuditLog creates an audit consumer for topic.
func NewAuditLog(sub message.Subscriber, topic string) *AuditLog {
	if topic == "" {
		topic = "auth.events"
	}
	return &AuditLog{
		subscriber: sub,
		topic:      topic,
		log:        logging.WithComponent("audit"),
	}
}

// Serve consumes until ctx is canceled or the subscription closes.
func (a *AuditLog) Serve(ctx context.Context) error {
	messages, err := a.subscriber.Subscribe(ctx, a.topic)
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", a.topic, err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-messages:
			if !ok {
				return ctx.Err()
			}
			a.handle(msg)
		}
	}
}

// handle always acks. A malformed payload will not become valid on
// redelivery.
func (a *AuditLog) handle(msg *message.Message) {
	defer msg.Ack()

	e, err := Decode(msg.Payload)
	if err != nil {
		a.malformed.Add(1)
		a.log.Warn().Err(err).Str("message_uuid", msg.UUID).Msg("dropping malformed auth event")
		return
	}
	a.received.Add(1)

	evt := a.log.Info().
		Str("event_id", e.ID).
		Str("event_type", e.Type).
		Int64("user_id", e.UserID).
		Str("username", logging.SanitizeUsername(e.Username)).
		Time("at", e.Timestamp)
	for k, v := range e.Properties {
		evt = evt.Str("prop_"+k, logging.SanitizeValue(k, v))
	}
	evt.Msg("auth event")
}

// Received returns the number of events logged.
func (a *AuditLog) Received() uint64 {
	return a.received.Load()
}

// Malformed returns the number of undecodable payloads dropped.
func (a *AuditLog) Malformed() uint64 {
	return a.malformed.Load()
}

func (a *AuditLog) String() string {
	return "auth-audit-log"
}
