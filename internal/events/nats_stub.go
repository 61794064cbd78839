// ID Commons - Authentication Cache and Session Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/idcommons

//go:build !nats

package events

import (
	"fmt"

	"github.com/ThreeDotsLabs/watermill/message"
)

// NewNATSPublisher returns an error in non-NATS builds.
func NewNATSPublisher(_ string) (message.Publisher, error) {
	return nil, fmt.Errorf("NATS publisher not available: build with -tags=nats")
}

// NewNATSSubscriber returns an error in non-NATS builds.
func NewNATSSubscriber(_ string) (message.Subscriber, error) {
	return nil, fmt.Errorf("NATS subscriber not available: build with -tags=nats")
}
