// ID Commons - Authentication Cache and Session Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/idcommons

//go:build !nats

package events

import "fmt"

// EmbeddedServer is unavailable without the nats build tag.
type EmbeddedServer struct{}

// StartEmbeddedServer returns an error in non-NATS builds.
func StartEmbeddedServer(_ string, _ int) (*EmbeddedServer, error) {
	return nil, fmt.Errorf("NATS server not available: build with -tags=nats")
}

// ClientURL returns an empty string for the stub.
func (s *EmbeddedServer) ClientURL() string {
	return ""
}

// IsRunning always returns false for the stub.
func (s *EmbeddedServer) IsRunning() bool {
	return false
}

// Shutdown is a no-op stub.
func (s *EmbeddedServer) Shutdown() error {
	return nil
}
