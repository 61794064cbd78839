// ID Commons - Authentication Cache and Session Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/idcommons

package services

import (
	"context"
	"errors"

	"github.com/thejerf/suture/v4"

	"github.com/tomtom215/idcommons/internal/websocket"
)

// Dispatcher matches *websocket.Dispatcher's loop methods.
type Dispatcher interface {
	Serve(ctx context.Context) error
	Stop()
}

// DispatcherService runs the WebSocket dispatch loop under suture.
//
// An explicit Stop is final: the service reports suture.ErrDoNotRestart so the
// supervisor does not bring the loop back.
type DispatcherService struct {
	dispatcher Dispatcher
	name       string
}

// NewDispatcherService wraps d.
func NewDispatcherService(d Dispatcher) *DispatcherService {
	return &DispatcherService{
		dispatcher: d,
		name:       "ws-dispatcher",
	}
}

// Serve implements suture.Service.
func (s *DispatcherService) Serve(ctx context.Context) error {
	err := s.dispatcher.Serve(ctx)
	if errors.Is(err, websocket.ErrDispatcherStopped) {
		return suture.ErrDoNotRestart
	}
	return err
}

// String implements fmt.Stringer for supervisor logs.
func (s *DispatcherService) String() string {
	return s.name
}
