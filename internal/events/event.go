// ID Commons - Authentication Cache and Session Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/idcommons

package events

import (
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
)

// Event types.
const (
	TypeLogin  = "login"
	TypeLogout = "logout"
)

// Event is the payload published for each login or logout.
type Event struct {
	ID         string            `json:"id"`
	Type       string            `json:"type"`
	UserID     int64             `json:"user_id"`
	Username   string            `json:"username"`
	Properties map[string]string `json:"properties,omitempty"`
	Timestamp  time.Time         `json:"timestamp"`
}

func newEvent(typ string, userID int64, username string, props map[string]string, now time.Time) *Event {
	return &Event{
		ID:         uuid.NewString(),
		Type:       typ,
		UserID:     userID,
		Username:   username,
		Properties: props,
		Timestamp:  now.UTC(),
	}
}

// Decode parses an Event payload.
func Decode(payload []byte) (*Event, error) {
	var e Event
	if err := json.Unmarshal(payload, &e); err != nil {
		return nil, fmt.Errorf("decode event: %w", err)
	}
	return &e, nil
}
