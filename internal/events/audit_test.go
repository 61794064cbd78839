// ID Commons - Authentication Cache and Session Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/idcommons

package events

import (
	"context"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/tomtom215/idcommons/internal/models"
)

func TestAuditLog_ConsumesEvents(t *testing.T) {
	bus := NewGoChannel()
	defer bus.Close()

	audit := NewAuditLog(bus, "auth.audit")
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- audit.Serve(ctx) }()

	pub := NewPublisher(bus, "auth.audit")
	user := &models.User{ID: 3, Name: "bob"}

	// gochannel drops messages published before the subscription exists.
	deadline := time.Now().Add(2 * time.Second)
	for audit.Received() == 0 && time.Now().Before(deadline) {
		pub.OnLogin(user, nil)
		time.Sleep(20 * time.Millisecond)
	}
	if audit.Received() == 0 {
		t.Fatal("audit log received nothing")
	}

	if err := bus.Publish("auth.audit", message.NewMessage(watermill.NewUUID(), []byte("{broken"))); err != nil {
		t.Fatal(err)
	}
	deadline = time.Now().Add(2 * time.Second)
	for audit.Malformed() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if audit.Malformed() != 1 {
		t.Errorf("Malformed() = %d, want 1", audit.Malformed())
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}
}

func TestAuditLog_DefaultTopic(t *testing.T) {
	a := NewAuditLog(NewGoChannel(), "")
	if a.topic != "auth.events" || a.String() != "auth-audit-log" {
		t.Errorf("topic=%q name=%q", a.topic, a.String())
	}
}
