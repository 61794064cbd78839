// ID Commons - Authentication Cache and Session Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/idcommons

package websocket

import (
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/tomtom215/idcommons/internal/logging"
)

const (
	defaultWriteWait      = 10 * time.Second
	defaultPingPeriod     = 30 * time.Second
	defaultMaxMessageSize = 64 * 1024
)

// SessionConfig tunes connection keepalive and limits.
type SessionConfig struct {
	WriteWait      time.Duration
	PingPeriod     time.Duration
	MaxMessageSize int64
}

func (c SessionConfig) withDefaults() SessionConfig {
	if c.WriteWait <= 0 {
		c.WriteWait = defaultWriteWait
	}
	if c.PingPeriod <= 0 {
		c.PingPeriod = defaultPingPeriod
	}
	if c.MaxMessageSize <= 0 {
		c.MaxMessageSize = defaultMaxMessageSize
	}
	return c
}

// pongWait must exceed the ping period so one missed pong is tolerated.
func (c SessionConfig) pongWait() time.Duration {
	return c.PingPeriod * 10 / 9
}

// Session is a Transport over a gorilla/websocket connection.
type Session struct {
	id         string
	remoteAddr string
	conn       *websocket.Conn
	cfg        SessionConfig

	// writeMu serializes writers; gorilla allows one concurrent writer.
	writeMu sync.Mutex
	closed  atomic.Bool
	done    chan struct{}

	attrs Attributes
}

// NewSession wraps conn. remoteAddr is the client address as seen by the
// HTTP layer, which may differ from conn.RemoteAddr behind a proxy.
func NewSession(conn *websocket.Conn, remoteAddr string, cfg SessionConfig) *Session {
	if remoteAddr == "" {
		remoteAddr = conn.RemoteAddr().String()
	}
	return &Session{
		id:         uuid.NewString(),
		remoteAddr: remoteAddr,
		conn:       conn,
		cfg:        cfg.withDefaults(),
		done:       make(chan struct{}),
	}
}

// ID implements Transport.
func (s *Session) ID() string { return s.id }

// RemoteAddr implements Transport.
func (s *Session) RemoteAddr() string { return s.remoteAddr }

// IsOpen implements Transport.
func (s *Session) IsOpen() bool { return !s.closed.Load() }

// Attributes implements Transport.
func (s *Session) Attributes() *Attributes { return &s.attrs }

// Send implements Transport.
func (s *Session) Send(frame []byte) error {
	if s.closed.Load() {
		return ErrSessionClosed
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if err := s.conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteWait)); err != nil {
		return err
	}
	return s.conn.WriteMessage(websocket.TextMessage, frame)
}

// Close sends a close frame and closes the connection. It is idempotent.
func (s *Session) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	close(s.done)

	s.writeMu.Lock()
	deadline := time.Now().Add(s.cfg.WriteWait)
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	if err := s.conn.WriteControl(websocket.CloseMessage, msg, deadline); err != nil && err != websocket.ErrCloseSent {
		logging.Debug().Err(err).Str("session_id", logging.SanitizeSessionID(s.id)).Msg("failed to write close message")
	}
	s.writeMu.Unlock()

	return s.conn.Close()
}

// prepareRead applies the read limit and pong-driven read deadline.
func (s *Session) prepareRead() error {
	s.conn.SetReadLimit(s.cfg.MaxMessageSize)
	if err := s.conn.SetReadDeadline(time.Now().Add(s.cfg.pongWait())); err != nil {
		return err
	}
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(s.cfg.pongWait()))
	})
	return nil
}

// keepalive pings the client until the session closes.
func (s *Session) keepalive() {
	ticker := time.NewTicker(s.cfg.PingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			s.writeMu.Lock()
			err := s.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(s.cfg.WriteWait))
			s.writeMu.Unlock()
			if err != nil {
				_ = s.Close() // best-effort cleanup, the read loop observes the error
				return
			}
		}
	}
}

// remoteHost returns the host part of addr, or addr itself when it has no port.
func remoteHost(addr string) string {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return addr
	}
	return host
}
