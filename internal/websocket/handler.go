// ID Commons - Authentication Cache and Session Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/idcommons

package websocket

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/tomtom215/idcommons/internal/logging"
	"github.com/tomtom215/idcommons/internal/metrics"
)

// HandlerConfig configures the upgrade endpoint.
type HandlerConfig struct {
	// AllowedOrigins lists accepted Origin values. Empty allows same-host
	// origins only; "*" allows any.
	AllowedOrigins []string

	// TokenPrefix is stripped from AUTHENTICATION payloads.
	TokenPrefix string

	Session SessionConfig
}

// Handler upgrades HTTP requests and runs the per-connection read loop.
type Handler struct {
	registry *Registry
	cfg      HandlerConfig
	upgrader websocket.Upgrader
	log      zerolog.Logger
}

// NewHandler creates the WebSocket endpoint handler.
func NewHandler(registry *Registry, cfg HandlerConfig) *Handler {
	if cfg.TokenPrefix == "" {
		cfg.TokenPrefix = DefaultTokenPrefix
	}
	h := &Handler{
		registry: registry,
		cfg:      cfg,
		log:      logging.WithComponent("ws-handler"),
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     h.checkOrigin,
	}
	return h
}

func (h *Handler) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, allowed := range h.cfg.AllowedOrigins {
		if allowed == "*" || strings.EqualFold(allowed, origin) {
			return true
		}
	}
	if len(h.cfg.AllowedOrigins) > 0 {
		return false
	}
	u, err := url.Parse(origin)
	return err == nil && strings.EqualFold(u.Host, r.Host)
}

// ServeHTTP upgrades the connection and blocks until the client disconnects.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the HTTP error.
		h.log.Debug().Err(err).Str("remote_addr", r.RemoteAddr).Msg("websocket upgrade failed")
		return
	}

	s := NewSession(conn, r.RemoteAddr, h.cfg.Session)
	h.registry.Connect(s)
	go s.keepalive()

	defer func() {
		h.registry.Disconnect(s)
		_ = s.Close() // best-effort cleanup
	}()

	h.readLoop(s)
}

func (h *Handler) readLoop(s *Session) {
	if err := s.prepareRead(); err != nil {
		h.log.Error().Err(err).Msg("failed to set read deadline")
		return
	}

	for {
		_, frame, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				h.log.Warn().Err(err).Str("session_id", logging.SanitizeSessionID(s.ID())).Msg("unexpected websocket close error")
			}
			return
		}

		msg, err := DecodeMessage(frame)
		if err != nil {
			metrics.RecordWSMessage("invalid")
			h.log.Debug().Err(err).Str("session_id", logging.SanitizeSessionID(s.ID())).Msg("ignoring malformed message")
			continue
		}
		h.handle(s, msg)
	}
}

// handle applies one inbound message and acknowledges it on the same thread.
func (h *Handler) handle(t Transport, msg *Message) {
	switch msg.Type {
	case MessageTypeAuthentication:
		h.registry.Authenticate(t, msg.Token(h.cfg.TokenPrefix))
	case MessageTypeSubscribe:
		if msg.Topic != "" {
			t.Attributes().Subscribe(msg.Topic)
		}
	case MessageTypeUnsubscribe:
		t.Attributes().Unsubscribe(msg.Topic)
	case MessageTypeData:
	case MessageTypeAck:
		return
	}
	metrics.RecordWSMessage("received")

	ack, err := msg.Ack().Encode()
	if err != nil {
		return
	}
	if err := t.Send(ack); err != nil {
		h.log.Debug().Err(err).Str("session_id", logging.SanitizeSessionID(t.ID())).Msg("failed to send ack")
	}
}
