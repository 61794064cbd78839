// ID Commons - Authentication Cache and Session Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/idcommons

package websocket

import (
	"fmt"
	"strings"

	"github.com/goccy/go-json"
)

// MessageType identifies the purpose of a Message.
type MessageType string

// Message types for WebSocket communication
const (
	MessageTypeAck            MessageType = "ACK"
	MessageTypeAuthentication MessageType = "AUTHENTICATION"
	MessageTypeData           MessageType = "DATA"
	MessageTypeSubscribe      MessageType = "SUBSCRIBE"
	MessageTypeUnsubscribe    MessageType = "UNSUBSCRIBE"
)

// Valid reports whether t is a known message type.
func (t MessageType) Valid() bool {
	switch t {
	case MessageTypeAck, MessageTypeAuthentication, MessageTypeData,
		MessageTypeSubscribe, MessageTypeUnsubscribe:
		return true
	}
	return false
}

// DefaultTokenPrefix is stripped from AUTHENTICATION payloads.
const DefaultTokenPrefix = "Bearer "

// Message is the WebSocket envelope.
type Message struct {
	Topic  string          `json:"topic,omitempty"`
	Thread string          `json:"thread,omitempty"`
	Hash   *int64          `json:"hash,omitempty"`
	Data   json.RawMessage `json:"data,omitempty"`
	Type   MessageType     `json:"type"`
}

// NewMessage builds a DATA message on topic with data encoded as JSON.
func NewMessage(topic string, data any) (*Message, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("encode message data: %w", err)
	}
	return &Message{Topic: topic, Type: MessageTypeData, Data: raw}, nil
}

// WithHash sets the de-duplication hash and returns m.
func (m *Message) WithHash(hash int64) *Message {
	m.Hash = &hash
	return m
}

// Ack returns the acknowledgement for m, carrying the same thread.
func (m *Message) Ack() *Message {
	return &Message{Topic: m.Topic, Thread: m.Thread, Type: MessageTypeAck}
}

// DecodeMessage parses a client frame.
func DecodeMessage(b []byte) (*Message, error) {
	var m Message
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, fmt.Errorf("decode message: %w", err)
	}
	if !m.Type.Valid() {
		return nil, fmt.Errorf("decode message: unknown type %q", m.Type)
	}
	return &m, nil
}

// Encode returns the JSON form of m.
func (m *Message) Encode() ([]byte, error) {
	return json.Marshal(m)
}

// Token extracts the bearer token carried by an AUTHENTICATION message,
// with prefix removed. An empty result means no usable token.
func (m *Message) Token(prefix string) string {
	if len(m.Data) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(m.Data, &s); err != nil {
		return ""
	}
	s = strings.TrimSpace(s)
	if prefix != "" && len(s) >= len(prefix) && strings.EqualFold(s[:len(prefix)], prefix) {
		s = strings.TrimSpace(s[len(prefix):])
	}
	return s
}
