// ID Commons - Authentication Cache and Session Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/idcommons

package logging

import (
	"strings"

	"github.com/rs/zerolog"
)

// SecurityLogger writes authentication audit events. Tokens, usernames and
// free-form properties are sanitized before they reach the sink.
type SecurityLogger struct {
	logger zerolog.Logger
}

// NewSecurityLogger creates a security logger on top of the global logger.
func NewSecurityLogger() *SecurityLogger {
	return &SecurityLogger{logger: With().Str("component", "security").Logger()}
}

// NewSecurityLoggerWithLogger creates a security logger writing to logger.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func NewSecurityLoggerWithLogger(logger zerolog.Logger) *SecurityLogger {
	return &SecurityLogger{logger: logger.With().Str("component", "security").Logger()}
}

// LogLoginSuccess records a successful credential check.
// reused is true when an already-cached authentication was returned.
func (l *SecurityLogger) LogLoginSuccess(userID int64, username, ip string, reused bool) {
	l.logger.Info().
		Str("event", "login_success").
		Int64("user_id", userID).
		Str("username", SanitizeUsername(username)).
		Str("ip", ip).
		Bool("reused", reused).
		Msg("")
}

// LogLoginFailure records a rejected credential check. The login is masked
// because failed logins frequently contain passwords typed in the wrong field.
func (l *SecurityLogger) LogLoginFailure(login, ip, reason string) {
	l.logger.Warn().
		Str("event", "login_failure").
		Str("username", SanitizeUsername(login)).
		Str("ip", ip).
		Str("reason", SanitizeError(reason)).
		Msg("")
}

// LogLogout records removal of an authentication from the cache.
func (l *SecurityLogger) LogLogout(userID int64, username, cause string) {
	l.logger.Info().
		Str("event", "logout").
		Int64("user_id", userID).
		Str("username", SanitizeUsername(username)).
		Str("cause", cause).
		Msg("")
}

// LogAccessDenied records a failed role check.
func (l *SecurityLogger) LogAccessDenied(userID int64, role string) {
	l.logger.Warn().
		Str("event", "access_denied").
		Int64("user_id", userID).
		Str("role", role).
		Msg("")
}

// LogSessionBound records a transport session moving between user buckets.
func (l *SecurityLogger) LogSessionBound(sessionID, from, to string) {
	l.logger.Debug().
		Str("event", "session_bound").
		Str("session_id", SanitizeSessionID(sessionID)).
		Str("from", SanitizeUsername(from)).
		Str("to", SanitizeUsername(to)).
		Msg("")
}

// LogProperties writes properties through SanitizeValue on a debug event.
func (l *SecurityLogger) LogProperties(event string, props map[string]string) {
	e := l.logger.Debug().Str("event", event)
	for k, v := range props {
		e = e.Str(k, SanitizeValue(k, v))
	}
	e.Msg("")
}

// SanitizeToken masks a token, keeping the first and last 4 characters.
func SanitizeToken(token string) string {
	if token == "" {
		return ""
	}
	if len(token) <= 12 {
		return "***"
	}
	return token[:4] + "..." + token[len(token)-4:]
}

// SanitizeSessionID masks a transport session ID.
func SanitizeSessionID(sessionID string) string {
	return SanitizeToken(sessionID)
}

// SanitizeUsername keeps the first 2 characters of a username.
func SanitizeUsername(username string) string {
	if username == "" {
		return ""
	}
	if len(username) <= 2 {
		return "***"
	}
	return username[:2] + "***"
}

// SanitizeError replaces error text mentioning credentials with a generic message.
func SanitizeError(err string) string {
	lowerErr := strings.ToLower(err)
	for _, pattern := range []string{"secret", "token", "bearer", "authorization", "cookie", "digest"} {
		if strings.Contains(lowerErr, pattern) {
			return "authentication error"
		}
	}
	return truncateString(err, 200)
}

var sensitiveKeys = map[string]bool{
	"token":         true,
	"password":      true,
	"secret":        true,
	"authorization": true,
	"bearer":        true,
	"cookie":        true,
	"session_id":    true,
}

// SanitizeValue masks value when key names a credential.
func SanitizeValue(key, value string) string {
	if sensitiveKeys[strings.ToLower(key)] {
		return SanitizeToken(value)
	}
	return truncateString(value, 200)
}

func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
