// ID Commons - Authentication Cache and Session Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/idcommons

package config

import (
	"fmt"
	"time"
)

// Config holds all application configuration.
//
// Config is immutable after Load and safe for concurrent reads.
type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Security SecurityConfig `koanf:"security"`
	Cache    CacheConfig    `koanf:"cache"`
	Notify   NotifyConfig   `koanf:"notify"`
	Store    StoreConfig    `koanf:"store"`
	Events   EventsConfig   `koanf:"events"`
	Logging  LoggingConfig  `koanf:"logging"`
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Port            int           `koanf:"port" validate:"min=1,max=65535"`
	Host            string        `koanf:"host"`
	ReadTimeout     time.Duration `koanf:"read_timeout" validate:"gt=0"`
	WriteTimeout    time.Duration `koanf:"write_timeout" validate:"gt=0"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout" validate:"gt=0"`
	Environment     string        `koanf:"environment" validate:"oneof=development staging production"`
}

// Addr returns the listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// SecurityConfig holds authentication settings.
type SecurityConfig struct {
	// JWTSecret signs session tokens (HS256).
	JWTSecret string `koanf:"jwt_secret" validate:"required,min=32"`

	// TokenTTL bounds the JWT lifetime. A token is also only valid while its
	// authentication is cached.
	TokenTTL time.Duration `koanf:"token_ttl" validate:"gt=0"`

	// AdminRole passes every role check.
	AdminRole string `koanf:"admin_role" validate:"required"`

	// InactivityTimeout is the initial session.inactivity_timeout in minutes.
	// Zero disables expiry.
	InactivityTimeout int `koanf:"inactivity_timeout" validate:"gte=0"`

	// GraceOffset is added to the inactivity timeout so clients disconnect
	// before the server evicts.
	GraceOffset time.Duration `koanf:"grace_offset" validate:"gte=0"`

	// TokenPrefix is stripped from in-band authentication tokens.
	TokenPrefix string `koanf:"token_prefix"`

	// AdminUsername and AdminPassword seed an administrator into an empty store.
	AdminUsername string `koanf:"admin_username"`
	AdminPassword string `koanf:"admin_password"`

	CORSOrigins       []string      `koanf:"cors_origins"`
	RateLimitReqs     int           `koanf:"rate_limit_reqs" validate:"gte=0"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled"`
}

// CacheConfig holds authentication cache settings.
type CacheConfig struct {
	// JanitorInterval is the period of the background expiry sweep.
	JanitorInterval time.Duration `koanf:"janitor_interval" validate:"gt=0"`
}

// NotifyConfig holds WebSocket notification settings.
type NotifyConfig struct {
	QueueCapacity int           `koanf:"queue_capacity" validate:"min=1"`
	OfferTimeout  time.Duration `koanf:"offer_timeout" validate:"gt=0"`
	PollTimeout   time.Duration `koanf:"poll_timeout" validate:"gt=0"`

	// Workers bounds parallel sends. Zero means 2 x NumCPU.
	Workers int `koanf:"workers" validate:"gte=0"`

	WriteTimeout   time.Duration `koanf:"write_timeout" validate:"gt=0"`
	PingInterval   time.Duration `koanf:"ping_interval" validate:"gt=0"`
	MaxMessageSize int64         `koanf:"max_message_size" validate:"min=512"`
	AllowedOrigins []string      `koanf:"allowed_origins"`
}

// StoreConfig selects the user store.
type StoreConfig struct {
	Backend    string `koanf:"backend" validate:"oneof=memory badger"`
	Path       string `koanf:"path" validate:"required_if=Backend badger"`
	SyncWrites bool   `koanf:"sync_writes"`
}

// EventsConfig controls publication of login and logout events.
type EventsConfig struct {
	Enabled bool   `koanf:"enabled"`
	Backend string `koanf:"backend" validate:"oneof=gochannel nats"`
	NATSURL string `koanf:"nats_url"`
	Topic   string `koanf:"topic" validate:"required"`

	// EmbeddedNATS starts an in-process NATS server and connects to it
	// instead of NATSURL. Requires the nats build tag.
	EmbeddedNATS bool   `koanf:"embedded_nats"`
	EmbeddedHost string `koanf:"embedded_host"`
	// EmbeddedPort of -1 picks a random free port.
	EmbeddedPort int `koanf:"embedded_port" validate:"gte=-1,lte=65535"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	// Level is the minimum log level: trace, debug, info, warn, error.
	Level string `koanf:"level"`

	// Format is the output format: json or console.
	Format string `koanf:"format" validate:"oneof=json console"`

	// Caller includes caller file and line number in logs.
	Caller bool `koanf:"caller"`
}

// Load reads configuration from, in increasing priority:
//  1. Built-in defaults
//  2. Config file (config.yaml if it exists, or CONFIG_PATH)
//  3. Environment variables
func Load() (*Config, error) {
	return LoadWithKoanf()
}
