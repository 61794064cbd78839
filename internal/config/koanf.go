// ID Commons - Authentication Cache and Session Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/idcommons

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists the paths where config files are searched in order of priority.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/idcommons/config.yaml",
}

// ConfigPathEnvVar is the environment variable that can override the config file path.
const ConfigPathEnvVar = "CONFIG_PATH"

// defaultConfig returns a Config with all default values.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			Host:            "0.0.0.0",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			Environment:     "development",
		},
		Security: SecurityConfig{
			TokenTTL:          24 * time.Hour,
			AdminRole:         "admin",
			InactivityTimeout: 30,
			GraceOffset:       time.Minute,
			TokenPrefix:       "Bearer ",
			RateLimitReqs:     20,
			RateLimitWindow:   time.Minute,
		},
		Cache: CacheConfig{
			JanitorInterval: 30 * time.Second,
		},
		Notify: NotifyConfig{
			QueueCapacity:  500,
			OfferTimeout:   250 * time.Millisecond,
			PollTimeout:    500 * time.Millisecond,
			Workers:        0,
			WriteTimeout:   10 * time.Second,
			PingInterval:   30 * time.Second,
			MaxMessageSize: 64 * 1024,
		},
		Store: StoreConfig{
			Backend:    "memory",
			Path:       "/data/users",
			SyncWrites: true,
		},
		Events: EventsConfig{
			Enabled: true,
			Backend: "gochannel",
			NATSURL:      "nats://127.0.0.1:4222",
			Topic:        "auth.events",
			EmbeddedHost: "127.0.0.1",
			EmbeddedPort: 4222,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
	}
}

// LoadWithKoanf loads configuration using Koanf v2 with layered sources:
//  1. Defaults
//  2. Config File (optional)
//  3. Environment Variables
func LoadWithKoanf() (*Config, error) {
	k := koanf.New(".")

	// Layer 1: Load defaults from struct
	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// Layer 2: Load config file (optional)
	if configPath := findConfigFile(); configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	// Layer 3: Load environment variables (highest priority)
	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// findConfigFile returns the first existing config file, or "".
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}

	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// sliceConfigPaths are parsed as comma-separated lists when they come from env vars.
var sliceConfigPaths = []string{
	"security.cors_origins",
	"notify.allowed_origins",
}

// processSliceFields converts comma-separated string values to slices.
func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		strVal, ok := k.Get(path).(string)
		if !ok || strVal == "" {
			continue
		}

		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if err := k.Set(path, trimmed); err != nil {
			return fmt.Errorf("failed to set %s: %w", path, err)
		}
	}
	return nil
}

// envMappings maps environment variable names (lower case) to koanf paths.
var envMappings = map[string]string{
	// Server
	"http_port":             "server.port",
	"http_host":             "server.host",
	"http_read_timeout":     "server.read_timeout",
	"http_write_timeout":    "server.write_timeout",
	"http_shutdown_timeout": "server.shutdown_timeout",
	"environment":           "server.environment",

	// Security
	"jwt_secret":                 "security.jwt_secret",
	"token_ttl":                  "security.token_ttl",
	"admin_role":                 "security.admin_role",
	"session_inactivity_timeout": "security.inactivity_timeout",
	"session_grace_offset":       "security.grace_offset",
	"token_prefix":               "security.token_prefix",
	"admin_username":             "security.admin_username",
	"admin_password":             "security.admin_password",
	"cors_origins":               "security.cors_origins",
	"rate_limit_requests":        "security.rate_limit_reqs",
	"rate_limit_window":          "security.rate_limit_window",
	"disable_rate_limit":         "security.rate_limit_disabled",

	// Cache
	"cache_janitor_interval": "cache.janitor_interval",

	// Notifications
	"notify_queue_capacity": "notify.queue_capacity",
	"notify_offer_timeout":  "notify.offer_timeout",
	"notify_poll_timeout":   "notify.poll_timeout",
	"notify_workers":        "notify.workers",
	"ws_write_timeout":      "notify.write_timeout",
	"ws_ping_interval":      "notify.ping_interval",
	"ws_max_message_size":   "notify.max_message_size",
	"ws_allowed_origins":    "notify.allowed_origins",

	// Store
	"store_backend":     "store.backend",
	"store_path":        "store.path",
	"store_sync_writes": "store.sync_writes",

	// Events
	"events_enabled": "events.enabled",
	"events_backend": "events.backend",
	"nats_url":       "events.nats_url",
	"events_topic":   "events.topic",
	"embedded_nats":  "events.embedded_nats",
	"nats_host":      "events.embedded_host",
	"nats_port":      "events.embedded_port",

	// Logging
	"log_level":  "logging.level",
	"log_format": "logging.format",
	"log_caller": "logging.caller",
}

// envTransformFunc maps an environment variable name to a koanf path.
// Unmapped variables return "" and are skipped.
func envTransformFunc(key string) string {
	return envMappings[strings.ToLower(key)]
}
