// ID Commons - Authentication Cache and Session Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/idcommons

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const testSecret = "0123456789abcdef0123456789abcdef"

// TestDefaultConfig verifies that defaultConfig() returns proper defaults
func TestDefaultConfig(t *testing.T) {
	cfg := defaultConfig()

	if cfg.Server.Port != 8080 {
		t.Errorf("Server.Port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Security.InactivityTimeout != 30 {
		t.Errorf("Security.InactivityTimeout = %d, want 30", cfg.Security.InactivityTimeout)
	}
	if cfg.Security.GraceOffset != time.Minute {
		t.Errorf("Security.GraceOffset = %v, want 1m", cfg.Security.GraceOffset)
	}
	if cfg.Security.TokenPrefix != "Bearer " {
		t.Errorf("Security.TokenPrefix = %q", cfg.Security.TokenPrefix)
	}
	if cfg.Notify.QueueCapacity != 500 {
		t.Errorf("Notify.QueueCapacity = %d, want 500", cfg.Notify.QueueCapacity)
	}
	if cfg.Store.Backend != "memory" {
		t.Errorf("Store.Backend = %q, want memory", cfg.Store.Backend)
	}
	if cfg.Events.Backend != "gochannel" {
		t.Errorf("Events.Backend = %q, want gochannel", cfg.Events.Backend)
	}
}

func TestLoadWithKoanf_EnvOverrides(t *testing.T) {
	t.Setenv(ConfigPathEnvVar, filepath.Join(t.TempDir(), "missing.yaml"))
	t.Setenv("JWT_SECRET", testSecret)
	t.Setenv("HTTP_PORT", "9090")
	t.Setenv("SESSION_INACTIVITY_TIMEOUT", "45")
	t.Setenv("SESSION_GRACE_OFFSET", "90s")
	t.Setenv("NOTIFY_QUEUE_CAPACITY", "64")
	t.Setenv("WS_ALLOWED_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := LoadWithKoanf()
	if err != nil {
		t.Fatalf("LoadWithKoanf() error = %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Errorf("Server.Port = %d, want 9090", cfg.Server.Port)
	}
	if cfg.Security.InactivityTimeout != 45 {
		t.Errorf("InactivityTimeout = %d, want 45", cfg.Security.InactivityTimeout)
	}
	if cfg.Security.GraceOffset != 90*time.Second {
		t.Errorf("GraceOffset = %v, want 90s", cfg.Security.GraceOffset)
	}
	if cfg.Notify.QueueCapacity != 64 {
		t.Errorf("QueueCapacity = %d, want 64", cfg.Notify.QueueCapacity)
	}
	if len(cfg.Notify.AllowedOrigins) != 2 || cfg.Notify.AllowedOrigins[1] != "https://b.example" {
		t.Errorf("AllowedOrigins = %v", cfg.Notify.AllowedOrigins)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q, want debug", cfg.Logging.Level)
	}
}

func TestLoadWithKoanf_YAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
server:
  port: 7000
security:
  jwt_secret: "` + testSecret + `"
  admin_role: superuser
store:
  backend: badger
  path: /tmp/users
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv(ConfigPathEnvVar, path)
	t.Setenv("HTTP_PORT", "7001")

	cfg, err := LoadWithKoanf()
	if err != nil {
		t.Fatalf("LoadWithKoanf() error = %v", err)
	}
	if cfg.Server.Port != 7001 {
		t.Errorf("env must override file: Port = %d, want 7001", cfg.Server.Port)
	}
	if cfg.Security.AdminRole != "superuser" {
		t.Errorf("AdminRole = %q, want superuser", cfg.Security.AdminRole)
	}
	if cfg.Store.Backend != "badger" || cfg.Store.Path != "/tmp/users" {
		t.Errorf("Store = %+v", cfg.Store)
	}
	// Untouched defaults survive.
	if cfg.Notify.PollTimeout != 500*time.Millisecond {
		t.Errorf("PollTimeout = %v, want 500ms", cfg.Notify.PollTimeout)
	}
}

func TestLoadWithKoanf_MissingSecret(t *testing.T) {
	t.Setenv(ConfigPathEnvVar, filepath.Join(t.TempDir(), "missing.yaml"))
	t.Setenv("JWT_SECRET", "")

	_, err := LoadWithKoanf()
	if err == nil {
		t.Fatal("expected error without JWT_SECRET")
	}
	if !strings.Contains(err.Error(), "JWTSecret") {
		t.Errorf("error = %v, want mention of JWTSecret", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{name: "defaults with secret", mutate: func(c *Config) {}},
		{name: "short secret", mutate: func(c *Config) { c.Security.JWTSecret = "short" }, wantErr: true},
		{name: "bad port", mutate: func(c *Config) { c.Server.Port = 70000 }, wantErr: true},
		{name: "unknown store", mutate: func(c *Config) { c.Store.Backend = "postgres" }, wantErr: true},
		{name: "badger needs path", mutate: func(c *Config) {
			c.Store.Backend = "badger"
			c.Store.Path = ""
		}, wantErr: true},
		{name: "negative timeout", mutate: func(c *Config) { c.Security.InactivityTimeout = -1 }, wantErr: true},
		{name: "zero queue", mutate: func(c *Config) { c.Notify.QueueCapacity = 0 }, wantErr: true},
		{name: "admin username without password", mutate: func(c *Config) { c.Security.AdminUsername = "root" }, wantErr: true},
		{name: "wildcard cors in production", mutate: func(c *Config) {
			c.Server.Environment = "production"
			c.Security.CORSOrigins = []string{"*"}
		}, wantErr: true},
		{name: "wildcard cors in development", mutate: func(c *Config) {
			c.Security.CORSOrigins = []string{"*"}
		}},
		{name: "nats needs nats url", mutate: func(c *Config) {
			c.Events.Backend = "nats"
			c.Events.NATSURL = "http://broker"
		}, wantErr: true},
		{name: "embedded nats ignores url", mutate: func(c *Config) {
			c.Events.Backend = "nats"
			c.Events.NATSURL = ""
			c.Events.EmbeddedNATS = true
		}},
		{name: "embedded nats needs host", mutate: func(c *Config) {
			c.Events.Backend = "nats"
			c.Events.EmbeddedNATS = true
			c.Events.EmbeddedHost = ""
		}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultConfig()
			cfg.Security.JWTSecret = testSecret
			tt.mutate(cfg)

			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestEnvTransformFunc(t *testing.T) {
	tests := map[string]string{
		"JWT_SECRET":                 "security.jwt_secret",
		"SESSION_INACTIVITY_TIMEOUT": "security.inactivity_timeout",
		"NOTIFY_WORKERS":             "notify.workers",
		"NATS_URL":                   "events.nats_url",
		"EMBEDDED_NATS":              "events.embedded_nats",
		"PATH":                       "",
	}
	for in, want := range tests {
		if got := envTransformFunc(in); got != want {
			t.Errorf("envTransformFunc(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestServerConfig_Addr(t *testing.T) {
	s := ServerConfig{Host: "127.0.0.1", Port: 8080}
	if s.Addr() != "127.0.0.1:8080" {
		t.Errorf("Addr() = %q", s.Addr())
	}
}
