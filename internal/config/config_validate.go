// ID Commons - Authentication Cache and Session Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/idcommons

package config

import (
	"fmt"
	"strings"

	"github.com/tomtom215/idcommons/internal/validation"
)

// Validate checks struct tags first, then cross-field rules.
func (c *Config) Validate() error {
	if err := validation.ValidateStruct(c); err != nil {
		return err
	}

	if err := c.validateSecurity(); err != nil {
		return err
	}

	return c.validateEvents()
}

// validateSecurity rejects settings that are unsafe in production.
func (c *Config) validateSecurity() error {
	if (c.Security.AdminUsername == "") != (c.Security.AdminPassword == "") {
		return fmt.Errorf("ADMIN_USERNAME and ADMIN_PASSWORD must be set together")
	}

	if c.Server.Environment != "production" {
		return nil
	}
	for _, origin := range c.Security.CORSOrigins {
		if strings.TrimSpace(origin) == "*" {
			return fmt.Errorf("wildcard CORS origin is not allowed in production")
		}
	}
	for _, origin := range c.Notify.AllowedOrigins {
		if strings.TrimSpace(origin) == "*" {
			return fmt.Errorf("wildcard WebSocket origin is not allowed in production")
		}
	}
	return nil
}

func (c *Config) validateEvents() error {
	if !c.Events.Enabled || c.Events.Backend != "nats" {
		return nil
	}
	if c.Events.EmbeddedNATS {
		if c.Events.EmbeddedHost == "" {
			return fmt.Errorf("NATS_HOST is required for the embedded NATS server")
		}
		return nil
	}
	if !strings.HasPrefix(c.Events.NATSURL, "nats://") && !strings.HasPrefix(c.Events.NATSURL, "tls://") {
		return fmt.Errorf("NATS_URL must use the nats:// or tls:// scheme")
	}
	return nil
}
