// ID Commons - Authentication Cache and Session Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/idcommons

package authz

import (
	_ "embed"
	"errors"
	"fmt"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	"github.com/rs/zerolog"

	"github.com/tomtom215/idcommons/internal/logging"
)

//go:embed model.conf
var embeddedModel string

// wildcard is the policy object that marks a superuser role.
const wildcard = "*"

// Enforcer wraps a Casbin enforcer loaded with the embedded role model.
type Enforcer struct {
	enforcer  *casbin.SyncedEnforcer
	adminRole string
	log       zerolog.Logger
}

// NewEnforcer creates an enforcer in which adminRole grants every role.
func NewEnforcer(adminRole string) (*Enforcer, error) {
	if adminRole == "" {
		return nil, errors.New("admin role is required")
	}

	m, err := model.NewModelFromString(embeddedModel)
	if err != nil {
		return nil, fmt.Errorf("failed to load casbin model: %w", err)
	}
	enforcer, err := casbin.NewSyncedEnforcer(m)
	if err != nil {
		return nil, fmt.Errorf("failed to create casbin enforcer: %w", err)
	}
	if _, err := enforcer.AddPolicy(adminRole, wildcard); err != nil {
		return nil, fmt.Errorf("failed to add superuser policy: %w", err)
	}

	return &Enforcer{
		enforcer:  enforcer,
		adminRole: adminRole,
		log:       logging.WithComponent("authz"),
	}, nil
}

// MustNewEnforcer is like NewEnforcer but panics on error.
func MustNewEnforcer(adminRole string) *Enforcer {
	e, err := NewEnforcer(adminRole)
	if err != nil {
		panic(err)
	}
	return e
}

// AdminRole returns the superuser role.
func (e *Enforcer) AdminRole() string {
	return e.adminRole
}

// Allowed reports whether any of roles grants required. No roles means no
// grant. Enforcement errors deny.
func (e *Enforcer) Allowed(roles []string, required string) bool {
	for _, role := range roles {
		ok, err := e.enforcer.Enforce(role, required)
		if err != nil {
			e.log.Error().Err(err).Str("role", role).Str("required", required).Msg("role enforcement failed")
			return false
		}
		if ok {
			return true
		}
	}
	return false
}
