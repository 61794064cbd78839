// ID Commons - Authentication Cache and Session Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/idcommons

/*
Package logging provides the zerolog-based structured logger shared by every
ID Commons component.

The package keeps a single global logger configured once from main():

	logging.Init(logging.Config{Level: "info", Format: "json"})
	logging.Info().Int64("user_id", id).Msg("user logged in")

Components derive child loggers with a fixed "component" field:

	log := logging.WithComponent("auth-cache")
	log.Warn().Err(err).Msg("removal listener failed")

Context-aware logging picks up correlation IDs placed on a context.Context by
the HTTP middleware:

	logging.Ctx(ctx).Info().Msg("login accepted")

Authentication events (login success/failure, logout, session moves) go
through SecurityLogger, which sanitizes tokens and user input before they
reach the log sink.

An slog.Handler adapter (SlogHandler) bridges the zerolog backend to
libraries that require *slog.Logger, such as sutureslog.
*/
package logging
