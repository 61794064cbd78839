// ID Commons - Authentication Cache and Session Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/idcommons

package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/tomtom215/idcommons/internal/api"
	"github.com/tomtom215/idcommons/internal/auth"
	"github.com/tomtom215/idcommons/internal/authz"
	"github.com/tomtom215/idcommons/internal/cache"
	"github.com/tomtom215/idcommons/internal/config"
	"github.com/tomtom215/idcommons/internal/events"
	"github.com/tomtom215/idcommons/internal/logging"
	"github.com/tomtom215/idcommons/internal/supervisor"
	"github.com/tomtom215/idcommons/internal/supervisor/services"
	ws "github.com/tomtom215/idcommons/internal/websocket"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	logging.Info().
		Str("store", cfg.Store.Backend).
		Int("inactivity_timeout_minutes", cfg.Security.InactivityTimeout).
		Bool("events", cfg.Events.Enabled).
		Msg("Starting ID Commons with supervisor tree")

	users, seeder, closeStore, err := openUserStore(&cfg.Store)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to open user store")
	}
	defer closeStore()

	if err := seedAdmin(context.Background(), users, seeder, &cfg.Security); err != nil {
		closeStore()
		logging.Fatal().Err(err).Msg("Failed to seed administrator")
	}

	tokens, err := auth.NewTokenIssuer(&cfg.Security)
	if err != nil {
		closeStore()
		logging.Fatal().Err(err).Msg("Failed to initialize token issuer")
	}

	enforcer, err := authz.NewEnforcer(cfg.Security.AdminRole)
	if err != nil {
		closeStore()
		logging.Fatal().Err(err).Msg("Failed to initialize role enforcer")
	}

	opts := auth.OptionsFromConfig(&cfg.Security)
	opts.Enforcer = enforcer
	svc := auth.NewService(users, tokens, opts)
	if err := svc.Cache().RegisterMetrics(prometheus.DefaultRegisterer); err != nil {
		logging.Warn().Err(err).Msg("Failed to register authentication cache metrics")
	}
	props := config.NewProperties(map[string]int{
		config.PropertySessionInactivityTimeout: cfg.Security.InactivityTimeout,
	})
	unbind := svc.BindProperties(props)
	defer unbind()

	registry := ws.NewRegistry(svc)
	svc.AddListener(registry)

	dispatcher := ws.NewDispatcher(registry, ws.DispatcherConfig{
		QueueCapacity: cfg.Notify.QueueCapacity,
		OfferTimeout:  cfg.Notify.OfferTimeout,
		PollTimeout:   cfg.Notify.PollTimeout,
		Workers:       cfg.Notify.Workers,
	})

	wsHandler := ws.NewHandler(registry, ws.HandlerConfig{
		AllowedOrigins: cfg.Notify.AllowedOrigins,
		TokenPrefix:    cfg.Security.TokenPrefix,
		Session: ws.SessionConfig{
			WriteWait:      cfg.Notify.WriteTimeout,
			PingPeriod:     cfg.Notify.PingInterval,
			MaxMessageSize: cfg.Notify.MaxMessageSize,
		},
	})

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	if err != nil {
		closeStore()
		logging.Fatal().Err(err).Msg("Failed to create supervisor tree")
	}

	tree.AddSessionService(cache.NewJanitor(svc.Cache(), cfg.Cache.JanitorInterval))
	tree.AddNotifyService(services.NewDispatcherService(dispatcher))

	if cfg.Events.Enabled {
		publisher, subscriber, err := events.New(cfg.Events)
		if err != nil {
			closeStore()
			logging.Fatal().Err(err).Msg("Failed to initialize event publisher")
		}
		defer func() {
			if err := publisher.Close(); err != nil {
				logging.Error().Err(err).Msg("Error closing event publisher")
			}
		}()
		svc.AddListener(publisher)
		if subscriber != nil {
			tree.AddNotifyService(events.NewAuditLog(subscriber, publisher.Topic()))
		}
		logging.Info().Str("backend", cfg.Events.Backend).Str("topic", publisher.Topic()).Msg("Auth event publishing enabled")
	}

	if cfg.Security.RateLimitDisabled {
		logging.Warn().Msg("Rate limiting is DISABLED (SECURITY_RATE_LIMIT_DISABLED=true)")
	}

	handler := api.NewHandler(api.HandlerDeps{
		Auth:       svc,
		Registry:   registry,
		Dispatcher: dispatcher,
		WebSocket:  wsHandler,
		Properties: props,
	})
	router := api.NewRouter(handler, api.NewChiMiddleware(api.ChiMiddlewareConfigFromSecurity(&cfg.Security)))

	server := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      router.SetupChi(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
	tree.AddAPIService(services.NewHTTPServerService(server, cfg.Server.ShutdownTimeout))
	logging.Info().Str("addr", server.Addr).Msg("HTTP server service added")

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	logging.Info().Msg("Starting supervisor tree...")
	errCh := tree.ServeBackground(ctx)

	select {
	case <-ctx.Done():
		logging.Info().Msg("Shutdown signal received, waiting for supervisor to finish...")
		err = <-errCh
	case err = <-errCh:
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		logging.Error().Err(err).Msg("Supervisor tree error")
	}

	if n := registry.CloseAll(); n > 0 {
		logging.Info().Int("sessions", n).Msg("Closed WebSocket sessions")
	}

	unstopped, _ := tree.UnstoppedServiceReport()
	for _, s := range unstopped {
		logging.Warn().Str("service", s.Name).Msg("Service failed to stop within timeout")
	}

	logging.Info().Msg("Application stopped gracefully")
}
