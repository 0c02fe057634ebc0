// Auditrail - Audit Event Logging and Risk Assessment
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/auditrail

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tomtom215/auditrail/internal/api"
	"github.com/tomtom215/auditrail/internal/audit"
	"github.com/tomtom215/auditrail/internal/auth"
	"github.com/tomtom215/auditrail/internal/authz"
	"github.com/tomtom215/auditrail/internal/config"
	"github.com/tomtom215/auditrail/internal/database"
	"github.com/tomtom215/auditrail/internal/exportstore"
	"github.com/tomtom215/auditrail/internal/logging"
	"github.com/tomtom215/auditrail/internal/retention"
	"github.com/tomtom215/auditrail/internal/risk"
	"github.com/tomtom215/auditrail/internal/supervisor"
	"github.com/tomtom215/auditrail/internal/supervisor/services"
	ws "github.com/tomtom215/auditrail/internal/websocket"
)

//nolint:gocyclo // sequential wiring of every component
func main() {
	cfg, err := config.LoadWithKoanf()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	logging.Info().
		Str("environment", cfg.Server.Environment).
		Str("database", cfg.Database.Driver).
		Bool("nats", cfg.NATS.Enabled).
		Msg("Starting Auditrail")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// === DATA LAYER ===

	db, err := database.Open(ctx, cfg.Database)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to open database")
	}
	defer func() {
		if err := db.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing database")
		}
	}()

	store, err := db.AuditStore(ctx)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize audit schema")
	}

	writer := audit.NewWriter(store, audit.WriterConfig{
		DefaultRetentionDays: cfg.Audit.DefaultRetentionDays,
		Regulations:          cfg.Audit.Regulations,
	})

	if cfg.Risk.Enabled {
		engine, err := newRiskEngine(store, cfg.Risk)
		if err != nil {
			logging.Fatal().Err(err).Msg("Failed to configure risk engine")
		}
		writer.SetRiskScorer(engine)
		logging.Info().
			Int("business_hour_start", cfg.Risk.BusinessHourStart).
			Int("business_hour_end", cfg.Risk.BusinessHourEnd).
			Msg("Risk engine enabled")
	}

	var policies *retention.BadgerStore
	if cfg.Retention.Enabled {
		policies, err = retention.Open(retention.Config{
			Path:        cfg.Retention.Path,
			SyncWrites:  true,
			Compression: true,
		})
		if err != nil {
			logging.Fatal().Err(err).Msg("Failed to open retention policy store")
		}
		defer func() {
			if err := policies.Close(); err != nil {
				logging.Error().Err(err).Msg("Error closing retention policy store")
			}
		}()
		writer.SetPolicyStore(policies)
		logging.Info().Str("path", cfg.Retention.Path).Msg("Retention policy store opened")
	}

	// === AUTHORIZATION ===

	enforcer, err := authz.NewEnforcer(authz.Config{
		ModelPath:  cfg.Security.Casbin.ModelPath,
		PolicyPath: cfg.Security.Casbin.PolicyPath,
		CacheTTL:   cfg.Security.Casbin.CacheTTL,
		CacheSize:  authz.DefaultConfig().CacheSize,
	})
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize authorization")
	}

	tokens, err := auth.NewTokenManager(cfg.Security.JWTSecret, cfg.Security.JWTIssuer, cfg.Security.TokenTTL)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize token manager")
	}

	// === EVENTS ===

	events, err := initEvents(ctx, cfg.NATS)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize event bus")
	}
	defer events.Close()
	writer.AddNotifier(events.Notifier())

	// === LIFECYCLE ===

	lifecycle := audit.NewLifecycle(writer, enforcer, audit.LifecycleConfig{
		CleanupLimit: cfg.Audit.CleanupLimit,
		ArchiveCap:   cfg.Audit.ArchiveCap,
		DeleteRate:   cfg.Audit.DeleteRate,
		DeleteBurst:  cfg.Audit.DeleteBurst,
	})

	sink, err := exportstore.NewFileSink(exportstore.Config{
		Dir:      cfg.Export.Dir,
		Compress: cfg.Export.Compress,
		MaxFiles: cfg.Export.MaxFiles,
	})
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize export directory")
	}
	lifecycle.SetExportSink(sink)

	// === HTTP ===

	wsHub := ws.NewHub()
	forwarder := ws.NewForwarder(wsHub, events.bus.Subscriber, events.prefix)

	handler := api.NewHandler(audit.NewQueryService(store, enforcer), lifecycle, enforcer)
	handler.AddHealthCheck("database", db.Ping)
	handler.AddHealthCheck("events", events.HealthCheck)

	router := api.NewRouter(handler, tokens, enforcer, middlewareConfig(cfg.Security))
	router.SetStreamHandler(ws.NewHandler(wsHub, enforcer, cfg.Security.CORSOrigins))

	server := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      router.SetupChi(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	// === SUPERVISOR TREE ===

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger("supervisor"), supervisor.TreeConfig{
		FailureThreshold: 5,
		FailureBackoff:   15 * time.Second,
		ShutdownTimeout:  cfg.Server.ShutdownTimeout,
	})
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to create supervisor tree")
	}

	// Data layer services
	if events.server != nil {
		tree.AddDataService(services.NewEmbeddedNATSService(events.server, cfg.Server.ShutdownTimeout))
	}
	if policies != nil {
		tree.AddDataService(services.NewGCService(policies, 0))
	}

	// Messaging layer services
	tree.AddMessagingService(wsHub)
	tree.AddMessagingService(forwarder)
	tree.AddMessagingService(services.NewCleanupScheduler(lifecycle, services.CleanupSchedulerConfig{
		Interval: cfg.Audit.CleanupInterval,
		Limit:    cfg.Audit.CleanupLimit,
	}))
	logging.Info().Dur("interval", cfg.Audit.CleanupInterval).Msg("Cleanup scheduler added to supervisor tree")

	// API layer services
	tree.AddAPIService(services.NewHTTPServerService(server, cfg.Server.ShutdownTimeout))
	logging.Info().Str("addr", server.Addr).Msg("HTTP server service added")

	// === START ===

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	logging.Info().Msg("Starting supervisor tree...")
	errCh := tree.ServeBackground(ctx)

	select {
	case <-ctx.Done():
		logging.Info().Msg("Context canceled, waiting for supervisor to finish...")
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor tree error")
		}
		cancel()
	}

	for err := range errCh {
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor shutdown error")
		}
	}

	unstopped, _ := tree.UnstoppedServiceReport()
	if len(unstopped) > 0 {
		logging.Warn().Int("count", len(unstopped)).Msg("Services failed to stop within timeout")
		for _, svc := range unstopped {
			logging.Warn().Str("service", svc.Name).Msg("Service failed to stop")
		}
	}

	logging.Info().Msg("Application stopped gracefully")
}

// newRiskEngine builds the risk engine from configuration.
func newRiskEngine(finder risk.RecordFinder, cfg config.RiskConfig) (*risk.Engine, error) {
	loc := time.Local
	if cfg.Timezone != "" {
		l, err := time.LoadLocation(cfg.Timezone)
		if err != nil {
			return nil, fmt.Errorf("load risk timezone %q: %w", cfg.Timezone, err)
		}
		loc = l
	}

	breaker := risk.DefaultBreakerConfig()
	if cfg.BreakerMinRequests > 0 {
		breaker.MinRequests = cfg.BreakerMinRequests
	}
	if cfg.BreakerFailureRatio > 0 {
		breaker.FailureRatio = cfg.BreakerFailureRatio
	}
	if cfg.BreakerTimeout > 0 {
		breaker.Timeout = cfg.BreakerTimeout
	}

	return risk.NewEngine(finder, risk.Config{
		Location:          loc,
		BusinessHourStart: cfg.BusinessHourStart,
		BusinessHourEnd:   cfg.BusinessHourEnd,
		HistoryTimeout:    cfg.HistoryTimeout,
		Breaker:           breaker,
	}), nil
}

// middlewareConfig maps security settings onto the router middleware.
func middlewareConfig(cfg config.SecurityConfig) *api.ChiMiddlewareConfig {
	mw := api.DefaultChiMiddlewareConfig()
	mw.CORSAllowedOrigins = cfg.CORSOrigins
	if cfg.RateLimitReqs > 0 {
		mw.RateLimitRequests = cfg.RateLimitReqs
	}
	if cfg.RateLimitWindow > 0 {
		mw.RateLimitWindow = cfg.RateLimitWindow
	}
	mw.RateLimitDisabled = cfg.RateLimitOff
	return mw
}
