// Copyright (c) 2026 Tablegate. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Command api is the entry point for the Tablegate HTTP API server.
//
// # Startup Sequence
//
//  1. Initialize structured logger.
//  2. Load configuration from environment variables.
//  3. Connect to MySQL / MariaDB.
//  4. Introspect the schema into the catalog (fatal on failure).
//  5. Load row-level policies (non-fatal; degrades to no policies).
//  6. Wire HTTP handlers.
//  7. Start HTTP server with graceful shutdown.
//
// No business logic lives here. All wiring is explicit constructor injection.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/taibuivan/tablegate/internal/api"
	"github.com/taibuivan/tablegate/internal/catalog"
	"github.com/taibuivan/tablegate/internal/executor"
	"github.com/taibuivan/tablegate/internal/platform/config"
	"github.com/taibuivan/tablegate/internal/platform/constants"
	"github.com/taibuivan/tablegate/internal/platform/middleware"
	"github.com/taibuivan/tablegate/internal/platform/mysql"
	"github.com/taibuivan/tablegate/internal/platform/sec"
	"github.com/taibuivan/tablegate/internal/rest"
	"github.com/taibuivan/tablegate/internal/rls"
)

func main() {
	// ── 1. Logger ──────────────────────────────────────────────────────────
	// Initialize first so that subsequent startup errors are structured JSON.
	rawLog := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	// Add global context to all log entries.
	log := rawLog.With(slog.String("app", constants.AppName))
	slog.SetDefault(log)

	log.Info("[Tablegate] service_initializing")

	// ── 2. Configuration ──────────────────────────────────────────────────
	cfg, err := config.Load()
	must(log, err, "load configuration")

	if cfg.Debug {
		debugLog := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		}))
		log = debugLog.With(slog.String("app", constants.AppName))
		slog.SetDefault(log)
		log.Debug("debug_logging_enabled")
	}

	log.Info("configuration_loaded",
		slog.String("environment", cfg.Environment),
		slog.String("port", cfg.ServerPort),
		slog.String("database", cfg.Database),
	)

	// Root context for startup. Use a 30s deadline so misconfiguration is
	// caught quickly rather than hanging indefinitely.
	startupCtx, startupCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer startupCancel()

	// ── 3. MySQL ──────────────────────────────────────────────────────────
	pool, err := mysql.NewPool(startupCtx, cfg, log)
	must(log, err, "connect to mysql")
	defer func() {
		log.Info("closing mysql pool")
		if cerr := pool.Close(); cerr != nil {
			log.Error("mysql close error", slog.Any("error", cerr))
		}
	}()

	// ── 4. Schema Catalog ─────────────────────────────────────────────────
	// The catalog is the source of truth for every route; without it the
	// gateway has nothing to serve.
	cat, err := catalog.Load(startupCtx, pool, cfg.Database, log)
	must(log, err, "introspect schema")

	// ── 5. Row-Level Policies ─────────────────────────────────────────────
	// A policy-load failure is survivable: the gateway starts unrestricted
	// and the admin reload endpoint can retry later.
	policies := rls.NewEngine(rls.NewStore(pool), log)
	if err := policies.Reload(startupCtx); err != nil {
		log.Warn("rls_policies_unavailable", slog.Any("error", err))
	}

	// ── 6. Token Verification ─────────────────────────────────────────────
	var verifier middleware.TokenVerifier
	if cfg.JWTSecret != "" {
		verifier = sec.NewTokenService(cfg.JWTSecret)
	} else {
		log.Warn("jwt_secret_not_set: bearer tokens are ignored")
	}

	// ── 7. Health handlers (wired with real dependency checkers) ──────────
	liveness, readiness := api.NewHealthHandlers(api.HealthDependencies{
		CheckDatabase: func() error {
			return mysql.Ping(context.Background(), pool)
		},
	}, log)

	// ── 8. Domain Wiring ──────────────────────────────────────────────────
	exec := executor.New(pool, log)
	dataHandler := rest.NewHandler(cat, policies, exec, log)

	// ── 9. HTTP Server ────────────────────────────────────────────────────
	serverCtx, serverCancel := context.WithCancel(context.Background())
	defer serverCancel()

	handlers := api.Handlers{
		Liveness:  liveness,
		Readiness: readiness,
		Data:      dataHandler,
	}

	server := api.NewServer(serverCtx, cfg, log, verifier, handlers)

	// ── 10. Graceful Shutdown ─────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGTERM, syscall.SIGINT)

	serverErr := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// Block until OS signal or server error.
	select {
	case sig := <-quit:
		log.Info("shutdown signal received", slog.String("signal", sig.String()))
	case err := <-serverErr:
		log.Error("server startup error", slog.Any("error", err))
	}

	// Give in-flight requests enough time to complete.
	shutdownTimeout := constants.ShutdownTimeout
	log.Info("shutting down server", slog.Duration("timeout", shutdownTimeout))

	if err := server.Shutdown(shutdownTimeout); err != nil {
		log.Error("shutdown error", slog.Any("error", err))
		os.Exit(1)
	}

	log.Info("server stopped cleanly")
}

// must logs a structured fatal error and terminates the process if err is non-nil.
//
// It is intentionally limited to startup wiring. After startup, all errors
// must be returned and handled explicitly (never panic).
func must(log *slog.Logger, err error, context string) {
	if err != nil {
		log.Error("startup_failed",
			slog.String("step", context),
			slog.Any("error", err),
		)
		os.Exit(1)
	}
}
