// Copyright (c) 2026 Tablegate. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package mysql constructs and health-checks the shared database connection pool.

Architecture:

  - One bounded [*sql.DB] pool per process, created at startup.
  - DSN building delegates to the driver's own [mysql.Config] to avoid
    hand-rolled string escaping of credentials.
  - Statement-level pooling is the default; the executor borrows dedicated
    connections only when per-request session variables are needed.
*/
package mysql

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	driver "github.com/go-sql-driver/mysql"

	"github.com/taibuivan/tablegate/internal/platform/config"
)

// NewPool opens a bounded connection pool and verifies connectivity.
func NewPool(ctx context.Context, cfg *config.Config, log *slog.Logger) (*sql.DB, error) {
	db, err := sql.Open("mysql", BuildDSN(cfg))
	if err != nil {
		return nil, fmt.Errorf("mysql: failed to open pool: %w", err)
	}

	// Bounded pool: the upper limit is the configured connectionLimit.
	db.SetMaxOpenConns(cfg.ConnectionLimit)
	db.SetMaxIdleConns(cfg.ConnectionLimit)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("mysql: database unreachable: %w", err)
	}

	log.Info("mysql_pool_ready",
		slog.String("host", cfg.Host),
		slog.String("database", cfg.Database),
		slog.Int("connection_limit", cfg.ConnectionLimit),
	)

	return db, nil
}

// BuildDSN renders the driver DSN from configuration.
func BuildDSN(cfg *config.Config) string {
	c := driver.NewConfig()
	c.User = cfg.User
	c.Passwd = cfg.Password
	c.DBName = cfg.Database
	c.Net = "tcp"
	c.Addr = fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	if mode := cfg.TLSMode(); mode != "" {
		c.TLSConfig = mode
	}
	return c.FormatDSN()
}

// Ping verifies database connectivity for readiness probes.
func Ping(ctx context.Context, db *sql.DB) error {
	return db.PingContext(ctx)
}
