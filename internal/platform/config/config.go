// Copyright (c) 2026 Tablegate. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package config handles application-wide settings and environment parsing.

It leverages 'caarlos0/env' to map OS environment variables into a strongly-typed
Go struct, providing early validation and default values.

Usage:

	cfg, err := config.Load()
	if err != nil {
	    log.Fatal(err)
	}

Architecture:

  - Immutability: Once loaded, configuration is read-only.
  - DI-Friendly: Passed to core components (pool, auth) via constructors.
  - Zero Hidden State: No global variables are used to store config.

This ensures the application is Twelve-Factor compliant by storing config in the env.
*/
package config

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/caarlos0/env/v11"
)

// # Configuration Schema

// Config holds all runtime configuration for the Tablegate API server.
type Config struct {

	// Server settings
	ServerPort  string `env:"PORT"         envDefault:"3000"`
	Environment string `env:"ENVIRONMENT"  envDefault:"development"`
	Debug       bool   `env:"DEBUG"        envDefault:"false"`

	// Relational Database (MySQL / MariaDB)
	Host     string `env:"DB_HOST"`
	User     string `env:"DB_USER"`
	Password string `env:"DB_PASSWORD"`
	Port     int    `env:"DB_PORT"`
	Database string `env:"DB_NAME"`

	// DatabaseURL is an optional single-URI form of the connection settings:
	//
	//	<scheme>://[user[:password]@]host[:port]/database[?ssl=...&connectionLimit=N]
	//
	// Explicit DB_* options win over values decoded from the URL.
	DatabaseURL string `env:"DATABASE_URL"`

	// ConnectionLimit bounds the connection pool (default 10). The default is
	// applied after URL resolution so an explicit env value wins over the URL
	// and the URL wins over the default.
	ConnectionLimit int `env:"CONNECTION_LIMIT"`

	// SSL selects driver TLS behaviour ("", "true", "required").
	SSL string `env:"DB_SSL"`

	// Bearer-token verification
	JWTSecret   string `env:"JWT_SECRET"`
	JWTRequired bool   `env:"JWT_REQUIRED" envDefault:"false"`
}

// # Configuration Loading

// Load parses environment variables into a [Config] struct and resolves the
// optional DATABASE_URL into discrete connection fields.
func Load() (*Config, error) {

	// Initialize an empty config struct
	cfg := &Config{}

	// Use the 'env' package to map environment variables to struct fields.
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("config: failed to parse environment variables: %w", err)
	}

	if cfg.DatabaseURL != "" {
		if err := cfg.applyDatabaseURL(cfg.DatabaseURL); err != nil {
			return nil, err
		}
	}

	// Sensible fallbacks when neither DB_* nor the URL supplied a value.
	if cfg.Host == "" {
		cfg.Host = "localhost"
	}
	if cfg.Port == 0 {
		cfg.Port = 3306
	}
	if cfg.ConnectionLimit <= 0 {
		cfg.ConnectionLimit = 10
	}
	if cfg.Database == "" {
		return nil, fmt.Errorf("config: no database selected (set DB_NAME or DATABASE_URL)")
	}

	return cfg, nil
}

// applyDatabaseURL decodes the connection URI into the discrete fields,
// without overwriting any explicitly provided option.
//
// The password is percent-decoded by net/url; recognized query parameters are
// ssl={true|required|<json>} and connectionLimit=N.
func (c *Config) applyDatabaseURL(raw string) error {
	parsed, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("config: invalid DATABASE_URL: %w", err)
	}

	if c.User == "" && parsed.User != nil {
		c.User = parsed.User.Username()
		if password, ok := parsed.User.Password(); ok && c.Password == "" {
			c.Password = password
		}
	}
	if c.Host == "" {
		c.Host = parsed.Hostname()
	}
	if c.Port == 0 && parsed.Port() != "" {
		port, err := strconv.Atoi(parsed.Port())
		if err != nil {
			return fmt.Errorf("config: invalid port in DATABASE_URL: %w", err)
		}
		c.Port = port
	}
	if c.Database == "" {
		c.Database = strings.TrimPrefix(parsed.Path, "/")
	}

	query := parsed.Query()
	if c.SSL == "" {
		if ssl := query.Get("ssl"); ssl != "" {
			c.SSL = ssl
		}
	}
	if limit := query.Get("connectionLimit"); limit != "" && c.ConnectionLimit == 0 {
		n, err := strconv.Atoi(limit)
		if err != nil {
			return fmt.Errorf("config: invalid connectionLimit in DATABASE_URL: %w", err)
		}
		c.ConnectionLimit = n
	}

	return nil
}

// TLSMode translates the accepted ssl option values into the driver's tls
// parameter. A JSON object value (custom cert material) degrades to full
// verification since the gateway does not load ad-hoc cert files.
func (c *Config) TLSMode() string {
	switch strings.ToLower(c.SSL) {
	case "":
		return ""
	case "true", "required":
		return "true"
	default:
		return "true"
	}
}

// IsDevelopment reports whether the server is running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction reports whether the server is running in production mode.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}
