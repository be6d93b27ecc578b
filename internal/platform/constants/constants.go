// Copyright (c) 2026 Tablegate. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package constants provides centralized, immutable values for the entire platform.

It defines default timeouts, rate limits, and cross-cutting header keys that are
shared between different layers of the system.

Categories:

  - Server Timing: Read/Write/Idle timeouts for the HTTP server.
  - Rate Limiting: Burst capacities and IP tracking TTLs.
  - Protocol: PostgREST-compatible header names and Prefer tokens.

Using this package ensures Magic Strings and Magic Numbers are eliminated
from the business logic.
*/
package constants

import "time"

// # Metadata

const (
	AppName    = "tablegate"
	AppVersion = "0.1.0-dev"
)

// # Server Timing

const (
	// DefaultReadTimeout is the maximum duration for reading the entire request.
	DefaultReadTimeout = 5 * time.Second

	// DefaultWriteTimeout is the maximum duration before timing out writes of the response.
	DefaultWriteTimeout = 30 * time.Second

	// DefaultIdleTimeout is the maximum amount of time to wait for the next request.
	DefaultIdleTimeout = 120 * time.Second

	// DefaultReadHeaderTimeout is the amount of time allowed to read request headers.
	DefaultReadHeaderTimeout = 2 * time.Second

	// GlobalRequestTimeout is the deadline for the entire request lifecycle.
	GlobalRequestTimeout = 30 * time.Second

	// ShutdownTimeout is how long we wait for in-flight requests to complete during shutdown.
	ShutdownTimeout = 30 * time.Second
)

// # Rate Limiting

const (
	// DefaultRateLimitRPS is the sustained requests-per-second budget per client IP.
	DefaultRateLimitRPS = 50

	// DefaultRateLimitBurst is the momentary burst capacity per client IP.
	DefaultRateLimitBurst = 100

	// RateLimitCleanupInterval is how often stale per-IP limiters are evicted.
	RateLimitCleanupInterval = 5 * time.Minute

	// RateLimitClientTTL is how long an idle client IP is tracked.
	RateLimitClientTTL = 10 * time.Minute
)

// # Standard Headers

const (
	HeaderXRequestID    = "X-Request-ID"
	HeaderXRealIP       = "X-Real-IP"
	HeaderXForwardedFor = "X-Forwarded-For"
	HeaderOrigin        = "Origin"
	HeaderAuthorization = "Authorization"
)

// # PostgREST Protocol Headers

const (
	// HeaderPrefer carries the count and representation preferences.
	HeaderPrefer = "Prefer"

	// HeaderResolution selects the upsert mode on POST.
	HeaderResolution = "Resolution"

	// HeaderContentRange reports the served slice of a list result.
	HeaderContentRange = "Content-Range"

	// PreferCountExact asks for the total row count in Content-Range.
	PreferCountExact = "count=exact"

	// PreferReturnRepresentation asks mutating requests to echo affected rows.
	PreferReturnRepresentation = "return=representation"

	// ResolutionMergeDuplicates maps to ON DUPLICATE KEY UPDATE.
	ResolutionMergeDuplicates = "merge-duplicates"

	// ResolutionIgnoreDuplicates maps to INSERT IGNORE.
	ResolutionIgnoreDuplicates = "ignore-duplicates"

	// MIMESingularObject is the Accept value of the singular-object contract.
	MIMESingularObject = "application/vnd.pgrst.object+json"
)

// # Response Fields

const (
	FieldCode  = "code"
	FieldError = "error"
)
