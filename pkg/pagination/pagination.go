// Copyright (c) 2026 Tablegate. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package pagination provides shared types and helpers for API list endpoints.
//
// # Overview
//
// It standardizes how the two accepted pagination dialects are decoded:
// PostgREST `limit`/`offset` and the legacy `_size`/`_p` pair. Explicit
// `limit`/`offset` always win over their legacy counterparts.
package pagination

import (
	"net/url"
	"strconv"
)

const (
	// DefaultLimit is the number of items per page if not specified.
	DefaultLimit = 20
	// MaxLegacySize is the upper bound the legacy _size parameter is capped at.
	MaxLegacySize = 100
)

// Params holds the resolved LIMIT/OFFSET bounds for a list query.
type Params struct {
	Limit  int
	Offset int
}

// FromQuery resolves pagination bounds from a decoded query-parameter map.
//
// # Precedence
//
//   - limit  overrides _size (which is capped at [MaxLegacySize]).
//   - offset overrides the 1-based _p, converted by (_p-1)*limit+1.
//   - Defaults: offset 0, limit [DefaultLimit].
func FromQuery(values url.Values) Params {
	params := Params{Limit: DefaultLimit, Offset: 0}

	if size, ok := parseInt(values.Get("_size")); ok {
		if size > MaxLegacySize {
			size = MaxLegacySize
		}
		if size > 0 {
			params.Limit = size
		}
	}
	if limit, ok := parseInt(values.Get("limit")); ok && limit > 0 {
		params.Limit = limit
	}

	if page, ok := parseInt(values.Get("_p")); ok && page > 0 {
		params.Offset = (page-1)*params.Limit + 1
	}
	if offset, ok := parseInt(values.Get("offset")); ok && offset >= 0 {
		params.Offset = offset
	}

	return params
}

// parseInt parses a single query value, reporting whether it was present and valid.
func parseInt(raw string) (int, bool) {
	if raw == "" {
		return 0, false
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false
	}
	return n, true
}
