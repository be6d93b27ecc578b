// Copyright (c) 2026 Tablegate. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package pagination_test

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/taibuivan/tablegate/pkg/pagination"
)

/*
TestFromQuery_Defaults verifies the bounds when no parameter is present.
*/
func TestFromQuery_Defaults(t *testing.T) {
	params := pagination.FromQuery(url.Values{})

	assert.Equal(t, pagination.DefaultLimit, params.Limit)
	assert.Equal(t, 0, params.Offset)
}

/*
TestFromQuery_LimitOffset verifies the PostgREST dialect.
*/
func TestFromQuery_LimitOffset(t *testing.T) {
	params := pagination.FromQuery(url.Values{
		"limit":  {"5"},
		"offset": {"40"},
	})

	assert.Equal(t, 5, params.Limit)
	assert.Equal(t, 40, params.Offset)
}

/*
TestFromQuery_LegacySize verifies that _size is honored and capped at 100.
*/
func TestFromQuery_LegacySize(t *testing.T) {
	// 1. Within bounds
	params := pagination.FromQuery(url.Values{"_size": {"30"}})
	assert.Equal(t, 30, params.Limit)

	// 2. Over the cap
	params = pagination.FromQuery(url.Values{"_size": {"5000"}})
	assert.Equal(t, pagination.MaxLegacySize, params.Limit)

	// 3. Explicit limit wins over _size
	params = pagination.FromQuery(url.Values{"_size": {"30"}, "limit": {"7"}})
	assert.Equal(t, 7, params.Limit)
}

/*
TestFromQuery_LegacyPage verifies the 1-based _p conversion: (p-1)*limit+1.
*/
func TestFromQuery_LegacyPage(t *testing.T) {
	// 1. Page 1 starts right after row zero
	params := pagination.FromQuery(url.Values{"_p": {"1"}, "_size": {"10"}})
	assert.Equal(t, 1, params.Offset)

	// 2. Page 3 with size 10
	params = pagination.FromQuery(url.Values{"_p": {"3"}, "_size": {"10"}})
	assert.Equal(t, 21, params.Offset)

	// 3. Explicit offset wins over _p
	params = pagination.FromQuery(url.Values{"_p": {"3"}, "offset": {"2"}})
	assert.Equal(t, 2, params.Offset)
}

/*
TestFromQuery_InvalidValues verifies that garbage falls back to defaults.
*/
func TestFromQuery_InvalidValues(t *testing.T) {
	params := pagination.FromQuery(url.Values{
		"limit":  {"abc"},
		"offset": {"-3"},
		"_p":     {"0"},
	})

	assert.Equal(t, pagination.DefaultLimit, params.Limit)
	assert.Equal(t, 0, params.Offset)
}
