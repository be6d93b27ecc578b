// Copyright (c) 2026 Tablegate. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package rest

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/taibuivan/tablegate/internal/platform/apperr"
	"github.com/taibuivan/tablegate/internal/platform/constants"
	"github.com/taibuivan/tablegate/internal/platform/respond"
)

// # Preference Negotiation

// prefersCount reports whether the client asked for a total row count via
// `Prefer: count=exact`.
func prefersCount(request *http.Request) bool {
	return preferContains(request, constants.PreferCountExact)
}

// wantsRepresentation reports whether a mutating request should echo the
// affected rows (`Prefer: return=representation`).
func wantsRepresentation(request *http.Request) bool {
	return preferContains(request, constants.PreferReturnRepresentation)
}

// preferContains scans the comma-separated Prefer tokens for one value.
func preferContains(request *http.Request, token string) bool {
	for _, header := range request.Header.Values(constants.HeaderPrefer) {
		for _, part := range strings.Split(header, ",") {
			if strings.EqualFold(strings.TrimSpace(part), token) {
				return true
			}
		}
	}
	return false
}

// wantsSingular reports whether the client demanded the singular-object
// contract via `Accept: application/vnd.pgrst.object+json`.
func wantsSingular(request *http.Request) bool {
	return strings.Contains(request.Header.Get("Accept"), constants.MIMESingularObject)
}

// resolutionMode returns the upsert mode from the Resolution header:
// "merge-duplicates", "ignore-duplicates", or "".
func resolutionMode(request *http.Request) string {
	return strings.ToLower(strings.TrimSpace(request.Header.Get(constants.HeaderResolution)))
}

// # List Shaping

// contentRange renders the Content-Range value for a served page:
// `<start>-<end>/<total>`, or `*/<total>` when the page is empty.
func contentRange(offset, served int, total int64) string {
	totalText := "*"
	if total >= 0 {
		totalText = strconv.FormatInt(total, 10)
	}
	if served == 0 {
		return "*/" + totalText
	}
	return strconv.Itoa(offset) + "-" + strconv.Itoa(offset+served-1) + "/" + totalText
}

// writeList emits a list (or relational) response.
//
// The Content-Range header is populated only when the client requested a
// count; total < 0 means no count was computed. The singular-object contract
// turns exactly one row into a bare object and anything else into 406.
func writeList(writer http.ResponseWriter, request *http.Request, rows []map[string]any, total int64, offset int) {
	if total >= 0 {
		writer.Header().Set(constants.HeaderContentRange, contentRange(offset, len(rows), total))
	}

	if wantsSingular(request) {
		if len(rows) != 1 {
			respond.Error(writer, request, apperr.NotSingular(len(rows)))
			return
		}
		respond.OK(writer, rows[0])
		return
	}

	respond.OK(writer, rows)
}
