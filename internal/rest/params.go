// Copyright (c) 2026 Tablegate. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package rest turns PostgREST-style HTTP requests into parameterized SQL and
shapes the results back into PostgREST-conformant responses.

Pipeline per request:

	params (filter AST) → selecttree (embedding plan) → rls (policy lookup)
	→ compiler (SQL emission) → executor (claim context + execution)
	→ shaper (headers + body)

The parser in this file emits no SQL; it produces neutral data the compiler
consumes.
*/
package rest

import (
	"net/url"
	"strings"

	"github.com/taibuivan/tablegate/pkg/pagination"
)

// Predicate is one conjunct of the filter AST.
//
// Value is a scalar or nil; Values carries the list of an IN predicate.
type Predicate struct {
	Column string
	Op     string
	Value  any
	Values []any
}

// OrderField is one ORDER BY component.
type OrderField struct {
	Column string
	Desc   bool
}

// Query is the neutral parse result of a request's query parameters.
type Query struct {
	Filters []Predicate
	Select  string
	Order   []OrderField
	Page    pagination.Params
}

// reservedKeys are consumed by dedicated parsers and skipped by the
// predicate extractor. Keys starting with "_" (legacy DSL) are skipped too.
var reservedKeys = map[string]bool{
	"select":      true,
	"order":       true,
	"limit":       true,
	"offset":      true,
	"on_conflict": true,
	"columns":     true,
}

// operators maps the PostgREST operator tokens onto SQL operators.
var operators = map[string]string{
	"eq":    "=",
	"neq":   "<>",
	"gt":    ">",
	"gte":   ">=",
	"lt":    "<",
	"lte":   "<=",
	"like":  "LIKE",
	"ilike": "LIKE", // case behavior is collation-dependent in MySQL
	"is":    "IS",
	"in":    "IN",
}

// legacyOperators maps the `_where` triple-DSL tokens onto SQL operators.
var legacyOperators = map[string]string{
	"eq":   "=",
	"ne":   "<>",
	"gt":   ">",
	"ge":   ">=",
	"lt":   "<",
	"le":   "<=",
	"like": "LIKE",
	"is":   "IS",
	"in":   "IN",
}

// ParseQuery decodes the full query-parameter multimap.
func ParseQuery(values url.Values) Query {
	q := Query{
		Select: values.Get("select"),
		Order:  parseOrder(values),
		Page:   pagination.FromQuery(values),
	}

	for key, rawValues := range values {
		if reservedKeys[key] || strings.HasPrefix(key, "_") {
			continue
		}
		// Repeated keys yield multiple predicates on the same column, ANDed.
		for _, raw := range rawValues {
			if predicate, ok := parsePredicate(key, raw); ok {
				q.Filters = append(q.Filters, predicate)
			}
		}
	}

	if legacy := values.Get("_where"); legacy != "" {
		q.Filters = append(q.Filters, parseLegacyWhere(legacy)...)
	}

	return q
}

// parsePredicate decodes one `<op>.<value>` filter expression.
//
// Values may contain dots: only the first dot separates the operator, the
// rest of the string is reassembled as the value. Unknown operators drop the
// predicate silently — this never widens a result set beyond the unfiltered
// baseline, so it cannot leak rows a valid request would hide.
func parsePredicate(column, raw string) (Predicate, bool) {
	parts := strings.SplitN(raw, ".", 2)
	if len(parts) != 2 {
		return Predicate{}, false
	}

	op, ok := operators[parts[0]]
	if !ok {
		return Predicate{}, false
	}
	value := parts[1]

	switch op {
	case "IN":
		// Parentheses required: in.(v1,v2,...)
		if !strings.HasPrefix(value, "(") || !strings.HasSuffix(value, ")") {
			return Predicate{}, false
		}
		var list []any
		for _, item := range strings.Split(value[1:len(value)-1], ",") {
			list = append(list, convertLiteral(strings.TrimSpace(item)))
		}
		return Predicate{Column: column, Op: op, Values: list}, true

	case "IS":
		// Unquoted null becomes the SQL null literal; TRUE/FALSE stay
		// literals; anything else is kept as-is and rejected downstream.
		if strings.EqualFold(value, "null") {
			return Predicate{Column: column, Op: op, Value: nil}, true
		}
		return Predicate{Column: column, Op: op, Value: value}, true

	default:
		return Predicate{Column: column, Op: op, Value: convertLiteral(value)}, true
	}
}

// convertLiteral maps the textual literals onto their SQL values:
// null → nil, true/false → 1/0, everything else stays a string and is
// coerced by the database when bound.
func convertLiteral(value string) any {
	switch value {
	case "null":
		return nil
	case "true":
		return 1
	case "false":
		return 0
	default:
		return value
	}
}

// parseOrder accepts the two ordering dialects:
//
//   - PostgREST: order=a.asc,b.desc
//   - Legacy:    _sort=a,-b
func parseOrder(values url.Values) []OrderField {
	if raw := values.Get("order"); raw != "" {
		var fields []OrderField
		for _, item := range strings.Split(raw, ",") {
			item = strings.TrimSpace(item)
			if item == "" {
				continue
			}
			column, direction, _ := strings.Cut(item, ".")
			fields = append(fields, OrderField{
				Column: column,
				Desc:   strings.EqualFold(direction, "desc"),
			})
		}
		return fields
	}

	if raw := values.Get("_sort"); raw != "" {
		var fields []OrderField
		for _, item := range strings.Split(raw, ",") {
			item = strings.TrimSpace(item)
			if item == "" {
				continue
			}
			if strings.HasPrefix(item, "-") {
				fields = append(fields, OrderField{Column: item[1:], Desc: true})
			} else {
				fields = append(fields, OrderField{Column: item})
			}
		}
		return fields
	}

	return nil
}

// parseLegacyWhere decodes the `_where` triple DSL: `(col,op,value)` terms
// chained with `~and`. Only conjunction is supported; malformed terms are
// dropped like unknown operators.
func parseLegacyWhere(raw string) []Predicate {
	var predicates []Predicate

	for _, term := range strings.Split(raw, "~and") {
		term = strings.TrimSpace(term)
		term = strings.TrimPrefix(term, "(")
		term = strings.TrimSuffix(term, ")")

		parts := strings.SplitN(term, ",", 3)
		if len(parts) != 3 {
			continue
		}

		op, ok := legacyOperators[strings.TrimSpace(parts[1])]
		if !ok {
			continue
		}

		column := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[2])

		if op == "IN" {
			value = strings.TrimPrefix(value, "(")
			value = strings.TrimSuffix(value, ")")
			var list []any
			for _, item := range strings.Split(value, ",") {
				list = append(list, convertLiteral(strings.TrimSpace(item)))
			}
			predicates = append(predicates, Predicate{Column: column, Op: op, Values: list})
			continue
		}

		predicates = append(predicates, Predicate{Column: column, Op: op, Value: convertLiteral(value)})
	}

	return predicates
}
