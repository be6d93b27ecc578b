// Copyright (c) 2026 Tablegate. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package rest

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/taibuivan/tablegate/internal/catalog"
	"github.com/taibuivan/tablegate/internal/executor"
	"github.com/taibuivan/tablegate/internal/platform/apperr"
	"github.com/taibuivan/tablegate/internal/platform/dberr"
	requestutil "github.com/taibuivan/tablegate/internal/platform/request"
	"github.com/taibuivan/tablegate/internal/platform/respond"
	"github.com/taibuivan/tablegate/internal/platform/sec"
	"github.com/taibuivan/tablegate/internal/rls"
	"github.com/taibuivan/tablegate/pkg/query"
)

// Handler orchestrates the full request-to-SQL pipeline for every operation.
//
// It holds only process-wide immutable collaborators and is safe for
// concurrent use.
type Handler struct {
	cat      *catalog.Catalog
	policies *rls.Engine
	exec     *executor.Executor
	compiler *Compiler
	log      *slog.Logger
}

// NewHandler wires the pipeline.
func NewHandler(cat *catalog.Catalog, policies *rls.Engine, exec *executor.Executor, log *slog.Logger) *Handler {
	return &Handler{
		cat:      cat,
		policies: policies,
		exec:     exec,
		compiler: NewCompiler(cat),
		log:      log,
	}
}

// table resolves the {table} URL parameter against the catalog.
//
// The policy store is deliberately unreachable through the generic routes:
// serving it would let any client rewrite the security rules.
func (h *Handler) table(request *http.Request) (*catalog.Table, error) {
	name := requestutil.Param(request, "table")
	if name == rls.PolicyTable {
		return nil, apperr.NotFound("Table")
	}
	tbl, ok := h.cat.Table(name)
	if !ok {
		return nil, apperr.NotFound("Table")
	}
	return tbl, nil
}

// claims returns the verified claim map of the request, nil when anonymous.
func (h *Handler) claims(request *http.Request) sec.Claims {
	return requestutil.Claims(request)
}

// countRows runs a COUNT(1) under the given WHERE fragment.
func (h *Handler) countRows(ctx context.Context, claims sec.Claims, table string, where Fragment) (int64, error) {
	sqlText := "SELECT COUNT(1) AS no_of_rows FROM " + quoteIdent(table)
	if !where.Empty() {
		sqlText += " " + where.SQL
	}

	rows, err := h.exec.Query(ctx, claims, sqlText, where.Args...)
	if err != nil {
		return 0, dberr.Wrap(err, "count "+table)
	}
	if len(rows) == 0 {
		return 0, nil
	}
	count, _ := rows[0]["no_of_rows"].(int64)
	return count, nil
}

// # Catalog Operations

// Tables lists the served table names, excluding the policy store.
func (h *Handler) Tables(writer http.ResponseWriter, request *http.Request) {
	var names []string
	for _, name := range h.cat.TableNames() {
		if name == rls.PolicyTable {
			continue
		}
		names = append(names, name)
	}
	respond.OK(writer, names)
}

// Describe returns the catalog column metadata of one table.
func (h *Handler) Describe(writer http.ResponseWriter, request *http.Request) {
	tbl, err := h.table(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.OK(writer, tbl.Columns)
}

// # List / Read Operations

// List serves filtered, ordered, paginated rows with optional embedded
// relations, under the table's SELECT policy.
func (h *Handler) List(writer http.ResponseWriter, request *http.Request) {
	tbl, err := h.table(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	q := ParseQuery(request.URL.Query())

	tree, err := ParseSelect(q.Select)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	columns, err := h.compiler.ColumnList(tbl.Name, tree)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	where := h.compiler.Where(q.Filters)
	where.SQL = h.policies.Inject(where.SQL, tbl.Name, rls.OpSelect)

	claims := h.claims(request)

	total := int64(-1)
	if prefersCount(request) {
		total, err = h.countRows(request.Context(), claims, tbl.Name, where)
		if err != nil {
			respond.Error(writer, request, err)
			return
		}
	}

	limit := h.compiler.Limit(q.Page)
	sqlText := "SELECT " + columns + " FROM " + quoteIdent(tbl.Name)
	args := []any{}
	if !where.Empty() {
		sqlText += " " + where.SQL
		args = append(args, where.Args...)
	}
	if order := h.compiler.OrderBy(q.Order); order != "" {
		sqlText += " " + order
	}
	sqlText += " " + limit.SQL
	args = append(args, limit.Args...)

	rows, err := h.exec.Query(request.Context(), claims, sqlText, args...)
	if err != nil {
		respond.Error(writer, request, dberr.Wrap(err, "list "+tbl.Name))
		return
	}

	writeList(writer, request, rows, total, q.Page.Offset)
}

// Read serves a single row by primary key under the SELECT policy. The body
// is an array with zero or one element.
func (h *Handler) Read(writer http.ResponseWriter, request *http.Request) {
	tbl, err := h.table(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	pk, err := h.compiler.PrimaryKeyWhere(tbl.Name, requestutil.Param(request, "id"))
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	clause := h.policies.RowClause(pk.SQL, tbl.Name, rls.OpSelect)
	sqlText := "SELECT * FROM " + quoteIdent(tbl.Name) + " WHERE " + clause + " LIMIT 1"

	rows, err := h.exec.Query(request.Context(), h.claims(request), sqlText, pk.Args...)
	if err != nil {
		respond.Error(writer, request, dberr.Wrap(err, "read "+tbl.Name))
		return
	}

	respond.OK(writer, rows)
}

// Exists reports whether a row with the given primary key exists.
//
// The SELECT policy is intentionally not applied here: existence is
// observable even for rows the caller cannot read.
func (h *Handler) Exists(writer http.ResponseWriter, request *http.Request) {
	tbl, err := h.table(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	pk, err := h.compiler.PrimaryKeyWhere(tbl.Name, requestutil.Param(request, "id"))
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	sqlText := "SELECT * FROM " + quoteIdent(tbl.Name) + " WHERE " + pk.SQL + " LIMIT 1"

	rows, err := h.exec.Query(request.Context(), h.claims(request), sqlText, pk.Args...)
	if err != nil {
		respond.Error(writer, request, dberr.Wrap(err, "exists "+tbl.Name))
		return
	}

	respond.OK(writer, rows)
}

// Count serves the row count of a table under the SELECT policy, so callers
// cannot count rows they are not allowed to read.
func (h *Handler) Count(writer http.ResponseWriter, request *http.Request) {
	tbl, err := h.table(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	where := Fragment{SQL: h.policies.Inject("", tbl.Name, rls.OpSelect)}
	count, err := h.countRows(request.Context(), h.claims(request), tbl.Name, where)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, []map[string]any{{"no_of_rows": count}})
}

// Relational serves the child rows related to one parent row via the single
// foreign key between the two tables, with the full list feature set.
func (h *Handler) Relational(writer http.ResponseWriter, request *http.Request) {
	parent, err := h.table(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	childName := requestutil.Param(request, "child")
	if childName == rls.PolicyTable {
		respond.Error(writer, request, apperr.NotFound("Table"))
		return
	}
	child, ok := h.cat.Table(childName)
	if !ok {
		respond.Error(writer, request, apperr.NotFound("Table"))
		return
	}

	fk, err := h.compiler.ForeignKeyWhere(parent.Name, child.Name, requestutil.Param(request, "id"))
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	q := ParseQuery(request.URL.Query())

	tree, err := ParseSelect(q.Select)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	columns, err := h.compiler.ColumnList(child.Name, tree)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	// FK predicate AND user filters, then the child's SELECT policy on top.
	where := h.compiler.Where(q.Filters)
	combined := Fragment{SQL: "WHERE " + fk.SQL, Args: fk.Args}
	if !where.Empty() {
		combined.SQL += " AND " + strings.TrimPrefix(where.SQL, "WHERE ")
		combined.Args = append(combined.Args, where.Args...)
	}
	combined.SQL = h.policies.Inject(combined.SQL, child.Name, rls.OpSelect)

	claims := h.claims(request)

	total := int64(-1)
	if prefersCount(request) {
		total, err = h.countRows(request.Context(), claims, child.Name, combined)
		if err != nil {
			respond.Error(writer, request, err)
			return
		}
	}

	limit := h.compiler.Limit(q.Page)
	sqlText := "SELECT " + columns + " FROM " + quoteIdent(child.Name) + " " + combined.SQL
	if order := h.compiler.OrderBy(q.Order); order != "" {
		sqlText += " " + order
	}
	sqlText += " " + limit.SQL
	args := append(append([]any{}, combined.Args...), limit.Args...)

	rows, err := h.exec.Query(request.Context(), claims, sqlText, args...)
	if err != nil {
		respond.Error(writer, request, dberr.Wrap(err, "relational "+child.Name))
		return
	}

	writeList(writer, request, rows, total, q.Page.Offset)
}

// # Analytic Operations

// GroupBy serves grouped counts over the columns in `_fields`, under the
// SELECT policy: grouped values reveal column contents, so only visible rows
// enter the aggregation.
func (h *Handler) GroupBy(writer http.ResponseWriter, request *http.Request) {
	tbl, err := h.table(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	fields := h.knownFields(tbl, request.URL.Query().Get("_fields"))
	if len(fields) == 0 {
		respond.Error(writer, request, apperr.ValidationError("_fields query parameter is required"))
		return
	}

	quoted := make([]string, len(fields))
	for i, field := range fields {
		quoted[i] = quoteIdent(field)
	}
	fieldList := strings.Join(quoted, ", ")

	// Default ordering is -count, overridable via the usual order params.
	order := h.compiler.OrderBy(ParseQuery(request.URL.Query()).Order)
	if order == "" {
		order = "ORDER BY `count` DESC"
	}

	sqlText := "SELECT " + fieldList + ", COUNT(*) AS `count` FROM " + quoteIdent(tbl.Name)
	if policy := h.policies.Inject("", tbl.Name, rls.OpSelect); policy != "" {
		sqlText += " " + policy
	}
	sqlText += " GROUP BY " + fieldList + " " + order

	rows, err := h.exec.Query(request.Context(), h.claims(request), sqlText)
	if err != nil {
		respond.Error(writer, request, dberr.Wrap(err, "groupby "+tbl.Name))
		return
	}

	respond.OK(writer, rows)
}

// Aggregate serves min/max/avg/sum/stddev/variance for each column in
// `_fields`, aliased `<fn>_of_<field>`, under the SELECT policy.
func (h *Handler) Aggregate(writer http.ResponseWriter, request *http.Request) {
	tbl, err := h.table(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	fields := h.knownFields(tbl, request.URL.Query().Get("_fields"))
	if len(fields) == 0 {
		respond.Error(writer, request, apperr.ValidationError("_fields query parameter is required"))
		return
	}

	functions := []string{"min", "max", "avg", "sum", "stddev", "variance"}
	var parts []string
	for _, field := range fields {
		for _, fn := range functions {
			parts = append(parts, strings.ToUpper(fn)+"("+quoteIdent(field)+") AS "+
				quoteIdent(fn+"_of_"+field))
		}
	}

	sqlText := "SELECT " + strings.Join(parts, ", ") + " FROM " + quoteIdent(tbl.Name)
	if policy := h.policies.Inject("", tbl.Name, rls.OpSelect); policy != "" {
		sqlText += " " + policy
	}

	rows, err := h.exec.Query(request.Context(), h.claims(request), sqlText)
	if err != nil {
		respond.Error(writer, request, dberr.Wrap(err, "aggregate "+tbl.Name))
		return
	}

	respond.OK(writer, rows)
}

// knownFields parses a comma-separated field list and keeps only catalog
// columns of the table.
func (h *Handler) knownFields(tbl *catalog.Table, raw string) []string {
	var fields []string
	for _, field := range query.StringSlice(raw) {
		if tbl.HasColumn(field) {
			fields = append(fields, field)
		}
	}
	return fields
}
