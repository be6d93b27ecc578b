// Copyright (c) 2026 Tablegate. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package rest

import (
	"encoding/json"
	"net/http"
	"sort"
	"strings"

	"github.com/taibuivan/tablegate/internal/catalog"
	"github.com/taibuivan/tablegate/internal/platform/apperr"
	"github.com/taibuivan/tablegate/internal/platform/constants"
	"github.com/taibuivan/tablegate/internal/platform/dberr"
	requestutil "github.com/taibuivan/tablegate/internal/platform/request"
	"github.com/taibuivan/tablegate/internal/platform/respond"
	"github.com/taibuivan/tablegate/internal/rls"
)

// # Create / Upsert

// Create inserts one object or an array of objects.
//
// The Resolution header selects the upsert mode: merge-duplicates emits
// ON DUPLICATE KEY UPDATE, ignore-duplicates emits INSERT IGNORE, anything
// else is a plain insert. Values bound to JSON columns are pre-serialized.
func (h *Handler) Create(writer http.ResponseWriter, request *http.Request) {
	tbl, err := h.table(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	records, err := decodeRecords(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	// Column order comes from the first record, sorted for stable SQL text;
	// later records bind NULL for keys they omit.
	columns := make([]string, 0, len(records[0]))
	for column := range records[0] {
		columns = append(columns, column)
	}
	sort.Strings(columns)
	if len(columns) == 0 {
		respond.Error(writer, request, apperr.ValidationError("Empty insert body"))
		return
	}

	quoted := make([]string, len(columns))
	for i, column := range columns {
		quoted[i] = quoteIdent(column)
	}

	var (
		sqlText strings.Builder
		args    []any
	)

	mode := resolutionMode(request)
	if mode == constants.ResolutionIgnoreDuplicates {
		sqlText.WriteString("INSERT IGNORE INTO ")
	} else {
		sqlText.WriteString("INSERT INTO ")
	}
	sqlText.WriteString(quoteIdent(tbl.Name))
	sqlText.WriteString(" (")
	sqlText.WriteString(strings.Join(quoted, ", "))
	sqlText.WriteString(") VALUES ")

	rowPlaceholder := "(" + strings.TrimSuffix(strings.Repeat("?, ", len(columns)), ", ") + ")"
	for i, record := range records {
		if i > 0 {
			sqlText.WriteString(", ")
		}
		sqlText.WriteString(rowPlaceholder)
		for _, column := range columns {
			value, err := bindColumnValue(tbl, column, record[column])
			if err != nil {
				respond.Error(writer, request, err)
				return
			}
			args = append(args, value)
		}
	}

	if mode == constants.ResolutionMergeDuplicates {
		sqlText.WriteString(" ON DUPLICATE KEY UPDATE ")
		for i, column := range quoted {
			if i > 0 {
				sqlText.WriteString(", ")
			}
			sqlText.WriteString(column + " = VALUES(" + column + ")")
		}
	}

	claims := h.claims(request)
	result, err := h.exec.Exec(request.Context(), claims, sqlText.String(), args...)
	if err != nil {
		respond.Error(writer, request, dberr.Wrap(err, "create "+tbl.Name))
		return
	}

	if !wantsRepresentation(request) {
		respond.OK(writer, result)
		return
	}

	inserted, ok, err := h.reselectInserted(request, tbl, records, result.LastInsertID, result.AffectedRows)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	if !ok {
		respond.Created(writer, result)
		return
	}
	respond.Created(writer, inserted)
}

// reselectInserted fetches the just-inserted rows for return=representation.
//
// A single auto-incrementing primary key allows the BETWEEN range re-select;
// a composite (or non-generated) key is re-selected only when every key
// component was present in the input rows. ok=false means the rows cannot be
// identified and the caller falls back to driver metadata.
func (h *Handler) reselectInserted(request *http.Request, tbl *catalog.Table, records []map[string]any, firstID, affected int64) ([]map[string]any, bool, error) {
	claims := h.claims(request)

	if len(tbl.PrimaryKeys) == 1 && tbl.PrimaryKeys[0].IsAutoIncrement() {
		if firstID <= 0 || affected <= 0 {
			return nil, false, nil
		}
		sqlText := "SELECT * FROM " + quoteIdent(tbl.Name) + " WHERE " +
			quoteIdent(tbl.PrimaryKeys[0].Name) + " BETWEEN ? AND ?"
		rows, err := h.exec.Query(request.Context(), claims, sqlText, firstID, firstID+affected-1)
		if err != nil {
			return nil, false, dberr.Wrap(err, "reselect "+tbl.Name)
		}
		return rows, true, nil
	}

	for _, record := range records {
		for _, pk := range tbl.PrimaryKeys {
			if _, present := record[pk.Name]; !present {
				return nil, false, nil
			}
		}
	}

	where := pkMembership(tbl, records)
	if where.Empty() {
		return nil, false, nil
	}
	sqlText := "SELECT * FROM " + quoteIdent(tbl.Name) + " WHERE " + where.SQL
	rows, err := h.exec.Query(request.Context(), claims, sqlText, where.Args...)
	if err != nil {
		return nil, false, dberr.Wrap(err, "reselect "+tbl.Name)
	}
	return rows, true, nil
}

// # Update / Patch

// Update fully updates one row by primary key under the UPDATE policy.
func (h *Handler) Update(writer http.ResponseWriter, request *http.Request) {
	tbl, err := h.table(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	var body map[string]any
	if err := requestutil.DecodeJSON(request, &body); err != nil {
		respond.Error(writer, request, err)
		return
	}
	if len(body) == 0 {
		respond.Error(writer, request, apperr.ValidationError("Empty update body"))
		return
	}

	pk, err := h.compiler.PrimaryKeyWhere(tbl.Name, requestutil.Param(request, "id"))
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	set, args, err := buildSetClause(tbl, body)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	clause := h.policies.RowClause(pk.SQL, tbl.Name, rls.OpUpdate)
	sqlText := "UPDATE " + quoteIdent(tbl.Name) + " SET " + set + " WHERE " + clause
	args = append(args, pk.Args...)

	result, err := h.exec.Exec(request.Context(), h.claims(request), sqlText, args...)
	if err != nil {
		respond.Error(writer, request, dberr.Wrap(err, "update "+tbl.Name))
		return
	}

	respond.OK(writer, result)
}

// Patch partially updates every row matching the request filters, under the
// UPDATE policy. An empty body is a no-op answered with 204.
func (h *Handler) Patch(writer http.ResponseWriter, request *http.Request) {
	tbl, err := h.table(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	var body map[string]any
	if err := requestutil.DecodeJSON(request, &body); err != nil {
		respond.Error(writer, request, err)
		return
	}
	if len(body) == 0 {
		respond.NoContent(writer)
		return
	}

	q := ParseQuery(request.URL.Query())
	where := h.compiler.Where(q.Filters)
	where.SQL = h.policies.Inject(where.SQL, tbl.Name, rls.OpUpdate)

	set, args, err := buildSetClause(tbl, body)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	claims := h.claims(request)

	// For return=representation the affected rows must be identified before
	// the update changes the very columns the filter matched on.
	var captured []map[string]any
	if wantsRepresentation(request) && len(tbl.PrimaryKeys) > 0 {
		pkColumns := make([]string, len(tbl.PrimaryKeys))
		for i, pk := range tbl.PrimaryKeys {
			pkColumns[i] = quoteIdent(pk.Name)
		}
		preSelect := "SELECT " + strings.Join(pkColumns, ", ") + " FROM " + quoteIdent(tbl.Name)
		if !where.Empty() {
			preSelect += " " + where.SQL
		}
		captured, err = h.exec.Query(request.Context(), claims, preSelect, where.Args...)
		if err != nil {
			respond.Error(writer, request, dberr.Wrap(err, "patch preselect "+tbl.Name))
			return
		}
	}

	sqlText := "UPDATE " + quoteIdent(tbl.Name) + " SET " + set
	if !where.Empty() {
		sqlText += " " + where.SQL
		args = append(args, where.Args...)
	}

	result, err := h.exec.Exec(request.Context(), claims, sqlText, args...)
	if err != nil {
		respond.Error(writer, request, dberr.Wrap(err, "patch "+tbl.Name))
		return
	}

	if !wantsRepresentation(request) {
		respond.OK(writer, result)
		return
	}

	membership := pkMembership(tbl, captured)
	if membership.Empty() {
		respond.OK(writer, []map[string]any{})
		return
	}
	reSelect := "SELECT * FROM " + quoteIdent(tbl.Name) + " WHERE " + membership.SQL
	rows, err := h.exec.Query(request.Context(), claims, reSelect, membership.Args...)
	if err != nil {
		respond.Error(writer, request, dberr.Wrap(err, "patch reselect "+tbl.Name))
		return
	}
	respond.OK(writer, rows)
}

// # Delete

// Delete removes one row by primary key under the DELETE policy.
func (h *Handler) Delete(writer http.ResponseWriter, request *http.Request) {
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

	clause := h.policies.RowClause(pk.SQL, tbl.Name, rls.OpDelete)
	h.executeDelete(writer, request, tbl, Fragment{SQL: "WHERE " + clause, Args: pk.Args})
}

// BulkDelete removes every row matching the request filters under the DELETE
// policy. With no filters and no policy this wipes the table, matching the
// PostgREST default.
func (h *Handler) BulkDelete(writer http.ResponseWriter, request *http.Request) {
	tbl, err := h.table(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	q := ParseQuery(request.URL.Query())
	where := h.compiler.Where(q.Filters)
	where.SQL = h.policies.Inject(where.SQL, tbl.Name, rls.OpDelete)

	h.executeDelete(writer, request, tbl, where)
}

// executeDelete runs a delete under an optional WHERE fragment, honoring
// return=representation by pre-capturing the doomed rows.
func (h *Handler) executeDelete(writer http.ResponseWriter, request *http.Request, tbl *catalog.Table, where Fragment) {
	claims := h.claims(request)

	var captured []map[string]any
	if wantsRepresentation(request) {
		preSelect := "SELECT * FROM " + quoteIdent(tbl.Name)
		if !where.Empty() {
			preSelect += " " + where.SQL
		}
		rows, err := h.exec.Query(request.Context(), claims, preSelect, where.Args...)
		if err != nil {
			respond.Error(writer, request, dberr.Wrap(err, "delete preselect "+tbl.Name))
			return
		}
		captured = rows
	}

	sqlText := "DELETE FROM " + quoteIdent(tbl.Name)
	if !where.Empty() {
		sqlText += " " + where.SQL
	}

	result, err := h.exec.Exec(request.Context(), claims, sqlText, where.Args...)
	if err != nil {
		respond.Error(writer, request, dberr.Wrap(err, "delete "+tbl.Name))
		return
	}

	if wantsRepresentation(request) {
		respond.OK(writer, captured)
		return
	}
	respond.OK(writer, result)
}

// # Shared Builders

// decodeRecords normalizes the request body into a non-empty slice of objects.
func decodeRecords(request *http.Request) ([]map[string]any, error) {
	var body any
	if err := requestutil.DecodeJSON(request, &body); err != nil {
		return nil, err
	}

	switch typed := body.(type) {
	case map[string]any:
		return []map[string]any{typed}, nil
	case []any:
		if len(typed) == 0 {
			return nil, apperr.ValidationError("Empty insert body")
		}
		records := make([]map[string]any, 0, len(typed))
		for _, item := range typed {
			record, ok := item.(map[string]any)
			if !ok {
				return nil, apperr.ValidationError("Insert body must be an object or an array of objects")
			}
			records = append(records, record)
		}
		return records, nil
	default:
		return nil, apperr.ValidationError("Insert body must be an object or an array of objects")
	}
}

// bindColumnValue prepares one value for binding: values destined for JSON
// columns are serialized to JSON text, and structured values bound to other
// columns are serialized too since the driver cannot bind maps or slices.
func bindColumnValue(tbl *catalog.Table, column string, value any) (any, error) {
	if value == nil {
		return nil, nil
	}

	col, known := tbl.Column(column)
	isStructured := false
	switch value.(type) {
	case map[string]any, []any:
		isStructured = true
	}

	if (known && col.IsJSON()) || isStructured {
		encoded, err := json.Marshal(value)
		if err != nil {
			return nil, apperr.ValidationError("Unserializable value for column " + column)
		}
		return string(encoded), nil
	}

	return value, nil
}

// buildSetClause renders the SET list of an update from a body object, with
// deterministic column order.
func buildSetClause(tbl *catalog.Table, body map[string]any) (string, []any, error) {
	columns := make([]string, 0, len(body))
	for column := range body {
		columns = append(columns, column)
	}
	sort.Strings(columns)

	var (
		parts []string
		args  []any
	)
	for _, column := range columns {
		value, err := bindColumnValue(tbl, column, body[column])
		if err != nil {
			return "", nil, err
		}
		parts = append(parts, quoteIdent(column)+" = ?")
		args = append(args, value)
	}

	return strings.Join(parts, ", "), args, nil
}

// pkMembership builds a predicate matching exactly the given rows by primary
// key: IN for a single-column key, OR-of-AND groups for a composite key.
func pkMembership(tbl *catalog.Table, rows []map[string]any) Fragment {
	if len(rows) == 0 || len(tbl.PrimaryKeys) == 0 {
		return Fragment{}
	}

	if len(tbl.PrimaryKeys) == 1 {
		pk := tbl.PrimaryKeys[0]
		placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(rows)), ", ")
		args := make([]any, 0, len(rows))
		for _, row := range rows {
			args = append(args, row[pk.Name])
		}
		return Fragment{SQL: quoteIdent(pk.Name) + " IN (" + placeholders + ")", Args: args}
	}

	var (
		groups []string
		args   []any
	)
	for _, row := range rows {
		var conjuncts []string
		for _, pk := range tbl.PrimaryKeys {
			conjuncts = append(conjuncts, quoteIdent(pk.Name)+" = ?")
			args = append(args, row[pk.Name])
		}
		groups = append(groups, "("+strings.Join(conjuncts, " AND ")+")")
	}
	return Fragment{SQL: strings.Join(groups, " OR "), Args: args}
}
