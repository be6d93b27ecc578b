// Copyright (c) 2026 Tablegate. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package executor runs compiled statements under a per-request claim context.

# Session-Context Discipline

MySQL user-defined variables (`@request_jwt_claim_*`) are scoped to a
connection. They are only reliable if the SET statement and the consuming
statement ride the same connection, which statement-level pooling cannot
guarantee. The executor therefore offers two paths:

  - Context-free: no claim map → dispatch directly on the pool; the pool
    owns connection allocation and release.
  - With context: borrow a dedicated connection, bind one SET with a
    positional parameter per claim, run the main statement on the same
    connection, and return the connection to the pool on every path.

The connection handle never escapes this package.
*/
package executor

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"sort"
	"strings"

	"github.com/taibuivan/tablegate/internal/platform/sec"
)

// claimVariablePrefix is the session-variable namespace policies reference.
const claimVariablePrefix = "@request_jwt_claim_"

// claimKeySanitizer collapses anything outside [A-Za-z0-9_] so claim names
// cannot break out of the SET statement.
var claimKeySanitizer = regexp.MustCompile(`[^A-Za-z0-9_]`)

// Result mirrors the driver's execution metadata in the response shape the
// gateway reports for mutations.
type Result struct {
	AffectedRows int64 `json:"affectedRows"`
	LastInsertID int64 `json:"lastInsertId"`
}

// Executor owns statement execution over the shared pool.
type Executor struct {
	db  *sql.DB
	log *slog.Logger
}

// New constructs an Executor over the pool.
func New(db *sql.DB, log *slog.Logger) *Executor {
	return &Executor{db: db, log: log}
}

// Query runs a SELECT-shaped statement and returns its rows as maps.
//
// When claims is non-nil the statement runs on a borrowed connection after
// the claim SET; otherwise it dispatches directly on the pool.
func (e *Executor) Query(ctx context.Context, claims sec.Claims, query string, args ...any) ([]map[string]any, error) {
	if len(claims) == 0 {
		rows, err := e.db.QueryContext(ctx, query, args...)
		if err != nil {
			return nil, err
		}
		defer rows.Close()
		return scanRows(rows)
	}

	conn, err := e.db.Conn(ctx)
	if err != nil {
		return nil, err
	}
	// Close returns the connection to the pool on every path.
	defer conn.Close()

	if err := setClaimContext(ctx, conn, claims); err != nil {
		return nil, err
	}

	rows, err := conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRows(rows)
}

// Exec runs a mutating statement and returns the driver metadata.
func (e *Executor) Exec(ctx context.Context, claims sec.Claims, query string, args ...any) (Result, error) {
	if len(claims) == 0 {
		res, err := e.db.ExecContext(ctx, query, args...)
		return toResult(res, err)
	}

	conn, err := e.db.Conn(ctx)
	if err != nil {
		return Result{}, err
	}
	defer conn.Close()

	if err := setClaimContext(ctx, conn, claims); err != nil {
		return Result{}, err
	}

	res, err := conn.ExecContext(ctx, query, args...)
	return toResult(res, err)
}

// InTransaction runs fn inside a transaction under the claim context.
//
// The transaction commits when fn returns nil and rolls back on any error or
// panic; the borrowed connection is released on all paths. The current
// operation set is single-statement, but multi-statement flows (patch with
// representation, bulk upserts) get their envelope here.
func (e *Executor) InTransaction(ctx context.Context, claims sec.Claims, fn func(tx *sql.Tx) error) error {
	conn, err := e.db.Conn(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()

	if len(claims) > 0 {
		if err := setClaimContext(ctx, conn, claims); err != nil {
			return err
		}
	}

	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

// setClaimContext binds every claim as a session variable in one statement:
//
//	SET @request_jwt_claim_role = ?, @request_jwt_claim_sub = ?, ...
//
// Keys are sorted for deterministic statement text; values bind positionally.
func setClaimContext(ctx context.Context, conn *sql.Conn, claims sec.Claims) error {
	keys := make([]string, 0, len(claims))
	for key := range claims {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var stmt strings.Builder
	args := make([]any, 0, len(keys))

	stmt.WriteString("SET ")
	for i, key := range keys {
		if i > 0 {
			stmt.WriteString(", ")
		}
		stmt.WriteString(claimVariablePrefix)
		stmt.WriteString(claimKeySanitizer.ReplaceAllString(key, "_"))
		stmt.WriteString(" = ?")

		value, err := bindClaimValue(claims[key])
		if err != nil {
			return err
		}
		args = append(args, value)
	}

	if _, err := conn.ExecContext(ctx, stmt.String(), args...); err != nil {
		return fmt.Errorf("executor: failed to set claim context: %w", err)
	}
	return nil
}

// bindClaimValue passes scalars through and serializes object/array claims
// to JSON text so policies can use MySQL JSON functions on them.
func bindClaimValue(value any) (any, error) {
	switch value.(type) {
	case nil, string, bool, float64, float32, int, int32, int64, uint, uint32, uint64:
		return value, nil
	default:
		encoded, err := json.Marshal(value)
		if err != nil {
			return nil, fmt.Errorf("executor: failed to serialize claim value: %w", err)
		}
		return string(encoded), nil
	}
}

// toResult flattens driver result extraction.
func toResult(res sql.Result, err error) (Result, error) {
	if err != nil {
		return Result{}, err
	}
	affected, _ := res.RowsAffected()
	lastID, _ := res.LastInsertId()
	return Result{AffectedRows: affected, LastInsertID: lastID}, nil
}
