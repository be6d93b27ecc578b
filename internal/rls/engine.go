// Copyright (c) 2026 Tablegate. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package rls

import (
	"context"
	"log/slog"
	"strings"
	"sync/atomic"
)

// indexKey addresses the policy list for one (table, operation) pair.
type indexKey struct {
	table string
	op    string
}

type policyIndex map[indexKey][]Policy

// Engine caches and composes row-level policies.
//
// # Concurrency
//
// The index is an immutable snapshot behind an [atomic.Pointer]: every
// request reads it lock-free, and Reload publishes a complete replacement in
// one pointer swap. Handlers never observe a partially loaded index.
type Engine struct {
	store *Store
	log   *slog.Logger
	index atomic.Pointer[policyIndex]
}

// NewEngine constructs an engine with an empty index. Call Reload to populate it.
func NewEngine(store *Store, log *slog.Logger) *Engine {
	engine := &Engine{store: store, log: log}
	empty := policyIndex{}
	engine.index.Store(&empty)
	return engine
}

// Reload ensures the policy table exists, reads all enabled policies, fans
// out ALL to the four concrete operations, and atomically replaces the index.
//
// Callers decide whether a failure is fatal; at startup it is not — the
// gateway degrades to no policies rather than refusing traffic.
func (e *Engine) Reload(ctx context.Context) error {
	if err := e.store.EnsureTable(ctx); err != nil {
		return err
	}

	policies, err := e.store.LoadEnabled(ctx)
	if err != nil {
		return err
	}

	next := policyIndex{}
	for _, policy := range policies {
		for _, op := range expandOperation(policy.Operation) {
			key := indexKey{table: policy.TableName, op: op}
			next[key] = append(next[key], policy)
		}
	}

	e.index.Store(&next)
	e.log.Info("rls_policies_loaded", slog.Int("policies", len(policies)))
	return nil
}

// expandOperation resolves ALL into the concrete operation set.
func expandOperation(op string) []string {
	if strings.EqualFold(op, OpAll) {
		return []string{OpSelect, OpInsert, OpUpdate, OpDelete}
	}
	return []string{strings.ToUpper(op)}
}

// Predicate returns the composed policy predicate for (table, operation), or
// "" when the table is unrestricted for that operation.
//
// All policies are ANDed together; each using_expression is parenthesized
// before concatenation so operator precedence inside an expression cannot
// leak across policies.
func (e *Engine) Predicate(table, op string) string {
	index := *e.index.Load()
	policies := index[indexKey{table: table, op: strings.ToUpper(op)}]
	if len(policies) == 0 {
		return ""
	}

	parts := make([]string, 0, len(policies))
	for _, policy := range policies {
		parts = append(parts, "("+policy.UsingExpression+")")
	}
	return strings.Join(parts, " AND ")
}

// Inject composes the policy predicate for (table, op) into a WHERE clause.
//
//   - No policy            → the clause is returned unchanged.
//   - Clause empty         → "WHERE (policy)".
//   - Clause has WHERE     → "WHERE (policy) AND (existing predicates)".
func (e *Engine) Inject(whereClause, table, op string) string {
	predicate := e.Predicate(table, op)
	if predicate == "" {
		return whereClause
	}
	if whereClause == "" {
		return "WHERE (" + predicate + ")"
	}

	existing := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(whereClause), "WHERE"))
	return "WHERE (" + predicate + ") AND (" + existing + ")"
}

// RowClause composes the policy predicate with a primary-key clause for
// single-record paths: "(policy) AND <pk-clause>".
func (e *Engine) RowClause(pkClause, table, op string) string {
	predicate := e.Predicate(table, op)
	if predicate == "" {
		return pkClause
	}
	return "(" + predicate + ") AND " + pkClause
}
