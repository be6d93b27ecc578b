// Copyright (c) 2026 Tablegate. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package rls

import (
	"context"
	"database/sql"
	"fmt"
)

// createTableStmt creates the policy store. Idempotent: safe to run on every
// startup.
const createTableStmt = `
CREATE TABLE IF NOT EXISTS ` + PolicyTable + ` (
	id               BIGINT AUTO_INCREMENT PRIMARY KEY,
	table_name       VARCHAR(255) NOT NULL,
	policy_name      VARCHAR(255) NOT NULL,
	operation        VARCHAR(16)  NOT NULL,
	using_expression TEXT         NOT NULL,
	check_expression TEXT         NULL,
	enabled          TINYINT(1)   NOT NULL DEFAULT 1,
	created_at       TIMESTAMP    NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at       TIMESTAMP    NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
	UNIQUE KEY uq_policy (table_name, policy_name),
	KEY idx_policy_lookup (table_name, operation, enabled)
)`

const selectEnabledStmt = `
SELECT id, table_name, policy_name, operation, using_expression, check_expression, enabled
FROM ` + PolicyTable + `
WHERE enabled = 1
ORDER BY table_name, id`

// Store persists policies in the gateway-owned policy table.
type Store struct {
	db *sql.DB
}

// NewStore constructs a policy store over the shared pool.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// EnsureTable creates the policy store table when missing.
func (s *Store) EnsureTable(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, createTableStmt); err != nil {
		return fmt.Errorf("rls: failed to ensure policy table: %w", err)
	}
	return nil
}

// LoadEnabled reads all enabled policies in stable order.
func (s *Store) LoadEnabled(ctx context.Context) ([]Policy, error) {
	rows, err := s.db.QueryContext(ctx, selectEnabledStmt)
	if err != nil {
		return nil, fmt.Errorf("rls: failed to load policies: %w", err)
	}
	defer rows.Close()

	var policies []Policy
	for rows.Next() {
		var (
			policy Policy
			check  sql.NullString
		)
		if err := rows.Scan(
			&policy.ID,
			&policy.TableName,
			&policy.PolicyName,
			&policy.Operation,
			&policy.UsingExpression,
			&check,
			&policy.Enabled,
		); err != nil {
			return nil, fmt.Errorf("rls: failed to scan policy: %w", err)
		}
		if check.Valid {
			value := check.String
			policy.CheckExpression = &value
		}
		policies = append(policies, policy)
	}

	return policies, rows.Err()
}
