// Copyright (c) 2026 Tablegate. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package rls implements gateway-enforced row-level security.

Policies are boolean SQL expressions persisted in the database (so they
survive restarts and are auditable), loaded into an immutable in-memory index
at startup, and composed into every statement the operation handlers emit.
Policy expressions typically reference the per-request session variables the
executor binds from token claims, e.g.:

	owner_role = @request_jwt_claim_role

Tables without policies are unrestricted. Row-level security is opt-in per
table and operation.
*/
package rls

// PolicyTable is the name of the policy store table. It is excluded from the
// set of resources the gateway serves.
const PolicyTable = "tablegate_policy"

// Operations a policy can apply to. OpAll fans out to the four concrete
// operations at load time.
const (
	OpSelect = "SELECT"
	OpInsert = "INSERT"
	OpUpdate = "UPDATE"
	OpDelete = "DELETE"
	OpAll    = "ALL"
)

// Policy is one row-level rule.
type Policy struct {
	ID         int64  `json:"id"`
	TableName  string `json:"table_name"`
	PolicyName string `json:"policy_name"`
	Operation  string `json:"operation"`
	// UsingExpression is the boolean SQL expression every visible row must satisfy.
	UsingExpression string `json:"using_expression"`
	// CheckExpression is carried for INSERT policies but not yet enforced.
	CheckExpression *string `json:"check_expression"`
	Enabled         bool    `json:"enabled"`
}
