// Copyright (c) 2026 Tablegate. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package rest

import (
	"strconv"
	"strings"

	"github.com/taibuivan/tablegate/internal/catalog"
	"github.com/taibuivan/tablegate/internal/platform/apperr"
	"github.com/taibuivan/tablegate/pkg/pagination"
)

// maxEmbedDepth bounds relation nesting so cyclic or self-referential
// embeddings cannot produce pathological queries.
const maxEmbedDepth = 8

// compositeKeySeparator splits a multi-column primary key id in the URL.
const compositeKeySeparator = "___"

// Fragment is a piece of parameterized SQL with its positional arguments.
type Fragment struct {
	SQL  string
	Args []any
}

// Empty reports whether the fragment carries no SQL.
func (f Fragment) Empty() bool { return f.SQL == "" }

// relKind classifies a resolved embedding.
type relKind int

const (
	// noRelation: no FK connects the tables; the embed degrades to NULL.
	noRelation relKind = iota
	// oneToMany: the child table owns the FK → JSON array per parent row.
	oneToMany
	// manyToOne: the parent table owns the FK → JSON object per parent row.
	manyToOne
)

// Compiler emits parameterized MySQL from the catalog, filter AST, select
// tree, order spec and pagination bounds. It is stateless and shared.
type Compiler struct {
	cat *catalog.Catalog
}

// NewCompiler constructs a compiler over the frozen catalog.
func NewCompiler(cat *catalog.Catalog) *Compiler {
	return &Compiler{cat: cat}
}

// # Identifier Quoting

// quoteIdent backtick-quotes an identifier, stripping embedded backticks so
// user-supplied names cannot terminate the quoting.
func quoteIdent(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "") + "`"
}

// # Column List Resolution

// ColumnList resolves the select tree into the projection of the main query.
//
// When star is present or no explicit column was selected, every catalog
// column of the table is listed minus exclusions; explicit columns follow;
// each relation becomes a correlated JSON subquery aliased to its target.
func (c *Compiler) ColumnList(table string, tree *SelectTree) (string, error) {
	if tree.Depth() > maxEmbedDepth {
		return "", apperr.ValidationError("Embedded relations exceed the maximum depth of 8")
	}

	tbl, ok := c.cat.Table(table)
	if !ok {
		return "", apperr.NotFound("Table")
	}

	parts := c.plainColumns(tbl, tree)

	for _, relation := range tree.Relations {
		subquery, err := c.embedSubquery(tbl, relation, 1)
		if err != nil {
			return "", err
		}
		parts = append(parts, subquery+" AS "+quoteIdent(relation.Target))
	}

	if len(parts) == 0 {
		return " * ", nil
	}
	return strings.Join(parts, ", "), nil
}

// plainColumns resolves the non-relation part of a select tree.
//
// Unknown explicit columns are silently ignored.
func (c *Compiler) plainColumns(tbl *catalog.Table, tree *SelectTree) []string {
	var parts []string
	explicit := tree.explicitColumns()

	if tree.hasStar() || len(explicit) == 0 {
		excluded := tree.exclusions()
		for _, col := range tbl.Columns {
			if excluded[col.Name] {
				continue
			}
			parts = append(parts, quoteIdent(col.Name))
		}
	}

	for _, name := range explicit {
		if !tbl.HasColumn(name) {
			continue
		}
		parts = append(parts, quoteIdent(name))
	}

	return parts
}

// # Nested Embedding

// resolveRelation finds the FK connecting parent and target and classifies
// the embedding direction. A hint must equal the FK column on either side.
func (c *Compiler) resolveRelation(parent *catalog.Table, relation *Relation) (catalog.ForeignKey, relKind) {
	child, ok := c.cat.Table(relation.Target)
	if !ok {
		return catalog.ForeignKey{}, noRelation
	}

	// Child owns the FK pointing at the parent → one row of the parent fans
	// out to many child rows.
	for _, fk := range child.ForeignKeys {
		if fk.RefTable != parent.Name {
			continue
		}
		if relation.Hint != "" && relation.Hint != fk.Column {
			continue
		}
		return fk, oneToMany
	}

	// Parent owns the FK pointing at the target → exactly one target row.
	for _, fk := range parent.ForeignKeys {
		if fk.RefTable != relation.Target {
			continue
		}
		if relation.Hint != "" && relation.Hint != fk.Column {
			continue
		}
		return fk, manyToOne
	}

	return catalog.ForeignKey{}, noRelation
}

// embedSubquery emits the correlated subquery for one relation node.
//
//   - 1:N → CAST(COALESCE(JSON_ARRAYAGG(JSON_OBJECT(...)), '[]') AS JSON)
//   - N:1 → JSON_OBJECT(...)
//   - no FK → literal NULL (documented degradation, not an error)
func (c *Compiler) embedSubquery(parent *catalog.Table, relation *Relation, depth int) (string, error) {
	if depth > maxEmbedDepth {
		return "", apperr.ValidationError("Embedded relations exceed the maximum depth of 8")
	}

	fk, kind := c.resolveRelation(parent, relation)
	if kind == noRelation {
		return "(SELECT NULL)", nil
	}

	child, _ := c.cat.Table(relation.Target)
	pairs, err := c.jsonPairs(child, relation.Tree, depth)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	switch kind {
	case oneToMany:
		b.WriteString("(SELECT CAST(COALESCE(JSON_ARRAYAGG(JSON_OBJECT(")
		b.WriteString(pairs)
		b.WriteString(")), '[]') AS JSON) FROM ")
		b.WriteString(quoteIdent(child.Name))
		b.WriteString(" WHERE ")
		b.WriteString(quoteIdent(child.Name) + "." + quoteIdent(fk.Column))
		b.WriteString(" = ")
		b.WriteString(quoteIdent(parent.Name) + "." + quoteIdent(fk.RefColumn))
		b.WriteString(")")
	case manyToOne:
		b.WriteString("(SELECT JSON_OBJECT(")
		b.WriteString(pairs)
		b.WriteString(") FROM ")
		b.WriteString(quoteIdent(child.Name))
		b.WriteString(" WHERE ")
		b.WriteString(quoteIdent(child.Name) + "." + quoteIdent(fk.RefColumn))
		b.WriteString(" = ")
		b.WriteString(quoteIdent(parent.Name) + "." + quoteIdent(fk.Column))
		b.WriteString(")")
	}

	return b.String(), nil
}

// jsonPairs renders the 'name', value pair list of a JSON_OBJECT for the
// child table, expanding nested relations recursively.
func (c *Compiler) jsonPairs(child *catalog.Table, tree *SelectTree, depth int) (string, error) {
	if tree == nil {
		tree = &SelectTree{}
	}

	var pairs []string

	explicit := tree.explicitColumns()
	if tree.hasStar() || len(explicit) == 0 {
		excluded := tree.exclusions()
		for _, col := range child.Columns {
			if excluded[col.Name] {
				continue
			}
			pairs = append(pairs, jsonPair(child.Name, col.Name))
		}
	}
	for _, name := range explicit {
		if !child.HasColumn(name) {
			continue
		}
		pairs = append(pairs, jsonPair(child.Name, name))
	}

	for _, relation := range tree.Relations {
		subquery, err := c.embedSubquery(child, relation, depth+1)
		if err != nil {
			return "", err
		}
		pairs = append(pairs, "'"+strings.ReplaceAll(relation.Target, "'", "")+"', "+subquery)
	}

	return strings.Join(pairs, ", "), nil
}

// jsonPair renders one 'name', `table`.`column` pair.
func jsonPair(table, column string) string {
	key := strings.ReplaceAll(column, "'", "")
	return "'" + key + "', " + quoteIdent(table) + "." + quoteIdent(column)
}

// # WHERE Composition

// Where renders the filter AST into a WHERE fragment with positional
// arguments. Null values short-circuit to IS NULL / IS NOT NULL.
func (c *Compiler) Where(predicates []Predicate) Fragment {
	if len(predicates) == 0 {
		return Fragment{}
	}

	var (
		clauses []string
		args    []any
	)

	for _, predicate := range predicates {
		column := quoteIdent(predicate.Column)

		switch predicate.Op {
		case "IN":
			if len(predicate.Values) == 0 {
				// An empty list matches nothing.
				clauses = append(clauses, "1 = 0")
				continue
			}
			placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(predicate.Values)), ", ")
			clauses = append(clauses, column+" IN ("+placeholders+")")
			args = append(args, predicate.Values...)

		case "IS":
			clauses = append(clauses, column+" IS "+isLiteral(predicate.Value))

		default:
			if predicate.Value == nil {
				if predicate.Op == "<>" {
					clauses = append(clauses, column+" IS NOT NULL")
				} else {
					clauses = append(clauses, column+" IS NULL")
				}
				continue
			}
			clauses = append(clauses, column+" "+predicate.Op+" ?")
			args = append(args, predicate.Value)
		}
	}

	return Fragment{SQL: "WHERE " + strings.Join(clauses, " AND "), Args: args}
}

// isLiteral renders the right-hand side of an IS predicate. Only the SQL
// boolean/null literals are meaningful; anything else renders as NULL so a
// garbage value cannot smuggle raw SQL.
func isLiteral(value any) string {
	s, _ := value.(string)
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "TRUE":
		return "TRUE"
	case "FALSE":
		return "FALSE"
	case "NOT NULL":
		return "NOT NULL"
	default:
		return "NULL"
	}
}

// # Key Predicates

// PrimaryKeyWhere builds the per-row predicate from a URL id.
//
// A composite key id carries one component per PK column, separated by
// "___"; each component is coerced by the column's declared type. The clause
// comes without a WHERE prefix so callers can AND it with a policy.
func (c *Compiler) PrimaryKeyWhere(table, id string) (Fragment, error) {
	tbl, ok := c.cat.Table(table)
	if !ok {
		return Fragment{}, apperr.NotFound("Table")
	}
	if len(tbl.PrimaryKeys) == 0 {
		return Fragment{}, apperr.ValidationError("Table has no primary key")
	}

	components := strings.Split(id, compositeKeySeparator)
	if len(components) != len(tbl.PrimaryKeys) {
		return Fragment{}, apperr.ValidationError(
			"Primary key of " + table + " has " + strconv.Itoa(len(tbl.PrimaryKeys)) +
				" columns; id has " + strconv.Itoa(len(components)) + " components")
	}

	var (
		clauses []string
		args    []any
	)
	for i, pk := range tbl.PrimaryKeys {
		value, err := coerceKeyValue(components[i], pk.Type)
		if err != nil {
			return Fragment{}, err
		}
		clauses = append(clauses, quoteIdent(pk.Name)+" = ?")
		args = append(args, value)
	}

	return Fragment{SQL: strings.Join(clauses, " AND "), Args: args}, nil
}

// ForeignKeyWhere builds the child-side predicate of a nested list request:
// the single FK between parent and child equates the child FK column with
// the typed parent id.
func (c *Compiler) ForeignKeyWhere(parent, child, parentID string) (Fragment, error) {
	childTable, ok := c.cat.Table(child)
	if !ok {
		return Fragment{}, apperr.NotFound("Table")
	}

	for _, fk := range childTable.ForeignKeys {
		if fk.RefTable != parent {
			continue
		}
		value, err := coerceKeyValue(parentID, fk.Type)
		if err != nil {
			return Fragment{}, err
		}
		return Fragment{SQL: quoteIdent(fk.Column) + " = ?", Args: []any{value}}, nil
	}

	return Fragment{}, apperr.ValidationError("No foreign key relates " + child + " to " + parent)
}

// coerceKeyValue converts a URL id component by the column's declared type.
// Date-like and string types bind as text; the driver handles coercion.
func coerceKeyValue(raw, columnType string) (any, error) {
	switch strings.ToLower(columnType) {
	case "tinyint", "smallint", "mediumint", "int", "bigint", "year":
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, apperr.ValidationError("Invalid integer key component: " + raw)
		}
		return n, nil
	case "decimal", "float", "double":
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, apperr.ValidationError("Invalid numeric key component: " + raw)
		}
		return f, nil
	default:
		return raw, nil
	}
}

// # Ordering & Pagination

// OrderBy renders the ORDER BY clause, or "" when no ordering was requested.
// Unknown columns pass through quoted; the database reports them.
func (c *Compiler) OrderBy(order []OrderField) string {
	if len(order) == 0 {
		return ""
	}
	parts := make([]string, 0, len(order))
	for _, field := range order {
		direction := " ASC"
		if field.Desc {
			direction = " DESC"
		}
		parts = append(parts, quoteIdent(field.Column)+direction)
	}
	return "ORDER BY " + strings.Join(parts, ", ")
}

// Limit renders the pagination bounds as a parameterized LIMIT clause.
func (c *Compiler) Limit(page pagination.Params) Fragment {
	return Fragment{SQL: "LIMIT ? OFFSET ?", Args: []any{page.Limit, page.Offset}}
}
