// Copyright (c) 2026 Tablegate. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package rest

import (
	"strings"

	"github.com/taibuivan/tablegate/internal/platform/apperr"
)

// SelectTree is the planned shape of a response: plain columns (including
// `*` and exclusions `-name`) plus embedded relations.
type SelectTree struct {
	Columns   []string
	Relations []*Relation
}

// Relation is one embedded relation `[hint:]target(inner)`.
type Relation struct {
	// Target is the embedded table; it is always the output alias.
	Target string
	// Hint is the optional FK column that disambiguates when multiple
	// foreign keys connect the two tables. It never appears in the alias.
	Hint string
	// Tree is the child select tree, parsed recursively.
	Tree *SelectTree
}

// ParseSelect parses a select expression depth-correctly: commas split items
// only at parenthesis depth 0, so nested relation lists stay intact.
//
// Unbalanced parentheses are a client error.
func ParseSelect(expr string) (*SelectTree, error) {
	tree := &SelectTree{}
	if strings.TrimSpace(expr) == "" {
		return tree, nil
	}

	depth := 0
	start := 0
	var items []string

	for i, ch := range expr {
		switch ch {
		case '(':
			depth++
		case ')':
			depth--
			if depth < 0 {
				return nil, apperr.ValidationError("Unbalanced parentheses in select expression")
			}
		case ',':
			if depth == 0 {
				items = append(items, expr[start:i])
				start = i + 1
			}
		}
	}
	if depth != 0 {
		return nil, apperr.ValidationError("Unbalanced parentheses in select expression")
	}
	items = append(items, expr[start:])

	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}

		open := strings.IndexByte(item, '(')
		if open < 0 {
			tree.Columns = append(tree.Columns, item)
			continue
		}
		if !strings.HasSuffix(item, ")") {
			return nil, apperr.ValidationError("Malformed relation in select expression: " + item)
		}

		name := item[:open]
		inner := item[open+1 : len(item)-1]

		relation := &Relation{Target: name}
		if hint, target, found := strings.Cut(name, ":"); found {
			relation.Hint = hint
			relation.Target = target
		}

		child, err := ParseSelect(inner)
		if err != nil {
			return nil, err
		}
		relation.Tree = child

		tree.Relations = append(tree.Relations, relation)
	}

	return tree, nil
}

// Depth returns the maximum relation nesting depth of the tree. A bare
// column list has depth 0.
func (t *SelectTree) Depth() int {
	depth := 0
	for _, relation := range t.Relations {
		child := 1
		if relation.Tree != nil {
			child += relation.Tree.Depth()
		}
		if child > depth {
			depth = child
		}
	}
	return depth
}

// explicitColumns returns the plainly named columns (no star, no exclusions).
func (t *SelectTree) explicitColumns() []string {
	var cols []string
	for _, col := range t.Columns {
		if col == "*" || strings.HasPrefix(col, "-") {
			continue
		}
		cols = append(cols, col)
	}
	return cols
}

// exclusions returns the set of excluded column names (`-name` items).
func (t *SelectTree) exclusions() map[string]bool {
	excluded := map[string]bool{}
	for _, col := range t.Columns {
		if strings.HasPrefix(col, "-") {
			excluded[col[1:]] = true
		}
	}
	return excluded
}

// hasStar reports whether `*` appears in the column list.
func (t *SelectTree) hasStar() bool {
	for _, col := range t.Columns {
		if col == "*" {
			return true
		}
	}
	return false
}
