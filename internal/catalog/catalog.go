// Copyright (c) 2026 Tablegate. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package catalog holds the authoritative in-memory picture of the served database.

It is populated exactly once at startup from two information_schema queries
(tables/columns/keys and routines/parameters) and is frozen afterwards: every
accessor is a lock-free read. The planner and compiler consult the catalog on
every request, so a per-request metadata query would dominate latency.

A schema change in the database requires a gateway restart; rebuild-in-place
is deliberately unsupported to keep reads unsynchronized.
*/
package catalog

import "strings"

// # Model

// Column describes one table column as reported by information_schema.
type Column struct {
	Name     string  `json:"column_name"`
	Position int     `json:"ordinal_position"`
	Type     string  `json:"data_type"`
	Key      string  `json:"column_key"`
	Nullable bool    `json:"is_nullable"`
	Default  *string `json:"column_default"`
	// ColumnType is the raw declared type text (e.g. "decimal(10,2)").
	ColumnType string `json:"column_type"`
	// Extra carries flags such as "auto_increment".
	Extra string `json:"extra"`
}

// IsPrimary reports whether the column participates in the primary key.
func (c Column) IsPrimary() bool { return c.Key == "PRI" }

// IsJSON reports whether values bound to this column must be serialized to
// JSON text before insertion.
func (c Column) IsJSON() bool { return strings.EqualFold(c.Type, "json") }

// IsAutoIncrement reports whether the column is auto-generated by the database.
func (c Column) IsAutoIncrement() bool {
	return strings.Contains(strings.ToLower(c.Extra), "auto_increment")
}

// ForeignKey describes one FK edge between two catalog tables.
type ForeignKey struct {
	Table     string `json:"table"`
	Column    string `json:"column"`
	RefTable  string `json:"referenced_table"`
	RefColumn string `json:"referenced_column"`
	// Type is the owning column's declared data type, used for id coercion.
	Type string `json:"type"`
}

// Table is one table or view with its ordered columns and key metadata.
type Table struct {
	Name        string
	Columns     []Column
	PrimaryKeys []Column
	ForeignKeys []ForeignKey

	byName map[string]int
}

// NewTable assembles a table from its ordered columns and FK edges,
// building the name index and primary-key list. Used by Load and by tests
// that need a hand-made catalog.
func NewTable(name string, columns []Column, foreignKeys []ForeignKey) *Table {
	table := &Table{Name: name, ForeignKeys: foreignKeys}
	for _, col := range columns {
		table.addColumn(col)
	}
	return table
}

// Column returns the column with the given name, if present.
func (t *Table) Column(name string) (Column, bool) {
	idx, ok := t.byName[name]
	if !ok {
		return Column{}, false
	}
	return t.Columns[idx], true
}

// HasColumn reports whether the table declares the named column.
func (t *Table) HasColumn(name string) bool {
	_, ok := t.byName[name]
	return ok
}

// addColumn appends a column, keeping the name index in sync.
func (t *Table) addColumn(col Column) {
	if t.byName == nil {
		t.byName = make(map[string]int)
	}
	if _, exists := t.byName[col.Name]; exists {
		return
	}
	t.byName[col.Name] = len(t.Columns)
	t.Columns = append(t.Columns, col)
	if col.IsPrimary() {
		t.PrimaryKeys = append(t.PrimaryKeys, col)
	}
}

// # Routines

// Routine kinds as reported by information_schema.ROUTINES.
const (
	RoutineProcedure = "PROCEDURE"
	RoutineFunction  = "FUNCTION"
)

// RoutineParam is one declared parameter of a stored routine.
type RoutineParam struct {
	Name     string
	Type     string
	Mode     string // IN, OUT or INOUT
	Position int
}

// Routine is a stored procedure or function.
type Routine struct {
	Name   string
	Kind   string // RoutineProcedure or RoutineFunction
	Params []RoutineParam
}

// InParams returns the parameters bound on invocation (IN and INOUT), in
// declared order.
func (r *Routine) InParams() []RoutineParam {
	var in []RoutineParam
	for _, param := range r.Params {
		if param.Mode == "IN" || param.Mode == "INOUT" {
			in = append(in, param)
		}
	}
	return in
}

// # Catalog

// Catalog is the frozen, process-wide schema snapshot.
type Catalog struct {
	database string
	tables   map[string]*Table
	names    []string
	routines map[string]*Routine
}

// New assembles a catalog from prepared tables and routines. Load is the
// production constructor; New exists for it and for tests.
func New(database string, tables []*Table, routines []*Routine) *Catalog {
	cat := &Catalog{
		database: database,
		tables:   make(map[string]*Table, len(tables)),
		routines: make(map[string]*Routine, len(routines)),
	}
	for _, table := range tables {
		cat.tables[table.Name] = table
		cat.names = append(cat.names, table.Name)
	}
	for _, routine := range routines {
		cat.routines[routine.Name] = routine
	}
	return cat
}

// Database returns the introspected schema name.
func (c *Catalog) Database() string { return c.database }

// Table returns the named table, if present.
func (c *Catalog) Table(name string) (*Table, bool) {
	table, ok := c.tables[name]
	return table, ok
}

// TableNames returns all table names in introspection order.
func (c *Catalog) TableNames() []string {
	names := make([]string, len(c.names))
	copy(names, c.names)
	return names
}

// Routine returns the named stored routine, if present.
func (c *Catalog) Routine(name string) (*Routine, bool) {
	routine, ok := c.routines[name]
	return routine, ok
}
