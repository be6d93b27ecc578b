// Copyright (c) 2026 Tablegate. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
)

// columnQuery introspects tables, columns, key roles and FK edges in one pass.
// The LEFT JOIN keeps every column and attaches referenced-table data only to
// FK member columns.
const columnQuery = `
SELECT
	c.TABLE_NAME,
	c.COLUMN_NAME,
	c.ORDINAL_POSITION,
	c.DATA_TYPE,
	c.COLUMN_TYPE,
	c.COLUMN_KEY,
	c.IS_NULLABLE,
	c.COLUMN_DEFAULT,
	c.EXTRA,
	k.REFERENCED_TABLE_NAME,
	k.REFERENCED_COLUMN_NAME
FROM information_schema.COLUMNS c
LEFT JOIN information_schema.KEY_COLUMN_USAGE k
	ON  c.TABLE_SCHEMA = k.TABLE_SCHEMA
	AND c.TABLE_NAME   = k.TABLE_NAME
	AND c.COLUMN_NAME  = k.COLUMN_NAME
	AND k.REFERENCED_TABLE_NAME IS NOT NULL
WHERE c.TABLE_SCHEMA = ?
ORDER BY c.TABLE_NAME, c.ORDINAL_POSITION`

// routineQuery introspects stored procedures/functions with their parameters.
const routineQuery = `
SELECT
	r.ROUTINE_NAME,
	r.ROUTINE_TYPE,
	p.PARAMETER_NAME,
	p.DATA_TYPE,
	p.PARAMETER_MODE,
	p.ORDINAL_POSITION
FROM information_schema.ROUTINES r
LEFT JOIN information_schema.PARAMETERS p
	ON  r.ROUTINE_SCHEMA = p.SPECIFIC_SCHEMA
	AND r.ROUTINE_NAME   = p.SPECIFIC_NAME
WHERE r.ROUTINE_SCHEMA = ?
ORDER BY r.ROUTINE_NAME, p.ORDINAL_POSITION`

// Load runs the introspection queries and returns the frozen catalog.
//
// # Failure Modes
//
//   - Column query failure or an empty schema is fatal: the gateway cannot
//     serve anything without table metadata.
//   - Routine query failure is logged and non-fatal: the catalog simply
//     carries no routines and /rpc answers 404.
func Load(ctx context.Context, db *sql.DB, database string, log *slog.Logger) (*Catalog, error) {
	tables, err := loadTables(ctx, db, database)
	if err != nil {
		return nil, fmt.Errorf("catalog: introspection failed for %q: %w", database, err)
	}
	if len(tables) == 0 {
		return nil, fmt.Errorf("catalog: database %q has no tables", database)
	}

	routines, err := loadRoutines(ctx, db, database)
	if err != nil {
		log.Warn("catalog_routines_unavailable",
			slog.String("database", database),
			slog.Any("error", err),
		)
		routines = nil
	}

	log.Info("catalog_loaded",
		slog.String("database", database),
		slog.Int("tables", len(tables)),
		slog.Int("routines", len(routines)),
	)

	return New(database, tables, routines), nil
}

// loadTables scans the column/key result set into ordered Table values.
func loadTables(ctx context.Context, db *sql.DB, database string) ([]*Table, error) {
	rows, err := db.QueryContext(ctx, columnQuery, database)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var (
		tables  []*Table
		current *Table
	)

	for rows.Next() {
		var (
			tableName  string
			col        Column
			nullable   string
			defaultVal sql.NullString
			refTable   sql.NullString
			refColumn  sql.NullString
		)

		if err := rows.Scan(
			&tableName,
			&col.Name,
			&col.Position,
			&col.Type,
			&col.ColumnType,
			&col.Key,
			&nullable,
			&defaultVal,
			&col.Extra,
			&refTable,
			&refColumn,
		); err != nil {
			return nil, err
		}

		col.Nullable = nullable == "YES"
		if defaultVal.Valid {
			value := defaultVal.String
			col.Default = &value
		}

		// Rows arrive ordered by table name; start a new Table on change.
		if current == nil || current.Name != tableName {
			current = NewTable(tableName, nil, nil)
			tables = append(tables, current)
		}
		current.addColumn(col)

		if refTable.Valid && refColumn.Valid {
			current.ForeignKeys = append(current.ForeignKeys, ForeignKey{
				Table:     tableName,
				Column:    col.Name,
				RefTable:  refTable.String,
				RefColumn: refColumn.String,
				Type:      col.Type,
			})
		}
	}

	return tables, rows.Err()
}

// loadRoutines scans the routine/parameter result set into Routine values.
func loadRoutines(ctx context.Context, db *sql.DB, database string) ([]*Routine, error) {
	rows, err := db.QueryContext(ctx, routineQuery, database)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var (
		routines []*Routine
		current  *Routine
	)

	for rows.Next() {
		var (
			name      string
			kind      string
			paramName sql.NullString
			paramType sql.NullString
			paramMode sql.NullString
			position  sql.NullInt64
		)

		if err := rows.Scan(&name, &kind, &paramName, &paramType, &paramMode, &position); err != nil {
			return nil, err
		}

		if current == nil || current.Name != name {
			current = &Routine{Name: name, Kind: kind}
			routines = append(routines, current)
		}

		// Position 0 with no mode is the function return value; it is not a
		// bindable parameter.
		if !paramName.Valid || !paramMode.Valid {
			continue
		}

		current.Params = append(current.Params, RoutineParam{
			Name:     paramName.String,
			Type:     paramType.String,
			Mode:     paramMode.String,
			Position: int(position.Int64),
		})
	}

	return routines, rows.Err()
}
