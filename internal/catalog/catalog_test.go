// Copyright (c) 2026 Tablegate. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package catalog_test

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/tablegate/internal/catalog"
)

var columnResultColumns = []string{
	"TABLE_NAME", "COLUMN_NAME", "ORDINAL_POSITION", "DATA_TYPE", "COLUMN_TYPE",
	"COLUMN_KEY", "IS_NULLABLE", "COLUMN_DEFAULT", "EXTRA",
	"REFERENCED_TABLE_NAME", "REFERENCED_COLUMN_NAME",
}

var routineResultColumns = []string{
	"ROUTINE_NAME", "ROUTINE_TYPE", "PARAMETER_NAME", "DATA_TYPE", "PARAMETER_MODE", "ORDINAL_POSITION",
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

/*
TestLoad verifies a full introspection pass: table grouping on name change,
key roles, FK edges, and routine parameters.
*/
func TestLoad(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	mock.ExpectQuery("FROM information_schema.COLUMNS c").
		WithArgs("shop").
		WillReturnRows(sqlmock.NewRows(columnResultColumns).
			AddRow("posts", "id", 1, "int", "int", "PRI", "NO", nil, "auto_increment", nil, nil).
			AddRow("posts", "user_id", 2, "int", "int", "MUL", "NO", nil, "", "users", "id").
			AddRow("posts", "title", 3, "varchar", "varchar(255)", "", "YES", "untitled", "", nil, nil).
			AddRow("users", "id", 1, "int", "int", "PRI", "NO", nil, "auto_increment", nil, nil).
			AddRow("users", "name", 2, "varchar", "varchar(255)", "", "NO", nil, "", nil, nil))

	mock.ExpectQuery("FROM information_schema.ROUTINES r").
		WithArgs("shop").
		WillReturnRows(sqlmock.NewRows(routineResultColumns).
			AddRow("monthly_total", "FUNCTION", nil, "decimal", nil, 0).
			AddRow("monthly_total", "FUNCTION", "month", "int", "IN", 1).
			AddRow("reindex_all", "PROCEDURE", nil, nil, nil, nil))

	cat, err := catalog.Load(context.Background(), db, "shop", discardLogger())
	require.NoError(t, err)

	// 1. Tables arrive in introspection order
	assert.Equal(t, []string{"posts", "users"}, cat.TableNames())

	// 2. Key metadata and defaults
	posts, ok := cat.Table("posts")
	require.True(t, ok)
	require.Len(t, posts.PrimaryKeys, 1)
	assert.Equal(t, "id", posts.PrimaryKeys[0].Name)
	assert.True(t, posts.PrimaryKeys[0].IsAutoIncrement())

	title, ok := posts.Column("title")
	require.True(t, ok)
	assert.True(t, title.Nullable)
	require.NotNil(t, title.Default)
	assert.Equal(t, "untitled", *title.Default)

	// 3. FK edge attached to the owning column
	require.Len(t, posts.ForeignKeys, 1)
	assert.Equal(t, catalog.ForeignKey{
		Table: "posts", Column: "user_id", RefTable: "users", RefColumn: "id", Type: "int",
	}, posts.ForeignKeys[0])

	// 4. The function return value (NULL mode) is not a bindable parameter
	fn, ok := cat.Routine("monthly_total")
	require.True(t, ok)
	assert.Equal(t, catalog.RoutineFunction, fn.Kind)
	require.Len(t, fn.InParams(), 1)
	assert.Equal(t, "month", fn.InParams()[0].Name)

	// 5. A parameterless procedure still registers
	proc, ok := cat.Routine("reindex_all")
	require.True(t, ok)
	assert.Equal(t, catalog.RoutineProcedure, proc.Kind)
	assert.Empty(t, proc.InParams())

	assert.NoError(t, mock.ExpectationsWereMet())
}

/*
TestLoad_EmptySchema verifies that a database with no tables is fatal.
*/
func TestLoad_EmptySchema(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	mock.ExpectQuery("FROM information_schema.COLUMNS c").
		WithArgs("empty").
		WillReturnRows(sqlmock.NewRows(columnResultColumns))

	cat, err := catalog.Load(context.Background(), db, "empty", discardLogger())
	assert.Error(t, err)
	assert.Nil(t, cat)
}

/*
TestLoad_RoutineFailureNonFatal verifies that a failed routine query degrades
to a catalog without routines instead of failing startup.
*/
func TestLoad_RoutineFailureNonFatal(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	mock.ExpectQuery("FROM information_schema.COLUMNS c").
		WithArgs("shop").
		WillReturnRows(sqlmock.NewRows(columnResultColumns).
			AddRow("users", "id", 1, "int", "int", "PRI", "NO", nil, "", nil, nil))

	mock.ExpectQuery("FROM information_schema.ROUTINES r").
		WithArgs("shop").
		WillReturnError(assert.AnError)

	cat, err := catalog.Load(context.Background(), db, "shop", discardLogger())
	require.NoError(t, err)

	_, ok := cat.Routine("anything")
	assert.False(t, ok)
}

/*
TestColumn_Flags verifies the column predicate helpers.
*/
func TestColumn_Flags(t *testing.T) {
	assert.True(t, catalog.Column{Key: "PRI"}.IsPrimary())
	assert.False(t, catalog.Column{Key: "MUL"}.IsPrimary())
	assert.True(t, catalog.Column{Type: "json"}.IsJSON())
	assert.True(t, catalog.Column{Type: "JSON"}.IsJSON())
	assert.False(t, catalog.Column{Type: "text"}.IsJSON())
	assert.True(t, catalog.Column{Extra: "auto_increment"}.IsAutoIncrement())
}

/*
TestNewTable verifies the name index, primary-key collection, and duplicate
column protection.
*/
func TestNewTable(t *testing.T) {
	table := catalog.NewTable("order_items", []catalog.Column{
		{Name: "order_id", Key: "PRI"},
		{Name: "sku", Key: "PRI"},
		{Name: "qty"},
		{Name: "qty"}, // duplicate is ignored
	}, nil)

	assert.Len(t, table.Columns, 3)
	assert.Len(t, table.PrimaryKeys, 2)
	assert.True(t, table.HasColumn("sku"))
	assert.False(t, table.HasColumn("missing"))

	col, ok := table.Column("order_id")
	require.True(t, ok)
	assert.Equal(t, "order_id", col.Name)
}
