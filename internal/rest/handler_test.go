// Copyright (c) 2026 Tablegate. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package rest_test

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/tablegate/internal/catalog"
	"github.com/taibuivan/tablegate/internal/executor"
	"github.com/taibuivan/tablegate/internal/platform/constants"
	"github.com/taibuivan/tablegate/internal/rest"
	"github.com/taibuivan/tablegate/internal/rls"
)

// testCatalog builds the fixed test schema.
func testCatalog() *catalog.Catalog {
	routines := []*catalog.Routine{
		{
			Name: "monthly_total",
			Kind: catalog.RoutineFunction,
			Params: []catalog.RoutineParam{
				{Name: "month", Type: "int", Mode: "IN", Position: 1},
			},
		},
		{
			Name: "archive_user",
			Kind: catalog.RoutineProcedure,
			Params: []catalog.RoutineParam{
				{Name: "uid", Type: "int", Mode: "IN", Position: 1},
				{Name: "archived", Type: "int", Mode: "OUT", Position: 2},
			},
		},
	}

	return catalog.New("shop",
		[]*catalog.Table{
			catalog.NewTable("users", []catalog.Column{
				{Name: "id", Position: 1, Type: "int", Key: "PRI", Extra: "auto_increment"},
				{Name: "name", Position: 2, Type: "varchar"},
			}, nil),
			catalog.NewTable("posts", []catalog.Column{
				{Name: "id", Position: 1, Type: "int", Key: "PRI"},
				{Name: "user_id", Position: 2, Type: "int"},
				{Name: "title", Position: 3, Type: "varchar"},
			}, []catalog.ForeignKey{
				{Table: "posts", Column: "user_id", RefTable: "users", RefColumn: "id", Type: "int"},
			}),
		},
		routines,
	)
}

// newHandler builds the full pipeline over sqlmock with the exact-string
// query matcher, an empty policy index, and the fixed test schema.
func newHandler(t *testing.T) (http.Handler, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	policies := rls.NewEngine(rls.NewStore(db), log)
	handler := rest.NewHandler(testCatalog(), policies, executor.New(db, log), log)
	return handler.Routes(), mock
}

// newHandlerWithPolicy builds the same pipeline with one enabled row policy
// loaded through a dedicated store connection, so the data mock only sees the
// statements the handlers emit.
func newHandlerWithPolicy(t *testing.T, table, operation, expression string) (http.Handler, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	storeDB, storeMock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { storeDB.Close() })

	storeMock.ExpectExec("CREATE TABLE IF NOT EXISTS tablegate_policy").
		WillReturnResult(sqlmock.NewResult(0, 0))
	storeMock.ExpectQuery("SELECT id, table_name, policy_name, operation, using_expression, check_expression, enabled").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "table_name", "policy_name", "operation", "using_expression", "check_expression", "enabled",
		}).AddRow(int64(1), table, "owner_only", operation, expression, nil, true))

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	policies := rls.NewEngine(rls.NewStore(storeDB), log)
	require.NoError(t, policies.Reload(context.Background()))

	handler := rest.NewHandler(testCatalog(), policies, executor.New(db, log), log)
	return handler.Routes(), mock
}

func serve(router http.Handler, request *http.Request) *httptest.ResponseRecorder {
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, request)
	return recorder
}

/*
TestList verifies the filtered list path: projection from the catalog, a
parameterized WHERE, and the default pagination bounds.
*/
func TestList(t *testing.T) {
	router, mock := newHandler(t)

	mock.ExpectQuery("SELECT `id`, `name` FROM `users` WHERE `id` = ? LIMIT ? OFFSET ?").
		WithArgs("1", 20, 0).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}).AddRow(int64(1), "alice"))

	response := serve(router, httptest.NewRequest("GET", "/users?id=eq.1", nil))

	assert.Equal(t, http.StatusOK, response.Code)
	assert.JSONEq(t, `[{"id":1,"name":"alice"}]`, response.Body.String())
	assert.NoError(t, mock.ExpectationsWereMet())
}

/*
TestList_CountPreference verifies that Prefer: count=exact triggers the extra
COUNT query and populates Content-Range.
*/
func TestList_CountPreference(t *testing.T) {
	router, mock := newHandler(t)

	mock.ExpectQuery("SELECT COUNT(1) AS no_of_rows FROM `users`").
		WillReturnRows(sqlmock.NewRows([]string{"no_of_rows"}).AddRow(int64(57)))
	mock.ExpectQuery("SELECT `id`, `name` FROM `users` LIMIT ? OFFSET ?").
		WithArgs(20, 0).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}).AddRow(int64(1), "alice"))

	request := httptest.NewRequest("GET", "/users", nil)
	request.Header.Set(constants.HeaderPrefer, constants.PreferCountExact)
	response := serve(router, request)

	assert.Equal(t, http.StatusOK, response.Code)
	assert.Equal(t, "0-0/57", response.Header().Get(constants.HeaderContentRange))
	assert.NoError(t, mock.ExpectationsWereMet())
}

/*
TestRead verifies the read-by-id path: typed key coercion and LIMIT 1.
*/
func TestRead(t *testing.T) {
	router, mock := newHandler(t)

	mock.ExpectQuery("SELECT * FROM `users` WHERE `id` = ? LIMIT 1").
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}).AddRow(int64(7), "bob"))

	response := serve(router, httptest.NewRequest("GET", "/users/7", nil))

	assert.Equal(t, http.StatusOK, response.Code)
	assert.JSONEq(t, `[{"id":7,"name":"bob"}]`, response.Body.String())
	assert.NoError(t, mock.ExpectationsWereMet())
}

/*
TestRead_BadKey verifies that a non-numeric id against an integer key is a
client error before any SQL runs.
*/
func TestRead_BadKey(t *testing.T) {
	router, mock := newHandler(t)

	response := serve(router, httptest.NewRequest("GET", "/users/abc", nil))

	assert.Equal(t, http.StatusBadRequest, response.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

/*
TestUnknownTable verifies the 404 for tables outside the catalog, including
the hidden policy store.
*/
func TestUnknownTable(t *testing.T) {
	router, _ := newHandler(t)

	response := serve(router, httptest.NewRequest("GET", "/nope", nil))
	assert.Equal(t, http.StatusNotFound, response.Code)

	response = serve(router, httptest.NewRequest("GET", "/"+rls.PolicyTable, nil))
	assert.Equal(t, http.StatusNotFound, response.Code)
}

/*
TestTables verifies the table listing.
*/
func TestTables(t *testing.T) {
	router, _ := newHandler(t)

	response := serve(router, httptest.NewRequest("GET", "/tables", nil))

	assert.Equal(t, http.StatusOK, response.Code)
	assert.JSONEq(t, `["users","posts"]`, response.Body.String())
}

/*
TestCreate verifies a single insert: sorted column order and driver metadata
in the response.
*/
func TestCreate(t *testing.T) {
	router, mock := newHandler(t)

	mock.ExpectExec("INSERT INTO `users` (`name`) VALUES (?)").
		WithArgs("carol").
		WillReturnResult(sqlmock.NewResult(5, 1))

	request := httptest.NewRequest("POST", "/users", strings.NewReader(`{"name":"carol"}`))
	response := serve(router, request)

	assert.Equal(t, http.StatusOK, response.Code)
	assert.JSONEq(t, `{"affectedRows":1,"lastInsertId":5}`, response.Body.String())
	assert.NoError(t, mock.ExpectationsWereMet())
}

/*
TestCreate_Bulk verifies the multi-row VALUES form; rows missing a column
from the first record bind NULL.
*/
func TestCreate_Bulk(t *testing.T) {
	router, mock := newHandler(t)

	mock.ExpectExec("INSERT INTO `users` (`id`, `name`) VALUES (?, ?), (?, ?)").
		WithArgs(float64(1), "a", float64(2), nil).
		WillReturnResult(sqlmock.NewResult(0, 2))

	body := `[{"id":1,"name":"a"},{"id":2}]`
	response := serve(router, httptest.NewRequest("POST", "/users", strings.NewReader(body)))

	assert.Equal(t, http.StatusOK, response.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

/*
TestCreate_MergeDuplicates verifies the Resolution: merge-duplicates upsert.
*/
func TestCreate_MergeDuplicates(t *testing.T) {
	router, mock := newHandler(t)

	mock.ExpectExec("INSERT INTO `users` (`id`, `name`) VALUES (?, ?) ON DUPLICATE KEY UPDATE `id` = VALUES(`id`), `name` = VALUES(`name`)").
		WithArgs(float64(3), "dan").
		WillReturnResult(sqlmock.NewResult(3, 2))

	request := httptest.NewRequest("POST", "/users", strings.NewReader(`{"id":3,"name":"dan"}`))
	request.Header.Set(constants.HeaderResolution, constants.ResolutionMergeDuplicates)
	response := serve(router, request)

	assert.Equal(t, http.StatusOK, response.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

/*
TestCreate_Representation verifies the auto-increment re-select after an
insert with Prefer: return=representation.
*/
func TestCreate_Representation(t *testing.T) {
	router, mock := newHandler(t)

	mock.ExpectExec("INSERT INTO `users` (`name`) VALUES (?)").
		WithArgs("erin").
		WillReturnResult(sqlmock.NewResult(9, 1))
	mock.ExpectQuery("SELECT * FROM `users` WHERE `id` BETWEEN ? AND ?").
		WithArgs(int64(9), int64(9)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}).AddRow(int64(9), "erin"))

	request := httptest.NewRequest("POST", "/users", strings.NewReader(`{"name":"erin"}`))
	request.Header.Set(constants.HeaderPrefer, constants.PreferReturnRepresentation)
	response := serve(router, request)

	assert.Equal(t, http.StatusCreated, response.Code)
	assert.JSONEq(t, `[{"id":9,"name":"erin"}]`, response.Body.String())
	assert.NoError(t, mock.ExpectationsWereMet())
}

/*
TestUpdate verifies the full update by id; zero matched rows still answer 200
with the driver metadata.
*/
func TestUpdate(t *testing.T) {
	router, mock := newHandler(t)

	mock.ExpectExec("UPDATE `users` SET `name` = ? WHERE `id` = ?").
		WithArgs("frank", int64(9)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	request := httptest.NewRequest("PUT", "/users/9", strings.NewReader(`{"name":"frank"}`))
	response := serve(router, request)

	assert.Equal(t, http.StatusOK, response.Code)
	assert.JSONEq(t, `{"affectedRows":0,"lastInsertId":0}`, response.Body.String())
	assert.NoError(t, mock.ExpectationsWereMet())
}

/*
TestPatch verifies the filtered partial update and that an empty body is a
no-op answered with 204.
*/
func TestPatch(t *testing.T) {
	router, mock := newHandler(t)

	// 1. Filtered patch
	mock.ExpectExec("UPDATE `users` SET `name` = ? WHERE `id` = ?").
		WithArgs("gina", "3").
		WillReturnResult(sqlmock.NewResult(0, 1))

	request := httptest.NewRequest("PATCH", "/users?id=eq.3", strings.NewReader(`{"name":"gina"}`))
	response := serve(router, request)
	assert.Equal(t, http.StatusOK, response.Code)

	// 2. Empty body short-circuits
	request = httptest.NewRequest("PATCH", "/users?id=eq.3", strings.NewReader(`{}`))
	response = serve(router, request)
	assert.Equal(t, http.StatusNoContent, response.Code)

	assert.NoError(t, mock.ExpectationsWereMet())
}

/*
TestDelete verifies deletion by id.
*/
func TestDelete(t *testing.T) {
	router, mock := newHandler(t)

	mock.ExpectExec("DELETE FROM `users` WHERE `id` = ?").
		WithArgs(int64(3)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	response := serve(router, httptest.NewRequest("DELETE", "/users/3", nil))

	assert.Equal(t, http.StatusOK, response.Code)
	assert.JSONEq(t, `{"affectedRows":1,"lastInsertId":0}`, response.Body.String())
	assert.NoError(t, mock.ExpectationsWereMet())
}

/*
TestBulkDelete verifies the filtered bulk delete; with no filters the whole
table goes, matching the PostgREST default.
*/
func TestBulkDelete(t *testing.T) {
	router, mock := newHandler(t)

	mock.ExpectExec("DELETE FROM `users` WHERE `name` = ?").
		WithArgs("gone").
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec("DELETE FROM `users`").
		WillReturnResult(sqlmock.NewResult(0, 9))

	response := serve(router, httptest.NewRequest("DELETE", "/users?name=eq.gone", nil))
	assert.Equal(t, http.StatusOK, response.Code)

	response = serve(router, httptest.NewRequest("DELETE", "/users", nil))
	assert.Equal(t, http.StatusOK, response.Code)

	assert.NoError(t, mock.ExpectationsWereMet())
}

/*
TestRelational verifies the parent/child nested list: the FK predicate plus
the user filter.
*/
func TestRelational(t *testing.T) {
	router, mock := newHandler(t)

	mock.ExpectQuery("SELECT `id`, `user_id`, `title` FROM `posts` WHERE `user_id` = ? AND `title` = ? LIMIT ? OFFSET ?").
		WithArgs(int64(7), "news", 20, 0).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "title"}).
			AddRow(int64(1), int64(7), "news"))

	response := serve(router, httptest.NewRequest("GET", "/users/7/posts?title=eq.news", nil))

	assert.Equal(t, http.StatusOK, response.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

/*
TestInvoke verifies stored routine invocation: functions run as a scalar
SELECT, procedures as CALL with only IN/INOUT parameters bound.
*/
func TestInvoke(t *testing.T) {
	router, mock := newHandler(t)

	// 1. Function
	mock.ExpectQuery("SELECT `monthly_total`(?) AS `result`").
		WithArgs(float64(3)).
		WillReturnRows(sqlmock.NewRows([]string{"result"}).AddRow(int64(1250)))

	request := httptest.NewRequest("POST", "/rpc/monthly_total", strings.NewReader(`{"month":3}`))
	response := serve(router, request)
	assert.Equal(t, http.StatusOK, response.Code)
	assert.JSONEq(t, `[{"result":1250}]`, response.Body.String())

	// 2. Procedure: the OUT parameter is not bound
	mock.ExpectQuery("CALL `archive_user`(?)").
		WithArgs(float64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"archived"}).AddRow(int64(1)))

	request = httptest.NewRequest("POST", "/rpc/archive_user", strings.NewReader(`{"uid":7}`))
	response = serve(router, request)
	assert.Equal(t, http.StatusOK, response.Code)

	// 3. Unknown routine
	response = serve(router, httptest.NewRequest("POST", "/rpc/missing", strings.NewReader(`{}`)))
	assert.Equal(t, http.StatusNotFound, response.Code)

	assert.NoError(t, mock.ExpectationsWereMet())
}

/*
TestGroupBy verifies grouped counts over _fields with the default -count
ordering, and the 400 when _fields is missing.
*/
func TestGroupBy(t *testing.T) {
	router, mock := newHandler(t)

	mock.ExpectQuery("SELECT `name`, COUNT(*) AS `count` FROM `users` GROUP BY `name` ORDER BY `count` DESC").
		WillReturnRows(sqlmock.NewRows([]string{"name", "count"}).AddRow("alice", int64(2)))

	response := serve(router, httptest.NewRequest("GET", "/users/groupby?_fields=name", nil))
	assert.Equal(t, http.StatusOK, response.Code)

	response = serve(router, httptest.NewRequest("GET", "/users/groupby", nil))
	assert.Equal(t, http.StatusBadRequest, response.Code)

	assert.NoError(t, mock.ExpectationsWereMet())
}

/*
TestCount verifies the bare row-count endpoint.
*/
func TestCount(t *testing.T) {
	router, mock := newHandler(t)

	mock.ExpectQuery("SELECT COUNT(1) AS no_of_rows FROM `users`").
		WillReturnRows(sqlmock.NewRows([]string{"no_of_rows"}).AddRow(int64(42)))

	response := serve(router, httptest.NewRequest("GET", "/users/count", nil))

	assert.Equal(t, http.StatusOK, response.Code)
	assert.JSONEq(t, `[{"no_of_rows":42}]`, response.Body.String())
	assert.NoError(t, mock.ExpectationsWereMet())
}

/*
TestList_RowPolicy verifies that an enabled SELECT policy predicate is part of
the list statement, keeping other callers' rows invisible.
*/
func TestList_RowPolicy(t *testing.T) {
	router, mock := newHandlerWithPolicy(t, "users", "SELECT", "id = @request_jwt_claim_sub")

	mock.ExpectQuery("SELECT `id`, `name` FROM `users` WHERE ((id = @request_jwt_claim_sub)) LIMIT ? OFFSET ?").
		WithArgs(20, 0).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}).AddRow(int64(7), "alice"))

	response := serve(router, httptest.NewRequest("GET", "/users", nil))

	assert.Equal(t, http.StatusOK, response.Code)
	assert.JSONEq(t, `[{"id":7,"name":"alice"}]`, response.Body.String())
	assert.NoError(t, mock.ExpectationsWereMet())
}

/*
TestRead_RowPolicy verifies that a row outside the caller's SELECT policy
reads back as an empty set, not as the hidden row.
*/
func TestRead_RowPolicy(t *testing.T) {
	router, mock := newHandlerWithPolicy(t, "users", "SELECT", "id = @request_jwt_claim_sub")

	mock.ExpectQuery("SELECT * FROM `users` WHERE ((id = @request_jwt_claim_sub)) AND `id` = ? LIMIT 1").
		WithArgs(int64(9)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}))

	response := serve(router, httptest.NewRequest("GET", "/users/9", nil))

	assert.Equal(t, http.StatusOK, response.Code)
	assert.JSONEq(t, `[]`, response.Body.String())
	assert.NoError(t, mock.ExpectationsWereMet())
}

/*
TestUpdate_RowPolicy verifies that the UPDATE policy rides the update by id,
so a row outside the policy stays untouched and the denial shows up as zero
affected rows.
*/
func TestUpdate_RowPolicy(t *testing.T) {
	router, mock := newHandlerWithPolicy(t, "users", "UPDATE", "id = @request_jwt_claim_sub")

	mock.ExpectExec("UPDATE `users` SET `name` = ? WHERE ((id = @request_jwt_claim_sub)) AND `id` = ?").
		WithArgs("mallory", int64(9)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	request := httptest.NewRequest("PUT", "/users/9", strings.NewReader(`{"name":"mallory"}`))
	response := serve(router, request)

	assert.Equal(t, http.StatusOK, response.Code)
	assert.JSONEq(t, `{"affectedRows":0,"lastInsertId":0}`, response.Body.String())
	assert.NoError(t, mock.ExpectationsWereMet())
}

/*
TestBulkDelete_RowPolicy verifies that an unfiltered bulk delete under a
DELETE policy only reaches the caller's own rows.
*/
func TestBulkDelete_RowPolicy(t *testing.T) {
	router, mock := newHandlerWithPolicy(t, "users", "DELETE", "id = @request_jwt_claim_sub")

	mock.ExpectExec("DELETE FROM `users` WHERE ((id = @request_jwt_claim_sub))").
		WillReturnResult(sqlmock.NewResult(0, 1))

	response := serve(router, httptest.NewRequest("DELETE", "/users", nil))

	assert.Equal(t, http.StatusOK, response.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

/*
TestGroupBy_RowPolicy verifies that grouped counts only aggregate rows inside
the SELECT policy.
*/
func TestGroupBy_RowPolicy(t *testing.T) {
	router, mock := newHandlerWithPolicy(t, "users", "SELECT", "id = @request_jwt_claim_sub")

	mock.ExpectQuery("SELECT `name`, COUNT(*) AS `count` FROM `users` WHERE ((id = @request_jwt_claim_sub)) GROUP BY `name` ORDER BY `count` DESC").
		WillReturnRows(sqlmock.NewRows([]string{"name", "count"}).AddRow("alice", int64(1)))

	response := serve(router, httptest.NewRequest("GET", "/users/groupby?_fields=name", nil))

	assert.Equal(t, http.StatusOK, response.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

/*
TestAggregate_RowPolicy verifies that the aggregate functions only see rows
inside the SELECT policy.
*/
func TestAggregate_RowPolicy(t *testing.T) {
	router, mock := newHandlerWithPolicy(t, "users", "SELECT", "id = @request_jwt_claim_sub")

	mock.ExpectQuery("SELECT MIN(`id`) AS `min_of_id`, MAX(`id`) AS `max_of_id`, AVG(`id`) AS `avg_of_id`, " +
		"SUM(`id`) AS `sum_of_id`, STDDEV(`id`) AS `stddev_of_id`, VARIANCE(`id`) AS `variance_of_id` " +
		"FROM `users` WHERE ((id = @request_jwt_claim_sub))").
		WillReturnRows(sqlmock.NewRows([]string{"min_of_id", "max_of_id"}).AddRow(int64(7), int64(7)))

	response := serve(router, httptest.NewRequest("GET", "/users/aggregate?_fields=id", nil))

	assert.Equal(t, http.StatusOK, response.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

/*
TestCount_RowPolicy verifies that the row-count endpoint only counts rows
inside the SELECT policy.
*/
func TestCount_RowPolicy(t *testing.T) {
	router, mock := newHandlerWithPolicy(t, "users", "SELECT", "id = @request_jwt_claim_sub")

	mock.ExpectQuery("SELECT COUNT(1) AS no_of_rows FROM `users` WHERE ((id = @request_jwt_claim_sub))").
		WillReturnRows(sqlmock.NewRows([]string{"no_of_rows"}).AddRow(int64(1)))

	response := serve(router, httptest.NewRequest("GET", "/users/count", nil))

	assert.Equal(t, http.StatusOK, response.Code)
	assert.JSONEq(t, `[{"no_of_rows":1}]`, response.Body.String())
	assert.NoError(t, mock.ExpectationsWereMet())
}

/*
TestInvoke_StructuredArgument verifies that an array or object argument binds
as JSON text rather than as a raw map or slice the driver would reject.
*/
func TestInvoke_StructuredArgument(t *testing.T) {
	router, mock := newHandler(t)

	mock.ExpectQuery("SELECT `monthly_total`(?) AS `result`").
		WithArgs(`[1,2,3]`).
		WillReturnRows(sqlmock.NewRows([]string{"result"}).AddRow(int64(4200)))

	request := httptest.NewRequest("POST", "/rpc/monthly_total", strings.NewReader(`{"month":[1,2,3]}`))
	response := serve(router, request)

	assert.Equal(t, http.StatusOK, response.Code)
	assert.JSONEq(t, `[{"result":4200}]`, response.Body.String())
	assert.NoError(t, mock.ExpectationsWereMet())
}
