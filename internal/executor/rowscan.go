// Copyright (c) 2026 Tablegate. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package executor

import (
	"database/sql"
	"encoding/json"
	"strconv"
)

// scanRows materializes a result set into JSON-ready maps.
//
// The MySQL text protocol delivers most values as []byte; they are coerced by
// the column's database type so numbers stay numbers and JSON columns pass
// through as raw JSON rather than double-encoded strings.
func scanRows(rows *sql.Rows) ([]map[string]any, error) {
	columnTypes, err := rows.ColumnTypes()
	if err != nil {
		return nil, err
	}

	names := make([]string, len(columnTypes))
	for i, columnType := range columnTypes {
		names[i] = columnType.Name()
	}

	results := []map[string]any{}
	for rows.Next() {
		values := make([]any, len(columnTypes))
		pointers := make([]any, len(columnTypes))
		for i := range values {
			pointers[i] = &values[i]
		}

		if err := rows.Scan(pointers...); err != nil {
			return nil, err
		}

		record := make(map[string]any, len(columnTypes))
		for i, value := range values {
			record[names[i]] = coerceValue(value, columnTypes[i].DatabaseTypeName())
		}
		results = append(results, record)
	}

	return results, rows.Err()
}

// coerceValue converts a raw driver value by its declared column type.
func coerceValue(value any, databaseType string) any {
	raw, ok := value.([]byte)
	if !ok {
		return value
	}

	switch databaseType {
	case "TINYINT", "SMALLINT", "MEDIUMINT", "INT", "BIGINT", "YEAR":
		if n, err := strconv.ParseInt(string(raw), 10, 64); err == nil {
			return n
		}
	case "DECIMAL", "FLOAT", "DOUBLE":
		if f, err := strconv.ParseFloat(string(raw), 64); err == nil {
			return f
		}
	case "JSON":
		// Valid JSON passes through verbatim; anything else degrades to text.
		if json.Valid(raw) {
			return json.RawMessage(append([]byte(nil), raw...))
		}
	}

	return string(raw)
}
