// Copyright (c) 2026 Tablegate. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package dberr provides a bridge between low-level database errors and
// higher-level application errors.
package dberr

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-sql-driver/mysql"

	"github.com/taibuivan/tablegate/internal/platform/apperr"
)

var (
	// ErrNotFound is a standard error returned when a queried row doesn't exist.
	ErrNotFound = apperr.NotFound("Resource")
)

// Wrap inspects a database error and wraps it into a meaningful [apperr.AppError].
// It hides internal SQL text from the client while classifying the error type.
//
// # Mapping
//
//   - sql.ErrNoRows            → 404 NOT_FOUND
//   - *mysql.MySQLError        → 400 with the driver's numeric code (e.g. ER_1062
//     for a unique-constraint violation), so clients can react to conflicts.
//   - anything else            → 500 INTERNAL_ERROR, cause retained for logs only.
func Wrap(err error, action string) error {
	if err == nil {
		return nil
	}

	// 1. Not Found mapping
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}

	// 2. Driver errors carry a MySQL error number; surface it as the code.
	var driverErr *mysql.MySQLError
	if errors.As(err, &driverErr) {
		return apperr.DriverError(
			fmt.Sprintf("ER_%d", driverErr.Number),
			driverErr.Message,
			fmt.Errorf("dberr: %s: %w", action, err),
		)
	}

	// 3. Unknown query errors become Internal Server Errors.
	return apperr.Internal(fmt.Errorf("dberr: %s: %w", action, err))
}
