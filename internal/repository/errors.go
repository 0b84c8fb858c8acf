// Package repository is the MySQL persistence layer. Errors leaving this
// package are *apperr.Error values: missing rows become not_found, duplicate
// keys become conflict and everything else is internal with the driver
// error preserved as the cause.
package repository

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-sql-driver/mysql"

	"github.com/iliyamo/rental-booking/internal/apperr"
)

// mysqlDuplicateEntry is ER_DUP_ENTRY.
const mysqlDuplicateEntry = 1062

// isDuplicate reports whether err is a MySQL unique key violation.
func isDuplicate(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == mysqlDuplicateEntry
}

// mapErr classifies a database error; what describes the failed operation.
func mapErr(err error, what string, args ...any) error {
	if err == nil {
		return nil
	}
	msg := fmt.Sprintf(what, args...)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return &apperr.Error{Kind: apperr.KindNotFound, Message: msg + " not found", Err: err}
	case isDuplicate(err):
		return &apperr.Error{Kind: apperr.KindConflict, Message: msg + " already exists", Err: err}
	}
	return apperr.Wrap(err, apperr.KindInternal, "%s", msg)
}
