// Package repository holds the MySQL access layer.  The sentinel errors
// below let the service layer tell storage outcomes apart without
// inspecting driver errors.
package repository

import (
	"database/sql"
	stderrors "errors"

	"github.com/go-sql-driver/mysql"
	"github.com/pkg/errors"
)

// ErrNotFound is returned when a lookup or a targeted update matched no
// row.  Handlers translate it into an HTTP 404 response.
var ErrNotFound = stderrors.New("not found")

// ErrDuplicate is returned when an insert violates a unique key, such as
// a second inscription of the same user to one workshop.
var ErrDuplicate = stderrors.New("duplicate")

// ErrConflict is returned when a conditional update lost against
// concurrent state, for example a status change of a row that is no
// longer PENDING.  Handlers translate it into an HTTP 409 response.
var ErrConflict = stderrors.New("conflict")

const mysqlDuplicateEntry = 1062

// wrap translates driver errors into the sentinels above and annotates
// everything else with op.
func wrap(err error, op string) error {
	if err == nil {
		return nil
	}
	if stderrors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	var me *mysql.MySQLError
	if stderrors.As(err, &me) && me.Number == mysqlDuplicateEntry {
		return ErrDuplicate
	}
	return errors.Wrap(err, op)
}

// affected reports ErrNotFound when res touched no row.
func affected(res sql.Result, op string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, op)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// conflictIfNone reports ErrConflict when a conditional update matched
// no row.
func conflictIfNone(res sql.Result, op string) error {
	err := affected(res, op)
	if stderrors.Is(err, ErrNotFound) {
		return ErrConflict
	}
	return err
}
