// Package repository defines error types that are shared by the seat and
// registration stores. These sentinel values let the service layer tell
// storage facts apart from genuine failures. ErrDuplicate signals that a
// unique constraint rejected a write. ErrConflict signals that a
// conditional update matched no row because the row was in the wrong
// state, such as blocking a seat that is already occupied.
package repository

import (
	"errors"

	"github.com/go-sql-driver/mysql"
)

// ErrSeatNotFound is returned when a seat lookup yields no rows.
var ErrSeatNotFound = errors.New("seat not found")

// ErrRegistrationNotFound is returned when a registration lookup yields no rows.
var ErrRegistrationNotFound = errors.New("registration not found")

// ErrDuplicate is returned when an insert or update collides with the
// unique (child_name_key, child_class) index.
var ErrDuplicate = errors.New("duplicate registration")

// ErrConflict is returned when a conditional update cannot be applied
// because the row no longer satisfies its precondition.
var ErrConflict = errors.New("conflict")

const (
	mysqlDuplicateEntry = 1062 // ER_DUP_ENTRY
	mysqlRowReferenced  = 1451 // ER_ROW_IS_REFERENCED_2
)

func mysqlErrno(err error) uint16 {
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		return me.Number
	}
	return 0
}

func isDuplicateKey(err error) bool { return mysqlErrno(err) == mysqlDuplicateEntry }

func isRowReferenced(err error) bool { return mysqlErrno(err) == mysqlRowReferenced }
