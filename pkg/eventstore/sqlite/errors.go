package sqlite

import (
	"errors"

	sqlite "modernc.org/sqlite"
	sqlitelib "modernc.org/sqlite/lib"

	"github.com/identra/identra/pkg/apperror"
)

// mapError classifies driver errors: busy and locked are transient and
// safe to retry, key collisions mean a concurrent writer won the race,
// everything else is internal.
func mapError(err error, code, message string) error {
	var serr *sqlite.Error
	if errors.As(err, &serr) {
		switch serr.Code() {
		case sqlitelib.SQLITE_BUSY, sqlitelib.SQLITE_LOCKED:
			return apperror.ThrowTransient(err, code, message)
		case sqlitelib.SQLITE_CONSTRAINT_PRIMARYKEY, sqlitelib.SQLITE_CONSTRAINT_UNIQUE:
			return apperror.ThrowConcurrencyConflict(err, code, message)
		}
	}
	return apperror.ThrowInternal(err, code, message)
}

func isKeyConflict(err error) bool {
	var serr *sqlite.Error
	if errors.As(err, &serr) {
		return serr.Code() == sqlitelib.SQLITE_CONSTRAINT_PRIMARYKEY ||
			serr.Code() == sqlitelib.SQLITE_CONSTRAINT_UNIQUE
	}
	return false
}
