package postgres

import (
	"database/sql"
	goerrors "errors"

	ierr "github.com/hoststack/hoststack/internal/errors"
	"github.com/lib/pq"
)

// pq error codes we translate into domain errors
const (
	pqUniqueViolation = "23505"
	pqCheckViolation  = "23514"
)

// wrapErr folds driver errors into domain sentinels. sql.ErrNoRows becomes
// ErrNotFound, unique violations become ErrAlreadyExists, everything else is
// ErrDatabase.
func wrapErr(err error, hint string) error {
	if err == nil {
		return nil
	}
	if goerrors.Is(err, sql.ErrNoRows) {
		return ierr.WithError(err).
			WithHint(hint).
			Mark(ierr.ErrNotFound)
	}

	var pqErr *pq.Error
	if goerrors.As(err, &pqErr) {
		switch string(pqErr.Code) {
		case pqUniqueViolation:
			return ierr.WithError(err).
				WithHint(hint).
				Mark(ierr.ErrAlreadyExists)
		case pqCheckViolation:
			return ierr.WithError(err).
				WithHint(hint).
				Mark(ierr.ErrInvalidOperation)
		}
	}

	return ierr.WithError(err).
		WithHint(hint).
		Mark(ierr.ErrDatabase)
}
