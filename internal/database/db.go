package database

import (
	"errors"
	"strings"

	"github.com/edlume/authtrail/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

func MapPostgresError(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, pgx.ErrNoRows) {
		return models.ErrNotFound
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch {
		case pgErr.Code == "23514": // check_violation
			return models.ErrValidation
		case pgErr.Code == "23502": // not_null_violation
			return models.ErrValidation
		case strings.HasPrefix(pgErr.Code, "08"): // connection_exception
			return models.ErrStoreUnavailable
		case strings.HasPrefix(pgErr.Code, "57"): // operator_intervention / shutdown
			return models.ErrStoreUnavailable
		}
	}

	var connErr *pgconn.ConnectError
	if errors.As(err, &connErr) {
		return models.ErrStoreUnavailable
	}

	return err
}
