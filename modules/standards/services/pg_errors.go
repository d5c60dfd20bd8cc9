package services

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

func mapPgErrorToServiceError(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, pgx.ErrNoRows) {
		return newServiceError(http.StatusNotFound, "STD_NOT_FOUND", "standard not found", err)
	}

	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}

	switch pgErr.Code {
	case "23505": // unique_violation
		recordWriteConflict("unique")
		switch pgErr.ConstraintName {
		case "standard_items_standard_id_code_key":
			return newServiceError(http.StatusConflict, "STD_CODE_CONFLICT", "item code already exists", err)
		case "standards_key_key":
			return newServiceError(http.StatusConflict, "STD_KEY_CONFLICT", "standard key already exists", err)
		default:
			return newServiceError(http.StatusConflict, "STD_CODE_CONFLICT", "unique constraint violated", err)
		}
	case "23503": // foreign_key_violation
		recordWriteConflict("foreign_key")
		return newServiceError(http.StatusBadRequest, "STD_PARENT_NOT_FOUND", "foreign key violation", err)
	default:
		return newServiceError(http.StatusInternalServerError, "STD_INTERNAL", fmt.Sprintf("database error (%s)", pgErr.Code), err)
	}
}
