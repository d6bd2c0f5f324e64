package postgres

import (
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/nazeru/materials-marketplace-go/internal/order/domain"
)

const (
	codeUniqueViolation      = "23505"
	codeSerializationFailure = "40001"
	codeDeadlockDetected     = "40P01"
)

// classify turns driver errors into domain kinds. Errors that already carry a kind pass through.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	var de *domain.Error
	if errors.As(err, &de) {
		return err
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case codeUniqueViolation:
			return &domain.Error{Op: op, Kind: domain.ErrDuplicate, Message: "already exists", Err: err}
		case codeSerializationFailure, codeDeadlockDetected:
			return domain.Conflict(op, err)
		}
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return &domain.Error{Op: op, Kind: domain.ErrNotFound, Err: err}
	}
	return err
}
