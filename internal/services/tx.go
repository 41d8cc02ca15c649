package services

import (
	"context"
	"errors"

	"gorm.io/gorm"

	apperrors "ibooks/internal/errors"
)

// runInTx executes fn inside one database transaction. The transaction
// commits when fn returns nil and rolls back on any error or panic; the
// connection is released on every path. Non-AppError failures are wrapped
// as internal errors.
func runInTx(ctx context.Context, db *gorm.DB, fn func(tx *gorm.DB) error) error {
	err := db.WithContext(ctx).Transaction(fn)
	if err == nil {
		return nil
	}
	return asAppError(err)
}

func asAppError(err error) error {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return apperrors.Wrap(apperrors.ErrInternalServer, err)
}

// lookupError maps gorm.ErrRecordNotFound to notFound and anything else to an internal error.
func lookupError(err error, notFound *apperrors.AppError) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return notFound
	}
	return apperrors.Wrap(apperrors.ErrInternalServer, err)
}

func internal(err error) error {
	return apperrors.Wrap(apperrors.ErrInternalServer, err)
}
