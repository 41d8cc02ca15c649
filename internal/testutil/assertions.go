package testutil

import (
	"errors"
	"testing"

	"gorm.io/gorm"

	apperrors "ibooks/internal/errors"
	"ibooks/internal/models"
)

// AssertAppError checks that err is an *AppError with the expected error code.
func AssertAppError(t *testing.T, err error, expectedCode string) {
	t.Helper()

	if err == nil {
		t.Fatalf("expected AppError with code %q, got nil", expectedCode)
	}

	var appErr *apperrors.AppError
	if !errors.As(err, &appErr) {
		t.Fatalf("expected *AppError, got %T: %v", err, err)
	}

	if appErr.Code != expectedCode {
		t.Errorf("expected error code %q, got %q (message: %s)", expectedCode, appErr.Code, appErr.Message)
	}
}

// AssertNoError fails the test if err is not nil.
func AssertNoError(t *testing.T, err error) {
	t.Helper()

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// AssertBalance reloads a bank account and checks its balance in cents.
func AssertBalance(t *testing.T, db *gorm.DB, accountID uint, expected int64) {
	t.Helper()

	var account models.BankAccount
	if err := db.First(&account, accountID).Error; err != nil {
		t.Fatalf("failed to reload bank account %d: %v", accountID, err)
	}
	if account.BalanceCents != expected {
		t.Errorf("expected balance %d on account %d, got %d", expected, accountID, account.BalanceCents)
	}
}
