// Package errors provides the error taxonomy of the ibooks API.
// Service-layer failures are returned as AppError so handlers can render
// a stable code and message without leaking internal details.
package errors

import "net/http"

// AppError represents a structured application error with an error code,
// human-readable message, HTTP status code, and optional internal error.
type AppError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	StatusCode int    `json:"-"`
	Internal   error  `json:"-"`
}

// Error implements the error interface.
func (e *AppError) Error() string { return e.Message }

// Unwrap returns the internal error for use with errors.Is/As.
func (e *AppError) Unwrap() error { return e.Internal }

// Is matches any AppError carrying the same code, so a sentinel matches
// its Wrap and WithMessage derivatives.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// Wrap creates a new AppError with the same code/message/status but wraps an internal error.
func Wrap(sentinel *AppError, internal error) *AppError {
	return &AppError{
		Code:       sentinel.Code,
		Message:    sentinel.Message,
		StatusCode: sentinel.StatusCode,
		Internal:   internal,
	}
}

// WithMessage creates a new AppError with a custom message.
func WithMessage(sentinel *AppError, message string) *AppError {
	return &AppError{
		Code:       sentinel.Code,
		Message:    message,
		StatusCode: sentinel.StatusCode,
		Internal:   sentinel.Internal,
	}
}

// Authentication & authorization errors.
var (
	ErrUnauthorized       = &AppError{Code: "UNAUTHORIZED", Message: "Authentication required", StatusCode: http.StatusUnauthorized}
	ErrInvalidCredentials = &AppError{Code: "INVALID_CREDENTIALS", Message: "Invalid username or password", StatusCode: http.StatusUnauthorized}
	ErrForbidden          = &AppError{Code: "FORBIDDEN", Message: "Access denied", StatusCode: http.StatusForbidden}
)

// General errors.
var (
	ErrInvalidInput   = &AppError{Code: "INVALID_INPUT", Message: "Invalid input", StatusCode: http.StatusBadRequest}
	ErrNotFound       = &AppError{Code: "NOT_FOUND", Message: "Resource not found", StatusCode: http.StatusNotFound}
	ErrInternalServer = &AppError{Code: "INTERNAL_ERROR", Message: "An internal error occurred", StatusCode: http.StatusInternalServerError}
)

// User errors.
var (
	ErrUserNotFound  = &AppError{Code: "USER_NOT_FOUND", Message: "User not found", StatusCode: http.StatusNotFound}
	ErrUsernameTaken = &AppError{Code: "USERNAME_TAKEN", Message: "Username already exists", StatusCode: http.StatusConflict}
	ErrLastAdmin     = &AppError{Code: "LAST_ADMIN", Message: "At least one active admin is required", StatusCode: http.StatusConflict}
)

// Bank account errors.
var (
	ErrBankAccountNotFound = &AppError{Code: "BANK_ACCOUNT_NOT_FOUND", Message: "Bank account not found", StatusCode: http.StatusNotFound}
	ErrInvalidBankAccount  = &AppError{Code: "INVALID_BANK_ACCOUNT", Message: "Invalid bankAccountId", StatusCode: http.StatusBadRequest}
	ErrInsufficientBalance = &AppError{Code: "INSUFFICIENT_BALANCE", Message: "Insufficient balance", StatusCode: http.StatusBadRequest}
	ErrSameAccountTransfer = &AppError{Code: "SAME_ACCOUNT_TRANSFER", Message: "Cannot transfer to the same account", StatusCode: http.StatusBadRequest}
)

// Category errors.
var (
	ErrCategoryNotFound    = &AppError{Code: "CATEGORY_NOT_FOUND", Message: "Category not found", StatusCode: http.StatusNotFound}
	ErrInvalidCategory     = &AppError{Code: "INVALID_CATEGORY", Message: "Invalid categoryId", StatusCode: http.StatusBadRequest}
	ErrCategoryCycle       = &AppError{Code: "CATEGORY_CYCLE", Message: "Cannot move a category under its descendant", StatusCode: http.StatusBadRequest}
	ErrCategoryHasChildren = &AppError{Code: "CATEGORY_HAS_CHILDREN", Message: "Category has active children", StatusCode: http.StatusConflict}
)

// Tag errors.
var (
	ErrTagNotFound         = &AppError{Code: "TAG_NOT_FOUND", Message: "Tag not found", StatusCode: http.StatusNotFound}
	ErrDuplicateTag        = &AppError{Code: "DUPLICATE_TAG", Message: "Tag already exists", StatusCode: http.StatusConflict}
	ErrInvalidTagReference = &AppError{Code: "INVALID_TAG_REFERENCE", Message: "Invalid tagIds", StatusCode: http.StatusBadRequest}
	ErrInactiveTag         = &AppError{Code: "INACTIVE_TAG", Message: "Tag is inactive", StatusCode: http.StatusBadRequest}
	ErrTagCategoryMismatch = &AppError{Code: "TAG_CATEGORY_MISMATCH", Message: "Tag does not belong to selected category", StatusCode: http.StatusBadRequest}
	ErrTagNotAllowed       = &AppError{Code: "TAG_NOT_ALLOWED", Message: "Tags are only supported on first-level expense categories", StatusCode: http.StatusBadRequest}
)

// Transaction errors.
var (
	ErrTransactionNotFound    = &AppError{Code: "TRANSACTION_NOT_FOUND", Message: "Transaction not found", StatusCode: http.StatusNotFound}
	ErrTransactionNotEditable = &AppError{Code: "TRANSACTION_NOT_EDITABLE", Message: "This transaction type cannot be edited", StatusCode: http.StatusBadRequest}
	ErrTransactionHasRefunds  = &AppError{Code: "TRANSACTION_HAS_REFUNDS", Message: "Transaction has refunds", StatusCode: http.StatusConflict}
	ErrNotRefundable          = &AppError{Code: "NOT_REFUNDABLE", Message: "Only bank-funded expenses can be refunded", StatusCode: http.StatusBadRequest}
	ErrFullyRefunded          = &AppError{Code: "FULLY_REFUNDED", Message: "Transaction is already fully refunded", StatusCode: http.StatusBadRequest}
	ErrRefundExceedsRemaining = &AppError{Code: "REFUND_EXCEEDS_REMAINING", Message: "Refund amount exceeds remaining refundable amount", StatusCode: http.StatusBadRequest}
)
