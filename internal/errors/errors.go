package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

type ErrorCode string

const (
	Unauthenticated          ErrorCode = "UNAUTHENTICATED"
	Unauthorized             ErrorCode = "UNAUTHORIZED"
	UnauthorizedStatusChange ErrorCode = "UNAUTHORIZED_STATUS_CHANGE"
	AccountNotFound          ErrorCode = "ACCOUNT_NOT_FOUND"
	CustomerNotFound         ErrorCode = "CUSTOMER_NOT_FOUND"
	DuplicateAccount         ErrorCode = "DUPLICATE_ACCOUNT"
	DuplicateAccountNumber   ErrorCode = "DUPLICATE_ACCOUNT_NUMBER"
	InvalidBalance           ErrorCode = "INVALID_BALANCE"
	InsufficientBalance      ErrorCode = "INSUFFICIENT_BALANCE"
	InvalidStatusTransition  ErrorCode = "INVALID_STATUS_TRANSITION"
	InvalidAccountOperation  ErrorCode = "INVALID_ACCOUNT_OPERATION"
	AccountNumberExhausted   ErrorCode = "ACCOUNT_NUMBER_EXHAUSTED"
	ValidationFailed         ErrorCode = "VALIDATION_FAILED"
	InternalError            ErrorCode = "INTERNAL_ERROR"
)

type AppError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Details string    `json:"details,omitempty"`
}

func (e *AppError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func NewAppError(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

func NewAppErrorf(code ErrorCode, format string, args ...interface{}) *AppError {
	return &AppError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// WithDetails returns a copy so the predefined errors stay untouched.
func (e *AppError) WithDetails(details string) *AppError {
	clone := *e
	clone.Details = details
	return &clone
}

// HTTPStatus maps an error code to the status the boundary layer responds with.
func (e *AppError) HTTPStatus() int {
	switch e.Code {
	case Unauthenticated:
		return http.StatusUnauthorized
	case Unauthorized, UnauthorizedStatusChange:
		return http.StatusForbidden
	case AccountNotFound, CustomerNotFound:
		return http.StatusNotFound
	case DuplicateAccount:
		return http.StatusConflict
	case InvalidBalance, InsufficientBalance, InvalidStatusTransition,
		InvalidAccountOperation, ValidationFailed:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// IsCode reports whether err is an AppError carrying the given code.
func IsCode(err error, code ErrorCode) bool {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}

// Predefined errors for common cases
var (
	ErrUnauthenticated        = NewAppError(Unauthenticated, "missing or invalid credential")
	ErrAccountNotFound        = NewAppError(AccountNotFound, "account not found")
	ErrDuplicateAccount       = NewAppError(DuplicateAccount, "account already exists")
	ErrDuplicateAccountNumber = NewAppError(DuplicateAccountNumber, "account number already taken")
	ErrAccountNumberExhausted = NewAppError(AccountNumberExhausted, "failed to generate a unique account number")
	ErrCannotBeginTransaction = NewAppError(InternalError, "cannot begin transaction outside of a database store")
)
