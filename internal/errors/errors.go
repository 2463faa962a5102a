package errors

import (
	"fmt"
	"net/http"

	"github.com/cockroachdb/errors"
)

// Common error types that can be used across the application
var (
	ErrNotFound          = new(ErrCodeNotFound, "resource not found")
	ErrAlreadyExists     = new(ErrCodeAlreadyExists, "resource already exists")
	ErrValidation        = new(ErrCodeValidation, "validation error")
	ErrInvalidOperation  = new(ErrCodeInvalidOperation, "invalid operation")
	ErrPermissionDenied  = new(ErrCodePermissionDenied, "permission denied")
	ErrTooManyRequests   = new(ErrCodeTooManyRequests, "too many requests")
	ErrLedgerUnavailable = new(ErrCodeLedgerUnavailable, "payment ledger unavailable")
	ErrDatabase          = new(ErrCodeDatabase, "database error")
	ErrInternal          = new(ErrCodeInternal, "internal error")
	ErrSystem            = new(ErrCodeSystemError, "system error")
	// maps errors to http status codes
	statusCodeMap = map[error]int{
		ErrNotFound:          http.StatusNotFound,
		ErrAlreadyExists:     http.StatusConflict,
		ErrValidation:        http.StatusBadRequest,
		ErrInvalidOperation:  http.StatusBadRequest,
		ErrPermissionDenied:  http.StatusForbidden,
		ErrTooManyRequests:   http.StatusTooManyRequests,
		ErrLedgerUnavailable: http.StatusServiceUnavailable,
		ErrDatabase:          http.StatusInternalServerError,
		ErrInternal:          http.StatusInternalServerError,
		ErrSystem:            http.StatusInternalServerError,
	}
)

const (
	ErrCodeNotFound          = "not_found"
	ErrCodeAlreadyExists     = "already_exists"
	ErrCodeValidation        = "validation_error"
	ErrCodeInvalidOperation  = "invalid_operation"
	ErrCodePermissionDenied  = "permission_denied"
	ErrCodeTooManyRequests   = "too_many_requests"
	ErrCodeLedgerUnavailable = "ledger_unavailable"
	ErrCodeDatabase          = "database_error"
	ErrCodeInternal          = "internal_error"
	ErrCodeSystemError       = "system_error"
)

// InternalError represents a domain error
type InternalError struct {
	Code    string // Machine-readable error code
	Message string // Human-readable error message
	Err     error  // Underlying error
}

func (e *InternalError) Error() string {
	if e.Err == nil {
		return e.DisplayError()
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Err.Error())
}

func (e *InternalError) DisplayError() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *InternalError) Unwrap() error {
	return e.Err
}

// Is implements error matching for wrapped errors
func (e *InternalError) Is(target error) bool {
	if target == nil {
		return false
	}

	t, ok := target.(*InternalError)
	if !ok {
		return errors.Is(e.Err, target)
	}

	return e.Code == t.Code
}

// new creates a new InternalError sentinel
func new(code string, message string) *InternalError {
	return &InternalError{
		Code:    code,
		Message: message,
	}
}

func As(err error, target any) bool {
	return errors.As(err, target)
}

// IsNotFound checks if an error is a not found error
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsAlreadyExists checks if an error is an already exists error
func IsAlreadyExists(err error) bool {
	return errors.Is(err, ErrAlreadyExists)
}

// IsValidation checks if an error is a validation error
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation)
}

// IsInvalidOperation checks if an error is an invalid operation error
func IsInvalidOperation(err error) bool {
	return errors.Is(err, ErrInvalidOperation)
}

// IsPermissionDenied checks if an error is a permission denied error
func IsPermissionDenied(err error) bool {
	return errors.Is(err, ErrPermissionDenied)
}

// IsTooManyRequests checks if an error is a rate limit rejection
func IsTooManyRequests(err error) bool {
	return errors.Is(err, ErrTooManyRequests)
}

// IsLedgerUnavailable checks if an error means the payment ledger could not be
// reached; such errors abort a reconciliation scan and are retryable by the caller.
func IsLedgerUnavailable(err error) bool {
	return errors.Is(err, ErrLedgerUnavailable)
}

func HTTPStatusFromErr(err error) int {
	for e, status := range statusCodeMap {
		if errors.Is(err, e) {
			return status
		}
	}
	return http.StatusInternalServerError
}
