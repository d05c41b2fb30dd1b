package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorCode represents a category of application error.
type ErrorCode string

const (
	// ErrCodeCredentialsRejected indicates the backend refused a credential pair.
	ErrCodeCredentialsRejected ErrorCode = "credentials_rejected"
	// ErrCodeUnauthenticated indicates a missing or expired session (HTTP 401).
	ErrCodeUnauthenticated ErrorCode = "unauthenticated"
	// ErrCodeForbidden indicates an authenticated caller lacking permission (HTTP 403).
	ErrCodeForbidden ErrorCode = "forbidden"
	// ErrCodeUnreachable indicates the backend could not be reached.
	ErrCodeUnreachable ErrorCode = "unreachable"
	// ErrCodeMalformedResponse indicates the backend answered with an unusable payload.
	ErrCodeMalformedResponse ErrorCode = "malformed_response"
	// ErrCodeNotFound indicates a resource was not found.
	ErrCodeNotFound ErrorCode = "not_found"
	// ErrCodeConflict indicates a conflict with existing data (e.g., unique constraint violation).
	ErrCodeConflict ErrorCode = "conflict"
	// ErrCodeValidation indicates invalid input data.
	ErrCodeValidation ErrorCode = "validation"
	// ErrCodeInternal indicates an internal server error.
	ErrCodeInternal ErrorCode = "internal"
	// ErrCodeTimeout indicates a timeout occurred.
	ErrCodeTimeout ErrorCode = "timeout"
	// ErrCodeCanceled indicates the operation was canceled.
	ErrCodeCanceled ErrorCode = "canceled"
)

// AppError represents a structured application error with a code, message, and optional cause.
// It supports error wrapping and unwrapping for use with errors.Is and errors.As.
type AppError struct {
	// Code categorizes the error type
	Code ErrorCode
	// Message is a human-readable error message
	Message string
	// Cause is the underlying error that caused this error (optional)
	Cause error
	// Field is the specific field that caused the error (optional, for validation errors)
	Field string
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap returns the underlying cause, enabling errors.Is and errors.As.
func (e *AppError) Unwrap() error {
	return e.Cause
}

func newf(code ErrorCode, format string, args ...any) *AppError {
	msg := format
	if len(args) > 0 {
		msg = fmt.Sprintf(format, args...)
	}
	return &AppError{Code: code, Message: msg}
}

// CredentialsRejected creates a new CredentialsRejected error.
func CredentialsRejected(message string) *AppError {
	return newf(ErrCodeCredentialsRejected, "%s", message)
}

// Unauthenticated creates a new Unauthenticated error.
func Unauthenticated(message string) *AppError {
	return newf(ErrCodeUnauthenticated, "%s", message)
}

// Forbidden creates a new Forbidden error.
func Forbidden(message string) *AppError {
	return newf(ErrCodeForbidden, "%s", message)
}

// NotFound creates a new NotFound error.
func NotFound(message string) *AppError {
	return newf(ErrCodeNotFound, "%s", message)
}

// NotFoundf creates a new NotFound error with formatted message.
func NotFoundf(format string, args ...any) *AppError {
	return newf(ErrCodeNotFound, format, args...)
}

// Validation creates a new Validation error.
func Validation(message string) *AppError {
	return newf(ErrCodeValidation, "%s", message)
}

// ValidationField creates a new Validation error for a specific field.
func ValidationField(field, message string) *AppError {
	e := newf(ErrCodeValidation, "%s", message)
	e.Field = field
	return e
}

// Internal creates a new Internal error.
func Internal(message string) *AppError {
	return newf(ErrCodeInternal, "%s", message)
}

// Internalf creates a new Internal error with formatted message.
func Internalf(format string, args ...any) *AppError {
	return newf(ErrCodeInternal, format, args...)
}

// Wrap wraps an existing error with an AppError, preserving the cause.
func Wrap(err error, code ErrorCode, message string) *AppError {
	if err == nil {
		return nil
	}
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   err,
	}
}

// Wrapf wraps an existing error with an AppError and formatted message.
func Wrapf(err error, code ErrorCode, format string, args ...any) *AppError {
	if err == nil {
		return nil
	}
	return &AppError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   err,
	}
}

// FromStatus maps a non-2xx backend status to an AppError carrying message.
func FromStatus(status int, message string) *AppError {
	var code ErrorCode
	switch {
	case status == http.StatusUnauthorized:
		code = ErrCodeUnauthenticated
	case status == http.StatusForbidden:
		code = ErrCodeForbidden
	case status == http.StatusNotFound:
		code = ErrCodeNotFound
	case status == http.StatusConflict:
		code = ErrCodeConflict
	case status == http.StatusBadRequest, status == http.StatusUnprocessableEntity:
		code = ErrCodeValidation
	case status == http.StatusRequestTimeout, status == http.StatusGatewayTimeout:
		code = ErrCodeTimeout
	case status == http.StatusBadGateway, status == http.StatusServiceUnavailable:
		code = ErrCodeUnreachable
	default:
		code = ErrCodeInternal
	}
	if message == "" {
		message = http.StatusText(status)
		if message == "" {
			message = fmt.Sprintf("request failed with status %d", status)
		}
	}
	return &AppError{Code: code, Message: message}
}

// isCode checks if an error has a specific error code.
func isCode(err error, code ErrorCode) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Code == code
}

// IsCredentialsRejected checks if an error is a CredentialsRejected error.
func IsCredentialsRejected(err error) bool {
	return isCode(err, ErrCodeCredentialsRejected)
}

// IsUnauthenticated checks if an error is an Unauthenticated error.
func IsUnauthenticated(err error) bool {
	return isCode(err, ErrCodeUnauthenticated)
}

// IsForbidden checks if an error is a Forbidden error.
func IsForbidden(err error) bool {
	return isCode(err, ErrCodeForbidden)
}

// IsUnreachable checks if an error is an Unreachable error.
func IsUnreachable(err error) bool {
	return isCode(err, ErrCodeUnreachable)
}

// IsMalformedResponse checks if an error is a MalformedResponse error.
func IsMalformedResponse(err error) bool {
	return isCode(err, ErrCodeMalformedResponse)
}

// IsNotFound checks if an error is a NotFound error.
func IsNotFound(err error) bool {
	return isCode(err, ErrCodeNotFound)
}

// IsConflict checks if an error is a Conflict error.
func IsConflict(err error) bool {
	return isCode(err, ErrCodeConflict)
}

// IsValidation checks if an error is a Validation error.
func IsValidation(err error) bool {
	return isCode(err, ErrCodeValidation)
}

// IsInternal checks if an error is an Internal error.
func IsInternal(err error) bool {
	return isCode(err, ErrCodeInternal)
}

// IsTimeout checks if an error is a Timeout error.
func IsTimeout(err error) bool {
	return isCode(err, ErrCodeTimeout)
}

// IsCanceled checks if an error is a Canceled error.
func IsCanceled(err error) bool {
	return isCode(err, ErrCodeCanceled)
}

// GetCode returns the ErrorCode from an error, or empty string if not an AppError.
func GetCode(err error) ErrorCode {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}

// GetField returns the Field from an error, or empty string if not an AppError or no field set.
func GetField(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Field
	}
	return ""
}
