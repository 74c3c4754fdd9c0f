package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorCode classifies an application error
type ErrorCode string

const (
	ErrUnauthorized      ErrorCode = "UNAUTHORIZED"
	ErrForbidden         ErrorCode = "FORBIDDEN"
	ErrNotFound          ErrorCode = "NOT_FOUND"
	ErrConflict          ErrorCode = "CONFLICT"
	ErrBadRequest        ErrorCode = "BAD_REQUEST"
	ErrValidation        ErrorCode = "VALIDATION_ERROR"
	ErrInvalidCapability ErrorCode = "INVALID_CAPABILITY"
	ErrInternal          ErrorCode = "INTERNAL"
)

// AppError represents an application error
type AppError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Err     error     `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// StatusCode maps the error code to its HTTP status. InvalidCapability is a
// programming error, not a client denial, so it surfaces as 500.
func (e *AppError) StatusCode() int {
	switch e.Code {
	case ErrUnauthorized:
		return http.StatusUnauthorized
	case ErrForbidden:
		return http.StatusForbidden
	case ErrNotFound:
		return http.StatusNotFound
	case ErrConflict:
		return http.StatusConflict
	case ErrBadRequest:
		return http.StatusBadRequest
	case ErrValidation:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func newError(code ErrorCode, message string, err error) *AppError {
	return &AppError{Code: code, Message: message, Err: err}
}

func Unauthorized(message string, err error) *AppError {
	return newError(ErrUnauthorized, message, err)
}

func Forbidden(message string, err error) *AppError {
	return newError(ErrForbidden, message, err)
}

func NotFound(resource string, err error) *AppError {
	return newError(ErrNotFound, fmt.Sprintf("%s not found", resource), err)
}

func Conflict(message string, err error) *AppError {
	return newError(ErrConflict, message, err)
}

func BadRequest(message string, err error) *AppError {
	return newError(ErrBadRequest, message, err)
}

func Validation(message string, err error) *AppError {
	return newError(ErrValidation, message, err)
}

// InvalidCapability signals that a caller asked about a module or operation
// that is not part of the capability registry. Callers must treat this as a
// bug in routing or configuration, never as an access denial.
func InvalidCapability(message string, err error) *AppError {
	return newError(ErrInvalidCapability, message, err)
}

func Internal(err error) *AppError {
	return newError(ErrInternal, "internal server error", err)
}

// Is reports whether err carries the given code.
func Is(err error, code ErrorCode) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}

// From extracts an AppError from err, wrapping unknown errors as Internal.
func From(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return Internal(err)
}
