package domain

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorCode identifies a class of recoverable application error.
type ErrorCode string

const (
	CodeNotFound            ErrorCode = "NOT_FOUND"
	CodeValidation          ErrorCode = "VALIDATION_ERROR"
	CodeUnauthorized        ErrorCode = "UNAUTHORIZED"
	CodeForbidden           ErrorCode = "FORBIDDEN"
	CodeInvalidTransition   ErrorCode = "INVALID_TRANSITION"
	CodeIncompleteArtifacts ErrorCode = "INCOMPLETE_ARTIFACTS"
	CodeConflict            ErrorCode = "CONFLICT"
)

// AppError is a recoverable, user-facing error with a stable code.
type AppError struct {
	Code    ErrorCode
	Message string
}

// Error implements the error interface.
func (e *AppError) Error() string {
	return e.Message
}

// NewNotFoundError creates an error for a missing resource.
func NewNotFoundError(resource, id string) *AppError {
	return &AppError{
		Code:    CodeNotFound,
		Message: fmt.Sprintf("%s not found: %s", resource, id),
	}
}

// NewValidationError creates an error for invalid input.
func NewValidationError(message string) *AppError {
	return &AppError{Code: CodeValidation, Message: message}
}

// NewUnauthorizedError creates an error for a missing or invalid identity.
func NewUnauthorizedError(message string) *AppError {
	return &AppError{Code: CodeUnauthorized, Message: message}
}

// NewForbiddenError creates an error for an actor whose role or assignment
// forbids the requested operation.
func NewForbiddenError(message string) *AppError {
	return &AppError{Code: CodeForbidden, Message: message}
}

// NewInvalidTransitionError creates an error for a status change that is not
// reachable from the current status. Both statuses are included so callers can
// explain the rejection.
func NewInvalidTransitionError(current, next string) *AppError {
	return &AppError{
		Code:    CodeInvalidTransition,
		Message: fmt.Sprintf("cannot transition booking from %s to %s", current, next),
	}
}

// NewIncompleteArtifactsError creates an error for a completion request that
// is missing required proof artifacts.
func NewIncompleteArtifactsError(missing ...string) *AppError {
	return &AppError{
		Code:    CodeIncompleteArtifacts,
		Message: fmt.Sprintf("cannot complete booking, missing artifacts: %s", strings.Join(missing, ", ")),
	}
}

// NewConflictError creates an error for a concurrent-modification conflict.
func NewConflictError(message string) *AppError {
	return &AppError{Code: CodeConflict, Message: message}
}

// CodeOf extracts the error code from err, or "" if err is not an AppError.
func CodeOf(err error) ErrorCode {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}
