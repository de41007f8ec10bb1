// Package services provides the workflow management operations behind the
// HTTP API.
package services

import (
	"errors"
	"fmt"
)

// Business logic errors. Validation errors map to 400/422 responses,
// conflicts to 409.
var (
	ErrWorkflowNil    = errors.New("workflow cannot be nil")
	ErrNameRequired   = errors.New("workflow name is required")
	ErrTenantRequired = errors.New("workflow tenant is required")
	ErrNotLive        = errors.New("workflow is not live")

	ErrAlreadyLive = errors.New("workflow is already live")
)

// ServiceError wraps service-level errors with additional context.
type ServiceError struct {
	Op      string // Operation name
	Code    string // Error code for API responses
	Message string // Human-readable message
	Err     error  // Underlying error
}

func (e *ServiceError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}

	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

func (e *ServiceError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// IsValidationError checks if an error should return HTTP 400.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrWorkflowNil) ||
		errors.Is(err, ErrNameRequired) ||
		errors.Is(err, ErrTenantRequired) ||
		errors.Is(err, ErrNotLive)
}

// IsConflictError checks if an error should return HTTP 409.
func IsConflictError(err error) bool {
	return errors.Is(err, ErrAlreadyLive)
}

// NewValidationError creates a new validation error with context.
func NewValidationError(op, code, message string, err error) *ServiceError {
	return &ServiceError{
		Op:      op,
		Code:    code,
		Message: message,
		Err:     err,
	}
}
