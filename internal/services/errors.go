// Package services provides the business logic layer between handlers and
// the reading store.
package services

import "errors"

// Error codes carried by ServiceError
const (
	CodeValidation      = "VALIDATION_ERROR"
	CodeInvalidArgument = "INVALID_ARGUMENT"
	CodeInternal        = "INTERNAL_ERROR"
)

// ServiceError represents a service layer error
type ServiceError struct {
	Code    string   `json:"code"`
	Message string   `json:"message"`
	Details []string `json:"details,omitempty"`
	Err     error    `json:"-"`
}

func (e *ServiceError) Error() string {
	return e.Message
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

// NewServiceError creates a new ServiceError
func NewServiceError(code, message string) *ServiceError {
	return &ServiceError{
		Code:    code,
		Message: message,
	}
}

// NewValidationError reports every violated constraint of a request body
func NewValidationError(details []string) *ServiceError {
	return &ServiceError{
		Code:    CodeValidation,
		Message: "Validation failed",
		Details: details,
	}
}

// NewInvalidArgument reports a rejected query parameter
func NewInvalidArgument(message string) *ServiceError {
	return NewServiceError(CodeInvalidArgument, message)
}

// NewInternalError wraps an unexpected failure
func NewInternalError(err error) *ServiceError {
	return &ServiceError{
		Code:    CodeInternal,
		Message: err.Error(),
		Err:     err,
	}
}

// AsServiceError extracts a ServiceError from err's chain
func AsServiceError(err error) (*ServiceError, bool) {
	var svcErr *ServiceError
	if errors.As(err, &svcErr) {
		return svcErr, true
	}
	return nil, false
}
