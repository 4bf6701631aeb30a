package services

import (
	"errors"
	"fmt"

	"github.com/upb/incident-ai-gateway/models"
)

// ErrorType represents the type/category of error
type ErrorType string

const (
	ErrorTypeConfiguration ErrorType = "configuration"
	ErrorTypeValidation    ErrorType = "validation"
	ErrorTypeRateLimit     ErrorType = "rate_limit"
	ErrorTypeBudget        ErrorType = "budget"
	ErrorTypeExternal      ErrorType = "external"
	ErrorTypeCancelled     ErrorType = "cancelled"
	ErrorTypeInternal      ErrorType = "internal"
)

// DomainError represents a structured error with additional context
type DomainError struct {
	Type    ErrorType
	Message string
	Err     error
	Details map[string]interface{}
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *DomainError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Type == t.Type
}

// WithDetail adds a detail to the error
func (e *DomainError) WithDetail(key string, value interface{}) *DomainError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// NewDomainError creates a new domain error
func NewDomainError(errType ErrorType, message string, err error) *DomainError {
	return &DomainError{
		Type:    errType,
		Message: message,
		Err:     err,
		Details: make(map[string]interface{}),
	}
}

var (
	ErrNoProviders         = NewDomainError(ErrorTypeConfiguration, "no AI providers configured", nil)
	ErrEmptyPrompt         = NewDomainError(ErrorTypeValidation, "prompt cannot be empty", nil)
	ErrRateLimitExceeded   = NewDomainError(ErrorTypeRateLimit, "rate limit exceeded", nil)
	ErrDailyBudgetExceeded = NewDomainError(ErrorTypeBudget, "daily cost limit exceeded", nil)
	ErrProvidersExhausted  = NewDomainError(ErrorTypeExternal, "all AI providers failed", nil)
	ErrRequestCancelled    = NewDomainError(ErrorTypeCancelled, "request cancelled", nil)
	ErrInternal            = NewDomainError(ErrorTypeInternal, "internal server error", nil)
)

// ErrorFromResponse converts a failed AIResponse into a DomainError.
// Successful responses, including degraded ones, yield nil.
func ErrorFromResponse(resp *models.AIResponse) error {
	if resp == nil {
		return ErrInternal
	}
	if resp.Success {
		return nil
	}

	var errType ErrorType
	switch resp.ErrorKind {
	case models.ErrorKindConfiguration:
		errType = ErrorTypeConfiguration
	case models.ErrorKindRateLimited:
		errType = ErrorTypeRateLimit
	case models.ErrorKindBudgetExceeded:
		errType = ErrorTypeBudget
	case models.ErrorKindUpstream:
		errType = ErrorTypeExternal
	case models.ErrorKindCancelled:
		errType = ErrorTypeCancelled
	default:
		errType = ErrorTypeInternal
	}

	return NewDomainError(errType, resp.Error, nil).
		WithDetail("request_id", resp.RequestID).
		WithDetail("attempts", resp.Attempts)
}

// IsConfigurationError checks if an error is a configuration error
func IsConfigurationError(err error) bool {
	return GetErrorType(err) == ErrorTypeConfiguration
}

// IsValidationError checks if an error is a validation error
func IsValidationError(err error) bool {
	return GetErrorType(err) == ErrorTypeValidation
}

// IsRateLimitError checks if an error is a rate limit error
func IsRateLimitError(err error) bool {
	return GetErrorType(err) == ErrorTypeRateLimit
}

// IsBudgetError checks if an error is a budget error
func IsBudgetError(err error) bool {
	return GetErrorType(err) == ErrorTypeBudget
}

// IsExternalError checks if an error is an external provider error
func IsExternalError(err error) bool {
	return GetErrorType(err) == ErrorTypeExternal
}

// IsCancelledError checks if an error is a cancellation
func IsCancelledError(err error) bool {
	return GetErrorType(err) == ErrorTypeCancelled
}

// IsInternalError checks if an error is an internal error
func IsInternalError(err error) bool {
	return GetErrorType(err) == ErrorTypeInternal
}

// GetErrorType returns the ErrorType of a domain error, or empty string if not a domain error
func GetErrorType(err error) ErrorType {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Type
	}
	return ""
}

// GetErrorDetails returns the details map of a domain error, or nil if not a domain error
func GetErrorDetails(err error) map[string]interface{} {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Details
	}
	return nil
}
