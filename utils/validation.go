package utils

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// validate is the singleton validator instance
var validate *validator.Validate

// tagMessages formats a field failure per validator tag. Tags with a
// parameter take it as the second verb.
var tagMessages = map[string]string{
	"required": "%s is required",
	"min":      "%s must be at least %s",
	"max":      "%s must be at most %s",
	"gt":       "%s must be greater than %s",
	"gte":      "%s must be greater than or equal to %s",
	"lte":      "%s must be less than or equal to %s",
	"oneof":    "%s must be one of: %s",
}

func init() {
	validate = validator.New()

	// Report fields by their JSON names so clients see what they sent
	validate.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})
}

// ValidateStruct validates a request body against its `validate` tags
func ValidateStruct(s interface{}) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) {
		return NewValidationError(fieldErrs)
	}
	return err
}

// ValidationError carries one message per invalid field
type ValidationError struct {
	Message string
	Fields  map[string]string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// Details returns the field messages as a response details map
func (e *ValidationError) Details() map[string]interface{} {
	details := make(map[string]interface{}, len(e.Fields))
	for field, msg := range e.Fields {
		details[field] = msg
	}
	return details
}

// NewValidationError creates a ValidationError from validator.ValidationErrors
func NewValidationError(errs validator.ValidationErrors) *ValidationError {
	fields := make(map[string]string, len(errs))
	for _, fe := range errs {
		fields[fe.Field()] = fieldMessage(fe)
	}
	return &ValidationError{
		Message: "Validation failed",
		Fields:  fields,
	}
}

func fieldMessage(fe validator.FieldError) string {
	format, ok := tagMessages[fe.Tag()]
	if !ok {
		return fmt.Sprintf("%s validation failed on '%s' tag", fe.Field(), fe.Tag())
	}
	if fe.Param() == "" {
		return fmt.Sprintf(format, fe.Field())
	}
	return fmt.Sprintf(format, fe.Field(), fe.Param())
}

// AsValidationError unwraps err into a ValidationError
func AsValidationError(err error) (*ValidationError, bool) {
	var verr *ValidationError
	ok := errors.As(err, &verr)
	return verr, ok
}

// IsValidationError checks if an error is a ValidationError
func IsValidationError(err error) bool {
	_, ok := AsValidationError(err)
	return ok
}

// GetValidationFields extracts field errors from a ValidationError
func GetValidationFields(err error) map[string]string {
	if verr, ok := AsValidationError(err); ok {
		return verr.Fields
	}
	return nil
}
