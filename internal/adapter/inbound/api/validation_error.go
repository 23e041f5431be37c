package api

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"scriptdex/internal/application/dto"
)

// ValidationError represents a validation error with field details
type ValidationError struct {
	Field   string
	Message string
	Value   string
}

// Error implements the error interface
func (e ValidationError) Error() string {
	if e.Value != "" {
		return fmt.Sprintf("validation error on field '%s': %s (value: %s)", e.Field, e.Message, e.Value)
	}
	return fmt.Sprintf("validation error on field '%s': %s", e.Field, e.Message)
}

// ToDTO converts the error to its response form.
func (e ValidationError) ToDTO() dto.ValidationError {
	return dto.ValidationError{Field: e.Field, Message: e.Message, Value: e.Value}
}

// NewValidationError creates a new ValidationError
func NewValidationError(field, message string) ValidationError {
	return ValidationError{Field: field, Message: message}
}

// NewValidationErrorWithValue creates a new ValidationError with a value
func NewValidationErrorWithValue(field, message, value string) ValidationError {
	return ValidationError{Field: field, Message: message, Value: value}
}

// intParam reads an optional integer query parameter. Absent parameters read as 0.
func intParam(r *http.Request, name string) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, NewValidationErrorWithValue(name, "must be an integer", raw)
	}
	if n < 0 {
		return 0, NewValidationErrorWithValue(name, "must not be negative", raw)
	}
	return n, nil
}
