package dto

import "time"

// ErrorResponse represents a standardized error response.
type ErrorResponse struct {
	Error     string      `json:"error"`
	Message   string      `json:"message"`
	Details   interface{} `json:"details,omitempty"`
	Timestamp time.Time   `json:"timestamp,omitempty"`
}

// ErrorCode represents standard error codes.
type ErrorCode string

const (
	// ErrorCodeInvalidRequest indicates that the request contains invalid parameters or data.
	ErrorCodeInvalidRequest ErrorCode = "INVALID_REQUEST"
	// ErrorCodeItemNotFound indicates that no catalog record, recipe or dish has the id.
	ErrorCodeItemNotFound ErrorCode = "ITEM_NOT_FOUND"
	// ErrorCodeTraceNotFound indicates that the trace index has no such key.
	ErrorCodeTraceNotFound ErrorCode = "TRACE_NOT_FOUND"
	// ErrorCodeLanguageNotFound indicates that the i18n index has no such language.
	ErrorCodeLanguageNotFound ErrorCode = "LANGUAGE_NOT_FOUND"
	// ErrorCodeUnknownPlant indicates that a farming request names a plant the defs lack.
	ErrorCodeUnknownPlant ErrorCode = "UNKNOWN_PLANT"
	// ErrorCodeInternalError indicates an unexpected internal server error occurred.
	ErrorCodeInternalError ErrorCode = "INTERNAL_ERROR"
	// ErrorCodeServiceUnavailable indicates that no snapshot or a required artifact is missing.
	ErrorCodeServiceUnavailable ErrorCode = "SERVICE_UNAVAILABLE"
)

// NewErrorResponse creates a new error response.
func NewErrorResponse(code ErrorCode, message string, details interface{}) ErrorResponse {
	return ErrorResponse{
		Error:     string(code),
		Message:   message,
		Details:   details,
		Timestamp: time.Now(),
	}
}

// ValidationError represents a validation error with field details.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Value   string `json:"value,omitempty"`
}

// ValidationErrorDetails represents multiple validation errors.
type ValidationErrorDetails struct {
	Errors []ValidationError `json:"errors"`
}

// NotFoundDetails carries "did you mean" candidates for a missed lookup.
type NotFoundDetails struct {
	ID          string   `json:"id"`
	Suggestions []string `json:"suggestions"`
}
