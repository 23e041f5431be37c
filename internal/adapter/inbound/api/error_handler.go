// Package api serves the catalog snapshot over HTTP. Errors are mapped from domain
// sentinels to a {error, message, details} body:
//
//	{"error": "ITEM_NOT_FOUND", "message": "item not found: spaer (did you mean spear?)",
//	 "details": {"id": "spaer", "suggestions": ["spear"]}}
package api

import (
	"errors"
	"net/http"

	"scriptdex/internal/application/common/slogger"
	"scriptdex/internal/application/dto"
	"scriptdex/internal/application/query"
	"scriptdex/internal/domain/errors/domain"
)

// ErrorHandler defines methods for handling HTTP errors.
type ErrorHandler interface {
	HandleValidationError(w http.ResponseWriter, r *http.Request, err error)
	HandleServiceError(w http.ResponseWriter, r *http.Request, err error)
}

// ErrorHandlingConfig defines how one sentinel error is reported.
type ErrorHandlingConfig struct {
	Sentinel   error
	LogMessage string
	ErrorType  string
	HTTPStatus int
	ErrorCode  dto.ErrorCode
}

// DefaultErrorHandler implements ErrorHandler with standard HTTP error responses.
type DefaultErrorHandler struct {
	configs []ErrorHandlingConfig
}

// NewDefaultErrorHandler creates a new DefaultErrorHandler with predefined error configurations.
func NewDefaultErrorHandler() ErrorHandler {
	return &DefaultErrorHandler{configs: []ErrorHandlingConfig{
		{domain.ErrItemNotFound, "Item not found", "not_found", http.StatusNotFound, dto.ErrorCodeItemNotFound},
		{domain.ErrTraceNotFound, "Trace key not found", "not_found", http.StatusNotFound, dto.ErrorCodeTraceNotFound},
		{domain.ErrLanguageNotFound, "Language not found", "not_found", http.StatusNotFound, dto.ErrorCodeLanguageNotFound},
		{domain.ErrUnknownPlant, "Unknown plant", "invalid_request", http.StatusBadRequest, dto.ErrorCodeUnknownPlant},
		{domain.ErrInvalidCookingRequest, "Invalid cooking request", "invalid_request", http.StatusBadRequest, dto.ErrorCodeInvalidRequest},
		{domain.ErrInvalidFarmingRequest, "Invalid farming request", "invalid_request", http.StatusBadRequest, dto.ErrorCodeInvalidRequest},
		{domain.ErrInvalidInput, "Invalid input", "invalid_request", http.StatusBadRequest, dto.ErrorCodeInvalidRequest},
		{domain.ErrCatalogNotLoaded, "Catalog not loaded", "unavailable", http.StatusServiceUnavailable, dto.ErrorCodeServiceUnavailable},
		{domain.ErrArtifactMissing, "Artifact missing", "unavailable", http.StatusServiceUnavailable, dto.ErrorCodeServiceUnavailable},
	}}
}

// HandleValidationError handles request parsing errors by returning 400 Bad Request.
func (h *DefaultErrorHandler) HandleValidationError(w http.ResponseWriter, r *http.Request, err error) {
	h.logError(r, http.StatusBadRequest, "Validation error occurred", "validation", err)

	var validationErr ValidationError
	if errors.As(err, &validationErr) {
		writeErrorResponse(w, r, http.StatusBadRequest, dto.NewErrorResponse(
			dto.ErrorCodeInvalidRequest,
			"Validation failed",
			dto.ValidationErrorDetails{Errors: []dto.ValidationError{validationErr.ToDTO()}},
		))
		return
	}
	writeErrorResponse(w, r, http.StatusBadRequest, dto.NewErrorResponse(dto.ErrorCodeInvalidRequest, err.Error(), nil))
}

// HandleServiceError maps query and planner errors to HTTP status codes.
func (h *DefaultErrorHandler) HandleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var validationErr ValidationError
	if errors.As(err, &validationErr) {
		h.HandleValidationError(w, r, err)
		return
	}

	for _, cfg := range h.configs {
		if !errors.Is(err, cfg.Sentinel) {
			continue
		}
		h.logError(r, cfg.HTTPStatus, cfg.LogMessage, cfg.ErrorType, err)
		writeErrorResponse(w, r, cfg.HTTPStatus, dto.NewErrorResponse(cfg.ErrorCode, err.Error(), errorDetails(err)))
		return
	}

	h.logError(r, http.StatusInternalServerError, "Internal server error", "internal", err)
	writeErrorResponse(w, r, http.StatusInternalServerError,
		dto.NewErrorResponse(dto.ErrorCodeInternalError, "An internal error occurred", nil))
}

func errorDetails(err error) interface{} {
	var nf *query.ItemNotFoundError
	if errors.As(err, &nf) {
		suggestions := nf.Suggestions
		if suggestions == nil {
			suggestions = []string{}
		}
		return dto.NotFoundDetails{ID: nf.ID, Suggestions: suggestions}
	}
	return nil
}

func (h *DefaultErrorHandler) logError(r *http.Request, status int, message, errorType string, err error) {
	fields := slogger.Fields{
		"error":  err.Error(),
		"path":   r.URL.Path,
		"type":   errorType,
		"status": status,
	}
	if status >= http.StatusInternalServerError {
		slogger.Error(r.Context(), message, fields)
		return
	}
	slogger.Warn(r.Context(), message, fields)
}

// writeErrorResponse writes an error response as JSON, echoing the request id.
func writeErrorResponse(w http.ResponseWriter, r *http.Request, statusCode int, response dto.ErrorResponse) {
	if id := GetRequestID(r.Context()); id != "" {
		w.Header().Set("X-Request-ID", id)
	}
	w.Header().Del("ETag")
	w.Header().Set("Cache-Control", "no-store")
	if err := WriteJSON(w, statusCode, response); err != nil {
		w.Header().Set("Content-Type", "text/plain")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("Internal Server Error"))
	}
}
