package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scriptdex/internal/application/common"
	"scriptdex/internal/application/dto"
	"scriptdex/internal/application/query"
	"scriptdex/internal/domain/errors/domain"
)

func TestDefaultErrorHandler_HandleServiceError(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   dto.ErrorCode
	}{
		{"item not found", &query.ItemNotFoundError{ID: "spaer", Suggestions: []string{"spear"}}, http.StatusNotFound, dto.ErrorCodeItemNotFound},
		{"trace not found", fmt.Errorf("%w: X", domain.ErrTraceNotFound), http.StatusNotFound, dto.ErrorCodeTraceNotFound},
		{"language not found", fmt.Errorf("%w: xx", domain.ErrLanguageNotFound), http.StatusNotFound, dto.ErrorCodeLanguageNotFound},
		{"invalid cooking", fmt.Errorf("%w: too many items", domain.ErrInvalidCookingRequest), http.StatusBadRequest, dto.ErrorCodeInvalidRequest},
		{"unknown plant", fmt.Errorf("%w: %w", domain.ErrInvalidFarmingRequest, domain.ErrUnknownPlant), http.StatusBadRequest, dto.ErrorCodeUnknownPlant},
		{"invalid input", domain.ErrInvalidInput, http.StatusBadRequest, dto.ErrorCodeInvalidRequest},
		{"not loaded", common.WrapServiceError(common.OpReloadSnapshot, domain.ErrCatalogNotLoaded), http.StatusServiceUnavailable, dto.ErrorCodeServiceUnavailable},
		{"artifact missing", fmt.Errorf("farming defs: %w", domain.ErrArtifactMissing), http.StatusServiceUnavailable, dto.ErrorCodeServiceUnavailable},
		{"validation error", NewValidationErrorWithValue("limit", "must be an integer", "x"), http.StatusBadRequest, dto.ErrorCodeInvalidRequest},
		{"anything else", errors.New("disk on fire"), http.StatusInternalServerError, dto.ErrorCodeInternalError},
	}
	h := NewDefaultErrorHandler()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.HandleServiceError(rec, httptest.NewRequest(http.MethodGet, "/x", nil), tt.err)

			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
			var resp dto.ErrorResponse
			require.NoError(t, parseJSON(rec, &resp))
			assert.Equal(t, string(tt.code), resp.Error)
		})
	}
}

func TestDefaultErrorHandler_InternalErrorHidesCause(t *testing.T) {
	rec := httptest.NewRecorder()
	NewDefaultErrorHandler().HandleServiceError(rec, httptest.NewRequest(http.MethodGet, "/x", nil), errors.New("secret path /etc"))

	var resp dto.ErrorResponse
	require.NoError(t, parseJSON(rec, &resp))
	assert.Equal(t, "An internal error occurred", resp.Message)
	assert.Nil(t, resp.Details)
}

func TestDefaultErrorHandler_HandleValidationError(t *testing.T) {
	rec := httptest.NewRecorder()
	NewDefaultErrorHandler().HandleValidationError(rec, httptest.NewRequest(http.MethodGet, "/x", nil),
		NewValidationErrorWithValue("offset", "must not be negative", "-1"))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	var resp struct {
		Error   string                     `json:"error"`
		Details dto.ValidationErrorDetails `json:"details"`
	}
	require.NoError(t, parseJSON(rec, &resp))
	assert.Equal(t, "INVALID_REQUEST", resp.Error)
	require.Len(t, resp.Details.Errors, 1)
	assert.Equal(t, dto.ValidationError{Field: "offset", Message: "must not be negative", Value: "-1"}, resp.Details.Errors[0])
}

func parseJSON(rec *httptest.ResponseRecorder, v interface{}) error {
	return json.Unmarshal(rec.Body.Bytes(), v)
}
