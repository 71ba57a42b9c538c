package errors

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAPIError_Error(t *testing.T) {
	err := New(http.StatusBadRequest, CodeInvalidRequest, "Invalid request format")
	assert.Equal(t, "Invalid request format", err.Error())
}

func TestErrValidation(t *testing.T) {
	err := ErrValidation("from", "must be YYYY-MM-DD")

	assert.Equal(t, http.StatusBadRequest, err.StatusCode)
	assert.Equal(t, CodeValidationFailed, err.ErrorCode)
	assert.Equal(t, ValidationError{Field: "from", Message: "must be YYYY-MM-DD"}, err.Details)
}

func TestErrUnknownProducts(t *testing.T) {
	err := ErrUnknownProducts([]string{"Product 99", "Widget"})

	assert.Equal(t, http.StatusUnprocessableEntity, err.StatusCode)
	assert.Equal(t, CodeUnknownProduct, err.ErrorCode)
	assert.Contains(t, err.Message, "Product 99")
	assert.Equal(t, UnknownProducts{Products: []string{"Product 99", "Widget"}}, err.Details)
}

func TestWrappedAPIErrorIsFound(t *testing.T) {
	wrapped := fmt.Errorf("query: %w", ErrNotFound)

	var apiErr *APIError
	require.ErrorAs(t, wrapped, &apiErr)
	assert.Equal(t, CodeNotFound, apiErr.ErrorCode)
}

func TestWriteError(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteError(rec, ErrRateLimitExceeded)

	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.False(t, body.Success)
	assert.Equal(t, CodeRateLimited, body.Error.ErrorCode)
}

func TestProblemDetails_MarshalJSON(t *testing.T) {
	pd := NewProblemDetails(http.StatusUnprocessableEntity, TypeUnknownProduct, "Unprocessable Entity", "unknown", "/api/dashboard/query").
		WithExtension("error_code", CodeUnknownProduct).
		WithExtension("status", 999)

	data, err := json.Marshal(pd)
	require.NoError(t, err)

	var got map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, TypeUnknownProduct, got["type"])
	assert.Equal(t, float64(422), got["status"])
	assert.Equal(t, CodeUnknownProduct, got["error_code"])
	assert.Equal(t, "/api/dashboard/query", got["instance"])
}

func TestProblemDetails_OmitsEmptyMembers(t *testing.T) {
	data, err := json.Marshal(&ProblemDetails{Type: TypeInternal, Title: "x", Status: 500})
	require.NoError(t, err)
	assert.NotContains(t, string(data), "detail")
	assert.NotContains(t, string(data), "instance")
}
