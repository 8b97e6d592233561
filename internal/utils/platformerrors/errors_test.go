package platformerrors

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAsError_PreservesTypeAndContext(t *testing.T) {
	ctx := WithRequestID(context.Background(), "req-1")
	inner := NewErrorWithContext(ctx, LayerInfrastructure, ErrorTypeRangeNotSatisfiable, "range not satisfiable", nil, "code-1", map[string]any{"total_size": int64(42)})

	wrapped := AsError(ctx, LayerDomain, inner, "stream audio")
	require.NotNil(t, wrapped)
	assert.Equal(t, ErrorTypeRangeNotSatisfiable, wrapped.Type)
	assert.Equal(t, "code-1", wrapped.UUID)
	assert.Equal(t, "req-1", wrapped.RequestID)
	total, ok := wrapped.ContextInt64("total_size")
	assert.True(t, ok)
	assert.Equal(t, int64(42), total)
	assert.True(t, IsErrorType(wrapped, ErrorTypeRangeNotSatisfiable))
}

func TestAsError_PlainErrorBecomesInternal(t *testing.T) {
	err := AsError(context.Background(), LayerDomain, errors.New("boom"), "upload")
	assert.Equal(t, ErrorTypeInternal, err.Type)
	assert.Nil(t, AsError(context.Background(), LayerDomain, nil, "noop"))
}

func TestErrorTypeToHTTPStatus(t *testing.T) {
	cases := map[ErrorType]int{
		ErrorTypeNotFound:            http.StatusNotFound,
		ErrorTypeValidation:          http.StatusBadRequest,
		ErrorTypeUnauthorized:        http.StatusUnauthorized,
		ErrorTypeRangeNotSatisfiable: http.StatusRequestedRangeNotSatisfiable,
		ErrorTypeStorage:             http.StatusInternalServerError,
		ErrorTypeRateLimited:         http.StatusTooManyRequests,
	}
	for errType, status := range cases {
		assert.Equal(t, status, ErrorTypeToHTTPStatus(errType), errType)
	}
}

func TestWriteError_HidesInternalCause(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

	cause := errors.New("dial tcp 10.0.0.1:9000: connection refused")
	WriteError(c, NewError(c.Request.Context(), LayerInfrastructure, ErrorTypeStorage, "storage unavailable", cause, "s3-down"), zerolog.Nop())

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "10.0.0.1")

	var body HTTPErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "storage unavailable", body.Error.Message)
	assert.Equal(t, "storage_error", body.Error.Type)
}

func TestWriteError_UnknownError(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

	WriteError(c, errors.New("secret detail"), zerolog.Nop())

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "secret detail")
}
