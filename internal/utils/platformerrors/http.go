package platformerrors

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// HTTPErrorResponse represents the standard error response format.
type HTTPErrorResponse struct {
	Error *HTTPErrorDetail `json:"error"`
}

// HTTPErrorDetail contains error details for HTTP responses.
type HTTPErrorDetail struct {
	Message   string `json:"message"`
	Type      string `json:"type"`
	Code      string `json:"code,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

// WriteHTTPError writes a PlatformError as an HTTP response.
// Only the error message is exposed; the wrapped cause stays in the logs.
func WriteHTTPError(c *gin.Context, err *PlatformError, log zerolog.Logger) {
	if err == nil {
		WriteInternalError(c, "unknown error")
		return
	}

	LogError(log, err)

	status := ErrorTypeToHTTPStatus(err.Type)
	c.AbortWithStatusJSON(status, HTTPErrorResponse{
		Error: &HTTPErrorDetail{
			Message:   err.Message,
			Type:      errorTypeToString(err.Type),
			Code:      err.UUID,
			RequestID: err.RequestID,
		},
	})
}

// WriteError writes a generic error as an HTTP response.
// Errors that are not PlatformErrors are reported as internal errors with a generic message.
func WriteError(c *gin.Context, err error, log zerolog.Logger) {
	if err == nil {
		WriteInternalError(c, "unknown error")
		return
	}

	if platformErr := GetPlatformError(err); platformErr != nil {
		WriteHTTPError(c, platformErr, log)
		return
	}

	log.Error().Err(err).Str("path", c.FullPath()).Msg("unhandled error")
	WriteInternalError(c, "internal server error")
}

// WriteNotFound writes a 404 Not Found response.
func WriteNotFound(c *gin.Context, message string) {
	write(c, http.StatusNotFound, message, "not_found_error")
}

// WriteValidationError writes a 400 Bad Request response.
func WriteValidationError(c *gin.Context, message string) {
	write(c, http.StatusBadRequest, message, "validation_error")
}

// WriteUnauthorized writes a 401 Unauthorized response.
func WriteUnauthorized(c *gin.Context, message string) {
	write(c, http.StatusUnauthorized, message, "unauthorized_error")
}

// WriteRateLimited writes a 429 Too Many Requests response.
func WriteRateLimited(c *gin.Context, message string) {
	write(c, http.StatusTooManyRequests, message, "rate_limited_error")
}

// WriteRequestTooLarge writes a 413 Request Entity Too Large response.
func WriteRequestTooLarge(c *gin.Context, message string) {
	write(c, http.StatusRequestEntityTooLarge, message, "request_too_large_error")
}

// WriteInternalError writes a 500 Internal Server Error response.
func WriteInternalError(c *gin.Context, message string) {
	write(c, http.StatusInternalServerError, message, "internal_error")
}

func write(c *gin.Context, status int, message, errType string) {
	detail := &HTTPErrorDetail{
		Message: message,
		Type:    errType,
	}
	if requestID := RequestIDFromContext(c.Request.Context()); requestID != "" {
		detail.RequestID = requestID
	}
	c.AbortWithStatusJSON(status, HTTPErrorResponse{Error: detail})
}

// errorTypeToString converts an ErrorType to a snake_case string for API responses.
func errorTypeToString(t ErrorType) string {
	switch t {
	case ErrorTypeNotFound:
		return "not_found_error"
	case ErrorTypeValidation:
		return "validation_error"
	case ErrorTypeConflict:
		return "conflict_error"
	case ErrorTypeUnauthorized:
		return "unauthorized_error"
	case ErrorTypeForbidden:
		return "forbidden_error"
	case ErrorTypeNotImplemented:
		return "not_implemented_error"
	case ErrorTypeRangeNotSatisfiable:
		return "range_not_satisfiable_error"
	case ErrorTypeRateLimited:
		return "rate_limited_error"
	case ErrorTypeTimeout:
		return "timeout_error"
	case ErrorTypeStorage:
		return "storage_error"
	case ErrorTypeInternal, ErrorTypeDatabaseError:
		fallthrough
	default:
		return "internal_error"
	}
}
