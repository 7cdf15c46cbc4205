package errors

import (
	"net/http"

	"github.com/go-chi/render"
)

// APIError is the structured error body returned by the HTTP surface.
type APIError struct {
	StatusCode int         `json:"status_code"`
	ErrorCode  string      `json:"error_code"`
	Message    string      `json:"message"`
	Details    interface{} `json:"details,omitempty"`
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return e.Message
}

// Render implements render.Renderer for chi/render.
func (e *APIError) Render(w http.ResponseWriter, r *http.Request) error {
	render.Status(r, e.StatusCode)
	return nil
}

// NewAPIError creates an APIError with the given parameters.
func NewAPIError(statusCode int, errorCode, message string) *APIError {
	return &APIError{
		StatusCode: statusCode,
		ErrorCode:  errorCode,
		Message:    message,
	}
}

var (
	ErrInvalidRequest = NewAPIError(http.StatusBadRequest, "INVALID_REQUEST", "Invalid request format")
	ErrRunNotFound    = NewAPIError(http.StatusNotFound, "RUN_NOT_FOUND", "Pipeline run not found")
	ErrInternalServer = NewAPIError(http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "Internal server error")
)

// APIFromPipeline maps a pipeline error onto the HTTP surface. Fatal
// data problems are the client's fault (their file), so they map to
// 422 rather than 500.
func APIFromPipeline(err error) *APIError {
	code := CodeOf(err)
	switch code {
	case CodeSchemaFatal, CodeChunkParseFatal, CodeEmptyDataset:
		return &APIError{
			StatusCode: http.StatusUnprocessableEntity,
			ErrorCode:  string(code),
			Message:    err.Error(),
		}
	case CodeConfig, CodeLoad:
		return &APIError{
			StatusCode: http.StatusBadRequest,
			ErrorCode:  string(code),
			Message:    err.Error(),
		}
	default:
		return ErrInternalServer
	}
}
