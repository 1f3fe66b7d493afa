// errors.go - Structured error handling for API responses
package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/vending-visualizer/backend/internal/session"
	"github.com/vending-visualizer/backend/internal/storage"
	"github.com/vending-visualizer/backend/internal/visualizer"
)

// APIError represents a structured API error response
type APIError struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// Error implements the error interface
func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Error constructors for consistent error handling

// NewBadRequestError creates a 400 Bad Request error
func NewBadRequestError(message string, cause error) *APIError {
	return withCause(&APIError{
		Status:  http.StatusBadRequest,
		Code:    "BAD_REQUEST",
		Message: message,
	}, cause)
}

// NewValidationError creates a 400 validation error for a specific field
func NewValidationError(field string) *APIError {
	return &APIError{
		Status:  http.StatusBadRequest,
		Code:    "VALIDATION_ERROR",
		Message: fmt.Sprintf("validation failed for field: %s", field),
	}
}

// NewInvalidInputError creates a 400 error for rejected user input
func NewInvalidInputError(message string, cause error) *APIError {
	return withCause(&APIError{
		Status:  http.StatusBadRequest,
		Code:    "INVALID_INPUT",
		Message: message,
	}, cause)
}

// NewUnsupportedMediaError creates a 415 error for uploads that are not images
func NewUnsupportedMediaError(message string) *APIError {
	return &APIError{
		Status:  http.StatusUnsupportedMediaType,
		Code:    "UNSUPPORTED_MEDIA_TYPE",
		Message: message,
	}
}

// NewPreconditionError creates a 409 error for actions missing required state
func NewPreconditionError(message string) *APIError {
	return &APIError{
		Status:  http.StatusConflict,
		Code:    "PRECONDITION_FAILED",
		Message: message,
	}
}

// NewDecodeError creates a 422 error for images that could not be decoded
func NewDecodeError(message string, cause error) *APIError {
	return withCause(&APIError{
		Status:  http.StatusUnprocessableEntity,
		Code:    "DECODE_ERROR",
		Message: message,
	}, cause)
}

// NewNotFoundError creates a 404 Not Found error
func NewNotFoundError(resource string, id string) *APIError {
	return &APIError{
		Status:  http.StatusNotFound,
		Code:    "NOT_FOUND",
		Message: fmt.Sprintf("%s not found: %s", resource, id),
	}
}

// NewInternalError creates a 500 Internal Server Error
func NewInternalError(message string, cause error) *APIError {
	return withCause(&APIError{
		Status:  http.StatusInternalServerError,
		Code:    "INTERNAL_ERROR",
		Message: message,
	}, cause)
}

// NewServiceUnavailableError creates a 503 Service Unavailable error
func NewServiceUnavailableError(message string) *APIError {
	return &APIError{
		Status:  http.StatusServiceUnavailable,
		Code:    "SERVICE_UNAVAILABLE",
		Message: message,
	}
}

func withCause(err *APIError, cause error) *APIError {
	if cause != nil {
		err.Details = cause.Error()
	}
	return err
}

// FromError maps domain errors to API errors. The user-facing status
// message of a visualizer error becomes the response message.
func FromError(err error, sessionID string) *APIError {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}

	msg, _ := visualizer.StatusMessage(err)
	switch {
	case errors.Is(err, session.ErrNotFound):
		return NewNotFoundError("session", sessionID)
	case errors.Is(err, visualizer.ErrInvalidInput):
		if msg == visualizer.MsgNotImage {
			return NewUnsupportedMediaError(msg)
		}
		return NewInvalidInputError(msg, err)
	case errors.Is(err, visualizer.ErrPrecondition):
		return NewPreconditionError(msg)
	case errors.Is(err, visualizer.ErrDecode):
		return NewDecodeError(msg, err)
	case errors.Is(err, storage.ErrTooLarge):
		return NewInvalidInputError(visualizer.MsgImageTooLarge, err)
	case errors.Is(err, storage.ErrNotFound):
		return NewNotFoundError("file", "")
	}
	return NewInternalError("request failed", err)
}

// NewErrorHandler returns an echo error handler that writes APIError JSON
// and logs server-side failures.
// Usage: e.HTTPErrorHandler = api.NewErrorHandler(logger)
func NewErrorHandler(logger *zap.Logger) echo.HTTPErrorHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		var apiErr *APIError
		var httpErr *echo.HTTPError

		switch {
		case errors.As(err, &apiErr):
		case errors.As(err, &httpErr):
			apiErr = &APIError{
				Status:  httpErr.Code,
				Code:    "HTTP_ERROR",
				Message: fmt.Sprintf("%v", httpErr.Message),
			}
		default:
			apiErr = &APIError{
				Status:  http.StatusInternalServerError,
				Code:    "UNKNOWN_ERROR",
				Message: "An unexpected error occurred",
				Details: err.Error(),
			}
		}

		if apiErr.Status >= http.StatusInternalServerError {
			logger.Error("request failed",
				zap.String("method", c.Request().Method),
				zap.String("path", c.Path()),
				zap.String("code", apiErr.Code),
				zap.Error(err),
			)
		}

		if c.Request().Method == http.MethodHead {
			_ = c.NoContent(apiErr.Status)
			return
		}
		_ = c.JSON(apiErr.Status, apiErr)
	}
}
