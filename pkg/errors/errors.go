// Package errors provides structured error handling for the application
// Following enterprise patterns for error management and observability
package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"runtime"
	"strings"
	"time"
)

// ErrorCode represents an error code
type ErrorCode string

// Common error codes following RESTful API conventions
const (
	// Client errors (4xx)
	CodeBadRequest       ErrorCode = "BAD_REQUEST"
	CodeForbidden        ErrorCode = "FORBIDDEN"
	CodeNotFound         ErrorCode = "NOT_FOUND"
	CodeValidationFailed ErrorCode = "VALIDATION_FAILED"
	CodeTooManyRequests  ErrorCode = "TOO_MANY_REQUESTS"

	// Server errors (5xx)
	CodeInternal             ErrorCode = "INTERNAL_ERROR"
	CodeServiceUnavailable   ErrorCode = "SERVICE_UNAVAILABLE"
	CodeStateStoreError      ErrorCode = "STATE_STORE_ERROR"
	CodeExternalServiceError ErrorCode = "EXTERNAL_SERVICE_ERROR"

	// Business logic errors
	CodeNoImage ErrorCode = "NO_IMAGE"
)

// AppError represents an application error with structured information
type AppError struct {
	Code       ErrorCode              `json:"code"`
	Message    string                 `json:"message"`
	Details    string                 `json:"details,omitempty"`
	Metadata   map[string]interface{} `json:"metadata,omitempty"`
	Cause      error                  `json:"-"`
	StackTrace string                 `json:"-"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause error
func (e *AppError) Unwrap() error {
	return e.Cause
}

// StatusCode returns the appropriate HTTP status code
func (e *AppError) StatusCode() int {
	switch e.Code {
	case CodeBadRequest, CodeValidationFailed:
		return http.StatusBadRequest
	case CodeForbidden:
		return http.StatusForbidden
	case CodeNotFound, CodeNoImage:
		return http.StatusNotFound
	case CodeTooManyRequests:
		return http.StatusTooManyRequests
	case CodeServiceUnavailable:
		return http.StatusServiceUnavailable
	case CodeExternalServiceError:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// WithMetadata adds metadata to the error
func (e *AppError) WithMetadata(key string, value interface{}) *AppError {
	if e.Metadata == nil {
		e.Metadata = make(map[string]interface{})
	}
	e.Metadata[key] = value
	return e
}

// WithCause adds a cause error
func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

// NewAppError creates a new application error
func NewAppError(code ErrorCode, message, details string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		Details:    details,
		StackTrace: getStackTrace(),
	}
}

// Predefined error constructors for common scenarios

// NewBadRequestError creates a bad request error
func NewBadRequestError(message string) *AppError {
	return NewAppError(CodeBadRequest, message, "")
}

// NewValidationError creates a validation error
func NewValidationError(details string) *AppError {
	return NewAppError(CodeValidationFailed, "Validation failed", details)
}

// NewForbiddenError creates a forbidden error
func NewForbiddenError(message string) *AppError {
	if message == "" {
		message = "Access forbidden"
	}
	return NewAppError(CodeForbidden, message, "")
}

// NewInternalError creates an internal server error
func NewInternalError(message string) *AppError {
	if message == "" {
		message = "An unexpected error occurred"
	}
	return NewAppError(CodeInternal, message, "")
}

// NewTooManyRequestsError creates a rate limit error
func NewTooManyRequestsError() *AppError {
	return NewAppError(CodeTooManyRequests, "Too many requests", "Please slow down and try again shortly")
}

// NewStateStoreError creates a session state store error
func NewStateStoreError(operation string, cause error) *AppError {
	return NewAppError(
		CodeStateStoreError,
		"Session state unavailable",
		fmt.Sprintf("Failed to %s session state", operation),
	).WithCause(cause)
}

// NewExternalServiceError creates an external service error
func NewExternalServiceError(service string, cause error) *AppError {
	return NewAppError(
		CodeExternalServiceError,
		"External service error",
		fmt.Sprintf("Failed to communicate with %s", service),
	).WithCause(cause)
}

// NewNoImageError reports an image operation without an image
func NewNoImageError() *AppError {
	return NewAppError(CodeNoImage, "No image", "Generate a recipe image first")
}

// Utility functions

// Wrap wraps an error as an internal error if it's not already an AppError
func Wrap(err error, message string) *AppError {
	if err == nil {
		return nil
	}

	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr
	}

	return NewInternalError(message).WithCause(err)
}

// Is checks if an error is of a specific error code
func Is(err error, code ErrorCode) bool {
	return GetCode(err) == code
}

// GetCode extracts the error code from an error
func GetCode(err error) ErrorCode {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Code
	}
	return CodeInternal
}

// getStackTrace captures the current stack trace
func getStackTrace() string {
	const depth = 32
	var pcs [depth]uintptr
	n := runtime.Callers(3, pcs[:])
	frames := runtime.CallersFrames(pcs[:n])

	var builder strings.Builder
	for {
		frame, more := frames.Next()
		if !strings.Contains(frame.File, "pkg/errors") {
			builder.WriteString(fmt.Sprintf("%s:%d %s\n", frame.File, frame.Line, frame.Function))
		}
		if !more {
			break
		}
	}

	return builder.String()
}

// ValidationError represents a field validation error
type ValidationError struct {
	Field   string      `json:"field"`
	Value   interface{} `json:"value"`
	Tag     string      `json:"tag"`
	Message string      `json:"message"`
}

// ValidationErrors represents multiple validation errors
type ValidationErrors []ValidationError

// Error implements the error interface
func (v ValidationErrors) Error() string {
	if len(v) == 0 {
		return "validation failed"
	}

	messages := make([]string, 0, len(v))
	for _, err := range v {
		messages = append(messages, err.Message)
	}
	return strings.Join(messages, "; ")
}

// NewValidationErrors creates validation errors from field errors
func NewValidationErrors(errs []ValidationError) *AppError {
	validationErrs := ValidationErrors(errs)

	return NewAppError(
		CodeValidationFailed,
		"Validation failed",
		validationErrs.Error(),
	).WithMetadata("validation_errors", validationErrs)
}

// ErrorResponse represents an API error response
type ErrorResponse struct {
	Error ErrorDetails `json:"error"`
}

// ErrorDetails represents the error details in API responses
type ErrorDetails struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	RequestID string                 `json:"request_id,omitempty"`
	Timestamp string                 `json:"timestamp"`
}

// ToErrorResponse converts an AppError to an API error response
func ToErrorResponse(err *AppError, requestID string) ErrorResponse {
	return ErrorResponse{
		Error: ErrorDetails{
			Code:      err.Code,
			Message:   err.Message,
			Details:   err.Details,
			Metadata:  err.Metadata,
			RequestID: requestID,
			Timestamp: fmt.Sprintf("%d", time.Now().Unix()),
		},
	}
}
