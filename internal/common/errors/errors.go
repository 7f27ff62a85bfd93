// Package errors provides standardized error handling for the assistant pipeline.
package errors

import (
	"errors"
	"fmt"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	ErrCodeValidationFailed ErrorCode = "VALIDATION_FAILED"

	ErrCodeExternalService ErrorCode = "EXTERNAL_SERVICE_ERROR"
	ErrCodeRateLimited     ErrorCode = "RATE_LIMITED"
	ErrCodeUnauthorized    ErrorCode = "UNAUTHORIZED"
	ErrCodeLLMTimeout      ErrorCode = "LLM_TIMEOUT"

	ErrCodeModelOutputParseFailed ErrorCode = "MODEL_OUTPUT_PARSE_FAILED"

	ErrCodeAccessDenied ErrorCode = "ACCESS_DENIED"
	ErrCodeNotFound     ErrorCode = "NOT_FOUND"

	ErrCodeDatabaseQueryFailed ErrorCode = "DATABASE_QUERY_FAILED"
	ErrCodeConversationFailed  ErrorCode = "CONVERSATION_STORE_FAILED"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// ==========================
// 2. Error Constructors
// ==========================

// NewValidationError creates a non-retryable validation error for a draft or
// request that is missing required fields.
func NewValidationError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeValidationFailed,
		Message:   "Request validation failed",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewExternalServiceError creates a retryable error for a failing collaborator.
func NewExternalServiceError(service string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeExternalService,
		Message:   fmt.Sprintf("External service '%s' error", service),
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewRateLimitedError creates a retryable rate-limit error from the reasoning service.
func NewRateLimitedError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeRateLimited,
		Message:   "Reasoning service rate limited",
		Details:   details,
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewUnauthorizedError creates a non-retryable credential error from the reasoning service.
func NewUnauthorizedError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeUnauthorized,
		Message:   "Reasoning service rejected credentials",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewLLMTimeoutError creates a retryable reasoning-call timeout error.
func NewLLMTimeoutError() *StandardError {
	return &StandardError{
		Code:      ErrCodeLLMTimeout,
		Message:   "Reasoning service call timeout",
		Details:   "call exceeded the configured timeout",
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewModelOutputParseError creates a non-retryable parse error. Callers are
// expected to catch it internally and fall back to deterministic logic; it
// must never surface to the end user.
func NewModelOutputParseError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeModelOutputParseFailed,
		Message:   "Model output was not valid JSON",
		Details:   err.Error(),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewAccessDeniedError creates a non-retryable ownership or role failure.
func NewAccessDeniedError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeAccessDenied,
		Message:   "Access denied",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewNotFoundError creates a non-retryable missing-resource error.
func NewNotFoundError(resource, details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeNotFound,
		Message:   fmt.Sprintf("%s not found", resource),
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewDatabaseQueryError creates a retryable database error.
func NewDatabaseQueryError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeDatabaseQueryFailed,
		Message:   "Database query failed",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewConversationStoreError creates a retryable conversation-store error.
func NewConversationStoreError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeConversationFailed,
		Message:   "Conversation store operation failed",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// ==========================
// 3. Classification Helpers
// ==========================

// CodeOf extracts the ErrorCode from err, or empty when err is not a StandardError.
func CodeOf(err error) ErrorCode {
	var se *StandardError
	if errors.As(err, &se) {
		return se.Code
	}
	return ""
}

// IsValidation reports whether err is a validation failure.
func IsValidation(err error) bool {
	return CodeOf(err) == ErrCodeValidationFailed
}

// IsAccessDenied reports whether err is an ownership or role failure.
func IsAccessDenied(err error) bool {
	return CodeOf(err) == ErrCodeAccessDenied
}

// IsNotFound reports whether err is a missing-resource failure.
func IsNotFound(err error) bool {
	return CodeOf(err) == ErrCodeNotFound
}

// IsExternalService reports whether err originated at an external collaborator,
// including rate limits, bad credentials and timeouts.
func IsExternalService(err error) bool {
	switch CodeOf(err) {
	case ErrCodeExternalService, ErrCodeRateLimited, ErrCodeUnauthorized, ErrCodeLLMTimeout:
		return true
	}
	return false
}

// IsParseFailure reports whether err is malformed model output.
func IsParseFailure(err error) bool {
	return CodeOf(err) == ErrCodeModelOutputParseFailed
}

// IsRetryable reports whether the operation may be retried.
func IsRetryable(err error) bool {
	var se *StandardError
	if errors.As(err, &se) {
		return se.Retryable
	}
	return false
}
