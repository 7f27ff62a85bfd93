// internal/common/errors/handler.go
package errors

import (
	"net/http"
	"time"
)

// Normalize ensures we always have a StandardError at the service boundary.
// Anything unexpected becomes a non-retryable INTERNAL_ERROR so a single
// utterance can never crash the service.
func Normalize(err error) *StandardError {
	if stdErr, ok := err.(*StandardError); ok {
		return stdErr
	}
	return &StandardError{
		Code:      "INTERNAL_ERROR",
		Message:   "Unexpected error",
		Details:   err.Error(),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// HTTPStatus maps an error code to the status the transport boundary returns.
func HTTPStatus(err error) int {
	switch CodeOf(err) {
	case ErrCodeValidationFailed:
		return http.StatusBadRequest
	case ErrCodeAccessDenied:
		return http.StatusForbidden
	case ErrCodeNotFound:
		return http.StatusNotFound
	case ErrCodeRateLimited:
		return http.StatusTooManyRequests
	case ErrCodeExternalService, ErrCodeLLMTimeout:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// UserMessage returns a human-readable reason safe to show the end user.
// Details are kept in logs, not in responses.
func UserMessage(err error) string {
	stdErr := Normalize(err)
	switch stdErr.Code {
	case ErrCodeValidationFailed:
		if stdErr.Details != "" {
			return stdErr.Details
		}
		return "The request is missing required information."
	case ErrCodeAccessDenied:
		return "You don't have access to that resource."
	case ErrCodeNotFound:
		return stdErr.Message
	case ErrCodeRateLimited:
		return "The assistant is receiving too many requests right now. Please try again in a moment."
	case ErrCodeExternalService, ErrCodeLLMTimeout, ErrCodeUnauthorized:
		return "I'm having trouble reaching the reasoning service. Please try again shortly."
	default:
		return "Something went wrong while processing your request."
	}
}
