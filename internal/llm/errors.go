package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrorType represents different categories of LLM errors for retry logic.
type ErrorType int8

const (
	// ErrorTypeRateLimit represents rate limiting errors (429, quota exceeded).
	ErrorTypeRateLimit ErrorType = iota
	// ErrorTypeTransient represents transient errors (5xx, EOF, connection reset, timeout).
	ErrorTypeTransient
	// ErrorTypeEmptyResponse represents a successful call that returned no text.
	ErrorTypeEmptyResponse
	// ErrorTypeAuth represents authentication errors (401/403, bad API key).
	ErrorTypeAuth
	// ErrorTypeBadPrompt represents malformed request errors (too long, violates policy).
	ErrorTypeBadPrompt
	// ErrorTypeUnknown represents default for unclassified errors.
	ErrorTypeUnknown
)

// String returns the string representation of the error type.
func (et ErrorType) String() string {
	switch et {
	case ErrorTypeRateLimit:
		return "rate_limit"
	case ErrorTypeTransient:
		return "transient"
	case ErrorTypeEmptyResponse:
		return "empty_response"
	case ErrorTypeAuth:
		return "auth"
	case ErrorTypeBadPrompt:
		return "bad_prompt"
	case ErrorTypeUnknown:
		return "unknown"
	default:
		return "invalid"
	}
}

// Error represents a classified LLM error.
type Error struct {
	Err        error     // Wrapped underlying error
	Message    string    // Human-readable error message
	Type       ErrorType // Classified error type
	StatusCode int       // HTTP status code if applicable
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Message != "" && e.Err != nil {
		return fmt.Sprintf("LLM error (%s): %s: %v", e.Type, e.Message, e.Err)
	}
	if e.Message != "" {
		return fmt.Sprintf("LLM error (%s): %s", e.Type, e.Message)
	}
	if e.Err != nil {
		return fmt.Sprintf("LLM error (%s): %v", e.Type, e.Err)
	}
	return fmt.Sprintf("LLM error (%s): status %d", e.Type, e.StatusCode)
}

// Unwrap returns the underlying error for error unwrapping.
func (e *Error) Unwrap() error {
	return e.Err
}

// IsRetryable returns whether this error type should be retried.
func (e *Error) IsRetryable() bool {
	switch e.Type {
	case ErrorTypeAuth, ErrorTypeBadPrompt:
		return false
	default:
		return true
	}
}

// NewError creates a new classified LLM error.
func NewError(errorType ErrorType, message string) *Error {
	return &Error{Type: errorType, Message: message}
}

// NewErrorWithCause creates a new classified LLM error wrapping another error.
func NewErrorWithCause(errorType ErrorType, cause error, message string) *Error {
	return &Error{Type: errorType, Err: cause, Message: message}
}

// Is checks if an error is of a specific type.
func Is(err error, errorType ErrorType) bool {
	var llmErr *Error
	if errors.As(err, &llmErr) {
		return llmErr.Type == errorType
	}
	return false
}

// TypeOf returns the error type of an error, or ErrorTypeUnknown if not classified.
func TypeOf(err error) ErrorType {
	var llmErr *Error
	if errors.As(err, &llmErr) {
		return llmErr.Type
	}
	return ErrorTypeUnknown
}

// IsRetryable reports whether err should be retried. Unclassified errors are retryable.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	var llmErr *Error
	if errors.As(err, &llmErr) {
		return llmErr.IsRetryable()
	}
	return true
}

// classify maps a provider error to a classified *Error.
// statusCode is the HTTP status reported by the SDK, or 0 when unknown.
func classify(provider string, err error, statusCode int) *Error {
	if err == nil {
		return nil
	}

	var llmErr *Error
	if errors.As(err, &llmErr) {
		return llmErr
	}

	// Check for context-related errors first
	if errors.Is(err, context.DeadlineExceeded) {
		return NewErrorWithCause(ErrorTypeTransient, err, provider+" request timeout")
	}
	if errors.Is(err, context.Canceled) {
		return NewErrorWithCause(ErrorTypeTransient, err, provider+" request canceled")
	}

	switch {
	case statusCode == 401 || statusCode == 403:
		return &Error{Type: ErrorTypeAuth, Err: err, StatusCode: statusCode, Message: provider + " authentication failed"}
	case statusCode == 429:
		return &Error{Type: ErrorTypeRateLimit, Err: err, StatusCode: statusCode, Message: provider + " rate limit exceeded"}
	case statusCode == 400 || statusCode == 404 || statusCode == 413:
		return &Error{Type: ErrorTypeBadPrompt, Err: err, StatusCode: statusCode, Message: provider + " rejected the request"}
	case statusCode >= 500:
		return &Error{Type: ErrorTypeTransient, Err: err, StatusCode: statusCode, Message: provider + " server error"}
	}

	lower := strings.ToLower(err.Error())

	// Check for common network and connection errors
	for _, marker := range []string{"timeout", "connection", "network", "temporary", "eof", "reset"} {
		if strings.Contains(lower, marker) {
			return NewErrorWithCause(ErrorTypeTransient, err, provider+" network or connection error")
		}
	}

	if strings.Contains(lower, "rate") || strings.Contains(lower, "quota") {
		return NewErrorWithCause(ErrorTypeRateLimit, err, provider+" rate limiting detected")
	}

	if strings.Contains(lower, "unauthorized") || strings.Contains(lower, "api key") {
		return NewErrorWithCause(ErrorTypeAuth, err, provider+" authentication error")
	}

	return NewErrorWithCause(ErrorTypeUnknown, err, provider+" call failed")
}
