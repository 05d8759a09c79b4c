package llm

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorType classifies a language model failure.
type ErrorType string

const (
	ErrTypeAuth        ErrorType = "auth"
	ErrTypeRateLimit   ErrorType = "rate_limit"
	ErrTypeTimeout     ErrorType = "timeout"
	ErrTypeConnection  ErrorType = "connection"
	ErrTypeServerError ErrorType = "server_error"
	ErrTypeBadRequest  ErrorType = "bad_request"
	ErrTypeUnknown     ErrorType = "unknown"
)

// Error represents a structured LLM error with classification.
type Error struct {
	Type       ErrorType // Classification of the error
	Message    string    // Human-readable message
	Retryable  bool      // Whether the operation could be retried
	Cause      error     // Underlying error
	StatusCode int       // HTTP status code if applicable
}

// Error implements the error interface.
func (e *Error) Error() string {
	var parts []string
	parts = append(parts, string(e.Type))
	if e.StatusCode > 0 {
		parts = append(parts, fmt.Sprintf("HTTP %d", e.StatusCode))
	}
	parts = append(parts, e.Message)

	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", strings.Join(parts, " "), e.Cause)
	}
	return strings.Join(parts, " ")
}

// Unwrap returns the underlying cause for errors.Is/As.
func (e *Error) Unwrap() error {
	return e.Cause
}

// IsRetryable reports whether the failure is transient. The request
// pipeline never retries; this exists for callers that connect at startup.
func (e *Error) IsRetryable() bool {
	return e.Retryable
}

// ClassifyError categorizes an error and returns a structured Error.
func ClassifyError(err error) *Error {
	if err == nil {
		return nil
	}

	var llmErr *Error
	if errors.As(err, &llmErr) {
		return llmErr
	}

	errStr := err.Error()
	lower := strings.ToLower(errStr)

	statusCode := 0
	for _, code := range []int{400, 401, 403, 404, 429, 500, 502, 503, 504} {
		if strings.Contains(errStr, fmt.Sprintf("%d", code)) {
			statusCode = code
			break
		}
	}

	switch {
	case strings.Contains(errStr, "401") || strings.Contains(lower, "unauthorized") ||
		strings.Contains(lower, "invalid api key") || strings.Contains(lower, "authentication"):
		return &Error{Type: ErrTypeAuth, Message: "authentication failed", Retryable: false, Cause: err, StatusCode: statusCode}

	case strings.Contains(errStr, "429") || strings.Contains(lower, "rate limit") ||
		strings.Contains(lower, "too many requests"):
		return &Error{Type: ErrTypeRateLimit, Message: "rate limited by provider", Retryable: true, Cause: err, StatusCode: statusCode}

	case strings.Contains(lower, "timeout") || strings.Contains(lower, "timed out") ||
		strings.Contains(lower, "deadline exceeded"):
		return &Error{Type: ErrTypeTimeout, Message: "request timed out", Retryable: true, Cause: err, StatusCode: statusCode}

	case strings.Contains(lower, "connection refused") || strings.Contains(lower, "no such host") ||
		strings.Contains(lower, "connection reset") || strings.Contains(lower, "broken pipe"):
		return &Error{Type: ErrTypeConnection, Message: "cannot reach endpoint", Retryable: true, Cause: err, StatusCode: statusCode}

	case statusCode >= 500:
		return &Error{Type: ErrTypeServerError, Message: "provider error", Retryable: true, Cause: err, StatusCode: statusCode}

	case statusCode == 400 || statusCode == 404:
		return &Error{Type: ErrTypeBadRequest, Message: "bad request", Retryable: false, Cause: err, StatusCode: statusCode}

	default:
		return &Error{Type: ErrTypeUnknown, Message: "unclassified error", Retryable: false, Cause: err, StatusCode: statusCode}
	}
}
