package apperrors

import "errors"

// Input-rejection errors are surfaced to the caller before any LLM or
// database call is made. Everything downstream of input validation degrades
// gracefully instead of returning one of these.
var (
	ErrInvalidSessionID = errors.New("invalid session id")
	ErrInvalidMode      = errors.New("invalid mode")
	ErrEmptyQuestion    = errors.New("question is required")
	ErrRateLimited      = errors.New("rate limit exceeded")

	ErrInputTooLong          = errors.New("input too long")
	ErrInjectionSuspected    = errors.New("potential prompt injection detected")
	ErrExcessiveSpecialChars = errors.New("excessive special characters")

	// ErrLLMUnavailable is the one upstream failure that reaches the caller:
	// without a language model there is no answer to give.
	ErrLLMUnavailable = errors.New("language model unavailable")

	ErrNoExportableQuery = errors.New("no exportable query in session")
)
