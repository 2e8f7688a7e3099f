package crawler

import "fmt"

// ErrorType categorizes failures in the crawl and extraction pipeline.
type ErrorType string

const (
	ErrorTypeFetch          ErrorType = "fetch"
	ErrorTypeParse          ErrorType = "parse"
	ErrorTypeAI             ErrorType = "ai"
	ErrorTypeInvalidRequest ErrorType = "invalid_request"
)

// Error represents a structured error from the crawl pipeline.
type Error struct {
	Type    ErrorType
	Message string
	Cause   error
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying error for error unwrapping
func (e *Error) Unwrap() error {
	return e.Cause
}

// IsSessionFatal reports whether the error must end the whole session.
// Fetch, parse and AI failures are absorbed per page; a bad request can
// never produce useful work.
func (e *Error) IsSessionFatal() bool {
	return e.Type == ErrorTypeInvalidRequest
}

// UserMessage returns a user-friendly error message
func (e *Error) UserMessage() string {
	switch e.Type {
	case ErrorTypeFetch:
		return fmt.Sprintf("Failed to fetch page: %s", e.Message)
	case ErrorTypeParse:
		return fmt.Sprintf("Failed to parse page content: %s", e.Message)
	case ErrorTypeAI:
		return fmt.Sprintf("AI extraction failed: %s", e.Message)
	case ErrorTypeInvalidRequest:
		return fmt.Sprintf("Invalid request: %s", e.Message)
	default:
		return e.Message
	}
}

// NewFetchError wraps a network or timeout failure for one URL.
func NewFetchError(message string, cause error) *Error {
	return &Error{Type: ErrorTypeFetch, Message: message, Cause: cause}
}

// NewParseError wraps a malformed-document failure for one URL.
func NewParseError(message string, cause error) *Error {
	return &Error{Type: ErrorTypeParse, Message: message, Cause: cause}
}

// NewAIError wraps a backend transport failure or malformed model output.
func NewAIError(message string, cause error) *Error {
	return &Error{Type: ErrorTypeAI, Message: message, Cause: cause}
}

// NewInvalidRequestError rejects bad session parameters before any work starts.
func NewInvalidRequestError(message string) *Error {
	return &Error{Type: ErrorTypeInvalidRequest, Message: message}
}
