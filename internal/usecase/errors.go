package usecase

import "fmt"

type ErrorCode string

const (
	ErrorInvalidInput        ErrorCode = "INVALID_INPUT"
	ErrorNotConfigured       ErrorCode = "NOT_CONFIGURED"
	ErrorUpstream            ErrorCode = "UPSTREAM_ERROR"
	ErrorUpstreamTimeout     ErrorCode = "UPSTREAM_TIMEOUT"
	ErrorUpstreamUnreachable ErrorCode = "UPSTREAM_UNREACHABLE"
	ErrorMalformedResponse   ErrorCode = "MALFORMED_RESPONSE"
	ErrorInternal            ErrorCode = "INTERNAL_ERROR"
)

const (
	msgMessageRequired  = "Message is required"
	msgKeyNotConfigured = "OpenAI API key not configured"
	upstreamErrorPrefix = "OpenAI API error: "
)

type Error struct {
	Code   ErrorCode
	Reason string

	// Message is the text surfaced to the caller.
	Message string

	// Status is the upstream HTTP status; set only for ErrorUpstream.
	Status int

	Err error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err == nil {
		return fmt.Sprintf("usecase: %s (%s)", e.Code, e.Reason)
	}
	return fmt.Sprintf("usecase: %s (%s): %v", e.Code, e.Reason, e.Err)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func newError(code ErrorCode, reason, message string, err error) *Error {
	return &Error{Code: code, Reason: reason, Message: message, Err: err}
}
