package teamchat

import (
	"errors"
	"fmt"
)

// ErrorCode categorizes SDK errors.
type ErrorCode int

const (
	CodeUnknown ErrorCode = iota

	// CodeConnection means the handshake failed or an established
	// connection was lost.
	CodeConnection

	// CodeTimeout means the connection handshake did not complete
	// within the configured deadline.
	CodeTimeout

	// CodeNotConnected means an operation was attempted before a
	// successful Connect.
	CodeNotConnected

	// CodeUnauthorized means no auth token was available or the
	// server rejected the credentials.
	CodeUnauthorized

	// CodeParse means an inbound frame could not be decoded. These
	// are logged and dropped, never surfaced to callers.
	CodeParse

	// CodePublish means an outbound frame could not be written.
	CodePublish

	// CodeReconnectExhausted means the automatic retry cap was
	// reached; the caller must invoke Connect again explicitly.
	CodeReconnectExhausted
)

// String returns the string representation of an ErrorCode.
func (c ErrorCode) String() string {
	switch c {
	case CodeConnection:
		return "connection_error"
	case CodeTimeout:
		return "timeout"
	case CodeNotConnected:
		return "not_connected"
	case CodeUnauthorized:
		return "unauthorized"
	case CodeParse:
		return "parse_error"
	case CodePublish:
		return "publish_error"
	case CodeReconnectExhausted:
		return "reconnect_exhausted"
	default:
		return fmt.Sprintf("unknown_code_%d", c)
	}
}

// Error is a structured SDK error with a code and optional cause.
type Error struct {
	Code    ErrorCode
	Message string
	Wrapped error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Wrapped != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Wrapped)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the wrapped error for errors.Unwrap support.
func (e *Error) Unwrap() error {
	return e.Wrapped
}

// Is matches errors by code so callers can compare with errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// NewError creates an Error with the given code and message.
func NewError(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message}
}

// WrapError wraps an existing error with a code and message.
func WrapError(code ErrorCode, message string, err error) *Error {
	return &Error{Code: code, Message: message, Wrapped: err}
}

// IsNotConnected reports whether err is a not-connected error.
func IsNotConnected(err error) bool {
	return hasCode(err, CodeNotConnected)
}

// IsConnectionError reports whether err relates to the connection
// lifecycle (handshake failure, timeout, exhausted reconnect).
func IsConnectionError(err error) bool {
	return hasCode(err, CodeConnection) || hasCode(err, CodeTimeout) ||
		hasCode(err, CodeUnauthorized) || hasCode(err, CodeReconnectExhausted)
}

func hasCode(err error, code ErrorCode) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Code == code
}
