// Package apierr defines the error variants that cross the request engine
// boundary: the back-office JSON error envelope, network failures, and the
// classification the notifier uses to decide what to show.
package apierr

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// NetworkErrorMessage is the message carried by transport failures.
const NetworkErrorMessage = "Network Error"

// Error is the structured error envelope returned by the back-office API.
type Error struct {
	Code      Code            `json:"code"`
	Message   string          `json:"message"`
	Details   json.RawMessage `json:"details,omitempty"`
	TraceID   string          `json:"trace_id,omitempty"`
	Retryable bool            `json:"retryable"`

	// Not serialized:
	Status int   `json:"-"`
	Cause  error `json:"-"`
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// New creates an Error with the given code, HTTP status and message.
// A zero status defaults to 500. The message is kept as given, including
// empty, so that the notifier can tell a missing message apart.
func New(code Code, status int, msg string) *Error {
	if status == 0 {
		status = http.StatusInternalServerError
	}
	return &Error{
		Code:      code,
		Message:   msg,
		Status:    status,
		Retryable: isRetryableDefault(code),
	}
}

// Wrap creates an Error that wraps an underlying cause.
func Wrap(code Code, status int, msg string, cause error) *Error {
	e := New(code, status, msg)
	e.Cause = cause
	return e
}

// Network wraps a transport failure (dial, TLS, reset, timeout) that never
// produced an HTTP response.
func Network(cause error) *Error {
	e := Wrap(CodeNetwork, 0, NetworkErrorMessage, cause)
	e.Status = 0
	e.Retryable = true
	return e
}

// FromStatus builds an Error for a response whose body was not an envelope.
func FromStatus(status int) *Error {
	return New(codeForStatus(status), status, http.StatusText(status))
}

// Is reports whether err carries an Error with the given code.
func Is(err error, code Code) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

func codeForStatus(status int) Code {
	switch status {
	case http.StatusBadRequest:
		return CodeBadRequest
	case http.StatusUnauthorized:
		return CodeUnauthorized
	case http.StatusForbidden:
		return CodeForbidden
	case http.StatusNotFound:
		return CodeNotFound
	case http.StatusConflict:
		return CodeConflict
	case http.StatusUnprocessableEntity:
		return CodeUnprocessableEntity
	case http.StatusTooManyRequests:
		return CodeRateLimited
	case http.StatusServiceUnavailable:
		return CodeUnavailable
	case http.StatusGatewayTimeout, http.StatusRequestTimeout:
		return CodeTimeout
	default:
		return CodeInternal
	}
}

func isRetryableDefault(code Code) bool {
	switch code {
	case CodeTimeout, CodeUnavailable, CodeRateLimited, CodeNetwork:
		return true
	default:
		return false
	}
}
