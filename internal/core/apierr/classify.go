package apierr

import (
	"errors"

	"github.com/hay-kot/criterio"
)

// Kind is the closed set of failure classes a settled request can fall into.
type Kind int

const (
	// KindNormal is any failure with a usable message.
	KindNormal Kind = iota
	// KindValidation is a structured, field-level validation failure.
	KindValidation
	// KindUnusable is a failure with no message or a stringified absence.
	KindUnusable
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindUnusable:
		return "unusable"
	default:
		return "normal"
	}
}

// sentinel messages produced by stringifying an absent value upstream.
var sentinels = map[string]struct{}{
	"undefined": {},
	"null":      {},
}

// IsSentinel reports whether msg is a placeholder rather than a real message.
func IsSentinel(msg string) bool {
	_, ok := sentinels[msg]
	return ok
}

// Message returns the inspectable message of err. When an envelope Error is in
// the chain its Message field is authoritative, even when empty. Otherwise the
// error text is used. Returns false for a nil error or an empty message.
func Message(err error) (string, bool) {
	if err == nil {
		return "", false
	}

	var e *Error
	if errors.As(err, &e) {
		return e.Message, e.Message != ""
	}

	msg := err.Error()
	return msg, msg != ""
}

// IsValidation reports whether err carries structured field errors.
func IsValidation(err error) bool {
	var fieldErrs criterio.FieldErrors
	return errors.As(err, &fieldErrs)
}

// Classify sorts err into a Kind. Checks run in order and the first match wins:
// validation, then unusable, then normal.
func Classify(err error) Kind {
	if IsValidation(err) {
		return KindValidation
	}

	msg, ok := Message(err)
	if !ok || IsSentinel(msg) {
		return KindUnusable
	}

	return KindNormal
}
