package apierr

// Code is a stable, machine-readable error identifier returned by the
// back-office API.
type Code string

const (
	// Generic
	CodeInternal    Code = "INTERNAL"
	CodeBadRequest  Code = "BAD_REQUEST"
	CodeNotFound    Code = "NOT_FOUND"
	CodeConflict    Code = "CONFLICT"
	CodeRateLimited Code = "RATE_LIMITED"
	CodeUnavailable Code = "UNAVAILABLE"

	// Validation / auth
	CodeValidationFailed    Code = "VALIDATION_FAILED"
	CodeUnauthorized        Code = "UNAUTHORIZED"
	CodeForbidden           Code = "FORBIDDEN"
	CodeUnprocessableEntity Code = "UNPROCESSABLE_ENTITY"

	// Timeouts / cancellations
	CodeTimeout  Code = "TIMEOUT"
	CodeCanceled Code = "CANCELED"

	// Client side
	CodeNetwork Code = "NETWORK"
)
