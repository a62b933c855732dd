package apierr

import (
	"encoding/json"
	"errors"
	"sort"

	"github.com/hay-kot/criterio"
)

// ValidationDetails is the details payload of a VALIDATION_FAILED envelope.
type ValidationDetails struct {
	Fields map[string]string `json:"fields"`
}

// Decode parses an error envelope from a response body. Bodies that are not an
// envelope yield an Error derived from the status alone. A VALIDATION_FAILED
// envelope with field details carries them as criterio.FieldErrors in its cause
// chain.
func Decode(status int, body []byte) *Error {
	var e Error
	if len(body) == 0 || json.Unmarshal(body, &e) != nil || e.Code == "" {
		return FromStatus(status)
	}
	e.Status = status

	if e.Code == CodeValidationFailed && len(e.Details) > 0 {
		var details ValidationDetails
		if err := json.Unmarshal(e.Details, &details); err == nil && len(details.Fields) > 0 {
			e.Cause = fieldErrors(details.Fields)
		}
	}

	return &e
}

// fieldErrors converts a flat field map into criterio field errors, ordered by
// field name so output is stable.
func fieldErrors(fields map[string]string) error {
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)

	var errs criterio.FieldErrorsBuilder
	for _, name := range names {
		errs = errs.Append(name, errors.New(fields[name]))
	}
	return errs.ToError()
}
