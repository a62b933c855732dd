package report

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/hay-kot/criterio"
	"golang.org/x/text/language"
)

// MaxFieldLength bounds free-text fields on CreateInput.
const MaxFieldLength = 255

// CreateInput requests a new business report.
type CreateInput struct {
	WebsiteURL            string `json:"websiteUrl"`
	CompanyName           string `json:"companyName,omitempty"`
	OperatingCountry      string `json:"operatingCountry,omitempty"`
	BusinessCorrelationID string `json:"businessCorrelationId,omitempty"`
}

// Normalize trims whitespace and upper-cases the country code.
func (in CreateInput) Normalize() CreateInput {
	in.WebsiteURL = strings.TrimSpace(in.WebsiteURL)
	in.CompanyName = strings.TrimSpace(in.CompanyName)
	in.OperatingCountry = strings.ToUpper(strings.TrimSpace(in.OperatingCountry))
	in.BusinessCorrelationID = strings.TrimSpace(in.BusinessCorrelationID)
	return in
}

// Validate returns criterio.FieldErrors describing every invalid field.
func (in CreateInput) Validate() error {
	return criterio.ValidateStruct(
		criterio.Run("websiteUrl", in.WebsiteURL, WebsiteURL),
		criterio.Run("companyName", in.CompanyName, maxLength),
		criterio.Run("operatingCountry", in.OperatingCountry, Country),
		criterio.Run("businessCorrelationId", in.BusinessCorrelationID, maxLength),
		in.validateIdentity(),
	)
}

// validateIdentity requires a company name or a correlation id and reports
// the issue on both fields.
func (in CreateInput) validateIdentity() error {
	if in.CompanyName != "" || in.BusinessCorrelationID != "" {
		return nil
	}
	missing := errors.New("company name or business correlation id is required")
	var errs criterio.FieldErrorsBuilder
	errs = errs.Append("companyName", missing)
	errs = errs.Append("businessCorrelationId", missing)
	return errs.ToError()
}

// WebsiteURL validates an absolute http or https URL.
func WebsiteURL(s string) error {
	if s == "" {
		return errors.New("is required")
	}
	if err := maxLength(s); err != nil {
		return err
	}
	u, err := url.Parse(s)
	if err != nil {
		return fmt.Errorf("invalid url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("scheme must be http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return errors.New("must include a host")
	}
	return nil
}

// Country validates an optional ISO 3166-1 alpha-2 country code.
func Country(s string) error {
	if s == "" {
		return nil
	}
	if len(s) != 2 {
		return fmt.Errorf("must be a two-letter country code, got %q", s)
	}
	r, err := language.ParseRegion(s)
	if err != nil || !r.IsCountry() {
		return fmt.Errorf("unknown country code %q", s)
	}
	return nil
}

func maxLength(s string) error {
	if n := len([]rune(s)); n > MaxFieldLength {
		return fmt.Errorf("must be at most %d characters, got %d", MaxFieldLength, n)
	}
	return nil
}
