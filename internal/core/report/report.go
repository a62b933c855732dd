// Package report defines the business report model served by the back-office
// API and the input accepted when requesting a new report.
package report

import (
	"errors"
	"fmt"
	"time"

	"github.com/hay-kot/criterio"
)

// Status is the processing state of a business report.
type Status string

const (
	StatusNew        Status = "new"
	StatusInProgress Status = "in-progress"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusNew, StatusInProgress, StatusCompleted, StatusFailed:
		return true
	}
	return false
}

// Severity buckets a risk score for display.
type Severity string

const (
	SeverityUnknown  Severity = ""
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// SeverityFromRiskScore maps a 0-100 risk score to a severity. A nil score
// has no severity.
func SeverityFromRiskScore(score *int) Severity {
	if score == nil {
		return SeverityUnknown
	}
	switch s := *score; {
	case s < 40:
		return SeverityLow
	case s < 70:
		return SeverityMedium
	case s < 85:
		return SeverityHigh
	default:
		return SeverityCritical
	}
}

// Business is the merchant a report was generated for.
type Business struct {
	Website     string `json:"website"`
	CompanyName string `json:"companyName,omitempty"`
	Country     string `json:"country,omitempty"`
}

// BusinessReport is a single report as returned by the API.
type BusinessReport struct {
	ID        string    `json:"id"`
	Status    Status    `json:"status"`
	RiskScore *int      `json:"riskScore"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
	Business  Business  `json:"business"`
}

// Severity returns the severity of the report's risk score.
func (r BusinessReport) Severity() Severity {
	return SeverityFromRiskScore(r.RiskScore)
}

// Validate checks a decoded report against the shape the API promises.
func (r BusinessReport) Validate() error {
	return criterio.ValidateStruct(
		criterio.Run("id", r.ID, required),
		criterio.Run("status", r.Status, func(s Status) error {
			if !s.Valid() {
				return fmt.Errorf("unknown status %q", s)
			}
			return nil
		}),
		criterio.Run("riskScore", r.RiskScore, func(score *int) error {
			if score != nil && (*score < 0 || *score > 100) {
				return fmt.Errorf("must be between 0 and 100, got %d", *score)
			}
			return nil
		}),
		criterio.Run("business.website", r.Business.Website, required),
	)
}

// Page is one page of a report listing.
type Page struct {
	Data       []BusinessReport `json:"data"`
	TotalItems int              `json:"totalItems"`
	TotalPages int              `json:"totalPages"`
}

// Validate checks every report on the page.
func (p Page) Validate() error {
	var errs criterio.FieldErrorsBuilder
	for i, r := range p.Data {
		if err := r.Validate(); err != nil {
			errs = errs.Append(fmt.Sprintf("data[%d]", i), err)
		}
	}
	if p.TotalItems < 0 {
		errs = errs.Append("totalItems", errors.New("must not be negative"))
	}
	return errs.ToError()
}

func required(s string) error {
	if s == "" {
		return errors.New("is required")
	}
	return nil
}
