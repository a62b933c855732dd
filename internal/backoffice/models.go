package backoffice

import (
	"errors"
	"fmt"

	"github.com/hay-kot/criterio"
)

// Merchant is a business onboarded to the platform.
type Merchant struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Website   string `json:"website,omitempty"`
	Country   string `json:"country,omitempty"`
	Status    string `json:"status"`
	RiskScore *int   `json:"riskScore"`
}

// Validate checks a decoded merchant against the shape the API promises.
func (m Merchant) Validate() error {
	return criterio.ValidateStruct(
		criterio.Run("id", m.ID, required),
		criterio.Run("name", m.Name, required),
		criterio.Run("status", m.Status, required),
	)
}

// Decision is the outcome a reviewer records on a case.
type Decision string

const (
	DecisionApprove  Decision = "approve"
	DecisionReject   Decision = "reject"
	DecisionRevision Decision = "revision"
)

// Valid reports whether d is a known decision.
func (d Decision) Valid() bool {
	switch d {
	case DecisionApprove, DecisionReject, DecisionRevision:
		return true
	}
	return false
}

// DecisionInput is the body of a case decision request.
type DecisionInput struct {
	Decision Decision `json:"decision"`
	Reason   string   `json:"reason,omitempty"`
}

// Validate checks the decision before it is sent.
func (in DecisionInput) Validate() error {
	return criterio.ValidateStruct(
		criterio.Run("decision", in.Decision, func(d Decision) error {
			if !d.Valid() {
				return fmt.Errorf("unknown decision %q", d)
			}
			return nil
		}),
		criterio.Run("reason", in.Reason, func(s string) error {
			if in.Decision == DecisionRevision && s == "" {
				return errors.New("is required when asking for a revision")
			}
			return nil
		}),
	)
}

// Case is a review case after a decision was recorded.
type Case struct {
	ID       string   `json:"id"`
	Status   string   `json:"status"`
	Decision Decision `json:"decision"`
}

// Validate checks a decoded case against the shape the API promises.
func (c Case) Validate() error {
	return criterio.ValidateStruct(
		criterio.Run("id", c.ID, required),
		criterio.Run("status", c.Status, required),
	)
}

// ListParams pages and filters report listings.
type ListParams struct {
	Page   int
	Limit  int
	Search string
}

func required(s string) error {
	if s == "" {
		return errors.New("is required")
	}
	return nil
}
