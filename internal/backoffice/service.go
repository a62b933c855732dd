package backoffice

import (
	"context"
	"strconv"

	"github.com/colonyops/backoffice/internal/core/query"
	"github.com/colonyops/backoffice/internal/core/report"
	"github.com/colonyops/backoffice/internal/notifier"
)

// Resource and action names attached to writes for toast messages.
const (
	ResourceCase           = "case"
	ResourceMerchant       = "merchant"
	ResourceBusinessReport = "business_report"

	ActionApprove  = "approve"
	ActionReject   = "reject"
	ActionRevision = "revision"
	ActionCreate   = "create"
)

// API is the set of back-office calls the service needs. *Client implements it.
type API interface {
	GetMerchant(ctx context.Context, id string) (Merchant, error)
	ListBusinessReports(ctx context.Context, p ListParams) (report.Page, error)
	GetBusinessReport(ctx context.Context, id string) (report.BusinessReport, error)
	CreateBusinessReport(ctx context.Context, in report.CreateInput) (report.BusinessReport, error)
	DecideCase(ctx context.Context, id string, in DecisionInput) (Case, error)
}

var _ API = (*Client)(nil)

// Service runs every back-office call through the request engine so reads
// are retried and cached and every outcome reaches the engine's observers.
type Service struct {
	client *query.Client
	api    API
}

// NewService binds api to the engine client.
func NewService(client *query.Client, api API) *Service {
	return &Service{client: client, api: api}
}

// MerchantKey is the query key of a merchant read.
func MerchantKey(id string) query.Key {
	return query.NewKey("merchants", id)
}

// ReportKey is the query key of a single report read.
func ReportKey(id string) query.Key {
	return query.NewKey("business-reports", id)
}

// ReportsKey is the query key of a report listing.
func ReportsKey(p ListParams) query.Key {
	return query.NewKey("business-reports", "list", strconv.Itoa(p.Page), strconv.Itoa(p.Limit), p.Search)
}

// Merchant reads a merchant.
func (s *Service) Merchant(ctx context.Context, id string, opts ...query.QueryOption) (Merchant, error) {
	return query.Query(ctx, s.client, MerchantKey(id), func(ctx context.Context) (Merchant, error) {
		return s.api.GetMerchant(ctx, id)
	}, opts...)
}

// Reports reads one page of business reports.
func (s *Service) Reports(ctx context.Context, p ListParams) (report.Page, error) {
	return query.Query(ctx, s.client, ReportsKey(p), func(ctx context.Context) (report.Page, error) {
		return s.api.ListBusinessReports(ctx, p)
	})
}

// Report reads a single business report.
func (s *Service) Report(ctx context.Context, id string) (report.BusinessReport, error) {
	return query.Query(ctx, s.client, ReportKey(id), func(ctx context.Context) (report.BusinessReport, error) {
		return s.api.GetBusinessReport(ctx, id)
	})
}

// CreateReport validates in and requests a new report. Invalid input fails
// the write without calling the API.
func (s *Service) CreateReport(ctx context.Context, in report.CreateInput) (report.BusinessReport, error) {
	in = in.Normalize()
	return query.Mutate(ctx, s.client, func(ctx context.Context) (report.BusinessReport, error) {
		if err := in.Validate(); err != nil {
			return report.BusinessReport{}, err
		}
		return s.api.CreateBusinessReport(ctx, in)
	}, query.MutationOptions{
		Key:         query.NewKey("business-reports", "create"),
		Context:     notifier.ToastContext{Resource: ResourceBusinessReport, Action: ActionCreate},
		Invalidates: []string{"business-reports/**"},
	})
}

// ApproveCase records an approval.
func (s *Service) ApproveCase(ctx context.Context, id string) (Case, error) {
	return s.decide(ctx, id, DecisionInput{Decision: DecisionApprove}, ActionApprove)
}

// RejectCase records a rejection.
func (s *Service) RejectCase(ctx context.Context, id string) (Case, error) {
	return s.decide(ctx, id, DecisionInput{Decision: DecisionReject}, ActionReject)
}

// AskRevision sends a case back for revision with reason.
func (s *Service) AskRevision(ctx context.Context, id, reason string) (Case, error) {
	return s.decide(ctx, id, DecisionInput{Decision: DecisionRevision, Reason: reason}, ActionRevision)
}

func (s *Service) decide(ctx context.Context, id string, in DecisionInput, action string) (Case, error) {
	return query.Mutate(ctx, s.client, func(ctx context.Context) (Case, error) {
		if err := in.Validate(); err != nil {
			return Case{}, err
		}
		return s.api.DecideCase(ctx, id, in)
	}, query.MutationOptions{
		Key:         query.NewKey("cases", id, string(in.Decision)),
		Context:     notifier.ToastContext{Resource: ResourceCase, Action: action},
		Invalidates: []string{query.NewKey("cases", id).String(), "merchants/**", "business-reports/**"},
	})
}
