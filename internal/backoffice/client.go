// Package backoffice is the HTTP client for the back-office API and the
// service that routes its calls through the request engine.
package backoffice

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/colonyops/backoffice/internal/core/apierr"
	"github.com/colonyops/backoffice/internal/core/config"
	"github.com/colonyops/backoffice/internal/core/logging"
	"github.com/colonyops/backoffice/internal/core/report"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

const (
	HeaderRequestID = "X-Request-Id"
	HeaderTraceID   = "X-Trace-Id"

	maxErrorBody = 1 << 20
)

// validator is implemented by every response type.
type validator interface {
	Validate() error
}

// Client talks to the back-office API. It is safe for concurrent use.
type Client struct {
	baseURL *url.URL
	token   string
	http    *http.Client
	limiter *rate.Limiter
	logger  zerolog.Logger
}

// New creates a client from cfg. A zero rate limit disables client-side
// limiting.
func New(cfg config.APIConfig, logger zerolog.Logger) (*Client, error) {
	base, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}

	c := &Client{
		baseURL: base,
		token:   cfg.Token,
		http:    &http.Client{Timeout: cfg.Timeout},
		logger:  logger,
	}
	if cfg.RateLimit > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), max(cfg.Burst, 1))
	}
	return c, nil
}

// GetMerchant fetches a merchant by id.
func (c *Client) GetMerchant(ctx context.Context, id string) (Merchant, error) {
	var m Merchant
	err := c.do(ctx, http.MethodGet, c.endpoint(nil, "merchants", id), nil, &m)
	return m, err
}

// ListBusinessReports fetches one page of business reports.
func (c *Client) ListBusinessReports(ctx context.Context, p ListParams) (report.Page, error) {
	q := url.Values{}
	if p.Page > 0 {
		q.Set("page", strconv.Itoa(p.Page))
	}
	if p.Limit > 0 {
		q.Set("limit", strconv.Itoa(p.Limit))
	}
	if p.Search != "" {
		q.Set("search", p.Search)
	}

	var page report.Page
	err := c.do(ctx, http.MethodGet, c.endpoint(q, "business-reports"), nil, &page)
	return page, err
}

// GetBusinessReport fetches a report by id.
func (c *Client) GetBusinessReport(ctx context.Context, id string) (report.BusinessReport, error) {
	var r report.BusinessReport
	err := c.do(ctx, http.MethodGet, c.endpoint(nil, "business-reports", id), nil, &r)
	return r, err
}

// CreateBusinessReport requests a new report.
func (c *Client) CreateBusinessReport(ctx context.Context, in report.CreateInput) (report.BusinessReport, error) {
	var r report.BusinessReport
	err := c.do(ctx, http.MethodPost, c.endpoint(nil, "business-reports"), in, &r)
	return r, err
}

// DecideCase records a decision on a case.
func (c *Client) DecideCase(ctx context.Context, id string, in DecisionInput) (Case, error) {
	var cs Case
	err := c.do(ctx, http.MethodPost, c.endpoint(nil, "cases", id, "decision"), in, &cs)
	return cs, err
}

func (c *Client) endpoint(q url.Values, elem ...string) string {
	u := c.baseURL.JoinPath(elem...)
	u.RawQuery = q.Encode()
	return u.String()
}

// do sends a request and decodes a 2xx body into out. Errors are:
// the context error when the caller gave up, *apierr.Error for transport
// failures and error responses, and criterio.FieldErrors (wrapped) when the
// body does not match the expected shape.
func (c *Client) do(ctx context.Context, method, endpoint string, body any, out validator) error {
	requestID := uuid.NewString()
	ctx = logging.WithRequestID(ctx, requestID)

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("wait for rate limiter: %w", err)
		}
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set(HeaderRequestID, requestID)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.logger.Debug().Ctx(ctx).Err(err).Str("method", method).Str("url", endpoint).Msg("request failed")
		return apierr.Network(err)
	}
	defer func() { _ = resp.Body.Close() }()

	c.logger.Debug().Ctx(ctx).
		Str("method", method).
		Str("url", endpoint).
		Int("status", resp.StatusCode).
		Dur("elapsed", time.Since(start)).
		Msg("request")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		e := apierr.Decode(resp.StatusCode, data)
		if e.TraceID == "" {
			e.TraceID = resp.Header.Get(HeaderTraceID)
		}
		return e
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if errors.Is(err, io.EOF) {
			err = io.ErrUnexpectedEOF
		}
		return apierr.Wrap(apierr.CodeInternal, resp.StatusCode, "Invalid response body", err)
	}

	if err := out.Validate(); err != nil {
		return fmt.Errorf("validate response from %s: %w", req.URL.Path, err)
	}

	return nil
}
