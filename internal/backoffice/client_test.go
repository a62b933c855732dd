package backoffice

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/colonyops/backoffice/internal/core/apierr"
	"github.com/colonyops/backoffice/internal/core/config"
	"github.com/colonyops/backoffice/internal/core/report"
	"github.com/google/go-cmp/cmp"
	"github.com/hay-kot/criterio"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()

	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	c, err := New(config.APIConfig{
		BaseURL: srv.URL + "/api/v1",
		Token:   "secret",
		Timeout: 5 * time.Second,
	}, zerolog.Nop())
	require.NoError(t, err)
	return c
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestClient_GetMerchant(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/v1/merchants/m_1", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		assert.NotEmpty(t, r.Header.Get(HeaderRequestID))

		writeJSON(w, http.StatusOK, Merchant{ID: "m_1", Name: "Shop", Status: "active"})
	})

	m, err := c.GetMerchant(context.Background(), "m_1")
	require.NoError(t, err)
	assert.Equal(t, "Shop", m.Name)
}

func TestClient_ListBusinessReports_Query(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/business-reports", r.URL.Path)
		assert.Equal(t, "2", r.URL.Query().Get("page"))
		assert.Equal(t, "10", r.URL.Query().Get("limit"))
		assert.Equal(t, "acme", r.URL.Query().Get("search"))

		writeJSON(w, http.StatusOK, report.Page{TotalItems: 0, TotalPages: 0, Data: []report.BusinessReport{}})
	})

	page, err := c.ListBusinessReports(context.Background(), ListParams{Page: 2, Limit: 10, Search: "acme"})
	require.NoError(t, err)
	assert.Empty(t, page.Data)
}

func TestClient_GetBusinessReport(t *testing.T) {
	score := 72
	want := report.BusinessReport{
		ID:        "rep_9",
		Status:    report.StatusCompleted,
		RiskScore: &score,
		CreatedAt: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
		UpdatedAt: time.Date(2024, 3, 2, 8, 30, 0, 0, time.UTC),
		Business: report.Business{
			Website:     "https://shop.example",
			CompanyName: "Shop GmbH",
			Country:     "DE",
		},
	}

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/business-reports/rep_9", r.URL.Path)
		writeJSON(w, http.StatusOK, want)
	})

	got, err := c.GetBusinessReport(context.Background(), "rep_9")
	require.NoError(t, err)
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("report mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, report.SeverityHigh, got.Severity())
}

func TestClient_CreateBusinessReport_SendsBody(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var in report.CreateInput
		require.NoError(t, json.NewDecoder(r.Body).Decode(&in))
		assert.Equal(t, "https://shop.example", in.WebsiteURL)

		writeJSON(w, http.StatusCreated, report.BusinessReport{
			ID:       "rep_1",
			Status:   report.StatusNew,
			Business: report.Business{Website: in.WebsiteURL},
		})
	})

	r, err := c.CreateBusinessReport(context.Background(), report.CreateInput{WebsiteURL: "https://shop.example", CompanyName: "Shop"})
	require.NoError(t, err)
	assert.Equal(t, "rep_1", r.ID)
}

func TestClient_ErrorEnvelope(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(HeaderTraceID, "trace-1")
		writeJSON(w, http.StatusNotFound, map[string]any{
			"code":    "NOT_FOUND",
			"message": "Merchant not found",
		})
	})

	_, err := c.GetMerchant(context.Background(), "missing")

	var e *apierr.Error
	require.ErrorAs(t, err, &e)
	assert.Equal(t, apierr.CodeNotFound, e.Code)
	assert.Equal(t, "Merchant not found", e.Message)
	assert.Equal(t, "trace-1", e.TraceID)
	assert.Equal(t, apierr.KindNormal, apierr.Classify(err))
}

func TestClient_ValidationEnvelope(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"code":    "VALIDATION_FAILED",
			"message": "Invalid input",
			"details": map[string]any{"fields": map[string]string{"websiteUrl": "Invalid URL"}},
		})
	})

	_, err := c.CreateBusinessReport(context.Background(), report.CreateInput{})
	assert.Equal(t, apierr.KindValidation, apierr.Classify(err))
}

func TestClient_NotAnEnvelope(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("<html>bad gateway</html>"))
	})

	_, err := c.GetMerchant(context.Background(), "m_1")

	msg, ok := apierr.Message(err)
	assert.True(t, ok)
	assert.Equal(t, "Bad Gateway", msg)
}

func TestClient_MalformedResponseIsValidationError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"id": "m_1"})
	})

	_, err := c.GetMerchant(context.Background(), "m_1")

	var fieldErrs criterio.FieldErrors
	require.ErrorAs(t, err, &fieldErrs)
	assert.Equal(t, apierr.KindValidation, apierr.Classify(err))
}

func TestClient_InvalidJSON(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("{"))
	})

	_, err := c.GetMerchant(context.Background(), "m_1")
	assert.True(t, apierr.Is(err, apierr.CodeInternal))
}

func TestClient_NetworkError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c, err := New(config.APIConfig{BaseURL: url, Timeout: time.Second}, zerolog.Nop())
	require.NoError(t, err)

	_, err = c.GetMerchant(context.Background(), "1")

	msg, ok := apierr.Message(err)
	assert.True(t, ok)
	assert.Equal(t, apierr.NetworkErrorMessage, msg)
	assert.True(t, apierr.Is(err, apierr.CodeNetwork))
}

func TestClient_CanceledContextReturnsContextError(t *testing.T) {
	release := make(chan struct{})
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		<-release
	})
	t.Cleanup(func() { close(release) })

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	_, err := c.GetMerchant(ctx, "1")
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, apierr.Is(err, apierr.CodeNetwork))
}

func TestClient_RateLimited(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, Merchant{ID: "m_1", Name: "Shop", Status: "active"})
	}))
	t.Cleanup(srv.Close)

	c, err := New(config.APIConfig{BaseURL: srv.URL, Timeout: time.Second, RateLimit: 0.001, Burst: 1}, zerolog.Nop())
	require.NoError(t, err)

	_, err = c.GetMerchant(context.Background(), "m_1")
	require.NoError(t, err, "first request uses the burst")

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err = c.GetMerchant(ctx, "m_1")
	require.Error(t, err)
	assert.False(t, apierr.Is(err, apierr.CodeNetwork))
}
