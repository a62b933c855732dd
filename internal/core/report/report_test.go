package report

import (
	"testing"

	"github.com/hay-kot/criterio"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(i int) *int { return &i }

func TestSeverityFromRiskScore(t *testing.T) {
	tests := []struct {
		score *int
		want  Severity
	}{
		{nil, SeverityUnknown},
		{intPtr(0), SeverityLow},
		{intPtr(39), SeverityLow},
		{intPtr(40), SeverityMedium},
		{intPtr(69), SeverityMedium},
		{intPtr(70), SeverityHigh},
		{intPtr(84), SeverityHigh},
		{intPtr(85), SeverityCritical},
		{intPtr(100), SeverityCritical},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, SeverityFromRiskScore(tt.score))
	}
}

func validReport() BusinessReport {
	return BusinessReport{
		ID:        "rep_1",
		Status:    StatusCompleted,
		RiskScore: intPtr(72),
		Business:  Business{Website: "https://example.com"},
	}
}

func TestBusinessReport_Validate(t *testing.T) {
	r := validReport()
	require.NoError(t, r.Validate())
	assert.Equal(t, SeverityHigh, r.Severity())

	r.Status = "archived"
	r.RiskScore = intPtr(120)

	var fieldErrs criterio.FieldErrors
	require.ErrorAs(t, r.Validate(), &fieldErrs)
	require.Len(t, fieldErrs, 2)
	assert.Equal(t, "status", fieldErrs[0].Field)
	assert.Equal(t, "riskScore", fieldErrs[1].Field)
}

func TestPage_Validate(t *testing.T) {
	bad := validReport()
	bad.ID = ""

	p := Page{Data: []BusinessReport{validReport(), bad}, TotalItems: 2, TotalPages: 1}

	var fieldErrs criterio.FieldErrors
	require.ErrorAs(t, p.Validate(), &fieldErrs)
	require.Len(t, fieldErrs, 1)
	assert.Equal(t, "data[1]", fieldErrs[0].Field)

	assert.NoError(t, Page{}.Validate())
}
