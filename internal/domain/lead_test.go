package domain

import (
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validRequest() LeadRequest {
	return LeadRequest{
		Name:        "Ada Lovelace",
		Email:       "ada@example.com",
		Address:     "1600 Amphitheatre Pkwy, Mountain View, CA",
		MonthlyBill: 180,
	}
}

func TestLeadRequestValidate(t *testing.T) {
	require.NoError(t, validRequest().Validate())

	tests := []struct {
		name   string
		mutate func(*LeadRequest)
	}{
		{"missing name", func(r *LeadRequest) { r.Name = "  " }},
		{"missing address", func(r *LeadRequest) { r.Address = "" }},
		{"bad email", func(r *LeadRequest) { r.Email = "not-an-email" }},
		{"zero bill", func(r *LeadRequest) { r.MonthlyBill = 0 }},
		{"negative bill", func(r *LeadRequest) { r.MonthlyBill = -50 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validRequest()
			tt.mutate(&req)
			err := req.Validate()
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidRequest)
		})
	}
}

func TestNewLead_DeterministicID(t *testing.T) {
	a := NewLead(validRequest())
	b := NewLead(validRequest())
	assert.Equal(t, a.ID, b.ID, "same submission must produce the same ID")
	assert.Regexp(t, `^lead-[0-9a-f]{16}$`, a.ID)

	// Email is case-insensitive for identity purposes.
	upper := validRequest()
	upper.Email = "ADA@EXAMPLE.COM"
	assert.Equal(t, a.ID, NewLead(upper).ID)

	other := validRequest()
	other.Email = "grace@example.com"
	assert.NotEqual(t, a.ID, NewLead(other).ID)
}

func TestNewLead_UsesDomainClock(t *testing.T) {
	frozen := time.Date(2026, time.March, 14, 9, 26, 53, 0, time.UTC)
	SetClock(clockwork.NewFakeClockAt(frozen))
	t.Cleanup(func() { SetClock(nil) })

	lead := NewLead(validRequest())
	assert.Equal(t, frozen, lead.SubmittedAt)
}

func TestSelectFinancialAnalysis_NearestBill(t *testing.T) {
	analyses := []FinancialAnalysis{
		{MonthlyBill: 50},
		{MonthlyBill: 100},
		{MonthlyBill: 200},
	}

	got, ok := SelectFinancialAnalysis(analyses, 120)
	require.True(t, ok)
	assert.Equal(t, 100.0, got.MonthlyBill)

	got, ok = SelectFinancialAnalysis(analyses, 500)
	require.True(t, ok)
	assert.Equal(t, 200.0, got.MonthlyBill)

	_, ok = SelectFinancialAnalysis(nil, 120)
	assert.False(t, ok)
}

func TestBuildComparison_FromInsights(t *testing.T) {
	insights := BuildingInsights{
		Analyses: []FinancialAnalysis{
			{MonthlyBill: 150, PanelCount: 18, YearlyEnergyKwh: 8200, UpfrontCost: 21000, Savings20Year: 14500, PaybackYears: 9.5},
		},
	}

	cmp := BuildComparison(insights, 160)
	assert.Equal(t, "insights", cmp.EstimateSource)
	assert.Equal(t, 18, cmp.PanelCount)
	assert.Equal(t, 21000.0, cmp.UpfrontCost)
	assert.Equal(t, 14500.0, cmp.Savings20Year)
	assert.Equal(t, 12*160.0, cmp.AnnualCost)
}

func TestBuildComparison_FallsBackToHeuristic(t *testing.T) {
	cmp := BuildComparison(BuildingInsights{}, 160)
	assert.Equal(t, "heuristic", cmp.EstimateSource)
}

func TestEstimateSavingsFromBill(t *testing.T) {
	cmp := EstimateSavingsFromBill(150)

	assert.Equal(t, "heuristic", cmp.EstimateSource)
	assert.Equal(t, 1800.0, cmp.AnnualCost)
	assert.Greater(t, cmp.UpfrontCost, 0.0)
	assert.Greater(t, cmp.PaybackYears, 0.0)
	// 20 escalated years of offset savings should exceed the upfront cost
	// for a typical bill.
	assert.Greater(t, cmp.Savings20Year, 0.0)
}
