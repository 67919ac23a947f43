package domain

import "math"

// BuildingInsights is the subset of the vendor building-insights
// response used for lead estimates.
type BuildingInsights struct {
	Name             string
	MaxPanelCount    int
	MaxSunshineHours float64
	CarbonOffsetKg   float64
	Analyses         []FinancialAnalysis
}

// FinancialAnalysis is one vendor financial scenario, keyed by the
// reference monthly bill it was modeled for.
type FinancialAnalysis struct {
	MonthlyBill     float64 // USD
	PanelCount      int
	YearlyEnergyKwh float64
	UpfrontCost     float64 // USD, cash purchase
	Savings20Year   float64 // USD
	PaybackYears    float64
}

// DataLayers is the subset of the vendor data-layers response the
// renderer and display layer consume. The flux URLs embed the raster
// identifier the proxy resolves; the metadata fields pass through to
// the display layer unchanged.
type DataLayers struct {
	AnnualFluxURL  string
	MonthlyFluxURL string
	MaskURL        string
	ImageryDate    string
	ProcessedDate  string
	ImageryQuality string
}

// SavingsComparison is the reshaped financial picture shown to the
// homeowner and attached to the published lead event.
type SavingsComparison struct {
	MonthlyBill     float64 `json:"monthly_bill"`
	AnnualCost      float64 `json:"annual_cost"`
	PanelCount      int     `json:"panel_count,omitempty"`
	YearlyEnergyKwh float64 `json:"yearly_energy_kwh,omitempty"`
	UpfrontCost     float64 `json:"upfront_cost"`
	Savings20Year   float64 `json:"savings_20_year"`
	PaybackYears    float64 `json:"payback_years"`
	EstimateSource  string  `json:"estimate_source"` // "insights" or "heuristic"
}

// Heuristic constants for the bill-based fallback estimate. Rules of
// thumb for US residential installs, not a financial model: a system
// sized from the bill at ~$2.80/W gross, 30% federal credit, 90% usage
// offset, 4%/yr utility price escalation over a 20-year horizon.
const (
	offsetFraction    = 0.90
	utilityEscalation = 1.04
	horizonYears      = 20
	kwPerBillDollar   = 1.0 / 18.0 // system kW per $ of monthly bill
	costPerWatt       = 2.80
	federalCreditRate = 0.30
)

// SelectFinancialAnalysis picks the vendor analysis whose reference
// monthly bill is nearest the homeowner's. Returns false when no
// analyses are available.
func SelectFinancialAnalysis(analyses []FinancialAnalysis, monthlyBill float64) (FinancialAnalysis, bool) {
	if len(analyses) == 0 {
		return FinancialAnalysis{}, false
	}
	best := analyses[0]
	bestDelta := math.Abs(best.MonthlyBill - monthlyBill)
	for _, a := range analyses[1:] {
		if delta := math.Abs(a.MonthlyBill - monthlyBill); delta < bestDelta {
			best = a
			bestDelta = delta
		}
	}
	return best, true
}

// BuildComparison reshapes building insights into a savings comparison
// for the given bill. When insights carry no usable analysis it falls
// back to the bill-based heuristic.
func BuildComparison(insights BuildingInsights, monthlyBill float64) SavingsComparison {
	analysis, ok := SelectFinancialAnalysis(insights.Analyses, monthlyBill)
	if !ok {
		return EstimateSavingsFromBill(monthlyBill)
	}
	return SavingsComparison{
		MonthlyBill:     monthlyBill,
		AnnualCost:      12 * monthlyBill,
		PanelCount:      analysis.PanelCount,
		YearlyEnergyKwh: analysis.YearlyEnergyKwh,
		UpfrontCost:     analysis.UpfrontCost,
		Savings20Year:   analysis.Savings20Year,
		PaybackYears:    analysis.PaybackYears,
		EstimateSource:  "insights",
	}
}

// EstimateSavingsFromBill is the fallback estimator used when building
// insights are unavailable. See the heuristic constants for assumptions.
func EstimateSavingsFromBill(monthlyBill float64) SavingsComparison {
	annualCost := 12 * monthlyBill
	systemKw := monthlyBill * kwPerBillDollar
	upfront := systemKw * 1000 * costPerWatt * (1 - federalCreditRate)

	// Offset savings compound with utility price escalation.
	var gross float64
	escalated := annualCost * offsetFraction
	for year := 0; year < horizonYears; year++ {
		gross += escalated
		escalated *= utilityEscalation
	}

	payback := 0.0
	if annual := annualCost * offsetFraction; annual > 0 {
		payback = upfront / annual
	}

	return SavingsComparison{
		MonthlyBill:    monthlyBill,
		AnnualCost:     annualCost,
		UpfrontCost:    math.Round(upfront),
		Savings20Year:  math.Round(gross - upfront),
		PaybackYears:   math.Round(payback*10) / 10,
		EstimateSource: "heuristic",
	}
}
