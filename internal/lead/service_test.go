package lead

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/solar-flux-service/internal/domain"
	"github.com/couchcryptid/solar-flux-service/internal/observability"
)

type stubGeocoder struct {
	result domain.GeocodingResult
	err    error
}

func (s *stubGeocoder) Geocode(_ context.Context, _ string) (domain.GeocodingResult, error) {
	return s.result, s.err
}

type stubSolar struct {
	insights domain.BuildingInsights
	err      error
	calls    int
}

func (s *stubSolar) BuildingInsights(_ context.Context, _, _ float64) (domain.BuildingInsights, error) {
	s.calls++
	return s.insights, s.err
}

type stubPublisher struct {
	events []domain.LeadEvent
	err    error
}

func (s *stubPublisher) PublishLead(_ context.Context, event domain.LeadEvent) error {
	if s.err != nil {
		return s.err
	}
	s.events = append(s.events, event)
	return nil
}

func validRequest() domain.LeadRequest {
	return domain.LeadRequest{
		Name:        "Jordan Diaz",
		Email:       "jordan@example.com",
		Address:     "123 Main St, Austin, TX",
		MonthlyBill: 180,
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestSubmit_FullEnrichment(t *testing.T) {
	geocoder := &stubGeocoder{result: domain.GeocodingResult{
		Lat:              30.27,
		Lon:              -97.74,
		FormattedAddress: "123 Main Street, Austin, Texas 78701",
		Confidence:       0.95,
	}}
	solar := &stubSolar{insights: domain.BuildingInsights{
		Name: "buildings/abc",
		Analyses: []domain.FinancialAnalysis{
			{MonthlyBill: 175, PanelCount: 18, YearlyEnergyKwh: 7400, UpfrontCost: 19500, Savings20Year: 16200, PaybackYears: 8.9},
		},
	}}
	publisher := &stubPublisher{}

	svc := NewService(geocoder, solar, publisher, observability.NewMetricsForTesting(), discardLogger())
	lead, comparison, err := svc.Submit(context.Background(), validRequest())
	require.NoError(t, err)

	assert.Equal(t, "geocoded", lead.GeoSource)
	assert.Equal(t, 30.27, lead.Lat)
	assert.Equal(t, "123 Main Street, Austin, Texas 78701", lead.FormattedAddress)

	assert.Equal(t, "insights", comparison.EstimateSource)
	assert.Equal(t, 18, comparison.PanelCount)
	assert.Equal(t, 16200.0, comparison.Savings20Year)

	require.Len(t, publisher.events, 1)
	assert.Equal(t, lead, publisher.events[0].Lead)
	assert.Equal(t, comparison, publisher.events[0].Comparison)
}

func TestSubmit_InvalidRequest(t *testing.T) {
	publisher := &stubPublisher{}
	svc := NewService(nil, &stubSolar{}, publisher, observability.NewMetricsForTesting(), discardLogger())

	req := validRequest()
	req.Email = "not-an-email"

	_, _, err := svc.Submit(context.Background(), req)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidRequest)
	assert.Empty(t, publisher.events, "invalid submissions must not be published")
}

func TestSubmit_GeocoderDisabled(t *testing.T) {
	solar := &stubSolar{}
	svc := NewService(nil, solar, &stubPublisher{}, observability.NewMetricsForTesting(), discardLogger())

	lead, comparison, err := svc.Submit(context.Background(), validRequest())
	require.NoError(t, err)

	assert.Equal(t, "disabled", lead.GeoSource)
	assert.Equal(t, "heuristic", comparison.EstimateSource)
	assert.Zero(t, solar.calls, "insights need coordinates")
}

func TestSubmit_GeocodingFailureDegrades(t *testing.T) {
	geocoder := &stubGeocoder{err: errors.New("mapbox down")}
	svc := NewService(geocoder, &stubSolar{}, &stubPublisher{}, observability.NewMetricsForTesting(), discardLogger())

	lead, comparison, err := svc.Submit(context.Background(), validRequest())
	require.NoError(t, err, "geocoding failure must not reject the lead")

	assert.Equal(t, "failed", lead.GeoSource)
	assert.Equal(t, "heuristic", comparison.EstimateSource)
}

func TestSubmit_InsightsFailureFallsBackToHeuristic(t *testing.T) {
	geocoder := &stubGeocoder{result: domain.GeocodingResult{
		Lat: 30.27, Lon: -97.74, FormattedAddress: "123 Main Street, Austin, Texas",
	}}
	solar := &stubSolar{err: &domain.UpstreamError{Status: 429}}
	svc := NewService(geocoder, solar, &stubPublisher{}, observability.NewMetricsForTesting(), discardLogger())

	lead, comparison, err := svc.Submit(context.Background(), validRequest())
	require.NoError(t, err)

	assert.Equal(t, "geocoded", lead.GeoSource)
	assert.Equal(t, "heuristic", comparison.EstimateSource)
	assert.Positive(t, comparison.Savings20Year)
}

func TestSubmit_PublishFailureStillReturnsEstimate(t *testing.T) {
	publisher := &stubPublisher{err: errors.New("broker unavailable")}
	svc := NewService(nil, &stubSolar{}, publisher, observability.NewMetricsForTesting(), discardLogger())

	lead, comparison, err := svc.Submit(context.Background(), validRequest())
	require.NoError(t, err, "publish failure must not surface to the homeowner")

	assert.NotEmpty(t, lead.ID)
	assert.Equal(t, "heuristic", comparison.EstimateSource)
}
