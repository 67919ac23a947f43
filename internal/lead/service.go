// Package lead handles homeowner submissions: validation, address
// enrichment, savings estimation, and publication for CRM ingestion.
package lead

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/couchcryptid/solar-flux-service/internal/domain"
	"github.com/couchcryptid/solar-flux-service/internal/observability"
)

// SolarAPI is the subset of the vendor client the service needs.
type SolarAPI interface {
	BuildingInsights(ctx context.Context, lat, lon float64) (domain.BuildingInsights, error)
}

// Publisher delivers accepted leads downstream.
type Publisher interface {
	PublishLead(ctx context.Context, event domain.LeadEvent) error
}

// Service processes lead submissions. Geocoding and building insights
// are best-effort enrichment: their failures degrade the estimate but
// never reject the lead.
type Service struct {
	geocoder  domain.Geocoder // nil when geocoding is disabled
	solar     SolarAPI
	publisher Publisher
	logger    *slog.Logger
	metrics   *observability.Metrics
}

// NewService creates a lead service. geocoder may be nil to disable
// address enrichment.
func NewService(geocoder domain.Geocoder, solar SolarAPI, publisher Publisher, metrics *observability.Metrics, logger *slog.Logger) *Service {
	return &Service{
		geocoder:  geocoder,
		solar:     solar,
		publisher: publisher,
		logger:    logger,
		metrics:   metrics,
	}
}

// Submit validates and enriches a submission, estimates savings, and
// publishes the resulting lead event. The returned lead and comparison
// are what the caller shows the homeowner.
func (s *Service) Submit(ctx context.Context, req domain.LeadRequest) (domain.Lead, domain.SavingsComparison, error) {
	if err := req.Validate(); err != nil {
		s.metrics.LeadsSubmitted.WithLabelValues("invalid").Inc()
		return domain.Lead{}, domain.SavingsComparison{}, err
	}

	lead := domain.NewLead(req)
	s.enrichLocation(ctx, &lead)
	comparison := s.estimate(ctx, lead)

	event := domain.LeadEvent{Lead: lead, Comparison: comparison}
	if err := s.publisher.PublishLead(ctx, event); err != nil {
		// The homeowner still gets their estimate; the lead is recoverable
		// from logs if the broker stays down.
		s.metrics.LeadsSubmitted.WithLabelValues("publish_error").Inc()
		s.logger.Error("failed to publish lead event",
			"lead_id", lead.ID,
			"error", err,
		)
		return lead, comparison, nil
	}

	s.metrics.LeadsSubmitted.WithLabelValues("accepted").Inc()
	s.logger.Info("lead accepted",
		"lead_id", lead.ID,
		"geo_source", lead.GeoSource,
		"estimate_source", comparison.EstimateSource,
	)
	return lead, comparison, nil
}

// enrichLocation resolves the lead's address to coordinates when a
// geocoder is configured.
func (s *Service) enrichLocation(ctx context.Context, lead *domain.Lead) {
	if s.geocoder == nil {
		lead.GeoSource = "disabled"
		return
	}

	result, err := s.geocoder.Geocode(ctx, lead.Address)
	if err != nil || result.FormattedAddress == "" {
		lead.GeoSource = "failed"
		if err != nil {
			s.logger.Warn("geocoding failed", "lead_id", lead.ID, "error", err)
		}
		return
	}

	lead.Lat = result.Lat
	lead.Lon = result.Lon
	lead.FormattedAddress = result.FormattedAddress
	lead.GeoConfidence = result.Confidence
	lead.GeoSource = "geocoded"
}

// estimate builds the savings comparison, preferring vendor building
// insights when the lead has coordinates.
func (s *Service) estimate(ctx context.Context, lead domain.Lead) domain.SavingsComparison {
	if lead.GeoSource != "geocoded" {
		return domain.EstimateSavingsFromBill(lead.MonthlyBill)
	}

	insights, err := s.solar.BuildingInsights(ctx, lead.Lat, lead.Lon)
	if err != nil {
		s.logger.Warn("building insights unavailable, using bill heuristic",
			"lead_id", lead.ID,
			"error", fmt.Errorf("building insights: %w", err),
		)
		return domain.EstimateSavingsFromBill(lead.MonthlyBill)
	}
	return domain.BuildComparison(insights, lead.MonthlyBill)
}
