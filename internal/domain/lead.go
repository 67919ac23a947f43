package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/mail"
	"strings"
	"time"
)

// LeadRequest is a homeowner's form submission.
type LeadRequest struct {
	Name        string  `json:"name"`
	Email       string  `json:"email"`
	Address     string  `json:"address"`
	MonthlyBill float64 `json:"monthly_bill"` // USD
}

// Validate checks the submission for required fields. Failures wrap
// ErrInvalidRequest so the transport layer maps them to 400.
func (r LeadRequest) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidRequest)
	}
	if strings.TrimSpace(r.Address) == "" {
		return fmt.Errorf("%w: address is required", ErrInvalidRequest)
	}
	if _, err := mail.ParseAddress(r.Email); err != nil {
		return fmt.Errorf("%w: invalid email address", ErrInvalidRequest)
	}
	if r.MonthlyBill <= 0 {
		return fmt.Errorf("%w: monthly bill must be positive", ErrInvalidRequest)
	}
	return nil
}

// Lead is the domain-rich representation of an accepted submission.
type Lead struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Email       string  `json:"email"`
	Address     string  `json:"address"`
	MonthlyBill float64 `json:"monthly_bill"`

	// Geocoding enrichment fields.
	Lat              float64 `json:"lat,omitempty"`
	Lon              float64 `json:"lon,omitempty"`
	FormattedAddress string  `json:"formatted_address,omitempty"`
	GeoConfidence    float64 `json:"geo_confidence,omitempty"`
	GeoSource        string  `json:"geo_source,omitempty"` // "geocoded", "failed", "disabled"

	SubmittedAt time.Time `json:"submitted_at"`
}

// NewLead builds a Lead from a validated request, stamping it with the
// domain clock and a deterministic ID.
func NewLead(req LeadRequest) Lead {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	address := strings.TrimSpace(req.Address)
	return Lead{
		ID:          generateLeadID(email, address),
		Name:        strings.TrimSpace(req.Name),
		Email:       email,
		Address:     address,
		MonthlyBill: req.MonthlyBill,
		SubmittedAt: clock.Now().UTC(),
	}
}

// generateLeadID produces a deterministic ID from the lead's key fields.
// Resubmitting the same lead yields the same ID, so the downstream CRM
// can upsert idempotently.
func generateLeadID(email, address string) string {
	input := fmt.Sprintf("%s|%s", email, address)
	hash := sha256.Sum256([]byte(input))
	return "lead-" + hex.EncodeToString(hash[:8])
}

// LeadEvent is the payload published to the lead topic for downstream
// CRM ingestion.
type LeadEvent struct {
	Lead       Lead              `json:"lead"`
	Comparison SavingsComparison `json:"comparison"`
}
