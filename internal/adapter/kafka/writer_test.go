package kafka

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/solar-flux-service/internal/domain"
)

func TestSerializeToMessage(t *testing.T) {
	now := time.Date(2026, 8, 14, 15, 10, 0, 0, time.UTC)
	event := domain.LeadEvent{
		Lead: domain.Lead{
			ID:          "lead-0011223344556677",
			Name:        "Jordan Diaz",
			Email:       "jordan@example.com",
			Address:     "123 Main St, Austin, TX",
			MonthlyBill: 180,
			SubmittedAt: now,
		},
		Comparison: domain.SavingsComparison{
			EstimateSource: "heuristic",
		},
	}

	msg, err := serializeToMessage(event)
	require.NoError(t, err)

	assert.Equal(t, []byte("lead-0011223344556677"), msg.Key)
	assert.Contains(t, string(msg.Value), `"email":"jordan@example.com"`)
	assert.Contains(t, string(msg.Value), `"estimate_source":"heuristic"`)
	assert.Len(t, msg.Headers, 2)
	assert.Equal(t, "lead_id", msg.Headers[0].Key)
	assert.Equal(t, []byte("lead-0011223344556677"), msg.Headers[0].Value)
	assert.Equal(t, "submitted_at", msg.Headers[1].Key)
	assert.Equal(t, []byte(now.Format(time.RFC3339)), msg.Headers[1].Value)
}
