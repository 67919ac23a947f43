package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/couchcryptid/solar-flux-service/internal/config"
	"github.com/couchcryptid/solar-flux-service/internal/domain"
)

// Writer produces lead events to a Kafka topic for downstream CRM
// ingestion. It implements lead.Publisher.
type Writer struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewWriter creates a Kafka producer for the configured lead topic.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaLeadTopic,
		Balancer:     &kafkago.LeastBytes{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Writer{writer: w, logger: logger}
}

// PublishLead serializes and publishes a single lead event. The lead ID
// is the message key so resubmissions of the same lead land on the same
// partition and compact cleanly.
func (w *Writer) PublishLead(ctx context.Context, event domain.LeadEvent) error {
	msg, err := serializeToMessage(event)
	if err != nil {
		return err
	}
	return w.writer.WriteMessages(ctx, msg)
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// serializeToMessage marshals a LeadEvent into a Kafka message.
func serializeToMessage(event domain.LeadEvent) (kafkago.Message, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize lead event: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(event.Lead.ID),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "lead_id", Value: []byte(event.Lead.ID)},
			{Key: "submitted_at", Value: []byte(event.Lead.SubmittedAt.Format(time.RFC3339))},
		},
	}, nil
}
