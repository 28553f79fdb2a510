package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/couchcryptid/prevailing-winds/internal/config"
	"github.com/couchcryptid/prevailing-winds/internal/domain"
	"github.com/couchcryptid/prevailing-winds/internal/selection"
)

// Publisher produces applied summaries to a Kafka topic.
// It implements pipeline.SummaryPublisher.
type Publisher struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewPublisher creates a Kafka producer for the configured summary topic.
func NewPublisher(cfg *config.Config, logger *slog.Logger) *Publisher {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaSummaryTopic,
		Balancer:     &kafkago.LeastBytes{},
		RequiredAcks: kafkago.RequireAll,
		BatchTimeout: 50 * time.Millisecond,
	}
	return &Publisher{writer: w, logger: logger}
}

// Publish writes one summary keyed by its selection ID.
func (p *Publisher) Publish(ctx context.Context, sel selection.Selection, summary domain.Summary) error {
	msg, err := serializeToMessage(sel, summary)
	if err != nil {
		return err
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("write summary %s: %w", sel.ID, err)
	}
	p.logger.Debug("summary published", "selection_id", sel.ID.String(), "topic", p.writer.Topic)
	return nil
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}

// SummaryMessage is the value of a published message.
type SummaryMessage struct {
	Selection selection.Selection `json:"selection"`
	Summary   domain.Summary      `json:"summary"`
	Texts     []string            `json:"texts"`
}

// serializeToMessage marshals a selection and its summary into a Kafka message.
func serializeToMessage(sel selection.Selection, summary domain.Summary) (kafkago.Message, error) {
	data, err := json.Marshal(SummaryMessage{
		Selection: sel,
		Summary:   summary,
		Texts:     summary.Texts(),
	})
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize summary: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(sel.ID.String()),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "generation", Value: []byte(strconv.FormatUint(sel.Generation, 10))},
			{Key: "time_range", Value: []byte(sel.TimeRange)},
			{Key: "month", Value: []byte(sel.Month)},
			{Key: "generated_at", Value: []byte(summary.GeneratedAt.Format(time.RFC3339))},
		},
	}, nil
}
