package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/couchcryptid/tornado-bigday/internal/covariates"
)

// schemaVersion tags published messages so downstream consumers can
// detect payload changes.
const schemaVersion = "bigday.covariates.v1"

// Publisher produces covariate rows for big-day events to a Kafka topic.
type Publisher struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewPublisher creates a Kafka producer for the event export topic.
func NewPublisher(brokers []string, topic string, logger *slog.Logger) *Publisher {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafkago.LeastBytes{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Publisher{writer: w, logger: logger}
}

// PublishRows serializes and publishes covariate rows in a single
// WriteMessages call.
func (p *Publisher) PublishRows(ctx context.Context, rows []covariates.Row) error {
	if len(rows) == 0 {
		return nil
	}
	msgs := make([]kafkago.Message, len(rows))
	for i := range rows {
		msg, err := serializeRow(rows[i], time.Now().UTC())
		if err != nil {
			return err
		}
		msgs[i] = msg
	}
	if err := p.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("publish covariate rows: %w", err)
	}
	p.logger.Info("published covariate rows", "count", len(rows), "topic", p.writer.Topic)
	return nil
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}

// serializeRow marshals a covariate row into a Kafka message keyed by
// event ID.
func serializeRow(row covariates.Row, producedAt time.Time) (kafkago.Message, error) {
	data, err := json.Marshal(row)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize covariate row: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(row.EventID),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "schema", Value: []byte(schemaVersion)},
			{Key: "produced_at", Value: []byte(producedAt.Format(time.RFC3339))},
		},
	}, nil
}
