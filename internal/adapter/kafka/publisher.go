// Package kafka publishes composed context snapshots so downstream consumers
// (dashboards, archival) see the same corridor payload the assistant does.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/tsaiiuo/traffic-agent/internal/domain"
	"github.com/tsaiiuo/traffic-agent/internal/observability"
)

// Publisher produces context snapshots to the snapshot topic.
type Publisher struct {
	writer  *kafkago.Writer
	metrics *observability.Metrics
	logger  *slog.Logger
}

// NewPublisher creates a Kafka producer for the snapshot topic.
func NewPublisher(brokers []string, topic string, metrics *observability.Metrics, logger *slog.Logger) *Publisher {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafkago.LeastBytes{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Publisher{writer: w, metrics: metrics, logger: logger}
}

// PublishSnapshot serializes and publishes one context block. The message key
// is the generation timestamp so replays of the same build coalesce under
// compaction.
func (p *Publisher) PublishSnapshot(ctx context.Context, block domain.ContextBlock) error {
	msg, err := serializeToMessage(block)
	if err != nil {
		return err
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish snapshot: %w", err)
	}
	p.metrics.SnapshotsPublished.Inc()
	return nil
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}

// serializeToMessage marshals a ContextBlock into a Kafka message.
func serializeToMessage(block domain.ContextBlock) (kafkago.Message, error) {
	data, err := json.Marshal(block)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize snapshot: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(block.GeneratedAt.Format(time.RFC3339)),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "forecast_available", Value: []byte(fmt.Sprintf("%t", block.ForecastAvailable))},
			{Key: "incidents_available", Value: []byte(fmt.Sprintf("%t", block.IncidentsAvailable))},
		},
	}, nil
}
