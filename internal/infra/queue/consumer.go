package queue

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/StreamCatalog/internal/domain"
	"github.com/StreamCatalog/internal/infra/metrics"
	"github.com/segmentio/kafka-go"
)

type messageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

type KafkaConsumer struct {
	reader      messageReader
	dlqProducer domain.EventProducer
}

func NewKafkaConsumer(brokers []string, topic string, groupID string, dlqProducer domain.EventProducer) *KafkaConsumer {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    topic,
		GroupID:  groupID,
		MinBytes: 10e3, // 10KB
		MaxBytes: 10e6, // 10MB
	})
	slog.Info("Kafka Consumer initialized", "brokers", brokers, "topic", topic, "group", groupID)
	return &KafkaConsumer{
		reader:      r,
		dlqProducer: dlqProducer,
	}
}

type MessageHandler = func(ctx context.Context, event *domain.StreamEvent) error

// Start reads until the reader fails or ctx is cancelled. Events the handler
// rejects are re-published to the DLQ when one is configured.
func (c *KafkaConsumer) Start(ctx context.Context, handler MessageHandler) {
	for {
		m, err := c.reader.ReadMessage(ctx)
		if err != nil {
			if !errors.Is(err, context.Canceled) {
				slog.Error("Error reading kafka message", "error", err)
			}
			return
		}

		var event domain.StreamEvent
		if err := json.Unmarshal(m.Value, &event); err != nil {
			slog.Error("Error unmarshaling stream event", "offset", m.Offset, "error", err)
			continue
		}

		slog.Debug("Received stream event", "stream_id", event.StreamID, "partition", m.Partition)

		if err := handler(ctx, &event); err != nil {
			slog.Error("Error handling stream event", "stream_id", event.StreamID, "error", err)

			if c.dlqProducer != nil {
				slog.Info("Publishing failed event to DLQ", "stream_id", event.StreamID)
				if dlqErr := c.dlqProducer.Publish(ctx, &event); dlqErr != nil {
					slog.Error("Failed to publish to DLQ", "stream_id", event.StreamID, "error", dlqErr)
				} else {
					metrics.DLQMessagesPublished.WithLabelValues(event.Stream.Source).Inc()
				}
			}
		}
	}
}

func (c *KafkaConsumer) Close() error {
	return c.reader.Close()
}
