package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/StreamCatalog/internal/domain"
	"github.com/segmentio/kafka-go"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type KafkaProducer struct {
	writer messageWriter
}

func NewKafkaProducer(brokers []string, topic string) *KafkaProducer {
	w := &kafka.Writer{
		Addr:     kafka.TCP(brokers...),
		Topic:    topic,
		Balancer: &kafka.Hash{}, // same stream ID always lands on the same partition
	}
	slog.Info("Kafka Producer initialized", "brokers", brokers, "topic", topic)
	return &KafkaProducer{writer: w}
}

func (p *KafkaProducer) Publish(ctx context.Context, event *domain.StreamEvent) error {
	msg, err := toMessage(event)
	if err != nil {
		return err
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		slog.Error("Failed to write to kafka", "error", err)
		return err
	}
	slog.Debug("Published stream event", "stream_id", event.StreamID, "type", event.Type)
	return nil
}

func (p *KafkaProducer) PublishBatch(ctx context.Context, events []domain.StreamEvent) error {
	if len(events) == 0 {
		return nil
	}

	msgs := make([]kafka.Message, 0, len(events))
	for i := range events {
		msg, err := toMessage(&events[i])
		if err != nil {
			return err
		}
		msgs = append(msgs, msg)
	}

	if err := p.writer.WriteMessages(ctx, msgs...); err != nil {
		slog.Error("Failed to write batch to kafka", "count", len(msgs), "error", err)
		return err
	}
	slog.Debug("Published stream event batch", "count", len(msgs))
	return nil
}

func (p *KafkaProducer) Close() error {
	return p.writer.Close()
}

func toMessage(event *domain.StreamEvent) (kafka.Message, error) {
	payload, err := json.Marshal(event)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("failed to marshal event for %s: %w", event.StreamID, err)
	}
	return kafka.Message{
		Key:   []byte(event.StreamID),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.Type)},
		},
	}, nil
}
