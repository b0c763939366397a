package app

import (
	"context"
	"log/slog"
	"time"

	"github.com/StreamCatalog/internal/domain"
	"github.com/StreamCatalog/internal/infra/metrics"
)

// EventConsumer delivers queued stream events to a handler until ctx is done.
type EventConsumer interface {
	Start(ctx context.Context, handler func(ctx context.Context, event *domain.StreamEvent) error)
	Close() error
}

type NotificationService struct {
	consumer EventConsumer
	notifier domain.Notifier
}

func NewNotificationService(consumer EventConsumer, notifier domain.Notifier) *NotificationService {
	return &NotificationService{
		consumer: consumer,
		notifier: notifier,
	}
}

func (s *NotificationService) Start(ctx context.Context) {
	slog.Info("Starting notification service (Kafka consumer)")
	go s.consumer.Start(ctx, s.handleEvent)
}

func (s *NotificationService) handleEvent(ctx context.Context, event *domain.StreamEvent) error {
	start := time.Now()
	slog.Info("Consuming stream event", "stream_id", event.StreamID, "type", event.Type)

	err := s.notifier.Notify(ctx, event)
	metrics.NotifyDuration.Observe(time.Since(start).Seconds())

	if err != nil {
		slog.Error("Failed to notify", "stream_id", event.StreamID, "error", err)
		metrics.NotifyErrors.WithLabelValues(event.Stream.Source).Inc()
		return err
	}

	metrics.NotifySuccess.WithLabelValues(event.Stream.Source).Inc()
	return nil
}

func (s *NotificationService) Stop() error {
	return s.consumer.Close()
}
