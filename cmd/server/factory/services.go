package factory

import (
	"errors"
	"log/slog"

	"github.com/StreamCatalog/internal/app"
	"github.com/StreamCatalog/internal/domain"
	"github.com/StreamCatalog/internal/infra/gateway"
	"github.com/StreamCatalog/internal/infra/queue"
	"github.com/StreamCatalog/internal/infra/repository"
	"github.com/StreamCatalog/internal/query"
	transport "github.com/StreamCatalog/internal/transport/http"
	"github.com/StreamCatalog/pkg/config"
	"go.mongodb.org/mongo-driver/mongo"
)

// NewMongoRepository creates a MongoDB repository.
func NewMongoRepository(client *mongo.Client, cfg *config.Config) (domain.Repository, error) {
	if cfg.MongoDBName == "" {
		return nil, errors.New("mongo database name not configured")
	}
	if cfg.MongoColl == "" {
		return nil, errors.New("mongo collection name not configured")
	}
	return repository.NewMongoRepository(client, cfg.MongoDBName, cfg.MongoColl)
}

// NewNotifier creates the downstream notification gateway.
func NewNotifier() domain.Notifier {
	return gateway.NewLogNotifier(slog.Default())
}

// NewEventProducer wraps the Kafka producer as an EventProducer.
func NewEventProducer(p *queue.KafkaProducer) (domain.EventProducer, error) {
	if p == nil {
		return nil, errors.New("kafka producer is nil")
	}
	return p, nil
}

// NewSnapshotService creates the snapshot service with validation.
func NewSnapshotService(
	client *app.QueryClient,
	streams query.Descriptor[[]domain.Stream],
	repo domain.Repository,
	eventProducer domain.EventProducer,
	cfg *config.Config,
) (*app.SnapshotService, error) {
	if repo == nil {
		return nil, errors.New("repository is nil")
	}
	if eventProducer == nil {
		return nil, errors.New("event producer is nil")
	}
	if cfg.RefetchInterval <= 0 {
		return nil, errors.New("refetch interval must be positive")
	}
	return app.NewSnapshotService(client, streams, repo, eventProducer, cfg.RefetchInterval), nil
}

// NewNotificationService creates the notification service.
func NewNotificationService(consumer *queue.KafkaConsumer, notifier domain.Notifier) (*app.NotificationService, error) {
	if consumer == nil {
		return nil, errors.New("kafka consumer is nil")
	}
	if notifier == nil {
		return nil, errors.New("notifier is nil")
	}
	return app.NewNotificationService(consumer, notifier), nil
}

// NewStreamsHandler creates the HTTP handler for stream endpoints.
func NewStreamsHandler(client *app.QueryClient, streams query.Descriptor[[]domain.Stream], repo domain.Repository) *transport.StreamsHandler {
	return transport.NewStreamsHandler(client, streams, repo)
}
