package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"

	"github.com/StreamCatalog/cmd/server/factory"
	"github.com/StreamCatalog/internal/app"
	"github.com/StreamCatalog/internal/infra/tracing"
	transport "github.com/StreamCatalog/internal/transport/http"
	"github.com/StreamCatalog/pkg/config"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/fx"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	fx.New(
		fx.Provide(
			// Config
			config.Load,

			// Streams query
			factory.NewHTTPDoer,
			factory.NewStreamMapper,
			factory.NewStreamsQuery,
			factory.NewQueryClient,

			// Infrastructure
			factory.NewMongoClient,
			factory.NewMongoRepository,
			fx.Annotate(
				factory.NewMainKafkaProducer,
				fx.ResultTags(`name:"main_producer"`),
			),
			fx.Annotate(
				factory.NewDLQProducer,
				fx.ResultTags(`name:"dlq_producer"`),
			),
			fx.Annotate(
				factory.NewKafkaConsumer,
				fx.ParamTags(``, `name:"dlq_producer"`, ``),
			),

			// Gateways & Producers
			factory.NewNotifier,
			fx.Annotate(
				factory.NewEventProducer,
				fx.ParamTags(`name:"main_producer"`),
			),

			// Services
			factory.NewSnapshotService,
			factory.NewNotificationService,

			// HTTP Server
			factory.NewStreamsHandler,
			transport.NewHTTPServer,
		),
		fx.Invoke(
			SetupTracer,
			WaitForReady, // Block until dependencies are ready
			RegisterHooks,
			StartServer,
		),
	).Run()
}

// --- Invokers ---

func RegisterHooks(lc fx.Lifecycle, snapshots *app.SnapshotService, notifications *app.NotificationService) {
	ctx, cancel := context.WithCancel(context.Background())

	lc.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			go snapshots.Start(ctx)
			notifications.Start(ctx)
			return nil
		},
		OnStop: func(_ context.Context) error {
			cancel()
			return notifications.Stop()
		},
	})
}

func SetupTracer(lc fx.Lifecycle, cfg *config.Config) error {
	ctx := context.Background()
	shutdown, err := tracing.InitTracer(ctx, cfg.ServiceName)
	if err != nil {
		slog.Error("Failed to initialize tracer", "error", err)
		return err
	}

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			slog.Info("Shutting down tracer provider")
			return shutdown(ctx)
		},
	})
	return nil
}

// WaitForReady blocks until all dependencies are ready.
func WaitForReady(
	cfg *config.Config,
	mongoClient *mongo.Client,
) error {
	ctx := context.Background()
	waiter := app.NewReadinessWaiter(0,
		app.MongoCheck(mongoClient),
		app.KafkaCheck(cfg.KafkaBrokers, cfg.KafkaTopic),
	)
	return waiter.WaitForDependencies(ctx)
}

func StartServer(lc fx.Lifecycle, server *http.Server) {
	lc.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			go func() {
				slog.Info("Starting HTTP server", "address", server.Addr)
				if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					slog.Error("HTTP server failed", "error", err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return server.Shutdown(ctx)
		},
	})
}
