package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// Check reports whether one dependency is ready.
type Check struct {
	Name  string
	Probe func(ctx context.Context) error
}

// ReadinessWaiter polls each check in turn until it passes or ctx is done.
type ReadinessWaiter struct {
	checks []Check
	every  time.Duration
}

func NewReadinessWaiter(every time.Duration, checks ...Check) *ReadinessWaiter {
	if every <= 0 {
		every = 2 * time.Second
	}
	return &ReadinessWaiter{checks: checks, every: every}
}

func (w *ReadinessWaiter) WaitForDependencies(ctx context.Context) error {
	for _, c := range w.checks {
		if err := w.waitFor(ctx, c); err != nil {
			return err
		}
	}
	return nil
}

func (w *ReadinessWaiter) waitFor(ctx context.Context, c Check) error {
	slog.Info("Waiting for dependency", "dependency", c.Name)
	// No overall timeout: slow dependencies in dev environments are waited out.
	ticker := time.NewTicker(w.every)
	defer ticker.Stop()

	for {
		err := c.Probe(ctx)
		if err == nil {
			slog.Info("Dependency is ready", "dependency", c.Name)
			return nil
		}
		slog.Warn("Dependency not ready yet", "dependency", c.Name, "error", err)

		select {
		case <-ctx.Done():
			return fmt.Errorf("waiting for %s: %w", c.Name, ctx.Err())
		case <-ticker.C:
		}
	}
}

func MongoCheck(client *mongo.Client) Check {
	return Check{
		Name: "mongodb",
		Probe: func(ctx context.Context) error {
			return client.Ping(ctx, readpref.Primary())
		},
	}
}

func KafkaCheck(brokers []string, topic string) Check {
	return Check{
		Name: "kafka",
		Probe: func(ctx context.Context) error {
			if len(brokers) == 0 {
				return fmt.Errorf("no brokers configured")
			}

			dialer := &kafka.Dialer{Timeout: 2 * time.Second}
			conn, err := dialer.DialContext(ctx, "tcp", brokers[0])
			if err != nil {
				return fmt.Errorf("failed to dial kafka: %w", err)
			}
			defer func() {
				_ = conn.Close()
			}()

			partitions, err := conn.ReadPartitions(topic)
			if err != nil {
				return fmt.Errorf("failed to read partitions for topic %s: %w", topic, err)
			}
			if len(partitions) == 0 {
				return fmt.Errorf("topic %s has no partitions", topic)
			}
			return nil
		},
	}
}
