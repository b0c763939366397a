package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/StreamCatalog/internal/domain"
	"github.com/StreamCatalog/internal/infra/metrics"
	"github.com/StreamCatalog/internal/query"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

// SnapshotService keeps the streams query warm and records every successful
// result: it persists the snapshot and publishes events for new or changed streams.
type SnapshotService struct {
	client        *QueryClient
	streams       query.Descriptor[[]domain.Stream]
	repo          domain.Repository
	eventProducer domain.EventProducer
	interval      time.Duration
	lastSaved     time.Time
	now           func() time.Time
}

func NewSnapshotService(
	client *QueryClient,
	streams query.Descriptor[[]domain.Stream],
	repo domain.Repository,
	eventProducer domain.EventProducer,
	interval time.Duration,
) *SnapshotService {
	return &SnapshotService{
		client:        client,
		streams:       streams,
		repo:          repo,
		eventProducer: eventProducer,
		interval:      interval,
		now:           time.Now,
	}
}

// Start blocks until ctx is cancelled.
func (s *SnapshotService) Start(ctx context.Context) {
	slog.Info("Starting stream snapshot service", "interval", s.interval)
	Watch(ctx, s.client, s.streams, s.interval, func(st QueryState[[]domain.Stream]) {
		s.onState(ctx, st)
	})
	slog.Info("Stream snapshot service stopped")
}

func (s *SnapshotService) onState(ctx context.Context, st QueryState[[]domain.Stream]) {
	if st.Status != StatusSuccess || !st.UpdatedAt.After(s.lastSaved) {
		return
	}
	if err := s.processSnapshot(ctx, st.Data); err != nil {
		slog.Error("Snapshot processing failed", "error", err)
		return
	}
	s.lastSaved = st.UpdatedAt
}

func (s *SnapshotService) processSnapshot(ctx context.Context, fetched []domain.Stream) error {
	tr := otel.Tracer("stream-catalog")
	ctx, span := tr.Start(ctx, "processSnapshot")
	defer span.End()
	span.SetAttributes(attribute.Int("streams.count", len(fetched)))

	start := time.Now()
	defer func() {
		metrics.SnapshotDuration.Observe(time.Since(start).Seconds())
	}()

	// Persistence needs unique IDs; the query result itself is left untouched.
	seen := make(map[string]bool, len(fetched))
	streams := make([]domain.Stream, 0, len(fetched))
	live := 0
	fetchedAt := s.now().UTC()
	for _, st := range fetched {
		if seen[st.ID] {
			continue
		}
		seen[st.ID] = true
		st.FetchedAt = fetchedAt
		st.ContentHash = st.ComputeHash()
		if st.Live {
			live++
		}
		streams = append(streams, st)
	}

	metrics.StreamsFetched.Set(float64(len(streams)))
	metrics.StreamsLive.Set(float64(live))

	if len(streams) == 0 {
		return nil
	}

	ids := make([]string, 0, len(streams))
	for _, st := range streams {
		ids = append(ids, st.ID)
	}

	existingHashes, err := s.repo.GetContentHashes(ctx, ids)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to fetch hashes: %w", err)
	}

	var events []domain.StreamEvent
	for _, st := range streams {
		oldHash, exists := existingHashes[st.ID]
		switch {
		case !exists:
			slog.Info("Stream New", "id", st.ID, "source", st.Source)
			events = append(events, domain.NewStreamEvent(domain.EventStreamCreated, st, fetchedAt))
		case oldHash != st.ContentHash:
			slog.Info("Stream Changed", "id", st.ID, "source", st.Source)
			events = append(events, domain.NewStreamEvent(domain.EventStreamUpdated, st, fetchedAt))
		}
	}

	if err := s.repo.BulkUpsert(ctx, streams); err != nil {
		span.RecordError(err)
		return fmt.Errorf("bulk upsert failed: %w", err)
	}

	if len(events) == 0 {
		return nil
	}

	for _, ev := range events {
		metrics.StreamsChanged.WithLabelValues(ev.Stream.Source, ev.Type).Inc()
	}

	slog.Info("Publishing stream events", "count", len(events))
	if err := s.eventProducer.PublishBatch(ctx, events); err != nil {
		// Hashes are already persisted, so these events are dropped.
		slog.Error("Error publishing stream events", "count", len(events), "error", err)
		metrics.PublishErrors.WithLabelValues("snapshot").Inc()
		return nil
	}
	metrics.EventsPublished.WithLabelValues("snapshot").Add(float64(len(events)))
	return nil
}
