package gateway

import (
	"context"
	"log/slog"

	"github.com/StreamCatalog/internal/domain"
)

// LogNotifier stands in for a push/webhook gateway by logging each event.
type LogNotifier struct {
	logger *slog.Logger
}

func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Notify(ctx context.Context, event *domain.StreamEvent) error {
	n.logger.InfoContext(ctx, "Stream notification",
		"type", event.Type,
		"stream_id", event.StreamID,
		"title", event.Stream.Title,
		"channel", event.Stream.Channel,
		"live", event.Stream.Live,
	)
	return nil
}
