// Command fetch-streams runs the streams query once and prints the result as JSON.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"log/slog"
	"os"
	"os/signal"

	"github.com/StreamCatalog/internal/infra/transformer"
	"github.com/StreamCatalog/internal/infra/transport"
	"github.com/StreamCatalog/internal/query"
	"github.com/StreamCatalog/pkg/config"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	cfg := config.Load()
	baseURL := flag.String("base-url", cfg.APIBaseURL, "streams API base address")
	mapperName := flag.String("mapper", cfg.StreamMapper, "stream mapper: catalog or twitch")
	flag.Parse()

	mapper, err := transformer.GetMapper(*mapperName)
	if err != nil {
		slog.Error("Invalid mapper", "error", err)
		os.Exit(2)
	}

	opts := transport.DefaultOptions("streams-api")
	opts.Timeout = cfg.HTTPTimeout
	q := query.GetStreamsQuery(query.Config{BaseURL: *baseURL}, transport.NewBreakerDoer(opts), mapper)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	streams, err := q.Run(ctx)
	if err != nil {
		slog.Error("Streams query failed", "key", q.Key().String(), "error", err)
		os.Exit(1)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(streams); err != nil {
		slog.Error("Failed to encode streams", "error", err)
		os.Exit(1)
	}
}
