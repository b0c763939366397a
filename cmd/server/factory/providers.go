package factory

import (
	"fmt"
	"log/slog"

	"github.com/StreamCatalog/internal/app"
	"github.com/StreamCatalog/internal/domain"
	"github.com/StreamCatalog/internal/infra/transformer"
	"github.com/StreamCatalog/internal/infra/transport"
	"github.com/StreamCatalog/internal/query"
	"github.com/StreamCatalog/pkg/config"
)

// NewHTTPDoer creates the circuit-breaking HTTP client for the streams API.
func NewHTTPDoer(cfg *config.Config) *transport.BreakerDoer {
	opts := transport.DefaultOptions("streams-api")
	if cfg.HTTPTimeout > 0 {
		opts.Timeout = cfg.HTTPTimeout
	}
	return transport.NewBreakerDoer(opts)
}

// NewStreamMapper resolves the configured stream mapper.
func NewStreamMapper(cfg *config.Config) (domain.StreamMapper, error) {
	m, err := transformer.GetMapper(cfg.StreamMapper)
	if err != nil {
		return nil, err
	}
	slog.Info("Registered stream mapper", "mapper", cfg.StreamMapper)
	return m, nil
}

// NewStreamsQuery builds the streams query descriptor after validating the base address.
func NewStreamsQuery(cfg *config.Config, doer *transport.BreakerDoer, mapper domain.StreamMapper) (query.Descriptor[[]domain.Stream], error) {
	target, err := query.StreamsURL(cfg.APIBaseURL)
	if err != nil {
		return query.Descriptor[[]domain.Stream]{}, fmt.Errorf("invalid API base URL %q: %w", cfg.APIBaseURL, err)
	}
	slog.Info("Streams query configured", "url", target)
	return query.GetStreamsQuery(query.Config{BaseURL: cfg.APIBaseURL}, doer, mapper), nil
}

// NewQueryClient creates the query runtime with validated options.
func NewQueryClient(cfg *config.Config) (*app.QueryClient, error) {
	if cfg.QueryRetries < 0 || cfg.QueryRetries > 10 {
		return nil, fmt.Errorf("invalid query retries: %d (must be 0-10)", cfg.QueryRetries)
	}
	if cfg.StaleTime < 0 {
		return nil, fmt.Errorf("invalid stale time: %s", cfg.StaleTime)
	}
	opts := app.DefaultQueryOptions()
	opts.StaleTime = cfg.StaleTime
	opts.Retries = uint64(cfg.QueryRetries)
	return app.NewQueryClient(opts), nil
}
