package query

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/StreamCatalog/internal/domain"
)

// StreamsKey is the registry key for the collection of all streams.
var StreamsKey = Key{"streams"}

const streamsPath = "streams"

// Doer issues HTTP requests. *http.Client satisfies it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Config carries the values the streams query reads.
type Config struct {
	BaseURL string
}

// GetStreamsQuery returns the descriptor for GET {BaseURL}/streams.
func GetStreamsQuery(cfg Config, doer Doer, mapper domain.StreamMapper) Descriptor[[]domain.Stream] {
	return NewDescriptor(StreamsKey, func(ctx context.Context) ([]domain.Stream, error) {
		return fetchStreams(ctx, cfg.BaseURL, doer, mapper)
	})
}

// StreamsURL joins the base address and the streams path.
func StreamsURL(baseURL string) (string, error) {
	return url.JoinPath(baseURL, streamsPath)
}

func fetchStreams(ctx context.Context, baseURL string, doer Doer, mapper domain.StreamMapper) ([]domain.Stream, error) {
	target, err := StreamsURL(baseURL)
	if err != nil {
		return nil, &domain.TransportError{URL: baseURL, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, &domain.TransportError{URL: target, Err: err}
	}

	resp, err := doer.Do(req)
	if err != nil {
		return nil, &domain.TransportError{URL: target, Err: err}
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &domain.HTTPStatusError{URL: target, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &domain.TransportError{URL: target, Err: fmt.Errorf("failed to read body: %w", err)}
	}

	return decodeStreams(body, mapper)
}

func decodeStreams(body []byte, mapper domain.StreamMapper) ([]domain.Stream, error) {
	var doc json.RawMessage
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, &domain.ParseError{Err: err}
	}

	var records []domain.RawStreamRecord
	if err := json.Unmarshal(doc, &records); err != nil || records == nil {
		return nil, &domain.TransformError{Index: -1, Err: domain.ErrNotSequence}
	}

	streams := make([]domain.Stream, 0, len(records))
	for i, raw := range records {
		s, err := mapper.Map(raw)
		if err != nil {
			return nil, &domain.TransformError{Index: i, Err: err}
		}
		streams = append(streams, s)
	}
	return streams, nil
}
