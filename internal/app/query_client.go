package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/StreamCatalog/internal/domain"
	"github.com/StreamCatalog/internal/infra/metrics"
	"github.com/StreamCatalog/internal/query"
	"github.com/StreamCatalog/pkg/logging"
	"github.com/cenkalti/backoff/v4"
	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/singleflight"
)

type QueryStatus string

const (
	StatusPending QueryStatus = "pending"
	StatusError   QueryStatus = "error"
	StatusSuccess QueryStatus = "success"
)

// QueryState is the observable state of one query key.
// Data survives a failed refetch, so Status can be StatusError while HasData is true.
type QueryState[T any] struct {
	Status         QueryStatus
	Data           T
	HasData        bool
	Err            error
	UpdatedAt      time.Time
	ErrorUpdatedAt time.Time
	FailureCount   int
}

type QueryOptions struct {
	StaleTime      time.Duration
	Retries        uint64
	RetryBaseDelay time.Duration
}

func DefaultQueryOptions() QueryOptions {
	return QueryOptions{
		StaleTime:      30 * time.Second,
		Retries:        3,
		RetryBaseDelay: 500 * time.Millisecond,
	}
}

type cacheEntry struct {
	data           any
	hasData        bool
	err            error
	updatedAt      time.Time
	errorUpdatedAt time.Time
	failureCount   int
}

// QueryClient runs query descriptors and caches their results by key.
// Concurrent fetches of the same key share a single producer run.
type QueryClient struct {
	opts    QueryOptions
	mu      sync.RWMutex
	entries map[string]*cacheEntry
	group   singleflight.Group
	now     func() time.Time
}

func NewQueryClient(opts QueryOptions) *QueryClient {
	if opts.RetryBaseDelay <= 0 {
		opts.RetryBaseDelay = DefaultQueryOptions().RetryBaseDelay
	}
	return &QueryClient{
		opts:    opts,
		entries: make(map[string]*cacheEntry),
		now:     time.Now,
	}
}

// Fetch returns cached data younger than StaleTime, otherwise runs the descriptor.
func Fetch[T any](ctx context.Context, c *QueryClient, d query.Descriptor[T]) (T, error) {
	key := d.Key().String()
	if v, ok := c.fresh(key); ok {
		metrics.QueryCacheHits.WithLabelValues(key).Inc()
		return v.(T), nil
	}
	return Refetch(ctx, c, d)
}

// Refetch runs the descriptor regardless of cache freshness.
func Refetch[T any](ctx context.Context, c *QueryClient, d query.Descriptor[T]) (T, error) {
	var zero T
	key := d.Key().String()

	// The shared run is not tied to any one caller; a caller that goes away only stops waiting.
	shared := context.WithoutCancel(ctx)
	ch := c.group.DoChan(key, func() (interface{}, error) {
		return c.execute(shared, key, func(ctx context.Context) (any, error) {
			return d.Run(ctx)
		})
	})

	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return zero, res.Err
		}
		return res.Val.(T), nil
	}
}

// State returns the last known state for the descriptor's key.
func State[T any](c *QueryClient, d query.Descriptor[T]) QueryState[T] {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.entries[d.Key().String()]
	if !ok {
		return QueryState[T]{Status: StatusPending}
	}

	st := QueryState[T]{
		HasData:        e.hasData,
		Err:            e.err,
		UpdatedAt:      e.updatedAt,
		ErrorUpdatedAt: e.errorUpdatedAt,
		FailureCount:   e.failureCount,
	}
	if e.hasData {
		st.Data = e.data.(T)
	}
	switch {
	case e.err != nil:
		st.Status = StatusError
	case e.hasData:
		st.Status = StatusSuccess
	default:
		st.Status = StatusPending
	}
	return st
}

// Watch fetches immediately and then every interval until ctx is done,
// handing the resulting state to fn after each attempt.
func Watch[T any](ctx context.Context, c *QueryClient, d query.Descriptor[T], interval time.Duration, fn func(QueryState[T])) {
	key := d.Key().String()
	sampler := logging.NewErrorSampler(10)

	refresh := func() {
		if _, err := Refetch(ctx, c, d); err != nil {
			if ctx.Err() != nil {
				return
			}
			if ok, n := sampler.ShouldLog(key); ok {
				slog.Error("Query fetch failed", "key", key, "occurrences", n, "error", err)
			}
		} else if n := sampler.Reset(key); n > 0 {
			slog.Info("Query recovered", "key", key, "failed_attempts", n)
		}
		fn(State(c, d))
	}

	refresh()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			refresh()
		}
	}
}

// Invalidate drops the cached entry so the next Fetch runs the producer.
func (c *QueryClient) Invalidate(key query.Key) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key.String())
}

func (c *QueryClient) fresh(key string) (any, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.entries[key]
	if !ok || !e.hasData || e.err != nil {
		return nil, false
	}
	if c.now().Sub(e.updatedAt) >= c.opts.StaleTime {
		return nil, false
	}
	return e.data, true
}

func (c *QueryClient) execute(ctx context.Context, key string, run func(context.Context) (any, error)) (any, error) {
	tr := otel.Tracer("stream-catalog")
	ctx, span := tr.Start(ctx, "query.fetch")
	defer span.End()
	span.SetAttributes(attribute.String("query.key", key))

	start := time.Now()
	attempts := 0
	var result any

	op := func() error {
		attempts++
		v, err := run(ctx)
		if err != nil {
			metrics.QueryFetches.WithLabelValues(key, "error").Inc()
			if ctx.Err() != nil || !retryable(err) {
				return backoff.Permanent(err)
			}
			slog.Debug("Query attempt failed", "key", key, "attempt", attempts, "error", err)
			return err
		}
		metrics.QueryFetches.WithLabelValues(key, "success").Inc()
		result = v
		return nil
	}

	err := backoff.Retry(op, c.newBackOff(ctx))
	metrics.QueryFetchDuration.WithLabelValues(key).Observe(time.Since(start).Seconds())
	span.SetAttributes(attribute.Int("query.attempts", attempts))

	if err != nil && ctx.Err() != nil {
		span.RecordError(err)
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		e = &cacheEntry{}
		c.entries[key] = e
	}

	if err != nil {
		span.RecordError(err)
		e.err = err
		e.errorUpdatedAt = c.now()
		e.failureCount += attempts
		return nil, fmt.Errorf("query %s failed after %d attempt(s): %w", key, attempts, err)
	}

	e.data = result
	e.hasData = true
	e.err = nil
	e.updatedAt = c.now()
	e.failureCount = 0
	return result, nil
}

func (c *QueryClient) newBackOff(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.opts.RetryBaseDelay
	b.MaxElapsedTime = 0
	return backoff.WithContext(backoff.WithMaxRetries(b, c.opts.Retries), ctx)
}

// retryable reports whether another attempt could yield a different result.
func retryable(err error) bool {
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return false
	}

	var statusErr *domain.HTTPStatusError
	if errors.As(err, &statusErr) {
		return statusErr.Temporary()
	}
	var parseErr *domain.ParseError
	var transformErr *domain.TransformError
	if errors.As(err, &parseErr) || errors.As(err, &transformErr) {
		return false
	}
	return true
}
