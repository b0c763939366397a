// Package transport provides the HTTP client used to reach the streams API.
package transport

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/StreamCatalog/internal/infra/metrics"
	"github.com/sony/gobreaker"
)

// errCallerDone marks failures caused by the request's own context.
var errCallerDone = errors.New("request context done")

// BreakerDoer sends requests through a circuit breaker.
// Transport errors and 5xx responses count as failures, unless the request's own
// context ended first. A 5xx response is still returned to the caller so status
// handling stays with the query.
type BreakerDoer struct {
	client *http.Client
	cb     *gobreaker.CircuitBreaker
}

type Options struct {
	Name             string
	Timeout          time.Duration
	FailureThreshold uint32
	OpenTimeout      time.Duration
}

func DefaultOptions(name string) Options {
	return Options{
		Name:             name,
		Timeout:          10 * time.Second,
		FailureThreshold: 3,
		OpenTimeout:      30 * time.Second,
	}
}

func NewBreakerDoer(opts Options) *BreakerDoer {
	return NewBreakerDoerWithClient(&http.Client{Timeout: opts.Timeout}, opts)
}

func NewBreakerDoerWithClient(client *http.Client, opts Options) *BreakerDoer {
	threshold := opts.FailureThreshold
	if threshold == 0 {
		threshold = 3
	}

	cbSettings := gobreaker.Settings{
		Name:        opts.Name,
		MaxRequests: 1,
		Interval:    60 * time.Second,
		Timeout:     opts.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, errCallerDone)
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			slog.Warn("CircuitBreaker state changed", "name", name, "from", from, "to", to)
			metrics.BreakerState.WithLabelValues(name).Set(float64(to))
		},
	}

	return &BreakerDoer{
		client: client,
		cb:     gobreaker.NewCircuitBreaker(cbSettings),
	}
}

// Do implements query.Doer.
func (d *BreakerDoer) Do(req *http.Request) (*http.Response, error) {
	var resp *http.Response
	_, err := d.cb.Execute(func() (interface{}, error) {
		r, err := d.client.Do(req)
		if err != nil {
			if req.Context().Err() != nil {
				return nil, fmt.Errorf("%w: %w", errCallerDone, err)
			}
			return nil, err
		}
		resp = r
		if r.StatusCode >= 500 {
			return nil, fmt.Errorf("server error: status %d", r.StatusCode)
		}
		return nil, nil
	})

	// A 5xx is a breaker failure but still a response the caller should see.
	if resp != nil {
		return resp, nil
	}
	return nil, err
}

// State reports the breaker's current state.
func (d *BreakerDoer) State() gobreaker.State {
	return d.cb.State()
}
