package app

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/StreamCatalog/internal/domain"
	"github.com/StreamCatalog/internal/query"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testOptions() QueryOptions {
	return QueryOptions{
		StaleTime:      time.Minute,
		Retries:        2,
		RetryBaseDelay: time.Millisecond,
	}
}

// scripted returns a descriptor whose producer yields results[i] on the i-th call
// and repeats the last one afterwards.
func scripted(calls *atomic.Int32, results ...func() ([]string, error)) query.Descriptor[[]string] {
	return query.NewDescriptor(query.Key{"test"}, func(ctx context.Context) ([]string, error) {
		i := int(calls.Add(1)) - 1
		if i >= len(results) {
			i = len(results) - 1
		}
		return results[i]()
	})
}

func ok(v ...string) func() ([]string, error) {
	return func() ([]string, error) { return v, nil }
}

func fail(err error) func() ([]string, error) {
	return func() ([]string, error) { return nil, err }
}

func TestFetch_CachesFreshData(t *testing.T) {
	var calls atomic.Int32
	c := NewQueryClient(testOptions())
	d := scripted(&calls, ok("a", "b"))

	first, err := Fetch(context.Background(), c, d)
	require.NoError(t, err)
	second, err := Fetch(context.Background(), c, d)
	require.NoError(t, err)

	assert.Equal(t, []string{"a", "b"}, first)
	assert.Equal(t, first, second)
	assert.Equal(t, int32(1), calls.Load())

	st := State(c, d)
	assert.Equal(t, StatusSuccess, st.Status)
	assert.True(t, st.HasData)
}

func TestFetch_RefetchesStaleData(t *testing.T) {
	var calls atomic.Int32
	c := NewQueryClient(testOptions())
	now := time.Now()
	c.now = func() time.Time { return now }
	d := scripted(&calls, ok("old"), ok("new"))

	_, err := Fetch(context.Background(), c, d)
	require.NoError(t, err)

	now = now.Add(2 * time.Minute)
	v, err := Fetch(context.Background(), c, d)
	require.NoError(t, err)
	assert.Equal(t, []string{"new"}, v)
	assert.Equal(t, int32(2), calls.Load())
}

func TestFetch_SharesKeyAcrossDescriptors(t *testing.T) {
	var calls atomic.Int32
	c := NewQueryClient(testOptions())

	_, err := Fetch(context.Background(), c, scripted(&calls, ok("x")))
	require.NoError(t, err)
	v, err := Fetch(context.Background(), c, scripted(&calls, ok("y")))
	require.NoError(t, err)

	assert.Equal(t, []string{"x"}, v, "same key must hit the same cache entry")
	assert.Equal(t, int32(1), calls.Load())
}

func TestFetch_RetriesTransientErrors(t *testing.T) {
	var calls atomic.Int32
	c := NewQueryClient(testOptions())
	d := scripted(&calls,
		fail(&domain.TransportError{URL: "u", Err: errors.New("connection reset")}),
		fail(&domain.HTTPStatusError{URL: "u", StatusCode: 503}),
		ok("a"),
	)

	v, err := Fetch(context.Background(), c, d)
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, v)
	assert.Equal(t, int32(3), calls.Load())
}

func TestFetch_DoesNotRetryPermanentErrors(t *testing.T) {
	tests := map[string]error{
		"parse":     &domain.ParseError{Err: errors.New("invalid character")},
		"transform": &domain.TransformError{Index: 0, Err: domain.ErrInvalidRecord},
		"not found": &domain.HTTPStatusError{URL: "u", StatusCode: 404},
	}

	for name, permanent := range tests {
		t.Run(name, func(t *testing.T) {
			var calls atomic.Int32
			c := NewQueryClient(testOptions())

			_, err := Fetch(context.Background(), c, scripted(&calls, fail(permanent)))
			assert.ErrorIs(t, err, permanent)
			assert.Equal(t, int32(1), calls.Load())
		})
	}
}

func TestFetch_GivesUpAfterRetries(t *testing.T) {
	var calls atomic.Int32
	c := NewQueryClient(testOptions())
	netErr := &domain.TransportError{URL: "u", Err: errors.New("timeout")}
	d := scripted(&calls, fail(netErr))

	_, err := Fetch(context.Background(), c, d)
	assert.ErrorIs(t, err, netErr)
	assert.Equal(t, int32(3), calls.Load(), "one attempt plus two retries")

	st := State(c, d)
	assert.Equal(t, StatusError, st.Status)
	assert.False(t, st.HasData)
	assert.Equal(t, 3, st.FailureCount)
}

func TestFetch_KeepsDataWhenRefetchFails(t *testing.T) {
	var calls atomic.Int32
	opts := testOptions()
	opts.Retries = 0
	c := NewQueryClient(opts)
	d := scripted(&calls, ok("kept"), fail(&domain.ParseError{Err: errors.New("bad")}))

	_, err := Fetch(context.Background(), c, d)
	require.NoError(t, err)
	_, err = Refetch(context.Background(), c, d)
	require.Error(t, err)

	st := State(c, d)
	assert.Equal(t, StatusError, st.Status)
	assert.True(t, st.HasData)
	assert.Equal(t, []string{"kept"}, st.Data)

	// Errored entries are never served as fresh.
	_, err = Fetch(context.Background(), c, d)
	assert.Error(t, err)
	assert.Equal(t, int32(3), calls.Load())
}

func TestFetch_DeduplicatesConcurrentCalls(t *testing.T) {
	var calls atomic.Int32
	release := make(chan struct{})
	d := query.NewDescriptor(query.Key{"slow"}, func(ctx context.Context) (int, error) {
		calls.Add(1)
		<-release
		return 7, nil
	})
	c := NewQueryClient(testOptions())

	var wg sync.WaitGroup
	results := make([]int, 5)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			v, err := Fetch(context.Background(), c, d)
			assert.NoError(t, err)
			results[i] = v
		}(i)
	}

	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, []int{7, 7, 7, 7, 7}, results)
}

func TestFetch_CancelledCallerStopsWaiting(t *testing.T) {
	var calls atomic.Int32
	release := make(chan struct{})
	d := query.NewDescriptor(query.Key{"cancel"}, func(ctx context.Context) (int, error) {
		calls.Add(1)
		select {
		case <-release:
			return 3, nil
		case <-ctx.Done():
			return 0, &domain.TransportError{URL: "u", Err: ctx.Err()}
		}
	})
	c := NewQueryClient(testOptions())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Fetch(ctx, c, d)
	assert.ErrorIs(t, err, context.Canceled)
	assert.NotEqual(t, StatusError, State(c, d).Status)

	close(release)
	assert.Eventually(t, func() bool {
		return State(c, d).Status == StatusSuccess
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, 0, State(c, d).FailureCount)
}

func TestFetch_OneCallerCancelledOthersSucceed(t *testing.T) {
	var calls atomic.Int32
	started := make(chan struct{})
	release := make(chan struct{})
	d := query.NewDescriptor(query.Key{"streams"}, func(ctx context.Context) (int, error) {
		if calls.Add(1) == 1 {
			close(started)
		}
		select {
		case <-release:
			return 9, nil
		case <-ctx.Done():
			return 0, &domain.TransportError{URL: "u", Err: ctx.Err()}
		}
	})
	c := NewQueryClient(testOptions())

	ctxA, cancelA := context.WithCancel(context.Background())
	errA := make(chan error, 1)
	go func() {
		_, err := Refetch(ctxA, c, d)
		errA <- err
	}()
	<-started

	type result struct {
		v   int
		err error
	}
	resB := make(chan result, 1)
	go func() {
		v, err := Refetch(context.Background(), c, d)
		resB <- result{v, err}
	}()
	time.Sleep(20 * time.Millisecond)

	cancelA()
	assert.ErrorIs(t, <-errA, context.Canceled)

	close(release)
	b := <-resB
	require.NoError(t, b.err)
	assert.Equal(t, 9, b.v)
	assert.Equal(t, int32(1), calls.Load())

	st := State(c, d)
	assert.Equal(t, StatusSuccess, st.Status)
	assert.NoError(t, st.Err)
	assert.Equal(t, 0, st.FailureCount)
}

func TestInvalidate(t *testing.T) {
	var calls atomic.Int32
	c := NewQueryClient(testOptions())
	d := scripted(&calls, ok("1"), ok("2"))

	_, err := Fetch(context.Background(), c, d)
	require.NoError(t, err)
	c.Invalidate(query.Key{"test"})
	assert.Equal(t, StatusPending, State(c, d).Status)

	v, err := Fetch(context.Background(), c, d)
	require.NoError(t, err)
	assert.Equal(t, []string{"2"}, v)
}

func TestWatch_ReportsEachRefresh(t *testing.T) {
	var calls atomic.Int32
	opts := testOptions()
	opts.Retries = 0
	c := NewQueryClient(opts)
	d := scripted(&calls, ok("a"), fail(&domain.ParseError{Err: errors.New("bad")}), ok("b"))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var mu sync.Mutex
	var statuses []QueryStatus
	done := make(chan struct{})
	go func() {
		defer close(done)
		Watch(ctx, c, d, 10*time.Millisecond, func(st QueryState[[]string]) {
			mu.Lock()
			defer mu.Unlock()
			statuses = append(statuses, st.Status)
			if len(statuses) == 3 {
				cancel()
			}
		})
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("watch did not stop after cancel")
	}

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []QueryStatus{StatusSuccess, StatusError, StatusSuccess}, statuses[:3])
	assert.Equal(t, []string{"b"}, State(c, d).Data)
}
