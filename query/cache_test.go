package query_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jrsteele09/vistara-dashboard/apiclient"
	apperrors "github.com/jrsteele09/vistara-dashboard/internal/errors"
	"github.com/jrsteele09/vistara-dashboard/metrics"
	"github.com/jrsteele09/vistara-dashboard/query"
	"github.com/jrsteele09/vistara-dashboard/workflows"
)

var fastRetry = query.Policy{RefetchInterval: time.Minute, RetryCount: 1, RetryDelay: time.Millisecond}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// blockingFetch counts calls and blocks each one until release is closed.
type blockingFetch struct {
	calls   atomic.Int32
	started chan struct{}
	release chan struct{}
	value   atomic.Value
}

func newBlockingFetch(value string) *blockingFetch {
	f := &blockingFetch{started: make(chan struct{}, 16), release: make(chan struct{})}
	f.value.Store(value)
	return f
}

func (f *blockingFetch) fetch(ctx context.Context) (string, error) {
	f.calls.Add(1)
	f.started <- struct{}{}
	<-f.release
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return f.value.Load().(string), nil
}

func TestGetCachesUntilStale(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	c := query.New(query.WithClock(clock.Now), query.WithPolicy(query.ResourceClients, fastRetry))
	key := query.Keys.Clients.List()

	var calls atomic.Int32
	fetch := func(context.Context) ([]string, error) {
		calls.Add(1)
		return []string{"acme"}, nil
	}

	res := query.Get(context.Background(), c, key, fetch)
	require.NoError(t, res.Err)
	require.Equal(t, []string{"acme"}, res.Data)
	require.False(t, res.IsLoading)

	query.Get(context.Background(), c, key, fetch)
	require.Equal(t, int32(1), calls.Load())

	clock.Advance(2 * time.Minute)
	query.Get(context.Background(), c, key, fetch)
	require.Equal(t, int32(2), calls.Load())

	entry, ok := c.Lookup(key)
	require.True(t, ok)
	require.False(t, entry.IsFetching)
	require.Equal(t, clock.Now().Add(time.Minute), entry.StaleAfter)
}

func TestConcurrentReadsShareOneFetch(t *testing.T) {
	c := query.New()
	key := query.Keys.Workflows.List("c1", workflows.Filter{})
	f := newBlockingFetch("rows")

	const readers = 8
	results := make(chan query.Result[string], readers)
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		results <- query.Get(context.Background(), c, key, f.fetch)
	}()
	<-f.started

	for range readers - 1 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- query.Get(context.Background(), c, key, f.fetch)
		}()
	}
	require.True(t, query.Peek[string](c, key).IsLoading)
	close(f.release)
	wg.Wait()
	close(results)

	for res := range results {
		require.NoError(t, res.Err)
		require.Equal(t, "rows", res.Data)
	}
	require.Equal(t, int32(1), f.calls.Load())
}

func TestInvalidationDiscardsInFlightFetch(t *testing.T) {
	c := query.New()
	key := query.Keys.Workflows.Detail("c1", "w1")
	f := newBlockingFetch("before")

	done := make(chan query.Result[string], 1)
	go func() {
		done <- query.Get(context.Background(), c, key, f.fetch)
	}()
	<-f.started

	c.Invalidate(query.Keys.Workflows.Client("c1"))
	close(f.release)
	require.Equal(t, "before", (<-done).Data)

	_, ok := c.Lookup(key)
	require.False(t, ok, "a fetch started before invalidation must not repopulate the entry")

	f.value.Store("after")
	f.started = make(chan struct{}, 16)
	res := query.Get(context.Background(), c, key, f.fetch)
	require.NoError(t, res.Err)
	require.Equal(t, "after", res.Data)
	require.Equal(t, int32(2), f.calls.Load())
}

func TestInvalidateScopes(t *testing.T) {
	c := query.New()
	ctx := context.Background()
	load := func(k query.Key) {
		query.Get(ctx, c, k, func(context.Context) (string, error) { return k.String(), nil })
	}

	list1 := query.Keys.Workflows.List("c1", workflows.Filter{})
	detail1 := query.Keys.Workflows.Detail("c1", "w1")
	list2 := query.Keys.Workflows.List("c2", workflows.Filter{})
	metrics1 := query.Keys.Metrics.Overview("c1", "7d")
	metrics2 := query.Keys.Metrics.Overview("c2", "7d")
	guides := query.Keys.Guides.List()
	for _, k := range []query.Key{list1, detail1, list2, metrics1, metrics2, guides} {
		load(k)
	}

	c.Invalidate(query.Keys.Workflows.Client("c1"))

	for _, k := range []query.Key{list1, detail1, metrics1} {
		_, ok := c.Lookup(k)
		require.False(t, ok, k.String())
	}
	for _, k := range []query.Key{list2, metrics2, guides} {
		_, ok := c.Lookup(k)
		require.True(t, ok, k.String())
	}
}

func TestMutateInvalidatesBeforeReturning(t *testing.T) {
	c := query.New()
	ctx := context.Background()
	key := query.Keys.Clients.List()
	query.Get(ctx, c, key, func(context.Context) (int, error) { return 1, nil })

	out, err := query.Mutate(ctx, c, func(context.Context) (string, error) { return "created", nil }, query.Keys.Clients.All())
	require.NoError(t, err)
	require.Equal(t, "created", out)
	_, ok := c.Lookup(key)
	require.False(t, ok)

	t.Run("failed mutation keeps the cache", func(t *testing.T) {
		query.Get(ctx, c, key, func(context.Context) (int, error) { return 1, nil })
		_, err := query.Mutate(ctx, c, func(context.Context) (string, error) { return "", apperrors.ErrConflict }, query.Keys.Clients.All())
		require.ErrorIs(t, err, apperrors.ErrConflict)
		_, ok := c.Lookup(key)
		require.True(t, ok)
	})
}

func TestRetryPolicy(t *testing.T) {
	ctx := context.Background()

	t.Run("transient errors are retried once", func(t *testing.T) {
		c := query.New(query.WithPolicy(query.ResourceGuides, fastRetry))
		var calls atomic.Int32
		res := query.Get(ctx, c, query.Keys.Guides.List(), func(context.Context) (string, error) {
			if calls.Add(1) == 1 {
				return "", &apiclient.APIError{Kind: apiclient.KindTransport, StatusCode: 503}
			}
			return "ok", nil
		})
		require.NoError(t, res.Err)
		require.Equal(t, "ok", res.Data)
		require.Equal(t, int32(2), calls.Load())
	})

	t.Run("retries are bounded", func(t *testing.T) {
		c := query.New(query.WithPolicy(query.ResourceGuides, fastRetry))
		var calls atomic.Int32
		res := query.Get(ctx, c, query.Keys.Guides.List(), func(context.Context) (string, error) {
			calls.Add(1)
			return "", &apiclient.APIError{Kind: apiclient.KindTransport}
		})
		require.ErrorIs(t, res.Err, apperrors.ErrTransport)
		require.Equal(t, "", res.Data)
		require.False(t, res.IsLoading)
		require.Equal(t, int32(2), calls.Load())

		_, ok := c.Lookup(query.Keys.Guides.List())
		require.False(t, ok, "failures are not cached")
	})

	t.Run("unauthorized is never retried", func(t *testing.T) {
		c := query.New(query.WithPolicy(query.ResourceGuides, fastRetry))
		var calls atomic.Int32
		res := query.Get(ctx, c, query.Keys.Guides.List(), func(context.Context) (string, error) {
			calls.Add(1)
			return "", &apiclient.APIError{Kind: apiclient.KindUnauthorized, StatusCode: 401}
		})
		require.ErrorIs(t, res.Err, apperrors.ErrUnauthorized)
		require.Equal(t, int32(1), calls.Load())
	})

	t.Run("envelope errors are never retried", func(t *testing.T) {
		c := query.New(query.WithPolicy(query.ResourceGuides, fastRetry))
		var calls atomic.Int32
		query.Get(ctx, c, query.Keys.Guides.List(), func(context.Context) (string, error) {
			calls.Add(1)
			return "", &apiclient.APIError{Kind: apiclient.KindEnvelope, StatusCode: 200}
		})
		require.Equal(t, int32(1), calls.Load())
	})
}

func TestCancelledCallerIsDiscarded(t *testing.T) {
	c := query.New()
	key := query.Keys.Executions.List("c1", metrics.ExecutionFilter{})
	f := newBlockingFetch("runs")

	ctx, cancel := context.WithCancel(context.Background())
	first := make(chan query.Result[string], 1)
	go func() {
		first <- query.Get(ctx, c, key, f.fetch)
	}()
	<-f.started

	second := make(chan query.Result[string], 1)
	go func() {
		second <- query.Get(context.Background(), c, key, f.fetch)
	}()

	cancel()
	res := <-first
	require.True(t, errors.Is(res.Err, context.Canceled))

	close(f.release)
	res = <-second
	require.NoError(t, res.Err)
	require.Equal(t, "runs", res.Data)
}

func TestClear(t *testing.T) {
	c := query.New()
	ctx := context.Background()
	query.Get(ctx, c, query.Keys.Guides.List(), func(context.Context) (int, error) { return 1, nil })
	query.Get(ctx, c, query.Keys.Me.Current(), func(context.Context) (int, error) { return 2, nil })
	require.Equal(t, 2, c.Len())

	c.Clear()
	require.Zero(t, c.Len())
}

func TestWatchStopsWithContext(t *testing.T) {
	c := query.New(query.WithPolicy(query.ResourceExecutions, query.Policy{RefetchInterval: 5 * time.Millisecond, RetryDelay: time.Millisecond}))
	key := query.Keys.Executions.List("c1", metrics.ExecutionFilter{})

	var fetches atomic.Int32
	ctx, cancel := context.WithCancel(context.Background())
	var seen atomic.Int32
	errCh := make(chan error, 1)
	go func() {
		errCh <- query.Watch(ctx, c, key, func(context.Context) (int32, error) {
			return fetches.Add(1), nil
		}, func(res query.Result[int32]) {
			if seen.Add(1) == 3 {
				cancel()
			}
		})
	}()

	require.ErrorIs(t, <-errCh, context.Canceled)
	require.GreaterOrEqual(t, fetches.Load(), int32(3))
	require.Equal(t, int32(3), seen.Load())
}
