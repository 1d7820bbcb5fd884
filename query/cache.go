// Package query caches upstream reads per browser. Keys are declarative
// (resource, scope, filters); concurrent reads of one key share a single
// fetch, and invalidation is sequenced by per-key generations so a fetch
// started before a mutation never repopulates the cache.
package query

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/sethvargo/go-retry"
	"golang.org/x/sync/singleflight"

	"github.com/jrsteele09/vistara-dashboard/apiclient"
)

const defaultFetchTimeout = 30 * time.Second

// Fetcher loads the value of a key from the backend.
type Fetcher[T any] func(ctx context.Context) (T, error)

// Result is what a query yields. A failed query carries the zero value.
type Result[T any] struct {
	Data      T
	Err       error
	IsLoading bool
	FetchedAt time.Time
}

// OK returns true if the query produced data.
func (r Result[T]) OK() bool {
	return r.Err == nil && !r.IsLoading
}

// Entry is a snapshot of a cache entry.
type Entry struct {
	Key        Key
	FetchedAt  time.Time
	StaleAfter time.Time
	IsFetching bool
}

type entry struct {
	key        Key
	data       any
	hasData    bool
	fetchedAt  time.Time
	staleAfter time.Time
	fetching   bool
}

// Option configures a Cache.
type Option func(*Cache)

// WithClock replaces time.Now for staleness decisions.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) {
		c.now = now
	}
}

// WithPolicy overrides the policy of one resource.
func WithPolicy(r Resource, p Policy) Option {
	return func(c *Cache) {
		c.policies[r] = p.normalised()
	}
}

// WithFetchTimeout bounds every shared fetch.
func WithFetchTimeout(d time.Duration) Option {
	return func(c *Cache) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithRetryable decides which errors are retried. Defaults to apiclient.IsTransient.
func WithRetryable(fn func(error) bool) Option {
	return func(c *Cache) {
		if fn != nil {
			c.retryable = fn
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) Option {
	return func(c *Cache) {
		c.logger = l
	}
}

// Cache is one browser's query cache. Entries are written only through
// fetch and invalidation.
type Cache struct {
	mu          sync.Mutex
	entries     map[string]*entry
	generations map[string]uint64
	group       singleflight.Group

	now       func() time.Time
	policies  map[Resource]Policy
	timeout   time.Duration
	retryable func(error) bool
	logger    zerolog.Logger
}

// New creates an empty cache.
func New(opts ...Option) *Cache {
	c := &Cache{
		entries:     map[string]*entry{},
		generations: map[string]uint64{},
		now:         time.Now,
		policies:    map[Resource]Policy{},
		timeout:     defaultFetchTimeout,
		retryable:   apiclient.IsTransient,
		logger:      zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Policy returns the effective policy of r.
func (c *Cache) Policy(r Resource) Policy {
	if p, ok := c.policies[r]; ok {
		return p
	}
	return PolicyFor(r).normalised()
}

// Get returns the cached value of key, fetching it when absent or stale.
func Get[T any](ctx context.Context, c *Cache, key Key, fetch Fetcher[T]) Result[T] {
	return get(ctx, c, key, fetch, false)
}

// Refetch fetches key even if the cached value is fresh.
func Refetch[T any](ctx context.Context, c *Cache, key Key, fetch Fetcher[T]) Result[T] {
	return get(ctx, c, key, fetch, true)
}

func get[T any](ctx context.Context, c *Cache, key Key, fetch Fetcher[T], force bool) Result[T] {
	id := key.String()
	if !force {
		if v, at, ok := c.fresh(id); ok {
			data, _ := v.(T)
			return Result[T]{Data: data, FetchedAt: at}
		}
	}

	v, at, err := c.load(ctx, key, id, force, func(ctx context.Context) (any, error) {
		return fetch(ctx)
	})
	if err != nil {
		return Result[T]{Err: err}
	}
	data, _ := v.(T)
	return Result[T]{Data: data, FetchedAt: at}
}

type flightResult struct {
	val any
	at  time.Time
}

func (c *Cache) fresh(id string) (any, time.Time, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.freshLocked(id)
}

func (c *Cache) freshLocked(id string) (any, time.Time, bool) {
	e, ok := c.entries[id]
	if !ok || !e.hasData || !c.now().Before(e.staleAfter) {
		return nil, time.Time{}, false
	}
	return e.data, e.fetchedAt, true
}

// settle returns the fresh value of id and marks its entry idle.
func (c *Cache) settle(id string) (any, time.Time, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, at, ok := c.freshLocked(id)
	if ok {
		c.entries[id].fetching = false
	}
	return v, at, ok
}

func (c *Cache) load(ctx context.Context, key Key, id string, force bool, fetch func(context.Context) (any, error)) (any, time.Time, error) {
	c.mu.Lock()
	gen := c.generations[id]
	e, ok := c.entries[id]
	if !ok {
		e = &entry{key: key}
		c.entries[id] = e
	}
	e.fetching = true
	c.mu.Unlock()

	policy := c.Policy(key.Resource)
	flightKey := id + "#" + strconv.FormatUint(gen, 10)
	if force {
		flightKey += "#force"
	}

	ch := c.group.DoChan(flightKey, func() (any, error) {
		if !force {
			// A flight that finished just before this one may have filled the entry.
			if v, at, ok := c.settle(id); ok {
				return flightResult{val: v, at: at}, nil
			}
		}

		fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.timeout)
		defer cancel()

		v, err := c.fetchWithRetry(fctx, policy, fetch)
		at := c.store(id, gen, policy, v, err)
		if err != nil {
			c.logger.Debug().Err(err).Str("key", id).Msg("query failed")
			return nil, err
		}
		return flightResult{val: v, at: at}, nil
	})

	select {
	case <-ctx.Done():
		return nil, time.Time{}, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, time.Time{}, res.Err
		}
		fr := res.Val.(flightResult)
		return fr.val, fr.at, nil
	}
}

func (c *Cache) fetchWithRetry(ctx context.Context, p Policy, fetch func(context.Context) (any, error)) (any, error) {
	var out any
	backoff := retry.WithMaxRetries(uint64(p.RetryCount), retry.NewConstant(p.RetryDelay))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		v, err := fetch(ctx)
		if err != nil {
			if c.retryable(err) {
				return retry.RetryableError(err)
			}
			return err
		}
		out = v
		return nil
	})
	return out, err
}

// store commits a fetch unless the key was invalidated while it ran.
func (c *Cache) store(id string, gen uint64, p Policy, v any, err error) time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if c.generations[id] != gen {
		return now
	}
	e, ok := c.entries[id]
	if !ok {
		return now
	}
	if err != nil {
		delete(c.entries, id)
		return now
	}
	c.entries[id] = &entry{
		key:        e.key,
		data:       v,
		hasData:    true,
		fetchedAt:  now,
		staleAfter: now.Add(p.RefetchInterval),
	}
	return now
}

// Invalidate drops every key covered by targets and their related targets.
// In-flight fetches of those keys are discarded when they finish.
func (c *Cache) Invalidate(targets ...Target) {
	var all []Target
	for _, t := range targets {
		all = append(all, Expand(t)...)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	dropped := 0
	for id, e := range c.entries {
		for _, t := range all {
			if t.Covers(e.key) {
				delete(c.entries, id)
				c.generations[id]++
				dropped++
				break
			}
		}
	}
	c.logger.Debug().Int("dropped", dropped).Int("targets", len(all)).Msg("cache invalidated")
}

// Clear drops every entry.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for id := range c.entries {
		c.generations[id]++
	}
	c.entries = map[string]*entry{}
}

// Lookup returns a snapshot of the entry for key.
func (c *Cache) Lookup(key Key) (Entry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key.String()]
	if !ok {
		return Entry{}, false
	}
	return Entry{Key: e.key, FetchedAt: e.fetchedAt, StaleAfter: e.staleAfter, IsFetching: e.fetching}, true
}

// Peek returns the cached value of key without fetching. IsLoading is set
// while a fetch for a key without data is in flight.
func Peek[T any](c *Cache, key Key) Result[T] {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key.String()]
	if !ok {
		return Result[T]{}
	}
	if !e.hasData {
		return Result[T]{IsLoading: e.fetching}
	}
	data, _ := e.data.(T)
	return Result[T]{Data: data, FetchedAt: e.fetchedAt, IsLoading: false}
}

// Len returns the number of entries, including ones being fetched.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Mutate runs a mutation and, on success, invalidates targets before returning.
func Mutate[T any](ctx context.Context, c *Cache, mutate func(ctx context.Context) (T, error), targets ...Target) (T, error) {
	v, err := mutate(ctx)
	if err != nil {
		return v, err
	}
	c.Invalidate(targets...)
	return v, nil
}

// Watch fetches key immediately and then on every refetch interval, passing
// each result to fn. It returns once ctx ends; fn is never called after that.
func Watch[T any](ctx context.Context, c *Cache, key Key, fetch Fetcher[T], fn func(Result[T])) error {
	res := Get(ctx, c, key, fetch)
	if ctx.Err() != nil {
		return ctx.Err()
	}
	fn(res)

	ticker := time.NewTicker(c.Policy(key.Resource).RefetchInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			res := Refetch(ctx, c, key, fetch)
			if ctx.Err() != nil {
				return ctx.Err()
			}
			fn(res)
		}
	}
}
