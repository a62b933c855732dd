// Package query is the request execution engine shared by every read and
// write the back-office client issues. It owns the query and mutation caches,
// applies the read retry policy, and lets observers watch settled outcomes.
package query

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/colonyops/backoffice/internal/core/logging"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

const (
	// DefaultRetry is the number of additional attempts after a failed read.
	DefaultRetry = 3

	baseRetryDelay = time.Second
	maxRetryDelay  = 30 * time.Second
)

// Options configures a Client.
type Options struct {
	// Retry is the number of additional attempts after an initial read
	// failure. Negative values are treated as zero.
	Retry int
	// RetryDelay returns the wait before retry n (0-based). Nil means retry
	// immediately.
	RetryDelay func(attempt int) time.Duration
	// StaleTime is how long a successful read is served from cache. Zero
	// always fetches.
	StaleTime time.Duration
}

// DefaultOptions returns the options used by the back-office client.
func DefaultOptions() Options {
	return Options{
		Retry:      DefaultRetry,
		RetryDelay: ExponentialDelay(baseRetryDelay, maxRetryDelay),
	}
}

// ExponentialDelay doubles base on every attempt, capped at limit.
func ExponentialDelay(base, limit time.Duration) func(int) time.Duration {
	return func(attempt int) time.Duration {
		d := base
		for i := 0; i < attempt && d < limit; i++ {
			d *= 2
		}
		return min(d, limit)
	}
}

// Client executes reads and writes and records their outcomes. One Client is
// created at startup and passed to whatever needs it.
type Client struct {
	opts      Options
	queries   *QueryCache
	mutations *MutationCache
	group     singleflight.Group
	logger    zerolog.Logger
	now       func() time.Time

	flightMu  sync.Mutex
	flights   map[string]*flight
	flightSeq uint64
}

// flight is the shared execution of one key. Its context carries the first
// caller's values but is only canceled once every waiting caller has left.
type flight struct {
	id      string
	ctx     context.Context
	cancel  context.CancelFunc
	waiters int
}

// NewClient creates a client with empty caches.
func NewClient(opts Options, logger zerolog.Logger) *Client {
	if opts.Retry < 0 {
		opts.Retry = 0
	}
	return &Client{
		opts:      opts,
		queries:   newQueryCache(logger),
		mutations: newMutationCache(logger),
		logger:    logger,
		now:       time.Now,
		flights:   make(map[string]*flight),
	}
}

// Options returns the client's configured options.
func (c *Client) Options() Options { return c.opts }

// QueryCache returns the read outcome cache.
func (c *Client) QueryCache() *QueryCache { return c.queries }

// MutationCache returns the write outcome cache.
func (c *Client) MutationCache() *MutationCache { return c.mutations }

// QueryFunc fetches the data for a read.
type QueryFunc[T any] func(ctx context.Context) (T, error)

type queryConfig struct {
	retry     int
	staleTime time.Duration
}

// QueryOption overrides client options for a single read.
type QueryOption func(*queryConfig)

// WithRetry overrides the retry count for one read.
func WithRetry(n int) QueryOption {
	return func(c *queryConfig) {
		c.retry = max(n, 0)
	}
}

// WithStaleTime overrides the stale time for one read.
func WithStaleTime(d time.Duration) QueryOption {
	return func(c *queryConfig) {
		c.staleTime = d
	}
}

// Query runs a read. Concurrent reads with the same key share one execution,
// which keeps running while at least one caller is still waiting for it.
// Failures are retried sequentially before the final outcome is cached,
// emitted to observers, and returned unchanged.
func Query[T any](ctx context.Context, c *Client, key Key, fn QueryFunc[T], opts ...QueryOption) (T, error) {
	cfg := queryConfig{retry: c.opts.Retry, staleTime: c.opts.StaleTime}
	for _, opt := range opts {
		opt(&cfg)
	}

	var zero T

	if cfg.staleTime > 0 {
		if s, ok := c.queries.fresh(key, cfg.staleTime, c.now()); ok {
			if v, ok := s.Data.(T); ok {
				return v, nil
			}
		}
	}

	k := key.String()
	f := c.join(ctx, k)
	defer c.leave(k, f)

	ch := c.group.DoChan(f.id, func() (any, error) {
		return c.execute(f.ctx, key, cfg.retry, func(ctx context.Context) (any, error) {
			return fn(ctx)
		})
	})

	var v any
	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return zero, res.Err
		}
		v = res.Val
	}

	out, ok := v.(T)
	if !ok && v != nil {
		return zero, fmt.Errorf("query %s: cached %T is not %T", key, v, zero)
	}
	return out, nil
}

// join registers the caller as a waiter on the in-flight execution for key,
// starting a new flight if none is running.
func (c *Client) join(ctx context.Context, key string) *flight {
	c.flightMu.Lock()
	defer c.flightMu.Unlock()

	f, ok := c.flights[key]
	if !ok {
		c.flightSeq++
		fctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
		f = &flight{
			id:     key + "#" + strconv.FormatUint(c.flightSeq, 10),
			ctx:    fctx,
			cancel: cancel,
		}
		c.flights[key] = f
	}
	f.waiters++
	return f
}

// leave drops a waiter. The last one out cancels the flight, which turns an
// execution still running into an abandoned one.
func (c *Client) leave(key string, f *flight) {
	c.flightMu.Lock()
	defer c.flightMu.Unlock()

	f.waiters--
	if f.waiters > 0 {
		return
	}
	f.cancel()
	if c.flights[key] == f {
		delete(c.flights, key)
	}
}

// GetQueryData returns the last successful data recorded for key.
func GetQueryData[T any](c *Client, key Key) (T, bool) {
	var zero T
	s, ok := c.queries.Get(key)
	if !ok || s.Status != StatusSuccess {
		return zero, false
	}
	v, ok := s.Data.(T)
	return v, ok
}

func (c *Client) execute(ctx context.Context, key Key, retry int, fn func(context.Context) (any, error)) (any, error) {
	ctx = logging.WithQueryKey(ctx, key.String())
	logger := c.logger.With().Str("query_key", key.String()).Logger()

	var (
		data     any
		err      error
		attempts int
	)

	for {
		attempts++
		data, err = fn(ctx)
		if err == nil || attempts > retry {
			break
		}

		delay := c.retryDelay(attempts - 1)
		logger.Debug().Err(err).Int("attempt", attempts).Dur("delay", delay).Msg("query failed, retrying")

		if werr := wait(ctx, delay); werr != nil {
			err = werr
			break
		}
	}

	if abandoned(ctx, err) {
		logger.Debug().Err(err).Int("attempts", attempts).Msg("query abandoned")
		return nil, err
	}

	state := QueryState{
		Key:       key,
		Data:      data,
		Err:       err,
		Status:    StatusSuccess,
		Attempts:  attempts,
		UpdatedAt: c.now(),
	}
	if err != nil {
		state.Status = StatusError
		if prev, ok := c.queries.Get(key); ok && prev.Status == StatusSuccess {
			// keep showing the last good data alongside the failure
			state.Data = prev.Data
		}
		logger.Warn().Err(err).Int("attempts", attempts).Msg("query failed")
	}
	c.queries.Set(state)

	c.queries.observers.emit("query.settled", QueryEvent{
		Key:      key,
		Data:     data,
		Err:      err,
		Attempts: attempts,
	})

	return data, err
}

func (c *Client) retryDelay(attempt int) time.Duration {
	if c.opts.RetryDelay == nil {
		return 0
	}
	return c.opts.RetryDelay(attempt)
}

// MutationFunc performs a write.
type MutationFunc[T any] func(ctx context.Context) (T, error)

// MutationOptions describes a single write.
type MutationOptions struct {
	// Key optionally names the write for logging and inspection.
	Key Key
	// Context is opaque caller metadata handed to mutation observers.
	Context any
	// Invalidates lists key patterns whose cached reads become stale when
	// the write succeeds.
	Invalidates []string
}

// Mutate runs a write once. Writes are never retried. The outcome is recorded,
// emitted to observers with opts.Context, and returned unchanged.
func Mutate[T any](ctx context.Context, c *Client, fn MutationFunc[T], opts MutationOptions) (T, error) {
	m := Mutation{
		ID:          uuid.NewString(),
		Key:         opts.Key,
		Context:     opts.Context,
		SubmittedAt: c.now(),
	}
	logger := c.logger.With().Str("mutation_id", m.ID).Str("mutation_key", opts.Key.String()).Logger()
	if len(opts.Key) > 0 {
		ctx = logging.WithQueryKey(ctx, opts.Key.String())
	}

	data, err := fn(ctx)

	m.SettledAt = c.now()
	m.Data = data
	m.Err = err
	m.Status = StatusSuccess
	if err != nil {
		m.Status = StatusError
	}
	c.mutations.Add(m)

	if err == nil {
		for _, pattern := range opts.Invalidates {
			n, ierr := c.queries.Invalidate(pattern)
			if ierr != nil {
				logger.Warn().Err(ierr).Msg("invalidate queries")
				continue
			}
			logger.Debug().Str("pattern", pattern).Int("invalidated", n).Msg("invalidated queries")
		}
	}

	if abandoned(ctx, err) {
		logger.Debug().Err(err).Msg("mutation abandoned")
		return data, err
	}
	if err != nil {
		logger.Warn().Err(err).Msg("mutation failed")
	}

	c.mutations.observers.emit("mutation.settled", MutationEvent{
		ID:      m.ID,
		Key:     opts.Key,
		Data:    data,
		Err:     err,
		Context: opts.Context,
	})

	return data, err
}

// abandoned reports whether a failure is only the caller losing interest.
func abandoned(ctx context.Context, err error) bool {
	return err != nil && ctx.Err() != nil && errors.Is(err, ctx.Err())
}

// wait blocks for d or until ctx is done.
func wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
