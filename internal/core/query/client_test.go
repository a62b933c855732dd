package query

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(opts Options) *Client {
	return NewClient(opts, zerolog.Nop())
}

func recordQueries(c *Client) *[]QueryEvent {
	var (
		mu     sync.Mutex
		events []QueryEvent
	)
	c.QueryCache().Subscribe(func(e QueryEvent) {
		mu.Lock()
		defer mu.Unlock()
		events = append(events, e)
	})
	return &events
}

func TestQuery_RetriesThreeTimesThenSurfacesFailure(t *testing.T) {
	c := newTestClient(Options{Retry: DefaultRetry})
	events := recordQueries(c)

	var calls int
	boom := errors.New("Network Error")
	_, err := Query(context.Background(), c, NewKey("merchants", "1"), func(context.Context) (string, error) {
		calls++
		return "", boom
	})

	require.ErrorIs(t, err, boom)
	assert.Equal(t, 4, calls, "one original attempt plus three retries")
	require.Len(t, *events, 1, "observers see only the final outcome")
	assert.Equal(t, 4, (*events)[0].Attempts)
	assert.ErrorIs(t, (*events)[0].Err, boom)

	state, ok := c.QueryCache().Get(NewKey("merchants", "1"))
	require.True(t, ok)
	assert.Equal(t, StatusError, state.Status)
	assert.Equal(t, 4, state.Attempts)
}

func TestQuery_StopsRetryingOnSuccess(t *testing.T) {
	c := newTestClient(Options{Retry: 3})
	events := recordQueries(c)

	var calls int
	got, err := Query(context.Background(), c, NewKey("merchants", "2"), func(context.Context) (int, error) {
		calls++
		if calls < 3 {
			return 0, errors.New("flaky")
		}
		return 42, nil
	})

	require.NoError(t, err)
	assert.Equal(t, 42, got)
	assert.Equal(t, 3, calls)
	require.Len(t, *events, 1)
	assert.NoError(t, (*events)[0].Err)
	assert.Equal(t, 42, (*events)[0].Data)
}

func TestQuery_WithRetryOverride(t *testing.T) {
	c := newTestClient(Options{Retry: 3})

	var calls int
	_, err := Query(context.Background(), c, NewKey("k"), func(context.Context) (int, error) {
		calls++
		return 0, errors.New("nope")
	}, WithRetry(0))

	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestQuery_NegativeRetryIsZero(t *testing.T) {
	c := newTestClient(Options{Retry: -5})
	assert.Equal(t, 0, c.Options().Retry)
}

func TestQuery_UsesRetryDelay(t *testing.T) {
	var delays []int
	c := newTestClient(Options{
		Retry: 2,
		RetryDelay: func(attempt int) time.Duration {
			delays = append(delays, attempt)
			return time.Millisecond
		},
	})

	_, err := Query(context.Background(), c, NewKey("k"), func(context.Context) (int, error) {
		return 0, errors.New("nope")
	})

	require.Error(t, err)
	assert.Equal(t, []int{0, 1}, delays)
}

func TestQuery_CancelDuringBackoffIsNotEmitted(t *testing.T) {
	c := newTestClient(Options{
		Retry:      3,
		RetryDelay: func(int) time.Duration { return time.Hour },
	})
	events := recordQueries(c)

	ctx, cancel := context.WithCancel(context.Background())
	var calls int
	_, err := Query(ctx, c, NewKey("k"), func(context.Context) (int, error) {
		calls++
		cancel()
		return 0, errors.New("first failure")
	})

	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
	assert.Empty(t, *events)
	assert.Equal(t, 0, c.QueryCache().Len())
}

func TestQuery_StaleTimeServesFromCache(t *testing.T) {
	c := newTestClient(Options{StaleTime: time.Minute})
	now := time.Now()
	c.now = func() time.Time { return now }

	var calls int
	fetch := func(context.Context) (string, error) {
		calls++
		return "fresh", nil
	}

	_, err := Query(context.Background(), c, NewKey("reports"), fetch)
	require.NoError(t, err)
	got, err := Query(context.Background(), c, NewKey("reports"), fetch)
	require.NoError(t, err)

	assert.Equal(t, "fresh", got)
	assert.Equal(t, 1, calls)

	now = now.Add(2 * time.Minute)
	_, err = Query(context.Background(), c, NewKey("reports"), fetch)
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestQuery_FailureKeepsLastGoodData(t *testing.T) {
	c := newTestClient(Options{})
	key := NewKey("merchants", "9")

	_, err := Query(context.Background(), c, key, func(context.Context) (string, error) { return "acme", nil })
	require.NoError(t, err)
	_, err = Query(context.Background(), c, key, func(context.Context) (string, error) { return "", errors.New("down") })
	require.Error(t, err)

	state, ok := c.QueryCache().Get(key)
	require.True(t, ok)
	assert.Equal(t, StatusError, state.Status)
	assert.Equal(t, "acme", state.Data)

	_, ok = GetQueryData[string](c, key)
	assert.False(t, ok, "GetQueryData only returns successful state")
}

func TestQuery_DeduplicatesConcurrentReads(t *testing.T) {
	c := newTestClient(Options{})
	events := recordQueries(c)

	var calls atomic.Int32
	started := make(chan struct{})
	release := make(chan struct{})
	fetch := func(context.Context) (int, error) {
		if calls.Add(1) == 1 {
			close(started)
		}
		<-release
		return 7, nil
	}

	var wg sync.WaitGroup
	results := make([]int, 2)
	wg.Add(1)
	go func() {
		defer wg.Done()
		results[0], _ = Query(context.Background(), c, NewKey("shared"), fetch)
	}()
	<-started

	wg.Add(1)
	go func() {
		defer wg.Done()
		results[1], _ = Query(context.Background(), c, NewKey("shared"), fetch)
	}()
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, []int{7, 7}, results)
	assert.Len(t, *events, 1)
}

func TestQuery_SharedReadSurvivesFirstCallerLeaving(t *testing.T) {
	c := newTestClient(Options{})
	events := recordQueries(c)

	started := make(chan struct{})
	release := make(chan struct{})
	var (
		once     sync.Once
		fetchErr error
	)
	fetch := func(ctx context.Context) (int, error) {
		once.Do(func() { close(started) })
		<-release
		fetchErr = ctx.Err()
		return 7, nil
	}

	firstCtx, cancelFirst := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := Query(firstCtx, c, NewKey("shared"), fetch)
		firstErr <- err
	}()
	<-started

	second := make(chan int, 1)
	go func() {
		v, err := Query(context.Background(), c, NewKey("shared"), fetch)
		assert.NoError(t, err)
		second <- v
	}()
	time.Sleep(50 * time.Millisecond)

	cancelFirst()
	require.ErrorIs(t, <-firstErr, context.Canceled)

	close(release)
	assert.Equal(t, 7, <-second)
	assert.NoError(t, fetchErr)
	assert.Len(t, *events, 1)
}

func TestQuery_LastCallerLeavingAbandonsExecution(t *testing.T) {
	c := newTestClient(Options{})
	events := recordQueries(c)

	ctx, cancel := context.WithCancel(context.Background())
	started := make(chan struct{})
	stopped := make(chan struct{})
	fetch := func(ctx context.Context) (int, error) {
		close(started)
		<-ctx.Done()
		defer close(stopped)
		return 0, ctx.Err()
	}

	errs := make(chan error, 1)
	go func() {
		_, err := Query(ctx, c, NewKey("k"), fetch)
		errs <- err
	}()
	<-started

	cancel()
	require.ErrorIs(t, <-errs, context.Canceled)
	<-stopped

	assert.Never(t, func() bool { return c.QueryCache().Len() > 0 }, 50*time.Millisecond, 5*time.Millisecond)
	assert.Empty(t, *events)
}

func TestMutate_EmitsContextAndIsNotRetried(t *testing.T) {
	c := newTestClient(Options{Retry: 3})

	var got []MutationEvent
	c.MutationCache().Subscribe(func(e MutationEvent) { got = append(got, e) })

	type ctxMeta struct{ Resource, Action string }
	meta := ctxMeta{Resource: "case", Action: "approve"}

	var calls int
	_, err := Mutate(context.Background(), c, func(context.Context) (bool, error) {
		calls++
		return false, errors.New("conflict")
	}, MutationOptions{Key: NewKey("cases", "1", "decision"), Context: meta})

	require.Error(t, err)
	assert.Equal(t, 1, calls)
	require.Len(t, got, 1)
	assert.Equal(t, meta, got[0].Context)
	assert.NotEmpty(t, got[0].ID)

	all := c.MutationCache().All()
	require.Len(t, all, 1)
	assert.Equal(t, StatusError, all[0].Status)
	assert.Equal(t, got[0].ID, all[0].ID)
}

func TestMutate_SuccessInvalidatesMatchingQueries(t *testing.T) {
	c := newTestClient(Options{StaleTime: time.Hour})
	ctx := context.Background()

	for _, k := range []Key{NewKey("cases", "1"), NewKey("cases", "2"), NewKey("merchants", "1")} {
		_, err := Query(ctx, c, k, func(context.Context) (int, error) { return 1, nil })
		require.NoError(t, err)
	}

	_, err := Mutate(ctx, c, func(context.Context) (int, error) { return 1, nil }, MutationOptions{
		Invalidates: []string{"cases/*"},
	})
	require.NoError(t, err)

	s1, _ := c.QueryCache().Get(NewKey("cases", "1"))
	s2, _ := c.QueryCache().Get(NewKey("cases", "2"))
	s3, _ := c.QueryCache().Get(NewKey("merchants", "1"))
	assert.True(t, s1.Invalidated)
	assert.True(t, s2.Invalidated)
	assert.False(t, s3.Invalidated)

	var calls int
	_, err = Query(ctx, c, NewKey("cases", "1"), func(context.Context) (int, error) {
		calls++
		return 2, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, calls, "invalidated entry is refetched despite stale time")
}

func TestMutate_FailureDoesNotInvalidate(t *testing.T) {
	c := newTestClient(Options{})
	ctx := context.Background()

	_, err := Query(ctx, c, NewKey("cases", "1"), func(context.Context) (int, error) { return 1, nil })
	require.NoError(t, err)

	_, err = Mutate(ctx, c, func(context.Context) (int, error) { return 0, errors.New("x") }, MutationOptions{
		Invalidates: []string{"cases/**"},
	})
	require.Error(t, err)

	s, _ := c.QueryCache().Get(NewKey("cases", "1"))
	assert.False(t, s.Invalidated)
}

func TestMutate_AbandonedIsRecordedButNotEmitted(t *testing.T) {
	c := newTestClient(Options{})
	var emitted int
	c.MutationCache().Subscribe(func(MutationEvent) { emitted++ })

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Mutate(ctx, c, func(ctx context.Context) (int, error) { return 0, ctx.Err() }, MutationOptions{})

	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, emitted)
	assert.Equal(t, 1, c.MutationCache().Len())
}

func TestExponentialDelay(t *testing.T) {
	delay := ExponentialDelay(time.Second, 30*time.Second)

	assert.Equal(t, time.Second, delay(0))
	assert.Equal(t, 2*time.Second, delay(1))
	assert.Equal(t, 4*time.Second, delay(2))
	assert.Equal(t, 16*time.Second, delay(4))
	assert.Equal(t, 30*time.Second, delay(5))
	assert.Equal(t, 30*time.Second, delay(50))
}

func TestDefaultOptions(t *testing.T) {
	opts := DefaultOptions()
	assert.Equal(t, 3, opts.Retry)
	require.NotNil(t, opts.RetryDelay)
	assert.Equal(t, time.Duration(0), opts.StaleTime)
}
