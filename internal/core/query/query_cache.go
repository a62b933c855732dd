package query

import (
	"fmt"
	"sync"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/rs/zerolog"
)

// Status is the settled state of a request.
type Status string

const (
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

// QueryState is the last settled outcome recorded for a key.
type QueryState struct {
	Key         Key
	Data        any
	Err         error
	Status      Status
	Attempts    int
	UpdatedAt   time.Time
	Invalidated bool
}

// QueryEvent is emitted once per settled read, after retries are exhausted.
type QueryEvent struct {
	Key      Key
	Data     any
	Err      error
	Attempts int
}

// QueryCache holds the latest outcome per read key. Entries are replaced,
// never evicted.
type QueryCache struct {
	mu        sync.RWMutex
	entries   map[string]QueryState
	observers observers[QueryEvent]
}

func newQueryCache(logger zerolog.Logger) *QueryCache {
	return &QueryCache{
		entries:   make(map[string]QueryState),
		observers: observers[QueryEvent]{logger: logger},
	}
}

// Get returns the recorded state for key.
func (c *QueryCache) Get(key Key) (QueryState, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s, ok := c.entries[key.String()]
	return s, ok
}

// Set replaces the recorded state for its key.
func (c *QueryCache) Set(state QueryState) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[state.Key.String()] = state
}

// Len returns the number of recorded keys.
func (c *QueryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Invalidate marks every entry whose key matches the doublestar pattern as
// stale, forcing the next read to fetch. Returns the number of entries marked.
func (c *QueryCache) Invalidate(pattern string) (int, error) {
	if !doublestar.ValidatePattern(pattern) {
		return 0, fmt.Errorf("invalid key pattern %q", pattern)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	n := 0
	for k, s := range c.entries {
		ok, err := doublestar.Match(pattern, k)
		if err != nil {
			return n, fmt.Errorf("match key pattern %q: %w", pattern, err)
		}
		if ok && !s.Invalidated {
			s.Invalidated = true
			c.entries[k] = s
			n++
		}
	}
	return n, nil
}

// Subscribe registers fn for every settled read. The returned function
// removes the subscription.
func (c *QueryCache) Subscribe(fn func(QueryEvent)) (unsubscribe func()) {
	return c.observers.subscribe(fn)
}

// fresh returns a successful, non-invalidated entry younger than staleTime.
func (c *QueryCache) fresh(key Key, staleTime time.Duration, now time.Time) (QueryState, bool) {
	s, ok := c.Get(key)
	if !ok || s.Status != StatusSuccess || s.Invalidated {
		return QueryState{}, false
	}
	if now.Sub(s.UpdatedAt) >= staleTime {
		return QueryState{}, false
	}
	return s, true
}
