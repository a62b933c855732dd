package query

import (
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Mutation is the record of one write request.
type Mutation struct {
	ID          string
	Key         Key
	Context     any
	Status      Status
	Data        any
	Err         error
	SubmittedAt time.Time
	SettledAt   time.Time
}

// MutationEvent is emitted once per settled write. Context is whatever the
// caller attached when issuing the write, untouched.
type MutationEvent struct {
	ID      string
	Key     Key
	Data    any
	Err     error
	Context any
}

// MutationCache records every settled write in submission order.
type MutationCache struct {
	mu        sync.RWMutex
	items     []Mutation
	observers observers[MutationEvent]
}

func newMutationCache(logger zerolog.Logger) *MutationCache {
	return &MutationCache{
		observers: observers[MutationEvent]{logger: logger},
	}
}

// Add appends a settled mutation.
func (c *MutationCache) Add(m Mutation) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = append(c.items, m)
}

// All returns a copy of every recorded mutation, oldest first.
func (c *MutationCache) All() []Mutation {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Mutation, len(c.items))
	copy(out, c.items)
	return out
}

// Len returns the number of recorded mutations.
func (c *MutationCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// Subscribe registers fn for every settled write. The returned function
// removes the subscription.
func (c *MutationCache) Subscribe(fn func(MutationEvent)) (unsubscribe func()) {
	return c.observers.subscribe(fn)
}
