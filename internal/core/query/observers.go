package query

import (
	"fmt"
	"sync"

	"github.com/rs/zerolog"
)

type subscriber[E any] struct {
	id int
	fn func(E)
}

// observers is a subscriber list shared by both caches. Emit runs every
// subscriber inline on the calling goroutine.
type observers[E any] struct {
	mu     sync.Mutex
	nextID int
	subs   []subscriber[E]
	logger zerolog.Logger
}

// subscribe registers fn and returns a function that removes it. The returned
// function is safe to call more than once.
func (o *observers[E]) subscribe(fn func(E)) func() {
	o.mu.Lock()
	o.nextID++
	id := o.nextID
	o.subs = append(o.subs, subscriber[E]{id: id, fn: fn})
	o.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			o.mu.Lock()
			defer o.mu.Unlock()
			for i, s := range o.subs {
				if s.id == id {
					o.subs = append(o.subs[:i:i], o.subs[i+1:]...)
					return
				}
			}
		})
	}
}

func (o *observers[E]) len() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.subs)
}

func (o *observers[E]) emit(event string, e E) {
	o.mu.Lock()
	subs := make([]subscriber[E], len(o.subs))
	copy(subs, o.subs)
	o.mu.Unlock()

	for _, s := range subs {
		o.call(event, s.fn, e)
	}
}

// call isolates a subscriber so a panic cannot reach the request's caller or
// skip the remaining subscribers.
func (o *observers[E]) call(event string, fn func(E), e E) {
	defer func() {
		if r := recover(); r != nil {
			o.logger.Error().
				Str("event", event).
				Str("panic", fmt.Sprint(r)).
				Msg("subscriber panicked")
		}
	}()
	fn(e)
}
