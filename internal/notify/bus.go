// Package notify provides the in-process bus that carries notifications from
// producers (the request notifier, commands) to the toast surface and the
// history store.
package notify

import (
	"context"
	"sync"
	"time"

	"github.com/colonyops/backoffice/internal/core/notify"
	"github.com/rs/zerolog"
)

// Subscriber is a callback invoked when a notification is published.
type Subscriber func(notify.Notification)

// Bus dispatches notifications to subscribers inline and persists them to a
// Store. Publish is safe to call from multiple goroutines.
type Bus struct {
	store       notify.Store
	logger      zerolog.Logger
	subscribers []Subscriber
	mu          sync.Mutex
	now         func() time.Time
}

// NewBus creates a notification bus backed by the given store.
// If store is nil, notifications are dispatched to subscribers but not persisted.
func NewBus(store notify.Store, logger zerolog.Logger) *Bus {
	return &Bus{
		store:  store,
		logger: logger,
		now:    time.Now,
	}
}

// Subscribe registers a callback that will be invoked on every Publish.
func (b *Bus) Subscribe(fn Subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers = append(b.subscribers, fn)
}

// Publish dispatches a notification to all subscribers and persists it to the store.
// Persistence failures are logged and never block delivery.
func (b *Bus) Publish(n notify.Notification) {
	if n.CreatedAt.IsZero() {
		n.CreatedAt = b.now()
	}

	// Persist first so the notification has an ID for subscribers.
	if b.store != nil {
		id, err := b.store.Save(context.Background(), n)
		if err != nil {
			b.logger.Error().Err(err).Str("message", n.Message).Msg("failed to persist notification")
		} else {
			n.ID = id
		}
	}

	b.mu.Lock()
	subs := make([]Subscriber, len(b.subscribers))
	copy(subs, b.subscribers)
	b.mu.Unlock()

	for _, fn := range subs {
		fn(n)
	}
}

// Success publishes a success-level notification with text as-is.
func (b *Bus) Success(text string) {
	b.Publish(notify.Notification{Level: notify.LevelSuccess, Message: text})
}

// Error publishes an error-level notification with text as-is.
func (b *Bus) Error(text string) {
	b.Publish(notify.Notification{Level: notify.LevelError, Message: text})
}

// History returns up to limit persisted notifications, newest first. A limit
// of zero or less returns all of them. Returns nil if no store is configured.
func (b *Bus) History(ctx context.Context, limit int) ([]notify.Notification, error) {
	if b.store == nil {
		return nil, nil
	}
	return b.store.List(ctx, limit)
}

// Clear deletes all persisted notifications.
func (b *Bus) Clear(ctx context.Context) error {
	if b.store == nil {
		return nil
	}
	return b.store.Clear(ctx)
}
