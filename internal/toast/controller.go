package toast

import (
	"time"

	"github.com/colonyops/backoffice/internal/core/notify"
)

const (
	DefaultTTL       = 5 * time.Second
	DefaultMaxToasts = 5
)

// Toast is a notification that is still on screen.
type Toast struct {
	Notification notify.Notification
	Remaining    time.Duration
}

// Controller manages the lifecycle of active toasts: push, eviction, TTL
// countdown and dismissal. It is not safe for concurrent use.
type Controller struct {
	ttl    time.Duration
	max    int
	toasts []Toast
}

// NewController creates a controller. Non-positive values use the defaults.
func NewController(ttl time.Duration, maxToasts int) *Controller {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if maxToasts <= 0 {
		maxToasts = DefaultMaxToasts
	}
	return &Controller{ttl: ttl, max: maxToasts}
}

// Push adds a notification to the stack. If the stack exceeds its maximum,
// the oldest toast is evicted.
func (c *Controller) Push(n notify.Notification) {
	c.toasts = append(c.toasts, Toast{
		Notification: n,
		Remaining:    c.ttl,
	})
	if len(c.toasts) > c.max {
		c.toasts = c.toasts[len(c.toasts)-c.max:]
	}
}

// Tick decrements the remaining TTL on all toasts by d and removes any that
// have expired.
func (c *Controller) Tick(d time.Duration) {
	alive := c.toasts[:0]
	for _, t := range c.toasts {
		t.Remaining -= d
		if t.Remaining > 0 {
			alive = append(alive, t)
		}
	}
	c.toasts = alive
}

// Active reports whether a toast with the same level and message is still
// on screen.
func (c *Controller) Active(level notify.Level, message string) bool {
	for _, t := range c.toasts {
		if t.Notification.Level == level && t.Notification.Message == message {
			return true
		}
	}
	return false
}

// Toasts returns the current active toasts, oldest first.
func (c *Controller) Toasts() []Toast {
	return c.toasts
}
