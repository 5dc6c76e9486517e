// Package notify manages the single transient notification shown to the operator.
package notify

import (
	"sync"
	"time"

	"github.com/ritzau/trust-graph/pkg/logging"
	"github.com/ritzau/trust-graph/pkg/pubsub"
)

// Topic is the pub/sub topic notifications are published on.
const Topic = "notifications"

// DefaultLifetime is how long a notification stays visible.
const DefaultLifetime = 3000 * time.Millisecond

// Notification is a transient message. ID increases with every raise.
type Notification struct {
	ID      uint64 `json:"id"`
	Message string `json:"message"`
	Visible bool   `json:"visible"`
}

// Timer is the part of *time.Timer the notifier needs.
type Timer interface {
	Stop() bool
}

// AfterFunc schedules f after d.
type AfterFunc func(d time.Duration, f func()) Timer

func realAfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// Notifier holds the current notification. A newer notification always
// replaces the current one, and a clear only applies to the notification that
// scheduled it.
type Notifier struct {
	mu        sync.Mutex
	lifetime  time.Duration
	current   Notification
	nextID    uint64
	timer     Timer
	after     AfterFunc
	publisher pubsub.Publisher
}

// New creates a notifier. publisher may be nil.
func New(lifetime time.Duration, publisher pubsub.Publisher) *Notifier {
	if lifetime <= 0 {
		lifetime = DefaultLifetime
	}
	return &Notifier{
		lifetime:  lifetime,
		after:     realAfterFunc,
		publisher: publisher,
	}
}

// WithAfterFunc replaces the timer factory. Used by tests.
func (n *Notifier) WithAfterFunc(after AfterFunc) *Notifier {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.after = after
	return n
}

// Raise shows message and schedules it to clear after the lifetime.
func (n *Notifier) Raise(message string) Notification {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.nextID++
	id := n.nextID
	n.current = Notification{ID: id, Message: message, Visible: true}

	if n.timer != nil {
		n.timer.Stop()
	}
	n.timer = n.after(n.lifetime, func() { n.expire(id) })

	logging.Debug("notification raised", "id", id, "message", message)
	n.publish("show", n.current)
	return n.current
}

// Current returns the notification on display, or a zero value with
// Visible=false.
func (n *Notifier) Current() Notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.current
}

func (n *Notifier) expire(id uint64) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.current.ID != id || !n.current.Visible {
		logging.Trace("stale notification timer ignored", "id", id, "current", n.current.ID)
		return
	}

	n.current = Notification{ID: id}
	n.timer = nil
	n.publish("clear", n.current)
}

func (n *Notifier) publish(eventType string, notification Notification) {
	if n.publisher == nil {
		return
	}
	if err := n.publisher.Publish(Topic, eventType, notification); err != nil {
		logging.Warn("failed to publish notification", "error", err)
	}
}
