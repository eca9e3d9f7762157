package journal

import (
	"sync"

	"github.com/iMaginarParas/singapore-token-hackathon/internal/vault"
)

// Feed is a thread-safe FIFO of audit events for in-process consumers: an
// embedded notification service blocks on Wait instead of polling the
// database.
//
// The feed is unbounded so a slow consumer never blocks the vault's write
// path. The signal channel is buffered to one; multiple publishes coalesce
// into a single wakeup, and the consumer drains with TryNext until empty.
type Feed struct {
	mu     sync.Mutex
	events []vault.Event
	closed bool
	signal chan struct{}
}

// NewFeed creates an empty feed.
func NewFeed() *Feed {
	return &Feed{
		events: make([]vault.Event, 0, 64),
		signal: make(chan struct{}, 1),
	}
}

// Publish appends an event. Returns false if the feed is closed.
func (f *Feed) Publish(ev vault.Event) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return false
	}
	f.events = append(f.events, ev)
	select {
	case f.signal <- struct{}{}:
	default:
	}
	return true
}

// TryNext pops the oldest pending event without blocking. The second return
// is false when nothing is pending.
func (f *Feed) TryNext() (vault.Event, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.events) == 0 {
		return vault.Event{}, false
	}
	ev := f.events[0]
	f.events = f.events[1:]
	return ev, true
}

// Wait returns a channel that receives when events may be pending or the
// feed closes. Consumers select on it together with their context, then
// drain with TryNext.
func (f *Feed) Wait() <-chan struct{} {
	return f.signal
}

// Close marks the feed closed and wakes any waiter. Pending events remain
// drainable via TryNext.
func (f *Feed) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return
	}
	f.closed = true
	select {
	case f.signal <- struct{}{}:
	default:
	}
}

// Closed reports whether the feed is closed.
func (f *Feed) Closed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

// Pending returns the number of undelivered events.
func (f *Feed) Pending() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.events)
}
