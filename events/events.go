// Package events provides the process-wide lifecycle event notifier used by
// the consumer runtime. The worker publishes here; any number of subscribers
// (including none) may listen.
package events

import "sync"

// Event names published by the worker.
const (
	// ConsumerError carries the error caught from a failed job invocation.
	ConsumerError = "consumer_error"

	// ConsumingDone fires when a graceful stop has drained all in-flight
	// jobs and closed the connection. No payload.
	ConsumingDone = "consuming_done"
)

// Notifier publishes lifecycle events. Implementations must be safe for
// concurrent use.
type Notifier interface {
	Notify(event string, payload any)
}

// Event is a published notification.
type Event struct {
	Name    string
	Payload any
}

// Bus is a minimal channel-based pub/sub notifier. Slow subscribers drop
// events rather than block the publisher.
type Bus struct {
	mu     sync.RWMutex
	subs   map[string]map[chan Event]struct{}
	closed bool
}

// NewBus returns an empty bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[string]map[chan Event]struct{})}
}

// Subscribe registers interest in an event name. The returned cancel
// function removes the subscription and closes the channel.
func (b *Bus) Subscribe(event string) (<-chan Event, func()) {
	ch := make(chan Event, 16)

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		close(ch)
		return ch, func() {}
	}

	subs, ok := b.subs[event]
	if !ok {
		subs = make(map[chan Event]struct{})
		b.subs[event] = subs
	}
	subs[ch] = struct{}{}

	cancel := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if subs, ok := b.subs[event]; ok {
			if _, exists := subs[ch]; exists {
				delete(subs, ch)
				close(ch)
				if len(subs) == 0 {
					delete(b.subs, event)
				}
			}
		}
	}
	return ch, cancel
}

// Notify publishes an event to all current subscribers. The sends happen
// under the read lock: subscriber channels are only ever closed under the
// write lock, so a concurrent cancel or Close cannot close a channel
// mid-send.
func (b *Bus) Notify(event string, payload any) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for ch := range b.subs[event] {
		select {
		case ch <- Event{Name: event, Payload: payload}:
		default:
			// drop if subscriber is slow
		}
	}
}

// Close tears down the bus, closing all subscriber channels.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true
	for event, subs := range b.subs {
		for ch := range subs {
			close(ch)
		}
		delete(b.subs, event)
	}
}

var (
	defaultMu  sync.RWMutex
	defaultBus Notifier = NewBus()
)

// Default returns the process-wide notifier.
func Default() Notifier {
	defaultMu.RLock()
	defer defaultMu.RUnlock()
	return defaultBus
}

// SetDefault replaces the process-wide notifier. Intended for application
// startup; tests should inject a notifier on the worker instead.
func SetDefault(n Notifier) {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	defaultBus = n
}

// Notify publishes on the process-wide notifier.
func Notify(event string, payload any) {
	Default().Notify(event, payload)
}
