package core

import (
	"sync"
	"time"
)

// inflight counts currently executing job invocations. It is the only state
// shared between the delivery goroutines and the shutdown path: a graceful
// stop waits here until every paired Add has seen its Done.
type inflight struct {
	mu   sync.Mutex
	n    int
	zero chan struct{} // closed whenever the count reaches zero
}

func newInflight() *inflight {
	zero := make(chan struct{})
	close(zero)
	return &inflight{zero: zero}
}

// Add records the start of an invocation.
func (t *inflight) Add() {
	t.mu.Lock()
	if t.n == 0 {
		t.zero = make(chan struct{})
	}
	t.n++
	t.mu.Unlock()
}

// Done records the end of an invocation and signals waiters when the count
// reaches zero.
func (t *inflight) Done() {
	t.mu.Lock()
	t.n--
	if t.n < 0 {
		t.n = 0
	} else if t.n == 0 {
		close(t.zero)
	}
	t.mu.Unlock()
}

// Count returns the current number of in-flight invocations.
func (t *inflight) Count() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.n
}

// Drained returns a channel that is closed once the count reaches zero. A
// later Add replaces the channel, so callers must re-fetch it per wait.
func (t *inflight) Drained() <-chan struct{} {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.zero
}

// Wait blocks until no invocation is in flight.
func (t *inflight) Wait() {
	<-t.Drained()
}

// WaitTimeout waits for the count to reach zero for at most d. It reports
// whether the drain completed.
func (t *inflight) WaitTimeout(d time.Duration) bool {
	select {
	case <-t.Drained():
		return true
	case <-time.After(d):
		return false
	}
}
