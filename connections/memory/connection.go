// Package memory provides an in-process Connection for tests and examples.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/queueworks/consumer/core"
	"github.com/queueworks/consumer/errors"
	"github.com/queueworks/consumer/job"
)

// Options for the memory connection
type Options struct {
	// QueueSize is the buffer of each queue channel.
	QueueSize int
}

// DefaultOptions returns default memory connection options
func DefaultOptions() Options {
	return Options{QueueSize: 100}
}

// Connection implements core.Connection using per-queue channels.
type Connection struct {
	mu        sync.Mutex
	queues    map[string]chan job.Delivery
	connected bool
	closed    chan struct{}
	closeOnce sync.Once
	options   Options
}

// New creates a new memory connection
func New(options Options) *Connection {
	return &Connection{
		queues:  make(map[string]chan job.Delivery),
		closed:  make(chan struct{}),
		options: options,
	}
}

// Connect marks the connection live.
func (c *Connection) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.connected = true
	return nil
}

// ListenQueue returns the queue's delivery channel, creating the queue on
// demand.
func (c *Connection) ListenQueue(ctx context.Context, queue string, opts job.ListenOptions) (<-chan job.Delivery, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.connected {
		return nil, errors.ErrNotConnected
	}

	return c.queue(queue), nil
}

// DeclareQueue creates the queue if it does not exist.
func (c *Connection) DeclareQueue(ctx context.Context, name string, cfg core.QueueConfig) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.connected {
		return errors.ErrNotConnected
	}

	c.queue(name)
	return nil
}

// queue returns the channel for name, creating it on demand. Callers hold
// the lock.
func (c *Connection) queue(name string) chan job.Delivery {
	ch, ok := c.queues[name]
	if !ok {
		ch = make(chan job.Delivery, c.options.QueueSize)
		c.queues[name] = ch
	}
	return ch
}

// Publish injects a delivery onto a queue. Intended for tests and examples.
func (c *Connection) Publish(queue string, payload []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.connected {
		return errors.ErrNotConnected
	}

	d := job.Delivery{
		Payload: payload,
		Metadata: job.Metadata{
			Queue:      queue,
			ID:         uuid.NewString(),
			EnqueuedAt: time.Now(),
		},
	}

	select {
	case c.queue(queue) <- d:
		return nil
	default:
		return errors.ErrQueueFull
	}
}

// Close closes every queue channel, ending all subscriptions.
func (c *Connection) Close() error {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		for _, ch := range c.queues {
			close(ch)
		}
		c.queues = make(map[string]chan job.Delivery)
		c.connected = false
		c.mu.Unlock()

		close(c.closed)
	})
	return nil
}

// Closed reports connection teardown.
func (c *Connection) Closed() <-chan struct{} {
	return c.closed
}
