// Package redis provides a Connection over Redis lists. Each listened queue
// is a list polled with LPOP; there is no broker-side acknowledgement.
package redis

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gomodule/redigo/redis"

	"github.com/queueworks/consumer/errors"
	internal "github.com/queueworks/consumer/internal/redis"
	"github.com/queueworks/consumer/job"
)

// Connection implements core.Connection over a redigo pool.
type Connection struct {
	options Options

	mu   sync.Mutex
	pool *redis.Pool

	loopCtx    context.Context
	cancelLoop context.CancelFunc

	closed    chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

// New creates a new Redis connection
func New(options Options) *Connection {
	return &Connection{
		options: options,
		closed:  make(chan struct{}),
	}
}

// Connect creates the pool and verifies it with a PING.
func (c *Connection) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.pool != nil {
		return nil
	}

	pool := internal.NewPool(c.options.pool())

	conn := pool.Get()
	defer conn.Close()
	if _, err := conn.Do("PING"); err != nil {
		pool.Close()
		return errors.NewConnectionError(c.options.URI,
			fmt.Errorf("ping failed: %w", err))
	}

	c.pool = pool
	c.loopCtx, c.cancelLoop = context.WithCancel(context.Background())
	return nil
}

// ListenQueue starts a poll loop on the queue's list and returns its
// delivery stream.
func (c *Connection) ListenQueue(ctx context.Context, queue string, opts job.ListenOptions) (<-chan job.Delivery, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.pool == nil {
		return nil, errors.ErrNotConnected
	}

	out := make(chan job.Delivery)
	c.wg.Add(1)
	go c.poll(c.loopCtx, c.pool, queue, out)
	return out, nil
}

// poll LPOPs the queue until the connection closes, sleeping the configured
// interval when the queue is empty. The loop holds its own pool reference;
// Close waits for all loops before releasing the pool.
func (c *Connection) poll(ctx context.Context, pool *redis.Pool, queue string, out chan<- job.Delivery) {
	defer c.wg.Done()
	defer close(out)

	key := c.queueKey(queue)
	for {
		if ctx.Err() != nil {
			return
		}

		payload, err := popOnce(pool, key)
		if err != nil {
			// Transient pool errors back off like an empty queue.
			slog.Warn("failed to pop from queue", "queue", queue, "error", err)
			payload = nil
		}

		if payload == nil {
			select {
			case <-ctx.Done():
				return
			case <-time.After(c.options.PollInterval):
			}
			continue
		}

		d := job.Delivery{
			Payload: payload,
			Metadata: job.Metadata{
				Queue:      queue,
				EnqueuedAt: time.Now(), // Redis doesn't store this
			},
		}

		select {
		case <-ctx.Done():
			// Put the message back; it was never dispatched.
			pushBack(pool, key, payload)
			return
		case out <- d:
		}
	}
}

func popOnce(pool *redis.Pool, key string) ([]byte, error) {
	conn := pool.Get()
	defer conn.Close()

	reply, err := conn.Do("LPOP", key)
	if err != nil {
		return nil, err
	}
	if reply == nil {
		return nil, nil
	}

	data, ok := reply.([]byte)
	if !ok {
		return nil, fmt.Errorf("unexpected data type: %T", reply)
	}
	return data, nil
}

func pushBack(pool *redis.Pool, key string, payload []byte) {
	conn := pool.Get()
	defer conn.Close()
	conn.Do("LPUSH", key, payload)
}

// Close stops all poll loops and releases the pool.
func (c *Connection) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.mu.Lock()
		if c.cancelLoop != nil {
			c.cancelLoop()
		}
		pool := c.pool
		c.pool = nil
		c.mu.Unlock()

		c.wg.Wait()
		if pool != nil {
			err = pool.Close()
		}
		close(c.closed)
	})
	return err
}

// Closed reports connection teardown.
func (c *Connection) Closed() <-chan struct{} {
	return c.closed
}

func (c *Connection) queueKey(queue string) string {
	return fmt.Sprintf("%squeue:%s", c.options.Namespace, queue)
}
