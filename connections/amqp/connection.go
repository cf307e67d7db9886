// Package amqp provides the AMQP 0-9-1 Connection backed by RabbitMQ.
package amqp

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/queueworks/consumer/core"
	"github.com/queueworks/consumer/errors"
	"github.com/queueworks/consumer/job"
)

// Connection implements core.Connection over a single AMQP connection and
// channel.
type Connection struct {
	options Options

	mu           sync.RWMutex
	conn         *amqp.Connection
	channel      *amqp.Channel
	declared     map[string]bool
	consumerTags []string

	closed     chan struct{}
	closedOnce sync.Once
	closeOnce  sync.Once
}

// New creates a new AMQP connection
func New(options Options) *Connection {
	return &Connection{
		options:  options,
		declared: make(map[string]bool),
		closed:   make(chan struct{}),
	}
}

// Connect dials the broker and opens the channel all consumers share.
func (c *Connection) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn != nil && !c.conn.IsClosed() {
		return nil
	}

	conn, err := amqp.Dial(c.options.URI)
	if err != nil {
		return errors.NewConnectionError(c.options.URI,
			fmt.Errorf("failed to connect to RabbitMQ: %w", err))
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return errors.NewConnectionError(c.options.URI,
			fmt.Errorf("failed to open channel: %w", err))
	}

	if c.options.PrefetchCount > 0 {
		if err := ch.Qos(c.options.PrefetchCount, 0, false); err != nil {
			ch.Close()
			conn.Close()
			return errors.NewConnectionError(c.options.URI,
				fmt.Errorf("failed to set QoS: %w", err))
		}
	}

	c.conn = conn
	c.channel = ch

	// An unsolicited close from the broker also ends the run loop.
	notifyClose := conn.NotifyClose(make(chan *amqp.Error, 1))
	go func() {
		if err := <-notifyClose; err != nil {
			slog.Warn("AMQP connection lost", "error", err)
		}
		c.markClosed()
	}()

	return nil
}

// ListenQueue starts a consumer on queue and returns its delivery stream.
func (c *Connection) ListenQueue(ctx context.Context, queue string, opts job.ListenOptions) (<-chan job.Delivery, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.channel == nil {
		return nil, errors.ErrNotConnected
	}

	if opts.Prefetch > 0 {
		if err := c.channel.Qos(opts.Prefetch, 0, false); err != nil {
			return nil, fmt.Errorf("set prefetch for %s: %w", queue, err)
		}
	}

	tag := opts.ConsumerTag
	if tag == "" {
		tag = fmt.Sprintf("consumer-%s", uuid.NewString())
	}

	deliveries, err := c.channel.Consume(
		queue,          // queue
		tag,            // consumer tag
		opts.AutoAck,   // auto-ack
		opts.Exclusive, // exclusive
		false,          // no-local
		false,          // no-wait
		amqp.Table(opts.Args),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to start consumer for queue %s: %w", queue, err)
	}

	c.consumerTags = append(c.consumerTags, tag)

	out := make(chan job.Delivery)
	go c.convert(queue, opts.AutoAck, deliveries, out)
	return out, nil
}

// convert translates AMQP deliveries into job deliveries until the consumer
// ends.
func (c *Connection) convert(queue string, autoAck bool, in <-chan amqp.Delivery, out chan<- job.Delivery) {
	defer close(out)

	for delivery := range in {
		d := job.Delivery{
			Payload: delivery.Body,
			Metadata: job.Metadata{
				Queue:       queue,
				ID:          delivery.MessageId,
				ContentType: delivery.ContentType,
				EnqueuedAt:  delivery.Timestamp,
				Headers:     map[string]any(delivery.Headers),
			},
		}
		if !autoAck {
			d.Acker = &acker{delivery: delivery}
		}
		out <- d
	}
}

// acker settles a single AMQP delivery.
type acker struct {
	delivery amqp.Delivery
}

func (a *acker) Ack() error {
	return a.delivery.Ack(false)
}

func (a *acker) Reject() error {
	return a.delivery.Reject(false)
}

// DeclareQueue declares a durable queue with the given configuration.
func (c *Connection) DeclareQueue(ctx context.Context, name string, cfg core.QueueConfig) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.channel == nil {
		return errors.ErrNotConnected
	}

	if c.declared[name] {
		return nil
	}

	var args amqp.Table
	if cfg.MessageTTL > 0 || cfg.DeadLetterQueue != "" {
		args = amqp.Table{}
		if cfg.MessageTTL > 0 {
			args["x-message-ttl"] = cfg.MessageTTL.Milliseconds()
		}
		if cfg.DeadLetterQueue != "" {
			args["x-dead-letter-exchange"] = ""
			args["x-dead-letter-routing-key"] = cfg.DeadLetterQueue
		}
	}

	_, err := c.channel.QueueDeclare(
		name,        // name
		cfg.Durable, // durable
		false,       // delete when unused
		false,       // exclusive
		false,       // no-wait
		args,        // arguments
	)
	if err != nil {
		return fmt.Errorf("declare queue %s: %w", name, err)
	}

	c.declared[name] = true
	return nil
}

// Close cancels all consumers and closes the channel and connection. The
// delivery streams end as the consumers are cancelled.
func (c *Connection) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.mu.Lock()
		defer c.mu.Unlock()

		if c.channel != nil {
			for _, tag := range c.consumerTags {
				if cancelErr := c.channel.Cancel(tag, false); cancelErr != nil {
					slog.Error("failed to cancel consumer", "tag", tag, "error", cancelErr)
				}
			}
			if chErr := c.channel.Close(); chErr != nil {
				err = chErr
			}
		}
		if c.conn != nil {
			if connErr := c.conn.Close(); connErr != nil && err == nil {
				err = connErr
			}
		}

		c.markClosed()
	})
	return err
}

// Closed reports connection teardown.
func (c *Connection) Closed() <-chan struct{} {
	return c.closed
}

func (c *Connection) markClosed() {
	c.closedOnce.Do(func() {
		close(c.closed)
	})
}
