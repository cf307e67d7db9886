package core

import (
	"context"
	"time"

	"github.com/queueworks/consumer/job"
)

// Connection is the broker transport the worker consumes through. The worker
// never performs broker I/O itself; it subscribes, reads deliveries, and
// asks the connection to close.
type Connection interface {
	// Connect establishes the underlying transport.
	Connect(ctx context.Context) error

	// ListenQueue subscribes to queue with the given listening options and
	// returns the delivery stream. The stream is closed when the
	// subscription ends, either from Close or from transport failure.
	ListenQueue(ctx context.Context, queue string, opts job.ListenOptions) (<-chan job.Delivery, error)

	// Close tears down all subscriptions and the transport. Close returns
	// once teardown has completed.
	Close() error

	// Closed returns a channel that is closed when the connection's run
	// loop has ended, whether from Close or from transport failure.
	Closed() <-chan struct{}
}

// QueueConfig describes how a queue should exist on the broker.
type QueueConfig struct {
	// Durable queues survive broker restarts.
	Durable bool
	// MessageTTL is how long a message can remain in the queue.
	MessageTTL time.Duration
	// DeadLetterQueue receives rejected messages.
	DeadLetterQueue string
}

// Binding ties a job spec to the queue it consumes from.
type Binding struct {
	Queue  string
	Config QueueConfig
}

// Requirements resolves the queue and configuration bound to a job spec.
// The worker uses only the resolved queue together with the spec's own
// listening options.
type Requirements interface {
	Resolve(ctx context.Context, spec job.Spec) (Binding, error)
}

// QueueDeclarer is implemented by connections that can create queues. The
// default requirements resolver probes for it.
type QueueDeclarer interface {
	DeclareQueue(ctx context.Context, name string, cfg QueueConfig) error
}

// Registry is what the worker needs to resolve job names.
type Registry interface {
	Lookup(name string) (job.Spec, bool)
}

// Statistics receives per-invocation hooks. Implementations must be safe
// for concurrent use; failures are logged by the worker and never affect
// job processing.
type Statistics interface {
	JobStarted(ctx context.Context, spec job.Spec, meta job.Metadata) error
	JobCompleted(ctx context.Context, spec job.Spec, meta job.Metadata, duration time.Duration) error
	JobFailed(ctx context.Context, spec job.Spec, meta job.Metadata, jobErr error, duration time.Duration) error
}

// noopStatistics is the default Statistics when none is injected.
type noopStatistics struct{}

func (noopStatistics) JobStarted(context.Context, job.Spec, job.Metadata) error {
	return nil
}

func (noopStatistics) JobCompleted(context.Context, job.Spec, job.Metadata, time.Duration) error {
	return nil
}

func (noopStatistics) JobFailed(context.Context, job.Spec, job.Metadata, error, time.Duration) error {
	return nil
}
