// Package job defines the job descriptors and delivery types shared by the
// consumer runtime, the registry, and the connection implementations.
package job

import (
	"time"

	"github.com/goccy/go-json"

	"github.com/queueworks/consumer/errors"
)

// Style tags how a resolved job is invoked.
type Style int

const (
	// ClassStyle jobs expose a type-level perform function that receives
	// the payload and metadata directly.
	ClassStyle Style = iota + 1

	// InstanceStyle jobs are constructed from the payload and metadata,
	// then performed with no arguments.
	InstanceStyle
)

func (s Style) String() string {
	switch s {
	case ClassStyle:
		return "class"
	case InstanceStyle:
		return "instance"
	default:
		return "unknown"
	}
}

// PerformFunc is the type-level perform signature for class-style jobs.
type PerformFunc func(payload []byte, meta Metadata) error

// Performer is a constructed instance-style job ready to run.
type Performer interface {
	Perform() error
}

// Factory constructs an instance-style job from a delivery.
type Factory func(payload []byte, meta Metadata) Performer

// ListenOptions is the queue-binding configuration associated with a job.
// The connection interprets it; the worker only carries it.
type ListenOptions struct {
	// ConsumerTag identifies the consumer on the broker. Empty means the
	// connection generates one.
	ConsumerTag string

	// Prefetch limits unacknowledged deliveries for this consumer.
	Prefetch int

	// AutoAck makes the broker consider deliveries acknowledged on send.
	AutoAck bool

	// Exclusive requests sole access to the queue.
	Exclusive bool

	// Args carries broker-specific binding arguments.
	Args map[string]any
}

// Spec is a resolved, validated job descriptor. A Spec is created once when
// a Worker is constructed and is immutable afterward.
type Spec struct {
	Name    string
	Style   Style
	Perform PerformFunc
	New     Factory
	Options ListenOptions
}

// Resolved returns a copy of the spec with its Style fixed from the
// capabilities it exposes. This is a capability check: a spec is accepted if
// it carries either perform shape, regardless of where it came from.
func (s Spec) Resolved() (Spec, error) {
	if s.Name == "" {
		return Spec{}, errors.ErrEmptyJobName
	}

	switch {
	case s.Perform != nil:
		s.Style = ClassStyle
	case s.New != nil:
		s.Style = InstanceStyle
	default:
		return Spec{}, errors.NewJobNotFoundError(s.Name)
	}

	return s, nil
}

// Metadata describes a delivered message.
type Metadata struct {
	Queue       string
	ID          string
	ContentType string
	EnqueuedAt  time.Time
	Headers     map[string]any
}

// Acknowledger settles a delivery with the broker. Connections that have no
// acknowledgement concept leave the delivery's Acker nil.
type Acknowledger interface {
	// Ack marks the delivery as processed.
	Ack() error

	// Reject discards the delivery without requeueing.
	Reject() error
}

// Delivery is one message handed to the worker by a connection.
type Delivery struct {
	Payload  []byte
	Metadata Metadata
	Acker    Acknowledger
}

// Decode unmarshals the payload into v. The runtime itself treats payloads
// as opaque; this is a convenience for job implementations.
func (d Delivery) Decode(v any) error {
	if err := json.Unmarshal(d.Payload, v); err != nil {
		return errors.NewSerializationError("json", err)
	}
	return nil
}
