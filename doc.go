// Package consumer is a message-queue-backed job-processing runtime. It
// binds registered job types to broker queues, pulls messages, dispatches
// them to the matching job with per-invocation failure isolation, and
// manages its own process lifecycle: single-instance enforcement through a
// PID file, and graceful or immediate shutdown.
//
// consumer supports multiple queue transports:
// - RabbitMQ (AMQP 0-9-1)
// - Redis lists
// - In-memory (tests and examples)
//
// # Example
//
//	package main
//
//	import (
//		"context"
//		"fmt"
//
//		amqpconn "github.com/queueworks/consumer/connections/amqp"
//		"github.com/queueworks/consumer/core"
//		"github.com/queueworks/consumer/job"
//		"github.com/queueworks/consumer/registry"
//		"github.com/queueworks/consumer/requirements"
//	)
//
//	func main() {
//		reg := registry.NewRegistry()
//		reg.RegisterFunc("EmailJob", func(payload []byte, meta job.Metadata) error {
//			fmt.Printf("from %s: %s\n", meta.Queue, payload)
//			return nil
//		}, job.ListenOptions{Prefetch: 10})
//
//		conn := amqpconn.New(amqpconn.DefaultOptions())
//		resolver := requirements.NewResolver(conn, requirements.DefaultOptions())
//
//		worker, err := core.NewWorker(conn, reg, resolver, []any{"EmailJob"})
//		if err != nil {
//			panic(err)
//		}
//
//		if err := worker.UsePidfile("/var/run/consumer.pid"); err != nil {
//			panic(err)
//		}
//
//		// Blocks until the connection's run loop ends.
//		if err := worker.Run(context.Background()); err != nil {
//			panic(err)
//		}
//	}
//
// # Job styles
//
// A class-style job is a plain function receiving the payload and delivery
// metadata. An instance-style job is built from the delivery first and then
// performed, which is the natural shape when a job carries parsed state:
//
//	type resizeJob struct{ Width, Height int }
//
//	func (r *resizeJob) Perform() error { ... }
//
//	reg.RegisterFactory("ResizeJob", func(payload []byte, meta job.Metadata) job.Performer {
//		r := &resizeJob{}
//		_ = (job.Delivery{Payload: payload}).Decode(r)
//		return r
//	}, job.ListenOptions{})
//
// # Failure isolation
//
// An error or panic inside a job never stops the consumer. It is published
// as a consumer_error event on the events package's notifier, and the worker
// keeps accepting messages:
//
//	errs, cancel := bus.Subscribe(events.ConsumerError)
//	defer cancel()
//
// # Shutdown
//
// Stop closes the connection at once. StopGracefully first waits until
// every in-flight job invocation has finished, then closes, publishes
// consuming_done, and removes the PID file.
package consumer
