package core

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/queueworks/consumer/errors"
	"github.com/queueworks/consumer/events"
	"github.com/queueworks/consumer/job"
	"github.com/queueworks/consumer/pidfile"
)

// Worker binds a fixed set of job specs to broker queues, dispatches
// deliveries to the matching job with failure isolation, and manages its own
// process lifecycle.
type Worker struct {
	specs    []job.Spec
	conn     Connection
	req      Requirements
	logger   *slog.Logger
	notifier events.Notifier
	stats    Statistics

	inflight     *inflight
	drainTimeout time.Duration

	mu      sync.Mutex
	pidfile *pidfile.File

	stopOnce   sync.Once
	stopErr    error
	abortDrain chan struct{}
	abortOnce  sync.Once

	wg sync.WaitGroup
}

// NewWorker resolves ids into job specs and returns a Worker holding them in
// input order. Each id is either a job name resolved through reg, or an
// already-resolved job.Spec handle; a handle is accepted if it exposes
// either perform capability.
//
// Construction is all-or-nothing: an empty id list fails with ErrNoJobs and
// any unresolvable id fails with a JobNotFoundError, each logged at fatal
// severity before the error is returned.
func NewWorker(conn Connection, reg Registry, req Requirements, ids []any, opts ...Option) (*Worker, error) {
	config := defaultConfig()
	for _, opt := range opts {
		opt(config)
	}
	logger := config.Logger

	if len(ids) == 0 {
		logger.Log(context.Background(), LevelFatal, "no jobs supplied")
		return nil, errors.ErrNoJobs
	}

	specs := make([]job.Spec, 0, len(ids))
	for _, id := range ids {
		spec, err := resolveID(reg, id)
		if err != nil {
			logger.Log(context.Background(), LevelFatal,
				"job did not resolve", "id", fmt.Sprintf("%v", id), "error", err)
			return nil, err
		}
		specs = append(specs, spec)
	}

	return &Worker{
		specs:        specs,
		conn:         conn,
		req:          req,
		logger:       logger,
		notifier:     config.Notifier,
		stats:        config.Statistics,
		inflight:     newInflight(),
		drainTimeout: config.DrainTimeout,
		abortDrain:   make(chan struct{}),
	}, nil
}

// resolveID turns one job identifier into a validated spec.
func resolveID(reg Registry, id any) (job.Spec, error) {
	switch v := id.(type) {
	case string:
		spec, ok := reg.Lookup(v)
		if !ok {
			return job.Spec{}, errors.NewJobNotFoundError(v)
		}
		return spec.Resolved()
	case job.Spec:
		return v.Resolved()
	default:
		return job.Spec{}, errors.NewJobNotFoundError(fmt.Sprintf("%T", id))
	}
}

// Specs returns the resolved job specs in construction order.
func (w *Worker) Specs() []job.Spec {
	return w.specs
}

// Work connects and subscribes one queue per job spec, in spec order, then
// returns. Deliveries are dispatched on per-queue goroutines until the
// connection closes.
func (w *Worker) Work(ctx context.Context) error {
	w.logger.Info("starting consumers", "jobs", len(w.specs))

	if err := w.conn.Connect(ctx); err != nil {
		return errors.NewConnectionError("",
			fmt.Errorf("failed to connect: %w", err))
	}

	for _, spec := range w.specs {
		binding, err := w.req.Resolve(ctx, spec)
		if err != nil {
			return fmt.Errorf("resolve requirements for %s: %w", spec.Name, err)
		}

		deliveries, err := w.conn.ListenQueue(ctx, binding.Queue, spec.Options)
		if err != nil {
			return fmt.Errorf("listen on %s: %w", binding.Queue, err)
		}

		w.wg.Add(1)
		go w.consume(ctx, spec, deliveries)
	}

	w.logger.Info("consumers started", "queues", len(w.specs))
	return nil
}

// Run subscribes like Work and then blocks until the connection's run loop
// ends or ctx is cancelled. Cancellation triggers a graceful stop.
func (w *Worker) Run(ctx context.Context) error {
	if err := w.Work(ctx); err != nil {
		return err
	}

	select {
	case <-ctx.Done():
		return w.StopGracefully()
	case <-w.conn.Closed():
		return nil
	}
}

// consume dispatches deliveries from one queue until the stream closes.
func (w *Worker) consume(ctx context.Context, spec job.Spec, deliveries <-chan job.Delivery) {
	defer w.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case d, ok := <-deliveries:
			if !ok {
				return
			}
			w.invoke(ctx, spec, d)
		}
	}
}

// invoke runs one job with the in-flight tracker held for exactly the
// duration of the invocation. Failures never propagate: they surface as a
// single consumer_error event and the consumer keeps running.
func (w *Worker) invoke(ctx context.Context, spec job.Spec, d job.Delivery) {
	w.inflight.Add()
	defer w.inflight.Done()

	start := time.Now()
	if err := w.stats.JobStarted(ctx, spec, d.Metadata); err != nil {
		w.logger.Error("failed to record job start", "error", err)
	}

	err := w.perform(spec, d)
	duration := time.Since(start)

	if err != nil {
		if statsErr := w.stats.JobFailed(ctx, spec, d.Metadata, err, duration); statsErr != nil {
			w.logger.Error("failed to record job failure", "error", statsErr)
		}
		w.notifier.Notify(events.ConsumerError, err)
		w.settle(d, false)
		return
	}

	if statsErr := w.stats.JobCompleted(ctx, spec, d.Metadata, duration); statsErr != nil {
		w.logger.Error("failed to record job completion", "error", statsErr)
	}
	w.settle(d, true)
}

// perform runs the job with panic recovery.
func (w *Worker) perform(spec job.Spec, d job.Delivery) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.NewJobError(spec.Name, d.Metadata.Queue,
				fmt.Errorf("panic: %v", r))
		}
	}()

	switch spec.Style {
	case job.ClassStyle:
		return spec.Perform(d.Payload, d.Metadata)
	case job.InstanceStyle:
		return spec.New(d.Payload, d.Metadata).Perform()
	default:
		// Styles are fixed at resolution time; this is unreachable for
		// specs produced by NewWorker.
		return errors.NewJobNotFoundError(spec.Name)
	}
}

// settle acknowledges or rejects a delivery when the connection supports it.
// Rejection never requeues; retry policy belongs to the broker configuration.
func (w *Worker) settle(d job.Delivery, ok bool) {
	if d.Acker == nil {
		return
	}

	var err error
	if ok {
		err = d.Acker.Ack()
	} else {
		err = d.Acker.Reject()
	}
	if err != nil {
		w.logger.Error("failed to settle delivery", "queue", d.Metadata.Queue, "error", err)
	}
}

// Stop closes the connection and removes the PID file without waiting for
// in-flight jobs. Calling Stop while a graceful stop is draining aborts
// the drain wait and lets that stop run to completion.
func (w *Worker) Stop() error {
	return w.stop(false)
}

// StopGracefully waits for all in-flight job invocations to finish, closes
// the connection, publishes consuming_done, and removes the PID file.
func (w *Worker) StopGracefully() error {
	return w.stop(true)
}

func (w *Worker) stop(graceful bool) error {
	if !graceful {
		// Escalation: wake a graceful stop already blocked in drain.
		// Harmless when no stop is in progress, since stopOnce below
		// runs the immediate path without consulting the tracker.
		w.abortOnce.Do(func() { close(w.abortDrain) })
	}

	w.stopOnce.Do(func() {
		if graceful {
			w.drain()
		}

		if err := w.conn.Close(); err != nil {
			w.logger.Error("error closing connection", "error", err)
			w.stopErr = err
		}

		if graceful {
			w.notifier.Notify(events.ConsumingDone, nil)
		}

		// The PID file goes away only after the close has completed.
		if err := w.RemovePidfile(); err != nil {
			w.logger.Error("error removing pidfile", "error", err)
			if w.stopErr == nil {
				w.stopErr = err
			}
		}
	})
	return w.stopErr
}

// drain waits for the in-flight tracker to reach zero, bounded by the
// configured drain timeout when one is set, and interruptible by an
// immediate stop.
func (w *Worker) drain() {
	var timeout <-chan time.Time
	if w.drainTimeout > 0 {
		timeout = time.After(w.drainTimeout)
	}

	select {
	case <-w.inflight.Drained():
	case <-timeout:
		w.logger.Warn("drain timeout exceeded, closing with jobs in flight",
			"timeout", w.drainTimeout, "inflight", w.inflight.Count())
	case <-w.abortDrain:
		w.logger.Warn("immediate stop requested, abandoning drain",
			"inflight", w.inflight.Count())
	}
}

// UsePidfile claims path as this worker's PID file, reclaiming files
// abandoned by dead processes. Failure is logged before the error is
// returned and leaves any existing file untouched. A prior claim under a
// different path is released so it is not orphaned on disk.
func (w *Worker) UsePidfile(path string) error {
	f, err := pidfile.Acquire(path)
	if err != nil {
		w.logger.Log(context.Background(), LevelFatal,
			"failed to claim pidfile", "path", path, "error", err)
		return err
	}

	w.mu.Lock()
	prev := w.pidfile
	w.pidfile = f
	w.mu.Unlock()

	// Re-claiming the same path overwrote the file in place; removing the
	// old claim then would delete the new one.
	if prev != nil && prev.Path() != f.Path() {
		if err := prev.Remove(); err != nil {
			w.logger.Error("error removing replaced pidfile",
				"path", prev.Path(), "error", err)
		}
	}
	return nil
}

// RemovePidfile deletes the active PID file. It is a no-op when no file was
// claimed or the file is already gone.
func (w *Worker) RemovePidfile() error {
	w.mu.Lock()
	f := w.pidfile
	w.pidfile = nil
	w.mu.Unlock()

	return f.Remove()
}

// Pid returns the current process id.
func (w *Worker) Pid() int {
	return os.Getpid()
}
