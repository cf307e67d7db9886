// Package errors provides error types and utilities for the consumer runtime.
package errors

import (
	"errors"
	"fmt"
)

// Sentinel errors for common conditions
var (
	ErrNoJobs         = errors.New("no jobs supplied")
	ErrAlreadyRunning = errors.New("already running")
	ErrNotConnected   = errors.New("not connected")
	ErrConnClosed     = errors.New("connection closed")
	ErrQueueFull      = errors.New("queue is full")
	ErrEmptyJobName   = errors.New("job name cannot be empty")
	ErrNilPerform     = errors.New("perform function cannot be nil")
	ErrNilFactory     = errors.New("job factory cannot be nil")
)

// JobNotFoundError reports a job identifier that did not resolve to a
// registered job.
type JobNotFoundError struct {
	Name string // identifier as supplied
}

func (e *JobNotFoundError) Error() string {
	return fmt.Sprintf("job %q not found", e.Name)
}

// JobError represents a failure raised inside a job invocation.
type JobError struct {
	Job   string // job name
	Queue string // queue the delivery came from
	Err   error  // underlying error
}

func (e *JobError) Error() string {
	if e.Queue != "" {
		return fmt.Sprintf("job %s on queue %s: %v", e.Job, e.Queue, e.Err)
	}
	return fmt.Sprintf("job %s: %v", e.Job, e.Err)
}

func (e *JobError) Unwrap() error {
	return e.Err
}

// WorkerError represents a worker lifecycle failure, such as a PID file
// already claimed by a live process.
type WorkerError struct {
	Op  string // operation being performed
	Err error  // underlying error
}

func (e *WorkerError) Error() string {
	return fmt.Sprintf("worker %s: %v", e.Op, e.Err)
}

func (e *WorkerError) Unwrap() error {
	return e.Err
}

// SerializationError represents payload encoding/decoding errors.
type SerializationError struct {
	Format string // serialization format
	Err    error  // underlying error
}

func (e *SerializationError) Error() string {
	return fmt.Sprintf("serialization (%s): %v", e.Format, e.Err)
}

func (e *SerializationError) Unwrap() error {
	return e.Err
}

// ConnectionError represents connection-related errors.
type ConnectionError struct {
	URI string // connection URI (may be redacted)
	Err error  // underlying error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("connection to %s: %v", e.URI, e.Err)
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}

func (e *ConnectionError) Temporary() bool {
	// Implement net.Error interface for timeout detection
	if t, ok := e.Err.(interface{ Temporary() bool }); ok {
		return t.Temporary()
	}
	return false
}

func (e *ConnectionError) Timeout() bool {
	// Implement net.Error interface for timeout detection
	if t, ok := e.Err.(interface{ Timeout() bool }); ok {
		return t.Timeout()
	}
	return false
}

// Helper functions for creating errors

// NewJobNotFoundError creates a new job-not-found error
func NewJobNotFoundError(name string) error {
	return &JobNotFoundError{Name: name}
}

// NewJobError creates a new job invocation error
func NewJobError(jobName, queue string, err error) error {
	return &JobError{Job: jobName, Queue: queue, Err: err}
}

// NewWorkerError creates a new worker lifecycle error
func NewWorkerError(op string, err error) error {
	return &WorkerError{Op: op, Err: err}
}

// NewSerializationError creates a new serialization error
func NewSerializationError(format string, err error) error {
	return &SerializationError{Format: format, Err: err}
}

// NewConnectionError creates a new connection error
func NewConnectionError(uri string, err error) error {
	return &ConnectionError{URI: uri, Err: err}
}

// IsTemporary checks if an error is temporary and retryable
func IsTemporary(err error) bool {
	if t, ok := err.(interface{ Temporary() bool }); ok {
		return t.Temporary()
	}
	return errors.Is(err, ErrQueueFull)
}
