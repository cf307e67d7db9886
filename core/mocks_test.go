package core

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/queueworks/consumer/errors"
	"github.com/queueworks/consumer/events"
	"github.com/queueworks/consumer/job"
)

// Mock implementations for testing

// listenCall records one ListenQueue invocation.
type listenCall struct {
	Queue   string
	Options job.ListenOptions
}

// MockConnection implements the Connection interface for testing
type MockConnection struct {
	mu           sync.Mutex
	connected    bool
	connectError error
	listenError  error
	closeError   error
	listenCalls  []listenCall
	closeCalls   int
	queues       map[string]chan job.Delivery
	closed       chan struct{}
	closeOnce    sync.Once
}

func NewMockConnection() *MockConnection {
	return &MockConnection{
		queues: make(map[string]chan job.Delivery),
		closed: make(chan struct{}),
	}
}

func (m *MockConnection) Connect(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.connectError != nil {
		return m.connectError
	}
	m.connected = true
	return nil
}

func (m *MockConnection) ListenQueue(ctx context.Context, queue string, opts job.ListenOptions) (<-chan job.Delivery, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.connected {
		return nil, errors.ErrNotConnected
	}
	if m.listenError != nil {
		return nil, m.listenError
	}

	m.listenCalls = append(m.listenCalls, listenCall{Queue: queue, Options: opts})

	ch, ok := m.queues[queue]
	if !ok {
		ch = make(chan job.Delivery, 16)
		m.queues[queue] = ch
	}
	return ch, nil
}

func (m *MockConnection) Close() error {
	m.mu.Lock()
	m.closeCalls++
	err := m.closeError
	queues := m.queues
	m.queues = make(map[string]chan job.Delivery)
	m.mu.Unlock()

	m.closeOnce.Do(func() {
		for _, ch := range queues {
			close(ch)
		}
		close(m.closed)
	})
	return err
}

func (m *MockConnection) Closed() <-chan struct{} {
	return m.closed
}

// Publish injects a delivery on a queue for the worker to consume.
func (m *MockConnection) Publish(queue string, payload []byte) {
	m.mu.Lock()
	ch, ok := m.queues[queue]
	m.mu.Unlock()

	if !ok {
		panic(fmt.Sprintf("publish to unlistened queue %q", queue))
	}
	ch <- job.Delivery{
		Payload: payload,
		Metadata: job.Metadata{
			Queue:      queue,
			ID:         fmt.Sprintf("msg-%d", time.Now().UnixNano()),
			EnqueuedAt: time.Now(),
		},
	}
}

func (m *MockConnection) SetConnectError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.connectError = err
}

func (m *MockConnection) SetListenError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listenError = err
}

func (m *MockConnection) ListenCalls() []listenCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]listenCall(nil), m.listenCalls...)
}

func (m *MockConnection) CloseCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closeCalls
}

// MockRegistry implements the Registry interface for testing
type MockRegistry struct {
	mu    sync.RWMutex
	specs map[string]job.Spec
}

func NewMockRegistry() *MockRegistry {
	return &MockRegistry{specs: make(map[string]job.Spec)}
}

func (m *MockRegistry) Add(spec job.Spec) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.specs[spec.Name] = spec
}

func (m *MockRegistry) Lookup(name string) (job.Spec, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	spec, ok := m.specs[name]
	return spec, ok
}

// MockRequirements implements the Requirements interface for testing. It
// derives "q:<name>" queues and records every resolution.
type MockRequirements struct {
	mu           sync.Mutex
	resolveError error
	resolved     []string
}

func NewMockRequirements() *MockRequirements {
	return &MockRequirements{}
}

func (m *MockRequirements) Resolve(ctx context.Context, spec job.Spec) (Binding, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.resolveError != nil {
		return Binding{}, m.resolveError
	}
	m.resolved = append(m.resolved, spec.Name)
	return Binding{Queue: "q:" + spec.Name, Config: QueueConfig{Durable: true}}, nil
}

func (m *MockRequirements) SetResolveError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resolveError = err
}

func (m *MockRequirements) Resolved() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.resolved...)
}

// invocationRecord captures one statistics hook.
type invocationRecord struct {
	Job   string
	Queue string
	Err   error
}

// MockStatistics implements the Statistics interface for testing
type MockStatistics struct {
	mu        sync.Mutex
	started   []invocationRecord
	completed []invocationRecord
	failed    []invocationRecord
}

func NewMockStatistics() *MockStatistics {
	return &MockStatistics{}
}

func (m *MockStatistics) JobStarted(ctx context.Context, spec job.Spec, meta job.Metadata) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.started = append(m.started, invocationRecord{Job: spec.Name, Queue: meta.Queue})
	return nil
}

func (m *MockStatistics) JobCompleted(ctx context.Context, spec job.Spec, meta job.Metadata, duration time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.completed = append(m.completed, invocationRecord{Job: spec.Name, Queue: meta.Queue})
	return nil
}

func (m *MockStatistics) JobFailed(ctx context.Context, spec job.Spec, meta job.Metadata, jobErr error, duration time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failed = append(m.failed, invocationRecord{Job: spec.Name, Queue: meta.Queue, Err: jobErr})
	return nil
}

func (m *MockStatistics) GetStarted() []invocationRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]invocationRecord(nil), m.started...)
}

func (m *MockStatistics) GetCompleted() []invocationRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]invocationRecord(nil), m.completed...)
}

func (m *MockStatistics) GetFailed() []invocationRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]invocationRecord(nil), m.failed...)
}

// CaptureNotifier records published events.
type CaptureNotifier struct {
	mu     sync.Mutex
	events []events.Event
}

func NewCaptureNotifier() *CaptureNotifier {
	return &CaptureNotifier{}
}

func (n *CaptureNotifier) Notify(event string, payload any) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, events.Event{Name: event, Payload: payload})
}

// Events returns all captured events with the given name, or all events when
// name is empty.
func (n *CaptureNotifier) Events(name string) []events.Event {
	n.mu.Lock()
	defer n.mu.Unlock()

	out := make([]events.Event, 0, len(n.events))
	for _, e := range n.events {
		if name == "" || e.Name == name {
			out = append(out, e)
		}
	}
	return out
}
