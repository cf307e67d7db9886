package core

import (
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"
)

// recordingHandler is a slog.Handler that keeps every record so tests can
// count log lines by level.
type recordingHandler struct {
	mu      sync.Mutex
	records []slog.Record
}

func (h *recordingHandler) Enabled(context.Context, slog.Level) bool { return true }

func (h *recordingHandler) Handle(_ context.Context, r slog.Record) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.records = append(h.records, r)
	return nil
}

func (h *recordingHandler) WithAttrs([]slog.Attr) slog.Handler { return h }
func (h *recordingHandler) WithGroup(string) slog.Handler      { return h }

// CountLevel returns the number of records logged at exactly level.
func (h *recordingHandler) CountLevel(level slog.Level) int {
	h.mu.Lock()
	defer h.mu.Unlock()

	n := 0
	for _, r := range h.records {
		if r.Level == level {
			n++
		}
	}
	return n
}

// TestSetup provides common test dependencies
type TestSetup struct {
	Conn     *MockConnection
	Registry *MockRegistry
	Req      *MockRequirements
	Stats    *MockStatistics
	Notifier *CaptureNotifier
	Log      *recordingHandler
}

// NewTestSetup creates a standard test setup with all mocks
func NewTestSetup() *TestSetup {
	return &TestSetup{
		Conn:     NewMockConnection(),
		Registry: NewMockRegistry(),
		Req:      NewMockRequirements(),
		Stats:    NewMockStatistics(),
		Notifier: NewCaptureNotifier(),
		Log:      &recordingHandler{},
	}
}

// NewWorker builds a worker wired to the setup's mocks.
func (s *TestSetup) NewWorker(ids []any, opts ...Option) (*Worker, error) {
	base := []Option{
		WithLogger(slog.New(s.Log)),
		WithNotifier(s.Notifier),
		WithStatistics(s.Stats),
	}
	return NewWorker(s.Conn, s.Registry, s.Req, ids, append(base, opts...)...)
}

// ContextWithTimeout creates a context with standard timeout for tests
func ContextWithTimeout(t *testing.T) (context.Context, context.CancelFunc) {
	t.Helper()
	return context.WithTimeout(context.Background(), time.Second)
}

// Eventually polls cond until it is true or the deadline passes.
func Eventually(t *testing.T, cond func() bool, msg string) {
	t.Helper()

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal(msg)
}
