package core

import (
	"log/slog"
	"time"

	"github.com/queueworks/consumer/events"
)

// LevelFatal marks failures that abort the operation entirely. slog has no
// built-in level above Error; construction and PID-file failures log here
// before the error is returned.
const LevelFatal = slog.Level(12)

// Config holds worker configuration
type Config struct {
	Logger       *slog.Logger
	Notifier     events.Notifier
	Statistics   Statistics
	DrainTimeout time.Duration
}

// Option is a function that modifies worker configuration
type Option func(*Config)

// defaultConfig returns default configuration
func defaultConfig() *Config {
	return &Config{
		Logger:     slog.Default(),
		Notifier:   events.Default(),
		Statistics: noopStatistics{},

		// DrainTimeout zero means a graceful stop waits unboundedly for
		// in-flight jobs, matching the historical behavior.
		DrainTimeout: 0,
	}
}

// WithLogger sets the worker's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Config) {
		c.Logger = logger
	}
}

// WithNotifier sets the lifecycle event notifier.
func WithNotifier(n events.Notifier) Option {
	return func(c *Config) {
		c.Notifier = n
	}
}

// WithStatistics sets the invocation statistics sink.
func WithStatistics(s Statistics) Option {
	return func(c *Config) {
		c.Statistics = s
	}
}

// WithDrainTimeout bounds the graceful-stop drain wait. When the timeout
// elapses the stop proceeds as an immediate close with jobs still in
// flight. Zero restores the unbounded wait.
func WithDrainTimeout(d time.Duration) Option {
	return func(c *Config) {
		c.DrainTimeout = d
	}
}
