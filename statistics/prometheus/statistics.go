// Package prometheus exports per-invocation consumer metrics.
package prometheus

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/queueworks/consumer/job"
)

const namespace = "consumer"

// Statistics implements core.Statistics backed by prometheus collectors.
type Statistics struct {
	completed *prometheus.CounterVec
	failed    *prometheus.CounterVec
	duration  *prometheus.HistogramVec
	inflight  prometheus.Gauge
}

// NewStatistics registers the consumer collectors on reg. Pass
// prometheus.DefaultRegisterer for the default registry.
func NewStatistics(reg prometheus.Registerer) *Statistics {
	factory := promauto.With(reg)

	return &Statistics{
		completed: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "jobs_completed_total",
			Help:      "Number of successfully processed jobs.",
		}, []string{"job", "queue"}),

		failed: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "jobs_failed_total",
			Help:      "Number of jobs whose invocation raised an error.",
		}, []string{"job", "queue"}),

		duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "job_duration_seconds",
			Help:      "Duration of job invocations.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"job", "queue"}),

		inflight: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "jobs_inflight",
			Help:      "Job invocations currently executing.",
		}),
	}
}

// JobStarted records the start of an invocation.
func (s *Statistics) JobStarted(ctx context.Context, spec job.Spec, meta job.Metadata) error {
	s.inflight.Inc()
	return nil
}

// JobCompleted records a successful invocation.
func (s *Statistics) JobCompleted(ctx context.Context, spec job.Spec, meta job.Metadata, duration time.Duration) error {
	s.inflight.Dec()
	s.completed.WithLabelValues(spec.Name, meta.Queue).Inc()
	s.duration.WithLabelValues(spec.Name, meta.Queue).Observe(duration.Seconds())
	return nil
}

// JobFailed records a failed invocation.
func (s *Statistics) JobFailed(ctx context.Context, spec job.Spec, meta job.Metadata, jobErr error, duration time.Duration) error {
	s.inflight.Dec()
	s.failed.WithLabelValues(spec.Name, meta.Queue).Inc()
	s.duration.WithLabelValues(spec.Name, meta.Queue).Observe(duration.Seconds())
	return nil
}
