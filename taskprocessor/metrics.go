package taskprocessor

import "time"

// Metrics receives task execution events for monitoring systems
// (Prometheus, StatsD, etc.). Methods are invoked outside the processor
// lock and should be fast and non-blocking.
type Metrics interface {
	// TaskProcessed records one completed task and how long it ran.
	TaskProcessed(name string, duration time.Duration)

	// TaskRejected records a push that was refused (e.g. "shutdown").
	TaskRejected(name string, reason string)

	// QueueDepth records the queue depth observed after a push or a
	// completed execution.
	QueueDepth(name string, depth int)
}

// NilMetrics is the no-op default when no metrics sink is configured.
type NilMetrics struct{}

func (m *NilMetrics) TaskProcessed(name string, duration time.Duration) {}

func (m *NilMetrics) TaskRejected(name string, reason string) {}

func (m *NilMetrics) QueueDepth(name string, depth int) {}
