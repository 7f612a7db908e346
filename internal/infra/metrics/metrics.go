// Package metrics exposes Prometheus instrumentation for the queue worker.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// QueueEntriesProcessed counts queue entries by terminal outcome.
	QueueEntriesProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "push_queue_entries_processed_total",
			Help: "Total number of queue entries processed by outcome",
		},
		[]string{"outcome"}, // outcome: completed, dropped, retained
	)

	// QueueEntriesReclaimed counts stale claims swept back to pending.
	QueueEntriesReclaimed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "push_queue_entries_reclaimed_total",
			Help: "Total number of stale claimed entries returned to pending",
		},
	)

	// NotificationsDispatched counts per-token dispatch results.
	NotificationsDispatched = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "push_notifications_dispatched_total",
			Help: "Total number of per-token push dispatch results",
		},
		[]string{"status"}, // status: sent, failed, invalid_token
	)

	// TickDuration measures one full worker tick.
	TickDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "push_worker_tick_duration_seconds",
			Help:    "Queue worker tick duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12), // 10ms to ~40s
		},
	)
)

// Entry outcomes.
const (
	OutcomeCompleted = "completed"
	OutcomeDropped   = "dropped"
	OutcomeRetained  = "retained"
)

// Dispatch statuses.
const (
	StatusSent         = "sent"
	StatusFailed       = "failed"
	StatusInvalidToken = "invalid_token"
)

// IncrementEntriesProcessed increments the per-outcome entry counter.
func IncrementEntriesProcessed(outcome string) {
	QueueEntriesProcessed.WithLabelValues(outcome).Inc()
}

// AddEntriesReclaimed adds to the reclaimed-entry counter.
func AddEntriesReclaimed(n int64) {
	QueueEntriesReclaimed.Add(float64(n))
}

// AddNotificationsDispatched adds to the per-status dispatch counter.
func AddNotificationsDispatched(status string, n int) {
	NotificationsDispatched.WithLabelValues(status).Add(float64(n))
}

// ObserveTickDuration records one worker tick duration.
func ObserveTickDuration(duration time.Duration) {
	TickDuration.Observe(duration.Seconds())
}
