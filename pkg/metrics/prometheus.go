package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	JobsSubmitted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "printdesk_jobs_submitted_total",
			Help: "Total number of print jobs submitted",
		},
	)

	StatusTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "printdesk_status_transitions_total",
			Help: "Total number of job status transitions",
		},
		[]string{"from", "to"},
	)

	Notifications = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "printdesk_notifications_total",
			Help: "Total number of notification attempts by channel and outcome",
		},
		[]string{"channel", "status"},
	)

	DispatchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "printdesk_dispatch_duration_seconds",
			Help:    "Notification dispatch duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
		},
	)
)
