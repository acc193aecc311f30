package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ComplaintsCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "grievance_complaints_created_total",
			Help: "Total number of complaints created",
		},
		[]string{"category", "urgent"},
	)

	StatusTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "grievance_status_transitions_total",
			Help: "Complaint status transitions by target status",
		},
		[]string{"status"},
	)

	Routings = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "grievance_routings_total",
			Help: "Routing actions by method and outcome",
		},
		[]string{"method", "outcome"},
	)

	OutboundSends = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "grievance_outbound_sends_total",
			Help: "Outbound email/SMS attempts by transport and outcome",
		},
		[]string{"transport", "outcome"},
	)

	SweepReminders = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "grievance_sweep_reminders_total",
			Help: "Deadline reminders raised by the sweep, by round",
		},
		[]string{"round"},
	)

	SweepPassDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "grievance_sweep_pass_duration_seconds",
			Help:    "Duration of a deadline sweep pass",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
		},
	)
)
