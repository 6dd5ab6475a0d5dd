package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ProfileLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "explorer_profile_lookups_total",
		Help: "Per-type profile lookups, labelled by outcome (mapped, unmapped, error).",
	}, []string{"outcome"})

	ConfigBuilds = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "explorer_config_builds_total",
		Help: "Query builder configuration builds, labelled by outcome.",
	}, []string{"outcome"})

	ConfigBuildDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "explorer_config_build_duration_ms",
		Help:    "Query builder configuration build latency in milliseconds.",
		Buckets: []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
	})

	SubmissionsEnqueued = promauto.NewCounter(prometheus.CounterOpts{
		Name: "explorer_submissions_enqueued_total",
		Help: "Total number of submissions placed on the submission queue.",
	})

	SubmissionsDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "explorer_submissions_dropped_total",
		Help: "Total number of submissions rejected due to a full queue.",
	})

	SubmissionSteps = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "explorer_submission_steps_total",
		Help: "Submission steps, labelled by step and outcome (ran, skipped, failed).",
	}, []string{"step", "outcome"})

	SubmissionsCompleted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "explorer_submissions_completed_total",
		Help: "Finished submissions, labelled by whether they were cancelled.",
	}, []string{"cancelled"})

	QueueUtilization = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "explorer_submission_queue_utilization_ratio",
		Help: "Current submission queue utilization (0 to 1).",
	})
)
