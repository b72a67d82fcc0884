// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	WorkerJobsCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_completed_total",
			Help: "Total number of jobs completed by worker",
		},
		[]string{"task_type"},
	)

	WorkerJobsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_failed_total",
			Help: "Total number of jobs failed by worker",
		},
		[]string{"task_type", "error_code"},
	)

	WorkerJobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "worker_job_duration_seconds",
			Help: "Duration of job processing in seconds",
		},
		[]string{"task_type"},
	)

	WorkerJobsActive = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "worker_jobs_active",
			Help: "Number of active jobs per worker",
		},
		[]string{"task_type"},
	)

	MatchesScored = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "matches_scored_total",
			Help: "Matches scored and stored, by tier and cold-start flag",
		},
		[]string{"tier", "cold_start"},
	)

	MatchOverallScore = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "match_overall_score",
			Help:    "Distribution of overall match scores",
			Buckets: prometheus.LinearBuckets(0, 10, 11),
		},
	)

	LifecycleTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "match_lifecycle_transitions_total",
			Help: "Lifecycle events applied to matches, by event and result",
		},
		[]string{"event", "result"},
	)

	OptimisticConflicts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "match_optimistic_conflicts_total",
			Help: "Version conflicts hit while writing match state",
		},
		[]string{"operation"},
	)

	DisclosuresRevealed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "match_disclosures_revealed_total",
			Help: "Matches that reached the revealed communication stage",
		},
	)

	BatchRescoreDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "match_batch_rescore_duration_seconds",
			Help:    "Duration of a full assignment rescore",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 12),
		},
	)

	ExpiredMatches = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "matches_expired_total",
			Help: "Matches moved to expired by the expiry sweep",
		},
	)
)
