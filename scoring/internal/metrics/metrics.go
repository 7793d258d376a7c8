package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Scoring runs
	ScoreRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scalperguard_scoring_runs_total",
			Help: "Total number of scoring runs",
		},
		[]string{"trigger", "status"},
	)

	ScoreDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "scalperguard_scoring_duration_seconds",
			Help:    "Duration of a full scoring run in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	SnapshotEvents = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "scalperguard_scoring_snapshot_events",
			Help: "Number of transfer events in the last snapshot",
		},
	)

	WalletsScored = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "scalperguard_scoring_wallets",
			Help: "Number of wallets in the last report",
		},
	)

	DecisionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scalperguard_scoring_decisions_total",
			Help: "Decisions issued, by label",
		},
		[]string{"decision"},
	)

	// Transfer log
	SnapshotErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scalperguard_scoring_snapshot_errors_total",
			Help: "Failed transfer log snapshots",
		},
		[]string{"backend"},
	)

	// Publishing
	PublishedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scalperguard_scoring_published_total",
			Help: "Decision messages published, by backend and status",
		},
		[]string{"backend", "status"},
	)

	// HTTP
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scalperguard_scoring_http_requests_total",
			Help: "HTTP requests, by endpoint and status code",
		},
		[]string{"endpoint", "code"},
	)

	RateLimitHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "scalperguard_scoring_rate_limit_hits_total",
			Help: "Requests rejected by the rate limiter",
		},
	)

	// Scheduler
	SchedulerLastRun = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "scalperguard_scoring_scheduler_last_run_timestamp_seconds",
			Help: "Unix time of the last completed scheduled run",
		},
	)
)
