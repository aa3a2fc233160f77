package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for the results ingestion and evaluation pipeline

var (
	// Source metrics
	SourceCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sportseval_source_calls_total",
			Help: "Total number of scoreboard source calls",
		},
		[]string{"sport", "status"},
	)

	SourceCallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sportseval_source_call_duration_seconds",
			Help:    "Duration of scoreboard source calls in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"sport"},
	)

	// Ingestion metrics
	ResultsIngested = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sportseval_results_ingested_total",
			Help: "Game result records processed by outcome",
		},
		[]string{"sport", "outcome"}, // outcome: inserted, skipped, error
	)

	// Identity resolution metrics
	IdentityResolutions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sportseval_identity_resolutions_total",
			Help: "Identity resolution attempts by outcome",
		},
		[]string{"sport", "outcome"}, // outcome: matched, unmatched, ambiguous
	)

	AmbiguousMatchKeys = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "sportseval_ambiguous_match_keys_total",
			Help: "Forecast index keys that collided with conflicting game ids",
		},
	)

	// Recompute metrics
	RecomputeRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sportseval_recompute_runs_total",
			Help: "Derived-field recompute runs by status",
		},
		[]string{"status"},
	)

	RecomputeRowsAffected = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "sportseval_recompute_rows_affected",
			Help: "Forecast rows whose derived fields changed in the last recompute",
		},
	)

	RecomputeDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "sportseval_recompute_duration_seconds",
			Help:    "Duration of derived-field recompute runs in seconds",
			Buckets: []float64{1, 5, 10, 30, 60, 120, 300},
		},
	)

	// Database metrics
	DBQueriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sportseval_db_queries_total",
			Help: "Total number of database queries",
		},
		[]string{"operation", "table", "status"},
	)

	// Cache metrics
	CacheHitsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "sportseval_cache_hits_total",
			Help: "Total number of identity index cache hits",
		},
	)

	CacheMissesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "sportseval_cache_misses_total",
			Help: "Total number of identity index cache misses",
		},
	)

	// Error metrics
	ErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sportseval_errors_total",
			Help: "Total number of errors",
		},
		[]string{"component", "error_type"},
	)

	// Run metrics
	DailyUpdateRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sportseval_daily_update_runs_total",
			Help: "Daily update runs by sport and status",
		},
		[]string{"sport", "status"},
	)

	LastSuccessfulRun = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "sportseval_last_successful_run_timestamp",
			Help: "Timestamp of the last successful daily update run",
		},
	)

	// System metrics
	SystemUptime = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "sportseval_system_uptime_seconds",
			Help: "System uptime in seconds",
		},
	)
)

// RecordSourceCall records a scoreboard source call
func RecordSourceCall(sport, status string, duration float64) {
	SourceCallsTotal.WithLabelValues(sport, status).Inc()
	SourceCallDuration.WithLabelValues(sport).Observe(duration)
}

// RecordIngestion records ingestion outcomes for a batch
func RecordIngestion(sport string, inserted, skipped, errors int) {
	ResultsIngested.WithLabelValues(sport, "inserted").Add(float64(inserted))
	ResultsIngested.WithLabelValues(sport, "skipped").Add(float64(skipped))
	ResultsIngested.WithLabelValues(sport, "error").Add(float64(errors))
}

// RecordResolution records an identity resolution attempt
func RecordResolution(sport, outcome string) {
	IdentityResolutions.WithLabelValues(sport, outcome).Inc()
}

// RecordAmbiguousKey records a forecast index key collision
func RecordAmbiguousKey() {
	AmbiguousMatchKeys.Inc()
}

// RecordRecompute records a derived-field recompute run
func RecordRecompute(status string, rowsAffected int, duration float64) {
	RecomputeRunsTotal.WithLabelValues(status).Inc()
	RecomputeDuration.Observe(duration)
	if status == "success" {
		RecomputeRowsAffected.Set(float64(rowsAffected))
	}
}

// RecordDBQuery records a database query metric
func RecordDBQuery(operation, table, status string) {
	DBQueriesTotal.WithLabelValues(operation, table, status).Inc()
}

// RecordCacheHit records a cache hit
func RecordCacheHit() {
	CacheHitsTotal.Inc()
}

// RecordCacheMiss records a cache miss
func RecordCacheMiss() {
	CacheMissesTotal.Inc()
}

// RecordError records an error
func RecordError(component, errorType string) {
	ErrorsTotal.WithLabelValues(component, errorType).Inc()
}

// RecordDailyUpdate records a daily update run
func RecordDailyUpdate(sport, status string) {
	DailyUpdateRuns.WithLabelValues(sport, status).Inc()
	if status == "success" {
		LastSuccessfulRun.SetToCurrentTime()
	}
}
