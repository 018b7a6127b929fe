// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Scan metrics
	ScansTotal   *prometheus.CounterVec
	ScanDuration prometheus.Histogram
	ItemsFetched prometheus.Counter
	ItemsSkipped prometheus.Counter

	// Storage metrics
	OccurrencesAppended  prometheus.Counter
	OccurrenceDuplicates prometheus.Counter
	DBQueryDuration      *prometheus.HistogramVec
	DBQueryErrors        *prometheus.CounterVec

	// Aggregation metrics
	SeriesRequests      *prometheus.CounterVec
	MalformedTimestamps prometheus.Counter

	// Reporting metrics
	ReportsGenerated prometheus.Counter

	// Health metrics
	LastSuccessfulScan prometheus.Gauge
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "ticker_mention_lab"
	}

	return &Metrics{
		// Scan metrics
		ScansTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scan",
			Name:      "runs_total",
			Help:      "Total number of scan runs by status",
		}, []string{"status"}),
		ScanDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "scan",
			Name:      "duration_seconds",
			Help:      "Scan execution duration in seconds",
			Buckets:   []float64{0.5, 1, 5, 10, 30, 60, 120},
		}),
		ItemsFetched: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scan",
			Name:      "items_fetched_total",
			Help:      "Total number of forum items fetched",
		}),
		ItemsSkipped: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scan",
			Name:      "items_skipped_total",
			Help:      "Total number of items skipped due to extraction failures",
		}),

		// Storage metrics
		OccurrencesAppended: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "storage",
			Name:      "occurrences_appended_total",
			Help:      "Total number of new occurrence rows inserted",
		}),
		OccurrenceDuplicates: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "storage",
			Name:      "occurrence_duplicates_total",
			Help:      "Total number of occurrence writes dropped as duplicates",
		}),
		DBQueryDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_duration_seconds",
			Help:      "Database query duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"database", "operation"}),
		DBQueryErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_errors_total",
			Help:      "Total number of database query errors",
		}, []string{"database", "operation"}),

		// Aggregation metrics
		SeriesRequests: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "aggregate",
			Name:      "series_requests_total",
			Help:      "Total number of time series requests by granularity",
		}, []string{"granularity"}),
		MalformedTimestamps: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "aggregate",
			Name:      "malformed_timestamps_total",
			Help:      "Total number of stored timestamps skipped during bucketing",
		}),

		// Reporting metrics
		ReportsGenerated: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reporting",
			Name:      "reports_generated_total",
			Help:      "Total number of reports generated",
		}),

		// Health metrics
		LastSuccessfulScan: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_scan_timestamp",
			Help:      "Unix timestamp of last successful scan",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordScan records a completed scan run.
func RecordScan(status string, durationSeconds float64) {
	DefaultMetrics.ScansTotal.WithLabelValues(status).Inc()
	DefaultMetrics.ScanDuration.Observe(durationSeconds)
}

// RecordItemsFetched increments the fetched items counter.
func RecordItemsFetched(n int) {
	DefaultMetrics.ItemsFetched.Add(float64(n))
}

// RecordItemsSkipped increments the skipped items counter.
func RecordItemsSkipped(n int) {
	DefaultMetrics.ItemsSkipped.Add(float64(n))
}

// RecordOccurrences records the outcome of one append batch.
func RecordOccurrences(inserted, duplicates int) {
	DefaultMetrics.OccurrencesAppended.Add(float64(inserted))
	DefaultMetrics.OccurrenceDuplicates.Add(float64(duplicates))
}

// RecordDBQuery records database query metrics.
func RecordDBQuery(database, operation string, seconds float64, err error) {
	DefaultMetrics.DBQueryDuration.WithLabelValues(database, operation).Observe(seconds)
	if err != nil {
		DefaultMetrics.DBQueryErrors.WithLabelValues(database, operation).Inc()
	}
}

// RecordSeriesRequest records one aggregation request.
func RecordSeriesRequest(granularity string, malformed int) {
	DefaultMetrics.SeriesRequests.WithLabelValues(granularity).Inc()
	DefaultMetrics.MalformedTimestamps.Add(float64(malformed))
}

// RecordReportGenerated increments the reports generated counter.
func RecordReportGenerated() {
	DefaultMetrics.ReportsGenerated.Inc()
}

// RecordSuccessfulScan updates the last successful scan gauge.
func RecordSuccessfulScan(unixSeconds int64) {
	DefaultMetrics.LastSuccessfulScan.Set(float64(unixSeconds))
}
