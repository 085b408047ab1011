package prometheus

import (
	"time"
	"voiceorder-service/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP request metrics
	HttpRequestsTotal   prometheus.CounterVec
	HttpRequestDuration prometheus.HistogramVec

	// Authentication metrics
	AuthAttemptsCounter prometheus.Counter
	AuthErrorsCounter   prometheus.CounterVec

	// Database operation metrics
	DbOperationDuration prometheus.HistogramVec

	// Order pipeline metrics
	OrdersProcessedCounter prometheus.CounterVec
	PipelineDuration       prometheus.Histogram

	// Language model call metrics
	GeminiCallDuration  prometheus.HistogramVec
	GeminiErrorsCounter prometheus.CounterVec

	// Catalog cache metrics
	CatalogCacheHits   prometheus.Counter
	CatalogCacheMisses prometheus.Counter
)

// InitMetrics initializes Prometheus metrics with configuration
func InitMetrics(cfg *config.Config) {
	// Use metric prefix from configuration
	prefix := cfg.Metrics.Prefix

	// HTTP request metrics
	HttpRequestsTotal = *promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: prefix + "_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// HTTP request duration
	HttpRequestDuration = *promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    prefix + "_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	// Authentication metrics
	AuthAttemptsCounter = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: prefix + "_auth_attempts_total",
			Help: "Total number of authentication attempts",
		},
	)

	AuthErrorsCounter = *promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: prefix + "_auth_errors_total",
			Help: "Total number of authentication errors",
		},
		[]string{"reason"},
	)

	// Database operation metrics
	DbOperationDuration = *promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    prefix + "_db_operation_duration_seconds",
			Help:    "Duration of database operations in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation_type"},
	)

	// Order pipeline metrics
	OrdersProcessedCounter = *promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: prefix + "_orders_processed_total",
			Help: "Total number of processed orders by outcome",
		},
		[]string{"outcome"},
	)

	PipelineDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    prefix + "_order_pipeline_duration_seconds",
			Help:    "Duration of order pipeline runs in seconds",
			Buckets: []float64{1, 2.5, 5, 10, 20, 30, 60, 120, 180},
		},
	)

	// Language model call metrics
	GeminiCallDuration = *promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    prefix + "_gemini_call_duration_seconds",
			Help:    "Duration of language model calls in seconds",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 20, 30, 60, 120},
		},
		[]string{"kind"},
	)

	GeminiErrorsCounter = *promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: prefix + "_gemini_errors_total",
			Help: "Total number of failed language model calls",
		},
		[]string{"kind"},
	)

	// Catalog cache metrics
	CatalogCacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: prefix + "_catalog_cache_hits_total",
			Help: "Total number of catalog cache hits",
		},
	)

	CatalogCacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: prefix + "_catalog_cache_misses_total",
			Help: "Total number of catalog cache misses",
		},
	)
}

// TrackDBOperation returns a function that records the duration of a database operation
func TrackDBOperation(operationType string) func(startTime time.Time) {
	return func(startTime time.Time) {
		duration := time.Since(startTime).Seconds()
		DbOperationDuration.WithLabelValues(operationType).Observe(duration)
	}
}

// RecordAuthError increments the counter for authentication errors
func RecordAuthError(reason string) {
	AuthErrorsCounter.WithLabelValues(reason).Inc()
}

// RecordOrderProcessed increments the counter for processed orders
func RecordOrderProcessed(outcome string) {
	OrdersProcessedCounter.WithLabelValues(outcome).Inc()
}

// TrackGeminiCall returns a function that records the duration of a model call
func TrackGeminiCall(kind string) func(startTime time.Time) {
	return func(startTime time.Time) {
		duration := time.Since(startTime).Seconds()
		GeminiCallDuration.WithLabelValues(kind).Observe(duration)
	}
}

// RecordGeminiError increments the counter for failed model calls
func RecordGeminiError(kind string) {
	GeminiErrorsCounter.WithLabelValues(kind).Inc()
}

// ObservePipelineDuration records how long an order pipeline run took
func ObservePipelineDuration(startTime time.Time) {
	if PipelineDuration != nil {
		PipelineDuration.Observe(time.Since(startTime).Seconds())
	}
}

// RecordCatalogCacheHit increments the catalog cache hit counter
func RecordCatalogCacheHit() {
	if CatalogCacheHits != nil {
		CatalogCacheHits.Inc()
	}
}

// RecordCatalogCacheMiss increments the catalog cache miss counter
func RecordCatalogCacheMiss() {
	if CatalogCacheMisses != nil {
		CatalogCacheMisses.Inc()
	}
}
