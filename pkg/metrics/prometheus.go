// Package metrics provides Prometheus metrics for the inactive player finder.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Default buckets for counts of rows and players per request.
var defaultSizeBuckets = []float64{0, 1, 5, 10, 25, 50, 100, 250, 500, 1000, 5000} //nolint:gochecknoglobals // static bucket layout

// Manager manages all Prometheus metrics for the service.
type Manager struct {
	namespace      string
	subsystem      string
	latencyBuckets []float64
	sizeBuckets    []float64
	constLabels    map[string]string
	metricPrefix   string
	registry       prometheus.Registerer

	// Core business metrics
	requestsServed    prometheus.Counter
	requestFailures   *prometheus.CounterVec
	playersMatched    prometheus.Counter
	playersInactive   prometheus.Counter
	rankedRows        prometheus.Histogram
	classifyLatency   prometheus.Histogram
	snapshotPlayers   *prometheus.GaugeVec
	inactiveRatioLast prometheus.Gauge

	// Provider metrics
	providerRequests *prometheus.CounterVec
	providerLatency  *prometheus.HistogramVec
	providerRetries  *prometheus.CounterVec

	// HTTP performance metrics
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Error metrics
	errorRateByType     *prometheus.CounterVec
	errorRateByEndpoint *prometheus.CounterVec
	errorRateByComp     *prometheus.CounterVec
	errorLatency        *prometheus.HistogramVec

	// System performance metrics
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:      "inactives",
		subsystem:      "finder",
		latencyBuckets: prometheus.DefBuckets,
		sizeBuckets:    defaultSizeBuckets,
		constLabels:    make(map[string]string),
		registry:       prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

func (m *Manager) name(n string) string {
	return m.metricPrefix + n
}

func (m *Manager) initializeMetrics() { //nolint:funlen // one place for every metric definition
	auto := promauto.With(m.registry)
	labels := prometheus.Labels(m.constLabels)

	m.requestsServed = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: labels,
		Name: m.name("requests_served_total"),
		Help: "Total number of inactive searches answered successfully",
	})
	m.requestFailures = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: labels,
		Name: m.name("request_failures_total"),
		Help: "Total number of inactive searches that failed, by error kind",
	}, []string{"kind"})
	m.playersMatched = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: labels,
		Name: m.name("players_matched_total"),
		Help: "Total number of players present in both snapshots",
	})
	m.playersInactive = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: labels,
		Name: m.name("players_inactive_total"),
		Help: "Total number of players classified inactive",
	})
	m.rankedRows = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: labels,
		Name:    m.name("ranked_rows"),
		Help:    "Number of village rows returned per search",
		Buckets: m.sizeBuckets,
	})
	m.classifyLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: labels,
		Name:    m.name("classification_latency_milliseconds"),
		Help:    "Time spent matching and classifying players per search",
		Buckets: m.latencyBuckets,
	})
	m.snapshotPlayers = auto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: labels,
		Name: m.name("snapshot_players"),
		Help: "Number of players in the last fetched snapshot, by snapshot age",
	}, []string{"age"})
	m.inactiveRatioLast = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: labels,
		Name: m.name("inactive_ratio"),
		Help: "Share of matched players classified inactive in the last search",
	})

	m.providerRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: labels,
		Name: m.name("provider_requests_total"),
		Help: "Total number of external API calls by action and outcome",
	}, []string{"action", "outcome"})
	m.providerLatency = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: labels,
		Name:    m.name("provider_latency_milliseconds"),
		Help:    "External API call latency in milliseconds, retries included",
		Buckets: m.latencyBuckets,
	}, []string{"action"})
	m.providerRetries = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: labels,
		Name: m.name("provider_retries_total"),
		Help: "Total number of retried external API calls by action",
	}, []string{"action"})

	m.httpRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: labels,
		Name: m.name("http_requests_total"),
		Help: "Total number of HTTP requests by endpoint and method",
	}, []string{"endpoint", "method", "status_code"})
	m.httpRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: labels,
		Name:    m.name("http_request_duration_milliseconds"),
		Help:    "HTTP request duration in milliseconds",
		Buckets: m.latencyBuckets,
	}, []string{"endpoint", "method", "status_code"})

	m.errorRateByType = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: labels,
		Name: m.name("errors_by_type_total"),
		Help: "Total number of errors by type and severity",
	}, []string{"error_type", "severity"})
	m.errorRateByEndpoint = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: labels,
		Name: m.name("errors_by_endpoint_total"),
		Help: "Total number of errors by endpoint",
	}, []string{"endpoint", "method", "error_type"})
	m.errorRateByComp = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: labels,
		Name: m.name("errors_by_component_total"),
		Help: "Total number of errors by component",
	}, []string{"component", "error_type"})
	m.errorLatency = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: labels,
		Name:    m.name("error_latency_milliseconds"),
		Help:    "Latency of operations that ended in an error",
		Buckets: m.latencyBuckets,
	}, []string{"component", "error_type"})

	m.systemMemoryUsage = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: labels,
		Name: m.name("system_memory_bytes"),
		Help: "Allocated heap memory in bytes",
	})
	m.systemGoroutineCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: labels,
		Name: m.name("system_goroutines"),
		Help: "Number of goroutines",
	})
	m.systemGCPauseTime = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: labels,
		Name:    m.name("system_gc_pause_milliseconds"),
		Help:    "Average GC pause time in milliseconds",
		Buckets: m.latencyBuckets,
	})
}

// Business metrics.

// RecordRequestServed increments the successful search counter.
func RecordRequestServed() {
	globalManager.requestsServed.Inc()
}

// RecordRequestFailure increments the failed search counter for kind.
func RecordRequestFailure(kind string) {
	globalManager.requestFailures.WithLabelValues(kind).Inc()
}

// RecordClassification records the outcome of one matching and
// classification run.
func RecordClassification(matched, inactive int, latencyMs float64) {
	globalManager.playersMatched.Add(float64(matched))
	globalManager.playersInactive.Add(float64(inactive))
	globalManager.classifyLatency.Observe(latencyMs)
	if matched > 0 {
		globalManager.inactiveRatioLast.Set(float64(inactive) / float64(matched))
	}
}

// RecordRankedRows records how many rows a search returned.
func RecordRankedRows(count int) {
	globalManager.rankedRows.Observe(float64(count))
}

// UpdateSnapshotPlayers sets the player count of the last snapshot of age.
func UpdateSnapshotPlayers(age string, count int) {
	globalManager.snapshotPlayers.WithLabelValues(age).Set(float64(count))
}

// Provider metrics.

// RecordProviderRequest counts an external API call.
func RecordProviderRequest(action, outcome string) {
	globalManager.providerRequests.WithLabelValues(action, outcome).Inc()
}

// RecordProviderLatency records an external API call latency.
func RecordProviderLatency(action string, latencyMs float64) {
	globalManager.providerLatency.WithLabelValues(action).Observe(latencyMs)
}

// RecordProviderRetry counts a retried external API call.
func RecordProviderRetry(action string) {
	globalManager.providerRetries.WithLabelValues(action).Inc()
}

// HTTP metrics.

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// Error metrics.

// RecordErrorByType records an error with type and severity labels.
func RecordErrorByType(errorType, severity string) {
	globalManager.errorRateByType.WithLabelValues(errorType, severity).Inc()
}

// RecordErrorByEndpoint records an error with endpoint, method, and error type labels.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	globalManager.errorRateByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
}

// RecordErrorByComponent records an error with component and error type labels.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorRateByComp.WithLabelValues(component, errorType).Inc()
}

// RecordErrorLatency records the latency of an operation that resulted in an error.
func RecordErrorLatency(component, errorType string, latencyMs float64) {
	globalManager.errorLatency.WithLabelValues(component, errorType).Observe(latencyMs)
}

// System metrics.

// UpdateSystemMemoryUsage sets the system memory usage in bytes.
func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the number of goroutines.
func UpdateSystemGoroutineCount(count int) {
	globalManager.systemGoroutineCount.Set(float64(count))
}

// RecordSystemGCPauseTime records GC pause time in milliseconds.
func RecordSystemGCPauseTime(pauseMs float64) {
	globalManager.systemGCPauseTime.Observe(pauseMs)
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
