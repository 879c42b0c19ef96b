// Package metrics provides Prometheus metrics for the FlowSense analytics service.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Default metrics configuration constants.
const (
	defaultNamespace       = "flowsense"
	defaultSubsystem       = "analytics"
	defaultRefreshInterval = 10 * time.Second
)

// scoreBuckets spans the 0-100 health score range.
var scoreBuckets = []float64{10, 20, 30, 40, 55, 70, 85, 100} //nolint:gochecknoglobals // fixed bucket layout

// Manager owns every Prometheus collector of the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	enabled          bool
	refreshInterval  time.Duration
	customLabels     map[string]string
	metricPrefix     string
	registry         prometheus.Registerer

	// Engine
	reportsComputed     *prometheus.CounterVec
	computationLatency  *prometheus.HistogramVec
	anomaliesDetected   *prometheus.CounterVec
	predictionsComputed *prometheus.CounterVec
	healthScores        prometheus.Histogram

	// Cache
	cacheLookups *prometheus.CounterVec

	// Storage and ingestion
	ingestedRecords   *prometheus.CounterVec
	ingestDuplicates  prometheus.Counter
	storeRecords      *prometheus.GaugeVec
	storeQueryLatency *prometheus.HistogramVec

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Queue
	queueSize          prometheus.Gauge
	queueCapacity      prometheus.Gauge
	queueUtilization   prometheus.Gauge
	queueEnqueued      prometheus.Counter
	queueDequeued      prometheus.Counter
	queueEnqueueErrors prometheus.Counter

	// Workers
	workerActiveCount       prometheus.Gauge
	workerJobsProcessed     prometheus.Counter
	workerErrors            prometheus.Counter
	workerProcessingLatency prometheus.Histogram

	// Errors
	errorsByComponent *prometheus.CounterVec
	errorsByEndpoint  *prometheus.CounterVec

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
}

var globalManager *Manager //nolint:gochecknoglobals // singleton metrics manager

// customRegistry keeps the default Go collectors out of /healthz.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // metrics registry

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a metrics manager and registers its collectors.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        defaultNamespace,
		subsystem:        defaultSubsystem,
		histogramBuckets: prometheus.DefBuckets,
		enabled:          true,
		refreshInterval:  defaultRefreshInterval,
		customLabels:     make(map[string]string),
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

func (m *Manager) name(base string) string {
	if m.metricPrefix == "" {
		return base
	}
	return m.metricPrefix + "_" + base
}

func (m *Manager) counterOpts(name, help string) prometheus.CounterOpts {
	return prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name(name),
		Help:        help,
		ConstLabels: m.customLabels,
	}
}

func (m *Manager) gaugeOpts(name, help string) prometheus.GaugeOpts {
	return prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name(name),
		Help:        help,
		ConstLabels: m.customLabels,
	}
}

func (m *Manager) histogramOpts(name, help string, buckets []float64) prometheus.HistogramOpts {
	return prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name(name),
		Help:        help,
		Buckets:     buckets,
		ConstLabels: m.customLabels,
	}
}

func (m *Manager) initializeMetrics() { //nolint:funlen // one place for every collector
	auto := promauto.With(m.registry)

	m.reportsComputed = auto.NewCounterVec(
		m.counterOpts("reports_computed_total", "Insights reports computed by outcome"),
		[]string{"outcome"},
	)
	m.computationLatency = auto.NewHistogramVec(
		m.histogramOpts("computation_duration_milliseconds", "Engine operation latency in milliseconds", m.histogramBuckets),
		[]string{"operation"},
	)
	m.anomaliesDetected = auto.NewCounterVec(
		m.counterOpts("anomalies_detected_total", "Biometric anomalies flagged by type and severity"),
		[]string{"type", "severity"},
	)
	m.predictionsComputed = auto.NewCounterVec(
		m.counterOpts("predictions_total", "Predictions produced by kind and data sufficiency"),
		[]string{"kind", "sufficient"},
	)
	m.healthScores = auto.NewHistogram(
		m.histogramOpts("health_score", "Distribution of computed health scores", scoreBuckets),
	)

	m.cacheLookups = auto.NewCounterVec(
		m.counterOpts("cache_lookups_total", "Report cache lookups by backend and result"),
		[]string{"backend", "result"},
	)

	m.ingestedRecords = auto.NewCounterVec(
		m.counterOpts("ingested_records_total", "Records accepted by kind"),
		[]string{"kind"},
	)
	m.ingestDuplicates = auto.NewCounter(
		m.counterOpts("ingest_duplicates_total", "Samples skipped because their id was already ingested"),
	)
	m.storeRecords = auto.NewGaugeVec(
		m.gaugeOpts("store_records", "Records held by the store by kind"),
		[]string{"kind"},
	)
	m.storeQueryLatency = auto.NewHistogramVec(
		m.histogramOpts("store_query_duration_milliseconds", "Storage query latency in milliseconds", m.histogramBuckets),
		[]string{"query"},
	)

	m.httpRequests = auto.NewCounterVec(
		m.counterOpts("http_requests_total", "HTTP requests by endpoint, method and status"),
		[]string{"endpoint", "method", "status_code"},
	)
	m.httpRequestDuration = auto.NewHistogramVec(
		m.histogramOpts("http_request_duration_milliseconds", "HTTP request duration in milliseconds", m.histogramBuckets),
		[]string{"endpoint", "method", "status_code"},
	)

	m.queueSize = auto.NewGauge(m.gaugeOpts("queue_size", "Refresh jobs waiting in the queue"))
	m.queueCapacity = auto.NewGauge(m.gaugeOpts("queue_capacity", "Maximum refresh queue capacity"))
	m.queueUtilization = auto.NewGauge(m.gaugeOpts("queue_utilization_ratio", "Refresh queue fill ratio"))
	m.queueEnqueued = auto.NewCounter(m.counterOpts("queue_enqueued_total", "Refresh jobs enqueued"))
	m.queueDequeued = auto.NewCounter(m.counterOpts("queue_dequeued_total", "Refresh jobs dequeued"))
	m.queueEnqueueErrors = auto.NewCounter(m.counterOpts("queue_enqueue_errors_total", "Refresh jobs rejected by the queue"))

	m.workerActiveCount = auto.NewGauge(m.gaugeOpts("worker_active_count", "Running refresh workers"))
	m.workerJobsProcessed = auto.NewCounter(m.counterOpts("worker_jobs_processed_total", "Refresh jobs completed"))
	m.workerErrors = auto.NewCounter(m.counterOpts("worker_errors_total", "Refresh jobs that failed"))
	m.workerProcessingLatency = auto.NewHistogram(
		m.histogramOpts("worker_processing_duration_milliseconds", "Refresh job latency in milliseconds", m.histogramBuckets),
	)

	m.errorsByComponent = auto.NewCounterVec(
		m.counterOpts("errors_by_component_total", "Errors by component and type"),
		[]string{"component", "error_type"},
	)
	m.errorsByEndpoint = auto.NewCounterVec(
		m.counterOpts("errors_by_endpoint_total", "HTTP errors by endpoint, method and type"),
		[]string{"endpoint", "method", "error_type"},
	)

	m.systemMemoryUsage = auto.NewGauge(m.gaugeOpts("system_memory_bytes", "Heap bytes allocated"))
	m.systemGoroutineCount = auto.NewGauge(m.gaugeOpts("system_goroutines", "Running goroutines"))
}

func boolLabel(b bool) string {
	if b {
		return "true"
	}
	return "false"
}

// RecordReportComputed counts an insights report by outcome (computed, cached, error).
func RecordReportComputed(outcome string) {
	if globalManager.enabled {
		globalManager.reportsComputed.WithLabelValues(outcome).Inc()
	}
}

// RecordComputationLatency records the latency of an engine operation.
func RecordComputationLatency(operation string, latencyMs float64) {
	if globalManager.enabled {
		globalManager.computationLatency.WithLabelValues(operation).Observe(latencyMs)
	}
}

// RecordAnomaly counts a flagged anomaly.
func RecordAnomaly(sampleType, severity string) {
	if globalManager.enabled {
		globalManager.anomaliesDetected.WithLabelValues(sampleType, severity).Inc()
	}
}

// RecordPrediction counts a produced prediction.
func RecordPrediction(kind string, sufficient bool) {
	if globalManager.enabled {
		globalManager.predictionsComputed.WithLabelValues(kind, boolLabel(sufficient)).Inc()
	}
}

// RecordHealthScore observes a computed health score.
func RecordHealthScore(score float64) {
	if globalManager.enabled {
		globalManager.healthScores.Observe(score)
	}
}

// RecordCacheLookup counts a cache lookup result (hit, miss, error).
func RecordCacheLookup(backend, result string) {
	if globalManager.enabled {
		globalManager.cacheLookups.WithLabelValues(backend, result).Inc()
	}
}

// RecordIngested counts accepted records of a kind.
func RecordIngested(kind string, n int) {
	if globalManager.enabled && n > 0 {
		globalManager.ingestedRecords.WithLabelValues(kind).Add(float64(n))
	}
}

// RecordIngestDuplicate counts a skipped duplicate sample.
func RecordIngestDuplicate() {
	if globalManager.enabled {
		globalManager.ingestDuplicates.Inc()
	}
}

// UpdateStoreRecords sets the number of stored records of a kind.
func UpdateStoreRecords(kind string, count int) {
	if globalManager.enabled {
		globalManager.storeRecords.WithLabelValues(kind).Set(float64(count))
	}
}

// RecordStoreQueryLatency records a storage query latency.
func RecordStoreQueryLatency(query string, latencyMs float64) {
	if globalManager.enabled {
		globalManager.storeQueryLatency.WithLabelValues(query).Observe(latencyMs)
	}
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	if globalManager.enabled {
		globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
	}
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	if globalManager.enabled {
		globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
	}
}

// UpdateQueueSize sets the current queue length.
func UpdateQueueSize(size int) {
	if globalManager.enabled {
		globalManager.queueSize.Set(float64(size))
	}
}

// UpdateQueueCapacity sets the maximum queue capacity.
func UpdateQueueCapacity(capacity int) {
	if globalManager.enabled {
		globalManager.queueCapacity.Set(float64(capacity))
	}
}

// UpdateQueueUtilization sets the queue fill ratio.
func UpdateQueueUtilization(utilization float64) {
	if globalManager.enabled {
		globalManager.queueUtilization.Set(utilization)
	}
}

// RecordQueueEnqueue increments the enqueue counter.
func RecordQueueEnqueue() {
	if globalManager.enabled {
		globalManager.queueEnqueued.Inc()
	}
}

// RecordQueueDequeue increments the dequeue counter.
func RecordQueueDequeue() {
	if globalManager.enabled {
		globalManager.queueDequeued.Inc()
	}
}

// RecordQueueEnqueueError increments the rejected enqueue counter.
func RecordQueueEnqueueError() {
	if globalManager.enabled {
		globalManager.queueEnqueueErrors.Inc()
	}
}

// UpdateWorkerActiveCount sets the number of running workers.
func UpdateWorkerActiveCount(count int) {
	if globalManager.enabled {
		globalManager.workerActiveCount.Set(float64(count))
	}
}

// RecordWorkerJobProcessed increments the completed job counter.
func RecordWorkerJobProcessed() {
	if globalManager.enabled {
		globalManager.workerJobsProcessed.Inc()
	}
}

// RecordWorkerError increments the failed job counter.
func RecordWorkerError() {
	if globalManager.enabled {
		globalManager.workerErrors.Inc()
	}
}

// RecordWorkerProcessingLatency records a job latency.
func RecordWorkerProcessingLatency(latencyMs float64) {
	if globalManager.enabled {
		globalManager.workerProcessingLatency.Observe(latencyMs)
	}
}

// RecordErrorByComponent records an error with component and type labels.
func RecordErrorByComponent(component, errorType string) {
	if globalManager.enabled {
		globalManager.errorsByComponent.WithLabelValues(component, errorType).Inc()
	}
}

// RecordErrorByEndpoint records an HTTP error.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	if globalManager.enabled {
		globalManager.errorsByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
	}
}

// UpdateSystemMemoryUsage sets heap bytes in use.
func UpdateSystemMemoryUsage(bytes uint64) {
	if globalManager.enabled {
		globalManager.systemMemoryUsage.Set(float64(bytes))
	}
}

// UpdateSystemGoroutineCount sets the number of goroutines.
func UpdateSystemGoroutineCount(count int) {
	if globalManager.enabled {
		globalManager.systemGoroutineCount.Set(float64(count))
	}
}

// GetRegistry returns the registry backing the global manager.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
