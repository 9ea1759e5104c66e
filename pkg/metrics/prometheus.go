package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager manages all Prometheus metrics for the placement service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	constLabels      map[string]string
	registry         prometheus.Registerer

	// Estimation
	estimates         *prometheus.CounterVec
	estimateFallbacks *prometheus.CounterVec
	scoringWarnings   prometheus.Counter
	estimateLatency   *prometheus.HistogramVec

	// Placements
	placementsAccepted  prometheus.Counter
	placementsDuplicate prometheus.Counter
	placementsRejected  prometheus.Counter
	recordsCreated      *prometheus.CounterVec
	recordsExisting     prometheus.Counter

	// Queue
	queueSize          prometheus.Gauge
	queueCapacity      prometheus.Gauge
	queueUtilization   prometheus.Gauge
	queueEnqueued      prometheus.Counter
	queueDequeued      prometheus.Counter
	queueEnqueueErrors prometheus.Counter

	// Workers
	workerCount             prometheus.Gauge
	workerActiveCount       prometheus.Gauge
	workerProcessingLatency prometheus.Histogram
	workerErrors            prometheus.Counter

	// Repository
	repositoryRecordsTotal prometheus.Gauge
	repositoryWriteLatency prometheus.Histogram
	repositoryQueryLatency prometheus.Histogram

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Errors
	errorsByComponent *prometheus.CounterVec
	errorsByEndpoint  *prometheus.CounterVec

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemResidentMemory prometheus.Gauge
	systemCPUPercent     prometheus.Gauge
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // metrics registry

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager. Without WithPrometheusRegistry
// metrics are registered on the Prometheus default registerer.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "deuce",
		subsystem:        "placement",
		histogramBuckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 25, 50, 100, 250},
		constLabels:      make(map[string]string),
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

func (m *Manager) counter(name, help string) prometheus.Counter {
	return promauto.With(m.registry).NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: m.constLabels,
	})
}

func (m *Manager) counterVec(name, help string, labels ...string) *prometheus.CounterVec {
	return promauto.With(m.registry).NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: m.constLabels,
	}, labels)
}

func (m *Manager) gauge(name, help string) prometheus.Gauge {
	return promauto.With(m.registry).NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: m.constLabels,
	})
}

func (m *Manager) histogram(name, help string) prometheus.Histogram {
	return promauto.With(m.registry).NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: m.constLabels,
		Buckets:     m.histogramBuckets,
	})
}

func (m *Manager) histogramVec(name, help string, labels ...string) *prometheus.HistogramVec {
	return promauto.With(m.registry).NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: m.constLabels,
		Buckets:     m.histogramBuckets,
	}, labels)
}

func (m *Manager) initializeMetrics() {
	m.estimates = m.counterVec("estimates_total", "Rating estimates produced", "sport", "source", "confidence")
	m.estimateFallbacks = m.counterVec("estimate_fallbacks_total", "Estimates that fell back from the preferred path", "reason")
	m.scoringWarnings = m.counter("scoring_warnings_total", "Malformed answers skipped while scoring")
	m.estimateLatency = m.histogramVec("estimate_latency_milliseconds", "Estimation latency in milliseconds", "sport")

	m.placementsAccepted = m.counter("placements_accepted_total", "Placement submissions accepted for recording")
	m.placementsDuplicate = m.counter("placements_duplicate_total", "Placement submissions dropped as duplicates")
	m.placementsRejected = m.counter("placements_rejected_total", "Placement submissions rejected because the queue was full")
	m.recordsCreated = m.counterVec("records_created_total", "Initial rating records created", "sport", "game_mode")
	m.recordsExisting = m.counter("records_existing_total", "Initial placements skipped because a record already existed")

	m.queueSize = m.gauge("queue_size", "Current number of queued placement jobs")
	m.queueCapacity = m.gauge("queue_capacity", "Maximum number of queued placement jobs")
	m.queueUtilization = m.gauge("queue_utilization_ratio", "Queue size divided by capacity")
	m.queueEnqueued = m.counter("queue_enqueued_total", "Placement jobs enqueued")
	m.queueDequeued = m.counter("queue_dequeued_total", "Placement jobs dequeued")
	m.queueEnqueueErrors = m.counter("queue_enqueue_errors_total", "Failed enqueue attempts")

	m.workerCount = m.gauge("worker_count", "Configured number of workers")
	m.workerActiveCount = m.gauge("worker_active_count", "Workers currently recording a placement")
	m.workerProcessingLatency = m.histogram("worker_processing_latency_milliseconds", "Time to record one placement job")
	m.workerErrors = m.counter("worker_errors_total", "Placement jobs that failed to record")

	m.repositoryRecordsTotal = m.gauge("repository_records_total", "Rating records in the store")
	m.repositoryWriteLatency = m.histogram("repository_write_latency_milliseconds", "Store write latency in milliseconds")
	m.repositoryQueryLatency = m.histogram("repository_query_latency_milliseconds", "Store query latency in milliseconds")

	m.httpRequests = m.counterVec("http_requests_total", "HTTP requests by endpoint, method and status", "endpoint", "method", "status_code")
	m.httpRequestDuration = m.histogramVec("http_request_duration_milliseconds", "HTTP request duration in milliseconds", "endpoint", "method", "status_code")

	m.errorsByComponent = m.counterVec("errors_by_component_total", "Errors by component and type", "component", "error_type")
	m.errorsByEndpoint = m.counterVec("errors_by_endpoint_total", "Errors by endpoint, method and type", "endpoint", "method", "error_type")

	m.systemMemoryUsage = m.gauge("system_memory_usage_bytes", "Heap memory in use in bytes")
	m.systemGoroutineCount = m.gauge("system_goroutine_count", "Number of goroutines")
	m.systemResidentMemory = m.gauge("system_resident_memory_bytes", "Resident set size of the process in bytes")
	m.systemCPUPercent = m.gauge("system_cpu_percent", "Process CPU usage in percent of one core")
}

// RecordEstimate counts one estimate.
func RecordEstimate(sport, source, confidence string) {
	globalManager.estimates.WithLabelValues(sport, source, confidence).Inc()
}

// RecordEstimateFallback counts an estimate that left the preferred path.
func RecordEstimateFallback(reason string) {
	globalManager.estimateFallbacks.WithLabelValues(reason).Inc()
}

// RecordScoringWarnings adds n skipped answers.
func RecordScoringWarnings(n int) {
	globalManager.scoringWarnings.Add(float64(n))
}

// RecordEstimateLatency records estimation latency in milliseconds.
func RecordEstimateLatency(sport string, latencyMs float64) {
	globalManager.estimateLatency.WithLabelValues(sport).Observe(latencyMs)
}

// RecordPlacementAccepted increments the accepted placements counter.
func RecordPlacementAccepted() {
	globalManager.placementsAccepted.Inc()
}

// RecordPlacementDuplicate increments the duplicate placements counter.
func RecordPlacementDuplicate() {
	globalManager.placementsDuplicate.Inc()
}

// RecordPlacementRejected increments the rejected placements counter.
func RecordPlacementRejected() {
	globalManager.placementsRejected.Inc()
}

// RecordRecordCreated counts a newly created initial record.
func RecordRecordCreated(sport, gameMode string) {
	globalManager.recordsCreated.WithLabelValues(sport, gameMode).Inc()
}

// RecordRecordExisting counts a create-if-absent that found a record.
func RecordRecordExisting() {
	globalManager.recordsExisting.Inc()
}

// Queue metrics.

// UpdateQueueSize sets the current queue size.
func UpdateQueueSize(size int) {
	globalManager.queueSize.Set(float64(size))
}

// UpdateQueueCapacity sets the maximum queue capacity.
func UpdateQueueCapacity(capacity int) {
	globalManager.queueCapacity.Set(float64(capacity))
}

// UpdateQueueUtilization sets the queue utilization ratio.
func UpdateQueueUtilization(utilization float64) {
	globalManager.queueUtilization.Set(utilization)
}

// RecordQueueEnqueue increments the enqueue counter.
func RecordQueueEnqueue() {
	globalManager.queueEnqueued.Inc()
}

// RecordQueueDequeue increments the dequeue counter.
func RecordQueueDequeue() {
	globalManager.queueDequeued.Inc()
}

// RecordQueueEnqueueError increments the enqueue error counter.
func RecordQueueEnqueueError() {
	globalManager.queueEnqueueErrors.Inc()
}

// Worker metrics.

// UpdateWorkerCount sets the configured worker count.
func UpdateWorkerCount(count int) {
	globalManager.workerCount.Set(float64(count))
}

// UpdateWorkerActiveCount sets the number of busy workers.
func UpdateWorkerActiveCount(count int) {
	globalManager.workerActiveCount.Set(float64(count))
}

// RecordWorkerProcessingLatency records job processing latency.
func RecordWorkerProcessingLatency(latencyMs float64) {
	globalManager.workerProcessingLatency.Observe(latencyMs)
}

// RecordWorkerError increments the worker error counter.
func RecordWorkerError() {
	globalManager.workerErrors.Inc()
}

// Repository metrics.

// UpdateRepositoryRecordsTotal sets the number of stored records.
func UpdateRepositoryRecordsTotal(count int) {
	globalManager.repositoryRecordsTotal.Set(float64(count))
}

// RecordRepositoryWriteLatency records store write latency.
func RecordRepositoryWriteLatency(latencyMs float64) {
	globalManager.repositoryWriteLatency.Observe(latencyMs)
}

// RecordRepositoryQueryLatency records store query latency.
func RecordRepositoryQueryLatency(latencyMs float64) {
	globalManager.repositoryQueryLatency.Observe(latencyMs)
}

// HTTP metrics.

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration in milliseconds.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// Error metrics.

// RecordErrorByComponent records an error with component and type labels.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorsByComponent.WithLabelValues(component, errorType).Inc()
}

// RecordErrorByEndpoint records an error with endpoint, method, and error type labels.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	globalManager.errorsByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
}

// System metrics.

// UpdateSystemMemoryUsage sets heap memory in use.
func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the number of goroutines.
func UpdateSystemGoroutineCount(count int) {
	globalManager.systemGoroutineCount.Set(float64(count))
}

// UpdateSystemResidentMemory sets the process resident set size.
func UpdateSystemResidentMemory(bytes uint64) {
	globalManager.systemResidentMemory.Set(float64(bytes))
}

// UpdateSystemCPUPercent sets the process CPU usage.
func UpdateSystemCPUPercent(percent float64) {
	globalManager.systemCPUPercent.Set(percent)
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
