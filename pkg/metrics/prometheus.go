// Package metrics provides Prometheus metrics for the clickprio service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager owns every Prometheus collector the service exports.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	constLabels      map[string]string
	registry         prometheus.Registerer

	// Engagement
	clicksRecorded  prometheus.Counter
	clicksDuplicate prometheus.Counter
	clicksOverflow  prometheus.Counter
	ledgerConflicts prometheus.Counter
	clickLatency    prometheus.Histogram
	decodeErrors    prometheus.Counter

	// Retention and ranking
	pruneRuns        prometheus.Counter
	pruneDuration    prometheus.Histogram
	eventsPruned     prometheus.Counter
	ledgerWriteBacks prometheus.Counter
	itemsRanked      prometheus.Histogram
	totalItems       prometheus.Gauge

	// Store
	storeErrors             *prometheus.CounterVec
	repositoryUpdateLatency prometheus.Histogram
	repositoryQueryLatency  prometheus.Histogram

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	errorRateByEndpoint *prometheus.CounterVec

	// Prune queue
	queueSize          prometheus.Gauge
	queueCapacity      prometheus.Gauge
	queueUtilization   prometheus.Gauge
	queueEnqueueRate   prometheus.Counter
	queueDequeueRate   prometheus.Counter
	queueEnqueueErrors prometheus.Counter

	// Prune workers
	workerCount             prometheus.Gauge
	workerActiveCount       prometheus.Gauge
	workerProcessingLatency prometheus.Histogram
	workerErrorRate         prometheus.Counter

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // metrics registry

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a metrics manager and registers its collectors.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "clickprio",
		subsystem:        "engine",
		histogramBuckets: prometheus.DefBuckets,
		constLabels:      map[string]string{},
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

func (m *Manager) gauge(name, help string) prometheus.Gauge {
	return promauto.With(m.registry).NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: m.constLabels,
	})
}

func (m *Manager) histogram(name, help string, buckets []float64) prometheus.Histogram {
	return promauto.With(m.registry).NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: m.constLabels,
		Buckets:     buckets,
	})
}

func (m *Manager) initializeMetrics() { //nolint:funlen // one place for every collector
	auto := promauto.With(m.registry)

	m.clicksRecorded = m.counter("clicks_recorded_total", "Clicks appended to an item ledger")
	m.clicksDuplicate = m.counter("clicks_duplicate_total", "Clicks ignored because the click id was already seen")
	m.clicksOverflow = m.counter("clicks_overflow_total", "Clicks on the overflow entry, never recorded")
	m.ledgerConflicts = m.counter("ledger_conflicts_total", "Version conflicts hit while writing a ledger")
	m.clickLatency = m.histogram("click_latency_milliseconds", "End to end click handling latency in milliseconds", m.histogramBuckets)
	m.decodeErrors = m.counter("ledger_decode_errors_total", "Stored ledgers that failed to decode and were treated as empty")

	m.pruneRuns = m.counter("prune_runs_total", "Completed retention refresh runs")
	m.pruneDuration = m.histogram("prune_duration_milliseconds", "Duration of a retention refresh run in milliseconds", m.histogramBuckets)
	m.eventsPruned = m.counter("events_pruned_total", "Events dropped by the retention window")
	m.ledgerWriteBacks = m.counter("ledger_write_backs_total", "Ledgers written back after pruning changed them")
	m.itemsRanked = m.histogram("items_ranked", "Number of entries in a rendered display list",
		[]float64{0, 1, 2, 4, 6, 8, 10, 11, 12, 16, 32})
	m.totalItems = m.gauge("total_items", "Number of items in the store")

	m.storeErrors = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "store_errors_total",
		Help:        "Item store failures by operation",
		ConstLabels: m.constLabels,
	}, []string{"operation"})
	m.repositoryUpdateLatency = m.histogram("repository_update_latency_milliseconds",
		"Repository update operation latency in milliseconds", m.histogramBuckets)
	m.repositoryQueryLatency = m.histogram("repository_query_latency_milliseconds",
		"Repository query operation latency in milliseconds", m.histogramBuckets)

	m.httpRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "http_requests_total",
		Help:        "Total number of HTTP requests by endpoint and method",
		ConstLabels: m.constLabels,
	}, []string{"endpoint", "method", "status_code"})
	m.httpRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "http_request_duration_milliseconds",
		Help:        "HTTP request duration in milliseconds",
		ConstLabels: m.constLabels,
		Buckets:     m.histogramBuckets,
	}, []string{"endpoint", "method", "status_code"})
	m.errorRateByEndpoint = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "errors_by_endpoint_total",
		Help:        "Total number of errors by endpoint",
		ConstLabels: m.constLabels,
	}, []string{"endpoint", "method", "error_type"})

	m.queueSize = m.gauge("queue_size", "Prune jobs waiting in the queue")
	m.queueCapacity = m.gauge("queue_capacity", "Maximum prune queue capacity")
	m.queueUtilization = m.gauge("queue_utilization_ratio", "Prune queue utilization ratio (size / capacity)")
	m.queueEnqueueRate = m.counter("queue_enqueue_total", "Total number of prune jobs enqueued")
	m.queueDequeueRate = m.counter("queue_dequeue_total", "Total number of prune jobs dequeued")
	m.queueEnqueueErrors = m.counter("queue_enqueue_errors_total", "Total number of rejected prune jobs")

	m.workerCount = m.gauge("worker_count", "Configured prune workers")
	m.workerActiveCount = m.gauge("worker_active_count", "Prune workers currently processing a job")
	m.workerProcessingLatency = m.histogram("worker_processing_latency_milliseconds",
		"Prune job processing latency in milliseconds", m.histogramBuckets)
	m.workerErrorRate = m.counter("worker_errors_total", "Prune jobs that failed")

	m.systemMemoryUsage = m.gauge("system_memory_usage_bytes", "System memory usage in bytes")
	m.systemGoroutineCount = m.gauge("system_goroutine_count", "Number of goroutines")
	m.systemGCPauseTime = m.histogram("system_gc_pause_time_milliseconds", "GC pause time in milliseconds",
		[]float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000})
}

// RecordClickRecorded increments the recorded clicks counter.
func RecordClickRecorded() {
	globalManager.clicksRecorded.Inc()
}

// RecordClickDuplicate increments the duplicate clicks counter.
func RecordClickDuplicate() {
	globalManager.clicksDuplicate.Inc()
}

// RecordClickOverflow increments the overflow clicks counter.
func RecordClickOverflow() {
	globalManager.clicksOverflow.Inc()
}

// RecordLedgerConflict increments the ledger version conflict counter.
func RecordLedgerConflict() {
	globalManager.ledgerConflicts.Inc()
}

// RecordClickLatency records click handling latency in milliseconds.
func RecordClickLatency(latencyMs float64) {
	globalManager.clickLatency.Observe(latencyMs)
}

// RecordDecodeError increments the ledger decode error counter.
func RecordDecodeError() {
	globalManager.decodeErrors.Inc()
}

// RecordPruneRun records a completed refresh run and its duration.
func RecordPruneRun(durationMs float64) {
	globalManager.pruneRuns.Inc()
	globalManager.pruneDuration.Observe(durationMs)
}

// RecordEventsPruned adds n dropped events.
func RecordEventsPruned(n int) {
	if n > 0 {
		globalManager.eventsPruned.Add(float64(n))
	}
}

// RecordLedgerWriteBack increments the pruned ledger write-back counter.
func RecordLedgerWriteBack() {
	globalManager.ledgerWriteBacks.Inc()
}

// RecordItemsRanked observes the size of a rendered display list.
func RecordItemsRanked(n int) {
	globalManager.itemsRanked.Observe(float64(n))
}

// UpdateTotalItems sets the item count gauge.
func UpdateTotalItems(count int) {
	globalManager.totalItems.Set(float64(count))
}

// RecordStoreError increments the store error counter for an operation.
func RecordStoreError(operation string) {
	globalManager.storeErrors.WithLabelValues(operation).Inc()
}

// RecordRepositoryUpdateLatency records repository update operation latency.
func RecordRepositoryUpdateLatency(latencyMs float64) {
	globalManager.repositoryUpdateLatency.Observe(latencyMs)
}

// RecordRepositoryQueryLatency records repository query operation latency.
func RecordRepositoryQueryLatency(latencyMs float64) {
	globalManager.repositoryQueryLatency.Observe(latencyMs)
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// RecordErrorByEndpoint records an error with endpoint, method, and error type labels.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	globalManager.errorRateByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
}

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
	globalManager.queueEnqueueRate.Inc()
}

// RecordQueueDequeue increments the dequeue counter.
func RecordQueueDequeue() {
	globalManager.queueDequeueRate.Inc()
}

// RecordQueueEnqueueError increments the enqueue error counter.
func RecordQueueEnqueueError() {
	globalManager.queueEnqueueErrors.Inc()
}

// UpdateWorkerCount sets the configured worker count.
func UpdateWorkerCount(count int) {
	globalManager.workerCount.Set(float64(count))
}

// UpdateWorkerActiveCount sets the number of active workers.
func UpdateWorkerActiveCount(count int) {
	globalManager.workerActiveCount.Set(float64(count))
}

// RecordWorkerProcessingLatency records worker processing latency.
func RecordWorkerProcessingLatency(latencyMs float64) {
	globalManager.workerProcessingLatency.Observe(latencyMs)
}

// RecordWorkerError increments the worker error counter.
func RecordWorkerError() {
	globalManager.workerErrorRate.Inc()
}

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
