// Package metrics provides Prometheus metrics for the matchday service.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const defaultRefreshInterval = 10 * time.Second

// Manager owns every collector of the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	refreshInterval  time.Duration
	constLabels      prometheus.Labels
	registry         prometheus.Registerer

	// Squad balancing
	draftsTotal    prometheus.Counter
	draftEntrants  prometheus.Histogram
	transfersTotal *prometheus.CounterVec

	// Predictions and leaderboard
	predictionsReceived  prometheus.Counter
	predictionsDuplicate prometheus.Counter
	predictionsStored    prometheus.Counter
	predictionsRejected  *prometheus.CounterVec
	leaderboardBuilds    prometheus.Counter
	leaderboardLatency   prometheus.Histogram

	// Store
	rosterSize      prometheus.Gauge
	matchCount      prometheus.Gauge
	predictionCount prometheus.Gauge
	storeLatency    *prometheus.HistogramVec
	storeErrors     *prometheus.CounterVec

	// Ingestion pipeline
	queueSize       prometheus.Gauge
	queueCapacity   prometheus.Gauge
	queueRejections *prometheus.CounterVec
	workerCount     prometheus.Gauge
	workerLatency   prometheus.Histogram
	workerErrors    prometheus.Counter
	workerProcessed prometheus.Counter

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // process-wide registry

var globalManager *Manager //nolint:gochecknoglobals // process-wide collectors

func init() { //nolint:gochecknoinits // collectors must exist before first use
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a metrics manager and registers its collectors.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "matchday",
		subsystem:        "",
		histogramBuckets: prometheus.DefBuckets,
		refreshInterval:  defaultRefreshInterval,
		constLabels:      prometheus.Labels{},
		registry:         prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

// RefreshInterval is how often background updaters should sample gauges.
func (m *Manager) RefreshInterval() time.Duration { return m.refreshInterval }

func (m *Manager) counter(name, help string) prometheus.Counter {
	return promauto.With(m.registry).NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
	})
}

func (m *Manager) counterVec(name, help string, labels ...string) *prometheus.CounterVec {
	return promauto.With(m.registry).NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
	}, labels)
}

func (m *Manager) gauge(name, help string) prometheus.Gauge {
	return promauto.With(m.registry).NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
	})
}

func (m *Manager) histogram(name, help string, buckets []float64) prometheus.Histogram {
	return promauto.With(m.registry).NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, Buckets: buckets, ConstLabels: m.constLabels,
	})
}

func (m *Manager) histogramVec(name, help string, labels ...string) *prometheus.HistogramVec {
	return promauto.With(m.registry).NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, Buckets: m.histogramBuckets, ConstLabels: m.constLabels,
	}, labels)
}

func (m *Manager) initializeMetrics() {
	m.draftsTotal = m.counter("drafts_total", "Total number of squads drafted")
	m.draftEntrants = m.histogram("draft_entrants", "Entrants per draft, players plus guests", prometheus.LinearBuckets(2, 2, 12))
	m.transfersTotal = m.counterVec("transfers_total", "Transfers by result", "result")

	m.predictionsReceived = m.counter("predictions_received_total", "Prediction submissions accepted for processing")
	m.predictionsDuplicate = m.counter("predictions_duplicate_total", "Prediction submissions ignored as duplicates")
	m.predictionsStored = m.counter("predictions_stored_total", "Predictions written to the store")
	m.predictionsRejected = m.counterVec("predictions_rejected_total", "Prediction submissions rejected by reason", "reason")
	m.leaderboardBuilds = m.counter("leaderboard_builds_total", "Leaderboards computed from scratch")
	m.leaderboardLatency = m.histogram("leaderboard_build_milliseconds", "Time to load and fold predictions into a leaderboard", m.histogramBuckets)

	m.rosterSize = m.gauge("roster_size", "Players in the current roster")
	m.matchCount = m.gauge("matches", "Matches in the store")
	m.predictionCount = m.gauge("predictions", "Predictions in the store")
	m.storeLatency = m.histogramVec("store_operation_milliseconds", "Store operation latency", "operation")
	m.storeErrors = m.counterVec("store_errors_total", "Store operation failures", "operation")

	m.queueSize = m.gauge("queue_size", "Prediction submissions waiting in the queue")
	m.queueCapacity = m.gauge("queue_capacity", "Maximum queued prediction submissions")
	m.queueRejections = m.counterVec("queue_rejections_total", "Enqueue failures by reason", "reason")
	m.workerCount = m.gauge("worker_count", "Ingestion workers running")
	m.workerLatency = m.histogram("worker_processing_milliseconds", "Time to persist one submission", m.histogramBuckets)
	m.workerErrors = m.counter("worker_errors_total", "Submissions the workers failed to persist")
	m.workerProcessed = m.counter("worker_processed_total", "Submissions the workers persisted")

	m.httpRequests = m.counterVec("http_requests_total", "HTTP requests by route, method and status", "route", "method", "status_code")
	m.httpRequestDuration = m.histogramVec("http_request_duration_milliseconds", "HTTP request duration", "route", "method", "status_code")

	m.systemMemoryUsage = m.gauge("system_memory_bytes", "Heap bytes allocated")
	m.systemGoroutineCount = m.gauge("system_goroutines", "Number of goroutines")
	m.systemGCPauseTime = m.histogram("system_gc_pause_milliseconds", "Average GC pause", m.histogramBuckets)
}

// Squad balancing.

// RecordDraft counts a draft and its pool size.
func RecordDraft(entrants int) {
	globalManager.draftsTotal.Inc()
	globalManager.draftEntrants.Observe(float64(entrants))
}

// RecordTransfer counts a transfer attempt; result is "ok" or "not_found".
func RecordTransfer(result string) {
	globalManager.transfersTotal.WithLabelValues(result).Inc()
}

// Predictions and leaderboard.

// RecordPredictionReceived counts an accepted submission.
func RecordPredictionReceived() { globalManager.predictionsReceived.Inc() }

// RecordPredictionDuplicate counts a duplicate submission.
func RecordPredictionDuplicate() { globalManager.predictionsDuplicate.Inc() }

// RecordPredictionStored counts a persisted prediction.
func RecordPredictionStored() { globalManager.predictionsStored.Inc() }

// RecordPredictionRejected counts a submission refused before queueing.
func RecordPredictionRejected(reason string) {
	globalManager.predictionsRejected.WithLabelValues(reason).Inc()
}

// RecordLeaderboardBuild counts a leaderboard computation and its latency.
func RecordLeaderboardBuild(latencyMs float64) {
	globalManager.leaderboardBuilds.Inc()
	globalManager.leaderboardLatency.Observe(latencyMs)
}

// Store.

// UpdateStoreCounts sets the roster, match and prediction gauges.
func UpdateStoreCounts(roster, matches, predictions int) {
	globalManager.rosterSize.Set(float64(roster))
	globalManager.matchCount.Set(float64(matches))
	globalManager.predictionCount.Set(float64(predictions))
}

// RecordStoreOperation observes one store call.
func RecordStoreOperation(operation string, latencyMs float64, err error) {
	globalManager.storeLatency.WithLabelValues(operation).Observe(latencyMs)
	if err != nil {
		globalManager.storeErrors.WithLabelValues(operation).Inc()
	}
}

// Ingestion pipeline.

// UpdateQueueSize sets the current queue length.
func UpdateQueueSize(size int) { globalManager.queueSize.Set(float64(size)) }

// UpdateQueueCapacity sets the queue bound.
func UpdateQueueCapacity(capacity int) { globalManager.queueCapacity.Set(float64(capacity)) }

// RecordQueueRejection counts a refused enqueue.
func RecordQueueRejection(reason string) {
	globalManager.queueRejections.WithLabelValues(reason).Inc()
}

// UpdateWorkerCount sets the number of running workers.
func UpdateWorkerCount(count int) { globalManager.workerCount.Set(float64(count)) }

// RecordWorkerProcessed observes one handled submission.
func RecordWorkerProcessed(latencyMs float64, err error) {
	globalManager.workerLatency.Observe(latencyMs)
	if err != nil {
		globalManager.workerErrors.Inc()
		return
	}
	globalManager.workerProcessed.Inc()
}

// HTTP.

// RecordHTTPRequest records one request and its duration.
func RecordHTTPRequest(route, method, statusCode string, durationMs float64) {
	globalManager.httpRequests.WithLabelValues(route, method, statusCode).Inc()
	globalManager.httpRequestDuration.WithLabelValues(route, method, statusCode).Observe(durationMs)
}

// System.

// UpdateSystemMemoryUsage sets the heap usage in bytes.
func UpdateSystemMemoryUsage(bytes uint64) { globalManager.systemMemoryUsage.Set(float64(bytes)) }

// UpdateSystemGoroutineCount sets the goroutine count.
func UpdateSystemGoroutineCount(count int) { globalManager.systemGoroutineCount.Set(float64(count)) }

// RecordSystemGCPauseTime observes the average GC pause.
func RecordSystemGCPauseTime(pauseMs float64) { globalManager.systemGCPauseTime.Observe(pauseMs) }

// RefreshInterval reports the sampling interval of the global manager.
func RefreshInterval() time.Duration { return globalManager.refreshInterval }

// GetRegistry returns the registry all service metrics live on.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
