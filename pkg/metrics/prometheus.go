// Package metrics provides Prometheus metrics for the huddle coordination service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager manages all Prometheus metrics for the huddle service.
type Manager struct {
	namespace string
	registry  *prometheus.Registry

	// Connection lifecycle
	connectionsOpened prometheus.Counter
	connectionsClosed prometheus.Counter
	connectionsActive prometheus.Gauge
	authFailures      prometheus.Counter

	// Room and broadcast health
	roomsActive       prometheus.Gauge
	broadcastsSent    *prometheus.CounterVec
	broadcastsDropped prometheus.Counter

	// Event dispatch
	eventsDispatched *prometheus.CounterVec
	eventsMalformed  prometheus.Counter
	eventsUnknown    prometheus.Counter
	dispatchLatency  prometheus.Histogram

	// Ranking
	rankingRequests prometheus.Counter
	rankingLatency  prometheus.Histogram

	// Assignment handshake
	helpRequests         prometheus.Counter
	helpResponses        *prometheus.CounterVec
	assignmentsCommitted prometheus.Counter
	assignmentRacesLost  prometheus.Counter
	assignmentFailures   *prometheus.CounterVec
	assignmentLatency    prometheus.Histogram
	votesRejected        prometheus.Counter

	// Task queue
	queueSize          prometheus.Gauge
	queueCapacity      prometheus.Gauge
	queueUtilization   prometheus.Gauge
	queueEnqueues      prometheus.Counter
	queueDequeues      prometheus.Counter
	queueEnqueueErrors prometheus.Counter

	// Workers
	workerCount  prometheus.Gauge
	workerErrors prometheus.Counter

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// System
	systemMemoryBytes prometheus.Gauge
	systemGoroutines  prometheus.Gauge
}

var defaultManager *Manager

func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	defaultManager = NewManager()
}

// NewManager creates a metrics manager with its own registry.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace: "huddle",
		registry:  prometheus.NewRegistry(),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) initializeMetrics() {
	factory := promauto.With(m.registry)
	ns := m.namespace

	m.connectionsOpened = factory.NewCounter(prometheus.CounterOpts{
		Namespace: ns, Name: "connections_opened_total",
		Help: "Total connections accepted after authentication.",
	})
	m.connectionsClosed = factory.NewCounter(prometheus.CounterOpts{
		Namespace: ns, Name: "connections_closed_total",
		Help: "Total connections torn down.",
	})
	m.connectionsActive = factory.NewGauge(prometheus.GaugeOpts{
		Namespace: ns, Name: "connections_active",
		Help: "Currently live connections.",
	})
	m.authFailures = factory.NewCounter(prometheus.CounterOpts{
		Namespace: ns, Name: "auth_failures_total",
		Help: "Connection attempts refused for bad credentials.",
	})

	m.roomsActive = factory.NewGauge(prometheus.GaugeOpts{
		Namespace: ns, Name: "rooms_active",
		Help: "Topics with at least one member.",
	})
	m.broadcastsSent = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: ns, Name: "broadcasts_sent_total",
		Help: "Events delivered to room members.",
	}, []string{"event"})
	m.broadcastsDropped = factory.NewCounter(prometheus.CounterOpts{
		Namespace: ns, Name: "broadcasts_dropped_total",
		Help: "Per-member deliveries dropped for slow or dead receivers.",
	})

	m.eventsDispatched = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: ns, Name: "events_dispatched_total",
		Help: "Inbound client events handled, by event name.",
	}, []string{"event"})
	m.eventsMalformed = factory.NewCounter(prometheus.CounterOpts{
		Namespace: ns, Name: "events_malformed_total",
		Help: "Inbound events dropped for missing or invalid payload keys.",
	})
	m.eventsUnknown = factory.NewCounter(prometheus.CounterOpts{
		Namespace: ns, Name: "events_unknown_total",
		Help: "Inbound events with a name outside the catalogue.",
	})
	m.dispatchLatency = factory.NewHistogram(prometheus.HistogramOpts{
		Namespace: ns, Name: "dispatch_latency_ms",
		Help:    "Inbound event handling latency in milliseconds.",
		Buckets: []float64{0.1, 0.5, 1, 5, 10, 50, 100, 500},
	})

	m.rankingRequests = factory.NewCounter(prometheus.CounterOpts{
		Namespace: ns, Name: "ranking_requests_total",
		Help: "Helper ranking invocations.",
	})
	m.rankingLatency = factory.NewHistogram(prometheus.HistogramOpts{
		Namespace: ns, Name: "ranking_latency_ms",
		Help:    "Helper ranking computation latency in milliseconds.",
		Buckets: []float64{0.1, 0.5, 1, 5, 10, 50, 100},
	})

	m.helpRequests = factory.NewCounter(prometheus.CounterOpts{
		Namespace: ns, Name: "help_requests_total",
		Help: "help:ask events routed to a target helper.",
	})
	m.helpResponses = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: ns, Name: "help_responses_total",
		Help: "help:respond events, by outcome (accepted/declined).",
	}, []string{"outcome"})
	m.assignmentsCommitted = factory.NewCounter(prometheus.CounterOpts{
		Namespace: ns, Name: "assignments_committed_total",
		Help: "Issue assignments committed through the conditional update.",
	})
	m.assignmentRacesLost = factory.NewCounter(prometheus.CounterOpts{
		Namespace: ns, Name: "assignment_races_lost_total",
		Help: "Accepted responses that lost the compare-and-swap.",
	})
	m.assignmentFailures = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: ns, Name: "assignment_failures_total",
		Help: "Accepted responses rejected before commit, by reason.",
	}, []string{"reason"})
	m.assignmentLatency = factory.NewHistogram(prometheus.HistogramOpts{
		Namespace: ns, Name: "assignment_commit_latency_ms",
		Help:    "Accepted-handshake commit latency in milliseconds.",
		Buckets: []float64{0.1, 0.5, 1, 5, 10, 50, 100, 500},
	})
	m.votesRejected = factory.NewCounter(prometheus.CounterOpts{
		Namespace: ns, Name: "votes_rejected_total",
		Help: "Repeat votes rejected by the one-vote-per-identity rule.",
	})

	m.queueSize = factory.NewGauge(prometheus.GaugeOpts{
		Namespace: ns, Name: "queue_size",
		Help: "Current depth of the assignment task queue.",
	})
	m.queueCapacity = factory.NewGauge(prometheus.GaugeOpts{
		Namespace: ns, Name: "queue_capacity",
		Help: "Configured capacity of the assignment task queue.",
	})
	m.queueUtilization = factory.NewGauge(prometheus.GaugeOpts{
		Namespace: ns, Name: "queue_utilization",
		Help: "Queue depth as a fraction of capacity.",
	})
	m.queueEnqueues = factory.NewCounter(prometheus.CounterOpts{
		Namespace: ns, Name: "queue_enqueues_total",
		Help: "Tasks accepted by the queue.",
	})
	m.queueDequeues = factory.NewCounter(prometheus.CounterOpts{
		Namespace: ns, Name: "queue_dequeues_total",
		Help: "Tasks handed to workers.",
	})
	m.queueEnqueueErrors = factory.NewCounter(prometheus.CounterOpts{
		Namespace: ns, Name: "queue_enqueue_errors_total",
		Help: "Tasks rejected for backpressure or closed queue.",
	})

	m.workerCount = factory.NewGauge(prometheus.GaugeOpts{
		Namespace: ns, Name: "worker_count",
		Help: "Assignment workers running.",
	})
	m.workerErrors = factory.NewCounter(prometheus.CounterOpts{
		Namespace: ns, Name: "worker_errors_total",
		Help: "Task processing errors inside workers.",
	})

	m.httpRequests = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: ns, Name: "http_requests_total",
		Help: "HTTP requests, by endpoint, method and status.",
	}, []string{"endpoint", "method", "status"})
	m.httpRequestDuration = factory.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: ns, Name: "http_request_duration_ms",
		Help:    "HTTP request duration in milliseconds.",
		Buckets: []float64{1, 5, 10, 50, 100, 500, 1000, 5000},
	}, []string{"endpoint", "method", "status"})

	m.systemMemoryBytes = factory.NewGauge(prometheus.GaugeOpts{
		Namespace: ns, Name: "system_memory_bytes",
		Help: "Allocated heap bytes.",
	})
	m.systemGoroutines = factory.NewGauge(prometheus.GaugeOpts{
		Namespace: ns, Name: "system_goroutines",
		Help: "Number of live goroutines.",
	})
}

// Connection lifecycle helpers.

func RecordConnectionOpened() {
	defaultManager.connectionsOpened.Inc()
	defaultManager.connectionsActive.Inc()
}

func RecordConnectionClosed() {
	defaultManager.connectionsClosed.Inc()
	defaultManager.connectionsActive.Dec()
}

func RecordAuthFailure() {
	defaultManager.authFailures.Inc()
}

// Room helpers.

func UpdateRoomsActive(count int) {
	defaultManager.roomsActive.Set(float64(count))
}

func RecordBroadcastSent(event string, members int) {
	defaultManager.broadcastsSent.WithLabelValues(event).Add(float64(members))
}

func RecordBroadcastDropped() {
	defaultManager.broadcastsDropped.Inc()
}

// Dispatch helpers.

func RecordEventDispatched(event string) {
	defaultManager.eventsDispatched.WithLabelValues(event).Inc()
}

func RecordEventMalformed() {
	defaultManager.eventsMalformed.Inc()
}

func RecordEventUnknown() {
	defaultManager.eventsUnknown.Inc()
}

func RecordDispatchLatency(latencyMs float64) {
	defaultManager.dispatchLatency.Observe(latencyMs)
}

// Ranking helpers.

func RecordRankingRequest() {
	defaultManager.rankingRequests.Inc()
}

func RecordRankingLatency(latencyMs float64) {
	defaultManager.rankingLatency.Observe(latencyMs)
}

// Assignment helpers.

func RecordHelpRequest() {
	defaultManager.helpRequests.Inc()
}

func RecordHelpResponse(outcome string) {
	defaultManager.helpResponses.WithLabelValues(outcome).Inc()
}

func RecordAssignmentCommitted() {
	defaultManager.assignmentsCommitted.Inc()
}

func RecordAssignmentRaceLost() {
	defaultManager.assignmentRacesLost.Inc()
}

func RecordAssignmentFailure(reason string) {
	defaultManager.assignmentFailures.WithLabelValues(reason).Inc()
}

func RecordAssignmentLatency(latencyMs float64) {
	defaultManager.assignmentLatency.Observe(latencyMs)
}

func RecordVoteRejected() {
	defaultManager.votesRejected.Inc()
}

// Queue helpers.

func UpdateQueueSize(size int) {
	defaultManager.queueSize.Set(float64(size))
}

func UpdateQueueCapacity(capacity int) {
	defaultManager.queueCapacity.Set(float64(capacity))
}

func UpdateQueueUtilization(utilization float64) {
	defaultManager.queueUtilization.Set(utilization)
}

func RecordQueueEnqueue() {
	defaultManager.queueEnqueues.Inc()
}

func RecordQueueDequeue() {
	defaultManager.queueDequeues.Inc()
}

func RecordQueueEnqueueError() {
	defaultManager.queueEnqueueErrors.Inc()
}

// Worker helpers.

func UpdateWorkerCount(count int) {
	defaultManager.workerCount.Set(float64(count))
}

func RecordWorkerError() {
	defaultManager.workerErrors.Inc()
}

// HTTP helpers.

func RecordHTTPRequest(endpoint, method, statusCode string) {
	defaultManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

func RecordHTTPRequestDuration(endpoint, method, statusCode string, durationMs float64) {
	defaultManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(durationMs)
}

// System helpers.

func UpdateSystemMemoryUsage(bytes uint64) {
	defaultManager.systemMemoryBytes.Set(float64(bytes))
}

func UpdateSystemGoroutineCount(count int) {
	defaultManager.systemGoroutines.Set(float64(count))
}

// GetRegistry exposes the default registry for the /metrics endpoint.
func GetRegistry() *prometheus.Registry {
	return defaultManager.registry
}
