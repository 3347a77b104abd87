package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	globalMetrics *Metrics
	globalMu      sync.RWMutex
)

// Metrics holds all Prometheus metrics for the console.
type Metrics struct {
	// Outreach counters
	DispatchesTotal   *prometheus.CounterVec
	MessagesSentTotal *prometheus.CounterVec
	SnoozesTotal      prometheus.Counter

	// Grouped-payload cache
	CacheHitsTotal   prometheus.Counter
	CacheMissesTotal prometheus.Counter

	// Job polling
	JobsStartedTotal  *prometheus.CounterVec
	JobsFinishedTotal *prometheus.CounterVec
	PollsTotal        *prometheus.CounterVec
	PollFailuresTotal *prometheus.CounterVec
	ActivePollers     prometheus.Gauge

	// API metrics
	APIRequestsTotal          *prometheus.CounterVec
	APIRequestDurationSeconds *prometheus.HistogramVec
	APIErrorsTotal            *prometheus.CounterVec

	// Backend client
	BackendRequestsTotal *prometheus.CounterVec

	registry *prometheus.Registry
}

// New creates a new Metrics instance with all metrics registered.
func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		DispatchesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "consola_dispatches_total",
				Help: "Total number of batch dispatch calls",
			},
			[]string{"rule_id", "varied"},
		),
		MessagesSentTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "consola_messages_sent_total",
				Help: "Total number of messages reported sent by the backend",
			},
			[]string{"rule_id"},
		),
		SnoozesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "consola_snoozes_total",
				Help: "Total number of snoozed pending items",
			},
		),

		CacheHitsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "consola_cache_hits_total",
				Help: "Grouped-payload cache hits",
			},
		),
		CacheMissesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "consola_cache_misses_total",
				Help: "Grouped-payload cache misses",
			},
		),

		JobsStartedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "consola_jobs_started_total",
				Help: "Total number of jobs started",
			},
			[]string{"kind"},
		),
		JobsFinishedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "consola_jobs_finished_total",
				Help: "Total number of jobs reaching a terminal status",
			},
			[]string{"kind", "status"},
		),
		PollsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "consola_polls_total",
				Help: "Total number of job status polls",
			},
			[]string{"kind"},
		),
		PollFailuresTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "consola_poll_failures_total",
				Help: "Total number of failed job status polls",
			},
			[]string{"kind"},
		),
		ActivePollers: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "consola_active_pollers",
				Help: "Number of polling loops currently running",
			},
		),

		APIRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "consola_api_requests_total",
				Help: "Total number of API requests",
			},
			[]string{"method", "path", "status"},
		),
		APIRequestDurationSeconds: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "consola_api_request_duration_seconds",
				Help:    "API request duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "path"},
		),
		APIErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "consola_api_errors_total",
				Help: "Total number of API errors",
			},
			[]string{"error_type"},
		),

		BackendRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "consola_backend_requests_total",
				Help: "Total number of requests to the rule-evaluation backend",
			},
			[]string{"operation", "outcome"},
		),

		registry: reg,
	}

	reg.MustRegister(
		m.DispatchesTotal,
		m.MessagesSentTotal,
		m.SnoozesTotal,
		m.CacheHitsTotal,
		m.CacheMissesTotal,
		m.JobsStartedTotal,
		m.JobsFinishedTotal,
		m.PollsTotal,
		m.PollFailuresTotal,
		m.ActivePollers,
		m.APIRequestsTotal,
		m.APIRequestDurationSeconds,
		m.APIErrorsTotal,
		m.BackendRequestsTotal,
	)

	return m
}

// Registry returns the Prometheus registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// SetGlobal sets the global metrics instance.
func SetGlobal(m *Metrics) {
	globalMu.Lock()
	defer globalMu.Unlock()
	globalMetrics = m
}

// Global returns the global metrics instance, nil when metrics are disabled.
func Global() *Metrics {
	globalMu.RLock()
	defer globalMu.RUnlock()
	return globalMetrics
}

// CacheHit increments the cache hit counter.
func CacheHit() {
	if m := Global(); m != nil {
		m.CacheHitsTotal.Inc()
	}
}

// CacheMiss increments the cache miss counter.
func CacheMiss() {
	if m := Global(); m != nil {
		m.CacheMissesTotal.Inc()
	}
}

// JobStarted increments the started counter for a job kind.
func JobStarted(kind string) {
	if m := Global(); m != nil {
		m.JobsStartedTotal.WithLabelValues(kind).Inc()
	}
}

// JobFinished increments the finished counter for a kind and terminal status.
func JobFinished(kind, status string) {
	if m := Global(); m != nil {
		m.JobsFinishedTotal.WithLabelValues(kind, status).Inc()
	}
}

// Poll records one status poll, failed or not.
func Poll(kind string, failed bool) {
	m := Global()
	if m == nil {
		return
	}
	m.PollsTotal.WithLabelValues(kind).Inc()
	if failed {
		m.PollFailuresTotal.WithLabelValues(kind).Inc()
	}
}

// PollerStarted adjusts the active poller gauge upward.
func PollerStarted() {
	if m := Global(); m != nil {
		m.ActivePollers.Inc()
	}
}

// PollerStopped adjusts the active poller gauge downward.
func PollerStopped() {
	if m := Global(); m != nil {
		m.ActivePollers.Dec()
	}
}

// BackendRequest records one backend call outcome ("ok" or "error").
func BackendRequest(operation, outcome string) {
	if m := Global(); m != nil {
		m.BackendRequestsTotal.WithLabelValues(operation, outcome).Inc()
	}
}
