package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce        sync.Once
	httpRequestsTotal   *prometheus.CounterVec
	httpLatencySeconds  *prometheus.HistogramVec
	httpErrorsTotal     *prometheus.CounterVec
	cacheLookupsTotal   *prometheus.CounterVec
	activeWatches       prometheus.Gauge
	pollTicksTotal      *prometheus.CounterVec
	streamClientsActive *prometheus.GaugeVec
	workspacesActive    prometheus.Gauge
	submitAttemptsTotal *prometheus.CounterVec
	uploadLatency       prometheus.Histogram
	uploadRejected      *prometheus.CounterVec
)

// RegisterMetrics initialises the Prometheus collectors of the portal.
func RegisterMetrics() {
	registerOnce.Do(func() {
		httpRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "portal_requests_total",
			Help: "Total number of portal API requests served.",
		}, []string{"method", "route", "status"})

		httpLatencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "portal_latency_seconds",
			Help:    "Latency distribution for portal API requests.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0},
		}, []string{"method", "route"})

		httpErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "portal_errors_total",
			Help: "Total number of error responses returned by the portal.",
		}, []string{"method", "route", "status"})

		cacheLookupsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "portal_cache_lookups_total",
			Help: "Read-through cache lookups by namespace and result.",
		}, []string{"namespace", "result"})

		activeWatches = prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "portal_submission_watches_active",
			Help: "Number of submission watches currently polling.",
		})

		pollTicksTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "portal_poll_ticks_total",
			Help: "Submission poll iterations by kind and outcome.",
		}, []string{"kind", "outcome"})

		streamClientsActive = prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "portal_stream_clients_active",
			Help: "Connected SSE and websocket clients.",
		}, []string{"transport"})

		workspacesActive = prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "portal_workspaces_active",
			Help: "Number of live challenge workspaces.",
		})

		submitAttemptsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "portal_submit_attempts_total",
			Help: "Workspace submit attempts by outcome.",
		}, []string{"outcome"})

		uploadLatency = prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "portal_upload_latency_seconds",
			Help:    "Latency of shop image uploads.",
			Buckets: prometheus.DefBuckets,
		})

		uploadRejected = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "portal_upload_rejected_total",
			Help: "Rejected shop image uploads by reason.",
		}, []string{"reason"})

		prometheus.MustRegister(
			httpRequestsTotal,
			httpLatencySeconds,
			httpErrorsTotal,
			cacheLookupsTotal,
			activeWatches,
			pollTicksTotal,
			streamClientsActive,
			workspacesActive,
			submitAttemptsTotal,
			uploadLatency,
			uploadRejected,
		)
	})
}

// HTTPRequests exposes the request counter.
func HTTPRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return httpRequestsTotal
}

// HTTPLatency exposes the request latency histogram.
func HTTPLatency() *prometheus.HistogramVec {
	RegisterMetrics()
	return httpLatencySeconds
}

// HTTPErrors exposes the error response counter.
func HTTPErrors() *prometheus.CounterVec {
	RegisterMetrics()
	return httpErrorsTotal
}

// CacheLookups exposes the cache hit/miss counter.
func CacheLookups() *prometheus.CounterVec {
	RegisterMetrics()
	return cacheLookupsTotal
}

// ActiveWatches exposes the gauge of running submission watches.
func ActiveWatches() prometheus.Gauge {
	RegisterMetrics()
	return activeWatches
}

// PollTicks exposes the poll iteration counter.
func PollTicks() *prometheus.CounterVec {
	RegisterMetrics()
	return pollTicksTotal
}

// StreamClients exposes the gauge of connected stream clients.
func StreamClients() *prometheus.GaugeVec {
	RegisterMetrics()
	return streamClientsActive
}

// WorkspacesActive exposes the gauge of live workspaces.
func WorkspacesActive() prometheus.Gauge {
	RegisterMetrics()
	return workspacesActive
}

// SubmitAttempts exposes the submit outcome counter.
func SubmitAttempts() *prometheus.CounterVec {
	RegisterMetrics()
	return submitAttemptsTotal
}

// UploadLatency exposes the upload latency histogram.
func UploadLatency() prometheus.Histogram {
	RegisterMetrics()
	return uploadLatency
}

// UploadRejected exposes the rejected upload counter.
func UploadRejected() *prometheus.CounterVec {
	RegisterMetrics()
	return uploadRejected
}
