package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce                sync.Once
	httpRequestsTotal           *prometheus.CounterVec
	httpLatencySeconds          *prometheus.HistogramVec
	httpErrorsTotal             *prometheus.CounterVec
	complianceEvaluationsTotal  *prometheus.CounterVec
	logbookTransitionsTotal     *prometheus.CounterVec
	complianceCacheLookupsTotal *prometheus.CounterVec
)

// RegisterMetrics initialises the Prometheus collectors used by the API.
func RegisterMetrics() {
	registerOnce.Do(func() {
		httpRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "praxis_http_requests_total",
			Help: "Total number of API requests served.",
		}, []string{"method", "route", "status"})

		httpLatencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "praxis_http_latency_seconds",
			Help:    "Latency distribution for API requests.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0},
		}, []string{"method", "route"})

		httpErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "praxis_http_errors_total",
			Help: "Total number of error responses returned by the API.",
		}, []string{"method", "route", "status"})

		complianceEvaluationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "praxis_compliance_evaluations_total",
			Help: "Compliance reports produced, by program, track and outcome.",
		}, []string{"program", "track", "valid"})

		logbookTransitionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "praxis_logbook_transitions_total",
			Help: "Logbook transition attempts, by source, target and outcome.",
		}, []string{"from", "to", "outcome"})

		complianceCacheLookupsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "praxis_compliance_cache_lookups_total",
			Help: "Hour bucket cache lookups, by result.",
		}, []string{"result"})

		prometheus.MustRegister(
			httpRequestsTotal,
			httpLatencySeconds,
			httpErrorsTotal,
			complianceEvaluationsTotal,
			logbookTransitionsTotal,
			complianceCacheLookupsTotal,
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

// ComplianceEvaluations exposes the compliance report counter.
func ComplianceEvaluations() *prometheus.CounterVec {
	RegisterMetrics()
	return complianceEvaluationsTotal
}

// LogbookTransitions exposes the transition attempt counter.
func LogbookTransitions() *prometheus.CounterVec {
	RegisterMetrics()
	return logbookTransitionsTotal
}

// ComplianceCacheLookups exposes the bucket cache counter.
func ComplianceCacheLookups() *prometheus.CounterVec {
	RegisterMetrics()
	return complianceCacheLookupsTotal
}
