package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry holds all Prometheus collectors for tradepilot.
// Each Registry owns its prometheus.Registry so tests can build as many as
// they like.
type Registry struct {
	reg *prometheus.Registry

	Evaluations      *prometheus.CounterVec
	ExitTriggers     *prometheus.CounterVec
	ProviderCalls    *prometheus.CounterVec
	ProviderDuration *prometheus.HistogramVec
	CacheHits        *prometheus.CounterVec
	CacheMisses      *prometheus.CounterVec
	HTTPDuration     *prometheus.HistogramVec
	JobRuns          *prometheus.CounterVec
}

// New creates and registers every collector
func New() *Registry {
	r := &Registry{
		reg: prometheus.NewRegistry(),

		Evaluations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tradepilot_evaluations_total",
				Help: "Stock evaluations by composite label",
			},
			[]string{"label"},
		),

		ExitTriggers: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tradepilot_exit_triggers_total",
				Help: "Fired stop-loss/take-profit conditions by type",
			},
			[]string{"side", "type"},
		),

		ProviderCalls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tradepilot_provider_calls_total",
				Help: "Market data provider calls by series and result",
			},
			[]string{"series", "result"},
		),

		ProviderDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "tradepilot_provider_duration_seconds",
				Help:    "Market data provider call latency",
				Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
			},
			[]string{"series"},
		),

		CacheHits: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tradepilot_cache_hits_total",
				Help: "Market data cache hits by series",
			},
			[]string{"series"},
		),

		CacheMisses: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tradepilot_cache_misses_total",
				Help: "Market data cache misses by series",
			},
			[]string{"series"},
		),

		HTTPDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "tradepilot_http_request_duration_seconds",
				Help:    "HTTP request latency by route and status",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route", "status"},
		),

		JobRuns: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tradepilot_job_runs_total",
				Help: "Scheduler job runs by job and status",
			},
			[]string{"job", "status"},
		),
	}

	r.reg.MustRegister(
		r.Evaluations,
		r.ExitTriggers,
		r.ProviderCalls,
		r.ProviderDuration,
		r.CacheHits,
		r.CacheMisses,
		r.HTTPDuration,
		r.JobRuns,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return r
}

// Handler serves the registry in the Prometheus exposition format
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{})
}

// Gatherer exposes the underlying registry (tests)
func (r *Registry) Gatherer() prometheus.Gatherer {
	return r.reg
}

// ObserveProvider records one provider call.
// A nil Registry is valid and records nothing.
func (r *Registry) ObserveProvider(series string, started time.Time, err error) {
	if r == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	r.ProviderCalls.WithLabelValues(series, result).Inc()
	r.ProviderDuration.WithLabelValues(series).Observe(time.Since(started).Seconds())
}

// CacheResult records a cache hit or miss
func (r *Registry) CacheResult(series string, hit bool) {
	if r == nil {
		return
	}
	if hit {
		r.CacheHits.WithLabelValues(series).Inc()
		return
	}
	r.CacheMisses.WithLabelValues(series).Inc()
}

// Evaluation records one composite evaluation
func (r *Registry) Evaluation(label string) {
	if r == nil {
		return
	}
	r.Evaluations.WithLabelValues(label).Inc()
}

// ExitTrigger records one fired exit condition
func (r *Registry) ExitTrigger(side, conditionType string) {
	if r == nil {
		return
	}
	r.ExitTriggers.WithLabelValues(side, conditionType).Inc()
}

// JobRun records a scheduler job completion
func (r *Registry) JobRun(job, status string) {
	if r == nil {
		return
	}
	r.JobRuns.WithLabelValues(job, status).Inc()
}
