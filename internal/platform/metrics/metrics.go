package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "visapath"

// PipelineMetrics tracks the account retention pipeline.
type PipelineMetrics struct {
	// RunsTotal counts pipeline runs by outcome: ok, error or skipped.
	RunsTotal *prometheus.CounterVec

	// RunDuration observes wall time of complete pipeline runs.
	RunDuration prometheus.Histogram

	// AccountsScheduled counts accounts newly scheduled for deletion.
	AccountsScheduled prometheus.Counter

	// AccountsPurged counts accounts irreversibly purged.
	AccountsPurged prometheus.Counter

	// RowsDeleted counts dependent rows removed during purges, by table.
	RowsDeleted *prometheus.CounterVec

	// Errors counts per-account failures across both passes.
	Errors prometheus.Counter
}

func NewPipelineMetrics() *PipelineMetrics {
	return NewPipelineMetricsWithRegistry(prometheus.DefaultRegisterer)
}

// NewPipelineMetricsWithRegistry registers against a custom registry,
// keeping tests isolated from the default one.
func NewPipelineMetricsWithRegistry(reg prometheus.Registerer) *PipelineMetrics {
	factory := promauto.With(reg)
	return &PipelineMetrics{
		RunsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "pipeline",
				Name:      "runs_total",
				Help:      "Retention pipeline runs by outcome.",
			},
			[]string{"outcome"},
		),
		RunDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "pipeline",
				Name:      "run_duration_seconds",
				Help:      "Wall time of complete retention pipeline runs.",
				Buckets:   prometheus.ExponentialBuckets(0.1, 2, 12),
			},
		),
		AccountsScheduled: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "pipeline",
				Name:      "accounts_scheduled_total",
				Help:      "Accounts newly scheduled for deletion.",
			},
		),
		AccountsPurged: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "pipeline",
				Name:      "accounts_purged_total",
				Help:      "Accounts irreversibly purged.",
			},
		),
		RowsDeleted: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "pipeline",
				Name:      "rows_deleted_total",
				Help:      "Dependent rows removed during purges, by table.",
			},
			[]string{"table"},
		),
		Errors: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "pipeline",
				Name:      "errors_total",
				Help:      "Per-account failures across scheduling and purge passes.",
			},
		),
	}
}

// ObserveRun records one pipeline run.
func (m *PipelineMetrics) ObserveRun(outcome string, duration time.Duration) {
	if m == nil {
		return
	}
	m.RunsTotal.WithLabelValues(outcome).Inc()
	if outcome != "skipped" {
		m.RunDuration.Observe(duration.Seconds())
	}
}

// BreakerMetrics tracks circuit breakers guarding external calls.
type BreakerMetrics struct {
	// State holds the current breaker position per operation:
	// 0 closed, 1 open, 2 half-open.
	State *prometheus.GaugeVec

	// RejectionsTotal counts calls refused while a breaker was open.
	RejectionsTotal *prometheus.CounterVec
}

func NewBreakerMetrics() *BreakerMetrics {
	return NewBreakerMetricsWithRegistry(prometheus.DefaultRegisterer)
}

func NewBreakerMetricsWithRegistry(reg prometheus.Registerer) *BreakerMetrics {
	factory := promauto.With(reg)
	return &BreakerMetrics{
		State: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "breaker",
				Name:      "state",
				Help:      "Circuit breaker state per operation: 0 closed, 1 open, 2 half-open.",
			},
			[]string{"operation"},
		),
		RejectionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "breaker",
				Name:      "rejections_total",
				Help:      "Calls refused because the breaker was open.",
			},
			[]string{"operation"},
		),
	}
}

// ObserveState records a breaker settling into a state.
func (m *BreakerMetrics) ObserveState(operation string, code float64) {
	if m == nil {
		return
	}
	m.State.WithLabelValues(operation).Set(code)
}

// ObserveRejection records a call refused by an open breaker.
func (m *BreakerMetrics) ObserveRejection(operation string) {
	if m == nil {
		return
	}
	m.RejectionsTotal.WithLabelValues(operation).Inc()
}

// HTTPMetrics tracks the API surface.
type HTTPMetrics struct {
	RequestsTotal *prometheus.CounterVec
	Duration      *prometheus.HistogramVec
}

func NewHTTPMetrics() *HTTPMetrics {
	return NewHTTPMetricsWithRegistry(prometheus.DefaultRegisterer)
}

func NewHTTPMetricsWithRegistry(reg prometheus.Registerer) *HTTPMetrics {
	factory := promauto.With(reg)
	return &HTTPMetrics{
		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "requests_total",
				Help:      "HTTP requests by method, route pattern and status code.",
			},
			[]string{"method", "route", "status"},
		),
		Duration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "request_duration_seconds",
				Help:      "HTTP request latency by method and route pattern.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
	}
}

// Observe records one served request.
func (m *HTTPMetrics) Observe(method, route string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.RequestsTotal.WithLabelValues(method, route, statusLabel(status)).Inc()
	m.Duration.WithLabelValues(method, route).Observe(duration.Seconds())
}

func statusLabel(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}
