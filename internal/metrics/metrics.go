// Package metrics exposes Prometheus counters for recharge bookkeeping and
// the HTTP surface.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "simtracker"

// Metrics owns a private registry so tests and multiple servers never clash
// on the global one. A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	smsImports      *prometheus.CounterVec
	rechargesAdded  *prometheus.CounterVec
	persistFailures prometheus.Counter
	exports         *prometheus.CounterVec
	scanTasks       *prometheus.CounterVec
	httpRequests    *prometheus.CounterVec
	httpDuration    *prometheus.HistogramVec
	simCards        prometheus.Gauge
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		smsImports: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sms_imports_total",
			Help:      "SMS messages processed by the importer, by outcome.",
		}, []string{"outcome"}),
		rechargesAdded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "recharges_recorded_total",
			Help:      "Recharges added to the store, by source.",
		}, []string{"source"}),
		persistFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "state_persist_failures_total",
			Help:      "State snapshots that could not be written.",
		}),
		exports: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "exports_total",
			Help:      "Recharge exports produced, by format.",
		}, []string{"format"}),
		scanTasks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scan_tasks_total",
			Help:      "Delayed SMS scan tasks, by result.",
		}, []string{"result"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests served, by method, route and status code.",
		}, []string{"method", "route", "code"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency, by method and route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		simCards: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sim_cards",
			Help:      "SIM cards currently registered.",
		}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.smsImports,
		m.rechargesAdded,
		m.persistFailures,
		m.exports,
		m.scanTasks,
		m.httpRequests,
		m.httpDuration,
		m.simCards,
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) SmsImported(outcome string) {
	if m == nil {
		return
	}
	m.smsImports.WithLabelValues(outcome).Inc()
}

func (m *Metrics) RechargeRecorded(source string) {
	if m == nil {
		return
	}
	m.rechargesAdded.WithLabelValues(source).Inc()
}

func (m *Metrics) PersistFailed() {
	if m == nil {
		return
	}
	m.persistFailures.Inc()
}

func (m *Metrics) Exported(format string) {
	if m == nil {
		return
	}
	m.exports.WithLabelValues(format).Inc()
}

func (m *Metrics) ScanFinished(result string) {
	if m == nil {
		return
	}
	m.scanTasks.WithLabelValues(result).Inc()
}

func (m *Metrics) SetSimCards(n int) {
	if m == nil {
		return
	}
	m.simCards.Set(float64(n))
}

func (m *Metrics) ObserveHTTP(method, route string, code int, elapsed time.Duration) {
	if m == nil {
		return
	}
	if route == "" {
		route = "unmatched"
	}
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(code)).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

// TrackRequestGuards exports the counters kept by the rate limiter and the
// suspicious request detector. Registering twice panics.
func (m *Metrics) TrackRequestGuards(rejected, suspicious func() int64) {
	if m == nil {
		return
	}
	m.registry.MustRegister(
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_rate_limited_total",
			Help:      "Requests refused by the per-client rate limit.",
		}, func() float64 { return float64(rejected()) }),
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_suspicious_requests_total",
			Help:      "Requests flagged by the suspicious request detector.",
		}, func() float64 { return float64(suspicious()) }),
	)
}
