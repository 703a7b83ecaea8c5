// Package metrics exposes Prometheus collectors for the HTTP surface, the
// ledger and the offline cache.
package metrics

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"allocation-tracker/internal/core"
	"allocation-tracker/internal/ledger"
)

const namespace = "allocation_tracker"

// Metrics owns a private registry so tests and multiple servers never collide
// on the global one.
type Metrics struct {
	registry        *prometheus.Registry
	requestCount    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	ledgerEvents    *prometheus.CounterVec
	paymentAmount   *prometheus.CounterVec
	offlineFetches  *prometheus.CounterVec
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requestCount: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "requests_total",
				Help:      "How many HTTP requests processed, partitioned by status code, method and route.",
			},
			[]string{"code", "method", "route"},
		),
		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "request_duration_seconds",
				Help:      "The HTTP request latencies in seconds.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"code", "method", "route"},
		),
		ledgerEvents: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "ledger_events_total",
				Help:      "Committed ledger mutations by kind.",
			},
			[]string{"kind"},
		),
		paymentAmount: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "payment_amount_ringgit_total",
				Help:      "Sum of recorded payment amounts since start.",
			},
			[]string{"allocation"},
		),
		offlineFetches: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "offline_fetches_total",
				Help:      "Offline worker fetches by cache namespace and outcome.",
			},
			[]string{"cache", "outcome"},
		),
	}
	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.requestCount,
		m.requestDuration,
		m.ledgerEvents,
		m.paymentAmount,
		m.offlineFetches,
	)
	return m
}

// Registry is exposed for tests.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Middleware records request count and latency. route labels the request;
// it must return a bounded set of values.
func (m *Metrics) Middleware(route func(*http.Request) string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)

			labels := prometheus.Labels{
				"code":   strconv.Itoa(rec.status),
				"method": r.Method,
				"route":  route(r),
			}
			m.requestCount.With(labels).Inc()
			m.requestDuration.With(labels).Observe(time.Since(start).Seconds())
		})
	}
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// LedgerChanged implements ledger.Observer.
func (m *Metrics) LedgerChanged(_ context.Context, ev ledger.Event) {
	m.ledgerEvents.WithLabelValues(string(ev.Kind)).Inc()
	if ev.Kind == ledger.EventPaymentAdded {
		m.paymentAmount.WithLabelValues(string(ev.Type)).Add(ev.Record.Amount.Float64())
	}
}

// ObserveFetch implements offline.Metrics.
func (m *Metrics) ObserveFetch(cache, outcome string) {
	m.offlineFetches.WithLabelValues(cache, outcome).Inc()
}

// SummarySource is satisfied by *ledger.Service.
type SummarySource interface {
	Summary() []core.AllocationSummary
}

// RegisterLedger exports budget, used and remaining gauges read from src at
// scrape time.
func (m *Metrics) RegisterLedger(src SummarySource) error {
	return m.registry.Register(&allocationCollector{src: src})
}

var (
	budgetDesc = prometheus.NewDesc(
		prometheus.BuildFQName(namespace, "allocation", "budget_ringgit"),
		"Configured budget of each allocation.",
		[]string{"allocation"}, nil)
	usedDesc = prometheus.NewDesc(
		prometheus.BuildFQName(namespace, "allocation", "used_ringgit"),
		"Sum of payments recorded against each allocation.",
		[]string{"allocation"}, nil)
	remainingDesc = prometheus.NewDesc(
		prometheus.BuildFQName(namespace, "allocation", "remaining_ringgit"),
		"Unspent budget of each allocation.",
		[]string{"allocation"}, nil)
	lowDesc = prometheus.NewDesc(
		prometheus.BuildFQName(namespace, "allocation", "low"),
		"1 when the remaining budget is below the warning threshold.",
		[]string{"allocation"}, nil)
)

type allocationCollector struct {
	src SummarySource
}

func (c *allocationCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- budgetDesc
	ch <- usedDesc
	ch <- remainingDesc
	ch <- lowDesc
}

func (c *allocationCollector) Collect(ch chan<- prometheus.Metric) {
	for _, s := range c.src.Summary() {
		t := string(s.Type)
		ch <- prometheus.MustNewConstMetric(budgetDesc, prometheus.GaugeValue, s.Budget.Float64(), t)
		ch <- prometheus.MustNewConstMetric(usedDesc, prometheus.GaugeValue, s.Used.Float64(), t)
		ch <- prometheus.MustNewConstMetric(remainingDesc, prometheus.GaugeValue, s.Remaining.Float64(), t)
		low := 0.0
		if s.Low {
			low = 1
		}
		ch <- prometheus.MustNewConstMetric(lowDesc, prometheus.GaugeValue, low, t)
	}
}
