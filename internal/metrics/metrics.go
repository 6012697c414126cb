// Package metrics exposes Prometheus metrics for the receipt desk.
// A nil *Metrics is valid and records nothing.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/thereceipt/parcel-receipt/internal/printer"
	"github.com/thereceipt/parcel-receipt/internal/session"
)

const namespace = "parcel_receipt"

// Metrics holds the desk's Prometheus collectors. A nil *Metrics records nothing.
type Metrics struct {
	registry *prometheus.Registry

	ReceiptsIssued prometheus.Counter
	LedgerItems    prometheus.Gauge
	PrintJobs      *prometheus.CounterVec
	Requests       *prometheus.CounterVec
	LatencyMS      *prometheus.HistogramVec
}

// New registers the collectors, plus Go and process collectors, on a private registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		ReceiptsIssued: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "receipts_issued_total",
			Help:      "Receipt numbers reserved.",
		}),
		LedgerItems: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "ledger_items",
			Help:      "Items on the receipt being built.",
		}),
		PrintJobs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "print_jobs_total",
			Help:      "Print job state transitions.",
		}, []string{"status"}),
		Requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests.",
		}, []string{"handler", "method", "status"}),
		LatencyMS: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_ms",
			Help:      "HTTP request latency in milliseconds.",
			Buckets:   []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
		}, []string{"handler"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.ReceiptsIssued,
		m.LedgerItems,
		m.PrintJobs,
		m.Requests,
		m.LatencyMS,
	)
	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ObserveSession is a session subscriber.
func (m *Metrics) ObserveSession(ev session.Event) {
	if m == nil {
		return
	}
	if ev.Kind == session.EventStamp {
		m.ReceiptsIssued.Inc()
	}
	m.LedgerItems.Set(float64(ev.Totals.ItemCount))
}

// ObserveJob is a print queue change callback.
func (m *Metrics) ObserveJob(job printer.PrintJob) {
	if m == nil {
		return
	}
	m.PrintJobs.WithLabelValues(job.Status).Inc()
}

func (m *Metrics) ObserveRequest(handler, method string, status int, took time.Duration) {
	if m == nil {
		return
	}
	m.Requests.WithLabelValues(handler, method, strconv.Itoa(status)).Inc()
	m.LatencyMS.WithLabelValues(handler).Observe(float64(took.Milliseconds()))
}
