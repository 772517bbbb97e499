// Package metrics holds the Prometheus collectors of the sync server.
package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "delta_sync"

// Metrics owns a private registry so tests can build as many instances as
// they need.
type Metrics struct {
	registry *prometheus.Registry

	uploads          prometheus.Counter
	storedDeltas     prometheus.Counter
	conflicts        *prometheus.CounterVec
	downloads        prometheus.Counter
	downloadedDeltas prometheus.Counter
	requests         *prometheus.CounterVec
	requestDuration  *prometheus.HistogramVec
	storeMode        *prometheus.GaugeVec
}

// New registers every collector, plus the Go runtime and process
// collectors, on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		uploads: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "uploads_total",
			Help:      "Upload requests that reached the delta store.",
		}),
		storedDeltas: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stored_deltas_total",
			Help:      "Deltas accepted by the delta store.",
		}),
		conflicts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "conflicts_total",
			Help:      "Uploaded deltas that were not stored, by reason.",
		}, []string{"reason"}),
		downloads: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "downloads_total",
			Help:      "Download requests served.",
		}),
		downloadedDeltas: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "downloaded_deltas_total",
			Help:      "Deltas returned by downloads.",
		}),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route, method and status.",
		}, []string{"route", "method", "status"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
		storeMode: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "store_mode",
			Help:      "1 for the current delta store mode, 0 otherwise.",
		}, []string{"mode"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.uploads,
		m.storedDeltas,
		m.conflicts,
		m.downloads,
		m.downloadedDeltas,
		m.requests,
		m.requestDuration,
		m.storeMode,
	)

	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry exposes the underlying registry, e.g. for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveUpload counts one upload with its stored deltas and the reasons of
// its conflicts.
func (m *Metrics) ObserveUpload(stored int, reasons []string) {
	m.uploads.Inc()
	m.storedDeltas.Add(float64(stored))
	for _, r := range reasons {
		m.conflicts.WithLabelValues(reasonLabel(r)).Inc()
	}
}

// ObserveDownload counts one download returning n deltas.
func (m *Metrics) ObserveDownload(n int) {
	m.downloads.Inc()
	m.downloadedDeltas.Add(float64(n))
}

// ObserveRequest records one finished HTTP request.
func (m *Metrics) ObserveRequest(route, method string, status int, elapsed time.Duration) {
	m.requests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	m.requestDuration.WithLabelValues(route).Observe(elapsed.Seconds())
}

// SetMode marks mode as the current store mode.
func (m *Metrics) SetMode(mode string) {
	m.storeMode.Reset()
	m.storeMode.WithLabelValues(mode).Set(1)
}

// reasonLabel drops the detail of "invalid delta: <detail>" to keep the
// label set bounded.
func reasonLabel(reason string) string {
	if i := strings.IndexByte(reason, ':'); i >= 0 {
		return reason[:i]
	}
	return reason
}
