package observability

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "user_service"

// Metrics holds the Prometheus collectors for the service.
type Metrics struct {
	Registry *prometheus.Registry

	requests        *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	errors          *prometheus.CounterVec
	connections     prometheus.Gauge
	broadcasts      prometheus.Counter
	deliveries      *prometheus.CounterVec
}

// NewMetrics registers collectors on a fresh registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,
		requests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route and status.",
		}, []string{"method", "route", "status"}),
		requestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		errors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_errors_total",
			Help:      "Error responses by route and error kind.",
		}, []string{"method", "route", "kind"}),
		connections: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "notification_connections",
			Help:      "Live notification websocket connections.",
		}),
		broadcasts: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notification_broadcasts_total",
			Help:      "Broadcasts issued.",
		}),
		deliveries: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notification_deliveries_total",
			Help:      "Per-connection delivery outcomes.",
		}, []string{"result"}),
	}
}

// RecordRequest increments counters for requests.
func (m *Metrics) RecordRequest(route, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.requestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// RecordError increments error counters.
func (m *Metrics) RecordError(route, method, kind string) {
	if m == nil {
		return
	}
	m.errors.WithLabelValues(method, route, kind).Inc()
}

// ConnectionOpened tracks a new notification subscriber.
func (m *Metrics) ConnectionOpened() {
	if m == nil {
		return
	}
	m.connections.Inc()
}

// ConnectionClosed tracks a subscriber leaving.
func (m *Metrics) ConnectionClosed() {
	if m == nil {
		return
	}
	m.connections.Dec()
}

// RecordBroadcast tracks one broadcast and its delivery outcome.
func (m *Metrics) RecordBroadcast(delivered, skipped, failed int) {
	if m == nil {
		return
	}
	m.broadcasts.Inc()
	m.deliveries.WithLabelValues("delivered").Add(float64(delivered))
	m.deliveries.WithLabelValues("skipped").Add(float64(skipped))
	m.deliveries.WithLabelValues("failed").Add(float64(failed))
}
