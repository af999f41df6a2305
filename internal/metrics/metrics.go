// Package metrics holds the Prometheus collectors exported at /metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	registry *prometheus.Registry

	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	CartMutations   *prometheus.CounterVec
	PersistFailures *prometheus.CounterVec
	ActiveSessions  prometheus.Gauge
	Checkouts       *prometheus.CounterVec
}

// New registers every collector on a fresh registry, so several instances can
// coexist in tests.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		RequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "storefront_requests_total",
				Help: "Total number of HTTP requests handled by the storefront",
			},
			[]string{"method", "route", "status"},
		),
		RequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "storefront_request_duration_seconds",
				Help:    "Duration of storefront HTTP requests in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		CartMutations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "storefront_store_mutations_total",
				Help: "Cart and wishlist mutations by operation and outcome",
			},
			[]string{"store", "operation", "result"},
		),
		PersistFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "storefront_persist_failures_total",
				Help: "Snapshots that could not be written to the durability backend",
			},
			[]string{"store"},
		),
		ActiveSessions: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "storefront_active_sessions",
				Help: "Client sessions currently holding a cart and wishlist in memory",
			},
		),
		Checkouts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "storefront_checkouts_total",
				Help: "Checkout attempts by outcome",
			},
			[]string{"result"},
		),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.RequestsTotal,
		m.RequestDuration,
		m.CartMutations,
		m.PersistFailures,
		m.ActiveSessions,
		m.Checkouts,
	)
	return m
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Result maps an error to the outcome label.
func Result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
