// Package metrics exposes the gateway's Prometheus collectors.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics owns a private registry so tests can build as many as they like.
type Metrics struct {
	registry *prometheus.Registry

	UpstreamRequests *prometheus.CounterVec
	UpstreamDuration *prometheus.HistogramVec
	Aggregations     *prometheus.CounterVec
	RateLimited      prometheus.Counter
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		UpstreamRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gateway_upstream_requests_total",
				Help: "Total number of upstream fetches by outcome class",
			},
			[]string{"upstream", "class"},
		),
		UpstreamDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "gateway_upstream_request_duration_seconds",
				Help:    "Duration of upstream fetches in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"upstream"},
		),
		Aggregations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gateway_aggregations_total",
				Help: "Total number of aggregations by result",
			},
			[]string{"result"},
		),
		RateLimited: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "gateway_rate_limited_requests_total",
				Help: "Total number of requests rejected by the rate limiter",
			},
		),
	}
}

// ObserveFetch records one finished upstream fetch.
func (m *Metrics) ObserveFetch(upstream, class string, d time.Duration) {
	m.UpstreamRequests.WithLabelValues(upstream, class).Inc()
	m.UpstreamDuration.WithLabelValues(upstream).Observe(d.Seconds())
}

// ObserveAggregation records the result of one aggregation: "ok" or the
// error kind.
func (m *Metrics) ObserveAggregation(result string) {
	m.Aggregations.WithLabelValues(result).Inc()
}

func (m *Metrics) ObserveRateLimited() {
	m.RateLimited.Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
