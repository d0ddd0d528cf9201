package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/prism-ops/llm-resilience/internal/sample"
)

// Latency histogram bucket boundaries in milliseconds.
var latencyBuckets = []float64{100, 250, 500, 750, 1000, 1250, 1500, 2000, 5000}

// Canary holds the Prometheus metrics derived from ingested canary samples.
// Each Canary owns a private registry so independent instances never clash.
type Canary struct {
	registry *prometheus.Registry
	requests *prometheus.CounterVec
	latency  *prometheus.HistogramVec
}

// NewCanary creates the canary metric set plus the default Go and process
// collectors.
func NewCanary() *Canary {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	factory := promauto.With(registry)

	return &Canary{
		registry: registry,
		requests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "prism_llm_canary_requests_total",
				Help: "Total canary requests observed, by provider and outcome",
			},
			[]string{"provider", "status"},
		),
		latency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "prism_llm_canary_latency_ms",
				Help:    "Canary request latency in milliseconds",
				Buckets: latencyBuckets,
			},
			[]string{"provider"},
		),
	}
}

// Observe records one accepted sample.
func (c *Canary) Observe(s sample.Sample) {
	status := "ok"
	if !s.OK {
		status = "error"
	}

	c.requests.WithLabelValues(s.Provider, status).Inc()
	c.latency.WithLabelValues(s.Provider).Observe(s.LatencyMS)
}

// Handler serves the registry in Prometheus text exposition format.
func (c *Canary) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry so callers can scrape or gather
// programmatically.
func (c *Canary) Registry() *prometheus.Registry {
	return c.registry
}
