package search

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	searchProviderRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "search_provider_requests_total",
			Help: "Total search provider invocations by outcome.",
		},
		[]string{"provider", "status"},
	)
	searchProviderLatencyMs = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "search_provider_latency_ms",
			Help:    "Search provider call latency in milliseconds.",
			Buckets: []float64{10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000, 30000},
		},
		[]string{"provider"},
	)
	searchProviderPassagesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "search_provider_passages_total",
			Help: "Total passages contributed by each search provider.",
		},
		[]string{"provider"},
	)
)

func init() {
	prometheus.MustRegister(
		searchProviderRequestsTotal,
		searchProviderLatencyMs,
		searchProviderPassagesTotal,
	)
}

func observeProviderSearch(provider string, passages int, latency time.Duration, err error) {
	if provider == "" {
		provider = "unknown"
	}
	status := "success"
	if err != nil {
		status = "failure"
	}
	searchProviderRequestsTotal.WithLabelValues(provider, status).Inc()
	searchProviderLatencyMs.WithLabelValues(provider).Observe(float64(latency.Milliseconds()))
	if passages > 0 {
		searchProviderPassagesTotal.WithLabelValues(provider).Add(float64(passages))
	}
}
