package catalog

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	requestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cardscan_catalog_requests_total",
			Help: "Catalog requests by endpoint and outcome",
		},
		[]string{"endpoint", "outcome"},
	)

	requestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cardscan_catalog_request_duration_seconds",
			Help:    "Catalog request latency",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 3, 5},
		},
		[]string{"endpoint"},
	)

	breakerState = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "cardscan_catalog_breaker_state",
			Help: "Catalog circuit breaker state (0=closed, 1=open, 2=half-open)",
		},
	)

	cacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cardscan_catalog_cache_lookups_total",
			Help: "Catalog cache lookups by result",
		},
		[]string{"result"},
	)
)
