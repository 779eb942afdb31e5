package tmdb

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "moviecinema",
		Subsystem: "tmdb",
		Name:      "requests_total",
		Help:      "TMDB API requests by endpoint family and outcome.",
	}, []string{"endpoint", "outcome"})

	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "moviecinema",
		Subsystem: "tmdb",
		Name:      "request_duration_seconds",
		Help:      "TMDB API request latency, including retries.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"endpoint"})

	retriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "moviecinema",
		Subsystem: "tmdb",
		Name:      "retries_total",
		Help:      "TMDB API request retries.",
	}, []string{"endpoint"})
)
