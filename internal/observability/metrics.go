package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	MatchCallsTotal = promauto.NewCounter(prometheus.CounterOpts{Namespace: "ride_matching", Name: "match_calls_total", Help: "Total matching calls"})
	MatchesTotal    = promauto.NewCounter(prometheus.CounterOpts{Namespace: "ride_matching", Name: "matches_total", Help: "Matching calls that returned at least one offer"})
	MatchLatency    = promauto.NewHistogram(prometheus.HistogramOpts{Namespace: "ride_matching", Name: "match_latency_seconds", Help: "Match latency seconds"})
	MatchesReturned = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "ride_matching",
		Name:      "matches_returned",
		Help:      "Number of offers returned per matching call",
		Buckets:   []float64{0, 1, 2, 5, 10, 25, 50},
	})
	OffersRejectedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: "ride_matching", Name: "offers_rejected_total", Help: "Offers dropped by a matching filter"},
		[]string{"reason"},
	)

	CacheHitsTotal     = promauto.NewCounter(prometheus.CounterOpts{Namespace: "ride_matching", Name: "cache_hits_total", Help: "Match cache hits"})
	CacheMissesTotal   = promauto.NewCounter(prometheus.CounterOpts{Namespace: "ride_matching", Name: "cache_misses_total", Help: "Match cache misses"})
	PublishErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{Namespace: "ride_matching", Name: "publish_errors_total", Help: "Failed match event publications"})

	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: "ride_matching", Name: "http_requests_total", Help: "Total HTTP requests handled"},
		[]string{"method", "path", "status"},
	)
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "ride_matching",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency distribution",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)
