package metrics

import "github.com/prometheus/client_golang/prometheus"

// Matching core Prometheus metrics.
var (
	VectorCacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "vecmatch",
			Name:      "vector_cache_total",
			Help:      "In-process vector cache hits and misses",
		},
		[]string{"result"}, // "hit" / "miss"
	)

	PoolCandidates = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "vecmatch",
			Name:      "pool_candidates",
			Help:      "Stored candidates, including expired ones not yet swept",
		},
	)

	PoolSweptTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "vecmatch",
			Name:      "pool_swept_total",
			Help:      "Expired candidates removed by the sweeper",
		},
	)

	MatchResultsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "vecmatch",
			Name:      "match_results_total",
			Help:      "Returned matches per tier",
		},
		[]string{"tier"}, // "precise" / "recommended"
	)

	MatchDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "vecmatch",
			Name:      "match_duration_seconds",
			Help:      "Submission processing time, embedding included",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
	)
)

var matchMetricsRegistered bool

// RegisterMatchingMetrics registers the matching core metrics. Must be called once from main.
func RegisterMatchingMetrics() {
	if matchMetricsRegistered {
		return
	}
	prometheus.MustRegister(VectorCacheTotal)
	prometheus.MustRegister(PoolCandidates)
	prometheus.MustRegister(PoolSweptTotal)
	prometheus.MustRegister(MatchResultsTotal)
	prometheus.MustRegister(MatchDuration)
	matchMetricsRegistered = true
}
