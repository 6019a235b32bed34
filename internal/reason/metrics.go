package reason

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Graph build scopes
const (
	ScopeFull     = "full"
	ScopeCategory = "category"
)

// Metrics are the engine's Prometheus collectors
type Metrics struct {
	Queries       *prometheus.CounterVec
	QueryDuration *prometheus.HistogramVec
	Builds        *prometheus.CounterVec
	BuildDuration *prometheus.HistogramVec
}

// NewMetrics registers the collectors with reg. A nil reg leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Queries: f.NewCounterVec(prometheus.CounterOpts{
			Name: "kgreason_queries_total",
			Help: "Queries executed, by type and outcome",
		}, []string{"query_type", "outcome"}),
		QueryDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "kgreason_query_duration_seconds",
			Help:    "Query latency including any graph build it triggered",
			Buckets: prometheus.ExponentialBuckets(0.0005, 4, 10),
		}, []string{"query_type"}),
		Builds: f.NewCounterVec(prometheus.CounterOpts{
			Name: "kgreason_graph_builds_total",
			Help: "In-memory graph builds, by scope",
		}, []string{"scope"}),
		BuildDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "kgreason_graph_build_duration_seconds",
			Help:    "In-memory graph build time",
			Buckets: prometheus.ExponentialBuckets(0.01, 4, 8),
		}, []string{"scope"}),
	}
}
