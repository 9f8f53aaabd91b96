package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/askdb/askdb/internal/model"
)

var (
	queriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "askdb_queries_total",
			Help: "Total executed queries by kind and result.",
		},
		[]string{"kind", "result"},
	)
	queriesBlockedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "askdb_queries_blocked_total",
			Help: "Total queries blocked by the safety gates.",
		},
	)
	queryDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "askdb_query_duration_seconds",
			Help:    "End-to-end query latency, generation included.",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"kind"},
	)
	generationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "askdb_generations_total",
			Help: "Total language-model calls by result.",
		},
		[]string{"result"},
	)
	activeSessions = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "askdb_active_sessions",
			Help: "Current count of live chat sessions.",
		},
	)
	schemaSnapshotsCached = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "askdb_schema_snapshots_cached",
			Help: "Current count of cached schema snapshots.",
		},
	)
)

func init() {
	prometheus.MustRegister(
		queriesTotal,
		queriesBlockedTotal,
		queryDurationSeconds,
		generationsTotal,
		activeSessions,
		schemaSnapshotsCached,
	)
}

// ObserveQuery records one executed or blocked query.
func ObserveQuery(result *model.QueryResult, elapsed time.Duration) {
	if result == nil {
		return
	}
	kind := string(result.QueryKind)
	switch {
	case result.Blocked:
		queriesBlockedTotal.Inc()
	case result.Success:
		queriesTotal.WithLabelValues(kind, "success").Inc()
	default:
		queriesTotal.WithLabelValues(kind, "error").Inc()
	}
	queryDurationSeconds.WithLabelValues(kind).Observe(elapsed.Seconds())
}

// ObserveGeneration records one language-model call.
func ObserveGeneration(err error) {
	if err != nil {
		generationsTotal.WithLabelValues("error").Inc()
		return
	}
	generationsTotal.WithLabelValues("success").Inc()
}

// SetSessionCount updates the live-session gauge.
func SetSessionCount(n int) {
	activeSessions.Set(float64(n))
}

// SetSchemaCacheSize updates the cached-snapshot gauge.
func SetSchemaCacheSize(n int) {
	schemaSnapshotsCached.Set(float64(n))
}
