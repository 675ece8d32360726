package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// CacheLookups counts result cache lookups by outcome (hit, miss, error, bypass).
	CacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "datagrid_cache_lookups_total",
			Help: "Total number of result cache lookups",
		},
		[]string{"result"},
	)
	// CacheInvalidations counts cache entries removed by invalidation.
	CacheInvalidations = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "datagrid_cache_invalidated_entries_total",
			Help: "Total number of result cache entries removed by invalidation",
		},
	)
	// PhaseDuration is the latency of pipeline phases (total_count, filter_count, select).
	PhaseDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "datagrid_phase_duration_seconds",
			Help:    "Grid pipeline phase latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"record_type", "phase"},
	)
	// RequestTotal counts RPCs by method and status code.
	RequestTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "datagrid_rpc_requests_total",
			Help: "Total number of RPC requests",
		},
		[]string{"method", "code"},
	)
	// RequestDuration is the latency of RPCs.
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "datagrid_rpc_request_duration_seconds",
			Help:    "RPC latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method"},
	)
)

// Handler serves the default registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.Handler()
}
