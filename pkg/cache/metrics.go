package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CacheHits tracks list-result cache hits
	CacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ncm_cache_hits_total",
			Help: "Total number of NCM list-result cache hits",
		},
	)

	// CacheMisses tracks cache misses
	CacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ncm_cache_misses_total",
			Help: "Total number of NCM list-result cache misses",
		},
	)

	// CacheSize tracks bytes moved through the cache
	CacheSize = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "ncm_cache_size_bytes",
			Help: "Bytes read from or written to the NCM list-result cache",
		},
	)

	// CacheErrors tracks cache operation errors
	CacheErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ncm_cache_errors_total",
			Help: "Total number of cache operation errors",
		},
		[]string{"operation"}, // "get", "set", "delete", "flush"
	)
)
