// Package metrics provides the centralized Prometheus metrics registry for
// the NCM client. All metrics are defined in their respective packages
// (client, cache, ratelimit) to maintain modularity and avoid circular
// dependencies.
//
// This package provides documentation and reference for all available metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Registry is the default Prometheus registry used by the NCM client.
// All metrics are automatically registered via promauto in their respective packages.
var Registry = prometheus.DefaultRegisterer

// Metrics Documentation
//
// Request Metrics (pkg/client):
//   - ncm_requests_total{endpoint, method, status} (Counter): Total requests by endpoint and HTTP status
//   - ncm_request_duration_seconds{endpoint} (Histogram): Request duration by endpoint
//   - ncm_errors_total{class} (Counter): Errors by class (auth, not_found, rate_limit, server, request, transport)
//
// Retry Metrics (pkg/client):
//   - ncm_retries_total{error_class} (Counter): Retry attempts by error class
//   - ncm_retry_backoff_seconds{error_class} (Histogram): Backoff duration by error class
//   - ncm_retry_exhausted_total{error_class} (Counter): Requests that exhausted max retries
//
// Pagination Metrics (pkg/client):
//   - ncm_pages_fetched_total{endpoint} (Counter): Pages fetched during walks
//   - ncm_partial_walks_total{endpoint} (Counter): Walks that returned partial results
//   - ncm_filter_chunks_total{endpoint} (Counter): Filter chunks produced by oversized __in sets
//
// Pacer Metrics (pkg/ratelimit):
//   - ncm_pacer_waits_total (Counter): Requests delayed by minimum-interval pacing
//   - ncm_pacer_wait_seconds (Histogram): Time spent waiting on the pacer
//   - ncm_pacer_cooldowns_total (Counter): Server-imposed cooldowns recorded
//   - ncm_pacer_cooldown_deadline_seconds (Gauge): Unix time until which requests are held
//
// Cache Metrics (pkg/cache):
//   - ncm_cache_hits_total (Counter): List-result cache hits
//   - ncm_cache_misses_total (Counter): List-result cache misses
//   - ncm_cache_errors_total{operation} (Counter): Cache operation errors
//
// Example Prometheus Queries:
//
//   # Cache Hit Rate
//   sum(rate(ncm_cache_hits_total[5m])) /
//   (sum(rate(ncm_cache_hits_total[5m])) + sum(rate(ncm_cache_misses_total[5m])))
//
//   # Request Error Rate
//   rate(ncm_errors_total[5m])
//
//   # P95 Request Latency
//   histogram_quantile(0.95, rate(ncm_request_duration_seconds_bucket[5m]))
//
//   # Share of walks ending partial
//   rate(ncm_partial_walks_total[5m]) / rate(ncm_pages_fetched_total[5m])
