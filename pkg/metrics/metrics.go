// Package metrics provides the centralized Prometheus metrics registry.
// Metrics are defined in their owning packages (telegram, governor,
// cache, enumerate) to maintain modularity and avoid circular
// dependencies.
//
// This package provides documentation and reference for all available metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry is the default Prometheus registry used by this module.
// All metrics are automatically registered via promauto in their respective packages.
var Registry = prometheus.DefaultRegisterer

// Handler returns an HTTP handler serving all registered metrics in
// Prometheus exposition format.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Metrics Documentation
//
// Gateway Request Metrics (pkg/telegram):
//   - tg_requests_total{endpoint, status} (Counter): Requests by endpoint and HTTP status
//   - tg_request_duration_seconds{endpoint} (Histogram): Request duration by endpoint
//   - tg_errors_total{class} (Counter): Errors by class (auth, forbidden, rate_limit, server, network, client)
//
// Retry Metrics (pkg/telegram):
//   - tg_retries_total{error_class} (Counter): Retry attempts by error class
//   - tg_retry_backoff_seconds{error_class} (Histogram): Backoff duration by error class
//   - tg_retry_exhausted_total{error_class} (Counter): Requests that exhausted max retries
//
// Governor Metrics (pkg/governor):
//   - tg_pacer_wait_seconds (Histogram): Time spent waiting on the request pacer
//   - tg_flood_wait_seconds (Gauge): Remaining seconds of the pending flood wait
//   - tg_flood_blocks_total (Counter): Requests blocked by a pending flood wait
//   - tg_flood_throttles_total (Counter): Requests throttled inside the cooldown window
//
// Cache Metrics (pkg/cache):
//   - tg_cache_hits_total (Counter): Cache hits
//   - tg_cache_misses_total (Counter): Cache misses
//   - tg_cache_errors_total{operation} (Counter): Cache operation errors
//
// Enumeration Metrics (pkg/enumerate):
//   - tg_enum_runs_total{status} (Counter): Runs by terminal status (completed, failed, cancelled)
//   - tg_enum_filters_total{result} (Counter): Filter values processed (ok, failed)
//   - tg_enum_run_duration_seconds (Histogram): Run duration
//   - tg_enum_unique_members (Gauge): Unique members collected by the most recent run
//
// Example Prometheus Queries:
//
//   # Request error rate
//   rate(tg_errors_total[5m])
//
//   # Flood pressure
//   tg_flood_wait_seconds > 0
//
//   # Filter failure ratio
//   sum(rate(tg_enum_filters_total{result="failed"}[1h])) /
//   sum(rate(tg_enum_filters_total[1h]))
//
//   # P95 request latency
//   histogram_quantile(0.95, rate(tg_request_duration_seconds_bucket[5m]))
