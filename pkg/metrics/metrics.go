// Package metrics exposes the Prometheus registry shared by the postfeed
// packages and exports it for batch runs. All metrics are defined in their
// respective packages (client, pagination, ratelimit, store) via promauto.
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// Registry is the default Prometheus registry used by postfeed.
// All metrics are automatically registered via promauto in their respective packages.
var Registry = prometheus.DefaultRegisterer

// Gatherer is the gatherer paired with Registry.
var Gatherer prometheus.Gatherer = prometheus.DefaultGatherer

// WriteTextfile writes every registered metric to path in the text exposition
// format, for the node_exporter textfile collector. The file is replaced
// atomically, so a scrape never sees a partial write.
func WriteTextfile(path string) error {
	if path == "" {
		return fmt.Errorf("metrics file path is required")
	}
	if err := prometheus.WriteToTextfile(path, Gatherer); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}

// Metrics Documentation
//
// Request Metrics (pkg/client):
//   - postfeed_requests_total{method, status} (Counter): Requests by method and HTTP status
//   - postfeed_request_duration_seconds{method} (Histogram): Request duration
//   - postfeed_transport_errors_total{class} (Counter): Transport failures (network, dns, timeout, canceled)
//   - postfeed_truncated_bodies_total (Counter): Bodies shorter than their Content-Length
//
// Collection Metrics (pkg/pagination):
//   - postfeed_pages_fetched_total (Counter): Pages decoded successfully
//   - postfeed_posts_collected_total (Counter): Posts decoded
//   - postfeed_collect_failures_total{reason} (Counter): Aborted runs (http, decode, transport, canceled)
//
// Pacing Metrics (pkg/ratelimit):
//   - postfeed_pacing_waits_total (Counter): Pauses between page requests
//   - postfeed_pacing_wait_seconds_total (Counter): Time spent paused
//   - postfeed_pacing_interrupts_total (Counter): Pauses cut short by cancellation
//
// Store Metrics (pkg/store):
//   - postfeed_store_errors_total{operation} (Counter): Redis operation errors
//   - postfeed_store_feed_bytes (Gauge): Size of the last published feed
//
// Example Prometheus Queries:
//
//   # Runs aborted in the last day
//   increase(postfeed_collect_failures_total[1d])
//
//   # Posts in the last published feed
//   postfeed_posts_collected_total
//
//   # P95 Request Latency
//   histogram_quantile(0.95, rate(postfeed_request_duration_seconds_bucket[5m]))
