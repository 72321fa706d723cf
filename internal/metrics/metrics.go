// Package metrics holds the Prometheus collectors shared by the cache, the
// GitLab client, the batch orchestrator and the HTTP server.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const namespace = "gitlab_pulse"

// Registry is the process registry served on /metrics.
var Registry = prometheus.NewRegistry()

var (
	CacheLookups = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "cache",
		Name:      "lookups_total",
		Help:      "Cache lookups partitioned by cache name and result (hit, miss, expired).",
	}, []string{"cache", "result"})

	CacheEvictions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "cache",
		Name:      "evictions_total",
		Help:      "Entries removed by the background sweep or an explicit clear.",
	}, []string{"cache", "reason"})

	UpstreamRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "upstream",
		Name:      "requests_total",
		Help:      "Requests sent to GitLab by resource and HTTP status code.",
	}, []string{"resource", "code"})

	UpstreamDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "upstream",
		Name:      "request_duration_seconds",
		Help:      "Latency of requests sent to GitLab.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"resource"})

	DedupShared = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "dedup",
		Name:      "shared_total",
		Help:      "Calls answered from an in-flight or settled request instead of a new one.",
	})

	BatchWaves = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "batch",
		Name:      "waves_total",
		Help:      "Batches issued by the fan-out orchestrator.",
	})

	BatchItemFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "batch",
		Name:      "item_failures_total",
		Help:      "Per-item fetch failures that were downgraded to empty results.",
	})

	ProxyRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "proxy",
		Name:      "requests_total",
		Help:      "Proxied requests by response status code.",
	}, []string{"code"})
)

func init() {
	Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		CacheLookups,
		CacheEvictions,
		UpstreamRequests,
		UpstreamDuration,
		DedupShared,
		BatchWaves,
		BatchItemFailures,
		ProxyRequests,
	)
}
