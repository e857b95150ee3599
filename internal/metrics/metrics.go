package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	registry = prometheus.NewRegistry()

	CacheLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "ambient_clock_cache_lookups_total", Help: "Cache lookups by cache name and result (hit, miss)"},
		[]string{"cache", "result"},
	)
	UpstreamRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "ambient_clock_upstream_requests_total", Help: "Outbound provider calls by provider and outcome"},
		[]string{"provider", "outcome"},
	)
	DemoResponses = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "ambient_clock_demo_responses_total", Help: "Responses served from generated demo data"},
		[]string{"kind"},
	)
	SnapshotsCollected = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "ambient_clock_snapshots_collected_total", Help: "Astronomy snapshots computed by the collector"},
	)
)

func init() {
	registry.MustRegister(
		CacheLookups,
		UpstreamRequests,
		DemoResponses,
		SnapshotsCollected,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
}

func Handler() http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}

func CacheHit(name string)  { CacheLookups.WithLabelValues(name, "hit").Inc() }
func CacheMiss(name string) { CacheLookups.WithLabelValues(name, "miss").Inc() }

func Upstream(provider string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	UpstreamRequests.WithLabelValues(provider, outcome).Inc()
}
