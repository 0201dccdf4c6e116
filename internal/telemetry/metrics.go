// Package telemetry holds the prometheus collectors of the service.
package telemetry

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const metricPrefix = "insights_"

const (
	ResultHit     = "hit"
	ResultMiss    = "miss"
	ResultSuccess = "success"
	ResultError   = "error"
)

var (
	registerOnce sync.Once

	cacheRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: metricPrefix + "order_cache_requests_total",
			Help: "Order page cache lookups by result",
		},
		[]string{"result"},
	)
	shippingLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: metricPrefix + "shipping_lookups_total",
			Help: "Shipping cost lookups by source",
		},
		[]string{"source"},
	)
	dashboardBuilds = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: metricPrefix + "dashboard_builds_total",
			Help: "Dashboard pipeline runs by result",
		},
		[]string{"result"},
	)
	upstreamPageLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    metricPrefix + "upstream_page_seconds",
			Help:    "Upstream order page fetch latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"result"},
	)
)

// Init registers the collectors with the default registry. Safe to call more
// than once.
func Init() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			cacheRequests,
			shippingLookups,
			dashboardBuilds,
			upstreamPageLatency,
		)
	})
}

func ObserveCacheRequest(result string) {
	cacheRequests.WithLabelValues(result).Inc()
}

func ObserveShippingLookup(source string) {
	shippingLookups.WithLabelValues(source).Inc()
}

func ObserveDashboardBuild(result string) {
	dashboardBuilds.WithLabelValues(result).Inc()
}

func ObserveUpstreamPage(result string, d time.Duration) {
	upstreamPageLatency.WithLabelValues(result).Observe(d.Seconds())
}
