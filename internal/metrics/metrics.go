// Package metrics wires the engine's hot-path counters and histograms
// into Prometheus, following the direct promauto-at-package-scope
// style the teacher's own buffer_pool_prometheus.go uses for its
// buffer pool rather than a generic/abstracted metrics facade.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ActiveConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "originserver",
		Subsystem: "conn",
		Name:      "active",
		Help:      "Number of currently open connections.",
	})

	ConnectionsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "originserver",
		Subsystem: "conn",
		Name:      "accepted_total",
		Help:      "Total connections accepted.",
	})

	RequestsPerConnection = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "originserver",
		Subsystem: "conn",
		Name:      "requests_per_connection",
		Help:      "Number of requests served on a connection before it closed.",
		Buckets:   []float64{1, 2, 5, 10, 25, 50, 100, 250, 500},
	})

	RequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "originserver",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Total requests processed, by method and status class.",
	}, []string{"method", "status_class"})

	RequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "originserver",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "Time from the start of dispatch (after the request is parsed) until the handler's response is composed, before it is flushed.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method"})

	RouterLookupDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "originserver",
		Subsystem: "router",
		Name:      "lookup_duration_seconds",
		Help:      "Time spent in Router.Match per request.",
		Buckets:   []float64{.00001, .00005, .0001, .0005, .001, .005, .01},
	})

	BodySpillsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "originserver",
		Subsystem: "body",
		Name:      "spills_to_disk_total",
		Help:      "Total request/response bodies that migrated from memory to a temp file.",
	})

	UpgradesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "originserver",
		Subsystem: "conn",
		Name:      "upgrades_total",
		Help:      "Total protocol upgrades handed off, by target protocol.",
	}, []string{"protocol"})
)

// StatusClass buckets an HTTP status code into Prometheus's
// conventional "Nxx" label so RequestsTotal doesn't carry a
// high-cardinality label per exact status code.
func StatusClass(status int) string {
	switch {
	case status >= 100 && status < 200:
		return "1xx"
	case status >= 200 && status < 300:
		return "2xx"
	case status >= 300 && status < 400:
		return "3xx"
	case status >= 400 && status < 500:
		return "4xx"
	case status >= 500 && status < 600:
		return "5xx"
	default:
		return "unknown"
	}
}
