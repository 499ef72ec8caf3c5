// Package metrics exposes the Prometheus counters and gauges the runtime
// scheduler updates on every collector/uploader tick.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	SessionsEmitted = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "agent_sessions_emitted_total",
		Help: "Foreground sessions produced by the collector, after merge and filtering.",
	})

	NetworkDeltaBytes = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "agent_network_delta_bytes_total",
		Help: "Cumulative bytes attributed to network deltas, by category.",
	}, []string{"category"})

	QueueDepth = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "agent_queue_depth",
		Help: "Number of usage batches currently waiting in the durable queue.",
	})

	UploadAttempts = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "agent_upload_attempts_total",
		Help: "Upload pump invocations, by outcome.",
	}, []string{"outcome"})

	UploadDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "agent_upload_duration_seconds",
		Help:    "Wall-clock time spent in one upload_pending invocation.",
		Buckets: prometheus.DefBuckets,
	})
)

func init() {
	prometheus.MustRegister(SessionsEmitted, NetworkDeltaBytes, QueueDepth, UploadAttempts, UploadDuration)
}

// Handler returns the HTTP handler that serves the metrics registry, for
// binding to a local diagnostics port.
func Handler() http.Handler {
	return promhttp.Handler()
}
