package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	viewComputeDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "knowwho",
			Name:      "view_compute_duration_seconds",
			Help:      "Time spent deriving layout, ranking, paths and views",
			Buckets:   []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5},
		},
		[]string{"operation"},
	)

	sseClients = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "knowwho",
			Name:      "sse_clients",
			Help:      "Currently connected event stream clients",
		},
	)
)

func init() {
	prometheus.MustRegister(viewComputeDuration)
	prometheus.MustRegister(sseClients)
}

// ObserveCompute records how long a derivation took since start.
func ObserveCompute(operation string, start time.Time) {
	viewComputeDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}

// SSEClientConnected adjusts the connected-clients gauge by delta.
func SSEClientConnected(delta int) {
	sseClients.Add(float64(delta))
}
