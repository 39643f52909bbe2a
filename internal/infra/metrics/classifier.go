package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func init() { register(classificationsTotal, classifierLatencyMs) }

var classificationsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "intent_classifications_total",
		Help: "Intent classifications by resolution path or resolved type.",
	},
	[]string{"result"},
)

var classifierLatencyMs = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "intent_model_latency_ms",
		Help:    "Intent model call latency distribution in milliseconds.",
		Buckets: []float64{10, 25, 50, 100, 200, 400, 800, 1600, 3000, 5000},
	},
	[]string{"success"},
)

func IncClassification(result string) {
	classificationsTotal.WithLabelValues(norm(result)).Inc()
}

func ObserveClassifierLatency(d time.Duration, success bool) {
	classifierLatencyMs.WithLabelValues(strconv.FormatBool(success)).
		Observe(float64(d.Milliseconds()))
}
