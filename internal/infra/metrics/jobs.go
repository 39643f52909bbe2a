package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() { register(jobsProcessedTotal, jobsPendingGauge, jobDispatchDenied) }

var jobsProcessedTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "jobs_processed_total",
		Help: "Jobs processed by hook and final status.",
	},
	[]string{"hook", "status"}, // 'succeeded', 'failed', 'abandoned'
)

var jobsPendingGauge = prometheus.NewGaugeVec(
	prometheus.GaugeOpts{
		Name: "jobs_queue_depth",
		Help: "Current number of jobs per status.",
	},
	[]string{"status"},
)

var jobDispatchDenied = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "job_dispatch_denied_total",
		Help: "Dispatch attempts rejected by per-caller rate limits.",
	},
	[]string{"caller"},
)

func IncJobProcessed(hook, status string) {
	jobsProcessedTotal.WithLabelValues(norm(hook), norm(status)).Inc()
}

func SetQueueDepth(status string, n int) {
	jobsPendingGauge.WithLabelValues(norm(status)).Set(float64(n))
}

func IncDispatchDenied(caller string) {
	jobDispatchDenied.WithLabelValues(norm(caller)).Inc()
}
