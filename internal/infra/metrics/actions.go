package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() { register(actionExecutionsTotal) }

var actionExecutionsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "action_executions_total",
		Help: "Action handler executions by name and outcome.",
	},
	[]string{"action", "outcome"}, // 'ok', 'error', 'capped'
)

func IncAction(action, outcome string) {
	actionExecutionsTotal.WithLabelValues(norm(action), norm(outcome)).Inc()
}
