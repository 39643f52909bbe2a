package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() { register(stateTransitionsTotal) }

var stateTransitionsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "state_transitions_total",
		Help: "Conversation state transitions by from/to state and intent.",
	},
	[]string{"from", "to", "intent"},
)

func IncTransition(from, to, intent string) {
	stateTransitionsTotal.WithLabelValues(norm(from), norm(to), norm(intent)).Inc()
}
