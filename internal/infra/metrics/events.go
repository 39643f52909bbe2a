package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() { register(inboundEventsTotal, webhookRequestsTotal) }

var inboundEventsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "inbound_events_total",
		Help: "Inbound events by admission outcome.",
	},
	[]string{"outcome"}, // 'admitted', 'duplicate', 'busy', 'claim_error'
)

var webhookRequestsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "webhook_requests_total",
		Help: "Webhook deliveries by provider and result.",
	},
	[]string{"provider", "result"}, // 'accepted', 'bad_signature', 'too_large', 'bad_payload', 'unavailable'
)

func IncEvent(outcome string) {
	inboundEventsTotal.WithLabelValues(norm(outcome)).Inc()
}

func IncWebhookRequest(provider, result string) {
	webhookRequestsTotal.WithLabelValues(norm(provider), norm(result)).Inc()
}
