package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() { register(ingressOutcomes, rateLimitRejections, repliesSent) }

var ingressOutcomes = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "ingress_messages_total",
		Help: "Inbound messages by ingest outcome.",
	},
	[]string{"source", "outcome"},
)

var rateLimitRejections = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "rate_limit_rejections_total",
		Help: "Calls rejected by the fixed-window limiter.",
	},
)

var repliesSent = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "chat_replies_total",
		Help: "Outbound chat replies by kind and status.",
	},
	[]string{"kind", "status"}, // status: 'sent', 'error'
)

func IncIngress(source, outcome string) {
	ingressOutcomes.WithLabelValues(norm(source), norm(outcome)).Inc()
}

func IncRateLimitRejection() { rateLimitRejections.Inc() }

func IncReply(kind, status string) {
	repliesSent.WithLabelValues(norm(kind), norm(status)).Inc()
}
