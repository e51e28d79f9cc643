package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"financeflow/internal/domain/model"
)

func init() { register(queueEnqueued, queueDepth) }

var queueEnqueued = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "queue_enqueued_total",
		Help: "Enqueue calls by result.",
	},
	[]string{"result"}, // 'queued', 'duplicate'
)

var queueDepth = prometheus.NewGaugeVec(
	prometheus.GaugeOpts{
		Name: "queue_jobs",
		Help: "Jobs per queue state as of the last stats read.",
	},
	[]string{"queue", "state"},
)

func IncQueueEnqueue(result string) {
	queueEnqueued.WithLabelValues(norm(result)).Inc()
}

func SetQueueDepth(queue string, s model.QueueStats) {
	queueDepth.WithLabelValues(queue, "waiting").Set(float64(s.Waiting))
	queueDepth.WithLabelValues(queue, "delayed").Set(float64(s.Delayed))
	queueDepth.WithLabelValues(queue, "active").Set(float64(s.Active))
	queueDepth.WithLabelValues(queue, "completed").Set(float64(s.Completed))
	queueDepth.WithLabelValues(queue, "failed").Set(float64(s.Failed))
}
