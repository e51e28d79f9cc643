package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func init() { register(jobsProcessedTotal, jobDurationSeconds, workerHeartbeat) }

var jobsProcessedTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "worker_jobs_processed_total",
		Help: "Total number of message jobs processed, labeled by outcome.",
	},
	[]string{"outcome"}, // 'completed', 'no_transactions', 'retry', 'failed'
)

var jobDurationSeconds = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "worker_job_duration_seconds",
		Help:    "Wall time spent handling one message job.",
		Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 4, 8, 16, 30},
	},
	[]string{"outcome"},
)

var workerHeartbeat = prometheus.NewGauge(
	prometheus.GaugeOpts{
		Name: "worker_last_heartbeat_timestamp_seconds",
		Help: "Unix time of the last worker heartbeat.",
	},
)

func IncJob(outcome string) {
	jobsProcessedTotal.WithLabelValues(norm(outcome)).Inc()
}

func ObserveJobDuration(outcome string, d time.Duration) {
	jobDurationSeconds.WithLabelValues(norm(outcome)).Observe(d.Seconds())
}

func Heartbeat(at time.Time) {
	workerHeartbeat.Set(float64(at.Unix()))
}
