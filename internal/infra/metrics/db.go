package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() { register(dbPoolStats, persistenceFailures, cronRuns) }

var dbPoolStats = prometheus.NewGaugeVec(
	prometheus.GaugeOpts{
		Name: "db_pool_stats",
		Help: "Current state of the database connection pool.",
	},
	[]string{"state"}, // 'total', 'idle', 'in_use'
)

var persistenceFailures = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "persistence_failures_total",
		Help: "Failed writes by step.",
	},
	[]string{"step"}, // 'insert', 'balance'
)

var cronRuns = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "cron_runs_total",
		Help: "Scheduled job runs by job and status.",
	},
	[]string{"job", "status"},
)

func SetDBPoolStats(total, idle, inUse int32) {
	dbPoolStats.WithLabelValues("total").Set(float64(total))
	dbPoolStats.WithLabelValues("idle").Set(float64(idle))
	dbPoolStats.WithLabelValues("in_use").Set(float64(inUse))
}

func IncPersistenceFailure(step string) {
	persistenceFailures.WithLabelValues(norm(step)).Inc()
}

func IncCronRun(job, status string) {
	cronRuns.WithLabelValues(norm(job), norm(status)).Inc()
}
