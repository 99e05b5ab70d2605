package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() { register(jobsProcessedTotal, queueDepth) }

var jobsProcessedTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "conversion_jobs_processed_total",
		Help: "Total number of conversion jobs processed, labeled by terminal status.",
	},
	[]string{"status"}, // 'completed', 'failed'
)

var queueDepth = prometheus.NewGauge(
	prometheus.GaugeOpts{
		Name: "conversion_queue_depth",
		Help: "Number of conversion tasks waiting for a worker slot.",
	},
)

func IncJobProcessed(status string) {
	jobsProcessedTotal.WithLabelValues(status).Inc()
}

func SetQueueDepth(n int) {
	queueDepth.Set(float64(n))
}
