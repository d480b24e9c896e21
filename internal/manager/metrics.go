package manager

import "github.com/prometheus/client_golang/prometheus"

var (
	jobsSubmitted = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "imaged",
		Subsystem: "jobs",
		Name:      "submitted_total",
		Help:      "Jobs accepted by POST /generate",
	})
	jobsDeduplicated = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "imaged",
		Subsystem: "jobs",
		Name:      "deduplicated_total",
		Help:      "Submissions answered with an existing job id",
	})
	jobsFinished = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "imaged",
		Subsystem: "jobs",
		Name:      "finished_total",
		Help:      "Jobs that reached a terminal state",
	}, []string{"state"})
	jobsEvicted = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "imaged",
		Subsystem: "jobs",
		Name:      "evicted_total",
		Help:      "Jobs removed by the retention sweep",
	})
	resultsDiscarded = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "imaged",
		Subsystem: "jobs",
		Name:      "results_discarded_total",
		Help:      "Generations that finished after their job was evicted",
	})
	jobsActive = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "imaged",
		Subsystem: "jobs",
		Name:      "active",
		Help:      "Jobs pending or processing",
	})
	generationSeconds = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "imaged",
		Subsystem: "jobs",
		Name:      "generation_seconds",
		Help:      "Backend generation latency",
		Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
	})
)

func init() {
	prometheus.MustRegister(jobsSubmitted, jobsDeduplicated, jobsFinished, jobsEvicted, resultsDiscarded, jobsActive, generationSeconds)
}
