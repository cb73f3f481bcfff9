package telemetry

import (
	"net/http"
	"time"

	"github.com/VictoriaMetrics/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func init() {
	prometheus.MustRegister(planDuration)
	prometheus.MustRegister(plannedJobs)
	prometheus.MustRegister(plannedBytes)
}

var (
	planDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "compaction_planning_duration_seconds",
			Help:    "Time spent making one compaction plan",
			Buckets: []float64{.00001, .00005, .0001, .0005, .001, .005, .01, .05},
		},
		[]string{"service"},
	)

	plannedJobs = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "compaction_planned_jobs_total",
			Help: "Number of compaction jobs planned",
		},
		[]string{"service", "kind", "executor"},
	)

	plannedBytes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "compaction_planned_bytes_total",
			Help: "Estimated input bytes of planned compaction jobs",
		},
		[]string{"service", "executor"},
	)
)

// PlannedJob is the part of a planned job that is recorded.
type PlannedJob struct {
	Kind     string
	Executor string
	Bytes    int64
}

// ObservePlan records one planning call for a service.
func ObservePlan(service string, elapsed time.Duration, jobs ...PlannedJob) {
	planDuration.WithLabelValues(service).Observe(elapsed.Seconds())
	for _, job := range jobs {
		plannedJobs.WithLabelValues(service, job.Kind, job.Executor).Inc()
		if job.Bytes > 0 {
			plannedBytes.WithLabelValues(service, job.Executor).Add(float64(job.Bytes))
		}
	}
}

// Handler serves the Prometheus registry followed by the VictoriaMetrics
// default set.
func Handler() http.Handler {
	prom := promhttp.Handler()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		prom.ServeHTTP(w, r)
		metrics.WritePrometheus(w, false)
	})
}
