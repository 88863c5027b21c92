package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	WorkerJobsCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_completed_total",
			Help: "Total number of jobs completed by worker",
		},
		[]string{"task_type"},
	)

	WorkerJobsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_failed_total",
			Help: "Total number of jobs failed by worker",
		},
		[]string{"task_type", "error_code"},
	)

	WorkerJobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "worker_job_duration_seconds",
			Help: "Duration of job processing in seconds",
		},
		[]string{"task_type"},
	)

	WorkerJobsActive = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "worker_jobs_active",
			Help: "Number of active jobs per worker",
		},
		[]string{"task_type"},
	)
)

// TrackJob marks a job active for taskType and returns a func that records its
// outcome. errorCode "" counts the job as completed.
func TrackJob(taskType string) func(errorCode string) {
	start := time.Now()
	WorkerJobsActive.WithLabelValues(taskType).Inc()
	return func(errorCode string) {
		WorkerJobsActive.WithLabelValues(taskType).Dec()
		WorkerJobDuration.WithLabelValues(taskType).Observe(time.Since(start).Seconds())
		if errorCode == "" {
			WorkerJobsCompleted.WithLabelValues(taskType).Inc()
			return
		}
		WorkerJobsFailed.WithLabelValues(taskType, errorCode).Inc()
	}
}

// EngineRecorder exports intelligence engine measurements to Prometheus.
type EngineRecorder struct {
	operations       *prometheus.CounterVec
	durations        *prometheus.HistogramVec
	validationErrors *prometheus.CounterVec
	cacheRequests    *prometheus.CounterVec
}

// NewEngineRecorder registers the engine collectors on reg.
func NewEngineRecorder(reg prometheus.Registerer) *EngineRecorder {
	f := promauto.With(reg)
	return &EngineRecorder{
		operations: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "intelligence_operations_total",
				Help: "Engine operations by outcome",
			},
			[]string{"operation", "status"},
		),
		durations: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "intelligence_operation_duration_seconds",
				Help:    "Engine operation duration in seconds",
				Buckets: prometheus.ExponentialBuckets(0.0005, 4, 10),
			},
			[]string{"operation"},
		),
		validationErrors: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "intelligence_validation_errors_total",
				Help: "Rejected input fields by metric",
			},
			[]string{"field"},
		),
		cacheRequests: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "intelligence_cache_requests_total",
				Help: "Result cache lookups by operation and result",
			},
			[]string{"operation", "result"},
		),
	}
}

func (r *EngineRecorder) ObserveOperation(operation, status string, d time.Duration) {
	r.operations.WithLabelValues(operation, status).Inc()
	r.durations.WithLabelValues(operation).Observe(d.Seconds())
}

func (r *EngineRecorder) AddValidationError(field string) {
	r.validationErrors.WithLabelValues(field).Inc()
}

func (r *EngineRecorder) RecordCache(operation string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	r.cacheRequests.WithLabelValues(operation, result).Inc()
}
