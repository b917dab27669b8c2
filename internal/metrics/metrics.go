package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus collectors fed by job runs.
type Metrics struct {
	JobRuns     *prometheus.CounterVec
	JobDuration *prometheus.HistogramVec

	TemplateRuns *prometheus.CounterVec

	TaskRuns     *prometheus.CounterVec
	TaskDuration *prometheus.HistogramVec
	TaskSkips    *prometheus.CounterVec
	TasksRunning prometheus.Gauge

	// Errors counts configuration errors by code.
	Errors *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them with registry.
func NewMetrics(registry prometheus.Registerer) *Metrics {
	factory := promauto.With(registry)

	return &Metrics{
		JobRuns: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "jobbook_job_runs_total",
				Help: "Completed job runs by job and final phase",
			},
			[]string{"job", "phase"},
		),
		JobDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "jobbook_job_duration_seconds",
				Help:    "Wall time of job runs in seconds",
				Buckets: []float64{1, 5, 15, 30, 60, 300, 900, 1800, 3600},
			},
			[]string{"job"},
		),
		TemplateRuns: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "jobbook_template_runs_total",
				Help: "Settled template instantiations by template and phase",
			},
			[]string{"template", "phase"},
		),
		TaskRuns: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "jobbook_task_runs_total",
				Help: "Settled tasks that ran, by kind and phase",
			},
			[]string{"kind", "phase"},
		),
		TaskDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "jobbook_task_duration_seconds",
				Help:    "Duration of script tasks in seconds",
				Buckets: []float64{0.1, 0.5, 1, 5, 10, 30, 60, 300, 600},
			},
			[]string{"template"},
		),
		TaskSkips: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "jobbook_task_skips_total",
				Help: "Tasks that never ran, by reason",
			},
			[]string{"reason"},
		),
		TasksRunning: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "jobbook_tasks_running",
				Help: "Script tasks currently running",
			},
		),
		Errors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "jobbook_errors_total",
				Help: "Configuration errors by error code",
			},
			[]string{"error_code"},
		),
	}
}
