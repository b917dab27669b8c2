package metrics

import (
	"github.com/felixgeelhaar/jobbook/internal/engine"
	jerrors "github.com/felixgeelhaar/jobbook/internal/errors"
	"github.com/felixgeelhaar/jobbook/internal/job"
)

// Observer returns an engine observer that updates m.
func (m *Metrics) Observer() engine.Observer {
	return engine.ObserverFunc(m.observe)
}

func (m *Metrics) observe(e engine.Event) {
	switch e.Type {
	case engine.EventTaskStarted:
		if e.Kind == job.KindScript {
			m.TasksRunning.Inc()
		}
	case engine.EventTaskFinished:
		m.TaskRuns.WithLabelValues(e.Kind.String(), e.Phase.String()).Inc()
		if e.Kind == job.KindScript {
			m.TasksRunning.Dec()
			m.TaskDuration.WithLabelValues(e.Template).Observe(e.Duration.Seconds())
		}
	case engine.EventTaskSkipped:
		m.TaskSkips.WithLabelValues(e.Reason).Inc()
	case engine.EventTemplateFinished:
		m.TemplateRuns.WithLabelValues(e.Template, e.Phase.String()).Inc()
	case engine.EventJobFinished:
		m.JobRuns.WithLabelValues(e.Job, e.Phase.String()).Inc()
		m.JobDuration.WithLabelValues(e.Job).Observe(e.Duration.Seconds())
	}
}

// RecordError counts a configuration error by its code.
func (m *Metrics) RecordError(err error) {
	if err == nil {
		return
	}
	code := string(jerrors.GetCode(err))
	if code == "" {
		code = "unknown"
	}
	m.Errors.WithLabelValues(code).Inc()
}
