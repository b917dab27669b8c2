package engine

import (
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/felixgeelhaar/jobbook/internal/job"
	"github.com/felixgeelhaar/jobbook/internal/status"
)

func jobAttributes(r *JobRun) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String("jobbook.run_id", r.ID),
		attribute.String("jobbook.job", r.Name),
		attribute.String("jobbook.entrypoint", r.Entrypoint),
		attribute.String("jobbook.spec_hash", r.SpecHash),
		attribute.StringSlice("jobbook.include", r.Include),
		attribute.StringSlice("jobbook.exclude", r.Exclude),
	}
}

func templateAttributes(t *TemplateRun) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String("jobbook.template", t.Name),
		attribute.String("jobbook.path", t.Path),
		attribute.Int("jobbook.limit", t.Limit),
	}
}

func taskAttributes(t *TaskRun, s *job.Script) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String("jobbook.task", t.Name),
		attribute.String("jobbook.path", t.Path),
		attribute.StringSlice("jobbook.labels", t.Labels),
		attribute.String("jobbook.executor", s.Interpreter()),
		attribute.String("jobbook.working_dir", s.Dir()),
	}
}

// recordPhase records the settled phase on span. The caller still ends it.
func recordPhase(span trace.Span, phase status.Phase, reason string) {
	span.SetAttributes(attribute.String("jobbook.phase", phase.String()))
	if phase == status.Failed {
		span.SetStatus(codes.Error, reason)
		return
	}
	span.SetStatus(codes.Ok, "")
}
