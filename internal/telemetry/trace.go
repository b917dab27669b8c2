package telemetry

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	jerrors "github.com/felixgeelhaar/jobbook/internal/errors"
)

const instrumentation = "github.com/felixgeelhaar/jobbook/internal/cmd"

// StartCommandSpan opens the root span of a jobbook subcommand. Engine
// spans for templates and tasks nest below it.
//
//	ctx, span := telemetry.StartCommandSpan(ctx, "run", attribute.String("jobbook.file", path))
//	defer span.End()
func StartCommandSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return GetTracerProvider().Tracer(instrumentation).Start(ctx, "jobbook "+name,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(append([]attribute.KeyValue{attribute.String("jobbook.command", name)}, attrs...)...),
	)
}

// RecordError sets the span status from err. Coded errors also carry their
// code so failed runs can be told apart from broken job files.
func RecordError(span trace.Span, err error) {
	if err == nil {
		span.SetStatus(codes.Ok, "")
		return
	}
	if code := jerrors.GetCode(err); code != "" {
		span.SetAttributes(attribute.String("jobbook.error_code", string(code)))
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
