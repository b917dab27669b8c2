package telemetry

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	jerrors "github.com/felixgeelhaar/jobbook/internal/errors"
)

func TestDefaultConfigDisabled(t *testing.T) {
	cfg := DefaultConfig()
	assert.False(t, cfg.Enabled())
	assert.Equal(t, "jobbook", cfg.ServiceName)

	cfg.Endpoint = "localhost:4318"
	assert.True(t, cfg.Enabled())
}

func TestInitProviderNoop(t *testing.T) {
	shutdown, err := InitProvider(context.Background(), DefaultConfig())
	require.NoError(t, err)
	defer shutdown(context.Background())

	_, span := StartCommandSpan(context.Background(), "run")
	defer span.End()
	assert.False(t, span.SpanContext().IsValid())
}

func TestInitProviderWithExporter(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	shutdown, err := InitProvider(context.Background(), DefaultConfig(), sdktrace.WithSpanProcessor(recorder))
	require.NoError(t, err)
	defer func() {
		require.NoError(t, shutdown(context.Background()))
		_, _ = InitProvider(context.Background(), DefaultConfig())
	}()

	assert.Same(t, GetTracerProvider(), otel.GetTracerProvider())

	_, span := StartCommandSpan(context.Background(), "validate", attribute.String("jobbook.file", "job.yaml"))
	RecordError(span, errors.New("broken"))
	span.End()

	_, span = StartCommandSpan(context.Background(), "run")
	RecordError(span, jerrors.NewCycleError(errors.New("a -> b -> a")))
	span.End()

	spans := recorder.Ended()
	require.Len(t, spans, 2)
	assert.Equal(t, "jobbook validate", spans[0].Name())
	assert.Equal(t, codes.Error, spans[0].Status().Code)
	assert.Equal(t, "broken", spans[0].Status().Description)
	assert.Contains(t, spans[0].Attributes(), attribute.String("jobbook.file", "job.yaml"))
	assert.Contains(t, spans[1].Attributes(), attribute.String("jobbook.error_code", "GRAPH-003"))
}

func TestSampler(t *testing.T) {
	assert.Equal(t, sdktrace.AlwaysSample().Description(), sampler(1).Description())
	assert.Equal(t, sdktrace.NeverSample().Description(), sampler(0).Description())
	assert.Contains(t, sampler(0.5).Description(), "TraceIDRatioBased")
}
