package cmd

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/felixgeelhaar/jobbook/internal/config"
	"github.com/felixgeelhaar/jobbook/internal/log"
	"github.com/felixgeelhaar/jobbook/internal/metrics"
	"github.com/felixgeelhaar/jobbook/internal/telemetry"
	"github.com/felixgeelhaar/jobbook/internal/version"
)

func setupLogging(cfg *config.Config, w io.Writer) (*log.Logger, error) {
	level, err := log.ParseLevel(cfg.Log.Level)
	if err != nil {
		return nil, err
	}
	format, err := log.ParseFormat(cfg.Log.Format)
	if err != nil {
		return nil, err
	}

	logger := log.New(log.Config{
		Level:          level,
		Format:         format,
		Output:         w,
		ServiceName:    "jobbook",
		ServiceVersion: version.GetInfo().Version,
	})
	log.SetDefaultLogger(logger)
	return logger, nil
}

// setupTelemetry installs the tracer provider. The returned cleanup flushes
// pending spans.
func setupTelemetry(ctx context.Context, cfg *config.Config, logger *log.Logger) func() {
	telemCfg := telemetry.Config{
		ServiceName:    "jobbook",
		ServiceVersion: version.GetInfo().Version,
		Endpoint:       cfg.Telemetry.Endpoint,
		Insecure:       cfg.Telemetry.Insecure,
		SampleRate:     cfg.Telemetry.SampleRate,
	}

	shutdown, err := telemetry.InitProvider(ctx, telemCfg)
	if err != nil {
		logger.Warn("Failed to initialize telemetry", "error", err)
		return func() {}
	}
	if telemCfg.Enabled() {
		logger.Info("Telemetry enabled",
			"endpoint", telemCfg.Endpoint,
			"sample_rate", telemCfg.SampleRate,
		)
	}

	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := shutdown(shutdownCtx); err != nil {
			logger.Warn("Failed to flush telemetry", "error", err)
		}
	}
}

// runMetrics owns the per-run registry and its optional outputs: a
// textfile written when the run ends and an HTTP endpoint served while it
// runs.
type runMetrics struct {
	*metrics.Metrics
	registry *prometheus.Registry
	textfile string
	server   *metrics.Server
	logger   *log.Logger
}

func setupMetrics(cfg *config.Config, logger *log.Logger) (*runMetrics, error) {
	reg, m := metrics.NewRegistry()
	rm := &runMetrics{
		Metrics:  m,
		registry: reg,
		textfile: cfg.Run.MetricsTextfile,
		logger:   logger,
	}
	if cfg.Run.MetricsAddr != "" {
		srv, err := metrics.Serve(cfg.Run.MetricsAddr, reg)
		if err != nil {
			return nil, configError(fmt.Errorf("metrics listener: %w", err))
		}
		rm.server = srv
		logger.Info("Serving metrics", "addr", srv.Addr())
	}
	return rm, nil
}

// close writes the textfile, if configured, and stops the listener.
func (rm *runMetrics) close() {
	if rm.textfile != "" {
		if err := metrics.WriteTextfile(rm.registry, rm.textfile); err != nil {
			rm.logger.Warn("Failed to write metrics textfile", "path", rm.textfile, "error", err)
		}
	}
	if rm.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = rm.server.Shutdown(ctx)
	}
}
