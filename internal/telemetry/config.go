package telemetry

// Config holds configuration for the tracer
type Config struct {
	// ServiceName is the name of the service
	ServiceName string

	// ServiceVersion is the version of the service
	ServiceVersion string

	// Endpoint is the OTLP/HTTP collector endpoint (host:port).
	// Empty disables tracing.
	Endpoint string

	// Insecure sends spans over plain HTTP.
	Insecure bool

	// SampleRate is the fraction of runs to sample (0.0 to 1.0)
	SampleRate float64
}

// DefaultConfig returns tracing disabled.
func DefaultConfig() Config {
	return Config{
		ServiceName:    "jobbook",
		ServiceVersion: "dev",
		SampleRate:     1.0,
	}
}

// Enabled reports whether spans are exported.
func (c Config) Enabled() bool {
	return c.Endpoint != ""
}
