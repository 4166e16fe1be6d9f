// Package telemetry wires OpenTelemetry tracing around frame dispatch,
// decode, and control-command paths, per spec §1.4.
package telemetry

// Config holds the OpenTelemetry tracing configuration.
type Config struct {
	// Enabled indicates whether tracing is enabled.
	Enabled bool

	// ServiceName is the name reported to the trace backend.
	ServiceName string

	// ServiceVersion is the gateway build version.
	ServiceVersion string

	// Endpoint is the OTLP gRPC collector endpoint (e.g. "localhost:4317").
	Endpoint string

	// Insecure indicates whether to skip TLS on the OTLP connection.
	Insecure bool

	// SampleRate is the trace sampling rate, 0.0 to 1.0.
	SampleRate float64
}

// DefaultConfig returns the out-of-the-box configuration: tracing disabled,
// pointed at a local collector should it be turned on.
func DefaultConfig() Config {
	return Config{
		Enabled:        false,
		ServiceName:    "coachlink-gateway",
		ServiceVersion: "dev",
		Endpoint:       "localhost:4317",
		Insecure:       true,
		SampleRate:     1.0,
	}
}
