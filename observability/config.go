package observability

import (
	"maps"
	"strings"
	"time"
)

const (
	// EndpointStdout is a special endpoint value that outputs to stdout (for local development).
	EndpointStdout = "stdout"

	// ProtocolHTTP specifies OTLP over HTTP/protobuf.
	ProtocolHTTP = "http"

	// ProtocolGRPC specifies OTLP over gRPC.
	ProtocolGRPC = "grpc"

	// EnvironmentDevelopment is the default environment name.
	EnvironmentDevelopment = "development"

	defaultSampleRate     = 1.0
	defaultBatchTimeout   = 5 * time.Second
	defaultMetricInterval = 30 * time.Second
)

// BoolPtr returns a pointer to the provided bool value.
func BoolPtr(v bool) *bool {
	return &v
}

// Float64Ptr returns a pointer to the provided float64 value.
func Float64Ptr(v float64) *float64 {
	return &v
}

// Config defines the OpenTelemetry export settings. When Enabled is false
// every provider is a no-op.
type Config struct {
	Enabled     bool          `koanf:"enabled"`
	Service     ServiceConfig `koanf:"service"`
	Environment string        `koanf:"environment"`
	Trace       TraceConfig   `koanf:"trace"`
	Metrics     MetricsConfig `koanf:"metrics"`
}

// ServiceConfig contains service identification metadata.
type ServiceConfig struct {
	// Name is required when observability is enabled.
	Name    string `koanf:"name"`
	Version string `koanf:"version"`
}

// TraceConfig configures span export.
type TraceConfig struct {
	// Enabled defaults to true when observability is enabled.
	Enabled *bool `koanf:"enabled"`
	// Endpoint is "stdout", "host:port" for gRPC, or a host for OTLP HTTP.
	Endpoint string            `koanf:"endpoint"`
	Protocol string            `koanf:"protocol"`
	Insecure bool              `koanf:"insecure"`
	Headers  map[string]string `koanf:"headers"`
	// SampleRate is the ratio of traces kept, 0.0 to 1.0. Defaults to 1.0.
	SampleRate   *float64      `koanf:"samplerate"`
	BatchTimeout time.Duration `koanf:"batchtimeout"`
}

// MetricsConfig configures metric export. Protocol, Insecure and Headers
// fall back to the trace settings when empty.
type MetricsConfig struct {
	Enabled  *bool             `koanf:"enabled"`
	Endpoint string            `koanf:"endpoint"`
	Protocol string            `koanf:"protocol"`
	Insecure bool              `koanf:"insecure"`
	Headers  map[string]string `koanf:"headers"`
	Interval time.Duration     `koanf:"interval"`
}

// ApplyDefaults fills unset fields with their defaults.
func (c *Config) ApplyDefaults() {
	if c.Service.Version == "" {
		c.Service.Version = "unknown"
	}
	if c.Environment == "" {
		c.Environment = EnvironmentDevelopment
	}

	if c.Enabled && c.Trace.Enabled == nil {
		c.Trace.Enabled = BoolPtr(true)
	}
	if c.Trace.Endpoint == "" {
		c.Trace.Endpoint = EndpointStdout
	}
	if c.Trace.Protocol == "" {
		c.Trace.Protocol = ProtocolHTTP
	}
	if c.Trace.SampleRate == nil {
		c.Trace.SampleRate = Float64Ptr(defaultSampleRate)
	}
	if c.Trace.BatchTimeout <= 0 {
		c.Trace.BatchTimeout = defaultBatchTimeout
	}
	c.Trace.Headers = cloneHeaderMap(c.Trace.Headers)

	if c.Enabled && c.Metrics.Enabled == nil {
		c.Metrics.Enabled = BoolPtr(true)
	}
	if c.Metrics.Endpoint == "" {
		c.Metrics.Endpoint = c.Trace.Endpoint
	}
	if c.Metrics.Protocol == "" {
		c.Metrics.Protocol = c.Trace.Protocol
	}
	if !c.Metrics.Insecure {
		c.Metrics.Insecure = c.Trace.Insecure
	}
	if c.Metrics.Headers == nil {
		c.Metrics.Headers = cloneHeaderMap(c.Trace.Headers)
	}
	if c.Metrics.Interval <= 0 {
		c.Metrics.Interval = defaultMetricInterval
	}
}

// Validate checks the configuration. It only inspects export settings when
// observability is enabled.
func (c *Config) Validate() error {
	if c == nil {
		return ErrNilConfig
	}
	if !c.Enabled {
		return nil
	}
	if c.Service.Name == "" {
		return ErrMissingServiceName
	}
	if c.Trace.SampleRate != nil && (*c.Trace.SampleRate < 0 || *c.Trace.SampleRate > 1) {
		return ErrInvalidSampleRate
	}
	if err := validateEndpoint(c.Trace.Endpoint, c.Trace.Protocol); err != nil {
		return err
	}
	return validateEndpoint(c.Metrics.Endpoint, c.Metrics.Protocol)
}

func validateEndpoint(endpoint, protocol string) error {
	if endpoint == EndpointStdout || endpoint == "" {
		return nil
	}
	switch protocol {
	case ProtocolHTTP, ProtocolGRPC, "":
	default:
		return ErrInvalidProtocol
	}
	if strings.Contains(endpoint, "://") {
		return ErrInvalidEndpointFormat
	}
	return nil
}

// cloneHeaderMap creates a copy of a header map to avoid aliasing.
func cloneHeaderMap(headers map[string]string) map[string]string {
	if headers == nil {
		return nil
	}
	clone := make(map[string]string, len(headers))
	maps.Copy(clone, headers)
	return clone
}
