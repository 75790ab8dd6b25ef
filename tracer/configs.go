package tracer

// Config defines the OpenTelemetry tracer settings.
type Config struct {
	// ServiceName identifies the process in every exported span.
	ServiceName string `yaml:"service_name" mapstructure:"service_name"`

	// AppEnv sets the deployment.environment resource attribute.
	AppEnv string `yaml:"app_env" mapstructure:"app_env"`

	// EnableExport sends spans to an OTLP/HTTP collector. Without it spans are
	// still created and propagated but never leave the process.
	EnableExport bool `yaml:"enable_export" mapstructure:"enable_export"`

	// Endpoint overrides the collector URL, e.g. "http://otel-collector:4318".
	// Empty falls back to the OTEL_EXPORTER_OTLP_* environment variables.
	Endpoint string `yaml:"endpoint" mapstructure:"endpoint"`

	// SampleRatio is the fraction of root traces kept, in (0, 1].
	// Zero keeps every trace.
	SampleRatio float64 `yaml:"sample_ratio" mapstructure:"sample_ratio"`
}
