package logger

// Log levels accepted by Config.Level.
const (
	Debug   = "debug"
	Info    = "info"
	Warning = "warning"
	Error   = "error"
)

// Config defines the configuration structure for the logger.
type Config struct {
	// Level is the minimum level written: "debug", "info", "warning" or "error".
	// Unknown or empty values select "info".
	Level string `yaml:"level" mapstructure:"level"`

	// EnableTracing adds "trace_id" and "span_id" fields taken from the context's
	// active OpenTelemetry span to every ...WithContext entry.
	EnableTracing bool `yaml:"enable_tracing" mapstructure:"enable_tracing"`

	// ServiceName populates the "service" field of every entry.
	ServiceName string `yaml:"service_name" mapstructure:"service_name"`

	// CallerSkip is the number of stack frames skipped when reporting the caller.
	// Use 1 (the default) when calling the logger directly and one more per wrapper layer.
	CallerSkip int `yaml:"caller_skip" mapstructure:"caller_skip"`

	// OutputPaths lists the zap sinks entries are written to. Default: stderr
	OutputPaths []string `yaml:"output_paths" mapstructure:"output_paths"`
}
