package metrics

// DefaultAddress is where the metrics server listens when Config.Address is nil.
const DefaultAddress = ":9091"

// Config defines how metrics are collected and exposed.
type Config struct {
	// Address is the listen address of the /metrics HTTP server.
	// nil selects DefaultAddress; a pointer to "" disables the server while
	// metrics are still collected in the registry.
	Address *string `yaml:"address" mapstructure:"address"`

	// ServiceName is attached to every metric as the constant "service" label.
	ServiceName string `yaml:"service_name" mapstructure:"service_name"`

	// Runtime registers the Go runtime and process collectors alongside the
	// shard pool metrics.
	Runtime bool `yaml:"runtime" mapstructure:"runtime"`
}

// Ptr returns a pointer to s.
//
//	cfg := metrics.Config{Address: metrics.Ptr("")} // collect only, no server
func Ptr(s string) *string {
	return &s
}
