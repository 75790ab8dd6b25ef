package cli

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/aalemi-dev/shardkit/logger"
	"github.com/aalemi-dev/shardkit/metrics"
	"github.com/aalemi-dev/shardkit/shardpool"
	"github.com/aalemi-dev/shardkit/topology"
	"github.com/aalemi-dev/shardkit/tracer"
)

const (
	envPrefix      = "SHARDCTL"
	defaultTimeout = time.Minute
)

// Settings is the shardctl configuration file:
//
//	topology:          # env -> category -> zone -> shard -> connection
//	  prod:
//	    orders:
//	      r1:
//	        s0: {host: 10.0.0.10, port: 3306, username: app, password: pw, database: orders}
//	topology_file: ""  # alternatively, a separate topology YAML file
//	shardpool:
//	  pool: {max_conns: 10, connect_timeout: 60s}
//	log: {level: warn}
//	metrics: {address: ""}
//	tracing: {enable_export: false}
//
// Every key can be overridden by an environment variable such as
// SHARDCTL_SHARDPOOL_POOL_MAX_CONNS or SHARDCTL_LOG_LEVEL.
type Settings struct {
	TopologyFile string           `mapstructure:"topology_file"`
	ShardPool    shardpool.Config `mapstructure:"shardpool"`
	Log          logger.Config    `mapstructure:"log"`
	Metrics      metrics.Config   `mapstructure:"metrics"`
	Tracing      tracer.Config    `mapstructure:"tracing"`
	Timeout      time.Duration    `mapstructure:"timeout"`
}

// newViper returns a viper instance with shardctl defaults and environment
// binding. Defaults double as the key list AutomaticEnv needs for Unmarshal.
func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("topology_file", "")
	v.SetDefault("timeout", defaultTimeout)
	v.SetDefault("shardpool.ledger_history", shardpool.DefaultLedgerHistory)
	v.SetDefault("shardpool.pool.min_conns", shardpool.DefaultMinConns)
	v.SetDefault("shardpool.pool.max_conns", shardpool.DefaultMaxConns)
	v.SetDefault("shardpool.pool.connect_timeout", shardpool.DefaultConnectTimeout)
	v.SetDefault("shardpool.pool.recycle_interval", shardpool.DefaultRecycleInterval)
	v.SetDefault("shardpool.pool.charset", shardpool.DefaultCharset)
	v.SetDefault("log.level", logger.Warn)
	v.SetDefault("log.service_name", "shardctl")
	v.SetDefault("log.enable_tracing", false)
	v.SetDefault("metrics.address", "")
	v.SetDefault("metrics.service_name", "shardctl")
	v.SetDefault("metrics.runtime", false)
	v.SetDefault("tracing.service_name", "shardctl")
	v.SetDefault("tracing.app_env", "")
	v.SetDefault("tracing.sample_ratio", 0.0)
	v.SetDefault("tracing.enable_export", false)
	v.SetDefault("tracing.endpoint", "")
	return v
}

// readConfig loads path, or ./shardctl.yaml and $HOME/.shardctl.yaml when path
// is empty. A missing default file is not an error.
func readConfig(v *viper.Viper, path string) error {
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("shardctl")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(home)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path == "" && errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}
	return nil
}

// loadSettings decodes v into Settings and builds the topology.
func loadSettings(v *viper.Viper) (*Settings, *topology.Topology, error) {
	var settings Settings
	if err := v.Unmarshal(&settings); err != nil {
		return nil, nil, fmt.Errorf("failed to decode config: %w", err)
	}

	topo, err := loadTopology(v, settings.TopologyFile)
	if err != nil {
		return nil, nil, err
	}
	return &settings, topo, nil
}

// loadTopology reads the topology from file when set and from the
// "topology" key of the config otherwise. The inline form is re-encoded as
// YAML so both go through topology.Decode.
func loadTopology(v *viper.Viper, file string) (*topology.Topology, error) {
	if file != "" {
		data, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("failed to read topology file: %w", err)
		}
		return topology.Decode(data)
	}

	raw := v.Get("topology")
	if raw == nil {
		return nil, errors.New("no topology configured: set topology or topology_file")
	}
	data, err := yaml.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to encode topology: %w", err)
	}
	return topology.Decode(data)
}
