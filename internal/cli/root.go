// Package cli implements the shardctl command tree.
package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/aalemi-dev/shardkit/internal/output"
	"github.com/aalemi-dev/shardkit/shardpool"
	"github.com/aalemi-dev/shardkit/topology"
)

// ErrShardsFailed is returned after the output was written when at least
// one shard failed.
var ErrShardsFailed = errors.New("shards failed")

// runner carries the state shared by shardctl commands.
type runner struct {
	viper     *viper.Viper
	cfgFile   string
	verbose   bool
	connector shardpool.Connector

	settings *Settings
	topology *topology.Topology
}

// Option customizes the root command.
type Option func(*runner)

// WithConnector replaces the MySQL connector, mainly for tests.
func WithConnector(connector shardpool.Connector) Option {
	return func(r *runner) { r.connector = connector }
}

// Execute runs shardctl with ctx.
func Execute(ctx context.Context, opts ...Option) error {
	return NewRootCmd(opts...).ExecuteContext(ctx)
}

// NewRootCmd builds the shardctl command tree.
func NewRootCmd(opts ...Option) *cobra.Command {
	r := &runner{viper: newViper()}
	for _, opt := range opts {
		opt(r)
	}

	rootCmd := &cobra.Command{
		Use:   "shardctl",
		Short: "Run SQL across sharded MySQL databases",
		Long: `shardctl resolves env/category/zone/shard paths against a static topology,
opens one bounded connection pool per shard and runs statements on a single
shard, a zone, or every shard of a category concurrently.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return r.init()
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&r.cfgFile, "config", "", "config file (default ./shardctl.yaml or $HOME/shardctl.yaml)")
	flags.StringP("output", "o", "table", "output format (table, json, yaml)")
	flags.Bool("no-color", false, "disable colored output")
	flags.Bool("no-headers", false, "omit table headers")
	flags.Bool("wide", false, "include serialized data in table output")
	flags.BoolVarP(&r.verbose, "verbose", "v", false, "log dependency injection events")
	flags.String("log-level", "warn", "log level (debug, info, warn, error)")
	flags.String("metrics-addr", "", "serve Prometheus metrics on this address while running")
	flags.Duration("timeout", 0, "overall timeout of a command (default 1m)")

	_ = r.viper.BindPFlag("log.level", flags.Lookup("log-level"))
	_ = r.viper.BindPFlag("metrics.address", flags.Lookup("metrics-addr"))
	_ = r.viper.BindPFlag("timeout", flags.Lookup("timeout"))

	rootCmd.AddCommand(newExecCmd(r))
	rootCmd.AddCommand(newEnsureCmd(r))
	rootCmd.AddCommand(newTopologyCmd(r))

	return rootCmd
}

func (r *runner) init() error {
	if err := readConfig(r.viper, r.cfgFile); err != nil {
		return err
	}
	settings, topo, err := loadSettings(r.viper)
	if err != nil {
		return err
	}
	if settings.Timeout <= 0 {
		settings.Timeout = defaultTimeout
	}
	r.settings, r.topology = settings, topo
	return nil
}

// formatter builds the formatter selected by the output flags.
func formatter(cmd *cobra.Command) (output.Formatter, error) {
	raw, _ := cmd.Flags().GetString("output")
	format, err := output.ParseFormat(raw)
	if err != nil {
		return nil, err
	}
	noColor, _ := cmd.Flags().GetBool("no-color")
	noHeaders, _ := cmd.Flags().GetBool("no-headers")
	wide, _ := cmd.Flags().GetBool("wide")

	return output.NewFormatter(format,
		output.WithNoColor(noColor),
		output.WithNoHeaders(noHeaders),
		output.WithWide(wide),
	), nil
}

func shardsFailed(failed, total int) error {
	if failed == 0 {
		return nil
	}
	return fmt.Errorf("%w: %d of %d", ErrShardsFailed, failed, total)
}
