package cli

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"github.com/aalemi-dev/shardkit/shardpool"
	"github.com/aalemi-dev/shardkit/topology"
)

type execOptions struct {
	env      string
	category string
	zone     string
	shard    string
}

func newExecCmd(r *runner) *cobra.Command {
	o := &execOptions{}

	cmd := &cobra.Command{
		Use:   "exec SQL [ARGS...]",
		Short: "Run a statement on one shard, one zone or every shard of a category",
		Example: `  shardctl exec --env prod --category orders "SELECT COUNT(*) AS n FROM orders"
  shardctl exec --env prod --category orders --zone r1 "SELECT 1"
  shardctl exec --env prod --category orders --zone r1 --shard s0 -o json \
    "UPDATE orders SET state = ? WHERE id = ?" shipped 42`,
		Args: cobra.MinimumNArgs(1),
		PreRunE: func(cmd *cobra.Command, args []string) error {
			if o.shard != "" && o.zone == "" {
				return errors.New("--shard requires --zone")
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := formatter(cmd)
			if err != nil {
				return err
			}

			query, params := args[0], toParams(args[1:])
			var outcomes []shardpool.Outcome
			err = r.withClient(cmd, func(ctx context.Context, client shardpool.Client) error {
				var err error
				outcomes, err = o.run(ctx, client, query, params)
				return err
			})
			if err != nil {
				return err
			}

			if err := f.Outcomes(cmd.OutOrStdout(), outcomes); err != nil {
				return err
			}
			_, failures := shardpool.Split(outcomes)
			return shardsFailed(len(failures), len(outcomes))
		},
	}

	cmd.Flags().StringVar(&o.env, "env", "", "environment, e.g. prod")
	cmd.Flags().StringVar(&o.category, "category", "", "database category, e.g. orders")
	cmd.Flags().StringVar(&o.zone, "zone", "", "restrict to one zone")
	cmd.Flags().StringVar(&o.shard, "shard", "", "run on a single shard of --zone")
	_ = cmd.MarkFlagRequired("env")
	_ = cmd.MarkFlagRequired("category")

	return cmd
}

func (o *execOptions) run(ctx context.Context, client shardpool.Client, query string, params []any) ([]shardpool.Outcome, error) {
	switch {
	case o.shard != "":
		target := topology.Target{Env: o.env, Category: o.category, Zone: o.zone, Shard: o.shard}.Normalize()
		outcome, err := runOne(ctx, client, target, query, params)
		if err != nil {
			return nil, err
		}
		return []shardpool.Outcome{outcome}, nil
	case o.zone != "":
		return client.ExecuteZone(ctx, o.env, o.category, o.zone, query, params...)
	default:
		return client.ExecuteBroadcast(ctx, o.env, o.category, query, params...)
	}
}

// runOne creates the shard's pool if needed and runs query on it. Shard
// failures become an ErrorRecord; unknown paths and cancellation are errors.
func runOne(ctx context.Context, client shardpool.Client, target topology.Target, query string, params []any) (shardpool.Outcome, error) {
	if _, err := client.Registry().EnsureShard(ctx, target); err != nil && !errors.Is(err, shardpool.ErrPoolCreation) {
		return nil, err
	}

	result, err := client.ExecuteOne(ctx, target, query, params...)
	switch {
	case err == nil:
		return result, nil
	case errors.Is(err, shardpool.ErrConfigNotFound), errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return nil, err
	default:
		return &shardpool.ErrorRecord{Target: target, Cause: err}, nil
	}
}

func toParams(args []string) []any {
	params := make([]any, len(args))
	for i, a := range args {
		params[i] = a
	}
	return params
}
