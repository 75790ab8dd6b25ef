package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/aalemi-dev/shardkit/shardpool"
)

func newEnsureCmd(r *runner) *cobra.Command {
	var (
		env, category, zone string
		force               bool
	)

	cmd := &cobra.Command{
		Use:   "ensure",
		Short: "Open the pools of a category and report their state",
		Long: `ensure connects to every shard of --env/--category (or of one --zone) and
prints one line per pool: live with its connection counts, or failed with the
creation error. It exits non-zero when a shard could not be connected.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := formatter(cmd)
			if err != nil {
				return err
			}

			opts := []shardpool.EnsureOption{shardpool.WithZone(zone)}
			if force {
				opts = append(opts, shardpool.WithForceRefresh())
			}

			var statuses []shardpool.EntryStatus
			err = r.withClient(cmd, func(ctx context.Context, client shardpool.Client) error {
				registry := client.Registry()
				if _, err := registry.Ensure(ctx, env, category, opts...); err != nil {
					return err
				}
				statuses = registry.Snapshot()
				return nil
			})
			if err != nil {
				return err
			}

			if err := f.Statuses(cmd.OutOrStdout(), statuses); err != nil {
				return err
			}
			failed := 0
			for _, s := range statuses {
				if !s.Live {
					failed++
				}
			}
			return shardsFailed(failed, len(statuses))
		},
	}

	cmd.Flags().StringVar(&env, "env", "", "environment, e.g. prod")
	cmd.Flags().StringVar(&category, "category", "", "database category, e.g. orders")
	cmd.Flags().StringVar(&zone, "zone", "", "restrict to one zone")
	cmd.Flags().BoolVar(&force, "force", false, "retry shards whose pool creation failed")
	_ = cmd.MarkFlagRequired("env")
	_ = cmd.MarkFlagRequired("category")

	return cmd
}
