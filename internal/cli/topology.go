package cli

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/aalemi-dev/shardkit/topology"
)

func newTopologyCmd(r *runner) *cobra.Command {
	var env, category, zone string

	cmd := &cobra.Command{
		Use:   "topology",
		Short: "List the target paths of the configured topology",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := formatter(cmd)
			if err != nil {
				return err
			}

			var targets []topology.Target
			switch {
			case env == "" && category == "":
				targets = r.topology.All()
			case env == "" || category == "":
				return errors.New("--env and --category must be given together")
			default:
				targets, err = r.topology.Targets(env, category, zone)
				if err != nil {
					return err
				}
			}
			return f.Targets(cmd.OutOrStdout(), targets)
		},
	}

	cmd.Flags().StringVar(&env, "env", "", "environment to list")
	cmd.Flags().StringVar(&category, "category", "", "category to list")
	cmd.Flags().StringVar(&zone, "zone", "", "zone to list, with --env and --category")

	return cmd
}
