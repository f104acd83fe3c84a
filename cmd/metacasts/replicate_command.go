package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"metacasts/pkg/replication"
	"metacasts/pkg/store"
)

func newReplicateCommand(ctx *commandContext) *cobra.Command {
	var target string

	cmd := &cobra.Command{
		Use:   "replicate",
		Short: "Copy every record of the configured store into another backend",
		Example: "  metacasts replicate --to postgres\n" +
			"  metacasts replicate --to mongo",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if target == "" {
				return errors.New("--to is required")
			}
			if target == cfg.Store.Backend {
				return fmt.Errorf("source and target are both %s", target)
			}

			from, err := ctx.openStore(cmd.Context(), "")
			if err != nil {
				return err
			}
			defer from.Close()
			to, err := ctx.openStore(cmd.Context(), target)
			if err != nil {
				return err
			}
			defer to.Close()

			r, err := replication.NewReplicator(replication.Config{
				From:    from,
				To:      to,
				Metrics: ctx.metrics,
				Logger:  ctx.logger(),
			})
			if err != nil {
				return err
			}
			result, err := r.Copy(cmd.Context())
			for _, p := range store.Partitions {
				fmt.Fprintf(cmd.OutOrStdout(), "%s: %d documents\n", p, result[p])
			}
			return err
		},
	}

	cmd.Flags().StringVar(&target, "to", "", "Target backend: yaml, mongo, postgres or supabase")
	return cmd
}
