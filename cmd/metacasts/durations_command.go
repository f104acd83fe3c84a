package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"metacasts/pkg/probe"
	"metacasts/pkg/store"
	"metacasts/pkg/worker"
)

func newDurationsCommand(ctx *commandContext) *cobra.Command {
	var workers int

	cmd := &cobra.Command{
		Use:   "durations",
		Short: "Probe the audio of talks that have no duration yet",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			unlock, err := ctx.lockStore()
			if err != nil {
				return err
			}
			defer unlock()

			s, err := ctx.openStore(cmd.Context(), "")
			if err != nil {
				return err
			}
			defer s.Close()

			keys, err := s.Keys(cmd.Context(), store.Episodes)
			if err != nil {
				return err
			}

			if workers < 1 {
				workers = cfg.Durations.Workers
			}
			prober := probe.FFProbe{Binary: cfg.Durations.FFProbePath, Timeout: cfg.Durations.Timeout()}
			summary, err := worker.NewManager(workers, s, prober, ctx.metrics, ctx.logger()).FillDurations(cmd.Context(), keys)
			fmt.Fprintf(cmd.OutOrStdout(), "filled %d, skipped %d, unavailable %d, errors %d\n",
				summary.Filled, summary.Skipped, summary.Absent, summary.Errors)
			return err
		},
	}

	cmd.Flags().IntVar(&workers, "workers", 0, "Parallel probes (default durations.workers)")
	return cmd
}
