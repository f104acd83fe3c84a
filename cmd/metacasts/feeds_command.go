package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"metacasts/pkg/discovery"
	"metacasts/pkg/feed"
	"metacasts/pkg/metadata"
	"metacasts/pkg/speakers"
)

func newFeedsCommand(ctx *commandContext) *cobra.Command {
	var skipIndex bool

	cmd := &cobra.Command{
		Use:   "feeds",
		Short: "Write RSS feeds for every collection, period and speaker",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			s, err := ctx.openStore(cmd.Context(), "")
			if err != nil {
				return err
			}
			defer s.Close()

			episodes, err := metadata.LoadEpisodes(cmd.Context(), s, metadata.NewResolver(s))
			if err != nil {
				return fmt.Errorf("load episodes: %w", err)
			}
			people, err := speakers.NewResolver(s).All(cmd.Context())
			if err != nil {
				return err
			}

			engine := feed.NewEngine(cfg.Feeds, feed.WithMetrics(ctx.metrics), feed.WithLogger(ctx.logger()))
			written, err := engine.Generate(cmd.Context(), episodes, people)
			if err != nil {
				return err
			}

			rows := make([][]string, 0, len(written))
			for _, w := range written {
				rows = append(rows, []string{w.Path, w.Kind, w.Title, strconv.Itoa(w.Items)})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Feed", "Kind", "Title", "Items"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight},
			))

			if skipIndex {
				return nil
			}
			n, err := discovery.Build(cfg.Feeds.OutDir)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d available feeds\n", n)
			return nil
		},
	}

	cmd.Flags().BoolVar(&skipIndex, "skip-index", false, "Do not rebuild index.json afterwards")
	return cmd
}

func newIndexCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "index",
		Short: "Rebuild index.json from the feed files on disk",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			n, err := discovery.Build(cfg.Feeds.OutDir)
			if err != nil {
				return err
			}
			ctx.logger().Info("index written", "feeds", n)
			fmt.Fprintf(cmd.OutOrStdout(), "%d available feeds\n", n)
			return nil
		},
	}
}
