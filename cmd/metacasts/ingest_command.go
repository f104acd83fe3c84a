package main

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"metacasts/pkg/domain"
	"metacasts/pkg/pipeline"
)

func newIngestCommand(ctx *commandContext) *cobra.Command {
	var periods []string

	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Ingest one or more periods from the upstream catalog",
		Example: "  metacasts ingest --period 2022-04\n" +
			"  metacasts ingest --period 2021-10 --period 2022-04",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(periods) == 0 {
				return errors.New("at least one --period is required")
			}
			parsed := make([]domain.Period, 0, len(periods))
			for _, raw := range periods {
				p, err := domain.ParsePeriod(raw)
				if err != nil {
					return err
				}
				parsed = append(parsed, p)
			}

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

			log := ctx.logger()
			pl, err := pipeline.ConfigPipelineBuilder(cfg, s, ctx.metrics, log)
			if err != nil {
				return err
			}

			var rows [][]string
			failed := 0
			for _, p := range parsed {
				report, err := pl.Run(cmd.Context(), p)
				status := "ok"
				if err != nil {
					if cmd.Context().Err() != nil {
						return err
					}
					failed++
					status = "failed"
					log.Error("period failed", "period", p.String(), "error", err)
				}
				rows = append(rows, []string{
					p.String(),
					strconv.Itoa(report.Links),
					strconv.Itoa(report.Talks),
					strconv.Itoa(report.Markers),
					strconv.Itoa(report.Failures),
					status,
				})
			}

			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Period", "Links", "Talks", "Markers", "Failures", "Status"},
				rows,
				[]columnAlignment{alignLeft, alignRight, alignRight, alignRight, alignRight, alignLeft},
			))

			if failed > 0 {
				_ = ctx.flushMetrics()
				return fmt.Errorf("%d of %d periods failed", failed, len(parsed))
			}
			return nil
		},
	}

	cmd.Flags().StringArrayVar(&periods, "period", nil, "Period to ingest as YYYY-MM (repeatable)")
	return cmd
}
