package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"cogify/internal/batch"
	"cogify/internal/preflight"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	var (
		workers     int
		noReproject bool
		keepOutput  bool
		jsonOutput  bool
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Validate the source rasters, convert invalid ones, and reproject the results",
		RunE: func(cmd *cobra.Command, args []string) error {
			loaded, err := ctx.ensureConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			cfg := *loaded
			if cmd.Flags().Changed("workers") {
				if workers < 1 {
					return fmt.Errorf("--workers must be at least 1, got %d", workers)
				}
				cfg.Workflow.Workers = workers
			}
			if noReproject {
				cfg.Reproject.Enabled = false
			}
			if keepOutput {
				cfg.Workflow.CleanOutput = false
			}

			logger, err := ctx.newLogger(&cfg, !jsonOutput)
			if err != nil {
				return err
			}
			if err := preflight.Summarize(preflight.RunAll(cmd.Context(), &cfg)); err != nil {
				return err
			}

			summary, err := ctx.runBatch(cmd.Context(), &cfg, logger)
			if err != nil {
				return err
			}
			if jsonOutput {
				if err := writeJSON(cmd, summary); err != nil {
					return err
				}
			} else {
				fmt.Fprint(cmd.OutOrStdout(), renderSummary(summary))
			}
			if failed := summary.Count(batch.StatusFailed); failed > 0 {
				return fmt.Errorf("%d of %d raster(s) failed", failed, summary.Processed())
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&workers, "workers", "w", 0, "Rasters processed in parallel (overrides workflow.workers)")
	cmd.Flags().BoolVar(&noReproject, "no-reproject", false, "Skip the gdalwarp step")
	cmd.Flags().BoolVar(&keepOutput, "keep-output", false, "Do not empty the output directory before converting")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print the run summary as JSON")
	return cmd
}
