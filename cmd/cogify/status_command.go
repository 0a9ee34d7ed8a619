package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"cogify/internal/config"
	"cogify/internal/deps"
	"cogify/internal/gdal"
	"cogify/internal/preflight"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show configuration, GDAL availability, and the last run",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)

			var lines []string
			lines = append(lines, renderSectionHeader("Configuration", colorize)...)
			lines = append(lines, renderStatusLine("Config file", statusInfo, dashIfEmpty(ctx.configPath), colorize))
			lines = append(lines, renderStatusLine("Reprojection", statusInfo, reprojectionSummary(cfg), colorize))
			lines = append(lines, renderStatusLine("Workers", statusInfo, fmt.Sprintf("%d", cfg.Workflow.Workers), colorize))
			lines = append(lines, "")

			lines = append(lines, renderSectionHeader("GDAL", colorize)...)
			lines = append(lines, dependencyLines(preflight.CheckSystemDeps(cfg), colorize)...)
			lines = append(lines, resultLine(preflight.CheckGDAL(cmd.Context(), gdal.NewTools(cfg, nil)), colorize))
			lines = append(lines, "")

			lines = append(lines, renderSectionHeader("Directories", colorize)...)
			for _, result := range []preflight.Result{
				preflight.CheckReadableDirectory("Source directory", cfg.Paths.SourceDir),
				preflight.CheckCreatableDirectory("Output directory", cfg.Paths.OutputDir),
				preflight.CheckCreatableDirectory("Log directory", cfg.Paths.LogDir),
			} {
				lines = append(lines, resultLine(result, colorize))
			}
			lines = append(lines, "")

			lines = append(lines, renderSectionHeader("History", colorize)...)
			lines = append(lines, ctx.historyStatusLine(cmd.Context(), cfg, colorize))

			fmt.Fprintln(out, strings.Join(lines, "\n"))
			return nil
		},
	}
}

func reprojectionSummary(cfg *config.Config) string {
	if !cfg.Reproject.Enabled {
		return "disabled"
	}
	return fmt.Sprintf("%s into %s", cfg.Reproject.TargetSRS, cfg.ReprojectDir())
}

func dependencyLines(statuses []deps.Status, colorize bool) []string {
	lines := make([]string, 0, len(statuses))
	for _, status := range statuses {
		switch {
		case status.Available:
			lines = append(lines, renderStatusLine(status.Name, statusOK, "Ready ("+status.Path+")", colorize))
		case status.Optional:
			lines = append(lines, renderStatusLine(status.Name, statusWarn, "not found; "+status.Description, colorize))
		default:
			lines = append(lines, renderStatusLine(status.Name, statusError, dashIfEmpty(status.Detail), colorize))
		}
	}
	return lines
}

func resultLine(result preflight.Result, colorize bool) string {
	kind := statusOK
	if !result.Passed {
		kind = statusError
	}
	return renderStatusLine(result.Name, kind, result.Detail, colorize)
}

func (c *commandContext) historyStatusLine(ctx context.Context, cfg *config.Config, colorize bool) string {
	if !cfg.History.Enabled {
		return renderStatusLine("Last run", statusInfo, "history disabled", colorize)
	}
	store, err := c.openHistory(cfg, true)
	if err != nil {
		return renderStatusLine("Last run", statusWarn, err.Error(), colorize)
	}
	defer store.Close()
	runs, err := store.ListRuns(ctx, 1)
	if err != nil {
		return renderStatusLine("Last run", statusWarn, err.Error(), colorize)
	}
	if len(runs) == 0 {
		return renderStatusLine("Last run", statusInfo, "none recorded", colorize)
	}
	run := runs[0]
	kind := statusOK
	if run.Failed > 0 || run.ErrorMessage != "" {
		kind = statusWarn
	}
	return renderStatusLine("Last run", kind, fmt.Sprintf("%s at %s (%d scanned, %d failed)",
		shortID(run.ID), run.StartedAt.Local().Format("2006-01-02 15:04:05"), run.Scanned, run.Failed), colorize)
}
