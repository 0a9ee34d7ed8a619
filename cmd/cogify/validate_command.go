package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"cogify/internal/batch"
	"cogify/internal/cog"
	"cogify/internal/config"
)

func newValidateCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "validate [paths...]",
		Short: "Report whether rasters are valid Cloud-Optimized GeoTIFFs",
		Long: "Validate the given rasters, or every raster matched in the source directory\n" +
			"when no paths are given. Nothing is written. Exits non-zero when any raster is invalid.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			paths := make([]string, 0, len(args))
			for _, arg := range args {
				expanded, err := config.ExpandPath(strings.TrimSpace(arg))
				if err != nil {
					return fmt.Errorf("resolve %q: %w", arg, err)
				}
				paths = append(paths, expanded)
			}

			logger, err := ctx.newLogger(cfg, false)
			if err != nil {
				return err
			}
			reports, err := batch.New(cfg, logger).ValidateOnly(cmd.Context(), paths...)
			if err != nil {
				return err
			}

			if jsonOutput {
				if reports == nil {
					reports = []cog.Report{}
				}
				if err := writeJSON(cmd, reports); err != nil {
					return err
				}
			} else {
				fmt.Fprint(cmd.OutOrStdout(), renderReports(cfg.Paths.SourceDir, reports))
			}

			invalid := 0
			for _, report := range reports {
				if !report.Valid() {
					invalid++
				}
			}
			if invalid > 0 {
				return fmt.Errorf("%d of %d raster(s) are not valid cloud optimized GeoTIFFs", invalid, len(reports))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print the validation reports as JSON")
	return cmd
}

func renderReports(sourceDir string, reports []cog.Report) string {
	if len(reports) == 0 {
		return "No rasters found\n"
	}
	rows := make([][]string, 0, len(reports))
	var notes []string
	for _, report := range reports {
		name := relativeTo(sourceDir, report.Path)
		d := report.Details
		rows = append(rows, []string{
			name,
			yesNo(report.Valid()),
			fmt.Sprintf("%dx%d", d.Width, d.Height),
			fmt.Sprintf("%dx%d", d.BlockWidth, d.BlockHeight),
			strconv.Itoa(d.OverviewCount),
			dashIfEmpty(d.Compression),
			dashIfEmpty(d.Layout),
			humanize.IBytes(uint64(max(d.FileSize, 0))),
		})
		for _, msg := range report.Errors {
			notes = append(notes, fmt.Sprintf("  %s: ERROR %s", name, msg))
		}
		for _, msg := range report.Warnings {
			notes = append(notes, fmt.Sprintf("  %s: WARN %s", name, msg))
		}
	}

	var b strings.Builder
	b.WriteString(renderTable(
		[]string{"File", "Valid", "Size", "Block", "Overviews", "Compression", "Layout", "Bytes"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignRight, alignRight, alignRight, alignLeft, alignLeft, alignRight},
	))
	b.WriteString("\n")
	for _, note := range notes {
		b.WriteString(note)
		b.WriteString("\n")
	}
	return b.String()
}

func dashIfEmpty(value string) string {
	if strings.TrimSpace(value) == "" {
		return "-"
	}
	return value
}
