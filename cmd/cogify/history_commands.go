package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"cogify/internal/history"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var (
		limit      int
		jsonOutput bool
	)

	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded batch runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withHistory(func(store *history.Store) error {
				runs, err := store.ListRuns(cmd.Context(), limit)
				if err != nil {
					return err
				}
				if jsonOutput {
					if runs == nil {
						runs = []history.Run{}
					}
					return writeJSON(cmd, runs)
				}
				out := cmd.OutOrStdout()
				if len(runs) == 0 {
					fmt.Fprintln(out, "No runs recorded")
					return nil
				}
				fmt.Fprintln(out, renderRunTable(runs))
				return nil
			})
		},
	}
	historyCmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of runs to list (0 for all)")
	historyCmd.Flags().BoolVar(&jsonOutput, "json", false, "Print runs as JSON")

	historyCmd.AddCommand(newHistoryShowCommand(ctx))
	historyCmd.AddCommand(newHistoryPruneCommand(ctx))
	return historyCmd
}

func newHistoryShowCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "show <run-id>",
		Short: "Show one run and its per-file outcomes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withHistory(func(store *history.Store) error {
				run, err := store.GetRun(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				files, err := store.FilesForRun(cmd.Context(), run.ID)
				if err != nil {
					return err
				}
				if jsonOutput {
					if files == nil {
						files = []history.FileRecord{}
					}
					return writeJSON(cmd, struct {
						Run   history.Run          `json:"run"`
						Files []history.FileRecord `json:"files"`
					}{run, files})
				}
				fmt.Fprint(cmd.OutOrStdout(), renderRunDetail(run, files))
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print the run as JSON")
	return cmd
}

func newHistoryPruneCommand(ctx *commandContext) *cobra.Command {
	var keep int

	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete all but the most recent runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			if keep < 0 {
				return fmt.Errorf("--keep must be zero or more, got %d", keep)
			}
			return ctx.withHistory(func(store *history.Store) error {
				removed, err := store.Prune(cmd.Context(), keep)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %d run(s); kept at most %d\n", removed, keep)
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&keep, "keep", 50, "Number of most recent runs to keep")
	return cmd
}

func (c *commandContext) withHistory(fn func(*history.Store) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	store, err := c.openHistory(cfg, true)
	if err != nil {
		return err
	}
	defer store.Close()
	return fn(store)
}

func renderRunTable(runs []history.Run) string {
	rows := make([][]string, 0, len(runs))
	for _, run := range runs {
		rows = append(rows, []string{
			shortID(run.ID),
			run.StartedAt.Local().Format("2006-01-02 15:04:05"),
			formatDuration(run.Duration()),
			strconv.Itoa(run.Scanned),
			strconv.Itoa(run.Invalid),
			strconv.Itoa(run.Reprojected + run.Translated),
			strconv.Itoa(run.TranslatedInvalid),
			strconv.Itoa(run.Failed),
			runOutcome(run),
		})
	}
	return renderTable(
		[]string{"Run", "Started", "Time", "Scanned", "Invalid", "Converted", "Still Invalid", "Failed", "Outcome"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignRight, alignRight, alignRight, alignRight, alignRight, alignRight, alignLeft},
	)
}

func runOutcome(run history.Run) string {
	switch {
	case run.ErrorMessage != "":
		return "error: " + run.ErrorMessage
	case run.Failed > 0 || run.TranslatedInvalid > 0:
		return "completed with problems"
	case run.Invalid == 0:
		return "nothing to do"
	default:
		return "ok"
	}
}

func renderRunDetail(run history.Run, files []history.FileRecord) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Run:         %s\n", run.ID)
	fmt.Fprintf(&b, "Started:     %s\n", run.StartedAt.Local().Format("2006-01-02 15:04:05"))
	fmt.Fprintf(&b, "Duration:    %s\n", formatDuration(run.Duration()))
	fmt.Fprintf(&b, "Source:      %s\n", run.SourceDir)
	fmt.Fprintf(&b, "Output:      %s\n", run.OutputDir)
	fmt.Fprintf(&b, "Scanned:     %d (%d valid, %d invalid)\n", run.Scanned, run.Valid, run.Invalid)
	if run.MosaicPath != "" {
		fmt.Fprintf(&b, "Mosaic:      %s\n", run.MosaicPath)
	}
	fmt.Fprintf(&b, "Outcome:     %s\n", runOutcome(run))
	if len(files) == 0 {
		return b.String()
	}

	rows := make([][]string, 0, len(files))
	for _, file := range files {
		output := file.ReprojectedPath
		if output == "" {
			output = file.OutputPath
		}
		rows = append(rows, []string{
			relativeTo(run.SourceDir, file.InputPath),
			displayLabel(file.Status),
			relativeTo(run.OutputDir, output),
			formatDuration(file.Duration),
			firstOf(file.Errors),
		})
	}
	b.WriteString("\n")
	b.WriteString(renderTable(
		[]string{"File", "Status", "Output", "Time", "Error"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignLeft},
	))
	b.WriteString("\n")
	return b.String()
}
