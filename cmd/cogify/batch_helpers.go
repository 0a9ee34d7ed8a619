package main

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"cogify/internal/batch"
	"cogify/internal/config"
	"cogify/internal/logging"
)

// runBatch executes one batch with the history ledger attached when enabled.
func (c *commandContext) runBatch(ctx context.Context, cfg *config.Config, logger *slog.Logger) (batch.Summary, error) {
	store, err := c.openHistory(cfg, false)
	if err != nil {
		logging.WarnWithContext(logger, "history unavailable; run will not be recorded", "history_unavailable",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check history.path or disable history"),
		)
	}
	var opts []batch.Option
	if store != nil {
		defer store.Close()
		opts = append(opts, batch.WithRecorder(store))
	}
	return batch.New(cfg, logger, opts...).Run(ctx)
}

func renderSummary(summary batch.Summary) string {
	var b strings.Builder
	if len(summary.Files) > 0 {
		rows := make([][]string, 0, len(summary.Files))
		for _, file := range summary.Files {
			rows = append(rows, []string{
				relativeTo(summary.SourceDir, file.Input),
				displayLabel(string(file.Status)),
				relativeTo(summary.OutputDir, finalOutput(file)),
				formatDuration(file.Duration),
				firstOf(file.Errors),
			})
		}
		b.WriteString(renderTable(
			[]string{"File", "Status", "Output", "Time", "Error"},
			rows,
			[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignLeft},
		))
		b.WriteString("\n")
	}

	if summary.NoProcessingRequired {
		fmt.Fprintf(&b, "No Processing Required (%d scanned, all valid)\n", summary.Scanned)
	} else {
		fmt.Fprintf(&b, "Scanned %d: %d valid, %d invalid\n", summary.Scanned, summary.Valid, summary.Invalid)
		fmt.Fprintf(&b, "Processed %d: %d reprojected, %d translated, %d still invalid, %d failed\n",
			summary.Processed(),
			summary.Count(batch.StatusReprojected),
			summary.Count(batch.StatusTranslated),
			summary.Count(batch.StatusTranslatedInvalid),
			summary.Count(batch.StatusFailed),
		)
	}
	if summary.Mosaic != "" {
		fmt.Fprintf(&b, "Mosaic: %s\n", summary.Mosaic)
	}
	if summary.MosaicError != "" {
		fmt.Fprintf(&b, "Mosaic failed: %s\n", summary.MosaicError)
	}
	fmt.Fprintf(&b, "Run %s finished in %s\n", shortID(summary.RunID), formatDuration(summary.Duration()))
	return b.String()
}

func finalOutput(file batch.FileResult) string {
	if file.Reprojected != "" {
		return file.Reprojected
	}
	return file.Output
}

func relativeTo(base, path string) string {
	if path == "" {
		return ""
	}
	if rel, err := filepath.Rel(base, path); err == nil && !strings.HasPrefix(rel, "..") {
		return rel
	}
	return path
}

func firstOf(values []string) string {
	if len(values) == 0 {
		return ""
	}
	if len(values) == 1 {
		return values[0]
	}
	return fmt.Sprintf("%s (+%d more)", values[0], len(values)-1)
}

func formatDuration(d time.Duration) string {
	if d <= 0 {
		return "-"
	}
	if d < time.Second {
		return d.Round(time.Millisecond).String()
	}
	return d.Round(100 * time.Millisecond).String()
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
