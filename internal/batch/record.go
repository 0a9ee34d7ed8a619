package batch

import (
	"context"
	"log/slog"

	"cogify/internal/history"
	"cogify/internal/logging"
)

// record persists the run. History failures are logged and never fail the batch.
func (p *Processor) record(ctx context.Context, logger *slog.Logger, summary Summary, runErr error) {
	if p.recorder == nil {
		return
	}
	run := history.Run{
		ID:                summary.RunID,
		StartedAt:         summary.StartedAt,
		FinishedAt:        summary.FinishedAt,
		SourceDir:         summary.SourceDir,
		OutputDir:         summary.OutputDir,
		Scanned:           summary.Scanned,
		Valid:             summary.Valid,
		Invalid:           summary.Invalid,
		Translated:        summary.Count(StatusTranslated),
		TranslatedInvalid: summary.Count(StatusTranslatedInvalid),
		Reprojected:       summary.Count(StatusReprojected),
		Failed:            summary.Count(StatusFailed),
		MosaicPath:        summary.Mosaic,
	}
	if runErr != nil {
		run.ErrorMessage = runErr.Error()
	}

	files := make([]history.FileRecord, 0, len(summary.Files))
	for _, file := range summary.Files {
		files = append(files, history.FileRecord{
			RunID:           summary.RunID,
			InputPath:       file.Input,
			OutputPath:      file.Output,
			ReprojectedPath: file.Reprojected,
			Status:          string(file.Status),
			Errors:          file.Errors,
			Warnings:        file.Warnings,
			Duration:        file.Duration,
		})
	}

	// A cancelled run is still recorded.
	if err := p.recorder.RecordRun(context.WithoutCancel(ctx), run, files); err != nil {
		logging.WarnWithContext(logger, "failed to record run history", "history_write_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check history.path permissions or delete the database"),
			logging.String(logging.FieldImpact, "run is missing from cogify history"),
		)
	}
}
