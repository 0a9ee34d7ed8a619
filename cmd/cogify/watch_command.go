package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"cogify/internal/batch"
	"cogify/internal/config"
	"cogify/internal/logging"
	"cogify/internal/preflight"
	"cogify/internal/runlock"
	"cogify/internal/scan"
	"cogify/internal/watch"
)

func newWatchCommand(ctx *commandContext) *cobra.Command {
	var (
		skipInitial bool
		debounce    = watch.DefaultDebounce
	)

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Run a batch whenever new rasters land in the source directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			logger, err := ctx.newLogger(cfg, true)
			if err != nil {
				return err
			}
			if err := preflight.Summarize(preflight.RunAll(cmd.Context(), cfg)); err != nil {
				return err
			}

			handler := func(runCtx context.Context, _ []string) error {
				return ctx.watchBatch(runCtx, cfg, logger)
			}
			var options []watch.Option
			if !skipInitial {
				options = append(options, watch.WithInitialRun())
			}
			watcher, err := watch.New(cfg.Paths.SourceDir, scan.OptionsFromConfig(cfg), debounce, handler, logger, options...)
			if err != nil {
				return err
			}
			return watcher.Run(cmd.Context())
		},
	}

	cmd.Flags().BoolVar(&skipInitial, "no-initial", false, "Wait for changes instead of running a batch at startup")
	cmd.Flags().DurationVar(&debounce, "debounce", watch.DefaultDebounce, "Quiet period before a batch starts")
	return cmd
}

// watchBatch runs one batch for the watcher. Only cancellation stops the
// watcher; other failures are logged and the next change retries.
func (c *commandContext) watchBatch(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	summary, err := c.runBatch(ctx, cfg, logger)
	switch {
	case err == nil:
		if failed := summary.Count(batch.StatusFailed); failed > 0 {
			logging.WarnWithContext(logger, "batch finished with failures", "batch_failures",
				logging.Int("failed", failed),
				logging.String("run_id", summary.RunID),
				logging.String(logging.FieldErrorHint, "run cogify history show "+shortID(summary.RunID)),
			)
		}
		return nil
	case errors.Is(err, context.Canceled), ctx.Err() != nil:
		return err
	case errors.Is(err, runlock.ErrLocked):
		logging.WarnWithContext(logger, "another batch is running; skipping this change", "batch_locked",
			logging.Error(err),
			logging.String(logging.FieldImpact, "new rasters are picked up by the next change or run"),
		)
		return nil
	default:
		logging.ErrorWithContext(logger, "batch failed", "batch_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check source_dir and GDAL availability"),
		)
		return nil
	}
}
