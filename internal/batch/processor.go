package batch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"cogify/internal/cog"
	"cogify/internal/config"
	"cogify/internal/gdal"
	"cogify/internal/history"
	"cogify/internal/logging"
	"cogify/internal/runlock"
	"cogify/internal/scan"
)

// Toolset is the GDAL surface the workflow drives.
type Toolset interface {
	cog.Inspector
	Translate(ctx context.Context, src, dst string, opts gdal.TranslateOptions) error
	Warp(ctx context.Context, src, dst string, opts gdal.WarpOptions) error
	BuildVRT(ctx context.Context, dst string, sources []string) error
}

// Recorder persists finished runs.
type Recorder interface {
	RecordRun(ctx context.Context, run history.Run, files []history.FileRecord) error
}

// Processor executes batch runs for one configuration.
type Processor struct {
	cfg      *config.Config
	tools    Toolset
	recorder Recorder
	logger   *slog.Logger
	newID    func() string
	now      func() time.Time
}

// Option configures optional Processor behavior.
type Option func(*Processor)

// WithTools replaces the GDAL toolset (used in tests).
func WithTools(tools Toolset) Option {
	return func(p *Processor) {
		if tools != nil {
			p.tools = tools
		}
	}
}

// WithRecorder attaches a history recorder.
func WithRecorder(recorder Recorder) Option {
	return func(p *Processor) {
		p.recorder = recorder
	}
}

// New constructs a Processor backed by the configured GDAL programs.
func New(cfg *config.Config, logger *slog.Logger, opts ...Option) *Processor {
	if logger == nil {
		logger = logging.NewNop()
	}
	p := &Processor{
		cfg:    cfg,
		tools:  gdal.NewTools(cfg, logger),
		logger: logging.NewComponentLogger(logger, "batch"),
		newID:  uuid.NewString,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run executes one full batch. Per-file failures are reported in the summary;
// the returned error is non-nil only when the run could not start or was
// cancelled.
func (p *Processor) Run(ctx context.Context) (Summary, error) {
	summary := Summary{
		RunID:     p.newID(),
		StartedAt: p.now(),
		SourceDir: p.cfg.Paths.SourceDir,
		OutputDir: p.cfg.Paths.OutputDir,
	}
	ctx = logging.WithRunID(ctx, summary.RunID)
	logger := logging.WithContext(ctx, p.logger)

	lock, err := runlock.Acquire(p.cfg.LockPath())
	if err != nil {
		return summary, err
	}
	defer func() {
		if releaseErr := lock.Release(); releaseErr != nil {
			logger.Warn("failed to release run lock", logging.Error(releaseErr))
		}
	}()

	logger.Info("batch started",
		logging.String(logging.FieldEventType, "batch_start"),
		logging.String("source_dir", summary.SourceDir),
		logging.String("output_dir", summary.OutputDir),
		logging.Int("workers", p.cfg.Workflow.Workers),
	)

	reports, err := p.validateInputs(ctx, logger)
	if err != nil {
		summary.FinishedAt = p.now()
		p.record(ctx, logger, summary, err)
		return summary, err
	}
	summary.Scanned = len(reports)

	var queue []cog.Report
	var untouched []FileResult
	for _, report := range reports {
		if report.Valid() {
			summary.Valid++
		} else {
			summary.Invalid++
		}
		if !report.Valid() || p.cfg.Reproject.IncludeValidSources {
			queue = append(queue, report)
			continue
		}
		untouched = append(untouched, FileResult{
			Input:    report.Path,
			Status:   StatusValid,
			Source:   report,
			Warnings: report.Warnings,
		})
	}

	if len(queue) == 0 {
		summary.NoProcessingRequired = true
		summary.Files = untouched
		summary.FinishedAt = p.now()
		logger.Info("No Processing Required",
			logging.String(logging.FieldEventType, "batch_complete"),
			logging.Int("scanned", summary.Scanned),
		)
		p.record(ctx, logger, summary, nil)
		return summary, nil
	}

	if err := p.prepareLayout(logger); err != nil {
		summary.Files = untouched
		summary.FinishedAt = p.now()
		p.record(ctx, logger, summary, err)
		return summary, err
	}

	results, runErr := p.processQueue(ctx, logger, queue)
	summary.Files = append(untouched, results...)
	sort.SliceStable(summary.Files, func(i, j int) bool {
		return summary.Files[i].Input < summary.Files[j].Input
	})

	if runErr == nil && p.cfg.Mosaic.BuildVRT {
		mosaic, mosaicErr := p.buildMosaic(ctx, logger, summary.Files)
		summary.Mosaic = mosaic
		if mosaicErr != nil {
			summary.MosaicError = mosaicErr.Error()
		}
	}

	summary.FinishedAt = p.now()
	p.record(ctx, logger, summary, runErr)
	if runErr != nil {
		logger.Info("batch interrupted",
			logging.String(logging.FieldEventType, "batch_cancelled"),
			logging.Error(runErr),
		)
		return summary, runErr
	}

	logger.Info("All Geotiffs have been processed",
		logging.String(logging.FieldEventType, "batch_complete"),
		logging.Int("scanned", summary.Scanned),
		logging.Int("processed", summary.Processed()),
		logging.Int("reprojected", summary.Count(StatusReprojected)),
		logging.Int("translated_invalid", summary.Count(StatusTranslatedInvalid)),
		logging.Int("failed", summary.Count(StatusFailed)),
		logging.Duration("duration", summary.Duration()),
	)
	return summary, nil
}

// ValidateOnly reports on the given rasters, or on every scanned input when
// no paths are supplied. Nothing is written.
func (p *Processor) ValidateOnly(ctx context.Context, paths ...string) ([]cog.Report, error) {
	logger := logging.WithContext(ctx, p.logger)
	if len(paths) == 0 {
		return p.validateInputs(ctx, logger)
	}
	return p.validatePaths(ctx, logger, paths)
}

func (p *Processor) validateInputs(ctx context.Context, logger *slog.Logger) ([]cog.Report, error) {
	inputs, err := scan.Find(p.cfg.Paths.SourceDir, scan.OptionsFromConfig(p.cfg))
	if err != nil {
		return nil, fmt.Errorf("scan source: %w", err)
	}
	logger.Info("scan complete",
		logging.String(logging.FieldEventType, "scan_complete"),
		logging.Int("inputs", len(inputs)),
		logging.String("patterns", strings.Join(p.cfg.Scan.Patterns, ",")),
	)
	if len(inputs) == 0 {
		return nil, nil
	}
	return p.validatePaths(ctx, logger, inputs)
}

func (p *Processor) validatePaths(ctx context.Context, logger *slog.Logger, paths []string) ([]cog.Report, error) {
	opts := cog.OptionsFromConfig(p.cfg)
	reports := make([]cog.Report, len(paths))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.workers())
	for idx, path := range paths {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			fileCtx := logging.WithStage(logging.WithFile(gctx, path), "validate")
			reports[idx] = cog.Check(fileCtx, p.tools, path, opts)
			logReport(logging.WithContext(fileCtx, p.logger), reports[idx])
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return reports, nil
}

func logReport(logger *slog.Logger, report cog.Report) {
	for _, warning := range report.Warnings {
		logging.WarnWithContext(logger, "validation warning", "cog_warning",
			logging.String("warning", warning),
			logging.String(logging.FieldErrorHint, "rebuild with internal overviews and COG layout to clear"),
			logging.String(logging.FieldImpact, "raster is usable but may read slowly over HTTP"),
		)
	}
	if report.Valid() {
		logger.Info(report.Path+" is a valid cloud optimized GeoTIFF",
			logging.String(logging.FieldEventType, "cog_valid"),
		)
		return
	}
	logger.Info(report.Path+" is NOT a valid cloud optimized GeoTIFF",
		logging.String(logging.FieldEventType, "cog_invalid"),
		logging.String("errors", strings.Join(report.Errors, "; ")),
	)
}

func (p *Processor) processQueue(ctx context.Context, logger *slog.Logger, queue []cog.Report) ([]FileResult, error) {
	results := make([]FileResult, len(queue))
	started := make([]bool, len(queue))

	var (
		mu      sync.Mutex
		done    int
		sampler = logging.NewProgressSampler(10)
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.workers())
	for idx, report := range queue {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			started[idx] = true
			results[idx] = p.processFile(gctx, report)

			mu.Lock()
			done++
			if sampler.ShouldLog(done, len(queue)) {
				logger.Info("batch progress",
					logging.String(logging.FieldEventType, "batch_progress"),
					logging.Int("done", done),
					logging.Int("total", len(queue)),
					logging.Float64("percent", logging.Percent(done, len(queue))),
				)
			}
			mu.Unlock()
			return nil
		})
	}
	waitErr := g.Wait()
	if err := ctx.Err(); err != nil {
		waitErr = err
	}

	out := make([]FileResult, 0, len(queue))
	for idx := range queue {
		if !started[idx] {
			if waitErr == nil {
				continue
			}
			results[idx] = FileResult{
				Input:    queue[idx].Path,
				Status:   StatusFailed,
				Source:   queue[idx],
				Errors:   []string{"not processed: " + waitErr.Error()},
				Warnings: queue[idx].Warnings,
			}
		}
		out = append(out, results[idx])
	}
	if waitErr != nil && !errors.Is(waitErr, context.Canceled) && !errors.Is(waitErr, context.DeadlineExceeded) {
		return out, fmt.Errorf("process queue: %w", waitErr)
	}
	return out, waitErr
}

func (p *Processor) workers() int {
	if p.cfg.Workflow.Workers < 1 {
		return 1
	}
	return p.cfg.Workflow.Workers
}
