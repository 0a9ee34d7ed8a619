package batch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"cogify/internal/cog"
	"cogify/internal/gdal"
	"cogify/internal/logging"
)

func (p *Processor) processFile(ctx context.Context, source cog.Report) FileResult {
	started := time.Now()
	input := source.Path
	result := FileResult{
		Input:    input,
		Source:   source,
		Warnings: append([]string(nil), source.Warnings...),
	}
	ctx = logging.WithFile(ctx, input)
	finish := func(status Status) FileResult {
		result.Status = status
		result.Duration = time.Since(started)
		return result
	}
	fail := func(stage, message string, err error) FileResult {
		result.Errors = append(result.Errors, message)
		logging.ErrorWithContext(logging.WithContext(logging.WithStage(ctx, stage), p.logger), message, stage+"_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "inspect the GDAL output in the error and rerun"),
		)
		return finish(StatusFailed)
	}

	rel := p.relativeOutput(input)
	output := filepath.Join(p.cfg.Paths.OutputDir, rel)
	if p.insideReprojectTree(rel) {
		err := fmt.Errorf("%w: %s", errReprojectOverlap, p.cfg.ReprojectDir())
		return fail("translate", fmt.Sprintf("Failed to Process: %s: %v", input, err), err)
	}
	if err := os.MkdirAll(filepath.Dir(output), 0o755); err != nil {
		return fail("translate", "Failed to Process: "+input, err)
	}

	translateCtx := logging.WithStage(ctx, "translate")
	err := p.tools.Translate(translateCtx, input, output, gdal.TranslateOptions{
		CreationOptions: p.cfg.Translate.CreationOptions,
	})
	if err != nil {
		return fail("translate", fmt.Sprintf("Failed to Process: %s: %v", input, err), err)
	}
	result.Output = output

	outReport := cog.Check(logging.WithStage(ctx, "validate"), p.tools, output, cog.OptionsFromConfig(p.cfg))
	result.OutputReport = &outReport
	result.Warnings = append(result.Warnings, outReport.Warnings...)
	if !outReport.Valid() {
		result.Errors = append(result.Errors, outReport.Errors...)
		logging.WarnWithContext(logging.WithContext(translateCtx, p.logger), output+" is NOT a valid COG after translation", "translated_invalid",
			logging.String("errors", strings.Join(outReport.Errors, "; ")),
			logging.String(logging.FieldErrorHint, "review translate.creation_options"),
			logging.String(logging.FieldImpact, "output was kept but not reprojected"),
		)
		return finish(StatusTranslatedInvalid)
	}
	logging.WithContext(translateCtx, p.logger).Info(output+" is valid COG",
		logging.String(logging.FieldEventType, "translated"),
	)

	if !p.cfg.Reproject.Enabled {
		return finish(StatusTranslated)
	}

	reprojected := filepath.Join(p.cfg.ReprojectDir(), rel)
	if err := os.MkdirAll(filepath.Dir(reprojected), 0o755); err != nil {
		return fail("reproject", "Failed to Reproject: "+output, err)
	}
	warpCtx := logging.WithStage(ctx, "reproject")
	err = p.tools.Warp(warpCtx, output, reprojected, gdal.WarpOptions{
		TargetSRS:       p.cfg.Reproject.TargetSRS,
		Format:          p.cfg.Reproject.Format,
		Resampling:      p.cfg.Reproject.Resampling,
		OutputType:      p.cfg.Reproject.OutputType,
		WarpMemoryMB:    p.cfg.Reproject.WarpMemoryMB,
		CreationOptions: p.cfg.Reproject.CreationOptions,
	})
	if err != nil {
		return fail("reproject", fmt.Sprintf("Failed to Reproject: %s: %v", output, err), err)
	}
	result.Reprojected = reprojected
	logging.WithContext(warpCtx, p.logger).Info("reprojected",
		logging.String(logging.FieldEventType, "reprojected"),
		logging.String("target_srs", p.cfg.Reproject.TargetSRS),
		logging.String("output", reprojected),
	)
	return finish(StatusReprojected)
}

// relativeOutput mirrors the input's position under the source directory so
// rasters from different subdirectories never collide in the output tree.
func (p *Processor) relativeOutput(input string) string {
	rel, err := filepath.Rel(p.cfg.Paths.SourceDir, input)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) || filepath.IsAbs(rel) {
		return filepath.Base(input)
	}
	return rel
}

// errReprojectOverlap marks an input whose translated output would land in the
// reprojection tree, where it could overwrite or be overwritten by a warp.
var errReprojectOverlap = errors.New("translated output would land in the reprojection directory")

// insideReprojectTree reports whether an output path relative to output_dir
// falls under reproject.subdir while reprojection is enabled.
func (p *Processor) insideReprojectTree(rel string) bool {
	if !p.cfg.Reproject.Enabled {
		return false
	}
	first, _, _ := strings.Cut(filepath.ToSlash(rel), "/")
	return first == p.cfg.Reproject.Subdir && first != rel
}

// prepareLayout empties the output directory when configured and creates the
// output and reprojection directories.
func (p *Processor) prepareLayout(logger *slog.Logger) error {
	outputDir := p.cfg.Paths.OutputDir
	if p.cfg.Workflow.CleanOutput {
		if _, err := os.Stat(outputDir); err == nil {
			if err := os.RemoveAll(outputDir); err != nil {
				return fmt.Errorf("clean output directory: %w", err)
			}
			logger.Info("removed previous output", logging.String("output_dir", outputDir))
		}
	}
	dirs := []string{outputDir}
	if p.cfg.Reproject.Enabled {
		dirs = append(dirs, p.cfg.ReprojectDir())
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
	}
	logger.Info("Successfully created the directory "+outputDir,
		logging.String(logging.FieldEventType, "layout_ready"),
	)
	return nil
}

// buildMosaic writes a VRT over the final rasters: the reprojected outputs, or
// the translated outputs when reprojection is disabled.
func (p *Processor) buildMosaic(ctx context.Context, logger *slog.Logger, files []FileResult) (string, error) {
	var sources []string
	dir := p.cfg.Paths.OutputDir
	if p.cfg.Reproject.Enabled {
		dir = p.cfg.ReprojectDir()
	}
	for _, file := range files {
		switch {
		case file.Status == StatusReprojected && file.Reprojected != "":
			sources = append(sources, file.Reprojected)
		case file.Status == StatusTranslated && file.Output != "":
			sources = append(sources, file.Output)
		}
	}
	if len(sources) == 0 {
		logger.Info("mosaic skipped; no finished rasters",
			logging.String(logging.FieldEventType, "mosaic_skipped"),
		)
		return "", nil
	}

	target := filepath.Join(dir, p.cfg.Mosaic.Name)
	mosaicCtx := logging.WithStage(ctx, "mosaic")
	if err := p.tools.BuildVRT(mosaicCtx, target, sources); err != nil {
		logging.WarnWithContext(logging.WithContext(mosaicCtx, p.logger), "mosaic build failed", "mosaic_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "run gdalbuildvrt manually over the output directory"),
			logging.String(logging.FieldImpact, "rasters were produced but no mosaic is available"),
		)
		return "", err
	}
	logger.Info("mosaic built",
		logging.String(logging.FieldEventType, "mosaic_built"),
		logging.String("mosaic", target),
		logging.Int("rasters", len(sources)),
	)
	return target, nil
}
