package gdal

import (
	"context"
	"fmt"
	"strconv"
	"strings"
)

// TranslateOptions configures gdal_translate.
type TranslateOptions struct {
	// Format is the output driver; empty means GTiff.
	Format          string
	CreationOptions []string
}

// WarpOptions configures gdalwarp.
type WarpOptions struct {
	TargetSRS       string
	Format          string
	Resampling      string
	OutputType      string
	WarpMemoryMB    int
	CreationOptions []string
}

// TranslateArgs builds the gdal_translate argument list.
func TranslateArgs(src, dst string, opts TranslateOptions) []string {
	format := strings.TrimSpace(opts.Format)
	if format == "" {
		format = "GTiff"
	}
	args := []string{"-of", format}
	args = appendCreationOptions(args, opts.CreationOptions)
	return append(args, src, dst)
}

// WarpArgs builds the gdalwarp argument list. Existing destinations are overwritten.
func WarpArgs(src, dst string, opts WarpOptions) []string {
	args := []string{"-overwrite"}
	if srs := strings.TrimSpace(opts.TargetSRS); srs != "" {
		args = append(args, "-t_srs", srs)
	}
	format := strings.TrimSpace(opts.Format)
	if format == "" {
		format = "GTiff"
	}
	args = append(args, "-of", format)
	if opts.WarpMemoryMB > 0 {
		args = append(args, "-wm", strconv.Itoa(opts.WarpMemoryMB))
	}
	if outputType := strings.TrimSpace(opts.OutputType); outputType != "" {
		args = append(args, "-ot", outputType)
	}
	if resampling := strings.TrimSpace(opts.Resampling); resampling != "" {
		args = append(args, "-r", resampling)
	}
	args = appendCreationOptions(args, opts.CreationOptions)
	return append(args, src, dst)
}

func appendCreationOptions(args, options []string) []string {
	for _, option := range options {
		if trimmed := strings.TrimSpace(option); trimmed != "" {
			args = append(args, "-co", trimmed)
		}
	}
	return args
}

// Translate converts src into dst with gdal_translate.
func (t Tools) Translate(ctx context.Context, src, dst string, opts TranslateOptions) error {
	if strings.TrimSpace(src) == "" || strings.TrimSpace(dst) == "" {
		return fmt.Errorf("gdal_translate: %w", ErrEmptyPath)
	}
	binary := binaryOr(t.TranslatePath, "gdal_translate")
	if _, err := t.run(ctx, binary, TranslateArgs(src, dst, opts)...); err != nil {
		return err
	}
	return requireOutput(binary, dst)
}

// Warp reprojects src into dst with gdalwarp.
func (t Tools) Warp(ctx context.Context, src, dst string, opts WarpOptions) error {
	if strings.TrimSpace(src) == "" || strings.TrimSpace(dst) == "" {
		return fmt.Errorf("gdalwarp: %w", ErrEmptyPath)
	}
	binary := binaryOr(t.WarpPath, "gdalwarp")
	if _, err := t.run(ctx, binary, WarpArgs(src, dst, opts)...); err != nil {
		return err
	}
	return requireOutput(binary, dst)
}

// BuildVRT writes a virtual mosaic at dst referencing every source raster.
func (t Tools) BuildVRT(ctx context.Context, dst string, sources []string) error {
	if strings.TrimSpace(dst) == "" {
		return fmt.Errorf("gdalbuildvrt: %w", ErrEmptyPath)
	}
	if len(sources) == 0 {
		return fmt.Errorf("gdalbuildvrt: no source rasters for %s", dst)
	}
	binary := binaryOr(t.BuildVRTPath, "gdalbuildvrt")
	args := append([]string{"-overwrite", dst}, sources...)
	if _, err := t.run(ctx, binary, args...); err != nil {
		return err
	}
	return requireOutput(binary, dst)
}
