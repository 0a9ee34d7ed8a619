package cog

import (
	"context"
	"fmt"
	"os"
	"strings"

	"cogify/internal/config"
	"cogify/internal/gdal"
)

// Options tunes validation strictness.
type Options struct {
	// RequireCOGLayout turns a missing LAYOUT=COG marker into an error.
	RequireCOGLayout bool
	// TileThreshold is the raster dimension above which tiling is required.
	TileThreshold int
}

// OptionsFromConfig derives validation options from configuration.
func OptionsFromConfig(cfg *config.Config) Options {
	if cfg == nil {
		return Options{TileThreshold: defaultTileThreshold}
	}
	return Options{
		RequireCOGLayout: cfg.Validation.RequireCOGLayout,
		TileThreshold:    cfg.Validation.TileThreshold,
	}
}

const defaultTileThreshold = 512

// maxStripWidth is the widest strip block accepted on a raster above the
// tile threshold.
const maxStripWidth = 1024

// Details summarises the raster facts a report was judged on.
type Details struct {
	Driver        string `json:"driver"`
	Width         int    `json:"width"`
	Height        int    `json:"height"`
	BlockWidth    int    `json:"block_width"`
	BlockHeight   int    `json:"block_height"`
	OverviewCount int    `json:"overview_count"`
	Compression   string `json:"compression"`
	Layout        string `json:"layout,omitempty"`
	FileSize      int64  `json:"file_size"`
}

// Report is the outcome of validating one raster.
type Report struct {
	Path     string   `json:"path"`
	Warnings []string `json:"warnings,omitempty"`
	Errors   []string `json:"errors,omitempty"`
	Details  Details  `json:"details"`
}

// Valid reports whether the raster is a cloud optimized GeoTIFF.
func (r Report) Valid() bool {
	return len(r.Errors) == 0
}

// Inspector produces GDAL reports for rasters.
type Inspector interface {
	Inspect(ctx context.Context, path string) (gdal.Info, error)
}

// Check inspects path with GDAL and validates the result. A raster GDAL
// cannot open yields a report carrying a single error.
func Check(ctx context.Context, inspector Inspector, path string, opts Options) Report {
	info, err := inspector.Inspect(ctx, path)
	if err != nil {
		return Report{
			Path:   path,
			Errors: []string{fmt.Sprintf("Failed to open %s: %v", path, err)},
		}
	}
	report := Validate(info, opts)
	report.Path = path
	if stat, statErr := os.Stat(path); statErr == nil {
		report.Details.FileSize = stat.Size()
	}
	return report
}

// Validate judges a GDAL report against the cloud optimized GeoTIFF rules.
func Validate(info gdal.Info, opts Options) Report {
	threshold := opts.TileThreshold
	if threshold <= 0 {
		threshold = defaultTileThreshold
	}

	report := Report{Path: info.Description}
	blockW, blockH := info.BlockSize()
	overviews := info.Overviews()
	report.Details = Details{
		Driver:        info.Driver,
		Width:         info.Width(),
		Height:        info.Height(),
		BlockWidth:    blockW,
		BlockHeight:   blockH,
		OverviewCount: len(overviews),
		Compression:   info.Compression(),
		Layout:        info.Layout(),
	}

	if !strings.EqualFold(info.Driver, "GTiff") {
		report.Errors = append(report.Errors, "The file is not a GeoTIFF")
		return report
	}

	if external := info.ExternalOverviews(); len(external) > 0 {
		report.Errors = append(report.Errors, "Overviews found in external .ovr file. They should be internal")
	}

	width, height := info.Width(), info.Height()
	if width > threshold || height > threshold {
		if blockW == width && blockW > maxStripWidth {
			report.Errors = append(report.Errors, fmt.Sprintf(
				"The file is greater than %dxH or Wx%d, but is not tiled", threshold, threshold))
		}
		if len(overviews) == 0 {
			report.Warnings = append(report.Warnings, fmt.Sprintf(
				"The file is greater than %dxH or Wx%d, it is recommended to include internal overviews", threshold, threshold))
		}
	}

	for idx := 1; idx < len(overviews); idx++ {
		prev, cur := overviews[idx-1], overviews[idx]
		if cur.Width() > prev.Width() || cur.Height() > prev.Height() {
			report.Errors = append(report.Errors, fmt.Sprintf(
				"Overview of index %d has larger dimension than overview of index %d", idx, idx-1))
		}
	}
	if len(overviews) > 0 {
		first := overviews[0]
		if first.Width() > width || first.Height() > height {
			report.Errors = append(report.Errors, "First overview has larger dimension than the full resolution image")
		}
	}

	if !strings.EqualFold(info.Layout(), "COG") {
		msg := "The file does not declare LAYOUT=COG; IFD and tile ordering is not guaranteed"
		if opts.RequireCOGLayout {
			report.Errors = append(report.Errors, msg)
		} else {
			report.Warnings = append(report.Warnings, msg)
		}
	}

	return report
}
