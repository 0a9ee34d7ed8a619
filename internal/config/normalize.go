package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeScan()
	c.normalizeGDAL()
	c.normalizeTranslate()
	c.normalizeReproject()
	c.normalizeMosaic()
	if err := c.normalizeHistory(); err != nil {
		return err
	}
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	if strings.TrimSpace(c.Paths.SourceDir) == "" || c.Paths.SourceDir == defaultSourceDir {
		if value, ok := os.LookupEnv("COGIFY_SOURCE_DIR"); ok && strings.TrimSpace(value) != "" {
			c.Paths.SourceDir = strings.TrimSpace(value)
		}
	}
	if strings.TrimSpace(c.Paths.SourceDir) == "" {
		c.Paths.SourceDir = defaultSourceDir
	}
	var err error
	if c.Paths.SourceDir, err = expandPath(strings.TrimSpace(c.Paths.SourceDir)); err != nil {
		return fmt.Errorf("paths.source_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.OutputDir) == "" {
		c.Paths.OutputDir = filepath.Join(c.Paths.SourceDir, defaultOutputSubdir)
	}
	if c.Paths.OutputDir, err = expandPath(strings.TrimSpace(c.Paths.OutputDir)); err != nil {
		return fmt.Errorf("paths.output_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(strings.TrimSpace(c.Paths.LogDir)); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeScan() {
	patterns := make([]string, 0, len(c.Scan.Patterns))
	seen := make(map[string]struct{}, len(c.Scan.Patterns))
	for _, pattern := range c.Scan.Patterns {
		trimmed := strings.TrimSpace(pattern)
		if trimmed == "" {
			continue
		}
		if _, exists := seen[trimmed]; exists {
			continue
		}
		seen[trimmed] = struct{}{}
		patterns = append(patterns, trimmed)
	}
	if len(patterns) == 0 {
		patterns = []string{defaultScanPattern}
	}
	c.Scan.Patterns = patterns
}

func (c *Config) normalizeGDAL() {
	binDir := ""
	if value, ok := os.LookupEnv("GDAL_BIN_DIR"); ok {
		binDir = strings.TrimSpace(value)
	}
	c.GDAL.Info = resolveBinary(c.GDAL.Info, defaultGDALInfo, binDir)
	c.GDAL.Translate = resolveBinary(c.GDAL.Translate, defaultGDALTranslate, binDir)
	c.GDAL.Warp = resolveBinary(c.GDAL.Warp, defaultGDALWarp, binDir)
	c.GDAL.BuildVRT = resolveBinary(c.GDAL.BuildVRT, defaultGDALBuildVRT, binDir)
	if c.GDAL.CommandTimeout == 0 {
		c.GDAL.CommandTimeout = defaultCommandTimeout
	}
}

func resolveBinary(value, fallback, binDir string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		value = fallback
	}
	if binDir != "" && !strings.ContainsRune(value, filepath.Separator) {
		return filepath.Join(binDir, value)
	}
	return value
}

func (c *Config) normalizeTranslate() {
	c.Translate.CreationOptions = normalizeCreationOptions(c.Translate.CreationOptions)
}

func (c *Config) normalizeReproject() {
	c.Reproject.TargetSRS = strings.TrimSpace(c.Reproject.TargetSRS)
	if c.Reproject.TargetSRS == "" {
		c.Reproject.TargetSRS = defaultTargetSRS
	}
	c.Reproject.Subdir = strings.TrimSpace(c.Reproject.Subdir)
	if c.Reproject.Subdir == "" {
		c.Reproject.Subdir = subdirForSRS(c.Reproject.TargetSRS)
	}
	c.Reproject.Format = strings.TrimSpace(c.Reproject.Format)
	if c.Reproject.Format == "" {
		c.Reproject.Format = defaultWarpFormat
	}
	c.Reproject.Resampling = strings.ToLower(strings.TrimSpace(c.Reproject.Resampling))
	if c.Reproject.Resampling == "" {
		c.Reproject.Resampling = defaultResampling
	}
	c.Reproject.OutputType = strings.TrimSpace(c.Reproject.OutputType)
	if c.Reproject.WarpMemoryMB == 0 {
		c.Reproject.WarpMemoryMB = defaultWarpMemoryMB
	}
	c.Reproject.CreationOptions = normalizeCreationOptions(c.Reproject.CreationOptions)
}

// subdirForSRS derives a directory name from an SRS such as EPSG:3857.
func subdirForSRS(srs string) string {
	if idx := strings.LastIndex(srs, ":"); idx >= 0 && idx < len(srs)-1 {
		code := srs[idx+1:]
		if isDigits(code) {
			return code
		}
	}
	if isDigits(srs) {
		return srs
	}
	return defaultReprojectSubdirNone
}

func isDigits(value string) bool {
	if value == "" {
		return false
	}
	for _, r := range value {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// normalizeCreationOptions upper-cases option keys, drops blanks and keeps the
// last value for a repeated key in its first position.
func normalizeCreationOptions(options []string) []string {
	out := make([]string, 0, len(options))
	index := make(map[string]int, len(options))
	for _, option := range options {
		trimmed := strings.TrimSpace(option)
		if trimmed == "" {
			continue
		}
		key, value, found := strings.Cut(trimmed, "=")
		key = strings.ToUpper(strings.TrimSpace(key))
		normalized := key
		if found {
			normalized = key + "=" + strings.TrimSpace(value)
		}
		if pos, exists := index[key]; exists {
			out[pos] = normalized
			continue
		}
		index[key] = len(out)
		out = append(out, normalized)
	}
	return out
}

func (c *Config) normalizeMosaic() {
	c.Mosaic.Name = strings.TrimSpace(c.Mosaic.Name)
	if c.Mosaic.Name == "" {
		c.Mosaic.Name = defaultMosaicName
	}
	if !strings.EqualFold(filepath.Ext(c.Mosaic.Name), ".vrt") {
		c.Mosaic.Name += ".vrt"
	}
}

func (c *Config) normalizeHistory() error {
	if strings.TrimSpace(c.History.Path) == "" {
		c.History.Path = filepath.Join(c.Paths.LogDir, defaultHistoryFile)
	}
	var err error
	if c.History.Path, err = expandPath(strings.TrimSpace(c.History.Path)); err != nil {
		return fmt.Errorf("history.path: %w", err)
	}
	return nil
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if c.Logging.RetentionDays < 0 {
		c.Logging.RetentionDays = 0
	}
}
