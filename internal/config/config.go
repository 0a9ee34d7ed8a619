package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	SourceDir string `toml:"source_dir"`
	OutputDir string `toml:"output_dir"`
	LogDir    string `toml:"log_dir"`
}

// Scan controls which files in the source directory are considered rasters.
type Scan struct {
	Patterns        []string `toml:"patterns"`
	CaseInsensitive bool     `toml:"case_insensitive"`
}

// GDAL names the GDAL command-line programs and how long each may run.
type GDAL struct {
	Info           string `toml:"gdalinfo"`
	Translate      string `toml:"gdal_translate"`
	Warp           string `toml:"gdalwarp"`
	BuildVRT       string `toml:"gdalbuildvrt"`
	CommandTimeout int    `toml:"command_timeout"`
}

// Translate contains GTiff creation options used for the COG conversion.
type Translate struct {
	CreationOptions []string `toml:"creation_options"`
}

// Reproject contains gdalwarp settings for the second output CRS.
type Reproject struct {
	Enabled             bool     `toml:"enabled"`
	TargetSRS           string   `toml:"target_srs"`
	Subdir              string   `toml:"subdir"`
	Format              string   `toml:"format"`
	Resampling          string   `toml:"resampling"`
	OutputType          string   `toml:"output_type"`
	WarpMemoryMB        int      `toml:"warp_memory_mb"`
	CreationOptions     []string `toml:"creation_options"`
	IncludeValidSources bool     `toml:"include_valid_sources"`
}

// Validation tunes how strictly COG reports are judged.
type Validation struct {
	RequireCOGLayout bool `toml:"require_cog_layout"`
	TileThreshold    int  `toml:"tile_threshold"`
}

// Mosaic controls the optional VRT built over reprojected outputs.
type Mosaic struct {
	BuildVRT bool   `toml:"build_vrt"`
	Name     string `toml:"name"`
}

// Workflow contains batch execution settings.
type Workflow struct {
	Workers     int  `toml:"workers"`
	CleanOutput bool `toml:"clean_output"`
}

// History contains configuration for the run ledger.
type History struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format        string `toml:"format"`
	Level         string `toml:"level"`
	RetentionDays int    `toml:"retention_days"`
}

// Config encapsulates all configuration values for cogify.
//
// Configuration sections by subsystem:
//   - Paths: source rasters, conversion output, logs
//   - Scan: raster file patterns
//   - GDAL: program names and timeouts
//   - Translate: GTiff creation options for COG conversion
//   - Reproject: gdalwarp target CRS and options
//   - Validation: COG report strictness
//   - Mosaic: optional VRT over reprojected outputs
//   - Workflow: parallelism and output cleanup
//   - History: SQLite run ledger
//   - Logging: log format, level, and retention
type Config struct {
	Paths      Paths      `toml:"paths"`
	Scan       Scan       `toml:"scan"`
	GDAL       GDAL       `toml:"gdal"`
	Translate  Translate  `toml:"translate"`
	Reproject  Reproject  `toml:"reproject"`
	Validation Validation `toml:"validation"`
	Mosaic     Mosaic     `toml:"mosaic"`
	Workflow   Workflow   `toml:"workflow"`
	History    History    `toml:"history"`
	Logging    Logging    `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			var strict *toml.StrictMissingError
			if errors.As(err, &strict) {
				return nil, "", false, fmt.Errorf("parse config: %s", strings.TrimSpace(strict.String()))
			}
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("cogify.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the directories cogify writes to. The source
// directory is never created; a missing source is reported by the scanner.
func (c *Config) EnsureDirectories() error {
	if err := os.MkdirAll(c.Paths.LogDir, 0o755); err != nil {
		return fmt.Errorf("create directory %q: %w", c.Paths.LogDir, err)
	}
	if c.History.Enabled {
		if dir := filepath.Dir(c.History.Path); dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return fmt.Errorf("create history directory %q: %w", dir, err)
			}
		}
	}
	return nil
}

// ReprojectDir returns the directory receiving reprojected rasters.
func (c *Config) ReprojectDir() string {
	return filepath.Join(c.Paths.OutputDir, c.Reproject.Subdir)
}

// CommandTimeout returns the per-invocation limit applied to GDAL programs.
func (c *Config) CommandTimeout() time.Duration {
	return time.Duration(c.GDAL.CommandTimeout) * time.Second
}

// LogFilePath returns the file the logger appends to.
func (c *Config) LogFilePath() string {
	return filepath.Join(c.Paths.LogDir, "cogify.log")
}

// LockPath returns the path of the single-run lock file.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.LogDir, "cogify.lock")
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

// Encode renders the effective configuration as TOML.
func (c *Config) Encode() ([]byte, error) {
	data, err := toml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("encode config: %w", err)
	}
	return data, nil
}
