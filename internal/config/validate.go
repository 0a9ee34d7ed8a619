package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

var validResampling = map[string]struct{}{
	"near":        {},
	"bilinear":    {},
	"cubic":       {},
	"cubicspline": {},
	"lanczos":     {},
	"average":     {},
	"rms":         {},
	"mode":        {},
	"max":         {},
	"min":         {},
	"med":         {},
	"q1":          {},
	"q3":          {},
	"sum":         {},
}

var validOutputTypes = map[string]struct{}{
	"Byte":     {},
	"Int8":     {},
	"UInt16":   {},
	"Int16":    {},
	"UInt32":   {},
	"Int32":    {},
	"UInt64":   {},
	"Int64":    {},
	"Float32":  {},
	"Float64":  {},
	"CInt16":   {},
	"CInt32":   {},
	"CFloat32": {},
	"CFloat64": {},
}

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateGDAL(); err != nil {
		return err
	}
	if err := c.validateCreationOptions("translate.creation_options", c.Translate.CreationOptions); err != nil {
		return err
	}
	if err := c.validateReproject(); err != nil {
		return err
	}
	if err := c.validateValidation(); err != nil {
		return err
	}
	if err := c.validateWorkflow(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePaths() error {
	if c.Paths.SourceDir == "" {
		return errors.New("paths.source_dir must be set")
	}
	if c.Paths.OutputDir == "" {
		return errors.New("paths.output_dir must be set")
	}
	if c.Paths.LogDir == "" {
		return errors.New("paths.log_dir must be set")
	}
	if isWithin(c.Paths.SourceDir, c.Paths.OutputDir) {
		return fmt.Errorf("paths.output_dir %q must not be the source directory or one of its parents", c.Paths.OutputDir)
	}
	// clean_output removes output_dir wholesale, so the lock, log and
	// history files must live elsewhere.
	if isWithin(c.Paths.LogDir, c.Paths.OutputDir) {
		return fmt.Errorf("paths.log_dir %q must not be inside paths.output_dir", c.Paths.LogDir)
	}
	if c.History.Enabled && c.History.Path != "" && isWithin(c.History.Path, c.Paths.OutputDir) {
		return fmt.Errorf("history.path %q must not be inside paths.output_dir", c.History.Path)
	}
	return nil
}

// isWithin reports whether target equals base or lies beneath it.
func isWithin(target, base string) bool {
	rel, err := filepath.Rel(base, target)
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}

func (c *Config) validateGDAL() error {
	for key, value := range map[string]string{
		"gdal.gdalinfo":       c.GDAL.Info,
		"gdal.gdal_translate": c.GDAL.Translate,
		"gdal.gdalwarp":       c.GDAL.Warp,
		"gdal.gdalbuildvrt":   c.GDAL.BuildVRT,
	} {
		if strings.TrimSpace(value) == "" {
			return fmt.Errorf("%s must be set", key)
		}
	}
	if c.GDAL.CommandTimeout < defaultMinCommandTimeout {
		return errors.New("gdal.command_timeout must be positive (seconds)")
	}
	return nil
}

func (c *Config) validateCreationOptions(key string, options []string) error {
	for _, option := range options {
		name, value, found := strings.Cut(option, "=")
		if !found || name == "" || value == "" {
			return fmt.Errorf("%s: %q must use KEY=VALUE form", key, option)
		}
	}
	return nil
}

func (c *Config) validateReproject() error {
	if !c.Reproject.Enabled {
		return nil
	}
	if strings.ContainsAny(c.Reproject.Subdir, `/\`) || c.Reproject.Subdir == "." || c.Reproject.Subdir == ".." {
		return fmt.Errorf("reproject.subdir %q must be a single directory name", c.Reproject.Subdir)
	}
	if _, ok := validResampling[c.Reproject.Resampling]; !ok {
		return fmt.Errorf("reproject.resampling %q is not a gdalwarp resampling method", c.Reproject.Resampling)
	}
	if c.Reproject.OutputType != "" {
		if _, ok := validOutputTypes[c.Reproject.OutputType]; !ok {
			return fmt.Errorf("reproject.output_type %q is not a GDAL data type", c.Reproject.OutputType)
		}
	}
	if c.Reproject.WarpMemoryMB <= 0 || c.Reproject.WarpMemoryMB > defaultMaxWarpMemoryMB {
		return errors.New("reproject.warp_memory_mb must be positive")
	}
	return c.validateCreationOptions("reproject.creation_options", c.Reproject.CreationOptions)
}

func (c *Config) validateValidation() error {
	if c.Validation.TileThreshold <= 0 {
		return errors.New("validation.tile_threshold must be positive")
	}
	return nil
}

func (c *Config) validateWorkflow() error {
	if c.Workflow.Workers <= 0 {
		return errors.New("workflow.workers must be positive")
	}
	if c.Workflow.Workers > defaultMaxWorkers {
		return fmt.Errorf("workflow.workers must be at most %d", defaultMaxWorkers)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
		return nil
	default:
		return fmt.Errorf("logging.level %q must be one of debug, info, warn, error", c.Logging.Level)
	}
}
