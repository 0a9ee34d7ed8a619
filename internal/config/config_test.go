package config_test

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"cogify/internal/config"
)

func TestLoadDefaultConfigExpandsPaths(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Setenv("COGIFY_SOURCE_DIR", "")
	t.Setenv("GDAL_BIN_DIR", "")
	workDir := t.TempDir()
	t.Chdir(workDir)

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantSource := filepath.Join(workDir, "source")
	if cfg.Paths.SourceDir != wantSource {
		t.Fatalf("unexpected source dir: got %q want %q", cfg.Paths.SourceDir, wantSource)
	}
	if cfg.Paths.OutputDir != filepath.Join(wantSource, "translated") {
		t.Fatalf("unexpected output dir: %q", cfg.Paths.OutputDir)
	}
	if cfg.Paths.LogDir != filepath.Join(tempHome, ".local", "share", "cogify", "logs") {
		t.Fatalf("unexpected log dir: %q", cfg.Paths.LogDir)
	}
	if cfg.History.Path != filepath.Join(cfg.Paths.LogDir, "history.db") {
		t.Fatalf("unexpected history path: %q", cfg.History.Path)
	}
	if cfg.Reproject.Subdir != "3857" {
		t.Fatalf("expected subdir derived from EPSG code, got %q", cfg.Reproject.Subdir)
	}
	if cfg.ReprojectDir() != filepath.Join(cfg.Paths.OutputDir, "3857") {
		t.Fatalf("unexpected reproject dir: %q", cfg.ReprojectDir())
	}
	if !reflect.DeepEqual(cfg.Translate.CreationOptions, config.DefaultTranslateOptions) {
		t.Fatalf("unexpected translate options: %v", cfg.Translate.CreationOptions)
	}
	if !reflect.DeepEqual(cfg.Scan.Patterns, []string{"*.TIF"}) {
		t.Fatalf("unexpected scan patterns: %v", cfg.Scan.Patterns)
	}
	if cfg.CommandTimeout().Seconds() != 3600 {
		t.Fatalf("unexpected command timeout: %v", cfg.CommandTimeout())
	}

	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories failed: %v", err)
	}
	if info, err := os.Stat(cfg.Paths.LogDir); err != nil || !info.IsDir() {
		t.Fatalf("expected log dir to exist: %v", err)
	}
	if _, err := os.Stat(cfg.Paths.SourceDir); !os.IsNotExist(err) {
		t.Fatalf("expected source dir to remain uncreated, got %v", err)
	}
}

func TestLoadCustomPath(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "cogify.toml")

	type payload struct {
		Paths struct {
			SourceDir string `toml:"source_dir"`
			OutputDir string `toml:"output_dir"`
			LogDir    string `toml:"log_dir"`
		} `toml:"paths"`
		Reproject struct {
			TargetSRS       string   `toml:"target_srs"`
			Resampling      string   `toml:"resampling"`
			CreationOptions []string `toml:"creation_options"`
		} `toml:"reproject"`
		Workflow struct {
			Workers int `toml:"workers"`
		} `toml:"workflow"`
	}
	custom := payload{}
	custom.Paths.SourceDir = filepath.Join(tempDir, "dem")
	custom.Paths.OutputDir = filepath.Join(tempDir, "out")
	custom.Paths.LogDir = filepath.Join(tempDir, "logs")
	custom.Reproject.TargetSRS = "EPSG:4326"
	custom.Reproject.Resampling = "Bilinear"
	custom.Reproject.CreationOptions = []string{"tiled=YES", " COMPRESS=ZSTD ", "", "compress=DEFLATE"}
	custom.Workflow.Workers = 4

	data, err := toml.Marshal(custom)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists || resolved != configPath {
		t.Fatalf("expected custom config to be used, got %q exists=%v", resolved, exists)
	}
	if cfg.Reproject.Subdir != "4326" {
		t.Fatalf("expected subdir 4326, got %q", cfg.Reproject.Subdir)
	}
	if cfg.Reproject.Resampling != "bilinear" {
		t.Fatalf("expected lowercased resampling, got %q", cfg.Reproject.Resampling)
	}
	want := []string{"TILED=YES", "COMPRESS=DEFLATE"}
	if !reflect.DeepEqual(cfg.Reproject.CreationOptions, want) {
		t.Fatalf("unexpected creation options: got %v want %v", cfg.Reproject.CreationOptions, want)
	}
	if cfg.Workflow.Workers != 4 {
		t.Fatalf("unexpected workers: %d", cfg.Workflow.Workers)
	}
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "cogify.toml")
	if err := os.WriteFile(configPath, []byte("[paths]\nsorce_dir = \"/tmp\"\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, _, _, err := config.Load(configPath); err == nil {
		t.Fatal("expected error for unknown key")
	}
}

func TestSourceDirFromEnv(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	envSource := filepath.Join(t.TempDir(), "rasters")
	t.Setenv("COGIFY_SOURCE_DIR", envSource)

	cfg, _, _, err := config.Load(filepath.Join(t.TempDir(), "missing.toml"))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Paths.SourceDir != envSource {
		t.Fatalf("expected env source dir %q, got %q", envSource, cfg.Paths.SourceDir)
	}
}

func TestGDALBinDirPrefixesBareNames(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	binDir := t.TempDir()
	t.Setenv("GDAL_BIN_DIR", binDir)

	cfg, _, _, err := config.Load(filepath.Join(t.TempDir(), "missing.toml"))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.GDAL.Warp != filepath.Join(binDir, "gdalwarp") {
		t.Fatalf("expected gdalwarp under GDAL_BIN_DIR, got %q", cfg.GDAL.Warp)
	}
}

func TestValidateRejections(t *testing.T) {
	base := t.TempDir()
	cases := []struct {
		name   string
		mutate func(*config.Config)
		want   string
	}{
		{"output equals source", func(c *config.Config) { c.Paths.OutputDir = c.Paths.SourceDir }, "paths.output_dir"},
		{"output is parent of source", func(c *config.Config) { c.Paths.OutputDir = base }, "paths.output_dir"},
		{"log dir inside output", func(c *config.Config) { c.Paths.LogDir = filepath.Join(c.Paths.OutputDir, "logs") }, "paths.log_dir"},
		{"log dir is output", func(c *config.Config) { c.Paths.LogDir = c.Paths.OutputDir }, "paths.log_dir"},
		{"history inside output", func(c *config.Config) {
			c.History.Enabled = true
			c.History.Path = filepath.Join(c.Paths.OutputDir, "history.db")
		}, "history.path"},
		{"zero workers", func(c *config.Config) { c.Workflow.Workers = 0 }, "workflow.workers"},
		{"too many workers", func(c *config.Config) { c.Workflow.Workers = 1000 }, "workflow.workers"},
		{"bad resampling", func(c *config.Config) { c.Reproject.Resampling = "sinc" }, "reproject.resampling"},
		{"bad output type", func(c *config.Config) { c.Reproject.OutputType = "Float16x" }, "reproject.output_type"},
		{"nested subdir", func(c *config.Config) { c.Reproject.Subdir = "a/b" }, "reproject.subdir"},
		{"bad creation option", func(c *config.Config) { c.Translate.CreationOptions = []string{"TILED"} }, "translate.creation_options"},
		{"bad tile threshold", func(c *config.Config) { c.Validation.TileThreshold = 0 }, "validation.tile_threshold"},
		{"bad log level", func(c *config.Config) { c.Logging.Level = "verbose" }, "logging.level"},
		{"negative timeout", func(c *config.Config) { c.GDAL.CommandTimeout = -1 }, "gdal.command_timeout"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := config.Default()
			cfg.Paths.SourceDir = filepath.Join(base, "source")
			cfg.Paths.OutputDir = filepath.Join(base, "source", "translated")
			cfg.Paths.LogDir = filepath.Join(base, "logs")
			cfg.Reproject.Subdir = "3857"
			tc.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatalf("expected validation error containing %q", tc.want)
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected error to mention %q, got %v", tc.want, err)
			}
		})
	}
}

func TestReprojectValidationSkippedWhenDisabled(t *testing.T) {
	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.SourceDir = filepath.Join(base, "source")
	cfg.Paths.OutputDir = filepath.Join(base, "out")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Reproject.Enabled = false
	cfg.Reproject.Resampling = "bogus"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected disabled reprojection to skip validation, got %v", err)
	}
}

func TestCreateSampleLoads(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	target := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(target); err != nil {
		t.Fatalf("CreateSample: %v", err)
	}
	cfg, _, exists, err := config.Load(target)
	if err != nil {
		t.Fatalf("sample config should load: %v", err)
	}
	if !exists {
		t.Fatal("expected sample file to exist")
	}
	if cfg.Reproject.TargetSRS != "EPSG:3857" {
		t.Fatalf("unexpected sample target srs: %q", cfg.Reproject.TargetSRS)
	}
}

func TestEncodeRoundTrips(t *testing.T) {
	cfg := config.Default()
	data, err := cfg.Encode()
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if !strings.Contains(string(data), "target_srs") || !strings.Contains(string(data), "EPSG:3857") {
		t.Fatalf("expected target_srs in encoded config, got:\n%s", data)
	}
}
