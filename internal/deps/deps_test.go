package deps

import (
	"os"
	"path/filepath"
	"testing"

	"cogify/internal/config"
)

func TestCheckBinaries(t *testing.T) {
	binDir := t.TempDir()
	present := filepath.Join(binDir, "present")
	script := []byte("#!/bin/sh\nexit 0\n")
	if err := os.WriteFile(present, script, 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}
	reqs := []Requirement{
		{Name: "Present", Command: present},
		{Name: "Missing", Command: "clearly-not-present-binary"},
		{Name: "Blank", Command: " "},
	}

	results := CheckBinaries(reqs)
	if len(results) != len(reqs) {
		t.Fatalf("expected %d results, got %d", len(reqs), len(results))
	}
	if !results[0].Available || results[0].Path != present || results[0].Detail != "" {
		t.Fatalf("expected first requirement to be available, got %#v", results[0])
	}
	if results[1].Available || results[1].Detail == "" {
		t.Fatalf("expected missing binary to be unavailable with detail, got %#v", results[1])
	}
	if results[1].Command != "clearly-not-present-binary" {
		t.Fatalf("unexpected command recorded: %s", results[1].Command)
	}
	if results[2].Detail != "command not configured" {
		t.Fatalf("unexpected detail for blank command: %q", results[2].Detail)
	}
}

func TestGDALRequirementsOptionality(t *testing.T) {
	cfg := config.Default()
	cfg.Reproject.Enabled = false
	cfg.Mosaic.BuildVRT = true

	reqs := GDALRequirements(&cfg)
	optional := map[string]bool{}
	for _, req := range reqs {
		optional[req.Name] = req.Optional
	}
	if optional["gdalinfo"] || optional["gdal_translate"] {
		t.Fatal("gdalinfo and gdal_translate are always required")
	}
	if !optional["gdalwarp"] {
		t.Fatal("gdalwarp should be optional with reprojection disabled")
	}
	if optional["gdalbuildvrt"] {
		t.Fatal("gdalbuildvrt should be required when mosaics are enabled")
	}
}

func TestMissingRequired(t *testing.T) {
	statuses := []Status{
		{Name: "a", Available: true},
		{Name: "b", Optional: true},
		{Name: "c"},
	}
	missing := MissingRequired(statuses)
	if len(missing) != 1 || missing[0].Name != "c" {
		t.Fatalf("unexpected missing set %v", missing)
	}
}
