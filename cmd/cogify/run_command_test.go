package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"cogify/internal/batch"
	"cogify/internal/testsupport"
)

func TestRunCommandJSONSummary(t *testing.T) {
	env := setupCLITestEnv(t)
	src := env.cfg.Paths.SourceDir
	testsupport.WriteRaster(t, src, "cog.TIF", testsupport.ValidCOG)
	testsupport.WriteRaster(t, src, "strip.TIF", testsupport.StripTIFF)

	out, _, err := runCLI(t, env.configPath, "run", "--json")
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	var summary batch.Summary
	if err := json.Unmarshal([]byte(out), &summary); err != nil {
		t.Fatalf("decode summary: %v\n%s", err, out)
	}
	if summary.Scanned != 2 || summary.Valid != 1 || summary.Invalid != 1 {
		t.Fatalf("unexpected counts: %+v", summary)
	}
	if len(summary.Files) != 2 || summary.Files[1].Status != batch.StatusReprojected {
		t.Fatalf("unexpected files: %+v", summary.Files)
	}
	want := filepath.Join(env.cfg.Paths.OutputDir, "3857", "strip.TIF")
	if summary.Files[1].Reprojected != want {
		t.Fatalf("reprojected = %q, want %q", summary.Files[1].Reprojected, want)
	}
	if _, err := os.Stat(want); err != nil {
		t.Fatalf("expected reprojected raster: %v", err)
	}

	out, _, err = runCLI(t, env.configPath, "history")
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	requireContains(t, out, shortID(summary.RunID))

	out, _, err = runCLI(t, env.configPath, "history", "show", shortID(summary.RunID))
	if err != nil {
		t.Fatalf("history show: %v", err)
	}
	requireContains(t, out, summary.RunID)
	requireContains(t, out, "strip.TIF")
	requireContains(t, out, "Reprojected")
}

func TestRunCommandFlagsOverrideConfig(t *testing.T) {
	env := setupCLITestEnv(t)
	src := env.cfg.Paths.SourceDir
	testsupport.WriteRaster(t, src, "strip.TIF", testsupport.StripTIFF)
	stale := testsupport.WriteRaster(t, env.cfg.Paths.OutputDir, "stale.TIF", testsupport.ValidCOG)

	out, _, err := runCLI(t, env.configPath, "run", "--no-reproject", "--keep-output", "--workers", "2")
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	requireContains(t, out, "Translated")
	requireContains(t, out, "Processed 1: 0 reprojected, 1 translated")
	if _, err := os.Stat(stale); err != nil {
		t.Fatalf("--keep-output should preserve existing output: %v", err)
	}
	if calls := testsupport.StubCalls(t, env.cfg.GDAL.Warp); len(calls) != 0 {
		t.Fatalf("gdalwarp should not run with --no-reproject, got %v", calls)
	}
}

func TestRunCommandReportsFailures(t *testing.T) {
	env := setupCLITestEnv(t)
	testsupport.WriteRaster(t, env.cfg.Paths.SourceDir, "broken.TIF", testsupport.StripTIFF, testsupport.MarkerFailTranslate)

	out, _, err := runCLI(t, env.configPath, "run")
	if err == nil || !strings.Contains(err.Error(), "1 of 1 raster(s) failed") {
		t.Fatalf("expected failure error, got %v", err)
	}
	requireContains(t, out, "Failed to Process")
}

func TestRunCommandNothingToDo(t *testing.T) {
	env := setupCLITestEnv(t)
	testsupport.WriteRaster(t, env.cfg.Paths.SourceDir, "cog.TIF", testsupport.ValidCOG)

	out, _, err := runCLI(t, env.configPath, "run")
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	requireContains(t, out, "No Processing Required")
}

func TestRunCommandRejectsBadWorkers(t *testing.T) {
	env := setupCLITestEnv(t)
	if _, _, err := runCLI(t, env.configPath, "run", "--workers", "0"); err == nil {
		t.Fatal("expected error for --workers 0")
	}
}

func TestRunCommandFailsPreflight(t *testing.T) {
	env := setupCLITestEnv(t)
	if err := os.Remove(env.cfg.GDAL.Translate); err != nil {
		t.Fatalf("remove stub: %v", err)
	}
	_, _, err := runCLI(t, env.configPath, "run")
	if err == nil || !strings.Contains(err.Error(), "preflight failed") {
		t.Fatalf("expected preflight error, got %v", err)
	}
}
