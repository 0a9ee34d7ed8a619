package gdal_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"cogify/internal/gdal"
	"cogify/internal/logging"
	"cogify/internal/testsupport"
)

func newTools(t *testing.T) (gdal.Tools, string) {
	t.Helper()
	cfg := testsupport.NewConfig(t, testsupport.WithStubbedGDAL())
	return gdal.NewTools(cfg, logging.NewNop()), cfg.Paths.SourceDir
}

func TestInspectValidAndStripRasters(t *testing.T) {
	tools, dir := newTools(t)
	cogPath := testsupport.WriteRaster(t, dir, "a.tif", testsupport.ValidCOG)
	stripPath := testsupport.WriteRaster(t, dir, "b.tif", testsupport.StripTIFF)

	info, err := tools.Inspect(context.Background(), cogPath)
	if err != nil {
		t.Fatalf("Inspect cog: %v", err)
	}
	if info.Layout() != "COG" || len(info.Overviews()) != 2 {
		t.Fatalf("unexpected cog info: %+v", info)
	}

	info, err = tools.Inspect(context.Background(), stripPath)
	if err != nil {
		t.Fatalf("Inspect strip: %v", err)
	}
	if bx, _ := info.BlockSize(); bx != info.Width() {
		t.Fatalf("expected strip layout, got block width %d", bx)
	}
	if info.Description != stripPath {
		t.Fatalf("unexpected description %q", info.Description)
	}

	calls := testsupport.StubCalls(t, tools.InfoPath)
	if len(calls) != 2 || !strings.HasPrefix(calls[0], "-json ") {
		t.Fatalf("unexpected gdalinfo calls %v", calls)
	}
}

func TestInspectReportsToolError(t *testing.T) {
	tools, dir := newTools(t)
	path := testsupport.WriteRaster(t, dir, "bad.tif", testsupport.MarkerUnreadable)

	_, err := tools.Inspect(context.Background(), path)
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "not recognized") {
		t.Fatalf("expected stderr in error, got %v", err)
	}
}

func TestInspectRejectsEmptyPath(t *testing.T) {
	tools, _ := newTools(t)
	if _, err := tools.Inspect(context.Background(), "  "); !errors.Is(err, gdal.ErrEmptyPath) {
		t.Fatalf("expected ErrEmptyPath, got %v", err)
	}
}

func TestTranslateWritesOutput(t *testing.T) {
	tools, dir := newTools(t)
	src := testsupport.WriteRaster(t, dir, "in.tif", testsupport.StripTIFF)
	dst := filepath.Join(dir, "out.tif")

	err := tools.Translate(context.Background(), src, dst, gdal.TranslateOptions{CreationOptions: []string{"TILED=YES"}})
	if err != nil {
		t.Fatalf("Translate: %v", err)
	}
	data, err := os.ReadFile(dst)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	if !strings.HasPrefix(string(data), "cog") {
		t.Fatalf("unexpected output %q", data)
	}
	calls := testsupport.StubCalls(t, tools.TranslatePath)
	if len(calls) != 1 || !strings.Contains(calls[0], "-co TILED=YES") {
		t.Fatalf("unexpected gdal_translate calls %v", calls)
	}
}

func TestTranslateFailure(t *testing.T) {
	tools, dir := newTools(t)
	src := testsupport.WriteRaster(t, dir, "in.tif", testsupport.StripTIFF, testsupport.MarkerFailTranslate)

	err := tools.Translate(context.Background(), src, filepath.Join(dir, "out.tif"), gdal.TranslateOptions{})
	if err == nil || !strings.Contains(err.Error(), "translate failed") {
		t.Fatalf("expected translate failure, got %v", err)
	}
}

func TestWarpAndBuildVRT(t *testing.T) {
	tools, dir := newTools(t)
	src := testsupport.WriteRaster(t, dir, "in.tif", testsupport.ValidCOG)
	warped := filepath.Join(dir, "warped.tif")

	if err := tools.Warp(context.Background(), src, warped, gdal.WarpOptions{TargetSRS: "EPSG:3857"}); err != nil {
		t.Fatalf("Warp: %v", err)
	}
	if _, err := os.Stat(warped); err != nil {
		t.Fatalf("expected warp output: %v", err)
	}

	vrt := filepath.Join(dir, "mosaic.vrt")
	if err := tools.BuildVRT(context.Background(), vrt, []string{warped}); err != nil {
		t.Fatalf("BuildVRT: %v", err)
	}
	data, err := os.ReadFile(vrt)
	if err != nil {
		t.Fatalf("read vrt: %v", err)
	}
	if strings.TrimSpace(string(data)) != warped {
		t.Fatalf("unexpected vrt content %q", data)
	}
}

func TestBuildVRTRequiresSources(t *testing.T) {
	tools, dir := newTools(t)
	if err := tools.BuildVRT(context.Background(), filepath.Join(dir, "m.vrt"), nil); err == nil {
		t.Fatal("expected error for empty source list")
	}
}

func TestWarpFailure(t *testing.T) {
	tools, dir := newTools(t)
	src := testsupport.WriteRaster(t, dir, "in.tif", testsupport.ValidCOG, testsupport.MarkerFailWarp)
	err := tools.Warp(context.Background(), src, filepath.Join(dir, "out.tif"), gdal.WarpOptions{})
	if err == nil || !strings.Contains(err.Error(), "warp failed") {
		t.Fatalf("expected warp failure, got %v", err)
	}
}

func TestVersion(t *testing.T) {
	tools, _ := newTools(t)
	version, err := tools.Version(context.Background())
	if err != nil {
		t.Fatalf("Version: %v", err)
	}
	if !strings.HasPrefix(version, "GDAL 3.8.4") {
		t.Fatalf("unexpected version %q", version)
	}
}

func TestMissingBinary(t *testing.T) {
	tools := gdal.Tools{InfoPath: filepath.Join(t.TempDir(), "missing-gdalinfo")}
	if _, err := tools.Version(context.Background()); err == nil {
		t.Fatal("expected error for missing binary")
	}
}
