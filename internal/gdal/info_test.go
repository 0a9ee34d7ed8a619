package gdal

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

const sampleInfo = `{
  "description": "/data/scene.tif",
  "driverShortName": "GTiff",
  "driverLongName": "GeoTIFF",
  "files": ["/data/scene.tif", "/data/scene.tif.ovr"],
  "size": [2048, 1024],
  "coordinateSystem": {"wkt": "GEOGCRS[\"WGS 84\"]"},
  "metadata": {
    "": {"AREA_OR_POINT": "Area"},
    "IMAGE_STRUCTURE": {"COMPRESSION": "DEFLATE", "LAYOUT": "COG"}
  },
  "bands": [
    {"band": 1, "block": [512, 256], "type": "UInt16", "overviews": [{"size": [1024, 512]}, {"size": [512, 256]}]},
    {"band": 2, "block": [512, 256], "type": "UInt16"}
  ]
}`

func TestParseInfoAccessors(t *testing.T) {
	info, err := ParseInfo([]byte(sampleInfo))
	if err != nil {
		t.Fatalf("ParseInfo: %v", err)
	}
	if info.Driver != "GTiff" {
		t.Fatalf("unexpected driver %q", info.Driver)
	}
	if info.Width() != 2048 || info.Height() != 1024 {
		t.Fatalf("unexpected size %dx%d", info.Width(), info.Height())
	}
	bx, by := info.BlockSize()
	if bx != 512 || by != 256 {
		t.Fatalf("unexpected block %dx%d", bx, by)
	}
	overviews := info.Overviews()
	if len(overviews) != 2 || overviews[0].Width() != 1024 || overviews[1].Height() != 256 {
		t.Fatalf("unexpected overviews %+v", overviews)
	}
	if info.Compression() != "DEFLATE" {
		t.Fatalf("unexpected compression %q", info.Compression())
	}
	if info.Layout() != "COG" {
		t.Fatalf("unexpected layout %q", info.Layout())
	}
	if info.MetadataItem("", "AREA_OR_POINT") != "Area" {
		t.Fatalf("default domain lookup failed")
	}
	if diff := cmp.Diff([]string{"/data/scene.tif.ovr"}, info.ExternalOverviews()); diff != "" {
		t.Fatalf("external overviews mismatch (-want +got):\n%s", diff)
	}
	if info.CoordinateSystem == nil || info.CoordinateSystem.WKT == "" {
		t.Fatalf("expected coordinate system")
	}
	if len(info.RawJSON()) != len(sampleInfo) {
		t.Fatalf("raw json not retained")
	}
}

func TestInfoAccessorsHandleMissingFields(t *testing.T) {
	info, err := ParseInfo([]byte(`{"driverShortName":"PNG"}`))
	if err != nil {
		t.Fatalf("ParseInfo: %v", err)
	}
	if info.Width() != 0 || info.Height() != 0 {
		t.Fatalf("expected zero size")
	}
	if bx, by := info.BlockSize(); bx != 0 || by != 0 {
		t.Fatalf("expected zero block size")
	}
	if info.Overviews() != nil {
		t.Fatalf("expected no overviews")
	}
	if info.Compression() != "NONE" {
		t.Fatalf("expected NONE compression, got %q", info.Compression())
	}
	if info.Layout() != "" {
		t.Fatalf("expected empty layout")
	}
	if info.ExternalOverviews() != nil {
		t.Fatalf("expected no external overviews")
	}
}

func TestParseInfoRejectsGarbage(t *testing.T) {
	if _, err := ParseInfo([]byte("ERROR 4: not a raster")); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestTranslateArgs(t *testing.T) {
	got := TranslateArgs("in.tif", "out.tif", TranslateOptions{
		CreationOptions: []string{"TILED=YES", " ", "COMPRESS=LZW"},
	})
	want := []string{"-of", "GTiff", "-co", "TILED=YES", "-co", "COMPRESS=LZW", "in.tif", "out.tif"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("TranslateArgs mismatch (-want +got):\n%s", diff)
	}
}

func TestWarpArgs(t *testing.T) {
	got := WarpArgs("in.tif", "out.tif", WarpOptions{
		TargetSRS:       "EPSG:3857",
		Resampling:      "cubicspline",
		OutputType:      "Float32",
		WarpMemoryMB:    3000,
		CreationOptions: []string{"COMPRESS=DEFLATE"},
	})
	want := []string{
		"-overwrite", "-t_srs", "EPSG:3857", "-of", "GTiff", "-wm", "3000",
		"-ot", "Float32", "-r", "cubicspline", "-co", "COMPRESS=DEFLATE",
		"in.tif", "out.tif",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("WarpArgs mismatch (-want +got):\n%s", diff)
	}
}

func TestWarpArgsOmitsUnsetOptions(t *testing.T) {
	got := WarpArgs("a.tif", "b.tif", WarpOptions{Format: "COG"})
	want := []string{"-overwrite", "-of", "COG", "a.tif", "b.tif"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("WarpArgs mismatch (-want +got):\n%s", diff)
	}
}
