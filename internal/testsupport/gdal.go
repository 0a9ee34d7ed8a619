package testsupport

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// Raster fixture contents understood by the stubbed GDAL programs. The first
// line decides what the gdalinfo stub reports; later lines carry markers that
// make individual programs fail.
const (
	// ValidCOG makes gdalinfo report a tiled raster with overviews and LAYOUT=COG.
	ValidCOG = "cog\n"
	// StripTIFF makes gdalinfo report a 2048 pixel wide untiled raster with no
	// overviews.
	StripTIFF = "strip\n"
	// MarkerUnreadable makes gdalinfo fail.
	MarkerUnreadable = "unreadable\n"
	// MarkerFailTranslate makes gdal_translate exit non-zero.
	MarkerFailTranslate = "fail-translate\n"
	// MarkerTranslateStrip makes gdal_translate emit another strip raster.
	MarkerTranslateStrip = "translate-strip\n"
	// MarkerFailWarp makes gdalwarp exit non-zero.
	MarkerFailWarp = "fail-warp\n"
)

const gdalinfoStub = `#!/bin/sh
if [ "$1" = "--version" ]; then
  echo "GDAL 3.8.4, released 2024/02/08"
  exit 0
fi
path="$2"
echo "$@" >> "$0.calls"
if [ ! -f "$path" ] || grep -q '^unreadable$' "$path"; then
  echo "ERROR 4: $path: not recognized as being in a supported file format" >&2
  exit 1
fi
first=$(head -n 1 "$path")
if [ "$first" = "cog" ]; then
  printf '{"description":"%s","driverShortName":"GTiff","files":["%s"],"size":[1024,1024],"metadata":{"IMAGE_STRUCTURE":{"COMPRESSION":"LZW","INTERLEAVE":"BAND","LAYOUT":"COG"}},"bands":[{"band":1,"block":[512,512],"type":"Float32","overviews":[{"size":[512,512]},{"size":[256,256]}]}]}\n' "$path" "$path"
else
  printf '{"description":"%s","driverShortName":"GTiff","files":["%s"],"size":[2048,2048],"metadata":{"IMAGE_STRUCTURE":{"INTERLEAVE":"BAND"}},"bands":[{"band":1,"block":[2048,1],"type":"Float32"}]}\n' "$path" "$path"
fi
`

const translateStub = `#!/bin/sh
echo "$@" >> "$0.calls"
src=""; dst=""
for arg in "$@"; do src="$dst"; dst="$arg"; done
if grep -q '^fail-translate$' "$src"; then
  echo "ERROR 1: $src: translate failed" >&2
  exit 1
fi
if grep -q '^translate-strip$' "$src"; then
  { echo strip; tail -n +2 "$src"; } > "$dst"
else
  { echo cog; tail -n +2 "$src"; } > "$dst"
fi
`

const warpStub = `#!/bin/sh
echo "$@" >> "$0.calls"
src=""; dst=""
for arg in "$@"; do src="$dst"; dst="$arg"; done
if grep -q '^fail-warp$' "$src"; then
  echo "ERROR 1: $src: warp failed" >&2
  exit 1
fi
cp "$src" "$dst"
`

const buildVRTStub = `#!/bin/sh
echo "$@" >> "$0.calls"
dst="$2"
shift 2
printf '%s\n' "$@" > "$dst"
`

// WithStubbedGDAL writes shell stand-ins for gdalinfo, gdal_translate,
// gdalwarp and gdalbuildvrt and points the config at them. Each stub appends
// its arguments to "<stub>.calls" so tests can assert on invocations.
func WithStubbedGDAL() ConfigOption {
	return func(b *configBuilder) {
		binDir := filepath.Join(b.baseDir, "bin")
		b.cfg.GDAL.Info = writeStub(b.t, binDir, "gdalinfo", gdalinfoStub)
		b.cfg.GDAL.Translate = writeStub(b.t, binDir, "gdal_translate", translateStub)
		b.cfg.GDAL.Warp = writeStub(b.t, binDir, "gdalwarp", warpStub)
		b.cfg.GDAL.BuildVRT = writeStub(b.t, binDir, "gdalbuildvrt", buildVRTStub)
	}
}

func writeStub(t testing.TB, dir, name, script string) string {
	t.Helper()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir bin dir: %v", err)
	}
	target := filepath.Join(dir, name)
	if err := os.WriteFile(target, []byte(script), 0o755); err != nil {
		t.Fatalf("write stub %s: %v", name, err)
	}
	return target
}

// WriteRaster creates a fixture raster under dir whose content is the
// concatenation of lines (see ValidCOG, StripTIFF and the Marker constants).
func WriteRaster(t testing.TB, dir, name string, lines ...string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, []byte(strings.Join(lines, "")), 0o644); err != nil {
		t.Fatalf("write raster %s: %v", path, err)
	}
	return path
}

// StubCalls returns the recorded argument lines for a stubbed program.
func StubCalls(t testing.TB, binary string) []string {
	t.Helper()
	data, err := os.ReadFile(binary + ".calls")
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		t.Fatalf("read stub calls: %v", err)
	}
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "" {
		return nil
	}
	return strings.Split(trimmed, "\n")
}
