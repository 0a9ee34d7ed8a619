package gdal

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
)

// Info is the subset of `gdalinfo -json` output cogify inspects.
type Info struct {
	Description      string                       `json:"description"`
	Driver           string                       `json:"driverShortName"`
	DriverLong       string                       `json:"driverLongName"`
	Files            []string                     `json:"files"`
	Size             []int                        `json:"size"`
	CoordinateSystem *CoordinateSystem            `json:"coordinateSystem,omitempty"`
	Metadata         map[string]map[string]string `json:"metadata"`
	Bands            []Band                       `json:"bands"`
	raw              []byte
}

// CoordinateSystem carries the raster CRS as WKT.
type CoordinateSystem struct {
	WKT string `json:"wkt"`
}

// Band describes a single raster band.
type Band struct {
	Band        int        `json:"band"`
	Block       []int      `json:"block"`
	Type        string     `json:"type"`
	Description string     `json:"description"`
	Overviews   []Overview `json:"overviews"`
}

// Overview is one reduced-resolution level of a band.
type Overview struct {
	Size []int `json:"size"`
}

// Inspect runs gdalinfo against path and decodes the JSON response.
func (t Tools) Inspect(ctx context.Context, path string) (Info, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return Info{}, fmt.Errorf("gdalinfo inspect: %w", ErrEmptyPath)
	}

	output, err := t.run(ctx, binaryOr(t.InfoPath, "gdalinfo"), "-json", path)
	if err != nil {
		return Info{}, fmt.Errorf("gdalinfo inspect: %w", err)
	}
	info, err := ParseInfo(output)
	if err != nil {
		return Info{}, err
	}
	if info.Description == "" {
		info.Description = path
	}
	return info, nil
}

// ParseInfo decodes a gdalinfo JSON document.
func ParseInfo(data []byte) (Info, error) {
	var info Info
	if err := json.Unmarshal(data, &info); err != nil {
		return Info{}, fmt.Errorf("gdalinfo parse: %w", err)
	}
	info.raw = append([]byte(nil), data...)
	return info, nil
}

// RawJSON returns the raw gdalinfo JSON payload.
func (i Info) RawJSON() []byte {
	return append([]byte(nil), i.raw...)
}

// Width returns the raster width in pixels, or 0 when unreported.
func (i Info) Width() int {
	if len(i.Size) < 1 {
		return 0
	}
	return i.Size[0]
}

// Height returns the raster height in pixels, or 0 when unreported.
func (i Info) Height() int {
	if len(i.Size) < 2 {
		return 0
	}
	return i.Size[1]
}

// BlockSize returns the first band's block dimensions.
func (i Info) BlockSize() (int, int) {
	if len(i.Bands) == 0 || len(i.Bands[0].Block) < 2 {
		return 0, 0
	}
	return i.Bands[0].Block[0], i.Bands[0].Block[1]
}

// Overviews returns the first band's overview levels.
func (i Info) Overviews() []Overview {
	if len(i.Bands) == 0 {
		return nil
	}
	return i.Bands[0].Overviews
}

// MetadataItem looks up key in the named metadata domain. The default domain is "".
func (i Info) MetadataItem(domain, key string) string {
	items, ok := i.Metadata[domain]
	if !ok {
		return ""
	}
	return items[key]
}

// Compression returns IMAGE_STRUCTURE/COMPRESSION, or "NONE".
func (i Info) Compression() string {
	if value := i.MetadataItem("IMAGE_STRUCTURE", "COMPRESSION"); value != "" {
		return value
	}
	return "NONE"
}

// Layout returns IMAGE_STRUCTURE/LAYOUT (e.g. "COG"), or "".
func (i Info) Layout() string {
	return i.MetadataItem("IMAGE_STRUCTURE", "LAYOUT")
}

// ExternalOverviews reports auxiliary .ovr files GDAL attached to the dataset.
func (i Info) ExternalOverviews() []string {
	var found []string
	for _, file := range i.Files {
		if strings.EqualFold(filepath.Ext(file), ".ovr") {
			found = append(found, file)
		}
	}
	return found
}

// Width returns the overview width in pixels.
func (o Overview) Width() int {
	if len(o.Size) < 1 {
		return 0
	}
	return o.Size[0]
}

// Height returns the overview height in pixels.
func (o Overview) Height() int {
	if len(o.Size) < 2 {
		return 0
	}
	return o.Size[1]
}
