// Package deps reports which external GDAL programs cogify can find.
package deps

import (
	"fmt"
	"os/exec"
	"strings"

	"cogify/internal/config"
)

// Requirement defines an external program cogify relies on.
type Requirement struct {
	Name        string
	Command     string
	Description string
	Optional    bool
}

// Status reports the availability of a requirement.
type Status struct {
	Name        string
	Command     string
	Description string
	Optional    bool
	Available   bool
	// Path is the resolved executable location when available.
	Path   string
	Detail string
}

// GDALRequirements lists the GDAL programs the configuration will invoke.
// gdalwarp is optional with reprojection disabled and gdalbuildvrt is
// optional unless mosaics are enabled.
func GDALRequirements(cfg *config.Config) []Requirement {
	return []Requirement{
		{Name: "gdalinfo", Command: cfg.GDAL.Info, Description: "Inspects rasters for COG validation"},
		{Name: "gdal_translate", Command: cfg.GDAL.Translate, Description: "Converts rasters to tiled, compressed GeoTIFF"},
		{Name: "gdalwarp", Command: cfg.GDAL.Warp, Description: "Reprojects converted rasters", Optional: !cfg.Reproject.Enabled},
		{Name: "gdalbuildvrt", Command: cfg.GDAL.BuildVRT, Description: "Builds the output mosaic", Optional: !cfg.Mosaic.BuildVRT},
	}
}

// CheckBinaries evaluates the provided requirements and reports availability.
func CheckBinaries(requirements []Requirement) []Status {
	results := make([]Status, 0, len(requirements))
	for _, req := range requirements {
		cmd := strings.TrimSpace(req.Command)
		status := Status{
			Name:        req.Name,
			Command:     cmd,
			Description: strings.TrimSpace(req.Description),
			Optional:    req.Optional,
		}
		if cmd == "" {
			status.Detail = "command not configured"
			results = append(results, status)
			continue
		}
		path, err := exec.LookPath(cmd)
		if err != nil {
			status.Detail = fmt.Sprintf("binary %q not found", cmd)
			results = append(results, status)
			continue
		}
		status.Available = true
		status.Path = path
		results = append(results, status)
	}
	return results
}

// MissingRequired returns the required programs that are unavailable.
func MissingRequired(statuses []Status) []Status {
	var missing []Status
	for _, status := range statuses {
		if !status.Available && !status.Optional {
			missing = append(missing, status)
		}
	}
	return missing
}
