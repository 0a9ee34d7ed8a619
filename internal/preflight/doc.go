// Package preflight provides readiness checks for the GDAL programs and
// filesystem paths cogify depends on.
//
// These checks run in two contexts:
//   - "cogify run" and "cogify watch" call RunAll before touching any raster
//     and refuse to start when a check fails.
//   - "cogify status" displays every result, including optional programs.
package preflight
