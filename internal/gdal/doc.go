// Package gdal drives the GDAL command-line programs cogify depends on.
//
// Key types:
//   - Tools: resolved program names plus a per-invocation timeout
//   - Info: typed view of `gdalinfo -json` output (size, bands, block
//     layout, overviews, metadata domains)
//   - TranslateOptions / WarpOptions: arguments for gdal_translate and gdalwarp
//
// Primary entry points:
//   - Tools.Inspect: runs gdalinfo and returns the parsed Info
//   - Tools.Translate, Tools.Warp, Tools.BuildVRT: produce output rasters
//
// Raster facts always come from GDAL itself; this package only builds
// argument lists and decodes GDAL's JSON reports.
package gdal
