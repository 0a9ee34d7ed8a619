// Package config loads, normalizes, and validates cogify configuration data.
//
// It supplies repository defaults (including the GTiff creation options used
// for COG conversion and the gdalwarp settings for reprojection), expands user
// paths, reads TOML files, and honours environment fallbacks such as
// COGIFY_SOURCE_DIR and GDAL_BIN_DIR.
//
// Always obtain settings through this package so downstream code receives
// absolute paths, canonical creation options, and clear validation errors.
package config
